package cmm

const (
	// varianceFloor replaces non-positive knn variances caused by rounding.
	varianceFloor = 1e-50

	// MinError is assigned to errors forgiven by the cluster model so they stay traceable.
	MinError = 0.00001
)

// Diagnostic names written to points and found clusters.
const (
	DiagKnnAvg         = "knnAvg"
	DiagConnectivity   = "Connectivity"
	DiagMaxConnection  = "MaxConnection"
	DiagError          = "CMM"
	DiagErrorType      = "CMM Type"
	DiagRedundancy     = "Redundancy"
	DiagHullDistWeight = "HullDistWeight"
	DiagMatch          = "CMM Match"
	DiagWorkclass      = "CMM Workclass"
)

func DefaultParams() Params {
	return Params{
		KnnNeighbourhood:    2,
		TauConnection:       0.5,
		UseExpConnectivity:  false,
		LambdaConnRefXValue: 0.01,
		LambdaConnX:         4,
		InclusionThreshold:  0.5,
		LambdaMissed:        1,
		EnableClassMerge:    true,
		EnableModelError:    true,
		UseHullDistance:     true,
	}
}
