package cmm

import "errors"

var (
	ErrEmptyHorizon      = errors.New("horizon contains no points")
	ErrDimensionMismatch = errors.New("points have different dimensions")
	ErrUnknownLabel      = errors.New("point label has no ground-truth cluster")
	ErrInconsistentState = errors.New("internal consistency violation")
	ErrInvalidParams     = errors.New("invalid parameters")
)
