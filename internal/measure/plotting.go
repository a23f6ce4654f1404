package measure

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

// PlotMeasuresTerminal writes a horizontal bar chart of measure values in [0,1] to w.
func PlotMeasuresTerminal(w io.Writer, values map[string]float64, title string) {
	type namedValue struct {
		Name  string
		Value float64
	}

	entries := make([]namedValue, 0, len(values))
	nameWidth := len("Measure")
	for name, v := range values {
		entries = append(entries, namedValue{Name: name, Value: v})
		nameWidth = max(nameWidth, len(name))
	}

	// Sort by value in ascending order, NaN first
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Value, entries[j].Value
		if math.IsNaN(a) || math.IsNaN(b) {
			return math.IsNaN(a) && !math.IsNaN(b)
		}
		if a == b {
			return entries[i].Name < entries[j].Name
		}
		return a < b
	})

	const maxBarWidth = 50
	fmt.Fprintf(w, "\n%s (Terminal Plot - Ascending Order):\n", title)
	fmt.Fprintf(w, "%-*s | Value    | Bar Chart\n", nameWidth, "Measure")
	fmt.Fprintln(w, strings.Repeat("-", nameWidth+1)+"|----------|"+strings.Repeat("-", maxBarWidth))

	for _, e := range entries {
		if math.IsNaN(e.Value) {
			fmt.Fprintf(w, "%-*s |      NaN | \n", nameWidth, e.Name)
			continue
		}
		barWidth := int(math.Max(0, math.Min(1, e.Value)) * maxBarWidth)
		bar := strings.Repeat("█", barWidth)
		if barWidth == 0 {
			bar = "▏"
		}
		fmt.Fprintf(w, "%-*s | %.6f | %s (%.4f)\n", nameWidth, e.Name, e.Value, bar, e.Value)
	}

	fmt.Fprintf(w, "\nBar width represents the value on [0,1] (0 to %d chars)\n", maxBarWidth)
}
