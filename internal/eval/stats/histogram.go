package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Bin is one histogram bucket covering [Lo, Hi).
type Bin struct {
	Lo    float64
	Hi    float64
	Count float64
}

// Histogram sorts a copy of x into n equal-width bins spanning its range.
// The last bin is closed so the maximum is counted. A constant sample gets
// a single unit-wide bin centred on the value.
func Histogram(x []float64, n int) []Bin {
	if len(x) == 0 || n <= 0 {
		return nil
	}

	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return []Bin{{Lo: lo - 0.5, Hi: hi + 0.5, Count: float64(len(sorted))}}
	}

	// stat.Histogram wants the top divider strictly above the maximum.
	dividers := make([]float64, n+1)
	floats.Span(dividers, lo, hi)
	dividers[n] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{Lo: dividers[i], Hi: dividers[i+1], Count: counts[i]}
	}
	return bins
}
