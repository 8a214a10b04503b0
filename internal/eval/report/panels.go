package report

import (
	"fmt"
	"math"

	"github.com/banshee-data/detection.report/internal/eval/stats"
)

// DefaultBins matches the histogram resolution of the evaluation plots.
const DefaultBins = 20

// panel is one cell of the report grid.
type panel struct {
	title string
	// scalar panels show a single value; sample panels show a histogram.
	scalar    bool
	value     float64
	undefined bool
	samples   []float64
	summary   *stats.Summary
}

// panels lays out the report in row-major order: precision, recall, IoU,
// then the X, Y and Z centre deviations.
func panels(s *stats.DatasetStatistics) []panel {
	return []panel{
		{title: "detection precision", scalar: true, value: s.Precision, undefined: s.PrecisionUndefined || math.IsNaN(s.Precision)},
		{title: "detection recall", scalar: true, value: s.Recall, undefined: s.RecallUndefined || math.IsNaN(s.Recall)},
		{title: "intersection over union", samples: s.IoUs},
		{title: "position errors in X", samples: s.DevX, summary: &s.DevXSummary},
		{title: "position errors in Y", samples: s.DevY, summary: &s.DevYSummary},
		{title: "position errors in Z", samples: s.DevZ, summary: &s.DevZSummary},
	}
}

func summaryLabel(s stats.Summary) string {
	if s.N == 0 {
		return "n = 0"
	}
	return fmt.Sprintf("mean = %.4f, sigma = %.4f, n = %d", s.Mean, s.StdDev, s.N)
}

func binLabel(b stats.Bin) string {
	return fmt.Sprintf("%.3g..%.3g", b.Lo, b.Hi)
}
