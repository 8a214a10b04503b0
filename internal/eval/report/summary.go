package report

import (
	"fmt"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/banshee-data/detection.report/internal/eval/stats"
)

// Summary formats the dataset statistics as an aligned text table.
func Summary(s *stats.DatasetStatistics) string {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "frames\t%d\n", s.Frames)
	fmt.Fprintf(tw, "detections\t%d\n", s.Totals.TotalDetections)
	fmt.Fprintf(tw, "true positives\t%d\n", s.Totals.TruePositives)
	fmt.Fprintf(tw, "false positives\t%d\n", s.Totals.FalsePositives)
	fmt.Fprintf(tw, "false negatives\t%d\n", s.Totals.FalseNegatives)
	fmt.Fprintf(tw, "precision\t%s\n", metric(s.Precision, s.PrecisionUndefined))
	fmt.Fprintf(tw, "recall\t%s\n", metric(s.Recall, s.RecallUndefined))
	fmt.Fprintf(tw, "\t\n")
	fmt.Fprintf(tw, "sample\tmean\tsigma\tn\n")
	for _, row := range []struct {
		name string
		sum  stats.Summary
	}{
		{"iou", s.IoUSummary},
		{"dev x", s.DevXSummary},
		{"dev y", s.DevYSummary},
		{"dev z", s.DevZSummary},
	} {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", row.name, metric(row.sum.Mean, false), metric(row.sum.StdDev, false), row.sum.N)
	}
	_ = tw.Flush()
	return sb.String()
}

func metric(v float64, undefined bool) string {
	if undefined || math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}
