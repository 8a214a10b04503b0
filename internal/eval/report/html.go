package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/detection.report/internal/eval/stats"
)

// AssetsHost is where the rendered page loads echarts from.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// WriteHTML renders the report as a go-echarts page: one bar chart for the
// precision and recall values and one histogram per sample sequence.
func WriteHTML(w io.Writer, s *stats.DatasetStatistics, bins int) error {
	if s == nil {
		return fmt.Errorf("write html: nil statistics")
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.PageTitle = "Detection Evaluation"

	var names []string
	var values []opts.BarData
	for _, pn := range panels(s) {
		if !pn.scalar {
			continue
		}
		names = append(names, pn.title)
		if pn.undefined {
			values = append(values, opts.BarData{Name: "undefined"})
			continue
		}
		values = append(values, opts.BarData{Value: pn.value})
	}

	metrics := charts.NewBar()
	metrics.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "360px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Detection Metrics",
			Subtitle: fmt.Sprintf("frames=%d tp=%d fp=%d fn=%d", s.Frames, s.Totals.TruePositives, s.Totals.FalsePositives, s.Totals.FalseNegatives),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1}),
	)
	metrics.SetXAxis(names).
		AddSeries("metrics", values,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	page.AddCharts(metrics)

	for _, pn := range panels(s) {
		if pn.scalar {
			continue
		}
		page.AddCharts(histogramChart(pn, bins))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func histogramChart(pn panel, bins int) *charts.Bar {
	hb := stats.Histogram(pn.samples, bins)
	x := make([]string, len(hb))
	y := make([]opts.BarData, len(hb))
	for i, b := range hb {
		x[i] = binLabel(b)
		y[i] = opts.BarData{Value: b.Count}
	}

	subtitle := fmt.Sprintf("n = %d", len(pn.samples))
	if pn.summary != nil {
		subtitle = summaryLabel(*pn.summary)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "360px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: pn.title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("count", y)
	return bar
}
