package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/detection.report/internal/eval/stats"
)

const (
	gridRows = 2
	gridCols = 3
)

var barColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}

// WritePNG renders the 2x3 histogram grid to w. bins <= 0 selects
// DefaultBins.
func WritePNG(w io.Writer, s *stats.DatasetStatistics, bins int) error {
	if s == nil {
		return fmt.Errorf("write png: nil statistics")
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	plots := make([][]*plot.Plot, gridRows)
	for i, pn := range panels(s) {
		p, err := panelPlot(pn, bins)
		if err != nil {
			return fmt.Errorf("plot %q: %w", pn.title, err)
		}
		row := i / gridCols
		plots[row] = append(plots[row], p)
	}

	img := vgimg.New(36*vg.Centimeter, 20*vg.Centimeter)
	dc := draw.New(img)
	t := draw.Tiles{
		Rows:      gridRows,
		Cols:      gridCols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, t, dc)
	for j := range plots {
		for i := range plots[j] {
			plots[j][i].Draw(canvases[j][i])
		}
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

func panelPlot(pn panel, bins int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = pn.title

	if pn.scalar {
		if pn.undefined {
			p.X.Label.Text = "undefined"
			return p, nil
		}
		bar, err := plotter.NewBarChart(plotter.Values{pn.value}, vg.Points(30))
		if err != nil {
			return nil, err
		}
		bar.Color = barColor
		p.Add(bar)
		p.X.Label.Text = fmt.Sprintf("%.4f", pn.value)
		p.NominalX("")
		return p, nil
	}

	if pn.summary != nil {
		p.X.Label.Text = summaryLabel(*pn.summary)
	}
	hb := stats.Histogram(pn.samples, bins)
	if len(hb) == 0 {
		return p, nil
	}

	h := &plotter.Histogram{
		Bins:      make([]plotter.HistogramBin, len(hb)),
		Width:     hb[0].Hi - hb[0].Lo,
		LineStyle: plotter.DefaultLineStyle,
		FillColor: barColor,
	}
	for i, b := range hb {
		h.Bins[i] = plotter.HistogramBin{Min: b.Lo, Max: b.Hi, Weight: b.Count}
	}
	p.Add(h)
	p.Y.Label.Text = "count"
	return p, nil
}
