package render

import (
	"bytes"
	"fmt"
	"html/template"
	"image/color"
	"strings"
	"time"

	"StockTracker/internal/domain/models"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	colorClose    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorEstimate = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	colorBound    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

const (
	chartWidth  = 9 * vg.Inch
	chartHeight = 4 * vg.Inch
)

type chartLine struct {
	label  string
	xys    plotter.XYs
	color  color.Color
	dashed bool
}

func barCloses(bars []models.Bar) plotter.XYs {
	xys := make(plotter.XYs, len(bars))
	for i, b := range bars {
		xys[i].X = float64(b.Time.Unix())
		xys[i].Y = b.Close
	}
	return xys
}

func forecastLines(points []models.ForecastPoint) []chartLine {
	est := make(plotter.XYs, len(points))
	lower := make(plotter.XYs, len(points))
	upper := make(plotter.XYs, len(points))
	for i, p := range points {
		x := float64(p.Date.Unix())
		est[i] = plotter.XY{X: x, Y: p.Estimate}
		lower[i] = plotter.XY{X: x, Y: p.Lower}
		upper[i] = plotter.XY{X: x, Y: p.Upper}
	}
	return []chartLine{
		{label: "Forecast", xys: est, color: colorEstimate},
		{label: "Lower Bound", xys: lower, color: colorBound, dashed: true},
		{label: "Upper Bound", xys: upper, color: colorBound, dashed: true},
	}
}

// svgChart draws lines over a time axis and returns the inline <svg> element.
func svgChart(title, timeFormat string, lines ...chartLine) (template.HTML, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Price"
	p.X.Tick.Marker = plot.TimeTicks{Format: timeFormat, Time: func(t float64) time.Time { return time.Unix(int64(t), 0).UTC() }}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for _, ln := range lines {
		if len(ln.xys) == 0 {
			continue
		}
		l, err := plotter.NewLine(ln.xys)
		if err != nil {
			return "", fmt.Errorf("%s: %w", ln.label, err)
		}
		l.Color = ln.color
		l.Width = vg.Points(1.2)
		if ln.dashed {
			l.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		}
		p.Add(l)
		p.Legend.Add(ln.label, l)
	}

	wt, err := p.WriterTo(chartWidth, chartHeight, "svg")
	if err != nil {
		return "", fmt.Errorf("svg canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("write svg: %w", err)
	}

	// drop the XML prolog so the element can be inlined
	out := buf.String()
	if i := strings.Index(out, "<svg"); i > 0 {
		out = out[i:]
	}
	return template.HTML(out), nil
}
