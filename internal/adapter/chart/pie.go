// Package chart draws the contributing-factor pie chart with gonum/plot.
package chart

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	"github.com/couchcryptid/nyc-collision-etl/internal/observability"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// FactorsFile is the pie chart file name.
const FactorsFile = "factors.png"

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 6 * vg.Inch
)

// Slice is one wedge of a pie chart.
type Slice struct {
	Label string
	Value float64
	Color color.Color
}

// Pie draws proportional wedges clockwise from twelve o'clock in the left part
// of the canvas, leaving the right side for the legend. It implements
// plot.Plotter.
type Pie struct {
	Slices []Slice
}

func (p *Pie) total() float64 {
	var t float64
	for _, s := range p.Slices {
		if s.Value > 0 {
			t += s.Value
		}
	}
	return t
}

// Plot implements plot.Plotter.
func (p *Pie) Plot(c draw.Canvas, _ *plot.Plot) {
	total := p.total()
	if total == 0 {
		return
	}

	w := c.Max.X - c.Min.X
	h := c.Max.Y - c.Min.Y
	radius := vg.Length(math.Min(float64(w)*0.3, float64(h)*0.45))
	center := vg.Point{X: c.Min.X + w*0.32, Y: c.Min.Y + h/2}

	start := math.Pi / 2
	for _, s := range p.Slices {
		if s.Value <= 0 {
			continue
		}
		sweep := -2 * math.Pi * s.Value / total

		var path vg.Path
		path.Move(center)
		path.Arc(center, radius, start, sweep)
		path.Close()

		c.SetColor(s.Color)
		c.Fill(path)
		start += sweep
	}
}

// swatch is a legend thumbnail filled with a slice color.
type swatch struct{ color color.Color }

func (s swatch) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(s.color, pts)
}

// FactorSlices assigns each factor a wedge in the plotutil default palette.
func FactorSlices(factors []domain.FactorCount) []Slice {
	out := make([]Slice, len(factors))
	for i, f := range factors {
		out[i] = Slice{Label: f.Factor, Value: float64(f.Count), Color: plotutil.Color(i)}
	}
	return out
}

// FactorPie builds the pie chart for the top contributing factors. Legend
// entries carry each factor's count and share of the shown total.
func FactorPie(title string, factors []domain.FactorCount) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.HideAxes()
	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = vg.Points(10)

	pie := &Pie{Slices: FactorSlices(factors)}
	total := pie.total()
	for _, s := range pie.Slices {
		p.Legend.Add(legendLabel(s, total), swatch{color: s.Color})
	}
	p.Add(pie)
	return p
}

func legendLabel(s Slice, total float64) string {
	share := 0.0
	if total > 0 {
		share = 100 * s.Value / total
	}
	return fmt.Sprintf("%s (%d, %.1f%%)", s.Label, int(s.Value), share)
}

// WritePNG renders a plot as PNG.
func WritePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return fmt.Errorf("create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// PieSink saves the top-factor pie chart into a directory.
// It implements pipeline.Loader.
type PieSink struct {
	dir     string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPieSink creates a PieSink writing into dir.
func NewPieSink(dir string, metrics *observability.Metrics, logger *slog.Logger) *PieSink {
	return &PieSink{dir: dir, metrics: metrics, logger: logger}
}

func (s *PieSink) Name() string { return "chart" }

// Load saves factors.png.
func (s *PieSink) Load(ctx context.Context, report domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	title := fmt.Sprintf("Top %d contributing factors, %d", len(report.TopFactors), domain.AnalysisYear)
	p := FactorPie(title, report.TopFactors)

	path := filepath.Join(s.dir, FactorsFile)
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	s.metrics.ArtifactsWritten.WithLabelValues("chart").Inc()
	s.logger.Info("chart written", "path", path, "slices", len(report.TopFactors))
	return nil
}
