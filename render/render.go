// Package render draws an engine.ChartConfig as a PNG or SVG image with
// gonum/plot.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/spektr-org/lens/engine"
)

// Image formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

// Default image size.
const (
	DefaultWidth  = 20 * vg.Centimeter
	DefaultHeight = 12 * vg.Centimeter
)

// ErrUnsupportedFormat is returned for formats other than png and svg.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	if format == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Render draws cfg and writes it to w. A zero width or height takes the
// default.
func Render(w io.Writer, cfg *engine.ChartConfig, format string, width, height vg.Length) error {
	format = strings.ToLower(format)
	if format != FormatPNG && format != FormatSVG {
		return fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	p, err := Plot(cfg)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// Plot builds the gonum plot for cfg without encoding it.
func Plot(cfg *engine.ChartConfig) (*plot.Plot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil chart config")
	}

	p := plot.New()
	p.Title.Text = cfg.Title
	p.X.Label.Text = cfg.XAxis
	p.Y.Label.Text = cfg.YAxis
	if cfg.ShowGrid {
		p.Add(plotter.NewGrid())
	}

	var err error
	switch cfg.ChartType {
	case engine.ChartLine:
		err = addLines(p, cfg)
	case engine.ChartScatter:
		err = addScatter(p, cfg)
	case engine.ChartHistogram:
		err = addHistogram(p, cfg)
	case engine.ChartBox:
		err = addBoxes(p, cfg)
	case engine.ChartBar:
		err = addBars(p, cfg)
	case engine.ChartHeatmap:
		err = addHeatmap(p, cfg)
	default:
		err = fmt.Errorf("unsupported chart type %q", cfg.ChartType)
	}
	if err != nil {
		return nil, err
	}
	if !cfg.ShowLegend {
		p.Legend = plot.NewLegend()
	}
	p.Legend.Top = true
	return p, nil
}

// ── line / scatter ──────────────────────────────────────────────────────────

func xys(points []engine.ChartPoint) plotter.XYs {
	out := make(plotter.XYs, len(points))
	for i, pt := range points {
		out[i] = plotter.XY{X: pt.X, Y: pt.Value}
	}
	return out
}

func addLines(p *plot.Plot, cfg *engine.ChartConfig) error {
	for i, s := range cfg.Series {
		if len(s.Data) == 0 {
			continue
		}
		l, err := plotter.NewLine(xys(s.Data))
		if err != nil {
			return fmt.Errorf("series %s: %w", s.Name, err)
		}
		l.Color = seriesColor(cfg, s, i)
		l.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(s.Name, l)
	}
	return nil
}

func addScatter(p *plot.Plot, cfg *engine.ChartConfig) error {
	for i, s := range cfg.Series {
		if len(s.Data) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(xys(s.Data))
		if err != nil {
			return fmt.Errorf("series %s: %w", s.Name, err)
		}
		sc.Color = seriesColor(cfg, s, i)
		sc.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(s.Name, sc)
	}
	return nil
}

// ── histogram / bar ─────────────────────────────────────────────────────────

func addHistogram(p *plot.Plot, cfg *engine.ChartConfig) error {
	if len(cfg.Bins) == 0 {
		return nil
	}
	values := make(plotter.Values, len(cfg.Bins))
	labels := make([]string, len(cfg.Bins))
	for i, b := range cfg.Bins {
		values[i] = float64(b.Count)
		labels[i] = strconv.FormatFloat(b.Start, 'g', 3, 64)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return err
	}
	bars.Color = parseHex(firstColor(cfg))
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)
	return nil
}

func addBars(p *plot.Plot, cfg *engine.ChartConfig) error {
	var labels []string
	index := make(map[string]int)
	for _, s := range cfg.Series {
		for _, pt := range s.Data {
			if _, ok := index[pt.Label]; !ok {
				index[pt.Label] = len(labels)
				labels = append(labels, pt.Label)
			}
		}
	}
	if len(labels) == 0 {
		return nil
	}

	n := len(cfg.Series)
	width := vg.Points(24 / float64(max(n, 1)))
	for i, s := range cfg.Series {
		values := make(plotter.Values, len(labels))
		for _, pt := range s.Data {
			values[index[pt.Label]] = pt.Value
		}
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return fmt.Errorf("series %s: %w", s.Name, err)
		}
		bars.Color = seriesColor(cfg, s, i)
		bars.LineStyle.Width = 0
		bars.Offset = vg.Length(float64(i)-float64(n-1)/2) * width
		p.Add(bars)
		p.Legend.Add(s.Name, bars)
	}
	p.NominalX(labels...)
	return nil
}

// ── box ─────────────────────────────────────────────────────────────────────

func addBoxes(p *plot.Plot, cfg *engine.ChartConfig) error {
	labels := make([]string, 0, len(cfg.Boxes))
	for i, b := range cfg.Boxes {
		labels = append(labels, b.Label)
		if len(b.Values) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(20), float64(i), plotter.Values(b.Values))
		if err != nil {
			return fmt.Errorf("box %s: %w", b.Label, err)
		}
		box.FillColor = parseHex(firstColor(cfg))
		p.Add(box)
	}
	if len(labels) > 0 {
		p.NominalX(labels...)
	}
	return nil
}

// ── heatmap ─────────────────────────────────────────────────────────────────

// matrixGrid adapts a correlation matrix to plotter.GridXYZ. Undefined
// coefficients are drawn as 0.
type matrixGrid struct{ m *engine.Matrix }

func (g matrixGrid) Dims() (c, r int) { return len(g.m.Columns), len(g.m.Columns) }

func (g matrixGrid) Z(c, r int) float64 {
	v := g.m.Values[r][c]
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func (g matrixGrid) X(c int) float64 { return float64(c) }

func (g matrixGrid) Y(r int) float64 { return float64(r) }

func addHeatmap(p *plot.Plot, cfg *engine.ChartConfig) error {
	if cfg.Matrix == nil || len(cfg.Matrix.Columns) == 0 {
		return fmt.Errorf("heatmap needs a correlation matrix")
	}
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	hm := plotter.NewHeatMap(matrixGrid{cfg.Matrix}, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1
	p.Add(hm)
	p.NominalX(cfg.Matrix.Columns...)
	p.NominalY(cfg.Matrix.Columns...)
	return nil
}

// ── colors ──────────────────────────────────────────────────────────────────

func seriesColor(cfg *engine.ChartConfig, s engine.ChartSeries, i int) color.Color {
	if s.Color != "" {
		return parseHex(s.Color)
	}
	if len(cfg.Colors) > 0 {
		return parseHex(cfg.Colors[i%len(cfg.Colors)])
	}
	return color.Black
}

func firstColor(cfg *engine.ChartConfig) string {
	if len(cfg.Colors) > 0 {
		return cfg.Colors[0]
	}
	return "#4F46E5"
}

// parseHex reads "#RRGGBB"; anything else is black.
func parseHex(s string) color.Color {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.Black
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
