package render

import (
	"bytes"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/lens/engine"
)

func rentals(t *testing.T) engine.RecordView {
	t.Helper()
	day := func(d int) time.Time { return time.Date(2011, 1, d, 0, 0, 0, 0, time.UTC) }
	f, err := engine.NewFrame(
		engine.DateColumn("dteday", []time.Time{day(1), day(2), day(3), day(4), day(5)}),
		engine.DimensionColumn("season", []string{"winter", "winter", "spring", "spring", "spring"}),
		engine.MeasureColumn("temp", []float64{0.2, 0.3, 0.5, 0.6, math.NaN()}),
		engine.MeasureColumn("humidity", []float64{0.8, 0.7, 0.5, 0.4, 0.3}),
		engine.MeasureColumn("total_count", []float64{900, 1000, 1500, 1700, 1800}),
	)
	require.NoError(t, err)
	return f
}

func TestRender_AllChartTypes(t *testing.T) {
	view := rentals(t)
	requests := []engine.ChartRequest{
		{Type: engine.ChartLine, Columns: []string{"temp", "humidity"}},
		{Type: engine.ChartScatter, X: "temp", Y: "total_count"},
		{Type: engine.ChartHistogram, Variable: "total_count", Bins: 4},
		{Type: engine.ChartBox, X: "season", Y: "total_count"},
		{Type: engine.ChartBar, X: "season", Measure: "total_count", Aggregation: engine.AggSum},
		{Type: engine.ChartHeatmap, Columns: []string{"temp", "humidity", "total_count"}},
	}

	for _, req := range requests {
		t.Run(req.Type, func(t *testing.T) {
			cfg, err := engine.BuildChart(view, req)
			require.NoError(t, err)

			var png bytes.Buffer
			require.NoError(t, Render(&png, cfg, FormatPNG, 0, 0))
			assert.True(t, bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")))

			var svg bytes.Buffer
			require.NoError(t, Render(&svg, cfg, "SVG", 0, 0))
			assert.Contains(t, svg.String(), "<svg")
		})
	}
}

func TestRender_UnsupportedFormat(t *testing.T) {
	cfg := &engine.ChartConfig{ChartType: engine.ChartLine}
	err := Render(&bytes.Buffer{}, cfg, "gif", 0, 0)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPlot_Errors(t *testing.T) {
	_, err := Plot(nil)
	assert.Error(t, err)

	_, err = Plot(&engine.ChartConfig{ChartType: "pie"})
	assert.Error(t, err)

	_, err = Plot(&engine.ChartConfig{ChartType: engine.ChartHeatmap})
	assert.Error(t, err)
}

func TestMatrixGrid_NaNIsNeutral(t *testing.T) {
	g := matrixGrid{&engine.Matrix{
		Columns: []string{"a", "b"},
		Values:  [][]float64{{1, math.NaN()}, {math.NaN(), 1}},
	}}
	c, r := g.Dims()
	assert.Equal(t, 2, c)
	assert.Equal(t, 2, r)
	assert.Equal(t, 0.0, g.Z(1, 0))
	assert.Equal(t, 1.0, g.Z(1, 1))
}

func TestParseHex(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x4F, G: 0x46, B: 0xE5, A: 0xff}, parseHex("#4F46E5"))
	assert.Equal(t, color.Black, parseHex("blue"))
	assert.Equal(t, "image/svg+xml", ContentType(FormatSVG))
	assert.Equal(t, "image/png", ContentType(FormatPNG))
}
