package engine

import (
	"fmt"
	"math"
)

// ============================================================================
// CHART BUILDER — Produces ChartConfig from a ChartRequest and a view
// ============================================================================
// The builder only shapes data. Drawing is left to the consumer (the render
// package, or the web UI reading the JSON).
// ============================================================================

// Chart types.
const (
	ChartLine      = "line"
	ChartScatter   = "scatter"
	ChartHistogram = "histogram"
	ChartBox       = "box"
	ChartBar       = "bar"
	ChartHeatmap   = "heatmap"
)

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// BuildChart produces a ChartConfig for req over view.
//
//	line      — one series per column of Columns (or Y), x = X or row index
//	scatter   — one series of (X, Y)
//	histogram — Bins over Variable
//	box       — Y summarized per value of X
//	bar       — Aggregation of Measure grouped by X, split by Y when set
//	heatmap   — correlation matrix of Columns
func BuildChart(view RecordView, req ChartRequest) (*ChartConfig, error) {
	cfg := &ChartConfig{
		ChartType:  req.Type,
		Title:      req.Title,
		ShowLegend: true,
		ShowGrid:   req.Type != ChartHeatmap,
	}

	var err error
	switch req.Type {
	case ChartLine:
		err = buildLine(cfg, view, req)
	case ChartScatter:
		err = buildScatter(cfg, view, req)
	case ChartHistogram:
		err = buildHistogram(cfg, view, req)
	case ChartBox:
		err = buildBox(cfg, view, req)
	case ChartBar:
		err = buildBar(cfg, view, req)
	case ChartHeatmap:
		err = buildHeatmap(cfg, view, req)
	default:
		err = fmt.Errorf("unsupported chart type %q", req.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Title == "" {
		cfg.Title = defaultTitle(cfg)
	}
	cfg.Colors = assignColors(max(len(cfg.Series), 1))
	return cfg, nil
}

// ── line ────────────────────────────────────────────────────────────────────

func buildLine(cfg *ChartConfig, view RecordView, req ChartRequest) error {
	columns := req.Columns
	if len(columns) == 0 && req.Y != "" {
		columns = []string{req.Y}
	}
	if len(columns) == 0 {
		return fmt.Errorf("line chart needs at least one column")
	}
	if err := requireColumns(view, KindMeasure, columns...); err != nil {
		return err
	}
	if req.X != "" {
		if err := requireColumns(view, KindMeasure, req.X); err != nil {
			return err
		}
		cfg.XAxis = LabelForDimension(req.X)
	} else {
		cfg.XAxis = "Index"
	}
	if len(columns) == 1 {
		cfg.YAxis = LabelForDimension(columns[0])
		cfg.ShowLegend = false
	}

	for ci, col := range columns {
		points := make([]ChartPoint, 0, view.Len())
		for i := 0; i < view.Len(); i++ {
			y := view.Measure(i, col)
			if math.IsNaN(y) {
				continue
			}
			x := float64(i)
			if req.X != "" {
				if x = view.Measure(i, req.X); math.IsNaN(x) {
					continue
				}
			}
			points = append(points, ChartPoint{X: x, Value: y})
		}
		cfg.Series = append(cfg.Series, ChartSeries{
			Name:  col,
			Data:  points,
			Color: defaultColors[ci%len(defaultColors)],
		})
	}
	return nil
}

// ── scatter ─────────────────────────────────────────────────────────────────

func buildScatter(cfg *ChartConfig, view RecordView, req ChartRequest) error {
	if req.X == "" || req.Y == "" {
		return fmt.Errorf("scatter chart needs x and y")
	}
	if err := requireColumns(view, KindMeasure, req.X, req.Y); err != nil {
		return err
	}
	cfg.XAxis = LabelForDimension(req.X)
	cfg.YAxis = LabelForDimension(req.Y)
	cfg.ShowLegend = false

	points := make([]ChartPoint, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		x, y := view.Measure(i, req.X), view.Measure(i, req.Y)
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		points = append(points, ChartPoint{X: x, Value: y})
	}
	cfg.Series = []ChartSeries{{Name: req.Y, Data: points, Color: defaultColors[0]}}
	return nil
}

// ── histogram ───────────────────────────────────────────────────────────────

func buildHistogram(cfg *ChartConfig, view RecordView, req ChartRequest) error {
	variable := req.Variable
	if variable == "" {
		variable = req.X
	}
	if variable == "" {
		return fmt.Errorf("histogram needs a variable")
	}
	bins, err := Histogram(view, variable, req.Bins)
	if err != nil {
		return err
	}
	cfg.Bins = bins
	cfg.XAxis = LabelForDimension(variable)
	cfg.YAxis = "Count"
	cfg.ShowLegend = false

	points := make([]ChartPoint, 0, len(bins))
	for _, b := range bins {
		points = append(points, ChartPoint{
			Label: binLabel(b),
			X:     (b.Start + b.End) / 2,
			Value: float64(b.Count),
		})
	}
	cfg.Series = []ChartSeries{{Name: variable, Data: points, Color: defaultColors[0]}}
	return nil
}

// ── box ─────────────────────────────────────────────────────────────────────

func buildBox(cfg *ChartConfig, view RecordView, req ChartRequest) error {
	if req.X == "" || req.Y == "" {
		return fmt.Errorf("box chart needs x and y")
	}
	boxes, err := BoxByGroup(view, req.X, req.Y)
	if err != nil {
		return err
	}
	cfg.Boxes = boxes
	cfg.XAxis = LabelForDimension(req.X)
	cfg.YAxis = LabelForDimension(req.Y)
	cfg.ShowLegend = false
	return nil
}

// ── bar ─────────────────────────────────────────────────────────────────────

func buildBar(cfg *ChartConfig, view RecordView, req ChartRequest) error {
	if req.X == "" {
		return fmt.Errorf("bar chart needs x")
	}
	aggregation := req.Aggregation
	if aggregation == "" {
		aggregation = AggSum
	}

	groupBy := []string{req.X}
	if req.Y != "" {
		groupBy = append(groupBy, req.Y)
	}
	if err := requireColumns(view, KindDimension, groupBy...); err != nil {
		return err
	}
	switch aggregation {
	case AggCount:
	case AggDistinct:
		if err := requireColumns(view, KindDimension, req.Measure); err != nil {
			return err
		}
	default:
		if err := requireColumns(view, KindMeasure, req.Measure); err != nil {
			return err
		}
	}

	groups := GroupAndAggregate(view, groupBy, req.Measure, aggregation, SortValueDesc, 0)
	cfg.XAxis = LabelForDimension(req.X)
	cfg.YAxis = LabelForAggregation(aggregation)
	if req.Measure != "" && aggregation != AggCount {
		cfg.YAxis += " " + LabelForDimension(req.Measure)
	}

	if len(groupBy) >= 2 && hasSubGroups(groups) {
		cfg.Series = buildMultiSeries(groups)
	} else {
		cfg.Series = buildSingleSeries(groups, req.Measure)
		cfg.ShowLegend = false
	}
	return nil
}

// BarFromGroups turns precomputed groups into a bar chart.
func BarFromGroups(title, dimension, aggregation string, groups []Group) *ChartConfig {
	cfg := &ChartConfig{
		ChartType: ChartBar,
		Title:     title,
		XAxis:     LabelForDimension(dimension),
		YAxis:     LabelForAggregation(aggregation),
		ShowGrid:  true,
		Series:    buildSingleSeries(groups, title),
	}
	cfg.Colors = assignColors(1)
	return cfg
}

// ── heatmap ─────────────────────────────────────────────────────────────────

func buildHeatmap(cfg *ChartConfig, view RecordView, req ChartRequest) error {
	columns := req.Columns
	if len(columns) == 0 {
		columns = view.MeasureKeys()
	}
	m, err := Correlate(view, columns)
	if err != nil {
		return err
	}
	cfg.Matrix = m
	cfg.ShowLegend = false
	return nil
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func buildSingleSeries(groups []Group, seriesName string) []ChartSeries {
	if seriesName == "" {
		seriesName = "Value"
	}

	points := make([]ChartPoint, 0, len(groups))
	for _, g := range groups {
		points = append(points, ChartPoint{
			Label: g.Label,
			Value: RoundTo2(g.Value),
		})
	}

	return []ChartSeries{{
		Name: seriesName,
		Data: points,
	}}
}

func buildMultiSeries(groups []Group) []ChartSeries {
	var subKeys []string
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, sg := range g.SubGroups {
			if !seen[sg.Key] {
				seen[sg.Key] = true
				subKeys = append(subKeys, sg.Key)
			}
		}
	}

	seriesMap := make(map[string][]ChartPoint, len(subKeys))
	for _, g := range groups {
		sgLookup := make(map[string]float64)
		for _, sg := range g.SubGroups {
			sgLookup[sg.Key] = sg.Value
		}

		for _, key := range subKeys {
			seriesMap[key] = append(seriesMap[key], ChartPoint{
				Label: g.Label,
				Value: RoundTo2(sgLookup[key]),
			})
		}
	}

	series := make([]ChartSeries, 0, len(subKeys))
	for i, key := range subKeys {
		series = append(series, ChartSeries{
			Name:  key,
			Data:  seriesMap[key],
			Color: defaultColors[i%len(defaultColors)],
		})
	}

	return series
}

func hasSubGroups(groups []Group) bool {
	for _, g := range groups {
		if len(g.SubGroups) > 0 {
			return true
		}
	}
	return false
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}

func defaultTitle(cfg *ChartConfig) string {
	switch cfg.ChartType {
	case ChartHeatmap:
		return "Correlation"
	case ChartHistogram:
		return "Distribution of " + cfg.XAxis
	case ChartLine:
		if cfg.YAxis != "" {
			return cfg.YAxis + " by " + cfg.XAxis
		}
		return "Trend"
	default:
		return cfg.YAxis + " by " + cfg.XAxis
	}
}
