package engine

import (
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ============================================================================
// LENS ENGINE TYPES
// ============================================================================
// Record set access goes through RecordView (view.go). Everything here is a
// plain value: predicates sent in by the UI, and the aggregate views sent back.
// ============================================================================

// ============================================================================
// RECORD — Generic data row
// ============================================================================

// Record is a single data row with string dimensions, numeric measures and
// dates. Used with SliceView for ad-hoc data.
type Record struct {
	Dimensions map[string]string    `json:"dimensions,omitempty"`
	Measures   map[string]float64   `json:"measures,omitempty"`
	Dates      map[string]time.Time `json:"dates,omitempty"`
}

// ============================================================================
// FILTERS — Predicates sent by the UI
// ============================================================================

// Filters define which records to include. All predicates AND-combine.
//
//	Ranges:     closed numeric interval per measure
//	Dates:      closed calendar-day interval per date column
//	Dimensions: set membership per dimension; a present key with an empty
//	            list selects nothing
type Filters struct {
	Ranges     map[string]Range     `json:"ranges,omitempty"`
	Dates      map[string]DateRange `json:"dates,omitempty"`
	Dimensions map[string][]string  `json:"dimensions,omitempty"`
}

// Range is a closed numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports Min ≤ v ≤ Max. NaN is never contained.
func (r Range) Contains(v float64) bool {
	return !math.IsNaN(v) && v >= r.Min && v <= r.Max
}

// DateRange is a closed interval of calendar days.
type DateRange struct {
	From Day `json:"from"`
	To   Day `json:"to"`
}

// Contains reports whether t falls on or between From and To (whole days).
func (r DateRange) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	start := r.From.Time()
	end := r.To.Time().AddDate(0, 0, 1)
	return !t.Before(start) && t.Before(end)
}

// IsEmpty returns true if no predicate is set.
func (f Filters) IsEmpty() bool {
	return len(f.Ranges) == 0 && len(f.Dates) == 0 && f.Dimensions == nil
}

// Clone returns a deep copy so callers can extend filters without touching
// the caller's maps.
func (f Filters) Clone() Filters {
	out := Filters{}
	if f.Ranges != nil {
		out.Ranges = make(map[string]Range, len(f.Ranges))
		for k, v := range f.Ranges {
			out.Ranges[k] = v
		}
	}
	if f.Dates != nil {
		out.Dates = make(map[string]DateRange, len(f.Dates))
		for k, v := range f.Dates {
			out.Dates[k] = v
		}
	}
	if f.Dimensions != nil {
		out.Dimensions = make(map[string][]string, len(f.Dimensions))
		for k, v := range f.Dimensions {
			out.Dimensions[k] = append([]string{}, v...)
		}
	}
	return out
}

// Day is a calendar date (UTC midnight) encoded as "2006-01-02".
type Day struct {
	t time.Time
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDay accepts "2006-01-02" or an RFC 3339 timestamp.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return DayOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Day{}, err
	}
	return DayOf(t), nil
}

func (d Day) Time() time.Time  { return d.t }
func (d Day) IsZero() bool     { return d.t.IsZero() }
func (d Day) String() string   { return d.t.Format("2006-01-02") }
func (d Day) Equal(o Day) bool { return d.t.Equal(o.t) }

func (d Day) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Day) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ============================================================================
// REQUEST — One UI interaction
// ============================================================================

// Request carries everything the UI sends for one re-run of the pipeline.
type Request struct {
	Filters     Filters       `json:"filters"`
	Correlation []string      `json:"correlation,omitempty"`
	Chart       *ChartRequest `json:"chart,omitempty" validate:"omitempty"`
	RowLimit    int           `json:"rowLimit,omitempty" validate:"gte=0"`
}

// ChartRequest selects a chart type and its axis columns.
type ChartRequest struct {
	Type        string   `json:"type" validate:"required,oneof=line scatter histogram box bar heatmap"`
	X           string   `json:"x,omitempty"`
	Y           string   `json:"y,omitempty"`
	Variable    string   `json:"variable,omitempty"`
	Columns     []string `json:"columns,omitempty"`
	Bins        int      `json:"bins,omitempty" validate:"gte=0,lte=500"`
	Measure     string   `json:"measure,omitempty"`
	Aggregation string   `json:"aggregation,omitempty" validate:"omitempty,oneof=sum count avg min max distinct"`
	Title       string   `json:"title,omitempty"`
}

// ============================================================================
// RESULT — Render-ready output of one run
// ============================================================================

// Result is the engine's render-ready output for one interaction.
type Result struct {
	Success     bool               `json:"success"`
	Profile     string             `json:"profile"`
	Summary     string             `json:"summary"`
	Total       int                `json:"total"`
	Matched     int                `json:"matched"`
	Filters     Filters            `json:"filters"`
	Bounds      Bounds             `json:"bounds"`
	Stats       []Stats            `json:"stats,omitempty"`
	Correlation *Matrix            `json:"correlation,omitempty"`
	Monthly     []MonthBucket      `json:"monthly,omitempty"`
	Growth      *Growth            `json:"growth,omitempty"`
	Ranking     *Ranking           `json:"ranking,omitempty"`
	Groups      map[string][]Group `json:"groups,omitempty"`
	RFM         *RFMRankings       `json:"rfm,omitempty"`
	Chart       *ChartConfig       `json:"chart,omitempty"`
	Rows        *TableData         `json:"rows,omitempty"`

	// View is the filtered view the aggregates were computed from.
	View RecordView `json:"-"`
}

// Bounds are the observed extents of the filterable columns of the full
// record set, used as the defaults for the UI's sliders and date pickers.
type Bounds struct {
	Numeric map[string]Range     `json:"numeric,omitempty"`
	Dates   map[string]DateRange `json:"dates,omitempty"`
}

// ============================================================================
// GROUP — Intermediate computation result
// ============================================================================

// Group represents a grouped/aggregated result.
// Builders convert these into ChartConfig or TableData.
type Group struct {
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	Value     float64    `json:"value"`
	Count     int        `json:"count"`
	SubGroups []Group    `json:"subGroups,omitempty"`
	View      RecordView `json:"-"` // Sub-view for records in this group (zero-copy)
}

// Ranking holds the top-K and bottom-K groups by an aggregated value.
type Ranking struct {
	GroupBy string  `json:"groupBy"`
	Measure string  `json:"measure"`
	Top     []Group `json:"top"`
	Bottom  []Group `json:"bottom"`
}

// ============================================================================
// STATISTICS TYPES
// ============================================================================

// Stats is the descriptive summary of one measure.
type Stats struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Column string   `json:"column"`
		Count  int      `json:"count"`
		Mean   *float64 `json:"mean"`
		Std    *float64 `json:"std"`
		Min    *float64 `json:"min"`
		Q1     *float64 `json:"q1"`
		Median *float64 `json:"median"`
		Q3     *float64 `json:"q3"`
		Max    *float64 `json:"max"`
	}{
		s.Column, s.Count,
		nullable(s.Mean), nullable(s.Std), nullable(s.Min), nullable(s.Q1),
		nullable(s.Median), nullable(s.Q3), nullable(s.Max),
	})
}

// Matrix is a square correlation matrix. Undefined cells are NaN and encode
// as JSON null.
type Matrix struct {
	Columns []string
	Values  [][]float64
}

// At returns the value for the named pair, or NaN when a name is unknown.
func (m *Matrix) At(a, b string) float64 {
	i, j := -1, -1
	for k, c := range m.Columns {
		if c == a {
			i = k
		}
		if c == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return math.NaN()
	}
	return m.Values[i][j]
}

func (m Matrix) MarshalJSON() ([]byte, error) {
	values := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]*float64, len(row))
		for j, v := range row {
			values[i][j] = nullable(v)
		}
	}
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{m.Columns, values})
}

// MonthBucket is one calendar month of a resampled view.
type MonthBucket struct {
	Month   time.Time `json:"month"`
	Label   string    `json:"label"`
	Orders  int       `json:"orders"`
	Revenue float64   `json:"revenue"`
	Rows    int       `json:"rows"`
}

// Growth compares the first and last populated month of a resample.
type Growth struct {
	EarliestPeriod string   `json:"earliestPeriod"`
	LatestPeriod   string   `json:"latestPeriod"`
	EarliestValue  float64  `json:"earliestValue"`
	LatestValue    float64  `json:"latestValue"`
	ChangeAmount   float64  `json:"changeAmount"`
	ChangePercent  *float64 `json:"changePercent"` // nil when the earliest value is zero
	Direction      string   `json:"direction"`     // increased, decreased, unchanged
}

// CustomerRFM holds recency/frequency/monetary metrics for one customer.
type CustomerRFM struct {
	Customer  string     `json:"customer"`
	LastOrder *time.Time `json:"lastOrder"` // nil without a dated order
	Recency   *int       `json:"recency"`   // nil without a dated order
	Frequency int        `json:"frequency"`
	Monetary  float64    `json:"monetary"`
}

// RFMRankings are the three independent top-K customer lists.
type RFMRankings struct {
	Customers int           `json:"customers"`
	Recency   []CustomerRFM `json:"recency"`
	Frequency []CustomerRFM `json:"frequency"`
	Monetary  []CustomerRFM `json:"monetary"`
}

// Bin is one equal-width histogram bucket.
type Bin struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Count int     `json:"count"`
}

// BoxSummary is the five-number summary of one group.
type BoxSummary struct {
	Label  string    `json:"label"`
	Count  int       `json:"count"`
	Min    float64   `json:"min"`
	Q1     float64   `json:"q1"`
	Median float64   `json:"median"`
	Q3     float64   `json:"q3"`
	Max    float64   `json:"max"`
	Values []float64 `json:"-"`
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series,omitempty"`
	Bins       []Bin         `json:"bins,omitempty"`
	Boxes      []BoxSummary  `json:"boxes,omitempty"`
	Matrix     *Matrix       `json:"matrix,omitempty"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point. X is set for numeric x axes
// (line, scatter); Label for categorical ones.
type ChartPoint struct {
	Label string  `json:"label,omitempty"`
	X     float64 `json:"x"`
	Value float64 `json:"value"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string        `json:"title"`
	Columns []TableColumn `json:"columns"`
	Rows    [][]string    `json:"rows"`
	Summary *Summary      `json:"summary,omitempty"`
}

// TableColumn defines a table column.
type TableColumn struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "date"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals or aggregations for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
