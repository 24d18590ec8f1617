package engine

import (
	"fmt"
	"math"
	"time"
)

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// The engine never owns consumer data. It reads through this interface.
//
// Implementations:
//   Frame          — columnar record set produced by the source loader
//   SliceView      — wraps []Record (ad-hoc data, tests)
//   SubView        — filtered subset (indices into parent, zero-copy)
//   DomainView[T]  — reads typed structs via accessor functions (zero-copy)
//
// A view is never mutated by the engine. Filtering and grouping only ever
// produce SubViews over the parent.
// ============================================================================

// RecordView provides indexed access to a dataset.
// The engine calls the accessors in tight loops — keep implementations fast.
type RecordView interface {
	Len() int
	Dimension(index int, key string) string
	Measure(index int, key string) float64 // NaN when missing
	Date(index int, key string) time.Time  // zero time when missing
	DimensionKeys() []string
	MeasureKeys() []string
	DateKeys() []string
}

// Kind classifies a column of a RecordView.
type Kind int

const (
	KindDimension Kind = iota
	KindMeasure
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindDimension:
		return "dimension"
	case KindMeasure:
		return "measure"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// KindOf reports the kind of a column and whether the view has it.
func KindOf(view RecordView, key string) (Kind, bool) {
	for _, k := range view.MeasureKeys() {
		if k == key {
			return KindMeasure, true
		}
	}
	for _, k := range view.DateKeys() {
		if k == key {
			return KindDate, true
		}
	}
	for _, k := range view.DimensionKeys() {
		if k == key {
			return KindDimension, true
		}
	}
	return 0, false
}

// ============================================================================
// FRAME — columnar record set
// ============================================================================

// Column is one typed column of a Frame. Exactly one of the value slices is
// populated, matching Kind.
type Column struct {
	Name    string
	Kind    Kind
	Strings []string
	Numbers []float64
	Times   []time.Time
}

// Len returns the number of values held by the column.
func (c Column) Len() int {
	switch c.Kind {
	case KindMeasure:
		return len(c.Numbers)
	case KindDate:
		return len(c.Times)
	default:
		return len(c.Strings)
	}
}

// DimensionColumn builds a string column.
func DimensionColumn(name string, values []string) Column {
	return Column{Name: name, Kind: KindDimension, Strings: values}
}

// MeasureColumn builds a numeric column.
func MeasureColumn(name string, values []float64) Column {
	return Column{Name: name, Kind: KindMeasure, Numbers: values}
}

// DateColumn builds a date column.
func DateColumn(name string, values []time.Time) Column {
	return Column{Name: name, Kind: KindDate, Times: values}
}

// Frame is an immutable, column-oriented record set.
type Frame struct {
	rows    int
	columns []Column
	index   map[string]int
	dimKeys []string
	mesKeys []string
	datKeys []string
}

// NewFrame assembles a Frame. All columns must have the same length and
// distinct names.
func NewFrame(columns ...Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if _, dup := f.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			f.rows = c.Len()
		} else if c.Len() != f.rows {
			return nil, fmt.Errorf("column %q has %d values, expected %d", c.Name, c.Len(), f.rows)
		}
		f.index[c.Name] = i
		switch c.Kind {
		case KindMeasure:
			f.mesKeys = append(f.mesKeys, c.Name)
		case KindDate:
			f.datKeys = append(f.datKeys, c.Name)
		default:
			f.dimKeys = append(f.dimKeys, c.Name)
		}
	}
	f.columns = columns
	return f, nil
}

// Columns returns the frame's columns in source order.
func (f *Frame) Columns() []Column { return f.columns }

// ColumnNames returns column names in source order.
func (f *Frame) ColumnNames() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

func (f *Frame) column(key string, kind Kind) *Column {
	i, ok := f.index[key]
	if !ok || f.columns[i].Kind != kind {
		return nil
	}
	return &f.columns[i]
}

func (f *Frame) Len() int { return f.rows }

func (f *Frame) Dimension(i int, key string) string {
	c := f.column(key, KindDimension)
	if c == nil || i < 0 || i >= f.rows {
		return ""
	}
	return c.Strings[i]
}

func (f *Frame) Measure(i int, key string) float64 {
	c := f.column(key, KindMeasure)
	if c == nil || i < 0 || i >= f.rows {
		return math.NaN()
	}
	return c.Numbers[i]
}

func (f *Frame) Date(i int, key string) time.Time {
	c := f.column(key, KindDate)
	if c == nil || i < 0 || i >= f.rows {
		return time.Time{}
	}
	return c.Times[i]
}

func (f *Frame) DimensionKeys() []string { return f.dimKeys }
func (f *Frame) MeasureKeys() []string   { return f.mesKeys }
func (f *Frame) DateKeys() []string      { return f.datKeys }

// ============================================================================
// SLICE VIEW — wraps []Record
// ============================================================================

// SliceView wraps a []Record slice as a RecordView.
type SliceView struct {
	records []Record
	dimKeys []string
	mesKeys []string
	datKeys []string
}

// NewSliceView creates a RecordView from a []Record slice.
func NewSliceView(records []Record) RecordView {
	v := &SliceView{records: records}
	v.cacheKeys()
	return v
}

func (v *SliceView) cacheKeys() {
	if len(v.records) == 0 {
		return
	}
	seen := make(map[string]bool)
	for _, r := range v.records {
		for k := range r.Dimensions {
			if !seen[k] {
				seen[k] = true
				v.dimKeys = append(v.dimKeys, k)
			}
		}
		for k := range r.Measures {
			if !seen[k] {
				seen[k] = true
				v.mesKeys = append(v.mesKeys, k)
			}
		}
		for k := range r.Dates {
			if !seen[k] {
				seen[k] = true
				v.datKeys = append(v.datKeys, k)
			}
		}
	}
}

func (v *SliceView) Len() int { return len(v.records) }

func (v *SliceView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.records) {
		return ""
	}
	return v.records[i].Dimensions[key]
}

func (v *SliceView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.records) {
		return math.NaN()
	}
	val, ok := v.records[i].Measures[key]
	if !ok {
		return math.NaN()
	}
	return val
}

func (v *SliceView) Date(i int, key string) time.Time {
	if i < 0 || i >= len(v.records) {
		return time.Time{}
	}
	return v.records[i].Dates[key]
}

func (v *SliceView) DimensionKeys() []string { return v.dimKeys }
func (v *SliceView) MeasureKeys() []string   { return v.mesKeys }
func (v *SliceView) DateKeys() []string      { return v.datKeys }

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent — no data copy.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.indices) {
		return math.NaN()
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) Date(i int, key string) time.Time {
	if i < 0 || i >= len(v.indices) {
		return time.Time{}
	}
	return v.parent.Date(v.indices[i], key)
}

func (v *SubView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *SubView) MeasureKeys() []string   { return v.parent.MeasureKeys() }
func (v *SubView) DateKeys() []string      { return v.parent.DateKeys() }

// ============================================================================
// DOMAIN ADAPTER — Zero-copy typed struct access
// ============================================================================
//
// Usage:
//
//	adapter := engine.NewDomainAdapter[Rental]().
//	    Measure("temp", func(r Rental) float64 { return r.Temp }).
//	    Measure("total_count", func(r Rental) float64 { return r.Count })
//
//	view := adapter.Bind(rentals)
//	filtered, _ := engine.ApplyFilters(view, filters)
//
// ============================================================================

// DomainAdapter builds a RecordView from typed structs.
// Declare once, bind many times.
type DomainAdapter[T any] struct {
	dimOrder []string
	mesOrder []string
	datOrder []string
	dims     map[string]func(T) string
	meas     map[string]func(T) float64
	dates    map[string]func(T) time.Time
}

// NewDomainAdapter creates a new adapter for type T.
func NewDomainAdapter[T any]() *DomainAdapter[T] {
	return &DomainAdapter[T]{
		dims:  make(map[string]func(T) string),
		meas:  make(map[string]func(T) float64),
		dates: make(map[string]func(T) time.Time),
	}
}

// Dimension registers a dimension accessor.
func (a *DomainAdapter[T]) Dimension(key string, fn func(T) string) *DomainAdapter[T] {
	if _, exists := a.dims[key]; !exists {
		a.dimOrder = append(a.dimOrder, key)
	}
	a.dims[key] = fn
	return a
}

// Measure registers a measure accessor.
func (a *DomainAdapter[T]) Measure(key string, fn func(T) float64) *DomainAdapter[T] {
	if _, exists := a.meas[key]; !exists {
		a.mesOrder = append(a.mesOrder, key)
	}
	a.meas[key] = fn
	return a
}

// Date registers a date accessor.
func (a *DomainAdapter[T]) Date(key string, fn func(T) time.Time) *DomainAdapter[T] {
	if _, exists := a.dates[key]; !exists {
		a.datOrder = append(a.datOrder, key)
	}
	a.dates[key] = fn
	return a
}

// Bind creates a RecordView from a data slice. Zero-copy — holds reference.
func (a *DomainAdapter[T]) Bind(data []T) RecordView {
	return &DomainView[T]{adapter: a, data: data}
}

// DomainView reads typed struct fields via registered accessor functions.
type DomainView[T any] struct {
	adapter *DomainAdapter[T]
	data    []T
}

func (v *DomainView[T]) Len() int { return len(v.data) }

func (v *DomainView[T]) Dimension(i int, key string) string {
	fn, ok := v.adapter.dims[key]
	if !ok || i < 0 || i >= len(v.data) {
		return ""
	}
	return fn(v.data[i])
}

func (v *DomainView[T]) Measure(i int, key string) float64 {
	fn, ok := v.adapter.meas[key]
	if !ok || i < 0 || i >= len(v.data) {
		return math.NaN()
	}
	return fn(v.data[i])
}

func (v *DomainView[T]) Date(i int, key string) time.Time {
	fn, ok := v.adapter.dates[key]
	if !ok || i < 0 || i >= len(v.data) {
		return time.Time{}
	}
	return fn(v.data[i])
}

func (v *DomainView[T]) DimensionKeys() []string { return v.adapter.dimOrder }
func (v *DomainView[T]) MeasureKeys() []string   { return v.adapter.mesOrder }
func (v *DomainView[T]) DateKeys() []string      { return v.adapter.datOrder }
