package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/spektr-org/lens/engine"
)

// ============================================================================
// SCHEMA — Which profile a record set follows, and where its fields live
// ============================================================================
// A Profile lists the logical fields a dashboard needs, each with the column
// names it may appear under and the kind it must have. Detection binds every
// field to one actual column and returns a typed Schema, or a SchemaError
// naming what is missing. Nothing downstream guesses column names again.
// ============================================================================

// Field is a logical column of a profile.
type Field struct {
	Name       string      `json:"name"`
	Kind       engine.Kind `json:"kind"`
	Candidates []string    `json:"candidates"` // tried in order
}

// Profile is a named set of fields.
type Profile struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Rentals is the bicycle-rental profile.
var Rentals = Profile{
	Name: engine.ProfileRentals,
	Fields: []Field{
		{Name: engine.FieldTemp, Kind: engine.KindMeasure, Candidates: []string{"temp"}},
		{Name: engine.FieldHumidity, Kind: engine.KindMeasure, Candidates: []string{"humidity"}},
		{Name: engine.FieldWindspeed, Kind: engine.KindMeasure, Candidates: []string{"windspeed"}},
		{Name: engine.FieldTotalCount, Kind: engine.KindMeasure, Candidates: []string{"total_count"}},
	},
}

// Orders is the e-commerce order profile.
var Orders = Profile{
	Name: engine.ProfileOrders,
	Fields: []Field{
		{Name: engine.FieldCategory, Kind: engine.KindDimension, Candidates: []string{"product_type", "category", "product_category"}},
		{Name: engine.FieldOrderDate, Kind: engine.KindDate, Candidates: []string{"order_date"}},
		{Name: engine.FieldOrderID, Kind: engine.KindDimension, Candidates: []string{"order_id"}},
		{Name: engine.FieldPrice, Kind: engine.KindMeasure, Candidates: []string{"total_price"}},
		{Name: engine.FieldQuantity, Kind: engine.KindMeasure, Candidates: []string{"quantity_x", "quantity"}},
		{Name: engine.FieldProduct, Kind: engine.KindDimension, Candidates: []string{"product_name"}},
		{Name: engine.FieldCustomer, Kind: engine.KindDimension, Candidates: []string{"customer_id"}},
		{Name: engine.FieldGender, Kind: engine.KindDimension, Candidates: []string{"gender"}},
		{Name: engine.FieldAgeGroup, Kind: engine.KindDimension, Candidates: []string{"age_group"}},
		{Name: engine.FieldState, Kind: engine.KindDimension, Candidates: []string{"state"}},
	},
}

// Profiles are tried by Detect in this order.
var Profiles = []Profile{Rentals, Orders}

// Schema is a resolved profile plus the columns of the record set by kind.
type Schema struct {
	engine.Layout
	Dimensions []string `json:"dimensions"`
	Measures   []string `json:"measures"`
	Dates      []string `json:"dates"`
}

// ErrUnknownProfile is returned by Resolve for a profile name not in Profiles.
var ErrUnknownProfile = errors.New("unknown profile")

// Detect returns the first profile every field of which resolves against
// view. When none does, the error is the SchemaError of the profile that
// came closest.
func Detect(view engine.RecordView) (*Schema, error) {
	var best *engine.SchemaError
	for _, p := range Profiles {
		s, err := p.Resolve(view)
		if err == nil {
			return s, nil
		}
		var se *engine.SchemaError
		if !errors.As(err, &se) {
			return nil, err
		}
		if best == nil || len(se.Missing) < len(best.Missing) {
			best = se
		}
	}
	return nil, best
}

// Resolve forces the named profile.
func Resolve(name string, view engine.RecordView) (*Schema, error) {
	for _, p := range Profiles {
		if p.Name == name {
			return p.Resolve(view)
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownProfile, name)
}

// Resolve binds every field of p to a column of view. Column names are
// compared in snake_case, so "Order Date" satisfies order_date.
func (p Profile) Resolve(view engine.RecordView) (*Schema, error) {
	columns := columnKinds(view)

	var (
		missing []string
		merr    *multierror.Error
	)
	layout := engine.Layout{Profile: p.Name, Columns: make(map[string]string, len(p.Fields))}

	for _, f := range p.Fields {
		col, kind, found := lookup(columns, f.Candidates)
		switch {
		case !found:
			missing = append(missing, f.Candidates[0])
			if len(f.Candidates) > 1 {
				merr = multierror.Append(merr, fmt.Errorf("field %s: none of %v found", f.Name, f.Candidates))
			} else {
				merr = multierror.Append(merr, fmt.Errorf("field %s: column %q not found", f.Name, f.Candidates[0]))
			}
		case kind != f.Kind:
			missing = append(missing, col)
			merr = multierror.Append(merr, fmt.Errorf("field %s: column %q is a %s, expected %s", f.Name, col, kind, f.Kind))
		default:
			layout.Columns[f.Name] = col
		}
	}

	if len(missing) > 0 {
		return nil, &engine.SchemaError{Profile: p.Name, Missing: missing, Err: merr.ErrorOrNil()}
	}

	return &Schema{
		Layout:     layout,
		Dimensions: view.DimensionKeys(),
		Measures:   view.MeasureKeys(),
		Dates:      view.DateKeys(),
	}, nil
}

// FilterColumns returns the columns the dashboard offers range pickers for.
func (s *Schema) FilterColumns() (numeric, dates []string) {
	switch s.Profile {
	case engine.ProfileRentals:
		return s.ColumnsOf(engine.FieldTemp, engine.FieldHumidity, engine.FieldWindspeed), nil
	case engine.ProfileOrders:
		return nil, s.ColumnsOf(engine.FieldOrderDate)
	}
	return nil, nil
}

// Fields lists the bound logical fields in sorted order.
func (s *Schema) Fields() []string {
	out := make([]string, 0, len(s.Columns))
	for f := range s.Columns {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

type column struct {
	name string
	kind engine.Kind
}

func columnKinds(view engine.RecordView) map[string]column {
	out := make(map[string]column)
	add := func(keys []string, kind engine.Kind) {
		for _, k := range keys {
			norm := toSnakeCase(k)
			if _, dup := out[norm]; !dup {
				out[norm] = column{name: k, kind: kind}
			}
		}
	}
	add(view.MeasureKeys(), engine.KindMeasure)
	add(view.DateKeys(), engine.KindDate)
	add(view.DimensionKeys(), engine.KindDimension)
	return out
}

func lookup(columns map[string]column, candidates []string) (string, engine.Kind, bool) {
	for _, c := range candidates {
		if col, ok := columns[c]; ok {
			return col.name, col.kind, true
		}
	}
	return "", 0, false
}
