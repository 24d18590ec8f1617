package engine

import (
	"math"
	"sort"
	"time"
)

// ============================================================================
// FILTERS — Predicate Filtering via RecordView
// ============================================================================
// Single-pass filter: checks ALL predicates per record in one loop.
// Returns a SubView (index list into parent) — zero data copy.
// ============================================================================

// ApplyFilters returns a view of records matching every predicate.
// No predicates = no restriction (returns the original view).
// A predicate on a column the view lacks, or on a column of the wrong kind,
// returns a SchemaError.
func ApplyFilters(view RecordView, filters Filters) (RecordView, error) {
	if filters.IsEmpty() {
		return view, nil
	}

	if err := checkFilterColumns(view, filters); err != nil {
		return nil, err
	}

	// An empty selection on any dimension can never match.
	sets := make(map[string]map[string]bool, len(filters.Dimensions))
	for dim, allowed := range filters.Dimensions {
		if len(allowed) == 0 {
			return newSubView(view, []int{}), nil
		}
		sets[dim] = toSet(allowed)
	}

	ranges := sortedRangeKeys(filters.Ranges)
	dates := sortedDateKeys(filters.Dates)

	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if matches(view, i, filters, ranges, dates, sets) {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices), nil
}

func matches(view RecordView, i int, f Filters, ranges, dates []string, sets map[string]map[string]bool) bool {
	for _, key := range ranges {
		if !f.Ranges[key].Contains(view.Measure(i, key)) {
			return false
		}
	}
	for _, key := range dates {
		if !f.Dates[key].Contains(view.Date(i, key)) {
			return false
		}
	}
	for dim, set := range sets {
		if !set[view.Dimension(i, dim)] {
			return false
		}
	}
	return true
}

func checkFilterColumns(view RecordView, f Filters) error {
	var problems []error
	if err := requireColumns(view, KindMeasure, sortedRangeKeys(f.Ranges)...); err != nil {
		problems = append(problems, err)
	}
	if err := requireColumns(view, KindDate, sortedDateKeys(f.Dates)...); err != nil {
		problems = append(problems, err)
	}
	if err := requireColumns(view, KindDimension, sortedDimensionKeys(f.Dimensions)...); err != nil {
		problems = append(problems, err)
	}
	return mergeSchemaErrors(problems)
}

// ============================================================================
// BOUNDS & DEFAULTS
// ============================================================================

// NumericBounds returns the observed min and max of a measure, ignoring NaN.
// ok is false when the view holds no observation.
func NumericBounds(view RecordView, key string) (Range, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	found := false
	for i := 0; i < view.Len(); i++ {
		v := view.Measure(i, key)
		if math.IsNaN(v) {
			continue
		}
		found = true
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if !found {
		return Range{}, false
	}
	return Range{Min: lo, Max: hi}, true
}

// DateBounds returns the first and last calendar day of a date column.
func DateBounds(view RecordView, key string) (DateRange, bool) {
	var lo, hi time.Time
	for i := 0; i < view.Len(); i++ {
		t := view.Date(i, key)
		if t.IsZero() {
			continue
		}
		if lo.IsZero() || t.Before(lo) {
			lo = t
		}
		if hi.IsZero() || t.After(hi) {
			hi = t
		}
	}
	if lo.IsZero() {
		return DateRange{}, false
	}
	return DateRange{From: DayOf(lo), To: DayOf(hi)}, true
}

// FillDefaults returns a copy of filters where every listed column without a
// predicate is bound to its observed extent in view. Columns with no
// observations are left unrestricted.
func FillDefaults(view RecordView, filters Filters, numeric, dates []string) (Filters, error) {
	if err := requireColumns(view, KindMeasure, numeric...); err != nil {
		return Filters{}, err
	}
	if err := requireColumns(view, KindDate, dates...); err != nil {
		return Filters{}, err
	}

	out := filters.Clone()
	for _, key := range numeric {
		if _, set := out.Ranges[key]; set {
			continue
		}
		if r, ok := NumericBounds(view, key); ok {
			if out.Ranges == nil {
				out.Ranges = make(map[string]Range)
			}
			out.Ranges[key] = r
		}
	}
	for _, key := range dates {
		if _, set := out.Dates[key]; set {
			continue
		}
		if r, ok := DateBounds(view, key); ok {
			if out.Dates == nil {
				out.Dates = make(map[string]DateRange)
			}
			out.Dates[key] = r
		}
	}
	return out, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func sortedRangeKeys(m map[string]Range) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedDateKeys(m map[string]DateRange) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mergeSchemaErrors folds several SchemaErrors into one.
func mergeSchemaErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	merged := &SchemaError{}
	var detail []error
	for _, err := range errs {
		if se, ok := err.(*SchemaError); ok {
			merged.Missing = append(merged.Missing, se.Missing...)
			if se.Err != nil {
				detail = append(detail, se.Err)
			}
			continue
		}
		detail = append(detail, err)
	}
	if len(detail) > 0 {
		merged.Err = joinErrors(detail)
	}
	return merged
}
