package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────────────────────
// ApplyFilters
// ─────────────────────────────────────────────────────────────────────────────

func TestApplyFilters_NoPredicatesReturnsView(t *testing.T) {
	f := rentalsFrame(t)
	out, err := ApplyFilters(f, Filters{})
	require.NoError(t, err)
	assert.Same(t, f, out)
}

func TestApplyFilters_TempScenario(t *testing.T) {
	view := NewSliceView([]Record{
		{Measures: map[string]float64{"temp": 10, "total_count": 5}},
		{Measures: map[string]float64{"temp": 20, "total_count": 15}},
		{Measures: map[string]float64{"temp": 30, "total_count": 25}},
	})

	out, err := ApplyFilters(view, Filters{Ranges: map[string]Range{"temp": {Min: 15, Max: 30}}})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, 20.0, out.Measure(0, "temp"))
	assert.Equal(t, 15.0, out.Measure(0, "total_count"))
	assert.Equal(t, 30.0, out.Measure(1, "temp"))
	assert.Equal(t, 25.0, out.Measure(1, "total_count"))

	m, err := Correlate(out, []string{"temp", "total_count"})
	require.NoError(t, err)
	for i := range m.Values {
		for j := range m.Values[i] {
			assert.InDelta(t, 1.0, m.Values[i][j], 1e-9, "cell %d,%d", i, j)
		}
	}
}

func TestApplyFilters_SoundAndIdempotent(t *testing.T) {
	f := ordersFrame(t)
	cases := []struct {
		name    string
		filters Filters
	}{
		{"range", Filters{Ranges: map[string]Range{"total_price": {Min: 60, Max: 200}}}},
		{"dates", Filters{Dates: map[string]DateRange{"order_date": {From: DayOf(day(2021, 1, 20)), To: DayOf(day(2021, 3, 15))}}}},
		{"category", Filters{Dimensions: map[string][]string{"product_type": {"Shoes", "Bags"}}}},
		{"combined", Filters{
			Ranges:     map[string]Range{"quantity_x": {Min: 1, Max: 2}},
			Dimensions: map[string][]string{"product_type": {"Shoes"}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := ApplyFilters(f, tc.filters)
			require.NoError(t, err)
			assert.LessOrEqual(t, out.Len(), f.Len())

			for i := 0; i < out.Len(); i++ {
				for key, r := range tc.filters.Ranges {
					assert.True(t, r.Contains(out.Measure(i, key)))
				}
				for key, r := range tc.filters.Dates {
					assert.True(t, r.Contains(out.Date(i, key)))
				}
				for key, allowed := range tc.filters.Dimensions {
					assert.Contains(t, allowed, out.Dimension(i, key))
				}
			}

			again, err := ApplyFilters(out, tc.filters)
			require.NoError(t, err)
			require.Equal(t, out.Len(), again.Len())
			for i := 0; i < out.Len(); i++ {
				assert.Equal(t, out.Dimension(i, "order_id"), again.Dimension(i, "order_id"))
			}
		})
	}
}

func TestApplyFilters_DateRangeIsInclusiveByDay(t *testing.T) {
	f := ordersFrame(t)
	out, err := ApplyFilters(f, Filters{Dates: map[string]DateRange{
		"order_date": {From: DayOf(day(2021, 3, 2)), To: DayOf(day(2021, 3, 2))},
	}})
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "O2", out.Dimension(0, "order_id"))
}

func TestApplyFilters_EmptyCategorySelection(t *testing.T) {
	f := ordersFrame(t)
	out, err := ApplyFilters(f, Filters{Dimensions: map[string][]string{"product_type": {}}})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())

	buckets, err := ResampleMonthly(out, "order_date", "order_id", "total_price")
	require.NoError(t, err)
	assert.Empty(t, buckets)
}

func TestApplyFilters_NaNNeverInRange(t *testing.T) {
	f := rentalsFrame(t)
	out, err := ApplyFilters(f, Filters{Ranges: map[string]Range{"humidity": {Min: math.Inf(-1), Max: math.Inf(1)}}})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Len())
}

func TestApplyFilters_UnknownColumn(t *testing.T) {
	f := rentalsFrame(t)
	_, err := ApplyFilters(f, Filters{
		Ranges:     map[string]Range{"pressure": {Min: 0, Max: 1}},
		Dimensions: map[string][]string{"temp": {"x"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.ElementsMatch(t, []string{"pressure", "temp"}, se.Missing)
	assert.Contains(t, err.Error(), `column "pressure" not found`)
	assert.Contains(t, err.Error(), `column "temp" is a measure, expected dimension`)
}

// ─────────────────────────────────────────────────────────────────────────────
// Bounds and defaults
// ─────────────────────────────────────────────────────────────────────────────

func TestNumericBounds_IgnoresNaN(t *testing.T) {
	r, ok := NumericBounds(rentalsFrame(t), "humidity")
	require.True(t, ok)
	assert.Equal(t, Range{Min: 0.4, Max: 0.8}, r)

	_, ok = NumericBounds(NewSliceView(nil), "humidity")
	assert.False(t, ok)
}

func TestDateBounds(t *testing.T) {
	r, ok := DateBounds(ordersFrame(t), "order_date")
	require.True(t, ok)
	assert.Equal(t, "2021-01-05", r.From.String())
	assert.Equal(t, "2021-04-30", r.To.String())
}

func TestFillDefaults_KeepsExplicitPredicates(t *testing.T) {
	f := rentalsFrame(t)
	requested := Filters{Ranges: map[string]Range{"temp": {Min: 0.3, Max: 0.6}}}

	out, err := FillDefaults(f, requested, []string{"temp", "humidity", "windspeed"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Range{Min: 0.3, Max: 0.6}, out.Ranges["temp"])
	assert.Equal(t, Range{Min: 0.4, Max: 0.8}, out.Ranges["humidity"])
	assert.Equal(t, Range{Min: 0.1, Max: 0.3}, out.Ranges["windspeed"])
	assert.Len(t, requested.Ranges, 1, "caller's filters must not change")

	filtered, err := ApplyFilters(f, out)
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Len(), "0.35 matches, 0.5 has no humidity")
}

func TestFillDefaults_WrongKind(t *testing.T) {
	_, err := FillDefaults(ordersFrame(t), Filters{}, []string{"order_date"}, nil)
	assert.ErrorIs(t, err, ErrSchema)
}
