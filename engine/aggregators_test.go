package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────────────────────
// GroupAndAggregate
// ─────────────────────────────────────────────────────────────────────────────

func TestGroupAndAggregate(t *testing.T) {
	f := ordersFrame(t)

	cases := []struct {
		name        string
		groupBy     []string
		measure     string
		aggregation string
		sortBy      string
		limit       int
		keys        []string
		values      []float64
	}{
		{"sum by category", []string{"product_type"}, "quantity_x", AggSum, SortValueDesc, 0,
			[]string{"Shoes", "Bags", "Shirts"}, []float64{8, 3, 1}},
		{"distinct customers by gender", []string{"gender"}, "customer_id", AggDistinct, SortValueDesc, 0,
			[]string{"F", "M"}, []float64{2, 1}},
		{"count encounter order", []string{"state"}, "", AggCount, "", 0,
			[]string{"CA", "NY", "TX"}, []float64{3, 1, 1}},
		{"avg with limit", []string{"product_type"}, "total_price", AggAvg, SortValueAsc, 2,
			[]string{"Shirts", "Shoes"}, []float64{50, 120}},
		{"label desc", []string{"state"}, "total_price", AggMax, SortLabelDesc, 0,
			[]string{"TX", "NY", "CA"}, []float64{300, 200, 100}},
		{"no grouping", nil, "total_price", AggSum, "", 0,
			[]string{"all"}, []float64{710}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			groups := GroupAndAggregate(f, tc.groupBy, tc.measure, tc.aggregation, tc.sortBy, tc.limit)
			require.Len(t, groups, len(tc.keys))
			assert.Equal(t, tc.keys, groupKeys(groups))
			for i, g := range groups {
				assert.InDelta(t, tc.values[i], g.Value, 1e-9, g.Key)
			}
		})
	}
}

func TestGroupAndAggregate_SubGroups(t *testing.T) {
	groups := GroupAndAggregate(ordersFrame(t), []string{"gender", "product_type"}, "quantity_x", AggSum, "", 0)
	require.Len(t, groups, 2)
	assert.Equal(t, "M", groups[0].Key)
	assert.Equal(t, []string{"Shoes", "Shirts"}, groupKeys(groups[0].SubGroups))
	assert.Equal(t, 3.0, groups[0].SubGroups[0].Value)
}

func TestGroupAndAggregate_EmptyView(t *testing.T) {
	assert.Nil(t, GroupAndAggregate(NewSliceView(nil), []string{"x"}, "y", AggSum, "", 0))
}

// ─────────────────────────────────────────────────────────────────────────────
// Rank
// ─────────────────────────────────────────────────────────────────────────────

func TestRank_StableTies(t *testing.T) {
	r, err := Rank(ordersFrame(t), "product_name", "quantity_x", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"P3", "P1", "P4", "P2"}, groupKeys(r.Top))
	assert.Equal(t, []string{"P2", "P1", "P4", "P3"}, groupKeys(r.Bottom))
}

func TestRank_DisjointAboveTenGroups(t *testing.T) {
	var records []Record
	for i := 12; i >= 1; i-- {
		records = append(records, Record{
			Dimensions: map[string]string{"product": fmt.Sprintf("P%02d", i)},
			Measures:   map[string]float64{"qty": float64(i)},
		})
	}

	r, err := Rank(NewSliceView(records), "product", "qty", DefaultTopK)
	require.NoError(t, err)
	require.Len(t, r.Top, 5)
	require.Len(t, r.Bottom, 5)

	top := map[string]bool{}
	for i, g := range r.Top {
		top[g.Key] = true
		if i > 0 {
			assert.GreaterOrEqual(t, r.Top[i-1].Value, g.Value)
		}
	}
	for i, g := range r.Bottom {
		assert.False(t, top[g.Key], "%s in both lists", g.Key)
		if i > 0 {
			assert.LessOrEqual(t, r.Bottom[i-1].Value, g.Value)
		}
	}
	assert.Equal(t, "P12", r.Top[0].Key)
	assert.Equal(t, "P01", r.Bottom[0].Key)
}

func TestRank_MissingColumn(t *testing.T) {
	_, err := Rank(ordersFrame(t), "brand", "quantity_x", 5)
	assert.ErrorIs(t, err, ErrSchema)
}

// ─────────────────────────────────────────────────────────────────────────────
// Formatting
// ─────────────────────────────────────────────────────────────────────────────

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,234,567", FormatInt(1234567))
	assert.Equal(t, "-1,000", FormatInt(-1000))
	assert.Equal(t, "12,345.68", FormatNumber(12345.678))
	assert.Equal(t, "-0.50", FormatNumber(-0.5))
	assert.Equal(t, "Total Count", LabelForDimension("total_count"))
	assert.Equal(t, 1.24, RoundTo2(1.236))
}
