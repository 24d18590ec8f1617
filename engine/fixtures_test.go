package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures shared by the engine tests
// ─────────────────────────────────────────────────────────────────────────────

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// rentalsFrame: 5 rows, humidity has one blank cell.
func rentalsFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := NewFrame(
		MeasureColumn("temp", []float64{0.2, 0.35, 0.5, 0.65, 0.8}),
		MeasureColumn("humidity", []float64{0.8, 0.7, math.NaN(), 0.5, 0.4}),
		MeasureColumn("windspeed", []float64{0.1, 0.3, 0.2, 0.25, 0.15}),
		MeasureColumn("total_count", []float64{100, 180, 260, 330, 410}),
	)
	require.NoError(t, err)
	return f
}

func rentalsLayout() Layout {
	return Layout{Profile: ProfileRentals, Columns: map[string]string{
		FieldTemp:       "temp",
		FieldHumidity:   "humidity",
		FieldWindspeed:  "windspeed",
		FieldTotalCount: "total_count",
	}}
}

// ordersFrame:
//
//	date        order customer product category qty price gender age_group state
//	2021-01-05  O1    C1       P1      Shoes    2   100   M      Adults    CA
//	2021-01-20  O1    C1       P2      Shirts   1   50    M      Adults    CA
//	2021-03-02  O2    C2       P3      Shoes    5   200   F      Youth     NY
//	2021-03-15  O3    C1       P1      Shoes    1   60    M      Adults    CA
//	2021-04-30  O4    C3       P4      Bags     3   300   F      Seniors   TX
func ordersFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := NewFrame(
		DateColumn("order_date", []time.Time{
			day(2021, 1, 5), day(2021, 1, 20), day(2021, 3, 2), day(2021, 3, 15), day(2021, 4, 30),
		}),
		DimensionColumn("order_id", []string{"O1", "O1", "O2", "O3", "O4"}),
		DimensionColumn("customer_id", []string{"C1", "C1", "C2", "C1", "C3"}),
		DimensionColumn("product_name", []string{"P1", "P2", "P3", "P1", "P4"}),
		DimensionColumn("product_type", []string{"Shoes", "Shirts", "Shoes", "Shoes", "Bags"}),
		MeasureColumn("quantity_x", []float64{2, 1, 5, 1, 3}),
		MeasureColumn("total_price", []float64{100, 50, 200, 60, 300}),
		DimensionColumn("gender", []string{"M", "M", "F", "M", "F"}),
		DimensionColumn("age_group", []string{"Adults", "Adults", "Youth", "Adults", "Seniors"}),
		DimensionColumn("state", []string{"CA", "CA", "NY", "CA", "TX"}),
	)
	require.NoError(t, err)
	return f
}

func ordersLayout() Layout {
	return Layout{Profile: ProfileOrders, Columns: map[string]string{
		FieldCategory:  "product_type",
		FieldOrderDate: "order_date",
		FieldOrderID:   "order_id",
		FieldPrice:     "total_price",
		FieldQuantity:  "quantity_x",
		FieldProduct:   "product_name",
		FieldCustomer:  "customer_id",
		FieldGender:    "gender",
		FieldAgeGroup:  "age_group",
		FieldState:     "state",
	}}
}

func groupKeys(groups []Group) []string {
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	return keys
}

func customers(rows []CustomerRFM) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Customer
	}
	return out
}
