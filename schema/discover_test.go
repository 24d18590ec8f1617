package schema

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/lens/engine"
)

// ============================================================================
// DISCOVERY TESTS
// ============================================================================

// Sample order export
var ordersCSV = `order_id,customer_id,order_date,product_name,product_type,quantity_x,total_price,gender,age_group,state,is_member
1001,C-17,2021-01-05,Runner X,Shoes,2,"1,200.50",M,Adults,CA,yes
1001,C-17,2021-01-05,Tee Basic,Shirts,1,50,M,Adults,CA,yes
1002,C-22,2021-02-11,Runner X,Shoes,1,600.25,F,Youth,NY,no
1003,C-31,2021-03-02,Tote,Bags,3,90,F,Seniors,TX,no
1004,C-17,2021-03-15,Tee V,Shirts,,50,M,Adults,CA,yes
`

// Sample rental export
var rentalsCSV = `instant,dteday,season,holiday,temp,humidity,windspeed,total_count
1,2011-01-01,1,0,0.344167,0.805833,0.160446,985
2,2011-01-02,1,0,0.363478,0.696087,0.248539,801
3,2011-01-03,1,1,0.196364,0.437273,0.248309,1349
4,2011-01-04,1,0,0.2,0.590435,0.160296,1562
`

func readCSV(t *testing.T, data string) ([]string, [][]string) {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows[0], rows[1:]
}

func TestDiscover_Orders(t *testing.T) {
	header, rows := readCSV(t, ordersCSV)
	cat, err := Discover(header, rows)
	require.NoError(t, err)
	assert.Equal(t, 5, cat.Rows)

	kinds := cat.Kinds()
	assert.Equal(t, engine.KindDimension, kinds["order_id"], "numeric *_id columns stay dimensions")
	assert.Equal(t, engine.KindDimension, kinds["customer_id"])
	assert.Equal(t, engine.KindDate, kinds["order_date"])
	assert.Equal(t, engine.KindMeasure, kinds["quantity_x"])
	assert.Equal(t, engine.KindMeasure, kinds["total_price"])
	assert.Equal(t, engine.KindDimension, kinds["is_member"])

	qty := cat.Column("quantity_x")
	require.NotNil(t, qty)
	assert.Equal(t, 1, qty.NullCount)
	assert.Equal(t, "low", qty.CardinalityHint)

	assert.Equal(t, "identifier", cat.Column("order_id").Role)
	assert.Equal(t, TypeBool, cat.Column("is_member").Type)
	assert.Equal(t, "product_type", cat.Column("product_name").Parent)
	assert.Equal(t, "Product Type", cat.Column("product_type").DisplayName)
}

func TestDiscover_Rentals(t *testing.T) {
	header, rows := readCSV(t, rentalsCSV)
	cat, err := Discover(header, rows)
	require.NoError(t, err)

	assert.Equal(t, []string{"instant", "season", "holiday", "temp", "humidity", "windspeed", "total_count"},
		cat.KeysOf(engine.KindMeasure))
	assert.Equal(t, []string{"dteday"}, cat.KeysOf(engine.KindDate))
	assert.Equal(t, TypeNumeric, cat.Column("holiday").Type, "0/1 indicators stay numeric")
}

func TestDiscover_NoRows(t *testing.T) {
	_, err := Discover([]string{"a"}, nil)
	assert.EqualError(t, err, "no data rows")
}

func TestDetectType(t *testing.T) {
	cases := []struct {
		values []string
		want   Type
	}{
		{[]string{"1", "2.5", "-3", "$4", "1,000"}, TypeNumeric},
		{[]string{"2021-01-05", "2021-02-06T10:00:00Z", "01/31/2021"}, TypeDate},
		{[]string{"yes", "no", "yes"}, TypeBool},
		{[]string{"0", "1", "1"}, TypeNumeric},
		{[]string{"1", "2", "x", "y"}, TypeString},
		{[]string{"2011", "2012"}, TypeNumeric},
		{nil, TypeString},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectType(tc.values), "%v", tc.values)
	}
}

func TestParseNumber(t *testing.T) {
	v, ok := ParseNumber("-$1,234.5")
	require.True(t, ok)
	assert.Equal(t, -1234.5, v)

	_, ok = ParseNumber("abc")
	assert.False(t, ok)
	_, ok = ParseNumber("")
	assert.False(t, ok)
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Order Date":   "order_date",
		"customerID":   "customer_id",
		"total_count":  "total_count",
		"Product-Type": "product_type",
	}
	for input, expected := range tests {
		assert.Equal(t, expected, toSnakeCase(input), input)
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Total Count", toDisplayName("total_count"))
	assert.Equal(t, "Order Date", toDisplayName("Order Date"))
	assert.Equal(t, "Temp", toDisplayName("temp"))
}

func TestTemporalDetection(t *testing.T) {
	ok, format := detectTemporalPattern([]string{"2021-01", "2021-02", "2021-03"})
	assert.True(t, ok)
	assert.Equal(t, "yyyy-MM", format)

	ok, _ = detectTemporalPattern([]string{"Shoes", "Bags"})
	assert.False(t, ok)
}
