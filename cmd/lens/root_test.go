package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rentalsCSV = `dteday,temp,humidity,windspeed,total_count
2011-01-01,0.24,0.81,0.00,16
2011-01-02,0.22,0.80,0.10,40
2011-01-03,0.46,0.50,0.25,120
2011-01-04,0.60,0.42,0.30,180
`

const ordersCSV = `order_id,customer_id,order_date,product_name,product_type,quantity_x,total_price,gender,age_group,state
1001,C-17,2021-01-05,Runner X,Shoes,2,120,M,Adults,CA
1001,C-17,2021-01-05,Tee Basic,Shirts,1,20,M,Adults,CA
1002,C-22,2021-02-11,Runner X,Shoes,1,60,F,Youth,NY
1003,C-31,2021-03-02,Tote,Bags,3,90,F,Seniors,TX
1004,C-17,2021-04-15,Tee Basic,Shirts,2,40,M,Adults,CA
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "lens "+version+"\n", out)
}

// ─── run ────────────────────────────────────────────────────

func TestRun_Summary(t *testing.T) {
	path := writeFixture(t, "bike.csv", rentalsCSV)

	out, err := execute(t, "run", "--source", path, "--view", "summary")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body), out)
	assert.Equal(t, "rentals", body["profile"])
	assert.Equal(t, float64(4), body["total"])
	assert.Equal(t, float64(4), body["matched"])
	assert.Len(t, body["stats"], 4)
}

func TestRun_RangeFilter(t *testing.T) {
	path := writeFixture(t, "bike.csv", rentalsCSV)

	out, err := execute(t, "run", "--source", path, "--view", "summary", "--range", "temp=0.2:0.3")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body), out)
	assert.Equal(t, float64(2), body["matched"])
}

func TestRun_CorrelationCSV(t *testing.T) {
	path := writeFixture(t, "bike.csv", rentalsCSV)

	out, err := execute(t, "run", "--source", path, "--view", "correlation",
		"--corr", "temp,total_count", "--format", "csv")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"", "temp", "total_count"}, records[0])
	assert.Equal(t, "1.0000", records[1][1])
}

func TestRun_OrdersRFMText(t *testing.T) {
	path := writeFixture(t, "orders.csv", ordersCSV)

	out, err := execute(t, "run", "--source", path, "--view", "rfm", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "5 of 5 records match")
	assert.Contains(t, out, "Most frequent customers")
	assert.Regexp(t, `C-17\s+\d+\s+2\s+180\.00`, out)
}

func TestRun_Groups(t *testing.T) {
	path := writeFixture(t, "orders.csv", ordersCSV)

	out, err := execute(t, "run", "--source", path, "--view", "groups", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "By Product Type\nProduct Type,Total,Records\n")
	assert.Contains(t, out, "By State\nState,Distinct,Records\n")
}

func TestRun_Errors(t *testing.T) {
	rentals := writeFixture(t, "bike.csv", rentalsCSV)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown view", []string{"--view", "pie"}, `unknown view "pie"`},
		{"no monthly for rentals", []string{"--view", "monthly"}, "no monthly resample for the rentals profile"},
		{"bad range", []string{"--range", "temp=1:0"}, "min is greater than max"},
		{"bad format", []string{"--format", "xml"}, "format must be one of"},
		{"missing source", []string{"--source", filepath.Join(t.TempDir(), "none.csv")}, "not found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"run", "--source", rentals}, tc.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

// ─── discover ───────────────────────────────────────────────

func TestDiscover(t *testing.T) {
	path := writeFixture(t, "orders.csv", ordersCSV)

	out, err := execute(t, "discover", "--source", path)
	require.NoError(t, err)

	var body struct {
		Name    string `json:"name"`
		Rows    int    `json:"rows"`
		Profile string `json:"profile"`
		Columns []struct {
			Key  string `json:"key"`
			Kind string `json:"kind"`
		} `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body), out)
	assert.Equal(t, "orders.csv", body.Name)
	assert.Equal(t, 5, body.Rows)
	assert.Equal(t, "orders", body.Profile)
	require.Len(t, body.Columns, 10)
	assert.Equal(t, "order_id", body.Columns[0].Key)
	assert.Equal(t, "dimension", body.Columns[0].Kind)
}

// ─── chart ──────────────────────────────────────────────────

func TestChart_CSVToStdout(t *testing.T) {
	path := writeFixture(t, "orders.csv", ordersCSV)

	out, err := execute(t, "chart", "--source", path, "--format", "csv",
		"--type", "bar", "--x", "state", "--measure", "total_price", "--agg", "sum", "--in", "gender=M")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"CA", "180"}, records[1])
}

func TestChart_Files(t *testing.T) {
	path := writeFixture(t, "bike.csv", rentalsCSV)
	dir := t.TempDir()

	for _, name := range []string{"temp.png", "temp.svg", "temp.csv", "temp.json"} {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(dir, name)
			_, err := execute(t, "chart", "--source", path, "--type", "histogram", "--var", "temp", "--bins", "2", "-o", out)
			require.NoError(t, err)

			info, err := os.Stat(out)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}

	png, err := os.ReadFile(filepath.Join(dir, "temp.png"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestChart_Errors(t *testing.T) {
	path := writeFixture(t, "bike.csv", rentalsCSV)

	_, err := execute(t, "chart", "--source", path, "--type", "pie")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type must be one of")

	_, err = execute(t, "chart", "--source", path, "--type", "histogram", "--var", "temp",
		"-o", filepath.Join(t.TempDir(), "temp.gif"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output extension")

	_, err = execute(t, "chart", "--source", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "type" not set`)
}
