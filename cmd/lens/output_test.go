package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/lens/engine"
)

func sampleTable(title string) *engine.TableData {
	return engine.BuildGroupTable(title, "state", engine.AggSum, []engine.Group{
		{Key: "CA", Label: "CA", Value: 160, Count: 3},
		{Key: "NY", Label: "NY", Value: 60.5, Count: 1},
	})
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, []*engine.TableData{sampleTable("By State")}))
	assert.Equal(t, "State,Total,Records\nCA,160.00,3\nNY,60.50,1\n", buf.String())
}

func TestWriteCSV_MultipleTables(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, []*engine.TableData{sampleTable("One"), sampleTable("Two")}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "One", lines[0])
	assert.Equal(t, "", lines[4])
	assert.Equal(t, "Two", lines[5])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, nil))
	assert.Equal(t, "Result,No data\n", buf.String())
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeText(&buf, "2 of 2 records match", []*engine.TableData{sampleTable("By State")}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "2 of 2 records match\n"))
	assert.Contains(t, out, "By State")
	assert.Regexp(t, `CA\s+160\.00\s+3`, out)
	assert.Regexp(t, `Total\s+220\.50\s+4`, out)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"a": 1}, formatJSON))
	assert.Equal(t, "{\"a\":1}\n", buf.String())

	buf.Reset()
	require.NoError(t, writeJSON(&buf, map[string]int{"a": 1}, formatPretty))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestWriteChartCSV(t *testing.T) {
	chart := &engine.ChartConfig{
		XAxis: "State",
		Series: []engine.ChartSeries{
			{Name: "F", Data: []engine.ChartPoint{{Label: "CA", Value: 1}, {Label: "NY", Value: 2.25}}},
			{Name: "M", Data: []engine.ChartPoint{{Label: "CA", Value: 3}}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, writeChartCSV(&buf, chart))
	assert.Equal(t, "State,F,M\nCA,1,3\nNY,2.25,\n", buf.String())

	buf.Reset()
	require.NoError(t, writeChartCSV(&buf, &engine.ChartConfig{
		Series: []engine.ChartSeries{{Name: "temp", Data: []engine.ChartPoint{{X: 0.5, Value: 7}}}},
	}))
	assert.Equal(t, "Label,Value\n0.50,7\n", buf.String())
}

func TestFmtNum(t *testing.T) {
	assert.Equal(t, "42", fmtNum(42))
	assert.Equal(t, "-3", fmtNum(-3))
	assert.Equal(t, "3.14", fmtNum(3.14159))
}
