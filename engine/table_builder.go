package engine

import (
	"fmt"
	"math"
	"strconv"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from views and aggregates
// ============================================================================
// All functions operate on RecordView — zero-copy access to any data source.
// Column discovery uses the view's key lists instead of inspecting rows.
// ============================================================================

// BuildRowsTable lists the records of view, one row per record, up to limit
// rows (0 = all). Columns follow the view's dimension, date and measure keys.
func BuildRowsTable(title string, view RecordView, limit int) *TableData {
	dimKeys, datKeys, mesKeys := view.DimensionKeys(), view.DateKeys(), view.MeasureKeys()

	columns := make([]TableColumn, 0, len(dimKeys)+len(datKeys)+len(mesKeys))
	for _, key := range dimKeys {
		columns = append(columns, TableColumn{Key: key, Label: LabelForDimension(key), Type: "text", Align: "left"})
	}
	for _, key := range datKeys {
		columns = append(columns, TableColumn{Key: key, Label: LabelForDimension(key), Type: "date", Align: "center"})
	}
	for _, key := range mesKeys {
		columns = append(columns, TableColumn{Key: key, Label: LabelForDimension(key), Type: "number", Align: "right"})
	}

	n := view.Len()
	if limit > 0 && n > limit {
		n = limit
	}

	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		row := make([]string, 0, len(columns))
		for _, key := range dimKeys {
			row = append(row, view.Dimension(i, key))
		}
		for _, key := range datKeys {
			row = append(row, formatDate(view, i, key))
		}
		for _, key := range mesKeys {
			row = append(row, formatCell(view.Measure(i, key)))
		}
		rows = append(rows, row)
	}

	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label:  fmt.Sprintf("Showing %s of %s records", FormatInt(n), FormatInt(view.Len())),
			Values: map[string]string{},
		},
	}
}

// BuildGroupTable renders aggregated groups with a total row.
func BuildGroupTable(title, dimension, aggregation string, groups []Group) *TableData {
	columns := []TableColumn{
		{Key: "group", Label: LabelForDimension(dimension), Type: "text", Align: "left"},
		{Key: "value", Label: LabelForAggregation(aggregation), Type: "number", Align: "right"},
		{Key: "count", Label: "Records", Type: "number", Align: "center"},
	}

	rows := make([][]string, 0, len(groups))
	var totalValue float64
	var totalCount int

	for _, g := range groups {
		rows = append(rows, []string{
			g.Label,
			FormatNumber(g.Value),
			FormatInt(g.Count),
		})
		totalValue += g.Value
		totalCount += g.Count
	}

	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: "Total",
			Values: map[string]string{
				"value": FormatNumber(totalValue),
				"count": FormatInt(totalCount),
			},
		},
	}
}

// BuildStatsTable renders Describe output, one row per column.
func BuildStatsTable(stats []Stats) *TableData {
	columns := []TableColumn{{Key: "column", Label: "Column", Type: "text", Align: "left"}}
	for _, k := range []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"} {
		columns = append(columns, TableColumn{Key: k, Label: k, Type: "number", Align: "right"})
	}

	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Column, strconv.Itoa(s.Count),
			formatCell(s.Mean), formatCell(s.Std), formatCell(s.Min),
			formatCell(s.Q1), formatCell(s.Median), formatCell(s.Q3), formatCell(s.Max),
		})
	}
	return &TableData{Title: "Statistics", Columns: columns, Rows: rows}
}

// BuildMatrixTable renders a correlation matrix with row and column headers.
func BuildMatrixTable(m *Matrix) *TableData {
	columns := []TableColumn{{Key: "column", Label: "", Type: "text", Align: "left"}}
	for _, c := range m.Columns {
		columns = append(columns, TableColumn{Key: c, Label: c, Type: "number", Align: "right"})
	}

	rows := make([][]string, 0, len(m.Columns))
	for i, c := range m.Columns {
		row := []string{c}
		for _, v := range m.Values[i] {
			if math.IsNaN(v) {
				row = append(row, "NaN")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'f', 4, 64))
		}
		rows = append(rows, row)
	}
	return &TableData{Title: "Correlation", Columns: columns, Rows: rows}
}

// BuildMonthlyTable renders resampled buckets.
func BuildMonthlyTable(buckets []MonthBucket) *TableData {
	columns := []TableColumn{
		{Key: "month", Label: "Month", Type: "date", Align: "left"},
		{Key: "orders", Label: "Orders", Type: "number", Align: "right"},
		{Key: "revenue", Label: "Revenue", Type: "number", Align: "right"},
	}

	rows := make([][]string, 0, len(buckets))
	var orders int
	var revenue float64
	for _, b := range buckets {
		rows = append(rows, []string{b.Label, FormatInt(b.Orders), FormatNumber(b.Revenue)})
		orders += b.Orders
		revenue += b.Revenue
	}

	return &TableData{
		Title:   "Monthly Orders",
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: "Total",
			Values: map[string]string{
				"orders":  FormatInt(orders),
				"revenue": FormatNumber(revenue),
			},
		},
	}
}

// BuildRFMTable renders customer RFM rows.
func BuildRFMTable(title string, rows []CustomerRFM) *TableData {
	columns := []TableColumn{
		{Key: "customer", Label: "Customer", Type: "text", Align: "left"},
		{Key: "recency", Label: "Recency (days)", Type: "number", Align: "right"},
		{Key: "frequency", Label: "Frequency", Type: "number", Align: "right"},
		{Key: "monetary", Label: "Monetary", Type: "number", Align: "right"},
	}

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Customer,
			recencyCell(r.Recency),
			strconv.Itoa(r.Frequency),
			FormatNumber(r.Monetary),
		})
	}
	return &TableData{Title: title, Columns: columns, Rows: out}
}

func recencyCell(days *int) string {
	if days == nil {
		return ""
	}
	return strconv.Itoa(*days)
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(view RecordView, i int, key string) string {
	t := view.Date(i, key)
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
