package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/spektr-org/lens/engine"
)

// Output formats.
const (
	formatJSON   = "json"
	formatPretty = "pretty"
	formatCSV    = "csv"
	formatText   = "text"
)

// output is what one command prints: a JSON value, and the same content as
// tables for the csv and text formats.
type output struct {
	Summary string
	Value   any
	Tables  []*engine.TableData
}

func writeOutput(w io.Writer, out output, format string) error {
	switch format {
	case formatCSV:
		return writeCSV(w, out.Tables)
	case formatText:
		return writeText(w, out.Summary, out.Tables)
	default:
		return writeJSON(w, out.Value, format)
	}
}

// ============================================================================
// JSON OUTPUT
// ============================================================================

func writeJSON(w io.Writer, v any, format string) error {
	var (
		out []byte
		err error
	)
	if format == formatPretty {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// ============================================================================
// CSV OUTPUT — Tables ready for Sheets/Excel
// ============================================================================

// writeCSV writes each table as a header row plus its rows. Several tables
// are separated by a blank line and preceded by their title.
func writeCSV(w io.Writer, tables []*engine.TableData) error {
	cw := csv.NewWriter(w)
	if len(tables) == 0 {
		_ = cw.Write([]string{"Result", "No data"})
	}
	for i, t := range tables {
		if len(tables) > 1 {
			if i > 0 {
				_ = cw.Write(nil)
			}
			_ = cw.Write([]string{t.Title})
		}
		_ = cw.Write(tableHeader(t))
		for _, row := range t.Rows {
			_ = cw.Write(row)
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeChartCSV writes chart series as label + one column per series.
func writeChartCSV(w io.Writer, chart *engine.ChartConfig) error {
	cw := csv.NewWriter(w)
	xLabel, yLabel := chart.XAxis, chart.YAxis
	if xLabel == "" {
		xLabel = "Label"
	}
	if yLabel == "" {
		yLabel = "Value"
	}

	switch {
	case len(chart.Boxes) > 0:
		_ = cw.Write([]string{xLabel, "Count", "Min", "Q1", "Median", "Q3", "Max"})
		for _, b := range chart.Boxes {
			_ = cw.Write([]string{b.Label, engine.FormatInt(b.Count),
				fmtNum(b.Min), fmtNum(b.Q1), fmtNum(b.Median), fmtNum(b.Q3), fmtNum(b.Max)})
		}

	case chart.Matrix != nil:
		t := engine.BuildMatrixTable(chart.Matrix)
		_ = cw.Write(tableHeader(t))
		for _, row := range t.Rows {
			_ = cw.Write(row)
		}

	case len(chart.Series) == 1:
		_ = cw.Write([]string{xLabel, yLabel})
		for _, d := range chart.Series[0].Data {
			_ = cw.Write([]string{pointLabel(d), fmtNum(d.Value)})
		}

	case len(chart.Series) > 1:
		headers := []string{xLabel}
		for _, s := range chart.Series {
			headers = append(headers, s.Name)
		}
		_ = cw.Write(headers)
		for i, d := range chart.Series[0].Data {
			row := []string{pointLabel(d)}
			for _, s := range chart.Series {
				if i < len(s.Data) {
					row = append(row, fmtNum(s.Data[i].Value))
				} else {
					row = append(row, "")
				}
			}
			_ = cw.Write(row)
		}

	default:
		_ = cw.Write([]string{"Result", "No data"})
	}
	cw.Flush()
	return cw.Error()
}

// ============================================================================
// TEXT OUTPUT
// ============================================================================

func writeText(w io.Writer, summary string, tables []*engine.TableData) error {
	if summary != "" {
		if _, err := fmt.Fprintln(w, summary); err != nil {
			return err
		}
	}
	for _, t := range tables {
		fmt.Fprintf(w, "\n%s\n", t.Title)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(tableHeader(t), "\t"))
		for _, row := range t.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		if t.Summary != nil && len(t.Summary.Values) > 0 {
			row := []string{t.Summary.Label}
			for _, c := range t.Columns[1:] {
				row = append(row, t.Summary.Values[c.Key])
			}
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

func tableHeader(t *engine.TableData) []string {
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Label
	}
	return header
}

func pointLabel(p engine.ChartPoint) string {
	if p.Label != "" {
		return p.Label
	}
	return fmtNum(p.X)
}

func fmtNum(v float64) string {
	// Whole numbers → no decimals, fractional → 2 decimals
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
