package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/spektr-org/lens/engine"
	"github.com/spektr-org/lens/logger"
	"github.com/spektr-org/lens/schema"
)

// ============================================================================
// CSV DECODER — Raw CSV bytes into a typed Frame
// ============================================================================
// Column kinds come from schema.Discover over the raw strings, so a CSV and
// the discover command always agree on what a column is. Cells that do not
// parse as their column's kind become NaN (measures) or the zero time
// (dates); they drop out of range filters and aggregates.
// ============================================================================

// DecodeCSV reads a header row plus data rows. Rows with the wrong number of
// fields are skipped with a warning.
func DecodeCSV(r io.Reader) (*engine.Frame, *schema.Catalog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("no data rows")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var (
		rows    [][]string
		skipped int
	)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				logger.Warnf("⚠️ lens: skipping malformed CSV row at line %d: %v", perr.Line, perr.Err)
				continue
			}
			return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		rows = append(rows, row)
	}
	if skipped > 0 {
		logger.Warnf("⚠️ lens: %d malformed CSV rows skipped", skipped)
	}

	catalog, err := schema.Discover(header, rows)
	if err != nil {
		return nil, nil, err
	}

	columns := make([]engine.Column, len(header))
	for i, meta := range catalog.Columns {
		columns[i] = buildColumn(meta.Key, meta.Kind, i, rows)
	}
	frame, err := engine.NewFrame(columns...)
	if err != nil {
		return nil, nil, err
	}
	return frame, catalog, nil
}

func buildColumn(name string, kind engine.Kind, idx int, rows [][]string) engine.Column {
	switch kind {
	case engine.KindMeasure:
		values := make([]float64, len(rows))
		for r, row := range rows {
			v, ok := schema.ParseNumber(row[idx])
			if !ok {
				v = math.NaN()
			}
			values[r] = v
		}
		return engine.MeasureColumn(name, values)

	case engine.KindDate:
		values := make([]time.Time, len(rows))
		for r, row := range rows {
			values[r], _ = schema.ParseDate(row[idx])
		}
		return engine.DateColumn(name, values)

	default:
		values := make([]string, len(rows))
		for r, row := range rows {
			values[r] = strings.TrimSpace(row[idx])
		}
		return engine.DimensionColumn(name, values)
	}
}
