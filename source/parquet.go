package source

import (
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"time"

	pq "github.com/parquet-go/parquet-go"

	"github.com/spektr-org/lens/engine"
	"github.com/spektr-org/lens/logger"
	"github.com/spektr-org/lens/schema"
)

// ============================================================================
// PARQUET DECODER — Column chunks into a typed Frame
// ============================================================================
// The file schema decides most kinds: numeric physical types are measures,
// DATE and TIMESTAMP logical types are dates, everything else is read as a
// string dimension. String columns whose values parse as dates are promoted
// the same way CSV columns are. Nested and repeated fields are skipped.
// ============================================================================

// DecodeParquet reads every row group of a Parquet file.
func DecodeParquet(r io.ReaderAt, size int64) (*engine.Frame, error) {
	file, err := pq.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	fields := file.Schema().Fields()
	values := make([][]pq.Value, len(fields))

	for rgIdx, rowGroup := range file.RowGroups() {
		logger.Debugf("🔧 lens: reading row group %d/%d (%d rows)", rgIdx+1, len(file.RowGroups()), rowGroup.NumRows())
		for colIdx, chunk := range rowGroup.ColumnChunks() {
			if colIdx >= len(fields) {
				break
			}
			read, err := readChunk(chunk, rowGroup.NumRows())
			if err != nil {
				return nil, fmt.Errorf("failed to read column %s in row group %d: %w", fields[colIdx].Name(), rgIdx, err)
			}
			values[colIdx] = append(values[colIdx], read...)
		}
	}

	rows := int(file.NumRows())
	if rows == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	var columns []engine.Column
	for i, field := range fields {
		if !field.Leaf() || field.Repeated() {
			logger.Warnf("⚠️ lens: skipping nested parquet column %s", field.Name())
			continue
		}
		if len(values[i]) != rows {
			return nil, fmt.Errorf("column %s has %d values, expected %d", field.Name(), len(values[i]), rows)
		}
		columns = append(columns, parquetColumn(field.Name(), field.Type(), values[i]))
	}
	return engine.NewFrame(columns...)
}

func readChunk(chunk pq.ColumnChunk, numRows int64) ([]pq.Value, error) {
	pages := chunk.Pages()
	defer pages.Close()

	out := make([]pq.Value, 0, numRows)
	for {
		page, err := pages.ReadPage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		buf := make([]pq.Value, page.NumValues())
		n, err := page.Values().ReadValues(buf)
		if err != nil && err != io.EOF {
			return nil, err
		}
		out = append(out, buf[:n]...)
	}
	return out, nil
}

// parquetKind maps a column type to the kind it is loaded as.
func parquetKind(name string, typ pq.Type) engine.Kind {
	if lt := typ.LogicalType(); lt != nil {
		switch {
		case lt.Date != nil, lt.Timestamp != nil:
			return engine.KindDate
		case lt.Decimal != nil:
			return engine.KindMeasure
		case lt.UTF8 != nil, lt.Enum != nil, lt.UUID != nil, lt.Json != nil:
			return engine.KindDimension
		}
	}
	switch typ.Kind() {
	case pq.Int32, pq.Int64, pq.Float, pq.Double:
		if schema.IsIdentifier(name) {
			return engine.KindDimension
		}
		return engine.KindMeasure
	}
	return engine.KindDimension
}

func parquetColumn(name string, typ pq.Type, vals []pq.Value) engine.Column {
	switch parquetKind(name, typ) {
	case engine.KindMeasure:
		out := make([]float64, len(vals))
		for i, v := range vals {
			out[i] = parquetFloat(v, typ)
		}
		return engine.MeasureColumn(name, out)

	case engine.KindDate:
		out := make([]time.Time, len(vals))
		for i, v := range vals {
			out[i] = parquetTime(v, typ)
		}
		return engine.DateColumn(name, out)
	}

	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = parquetString(v)
	}
	if schema.DetectType(nonNull(out)) == schema.TypeDate {
		dates := make([]time.Time, len(out))
		for i, s := range out {
			dates[i], _ = schema.ParseDate(s)
		}
		return engine.DateColumn(name, dates)
	}
	return engine.DimensionColumn(name, out)
}

func parquetFloat(v pq.Value, typ pq.Type) float64 {
	if v.IsNull() {
		return math.NaN()
	}
	scale := 0
	if lt := typ.LogicalType(); lt != nil && lt.Decimal != nil {
		scale = int(lt.Decimal.Scale)
	}
	var f float64
	switch v.Kind() {
	case pq.Int32:
		f = float64(v.Int32())
	case pq.Int64:
		f = float64(v.Int64())
	case pq.Float:
		return float64(v.Float())
	case pq.Double:
		return v.Double()
	case pq.ByteArray, pq.FixedLenByteArray:
		f = decimalBytes(v.ByteArray())
	default:
		return math.NaN()
	}
	if scale > 0 {
		f /= math.Pow10(scale)
	}
	return f
}

// decimalBytes decodes a big-endian two's complement integer.
func decimalBytes(b []byte) float64 {
	if len(b) == 0 {
		return math.NaN()
	}
	n := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f
}

func parquetTime(v pq.Value, typ pq.Type) time.Time {
	if v.IsNull() {
		return time.Time{}
	}
	lt := typ.LogicalType()
	if lt != nil && lt.Date != nil {
		return time.Unix(int64(v.Int32())*86400, 0).UTC()
	}
	raw := v.Int64()
	if v.Kind() == pq.Int32 {
		raw = int64(v.Int32())
	}
	if lt != nil && lt.Timestamp != nil {
		switch {
		case lt.Timestamp.Unit.Nanos != nil:
			return time.Unix(0, raw).UTC()
		case lt.Timestamp.Unit.Micros != nil:
			return time.UnixMicro(raw).UTC()
		case lt.Timestamp.Unit.Millis != nil:
			return time.UnixMilli(raw).UTC()
		}
	}
	return time.Unix(raw, 0).UTC()
}

func parquetString(v pq.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case pq.Boolean:
		return strconv.FormatBool(v.Boolean())
	case pq.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case pq.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case pq.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case pq.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case pq.ByteArray, pq.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return v.String()
}

func nonNull(values []string) []string {
	out := make([]string, 0, len(values))
	for _, s := range values {
		if !schema.IsNull(s) {
			out = append(out, s)
		}
	}
	return out
}
