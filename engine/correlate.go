package engine

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrNoColumns is returned by Correlate when no column is selected.
var ErrNoColumns = errors.New("at least one column is required")

// Correlate computes the pairwise Pearson correlation of the given measures.
//
// Each pair uses the rows where both values are present. A single column is
// [[1]] regardless of the data. Otherwise a cell with fewer than two paired
// rows, or zero variance on either side, is NaN, diagonal included.
func Correlate(view RecordView, columns []string) (*Matrix, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	if err := requireColumns(view, KindMeasure, columns...); err != nil {
		return nil, err
	}

	n := len(columns)
	m := &Matrix{
		Columns: append([]string(nil), columns...),
		Values:  make([][]float64, n),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
	}

	if n == 1 {
		m.Values[0][0] = 1
		return m, nil
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			r := pearson(view, columns[i], columns[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

func pearson(view RecordView, a, b string) float64 {
	xs := make([]float64, 0, view.Len())
	ys := make([]float64, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		x, y := view.Measure(i, a), view.Measure(i, b)
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if len(xs) < 2 || constant(xs) || constant(ys) {
		return math.NaN()
	}

	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return r
	}
	return math.Max(-1, math.Min(1, r))
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
