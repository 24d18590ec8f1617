package engine

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Describe summarizes each measure: non-NaN count, mean, sample standard
// deviation, min, quartiles and max. Quartiles interpolate linearly at
// q·(n−1). A column without observations gets Count 0 and NaN statistics.
func Describe(view RecordView, keys []string) ([]Stats, error) {
	if err := requireColumns(view, KindMeasure, keys...); err != nil {
		return nil, err
	}

	out := make([]Stats, 0, len(keys))
	for _, key := range keys {
		values := measureValues(view, key)
		out = append(out, describeValues(key, values))
	}
	return out, nil
}

func describeValues(column string, values []float64) Stats {
	s := Stats{Column: column, Count: len(values)}
	if len(values) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q1, s.Median, s.Q3, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		s.Std = stat.StdDev(sorted, nil)
	} else {
		s.Std = math.NaN()
	}
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q1 = quantile(sorted, 0.25)
	s.Median = quantile(sorted, 0.5)
	s.Q3 = quantile(sorted, 0.75)
	return s
}

// quantile interpolates linearly between closest ranks of sorted.
// gonum's stat.Quantile offers only the empirical and LinInterp (n·q) variants.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// measureValues collects the non-NaN values of a measure in view order.
func measureValues(view RecordView, key string) []float64 {
	values := make([]float64, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		if v := view.Measure(i, key); !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	return values
}
