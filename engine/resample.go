package engine

import (
	"math"
	"time"
)

// ============================================================================
// RESAMPLE — calendar-month buckets
// ============================================================================

// ResampleMonthly buckets view by the calendar month of dateKey. Each bucket
// holds the number of distinct idKey values, the sum of valueKey and the row
// count.
//
// Buckets are continuous: every month between the first and last populated
// month appears, empty ones with zeros. Rows without a date are skipped.
// An empty view yields no buckets.
func ResampleMonthly(view RecordView, dateKey, idKey, valueKey string) ([]MonthBucket, error) {
	if err := requireColumns(view, KindDate, dateKey); err != nil {
		return nil, err
	}
	if err := requireColumns(view, KindDimension, idKey); err != nil {
		return nil, err
	}
	if err := requireColumns(view, KindMeasure, valueKey); err != nil {
		return nil, err
	}

	type acc struct {
		ids     map[string]struct{}
		revenue float64
		rows    int
	}
	months := make(map[time.Time]*acc)
	var first, last time.Time

	for i := 0; i < view.Len(); i++ {
		t := view.Date(i, dateKey)
		if t.IsZero() {
			continue
		}
		m := monthOf(t)
		a, ok := months[m]
		if !ok {
			a = &acc{ids: make(map[string]struct{})}
			months[m] = a
		}
		if id := view.Dimension(i, idKey); id != "" {
			a.ids[id] = struct{}{}
		}
		if v := view.Measure(i, valueKey); !math.IsNaN(v) {
			a.revenue += v
		}
		a.rows++

		if first.IsZero() || m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
	}

	if len(months) == 0 {
		return nil, nil
	}

	var buckets []MonthBucket
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		b := MonthBucket{Month: m, Label: m.Format("2006-01")}
		if a, ok := months[m]; ok {
			b.Orders = len(a.ids)
			b.Revenue = a.revenue
			b.Rows = a.rows
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}

// DropEmptyMonths removes buckets without rows.
func DropEmptyMonths(buckets []MonthBucket) []MonthBucket {
	out := buckets[:0:0]
	for _, b := range buckets {
		if b.Rows > 0 {
			out = append(out, b)
		}
	}
	return out
}

func monthOf(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
