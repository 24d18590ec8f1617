package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ============================================================================
// DISTRIBUTION — histogram bins and box summaries
// ============================================================================

// DefaultBins is the histogram bin count when none is requested.
const DefaultBins = 20

// Histogram splits the observed extent of key into bins equal-width buckets.
// Every bucket is half-open except the last, which also holds the maximum.
// A column whose values are all equal yields a single bin.
func Histogram(view RecordView, key string, bins int) ([]Bin, error) {
	if err := requireColumns(view, KindMeasure, key); err != nil {
		return nil, err
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	values := measureValues(view, key)
	if len(values) == 0 {
		return nil, nil
	}
	r, _ := NumericBounds(view, key)
	if r.Min == r.Max {
		return []Bin{{Start: r.Min, End: r.Max, Count: len(values)}}, nil
	}

	// Halved operands keep the span finite for extents near ±MaxFloat64.
	halfSpan := r.Max/2 - r.Min/2
	out := make([]Bin, bins)
	for i := range out {
		out[i].Start = lerp(r.Min, r.Max, float64(i)/float64(bins))
		out[i].End = lerp(r.Min, r.Max, float64(i+1)/float64(bins))
	}
	out[bins-1].End = r.Max

	for _, v := range values {
		pos := (v/2 - r.Min/2) / halfSpan * float64(bins)
		idx := 0
		if !math.IsNaN(pos) {
			idx = int(math.Min(math.Max(pos, 0), float64(bins-1)))
		}
		out[idx].Count++
	}
	return out, nil
}

// lerp returns the point t of the way from a to b without forming b-a.
func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

// BoxByGroup summarizes valueKey per distinct value of groupKey. groupKey may
// be a dimension (groups in encounter order) or a measure (groups in numeric
// order, labelled with the value).
func BoxByGroup(view RecordView, groupKey, valueKey string) ([]BoxSummary, error) {
	if err := requireColumns(view, KindMeasure, valueKey); err != nil {
		return nil, err
	}
	kind, ok := KindOf(view, groupKey)
	if !ok || kind == KindDate {
		return nil, requireColumns(view, KindDimension, groupKey)
	}

	type bucket struct {
		label  string
		order  float64
		values []float64
	}
	buckets := make(map[string]*bucket)
	var labels []string

	for i := 0; i < view.Len(); i++ {
		v := view.Measure(i, valueKey)
		if math.IsNaN(v) {
			continue
		}

		var label string
		order := math.NaN()
		if kind == KindMeasure {
			g := view.Measure(i, groupKey)
			if math.IsNaN(g) {
				continue
			}
			label = strconv.FormatFloat(g, 'f', -1, 64)
			order = g
		} else {
			label = view.Dimension(i, groupKey)
		}

		b, seen := buckets[label]
		if !seen {
			b = &bucket{label: label, order: order}
			buckets[label] = b
			labels = append(labels, label)
		}
		b.values = append(b.values, v)
	}

	if kind == KindMeasure {
		sort.SliceStable(labels, func(i, j int) bool {
			return buckets[labels[i]].order < buckets[labels[j]].order
		})
	}

	out := make([]BoxSummary, 0, len(labels))
	for _, label := range labels {
		b := buckets[label]
		s := describeValues(label, b.values)
		out = append(out, BoxSummary{
			Label:  label,
			Count:  s.Count,
			Min:    s.Min,
			Q1:     s.Q1,
			Median: s.Median,
			Q3:     s.Q3,
			Max:    s.Max,
			Values: b.values,
		})
	}
	return out, nil
}

// binLabel formats a bin's range for categorical axes.
func binLabel(b Bin) string {
	return fmt.Sprintf("%s–%s", strconv.FormatFloat(RoundTo2(b.Start), 'f', -1, 64),
		strconv.FormatFloat(RoundTo2(b.End), 'f', -1, 64))
}
