package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ============================================================================
// TEXT BUILDER — One-line headlines for a run
// ============================================================================

// BuildSummaryText produces the headline shown above the dashboard.
//
//	"2 of 3 records match (temp 0.2–0.8)"
//	"No records match (category: none selected)"
func BuildSummaryText(total, matched int, filters Filters) string {
	var b strings.Builder
	if matched == 0 {
		b.WriteString("No records match")
	} else {
		fmt.Fprintf(&b, "%s of %s records match", FormatInt(matched), FormatInt(total))
	}
	if desc := DescribeFilters(filters); desc != "" {
		fmt.Fprintf(&b, " (%s)", desc)
	}
	return b.String()
}

// DescribeFilters renders the predicates in a stable order.
func DescribeFilters(f Filters) string {
	var parts []string
	for _, key := range sortedRangeKeys(f.Ranges) {
		r := f.Ranges[key]
		parts = append(parts, fmt.Sprintf("%s %s–%s", key, trimFloat(r.Min), trimFloat(r.Max)))
	}
	for _, key := range sortedDateKeys(f.Dates) {
		r := f.Dates[key]
		parts = append(parts, fmt.Sprintf("%s %s – %s", key, r.From, r.To))
	}
	for _, key := range sortedDimensionKeys(f.Dimensions) {
		values := f.Dimensions[key]
		if len(values) == 0 {
			parts = append(parts, key+": none selected")
			continue
		}
		parts = append(parts, key+": "+strings.Join(values, ", "))
	}
	return strings.Join(parts, "; ")
}

// ============================================================================
// GROWTH BUILDER
// ============================================================================

// BuildGrowth compares the first and last populated month of a resample.
// Returns nil with fewer than two populated months.
func BuildGrowth(buckets []MonthBucket) *Growth {
	populated := DropEmptyMonths(buckets)
	if len(populated) < 2 {
		return nil
	}
	earliest := populated[0]
	latest := populated[len(populated)-1]

	g := &Growth{
		EarliestPeriod: earliest.Label,
		LatestPeriod:   latest.Label,
		EarliestValue:  earliest.Revenue,
		LatestValue:    latest.Revenue,
		ChangeAmount:   latest.Revenue - earliest.Revenue,
	}
	if earliest.Revenue != 0 {
		pct := g.ChangeAmount / math.Abs(earliest.Revenue) * 100
		g.ChangePercent = &pct
	}

	switch {
	case g.ChangeAmount > 0:
		g.Direction = "increased"
	case g.ChangeAmount < 0:
		g.Direction = "decreased"
	default:
		g.Direction = "unchanged"
	}
	return g
}

// Headline formats the growth as "↑ 12.5% (2016-01 – 2016-12)". Growth from
// a zero month shows the amount instead: "↑ 1,000.00 from zero (...)".
func (g *Growth) Headline() string {
	period := fmt.Sprintf("(%s – %s)", g.EarliestPeriod, g.LatestPeriod)
	change := FormatNumber(math.Abs(g.ChangeAmount)) + " from zero"
	if g.ChangePercent != nil {
		change = fmt.Sprintf("%.1f%%", math.Abs(*g.ChangePercent))
	}
	switch g.Direction {
	case "increased":
		return fmt.Sprintf("↑ %s %s", change, period)
	case "decreased":
		return fmt.Sprintf("↓ %s %s", change, period)
	default:
		return "→ No change " + period
	}
}

// ============================================================================
// PERIOD HELPER
// ============================================================================

// DerivePeriod builds a human-readable period string from a date column.
func DerivePeriod(view RecordView, dateKey string) string {
	if view.Len() == 0 {
		return "No data"
	}
	r, ok := DateBounds(view, dateKey)
	if !ok {
		return "All time"
	}
	if r.From.Equal(r.To) {
		return r.From.String()
	}
	return fmt.Sprintf("%s – %s", r.From, r.To)
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sortedDimensionKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
