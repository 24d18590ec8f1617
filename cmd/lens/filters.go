package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/spektr-org/lens/engine"
)

// filterFlags collects the predicate flags shared by run and chart.
type filterFlags struct {
	ranges []string // col=min:max
	dates  []string // col=from:to
	in     []string // col=a,b
	none   []string // col
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.ranges, "range", nil, "numeric range filter col=min:max (repeatable)")
	cmd.Flags().StringArrayVar(&f.dates, "dates", nil, "date range filter col=YYYY-MM-DD:YYYY-MM-DD (repeatable)")
	cmd.Flags().StringArrayVar(&f.in, "in", nil, "keep rows whose dimension is one of col=a,b (repeatable)")
	cmd.Flags().StringArrayVar(&f.none, "no-values", nil, "select no values of a dimension column (repeatable)")
}

// parse builds engine filters, reporting every malformed flag at once.
func (f *filterFlags) parse() (engine.Filters, error) {
	var (
		out  engine.Filters
		merr *multierror.Error
	)

	for _, raw := range f.ranges {
		col, lo, hi, err := splitBounds(raw)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("--range %q: %w", raw, err))
			continue
		}
		minV, errMin := strconv.ParseFloat(lo, 64)
		maxV, errMax := strconv.ParseFloat(hi, 64)
		if errMin != nil || errMax != nil {
			merr = multierror.Append(merr, fmt.Errorf("--range %q: bounds must be numbers", raw))
			continue
		}
		if minV > maxV {
			merr = multierror.Append(merr, fmt.Errorf("--range %q: min is greater than max", raw))
			continue
		}
		if out.Ranges == nil {
			out.Ranges = make(map[string]engine.Range)
		}
		out.Ranges[col] = engine.Range{Min: minV, Max: maxV}
	}

	for _, raw := range f.dates {
		col, from, to, err := splitBounds(raw)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("--dates %q: %w", raw, err))
			continue
		}
		fromDay, errFrom := engine.ParseDay(from)
		toDay, errTo := engine.ParseDay(to)
		if errFrom != nil || errTo != nil {
			merr = multierror.Append(merr, fmt.Errorf("--dates %q: dates must be YYYY-MM-DD", raw))
			continue
		}
		if fromDay.Time().After(toDay.Time()) {
			merr = multierror.Append(merr, fmt.Errorf("--dates %q: from is after to", raw))
			continue
		}
		if out.Dates == nil {
			out.Dates = make(map[string]engine.DateRange)
		}
		out.Dates[col] = engine.DateRange{From: fromDay, To: toDay}
	}

	for _, raw := range f.in {
		col, list, ok := strings.Cut(raw, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			merr = multierror.Append(merr, fmt.Errorf("--in %q: want col=a,b", raw))
			continue
		}
		if out.Dimensions == nil {
			out.Dimensions = make(map[string][]string)
		}
		values := out.Dimensions[col]
		if values == nil {
			values = []string{}
		}
		for _, v := range strings.Split(list, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		out.Dimensions[col] = values
	}

	for _, col := range f.none {
		if col = strings.TrimSpace(col); col == "" {
			continue
		}
		if out.Dimensions == nil {
			out.Dimensions = make(map[string][]string)
		}
		out.Dimensions[col] = []string{}
	}

	return out, merr.ErrorOrNil()
}

// splitBounds splits "col=lo:hi".
func splitBounds(raw string) (col, lo, hi string, err error) {
	col, bounds, ok := strings.Cut(raw, "=")
	col = strings.TrimSpace(col)
	if !ok || col == "" {
		return "", "", "", fmt.Errorf("want col=lo:hi")
	}
	lo, hi, ok = strings.Cut(bounds, ":")
	if !ok {
		return "", "", "", fmt.Errorf("want col=lo:hi")
	}
	return col, strings.TrimSpace(lo), strings.TrimSpace(hi), nil
}

// splitList splits a comma separated flag value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
