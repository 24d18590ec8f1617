package engine

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// ============================================================================
// EXECUTOR — One full pipeline run per UI interaction
// ============================================================================
// Entry point: Run(view, layout, req, opts...)
//
// Pipeline:
//   1. Fill default predicates for the profile's filter columns
//   2. Apply filters → SubView
//   3. Derive the profile's aggregate views from the SubView
//      (RFM alone reads the unfiltered view)
//   4. Build the requested chart and row table
//   5. Return Result
//
// Zero data copy — the engine reads consumer data through RecordView.
// A SchemaError from any stage aborts the run.
// ============================================================================

// Run executes req against view using the resolved layout.
//
// Options:
//   - WithTopK(k) — length of ranking and RFM lists
//   - WithSparseMonths() — omit empty months from the resample
//   - WithHistogramBins(n) — default histogram bin count
func Run(view RecordView, layout Layout, req Request, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)

	log.Debug().Msgf("🔧 lens: processing %d records, profile=%s", view.Len(), layout.Profile)

	var (
		result *Result
		err    error
	)
	switch layout.Profile {
	case ProfileRentals:
		result, err = runRentals(view, layout, req, cfg)
	case ProfileOrders:
		result, err = runOrders(view, layout, req, cfg)
	default:
		return nil, fmt.Errorf("unknown profile %q", layout.Profile)
	}
	if err != nil {
		return nil, err
	}

	if req.Chart != nil {
		chartReq := *req.Chart
		if chartReq.Type == ChartHistogram && chartReq.Bins == 0 {
			chartReq.Bins = cfg.HistogramBins
		}
		chart, err := BuildChart(result.View, chartReq)
		if err != nil {
			return nil, err
		}
		result.Chart = chart
	}
	if req.RowLimit > 0 {
		result.Rows = BuildRowsTable("Filtered records", result.View, req.RowLimit)
	}

	result.Success = true
	result.Profile = layout.Profile
	result.Total = view.Len()
	result.Matched = result.View.Len()
	result.Summary = BuildSummaryText(result.Total, result.Matched, result.Filters)

	log.Debug().Msgf("🔧 lens: %d records after filtering (from %d)", result.Matched, result.Total)
	return result, nil
}

// ── rentals ─────────────────────────────────────────────────────────────────

func runRentals(view RecordView, layout Layout, req Request, cfg *config) (*Result, error) {
	numeric := layout.ColumnsOf(FieldTemp, FieldHumidity, FieldWindspeed)
	all := layout.ColumnsOf(FieldTemp, FieldHumidity, FieldWindspeed, FieldTotalCount)

	filters, filtered, err := narrow(view, req.Filters, numeric, nil)
	if err != nil {
		return nil, err
	}

	stats, err := Describe(filtered, all)
	if err != nil {
		return nil, err
	}

	columns := req.Correlation
	if len(columns) == 0 {
		columns = all
	}
	corr, err := Correlate(filtered, columns)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Filters:     filters,
		Bounds:      observedBounds(view, numeric, nil),
		Stats:       stats,
		Correlation: corr,
		View:        filtered,
	}

	if req.Chart == nil {
		result.Chart, err = BuildChart(filtered, ChartRequest{
			Type:    ChartLine,
			Columns: layout.ColumnsOf(FieldTemp, FieldTotalCount),
			Title:   "Rentals by Weather",
		})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ── orders ──────────────────────────────────────────────────────────────────

func runOrders(view RecordView, layout Layout, req Request, cfg *config) (*Result, error) {
	dates := layout.ColumnsOf(FieldOrderDate)

	filters, filtered, err := narrow(view, req.Filters, nil, dates)
	if err != nil {
		return nil, err
	}

	var (
		orderDate = layout.Column(FieldOrderDate)
		orderID   = layout.Column(FieldOrderID)
		price     = layout.Column(FieldPrice)
		quantity  = layout.Column(FieldQuantity)
		customer  = layout.Column(FieldCustomer)
		category  = layout.Column(FieldCategory)
	)

	monthly, err := ResampleMonthly(filtered, orderDate, orderID, price)
	if err != nil {
		return nil, err
	}
	if cfg.SparseMonths {
		monthly = DropEmptyMonths(monthly)
	}

	ranking, err := Rank(filtered, layout.Column(FieldProduct), quantity, cfg.TopK)
	if err != nil {
		return nil, err
	}

	if err := requireColumns(view, KindDimension,
		layout.ColumnsOf(FieldCategory, FieldGender, FieldAgeGroup, FieldState)...); err != nil {
		return nil, err
	}
	groups := map[string][]Group{
		category: GroupAndAggregate(filtered, []string{category}, quantity, AggSum, SortValueDesc, 0),
	}
	for _, field := range []string{FieldGender, FieldAgeGroup, FieldState} {
		col := layout.Column(field)
		groups[col] = GroupAndAggregate(filtered, []string{col}, customer, AggDistinct, SortValueDesc, 0)
	}

	// RFM follows every customer, not the active filters.
	rfmRows, err := ComputeRFM(view, RFMColumns{
		Customer: customer,
		Date:     orderDate,
		Order:    orderID,
		Value:    price,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Filters: filters,
		Bounds:  observedBounds(view, nil, dates),
		Monthly: monthly,
		Growth:  BuildGrowth(monthly),
		Ranking: ranking,
		Groups:  groups,
		RFM:     TopRFM(rfmRows, cfg.TopK),
		View:    filtered,
	}, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func narrow(view RecordView, requested Filters, numeric, dates []string) (Filters, RecordView, error) {
	filters, err := FillDefaults(view, requested, numeric, dates)
	if err != nil {
		return Filters{}, nil, err
	}
	filtered, err := ApplyFilters(view, filters)
	if err != nil {
		return Filters{}, nil, err
	}
	return filters, filtered, nil
}

func observedBounds(view RecordView, numeric, dates []string) Bounds {
	var b Bounds
	for _, key := range numeric {
		if r, ok := NumericBounds(view, key); ok {
			if b.Numeric == nil {
				b.Numeric = make(map[string]Range)
			}
			b.Numeric[key] = r
		}
	}
	for _, key := range dates {
		if r, ok := DateBounds(view, key); ok {
			if b.Dates == nil {
				b.Dates = make(map[string]DateRange)
			}
			b.Dates[key] = r
		}
	}
	return b
}

// ProfileBounds returns the observed extents of the filter columns of a
// layout's profile, for seeding the UI before the first run.
func ProfileBounds(view RecordView, layout Layout) Bounds {
	switch layout.Profile {
	case ProfileRentals:
		return observedBounds(view, layout.ColumnsOf(FieldTemp, FieldHumidity, FieldWindspeed), nil)
	case ProfileOrders:
		return observedBounds(view, nil, layout.ColumnsOf(FieldOrderDate))
	default:
		return Bounds{}
	}
}
