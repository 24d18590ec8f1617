package engine

import (
	"math"
	"sort"
	"time"
)

// ============================================================================
// RFM — recency / frequency / monetary per customer
// ============================================================================

// RFMColumns names the columns ComputeRFM reads.
type RFMColumns struct {
	Customer string // dimension
	Date     string // date
	Order    string // dimension
	Value    string // measure
}

// ComputeRFM derives one CustomerRFM per distinct customer, in the order
// customers first appear.
//
//	Recency   = whole days from the customer's last order to the latest order
//	            date in view; nil, like LastOrder, without a dated order
//	Frequency = distinct order ids
//	Monetary  = sum of Value
//
// Callers pass the full record set; RFM is not meant to follow the filters.
func ComputeRFM(view RecordView, cols RFMColumns) ([]CustomerRFM, error) {
	if err := requireColumns(view, KindDimension, cols.Customer, cols.Order); err != nil {
		return nil, err
	}
	if err := requireColumns(view, KindDate, cols.Date); err != nil {
		return nil, err
	}
	if err := requireColumns(view, KindMeasure, cols.Value); err != nil {
		return nil, err
	}

	type acc struct {
		last     time.Time
		orders   map[string]struct{}
		monetary float64
	}
	byCustomer := make(map[string]*acc)
	var order []string
	var latest time.Time

	for i := 0; i < view.Len(); i++ {
		c := view.Dimension(i, cols.Customer)
		if c == "" {
			continue
		}
		a, ok := byCustomer[c]
		if !ok {
			a = &acc{orders: make(map[string]struct{})}
			byCustomer[c] = a
			order = append(order, c)
		}
		if t := view.Date(i, cols.Date); !t.IsZero() {
			if t.After(a.last) {
				a.last = t
			}
			if t.After(latest) {
				latest = t
			}
		}
		if id := view.Dimension(i, cols.Order); id != "" {
			a.orders[id] = struct{}{}
		}
		if v := view.Measure(i, cols.Value); !math.IsNaN(v) {
			a.monetary += v
		}
	}

	out := make([]CustomerRFM, 0, len(order))
	for _, c := range order {
		a := byCustomer[c]
		row := CustomerRFM{
			Customer:  c,
			Frequency: len(a.orders),
			Monetary:  a.monetary,
		}
		if !a.last.IsZero() {
			last := a.last
			days := int(math.Floor(latest.Sub(last).Hours() / 24))
			row.LastOrder, row.Recency = &last, &days
		}
		out = append(out, row)
	}
	return out, nil
}

// TopRFM returns the k most recent customers (recency ascending) and the k
// highest by frequency and by monetary value (descending). Ties keep input
// order. Customers without any dated order are left out of the recency list.
func TopRFM(rows []CustomerRFM, k int) *RFMRankings {
	if k <= 0 {
		k = DefaultTopK
	}

	dated := make([]CustomerRFM, 0, len(rows))
	for _, r := range rows {
		if r.Recency != nil {
			dated = append(dated, r)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool { return *dated[i].Recency < *dated[j].Recency })

	frequency := append([]CustomerRFM(nil), rows...)
	sort.SliceStable(frequency, func(i, j int) bool { return frequency[i].Frequency > frequency[j].Frequency })

	monetary := append([]CustomerRFM(nil), rows...)
	sort.SliceStable(monetary, func(i, j int) bool { return monetary[i].Monetary > monetary[j].Monetary })

	return &RFMRankings{
		Customers: len(rows),
		Recency:   dated[:min(k, len(dated))],
		Frequency: frequency[:min(k, len(frequency))],
		Monetary:  monetary[:min(k, len(monetary))],
	}
}
