// Package lens is a filter-aggregate pipeline for dashboard record sets.
//
// Usage:
//
//	import (
//	    "github.com/spektr-org/lens/engine"
//	    "github.com/spektr-org/lens/schema"
//	    "github.com/spektr-org/lens/source"
//	)
//
//	loc, _ := source.ParseLocation("s3://dash/orders.parquet")
//	frame, err := source.Load(ctx, loc)
//	sch, err := schema.Detect(frame)
//	result, err := engine.Run(frame, sch.Layout, engine.Request{
//	    Filters: engine.Filters{Dimensions: map[string][]string{"state": {"CA"}}},
//	}, engine.WithTopK(10))
//
// Records already in memory as typed structs skip loading. A DomainAdapter
// exposes them as a view without copying, and SliceView does the same for
// []engine.Record:
//
//	adapter := engine.NewDomainAdapter[Order]().
//	    Dimension("customer_id", func(o Order) string { return o.Customer }).
//	    Dimension("order_id", func(o Order) string { return o.ID }).
//	    Date("order_date", func(o Order) time.Time { return o.Placed }).
//	    Measure("total_price", func(o Order) float64 { return o.Total })
//
//	rows, err := engine.ComputeRFM(adapter.Bind(orders), engine.RFMColumns{
//	    Customer: "customer_id", Date: "order_date", Order: "order_id", Value: "total_price",
//	})
//
// A record set is loaded once into a columnar engine.Frame. Every
// interaction filters it into a zero-copy view and recomputes the
// statistics, correlations, monthly resample, rankings and RFM lists its
// profile calls for. The server package serves the same pipeline over HTTP
// and cmd/lens exposes it on the command line.
package lens
