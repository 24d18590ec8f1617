package engine

// ============================================================================
// ENGINE OPTIONS — Functional options for Run()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	TopK          int  // length of ranking and RFM lists
	SparseMonths  bool // omit empty months from the resample
	HistogramBins int
}

// WithTopK overrides DefaultTopK for rankings and RFM lists.
func WithTopK(k int) Option {
	return func(c *config) {
		if k > 0 {
			c.TopK = k
		}
	}
}

// WithSparseMonths drops months without orders from the monthly resample.
// By default the month axis is continuous.
func WithSparseMonths() Option {
	return func(c *config) {
		c.SparseMonths = true
	}
}

// WithHistogramBins sets the bin count used when a histogram request does
// not name one.
func WithHistogramBins(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.HistogramBins = n
		}
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		TopK:          DefaultTopK,
		HistogramBins: DefaultBins,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
