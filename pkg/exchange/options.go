package exchange

// DefaultDepth is the order book depth requested when none is given.
const DefaultDepth = 100

// Option tunes a single market-data call.
type Option func(*Options)

// Options is the resolved set of per-call settings a venue reads.
type Options struct {
	// Depth is the number of levels requested per book side.
	Depth int
}

// WithDepth asks for at most depth levels per side. Venues may ignore it
// and return their native depth.
func WithDepth(depth int) Option {
	return func(o *Options) {
		o.Depth = depth
	}
}

// ApplyOptions resolves opts over the defaults. A non-positive depth falls
// back to DefaultDepth.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{Depth: DefaultDepth}
	for _, opt := range opts {
		opt(o)
	}
	if o.Depth <= 0 {
		o.Depth = DefaultDepth
	}
	return o
}
