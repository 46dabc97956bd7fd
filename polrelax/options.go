package polrelax

// Encoding selects how SemilinearCuts gates its piecewise weights.
type Encoding uint8

const (
	// ContinuousEncoding emits only the convex-combination cuts.
	ContinuousEncoding Encoding = iota
	// BinaryEncoding adds one 0/1 indicator per segment with adjacency cuts.
	BinaryEncoding
)

// Options controls cut generation.
//
// Defaults: 4 divisions per univariate sandwich, continuous encoding.
type Options struct {
	// NDiv is the number of tangent points per sandwich and the number of
	// segments per piecewise-linear encoding.
	NDiv int
	// Encoding gates the piecewise-linear weight variables.
	Encoding Encoding
}

// Option mutates Options.
type Option func(*Options)

// WithDivisions sets the tangent/segment count. Values below 1 are clamped.
func WithDivisions(n int) Option {
	return func(o *Options) {
		if n < 1 {
			n = 1
		}
		o.NDiv = n
	}
}

// WithBinaryEncoding switches piecewise encodings to 0/1 indicators.
func WithBinaryEncoding() Option {
	return func(o *Options) { o.Encoding = BinaryEncoding }
}

func defaultOptions() Options {
	return Options{NDiv: 4, Encoding: ContinuousEncoding}
}
