package ann

import (
	"fmt"
	"math"
	"sync"

	"github.com/factolab/facto/arith"
)

// Activation is the network-wide nonlinearity.
type Activation uint8

const (
	Linear Activation = iota
	ReLU
	Tanh
	Sigmoid
)

func (a Activation) String() string {
	switch a {
	case Linear:
		return "linear"
	case ReLU:
		return "relu"
	case Tanh:
		return "tanh"
	case Sigmoid:
		return "sigmoid"
	}
	return fmt.Sprintf("activation(%d)", uint8(a))
}

// Network is a fixed feed-forward network: dense layers of bias-first neuron
// rows [b, w1 .. wn] and one global activation applied to every layer.
// The stored coefficients are read-only after construction.
type Network struct {
	layers  [][][]float64
	act     Activation
	zeroTol float64

	// reluAsAbs rewrites max(x,0) as (x+|x|)/2, sigAsExp rewrites the
	// logistic as 1/(1+exp(-x)); both route the activation through a
	// different overload set of the payload.
	reluAsAbs bool
	sigAsExp  bool

	pool sync.Pool
}

// Option configures a Network.
type Option func(*Network)

// WithZeroTol skips affine coefficients of magnitude at or below tol.
func WithZeroTol(tol float64) Option {
	return func(n *Network) { n.zeroTol = math.Abs(tol) }
}

// WithReluAsAbs evaluates ReLU through the absolute value identity.
func WithReluAsAbs() Option {
	return func(n *Network) { n.reluAsAbs = true }
}

// WithSigmoidAsExp evaluates the logistic through its exponential form
// instead of the tanh half-angle form.
func WithSigmoidAsExp() Option {
	return func(n *Network) { n.sigAsExp = true }
}

// New validates the layer stack: at least one layer, every layer non-empty,
// and each neuron row one entry wider than the previous layer's output.
func New(layers [][][]float64, act Activation, opts ...Option) (*Network, error) {
	if len(layers) == 0 || len(layers[0]) == 0 || len(layers[0][0]) < 2 {
		return nil, fmt.Errorf("ann: empty network: %w", arith.ErrIndex)
	}
	width := len(layers[0][0]) - 1
	for l, layer := range layers {
		if len(layer) == 0 {
			return nil, fmt.Errorf("ann: layer %d has no neurons: %w", l, arith.ErrIndex)
		}
		for r, row := range layer {
			if len(row) != width+1 {
				return nil, fmt.Errorf("ann: layer %d neuron %d has %d coefficients, want %d: %w",
					l, r, len(row), width+1, arith.ErrIndex)
			}
		}
		width = len(layer)
	}
	n := &Network{layers: layers, act: act}
	for _, fn := range opts {
		fn(n)
	}
	n.pool.New = func() any { return &scratch{} }
	return n, nil
}

// NIn reports the input width, NOut the output width.
func (n *Network) NIn() int        { return len(n.layers[0][0]) - 1 }
func (n *Network) NOut() int       { return len(n.layers[len(n.layers)-1]) }
func (n *Network) NLayers() int    { return len(n.layers) }
func (n *Network) Act() Activation { return n.act }

type scratch struct {
	cur []arith.Value
	nxt []arith.Value
}

// Infer runs the per-layer loop under the payload kind of the inputs.
func (n *Network) Infer(in []arith.Value) ([]arith.Value, error) {
	if len(in) != n.NIn() {
		return nil, fmt.Errorf("ann: %d inputs for width %d: %w", len(in), n.NIn(), arith.ErrIndex)
	}
	ref := in[0]
	sc := n.pool.Get().(*scratch)
	defer n.release(sc)

	cur := append(sc.cur[:0], in...)
	nxt := sc.nxt[:0]
	for _, layer := range n.layers {
		nxt = nxt[:0]
		for _, row := range layer {
			acc := ref.Lift(row[0])
			for j, w := range row[1:] {
				if math.Abs(w) <= n.zeroTol {
					continue
				}
				term, err := cur[j].ScaleConst(w)
				if err != nil {
					return nil, err
				}
				acc, err = acc.Add(term)
				if err != nil {
					return nil, err
				}
			}
			z, err := n.activate(acc, ref)
			if err != nil {
				return nil, err
			}
			nxt = append(nxt, z)
		}
		cur, nxt = nxt, cur
	}
	out := make([]arith.Value, len(cur))
	copy(out, cur)
	sc.cur, sc.nxt = cur, nxt
	return out, nil
}

// release drops payload references before pooling the buffers.
func (n *Network) release(sc *scratch) {
	for i := range sc.cur {
		sc.cur[i] = nil
	}
	for i := range sc.nxt {
		sc.nxt[i] = nil
	}
	n.pool.Put(sc)
}

func (n *Network) activate(v, ref arith.Value) (arith.Value, error) {
	switch n.act {
	case Linear:
		return v, nil
	case ReLU:
		if !n.reluAsAbs {
			return v.Relu()
		}
		a, err := v.Fabs()
		if err != nil {
			return nil, err
		}
		s, err := v.Add(a)
		if err != nil {
			return nil, err
		}
		return s.ScaleConst(0.5)
	case Tanh:
		return v.Tanh()
	case Sigmoid:
		if n.sigAsExp {
			e, err := v.Neg()
			if err != nil {
				return nil, err
			}
			if e, err = e.Exp(); err != nil {
				return nil, err
			}
			den, err := e.AddConst(1)
			if err != nil {
				return nil, err
			}
			return ref.Lift(1).Div(den)
		}
		h, err := v.ScaleConst(0.5)
		if err != nil {
			return nil, err
		}
		if h, err = h.Tanh(); err != nil {
			return nil, err
		}
		if h, err = h.AddConst(1); err != nil {
			return nil, err
		}
		return h.ScaleConst(0.5)
	}
	return nil, arith.NotImplemented("ann", n.act.String())
}
