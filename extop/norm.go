package extop

import (
	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/ffgraph"
)

// Norm2 inserts the Euclidean norm of the inputs: 0-ary yields the constant
// zero, otherwise sqrt of the sum of squares.
func Norm2(g *ffgraph.Graph, xs ...*ffgraph.Var) (*ffgraph.Var, error) {
	if len(xs) == 0 {
		return g.Const(0), nil
	}
	out, err := g.Insert(norm2Op{}, xs...)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Norm12 inserts the combined-norm operation with two outputs: the 2-norm
// and the 1-norm of the inputs. 0-ary yields two constant zeros.
func Norm12(g *ffgraph.Graph, xs ...*ffgraph.Var) (norm2, norm1 *ffgraph.Var, err error) {
	if len(xs) == 0 {
		z := g.Const(0)
		return z, z, nil
	}
	out, err := g.Insert(norm12Op{}, xs...)
	if err != nil {
		return nil, nil, err
	}
	return out[0], out[1], nil
}

type norm2Op struct{}

func (norm2Op) Name() string      { return "norm2" }
func (norm2Op) NOut(int) int      { return 1 }
func (norm2Op) Commutative() bool { return true }

func (norm2Op) Eval(in []arith.Value) ([]arith.Value, error) {
	s, err := sumOfSquares(in)
	if err != nil {
		return nil, err
	}
	r, err := s.Sqrt()
	if err != nil {
		return nil, err
	}
	return []arith.Value{r}, nil
}

type norm12Op struct{}

func (norm12Op) Name() string      { return "norm12" }
func (norm12Op) NOut(int) int      { return 2 }
func (norm12Op) Commutative() bool { return true }

func (norm12Op) Eval(in []arith.Value) ([]arith.Value, error) {
	// unary case: |x| serves both slots
	if len(in) == 1 {
		a, err := in[0].Fabs()
		if err != nil {
			return nil, err
		}
		return []arith.Value{a, a}, nil
	}
	s, err := sumOfSquares(in)
	if err != nil {
		return nil, err
	}
	n2, err := s.Sqrt()
	if err != nil {
		return nil, err
	}
	n1, err := in[0].Fabs()
	if err != nil {
		return nil, err
	}
	for _, x := range in[1:] {
		a, err := x.Fabs()
		if err != nil {
			return nil, err
		}
		if n1, err = n1.Add(a); err != nil {
			return nil, err
		}
	}
	return []arith.Value{n2, n1}, nil
}

func sumOfSquares(in []arith.Value) (arith.Value, error) {
	acc, err := in[0].Sqr()
	if err != nil {
		return nil, err
	}
	for _, x := range in[1:] {
		s, err := x.Sqr()
		if err != nil {
			return nil, err
		}
		if acc, err = acc.Add(s); err != nil {
			return nil, err
		}
	}
	return acc, nil
}
