package extop

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/ffgraph"
)

// Det inserts the determinant of a square matrix given as n² inputs in
// row-major order. The degenerate sizes resolve at insertion: a 0×0 input
// yields the constant zero and a 1×1 input the entry itself.
func Det(g *ffgraph.Graph, xs ...*ffgraph.Var) (*ffgraph.Var, error) {
	n := isqrt(len(xs))
	if n*n != len(xs) {
		return nil, fmt.Errorf("%w: %d entries are not a square matrix", ErrShape, len(xs))
	}
	switch n {
	case 0:
		return g.Const(0), nil
	case 1:
		return xs[0], nil
	}
	out, err := g.Insert(detOp{}, xs...)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func isqrt(n int) int {
	r := int(math.Round(math.Sqrt(float64(n))))
	for r*r > n {
		r--
	}
	return r
}

type detOp struct{}

func (detOp) Name() string      { return "det" }
func (detOp) NOut(int) int      { return 1 }
func (detOp) Commutative() bool { return false }

// Dep classifies the determinant's dependence: quadratic for a 2×2 input,
// polynomial beyond.
func (detOp) Dep(in []*ffgraph.Var) ffgraph.Dep {
	d := ffgraph.Dep{}
	for _, v := range in {
		d = d.Merge(v.Dep())
	}
	if len(in) == 4 {
		return d.Raise(ffgraph.DepQuadratic)
	}
	return d.Raise(ffgraph.DepPolynomial)
}

func (detOp) Eval(in []arith.Value) ([]arith.Value, error) {
	n := isqrt(len(in))
	if n*n != len(in) || n < 2 {
		return nil, fmt.Errorf("%w: determinant of %d entries", ErrShape, len(in))
	}
	// numeric fast path through an LU factorization
	if data, ok := floats(in); ok {
		return []arith.Value{arith.Real(mat.Det(mat.NewDense(n, n, data)))}, nil
	}
	d, err := cofactorDet(in, n)
	if err != nil {
		return nil, err
	}
	return []arith.Value{d}, nil
}

func floats(in []arith.Value) ([]float64, bool) {
	out := make([]float64, len(in))
	for i, v := range in {
		f, ok := arith.Float(v)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// cofactorDet expands along the first row, recursively. Exponential in n,
// used only for non-numeric payloads where no factorization applies.
func cofactorDet(m []arith.Value, n int) (arith.Value, error) {
	if n == 1 {
		return m[0], nil
	}
	if n == 2 {
		ad, err := m[0].Mul(m[3])
		if err != nil {
			return nil, err
		}
		bc, err := m[1].Mul(m[2])
		if err != nil {
			return nil, err
		}
		return ad.Sub(bc)
	}
	var det arith.Value
	for j := 0; j < n; j++ {
		minor := make([]arith.Value, 0, (n-1)*(n-1))
		for r := 1; r < n; r++ {
			for c := 0; c < n; c++ {
				if c != j {
					minor = append(minor, m[r*n+c])
				}
			}
		}
		sub, err := cofactorDet(minor, n-1)
		if err != nil {
			return nil, err
		}
		term, err := m[j].Mul(sub)
		if err != nil {
			return nil, err
		}
		if j%2 == 1 {
			if term, err = term.Neg(); err != nil {
				return nil, err
			}
		}
		if det == nil {
			det = term
			continue
		}
		if det, err = det.Add(term); err != nil {
			return nil, err
		}
	}
	return det, nil
}
