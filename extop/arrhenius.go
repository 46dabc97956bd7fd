package extop

import (
	"fmt"

	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/ffgraph"
)

// Arrh inserts the Arrhenius term exp(−C/x). The coefficient is stored by
// value inside the operation.
func Arrh(g *ffgraph.Graph, c float64, x *ffgraph.Var) (*ffgraph.Var, error) {
	out, err := g.Insert(ArrhOp{C: c}, x)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// ArrhOp is the Arrhenius operation exp(−C/x). The coefficient participates
// in the registry name, so instances with different coefficients never
// collide under deduplication.
type ArrhOp struct {
	C float64
}

func (o ArrhOp) Name() string      { return fmt.Sprintf("arrh[%g]", o.C) }
func (ArrhOp) NOut(int) int        { return 1 }
func (ArrhOp) Commutative() bool   { return false }

func (o ArrhOp) Eval(in []arith.Value) ([]arith.Value, error) {
	if len(in) != 1 {
		return nil, ErrShape
	}
	q, err := in[0].Lift(-o.C).Div(in[0])
	if err != nil {
		return nil, err
	}
	e, err := q.Exp()
	if err != nil {
		return nil, err
	}
	return []arith.Value{e}, nil
}

// Deriv supplies the analytic rule d/dx exp(−C/x) = (C/x²)·exp(−C/x).
func (o ArrhOp) Deriv(in []*ffgraph.Var) ([][]*ffgraph.Var, error) {
	x := in[0]
	x2, err := x.Sqr()
	if err != nil {
		return nil, err
	}
	coef, err := x.Lift(o.C).Div(x2)
	if err != nil {
		return nil, err
	}
	val, err := o.Eval([]arith.Value{arith.Value(x)})
	if err != nil {
		return nil, err
	}
	d, err := coef.Mul(val[0])
	if err != nil {
		return nil, err
	}
	return [][]*ffgraph.Var{{d.(*ffgraph.Var)}}, nil
}
