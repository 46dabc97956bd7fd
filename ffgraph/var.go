package ffgraph

import (
	"fmt"
	"math"

	"github.com/factolab/facto/arith"
)

// Var is a handle into a shared expression graph: either a leaf (declared
// variable or constant) or the output slot of an operation vertex. Var
// implements arith.Value, so a graph expression can itself flow through any
// generic evaluation, which is what structural composition and the
// dual-number differentiation fallback build on.
type Var struct {
	g     *Graph
	id    int
	name  string
	dep   Dep
	cst   float64
	isCst bool

	def    *Op // vertex that produced this node; nil for leaves
	outIdx int
}

// Graph reports the owning graph.
func (v *Var) Graph() *Graph { return v.g }

// ID reports the node's index inside its graph.
func (v *Var) ID() int { return v.id }

// Dep reports the node's dependency summary.
func (v *Var) Dep() Dep { return v.dep }

// Def reports the defining operation vertex and the output slot, or nil for
// leaves.
func (v *Var) Def() (*Op, int) { return v.def, v.outIdx }

// Const reports the constant value when the node is a constant leaf.
func (v *Var) Const() (float64, bool) { return v.cst, v.isCst }

func (v *Var) String() string {
	if v.isCst {
		return fmt.Sprintf("%g", v.cst)
	}
	return v.name
}

func (v *Var) other(op string, y arith.Value) (*Var, error) {
	w, ok := y.(*Var)
	if !ok {
		return nil, fmt.Errorf("ffgraph: %s with %T operand: %w", op, y, arith.ErrKindMismatch)
	}
	if w.g != v.g {
		return nil, fmt.Errorf("%w (%s)", ErrMixedGraph, op)
	}
	return w, nil
}

func (v *Var) Lift(c float64) arith.Value { return v.g.Const(c) }

func (v *Var) Add(y arith.Value) (arith.Value, error) {
	w, err := v.other("Add", y)
	if err != nil {
		return nil, err
	}
	return v.g.binary(OpAdd, v, w)
}

func (v *Var) Sub(y arith.Value) (arith.Value, error) {
	w, err := v.other("Sub", y)
	if err != nil {
		return nil, err
	}
	return v.g.binary(OpSub, v, w)
}

func (v *Var) Mul(y arith.Value) (arith.Value, error) {
	w, err := v.other("Mul", y)
	if err != nil {
		return nil, err
	}
	return v.g.binary(OpMul, v, w)
}

func (v *Var) Div(y arith.Value) (arith.Value, error) {
	w, err := v.other("Div", y)
	if err != nil {
		return nil, err
	}
	return v.g.binary(OpDiv, v, w)
}

func (v *Var) Min(y arith.Value) (arith.Value, error) {
	w, err := v.other("Min", y)
	if err != nil {
		return nil, err
	}
	return v.g.binary(OpMin, v, w)
}

func (v *Var) Max(y arith.Value) (arith.Value, error) {
	w, err := v.other("Max", y)
	if err != nil {
		return nil, err
	}
	return v.g.binary(OpMax, v, w)
}

func (v *Var) Neg() (arith.Value, error)  { return v.g.unary(OpNeg, 0, v) }
func (v *Var) Exp() (arith.Value, error)  { return v.g.unary(OpExp, 0, v) }
func (v *Var) Log() (arith.Value, error)  { return v.g.unary(OpLog, 0, v) }
func (v *Var) Sqrt() (arith.Value, error) { return v.g.unary(OpSqrt, 0, v) }
func (v *Var) Sqr() (arith.Value, error)  { return v.g.unary(OpSqr, 0, v) }
func (v *Var) Sin() (arith.Value, error)  { return v.g.unary(OpSin, 0, v) }
func (v *Var) Cos() (arith.Value, error)  { return v.g.unary(OpCos, 0, v) }
func (v *Var) Tan() (arith.Value, error)  { return v.g.unary(OpTan, 0, v) }
func (v *Var) Asin() (arith.Value, error) { return v.g.unary(OpAsin, 0, v) }
func (v *Var) Acos() (arith.Value, error) { return v.g.unary(OpAcos, 0, v) }
func (v *Var) Atan() (arith.Value, error) { return v.g.unary(OpAtan, 0, v) }
func (v *Var) Sinh() (arith.Value, error) { return v.g.unary(OpSinh, 0, v) }
func (v *Var) Cosh() (arith.Value, error) { return v.g.unary(OpCosh, 0, v) }
func (v *Var) Tanh() (arith.Value, error) { return v.g.unary(OpTanh, 0, v) }
func (v *Var) Erf() (arith.Value, error)  { return v.g.unary(OpErf, 0, v) }
func (v *Var) Erfc() (arith.Value, error) { return v.g.unary(OpErfc, 0, v) }
func (v *Var) Fabs() (arith.Value, error) { return v.g.unary(OpFabs, 0, v) }
func (v *Var) Relu() (arith.Value, error) { return v.g.unary(OpRelu, 0, v) }

func (v *Var) Pow(n int) (arith.Value, error)   { return v.g.unary(OpPow, n, v) }
func (v *Var) Cheb(n uint) (arith.Value, error) { return v.g.unary(OpCheb, int(n), v) }

func (v *Var) AddConst(c float64) (arith.Value, error) { return v.Add(v.g.Const(c)) }

func (v *Var) ScaleConst(c float64) (arith.Value, error) { return v.Mul(v.g.Const(c)) }

// Bound queries are defined for constant leaves only; symbolic nodes report
// NaN width-free bounds.
func (v *Var) Lo() float64 { return v.pointOr(math.NaN()) }
func (v *Var) Up() float64 { return v.pointOr(math.NaN()) }
func (v *Var) Mid() float64 {
	return v.pointOr(math.NaN())
}
func (v *Var) Diam() float64 {
	if v.isCst {
		return 0
	}
	return math.NaN()
}
func (v *Var) Mag() float64 {
	if v.isCst {
		return math.Abs(v.cst)
	}
	return math.NaN()
}

func (v *Var) pointOr(fallback float64) float64 {
	if v.isCst {
		return v.cst
	}
	return fallback
}

// Eq is structural: same node, or equal constants of the same graph.
func (v *Var) Eq(y arith.Value) bool {
	w, ok := y.(*Var)
	if !ok || w.g != v.g {
		return false
	}
	return w == v || (v.isCst && w.isCst && v.cst == w.cst)
}

func (v *Var) Lt(y arith.Value) bool {
	w, ok := y.(*Var)
	return ok && v.isCst && w.isCst && v.cst < w.cst
}

func (v *Var) Le(y arith.Value) bool {
	w, ok := y.(*Var)
	return ok && v.isCst && w.isCst && v.cst <= w.cst
}

func (v *Var) Hull(arith.Value) (arith.Value, error) {
	return nil, arith.NotImplemented("ffgraph", "Hull")
}

func (v *Var) Inter(arith.Value) (arith.Value, bool, error) {
	return nil, false, arith.NotImplemented("ffgraph", "Inter")
}
