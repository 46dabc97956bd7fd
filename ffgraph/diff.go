package ffgraph

import (
	"fmt"

	"github.com/factolab/facto/arith"
)

const twoOverSqrtPi = 1.1283791670955126

// localJac builds the vertex's local Jacobian as graph expressions: one row
// per output, one column per input. External operations use their analytic
// rule when supplied and otherwise fall back to re-evaluating the operation
// over the dual-number payload seeded on the vertex's own inputs.
func localJac(op *Op) ([][]*Var, error) {
	g := op.In[0].g
	if op.Code == OpExtern {
		if dr, ok := op.Def.(DerivRule); ok {
			return dr.Deriv(op.In)
		}
		return dualJac(op)
	}

	x := op.In[0]
	out := op.Out[0]
	row := func(ds ...*Var) [][]*Var { return [][]*Var{ds} }
	one := g.Const(1)

	switch op.Code {
	case OpAdd:
		return row(one, one), nil
	case OpSub:
		return row(one, g.Const(-1)), nil
	case OpNeg:
		return row(g.Const(-1)), nil
	case OpMul:
		return row(op.In[1], op.In[0]), nil
	case OpDiv:
		d0, err := g.binary(OpDiv, one, op.In[1])
		if err != nil {
			return nil, err
		}
		d1, err := g.binary(OpDiv, out, op.In[1])
		if err != nil {
			return nil, err
		}
		if d1, err = g.unary(OpNeg, 0, d1); err != nil {
			return nil, err
		}
		return row(d0, d1), nil
	case OpExp:
		return row(out), nil
	case OpLog:
		d, err := g.binary(OpDiv, one, x)
		if err != nil {
			return nil, err
		}
		return row(d), nil
	case OpSqrt:
		d, err := g.binary(OpDiv, g.Const(0.5), out)
		if err != nil {
			return nil, err
		}
		return row(d), nil
	case OpSqr:
		d, err := g.binary(OpMul, g.Const(2), x)
		if err != nil {
			return nil, err
		}
		return row(d), nil
	case OpPow:
		xp, err := g.unary(OpPow, op.Param-1, x)
		if err != nil {
			return nil, err
		}
		d, err := g.binary(OpMul, g.Const(float64(op.Param)), xp)
		if err != nil {
			return nil, err
		}
		return row(d), nil
	case OpSin:
		d, err := g.unary(OpCos, 0, x)
		if err != nil {
			return nil, err
		}
		return row(d), nil
	case OpCos:
		s, err := g.unary(OpSin, 0, x)
		if err != nil {
			return nil, err
		}
		d, err := g.unary(OpNeg, 0, s)
		if err != nil {
			return nil, err
		}
		return row(d), nil
	case OpTan:
		t2, err := g.unary(OpSqr, 0, out)
		if err != nil {
			return nil, err
		}
		d, err := g.binary(OpAdd, one, t2)
		if err != nil {
			return nil, err
		}
		return row(d), nil
	case OpAsin, OpAcos:
		d, err := asinDerivExpr(g, x)
		if err != nil {
			return nil, err
		}
		if op.Code == OpAcos {
			if d, err = g.unary(OpNeg, 0, d); err != nil {
				return nil, err
			}
		}
		return row(d), nil
	case OpAtan:
		x2, err := g.unary(OpSqr, 0, x)
		if err != nil {
			return nil, err
		}
		den, err := g.binary(OpAdd, one, x2)
		if err != nil {
			return nil, err
		}
		d, err := g.binary(OpDiv, one, den)
		if err != nil {
			return nil, err
		}
		return row(d), nil
	case OpSinh:
		d, err := g.unary(OpCosh, 0, x)
		if err != nil {
			return nil, err
		}
		return row(d), nil
	case OpCosh:
		d, err := g.unary(OpSinh, 0, x)
		if err != nil {
			return nil, err
		}
		return row(d), nil
	case OpTanh:
		t2, err := g.unary(OpSqr, 0, out)
		if err != nil {
			return nil, err
		}
		d, err := g.binary(OpSub, one, t2)
		if err != nil {
			return nil, err
		}
		return row(d), nil
	case OpErf, OpErfc:
		d, err := erfDerivExpr(g, x)
		if err != nil {
			return nil, err
		}
		if op.Code == OpErfc {
			if d, err = g.unary(OpNeg, 0, d); err != nil {
				return nil, err
			}
		}
		return row(d), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNonDifferentiable, op.Name())
}

func asinDerivExpr(g *Graph, x *Var) (*Var, error) {
	x2, err := g.unary(OpSqr, 0, x)
	if err != nil {
		return nil, err
	}
	den, err := g.binary(OpSub, g.Const(1), x2)
	if err != nil {
		return nil, err
	}
	if den, err = g.unary(OpSqrt, 0, den); err != nil {
		return nil, err
	}
	return g.binary(OpDiv, g.Const(1), den)
}

func erfDerivExpr(g *Graph, x *Var) (*Var, error) {
	x2, err := g.unary(OpSqr, 0, x)
	if err != nil {
		return nil, err
	}
	nx2, err := g.unary(OpNeg, 0, x2)
	if err != nil {
		return nil, err
	}
	e, err := g.unary(OpExp, 0, nx2)
	if err != nil {
		return nil, err
	}
	return g.binary(OpMul, g.Const(twoOverSqrtPi), e)
}

// dualJac derives an external vertex's local Jacobian by running its generic
// evaluation over the dual-number payload with the vertex's own inputs as
// differentiation directions.
func dualJac(op *Op) ([][]*Var, error) {
	n := len(op.In)
	in := make([]arith.Value, n)
	for i, v := range op.In {
		in[i] = arith.Seed(v, n, i)
	}
	out, err := op.Def.Eval(in)
	if err != nil {
		return nil, fmt.Errorf("ffgraph: dual fallback for %s: %w", op.Name(), err)
	}
	if len(out) != len(op.Out) {
		return nil, fmt.Errorf("%w: %s produced %d of %d results", ErrArity, op.Name(), len(out), len(op.Out))
	}
	jac := make([][]*Var, len(out))
	for k, o := range out {
		d, ok := o.(arith.Dual)
		if !ok {
			return nil, fmt.Errorf("ffgraph: dual fallback for %s returned %T: %w", op.Name(), o, arith.ErrInternal)
		}
		jac[k] = make([]*Var, n)
		for i := range jac[k] {
			w, ok := d.Dot[i].(*Var)
			if !ok {
				return nil, fmt.Errorf("ffgraph: dual fallback for %s: derivative is %T: %w", op.Name(), d.Dot[i], arith.ErrInternal)
			}
			jac[k][i] = w
		}
	}
	return jac, nil
}

// FAD builds the Jacobian of outs with respect to vars by forward
// accumulation: jac[i][j] = d outs[i] / d vars[j], each entry a new graph
// node.
func (g *Graph) FAD(outs, vars []*Var) ([][]*Var, error) {
	sg, err := g.Subgraph(outs...)
	if err != nil {
		return nil, err
	}
	zero, one := g.Const(0), g.Const(1)
	nd := len(vars)

	tangent := make(map[*Var][]*Var, len(sg.Leaves))
	for _, v := range sg.Leaves {
		t := make([]*Var, nd)
		for j := range t {
			t[j] = zero
			if vars[j] == v {
				t[j] = one
			}
		}
		tangent[v] = t
	}

	for _, op := range sg.Ops {
		jac, err := localJac(op)
		if err != nil {
			return nil, err
		}
		for k, w := range op.Out {
			t := make([]*Var, nd)
			for j := 0; j < nd; j++ {
				acc := zero
				for i, in := range op.In {
					term, err := g.binary(OpMul, jac[k][i], tangent[in][j])
					if err != nil {
						return nil, err
					}
					if acc, err = g.binary(OpAdd, acc, term); err != nil {
						return nil, err
					}
				}
				t[j] = acc
			}
			tangent[w] = t
		}
	}

	out := make([][]*Var, len(outs))
	for i, v := range outs {
		t, ok := tangent[v]
		if !ok {
			// output is a leaf
			t = make([]*Var, nd)
			for j := range t {
				t[j] = zero
				if vars[j] == v {
					t[j] = one
				}
			}
		}
		out[i] = t
	}
	return out, nil
}

// BAD builds the same Jacobian by reverse accumulation, one backward sweep
// per output.
func (g *Graph) BAD(outs, vars []*Var) ([][]*Var, error) {
	sg, err := g.Subgraph(outs...)
	if err != nil {
		return nil, err
	}
	zero, one := g.Const(0), g.Const(1)

	jacs := make(map[*Op][][]*Var, len(sg.Ops))
	for _, op := range sg.Ops {
		j, err := localJac(op)
		if err != nil {
			return nil, err
		}
		jacs[op] = j
	}

	out := make([][]*Var, len(outs))
	for i, target := range outs {
		adj := map[*Var]*Var{target: one}
		for k := len(sg.Ops) - 1; k >= 0; k-- {
			op := sg.Ops[k]
			jac := jacs[op]
			for oi, w := range op.Out {
				a, ok := adj[w]
				if !ok {
					continue
				}
				for ii, in := range op.In {
					term, err := g.binary(OpMul, a, jac[oi][ii])
					if err != nil {
						return nil, err
					}
					prev, ok := adj[in]
					if !ok {
						prev = zero
					}
					if adj[in], err = g.binary(OpAdd, prev, term); err != nil {
						return nil, err
					}
				}
			}
		}
		out[i] = make([]*Var, len(vars))
		for j, v := range vars {
			a, ok := adj[v]
			if !ok {
				a = zero
			}
			out[i][j] = a
		}
	}
	return out, nil
}
