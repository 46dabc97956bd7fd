package ffgraph

import (
	"fmt"

	"github.com/factolab/facto/arith"
)

// Compose structurally substitutes the inner variables by replacement
// expressions inside the outs expressions: the result represents G∘F without
// re-declaring leaves. External vertices are re-inserted on the substituted
// inputs, preserving their structure.
func (g *Graph) Compose(outs, inner, repl []*Var) ([]*Var, error) {
	if len(inner) != len(repl) {
		return nil, fmt.Errorf("%w: %d inner variables, %d replacements", ErrLength, len(inner), len(repl))
	}
	for _, r := range repl {
		if r.g != g {
			return nil, fmt.Errorf("%w (compose)", ErrMixedGraph)
		}
	}
	sg, err := g.Subgraph(outs...)
	if err != nil {
		return nil, err
	}
	sub := make(map[*Var]*Var, len(inner))
	for i, v := range inner {
		sub[v] = repl[i]
	}
	vals, err := sg.eval(func(v *Var) (arith.Value, error) {
		if r, ok := sub[v]; ok {
			return r, nil
		}
		return v, nil
	}, func(op *Op, in []arith.Value) ([]arith.Value, bool, error) {
		vin := make([]*Var, len(in))
		for i, pv := range in {
			w, ok := pv.(*Var)
			if !ok {
				return nil, false, fmt.Errorf("ffgraph: compose input is %T: %w", pv, arith.ErrInternal)
			}
			vin[i] = w
		}
		out, err := g.Insert(op.Def, vin...)
		if err != nil {
			return nil, false, err
		}
		res := make([]arith.Value, len(out))
		for i, w := range out {
			res[i] = w
		}
		return res, true, nil
	})
	if err != nil {
		return nil, err
	}
	res := make([]*Var, len(outs))
	for i, v := range outs {
		pv := vals[v]
		if r, ok := sub[v]; ok {
			pv = r
		}
		w, ok := pv.(*Var)
		if !ok {
			return nil, fmt.Errorf("ffgraph: compose result is %T: %w", pv, arith.ErrInternal)
		}
		res[i] = w
	}
	return res, nil
}

// Lifted is a flattened reformulation: every operation vertex of the original
// subgraph is replaced by a fresh auxiliary variable constrained, through one
// equality expression per output, to equal the vertex applied to the lifted
// inputs. Each equality therefore contains at most one nonlinear term.
type Lifted struct {
	// Aux holds the fresh auxiliary variables, in topological order of the
	// vertices that defined them.
	Aux []*Var
	// Eqs holds the defining equalities as expressions constrained to zero.
	Eqs []*Var
	// Outs holds the lifted handles of the requested outputs.
	Outs []*Var
}

// Lift flattens the subgraph producing outs. External operations are lifted
// as opaque equalities: the vertex is re-inserted on the lifted inputs and
// each of its outputs is pinned to one auxiliary variable.
func (g *Graph) Lift(outs ...*Var) (*Lifted, error) {
	sg, err := g.Subgraph(outs...)
	if err != nil {
		return nil, err
	}
	lift := &Lifted{}
	lifted := make(map[*Var]*Var)
	for _, v := range sg.Leaves {
		lifted[v] = v
	}

	pin := func(expr *Var) (*Var, error) {
		aux := g.NewVar()
		eq, err := g.binary(OpSub, expr, aux)
		if err != nil {
			return nil, err
		}
		lift.Aux = append(lift.Aux, aux)
		lift.Eqs = append(lift.Eqs, eq)
		return aux, nil
	}

	for _, op := range sg.Ops {
		in := make([]*Var, len(op.In))
		for i, v := range op.In {
			w, ok := lifted[v]
			if !ok {
				// constant leaves shared with other vertices
				w = v
			}
			in[i] = w
		}
		var exprs []*Var
		if op.Code == OpExtern {
			exprs, err = g.Insert(op.Def, in...)
			if err != nil {
				return nil, err
			}
		} else {
			var e *Var
			if len(in) == 2 {
				e, err = g.binary(op.Code, in[0], in[1])
			} else {
				e, err = g.unary(op.Code, op.Param, in[0])
			}
			if err != nil {
				return nil, err
			}
			exprs = []*Var{e}
		}
		for k, w := range op.Out {
			aux, err := pin(exprs[k])
			if err != nil {
				return nil, err
			}
			lifted[w] = aux
		}
	}

	lift.Outs = make([]*Var, len(outs))
	for i, v := range outs {
		w, ok := lifted[v]
		if !ok {
			w = v
		}
		lift.Outs[i] = w
	}
	return lift, nil
}
