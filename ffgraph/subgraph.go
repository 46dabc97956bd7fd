package ffgraph

import (
	"fmt"

	"github.com/factolab/facto/arith"
)

// Subgraph is the minimal topologically ordered vertex list whose evaluation
// produces a requested set of outputs from the graph's leaves, excluding dead
// computation.
type Subgraph struct {
	g      *Graph
	Ops    []*Op
	Leaves []*Var
	Outs   []*Var
}

// Subgraph extracts the subgraph producing the given outputs.
func (g *Graph) Subgraph(outs ...*Var) (*Subgraph, error) {
	sg := &Subgraph{g: g, Outs: outs}
	seenOp := make(map[*Op]bool)
	seenLeaf := make(map[*Var]bool)

	var visit func(v *Var) error
	visit = func(v *Var) error {
		if v.g != g {
			return fmt.Errorf("%w (subgraph)", ErrMixedGraph)
		}
		if v.def == nil {
			if !seenLeaf[v] {
				seenLeaf[v] = true
				sg.Leaves = append(sg.Leaves, v)
			}
			return nil
		}
		if seenOp[v.def] {
			return nil
		}
		seenOp[v.def] = true
		for _, in := range v.def.In {
			if err := visit(in); err != nil {
				return err
			}
		}
		sg.Ops = append(sg.Ops, v.def)
		return nil
	}
	for _, v := range outs {
		if err := visit(v); err != nil {
			return nil, err
		}
	}
	return sg, nil
}

// ExternHook lets a caller intercept external vertices during evaluation;
// ok=false falls through to the definition's generic Eval. Composition and
// the polyhedral forward pass are the interceptors.
type ExternHook func(op *Op, in []arith.Value) (out []arith.Value, ok bool, err error)

// EvalWith walks the subgraph with a caller-supplied leaf binding and an
// optional external-vertex interceptor, returning every node's value.
func (sg *Subgraph) EvalWith(leafVal func(*Var) (arith.Value, error), hook ExternHook) (map[*Var]arith.Value, error) {
	return sg.eval(leafVal, hook)
}

// eval walks the subgraph in topological order, dispatching each vertex to
// the payload's trait surface. leafVal supplies the payload value bound to
// each leaf.
func (sg *Subgraph) eval(leafVal func(*Var) (arith.Value, error), hook ExternHook) (map[*Var]arith.Value, error) {
	vals := make(map[*Var]arith.Value, len(sg.Leaves)+len(sg.Ops))
	for _, v := range sg.Leaves {
		pv, err := leafVal(v)
		if err != nil {
			return nil, err
		}
		vals[v] = pv
	}
	for _, op := range sg.Ops {
		in := make([]arith.Value, len(op.In))
		for i, v := range op.In {
			pv, ok := vals[v]
			if !ok {
				return nil, fmt.Errorf("ffgraph: vertex %s input %s unevaluated: %w", op.Name(), v, arith.ErrInternal)
			}
			in[i] = pv
		}
		var out []arith.Value
		var err error
		if op.Code == OpExtern {
			var handled bool
			if hook != nil {
				out, handled, err = hook(op, in)
			}
			if err == nil && !handled {
				out, err = op.Def.Eval(in)
			}
			if err == nil && len(out) != len(op.Out) {
				err = fmt.Errorf("%w: %s produced %d of %d results", ErrArity, op.Name(), len(out), len(op.Out))
			}
		} else {
			var r arith.Value
			r, err = applyBuiltin(op.Code, op.Param, in)
			out = []arith.Value{r}
		}
		if err != nil {
			return nil, fmt.Errorf("ffgraph: eval %s: %w", op.Name(), err)
		}
		for k, w := range op.Out {
			vals[w] = out[k]
		}
	}
	return vals, nil
}

// Eval computes the subgraph's outputs with the payload values vals bound to
// the leaf variables vars. Constants are lifted into the payload kind of the
// first bound value.
func (sg *Subgraph) Eval(vars []*Var, vals []arith.Value) ([]arith.Value, error) {
	if len(vars) != len(vals) {
		return nil, fmt.Errorf("%w: %d variables, %d values", ErrLength, len(vars), len(vals))
	}
	bound := make(map[*Var]arith.Value, len(vars))
	for i, v := range vars {
		bound[v] = vals[i]
	}
	var ref arith.Value = arith.Real(0)
	if len(vals) > 0 {
		ref = vals[0]
	}
	all, err := sg.eval(func(v *Var) (arith.Value, error) {
		if pv, ok := bound[v]; ok {
			return pv, nil
		}
		if v.isCst {
			return ref.Lift(v.cst), nil
		}
		return nil, fmt.Errorf("%w: %s", ErrMissingLeaf, v)
	}, nil)
	if err != nil {
		return nil, err
	}
	out := make([]arith.Value, len(sg.Outs))
	for i, v := range sg.Outs {
		pv, ok := all[v]
		if !ok {
			// a requested output can itself be a leaf
			if pv, ok = bound[v]; !ok {
				if !v.isCst {
					return nil, fmt.Errorf("%w: %s", ErrMissingLeaf, v)
				}
				pv = ref.Lift(v.cst)
			}
		}
		out[i] = pv
	}
	return out, nil
}

// Eval extracts the subgraph for outs and evaluates it in one call.
func (g *Graph) Eval(outs []*Var, vars []*Var, vals []arith.Value) ([]arith.Value, error) {
	sg, err := g.Subgraph(outs...)
	if err != nil {
		return nil, err
	}
	return sg.Eval(vars, vals)
}
