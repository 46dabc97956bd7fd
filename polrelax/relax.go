package polrelax

import (
	"fmt"

	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/ffgraph"
	"github.com/factolab/facto/interval"
)

// ForwardRelaxer is the optional forward rule of an external operation: given
// polyhedral inputs it declares the output variables and emits the
// operation's own cuts. Externals without it are propagated generically
// through their Eval over the *Var payload.
type ForwardRelaxer interface {
	ForwardRelax(im *Image, in []*Var) ([]*Var, error)
}

// ReverseRelaxer is the optional reverse rule of an external operation,
// invoked after the forward pass with every range known. A rule that cannot
// tighten the image may add no cuts.
type ReverseRelaxer interface {
	ReverseRelax(im *Image, in, out []*Var) error
}

// Relax clears the image and rebuilds it for the outputs outs over the box
// bounds of the leaf variables vars: one polyhedral variable per graph leaf,
// a forward sweep emitting each vertex's cuts, then a reverse sweep over the
// external operations' ReverseRelax rules. The returned variables mirror
// outs.
func (im *Image) Relax(g *ffgraph.Graph, outs, vars []*ffgraph.Var, box []interval.Interval) ([]*Var, error) {
	if len(vars) != len(box) {
		return nil, fmt.Errorf("polrelax: %d variables, %d ranges: %w", len(vars), len(box), ffgraph.ErrLength)
	}
	im.Reset()
	sg, err := g.Subgraph(outs...)
	if err != nil {
		return nil, err
	}

	bound := make(map[*ffgraph.Var]*Var, len(vars))
	for i, v := range vars {
		bound[v] = im.newVar(KindLeaf, box[i], v)
	}
	leafVal := func(v *ffgraph.Var) (arith.Value, error) {
		if pv, ok := bound[v]; ok {
			return pv, nil
		}
		if c, ok := v.Const(); ok {
			pv := im.newVar(KindAux, interval.Point(c), v)
			im.AddCut(EQ, c, Term{pv, 1})
			return pv, nil
		}
		return nil, fmt.Errorf("%w: %s", ffgraph.ErrMissingLeaf, v)
	}

	hook := func(op *ffgraph.Op, in []arith.Value) ([]arith.Value, bool, error) {
		fr, ok := op.Def.(ForwardRelaxer)
		if !ok {
			return nil, false, nil
		}
		pin, err := im.polVars(op.Name(), in)
		if err != nil {
			return nil, false, err
		}
		pout, err := fr.ForwardRelax(im, pin)
		if err != nil {
			return nil, false, err
		}
		out := make([]arith.Value, len(pout))
		for i, pv := range pout {
			out[i] = pv
		}
		return out, true, nil
	}

	vals, err := sg.EvalWith(leafVal, hook)
	if err != nil {
		return nil, err
	}
	for node, pv := range vals {
		if v, ok := pv.(*Var); ok {
			if v.node == nil {
				v.node = node
			}
			im.byNode[node] = v
		}
	}

	for i := len(sg.Ops) - 1; i >= 0; i-- {
		op := sg.Ops[i]
		if op.Code != ffgraph.OpExtern {
			continue
		}
		rr, ok := op.Def.(ReverseRelaxer)
		if !ok {
			continue
		}
		pin, err := im.nodeVars(op.Name(), vals, op.In)
		if err != nil {
			return nil, err
		}
		pout, err := im.nodeVars(op.Name(), vals, op.Out)
		if err != nil {
			return nil, err
		}
		if err := rr.ReverseRelax(im, pin, pout); err != nil {
			return nil, fmt.Errorf("polrelax: reverse %s: %w", op.Name(), err)
		}
	}

	res := make([]*Var, len(sg.Outs))
	for i, v := range sg.Outs {
		pv, ok := vals[v].(*Var)
		if !ok {
			return nil, fmt.Errorf("polrelax: output %s not relaxed: %w", v, arith.ErrInternal)
		}
		res[i] = pv
	}
	return res, nil
}

func (im *Image) polVars(name string, in []arith.Value) ([]*Var, error) {
	out := make([]*Var, len(in))
	for i, pv := range in {
		v, ok := pv.(*Var)
		if !ok {
			return nil, fmt.Errorf("polrelax: %s input %d is %T: %w", name, i, pv, arith.ErrKindMismatch)
		}
		if v.img != im {
			return nil, fmt.Errorf("polrelax: %s input %d from another image: %w", name, i, arith.ErrModelMismatch)
		}
		out[i] = v
	}
	return out, nil
}

func (im *Image) nodeVars(name string, vals map[*ffgraph.Var]arith.Value, nodes []*ffgraph.Var) ([]*Var, error) {
	in := make([]arith.Value, len(nodes))
	for i, n := range nodes {
		in[i] = vals[n]
	}
	return im.polVars(name, in)
}
