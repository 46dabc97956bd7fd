package extop

import (
	"fmt"
	"math"

	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/ffgraph"
	"github.com/factolab/facto/interval"
	"github.com/factolab/facto/mccormick"
	"github.com/factolab/facto/polrelax"
)

// XLog inserts x·log x as one external vertex.
func XLog(g *ffgraph.Graph, x *ffgraph.Var) (*ffgraph.Var, error) {
	out, err := g.Insert(XLogOp{}, x)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// XLogOp is the x·log x operation. It evaluates generically through the
// trait surface, with a dedicated rule for the McCormick payload (the product
// form loses the function's convexity; the specialized envelope does not).
type XLogOp struct{}

func (XLogOp) Name() string      { return "xlog" }
func (XLogOp) NOut(int) int      { return 1 }
func (XLogOp) Commutative() bool { return false }

func (XLogOp) Eval(in []arith.Value) ([]arith.Value, error) {
	if len(in) != 1 {
		return nil, ErrShape
	}
	if mv, ok := in[0].(mccormick.Var); ok {
		r, err := mccormick.XLog(mv)
		if err != nil {
			return nil, err
		}
		return []arith.Value{r}, nil
	}
	l, err := in[0].Log()
	if err != nil {
		return nil, err
	}
	p, err := in[0].Mul(l)
	if err != nil {
		return nil, err
	}
	return []arith.Value{p}, nil
}

// ForwardRelax relaxes the vertex directly instead of splitting it into a
// log and a product: x·log x is convex on its domain, so the tangent
// sandwich under-estimates and the chord over-estimates, which is tighter
// than the bilinear envelope the generic path would emit.
func (XLogOp) ForwardRelax(im *polrelax.Image, in []*polrelax.Var) ([]*polrelax.Var, error) {
	x := in[0]
	lo, up := x.Range().Bounds()
	if lo <= 0 {
		return nil, fmt.Errorf("extop: xlog over [%g, %g]: %w", lo, up, arith.ErrDomain)
	}
	f := func(t float64) float64 { return t * math.Log(t) }
	df := func(t float64) float64 { return math.Log(t) + 1 }

	outLo, outUp := math.Min(f(lo), f(up)), math.Max(f(lo), f(up))
	if x.Range().Contains(1 / math.E) {
		outLo = -1 / math.E
	}
	w := im.NewAux(interval.New(outLo, outUp))
	im.SandwichCuts(x, w, f, df, polrelax.GE)
	im.SecantCut(x, w, f, polrelax.LE)
	return []*polrelax.Var{w}, nil
}

// Deriv supplies the analytic rule d(x·log x)/dx = log x + 1.
func (XLogOp) Deriv(in []*ffgraph.Var) ([][]*ffgraph.Var, error) {
	l, err := in[0].Log()
	if err != nil {
		return nil, err
	}
	d, err := l.AddConst(1)
	if err != nil {
		return nil, err
	}
	return [][]*ffgraph.Var{{d.(*ffgraph.Var)}}, nil
}
