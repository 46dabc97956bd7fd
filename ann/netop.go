package ann

import (
	"fmt"

	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/ffgraph"
	"github.com/factolab/facto/interval"
	"github.com/factolab/facto/mccormick"
	"github.com/factolab/facto/polrelax"
	"github.com/factolab/facto/superpos"
)

// Strategy selects how a NetOp participates in polyhedral relaxation.
type Strategy uint8

const (
	// Pol re-runs the network's own layers under the polyhedral payload.
	Pol Strategy = iota
	// Int bounds the outputs by interval propagation and adds no cuts.
	Int
	// MC adds subgradient cuts from a McCormick evaluation at the box
	// midpoint.
	MC
	// ISM adds weight-variable cuts from an interval superposition model.
	ISM
	// MCISM combines the MC and ISM cut sets.
	MCISM
	// ASM adds weight-variable cuts from a piecewise-linear superposition
	// model.
	ASM
)

func (s Strategy) String() string {
	switch s {
	case Pol:
		return "pol"
	case Int:
		return "int"
	case MC:
		return "mc"
	case ISM:
		return "ism"
	case MCISM:
		return "mcism"
	case ASM:
		return "asm"
	}
	return fmt.Sprintf("strategy(%d)", uint8(s))
}

// NetOp exposes a network as one external graph operation. Instances with
// different networks never collide under structural deduplication because
// the name embeds the network identity.
type NetOp struct {
	net       *Network
	strat     Strategy
	ndiv      int
	cutShadow bool
	name      string
}

// OpOption configures a NetOp.
type OpOption func(*NetOp)

// WithDivisions sets the partition count of the superposition strategies.
// Values below 1 are clamped.
func WithDivisions(n int) OpOption {
	return func(o *NetOp) {
		if n < 1 {
			n = 1
		}
		o.ndiv = n
	}
}

// WithShadowCuts additionally emits cuts from the ASM shadow decomposition.
func WithShadowCuts() OpOption {
	return func(o *NetOp) { o.cutShadow = true }
}

// NewOp wraps net with the given relaxation strategy.
func NewOp(net *Network, strat Strategy, opts ...OpOption) *NetOp {
	o := &NetOp{net: net, strat: strat, ndiv: 8}
	for _, fn := range opts {
		fn(o)
	}
	o.name = fmt.Sprintf("nn[%s@%p]", strat, net)
	return o
}

func (o *NetOp) Name() string { return o.name }

func (o *NetOp) NOut(nin int) int {
	if nin != o.net.NIn() {
		return 0
	}
	return o.net.NOut()
}

func (o *NetOp) Commutative() bool { return false }

func (o *NetOp) Eval(in []arith.Value) ([]arith.Value, error) {
	return o.net.Infer(in)
}

// Apply inserts the operation on the given graph inputs.
func (o *NetOp) Apply(g *ffgraph.Graph, xs ...*ffgraph.Var) ([]*ffgraph.Var, error) {
	if len(xs) != o.net.NIn() {
		return nil, fmt.Errorf("ann: %d inputs for width %d: %w", len(xs), o.net.NIn(), arith.ErrIndex)
	}
	return g.Insert(o, xs...)
}

// ForwardRelax declares the output variables. The Pol strategy re-runs the
// layers under the polyhedral payload, so its cuts appear here; every other
// strategy declares range-only auxiliaries and defers cuts to ReverseRelax.
func (o *NetOp) ForwardRelax(im *polrelax.Image, in []*polrelax.Var) ([]*polrelax.Var, error) {
	if o.strat == Pol {
		vals := make([]arith.Value, len(in))
		for i, v := range in {
			vals[i] = v
		}
		res, err := o.net.Infer(vals)
		if err != nil {
			return nil, err
		}
		out := make([]*polrelax.Var, len(res))
		for j, r := range res {
			pv, ok := r.(*polrelax.Var)
			if !ok {
				return nil, fmt.Errorf("ann: polyhedral inference produced %T: %w", r, arith.ErrKindMismatch)
			}
			out[j] = pv
		}
		return out, nil
	}
	rngs, err := o.outputRanges(in)
	if err != nil {
		return nil, err
	}
	out := make([]*polrelax.Var, len(rngs))
	for j, rng := range rngs {
		out[j] = im.NewAux(rng)
	}
	return out, nil
}

// outputRanges bounds the outputs with the payload family of the strategy.
func (o *NetOp) outputRanges(in []*polrelax.Var) ([]interval.Interval, error) {
	vals := make([]arith.Value, len(in))
	switch o.strat {
	case ISM, MCISM:
		m, err := superpos.NewISModel(len(in), o.ndiv)
		if err != nil {
			return nil, err
		}
		for i, v := range in {
			iv, err := m.Var(i, v.Range())
			if err != nil {
				return nil, err
			}
			vals[i] = iv
		}
		res, err := o.net.Infer(vals)
		if err != nil {
			return nil, err
		}
		rngs := make([]interval.Interval, len(res))
		for j, r := range res {
			b, err := r.(*superpos.ISVar).B()
			if err != nil {
				return nil, err
			}
			rngs[j] = b
		}
		return rngs, nil
	case ASM:
		var opts []superpos.ASOption
		if o.cutShadow {
			opts = append(opts, superpos.WithShadow())
		}
		m, err := superpos.NewASModel(len(in), o.ndiv, opts...)
		if err != nil {
			return nil, err
		}
		for i, v := range in {
			av, err := m.Var(i, v.Range())
			if err != nil {
				return nil, err
			}
			vals[i] = av
		}
		res, err := o.net.Infer(vals)
		if err != nil {
			return nil, err
		}
		rngs := make([]interval.Interval, len(res))
		for j, r := range res {
			b, err := r.(*superpos.ASVar).B()
			if err != nil {
				return nil, err
			}
			rngs[j] = b
		}
		return rngs, nil
	default: // Int, MC
		for i, v := range in {
			vals[i] = v.Range()
		}
		res, err := o.net.Infer(vals)
		if err != nil {
			return nil, err
		}
		rngs := make([]interval.Interval, len(res))
		for j, r := range res {
			rngs[j] = r.(interval.Interval)
		}
		return rngs, nil
	}
}

// ReverseRelax emits the strategy's cuts now that every range is known.
func (o *NetOp) ReverseRelax(im *polrelax.Image, in, out []*polrelax.Var) error {
	switch o.strat {
	case Pol, Int:
		return nil
	case MC:
		return o.mcCuts(im, in, out)
	case ISM:
		return o.ismCuts(im, in, out)
	case MCISM:
		if err := o.mcCuts(im, in, out); err != nil {
			return err
		}
		return o.ismCuts(im, in, out)
	case ASM:
		return o.asmCuts(im, in, out)
	}
	return arith.NotImplemented("ann", o.strat.String())
}

// mcCuts evaluates the network under the McCormick payload seeded at the box
// midpoint and turns each output's convex/concave estimate plus subgradient
// into one supporting cut per side.
func (o *NetOp) mcCuts(im *polrelax.Image, in, out []*polrelax.Var) error {
	n := len(in)
	vals := make([]arith.Value, n)
	for i, v := range in {
		rng := v.Range()
		vals[i] = mccormick.New(rng, rng.Mid()).Seed(n, i)
	}
	res, err := o.net.Infer(vals)
	if err != nil {
		return err
	}
	for j, w := range out {
		mv, ok := res[j].(mccormick.Var)
		if !ok {
			return fmt.Errorf("ann: McCormick inference produced %T: %w", res[j], arith.ErrKindMismatch)
		}
		under := []polrelax.Term{{Var: w, Coef: 1}}
		over := []polrelax.Term{{Var: w, Coef: 1}}
		rhsU, rhsO := mv.Cv(), mv.Cc()
		for i, v := range in {
			mid := v.Range().Mid()
			su, so := mv.CvSub(i), mv.CcSub(i)
			under = append(under, polrelax.Term{Var: v, Coef: -su})
			over = append(over, polrelax.Term{Var: v, Coef: -so})
			rhsU -= su * mid
			rhsO -= so * mid
		}
		im.AddCut(polrelax.GE, rhsU, under...)
		im.AddCut(polrelax.LE, rhsO, over...)
	}
	return nil
}

// cellWeights declares one unit-range weight variable per cell of an input's
// partition, with the convex-combination and range-linking cuts.
func cellWeights(im *polrelax.Image, x *polrelax.Var, ndiv int) []*polrelax.Var {
	rng := x.Range()
	lo, up := rng.Bounds()
	h := (up - lo) / float64(ndiv)
	lam := make([]*polrelax.Var, ndiv)
	sum := make([]polrelax.Term, ndiv)
	loTie := []polrelax.Term{{Var: x, Coef: 1}}
	upTie := []polrelax.Term{{Var: x, Coef: 1}}
	for k := 0; k < ndiv; k++ {
		lam[k] = im.NewAux(interval.New(0, 1))
		sum[k] = polrelax.Term{Var: lam[k], Coef: 1}
		cellLo := lo + float64(k)*h
		cellUp := lo + float64(k+1)*h
		if k == ndiv-1 {
			cellUp = up
		}
		loTie = append(loTie, polrelax.Term{Var: lam[k], Coef: -cellLo})
		upTie = append(upTie, polrelax.Term{Var: lam[k], Coef: -cellUp})
	}
	im.AddCut(polrelax.EQ, 1, sum...)
	im.AddCut(polrelax.GE, 0, loTie...)
	im.AddCut(polrelax.LE, 0, upTie...)
	return lam
}

// ismCuts evaluates the network under the interval superposition payload and
// links each output to per-(input, cell) weight variables: the output sits
// between the weighted cell coefficient bounds.
func (o *NetOp) ismCuts(im *polrelax.Image, in, out []*polrelax.Var) error {
	m, err := superpos.NewISModel(len(in), o.ndiv)
	if err != nil {
		return err
	}
	vals := make([]arith.Value, len(in))
	for i, v := range in {
		iv, err := m.Var(i, v.Range())
		if err != nil {
			return err
		}
		vals[i] = iv
	}
	res, err := o.net.Infer(vals)
	if err != nil {
		return err
	}
	lam := make([][]*polrelax.Var, len(in))
	for j, w := range out {
		isv, ok := res[j].(*superpos.ISVar)
		if !ok {
			return fmt.Errorf("ann: superposition inference produced %T: %w", res[j], arith.ErrKindMismatch)
		}
		cst := isv.Cst()
		under := []polrelax.Term{{Var: w, Coef: 1}}
		over := []polrelax.Term{{Var: w, Coef: 1}}
		for _, i := range isv.Deps() {
			if lam[i] == nil {
				lam[i] = cellWeights(im, in[i], o.ndiv)
			}
			row, _ := isv.Row(i)
			for k, c := range row {
				under = append(under, polrelax.Term{Var: lam[i][k], Coef: -c.Lo()})
				over = append(over, polrelax.Term{Var: lam[i][k], Coef: -c.Up()})
			}
		}
		im.AddCut(polrelax.GE, cst.Lo(), under...)
		im.AddCut(polrelax.LE, cst.Up(), over...)
	}
	return nil
}

// affineRow reports the per-cell increment of breakpoint values that lie on
// one line, within round-off.
func affineRow(vals []float64) (step float64, ok bool) {
	n := len(vals) - 1
	step = (vals[n] - vals[0]) / float64(n)
	for k := 1; k < n; k++ {
		want := vals[0] + float64(k)*step
		if diff := vals[k] - want; diff > 1e-9 || diff < -1e-9 {
			return 0, false
		}
	}
	return step, true
}

// asmCuts evaluates the network under the piecewise-linear superposition
// payload and links each output to its decomposition: constant rows become
// plain bound cuts, affine rows contribute direct terms on the input, and
// genuinely piecewise rows go through per-(input, cell) weight variables
// carrying the cell's estimator extremes. With shadow cuts enabled the
// shadow decomposition is emitted over the same weight variables.
func (o *NetOp) asmCuts(im *polrelax.Image, in, out []*polrelax.Var) error {
	var opts []superpos.ASOption
	if o.cutShadow {
		opts = append(opts, superpos.WithShadow())
	}
	m, err := superpos.NewASModel(len(in), o.ndiv, opts...)
	if err != nil {
		return err
	}
	vals := make([]arith.Value, len(in))
	for i, v := range in {
		av, err := m.Var(i, v.Range())
		if err != nil {
			return err
		}
		vals[i] = av
	}
	res, err := o.net.Infer(vals)
	if err != nil {
		return err
	}
	lam := make([][]*polrelax.Var, len(in))
	for j, w := range out {
		asv, ok := res[j].(*superpos.ASVar)
		if !ok {
			return fmt.Errorf("ann: superposition inference produced %T: %w", res[j], arith.ErrKindMismatch)
		}
		lcst, ucst := asv.Csts()
		o.decompCuts(im, w, in, lam, lcst, ucst, asv.Deps(), asv.Row)
		if o.cutShadow {
			if slo, sup, ok := asv.ShadowCsts(); ok {
				o.decompCuts(im, w, in, lam, slo, sup, asv.Deps(), asv.ShadowRow)
			}
		}
	}
	return nil
}

func (o *NetOp) decompCuts(im *polrelax.Image, w *polrelax.Var, in []*polrelax.Var,
	lam [][]*polrelax.Var, lcst, ucst float64, deps []int,
	row func(int) ([]float64, []float64, bool)) {
	under := []polrelax.Term{{Var: w, Coef: 1}}
	over := []polrelax.Term{{Var: w, Coef: 1}}
	rhsU, rhsO := lcst, ucst
	for _, i := range deps {
		uVals, oVals, ok := row(i)
		if !ok {
			continue
		}
		rng := in[i].Range()
		lo, diam := rng.Lo(), rng.Diam()
		uStep, uAff := affineRow(uVals)
		oStep, oAff := affineRow(oVals)
		if diam == 0 {
			rhsU += uVals[0]
			rhsO += oVals[0]
			continue
		}
		if uAff && oAff {
			h := diam / float64(o.ndiv)
			su, so := uStep/h, oStep/h
			under = append(under, polrelax.Term{Var: in[i], Coef: -su})
			over = append(over, polrelax.Term{Var: in[i], Coef: -so})
			rhsU += uVals[0] - su*lo
			rhsO += oVals[0] - so*lo
			continue
		}
		if lam[i] == nil {
			lam[i] = cellWeights(im, in[i], o.ndiv)
		}
		for k := 0; k < o.ndiv; k++ {
			cu := uVals[k]
			if uVals[k+1] < cu {
				cu = uVals[k+1]
			}
			co := oVals[k]
			if oVals[k+1] > co {
				co = oVals[k+1]
			}
			under = append(under, polrelax.Term{Var: lam[i][k], Coef: -cu})
			over = append(over, polrelax.Term{Var: lam[i][k], Coef: -co})
		}
	}
	im.AddCut(polrelax.GE, rhsU, under...)
	im.AddCut(polrelax.LE, rhsO, over...)
}
