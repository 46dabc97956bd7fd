package superpos

import (
	"fmt"
	"math"
	"sort"

	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/interval"
)

// ASModel is the shared environment of a family of piecewise-linear
// superposition variables. Shadow tracking is a model-wide switch.
type ASModel struct {
	nvar   int
	ndiv   int
	dom    []interval.Interval
	set    []bool
	shadow bool
}

// ASOption configures an ASModel.
type ASOption func(*ASModel)

// WithShadow enables the shadow decomposition: rectification keeps a second
// admissible estimator set alongside the primary, and addition scores the
// candidate pairings.
func WithShadow() ASOption {
	return func(m *ASModel) { m.shadow = true }
}

// NewASModel declares a model over nvar variables with ndiv segments per
// variable.
func NewASModel(nvar, ndiv int, opts ...ASOption) (*ASModel, error) {
	if nvar < 0 || ndiv < 1 {
		return nil, fmt.Errorf("superpos: model with %d variables, %d segments: %w", nvar, ndiv, arith.ErrIndex)
	}
	m := &ASModel{nvar: nvar, ndiv: ndiv, dom: make([]interval.Interval, nvar), set: make([]bool, nvar)}
	for _, fn := range opts {
		fn(m)
	}
	return m, nil
}

func (m *ASModel) NVar() int      { return m.nvar }
func (m *ASModel) NDiv() int      { return m.ndiv }
func (m *ASModel) Shadowed() bool { return m.shadow }

// pwl is one variable's estimator pair: values of the piecewise-linear
// under- and over-estimator at the ndiv+1 uniform breakpoints of the
// variable's domain.
type pwl struct {
	under []float64
	over  []float64
}

func (p *pwl) clone() *pwl {
	return &pwl{
		under: append([]float64(nil), p.under...),
		over:  append([]float64(nil), p.over...),
	}
}

// anchors reports the row's extreme estimator values: the minimum of the
// under-estimator and the maximum of the over-estimator.
func (p *pwl) anchors() (lo, up float64) {
	lo, up = math.Inf(1), math.Inf(-1)
	for _, u := range p.under {
		lo = math.Min(lo, u)
	}
	for _, o := range p.over {
		up = math.Max(up, o)
	}
	return lo, up
}

// decomp is one admissible decomposition: a constant bound pair plus one
// estimator pair per participating variable.
type decomp struct {
	rows map[int]*pwl
	lcst float64
	ucst float64
}

func newDecomp(lcst, ucst float64) *decomp {
	return &decomp{rows: map[int]*pwl{}, lcst: lcst, ucst: ucst}
}

func (d *decomp) clone() *decomp {
	c := newDecomp(d.lcst, d.ucst)
	for i, p := range d.rows {
		c.rows[i] = p.clone()
	}
	return c
}

// keys lists the participating variable ids in ascending order. Every sum
// over the rows runs in this order, so bounds computed at different times
// agree to the last bit.
func (d *decomp) keys() []int {
	ids := make([]int, 0, len(d.rows))
	for i := range d.rows {
		ids = append(ids, i)
	}
	sort.Ints(ids)
	return ids
}

// bound is the enclosure of the decomposition over the whole box, after the
// round-off repair of the order invariant.
func (d *decomp) bound() (interval.Interval, error) {
	lo, up := d.lcst, d.ucst
	for _, i := range d.keys() {
		l, u := d.rows[i].anchors()
		lo += l
		up += u
	}
	lo, up, err := repair(lo, up)
	if err != nil {
		return interval.Interval{}, err
	}
	return interval.New(lo, up), nil
}

// at evaluates the estimator pair at a point by linear interpolation.
func (d *decomp) at(m *ASModel, x []float64) (interval.Interval, error) {
	lo, up := d.lcst, d.ucst
	for _, i := range d.keys() {
		dom := m.dom[i]
		if !dom.Contains(x[i]) {
			return interval.Interval{}, fmt.Errorf("superpos: coordinate %d=%g outside %s: %w", i, x[i], dom, arith.ErrDomain)
		}
		l, u := interpPair(d.rows[i], dom, m.ndiv, x[i])
		lo += l
		up += u
	}
	lo, up, err := repair(lo, up)
	if err != nil {
		return interval.Interval{}, err
	}
	return interval.New(lo, up), nil
}

func interpPair(p *pwl, dom interval.Interval, ndiv int, x float64) (lo, up float64) {
	h := dom.Diam() / float64(ndiv)
	if h == 0 {
		return p.under[0], p.over[0]
	}
	k := int((x - dom.Lo()) / h)
	if k >= ndiv {
		k = ndiv - 1
	}
	t := (x - dom.Lo() - float64(k)*h) / h
	lo = p.under[k] + t*(p.under[k+1]-p.under[k])
	up = p.over[k] + t*(p.over[k+1]-p.over[k])
	return lo, up
}

// ASVar is one piecewise-linear superposition value: a primary decomposition
// and an optional shadow. ASVar implements arith.Value.
type ASVar struct {
	arith.Unsupported

	mod  *ASModel
	prim *decomp
	shad *decomp
}

func (m *ASModel) Var(i int, rng interval.Interval) (*ASVar, error) {
	if i < 0 || i >= m.nvar {
		return nil, fmt.Errorf("superpos: variable %d of %d: %w", i, m.nvar, arith.ErrIndex)
	}
	if m.set[i] && m.dom[i] != rng {
		return nil, fmt.Errorf("superpos: variable %d reattached with a different range: %w", i, arith.ErrModelMismatch)
	}
	m.dom[i], m.set[i] = rng, true
	lo, up := rng.Bounds()
	p := &pwl{under: make([]float64, m.ndiv+1), over: make([]float64, m.ndiv+1)}
	for k := 0; k <= m.ndiv; k++ {
		b := lo + (up-lo)*float64(k)/float64(m.ndiv)
		if k == m.ndiv {
			b = up
		}
		p.under[k], p.over[k] = b, b
	}
	d := newDecomp(0, 0)
	d.rows[i] = p
	return &ASVar{mod: m, prim: d}, nil
}

func (m *ASModel) Const(c float64) *ASVar {
	return &ASVar{mod: m, prim: newDecomp(c, c)}
}

func (v *ASVar) Model() *ASModel { return v.mod }
func (v *ASVar) NDep() int       { return len(v.prim.rows) }

// HasShadow reports whether a shadow decomposition is currently tracked.
func (v *ASVar) HasShadow() bool { return v.shad != nil }

// interTol intersects two enclosures of the same value. Independently
// accumulated sums can leave the bounds apart by round-off, so touching or
// nearly touching enclosures collapse to their midpoint instead of failing.
func interTol(a, b interval.Interval) (interval.Interval, bool) {
	lo := math.Max(a.Lo(), b.Lo())
	up := math.Min(a.Up(), b.Up())
	if lo <= up {
		return interval.New(lo, up), true
	}
	tol := boundTol * math.Max(1, math.Max(a.Mag(), b.Mag()))
	if lo-up > tol {
		return interval.Interval{}, false
	}
	return interval.Point(0.5 * (lo + up)), true
}

// B is the enclosure of the value over the whole box: the tighter of the
// primary and shadow decompositions.
func (v *ASVar) B() (interval.Interval, error) {
	b, err := v.prim.bound()
	if err != nil || v.shad == nil {
		return b, err
	}
	s, err := v.shad.bound()
	if err != nil {
		return interval.Interval{}, err
	}
	r, ok := interTol(b, s)
	if !ok {
		// admissible decompositions of the same value always overlap
		return interval.Interval{}, fmt.Errorf("superpos: disjoint primary and shadow bounds: %w", arith.ErrInternal)
	}
	return r, nil
}

// At is the enclosure of the value at a point, one coordinate per model
// variable.
func (v *ASVar) At(x []float64) (interval.Interval, error) {
	if len(x) != v.mod.nvar {
		return interval.Interval{}, fmt.Errorf("superpos: point of dimension %d for %d variables: %w", len(x), v.mod.nvar, arith.ErrIndex)
	}
	b, err := v.prim.at(v.mod, x)
	if err != nil || v.shad == nil {
		return b, err
	}
	s, err := v.shad.at(v.mod, x)
	if err != nil {
		return interval.Interval{}, err
	}
	r, ok := interTol(b, s)
	if !ok {
		return interval.Interval{}, fmt.Errorf("superpos: disjoint primary and shadow enclosures: %w", arith.ErrInternal)
	}
	return r, nil
}

func (v *ASVar) same(op string, y arith.Value) (*ASVar, error) {
	w, ok := y.(*ASVar)
	if !ok {
		return nil, fmt.Errorf("superpos: %s with %T operand: %w", op, y, arith.ErrKindMismatch)
	}
	if w.mod != v.mod {
		return nil, fmt.Errorf("superpos: %s across models: %w", op, arith.ErrModelMismatch)
	}
	return w, nil
}

func addDecomp(a, b *decomp) *decomp {
	s := a.clone()
	s.lcst += b.lcst
	s.ucst += b.ucst
	for i, p := range b.rows {
		sp, ok := s.rows[i]
		if !ok {
			s.rows[i] = p.clone()
			continue
		}
		for k := range sp.under {
			sp.under[k] += p.under[k]
			sp.over[k] += p.over[k]
		}
	}
	return s
}

// selectPair scores candidate decompositions and returns the tightest as
// primary and the runner-up as shadow. Width decides; ties go to the larger
// upper bound. Candidates whose bound violates the order invariant surface
// the internal error.
func selectPair(cands []*decomp) (*decomp, *decomp, error) {
	var prim, shad *decomp
	var pb, sb interval.Interval
	better := func(a, b interval.Interval) bool {
		if a.Diam() != b.Diam() {
			return a.Diam() < b.Diam()
		}
		return a.Up() > b.Up()
	}
	for _, c := range cands {
		b, err := c.bound()
		if err != nil {
			return nil, nil, err
		}
		switch {
		case prim == nil || better(b, pb):
			prim, pb, shad, sb = c, b, prim, pb
		case shad == nil || better(b, sb):
			shad, sb = c, b
		}
	}
	return prim, shad, nil
}

func (v *ASVar) Lift(c float64) arith.Value { return v.mod.Const(c) }

// Add combines every available pairing of the operands' decompositions and
// keeps the tightest as primary; with shadow tracking enabled the runner-up
// becomes the shadow.
func (v *ASVar) Add(y arith.Value) (arith.Value, error) {
	w, err := v.same("Add", y)
	if err != nil {
		return nil, err
	}
	cands := []*decomp{addDecomp(v.prim, w.prim)}
	if v.shad != nil {
		cands = append(cands, addDecomp(v.shad, w.prim))
	}
	if w.shad != nil {
		cands = append(cands, addDecomp(v.prim, w.shad))
	}
	if v.shad != nil && w.shad != nil {
		cands = append(cands, addDecomp(v.shad, w.shad))
	}
	prim, shad, err := selectPair(cands)
	if err != nil {
		return nil, err
	}
	z := &ASVar{mod: v.mod, prim: prim}
	if v.mod.shadow {
		z.shad = shad
	}
	return z, nil
}

func negDecomp(d *decomp) *decomp {
	n := newDecomp(-d.ucst, -d.lcst)
	for i, p := range d.rows {
		np := &pwl{under: make([]float64, len(p.under)), over: make([]float64, len(p.over))}
		for k := range p.under {
			np.under[k] = -p.over[k]
			np.over[k] = -p.under[k]
		}
		n.rows[i] = np
	}
	return n
}

func (v *ASVar) Neg() (arith.Value, error) {
	z := &ASVar{mod: v.mod, prim: negDecomp(v.prim)}
	if v.shad != nil {
		z.shad = negDecomp(v.shad)
	}
	return z, nil
}

func (v *ASVar) Sub(y arith.Value) (arith.Value, error) {
	w, err := v.same("Sub", y)
	if err != nil {
		return nil, err
	}
	n, _ := w.Neg()
	return v.Add(n)
}

func shiftDecomp(d *decomp, c float64) *decomp {
	s := d.clone()
	s.lcst += c
	s.ucst += c
	return s
}

func (v *ASVar) AddConst(c float64) (arith.Value, error) {
	z := &ASVar{mod: v.mod, prim: shiftDecomp(v.prim, c)}
	if v.shad != nil {
		z.shad = shiftDecomp(v.shad, c)
	}
	return z, nil
}

func scaleDecomp(d *decomp, c float64) *decomp {
	if c < 0 {
		d = negDecomp(d)
		c = -c
	} else {
		d = d.clone()
	}
	d.lcst *= c
	d.ucst *= c
	for _, p := range d.rows {
		for k := range p.under {
			p.under[k] *= c
			p.over[k] *= c
		}
	}
	return d
}

func (v *ASVar) ScaleConst(c float64) (arith.Value, error) {
	z := &ASVar{mod: v.mod, prim: scaleDecomp(v.prim, c)}
	if v.shad != nil {
		z.shad = scaleDecomp(v.shad, c)
	}
	return z, nil
}

// composeDecomp maps one decomposition through a univariate enclosure rule,
// segment by segment: each segment's estimator range plus the enclosure of
// the remaining rows goes through the rule and the result is split evenly
// across the participating variables. Interior breakpoints take the tighter
// neighbor consistent with linear interpolation.
func composeDecomp(d *decomp, f func(interval.Interval) (arith.Value, error)) (*decomp, error) {
	ndep := len(d.rows)
	if ndep == 0 {
		r, err := f(interval.New(d.lcst, d.ucst))
		if err != nil {
			return nil, err
		}
		iv := r.(interval.Interval)
		return newDecomp(iv.Lo(), iv.Up()), nil
	}
	totLo, totUp := d.lcst, d.ucst
	ancLo := make(map[int]float64, ndep)
	ancUp := make(map[int]float64, ndep)
	for _, i := range d.keys() {
		l, u := d.rows[i].anchors()
		ancLo[i], ancUp[i] = l, u
		totLo += l
		totUp += u
	}
	inv := 1 / float64(ndep)
	z := newDecomp(0, 0)
	for _, i := range d.keys() {
		p := d.rows[i]
		restLo := totLo - ancLo[i]
		restUp := totUp - ancUp[i]
		nseg := len(p.under) - 1
		segLo := make([]float64, nseg)
		segUp := make([]float64, nseg)
		for k := 0; k < nseg; k++ {
			arg := interval.New(
				math.Min(p.under[k], p.under[k+1])+restLo,
				math.Max(p.over[k], p.over[k+1])+restUp)
			r, err := f(arg)
			if err != nil {
				return nil, err
			}
			iv := r.(interval.Interval)
			segLo[k], segUp[k] = iv.Lo()*inv, iv.Up()*inv
		}
		np := &pwl{under: make([]float64, nseg+1), over: make([]float64, nseg+1)}
		for k := 0; k <= nseg; k++ {
			switch {
			case k == 0:
				np.under[k], np.over[k] = segLo[0], segUp[0]
			case k == nseg:
				np.under[k], np.over[k] = segLo[nseg-1], segUp[nseg-1]
			default:
				np.under[k] = math.Min(segLo[k-1], segLo[k])
				np.over[k] = math.Max(segUp[k-1], segUp[k])
			}
		}
		z.rows[i] = np
	}
	if _, err := z.bound(); err != nil {
		return nil, err
	}
	return z, nil
}

func (v *ASVar) compose(f func(interval.Interval) (arith.Value, error)) (arith.Value, error) {
	prim, err := composeDecomp(v.prim, f)
	if err != nil {
		return nil, err
	}
	cands := []*decomp{prim}
	if v.shad != nil {
		s, err := composeDecomp(v.shad, f)
		if err != nil {
			return nil, err
		}
		cands = append(cands, s)
	}
	p, s, err := selectPair(cands)
	if err != nil {
		return nil, err
	}
	z := &ASVar{mod: v.mod, prim: p}
	if v.mod.shadow {
		z.shad = s
	}
	return z, nil
}

func (v *ASVar) Exp() (arith.Value, error) {
	return v.compose(func(x interval.Interval) (arith.Value, error) { return x.Exp() })
}

func (v *ASVar) Log() (arith.Value, error) {
	return v.compose(func(x interval.Interval) (arith.Value, error) { return x.Log() })
}

func (v *ASVar) Sqrt() (arith.Value, error) {
	return v.compose(func(x interval.Interval) (arith.Value, error) { return x.Sqrt() })
}

func (v *ASVar) Sqr() (arith.Value, error) {
	return v.compose(func(x interval.Interval) (arith.Value, error) { return x.Sqr() })
}

func (v *ASVar) Pow(n int) (arith.Value, error) {
	switch n {
	case 0:
		return v.mod.Const(1), nil
	case 1:
		return v, nil
	}
	return v.compose(func(x interval.Interval) (arith.Value, error) { return x.Pow(n) })
}

func (v *ASVar) Tanh() (arith.Value, error) {
	return v.compose(func(x interval.Interval) (arith.Value, error) { return x.Tanh() })
}

func (v *ASVar) Erf() (arith.Value, error) {
	return v.compose(func(x interval.Interval) (arith.Value, error) { return x.Erf() })
}

func (v *ASVar) Fabs() (arith.Value, error) {
	return v.compose(func(x interval.Interval) (arith.Value, error) { return x.Fabs() })
}

func (v *ASVar) Mul(y arith.Value) (arith.Value, error) {
	w, err := v.same("Mul", y)
	if err != nil {
		return nil, err
	}
	if len(w.prim.rows) == 0 && w.shad == nil && w.prim.lcst == w.prim.ucst {
		return v.ScaleConst(w.prim.lcst)
	}
	if len(v.prim.rows) == 0 && v.shad == nil && v.prim.lcst == v.prim.ucst {
		return w.ScaleConst(v.prim.lcst)
	}
	s, err := v.Add(w)
	if err != nil {
		return nil, err
	}
	d, err := v.Sub(w)
	if err != nil {
		return nil, err
	}
	s2, err := s.Sqr()
	if err != nil {
		return nil, err
	}
	d2, err := d.Sqr()
	if err != nil {
		return nil, err
	}
	q, err := s2.(*ASVar).Sub(d2)
	if err != nil {
		return nil, err
	}
	return q.(*ASVar).ScaleConst(0.25)
}

func (v *ASVar) Div(y arith.Value) (arith.Value, error) {
	w, err := v.same("Div", y)
	if err != nil {
		return nil, err
	}
	inv, err := w.compose(func(x interval.Interval) (arith.Value, error) {
		return interval.Point(1).Div(x)
	})
	if err != nil {
		return nil, err
	}
	return v.Mul(inv)
}

// Relu is the asymmetric rectification: on a straddling range each row is
// re-anchored by its share of the decomposition's total range, rectified
// breakpoint-wise, and the under side takes the one-off additive correction
// that restores soundness of the sum bound. The zero-floor decomposition is
// always admissible and competes as a candidate; under shadow tracking the
// runner-up is retained.
func (v *ASVar) Relu() (arith.Value, error) {
	b, err := v.B()
	if err != nil {
		return nil, err
	}
	if b.Lo() >= 0 {
		return v, nil
	}
	if b.Up() <= 0 {
		return v.mod.Const(0), nil
	}
	cands := make([]*decomp, 0, 3)
	p, err := reluDecomp(v.prim)
	if err != nil {
		return nil, err
	}
	cands = append(cands, p)
	if v.shad != nil {
		s, err := reluDecomp(v.shad)
		if err != nil {
			return nil, err
		}
		cands = append(cands, s)
	}
	cands = append(cands, reluFloor(v.prim))
	prim, shad, err := selectPair(cands)
	if err != nil {
		return nil, err
	}
	z := &ASVar{mod: v.mod, prim: prim}
	if v.mod.shadow {
		z.shad = shad
	}
	return z, nil
}

// reluDecomp rectifies one decomposition. The under side goes through the
// even-split composition, which already rectifies each segment against the
// rest of the decomposition. The over side is tightened separately: writing
// U_i for row i's upper anchor, mu for the global upper bound and theta_i =
// r_i/sum r for row i's share of the total range, each over row is shifted
// by -U_i + theta_i*mu and rectified breakpoint-wise; the shifts
// redistribute the constant mass without changing the sum, so the rectified
// rows still dominate the rectified value.
func reluDecomp(d *decomp) (*decomp, error) {
	z, err := composeDecomp(d, func(x interval.Interval) (arith.Value, error) { return x.Relu() })
	if err != nil {
		return nil, err
	}
	ndep := len(d.rows)
	if ndep == 0 {
		return z, nil
	}
	mu := d.ucst
	ancUp := make(map[int]float64, ndep)
	sumR := 0.0
	for _, i := range d.keys() {
		l, u := d.rows[i].anchors()
		ancUp[i] = u
		mu += u
		sumR += u - l
	}
	for _, i := range d.keys() {
		p := d.rows[i]
		theta := 1 / float64(ndep)
		if sumR > 0 {
			l, u := p.anchors()
			theta = (u - l) / sumR
		}
		oShift := -ancUp[i] + theta*mu
		over := z.rows[i].over
		for k := range over {
			over[k] = math.Max(p.over[k]+oShift, 0)
		}
	}
	z.ucst = 0
	if _, err := z.bound(); err != nil {
		return nil, err
	}
	return z, nil
}

// reluFloor is the always-admissible fallback: zero under-estimator, the
// rectified over rows re-anchored against the upper bound.
func reluFloor(d *decomp) *decomp {
	z := newDecomp(0, math.Max(d.ucst, 0))
	for i, p := range d.rows {
		n := len(p.over)
		np := &pwl{under: make([]float64, n), over: make([]float64, n)}
		for k := range p.over {
			np.over[k] = math.Max(p.over[k], 0)
		}
		z.rows[i] = np
	}
	return z
}

func (v *ASVar) Min(y arith.Value) (arith.Value, error) {
	w, err := v.same("Min", y)
	if err != nil {
		return nil, err
	}
	return asMinMax(v, w, false)
}

func (v *ASVar) Max(y arith.Value) (arith.Value, error) {
	w, err := v.same("Max", y)
	if err != nil {
		return nil, err
	}
	return asMinMax(v, w, true)
}

func asMinMax(x, y *ASVar, wantMax bool) (arith.Value, error) {
	if !wantMax {
		nx, _ := x.Neg()
		ny, _ := y.Neg()
		m, err := asMinMax(nx.(*ASVar), ny.(*ASVar), true)
		if err != nil {
			return nil, err
		}
		return m.(*ASVar).Neg()
	}
	d, err := y.Sub(x)
	if err != nil {
		return nil, err
	}
	r, err := d.(*ASVar).Relu()
	if err != nil {
		return nil, err
	}
	return x.Add(r)
}

func (v *ASVar) Cheb(n uint) (arith.Value, error) { return arith.ChebRecur(v, n) }

func (v *ASVar) best() interval.Interval {
	b, err := v.B()
	if err != nil {
		return interval.Interval{}
	}
	return b
}

func (v *ASVar) Lo() float64   { return v.best().Lo() }
func (v *ASVar) Up() float64   { return v.best().Up() }
func (v *ASVar) Mid() float64  { return v.best().Mid() }
func (v *ASVar) Diam() float64 { return v.best().Diam() }
func (v *ASVar) Mag() float64  { return v.best().Mag() }

func (v *ASVar) Eq(y arith.Value) bool { w, ok := y.(*ASVar); return ok && v == w }
func (v *ASVar) Lt(y arith.Value) bool {
	w, ok := y.(*ASVar)
	return ok && v.best().Lt(w.best())
}
func (v *ASVar) Le(y arith.Value) bool {
	w, ok := y.(*ASVar)
	return ok && v.best().Le(w.best())
}

func (v *ASVar) String() string {
	tag := ""
	if v.shad != nil {
		tag = "+shadow"
	}
	return fmt.Sprintf("ASVar{%d vars, %d segments%s, %s}", len(v.prim.rows), v.mod.ndiv, tag, v.best())
}
