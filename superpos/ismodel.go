package superpos

import (
	"fmt"
	"math"

	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/interval"
)

// compTol is the round-off budget of one re-centering step; bounds crossing
// by no more than boundTol are swapped, wider crossings are internal errors.
const (
	compTol  = 1e-15
	boundTol = 1e2 * compTol
)

// ISModel is the shared environment of a family of interval superposition
// variables: the variable count, the fixed cell count per variable, and the
// attached domain of each variable.
type ISModel struct {
	nvar int
	ndiv int
	dom  []interval.Interval
	set  []bool
}

// NewISModel declares a model over nvar variables with ndiv cells each.
func NewISModel(nvar, ndiv int) (*ISModel, error) {
	if nvar < 0 || ndiv < 1 {
		return nil, fmt.Errorf("superpos: model with %d variables, %d cells: %w", nvar, ndiv, arith.ErrIndex)
	}
	return &ISModel{nvar: nvar, ndiv: ndiv, dom: make([]interval.Interval, nvar), set: make([]bool, nvar)}, nil
}

func (m *ISModel) NVar() int { return m.nvar }
func (m *ISModel) NDiv() int { return m.ndiv }

// Domain reports the attached range of variable i.
func (m *ISModel) Domain(i int) (interval.Interval, bool) {
	if i < 0 || i >= m.nvar {
		return interval.Interval{}, false
	}
	return m.dom[i], m.set[i]
}

// Var attaches variable i to the range rng and returns its model form: the
// identity, one cell-wide coefficient per cell of the partition.
func (m *ISModel) Var(i int, rng interval.Interval) (*ISVar, error) {
	if i < 0 || i >= m.nvar {
		return nil, fmt.Errorf("superpos: variable %d of %d: %w", i, m.nvar, arith.ErrIndex)
	}
	if m.set[i] && m.dom[i] != rng {
		return nil, fmt.Errorf("superpos: variable %d reattached with a different range: %w", i, arith.ErrModelMismatch)
	}
	m.dom[i], m.set[i] = rng, true
	lo, up := rng.Bounds()
	h := (up - lo) / float64(m.ndiv)
	row := make([]interval.Interval, m.ndiv)
	for k := range row {
		a := lo + float64(k)*h
		b := lo + float64(k+1)*h
		if k == m.ndiv-1 {
			b = up
		}
		row[k] = interval.New(a, b)
	}
	return &ISVar{mod: m, rows: map[int][]interval.Interval{i: row}, cst: interval.Point(0)}, nil
}

// Const returns the constant c in model form.
func (m *ISModel) Const(c float64) *ISVar {
	return &ISVar{mod: m, rows: map[int][]interval.Interval{}, cst: interval.Point(c)}
}

// ISVar is one interval superposition value: a constant interval plus one
// interval coefficient per cell of each participating variable. ISVar
// implements arith.Value.
type ISVar struct {
	arith.Unsupported

	mod  *ISModel
	rows map[int][]interval.Interval
	cst  interval.Interval
}

// Model reports the owning environment.
func (v *ISVar) Model() *ISModel { return v.mod }

// NDep reports how many variables the value actually depends on.
func (v *ISVar) NDep() int { return len(v.rows) }

func (v *ISVar) clone() *ISVar {
	w := &ISVar{mod: v.mod, rows: make(map[int][]interval.Interval, len(v.rows)), cst: v.cst}
	for i, row := range v.rows {
		w.rows[i] = append([]interval.Interval(nil), row...)
	}
	return w
}

// rowHull is the enclosure of one row across its cells.
func rowHull(row []interval.Interval) (lo, up float64) {
	lo, up = math.Inf(1), math.Inf(-1)
	for _, c := range row {
		lo = math.Min(lo, c.Lo())
		up = math.Max(up, c.Up())
	}
	return lo, up
}

// repair enforces the bound-order invariant: crossings within boundTol are
// floating-point round-off and are swapped, anything wider is fatal.
func repair(lo, up float64) (float64, float64, error) {
	if lo > up {
		if lo-up > boundTol {
			return 0, 0, fmt.Errorf("superpos: lower bound %g above upper %g: %w", lo, up, arith.ErrInternal)
		}
		lo, up = up, lo
	}
	return lo, up, nil
}

// B is the enclosure of the value over the whole box. The rows sum in
// ascending variable order, so bounds computed at different times agree to
// the last bit.
func (v *ISVar) B() (interval.Interval, error) {
	lo, up := v.cst.Bounds()
	for _, i := range v.Deps() {
		l, u := rowHull(v.rows[i])
		lo += l
		up += u
	}
	lo, up, err := repair(lo, up)
	if err != nil {
		return interval.Interval{}, err
	}
	return interval.New(lo, up), nil
}

// At is the enclosure of the value at the point x, one coordinate per model
// variable; only coordinates of participating variables are read.
func (v *ISVar) At(x []float64) (interval.Interval, error) {
	if len(x) != v.mod.nvar {
		return interval.Interval{}, fmt.Errorf("superpos: point of dimension %d for %d variables: %w", len(x), v.mod.nvar, arith.ErrIndex)
	}
	lo, up := v.cst.Bounds()
	for _, i := range v.Deps() {
		dom := v.mod.dom[i]
		if !dom.Contains(x[i]) {
			return interval.Interval{}, fmt.Errorf("superpos: coordinate %d=%g outside %s: %w", i, x[i], dom, arith.ErrDomain)
		}
		h := dom.Diam() / float64(v.mod.ndiv)
		k := 0
		if h > 0 {
			k = int((x[i] - dom.Lo()) / h)
			if k >= v.mod.ndiv {
				k = v.mod.ndiv - 1
			}
		}
		row := v.rows[i]
		lo += row[k].Lo()
		up += row[k].Up()
	}
	lo, up, err := repair(lo, up)
	if err != nil {
		return interval.Interval{}, err
	}
	return interval.New(lo, up), nil
}

func (v *ISVar) same(op string, y arith.Value) (*ISVar, error) {
	w, ok := y.(*ISVar)
	if !ok {
		return nil, fmt.Errorf("superpos: %s with %T operand: %w", op, y, arith.ErrKindMismatch)
	}
	if w.mod != v.mod {
		return nil, fmt.Errorf("superpos: %s across models: %w", op, arith.ErrModelMismatch)
	}
	return w, nil
}

func (v *ISVar) Lift(c float64) arith.Value { return v.mod.Const(c) }

func (v *ISVar) Add(y arith.Value) (arith.Value, error) {
	w, err := v.same("Add", y)
	if err != nil {
		return nil, err
	}
	z := v.clone()
	r, _ := z.cst.Add(w.cst)
	z.cst = r.(interval.Interval)
	for i, row := range w.rows {
		zr, ok := z.rows[i]
		if !ok {
			z.rows[i] = append([]interval.Interval(nil), row...)
			continue
		}
		for k := range zr {
			s, _ := zr[k].Add(row[k])
			zr[k] = s.(interval.Interval)
		}
	}
	return z, nil
}

func (v *ISVar) Neg() (arith.Value, error) {
	z := v.clone()
	r, _ := z.cst.Neg()
	z.cst = r.(interval.Interval)
	for _, row := range z.rows {
		for k := range row {
			n, _ := row[k].Neg()
			row[k] = n.(interval.Interval)
		}
	}
	return z, nil
}

func (v *ISVar) Sub(y arith.Value) (arith.Value, error) {
	w, err := v.same("Sub", y)
	if err != nil {
		return nil, err
	}
	n, _ := w.Neg()
	return v.Add(n)
}

func (v *ISVar) AddConst(c float64) (arith.Value, error) {
	z := v.clone()
	r, _ := z.cst.AddConst(c)
	z.cst = r.(interval.Interval)
	return z, nil
}

func (v *ISVar) ScaleConst(c float64) (arith.Value, error) {
	z := v.clone()
	r, _ := z.cst.ScaleConst(c)
	z.cst = r.(interval.Interval)
	for _, row := range z.rows {
		for k := range row {
			s, _ := row[k].ScaleConst(c)
			row[k] = s.(interval.Interval)
		}
	}
	return z, nil
}

// compose maps the value through a univariate enclosure rule while keeping
// the fixed partition: cell k of variable i becomes f(cell + rest of the
// decomposition) split evenly across the participating variables. The sum
// over variables of the new cells still encloses f of the old sum at every
// point of the box.
func (v *ISVar) compose(f func(interval.Interval) (arith.Value, error)) (*ISVar, error) {
	ndep := len(v.rows)
	if ndep == 0 {
		r, err := f(v.cst)
		if err != nil {
			return nil, err
		}
		return &ISVar{mod: v.mod, rows: map[int][]interval.Interval{}, cst: r.(interval.Interval)}, nil
	}
	totLo, totUp := v.cst.Bounds()
	hullLo := make(map[int]float64, ndep)
	hullUp := make(map[int]float64, ndep)
	for _, i := range v.Deps() {
		l, u := rowHull(v.rows[i])
		hullLo[i], hullUp[i] = l, u
		totLo += l
		totUp += u
	}
	inv := 1 / float64(ndep)
	z := &ISVar{mod: v.mod, rows: make(map[int][]interval.Interval, ndep), cst: interval.Point(0)}
	for _, i := range v.Deps() {
		row := v.rows[i]
		restLo := totLo - hullLo[i]
		restUp := totUp - hullUp[i]
		nr := make([]interval.Interval, len(row))
		for k, c := range row {
			arg := interval.New(c.Lo()+restLo, c.Up()+restUp)
			r, err := f(arg)
			if err != nil {
				return nil, err
			}
			s, _ := r.(interval.Interval).ScaleConst(inv)
			nr[k] = s.(interval.Interval)
		}
		z.rows[i] = nr
	}
	if _, err := z.B(); err != nil {
		return nil, err
	}
	return z, nil
}

// Mul uses the quarter-square identity x·y = ((x+y)² − (x−y)²)/4 so that the
// product reduces to composed squares. A constant operand short-circuits to
// cell-wise interval scaling.
func (v *ISVar) Mul(y arith.Value) (arith.Value, error) {
	w, err := v.same("Mul", y)
	if err != nil {
		return nil, err
	}
	if len(w.rows) == 0 {
		return v.scaleInterval(w.cst), nil
	}
	if len(v.rows) == 0 {
		return w.scaleInterval(v.cst), nil
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
	q, err := s2.(*ISVar).Sub(d2)
	if err != nil {
		return nil, err
	}
	return q.(*ISVar).ScaleConst(0.25)
}

func (v *ISVar) scaleInterval(c interval.Interval) *ISVar {
	z := v.clone()
	r, _ := z.cst.Mul(c)
	z.cst = r.(interval.Interval)
	for _, row := range z.rows {
		for k := range row {
			p, _ := row[k].Mul(c)
			row[k] = p.(interval.Interval)
		}
	}
	return z
}

func (v *ISVar) Div(y arith.Value) (arith.Value, error) {
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

func (v *ISVar) composeOp(f func(interval.Interval) (arith.Value, error)) (arith.Value, error) {
	return v.compose(f)
}

func (v *ISVar) Exp() (arith.Value, error) {
	return v.composeOp(func(x interval.Interval) (arith.Value, error) { return x.Exp() })
}

func (v *ISVar) Log() (arith.Value, error) {
	return v.composeOp(func(x interval.Interval) (arith.Value, error) { return x.Log() })
}

func (v *ISVar) Sqrt() (arith.Value, error) {
	return v.composeOp(func(x interval.Interval) (arith.Value, error) { return x.Sqrt() })
}

func (v *ISVar) Sqr() (arith.Value, error) {
	return v.composeOp(func(x interval.Interval) (arith.Value, error) { return x.Sqr() })
}

func (v *ISVar) Pow(n int) (arith.Value, error) {
	switch n {
	case 0:
		return v.mod.Const(1), nil
	case 1:
		return v, nil
	}
	return v.composeOp(func(x interval.Interval) (arith.Value, error) { return x.Pow(n) })
}

func (v *ISVar) Tanh() (arith.Value, error) {
	return v.composeOp(func(x interval.Interval) (arith.Value, error) { return x.Tanh() })
}

func (v *ISVar) Erf() (arith.Value, error) {
	return v.composeOp(func(x interval.Interval) (arith.Value, error) { return x.Erf() })
}

func (v *ISVar) Erfc() (arith.Value, error) {
	return v.composeOp(func(x interval.Interval) (arith.Value, error) { return x.Erfc() })
}

func (v *ISVar) Fabs() (arith.Value, error) {
	return v.composeOp(func(x interval.Interval) (arith.Value, error) { return x.Fabs() })
}

func (v *ISVar) Relu() (arith.Value, error) {
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
	return v.composeOp(func(x interval.Interval) (arith.Value, error) { return x.Relu() })
}

func (v *ISVar) Min(y arith.Value) (arith.Value, error) {
	w, err := v.same("Min", y)
	if err != nil {
		return nil, err
	}
	return minMax(v, w, false)
}

func (v *ISVar) Max(y arith.Value) (arith.Value, error) {
	w, err := v.same("Max", y)
	if err != nil {
		return nil, err
	}
	return minMax(v, w, true)
}

// minMax goes through max(x, y) = x + relu(y − x).
func minMax(x, y *ISVar, wantMax bool) (arith.Value, error) {
	if !wantMax {
		nx, _ := x.Neg()
		ny, _ := y.Neg()
		m, err := minMax(nx.(*ISVar), ny.(*ISVar), true)
		if err != nil {
			return nil, err
		}
		return m.(*ISVar).Neg()
	}
	d, err := y.Sub(x)
	if err != nil {
		return nil, err
	}
	r, err := d.(*ISVar).Relu()
	if err != nil {
		return nil, err
	}
	return x.Add(r)
}

func (v *ISVar) Cheb(n uint) (arith.Value, error) { return arith.ChebRecur(v, n) }

func (v *ISVar) bound() interval.Interval {
	lo, up := v.cst.Bounds()
	for _, i := range v.Deps() {
		l, u := rowHull(v.rows[i])
		lo += l
		up += u
	}
	if lo > up {
		lo, up = up, lo
	}
	return interval.New(lo, up)
}

func (v *ISVar) Lo() float64   { return v.bound().Lo() }
func (v *ISVar) Up() float64   { return v.bound().Up() }
func (v *ISVar) Mid() float64  { return v.bound().Mid() }
func (v *ISVar) Diam() float64 { return v.bound().Diam() }
func (v *ISVar) Mag() float64  { return v.bound().Mag() }

func (v *ISVar) Eq(y arith.Value) bool { w, ok := y.(*ISVar); return ok && v == w }
func (v *ISVar) Lt(y arith.Value) bool {
	w, ok := y.(*ISVar)
	return ok && v.bound().Lt(w.bound())
}
func (v *ISVar) Le(y arith.Value) bool {
	w, ok := y.(*ISVar)
	return ok && v.bound().Le(w.bound())
}

func (v *ISVar) String() string {
	return fmt.Sprintf("ISVar{%d vars, %d cells, %s}", len(v.rows), v.mod.ndiv, v.bound())
}
