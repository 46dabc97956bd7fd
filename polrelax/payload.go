package polrelax

import (
	"fmt"
	"math"

	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/ffgraph"
	"github.com/factolab/facto/interval"
)

var unitRange = interval.New(0, 1)

// Var is one polyhedral variable: a range of the underlying bound type plus
// an identity inside its image, optionally paired with the graph node it
// relaxes. Var implements arith.Value; every operation allocates the result
// variable and emits the operation's sound linear cuts as a side effect,
// which is exactly the forward pass of a relaxation request.
type Var struct {
	arith.Unsupported

	img  *Image
	id   int
	kind Kind
	rng  interval.Interval
	node *ffgraph.Var
}

func (v *Var) Range() interval.Interval { return v.rng }
func (v *Var) Kind() Kind               { return v.kind }
func (v *Var) Image() *Image            { return v.img }

// Node reports the graph node this variable relaxes, nil for auxiliaries.
func (v *Var) Node() *ffgraph.Var { return v.node }

func (v *Var) String() string {
	return fmt.Sprintf("%s in [%g, %g]", v.name(), v.rng.Lo(), v.rng.Up())
}

func (v *Var) same(op string, y arith.Value) (*Var, error) {
	w, ok := y.(*Var)
	if !ok {
		return nil, fmt.Errorf("polrelax: %s with %T operand: %w", op, y, arith.ErrKindMismatch)
	}
	if w.img != v.img {
		return nil, fmt.Errorf("polrelax: %s across images: %w", op, arith.ErrModelMismatch)
	}
	return w, nil
}

func (v *Var) Lift(c float64) arith.Value {
	w := v.img.NewAux(interval.Point(c))
	v.img.AddCut(EQ, c, Term{w, 1})
	return w
}

func ivOp(x interval.Interval, f func(arith.Value) (arith.Value, error)) (interval.Interval, error) {
	r, err := f(x)
	if err != nil {
		return interval.Interval{}, err
	}
	return r.(interval.Interval), nil
}

func (v *Var) Add(y arith.Value) (arith.Value, error) {
	w, err := v.same("Add", y)
	if err != nil {
		return nil, err
	}
	rng, err := ivOp(v.rng, func(a arith.Value) (arith.Value, error) { return a.Add(w.rng) })
	if err != nil {
		return nil, err
	}
	z := v.img.NewAux(rng)
	v.img.AddCut(EQ, 0, Term{z, 1}, Term{v, -1}, Term{w, -1})
	return z, nil
}

func (v *Var) Sub(y arith.Value) (arith.Value, error) {
	w, err := v.same("Sub", y)
	if err != nil {
		return nil, err
	}
	rng, err := ivOp(v.rng, func(a arith.Value) (arith.Value, error) { return a.Sub(w.rng) })
	if err != nil {
		return nil, err
	}
	z := v.img.NewAux(rng)
	v.img.AddCut(EQ, 0, Term{z, 1}, Term{v, -1}, Term{w, 1})
	return z, nil
}

func (v *Var) Neg() (arith.Value, error) {
	rng, _ := v.rng.Neg()
	z := v.img.NewAux(rng.(interval.Interval))
	v.img.AddCut(EQ, 0, Term{z, 1}, Term{v, 1})
	return z, nil
}

func (v *Var) AddConst(c float64) (arith.Value, error) {
	rng, _ := v.rng.AddConst(c)
	z := v.img.NewAux(rng.(interval.Interval))
	v.img.AddCut(EQ, c, Term{z, 1}, Term{v, -1})
	return z, nil
}

func (v *Var) ScaleConst(c float64) (arith.Value, error) {
	rng, _ := v.rng.ScaleConst(c)
	z := v.img.NewAux(rng.(interval.Interval))
	v.img.AddCut(EQ, 0, Term{z, 1}, Term{v, -c})
	return z, nil
}

func (v *Var) Mul(y arith.Value) (arith.Value, error) {
	w, err := v.same("Mul", y)
	if err != nil {
		return nil, err
	}
	if w == v {
		return v.Sqr()
	}
	rng, err := ivOp(v.rng, func(a arith.Value) (arith.Value, error) { return a.Mul(w.rng) })
	if err != nil {
		return nil, err
	}
	z := v.img.NewAux(rng)
	v.img.bilinearCuts(z, v, w)
	return z, nil
}

// Div introduces z with x = z·y and the bilinear envelope on (z, y).
func (v *Var) Div(y arith.Value) (arith.Value, error) {
	w, err := v.same("Div", y)
	if err != nil {
		return nil, err
	}
	rng, err := ivOp(v.rng, func(a arith.Value) (arith.Value, error) { return a.Div(w.rng) })
	if err != nil {
		return nil, err
	}
	z := v.img.NewAux(rng)
	v.img.bilinearCuts(v, z, w)
	return z, nil
}

// envelope relaxes a univariate with one-signed curvature: tangent cuts on
// the convex side, the chord on the other.
func (v *Var) envelope(out interval.Interval, f, df func(float64) float64, convex bool) (*Var, error) {
	z := v.img.NewAux(out)
	if v.rng.Diam() == 0 {
		v.img.AddCut(EQ, f(v.rng.Lo()), Term{z, 1})
		return z, nil
	}
	if convex {
		v.img.SandwichCuts(v, z, f, df, GE)
		v.img.SecantCut(v, z, f, LE)
	} else {
		v.img.SandwichCuts(v, z, f, df, LE)
		v.img.SecantCut(v, z, f, GE)
	}
	return z, nil
}

// sCurve relaxes a univariate that changes curvature once at zero:
// concaveRight for sigmoid shapes (tanh, erf), the mirror for odd powers.
// Each side gets the single globally valid tangent-through-endpoint cut.
func (v *Var) sCurve(out interval.Interval, f, df func(float64) float64, concaveRight bool) (*Var, error) {
	lo, up := v.rng.Bounds()
	switch {
	case concaveRight && lo >= 0:
		return v.envelope(out, f, df, false)
	case concaveRight && up <= 0:
		return v.envelope(out, f, df, true)
	case !concaveRight && lo >= 0:
		return v.envelope(out, f, df, true)
	case !concaveRight && up <= 0:
		return v.envelope(out, f, df, false)
	}
	z := v.img.NewAux(out)
	if concaveRight {
		// under: tangent at t ≤ 0 through (up, f(up)); over: mirror
		t := tangentThrough(f, df, up, lo, 0)
		s := df(t)
		v.img.AddCut(GE, f(up)-s*up, Term{z, 1}, Term{v, -s})
		u := tangentThrough(f, df, lo, 0, up)
		s = df(u)
		v.img.AddCut(LE, f(lo)-s*lo, Term{z, 1}, Term{v, -s})
	} else {
		t := tangentThrough(f, df, lo, 0, up)
		s := df(t)
		v.img.AddCut(GE, f(lo)-s*lo, Term{z, 1}, Term{v, -s})
		u := tangentThrough(f, df, up, lo, 0)
		s = df(u)
		v.img.AddCut(LE, f(up)-s*up, Term{z, 1}, Term{v, -s})
	}
	return z, nil
}

func (v *Var) Exp() (arith.Value, error) {
	rng, err := ivOp(v.rng, func(a arith.Value) (arith.Value, error) { return a.Exp() })
	if err != nil {
		return nil, err
	}
	return v.envelope(rng, math.Exp, math.Exp, true)
}

func (v *Var) Log() (arith.Value, error) {
	rng, err := ivOp(v.rng, func(a arith.Value) (arith.Value, error) { return a.Log() })
	if err != nil {
		return nil, err
	}
	return v.envelope(rng, math.Log, func(t float64) float64 { return 1 / t }, false)
}

func (v *Var) Sqrt() (arith.Value, error) {
	rng, err := ivOp(v.rng, func(a arith.Value) (arith.Value, error) { return a.Sqrt() })
	if err != nil {
		return nil, err
	}
	df := func(t float64) float64 {
		if t == 0 {
			return math.Inf(1)
		}
		return 0.5 / math.Sqrt(t)
	}
	return v.envelope(rng, math.Sqrt, df, false)
}

func (v *Var) Sqr() (arith.Value, error) {
	rng, err := ivOp(v.rng, func(a arith.Value) (arith.Value, error) { return a.Sqr() })
	if err != nil {
		return nil, err
	}
	return v.envelope(rng,
		func(t float64) float64 { return t * t },
		func(t float64) float64 { return 2 * t }, true)
}

func (v *Var) Pow(n int) (arith.Value, error) {
	switch {
	case n == 0:
		return v.Lift(1), nil
	case n == 1:
		return v, nil
	case n == 2:
		return v.Sqr()
	case n < 0:
		return nil, arith.NotImplemented("polrelax", "Pow with negative exponent")
	}
	rng, err := ivOp(v.rng, func(a arith.Value) (arith.Value, error) { return a.Pow(n) })
	if err != nil {
		return nil, err
	}
	f := func(t float64) float64 { return math.Pow(t, float64(n)) }
	df := func(t float64) float64 { return float64(n) * math.Pow(t, float64(n-1)) }
	if n%2 == 0 {
		return v.envelope(rng, f, df, true)
	}
	return v.sCurve(rng, f, df, false)
}

func (v *Var) Tanh() (arith.Value, error) {
	rng, err := ivOp(v.rng, func(a arith.Value) (arith.Value, error) { return a.Tanh() })
	if err != nil {
		return nil, err
	}
	df := func(t float64) float64 { th := math.Tanh(t); return 1 - th*th }
	return v.sCurve(rng, math.Tanh, df, true)
}

func (v *Var) Erf() (arith.Value, error) {
	rng, err := ivOp(v.rng, func(a arith.Value) (arith.Value, error) { return a.Erf() })
	if err != nil {
		return nil, err
	}
	df := func(t float64) float64 { return 2 / math.Sqrt(math.Pi) * math.Exp(-t*t) }
	return v.sCurve(rng, math.Erf, df, true)
}

func (v *Var) Fabs() (arith.Value, error) {
	lo, up := v.rng.Bounds()
	switch {
	case lo >= 0:
		return v, nil
	case up <= 0:
		return v.Neg()
	}
	rng, _ := v.rng.Fabs()
	z := v.img.NewAux(rng.(interval.Interval))
	v.img.SemilinearCuts(v, z, []float64{lo, 0, up}, math.Abs, EQ)
	return z, nil
}

func (v *Var) Relu() (arith.Value, error) {
	lo, up := v.rng.Bounds()
	switch {
	case lo >= 0:
		return v, nil
	case up <= 0:
		return v.Lift(0), nil
	}
	rng, _ := v.rng.Relu()
	z := v.img.NewAux(rng.(interval.Interval))
	v.img.SemilinearCuts(v, z, []float64{lo, 0, up},
		func(t float64) float64 { return math.Max(t, 0) }, EQ)
	return z, nil
}

// Max is relaxed through the identity max(x, y) = x + relu(y − x).
func (v *Var) Max(y arith.Value) (arith.Value, error) {
	w, err := v.same("Max", y)
	if err != nil {
		return nil, err
	}
	d, err := w.Sub(v)
	if err != nil {
		return nil, err
	}
	r, err := d.(*Var).Relu()
	if err != nil {
		return nil, err
	}
	return v.Add(r)
}

func (v *Var) Min(y arith.Value) (arith.Value, error) {
	w, err := v.same("Min", y)
	if err != nil {
		return nil, err
	}
	nv, err := v.Neg()
	if err != nil {
		return nil, err
	}
	nw, err := w.Neg()
	if err != nil {
		return nil, err
	}
	m, err := nv.(*Var).Max(nw)
	if err != nil {
		return nil, err
	}
	return m.(*Var).Neg()
}

func (v *Var) Cheb(n uint) (arith.Value, error) { return arith.ChebRecur(v, n) }

func (v *Var) Lo() float64   { return v.rng.Lo() }
func (v *Var) Up() float64   { return v.rng.Up() }
func (v *Var) Mid() float64  { return v.rng.Mid() }
func (v *Var) Diam() float64 { return v.rng.Diam() }
func (v *Var) Mag() float64  { return v.rng.Mag() }

func (v *Var) Eq(y arith.Value) bool { w, ok := y.(*Var); return ok && v == w }
func (v *Var) Lt(y arith.Value) bool { w, ok := y.(*Var); return ok && v.rng.Lt(w.rng) }
func (v *Var) Le(y arith.Value) bool { w, ok := y.(*Var); return ok && v.rng.Le(w.rng) }
