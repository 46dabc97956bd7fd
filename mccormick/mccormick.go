package mccormick

import (
	"fmt"
	"math"

	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/interval"
)

// Root-search controls for envelope tangency points of S-shaped univariates.
const (
	rootMaxIter = 100
	rootTol     = 1e-10
)

// Var is a McCormick relaxation: interval bound, convex underestimate cv and
// concave overestimate cc at a reference point, and one subgradient entry per
// declared direction. The zero subgradient slice denotes a constant.
type Var struct {
	arith.Unsupported

	bnd    interval.Interval
	cv, cc float64
	cvsub  []float64
	ccsub  []float64
}

// New returns the relaxation of the point ref over the range bnd.
// ref is clamped into bnd.
func New(bnd interval.Interval, ref float64) Var {
	ref = math.Max(bnd.Lo(), math.Min(bnd.Up(), ref))
	return Var{bnd: bnd, cv: ref, cc: ref}
}

// Seed marks the variable as differentiation direction idx out of nsub.
func (x Var) Seed(nsub, idx int) Var {
	x.cvsub = make([]float64, nsub)
	x.ccsub = make([]float64, nsub)
	x.cvsub[idx] = 1
	x.ccsub[idx] = 1
	return x
}

// Bound reports the interval part of the relaxation.
func (x Var) Bound() interval.Interval { return x.bnd }

// Cv and Cc report the convex/concave estimates at the reference point.
func (x Var) Cv() float64 { return x.cv }
func (x Var) Cc() float64 { return x.cc }

// CvSub and CcSub report subgradient components (zero beyond the seeded
// directions).
func (x Var) CvSub(i int) float64 { return at(x.cvsub, i) }
func (x Var) CcSub(i int) float64 { return at(x.ccsub, i) }

// NSub reports the number of seeded directions.
func (x Var) NSub() int { return len(x.cvsub) }

func at(s []float64, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func asVar(op string, y arith.Value) (Var, error) {
	v, ok := y.(Var)
	if !ok {
		return Var{}, fmt.Errorf("mccormick: %s with %T operand: %w", op, y, arith.ErrKindMismatch)
	}
	return v, nil
}

func dims(x, y Var) int {
	if len(x.cvsub) > len(y.cvsub) {
		return len(x.cvsub)
	}
	return len(y.cvsub)
}

// scaled returns c*s padded to n entries.
func scaled(s []float64, c float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = c * at(s, i)
	}
	return out
}

func addScaled(a []float64, s []float64, c float64) {
	for i := range a {
		a[i] += c * at(s, i)
	}
}

// underTerm selects the relaxation side of c·x valid as an underestimate.
func underTerm(c float64, x Var, n int) (float64, []float64) {
	if c >= 0 {
		return c * x.cv, scaled(x.cvsub, c, n)
	}
	return c * x.cc, scaled(x.ccsub, c, n)
}

// overTerm selects the relaxation side of c·x valid as an overestimate.
func overTerm(c float64, x Var, n int) (float64, []float64) {
	if c >= 0 {
		return c * x.cc, scaled(x.ccsub, c, n)
	}
	return c * x.cv, scaled(x.cvsub, c, n)
}

func (Var) Lift(c float64) arith.Value { return New(interval.Point(c), c) }

func (x Var) Add(y arith.Value) (arith.Value, error) {
	v, err := asVar("Add", y)
	if err != nil {
		return nil, err
	}
	b, err := x.bnd.Add(v.bnd)
	if err != nil {
		return nil, err
	}
	n := dims(x, v)
	cvsub, ccsub := scaled(x.cvsub, 1, n), scaled(x.ccsub, 1, n)
	addScaled(cvsub, v.cvsub, 1)
	addScaled(ccsub, v.ccsub, 1)
	return Var{bnd: b.(interval.Interval), cv: x.cv + v.cv, cc: x.cc + v.cc, cvsub: cvsub, ccsub: ccsub}, nil
}

func (x Var) Sub(y arith.Value) (arith.Value, error) {
	v, err := asVar("Sub", y)
	if err != nil {
		return nil, err
	}
	nv, err := v.Neg()
	if err != nil {
		return nil, err
	}
	return x.Add(nv)
}

func (x Var) Neg() (arith.Value, error) {
	b, _ := x.bnd.Neg()
	n := len(x.cvsub)
	return Var{
		bnd: b.(interval.Interval), cv: -x.cc, cc: -x.cv,
		cvsub: scaled(x.ccsub, -1, n), ccsub: scaled(x.cvsub, -1, n),
	}, nil
}

func (x Var) AddConst(c float64) (arith.Value, error) {
	b, _ := x.bnd.AddConst(c)
	x.bnd = b.(interval.Interval)
	x.cv += c
	x.cc += c
	return x, nil
}

func (x Var) ScaleConst(c float64) (arith.Value, error) {
	b, _ := x.bnd.ScaleConst(c)
	n := len(x.cvsub)
	if c >= 0 {
		return Var{bnd: b.(interval.Interval), cv: c * x.cv, cc: c * x.cc,
			cvsub: scaled(x.cvsub, c, n), ccsub: scaled(x.ccsub, c, n)}, nil
	}
	return Var{bnd: b.(interval.Interval), cv: c * x.cc, cc: c * x.cv,
		cvsub: scaled(x.ccsub, c, n), ccsub: scaled(x.cvsub, c, n)}, nil
}

// Mul implements the bilinear McCormick envelope with subgradients.
func (x Var) Mul(y arith.Value) (arith.Value, error) {
	v, err := asVar("Mul", y)
	if err != nil {
		return nil, err
	}
	b, err := x.bnd.Mul(v.bnd)
	if err != nil {
		return nil, err
	}
	xL, xU := x.bnd.Bounds()
	yL, yU := v.bnd.Bounds()
	n := dims(x, v)

	bilin := func(cx, cy, d float64, under bool) (float64, []float64) {
		var tx, ty float64
		var sx, sy []float64
		if under {
			tx, sx = underTerm(cy, x, n) // cy·x
			ty, sy = underTerm(cx, v, n) // cx·y
		} else {
			tx, sx = overTerm(cy, x, n)
			ty, sy = overTerm(cx, v, n)
		}
		val := tx + ty + d
		for i := range sx {
			sx[i] += sy[i]
		}
		return val, sx
	}

	cv1, cv1s := bilin(xL, yL, -xL*yL, true)
	cv2, cv2s := bilin(xU, yU, -xU*yU, true)
	cv, cvsub := cv1, cv1s
	if cv2 > cv1 {
		cv, cvsub = cv2, cv2s
	}
	cc1, cc1s := bilin(xL, yU, -xL*yU, false)
	cc2, cc2s := bilin(xU, yL, -xU*yL, false)
	cc, ccsub := cc1, cc1s
	if cc2 < cc1 {
		cc, ccsub = cc2, cc2s
	}
	return Var{bnd: b.(interval.Interval), cv: cv, cc: cc, cvsub: cvsub, ccsub: ccsub}, nil
}

func (x Var) Div(y arith.Value) (arith.Value, error) {
	v, err := asVar("Div", y)
	if err != nil {
		return nil, err
	}
	iv, err := v.inv()
	if err != nil {
		return nil, err
	}
	return x.Mul(iv)
}

// mid3 returns the median of cv, cc, and z, tagged with which of the three
// relaxation sides it came from (0 = cv, 1 = cc, 2 = constant z).
func mid3(cv, cc, z float64) (float64, int) {
	if z <= math.Min(cv, cc) {
		if cv <= cc {
			return cv, 0
		}
		return cc, 1
	}
	if z >= math.Max(cv, cc) {
		if cv >= cc {
			return cv, 0
		}
		return cc, 1
	}
	return z, 2
}

func (x Var) pick(which int, g float64, n int) []float64 {
	switch which {
	case 0:
		return scaled(x.cvsub, g, n)
	case 1:
		return scaled(x.ccsub, g, n)
	}
	return make([]float64, n)
}

// composeConvex relaxes a convex univariate f with minimizer zmin over the
// operand's range: underestimate via f at the mid-selected point, overestimate
// via the secant chord.
func (x Var) composeConvex(bnd interval.Interval, f, df func(float64) float64, zmin float64) Var {
	xL, xU := x.bnd.Bounds()
	n := len(x.cvsub)

	z, which := mid3(x.cv, x.cc, zmin)
	cv := f(z)
	cvsub := x.pick(which, df(z), n)

	var s float64
	if xU > xL {
		s = (f(xU) - f(xL)) / (xU - xL)
	}
	a := f(xL) - s*xL
	cc, ccsub := overTerm(s, x, n)
	cc += a

	return Var{bnd: bnd, cv: cv, cc: cc, cvsub: cvsub, ccsub: ccsub}
}

// composeConcave is the mirror image for a concave univariate f with
// maximizer zmax.
func (x Var) composeConcave(bnd interval.Interval, f, df func(float64) float64, zmax float64) Var {
	xL, xU := x.bnd.Bounds()
	n := len(x.cvsub)

	z, which := mid3(x.cv, x.cc, zmax)
	cc := f(z)
	ccsub := x.pick(which, df(z), n)

	var s float64
	if xU > xL {
		s = (f(xU) - f(xL)) / (xU - xL)
	}
	a := f(xL) - s*xL
	cv, cvsub := underTerm(s, x, n)
	cv += a

	return Var{bnd: bnd, cv: cv, cc: cc, cvsub: cvsub, ccsub: ccsub}
}

func (x Var) Exp() (arith.Value, error) {
	b, err := x.bnd.Exp()
	if err != nil {
		return nil, err
	}
	return x.composeConvex(b.(interval.Interval), math.Exp, math.Exp, x.bnd.Lo()), nil
}

func (x Var) Log() (arith.Value, error) {
	b, err := x.bnd.Log()
	if err != nil {
		return nil, err
	}
	return x.composeConcave(b.(interval.Interval), math.Log, func(t float64) float64 { return 1 / t }, x.bnd.Up()), nil
}

func (x Var) Sqrt() (arith.Value, error) {
	b, err := x.bnd.Sqrt()
	if err != nil {
		return nil, err
	}
	df := func(t float64) float64 {
		if t <= 0 {
			return math.Inf(1)
		}
		return 0.5 / math.Sqrt(t)
	}
	return x.composeConcave(b.(interval.Interval), math.Sqrt, df, x.bnd.Up()), nil
}

func (x Var) Sqr() (arith.Value, error) {
	b, err := x.bnd.Sqr()
	if err != nil {
		return nil, err
	}
	zmin := math.Max(x.bnd.Lo(), math.Min(x.bnd.Up(), 0))
	return x.composeConvex(b.(interval.Interval),
		func(t float64) float64 { return t * t },
		func(t float64) float64 { return 2 * t }, zmin), nil
}

func (x Var) Pow(n int) (arith.Value, error) {
	switch {
	case n == 0:
		return x.Lift(1), nil
	case n == 1:
		return x, nil
	case n == 2:
		return x.Sqr()
	case n < 0:
		p, err := x.Pow(-n)
		if err != nil {
			return nil, err
		}
		return p.(Var).inv()
	}
	b, err := x.bnd.Pow(n)
	if err != nil {
		return nil, err
	}
	f := func(t float64) float64 { return math.Pow(t, float64(n)) }
	df := func(t float64) float64 { return float64(n) * math.Pow(t, float64(n-1)) }
	bi := b.(interval.Interval)
	if n%2 == 0 {
		zmin := math.Max(x.bnd.Lo(), math.Min(x.bnd.Up(), 0))
		return x.composeConvex(bi, f, df, zmin), nil
	}
	// odd powers: convex on the right, concave on the left
	switch {
	case x.bnd.Lo() >= 0:
		return x.composeConvex(bi, f, df, x.bnd.Lo()), nil
	case x.bnd.Up() <= 0:
		return x.composeConcave(bi, f, df, x.bnd.Up()), nil
	}
	return x.composeConvexRight(bi, f, df), nil
}

func (x Var) inv() (Var, error) {
	xL, xU := x.bnd.Bounds()
	if x.bnd.Contains(0) {
		return Var{}, fmt.Errorf("mccormick: inverse of a range containing zero: %w", arith.ErrDomain)
	}
	b := interval.New(1/xU, 1/xL)
	f := func(t float64) float64 { return 1 / t }
	df := func(t float64) float64 { return -1 / (t * t) }
	if xL > 0 {
		// convex decreasing; minimized at the right endpoint
		return x.composeConvex(b, f, df, xU), nil
	}
	// concave decreasing on the negative axis; maximized at the left endpoint
	return x.composeConcave(b, f, df, xL), nil
}

// rootSecantTangent solves g(t) = 0 on [lo, up] by bisection. The envelope
// constructions only call it with g continuous and of opposite signs at the
// endpoints; when the sign condition fails the relevant endpoint is returned.
func rootSecantTangent(g func(float64) float64, lo, up float64) float64 {
	glo, gup := g(lo), g(up)
	if glo*gup > 0 {
		if math.Abs(glo) < math.Abs(gup) {
			return lo
		}
		return up
	}
	for i := 0; i < rootMaxIter && up-lo > rootTol; i++ {
		m := 0.5 * (lo + up)
		if g(m)*glo <= 0 {
			up = m
		} else {
			lo, glo = m, g(m)
		}
	}
	return 0.5 * (lo + up)
}

// composeConvexRight relaxes a univariate that is concave left of zero and
// convex right of it (odd powers) over a straddling range.
func (x Var) composeConvexRight(bnd interval.Interval, f, df func(float64) float64) Var {
	xL, xU := x.bnd.Bounds()
	n := len(x.cvsub)

	// under: secant from (xL, f(xL)) tangent at t ∈ [0, xU]
	t := rootSecantTangent(func(t float64) float64 {
		return df(t)*(t-xL) - (f(t) - f(xL))
	}, 0, xU)
	z, which := mid3(x.cv, x.cc, xL)
	var cv float64
	var cvsub []float64
	if z >= t {
		cv, cvsub = f(z), x.pick(which, df(z), n)
	} else {
		s := df(t)
		cv, cvsub = underTerm(s, x, n)
		cv += f(xL) - s*xL
		// the bisected tangency point carries round-off; shifting the
		// supporting line down keeps it an under-estimator
		if fz := f(z); cv > fz {
			cv = fz
		}
	}

	// over: secant from (xU, f(xU)) tangent at u ∈ [xL, 0]
	u := rootSecantTangent(func(u float64) float64 {
		return df(u)*(u-xU) - (f(u) - f(xU))
	}, xL, 0)
	z, which = mid3(x.cv, x.cc, xU)
	var cc float64
	var ccsub []float64
	if z <= u {
		cc, ccsub = f(z), x.pick(which, df(z), n)
	} else {
		s := df(u)
		cc, ccsub = overTerm(s, x, n)
		cc += f(xU) - s*xU
		if fz := f(z); cc < fz {
			cc = fz
		}
	}
	return Var{bnd: bnd, cv: cv, cc: cc, cvsub: cvsub, ccsub: ccsub}
}

// composeConcaveRight relaxes a univariate that is convex left of zero and
// concave right of it (tanh, erf) over a straddling range.
func (x Var) composeConcaveRight(bnd interval.Interval, f, df func(float64) float64) Var {
	xL, xU := x.bnd.Bounds()
	n := len(x.cvsub)

	// under: tangent at t ∈ [xL, 0] through (xU, f(xU))
	t := rootSecantTangent(func(t float64) float64 {
		return df(t)*(t-xU) - (f(t) - f(xU))
	}, xL, 0)
	z, which := mid3(x.cv, x.cc, xL)
	var cv float64
	var cvsub []float64
	if z <= t {
		cv, cvsub = f(z), x.pick(which, df(z), n)
	} else {
		s := df(t)
		cv, cvsub = underTerm(s, x, n)
		cv += f(xU) - s*xU
		if fz := f(z); cv > fz {
			cv = fz
		}
	}

	// over: tangent at u ∈ [0, xU] through (xL, f(xL))
	u := rootSecantTangent(func(u float64) float64 {
		return df(u)*(u-xL) - (f(u) - f(xL))
	}, 0, xU)
	z, which = mid3(x.cv, x.cc, xU)
	var cc float64
	var ccsub []float64
	if z >= u {
		cc, ccsub = f(z), x.pick(which, df(z), n)
	} else {
		s := df(u)
		cc, ccsub = overTerm(s, x, n)
		cc += f(xL) - s*xL
		if fz := f(z); cc < fz {
			cc = fz
		}
	}
	return Var{bnd: bnd, cv: cv, cc: cc, cvsub: cvsub, ccsub: ccsub}
}

func (x Var) Tanh() (arith.Value, error) {
	b, err := x.bnd.Tanh()
	if err != nil {
		return nil, err
	}
	f := math.Tanh
	df := func(t float64) float64 { th := math.Tanh(t); return 1 - th*th }
	bi := b.(interval.Interval)
	switch {
	case x.bnd.Lo() >= 0:
		return x.composeConcave(bi, f, df, x.bnd.Up()), nil
	case x.bnd.Up() <= 0:
		return x.composeConvex(bi, f, df, x.bnd.Lo()), nil
	}
	return x.composeConcaveRight(bi, f, df), nil
}

func (x Var) Erf() (arith.Value, error) {
	b, err := x.bnd.Erf()
	if err != nil {
		return nil, err
	}
	f := math.Erf
	df := func(t float64) float64 { return twoOverSqrtPi * math.Exp(-t*t) }
	bi := b.(interval.Interval)
	switch {
	case x.bnd.Lo() >= 0:
		return x.composeConcave(bi, f, df, x.bnd.Up()), nil
	case x.bnd.Up() <= 0:
		return x.composeConvex(bi, f, df, x.bnd.Lo()), nil
	}
	return x.composeConcaveRight(bi, f, df), nil
}

const twoOverSqrtPi = 1.1283791670955126

func (x Var) Fabs() (arith.Value, error) {
	b, err := x.bnd.Fabs()
	if err != nil {
		return nil, err
	}
	zmin := math.Max(x.bnd.Lo(), math.Min(x.bnd.Up(), 0))
	df := func(t float64) float64 {
		if t < 0 {
			return -1
		}
		return 1
	}
	return x.composeConvex(b.(interval.Interval), math.Abs, df, zmin), nil
}

func (x Var) Relu() (arith.Value, error) {
	b, err := x.bnd.Relu()
	if err != nil {
		return nil, err
	}
	zmin := math.Max(x.bnd.Lo(), math.Min(x.bnd.Up(), 0))
	f := func(t float64) float64 { return math.Max(t, 0) }
	df := func(t float64) float64 {
		if t <= 0 {
			return 0
		}
		return 1
	}
	return x.composeConvex(b.(interval.Interval), f, df, zmin), nil
}

func (x Var) Max(y arith.Value) (arith.Value, error) {
	v, err := asVar("Max", y)
	if err != nil {
		return nil, err
	}
	// max(x, y) = (x + y + |x − y|) / 2
	d, err := x.Sub(v)
	if err != nil {
		return nil, err
	}
	ad, err := d.(Var).Fabs()
	if err != nil {
		return nil, err
	}
	s, err := x.Add(v)
	if err != nil {
		return nil, err
	}
	s, err = s.(Var).Add(ad)
	if err != nil {
		return nil, err
	}
	return s.(Var).ScaleConst(0.5)
}

func (x Var) Min(y arith.Value) (arith.Value, error) {
	v, err := asVar("Min", y)
	if err != nil {
		return nil, err
	}
	nx, _ := x.Neg()
	nv, _ := v.Neg()
	m, err := nx.(Var).Max(nv)
	if err != nil {
		return nil, err
	}
	return m.(Var).Neg()
}

// XLog relaxes x·log x (convex, minimized at 1/e).
func XLog(x Var) (Var, error) {
	if x.bnd.Lo() <= 0 {
		return Var{}, fmt.Errorf("mccormick: xlog of range [%g, %g]: %w", x.bnd.Lo(), x.bnd.Up(), arith.ErrDomain)
	}
	f := func(t float64) float64 { return t * math.Log(t) }
	df := func(t float64) float64 { return math.Log(t) + 1 }
	xL, xU := x.bnd.Bounds()
	lo := f(math.Max(xL, math.Min(xU, 1/math.E)))
	hi := math.Max(f(xL), f(xU))
	zmin := math.Max(xL, math.Min(xU, 1/math.E))
	return x.composeConvex(interval.New(lo, hi), f, df, zmin), nil
}

func (x Var) Lo() float64   { return x.bnd.Lo() }
func (x Var) Up() float64   { return x.bnd.Up() }
func (x Var) Mid() float64  { return x.bnd.Mid() }
func (x Var) Diam() float64 { return x.bnd.Diam() }
func (x Var) Mag() float64  { return x.bnd.Mag() }

func (x Var) Eq(y arith.Value) bool {
	v, ok := y.(Var)
	return ok && x.bnd.Eq(v.bnd) && x.cv == v.cv && x.cc == v.cc
}

func (x Var) Lt(y arith.Value) bool { v, ok := y.(Var); return ok && x.bnd.Lt(v.bnd) }
func (x Var) Le(y arith.Value) bool { v, ok := y.(Var); return ok && x.bnd.Le(v.bnd) }

func (x Var) Hull(y arith.Value) (arith.Value, error) {
	v, err := asVar("Hull", y)
	if err != nil {
		return nil, err
	}
	h, err := x.bnd.Hull(v.bnd)
	if err != nil {
		return nil, err
	}
	hb := h.(interval.Interval)
	return Var{bnd: hb, cv: hb.Lo(), cc: hb.Up()}, nil
}

func (x Var) Inter(y arith.Value) (arith.Value, bool, error) {
	v, err := asVar("Inter", y)
	if err != nil {
		return nil, false, err
	}
	b, ok, err := x.bnd.Inter(v.bnd)
	if err != nil || !ok {
		return nil, ok, err
	}
	cv := math.Max(x.cv, v.cv)
	cc := math.Min(x.cc, v.cc)
	if cv > cc {
		return nil, false, nil
	}
	cvsub, ccsub := x.cvsub, x.ccsub
	if v.cv > x.cv {
		cvsub = v.cvsub
	}
	if v.cc < x.cc {
		ccsub = v.ccsub
	}
	return Var{bnd: b.(interval.Interval), cv: cv, cc: cc, cvsub: cvsub, ccsub: ccsub}, true, nil
}

func (x Var) Cheb(n uint) (arith.Value, error) { return arith.ChebRecur(x, n) }

func (x Var) String() string {
	return fmt.Sprintf("[%g, %g] cv=%g cc=%g", x.bnd.Lo(), x.bnd.Up(), x.cv, x.cc)
}
