package arith

import (
	"fmt"
	"strings"
)

// Dual is the forward-mode differentiation payload: a value plus one
// directional derivative per differentiation direction, each expressed in the
// component payload kind. Instantiating Dual over Real yields numeric forward
// AD; instantiating it over a graph-expression payload yields symbolic
// forward AD. The graph engine uses the latter as the automatic fallback for
// external operations without an analytic derivative rule.
type Dual struct {
	Val Value
	Dot []Value
}

// Seed returns a Dual for differentiation direction idx out of ndir, with
// derivative one in that direction and zero elsewhere.
func Seed(val Value, ndir, idx int) Dual {
	dot := make([]Value, ndir)
	for i := range dot {
		dot[i] = val.Lift(0)
	}
	dot[idx] = val.Lift(1)
	return Dual{Val: val, Dot: dot}
}

// Constant returns a Dual with zero derivative in every direction.
func Constant(val Value, ndir int) Dual {
	dot := make([]Value, ndir)
	for i := range dot {
		dot[i] = val.Lift(0)
	}
	return Dual{Val: val, Dot: dot}
}

func asDual(op string, y Value) (Dual, error) {
	d, ok := y.(Dual)
	if !ok {
		return Dual{}, fmt.Errorf("arith: Dual.%s with %T operand: %w", op, y, ErrKindMismatch)
	}
	return d, nil
}

// chain applies the unary rule y = f(x), y' = g·x' for every direction.
func (x Dual) chain(val Value, g Value) (Value, error) {
	dot := make([]Value, len(x.Dot))
	for i, d := range x.Dot {
		gd, err := g.Mul(d)
		if err != nil {
			return nil, err
		}
		dot[i] = gd
	}
	return Dual{Val: val, Dot: dot}, nil
}

func (x Dual) Lift(c float64) Value { return Constant(x.Val.Lift(c), len(x.Dot)) }

func (x Dual) Add(y Value) (Value, error) {
	d, err := asDual("Add", y)
	if err != nil {
		return nil, err
	}
	val, err := x.Val.Add(d.Val)
	if err != nil {
		return nil, err
	}
	dot := make([]Value, len(x.Dot))
	for i := range x.Dot {
		if dot[i], err = x.Dot[i].Add(d.Dot[i]); err != nil {
			return nil, err
		}
	}
	return Dual{Val: val, Dot: dot}, nil
}

func (x Dual) Sub(y Value) (Value, error) {
	d, err := asDual("Sub", y)
	if err != nil {
		return nil, err
	}
	val, err := x.Val.Sub(d.Val)
	if err != nil {
		return nil, err
	}
	dot := make([]Value, len(x.Dot))
	for i := range x.Dot {
		if dot[i], err = x.Dot[i].Sub(d.Dot[i]); err != nil {
			return nil, err
		}
	}
	return Dual{Val: val, Dot: dot}, nil
}

func (x Dual) Mul(y Value) (Value, error) {
	d, err := asDual("Mul", y)
	if err != nil {
		return nil, err
	}
	val, err := x.Val.Mul(d.Val)
	if err != nil {
		return nil, err
	}
	dot := make([]Value, len(x.Dot))
	for i := range x.Dot {
		xd, err := x.Dot[i].Mul(d.Val)
		if err != nil {
			return nil, err
		}
		yd, err := x.Val.Mul(d.Dot[i])
		if err != nil {
			return nil, err
		}
		if dot[i], err = xd.Add(yd); err != nil {
			return nil, err
		}
	}
	return Dual{Val: val, Dot: dot}, nil
}

func (x Dual) Div(y Value) (Value, error) {
	d, err := asDual("Div", y)
	if err != nil {
		return nil, err
	}
	val, err := x.Val.Div(d.Val)
	if err != nil {
		return nil, err
	}
	// (x/y)' = (x' − (x/y)·y')/y
	dot := make([]Value, len(x.Dot))
	for i := range x.Dot {
		qd, err := val.Mul(d.Dot[i])
		if err != nil {
			return nil, err
		}
		num, err := x.Dot[i].Sub(qd)
		if err != nil {
			return nil, err
		}
		if dot[i], err = num.Div(d.Val); err != nil {
			return nil, err
		}
	}
	return Dual{Val: val, Dot: dot}, nil
}

func (x Dual) Neg() (Value, error) {
	val, err := x.Val.Neg()
	if err != nil {
		return nil, err
	}
	dot := make([]Value, len(x.Dot))
	for i := range x.Dot {
		if dot[i], err = x.Dot[i].Neg(); err != nil {
			return nil, err
		}
	}
	return Dual{Val: val, Dot: dot}, nil
}

func (x Dual) AddConst(c float64) (Value, error) {
	val, err := x.Val.AddConst(c)
	if err != nil {
		return nil, err
	}
	return Dual{Val: val, Dot: x.Dot}, nil
}

func (x Dual) ScaleConst(c float64) (Value, error) {
	val, err := x.Val.ScaleConst(c)
	if err != nil {
		return nil, err
	}
	dot := make([]Value, len(x.Dot))
	for i := range x.Dot {
		if dot[i], err = x.Dot[i].ScaleConst(c); err != nil {
			return nil, err
		}
	}
	return Dual{Val: val, Dot: dot}, nil
}

func (x Dual) Exp() (Value, error) {
	val, err := x.Val.Exp()
	if err != nil {
		return nil, err
	}
	return x.chain(val, val)
}

func (x Dual) Log() (Value, error) {
	val, err := x.Val.Log()
	if err != nil {
		return nil, err
	}
	g, err := x.Val.Lift(1).Div(x.Val)
	if err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

func (x Dual) Sqrt() (Value, error) {
	val, err := x.Val.Sqrt()
	if err != nil {
		return nil, err
	}
	den, err := val.ScaleConst(2)
	if err != nil {
		return nil, err
	}
	g, err := x.Val.Lift(1).Div(den)
	if err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

func (x Dual) Sqr() (Value, error) {
	val, err := x.Val.Sqr()
	if err != nil {
		return nil, err
	}
	g, err := x.Val.ScaleConst(2)
	if err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

func (x Dual) Pow(n int) (Value, error) {
	val, err := x.Val.Pow(n)
	if err != nil {
		return nil, err
	}
	xp, err := x.Val.Pow(n - 1)
	if err != nil {
		return nil, err
	}
	g, err := xp.ScaleConst(float64(n))
	if err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

func (x Dual) Sin() (Value, error) {
	val, err := x.Val.Sin()
	if err != nil {
		return nil, err
	}
	g, err := x.Val.Cos()
	if err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

func (x Dual) Cos() (Value, error) {
	val, err := x.Val.Cos()
	if err != nil {
		return nil, err
	}
	s, err := x.Val.Sin()
	if err != nil {
		return nil, err
	}
	g, err := s.Neg()
	if err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

func (x Dual) Tan() (Value, error) {
	val, err := x.Val.Tan()
	if err != nil {
		return nil, err
	}
	t2, err := val.Sqr()
	if err != nil {
		return nil, err
	}
	g, err := t2.AddConst(1)
	if err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

func (x Dual) Atan() (Value, error) {
	val, err := x.Val.Atan()
	if err != nil {
		return nil, err
	}
	x2, err := x.Val.Sqr()
	if err != nil {
		return nil, err
	}
	den, err := x2.AddConst(1)
	if err != nil {
		return nil, err
	}
	g, err := x.Val.Lift(1).Div(den)
	if err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

func (x Dual) Asin() (Value, error) {
	val, err := x.Val.Asin()
	if err != nil {
		return nil, err
	}
	g, err := x.asinDeriv()
	if err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

func (x Dual) Acos() (Value, error) {
	val, err := x.Val.Acos()
	if err != nil {
		return nil, err
	}
	g, err := x.asinDeriv()
	if err != nil {
		return nil, err
	}
	if g, err = g.Neg(); err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

// asinDeriv computes 1/sqrt(1−x²).
func (x Dual) asinDeriv() (Value, error) {
	x2, err := x.Val.Sqr()
	if err != nil {
		return nil, err
	}
	one := x.Val.Lift(1)
	den, err := one.Sub(x2)
	if err != nil {
		return nil, err
	}
	if den, err = den.Sqrt(); err != nil {
		return nil, err
	}
	return one.Div(den)
}

func (x Dual) Sinh() (Value, error) {
	val, err := x.Val.Sinh()
	if err != nil {
		return nil, err
	}
	g, err := x.Val.Cosh()
	if err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

func (x Dual) Cosh() (Value, error) {
	val, err := x.Val.Cosh()
	if err != nil {
		return nil, err
	}
	g, err := x.Val.Sinh()
	if err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

func (x Dual) Tanh() (Value, error) {
	val, err := x.Val.Tanh()
	if err != nil {
		return nil, err
	}
	t2, err := val.Sqr()
	if err != nil {
		return nil, err
	}
	g, err := x.Val.Lift(1).Sub(t2)
	if err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

func (x Dual) Erf() (Value, error) {
	val, err := x.Val.Erf()
	if err != nil {
		return nil, err
	}
	g, err := x.erfDeriv()
	if err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

func (x Dual) Erfc() (Value, error) {
	val, err := x.Val.Erfc()
	if err != nil {
		return nil, err
	}
	g, err := x.erfDeriv()
	if err != nil {
		return nil, err
	}
	if g, err = g.Neg(); err != nil {
		return nil, err
	}
	return x.chain(val, g)
}

// erfDeriv computes (2/√π)·exp(−x²).
func (x Dual) erfDeriv() (Value, error) {
	x2, err := x.Val.Sqr()
	if err != nil {
		return nil, err
	}
	nx2, err := x2.Neg()
	if err != nil {
		return nil, err
	}
	e, err := nx2.Exp()
	if err != nil {
		return nil, err
	}
	return e.ScaleConst(twoOverSqrtPi)
}

const twoOverSqrtPi = 1.1283791670955126

// sign-dependent primitives differentiate along the branch selected by the
// component value's bounds; a range straddling the kink is a domain error.
func (x Dual) Fabs() (Value, error) {
	val, err := x.Val.Fabs()
	if err != nil {
		return nil, err
	}
	switch {
	case x.Val.Lo() >= 0:
		return Dual{Val: val, Dot: x.Dot}, nil
	case x.Val.Up() <= 0:
		return x.chain(val, x.Val.Lift(-1))
	}
	return nil, fmt.Errorf("arith: Dual fabs over a range straddling 0: %w", ErrDomain)
}

func (x Dual) Relu() (Value, error) {
	val, err := x.Val.Relu()
	if err != nil {
		return nil, err
	}
	switch {
	case x.Val.Lo() >= 0:
		return Dual{Val: val, Dot: x.Dot}, nil
	case x.Val.Up() <= 0:
		return x.chain(val, x.Val.Lift(0))
	}
	return nil, fmt.Errorf("arith: Dual relu over a range straddling 0: %w", ErrDomain)
}

func (x Dual) Min(y Value) (Value, error) {
	d, err := asDual("Min", y)
	if err != nil {
		return nil, err
	}
	if x.Val.Le(d.Val) {
		return x, nil
	}
	return d, nil
}

func (x Dual) Max(y Value) (Value, error) {
	d, err := asDual("Max", y)
	if err != nil {
		return nil, err
	}
	if x.Val.Le(d.Val) {
		return d, nil
	}
	return x, nil
}

func (x Dual) Lo() float64   { return x.Val.Lo() }
func (x Dual) Up() float64   { return x.Val.Up() }
func (x Dual) Mid() float64  { return x.Val.Mid() }
func (x Dual) Diam() float64 { return x.Val.Diam() }
func (x Dual) Mag() float64  { return x.Val.Mag() }

func (x Dual) Eq(y Value) bool { d, ok := y.(Dual); return ok && x.Val.Eq(d.Val) }
func (x Dual) Lt(y Value) bool { d, ok := y.(Dual); return ok && x.Val.Lt(d.Val) }
func (x Dual) Le(y Value) bool { d, ok := y.(Dual); return ok && x.Val.Le(d.Val) }

func (x Dual) Hull(Value) (Value, error) { return nil, NotImplemented("arith", "Dual.Hull") }
func (x Dual) Inter(Value) (Value, bool, error) {
	return nil, false, NotImplemented("arith", "Dual.Inter")
}

func (x Dual) Cheb(n uint) (Value, error) { return ChebRecur(x, n) }

func (x Dual) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v [", x.Val)
	for i, d := range x.Dot {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v", d)
	}
	b.WriteString("]")
	return b.String()
}
