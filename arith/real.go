package arith

import (
	"fmt"
	"math"
)

var nan = math.NaN()

// Real is the plain floating-point payload. Bound queries collapse to the
// point itself; comparisons are value comparisons.
type Real float64

// reflect the receiver's kind on the operand, or fail.
func asReal(op string, y Value) (Real, error) {
	r, ok := y.(Real)
	if !ok {
		return 0, fmt.Errorf("arith: Real.%s with %T operand: %w", op, y, ErrKindMismatch)
	}
	return r, nil
}

func (Real) Lift(c float64) Value { return Real(c) }

func (x Real) Add(y Value) (Value, error) {
	r, err := asReal("Add", y)
	if err != nil {
		return nil, err
	}
	return x + r, nil
}

func (x Real) Sub(y Value) (Value, error) {
	r, err := asReal("Sub", y)
	if err != nil {
		return nil, err
	}
	return x - r, nil
}

func (x Real) Mul(y Value) (Value, error) {
	r, err := asReal("Mul", y)
	if err != nil {
		return nil, err
	}
	return x * r, nil
}

func (x Real) Div(y Value) (Value, error) {
	r, err := asReal("Div", y)
	if err != nil {
		return nil, err
	}
	if r == 0 {
		return nil, fmt.Errorf("arith: Real division by zero: %w", ErrDomain)
	}
	return x / r, nil
}

func (x Real) Neg() (Value, error)                 { return -x, nil }
func (x Real) AddConst(c float64) (Value, error)   { return x + Real(c), nil }
func (x Real) ScaleConst(c float64) (Value, error) { return x * Real(c), nil }

func (x Real) Exp() (Value, error) { return Real(math.Exp(float64(x))), nil }

func (x Real) Log() (Value, error) {
	if x <= 0 {
		return nil, fmt.Errorf("arith: Real log of %v: %w", float64(x), ErrDomain)
	}
	return Real(math.Log(float64(x))), nil
}

func (x Real) Sqrt() (Value, error) {
	if x < 0 {
		return nil, fmt.Errorf("arith: Real sqrt of %v: %w", float64(x), ErrDomain)
	}
	return Real(math.Sqrt(float64(x))), nil
}

func (x Real) Sqr() (Value, error) { return x * x, nil }

func (x Real) Pow(n int) (Value, error) {
	if n < 0 && x == 0 {
		return nil, fmt.Errorf("arith: Real pow(0,%d): %w", n, ErrDomain)
	}
	return Real(math.Pow(float64(x), float64(n))), nil
}

func (x Real) Sin() (Value, error) { return Real(math.Sin(float64(x))), nil }
func (x Real) Cos() (Value, error) { return Real(math.Cos(float64(x))), nil }
func (x Real) Tan() (Value, error) { return Real(math.Tan(float64(x))), nil }

func (x Real) Asin() (Value, error) {
	if x < -1 || x > 1 {
		return nil, fmt.Errorf("arith: Real asin of %v: %w", float64(x), ErrDomain)
	}
	return Real(math.Asin(float64(x))), nil
}

func (x Real) Acos() (Value, error) {
	if x < -1 || x > 1 {
		return nil, fmt.Errorf("arith: Real acos of %v: %w", float64(x), ErrDomain)
	}
	return Real(math.Acos(float64(x))), nil
}

func (x Real) Atan() (Value, error) { return Real(math.Atan(float64(x))), nil }
func (x Real) Sinh() (Value, error) { return Real(math.Sinh(float64(x))), nil }
func (x Real) Cosh() (Value, error) { return Real(math.Cosh(float64(x))), nil }
func (x Real) Tanh() (Value, error) { return Real(math.Tanh(float64(x))), nil }
func (x Real) Erf() (Value, error)  { return Real(math.Erf(float64(x))), nil }
func (x Real) Erfc() (Value, error) { return Real(math.Erfc(float64(x))), nil }
func (x Real) Fabs() (Value, error) { return Real(math.Abs(float64(x))), nil }

func (x Real) Min(y Value) (Value, error) {
	r, err := asReal("Min", y)
	if err != nil {
		return nil, err
	}
	return Real(math.Min(float64(x), float64(r))), nil
}

func (x Real) Max(y Value) (Value, error) {
	r, err := asReal("Max", y)
	if err != nil {
		return nil, err
	}
	return Real(math.Max(float64(x), float64(r))), nil
}

func (x Real) Relu() (Value, error) { return Real(math.Max(float64(x), 0)), nil }

func (x Real) Lo() float64   { return float64(x) }
func (x Real) Up() float64   { return float64(x) }
func (x Real) Mid() float64  { return float64(x) }
func (x Real) Diam() float64 { return 0 }
func (x Real) Mag() float64  { return math.Abs(float64(x)) }

func (x Real) Eq(y Value) bool { r, ok := y.(Real); return ok && x == r }
func (x Real) Lt(y Value) bool { r, ok := y.(Real); return ok && x < r }
func (x Real) Le(y Value) bool { r, ok := y.(Real); return ok && x <= r }

// Hull of two points is not representable as a point.
func (x Real) Hull(Value) (Value, error) { return nil, NotImplemented("arith", "Real.Hull") }

func (x Real) Inter(y Value) (Value, bool, error) {
	r, err := asReal("Inter", y)
	if err != nil {
		return nil, false, err
	}
	if x != r {
		return nil, false, nil
	}
	return x, true, nil
}

func (x Real) Cheb(n uint) (Value, error) { return ChebRecur(x, n) }

func (x Real) String() string { return fmt.Sprintf("%g", float64(x)) }
