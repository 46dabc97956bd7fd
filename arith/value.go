package arith

import "fmt"

// Value is the uniform dispatch surface every payload type supplies.
//
// Binary operations (Add, Sub, Mul, Div, Min, Max, Hull, Inter) expect the
// operand to be of the same payload kind as the receiver and return
// ErrKindMismatch otherwise. Scalar constants enter through AddConst,
// ScaleConst, or Lift.
//
// A payload that does not support a primitive must return an error wrapping
// ErrNotImplemented (embed Unsupported to get this behavior for free).
type Value interface {
	// Lift returns a constant c expressed in the receiver's payload kind.
	// It must succeed for every payload type.
	Lift(c float64) Value

	// Arithmetic.
	Add(y Value) (Value, error)
	Sub(y Value) (Value, error)
	Mul(y Value) (Value, error)
	Div(y Value) (Value, error)
	Neg() (Value, error)
	AddConst(c float64) (Value, error)
	ScaleConst(c float64) (Value, error)

	// Elementary functions.
	Exp() (Value, error)
	Log() (Value, error)
	Sqrt() (Value, error)
	Sqr() (Value, error)
	Pow(n int) (Value, error)
	Sin() (Value, error)
	Cos() (Value, error)
	Tan() (Value, error)
	Asin() (Value, error)
	Acos() (Value, error)
	Atan() (Value, error)
	Sinh() (Value, error)
	Cosh() (Value, error)
	Tanh() (Value, error)
	Erf() (Value, error)
	Erfc() (Value, error)
	Fabs() (Value, error)
	Min(y Value) (Value, error)
	Max(y Value) (Value, error)
	Relu() (Value, error)

	// Bound queries. For point payloads Lo == Up == the value itself.
	Lo() float64
	Up() float64
	Mid() float64
	Diam() float64
	// Mag returns the largest absolute value attained over the range.
	Mag() float64

	// Comparisons. Defined via bound comparison on relaxation payloads,
	// via value comparison on point payloads.
	Eq(y Value) bool
	Lt(y Value) bool
	Le(y Value) bool

	// Relaxation helpers.
	// Hull encloses the union of the receiver and y.
	Hull(y Value) (Value, error)
	// Inter attempts the intersection with y; ok=false reports emptiness.
	Inter(y Value) (v Value, ok bool, err error)
	// Cheb returns the n-th order Chebyshev-recurrence value of the receiver.
	Cheb(n uint) (Value, error)

	fmt.Stringer
}

// NotImplemented builds the canonical error for a missing (payload, op) pair.
// Payload packages use it so every message carries both names and wraps
// ErrNotImplemented for errors.Is classification.
func NotImplemented(payload, op string) error {
	return fmt.Errorf("%s: %s: %w", payload, op, ErrNotImplemented)
}

// Unsupported is an embeddable default implementation of Value whose every
// primitive reports ErrNotImplemented. Payload types embed it and override
// exactly the primitives they support, per the trait contract.
type Unsupported struct{}

func (Unsupported) Lift(float64) Value             { return Unsupported{} }
func (Unsupported) Add(Value) (Value, error)       { return nil, NotImplemented("arith", "Add") }
func (Unsupported) Sub(Value) (Value, error)       { return nil, NotImplemented("arith", "Sub") }
func (Unsupported) Mul(Value) (Value, error)       { return nil, NotImplemented("arith", "Mul") }
func (Unsupported) Div(Value) (Value, error)       { return nil, NotImplemented("arith", "Div") }
func (Unsupported) Neg() (Value, error)            { return nil, NotImplemented("arith", "Neg") }
func (Unsupported) AddConst(float64) (Value, error) {
	return nil, NotImplemented("arith", "AddConst")
}
func (Unsupported) ScaleConst(float64) (Value, error) {
	return nil, NotImplemented("arith", "ScaleConst")
}
func (Unsupported) Exp() (Value, error)        { return nil, NotImplemented("arith", "Exp") }
func (Unsupported) Log() (Value, error)        { return nil, NotImplemented("arith", "Log") }
func (Unsupported) Sqrt() (Value, error)       { return nil, NotImplemented("arith", "Sqrt") }
func (Unsupported) Sqr() (Value, error)        { return nil, NotImplemented("arith", "Sqr") }
func (Unsupported) Pow(int) (Value, error)     { return nil, NotImplemented("arith", "Pow") }
func (Unsupported) Sin() (Value, error)        { return nil, NotImplemented("arith", "Sin") }
func (Unsupported) Cos() (Value, error)        { return nil, NotImplemented("arith", "Cos") }
func (Unsupported) Tan() (Value, error)        { return nil, NotImplemented("arith", "Tan") }
func (Unsupported) Asin() (Value, error)       { return nil, NotImplemented("arith", "Asin") }
func (Unsupported) Acos() (Value, error)       { return nil, NotImplemented("arith", "Acos") }
func (Unsupported) Atan() (Value, error)       { return nil, NotImplemented("arith", "Atan") }
func (Unsupported) Sinh() (Value, error)       { return nil, NotImplemented("arith", "Sinh") }
func (Unsupported) Cosh() (Value, error)       { return nil, NotImplemented("arith", "Cosh") }
func (Unsupported) Tanh() (Value, error)       { return nil, NotImplemented("arith", "Tanh") }
func (Unsupported) Erf() (Value, error)        { return nil, NotImplemented("arith", "Erf") }
func (Unsupported) Erfc() (Value, error)       { return nil, NotImplemented("arith", "Erfc") }
func (Unsupported) Fabs() (Value, error)       { return nil, NotImplemented("arith", "Fabs") }
func (Unsupported) Min(Value) (Value, error)   { return nil, NotImplemented("arith", "Min") }
func (Unsupported) Max(Value) (Value, error)   { return nil, NotImplemented("arith", "Max") }
func (Unsupported) Relu() (Value, error)       { return nil, NotImplemented("arith", "Relu") }
func (Unsupported) Lo() float64                { return nan }
func (Unsupported) Up() float64                { return nan }
func (Unsupported) Mid() float64               { return nan }
func (Unsupported) Diam() float64              { return nan }
func (Unsupported) Mag() float64               { return nan }
func (Unsupported) Eq(Value) bool              { return false }
func (Unsupported) Lt(Value) bool              { return false }
func (Unsupported) Le(Value) bool              { return false }
func (Unsupported) Hull(Value) (Value, error)  { return nil, NotImplemented("arith", "Hull") }
func (Unsupported) Inter(Value) (Value, bool, error) {
	return nil, false, NotImplemented("arith", "Inter")
}
func (Unsupported) Cheb(uint) (Value, error) { return nil, NotImplemented("arith", "Cheb") }
func (Unsupported) String() string           { return "<unsupported>" }

// ChebRecur evaluates the n-th Chebyshev polynomial of x through the
// three-term recurrence T0=1, T1=x, Tn = 2x·Tn-1 − Tn-2, using only Mul,
// ScaleConst, and Sub. Payload types without a dedicated Chebyshev rule
// implement Cheb by delegating here.
func ChebRecur(x Value, n uint) (Value, error) {
	switch n {
	case 0:
		return x.Lift(1), nil
	case 1:
		return x, nil
	}
	prev, cur := x.Lift(1), x
	x2, err := x.ScaleConst(2)
	if err != nil {
		return nil, err
	}
	for k := uint(2); k <= n; k++ {
		t, err := x2.Mul(cur)
		if err != nil {
			return nil, err
		}
		t, err = t.Sub(prev)
		if err != nil {
			return nil, err
		}
		prev, cur = cur, t
	}
	return cur, nil
}

// Float reports the scalar value of a point payload, if v is one.
func Float(v Value) (float64, bool) {
	r, ok := v.(Real)
	return float64(r), ok
}
