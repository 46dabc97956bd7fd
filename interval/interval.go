package interval

import (
	"fmt"
	"math"

	"github.com/factolab/facto/arith"
)

// Interval is a closed interval [lo, up] with lo ≤ up.
type Interval struct {
	lo, up float64
}

// New returns the interval [lo, up]. It panics when lo > up or either bound
// is NaN: malformed construction is a programmer error, not a data error.
func New(lo, up float64) Interval {
	if math.IsNaN(lo) || math.IsNaN(up) || lo > up {
		panic(fmt.Sprintf("interval: invalid bounds [%g, %g]", lo, up))
	}
	return Interval{lo: lo, up: up}
}

// Point returns the degenerate interval [c, c].
func Point(c float64) Interval { return New(c, c) }

// Bounds reports the endpoints.
func (x Interval) Bounds() (lo, up float64) { return x.lo, x.up }

// Contains reports whether c lies inside the interval.
func (x Interval) Contains(c float64) bool { return x.lo <= c && c <= x.up }

func asInterval(op string, y arith.Value) (Interval, error) {
	i, ok := y.(Interval)
	if !ok {
		return Interval{}, fmt.Errorf("interval: %s with %T operand: %w", op, y, arith.ErrKindMismatch)
	}
	return i, nil
}

func (Interval) Lift(c float64) arith.Value { return Point(c) }

func (x Interval) Add(y arith.Value) (arith.Value, error) {
	i, err := asInterval("Add", y)
	if err != nil {
		return nil, err
	}
	return Interval{x.lo + i.lo, x.up + i.up}, nil
}

func (x Interval) Sub(y arith.Value) (arith.Value, error) {
	i, err := asInterval("Sub", y)
	if err != nil {
		return nil, err
	}
	return Interval{x.lo - i.up, x.up - i.lo}, nil
}

func (x Interval) Mul(y arith.Value) (arith.Value, error) {
	i, err := asInterval("Mul", y)
	if err != nil {
		return nil, err
	}
	p1, p2 := x.lo*i.lo, x.lo*i.up
	p3, p4 := x.up*i.lo, x.up*i.up
	return Interval{
		math.Min(math.Min(p1, p2), math.Min(p3, p4)),
		math.Max(math.Max(p1, p2), math.Max(p3, p4)),
	}, nil
}

func (x Interval) Div(y arith.Value) (arith.Value, error) {
	i, err := asInterval("Div", y)
	if err != nil {
		return nil, err
	}
	if i.Contains(0) {
		return nil, fmt.Errorf("interval: division by a range containing zero: %w", arith.ErrDomain)
	}
	inv := Interval{1 / i.up, 1 / i.lo}
	return x.Mul(inv)
}

func (x Interval) Neg() (arith.Value, error) { return Interval{-x.up, -x.lo}, nil }

func (x Interval) AddConst(c float64) (arith.Value, error) {
	return Interval{x.lo + c, x.up + c}, nil
}

func (x Interval) ScaleConst(c float64) (arith.Value, error) {
	if c < 0 {
		return Interval{x.up * c, x.lo * c}, nil
	}
	return Interval{x.lo * c, x.up * c}, nil
}

func (x Interval) Exp() (arith.Value, error) {
	return Interval{math.Exp(x.lo), math.Exp(x.up)}, nil
}

func (x Interval) Log() (arith.Value, error) {
	if x.lo <= 0 {
		return nil, fmt.Errorf("interval: log of range [%g, %g]: %w", x.lo, x.up, arith.ErrDomain)
	}
	return Interval{math.Log(x.lo), math.Log(x.up)}, nil
}

func (x Interval) Sqrt() (arith.Value, error) {
	if x.lo < 0 {
		return nil, fmt.Errorf("interval: sqrt of range [%g, %g]: %w", x.lo, x.up, arith.ErrDomain)
	}
	return Interval{math.Sqrt(x.lo), math.Sqrt(x.up)}, nil
}

func (x Interval) Sqr() (arith.Value, error) {
	a, b := x.lo*x.lo, x.up*x.up
	hi := math.Max(a, b)
	if x.Contains(0) {
		return Interval{0, hi}, nil
	}
	return Interval{math.Min(a, b), hi}, nil
}

func (x Interval) Pow(n int) (arith.Value, error) {
	switch {
	case n == 0:
		return Point(1), nil
	case n == 1:
		return x, nil
	case n < 0:
		p, err := x.Pow(-n)
		if err != nil {
			return nil, err
		}
		return Point(1).Div(p)
	}
	a, b := math.Pow(x.lo, float64(n)), math.Pow(x.up, float64(n))
	if n%2 == 1 {
		return Interval{a, b}, nil
	}
	hi := math.Max(a, b)
	if x.Contains(0) {
		return Interval{0, hi}, nil
	}
	return Interval{math.Min(a, b), hi}, nil
}

// trigRange encloses sin over [lo, up] by checking which critical points
// ±π/2 + 2kπ fall inside the argument range.
func trigRange(lo, up float64) Interval {
	if up-lo >= 2*math.Pi {
		return Interval{-1, 1}
	}
	slo, sup := math.Sin(lo), math.Sin(up)
	min, max := math.Min(slo, sup), math.Max(slo, sup)
	// smallest k with π/2 + 2kπ ≥ lo
	kmax := math.Ceil((lo - math.Pi/2) / (2 * math.Pi))
	if math.Pi/2+2*math.Pi*kmax <= up {
		max = 1
	}
	kmin := math.Ceil((lo + math.Pi/2) / (2 * math.Pi))
	if -math.Pi/2+2*math.Pi*kmin <= up {
		min = -1
	}
	return Interval{min, max}
}

func (x Interval) Sin() (arith.Value, error) { return trigRange(x.lo, x.up), nil }

func (x Interval) Cos() (arith.Value, error) {
	// cos(x) = sin(x + π/2)
	return trigRange(x.lo+math.Pi/2, x.up+math.Pi/2), nil
}

func (x Interval) Tan() (arith.Value, error) {
	// reject any range crossing an asymptote (k+1/2)·π
	k := math.Floor(x.lo/math.Pi + 0.5)
	if x.up >= (k+0.5)*math.Pi {
		return nil, fmt.Errorf("interval: tan of range [%g, %g] crossing asymptote: %w", x.lo, x.up, arith.ErrDomain)
	}
	return Interval{math.Tan(x.lo), math.Tan(x.up)}, nil
}

func (x Interval) Asin() (arith.Value, error) {
	if x.lo < -1 || x.up > 1 {
		return nil, fmt.Errorf("interval: asin of range [%g, %g]: %w", x.lo, x.up, arith.ErrDomain)
	}
	return Interval{math.Asin(x.lo), math.Asin(x.up)}, nil
}

func (x Interval) Acos() (arith.Value, error) {
	if x.lo < -1 || x.up > 1 {
		return nil, fmt.Errorf("interval: acos of range [%g, %g]: %w", x.lo, x.up, arith.ErrDomain)
	}
	return Interval{math.Acos(x.up), math.Acos(x.lo)}, nil
}

func (x Interval) Atan() (arith.Value, error) {
	return Interval{math.Atan(x.lo), math.Atan(x.up)}, nil
}

func (x Interval) Sinh() (arith.Value, error) {
	return Interval{math.Sinh(x.lo), math.Sinh(x.up)}, nil
}

func (x Interval) Cosh() (arith.Value, error) {
	a, b := math.Cosh(x.lo), math.Cosh(x.up)
	hi := math.Max(a, b)
	if x.Contains(0) {
		return Interval{1, hi}, nil
	}
	return Interval{math.Min(a, b), hi}, nil
}

func (x Interval) Tanh() (arith.Value, error) {
	return Interval{math.Tanh(x.lo), math.Tanh(x.up)}, nil
}

func (x Interval) Erf() (arith.Value, error) {
	return Interval{math.Erf(x.lo), math.Erf(x.up)}, nil
}

func (x Interval) Erfc() (arith.Value, error) {
	return Interval{math.Erfc(x.up), math.Erfc(x.lo)}, nil
}

func (x Interval) Fabs() (arith.Value, error) {
	if x.Contains(0) {
		return Interval{0, x.Mag()}, nil
	}
	if x.up < 0 {
		return Interval{-x.up, -x.lo}, nil
	}
	return x, nil
}

func (x Interval) Min(y arith.Value) (arith.Value, error) {
	i, err := asInterval("Min", y)
	if err != nil {
		return nil, err
	}
	return Interval{math.Min(x.lo, i.lo), math.Min(x.up, i.up)}, nil
}

func (x Interval) Max(y arith.Value) (arith.Value, error) {
	i, err := asInterval("Max", y)
	if err != nil {
		return nil, err
	}
	return Interval{math.Max(x.lo, i.lo), math.Max(x.up, i.up)}, nil
}

func (x Interval) Relu() (arith.Value, error) {
	return Interval{math.Max(x.lo, 0), math.Max(x.up, 0)}, nil
}

func (x Interval) Lo() float64   { return x.lo }
func (x Interval) Up() float64   { return x.up }
func (x Interval) Mid() float64  { return 0.5 * (x.lo + x.up) }
func (x Interval) Diam() float64 { return x.up - x.lo }
func (x Interval) Mag() float64  { return math.Max(math.Abs(x.lo), math.Abs(x.up)) }

func (x Interval) Eq(y arith.Value) bool {
	i, ok := y.(Interval)
	return ok && x.lo == i.lo && x.up == i.up
}

func (x Interval) Lt(y arith.Value) bool {
	i, ok := y.(Interval)
	return ok && x.up < i.lo
}

func (x Interval) Le(y arith.Value) bool {
	i, ok := y.(Interval)
	return ok && x.up <= i.lo
}

func (x Interval) Hull(y arith.Value) (arith.Value, error) {
	i, err := asInterval("Hull", y)
	if err != nil {
		return nil, err
	}
	return Interval{math.Min(x.lo, i.lo), math.Max(x.up, i.up)}, nil
}

func (x Interval) Inter(y arith.Value) (arith.Value, bool, error) {
	i, err := asInterval("Inter", y)
	if err != nil {
		return nil, false, err
	}
	lo, up := math.Max(x.lo, i.lo), math.Min(x.up, i.up)
	if lo > up {
		return nil, false, nil
	}
	return Interval{lo, up}, true, nil
}

func (x Interval) Cheb(n uint) (arith.Value, error) {
	// Chebyshev polynomials stay in [-1,1] on [-1,1]; outside, fall back to
	// the three-term recurrence.
	if x.lo >= -1 && x.up <= 1 {
		v, err := arith.ChebRecur(x, n)
		if err != nil {
			return nil, err
		}
		iv := v.(Interval)
		res, _, err := iv.Inter(Interval{-1, 1})
		if err != nil || res == nil {
			return iv, nil
		}
		return res, nil
	}
	return arith.ChebRecur(x, n)
}

func (x Interval) String() string { return fmt.Sprintf("[%g, %g]", x.lo, x.up) }
