package interval_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/interval"
)

func TestNew_RejectsMalformedBounds(t *testing.T) {
	assert.Panics(t, func() { interval.New(2, 1) })
	assert.Panics(t, func() { interval.New(math.NaN(), 1) })
	assert.NotPanics(t, func() { interval.New(1, 1) })
}

func TestBasicArithmetic(t *testing.T) {
	x := interval.New(1, 2)
	y := interval.New(-1, 3)

	sum, err := x.Add(y)
	require.NoError(t, err)
	assert.Equal(t, interval.New(0, 5), sum)

	dif, err := x.Sub(y)
	require.NoError(t, err)
	assert.Equal(t, interval.New(-2, 3), dif)

	prod, err := x.Mul(y)
	require.NoError(t, err)
	assert.Equal(t, interval.New(-2, 6), prod)

	neg, err := y.Neg()
	require.NoError(t, err)
	assert.Equal(t, interval.New(-3, 1), neg)

	sc, err := x.ScaleConst(-2)
	require.NoError(t, err)
	assert.Equal(t, interval.New(-4, -2), sc)
}

func TestDiv_RangeThroughZero(t *testing.T) {
	x := interval.New(1, 2)
	_, err := x.Div(interval.New(-1, 1))
	assert.ErrorIs(t, err, arith.ErrDomain)

	q, err := x.Div(interval.New(2, 4))
	require.NoError(t, err)
	assert.Equal(t, interval.New(0.25, 1), q)
}

func TestEvenPowersPinchAtZero(t *testing.T) {
	x := interval.New(-2, 1)

	sq, err := x.Sqr()
	require.NoError(t, err)
	assert.Equal(t, interval.New(0, 4), sq)

	p4, err := x.Pow(4)
	require.NoError(t, err)
	assert.Equal(t, interval.New(0, 16), p4)

	p3, err := x.Pow(3)
	require.NoError(t, err)
	assert.Equal(t, interval.New(-8, 1), p3)

	inv, err := interval.New(1, 2).Pow(-2)
	require.NoError(t, err)
	assert.Equal(t, interval.New(0.25, 1), inv)
}

// Monotone and range-checked elementary functions, enclosure verified by
// sampling the argument range.
func TestElementaryEnclosesSamples(t *testing.T) {
	cases := []struct {
		name   string
		lo, up float64
		run    func(interval.Interval) (arith.Value, error)
		f      func(float64) float64
	}{
		{"exp", -1, 2, func(x interval.Interval) (arith.Value, error) { return x.Exp() }, math.Exp},
		{"log", 0.5, 3, func(x interval.Interval) (arith.Value, error) { return x.Log() }, math.Log},
		{"sqrt", 0, 4, func(x interval.Interval) (arith.Value, error) { return x.Sqrt() }, math.Sqrt},
		{"sin", -1, 7, func(x interval.Interval) (arith.Value, error) { return x.Sin() }, math.Sin},
		{"cos", 0, 3, func(x interval.Interval) (arith.Value, error) { return x.Cos() }, math.Cos},
		{"tan", -0.5, 0.5, func(x interval.Interval) (arith.Value, error) { return x.Tan() }, math.Tan},
		{"atan", -2, 2, func(x interval.Interval) (arith.Value, error) { return x.Atan() }, math.Atan},
		{"asin", -1, 0.5, func(x interval.Interval) (arith.Value, error) { return x.Asin() }, math.Asin},
		{"acos", -1, 0.5, func(x interval.Interval) (arith.Value, error) { return x.Acos() }, math.Acos},
		{"sinh", -1, 2, func(x interval.Interval) (arith.Value, error) { return x.Sinh() }, math.Sinh},
		{"cosh", -1, 2, func(x interval.Interval) (arith.Value, error) { return x.Cosh() }, math.Cosh},
		{"tanh", -2, 2, func(x interval.Interval) (arith.Value, error) { return x.Tanh() }, math.Tanh},
		{"erf", -1, 1, func(x interval.Interval) (arith.Value, error) { return x.Erf() }, math.Erf},
		{"erfc", -1, 1, func(x interval.Interval) (arith.Value, error) { return x.Erfc() }, math.Erfc},
		{"fabs", -2, 1, func(x interval.Interval) (arith.Value, error) { return x.Fabs() }, math.Abs},
		{"relu", -2, 1, func(x interval.Interval) (arith.Value, error) { return x.Relu() },
			func(v float64) float64 { return math.Max(v, 0) }},
	}
	const steps = 32
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			x := interval.New(tc.lo, tc.up)
			y, err := tc.run(x)
			require.NoError(t, err)
			rng := y.(interval.Interval)
			for i := 0; i <= steps; i++ {
				v := tc.lo + (tc.up-tc.lo)*float64(i)/steps
				fv := tc.f(v)
				assert.True(t, rng.Lo()-1e-12 <= fv && fv <= rng.Up()+1e-12,
					"%s(%g)=%g outside %s", tc.name, v, fv, rng)
			}
		})
	}
}

func TestTrig_FullPeriodAndCriticalPoints(t *testing.T) {
	s, err := interval.New(0, 7).Sin()
	require.NoError(t, err)
	assert.Equal(t, interval.New(-1, 1), s)

	// [0, π] contains the maximum of sin but not the minimum.
	s, err = interval.New(0, math.Pi).Sin()
	require.NoError(t, err)
	sr := s.(interval.Interval)
	assert.Equal(t, 1.0, sr.Up())
	assert.InDelta(t, 0.0, sr.Lo(), 1e-15)

	_, err = interval.New(1, 2).Tan()
	assert.ErrorIs(t, err, arith.ErrDomain)
}

func TestDomainErrors(t *testing.T) {
	_, err := interval.New(-1, 1).Log()
	assert.ErrorIs(t, err, arith.ErrDomain)
	_, err = interval.New(-1, 1).Sqrt()
	assert.ErrorIs(t, err, arith.ErrDomain)
	_, err = interval.New(0, 2).Asin()
	assert.ErrorIs(t, err, arith.ErrDomain)
}

func TestBoundQueriesAndComparisons(t *testing.T) {
	x := interval.New(-1, 3)
	assert.Equal(t, -1.0, x.Lo())
	assert.Equal(t, 3.0, x.Up())
	assert.Equal(t, 1.0, x.Mid())
	assert.Equal(t, 4.0, x.Diam())
	assert.Equal(t, 3.0, x.Mag())

	assert.True(t, x.Lt(interval.New(4, 5)))
	assert.False(t, x.Lt(interval.New(3, 5)))
	assert.True(t, x.Le(interval.New(3, 5)))
	assert.True(t, x.Eq(interval.New(-1, 3)))
}

func TestHullAndInter(t *testing.T) {
	x := interval.New(0, 2)
	y := interval.New(1, 4)

	h, err := x.Hull(y)
	require.NoError(t, err)
	assert.Equal(t, interval.New(0, 4), h)

	v, ok, err := x.Inter(y)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, interval.New(1, 2), v)

	_, ok, err = x.Inter(interval.New(3, 4))
	require.NoError(t, err)
	assert.False(t, ok, "disjoint ranges have no intersection")
}

func TestCheb_ClampedOnUnitDomain(t *testing.T) {
	// On [-1,1] every Chebyshev polynomial stays inside [-1,1]; the naive
	// recurrence blows up, the payload clamps.
	x := interval.New(-1, 1)
	v, err := x.Cheb(6)
	require.NoError(t, err)
	r := v.(interval.Interval)
	assert.GreaterOrEqual(t, r.Lo(), -1.0)
	assert.LessOrEqual(t, r.Up(), 1.0)

	// Outside the unit domain the recurrence is used as-is and must contain
	// the pointwise values.
	x = interval.New(1, 2)
	v, err = x.Cheb(3)
	require.NoError(t, err)
	r = v.(interval.Interval)
	for _, p := range []float64{1, 1.5, 2} {
		t3 := 4*p*p*p - 3*p
		assert.True(t, r.Contains(t3), "T3(%g)=%g outside %s", p, t3, r)
	}
}

func TestKindMismatch(t *testing.T) {
	_, err := interval.New(0, 1).Add(arith.Real(1))
	assert.ErrorIs(t, err, arith.ErrKindMismatch)
}

func TestLiftAndPoint(t *testing.T) {
	p := interval.New(0, 1).Lift(2.5)
	assert.Equal(t, interval.Point(2.5), p)
	assert.Equal(t, 0.0, interval.Point(2.5).Diam())
}
