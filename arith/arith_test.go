package arith_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factolab/facto/arith"
)

func TestReal_Primitives(t *testing.T) {
	x := arith.Real(2)

	sum, err := x.Add(arith.Real(3))
	require.NoError(t, err)
	assert.Equal(t, arith.Real(5), sum)

	q, err := x.Div(arith.Real(4))
	require.NoError(t, err)
	assert.Equal(t, arith.Real(0.5), q)

	sq, err := x.Sqr()
	require.NoError(t, err)
	assert.Equal(t, arith.Real(4), sq)

	p, err := x.Pow(3)
	require.NoError(t, err)
	assert.Equal(t, arith.Real(8), p)

	e, err := arith.Real(1).Exp()
	require.NoError(t, err)
	assert.InDelta(t, math.E, e.Lo(), 1e-15)
}

func TestReal_PointBounds(t *testing.T) {
	x := arith.Real(-3)
	assert.Equal(t, -3.0, x.Lo())
	assert.Equal(t, -3.0, x.Up())
	assert.Equal(t, -3.0, x.Mid())
	assert.Equal(t, 0.0, x.Diam())
	assert.Equal(t, 3.0, x.Mag())
	assert.True(t, x.Lt(arith.Real(0)))
	assert.True(t, x.Le(arith.Real(-3)))
	assert.True(t, x.Eq(arith.Real(-3)))
}

func TestReal_DomainErrors(t *testing.T) {
	cases := []struct {
		name string
		run  func() (arith.Value, error)
	}{
		{"div zero", func() (arith.Value, error) { return arith.Real(1).Div(arith.Real(0)) }},
		{"log nonpositive", func() (arith.Value, error) { return arith.Real(0).Log() }},
		{"sqrt negative", func() (arith.Value, error) { return arith.Real(-1).Sqrt() }},
		{"asin outside", func() (arith.Value, error) { return arith.Real(2).Asin() }},
		{"pow zero negative", func() (arith.Value, error) { return arith.Real(0).Pow(-1) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.run()
			assert.ErrorIs(t, err, arith.ErrDomain)
		})
	}
}

func TestReal_KindMismatch(t *testing.T) {
	_, err := arith.Real(1).Add(arith.Unsupported{})
	assert.ErrorIs(t, err, arith.ErrKindMismatch)

	_, _, err = arith.Real(1).Inter(arith.Unsupported{})
	assert.ErrorIs(t, err, arith.ErrKindMismatch)
}

func TestUnsupported_ReportsEveryPrimitive(t *testing.T) {
	var u arith.Unsupported
	_, err := u.Exp()
	assert.ErrorIs(t, err, arith.ErrNotImplemented)
	_, err = u.Mul(u)
	assert.ErrorIs(t, err, arith.ErrNotImplemented)
	_, err = u.Cheb(3)
	assert.ErrorIs(t, err, arith.ErrNotImplemented)
	assert.True(t, math.IsNaN(u.Lo()))
}

func TestFloat_RecognizesPointPayloads(t *testing.T) {
	v, ok := arith.Float(arith.Real(1.5))
	require.True(t, ok)
	assert.Equal(t, 1.5, v)

	_, ok = arith.Float(arith.Unsupported{})
	assert.False(t, ok)
}

// Forward duals over Real must reproduce the analytic derivative for every
// primitive with a smooth rule.
func TestDual_DerivativesMatchAnalytic(t *testing.T) {
	cases := []struct {
		name  string
		at    float64
		run   func(arith.Value) (arith.Value, error)
		deriv func(float64) float64
	}{
		{"exp", 0.7, func(v arith.Value) (arith.Value, error) { return v.Exp() },
			math.Exp},
		{"log", 1.4, func(v arith.Value) (arith.Value, error) { return v.Log() },
			func(x float64) float64 { return 1 / x }},
		{"sqrt", 2.3, func(v arith.Value) (arith.Value, error) { return v.Sqrt() },
			func(x float64) float64 { return 0.5 / math.Sqrt(x) }},
		{"sqr", -1.2, func(v arith.Value) (arith.Value, error) { return v.Sqr() },
			func(x float64) float64 { return 2 * x }},
		{"pow3", 1.1, func(v arith.Value) (arith.Value, error) { return v.Pow(3) },
			func(x float64) float64 { return 3 * x * x }},
		{"sin", 0.4, func(v arith.Value) (arith.Value, error) { return v.Sin() },
			math.Cos},
		{"cos", 0.4, func(v arith.Value) (arith.Value, error) { return v.Cos() },
			func(x float64) float64 { return -math.Sin(x) }},
		{"tan", 0.3, func(v arith.Value) (arith.Value, error) { return v.Tan() },
			func(x float64) float64 { c := math.Cos(x); return 1 / (c * c) }},
		{"atan", 0.8, func(v arith.Value) (arith.Value, error) { return v.Atan() },
			func(x float64) float64 { return 1 / (1 + x*x) }},
		{"asin", 0.5, func(v arith.Value) (arith.Value, error) { return v.Asin() },
			func(x float64) float64 { return 1 / math.Sqrt(1-x*x) }},
		{"acos", 0.5, func(v arith.Value) (arith.Value, error) { return v.Acos() },
			func(x float64) float64 { return -1 / math.Sqrt(1-x*x) }},
		{"sinh", 0.6, func(v arith.Value) (arith.Value, error) { return v.Sinh() },
			math.Cosh},
		{"cosh", 0.6, func(v arith.Value) (arith.Value, error) { return v.Cosh() },
			math.Sinh},
		{"tanh", 0.9, func(v arith.Value) (arith.Value, error) { return v.Tanh() },
			func(x float64) float64 { th := math.Tanh(x); return 1 - th*th }},
		{"erf", 0.2, func(v arith.Value) (arith.Value, error) { return v.Erf() },
			func(x float64) float64 { return 2 / math.SqrtPi * math.Exp(-x*x) }},
		{"erfc", 0.2, func(v arith.Value) (arith.Value, error) { return v.Erfc() },
			func(x float64) float64 { return -2 / math.SqrtPi * math.Exp(-x*x) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			x := arith.Seed(arith.Real(tc.at), 1, 0)
			y, err := tc.run(x)
			require.NoError(t, err)
			d := y.(arith.Dual)
			assert.InDelta(t, tc.deriv(tc.at), d.Dot[0].Lo(), 1e-12)
		})
	}
}

func TestDual_ProductAndQuotientRules(t *testing.T) {
	// f(x, y) = x*y with seeds in two directions.
	x := arith.Seed(arith.Real(3), 2, 0)
	y := arith.Seed(arith.Real(5), 2, 1)

	p, err := x.Mul(y)
	require.NoError(t, err)
	pd := p.(arith.Dual)
	assert.Equal(t, 15.0, pd.Val.Lo())
	assert.Equal(t, 5.0, pd.Dot[0].Lo())
	assert.Equal(t, 3.0, pd.Dot[1].Lo())

	q, err := x.Div(y)
	require.NoError(t, err)
	qd := q.(arith.Dual)
	assert.InDelta(t, 0.6, qd.Val.Lo(), 1e-15)
	assert.InDelta(t, 1.0/5, qd.Dot[0].Lo(), 1e-15)
	assert.InDelta(t, -3.0/25, qd.Dot[1].Lo(), 1e-15)
}

func TestDual_KinkBranchAtZero(t *testing.T) {
	// Point payloads always decide the branch; at exactly 0 relu and fabs
	// take the nonnegative side.
	x := arith.Seed(arith.Real(0), 1, 0)
	r, err := x.Relu()
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.(arith.Dual).Dot[0].Lo())

	f, err := x.Fabs()
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.(arith.Dual).Dot[0].Lo())
}

func TestDual_MinMaxSelectByValue(t *testing.T) {
	x := arith.Seed(arith.Real(1), 2, 0)
	y := arith.Seed(arith.Real(4), 2, 1)

	lo, err := x.Min(y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, lo.(arith.Dual).Val.Lo())
	assert.Equal(t, 1.0, lo.(arith.Dual).Dot[0].Lo())

	hi, err := x.Max(y)
	require.NoError(t, err)
	assert.Equal(t, 4.0, hi.(arith.Dual).Val.Lo())
	assert.Equal(t, 1.0, hi.(arith.Dual).Dot[1].Lo())
}

func TestDual_HullUnsupported(t *testing.T) {
	x := arith.Seed(arith.Real(1), 1, 0)
	_, err := x.Hull(x)
	assert.True(t, errors.Is(err, arith.ErrNotImplemented))
}

func TestChebRecur_MatchesClosedForm(t *testing.T) {
	// T_n(cos θ) = cos(nθ)
	for _, n := range []uint{0, 1, 2, 3, 5, 8} {
		theta := 0.37
		v, err := arith.ChebRecur(arith.Real(math.Cos(theta)), n)
		require.NoError(t, err)
		assert.InDelta(t, math.Cos(float64(n)*theta), v.Lo(), 1e-12, "n=%d", n)
	}
}

func TestChebRecur_DifferentiatesThroughDuals(t *testing.T) {
	// T_3(x) = 4x³ − 3x, so T_3'(x) = 12x² − 3.
	at := 0.4
	x := arith.Seed(arith.Real(at), 1, 0)
	v, err := arith.ChebRecur(x, 3)
	require.NoError(t, err)
	d := v.(arith.Dual)
	assert.InDelta(t, 4*at*at*at-3*at, d.Val.Lo(), 1e-12)
	assert.InDelta(t, 12*at*at-3, d.Dot[0].Lo(), 1e-12)
}
