package mccormick_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/interval"
	"github.com/factolab/facto/mccormick"
)

func relax(lo, up, ref float64) mccormick.Var {
	return mccormick.New(interval.New(lo, up), ref).Seed(1, 0)
}

func TestNew_ClampsReference(t *testing.T) {
	v := mccormick.New(interval.New(1, 3), 10)
	assert.Equal(t, 3.0, v.Cv())
	assert.Equal(t, 3.0, v.Cc())
	assert.Equal(t, 0, v.NSub())
}

func TestSeed_UnitSubgradient(t *testing.T) {
	v := relax(0, 2, 1)
	assert.Equal(t, 1.0, v.CvSub(0))
	assert.Equal(t, 1.0, v.CcSub(0))
	assert.Equal(t, 0.0, v.CvSub(5), "out-of-range directions read as zero")
}

func TestAdd_Neg_Affine(t *testing.T) {
	x := relax(0, 2, 1)
	y := mccormick.New(interval.New(-1, 1), 0.5)

	s, err := x.Add(y)
	require.NoError(t, err)
	sv := s.(mccormick.Var)
	assert.Equal(t, -1.0, sv.Lo())
	assert.Equal(t, 3.0, sv.Up())
	assert.Equal(t, 1.5, sv.Cv())
	assert.Equal(t, 1.5, sv.Cc())

	n, err := x.Neg()
	require.NoError(t, err)
	nv := n.(mccormick.Var)
	assert.Equal(t, -2.0, nv.Lo())
	assert.Equal(t, -1.0, nv.Cv())
	assert.Equal(t, -1.0, nv.CvSub(0))
}

func TestScaleConst_NegativeFlipsEstimators(t *testing.T) {
	x := relax(1, 3, 2)
	y, err := x.ScaleConst(-2)
	require.NoError(t, err)
	yv := y.(mccormick.Var)
	assert.Equal(t, -6.0, yv.Lo())
	assert.Equal(t, -2.0, yv.Up())
	assert.Equal(t, -4.0, yv.Cv())
	assert.Equal(t, -2.0, yv.CvSub(0))
}

// The estimates must bracket the true value at every reference point, for
// every composition the relaxation layer provides.
func TestEstimates_BracketTrueValue(t *testing.T) {
	cases := []struct {
		name   string
		lo, up float64
		f      func(float64) float64
		apply  func(mccormick.Var) (arith.Value, error)
	}{
		{"exp", -1, 2, math.Exp, func(v mccormick.Var) (arith.Value, error) { return v.Exp() }},
		{"log", 0.5, 4, math.Log, func(v mccormick.Var) (arith.Value, error) { return v.Log() }},
		{"sqrt", 0.25, 9, math.Sqrt, func(v mccormick.Var) (arith.Value, error) { return v.Sqrt() }},
		{"sqr", -2, 3, func(t float64) float64 { return t * t },
			func(v mccormick.Var) (arith.Value, error) { return v.Sqr() }},
		{"pow3", -2, 2, func(t float64) float64 { return t * t * t },
			func(v mccormick.Var) (arith.Value, error) { return v.Pow(3) }},
		{"tanh", -2, 2, math.Tanh, func(v mccormick.Var) (arith.Value, error) { return v.Tanh() }},
		{"erf", -1.5, 1.5, math.Erf, func(v mccormick.Var) (arith.Value, error) { return v.Erf() }},
		{"fabs", -3, 2, math.Abs, func(v mccormick.Var) (arith.Value, error) { return v.Fabs() }},
		{"relu", -3, 2, func(t float64) float64 { return math.Max(t, 0) },
			func(v mccormick.Var) (arith.Value, error) { return v.Relu() }},
	}
	const samples = 21
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < samples; i++ {
				ref := tc.lo + (tc.up-tc.lo)*float64(i)/float64(samples-1)
				r, err := tc.apply(relax(tc.lo, tc.up, ref))
				require.NoError(t, err)
				rv := r.(mccormick.Var)
				want := tc.f(ref)
				assert.LessOrEqual(t, rv.Cv(), want+1e-12, "cv at ref=%g", ref)
				assert.GreaterOrEqual(t, rv.Cc(), want-1e-12, "cc at ref=%g", ref)
				assert.LessOrEqual(t, rv.Lo(), want+1e-12)
				assert.GreaterOrEqual(t, rv.Up(), want-1e-12)
			}
		})
	}
}

// Odd powers on a sign-straddling range switch estimator branches at the
// secant tangency points (±1 for x³ on [-2,2]). The bisected tangency carries
// round-off, so references at and just beside the switch are the hard cases.
func TestPow3_SoundAtTangencyBoundary(t *testing.T) {
	for _, ref := range []float64{-1 - 1e-11, -1, -1 + 1e-11, 1 - 1e-11, 1, 1 + 1e-11} {
		r, err := relax(-2, 2, ref).Pow(3)
		require.NoError(t, err)
		rv := r.(mccormick.Var)
		want := ref * ref * ref
		assert.LessOrEqual(t, rv.Cv(), want, "cv at ref=%g", ref)
		assert.GreaterOrEqual(t, rv.Cc(), want, "cc at ref=%g", ref)
	}
}

// A convex underestimate with subgradient g at reference x̂ supports the cut
// z ≥ cv + g·(x − x̂) over the whole range.
func TestSubgradient_SupportsValidCut(t *testing.T) {
	const lo, up = -1.0, 2.0
	for i := 0; i < 11; i++ {
		ref := lo + (up-lo)*float64(i)/10
		r, err := relax(lo, up, ref).Exp()
		require.NoError(t, err)
		rv := r.(mccormick.Var)
		for j := 0; j < 31; j++ {
			x := lo + (up-lo)*float64(j)/30
			plane := rv.Cv() + rv.CvSub(0)*(x-ref)
			assert.LessOrEqual(t, plane, math.Exp(x)+1e-10, "ref=%g x=%g", ref, x)
		}
	}
}

func TestMul_BilinearEnvelope(t *testing.T) {
	const xLo, xUp, yLo, yUp = -2.0, 3.0, 1.0, 4.0
	for i := 0; i < 9; i++ {
		for j := 0; j < 9; j++ {
			xr := xLo + (xUp-xLo)*float64(i)/8
			yr := yLo + (yUp-yLo)*float64(j)/8
			x := mccormick.New(interval.New(xLo, xUp), xr).Seed(2, 0)
			y := mccormick.New(interval.New(yLo, yUp), yr).Seed(2, 1)
			p, err := x.Mul(y)
			require.NoError(t, err)
			pv := p.(mccormick.Var)
			want := xr * yr
			assert.LessOrEqual(t, pv.Cv(), want+1e-12, "x=%g y=%g", xr, yr)
			assert.GreaterOrEqual(t, pv.Cc(), want-1e-12, "x=%g y=%g", xr, yr)
		}
	}
}

func TestMul_TightAtCorner(t *testing.T) {
	// the bilinear envelope is exact at box corners
	x := mccormick.New(interval.New(1, 2), 1).Seed(2, 0)
	y := mccormick.New(interval.New(3, 5), 3).Seed(2, 1)
	p, err := x.Mul(y)
	require.NoError(t, err)
	pv := p.(mccormick.Var)
	assert.InDelta(t, 3.0, pv.Cv(), 1e-12)
	assert.InDelta(t, 3.0, pv.Cc(), 1e-12)
}

func TestDiv_RangeThroughZero(t *testing.T) {
	x := relax(1, 2, 1.5)
	y := mccormick.New(interval.New(-1, 1), 0)
	_, err := x.Div(y)
	require.Error(t, err)
	assert.True(t, errors.Is(err, arith.ErrDomain))
}

func TestDiv_Brackets(t *testing.T) {
	for i := 0; i < 9; i++ {
		yr := 1 + 3*float64(i)/8
		x := mccormick.New(interval.New(2, 5), 3).Seed(2, 0)
		y := mccormick.New(interval.New(1, 4), yr).Seed(2, 1)
		q, err := x.Div(y)
		require.NoError(t, err)
		qv := q.(mccormick.Var)
		want := 3 / yr
		assert.LessOrEqual(t, qv.Cv(), want+1e-12)
		assert.GreaterOrEqual(t, qv.Cc(), want-1e-12)
	}
}

func TestMinMax_ViaAbsoluteValue(t *testing.T) {
	x := mccormick.New(interval.New(-1, 3), 2).Seed(2, 0)
	y := mccormick.New(interval.New(0, 2), 1).Seed(2, 1)

	mx, err := x.Max(y)
	require.NoError(t, err)
	mv := mx.(mccormick.Var)
	assert.LessOrEqual(t, mv.Cv(), 2.0+1e-12)
	assert.GreaterOrEqual(t, mv.Cc(), 2.0-1e-12)
	assert.LessOrEqual(t, mv.Lo(), 0.0, "enclosure of the true range [0, 3]")
	assert.GreaterOrEqual(t, mv.Up(), 3.0)

	mn, err := x.Min(y)
	require.NoError(t, err)
	nv := mn.(mccormick.Var)
	assert.LessOrEqual(t, nv.Cv(), 1.0+1e-12)
	assert.GreaterOrEqual(t, nv.Cc(), 1.0-1e-12)
}

func TestXLog_DomainAndValue(t *testing.T) {
	_, err := mccormick.XLog(relax(-1, 2, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, arith.ErrDomain))

	for i := 0; i < 11; i++ {
		ref := 0.5 + 2.5*float64(i)/10
		v, err := mccormick.XLog(relax(0.5, 3, ref))
		require.NoError(t, err)
		want := ref * math.Log(ref)
		assert.LessOrEqual(t, v.Cv(), want+1e-12, "ref=%g", ref)
		assert.GreaterOrEqual(t, v.Cc(), want-1e-12, "ref=%g", ref)
	}
}

func TestKindMismatch(t *testing.T) {
	x := relax(0, 1, 0.5)
	_, err := x.Add(interval.New(0, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, arith.ErrKindMismatch))
}

func TestUnsupportedPrimitive(t *testing.T) {
	_, err := relax(0, 1, 0.5).Sin()
	require.Error(t, err)
	assert.True(t, errors.Is(err, arith.ErrNotImplemented))
}

func TestInter_TightensEstimates(t *testing.T) {
	x := relax(0, 4, 3)
	y := mccormick.New(interval.New(2, 6), 3)
	v, ok, err := x.Inter(y)
	require.NoError(t, err)
	require.True(t, ok)
	vv := v.(mccormick.Var)
	assert.Equal(t, 2.0, vv.Lo())
	assert.Equal(t, 4.0, vv.Up())
	assert.Equal(t, 3.0, vv.Cv())
	assert.Equal(t, 3.0, vv.Cc())

	_, ok, err = relax(0, 1, 0).Inter(mccormick.New(interval.New(2, 3), 2))
	require.NoError(t, err)
	assert.False(t, ok)
}
