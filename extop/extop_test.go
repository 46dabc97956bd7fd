package extop_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/extop"
	"github.com/factolab/facto/ffgraph"
	"github.com/factolab/facto/interval"
	"github.com/factolab/facto/mccormick"
	"github.com/factolab/facto/polrelax"
)

func evalReal(t *testing.T, g *ffgraph.Graph, out *ffgraph.Var, vars []*ffgraph.Var, xs ...float64) float64 {
	t.Helper()
	vals := make([]arith.Value, len(xs))
	for i, x := range xs {
		vals[i] = arith.Real(x)
	}
	res, err := g.Eval([]*ffgraph.Var{out}, vars, vals)
	require.NoError(t, err)
	r, ok := arith.Float(res[0])
	require.True(t, ok)
	return r
}

func TestNorm2_Identity(t *testing.T) {
	g := ffgraph.New()
	x, y := g.NewVar(), g.NewVar()
	n, err := extop.Norm2(g, x, y)
	require.NoError(t, err)
	got := evalReal(t, g, n, []*ffgraph.Var{x, y}, 2, 3)
	assert.InDelta(t, math.Sqrt(13), got, 1e-12)
}

func TestNorm2_Nullary(t *testing.T) {
	g := ffgraph.New()
	n, err := extop.Norm2(g)
	require.NoError(t, err)
	c, ok := n.Const()
	require.True(t, ok)
	assert.Equal(t, 0.0, c)
}

func TestNorm12_Slots(t *testing.T) {
	g := ffgraph.New()
	x, y := g.NewVar(), g.NewVar()
	n2, n1, err := extop.Norm12(g, x, y)
	require.NoError(t, err)
	vars := []*ffgraph.Var{x, y}
	assert.InDelta(t, math.Sqrt(13), evalReal(t, g, n2, vars, 2, 3), 1e-12)
	assert.InDelta(t, 5.0, evalReal(t, g, n1, vars, 2, 3), 1e-12)
}

func TestNorm12_Unary(t *testing.T) {
	g := ffgraph.New()
	x := g.NewVar()
	n2, n1, err := extop.Norm12(g, x)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, evalReal(t, g, n2, []*ffgraph.Var{x}, -3), 1e-12)
	assert.InDelta(t, 3.0, evalReal(t, g, n1, []*ffgraph.Var{x}, -3), 1e-12)
}

func TestNorm2_IntervalContainment(t *testing.T) {
	g := ffgraph.New()
	x, y := g.NewVar(), g.NewVar()
	n, err := extop.Norm2(g, x, y)
	require.NoError(t, err)
	out, err := g.Eval([]*ffgraph.Var{n}, []*ffgraph.Var{x, y},
		[]arith.Value{interval.New(1.5, 2.5), interval.New(2.5, 3.5)})
	require.NoError(t, err)
	want := math.Sqrt(13)
	assert.LessOrEqual(t, out[0].Lo(), want)
	assert.GreaterOrEqual(t, out[0].Up(), want)
}

func TestXLog_DerivAnalyticAndDualAgree(t *testing.T) {
	g := ffgraph.New()
	x := g.NewVar()
	y, err := extop.XLog(g, x)
	require.NoError(t, err)

	jac, err := g.FAD([]*ffgraph.Var{y}, []*ffgraph.Var{x})
	require.NoError(t, err)
	analytic := evalReal(t, g, jac[0][0], []*ffgraph.Var{x}, 2)

	out, err := extop.XLogOp{}.Eval([]arith.Value{arith.Seed(arith.Real(2), 1, 0)})
	require.NoError(t, err)
	dual, ok := arith.Float(out[0].(arith.Dual).Dot[0])
	require.True(t, ok)

	want := math.Log(2) + 1
	assert.InDelta(t, want, analytic, 1e-12)
	assert.InDelta(t, want, dual, 1e-12)
}

func TestXLog_McCormickSpecialization(t *testing.T) {
	v := mccormick.New(interval.New(1, 3), 2)
	out, err := extop.XLogOp{}.Eval([]arith.Value{v})
	require.NoError(t, err)
	r := out[0].(mccormick.Var)
	want := 2 * math.Log(2)
	assert.LessOrEqual(t, r.Cv(), want+1e-12)
	assert.GreaterOrEqual(t, r.Cc(), want-1e-12)
}

// The dedicated xlog relaxation emits tangents below and the chord above;
// every sampled point of the curve must satisfy every cut.
func TestXLog_PolyhedralRule(t *testing.T) {
	g := ffgraph.New()
	x := g.NewVar()
	y, err := extop.XLog(g, x)
	require.NoError(t, err)

	im := polrelax.NewImage(polrelax.WithDivisions(4))
	res, err := im.Relax(g, []*ffgraph.Var{y}, []*ffgraph.Var{x},
		[]interval.Interval{interval.New(0.5, 2)})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.NotEmpty(t, im.Cuts())

	xv, ok := im.VarFor(x)
	require.True(t, ok)
	for _, s := range []float64{0.5, 0.8, 1, 1.3, 1.7, 2} {
		fx := s * math.Log(s)
		assert.LessOrEqual(t, res[0].Lo(), fx+1e-12)
		assert.GreaterOrEqual(t, res[0].Up(), fx-1e-12)
		for _, c := range im.Cuts() {
			lhs := 0.0
			for _, term := range c.Terms {
				switch term.Var {
				case xv:
					lhs += term.Coef * s
				case res[0]:
					lhs += term.Coef * fx
				default:
					t.Fatalf("unexpected variable %s in xlog cut", term.Var)
				}
			}
			switch c.Rel {
			case polrelax.LE:
				assert.LessOrEqual(t, lhs, c.RHS+1e-9, "%s at x=%g", c, s)
			case polrelax.GE:
				assert.GreaterOrEqual(t, lhs, c.RHS-1e-9, "%s at x=%g", c, s)
			default:
				assert.InDelta(t, c.RHS, lhs, 1e-9, "%s at x=%g", c, s)
			}
		}
	}
}

func TestXLog_PolyhedralDomainError(t *testing.T) {
	g := ffgraph.New()
	x := g.NewVar()
	y, err := extop.XLog(g, x)
	require.NoError(t, err)

	im := polrelax.NewImage()
	_, err = im.Relax(g, []*ffgraph.Var{y}, []*ffgraph.Var{x},
		[]interval.Interval{interval.New(-1, 1)})
	assert.ErrorIs(t, err, arith.ErrDomain)
}

func TestDet_Degenerate(t *testing.T) {
	g := ffgraph.New()

	z, err := extop.Det(g)
	require.NoError(t, err)
	c, ok := z.Const()
	require.True(t, ok)
	assert.Equal(t, 0.0, c)

	x := g.NewVar()
	d, err := extop.Det(g, x)
	require.NoError(t, err)
	assert.Same(t, x, d, "1x1 determinant is the entry itself")

	_, err = extop.Det(g, x, x)
	require.Error(t, err)
	assert.True(t, errors.Is(err, extop.ErrShape))
}

func TestDet_Vandermonde(t *testing.T) {
	g := ffgraph.New()
	xs := []*ffgraph.Var{g.NewVar(), g.NewVar(), g.NewVar(), g.NewVar()}
	entries := make([]*ffgraph.Var, 0, 16)
	for _, x := range xs {
		for j := 0; j < 4; j++ {
			p, err := x.Pow(j)
			require.NoError(t, err)
			entries = append(entries, p.(*ffgraph.Var))
		}
	}
	d, err := extop.Det(g, entries...)
	require.NoError(t, err)
	// det of the Vandermonde matrix of [1,2,3,4] is the product of pairwise
	// differences: 12
	got := evalReal(t, g, d, xs, 1, 2, 3, 4)
	assert.InDelta(t, 12.0, got, 1e-9)
}

func TestDet_CofactorOverIntervals(t *testing.T) {
	g := ffgraph.New()
	vars := make([]*ffgraph.Var, 9)
	for i := range vars {
		vars[i] = g.NewVar()
	}
	d, err := extop.Det(g, vars...)
	require.NoError(t, err)

	entries := []float64{1, 2, 3, 4, 5, 6, 7, 8, 10}
	vals := make([]arith.Value, 9)
	for i, e := range entries {
		vals[i] = interval.Point(e)
	}
	out, err := g.Eval([]*ffgraph.Var{d}, vars, vals)
	require.NoError(t, err)
	assert.InDelta(t, -3.0, out[0].Lo(), 1e-9)
	assert.InDelta(t, -3.0, out[0].Up(), 1e-9)
}

func TestDet_DepClassification(t *testing.T) {
	g := ffgraph.New()
	v4 := []*ffgraph.Var{g.NewVar(), g.NewVar(), g.NewVar(), g.NewVar()}
	d2, err := extop.Det(g, v4...)
	require.NoError(t, err)
	assert.Equal(t, ffgraph.DepQuadratic, d2.Dep().Class())

	v9 := make([]*ffgraph.Var, 9)
	for i := range v9 {
		v9[i] = g.NewVar()
	}
	d3, err := extop.Det(g, v9...)
	require.NoError(t, err)
	assert.Equal(t, ffgraph.DepPolynomial, d3.Dep().Class())
}

const atomText = `1 0
0 1

1 0
0 0
`

func TestReadAtoms(t *testing.T) {
	store, err := extop.ReadAtoms(strings.NewReader(atomText), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Dim)
	require.Len(t, store.Atoms, 2)
	assert.Equal(t, 1.0, store.Atoms[0].At(1, 1))
	assert.Equal(t, 0.0, store.Atoms[1].At(1, 1))
}

func TestReadAtoms_Malformed(t *testing.T) {
	_, err := extop.ReadAtoms(strings.NewReader("1 0 0\n0 1\n"), 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, extop.ErrAtomFormat))

	_, err = extop.ReadAtoms(strings.NewReader("1 0\n"), 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, extop.ErrAtomFormat), "unterminated block")
}

func TestDOpt_ValueAndGradient(t *testing.T) {
	store, err := extop.ReadAtoms(strings.NewReader(atomText), 2)
	require.NoError(t, err)

	g := ffgraph.New()
	x, y := g.NewVar(), g.NewVar()
	obj, err := extop.DOpt(g, store, x, y)
	require.NoError(t, err)

	vars := []*ffgraph.Var{x, y}
	// M = diag(2, 1) at weights (1, 1)
	assert.InDelta(t, math.Log(2), evalReal(t, g, obj, vars, 1, 1), 1e-12)

	jac, err := g.FAD([]*ffgraph.Var{obj}, vars)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, evalReal(t, g, jac[0][0], vars, 1, 1), 1e-12)
	assert.InDelta(t, 0.5, evalReal(t, g, jac[0][1], vars, 1, 1), 1e-12)
}

func TestDOpt_NotPositiveDefinite(t *testing.T) {
	store, err := extop.ReadAtoms(strings.NewReader(atomText), 2)
	require.NoError(t, err)

	g := ffgraph.New()
	x, y := g.NewVar(), g.NewVar()
	obj, err := extop.DOpt(g, store, x, y)
	require.NoError(t, err)

	_, err = g.Eval([]*ffgraph.Var{obj}, []*ffgraph.Var{x, y},
		[]arith.Value{arith.Real(-1), arith.Real(0)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, arith.ErrNumeric))
}

func TestDOpt_WeightAtomMismatch(t *testing.T) {
	store, err := extop.ReadAtoms(strings.NewReader(atomText), 2)
	require.NoError(t, err)
	g := ffgraph.New()
	_, err = extop.DOpt(g, store, g.NewVar())
	require.Error(t, err)
	assert.True(t, errors.Is(err, extop.ErrShape))
}

func TestArrh_ValueAndDeriv(t *testing.T) {
	g := ffgraph.New()
	x := g.NewVar()
	a, err := extop.Arrh(g, 2, x)
	require.NoError(t, err)

	vars := []*ffgraph.Var{x}
	assert.InDelta(t, math.Exp(-2), evalReal(t, g, a, vars, 1), 1e-12)

	jac, err := g.FAD([]*ffgraph.Var{a}, vars)
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Exp(-2), evalReal(t, g, jac[0][0], vars, 1), 1e-12)
}

func TestArrh_IntervalContainment(t *testing.T) {
	g := ffgraph.New()
	x := g.NewVar()
	a, err := extop.Arrh(g, 2, x)
	require.NoError(t, err)
	out, err := g.Eval([]*ffgraph.Var{a}, []*ffgraph.Var{x}, []arith.Value{interval.New(0.5, 2)})
	require.NoError(t, err)
	want := math.Exp(-2)
	assert.LessOrEqual(t, out[0].Lo(), want)
	assert.GreaterOrEqual(t, out[0].Up(), want)
}

func TestArrh_DistinctCoefficientsDoNotCollide(t *testing.T) {
	g := ffgraph.New()
	x := g.NewVar()
	a1, err := extop.Arrh(g, 2, x)
	require.NoError(t, err)
	a2, err := extop.Arrh(g, 3, x)
	require.NoError(t, err)
	assert.NotSame(t, a1, a2)
}
