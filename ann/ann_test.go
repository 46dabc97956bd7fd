package ann_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factolab/facto/ann"
	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/ffgraph"
	"github.com/factolab/facto/interval"
	"github.com/factolab/facto/polrelax"
)

const tol = 1e-9

// tanhNet is a 2-3-1 stack used across the evaluation tests.
func tanhNet(t *testing.T, opts ...ann.Option) *ann.Network {
	t.Helper()
	net, err := ann.New([][][]float64{
		{{0.5, 1, -1}, {-0.2, 0.3, 0.7}, {0.1, -0.6, 0.4}},
		{{0.1, 1, 0.5, -0.8}},
	}, ann.Tanh, opts...)
	require.NoError(t, err)
	return net
}

func tanhNetRef(x, y float64) float64 {
	h1 := math.Tanh(0.5 + x - y)
	h2 := math.Tanh(-0.2 + 0.3*x + 0.7*y)
	h3 := math.Tanh(0.1 - 0.6*x + 0.4*y)
	return math.Tanh(0.1 + h1 + 0.5*h2 - 0.8*h3)
}

func inferReal(t *testing.T, net *ann.Network, xs ...float64) []float64 {
	t.Helper()
	in := make([]arith.Value, len(xs))
	for i, x := range xs {
		in[i] = arith.Real(x)
	}
	res, err := net.Infer(in)
	require.NoError(t, err)
	out := make([]float64, len(res))
	for j, r := range res {
		f, ok := arith.Float(r)
		require.True(t, ok)
		out[j] = f
	}
	return out
}

func TestInfer_RealMatchesHandComputation(t *testing.T) {
	net := tanhNet(t)
	assert.Equal(t, 2, net.NIn())
	assert.Equal(t, 1, net.NOut())
	assert.Equal(t, 2, net.NLayers())

	for _, pt := range [][2]float64{{0, 0}, {1, -1}, {-0.5, 0.3}, {2, 2}} {
		got := inferReal(t, net, pt[0], pt[1])
		assert.InDelta(t, tanhNetRef(pt[0], pt[1]), got[0], tol)
	}
}

func TestInfer_ReluVariantsAgree(t *testing.T) {
	layers := [][][]float64{
		{{0.2, 1, -0.5}, {-0.1, 0.8, 0.8}},
		{{0, 1, -1}},
	}
	plain, err := ann.New(layers, ann.ReLU)
	require.NoError(t, err)
	abs, err := ann.New(layers, ann.ReLU, ann.WithReluAsAbs())
	require.NoError(t, err)

	for _, pt := range [][2]float64{{0, 0}, {0.4, -0.9}, {-1, 1}, {2, 0.1}} {
		a := inferReal(t, plain, pt[0], pt[1])
		b := inferReal(t, abs, pt[0], pt[1])
		assert.InDelta(t, a[0], b[0], tol)
	}
}

func TestInfer_SigmoidVariantsAgree(t *testing.T) {
	layers := [][][]float64{{{0.1, 0.9}}, {{-0.3, 1.4}}}
	half, err := ann.New(layers, ann.Sigmoid)
	require.NoError(t, err)
	exp, err := ann.New(layers, ann.Sigmoid, ann.WithSigmoidAsExp())
	require.NoError(t, err)

	for _, x := range []float64{-2, -0.3, 0, 0.7, 3} {
		a := inferReal(t, half, x)
		b := inferReal(t, exp, x)
		assert.InDelta(t, a[0], b[0], tol)
	}
}

func TestInfer_ZeroTolSkipsCoefficients(t *testing.T) {
	withTiny, err := ann.New([][][]float64{{{0.5, 1, 1e-12}}}, ann.Linear, ann.WithZeroTol(1e-9))
	require.NoError(t, err)
	explicit, err := ann.New([][][]float64{{{0.5, 1, 0}}}, ann.Linear)
	require.NoError(t, err)

	a := inferReal(t, withTiny, 0.3, 123456)
	b := inferReal(t, explicit, 0.3, 123456)
	assert.Equal(t, b[0], a[0])
}

func TestInfer_IntervalContainsReal(t *testing.T) {
	net := tanhNet(t)
	bx := interval.New(-1, 1)
	by := interval.New(0, 2)
	res, err := net.Infer([]arith.Value{bx, by})
	require.NoError(t, err)
	b := res[0].(interval.Interval)

	for i := 0; i <= 5; i++ {
		for j := 0; j <= 5; j++ {
			xs := -1 + 2*float64(i)/5
			ys := 2 * float64(j) / 5
			want := tanhNetRef(xs, ys)
			assert.LessOrEqual(t, b.Lo(), want+tol)
			assert.GreaterOrEqual(t, b.Up(), want-tol)
		}
	}
}

func TestNetwork_Validation(t *testing.T) {
	_, err := ann.New(nil, ann.Linear)
	require.ErrorIs(t, err, arith.ErrIndex)
	_, err = ann.New([][][]float64{{{1}}}, ann.Linear)
	require.ErrorIs(t, err, arith.ErrIndex, "neuron row needs a bias and a weight")
	_, err = ann.New([][][]float64{{{0, 1}}, {{0, 1, 1}}}, ann.Linear)
	require.ErrorIs(t, err, arith.ErrIndex, "widths must chain")

	net := tanhNet(t)
	_, err = net.Infer([]arith.Value{arith.Real(1)})
	require.ErrorIs(t, err, arith.ErrIndex)
}

func TestNetOp_GraphEvalAndDifferentiation(t *testing.T) {
	net, err := ann.New([][][]float64{{{0, 2}}}, ann.Tanh)
	require.NoError(t, err)
	op := ann.NewOp(net, ann.Int)

	g := ffgraph.New()
	x := g.NewVar()
	outs, err := op.Apply(g, x)
	require.NoError(t, err)
	require.Len(t, outs, 1)

	res, err := g.Eval(outs, []*ffgraph.Var{x}, []arith.Value{arith.Real(0.3)})
	require.NoError(t, err)
	got, ok := arith.Float(res[0])
	require.True(t, ok)
	assert.InDelta(t, math.Tanh(0.6), got, tol)

	// derivative through the dual-number fallback: d tanh(2x) = 2(1-tanh^2)
	jac, err := g.BAD(outs, []*ffgraph.Var{x})
	require.NoError(t, err)
	dres, err := g.Eval([]*ffgraph.Var{jac[0][0]}, []*ffgraph.Var{x}, []arith.Value{arith.Real(0.3)})
	require.NoError(t, err)
	dgot, ok := arith.Float(dres[0])
	require.True(t, ok)
	th := math.Tanh(0.6)
	assert.InDelta(t, 2*(1-th*th), dgot, tol)

	_, err = op.Apply(g, x, x)
	require.ErrorIs(t, err, arith.ErrIndex)
}

// relaxNet relaxes a one-input network over the given range and returns the
// image and the output variable.
func relaxNet(t *testing.T, op *ann.NetOp, rng interval.Interval) (*polrelax.Image, *ffgraph.Var, *polrelax.Var, *ffgraph.Var) {
	t.Helper()
	g := ffgraph.New()
	x := g.NewVar()
	outs, err := op.Apply(g, x)
	require.NoError(t, err)
	im := polrelax.NewImage()
	pouts, err := im.Relax(g, outs, []*ffgraph.Var{x}, []interval.Interval{rng})
	require.NoError(t, err)
	require.Len(t, pouts, 1)
	return im, x, pouts[0], outs[0]
}

// checkWitness verifies every cut at a sample, assigning the true values to
// the leaf and output and the cell indicator to each weight variable.
func checkWitness(t *testing.T, im *polrelax.Image, leaf, out *polrelax.Var,
	xs, fx float64, rng interval.Interval, ndiv int) {
	t.Helper()
	val := map[*polrelax.Var]float64{leaf: xs, out: fx}
	h := rng.Diam() / float64(ndiv)
	cell := 0
	if h > 0 {
		cell = int((xs - rng.Lo()) / h)
		if cell >= ndiv {
			cell = ndiv - 1
		}
	}
	k := 0
	for _, v := range im.Vars() {
		if v == leaf || v == out || v.Node() != nil {
			continue
		}
		if k == cell {
			val[v] = 1
		} else {
			val[v] = 0
		}
		k = (k + 1) % ndiv
	}
	for _, c := range im.Cuts() {
		lhs := 0.0
		for _, tm := range c.Terms {
			x, ok := val[tm.Var]
			require.True(t, ok, "unassigned variable in %s", c)
			lhs += tm.Coef * x
		}
		switch c.Rel {
		case polrelax.LE:
			assert.LessOrEqual(t, lhs, c.RHS+tol, "%s at x=%g", c, xs)
		case polrelax.GE:
			assert.GreaterOrEqual(t, lhs, c.RHS-tol, "%s at x=%g", c, xs)
		default:
			assert.InDelta(t, c.RHS, lhs, tol, "%s at x=%g", c, xs)
		}
	}
}

func oneInputNet(t *testing.T, act ann.Activation) *ann.Network {
	t.Helper()
	net, err := ann.New([][][]float64{
		{{0.2, 1.5}, {-0.4, -1}},
		{{0.1, 1, 0.7}},
	}, act)
	require.NoError(t, err)
	return net
}

func TestNetOp_IntStrategy(t *testing.T) {
	net := oneInputNet(t, ann.Tanh)
	im, _, out, _ := relaxNet(t, ann.NewOp(net, ann.Int), interval.New(-1, 1))
	assert.Empty(t, im.Cuts(), "interval bounding adds no cuts")
	for _, xs := range []float64{-1, -0.2, 0.5, 1} {
		fx := inferReal(t, net, xs)[0]
		assert.LessOrEqual(t, out.Lo(), fx+tol)
		assert.GreaterOrEqual(t, out.Up(), fx-tol)
	}
}

func TestNetOp_MCStrategyCuts(t *testing.T) {
	net := oneInputNet(t, ann.Tanh)
	im, x, out, _ := relaxNet(t, ann.NewOp(net, ann.MC), interval.New(-1, 1))
	require.Len(t, im.Cuts(), 2, "one supporting cut per side")
	leaf, ok := im.VarFor(x)
	require.True(t, ok)
	for _, xs := range []float64{-1, -0.6, 0, 0.3, 1} {
		fx := inferReal(t, net, xs)[0]
		checkWitness(t, im, leaf, out, xs, fx, interval.New(-1, 1), 1)
	}
}

func TestNetOp_ISMStrategyCuts(t *testing.T) {
	net := oneInputNet(t, ann.Tanh)
	op := ann.NewOp(net, ann.ISM, ann.WithDivisions(4))
	im, x, out, _ := relaxNet(t, op, interval.New(-1, 1))
	leaf, ok := im.VarFor(x)
	require.True(t, ok)
	assert.Equal(t, 5, im.NAux(), "output plus one weight per cell")
	for _, xs := range []float64{-1, -0.3, 0.2, 0.9} {
		fx := inferReal(t, net, xs)[0]
		checkWitness(t, im, leaf, out, xs, fx, interval.New(-1, 1), 4)
	}
}

func TestNetOp_MCISMStrategyCuts(t *testing.T) {
	net := oneInputNet(t, ann.Tanh)
	op := ann.NewOp(net, ann.MCISM, ann.WithDivisions(4))
	im, x, out, _ := relaxNet(t, op, interval.New(-1, 1))
	leaf, ok := im.VarFor(x)
	require.True(t, ok)
	// two subgradient cuts, three weight-linking cuts, two output links
	require.Len(t, im.Cuts(), 7)
	for _, xs := range []float64{-0.8, 0.1, 0.7} {
		fx := inferReal(t, net, xs)[0]
		checkWitness(t, im, leaf, out, xs, fx, interval.New(-1, 1), 4)
	}
}

func TestNetOp_ASMStrategyLinearNet(t *testing.T) {
	net, err := ann.New([][][]float64{{{0.5, 2}, {-1, -0.5}}, {{0, 1, 1}}}, ann.Linear)
	require.NoError(t, err)
	op := ann.NewOp(net, ann.ASM, ann.WithDivisions(4))
	im, x, out, _ := relaxNet(t, op, interval.New(-1, 1))
	leaf, ok := im.VarFor(x)
	require.True(t, ok)
	assert.Equal(t, 1, im.NAux(), "affine rows need no weight variables")
	for _, xs := range []float64{-1, 0, 0.4, 1} {
		fx := 0.5 + 2*xs - 1 - 0.5*xs
		checkWitness(t, im, leaf, out, xs, fx, interval.New(-1, 1), 4)
	}
}

func TestNetOp_ASMStrategyShadowCuts(t *testing.T) {
	net := oneInputNet(t, ann.ReLU)
	plain := ann.NewOp(net, ann.ASM, ann.WithDivisions(4))
	shadowed := ann.NewOp(net, ann.ASM, ann.WithDivisions(4), ann.WithShadowCuts())

	imP, _, _, _ := relaxNet(t, plain, interval.New(-1, 1))
	imS, x, out, _ := relaxNet(t, shadowed, interval.New(-1, 1))
	assert.GreaterOrEqual(t, len(imS.Cuts()), len(imP.Cuts()),
		"shadow emission never removes cuts")

	leaf, ok := imS.VarFor(x)
	require.True(t, ok)
	for _, xs := range []float64{-1, -0.5, 0, 0.6, 1} {
		fx := inferReal(t, net, xs)[0]
		checkWitness(t, imS, leaf, out, xs, fx, interval.New(-1, 1), 4)
	}
}

// twoInputReluNet straddles zero on both hidden preactivations over
// [-1,1] x [-2,2], so the rectified rows stay genuinely piecewise in both
// inputs.
func twoInputReluNet(t *testing.T) *ann.Network {
	t.Helper()
	net, err := ann.New([][][]float64{
		{{0.25, 0.75, -1.25}, {-0.5, 0.5, 1}},
		{{0.1, 1, 0.6}},
	}, ann.ReLU)
	require.NoError(t, err)
	return net
}

// relaxNetN relaxes a network over one range per input.
func relaxNetN(t *testing.T, op *ann.NetOp, rngs []interval.Interval) (*polrelax.Image, []*polrelax.Var, *polrelax.Var) {
	t.Helper()
	g := ffgraph.New()
	xs := make([]*ffgraph.Var, len(rngs))
	for i := range xs {
		xs[i] = g.NewVar()
	}
	outs, err := op.Apply(g, xs...)
	require.NoError(t, err)
	im := polrelax.NewImage()
	pouts, err := im.Relax(g, outs, xs, rngs)
	require.NoError(t, err)
	require.Len(t, pouts, 1)
	leaves := make([]*polrelax.Var, len(xs))
	for i, x := range xs {
		lv, ok := im.VarFor(x)
		require.True(t, ok)
		leaves[i] = lv
	}
	return im, leaves, pouts[0]
}

// checkWitnessGrid verifies every cut on a sample grid, assigning true values
// to the leaves and output and each input's cell indicator to its weight
// block. Weight blocks are allocated per input in ascending order.
func checkWitnessGrid(t *testing.T, net *ann.Network, op *ann.NetOp,
	rngs []interval.Interval, ndiv, steps int) {
	t.Helper()
	im, leaves, out := relaxNetN(t, op, rngs)
	var aux []*polrelax.Var
	for _, v := range im.Vars() {
		if v == out || v.Node() != nil {
			continue
		}
		aux = append(aux, v)
	}
	require.Len(t, aux, len(rngs)*ndiv, "one weight block per input")

	grid := func(rng interval.Interval, i int) float64 {
		return rng.Lo() + rng.Diam()*float64(i)/float64(steps)
	}
	for gi := 0; gi <= steps; gi++ {
		for gj := 0; gj <= steps; gj++ {
			xs := []float64{grid(rngs[0], gi), grid(rngs[1], gj)}
			fx := inferReal(t, net, xs...)[0]
			val := map[*polrelax.Var]float64{out: fx}
			for n, lv := range leaves {
				val[lv] = xs[n]
			}
			for n, rng := range rngs {
				h := rng.Diam() / float64(ndiv)
				cell := int((xs[n] - rng.Lo()) / h)
				if cell >= ndiv {
					cell = ndiv - 1
				}
				for k := 0; k < ndiv; k++ {
					w := 0.0
					if k == cell {
						w = 1
					}
					val[aux[n*ndiv+k]] = w
				}
			}
			for _, c := range im.Cuts() {
				lhs := 0.0
				for _, tm := range c.Terms {
					x, ok := val[tm.Var]
					require.True(t, ok, "unassigned variable in %s", c)
					lhs += tm.Coef * x
				}
				switch c.Rel {
				case polrelax.LE:
					assert.LessOrEqual(t, lhs, c.RHS+tol, "%s at (%g,%g)", c, xs[0], xs[1])
				case polrelax.GE:
					assert.GreaterOrEqual(t, lhs, c.RHS-tol, "%s at (%g,%g)", c, xs[0], xs[1])
				default:
					assert.InDelta(t, c.RHS, lhs, tol, "%s at (%g,%g)", c, xs[0], xs[1])
				}
			}
		}
	}
}

func TestNetOp_ASMStrategyTwoInputs(t *testing.T) {
	net := twoInputReluNet(t)
	op := ann.NewOp(net, ann.ASM, ann.WithDivisions(4))
	rngs := []interval.Interval{interval.New(-1, 1), interval.New(-2, 2)}
	checkWitnessGrid(t, net, op, rngs, 4, 6)
}

func TestNetOp_ASMStrategyTwoInputShadowCuts(t *testing.T) {
	net := twoInputReluNet(t)
	op := ann.NewOp(net, ann.ASM, ann.WithDivisions(4), ann.WithShadowCuts())
	rngs := []interval.Interval{interval.New(-1, 1), interval.New(-2, 2)}
	checkWitnessGrid(t, net, op, rngs, 4, 6)
}

func TestNetOp_PolStrategy(t *testing.T) {
	net := oneInputNet(t, ann.Tanh)
	im, _, out, _ := relaxNet(t, ann.NewOp(net, ann.Pol), interval.New(-1, 1))
	assert.NotEmpty(t, im.Cuts(), "polyhedral propagation emits the layers' cuts")
	for _, xs := range []float64{-1, -0.2, 0.5, 1} {
		fx := inferReal(t, net, xs)[0]
		assert.LessOrEqual(t, out.Lo(), fx+tol)
		assert.GreaterOrEqual(t, out.Up(), fx-tol)
	}
}
