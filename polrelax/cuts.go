package polrelax

import (
	"math"
)

// SandwichCuts appends one tangent cut of f per uniformly placed point on
// x's range. rel GE is the convex side (w above every tangent), rel LE the
// concave side. Points with a non-finite derivative are skipped.
func (im *Image) SandwichCuts(x, w *Var, f, df func(float64) float64, rel Rel) {
	lo, up := x.rng.Bounds()
	n := im.opts.NDiv
	for k := 0; k <= n; k++ {
		t := lo + (up-lo)*float64(k)/float64(n)
		s := df(t)
		if math.IsInf(s, 0) || math.IsNaN(s) {
			continue
		}
		// w rel s·x + f(t) − s·t
		im.AddCut(rel, f(t)-s*t, Term{w, 1}, Term{x, -s})
	}
}

// SecantCut appends the chord cut between the range endpoints: the
// complementary side of a sandwich. rel LE closes a convex sandwich, rel GE
// a concave one.
func (im *Image) SecantCut(x, w *Var, f func(float64) float64, rel Rel) {
	lo, up := x.rng.Bounds()
	s := 0.0
	if up > lo {
		s = (f(up) - f(lo)) / (up - lo)
	}
	im.AddCut(rel, f(lo)-s*lo, Term{w, 1}, Term{x, -s})
}

// SemilinearCuts appends the piecewise-linear encoding of w rel f(x) over
// the given breakpoints: convex-combination weights recover x, and w is tied
// to the interpolated function values. Under BinaryEncoding each segment
// additionally gets a 0/1 indicator with adjacency cuts.
func (im *Image) SemilinearCuts(x, w *Var, bpts []float64, f func(float64) float64, rel Rel) {
	n := len(bpts)
	if n < 2 {
		return
	}
	lam := make([]*Var, n)
	sum := make([]Term, n)
	xTie := make([]Term, n+1)
	wTie := make([]Term, n+1)
	for k, b := range bpts {
		lam[k] = im.NewAux(unitRange)
		sum[k] = Term{lam[k], 1}
		xTie[k] = Term{lam[k], b}
		wTie[k] = Term{lam[k], -f(b)}
	}
	im.AddCut(EQ, 1, sum...)
	xTie[n] = Term{x, -1}
	im.AddCut(EQ, 0, xTie...)
	wTie[n] = Term{w, 1}
	im.AddCut(rel, 0, wTie...)

	if im.opts.Encoding != BinaryEncoding {
		return
	}
	bins := make([]*Var, n-1)
	binSum := make([]Term, n-1)
	for j := range bins {
		bins[j] = im.NewBin()
		binSum[j] = Term{bins[j], 1}
	}
	im.AddCut(EQ, 1, binSum...)
	for k := 0; k < n; k++ {
		terms := []Term{{lam[k], 1}}
		if k > 0 {
			terms = append(terms, Term{bins[k-1], -1})
		}
		if k < n-1 {
			terms = append(terms, Term{bins[k], -1})
		}
		im.AddCut(LE, 0, terms...)
	}
}

// bilinearCuts appends the four McCormick envelope cuts for w = x·y.
func (im *Image) bilinearCuts(w, x, y *Var) {
	xL, xU := x.rng.Bounds()
	yL, yU := y.rng.Bounds()
	// w ≥ yL·x + xL·y − xL·yL and the xU/yU mate
	im.AddCut(GE, -xL*yL, Term{w, 1}, Term{x, -yL}, Term{y, -xL})
	im.AddCut(GE, -xU*yU, Term{w, 1}, Term{x, -yU}, Term{y, -xU})
	// w ≤ yU·x + xL·y − xL·yU and the mirror
	im.AddCut(LE, -xL*yU, Term{w, 1}, Term{x, -yU}, Term{y, -xL})
	im.AddCut(LE, -xU*yL, Term{w, 1}, Term{x, -yL}, Term{y, -xU})
}

// tangentThrough solves for the point t in [lo, up] where the tangent of f
// at t passes through (anchor, f(anchor)), by bisection on the defect.
func tangentThrough(f, df func(float64) float64, anchor, lo, up float64) float64 {
	g := func(t float64) float64 {
		return df(t)*(t-anchor) - (f(t) - f(anchor))
	}
	glo, gup := g(lo), g(up)
	if glo*gup > 0 {
		if math.Abs(glo) < math.Abs(gup) {
			return lo
		}
		return up
	}
	for i := 0; i < 100 && up-lo > 1e-10; i++ {
		m := 0.5 * (lo + up)
		if g(m)*glo <= 0 {
			up = m
		} else {
			lo, glo = m, g(m)
		}
	}
	return 0.5 * (lo + up)
}
