package polrelax

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/factolab/facto/ffgraph"
	"github.com/factolab/facto/interval"
)

// Rel is a cut relation.
type Rel uint8

const (
	LE Rel = iota
	GE
	EQ
)

func (r Rel) String() string {
	switch r {
	case LE:
		return "<="
	case GE:
		return ">="
	}
	return "="
}

// Kind classifies a polyhedral variable.
type Kind uint8

const (
	// KindLeaf pairs a graph leaf with its box range.
	KindLeaf Kind = iota
	// KindAux is a continuous auxiliary.
	KindAux
	// KindBin is a 0/1 auxiliary.
	KindBin
)

// Term is one sparse coefficient of a cut.
type Term struct {
	Var  *Var
	Coef float64
}

// Cut is one linear constraint: sum of terms Rel RHS.
type Cut struct {
	Rel   Rel
	RHS   float64
	Terms []Term
}

func (c *Cut) String() string {
	var b strings.Builder
	for i, t := range c.Terms {
		if i > 0 {
			b.WriteString(" + ")
		}
		fmt.Fprintf(&b, "%g*%s", t.Coef, t.Var.name())
	}
	fmt.Fprintf(&b, " %s %g", c.Rel, c.RHS)
	return b.String()
}

// Image accumulates polyhedral variables and cuts within one relaxation
// request. Not safe for concurrent use.
type Image struct {
	opts   Options
	vars   []*Var
	cuts   []*Cut
	byNode map[*ffgraph.Var]*Var
}

// NewImage returns an empty image with the given options.
func NewImage(opts ...Option) *Image {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	im := &Image{opts: o}
	im.Reset()
	return im
}

// Reset clears all accumulated variables and cuts; options survive.
func (im *Image) Reset() {
	im.vars = nil
	im.cuts = nil
	im.byNode = make(map[*ffgraph.Var]*Var)
}

// Cuts reports the accumulated cut set.
func (im *Image) Cuts() []*Cut { return im.cuts }

// Vars reports every variable of the image.
func (im *Image) Vars() []*Var { return im.vars }

// NAux reports the number of continuous auxiliaries, NBin the 0/1 count.
func (im *Image) NAux() int { return im.count(KindAux) }
func (im *Image) NBin() int { return im.count(KindBin) }

func (im *Image) count(k Kind) int {
	n := 0
	for _, v := range im.vars {
		if v.kind == k {
			n++
		}
	}
	return n
}

// VarFor reports the polyhedral variable bound to a graph node during the
// last relaxation request.
func (im *Image) VarFor(node *ffgraph.Var) (*Var, bool) {
	v, ok := im.byNode[node]
	return v, ok
}

// AddCut appends one cut.
func (im *Image) AddCut(rel Rel, rhs float64, terms ...Term) *Cut {
	c := &Cut{Rel: rel, RHS: rhs, Terms: terms}
	im.cuts = append(im.cuts, c)
	return c
}

func (im *Image) newVar(kind Kind, rng interval.Interval, node *ffgraph.Var) *Var {
	v := &Var{img: im, id: len(im.vars), kind: kind, rng: rng, node: node}
	im.vars = append(im.vars, v)
	if node != nil {
		im.byNode[node] = v
	}
	return v
}

// NewAux declares a continuous auxiliary with the given range.
func (im *Image) NewAux(rng interval.Interval) *Var { return im.newVar(KindAux, rng, nil) }

// NewBin declares a 0/1 auxiliary.
func (im *Image) NewBin() *Var { return im.newVar(KindBin, interval.New(0, 1), nil) }

func (v *Var) name() string {
	prefix := "v"
	if v.kind == KindBin {
		prefix = "b"
	}
	return prefix + strconv.Itoa(v.id)
}
