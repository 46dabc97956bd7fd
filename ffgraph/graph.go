package ffgraph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/factolab/facto/arith"
)

// Op is one operation vertex: an opcode (or an external definition), an
// ordered input list, and an ordered output list.
type Op struct {
	Code  OpCode
	Def   ExternOp // non-nil iff Code == OpExtern
	Param int      // pow exponent / chebyshev order
	In    []*Var
	Out   []*Var
}

// Name reports the vertex's diagnostic label.
func (o *Op) Name() string {
	if o.Code == OpExtern {
		return o.Def.Name()
	}
	return o.Code.String()
}

// Graph owns a set of expression nodes and operation vertices, deduplicating
// structurally identical applications, and hosts the registry of external
// operations usable against it.
type Graph struct {
	nodes  []*Var
	ops    []*Op
	dedup  map[string]*Op
	consts map[float64]*Var
	ext    map[string]ExternOp
	nleaf  int
	naux   int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		dedup:  make(map[string]*Op),
		consts: make(map[float64]*Var),
		ext:    make(map[string]ExternOp),
	}
}

// NOps reports the number of operation vertices.
func (g *Graph) NOps() int { return len(g.ops) }

// NewVar declares a fresh leaf variable.
func (g *Graph) NewVar() *Var {
	v := &Var{g: g, id: len(g.nodes), name: "X" + strconv.Itoa(g.nleaf)}
	v.dep = Dep{v.id: DepLinear}
	g.nleaf++
	g.nodes = append(g.nodes, v)
	return v
}

// Const returns the (deduplicated) constant leaf for c.
func (g *Graph) Const(c float64) *Var {
	if v, ok := g.consts[c]; ok {
		return v
	}
	v := &Var{g: g, id: len(g.nodes), cst: c, isCst: true, dep: Dep{}}
	g.nodes = append(g.nodes, v)
	g.consts[c] = v
	return v
}

// Register adds an external operation to the graph's registry under its name.
func (g *Graph) Register(def ExternOp) error {
	name := def.Name()
	if _, ok := g.ext[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateOp, name)
	}
	g.ext[name] = def
	return nil
}

// External resolves a registered operation by name and inserts it on the
// given inputs.
func (g *Graph) External(name string, in ...*Var) ([]*Var, error) {
	def, ok := g.ext[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, name)
	}
	return g.Insert(def, in...)
}

// Insert places an external operation vertex on the given inputs,
// deduplicating against structurally identical prior applications. The
// definition is registered under its name if it was not already.
func (g *Graph) Insert(def ExternOp, in ...*Var) ([]*Var, error) {
	for _, v := range in {
		if v.g != g {
			return nil, fmt.Errorf("%w (insert %s)", ErrMixedGraph, def.Name())
		}
	}
	if _, ok := g.ext[def.Name()]; !ok {
		g.ext[def.Name()] = def
	}
	key := opKey(OpExtern, 0, def.Name(), in, def.Commutative())
	if prev, ok := g.dedup[key]; ok {
		return prev.Out, nil
	}

	var dep Dep
	if dr, ok := def.(DepRule); ok {
		dep = dr.Dep(in)
	} else {
		dep = Dep{}
		for _, v := range in {
			dep = dep.Merge(v.dep)
		}
		dep = dep.Raise(DepNonlinear)
	}

	op := &Op{Code: OpExtern, Def: def, In: in}
	nout := def.NOut(len(in))
	for k := 0; k < nout; k++ {
		w := &Var{g: g, id: len(g.nodes), name: "Z" + strconv.Itoa(g.naux), dep: dep, def: op, outIdx: k}
		g.naux++
		g.nodes = append(g.nodes, w)
		op.Out = append(op.Out, w)
	}
	g.ops = append(g.ops, op)
	g.dedup[key] = op
	return op.Out, nil
}

func opKey(code OpCode, param int, name string, in []*Var, commut bool) string {
	ids := make([]int, len(in))
	for i, v := range in {
		ids[i] = v.id
	}
	if commut {
		sort.Ints(ids)
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(code)))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(param))
	b.WriteByte(':')
	b.WriteString(name)
	for _, id := range ids {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}

func (g *Graph) vertex(code OpCode, param int, in ...*Var) *Var {
	key := opKey(code, param, "", in, code.commutative())
	if prev, ok := g.dedup[key]; ok {
		return prev.Out[0]
	}
	op := &Op{Code: code, Param: param, In: in}
	w := &Var{g: g, id: len(g.nodes), name: "Z" + strconv.Itoa(g.naux), dep: depOf(code, param, in), def: op, outIdx: 0}
	g.naux++
	g.nodes = append(g.nodes, w)
	op.Out = []*Var{w}
	g.ops = append(g.ops, op)
	g.dedup[key] = op
	return w
}

func (g *Graph) binary(code OpCode, x, y *Var) (*Var, error) {
	// constant folding
	if x.isCst && y.isCst {
		r, err := applyBuiltin(code, 0, []arith.Value{arith.Real(x.cst), arith.Real(y.cst)})
		if err != nil {
			return nil, err
		}
		c, _ := arith.Float(r)
		return g.Const(c), nil
	}
	// identity simplifications
	switch code {
	case OpAdd:
		if x.isCst && x.cst == 0 {
			return y, nil
		}
		if y.isCst && y.cst == 0 {
			return x, nil
		}
	case OpSub:
		if y.isCst && y.cst == 0 {
			return x, nil
		}
		if x.isCst && x.cst == 0 {
			return g.vertex(OpNeg, 0, y), nil
		}
	case OpMul:
		if x.isCst {
			if x.cst == 0 {
				return g.Const(0), nil
			}
			if x.cst == 1 {
				return y, nil
			}
		}
		if y.isCst {
			if y.cst == 0 {
				return g.Const(0), nil
			}
			if y.cst == 1 {
				return x, nil
			}
		}
	case OpDiv:
		if y.isCst && y.cst == 1 {
			return x, nil
		}
		if x.isCst && x.cst == 0 {
			return g.Const(0), nil
		}
	}
	return g.vertex(code, 0, x, y), nil
}

func (g *Graph) unary(code OpCode, param int, x *Var) (*Var, error) {
	if x.isCst {
		r, err := applyBuiltin(code, param, []arith.Value{arith.Real(x.cst)})
		if err != nil {
			return nil, err
		}
		c, _ := arith.Float(r)
		return g.Const(c), nil
	}
	if code == OpPow {
		switch param {
		case 0:
			return g.Const(1), nil
		case 1:
			return x, nil
		}
	}
	return g.vertex(code, param, x), nil
}

// applyBuiltin dispatches one built-in opcode to the payload's trait surface.
func applyBuiltin(code OpCode, param int, in []arith.Value) (arith.Value, error) {
	switch code {
	case OpAdd:
		return in[0].Add(in[1])
	case OpSub:
		return in[0].Sub(in[1])
	case OpMul:
		return in[0].Mul(in[1])
	case OpDiv:
		return in[0].Div(in[1])
	case OpMin:
		return in[0].Min(in[1])
	case OpMax:
		return in[0].Max(in[1])
	case OpNeg:
		return in[0].Neg()
	case OpExp:
		return in[0].Exp()
	case OpLog:
		return in[0].Log()
	case OpSqrt:
		return in[0].Sqrt()
	case OpSqr:
		return in[0].Sqr()
	case OpPow:
		return in[0].Pow(param)
	case OpSin:
		return in[0].Sin()
	case OpCos:
		return in[0].Cos()
	case OpTan:
		return in[0].Tan()
	case OpAsin:
		return in[0].Asin()
	case OpAcos:
		return in[0].Acos()
	case OpAtan:
		return in[0].Atan()
	case OpSinh:
		return in[0].Sinh()
	case OpCosh:
		return in[0].Cosh()
	case OpTanh:
		return in[0].Tanh()
	case OpErf:
		return in[0].Erf()
	case OpErfc:
		return in[0].Erfc()
	case OpFabs:
		return in[0].Fabs()
	case OpRelu:
		return in[0].Relu()
	case OpCheb:
		return in[0].Cheb(uint(param))
	}
	return nil, fmt.Errorf("ffgraph: opcode %v: %w", code, arith.ErrInternal)
}
