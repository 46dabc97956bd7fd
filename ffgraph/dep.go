package ffgraph

// DepClass grades how a quantity depends on one leaf variable. The ordering
// matters: merging two summaries keeps the higher class per variable.
type DepClass uint8

const (
	DepNone DepClass = iota
	DepLinear
	DepQuadratic
	DepPolynomial
	DepNonlinear
)

func (c DepClass) String() string {
	switch c {
	case DepNone:
		return "none"
	case DepLinear:
		return "linear"
	case DepQuadratic:
		return "quadratic"
	case DepPolynomial:
		return "polynomial"
	}
	return "nonlinear"
}

// Dep summarizes, per leaf-variable id, the nonlinearity class of a node's
// dependence on that variable. It drives fast structural classification, not
// value computation.
type Dep map[int]DepClass

func (d Dep) clone() Dep {
	out := make(Dep, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge keeps, per variable, the higher of the two classes.
func (d Dep) Merge(o Dep) Dep {
	out := d.clone()
	for k, v := range o {
		if v > out[k] {
			out[k] = v
		}
	}
	return out
}

// Raise lifts every dependency to at least class c.
func (d Dep) Raise(c DepClass) Dep {
	out := make(Dep, len(d))
	for k, v := range d {
		if v < c {
			v = c
		}
		out[k] = v
	}
	return out
}

// prod combines two summaries under multiplication: the factors' total
// degrees add on the 0..polynomial scale, nonlinear absorbs. Every variable
// of the product carries the combined class, so x*y is quadratic in both x
// and y even though each factor is linear in one variable only.
func (d Dep) prod(o Dep) Dep {
	du, dv := d.Class(), o.Class()
	var c DepClass
	switch {
	case du == DepNonlinear || dv == DepNonlinear:
		c = DepNonlinear
	case int(du)+int(dv) >= int(DepPolynomial):
		c = DepPolynomial
	default:
		c = DepClass(int(du) + int(dv))
	}
	out := make(Dep, len(d)+len(o))
	for k := range d {
		out[k] = c
	}
	for k := range o {
		out[k] = c
	}
	return out
}

// Class reports the worst class over all variables.
func (d Dep) Class() DepClass {
	worst := DepNone
	for _, v := range d {
		if v > worst {
			worst = v
		}
	}
	return worst
}

func depOf(code OpCode, param int, in []*Var) Dep {
	var d Dep
	switch code {
	case OpAdd, OpSub, OpMin, OpMax:
		d = in[0].dep.Merge(in[1].dep)
	case OpMul:
		d = in[0].dep.prod(in[1].dep)
	case OpDiv:
		d = in[0].dep.Merge(in[1].dep.Raise(DepNonlinear))
	case OpNeg:
		d = in[0].dep.clone()
	case OpSqr:
		d = in[0].dep.prod(in[0].dep)
	case OpPow:
		switch {
		case param == 0:
			d = Dep{}
		case param == 1:
			d = in[0].dep.clone()
		case param == 2:
			d = in[0].dep.prod(in[0].dep)
		case param > 2:
			d = in[0].dep.Raise(DepPolynomial)
		default:
			d = in[0].dep.Raise(DepNonlinear)
		}
	case OpCheb:
		d = in[0].dep.Raise(DepPolynomial)
	default:
		d = in[0].dep.Raise(DepNonlinear)
	}
	if code == OpMin || code == OpMax || code == OpFabs || code == OpRelu {
		d = d.Raise(DepNonlinear)
	}
	return d
}
