package ffgraph

import "github.com/factolab/facto/arith"

// ExternOp is the contract for a user-defined operation vertex. The graph
// engine never inspects the operation beyond this surface: evaluation,
// differentiation, lifting, and relaxation all reach the operation through it
// or through the optional capability interfaces below.
//
// Name must uniquely identify the operation's semantics, including any
// per-instance parameters (two instances with equal names are treated as
// interchangeable by registration and structural deduplication).
type ExternOp interface {
	// Name is the stable registry key and the diagnostic label.
	Name() string

	// NOut reports the number of results produced for nin inputs.
	NOut(nin int) int

	// Commutative reports whether operand order is insignificant for
	// structural deduplication.
	Commutative() bool

	// Eval applies the operation to payload values. Implementations work
	// generically through arith.Value and may type-switch on concrete
	// payload kinds for specialized rules. A payload kind the operation
	// cannot serve surfaces as an error wrapping arith.ErrNotImplemented.
	Eval(in []arith.Value) ([]arith.Value, error)
}

// DerivRule is the optional analytic-derivative capability. When absent,
// differentiation falls back to re-evaluating the operation over the
// dual-number payload.
//
// Deriv returns the Jacobian as graph expressions: one row per output, one
// column per input.
type DerivRule interface {
	Deriv(in []*Var) ([][]*Var, error)
}

// DepRule is the optional dependency-summary capability. When absent, the
// inserted vertex merges its inputs' summaries raised to nonlinear.
type DepRule interface {
	Dep(in []*Var) Dep
}
