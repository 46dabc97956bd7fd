package ffgraph

import "errors"

var (
	// ErrMixedGraph is returned when an operation combines nodes owned by
	// different graphs.
	ErrMixedGraph = errors.New("ffgraph: operands belong to different graphs")

	// ErrDuplicateOp is returned by Register when the operation name is
	// already taken.
	ErrDuplicateOp = errors.New("ffgraph: external operation name already registered")

	// ErrUnknownOp is returned when an external operation name cannot be
	// resolved against the graph's registry.
	ErrUnknownOp = errors.New("ffgraph: external operation not registered")

	// ErrArity is returned when an external operation produces a different
	// number of results than it declared at insertion.
	ErrArity = errors.New("ffgraph: output arity mismatch")

	// ErrMissingLeaf is returned by evaluation when a leaf of the subgraph
	// has no bound payload value.
	ErrMissingLeaf = errors.New("ffgraph: leaf variable without a bound value")

	// ErrLength is returned when two parallel argument slices disagree in
	// length.
	ErrLength = errors.New("ffgraph: argument slices differ in length")

	// ErrNonDifferentiable is returned by FAD/BAD for operations without a
	// derivative rule (fabs, min, max, relu, cheb).
	ErrNonDifferentiable = errors.New("ffgraph: operation has no derivative rule")
)
