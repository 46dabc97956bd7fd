// Package extop provides the concrete external operations shipped with
// facto: variadic norms, x·log x, the matrix determinant, the D-optimal
// design objective and its gradient, and the Arrhenius term.
//
// Each operation enters the graph through a functor-style constructor
// (Norm2, Norm12, XLog, Det, DOpt, Arrh) that handles the degenerate arities
// explicitly and inserts a vertex for the rest. The vertex definitions
// implement ffgraph.ExternOp and, where an analytic rule exists, the
// DerivRule and DepRule capabilities.
//
// Dense factorizations sit behind gonum: the determinant's numeric fast path
// uses an LU decomposition, the D-optimality objective a Cholesky
// factorization of the weighted atom sum. A factorization failure surfaces as
// an error wrapping arith.ErrNumeric.
//
// The D-optimal operations read their atom matrices from an explicit
// AtomStore parsed off an io.Reader; the store is plain data handed to the
// constructor, never process-global state.
package extop
