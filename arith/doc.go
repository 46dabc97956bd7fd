// Package arith defines the payload trait surface of facto: the fixed set of
// primitives every numeric type must supply in order to flow through an
// expression graph.
//
// A payload ("arithmetic") is any type implementing Value: plain floats
// (Real), dual numbers (Dual), intervals, McCormick relaxations, polyhedral
// variables, superposition-model variables, or graph expressions themselves.
// Higher layers — graph evaluation, automatic differentiation, relaxation —
// are written once against Value and never assume a concrete representation.
//
// Dispatch model:
//
//	Go has no generic methods, so the trait is a single dynamic interface with
//	one implementation per payload type (the tagged-dispatch fallback of a
//	template-free language). The extra indirection per vertex evaluation is the
//	accepted cost.
//
// Contract highlights:
//
//   - A primitive a payload cannot support must return an error wrapping
//     ErrNotImplemented — never a silent approximation. Incompatible
//     (payload, operation) pairs are therefore caught at first use.
//   - Comparisons on relaxation payloads are bound comparisons (Lo/Up), not
//     value comparisons.
//   - Binary operations require both operands to be the same payload kind;
//     mixing kinds yields ErrKindMismatch. Scalar constants enter through
//     AddConst/ScaleConst/Lift instead.
//
// New payload types are added purely by providing a new Value implementation;
// no existing code changes.
package arith
