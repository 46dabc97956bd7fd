// Package arith: shared error taxonomy for every facto arithmetic subsystem.
// All payload packages wrap these sentinels (fmt.Errorf("pkg: ...: %w", ErrX))
// so callers can classify failures with errors.Is regardless of which
// arithmetic raised them.

package arith

import "errors"

var (
	// ErrDomain is returned by an elementary function whose operand range
	// contains a singular point (division by zero, log/sqrt of a range
	// reaching below zero, tan through an asymptote). Detected at the point
	// of evaluation; never silently clamped.
	ErrDomain = errors.New("arith: domain violation in elementary function")

	// ErrInternal signals a violated structural or numerical invariant —
	// e.g. a computed lower bound exceeding its paired upper bound beyond
	// tolerance. Always a logic defect, never bad input.
	ErrInternal = errors.New("arith: internal consistency error")

	// ErrModelMismatch is returned when an operation mixes model-bound
	// variables created against different model environments; their
	// coefficients are not comparable.
	ErrModelMismatch = errors.New("arith: operands belong to different model environments")

	// ErrIndex is returned when a variable index exceeds the declared
	// variable count of a model environment.
	ErrIndex = errors.New("arith: variable index out of range")

	// ErrNotImplemented marks a (payload type, operation) pair with no
	// supplied implementation. Deliberately fatal at first use so that
	// missing relaxation support cannot produce a silently unsound result.
	ErrNotImplemented = errors.New("arith: operation not implemented for payload type")

	// ErrNumeric reports failure of an external numeric routine, e.g. a
	// singular or non-positive-definite matrix in a factorization.
	ErrNumeric = errors.New("arith: external numeric routine failed")

	// ErrKindMismatch is returned when a binary operation receives operands
	// of two different payload kinds.
	ErrKindMismatch = errors.New("arith: mixed payload kinds in binary operation")
)
