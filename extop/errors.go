package extop

import "errors"

var (
	// ErrShape is returned when an input list cannot form the operation's
	// expected shape (a non-square determinant input, a weight count that
	// differs from the atom count).
	ErrShape = errors.New("extop: input list has wrong shape")

	// ErrAtomFormat is returned for malformed atom-store input: wrong column
	// count, unterminated block, or non-numeric fields.
	ErrAtomFormat = errors.New("extop: malformed atom matrix input")

	// ErrEmptyStore is returned when a D-optimality operation is constructed
	// against a store with no atoms.
	ErrEmptyStore = errors.New("extop: atom store is empty")
)
