// Package interval provides the closed-interval payload [lo, up] for facto
// expression graphs.
//
// Every operation returns an enclosure of the exact image: for any x ∈ X and
// y ∈ Y, f(x, y) ∈ F(X, Y). This inclusion property is what the cross-type
// consistency tests of the higher layers rely on. Elementary functions whose
// operand range reaches a singular point (log, sqrt, division, tan) return an
// error wrapping arith.ErrDomain instead of clamping.
//
// Interval implements arith.Value and is the default bound type of the
// polyhedral image and the superposition-model engines.
//
// Construction:
//
//	X := interval.New(1.5, 2.5)   // panics if lo > up (programmer error)
//	P := interval.Point(2)        // degenerate [2, 2]
//
// Comparisons follow the trait contract for relaxation payloads: X.Lt(Y) is a
// strict bound comparison (X.Up < Y.Lo), not a value comparison.
package interval
