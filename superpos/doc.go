// Package superpos implements superposition bounding models: a quantity over
// an n-variable box is carried as a sum of per-variable pieces, so model size
// grows as variables×partitions instead of partitions^variables.
//
// ISModel is the interval flavor. Each attached variable's domain is split
// into a fixed number of equal-width cells and a value is a constant interval
// plus one interval coefficient per (variable, cell). The enclosure of the
// value is the constant plus the sum over variables of the row hulls, and the
// enclosure at a point picks the one cell per variable the point falls into.
// Composition through a univariate keeps the fixed partition: each cell is
// mapped through the function against the enclosure of the remaining rows and
// the result is split evenly across the participating variables.
//
// ASModel is the piecewise-linear flavor. Each row is a pair of
// piecewise-linear under/over estimators on the same uniform breakpoints,
// which tightens the enclosure at the cost of more bookkeeping. An ASVar may
// additionally carry a shadow decomposition, a second admissible estimator
// set kept alongside the primary whenever rectification makes the tightest
// choice ambiguous; addition then scores the candidate pairings and keeps the
// tightest as primary and the runner-up as shadow.
//
// Both engines enforce one numeric invariant: a computed lower bound may
// exceed its paired upper bound only by round-off, which is repaired by
// swapping; anything beyond the fixed tolerance is an internal error.
//
// Variables of different model instances never mix. Models are not safe for
// concurrent mutation; a fully attached model may back concurrent reads.
package superpos
