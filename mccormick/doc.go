// Package mccormick provides the McCormick relaxation payload: for each
// quantity it tracks an interval bound together with a convex underestimate
// and a concave overestimate evaluated at one reference point, plus one
// subgradient of each estimator per declared direction.
//
// Propagation follows the McCormick composition rules: affine operations act
// on both estimators directly; products use the bilinear envelope; univariate
// compositions use the convex/concave envelope of the outer function
// evaluated at the mid-selected inner relaxation. S-shaped univariates (tanh)
// locate their tangency points with a bisection root search.
//
// The subgradients are what the polyhedral layer turns into linear cuts: a
// convex underestimate cv with subgradient g at reference x̂ yields the valid
// inequality z ≥ cv + gᵀ(x − x̂) over the whole box.
//
// Var implements arith.Value. Bound queries (Lo, Up) report the interval
// part, matching the trait contract for relaxation payloads.
package mccormick
