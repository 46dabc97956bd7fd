// Package polrelax builds polyhedral outer approximations of expression
// graphs: a growing set of auxiliary continuous and 0/1 variables plus linear
// cuts that every point of the original nonlinear feasible set satisfies.
//
// A relaxation request is a fixed state machine: Reset clears the image,
// leaves are populated one polyhedral variable per graph leaf with the
// current box as range, the forward pass evaluates the target subgraph under
// the *Var payload (each built-in vertex emits its sound linear cuts as a
// side effect; external vertices either supply a ForwardRelax rule or are
// propagated generically through the trait surface), and the reverse pass
// invokes each external operation's ReverseRelax rule to tighten the image
// against the now-known output ranges. The accumulated cut set is the result.
//
// Generic cut constructions shared by all operations:
//
//   - SandwichCuts: tangent cuts of a convex (concave) univariate, one per
//     uniformly placed point, each globally valid on the range.
//   - SecantCut: the complementary chord cut, closing the sandwich.
//   - SemilinearCuts: the piecewise-linear SOS2-style encoding from
//     breakpoints, with continuous weight variables by default and binary
//     segment indicators under WithBinaryEncoding.
//
// Every cut is valid for all points in the declared ranges; a reverse rule
// that cannot improve the forward bound may add no cuts.
package polrelax
