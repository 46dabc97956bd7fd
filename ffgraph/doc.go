// Package ffgraph implements the shared expression DAG at the heart of
// facto: leaf variables and operation vertices with structural deduplication,
// an open registry of external operations, topological subgraph extraction,
// and generic evaluation of a subgraph under any arith.Value payload.
//
// The same machinery serves several roles:
//
//   - Evaluation: Subgraph.Eval binds payload values to leaves and dispatches
//     vertex by vertex through the trait surface, so one expression runs under
//     plain numbers, intervals, McCormick relaxations, superposition models,
//     or polyhedral variables without per-type code.
//   - Differentiation: FAD and BAD build Jacobian entries as new graph nodes,
//     using each external operation's analytic rule when supplied and the
//     dual-number fallback otherwise.
//   - Composition: Compose substitutes replacement expressions for inner
//     variables, producing G∘F structurally.
//   - Lifting: Lift flattens a subgraph into auxiliary variables and defining
//     equalities with at most one nonlinear term each.
//
// *Var itself implements arith.Value, which is what makes the last three
// roles fall out of the first: evaluating a subgraph "under the expression
// payload" rebuilds it, and evaluating under Dual-over-expressions
// differentiates it symbolically.
//
// External operations implement ExternOp plus any of the optional capability
// interfaces (DerivRule, DepRule, and the relaxation interfaces declared by
// the polyhedral layer). Registration is by stable operation name.
package ffgraph
