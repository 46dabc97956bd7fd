// Package ann evaluates fixed feed-forward neural networks under any payload
// of the operation trait surface, and exposes a network as one external
// graph operation.
//
// A Network is a stack of dense layers with one global activation choice.
// Each neuron row is laid out bias-first, [b, w1 .. wn]; coefficients whose
// magnitude is at or below the zero tolerance are skipped during inference.
// Infer runs the same per-layer loop for every payload: the affine
// combination goes through Lift/ScaleConst/Add and the activation through
// the payload's own overload, so a rectification of an ASM value invokes the
// ASM composition rather than a generic maximum. Hidden-layer scratch is
// pooled, and a Network is safe for concurrent Infer calls.
//
// NetOp wraps a network as an external operation with a per-instance
// relaxation strategy: direct polyhedral propagation of the network's own
// layers, plain interval bounding, McCormick bounds with subgradient cuts at
// the box midpoint, interval or piecewise-linear superposition bounding with
// auxiliary weight-variable cuts, and the shadow-augmented variant of the
// latter.
package ann
