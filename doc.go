// Package facto is an in-memory toolkit for building, evaluating, and
// relaxing factorable functions — expressions assembled from elementary
// operations (+, *, exp, log, pow, ReLU, …) — for rigorous global
// optimization.
//
// 🚀 What is facto?
//
//	A pure-Go library that brings together:
//		• Expression DAGs: shared, deduplicated operation graphs (ffgraph)
//		• Payload polymorphism: one graph, many arithmetics — plain floats,
//		  intervals, McCormick relaxations, superposition models (arith)
//		• External operations: register new nonlinear primitives (norms,
//		  determinants, neural networks) without touching the engine (extop)
//		• Automatic differentiation: forward & reverse symbolic modes, with a
//		  dual-number fallback for external operations (ffgraph)
//		• Polyhedral relaxation: sound linear outer-approximations with
//		  semilinear, sandwich, and disjunctive cut generators (polrelax)
//		• Superposition models: interval (ISM) and affine (ASM) per-variable
//		  decompositions, including shadow-estimator sharpening (superpos)
//		• Neural networks: feed-forward inference and relaxation under every
//		  payload type and six relaxation strategies (ann)
//
// ✨ Why choose facto?
//
//   - Soundness first — every relaxation is a proven enclosure; missing
//     support fails loudly instead of approximating silently
//   - Extensible — new payload arithmetics and new operations plug in
//     through two small contracts, no engine changes
//   - Pure Go — dense factorizations via gonum, nothing else under the hood
//
// Everything is organized under flat subpackages:
//
//	arith/     — payload trait surface, real & dual-number payloads
//	interval/  — closed interval arithmetic
//	mccormick/ — McCormick convex/concave relaxations with subgradients
//	ffgraph/   — expression nodes, graphs, subgraphs, AD, compose, lift
//	extop/     — external operations: norms, det, D-optimality, Arrhenius
//	polrelax/  — polyhedral image, cut pools, cut generators
//	superpos/  — interval & affine superposition model engines
//	ann/       — feed-forward network evaluation & relaxation adaptor
//
// Quick ASCII example:
//
//	    X ──┐
//	        ├─ sqr ─ add ─ sqrt ──► ‖(X,Y)‖₂
//	    Y ──┘
//
//	a two-input Euclidean norm expressed as one external DAG operation.
//
// Dive into each package's doc.go for contracts, invariants, and examples.
package facto
