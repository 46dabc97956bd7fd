package extop

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/factolab/facto/arith"
	"github.com/factolab/facto/ffgraph"
)

// AtomStore holds the symmetric atom matrices of a D-optimal design problem.
// It is plain data: parse it once with ReadAtoms and hand it to DOpt; nothing
// here is shared process state.
type AtomStore struct {
	Dim   int
	Atoms []*mat.SymDense
}

// ReadAtoms parses stacked symmetric matrices from whitespace-separated text:
// each block is dim lines of dim numbers, blocks separated by blank lines.
func ReadAtoms(r io.Reader, dim int) (*AtomStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrShape, dim)
	}
	store := &AtomStore{Dim: dim}
	var block []float64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != dim {
			return nil, fmt.Errorf("%w: line %d has %d columns, want %d", ErrAtomFormat, line, len(fields), dim)
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrAtomFormat, line, err)
			}
			block = append(block, v)
		}
		if len(block) == dim*dim {
			store.Atoms = append(store.Atoms, mat.NewSymDense(dim, block))
			block = nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(block) != 0 {
		return nil, fmt.Errorf("%w: unterminated block of %d values", ErrAtomFormat, len(block))
	}
	return store, nil
}

// DOpt inserts the D-optimality objective log det(Σ xᵢ·Aᵢ) over the store's
// atoms, one weight input per atom.
func DOpt(g *ffgraph.Graph, store *AtomStore, xs ...*ffgraph.Var) (*ffgraph.Var, error) {
	if len(store.Atoms) == 0 {
		return nil, ErrEmptyStore
	}
	if len(xs) != len(store.Atoms) {
		return nil, fmt.Errorf("%w: %d weights for %d atoms", ErrShape, len(xs), len(store.Atoms))
	}
	out, err := g.Insert(&doptOp{store: store}, xs...)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// DOptGrad inserts the objective's gradient: one output per weight,
// ∂/∂xᵢ log det M = tr(M⁻¹Aᵢ).
func DOptGrad(g *ffgraph.Graph, store *AtomStore, xs ...*ffgraph.Var) ([]*ffgraph.Var, error) {
	if len(store.Atoms) == 0 {
		return nil, ErrEmptyStore
	}
	if len(xs) != len(store.Atoms) {
		return nil, fmt.Errorf("%w: %d weights for %d atoms", ErrShape, len(xs), len(store.Atoms))
	}
	return g.Insert(&doptGradOp{store: store}, xs...)
}

type doptOp struct {
	store *AtomStore
}

func (*doptOp) Name() string      { return "dopt" }
func (*doptOp) NOut(int) int      { return 1 }
func (*doptOp) Commutative() bool { return false }

func (o *doptOp) Eval(in []arith.Value) ([]arith.Value, error) {
	w, ok := floats(in)
	if !ok {
		return nil, arith.NotImplemented("extop", "dopt over non-numeric payload")
	}
	ch, err := o.store.factorize(w)
	if err != nil {
		return nil, err
	}
	return []arith.Value{arith.Real(ch.LogDet())}, nil
}

// Deriv delegates to the gradient operation, so graph-level differentiation
// of the objective reuses the factorization-based rule.
func (o *doptOp) Deriv(in []*ffgraph.Var) ([][]*ffgraph.Var, error) {
	row, err := DOptGrad(in[0].Graph(), o.store, in...)
	if err != nil {
		return nil, err
	}
	return [][]*ffgraph.Var{row}, nil
}

type doptGradOp struct {
	store *AtomStore
}

func (*doptGradOp) Name() string       { return "doptgrad" }
func (o *doptGradOp) NOut(nin int) int { return nin }
func (*doptGradOp) Commutative() bool  { return false }

func (o *doptGradOp) Eval(in []arith.Value) ([]arith.Value, error) {
	w, ok := floats(in)
	if !ok {
		return nil, arith.NotImplemented("extop", "doptgrad over non-numeric payload")
	}
	ch, err := o.store.factorize(w)
	if err != nil {
		return nil, err
	}
	out := make([]arith.Value, len(o.store.Atoms))
	var solved mat.Dense
	for k, atom := range o.store.Atoms {
		if err := ch.SolveTo(&solved, atom); err != nil {
			return nil, fmt.Errorf("extop: doptgrad solve: %w", arith.ErrNumeric)
		}
		tr := 0.0
		for i := 0; i < o.store.Dim; i++ {
			tr += solved.At(i, i)
		}
		out[k] = arith.Real(tr)
	}
	return out, nil
}

// factorize builds Σ wᵢ·Aᵢ and returns its Cholesky factorization. A
// non-positive-definite sum is the singular/ill-conditioned failure kind.
func (s *AtomStore) factorize(w []float64) (*mat.Cholesky, error) {
	sum := mat.NewSymDense(s.Dim, nil)
	for k, atom := range s.Atoms {
		for i := 0; i < s.Dim; i++ {
			for j := i; j < s.Dim; j++ {
				sum.SetSym(i, j, sum.At(i, j)+w[k]*atom.At(i, j))
			}
		}
	}
	var ch mat.Cholesky
	if !ch.Factorize(sum) {
		return nil, fmt.Errorf("extop: weighted atom sum is not positive definite: %w", arith.ErrNumeric)
	}
	return &ch, nil
}
