package superpos

import (
	"sort"

	"github.com/factolab/facto/interval"
)

// Deps reports the participating variable indices in ascending order.
func (v *ISVar) Deps() []int {
	ids := make([]int, 0, len(v.rows))
	for i := range v.rows {
		ids = append(ids, i)
	}
	sort.Ints(ids)
	return ids
}

// Row reports variable i's cell coefficients, or false if i does not
// participate. The slice is shared; callers must not modify it.
func (v *ISVar) Row(i int) ([]interval.Interval, bool) {
	row, ok := v.rows[i]
	return row, ok
}

// Cst reports the constant part of the decomposition.
func (v *ISVar) Cst() interval.Interval { return v.cst }

// Deps reports the participating variable indices of the primary
// decomposition in ascending order.
func (v *ASVar) Deps() []int {
	ids := make([]int, 0, len(v.prim.rows))
	for i := range v.prim.rows {
		ids = append(ids, i)
	}
	sort.Ints(ids)
	return ids
}

// Row reports variable i's primary estimator breakpoint values, or false if
// i does not participate. The slices are shared; callers must not modify
// them.
func (v *ASVar) Row(i int) (under, over []float64, ok bool) {
	p, ok := v.prim.rows[i]
	if !ok {
		return nil, nil, false
	}
	return p.under, p.over, true
}

// Csts reports the constant bound pair of the primary decomposition.
func (v *ASVar) Csts() (lo, up float64) { return v.prim.lcst, v.prim.ucst }

// ShadowRow is Row against the shadow decomposition.
func (v *ASVar) ShadowRow(i int) (under, over []float64, ok bool) {
	if v.shad == nil {
		return nil, nil, false
	}
	p, ok := v.shad.rows[i]
	if !ok {
		return nil, nil, false
	}
	return p.under, p.over, true
}

// ShadowCsts reports the constant bound pair of the shadow decomposition.
func (v *ASVar) ShadowCsts() (lo, up float64, ok bool) {
	if v.shad == nil {
		return 0, 0, false
	}
	return v.shad.lcst, v.shad.ucst, true
}
