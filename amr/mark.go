package amr

import (
	"fmt"

	"github.com/andrewfu77/omega-h/hypercube"
	"github.com/andrewfu77/omega-h/mesh"
)

// RefineTag is the per-dimension boolean tag derived by MarkRefined from
// the caller's element marks. It is working state of one refinement pass
// and never survives onto the refined mesh.
const RefineTag = "refine"

// mdOrderTag holds, per modified entity, its ordinal among all modified
// entities of its dimension ordered by ascending global ID across ranks.
// -1 on unmodified entities. Pass-local, like RefineTag.
const mdOrderTag = "md_order"

// MarkRefined derives, for every dimension, the "refine" modification tag
// from the caller's per-element marks: each marked element's full downward
// closure is marked, and shared entities are synchronized across ranks by a
// logical-OR reduction so every copy agrees. The mesh must be in the ghosted
// partition state.
func MarkRefined(m *mesh.Mesh, elemsAreMarked []byte) error {
	if m.Parting() != mesh.Ghosted {
		return fmt.Errorf("amr: marking requires the ghosted partition state, mesh is %s", m.Parting())
	}
	if len(elemsAreMarked) != m.NElems() {
		return fmt.Errorf("amr: %d element marks for %d elements", len(elemsAreMarked), m.NElems())
	}
	dim := m.Dim()
	masks := make([][]byte, dim+1)

	// The caller's request is copied, never aliased: derived closure marks
	// accumulate only in the working masks.
	masks[dim] = append([]byte(nil), elemsAreMarked...)
	masks[dim] = m.Comm().SyncOr(m.Globals(dim), masks[dim])

	// Closure propagates one dimension at a time; immediate boundaries of
	// marked d+1 entities cover the full downward closure transitively.
	for d := dim - 1; d >= 0; d-- {
		masks[d] = make([]byte, m.NEnts(d))
		deg := hypercube.DownDegree(d+1, d)
		adj := m.Down(d+1, d)
		for e, marked := range masks[d+1] {
			if marked == 0 {
				continue
			}
			for w := 0; w < deg; w++ {
				masks[d][adj[e*deg+w]] = 1
			}
		}
		masks[d] = m.Comm().SyncOr(m.Globals(d), masks[d])
	}

	for d := 0; d <= dim; d++ {
		m.RemoveTag(d, RefineTag)
		if err := m.AddTag(d, RefineTag, 1, mesh.Inherit, masks[d]); err != nil {
			return err
		}
	}
	return nil
}

// CountRefined returns, per dimension, how many new entities this pass will
// produce locally, summing the split degrees of all modified entities.
func CountRefined(m *mesh.Mesh) [hypercube.MaxDim + 1]int {
	var counts [hypercube.MaxDim + 1]int
	dim := m.Dim()
	for prodDim := 0; prodDim <= dim; prodDim++ {
		for modDim := 1; modDim <= dim; modDim++ {
			deg := hypercube.SplitDegree(modDim, prodDim)
			if deg == 0 {
				continue
			}
			counts[prodDim] += deg * len(CollectMarked(refineMask(m, modDim)))
		}
	}
	return counts
}

// refineMask fetches the modification mask derived by MarkRefined. A
// missing mask means the marking step was skipped, a programming error.
func refineMask(m *mesh.Mesh, dim int) []byte {
	t, ok := m.Tag(dim, RefineTag)
	if !ok {
		panic(fmt.Sprintf("amr: no %q tag at dimension %d: marking has not run", RefineTag, dim))
	}
	return t.Bytes()
}
