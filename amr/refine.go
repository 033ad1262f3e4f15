package amr

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/andrewfu77/omega-h/hypercube"
	"github.com/andrewfu77/omega-h/mesh"
)

// TransferOpts overrides the declared transfer kind of tags by name before
// a refinement pass, e.g. to interpolate a caller-defined vertex field.
type TransferOpts struct {
	Kinds map[string]mesh.TransferKind
}

// Refine replaces every marked element of a hypercube-family mesh by its
// uniform split children. elemsAreMarked holds one boolean per local
// element. The pass runs the full state machine: closure marking in the
// ghosted partition state, representative ordering, then the per-dimension
// topology/modify/transfer sweep in the element-based state, and finally a
// wholesale swap of the mesh. On a precondition error the mesh is left
// untouched.
func Refine(m *mesh.Mesh, elemsAreMarked []byte, opts TransferOpts) error {
	if m.Family() != mesh.Hypercube {
		return fmt.Errorf("amr: refinement requires the hypercube family")
	}
	if len(elemsAreMarked) != m.NElems() {
		return fmt.Errorf("amr: %d element marks for %d elements", len(elemsAreMarked), m.NElems())
	}
	for name, kind := range opts.Kinds {
		for d := 0; d <= m.Dim(); d++ {
			if t, ok := m.Tag(d, name); ok {
				t.Kind = kind
			}
		}
	}

	m.SetParting(mesh.Ghosted)
	if err := MarkRefined(m, elemsAreMarked); err != nil {
		return err
	}
	st := rep2MDOrder(m)
	m.SetParting(mesh.ElemBased)
	refineElemBased(m, st)
	return nil
}

// refineElemBased runs the dimension sweep on the agreed marks and swaps in
// the finished mesh. Everything here is local: all cross-rank decisions
// were fixed by the ghosted phase.
func refineElemBased(m *mesh.Mesh, st *refineState) {
	dim := m.Dim()
	var mdsAreMods [hypercube.MaxDim + 1][]byte
	var mods2mds [hypercube.MaxDim + 1][]int
	var mds2mods [hypercube.MaxDim + 1][]int
	for d := 0; d <= dim; d++ {
		mdsAreMods[d] = refineMask(m, d)
		mods2mds[d] = CollectMarked(mdsAreMods[d])
		mds2mods[d] = InvertInjectiveMap(mods2mds[d], m.NEnts(d))
	}

	next := m.CopyMeta()
	var mods2midverts [hypercube.MaxDim + 1][]int
	var infos [hypercube.MaxDim + 1]prodInfo
	var results [hypercube.MaxDim + 1]modifyResult
	var oldVerts2NewVerts []int
	for prodDim := 0; prodDim <= dim; prodDim++ {
		info := buildProdInfo(dim, prodDim, mods2mds)
		gids := prodGlobals(m, prodDim, st, info)
		owns := prodOwners(m, info)

		var prods2verts []int
		if prodDim != 0 {
			prods2verts = refinedTopology(m, prodDim, info, mds2mods, mods2midverts, oldVerts2NewVerts)
		}
		// The vertex dimension removes nothing: a modified vertex survives
		// as its own midpoint. Higher dimensions remove their modified
		// entities; the children replace them.
		var removals []byte
		if prodDim > 0 {
			removals = mdsAreMods[prodDim]
		}
		res := modifyEnts(m, next, prodDim, removals, prods2verts, gids, owns, oldVerts2NewVerts)
		infos[prodDim] = info
		results[prodDim] = res

		if prodDim == 0 {
			oldVerts2NewVerts = res.oldEnts2NewEnts
			offset := 0
			for modDim := 1; modDim <= dim; modDim++ {
				if hypercube.SplitDegree(modDim, 0) != 1 {
					panic("amr: split table must produce exactly one midpoint per modified entity")
				}
				nmods := len(mods2mds[modDim])
				block := UnmapRange(offset, offset+nmods, res.prods2NewEnts, 1)
				mods2midverts[modDim] = block
				offset += nmods
			}
			transferLinearInterp(m, next, mods2mds, mods2midverts, res)
		}
		transferLevels(m, next, prodDim, info, res)
		transferLeaves(m, next, prodDim, res)

		log.WithFields(log.Fields{
			"dim":   prodDim,
			"same":  len(res.sameEnts2OldEnts),
			"prods": len(info.modDim),
			"nents": next.NEnts(prodDim),
		}).Debug("amr: dimension refined")
	}
	transferParents(m, next, infos, results)
	transferInherit(m, next, infos, results)
	m.ReplaceWith(next)
}
