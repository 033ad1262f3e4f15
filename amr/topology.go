package amr

import (
	"fmt"
	"sort"

	"github.com/andrewfu77/omega-h/hypercube"
	"github.com/andrewfu77/omega-h/mesh"
	"github.com/andrewfu77/omega-h/utils"
)

// refineState carries the rank-consistent ordering facts computed while the
// mesh is ghosted; the element-based phase derives all new global IDs from
// them with no further communication.
type refineState struct {
	// mdOrder[d][e] is entity e's ordinal among all modified entities of
	// dimension d across all ranks, ordered by global ID; -1 if unmodified.
	mdOrder [hypercube.MaxDim + 1][]int64
	// nGlobalMods[d] is the total modified count of dimension d over all ranks.
	nGlobalMods [hypercube.MaxDim + 1]int64
	// gidBase[d] is the first unused global ID of dimension d.
	gidBase [hypercube.MaxDim + 1]int64
}

// rep2MDOrder resolves the representative order of every modified entity:
// its rank in the ascending global-ID ordering of all modified entities of
// its dimension, identical on every rank holding a copy. The ordinals are
// stored as the pass-local "md_order" tag and returned with the global
// counts and fresh-ID bases needed later.
//
// This is the deterministic tie-break that makes shared productions agree
// across ranks: canonical numbering follows the modified ancestor's global
// ID, never communication timing or local iteration order.
func rep2MDOrder(m *mesh.Mesh) *refineState {
	if m.Parting() != mesh.Ghosted {
		panic("amr: representative ordering requires the ghosted partition state")
	}
	st := &refineState{}
	dim := m.Dim()
	for d := 0; d <= dim; d++ {
		var localMax int64 = -1
		for _, gid := range m.Globals(d) {
			if gid > localMax {
				localMax = gid
			}
		}
		st.gidBase[d] = m.Comm().AllReduceMax(localMax) + 1
	}
	for d := 1; d <= dim; d++ {
		mask := refineMask(m, d)
		gids := m.Globals(d)
		var ownedMods []int64
		for e, marked := range mask {
			if marked != 0 && m.Owned(d, e) {
				ownedMods = append(ownedMods, gids[e])
			}
		}
		all := m.Comm().AllGatherSorted(ownedMods)
		st.nGlobalMods[d] = int64(len(all))
		order := make([]int64, m.NEnts(d))
		for e := range order {
			order[e] = -1
			if mask[e] == 0 {
				continue
			}
			gid := gids[e]
			i := sort.Search(len(all), func(j int) bool { return all[j] >= gid })
			if i == len(all) || all[i] != gid {
				// The OR-reduction guarantees the owner marked this copy.
				panic(fmt.Sprintf("amr: dimension-%d entity with global ID %d marked locally but absent from the owner's marks", d, gid))
			}
			order[e] = int64(i)
		}
		st.mdOrder[d] = order
		m.RemoveTag(d, mdOrderTag)
		if err := m.AddTag(d, mdOrderTag, 1, mesh.Inherit, order); err != nil {
			panic(err)
		}
	}
	return st
}

// prodInfo records, for each production of one target dimension in
// canonical order, the dimension, old local index and child slot of the
// modified ancestor that produced it. Canonical order is: ancestor
// dimension ascending, then ancestor position in the compacted modified
// list, then child slot.
type prodInfo struct {
	modDim []int
	modIdx []int
	slot   []int
}

func buildProdInfo(dim, prodDim int, mods2mds [hypercube.MaxDim + 1][]int) prodInfo {
	var info prodInfo
	for modDim := 1; modDim <= dim; modDim++ {
		deg := hypercube.SplitDegree(modDim, prodDim)
		if deg == 0 {
			continue
		}
		for _, md := range mods2mds[modDim] {
			for s := 0; s < deg; s++ {
				info.modDim = append(info.modDim, modDim)
				info.modIdx = append(info.modIdx, md)
				info.slot = append(info.slot, s)
			}
		}
	}
	return info
}

// prodGlobals derives the new global ID of every production from the
// ghosted-phase representative order: dimension blocks first, then the
// ancestor's ordinal times its split degree, then the child slot. Every
// rank holding a copy of the ancestor computes the same ID.
func prodGlobals(m *mesh.Mesh, prodDim int, st *refineState, info prodInfo) []int64 {
	dim := m.Dim()
	var blockStart [hypercube.MaxDim + 1]int64
	offset := st.gidBase[prodDim]
	for modDim := 1; modDim <= dim; modDim++ {
		deg := hypercube.SplitDegree(modDim, prodDim)
		if deg == 0 {
			continue
		}
		blockStart[modDim] = offset
		offset += int64(deg) * st.nGlobalMods[modDim]
	}
	out := make([]int64, len(info.modDim))
	for p := range out {
		md := info.modDim[p]
		ord := st.mdOrder[md][info.modIdx[p]]
		if ord < 0 {
			panic(fmt.Sprintf("amr: production ancestor (dim %d, entity %d) has no representative order", md, info.modIdx[p]))
		}
		deg := int64(hypercube.SplitDegree(md, prodDim))
		out[p] = blockStart[md] + ord*deg + int64(info.slot[p])
	}
	return out
}

func prodOwners(m *mesh.Mesh, info prodInfo) []int32 {
	out := make([]int32, len(info.modDim))
	for p := range out {
		out[p] = m.Owners(info.modDim[p])[info.modIdx[p]]
	}
	return out
}

// refinedTopology computes the vertex connectivity, in new-mesh vertex
// numbering, of every dimension-prodDim child produced by the modified
// entities, following the canonical production order of info. Split
// templates reference parent corners (mapped through oldVerts2NewVerts) and
// boundary midpoints (mapped through mods2midverts); the closure invariant
// guarantees every referenced boundary entity is itself modified.
func refinedTopology(m *mesh.Mesh, prodDim int, info prodInfo,
	mds2mods [hypercube.MaxDim + 1][]int,
	mods2midverts [hypercube.MaxDim + 1][]int,
	oldVerts2NewVerts []int) []int {

	if prodDim < 1 {
		panic("amr: no topology to generate at the vertex dimension")
	}
	// Force the lazy down-adjacency caches before fanning out.
	for modDim := 2; modDim <= m.Dim(); modDim++ {
		for bdim := 1; bdim < modDim; bdim++ {
			m.Down(modDim, bdim)
		}
	}
	vpe := hypercube.VertsPerEnt(prodDim)
	out := make([]int, len(info.modDim)*vpe)
	utils.ParallelFor(len(info.modDim), func(p int) {
		modDim := info.modDim[p]
		md := info.modIdx[p]
		mvpe := hypercube.VertsPerEnt(modDim)
		conn := m.EntsToVerts(modDim)[md*mvpe : (md+1)*mvpe]
		tmpl := hypercube.SplitTemplate(modDim, prodDim, info.slot[p])
		for i, sv := range tmpl {
			var nv int
			switch {
			case sv.Dim == 0:
				nv = oldVerts2NewVerts[conn[sv.Which]]
			case sv.Dim == modDim:
				nv = mods2midverts[modDim][mustMod(mds2mods, modDim, md)]
			default:
				deg := hypercube.DownDegree(modDim, sv.Dim)
				b := m.Down(modDim, sv.Dim)[md*deg+sv.Which]
				nv = mods2midverts[sv.Dim][mustMod(mds2mods, sv.Dim, b)]
			}
			out[p*vpe+i] = nv
		}
	})
	return out
}

func mustMod(mds2mods [hypercube.MaxDim + 1][]int, dim, ent int) int {
	mod := mds2mods[dim][ent]
	if mod < 0 {
		panic(fmt.Sprintf("amr: closure violated: dimension-%d entity %d bounds a modified entity but is not modified", dim, ent))
	}
	return mod
}
