package amr

import (
	"fmt"

	"github.com/andrewfu77/omega-h/hypercube"
	"github.com/andrewfu77/omega-h/mesh"
	"github.com/andrewfu77/omega-h/utils"
)

// transferLinearInterp populates every interpolated vertex field on the new
// mesh: surviving vertices copy their old values, and each midpoint vertex
// takes the arithmetic mean of the values at its modified ancestor's corner
// vertices (the two edge endpoints for an edge midpoint, the four or eight
// corners for a face or body center, which is the same affine result).
func transferLinearInterp(m, next *mesh.Mesh,
	mods2mds, mods2midverts [hypercube.MaxDim + 1][]int, res modifyResult) {

	for _, t := range m.Tags(0) {
		if t.Kind != mesh.Interp {
			continue
		}
		old := t.Float64s()
		nc := t.NComps
		data := make([]float64, next.NEnts(0)*nc)
		utils.ParallelFor(len(res.sameEnts2OldEnts), func(i int) {
			e := res.sameEnts2OldEnts[i]
			nv := res.sameEnts2NewEnts[i]
			copy(data[nv*nc:(nv+1)*nc], old[e*nc:(e+1)*nc])
		})
		for modDim := 1; modDim <= m.Dim(); modDim++ {
			mvpe := hypercube.VertsPerEnt(modDim)
			conn := m.EntsToVerts(modDim)
			mds := mods2mds[modDim]
			mids := mods2midverts[modDim]
			utils.ParallelFor(len(mds), func(i int) {
				md := mds[i]
				nv := mids[i]
				for c := 0; c < nc; c++ {
					var sum float64
					for _, v := range conn[md*mvpe : (md+1)*mvpe] {
						sum += old[v*nc+c]
					}
					data[nv*nc+c] = sum / float64(mvpe)
				}
			})
		}
		mustAddTag(next, 0, t.Name, nc, t.Kind, data)
	}
}

// transferLevels sets the refinement level at one dimension: survivors keep
// their old level, productions get their modified ancestor's level plus one.
func transferLevels(m, next *mesh.Mesh, prodDim int, info prodInfo, res modifyResult) {
	oldLevels := int32TagOrZeros(m, prodDim, mesh.LevelTag)
	data := make([]int32, next.NEnts(prodDim))
	utils.ParallelFor(len(res.sameEnts2OldEnts), func(i int) {
		data[res.sameEnts2NewEnts[i]] = oldLevels[res.sameEnts2OldEnts[i]]
	})
	dim := m.Dim()
	ancLevels := make([][]int32, dim+1)
	for d := 1; d <= dim; d++ {
		ancLevels[d] = int32TagOrZeros(m, d, mesh.LevelTag)
	}
	utils.ParallelFor(len(info.modDim), func(p int) {
		data[res.prods2NewEnts[p]] = ancLevels[info.modDim[p]][info.modIdx[p]] + 1
	})
	mustAddTag(next, prodDim, mesh.LevelTag, 1, mesh.Inherit, data)
}

// transferLeaves sets the leaf flag at one dimension: survivors keep their
// old status, productions were not split this pass and are leaves.
func transferLeaves(m, next *mesh.Mesh, prodDim int, res modifyResult) {
	var oldLeaves []byte
	if t, ok := m.Tag(prodDim, mesh.LeafTag); ok {
		oldLeaves = t.Bytes()
	}
	data := make([]byte, next.NEnts(prodDim))
	utils.ParallelFor(len(res.sameEnts2OldEnts), func(i int) {
		if oldLeaves == nil {
			data[res.sameEnts2NewEnts[i]] = 1
		} else {
			data[res.sameEnts2NewEnts[i]] = oldLeaves[res.sameEnts2OldEnts[i]]
		}
	})
	for _, nv := range res.prods2NewEnts {
		data[nv] = 1
	}
	mustAddTag(next, prodDim, mesh.LeafTag, 1, mesh.Inherit, data)
}

// transferParents stores the parent code of every production: the modified
// ancestor's dimension and the child slot within its split pattern.
// Survivors carry the sentinel; their ancestor left the mesh with the pass
// that produced them.
func transferParents(m, next *mesh.Mesh,
	infos [hypercube.MaxDim + 1]prodInfo, results [hypercube.MaxDim + 1]modifyResult) {

	for d := 0; d <= m.Dim(); d++ {
		data := make([]byte, next.NEnts(d))
		for i := range data {
			data[i] = mesh.NoCode
		}
		info := infos[d]
		res := results[d]
		utils.ParallelFor(len(info.modDim), func(p int) {
			data[res.prods2NewEnts[p]] = MakeCode(info.slot[p], info.modDim[p])
		})
		mustAddTag(next, d, mesh.ParentCodeTag, 1, mesh.Inherit, data)
	}
}

// transferInherit carries every remaining tag onto the new mesh: survivors
// copy their values, productions take their modified ancestor's value when
// the ancestor's dimension carries an equally-shaped tag of the same name,
// and zero otherwise. Conservative and pointwise redistribution beyond this
// is the adaptation driver's concern; the tag itself is never dropped.
func transferInherit(m, next *mesh.Mesh,
	infos [hypercube.MaxDim + 1]prodInfo, results [hypercube.MaxDim + 1]modifyResult) {

	for d := 0; d <= m.Dim(); d++ {
		for _, t := range m.Tags(d) {
			if transferHandled(d, t) {
				continue
			}
			switch t.Data.(type) {
			case []float64:
				inheritTag[float64](m, next, d, t, infos[d], results[d])
			case []int64:
				inheritTag[int64](m, next, d, t, infos[d], results[d])
			case []int32:
				inheritTag[int32](m, next, d, t, infos[d], results[d])
			case []byte:
				inheritTag[byte](m, next, d, t, infos[d], results[d])
			default:
				panic(fmt.Sprintf("amr: tag %q has unsupported data type %T", t.Name, t.Data))
			}
		}
	}
}

// transferHandled reports whether a tag is produced by a dedicated transfer
// step or is pass-local working state.
func transferHandled(dim int, t *mesh.Tag) bool {
	switch t.Name {
	case RefineTag, mdOrderTag, mesh.LevelTag, mesh.LeafTag, mesh.ParentCodeTag:
		return true
	}
	if dim == 0 && t.Kind == mesh.Interp {
		return true
	}
	return false
}

func inheritTag[T float64 | int64 | int32 | byte](m, next *mesh.Mesh, dim int, t *mesh.Tag,
	info prodInfo, res modifyResult) {

	old := t.Data.([]T)
	nc := t.NComps
	data := make([]T, next.NEnts(dim)*nc)
	utils.ParallelFor(len(res.sameEnts2OldEnts), func(i int) {
		e := res.sameEnts2OldEnts[i]
		nv := res.sameEnts2NewEnts[i]
		copy(data[nv*nc:(nv+1)*nc], old[e*nc:(e+1)*nc])
	})
	dimMesh := m.Dim()
	anc := make([][]T, dimMesh+1)
	for d := 1; d <= dimMesh; d++ {
		if at, ok := m.Tag(d, t.Name); ok && at.NComps == nc {
			if av, ok := at.Data.([]T); ok {
				anc[d] = av
			}
		}
	}
	utils.ParallelFor(len(info.modDim), func(p int) {
		av := anc[info.modDim[p]]
		if av == nil {
			return // no ancestor values: productions stay zero
		}
		nv := res.prods2NewEnts[p]
		e := info.modIdx[p]
		copy(data[nv*nc:(nv+1)*nc], av[e*nc:(e+1)*nc])
	})
	mustAddTag(next, dim, t.Name, nc, t.Kind, data)
}

func int32TagOrZeros(m *mesh.Mesh, dim int, name string) []int32 {
	if t, ok := m.Tag(dim, name); ok {
		return t.Int32s()
	}
	return make([]int32, m.NEnts(dim))
}

func mustAddTag(next *mesh.Mesh, dim int, name string, ncomps int, kind mesh.TransferKind, data any) {
	if err := next.AddTag(dim, name, ncomps, kind, data); err != nil {
		panic(err)
	}
}
