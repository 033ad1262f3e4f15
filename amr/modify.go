package amr

import (
	"fmt"

	"github.com/andrewfu77/omega-h/hypercube"
	"github.com/andrewfu77/omega-h/mesh"
	"github.com/andrewfu77/omega-h/utils"
)

// modifyResult holds the four renumbering maps modifyEnts produces for one
// dimension. They are the sole channel through which all tag and adjacency
// data moves onto the new mesh.
type modifyResult struct {
	prods2NewEnts    []int // production p -> new entity index
	sameEnts2OldEnts []int // surviving entity -> old index, old relative order
	sameEnts2NewEnts []int // surviving entity -> new index
	oldEnts2NewEnts  []int // old entity -> new index, -1 if removed
}

// modifyEnts builds the new mesh's dimension-prodDim entity set: surviving
// ("same") entities first, in their old relative order, then the
// productions in canonical production order. mdsAreMods selects the old
// entities this pass removes; nil removes none (the vertex dimension, where
// a modified vertex survives as its own midpoint). prods2verts carries the
// productions' connectivity in new vertex numbering (nil at the vertex
// dimension), and oldVerts2NewVerts remaps the survivors' connectivity.
func modifyEnts(m, next *mesh.Mesh, prodDim int, mdsAreMods []byte,
	prods2verts []int, prodGids []int64, prodOwns []int32,
	oldVerts2NewVerts []int) modifyResult {

	nold := m.NEnts(prodDim)
	nprods := len(prodGids)
	if mdsAreMods != nil && len(mdsAreMods) != nold {
		panic(fmt.Sprintf("amr: dimension-%d modification mask sized %d, want %d", prodDim, len(mdsAreMods), nold))
	}

	var res modifyResult
	res.oldEnts2NewEnts = make([]int, nold)
	for e := 0; e < nold; e++ {
		if mdsAreMods != nil && mdsAreMods[e] != 0 {
			res.oldEnts2NewEnts[e] = -1
			continue
		}
		res.oldEnts2NewEnts[e] = len(res.sameEnts2OldEnts)
		res.sameEnts2OldEnts = append(res.sameEnts2OldEnts, e)
	}
	nsame := len(res.sameEnts2OldEnts)
	res.sameEnts2NewEnts = make([]int, nsame)
	for i := range res.sameEnts2NewEnts {
		res.sameEnts2NewEnts[i] = i
	}
	res.prods2NewEnts = make([]int, nprods)
	for p := range res.prods2NewEnts {
		res.prods2NewEnts[p] = nsame + p
	}

	nnew := nsame + nprods
	globals := make([]int64, nnew)
	owners := make([]int32, nnew)
	oldGids := m.Globals(prodDim)
	oldOwns := m.Owners(prodDim)
	for i, e := range res.sameEnts2OldEnts {
		globals[i] = oldGids[e]
		owners[i] = oldOwns[e]
	}
	copy(globals[nsame:], prodGids)
	copy(owners[nsame:], prodOwns)

	if prodDim == 0 {
		if err := next.SetVerts(nnew, globals, owners); err != nil {
			panic(err)
		}
		return res
	}

	vpe := hypercube.VertsPerEnt(prodDim)
	if len(prods2verts) != nprods*vpe {
		panic(fmt.Sprintf("amr: dimension-%d production connectivity sized %d, want %d",
			prodDim, len(prods2verts), nprods*vpe))
	}
	conn := make([]int, nnew*vpe)
	oldConn := m.EntsToVerts(prodDim)
	utils.ParallelFor(nsame, func(i int) {
		e := res.sameEnts2OldEnts[i]
		for k := 0; k < vpe; k++ {
			nv := oldVerts2NewVerts[oldConn[e*vpe+k]]
			if nv < 0 {
				panic(fmt.Sprintf("amr: surviving dimension-%d entity %d references removed vertex", prodDim, e))
			}
			conn[i*vpe+k] = nv
		}
	})
	copy(conn[nsame*vpe:], prods2verts)
	if err := next.SetEnts(prodDim, conn, globals, owners); err != nil {
		panic(err)
	}
	return res
}
