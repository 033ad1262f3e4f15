package mesh

import (
	"fmt"

	"github.com/andrewfu77/omega-h/hypercube"
)

// sigKey is a canonical (sorted, padded) vertex signature identifying an
// entity regardless of orientation.
type sigKey [8]int

func signature(verts []int) sigKey {
	var key sigKey
	for i := range key {
		key[i] = -1
	}
	copy(key[:], verts)
	// insertion sort; signatures have at most 8 entries
	n := len(verts)
	for i := 1; i < n; i++ {
		for j := i; j > 0 && key[j] < key[j-1]; j-- {
			key[j], key[j-1] = key[j-1], key[j]
		}
	}
	return key
}

// Down returns the flat down-adjacency from dimension entDim to dimension
// bdim: for each entity, the local indices of its canonical boundary
// entities, DownDegree(entDim, bdim) per entity. The result is derived once
// by matching vertex signatures and cached.
//
// The mesh must be closed: every canonical boundary of every entity must
// exist as an entity of the lower dimension. A missing boundary is an
// invariant violation and panics.
func (m *Mesh) Down(entDim, bdim int) []int {
	m.checkDim(entDim)
	m.checkDim(bdim)
	if bdim > entDim {
		panic(fmt.Sprintf("mesh: down-adjacency (%d,%d) inverted", entDim, bdim))
	}
	if bdim == entDim {
		panic(fmt.Sprintf("mesh: down-adjacency (%d,%d) is the identity", entDim, bdim))
	}
	if bdim == 0 {
		if entDim == 0 {
			panic("mesh: down-adjacency (0,0) is the identity")
		}
		return m.entsToVerts[entDim]
	}
	if cached := m.down[entDim][bdim]; cached != nil {
		return cached
	}

	// Index the lower dimension by vertex signature.
	bvpe := hypercube.VertsPerEnt(bdim)
	index := make(map[sigKey]int, m.nents[bdim])
	bconn := m.entsToVerts[bdim]
	for b := 0; b < m.nents[bdim]; b++ {
		index[signature(bconn[b*bvpe:(b+1)*bvpe])] = b
	}

	deg := hypercube.DownDegree(entDim, bdim)
	vpe := hypercube.VertsPerEnt(entDim)
	conn := m.entsToVerts[entDim]
	adj := make([]int, m.nents[entDim]*deg)
	verts := make([]int, bvpe)
	for e := 0; e < m.nents[entDim]; e++ {
		ev := conn[e*vpe : (e+1)*vpe]
		for w := 0; w < deg; w++ {
			for i, lv := range hypercube.BoundaryVerts(entDim, bdim, w) {
				verts[i] = ev[lv]
			}
			b, ok := index[signature(verts)]
			if !ok {
				panic(fmt.Sprintf("mesh: dimension-%d entity %d has no dimension-%d entity for boundary %d (verts %v)",
					entDim, e, bdim, w, verts))
			}
			adj[e*deg+w] = b
		}
	}
	m.down[entDim][bdim] = adj
	return adj
}

// deriveEnts builds the dimension-bdim entity set bounding the given
// elements by deduplicating canonical boundaries in traversal order. The
// returned connectivity lists each distinct boundary entity once, numbered
// in order of first appearance, so the numbering is deterministic.
func deriveEnts(elemConn []int, elemDim, bdim int) []int {
	vpe := hypercube.VertsPerEnt(elemDim)
	bvpe := hypercube.VertsPerEnt(bdim)
	deg := hypercube.DownDegree(elemDim, bdim)
	nelems := len(elemConn) / vpe

	seen := make(map[sigKey]bool)
	var conn []int
	verts := make([]int, bvpe)
	for e := 0; e < nelems; e++ {
		ev := elemConn[e*vpe : (e+1)*vpe]
		for w := 0; w < deg; w++ {
			for i, lv := range hypercube.BoundaryVerts(elemDim, bdim, w) {
				verts[i] = ev[lv]
			}
			key := signature(verts)
			if seen[key] {
				continue
			}
			seen[key] = true
			conn = append(conn, verts...)
		}
	}
	return conn
}
