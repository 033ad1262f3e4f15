// Package hypercube holds the static topology tables for the hypercube
// element family (vertex, edge, quadrilateral, hexahedron) and the uniform
// split pattern each member refines into.
//
// Everything here is table-driven data with bounds-checked accessors. The
// tables are shared by connectivity derivation in the mesh package and by
// child-topology generation in the amr package, so both always agree on
// canonical vertex orderings.
package hypercube

import "fmt"

// Entity dimensions.
const (
	Vert = 0
	Edge = 1
	Quad = 2
	Hex  = 3

	// MaxDim is the highest supported entity dimension.
	MaxDim = 3
)

// singularNames indexes dimension -> entity name, singular form.
var singularNames = [MaxDim + 1]string{"vert", "edge", "quad", "hex"}

// SingularName returns the singular entity name for a dimension ("vert",
// "edge", "quad", "hex").
func SingularName(dim int) string {
	checkDim(dim)
	return singularNames[dim]
}

// VertsPerEnt returns the number of vertices bounding a hypercube entity of
// the given dimension: 1, 2, 4, 8.
func VertsPerEnt(dim int) int {
	checkDim(dim)
	return 1 << uint(dim)
}

// downDegrees[entDim][bdim] is the number of boundary entities of dimension
// bdim on a hypercube entity of dimension entDim.
var downDegrees = [MaxDim + 1][MaxDim + 1]int{
	{1, 0, 0, 0},
	{2, 1, 0, 0},
	{4, 4, 1, 0},
	{8, 12, 6, 1},
}

// DownDegree returns the number of dimension-bdim entities on the boundary
// of a dimension-entDim entity (the entity counts as its own sole boundary
// entity of equal dimension).
func DownDegree(entDim, bdim int) int {
	checkDim(entDim)
	checkDim(bdim)
	if bdim > entDim {
		panic(fmt.Sprintf("hypercube: no dimension-%d boundary on a dimension-%d entity", bdim, entDim))
	}
	return downDegrees[entDim][bdim]
}

// edgeVerts[entDim] lists, for each canonical edge of the entity, the local
// vertex indices of its endpoints.
var edgeVerts = [MaxDim + 1][][2]int{
	Vert: nil,
	Edge: {{0, 1}},
	Quad: {{0, 1}, {1, 2}, {2, 3}, {3, 0}},
	Hex: {
		{0, 1}, {1, 2}, {2, 3}, {3, 0}, // bottom
		{4, 5}, {5, 6}, {6, 7}, {7, 4}, // top
		{0, 4}, {1, 5}, {2, 6}, {3, 7}, // vertical
	},
}

// quadVerts[entDim] lists, for each canonical quadrilateral face of the
// entity, the local vertex indices in cyclic order.
var quadVerts = [MaxDim + 1][][4]int{
	Vert: nil,
	Edge: nil,
	Quad: {{0, 1, 2, 3}},
	Hex: {
		{0, 1, 2, 3}, // bottom
		{4, 5, 6, 7}, // top
		{0, 1, 5, 4},
		{1, 2, 6, 5},
		{2, 3, 7, 6},
		{3, 0, 4, 7},
	},
}

// BoundaryVerts returns the local vertex indices of the which-th canonical
// boundary entity of dimension bdim on an entity of dimension entDim.
func BoundaryVerts(entDim, bdim, which int) []int {
	n := DownDegree(entDim, bdim)
	if which < 0 || which >= n {
		panic(fmt.Sprintf("hypercube: boundary %d out of range [0,%d) for dims (%d,%d)",
			which, n, entDim, bdim))
	}
	switch bdim {
	case Vert:
		return []int{which}
	case Edge:
		ev := edgeVerts[entDim][which]
		return []int{ev[0], ev[1]}
	case Quad:
		qv := quadVerts[entDim][which]
		return []int{qv[0], qv[1], qv[2], qv[3]}
	default: // bdim == entDim == Hex
		return []int{0, 1, 2, 3, 4, 5, 6, 7}
	}
}

// splitDegrees[parentDim][childDim] is the number of dimension-childDim
// entities produced when a dimension-parentDim entity is uniformly split.
// The childDim == 0 column is the single midpoint vertex.
var splitDegrees = [MaxDim + 1][MaxDim + 1]int{
	{1, 0, 0, 0},
	{1, 2, 0, 0},
	{1, 4, 4, 0},
	{1, 6, 12, 8},
}

// SplitDegree returns how many dimension-childDim entities a split
// dimension-parentDim entity produces.
func SplitDegree(parentDim, childDim int) int {
	checkDim(parentDim)
	checkDim(childDim)
	if childDim > parentDim {
		return 0
	}
	return splitDegrees[parentDim][childDim]
}

// SplitVert names one vertex of a child entity in terms of the parent's
// boundary: Dim 0 refers to parent corner Which, Dim >= 1 refers to the
// midpoint of the parent's Which-th boundary entity of that dimension, and
// Dim == parentDim (Which 0) is the parent's own midpoint.
type SplitVert struct {
	Dim   int
	Which int
}

var edgeSplitTemplates = [][]SplitVert{
	// edge -> 2 edges
	{{0, 0}, {1, 0}},
	{{1, 0}, {0, 1}},
}

var quadSplitTemplates = [MaxDim + 1][][]SplitVert{
	Edge: {
		// quad -> 4 interior edges: edge midpoint to face center
		{{1, 0}, {2, 0}},
		{{1, 1}, {2, 0}},
		{{1, 2}, {2, 0}},
		{{1, 3}, {2, 0}},
	},
	Quad: {
		// quad -> 4 quads: corner, leading edge midpoint, center, trailing
		// edge midpoint, preserving cyclic orientation
		{{0, 0}, {1, 0}, {2, 0}, {1, 3}},
		{{0, 1}, {1, 1}, {2, 0}, {1, 0}},
		{{0, 2}, {1, 2}, {2, 0}, {1, 1}},
		{{0, 3}, {1, 3}, {2, 0}, {1, 2}},
	},
}

// hexEdgeQuads[e] is the pair of hex faces incident to hex edge e, in
// ascending face order; it fixes the orientation of the interior quad that
// the split pattern threads through that edge's midpoint.
var hexEdgeQuads = [12][2]int{
	{0, 2}, {0, 3}, {0, 4}, {0, 5},
	{1, 2}, {1, 3}, {1, 4}, {1, 5},
	{2, 5}, {2, 3}, {3, 4}, {4, 5},
}

var hexSplitTemplates = [MaxDim + 1][][]SplitVert{
	Edge: {
		// hex -> 6 interior edges: face center to body center
		{{2, 0}, {3, 0}},
		{{2, 1}, {3, 0}},
		{{2, 2}, {3, 0}},
		{{2, 3}, {3, 0}},
		{{2, 4}, {3, 0}},
		{{2, 5}, {3, 0}},
	},
	Quad: buildHexQuadTemplates(),
	Hex: {
		// hex -> 8 hexes, one per corner; bottom four vertices then top four
		{{0, 0}, {1, 0}, {2, 0}, {1, 3}, {1, 8}, {2, 2}, {3, 0}, {2, 5}},
		{{0, 1}, {1, 1}, {2, 0}, {1, 0}, {1, 9}, {2, 3}, {3, 0}, {2, 2}},
		{{0, 2}, {1, 2}, {2, 0}, {1, 1}, {1, 10}, {2, 4}, {3, 0}, {2, 3}},
		{{0, 3}, {1, 3}, {2, 0}, {1, 2}, {1, 11}, {2, 5}, {3, 0}, {2, 4}},
		{{1, 8}, {2, 2}, {3, 0}, {2, 5}, {0, 4}, {1, 4}, {2, 1}, {1, 7}},
		{{1, 9}, {2, 3}, {3, 0}, {2, 2}, {0, 5}, {1, 5}, {2, 1}, {1, 4}},
		{{1, 10}, {2, 4}, {3, 0}, {2, 3}, {0, 6}, {1, 6}, {2, 1}, {1, 5}},
		{{1, 11}, {2, 5}, {3, 0}, {2, 4}, {0, 7}, {1, 7}, {2, 1}, {1, 6}},
	},
}

func buildHexQuadTemplates() [][]SplitVert {
	// hex -> 12 interior quads, one threaded through each edge midpoint:
	// edge midpoint, first incident face center, body center, second
	// incident face center.
	out := make([][]SplitVert, 12)
	for e, fq := range hexEdgeQuads {
		out[e] = []SplitVert{{1, e}, {2, fq[0]}, {3, 0}, {2, fq[1]}}
	}
	return out
}

// SplitTemplate returns, for the which-th dimension-childDim child of a
// split dimension-parentDim entity, the split-vertex references forming its
// connectivity. Child ordering is canonical and identical on every process.
func SplitTemplate(parentDim, childDim, which int) []SplitVert {
	deg := SplitDegree(parentDim, childDim)
	if which < 0 || which >= deg {
		panic(fmt.Sprintf("hypercube: child %d out of range [0,%d) for split (%d,%d)",
			which, deg, parentDim, childDim))
	}
	if childDim == Vert {
		return []SplitVert{{parentDim, 0}}
	}
	switch parentDim {
	case Edge:
		return edgeSplitTemplates[which]
	case Quad:
		return quadSplitTemplates[childDim][which]
	default:
		return hexSplitTemplates[childDim][which]
	}
}

func checkDim(dim int) {
	if dim < 0 || dim > MaxDim {
		panic(fmt.Sprintf("hypercube: dimension %d out of range [0,%d]", dim, MaxDim))
	}
}
