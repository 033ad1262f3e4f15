package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/andrewfu77/omega-h/hypercube"
)

// ElementCentroids returns the centroid of every element, Dim() components
// per element, computed from the coordinates tag.
func ElementCentroids(m *Mesh) []float64 {
	dim := m.Dim()
	coords := mustCoords(m)
	vpe := hypercube.VertsPerEnt(dim)
	conn := m.EntsToVerts(dim)
	out := make([]float64, m.NElems()*dim)
	acc := make([]float64, dim)
	for e := 0; e < m.NElems(); e++ {
		for i := range acc {
			acc[i] = 0
		}
		for _, v := range conn[e*vpe : (e+1)*vpe] {
			floats.Add(acc, coords[v*dim:(v+1)*dim])
		}
		floats.Scale(1/float64(vpe), acc)
		copy(out[e*dim:(e+1)*dim], acc)
	}
	return out
}

// ElementMeasures returns the area (2D) or volume (3D) of every element,
// computed from the edge vectors at corner 0. Exact for the axis-aligned
// parallelotopes that box meshes and their uniform refinements consist of.
func ElementMeasures(m *Mesh) []float64 {
	dim := m.Dim()
	coords := mustCoords(m)
	vpe := hypercube.VertsPerEnt(dim)
	conn := m.EntsToVerts(dim)
	out := make([]float64, m.NElems())
	jac := mat.NewDense(dim, dim, nil)
	// Local vertex at the far end of each edge leaving corner 0.
	var ends []int
	if dim == 2 {
		ends = []int{1, 3}
	} else {
		ends = []int{1, 3, 4}
	}
	for e := 0; e < m.NElems(); e++ {
		ev := conn[e*vpe : (e+1)*vpe]
		v0 := coords[ev[0]*dim : (ev[0]+1)*dim]
		for col, end := range ends {
			vk := coords[ev[end]*dim : (ev[end]+1)*dim]
			for row := 0; row < dim; row++ {
				jac.Set(row, col, vk[row]-v0[row])
			}
		}
		out[e] = math.Abs(mat.Det(jac))
	}
	return out
}

func mustCoords(m *Mesh) []float64 {
	t, ok := m.Tag(0, CoordsTag)
	if !ok {
		panic(fmt.Sprintf("mesh: no %q tag on vertices", CoordsTag))
	}
	if t.NComps != m.Dim() {
		panic(fmt.Sprintf("mesh: %q tag has %d components, want %d", CoordsTag, t.NComps, m.Dim()))
	}
	return t.Float64s()
}
