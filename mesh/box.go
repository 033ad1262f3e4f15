package mesh

import (
	"fmt"

	"github.com/andrewfu77/omega-h/comm"
	"github.com/andrewfu77/omega-h/hypercube"
)

// Names of the tags every box mesh carries.
const (
	CoordsTag     = "coordinates"
	LevelTag      = "level"
	LeafTag       = "leaf"
	ParentCodeTag = "parent_code"
)

// NoCode is the parent-code sentinel carried by entities that were not
// produced by a refinement pass.
const NoCode byte = 0xFF

// FromElems builds a closed hypercube mesh on one rank from vertex
// coordinates and element-to-vertex connectivity: intermediate dimensions
// are derived by boundary deduplication, global IDs are dense per dimension,
// and the standard bookkeeping tags (coordinates, level, leaf, parent code)
// are attached.
func FromElems(c *comm.Comm, dim int, coords []float64, elemConn []int) (*Mesh, error) {
	m, err := New(c, Hypercube, dim)
	if err != nil {
		return nil, err
	}
	if len(coords)%dim != 0 {
		return nil, fmt.Errorf("mesh: coordinate array length %d not divisible by %d", len(coords), dim)
	}
	nverts := len(coords) / dim
	if err := m.SetVerts(nverts, denseGlobals(nverts), uniformOwners(nverts, c.Rank())); err != nil {
		return nil, err
	}
	for d := 1; d <= dim; d++ {
		conn := elemConn
		if d < dim {
			conn = deriveEnts(elemConn, dim, d)
		}
		n := len(conn) / hypercube.VertsPerEnt(d)
		if err := m.SetEnts(d, conn, denseGlobals(n), uniformOwners(n, c.Rank())); err != nil {
			return nil, err
		}
	}
	if err := m.AddTag(0, CoordsTag, dim, Interp, coords); err != nil {
		return nil, err
	}
	for d := 0; d <= dim; d++ {
		n := m.NEnts(d)
		levels := make([]int32, n)
		leaves := make([]byte, n)
		codes := make([]byte, n)
		for i := range leaves {
			leaves[i] = 1
			codes[i] = NoCode
		}
		if err := m.AddTag(d, LevelTag, 1, Inherit, levels); err != nil {
			return nil, err
		}
		if err := m.AddTag(d, LeafTag, 1, Inherit, leaves); err != nil {
			return nil, err
		}
		if err := m.AddTag(d, ParentCodeTag, 1, Inherit, codes); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewBox2D builds an nx-by-ny quadrilateral mesh covering [0,lx] x [0,ly]
// on a single rank.
func NewBox2D(c *comm.Comm, nx, ny int, lx, ly float64) (*Mesh, error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("mesh: box divisions %dx%d invalid", nx, ny)
	}
	vid := func(i, j int) int { return j*(nx+1) + i }
	coords := make([]float64, 0, 2*(nx+1)*(ny+1))
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			coords = append(coords, lx*float64(i)/float64(nx), ly*float64(j)/float64(ny))
		}
	}
	conn := make([]int, 0, 4*nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			conn = append(conn, vid(i, j), vid(i+1, j), vid(i+1, j+1), vid(i, j+1))
		}
	}
	return FromElems(c, 2, coords, conn)
}

// NewBox3D builds an nx-by-ny-by-nz hexahedral mesh covering
// [0,lx] x [0,ly] x [0,lz] on a single rank.
func NewBox3D(c *comm.Comm, nx, ny, nz int, lx, ly, lz float64) (*Mesh, error) {
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("mesh: box divisions %dx%dx%d invalid", nx, ny, nz)
	}
	vid := func(i, j, k int) int { return (k*(ny+1)+j)*(nx+1) + i }
	coords := make([]float64, 0, 3*(nx+1)*(ny+1)*(nz+1))
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				coords = append(coords,
					lx*float64(i)/float64(nx),
					ly*float64(j)/float64(ny),
					lz*float64(k)/float64(nz))
			}
		}
	}
	conn := make([]int, 0, 8*nx*ny*nz)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				conn = append(conn,
					vid(i, j, k), vid(i+1, j, k), vid(i+1, j+1, k), vid(i, j+1, k),
					vid(i, j, k+1), vid(i+1, j, k+1), vid(i+1, j+1, k+1), vid(i, j+1, k+1))
			}
		}
	}
	return FromElems(c, 3, coords, conn)
}

func denseGlobals(n int) []int64 {
	g := make([]int64, n)
	for i := range g {
		g[i] = int64(i)
	}
	return g
}

func uniformOwners(n, rank int) []int32 {
	o := make([]int32, n)
	r := int32(rank)
	for i := range o {
		o[i] = r
	}
	return o
}
