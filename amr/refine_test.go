package amr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/andrewfu77/omega-h/comm"
	"github.com/andrewfu77/omega-h/mesh"
)

// refineFirst builds a 2x1 quad mesh on [0,2]x[0,1] and refines element 0.
func refineFirst(t *testing.T) *mesh.Mesh {
	t.Helper()
	m, err := mesh.NewBox2D(comm.Self(), 2, 1, 2.0, 1.0)
	require.NoError(t, err)
	require.NoError(t, Refine(m, []byte{1, 0}, TransferOpts{}))
	return m
}

func TestRefine2DCounts(t *testing.T) {
	m := refineFirst(t)
	assert.Equal(t, 11, m.NEnts(0), "vertices")
	assert.Equal(t, 15, m.NEnts(1), "edges")
	assert.Equal(t, 5, m.NEnts(2), "quads")
}

func TestRefine2DMidpointCoords(t *testing.T) {
	m := refineFirst(t)
	coords, ok := m.Tag(0, mesh.CoordsTag)
	require.True(t, ok)
	xy := coords.Float64s()

	// The six template vertices keep their positions and their order.
	old := [][2]float64{{0, 0}, {1, 0}, {2, 0}, {0, 1}, {1, 1}, {2, 1}}
	for v, want := range old {
		assert.Equal(t, want[0], xy[2*v+0], "vertex %d x", v)
		assert.Equal(t, want[1], xy[2*v+1], "vertex %d y", v)
	}
	// Produced vertices: one per modified edge in order, then the cell center.
	produced := [][2]float64{{0.5, 0}, {1, 0.5}, {0.5, 1}, {0, 0.5}, {0.5, 0.5}}
	for i, want := range produced {
		v := 6 + i
		assert.Equal(t, want[0], xy[2*v+0], "vertex %d x", v)
		assert.Equal(t, want[1], xy[2*v+1], "vertex %d y", v)
	}
}

func TestRefine2DGlobalsDense(t *testing.T) {
	m := refineFirst(t)
	for d := 0; d <= 2; d++ {
		gids := m.Globals(d)
		seen := make(map[int64]bool, len(gids))
		for _, g := range gids {
			assert.False(t, seen[g], "duplicate global %d at dimension %d", g, d)
			seen[g] = true
		}
	}
	// Produced vertex globals continue past the template range and follow
	// the block order: edge midpoints first, then the cell center.
	gids := m.Globals(0)
	assert.Equal(t, []int64{6, 7, 8, 9, 10}, gids[6:])
}

func TestRefine2DLevelsAndLeaves(t *testing.T) {
	m := refineFirst(t)
	for d := 0; d <= 2; d++ {
		levels, ok := m.Tag(d, mesh.LevelTag)
		require.True(t, ok)
		leaves, ok := m.Tag(d, mesh.LeafTag)
		require.True(t, ok)
		codes, ok := m.Tag(d, mesh.ParentCodeTag)
		require.True(t, ok)
		for i, code := range codes.Bytes() {
			assert.Equal(t, byte(1), leaves.Bytes()[i], "dimension %d entity %d leaf", d, i)
			if code == mesh.NoCode {
				assert.Equal(t, int32(0), levels.Int32s()[i], "untouched entity level")
			} else {
				assert.Equal(t, int32(1), levels.Int32s()[i], "produced entity level")
			}
		}
	}
}

func TestRefine2DParentCodes(t *testing.T) {
	m := refineFirst(t)
	codes, ok := m.Tag(2, mesh.ParentCodeTag)
	require.True(t, ok)
	got := codes.Bytes()
	require.Len(t, got, 5)
	// The surviving quad keeps no code; the four children carry their slot.
	assert.Equal(t, mesh.NoCode, got[0])
	for slot := 0; slot < 4; slot++ {
		assert.Equal(t, MakeCode(slot, 2), got[1+slot], "child slot %d", slot)
	}
	// Vertex codes: one midpoint per modified edge, then the quad center.
	vcodes, _ := m.Tag(0, mesh.ParentCodeTag)
	for v := 6; v < 10; v++ {
		assert.Equal(t, MakeCode(0, 1), vcodes.Bytes()[v])
	}
	assert.Equal(t, MakeCode(0, 2), vcodes.Bytes()[10])
}

func TestRefine2DAreaConserved(t *testing.T) {
	m := refineFirst(t)
	areas := mesh.ElementMeasures(m)
	assert.InDelta(t, 2.0, floats.Sum(areas), 1e-12)
	for e, a := range areas {
		assert.Greater(t, a, 0.0, "element %d orientation", e)
	}
}

func TestRefine2DInheritedElemTag(t *testing.T) {
	m, err := mesh.NewBox2D(comm.Self(), 2, 1, 2.0, 1.0)
	require.NoError(t, err)
	require.NoError(t, m.AddTag(2, "material", 1, mesh.Inherit, []int32{10, 20}))
	require.NoError(t, Refine(m, []byte{1, 0}, TransferOpts{}))

	mat, ok := m.Tag(2, "material")
	require.True(t, ok)
	// The unrefined quad keeps its value; children inherit the parent's.
	assert.Equal(t, []int32{20, 10, 10, 10, 10}, mat.Int32s())
}

func TestRefineInterpOverride(t *testing.T) {
	m, err := mesh.NewBox2D(comm.Self(), 2, 1, 2.0, 1.0)
	require.NoError(t, err)
	// f(x,y) = x is reproduced exactly by midpoint interpolation.
	coords, _ := m.Tag(0, mesh.CoordsTag)
	xy := coords.Float64s()
	f := make([]float64, m.NEnts(0))
	for v := range f {
		f[v] = xy[2*v]
	}
	require.NoError(t, m.AddTag(0, "f", 1, mesh.Inherit, f))
	opts := TransferOpts{Kinds: map[string]mesh.TransferKind{"f": mesh.Interp}}
	require.NoError(t, Refine(m, []byte{1, 0}, opts))

	got, ok := m.Tag(0, "f")
	require.True(t, ok)
	coords, _ = m.Tag(0, mesh.CoordsTag)
	xy = coords.Float64s()
	for v, fv := range got.Float64s() {
		assert.InDelta(t, xy[2*v], fv, 1e-12, "vertex %d", v)
	}
}

func TestRefineStripsPassTags(t *testing.T) {
	m := refineFirst(t)
	for d := 0; d <= 2; d++ {
		assert.False(t, m.HasTag(d, RefineTag))
		assert.False(t, m.HasTag(d, mdOrderTag))
	}
}

func TestRefineNoMarksIsIdentity(t *testing.T) {
	m, err := mesh.NewBox2D(comm.Self(), 2, 1, 2.0, 1.0)
	require.NoError(t, err)
	require.NoError(t, Refine(m, []byte{0, 0}, TransferOpts{}))
	assert.Equal(t, 6, m.NEnts(0))
	assert.Equal(t, 7, m.NEnts(1))
	assert.Equal(t, 2, m.NEnts(2))
}

func TestRefineDeterministic(t *testing.T) {
	a := refineFirst(t)
	b := refineFirst(t)
	for d := 0; d <= 2; d++ {
		assert.Equal(t, a.Globals(d), b.Globals(d), "dimension %d globals", d)
		assert.Equal(t, a.EntsToVerts(d), b.EntsToVerts(d), "dimension %d connectivity", d)
	}
	ca, _ := a.Tag(0, mesh.CoordsTag)
	cb, _ := b.Tag(0, mesh.CoordsTag)
	assert.Equal(t, ca.Float64s(), cb.Float64s())
}

func TestRefine3DSingleHex(t *testing.T) {
	m, err := mesh.NewBox3D(comm.Self(), 1, 1, 1, 1.0, 1.0, 1.0)
	require.NoError(t, err)
	require.NoError(t, Refine(m, []byte{1}, TransferOpts{}))

	// Refining the only hex yields the 2x2x2 grid.
	assert.Equal(t, 27, m.NEnts(0), "vertices")
	assert.Equal(t, 54, m.NEnts(1), "edges")
	assert.Equal(t, 36, m.NEnts(2), "quads")
	assert.Equal(t, 8, m.NEnts(3), "hexes")

	vols := mesh.ElementMeasures(m)
	assert.InDelta(t, 1.0, floats.Sum(vols), 1e-12)
	for e, v := range vols {
		assert.InDelta(t, 0.125, v, 1e-12, "child %d volume", e)
	}

	codes, _ := m.Tag(3, mesh.ParentCodeTag)
	for slot, code := range codes.Bytes() {
		assert.Equal(t, MakeCode(slot, 3), code)
	}
	// The last produced vertex is the body center.
	coords, _ := m.Tag(0, mesh.CoordsTag)
	xyz := coords.Float64s()
	c := m.NEnts(0) - 1
	for k := 0; k < 3; k++ {
		assert.InDelta(t, 0.5, xyz[3*c+k], 1e-12)
	}
}

func TestRefineTwice(t *testing.T) {
	m, err := mesh.NewBox2D(comm.Self(), 1, 1, 1.0, 1.0)
	require.NoError(t, err)
	require.NoError(t, Refine(m, []byte{1}, TransferOpts{}))
	require.Equal(t, 4, m.NElems())

	// Refine one child; its level goes to 2 and area stays 1.
	marks := make([]byte, 4)
	marks[0] = 1
	require.NoError(t, Refine(m, marks, TransferOpts{}))
	assert.Equal(t, 7, m.NElems())

	levels, _ := m.Tag(2, mesh.LevelTag)
	maxLevel := int32(0)
	for _, l := range levels.Int32s() {
		if l > maxLevel {
			maxLevel = l
		}
	}
	assert.Equal(t, int32(2), maxLevel)

	areas := mesh.ElementMeasures(m)
	assert.InDelta(t, 1.0, floats.Sum(areas), 1e-12)
}

// Two ranks, one quad each, sharing an edge. Rank 0 marks its element; the
// closure must reach the shared edge's copy on rank 1, and both ranks must
// assign the produced midpoint vertex the same global ID, coordinates,
// parent code, and owner without exchanging any of them directly.
func TestRefineParallelClosure(t *testing.T) {
	type result struct {
		nelems   int
		nverts   int
		midGid   int64
		midXY    [2]float64
		midCode  byte
		midOwner int32
	}
	results := make([]result, 2)
	nw := comm.NewNetwork(2)
	done := make(chan error, 2)
	for rank := 0; rank < 2; rank++ {
		go func(rank int) {
			c := nw.Comm(rank)
			template, err := mesh.NewBox2D(c, 2, 1, 2.0, 1.0)
			if err != nil {
				done <- err
				return
			}
			layout := &mesh.Layout{NumRanks: 2, EToP: []int{0, 1}}
			m, err := mesh.Distribute(template, layout, c)
			if err != nil {
				done <- err
				return
			}
			marks := make([]byte, m.NElems())
			if rank == 0 {
				marks[0] = 1
			}
			if err := Refine(m, marks, TransferOpts{}); err != nil {
				done <- err
				return
			}

			r := result{nelems: m.NElems(), nverts: m.NEnts(0), midGid: -1}
			coords, _ := m.Tag(0, mesh.CoordsTag)
			codes, _ := m.Tag(0, mesh.ParentCodeTag)
			xy := coords.Float64s()
			for v, g := range m.Globals(0) {
				// The shared edge runs from (1,0) to (1,1); its midpoint
				// is the one produced vertex both ranks must hold.
				if math.Abs(xy[2*v]-1.0) < 1e-12 && math.Abs(xy[2*v+1]-0.5) < 1e-12 {
					r.midGid = g
					r.midXY = [2]float64{xy[2*v], xy[2*v+1]}
					r.midCode = codes.Bytes()[v]
					r.midOwner = m.Owners(0)[v]
				}
			}
			results[rank] = r
			done <- nil
		}(rank)
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, <-done)
	}

	assert.Equal(t, 4, results[0].nelems, "rank 0 elements")
	assert.Equal(t, 1, results[1].nelems, "rank 1 elements")
	assert.Equal(t, 9, results[0].nverts, "rank 0 vertices")
	assert.Equal(t, 5, results[1].nverts, "rank 1 vertices")

	for rank, r := range results {
		require.NotEqual(t, int64(-1), r.midGid, "rank %d holds the shared midpoint", rank)
		assert.Equal(t, MakeCode(0, 1), r.midCode, "rank %d midpoint code", rank)
		assert.Equal(t, int32(0), r.midOwner, "rank %d midpoint owner", rank)
	}
	assert.Equal(t, results[0].midGid, results[1].midGid, "shared midpoint global ID")
	assert.Equal(t, results[0].midXY, results[1].midXY, "shared midpoint coordinates")
}
