package amr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewfu77/omega-h/comm"
	"github.com/andrewfu77/omega-h/hypercube"
	"github.com/andrewfu77/omega-h/mesh"
)

func TestMarkRefinedRequiresGhosted(t *testing.T) {
	m, err := mesh.NewBox2D(comm.Self(), 2, 1, 2.0, 1.0)
	require.NoError(t, err)
	err = MarkRefined(m, []byte{1, 0})
	assert.Error(t, err, "element-based mesh must be rejected")
}

func TestMarkRefinedRejectsWrongSize(t *testing.T) {
	m, err := mesh.NewBox2D(comm.Self(), 2, 1, 2.0, 1.0)
	require.NoError(t, err)
	m.SetParting(mesh.Ghosted)
	assert.Error(t, MarkRefined(m, []byte{1}))
}

// Closure invariant: every marked entity's full downward closure is marked.
func TestMarkRefinedClosure(t *testing.T) {
	m, err := mesh.NewBox2D(comm.Self(), 3, 2, 3.0, 2.0)
	require.NoError(t, err)
	m.SetParting(mesh.Ghosted)
	marks := make([]byte, m.NElems())
	marks[0] = 1
	marks[4] = 1
	require.NoError(t, MarkRefined(m, marks))

	var masks [3][]byte
	for d := 0; d <= 2; d++ {
		tag, ok := m.Tag(d, RefineTag)
		require.True(t, ok, "refine tag at dimension %d", d)
		masks[d] = tag.Bytes()
	}
	for k := 2; k >= 1; k-- {
		for bdim := 0; bdim < k; bdim++ {
			deg := hypercube.DownDegree(k, bdim)
			adj := m.Down(k, bdim)
			for e, marked := range masks[k] {
				if marked == 0 {
					continue
				}
				for w := 0; w < deg; w++ {
					if masks[bdim][adj[e*deg+w]] == 0 {
						t.Fatalf("marked dimension-%d entity %d has unmarked dimension-%d boundary %d",
							k, e, bdim, adj[e*deg+w])
					}
				}
			}
		}
	}
}

func TestMarkRefinedCounts(t *testing.T) {
	m, err := mesh.NewBox2D(comm.Self(), 2, 1, 2.0, 1.0)
	require.NoError(t, err)
	m.SetParting(mesh.Ghosted)
	require.NoError(t, MarkRefined(m, []byte{1, 0}))

	nmarked := func(d int) int {
		tag, _ := m.Tag(d, RefineTag)
		return len(CollectMarked(tag.Bytes()))
	}
	assert.Equal(t, 1, nmarked(2), "marked quads")
	assert.Equal(t, 4, nmarked(1), "marked edges")
	assert.Equal(t, 4, nmarked(0), "marked vertices")

	counts := CountRefined(m)
	assert.Equal(t, 5, counts[0], "produced vertices")
	assert.Equal(t, 12, counts[1], "produced edges")
	assert.Equal(t, 4, counts[2], "produced quads")
}
