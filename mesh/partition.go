package mesh

import (
	"fmt"

	"github.com/andrewfu77/omega-h/comm"
	"github.com/andrewfu77/omega-h/hypercube"
)

// Layout assigns every element of a mesh to a rank.
type Layout struct {
	NumRanks int
	EToP     []int // element e belongs to rank EToP[e]
}

// BlockLayout assigns consecutive elements to ranks in equal blocks.
func BlockLayout(nelems, nranks int) *Layout {
	eToP := make([]int, nelems)
	per := (nelems + nranks - 1) / nranks
	for e := range eToP {
		p := e / per
		if p >= nranks {
			p = nranks - 1
		}
		eToP[e] = p
	}
	return &Layout{NumRanks: nranks, EToP: eToP}
}

// Validate checks the layout against a mesh's element count.
func (l *Layout) Validate(nelems int) error {
	if len(l.EToP) != nelems {
		return fmt.Errorf("mesh: layout covers %d elements, mesh has %d", len(l.EToP), nelems)
	}
	for e, p := range l.EToP {
		if p < 0 || p >= l.NumRanks {
			return fmt.Errorf("mesh: element %d assigned to rank %d of %d", e, p, l.NumRanks)
		}
	}
	return nil
}

// Distribute builds this rank's local view of a mesh built identically on
// every rank: the elements the layout assigns here plus their full downward
// closure. Shared lower-dimensional entities appear on every touching rank;
// each is owned by the lowest touching rank, so ownership is identical on
// all ranks without communication. Global IDs carry over from the template.
func Distribute(template *Mesh, layout *Layout, c *comm.Comm) (*Mesh, error) {
	if layout.NumRanks != c.Size() {
		return nil, fmt.Errorf("mesh: layout has %d ranks, network has %d", layout.NumRanks, c.Size())
	}
	if err := layout.Validate(template.NElems()); err != nil {
		return nil, err
	}
	dim := template.Dim()
	rank := c.Rank()

	// Owner of every template entity: the lowest rank whose elements touch it.
	owner := make([][]int32, dim+1)
	for d := 0; d <= dim; d++ {
		owner[d] = make([]int32, template.NEnts(d))
		for i := range owner[d] {
			owner[d][i] = int32(layout.NumRanks)
		}
	}
	touch := func(d, ent, p int) {
		if int32(p) < owner[d][ent] {
			owner[d][ent] = int32(p)
		}
	}
	for e := 0; e < template.NElems(); e++ {
		p := layout.EToP[e]
		touch(dim, e, p)
		for bdim := 0; bdim < dim; bdim++ {
			deg := hypercube.DownDegree(dim, bdim)
			adj := template.Down(dim, bdim)
			for w := 0; w < deg; w++ {
				touch(bdim, adj[e*deg+w], p)
			}
		}
	}

	// Entities this rank keeps: its elements and their closures.
	keep := make([][]bool, dim+1)
	for d := 0; d <= dim; d++ {
		keep[d] = make([]bool, template.NEnts(d))
	}
	for e := 0; e < template.NElems(); e++ {
		if layout.EToP[e] != rank {
			continue
		}
		keep[dim][e] = true
		for bdim := 0; bdim < dim; bdim++ {
			deg := hypercube.DownDegree(dim, bdim)
			adj := template.Down(dim, bdim)
			for w := 0; w < deg; w++ {
				keep[bdim][adj[e*deg+w]] = true
			}
		}
	}

	// Compact to local numbering, preserving template order.
	toLocal := make([][]int, dim+1)
	kept := make([][]int, dim+1)
	for d := 0; d <= dim; d++ {
		toLocal[d] = make([]int, template.NEnts(d))
		for i := range toLocal[d] {
			toLocal[d][i] = -1
		}
		for i, k := range keep[d] {
			if k {
				toLocal[d][i] = len(kept[d])
				kept[d] = append(kept[d], i)
			}
		}
	}

	local, err := New(c, template.Family(), dim)
	if err != nil {
		return nil, err
	}
	subGlobals := func(d int) []int64 {
		g := make([]int64, len(kept[d]))
		for i, old := range kept[d] {
			g[i] = template.Globals(d)[old]
		}
		return g
	}
	subOwners := func(d int) []int32 {
		o := make([]int32, len(kept[d]))
		for i, old := range kept[d] {
			o[i] = owner[d][old]
		}
		return o
	}
	if err := local.SetVerts(len(kept[0]), subGlobals(0), subOwners(0)); err != nil {
		return nil, err
	}
	for d := 1; d <= dim; d++ {
		vpe := hypercube.VertsPerEnt(d)
		conn := make([]int, 0, len(kept[d])*vpe)
		tconn := template.EntsToVerts(d)
		for _, old := range kept[d] {
			for _, v := range tconn[old*vpe : (old+1)*vpe] {
				lv := toLocal[0][v]
				if lv < 0 {
					panic(fmt.Sprintf("mesh: kept dimension-%d entity %d references dropped vertex %d", d, old, v))
				}
				conn = append(conn, lv)
			}
		}
		if err := local.SetEnts(d, conn, subGlobals(d), subOwners(d)); err != nil {
			return nil, err
		}
	}

	// Carry every tag over, restricted to kept entities.
	for d := 0; d <= dim; d++ {
		for _, t := range template.Tags(d) {
			data := subsetTagData(t, kept[d])
			if err := local.AddTag(d, t.Name, t.NComps, t.Kind, data); err != nil {
				return nil, err
			}
		}
	}
	return local, nil
}

func subsetTagData(t *Tag, kept []int) any {
	nc := t.NComps
	switch src := t.Data.(type) {
	case []float64:
		out := make([]float64, len(kept)*nc)
		for i, old := range kept {
			copy(out[i*nc:(i+1)*nc], src[old*nc:(old+1)*nc])
		}
		return out
	case []int64:
		out := make([]int64, len(kept)*nc)
		for i, old := range kept {
			copy(out[i*nc:(i+1)*nc], src[old*nc:(old+1)*nc])
		}
		return out
	case []int32:
		out := make([]int32, len(kept)*nc)
		for i, old := range kept {
			copy(out[i*nc:(i+1)*nc], src[old*nc:(old+1)*nc])
		}
		return out
	case []byte:
		out := make([]byte, len(kept)*nc)
		for i, old := range kept {
			copy(out[i*nc:(i+1)*nc], src[old*nc:(old+1)*nc])
		}
		return out
	default:
		panic(fmt.Sprintf("mesh: tag %q has unsupported data type %T", t.Name, t.Data))
	}
}
