// Package mesh is the distributed entity store the refinement engine
// operates on: per-dimension entity counts, entity-to-vertex connectivity
// with derived down-adjacencies, dense named tags carrying a declared
// transfer policy, global IDs, and ownership over ranks.
package mesh

import (
	"fmt"

	"github.com/andrewfu77/omega-h/comm"
	"github.com/andrewfu77/omega-h/hypercube"
)

// Family identifies the element topology family of a mesh.
type Family int

const (
	Hypercube Family = iota
	Simplex
)

// Parting identifies the partition state of a distributed mesh.
type Parting int

const (
	// ElemBased holds each element on exactly one rank, with shared
	// lower-dimensional entities copied on every touching rank.
	ElemBased Parting = iota
	// Ghosted guarantees every rank sees full information for all entities
	// touching its owned elements.
	Ghosted
)

func (p Parting) String() string {
	if p == Ghosted {
		return "ghosted"
	}
	return "elem_based"
}

// TransferKind declares how a tag's data maps onto a refined mesh.
type TransferKind int

const (
	Inherit TransferKind = iota
	Interp
	Conserve
	Pointwise
)

// Tag is a dense per-entity field: NComps values per entity, stored flat.
// Data is one of []float64, []int64, []int32 or []byte.
type Tag struct {
	Name   string
	NComps int
	Kind   TransferKind
	Data   any
}

// Len returns the number of values in the tag's data array.
func (t *Tag) Len() int {
	switch d := t.Data.(type) {
	case []float64:
		return len(d)
	case []int64:
		return len(d)
	case []int32:
		return len(d)
	case []byte:
		return len(d)
	default:
		panic(fmt.Sprintf("mesh: tag %q has unsupported data type %T", t.Name, t.Data))
	}
}

// Float64s returns the tag data as []float64, panicking on type mismatch.
func (t *Tag) Float64s() []float64 {
	d, ok := t.Data.([]float64)
	if !ok {
		panic(fmt.Sprintf("mesh: tag %q holds %T, not []float64", t.Name, t.Data))
	}
	return d
}

// Int64s returns the tag data as []int64, panicking on type mismatch.
func (t *Tag) Int64s() []int64 {
	d, ok := t.Data.([]int64)
	if !ok {
		panic(fmt.Sprintf("mesh: tag %q holds %T, not []int64", t.Name, t.Data))
	}
	return d
}

// Int32s returns the tag data as []int32, panicking on type mismatch.
func (t *Tag) Int32s() []int32 {
	d, ok := t.Data.([]int32)
	if !ok {
		panic(fmt.Sprintf("mesh: tag %q holds %T, not []int32", t.Name, t.Data))
	}
	return d
}

// Bytes returns the tag data as []byte, panicking on type mismatch.
func (t *Tag) Bytes() []byte {
	d, ok := t.Data.([]byte)
	if !ok {
		panic(fmt.Sprintf("mesh: tag %q holds %T, not []byte", t.Name, t.Data))
	}
	return d
}

// Mesh is one rank's view of a distributed mesh. It is the unit of
// transformation: refinement builds a complete replacement and swaps it in.
type Mesh struct {
	comm    *comm.Comm
	family  Family
	dim     int
	parting Parting

	nents       [hypercube.MaxDim + 1]int
	entsToVerts [hypercube.MaxDim + 1][]int
	globals     [hypercube.MaxDim + 1][]int64
	owners      [hypercube.MaxDim + 1][]int32

	// Tags per dimension, kept as an ordered slice so iteration is
	// deterministic across ranks.
	tags [hypercube.MaxDim + 1][]*Tag

	// Lazily derived down-adjacencies, keyed [entDim][boundaryDim].
	down [hypercube.MaxDim + 1][hypercube.MaxDim + 1][]int
}

// New creates an empty mesh of the given family and dimension.
func New(c *comm.Comm, family Family, dim int) (*Mesh, error) {
	if dim < 1 || dim > hypercube.MaxDim {
		return nil, fmt.Errorf("mesh: dimension %d out of range [1,%d]", dim, hypercube.MaxDim)
	}
	return &Mesh{comm: c, family: family, dim: dim, parting: ElemBased}, nil
}

// Comm returns the mesh's communicator.
func (m *Mesh) Comm() *comm.Comm { return m.comm }

// Family returns the mesh's topology family.
func (m *Mesh) Family() Family { return m.family }

// Dim returns the highest entity dimension of the mesh.
func (m *Mesh) Dim() int { return m.dim }

// Parting returns the current partition state.
func (m *Mesh) Parting() Parting { return m.parting }

// SetParting transitions the partition state. The transition is collective:
// every rank must call it, and no rank proceeds until all have.
func (m *Mesh) SetParting(p Parting) {
	if m.parting == p {
		return
	}
	m.comm.Barrier()
	m.parting = p
}

// NEnts returns the local entity count for a dimension.
func (m *Mesh) NEnts(dim int) int {
	m.checkDim(dim)
	return m.nents[dim]
}

// NElems returns the local element (highest-dimension entity) count.
func (m *Mesh) NElems() int { return m.nents[m.dim] }

// SetVerts installs the vertex set: count, global IDs and owning ranks.
func (m *Mesh) SetVerts(n int, globals []int64, owners []int32) error {
	if len(globals) != n || len(owners) != n {
		return fmt.Errorf("mesh: vertex globals/owners sized %d/%d, want %d",
			len(globals), len(owners), n)
	}
	m.nents[0] = n
	m.entsToVerts[0] = nil
	m.globals[0] = globals
	m.owners[0] = owners
	m.invalidateDown()
	return nil
}

// SetEnts installs the entity set for a dimension >= 1: flat entity-to-vertex
// connectivity, global IDs and owning ranks.
func (m *Mesh) SetEnts(dim int, conn []int, globals []int64, owners []int32) error {
	if dim < 1 || dim > m.dim {
		return fmt.Errorf("mesh: entity dimension %d out of range [1,%d]", dim, m.dim)
	}
	vpe := hypercube.VertsPerEnt(dim)
	if len(conn)%vpe != 0 {
		return fmt.Errorf("mesh: dimension-%d connectivity length %d not divisible by %d",
			dim, len(conn), vpe)
	}
	n := len(conn) / vpe
	if len(globals) != n || len(owners) != n {
		return fmt.Errorf("mesh: dimension-%d globals/owners sized %d/%d, want %d",
			dim, len(globals), len(owners), n)
	}
	for i, v := range conn {
		if v < 0 || v >= m.nents[0] {
			return fmt.Errorf("mesh: dimension-%d connectivity entry %d references vertex %d of %d",
				dim, i, v, m.nents[0])
		}
	}
	m.nents[dim] = n
	m.entsToVerts[dim] = conn
	m.globals[dim] = globals
	m.owners[dim] = owners
	m.invalidateDown()
	return nil
}

// EntsToVerts returns the flat entity-to-vertex connectivity for a dimension.
func (m *Mesh) EntsToVerts(dim int) []int {
	m.checkDim(dim)
	return m.entsToVerts[dim]
}

// Globals returns the per-entity global IDs for a dimension.
func (m *Mesh) Globals(dim int) []int64 {
	m.checkDim(dim)
	return m.globals[dim]
}

// Owners returns the per-entity owning ranks for a dimension.
func (m *Mesh) Owners(dim int) []int32 {
	m.checkDim(dim)
	return m.owners[dim]
}

// Owned reports whether this rank owns the given entity.
func (m *Mesh) Owned(dim, i int) bool {
	return m.owners[dim][i] == int32(m.comm.Rank())
}

// AddTag attaches a named field to a dimension. The data length must be
// NEnts(dim) * ncomps; the name must not already exist at that dimension.
func (m *Mesh) AddTag(dim int, name string, ncomps int, kind TransferKind, data any) error {
	m.checkDim(dim)
	if ncomps < 1 {
		return fmt.Errorf("mesh: tag %q has %d components", name, ncomps)
	}
	if _, ok := m.Tag(dim, name); ok {
		return fmt.Errorf("mesh: tag %q already exists at dimension %d", name, dim)
	}
	tag := &Tag{Name: name, NComps: ncomps, Kind: kind, Data: data}
	if tag.Len() != m.nents[dim]*ncomps {
		return fmt.Errorf("mesh: tag %q at dimension %d sized %d, want %d",
			name, dim, tag.Len(), m.nents[dim]*ncomps)
	}
	m.tags[dim] = append(m.tags[dim], tag)
	return nil
}

// SetTag replaces the data of an existing tag, keeping its metadata.
func (m *Mesh) SetTag(dim int, name string, data any) error {
	tag, ok := m.Tag(dim, name)
	if !ok {
		return fmt.Errorf("mesh: no tag %q at dimension %d", name, dim)
	}
	old := tag.Data
	tag.Data = data
	if tag.Len() != m.nents[dim]*tag.NComps {
		tag.Data = old
		return fmt.Errorf("mesh: tag %q at dimension %d sized %d, want %d",
			name, dim, (&Tag{Name: name, Data: data}).Len(), m.nents[dim]*tag.NComps)
	}
	return nil
}

// Tag looks up a tag by dimension and name.
func (m *Mesh) Tag(dim int, name string) (*Tag, bool) {
	m.checkDim(dim)
	for _, t := range m.tags[dim] {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// HasTag reports whether a tag exists at a dimension.
func (m *Mesh) HasTag(dim int, name string) bool {
	_, ok := m.Tag(dim, name)
	return ok
}

// Tags returns the tags of a dimension in attachment order.
func (m *Mesh) Tags(dim int) []*Tag {
	m.checkDim(dim)
	return m.tags[dim]
}

// RemoveTag detaches a tag if present.
func (m *Mesh) RemoveTag(dim int, name string) {
	m.checkDim(dim)
	for i, t := range m.tags[dim] {
		if t.Name == name {
			m.tags[dim] = append(m.tags[dim][:i], m.tags[dim][i+1:]...)
			return
		}
	}
}

// CopyMeta creates an empty mesh sharing this mesh's communicator, family,
// dimension and partition state, with no entities or tags yet.
func (m *Mesh) CopyMeta() *Mesh {
	return &Mesh{comm: m.comm, family: m.family, dim: m.dim, parting: m.parting}
}

// ReplaceWith makes this mesh the given mesh, releasing the old state. The
// caller's handle observes the replacement atomically.
func (m *Mesh) ReplaceWith(n *Mesh) {
	*m = *n
}

func (m *Mesh) checkDim(dim int) {
	if dim < 0 || dim > m.dim {
		panic(fmt.Sprintf("mesh: dimension %d out of range [0,%d]", dim, m.dim))
	}
}

func (m *Mesh) invalidateDown() {
	for d := range m.down {
		for b := range m.down[d] {
			m.down[d][b] = nil
		}
	}
}
