// Package amr refines hypercube-family meshes: marked elements are replaced
// by their uniform split children, with closure propagation across entity
// dimensions and ranks, deterministic child topology, a generic
// entity-renumbering kernel, and transfer of all attached fields onto the
// new mesh.
package amr

// A parent code packs, for an entity produced by refinement, the dimension
// of the modified ancestor that produced it and its child slot within that
// ancestor's split pattern: (whichChild << 2) | parentDim. Entities not
// produced by refinement carry mesh.NoCode.

// MakeCode packs a child slot and parent dimension into a parent code.
func MakeCode(whichChild, parentDim int) byte {
	return byte(whichChild<<2 | parentDim)
}

// CodeParentDim extracts the parent dimension from a parent code.
func CodeParentDim(code byte) int {
	return int(code & 3)
}

// CodeWhichChild extracts the child slot from a parent code.
func CodeWhichChild(code byte) int {
	return int(code >> 2)
}
