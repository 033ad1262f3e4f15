package amr

import "fmt"

// CollectMarked compacts the indices of true-valued entries into a list,
// preserving their relative order.
func CollectMarked(marks []byte) []int {
	n := 0
	for _, b := range marks {
		if b != 0 {
			n++
		}
	}
	out := make([]int, 0, n)
	for i, b := range marks {
		if b != 0 {
			out = append(out, i)
		}
	}
	return out
}

// InvertInjectiveMap inverts a one-to-one index map a2b into an array of
// size nb, with -1 at unmapped positions. A non-injective or out-of-range
// input is a programming error and panics.
func InvertInjectiveMap(a2b []int, nb int) []int {
	b2a := make([]int, nb)
	for i := range b2a {
		b2a[i] = -1
	}
	for a, b := range a2b {
		if b < 0 || b >= nb {
			panic(fmt.Sprintf("amr: map entry %d -> %d out of range [0,%d)", a, b, nb))
		}
		if b2a[b] != -1 {
			panic(fmt.Sprintf("amr: map not injective: entries %d and %d both map to %d", b2a[b], a, b))
		}
		b2a[b] = a
	}
	return b2a
}

// Unmap gathers b2c through a2b: out[i*width+k] = b2c[a2b[i]*width+k].
// Every a2b entry must be a valid index into b2c's entity range.
func Unmap(a2b []int, b2c []int, width int) []int {
	nb := len(b2c) / width
	out := make([]int, len(a2b)*width)
	for i, b := range a2b {
		if b < 0 || b >= nb {
			panic(fmt.Sprintf("amr: unmap index %d out of range [0,%d)", b, nb))
		}
		copy(out[i*width:(i+1)*width], b2c[b*width:(b+1)*width])
	}
	return out
}

// UnmapRange gathers the contiguous index range [begin, end) of b2c:
// out[(i-begin)*width+k] = b2c[i*width+k].
func UnmapRange(begin, end int, b2c []int, width int) []int {
	nb := len(b2c) / width
	if begin < 0 || end < begin || end > nb {
		panic(fmt.Sprintf("amr: unmap range [%d,%d) out of range [0,%d)", begin, end, nb))
	}
	out := make([]int, (end-begin)*width)
	copy(out, b2c[begin*width:end*width])
	return out
}
