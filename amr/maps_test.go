package amr

import "testing"

func TestCollectMarkedStable(t *testing.T) {
	marks := []byte{0, 1, 1, 0, 1, 0, 0, 1}
	got := CollectMarked(marks)
	want := []int{1, 2, 4, 7}
	if len(got) != len(want) {
		t.Fatalf("CollectMarked = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("CollectMarked = %v, want %v", got, want)
		}
	}
}

func TestCollectMarkedEmpty(t *testing.T) {
	if got := CollectMarked(nil); len(got) != 0 {
		t.Errorf("CollectMarked(nil) = %v, want empty", got)
	}
	if got := CollectMarked([]byte{0, 0}); len(got) != 0 {
		t.Errorf("CollectMarked(zeros) = %v, want empty", got)
	}
}

// Round-trip law: inverting the compacted index list and collecting the
// non-negative entries recovers the original list.
func TestInvertInjectiveMapRoundTrip(t *testing.T) {
	marks := []byte{1, 0, 0, 1, 1, 0, 1}
	mods2mds := CollectMarked(marks)
	mds2mods := InvertInjectiveMap(mods2mds, len(marks))
	for mod, md := range mods2mds {
		if mds2mods[md] != mod {
			t.Errorf("mds2mods[%d] = %d, want %d", md, mds2mods[md], mod)
		}
	}
	for md, mod := range mds2mods {
		if marks[md] == 0 && mod != -1 {
			t.Errorf("unmarked entity %d has inverse entry %d", md, mod)
		}
	}
}

func TestInvertInjectiveMapPanics(t *testing.T) {
	assertPanics(t, "non-injective", func() {
		InvertInjectiveMap([]int{0, 1, 1}, 3)
	})
	assertPanics(t, "out of range", func() {
		InvertInjectiveMap([]int{5}, 3)
	})
}

func TestUnmap(t *testing.T) {
	b2c := []int{10, 11, 20, 21, 30, 31}
	got := Unmap([]int{2, 0}, b2c, 2)
	want := []int{30, 31, 10, 11}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Unmap = %v, want %v", got, want)
		}
	}
	assertPanics(t, "unmap out of range", func() {
		Unmap([]int{3}, b2c, 2)
	})
}

func TestUnmapRange(t *testing.T) {
	b2c := []int{5, 6, 7, 8}
	got := UnmapRange(1, 3, b2c, 1)
	if len(got) != 2 || got[0] != 6 || got[1] != 7 {
		t.Fatalf("UnmapRange = %v, want [6 7]", got)
	}
	assertPanics(t, "range out of bounds", func() {
		UnmapRange(2, 5, b2c, 1)
	})
}

func assertPanics(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}
