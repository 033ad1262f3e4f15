// Package utils holds small bulk-array helpers shared by the mesh and amr
// packages.
package utils

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// serialCutoff is the iteration count below which fanning out to workers
// costs more than it saves.
const serialCutoff = 4096

// ParallelFor applies fn to every index in [0, n) across a bounded pool of
// workers. fn must be pure per index: no cross-index dependency, each index
// writing only its own output slots, so the aggregate result is
// deterministic regardless of scheduling.
func ParallelFor(n int, fn func(i int)) {
	workers := runtime.GOMAXPROCS(0)
	if n < serialCutoff || workers < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				fn(i)
			}
			return nil
		})
	}
	// Workers never return errors; Wait is the join point.
	_ = g.Wait()
}
