// Package comm provides the collective communication primitives the
// refinement engine depends on: barrier, reductions, exclusive scan,
// all-gather, and a global-ID-keyed logical OR across shared entity copies.
//
// Ranks live in one process, one goroutine per rank, joined by a Network.
// Every collective is a rendezvous: all ranks must call it, and all ranks
// receive results derived only from the gathered data, never from arrival
// order. A Self communicator serves the serial (single rank) case with no
// synchronization cost.
package comm

import (
	"fmt"
	"sort"
	"sync"
)

// Network connects a fixed number of ranks within one process.
type Network struct {
	size int

	mu  sync.Mutex
	cur *round
}

type round struct {
	contributions [][]int64
	entered       []bool
	arrived       int
	done          chan struct{}
}

// NewNetwork creates a network joining n ranks.
func NewNetwork(n int) *Network {
	if n < 1 {
		panic(fmt.Sprintf("comm: network size %d < 1", n))
	}
	return &Network{size: n}
}

// Comm returns the communicator for one rank of the network.
func (nw *Network) Comm(rank int) *Comm {
	if rank < 0 || rank >= nw.size {
		panic(fmt.Sprintf("comm: rank %d out of range [0,%d)", rank, nw.size))
	}
	return &Comm{nw: nw, rank: rank}
}

// Self returns a single-rank communicator for serial use.
func Self() *Comm {
	return NewNetwork(1).Comm(0)
}

// Comm is one rank's handle on the collective operations of its network.
type Comm struct {
	nw   *Network
	rank int
}

// Rank returns this communicator's rank.
func (c *Comm) Rank() int { return c.rank }

// Size returns the number of ranks in the network.
func (c *Comm) Size() int { return c.nw.size }

// gather is the rendezvous underlying every collective: each rank
// contributes a slice, all ranks block until the full set is assembled, and
// each receives the contributions indexed by rank.
func (c *Comm) gather(data []int64) [][]int64 {
	nw := c.nw
	nw.mu.Lock()
	if nw.cur == nil {
		nw.cur = &round{
			contributions: make([][]int64, nw.size),
			entered:       make([]bool, nw.size),
			done:          make(chan struct{}),
		}
	}
	r := nw.cur
	if r.entered[c.rank] {
		nw.mu.Unlock()
		panic(fmt.Sprintf("comm: rank %d entered a collective twice in one round", c.rank))
	}
	r.entered[c.rank] = true
	r.contributions[c.rank] = data
	r.arrived++
	if r.arrived == nw.size {
		nw.cur = nil
		close(r.done)
	}
	nw.mu.Unlock()
	<-r.done
	return r.contributions
}

// Barrier blocks until every rank has entered it.
func (c *Comm) Barrier() {
	c.gather([]int64{})
}

// AllReduceSum returns the sum of v across all ranks.
func (c *Comm) AllReduceSum(v int64) int64 {
	var sum int64
	for _, contrib := range c.gather([]int64{v}) {
		sum += contrib[0]
	}
	return sum
}

// AllReduceMax returns the maximum of v across all ranks.
func (c *Comm) AllReduceMax(v int64) int64 {
	max := v
	for _, contrib := range c.gather([]int64{v}) {
		if contrib[0] > max {
			max = contrib[0]
		}
	}
	return max
}

// ExScan returns the exclusive prefix sum of v over ranks: the sum of the
// values contributed by ranks lower than this one (zero on rank 0).
func (c *Comm) ExScan(v int64) int64 {
	contribs := c.gather([]int64{v})
	var sum int64
	for rank := 0; rank < c.rank; rank++ {
		sum += contribs[rank][0]
	}
	return sum
}

// AllGatherSorted gathers every rank's values and returns the combined set
// in ascending order. Used to build rank-independent orderings keyed on
// global IDs.
func (c *Comm) AllGatherSorted(vals []int64) []int64 {
	contribs := c.gather(append([]int64(nil), vals...))
	var all []int64
	for _, contrib := range contribs {
		all = append(all, contrib...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

// SyncOr performs a logical OR of boolean values across every copy of each
// shared entity, keyed by global ID. Each rank passes the global IDs of its
// local entities with their current values; the result holds, per local
// entity, the OR over all ranks referencing the same global ID.
func (c *Comm) SyncOr(gids []int64, vals []byte) []byte {
	if len(gids) != len(vals) {
		panic(fmt.Sprintf("comm: SyncOr gids/vals length mismatch %d != %d", len(gids), len(vals)))
	}
	packed := make([]int64, 0, 2*len(gids))
	for i, gid := range gids {
		packed = append(packed, gid, int64(vals[i]))
	}
	contribs := c.gather(packed)
	marked := make(map[int64]bool)
	for _, contrib := range contribs {
		for i := 0; i < len(contrib); i += 2 {
			if contrib[i+1] != 0 {
				marked[contrib[i]] = true
			}
		}
	}
	out := make([]byte, len(vals))
	for i, gid := range gids {
		if vals[i] != 0 || marked[gid] {
			out[i] = 1
		}
	}
	return out
}
