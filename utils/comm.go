package utils

import (
	"math"
	"sync"
)

// Comm provides the collective operations shared by a fixed set of
// cooperating ranks, each running in its own goroutine. Every rank must
// reach each collective with matching call counts; a rank that skips a
// collective deadlocks the others, exactly as an MPI program would.
type Comm struct {
	NP int

	mu         sync.Mutex
	cond       *sync.Cond
	arrived    int
	generation int
	sumSlots   []float64
	locSlots   []int
}

func NewComm(NP int) (c *Comm) {
	c = &Comm{
		NP:       NP,
		sumSlots: make([]float64, NP),
		locSlots: make([]int, NP),
	}
	c.cond = sync.NewCond(&c.mu)
	return
}

// Barrier blocks until all NP ranks have called it.
func (c *Comm) Barrier() {
	c.mu.Lock()
	gen := c.generation
	c.arrived++
	if c.arrived == c.NP {
		c.arrived = 0
		c.generation++
		c.cond.Broadcast()
	} else {
		for gen == c.generation {
			c.cond.Wait()
		}
	}
	c.mu.Unlock()
}

// AllreduceSum returns the sum of val over all ranks. Every rank receives
// the identical result: the summation order is fixed by rank number, so
// repeated runs are bit-identical.
func (c *Comm) AllreduceSum(myRank int, val float64) (sum float64) {
	c.sumSlots[myRank] = val
	c.Barrier()
	for _, v := range c.sumSlots {
		sum += v
	}
	c.Barrier() // slots must not be rewritten until every rank has read
	return
}

// AllreduceMin returns the global minimum of val over all ranks.
func (c *Comm) AllreduceMin(myRank int, val float64) (min float64) {
	c.sumSlots[myRank] = val
	c.Barrier()
	min = math.Inf(1)
	for _, v := range c.sumSlots {
		if v < min {
			min = v
		}
	}
	c.Barrier()
	return
}

// AllreduceMinLoc returns the global minimum and the index tagged to it
// by its owning rank. Ties resolve to the lowest tagged index so that
// every rank agrees on the winner.
func (c *Comm) AllreduceMinLoc(myRank int, val float64, loc int) (min float64, minLoc int) {
	c.sumSlots[myRank] = val
	c.locSlots[myRank] = loc
	c.Barrier()
	min, minLoc = math.Inf(1), -1
	for n := 0; n < c.NP; n++ {
		v, l := c.sumSlots[n], c.locSlots[n]
		if v < min || (v == min && l < minLoc) {
			min, minLoc = v, l
		}
	}
	c.Barrier()
	return
}
