package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComm(t *testing.T) {
	// AllreduceSum is deterministic and identical on every rank
	{
		var (
			NP   = 4
			c    = NewComm(NP)
			sums = make([]float64, NP)
			wg   sync.WaitGroup
		)
		for n := 0; n < NP; n++ {
			wg.Add(1)
			go func(myRank int) {
				defer wg.Done()
				sums[myRank] = c.AllreduceSum(myRank, float64(myRank+1))
			}(n)
		}
		wg.Wait()
		for n := 0; n < NP; n++ {
			assert.Equal(t, 10., sums[n])
		}
	}
	// AllreduceMin
	{
		var (
			NP   = 3
			c    = NewComm(NP)
			mins = make([]float64, NP)
			vals = []float64{3, -7, 2}
			wg   sync.WaitGroup
		)
		for n := 0; n < NP; n++ {
			wg.Add(1)
			go func(myRank int) {
				defer wg.Done()
				mins[myRank] = c.AllreduceMin(myRank, vals[myRank])
			}(n)
		}
		wg.Wait()
		for n := 0; n < NP; n++ {
			assert.Equal(t, -7., mins[n])
		}
	}
	// AllreduceMinLoc resolves ties to the lowest tagged index
	{
		var (
			NP   = 3
			c    = NewComm(NP)
			locs = make([]int, NP)
			wg   sync.WaitGroup
		)
		for n := 0; n < NP; n++ {
			wg.Add(1)
			go func(myRank int) {
				defer wg.Done()
				_, locs[myRank] = c.AllreduceMinLoc(myRank, 1.0, 10+myRank)
			}(n)
		}
		wg.Wait()
		for n := 0; n < NP; n++ {
			assert.Equal(t, 10, locs[n])
		}
	}
	// Repeated barriers do not deadlock across generations
	{
		var (
			NP = 2
			c  = NewComm(NP)
			wg sync.WaitGroup
		)
		for n := 0; n < NP; n++ {
			wg.Add(1)
			go func(myRank int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					c.Barrier()
				}
			}(n)
		}
		wg.Wait()
	}
}
