package solver

import (
	"math"
	"sync"
	"testing"

	"github.com/notargets/heatdist/utils"
	"github.com/stretchr/testify/assert"
)

func runRanks(np int, fn func(myRank int)) {
	var wg sync.WaitGroup
	for n := 0; n < np; n++ {
		wg.Add(1)
		go func(myRank int) {
			defer wg.Done()
			fn(myRank)
		}(n)
	}
	wg.Wait()
}

// laplacian1D builds the standard tridiagonal [-1 2 -1] operator with
// Dirichlet ends, split into owned row blocks.
func laplacian1D(n, np int) (ops []*utils.RowMatrix) {
	pm := utils.NewPartitionMap(np, n)
	for p := 0; p < np; p++ {
		var (
			d      = utils.NewDOK(n, n)
			lo, hi = pm.GetBucketRange(p)
		)
		for i := lo; i < hi; i++ {
			d.Set(i, i, 2)
			if i > 0 {
				d.Set(i, i-1, -1)
			}
			if i < n-1 {
				d.Set(i, i+1, -1)
			}
		}
		ops = append(ops, utils.NewRowMatrix(d, lo, hi))
	}
	return
}

func residual(ops []*utils.RowMatrix, X, B []float64) (res float64) {
	var (
		n  = len(X)
		ax = make([]float64, n)
	)
	for _, op := range ops {
		op.Mult(X, ax)
	}
	for i := 0; i < n; i++ {
		d := B[i] - ax[i]
		res += d * d
	}
	return math.Sqrt(res)
}

func TestCG(t *testing.T) {
	// Plain CG solves the 1D Laplacian across two ranks
	{
		var (
			np   = 2
			n    = 32
			comm = utils.NewComm(np)
			ops  = laplacian1D(n, np)
			cg   = NewCG(comm, n)
			B    = make([]float64, n)
			X    = make([]float64, n)
			conv = make([]bool, np)
		)
		for i := range B {
			B[i] = 1
		}
		runRanks(np, func(myRank int) {
			c, _, _ := cg.Solve(myRank, ops[myRank], nil, B, X)
			conv[myRank] = c
		})
		for p := 0; p < np; p++ {
			assert.True(t, conv[p])
		}
		assert.True(t, residual(ops, X, B) < 1.e-9, "residual %e", residual(ops, X, B))
	}
	// Capping iterations at one reports non convergence with a finite,
	// well formed iterate
	{
		var (
			np   = 2
			n    = 32
			comm = utils.NewComm(np)
			ops  = laplacian1D(n, np)
			cg   = NewCG(comm, n)
			B    = make([]float64, n)
			X    = make([]float64, n)
		)
		cg.MaxIter = 1
		for i := range B {
			B[i] = 1
		}
		var (
			convs = make([]bool, np)
			iters = make([]int, np)
			ress  = make([]float64, np)
		)
		runRanks(np, func(myRank int) {
			convs[myRank], iters[myRank], ress[myRank] = cg.Solve(myRank, ops[myRank], nil, B, X)
		})
		for p := 0; p < np; p++ {
			assert.False(t, convs[p])
			assert.Equal(t, 1, iters[p])
			assert.True(t, ress[p] > 0 && !math.IsNaN(ress[p]) && !math.IsInf(ress[p], 0))
		}
		for _, v := range X {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
}

func TestCGWithAMG(t *testing.T) {
	// The AMG preconditioned solve agrees with the plain CG solution
	var (
		np   = 2
		n    = 64
		comm = utils.NewComm(np)
		ops  = laplacian1D(n, np)
		cg   = NewCG(comm, n)
		amg  = NewAMG(comm)
		B    = make([]float64, n)
		X    = make([]float64, n)
		Xref = make([]float64, n)
		its  = make([]int, np)
	)
	for i := range B {
		B[i] = math.Sin(float64(i))
	}
	runRanks(np, func(myRank int) {
		cg.Solve(myRank, ops[myRank], nil, B, Xref)
	})
	runRanks(np, func(myRank int) {
		amg.Setup(myRank, ops[myRank])
		c, it, _ := cg.Solve(myRank, ops[myRank], amg, B, X)
		assert.True(t, c)
		its[myRank] = it
	})
	for i := range X {
		assert.InDelta(t, Xref[i], X[i], 1.e-6)
	}
	assert.True(t, residual(ops, X, B) < 1.e-8)
}
