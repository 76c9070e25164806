package solver

import (
	"fmt"
	"math"

	"github.com/notargets/heatdist/utils"
)

// Operator applies the owned rows of a distributed linear operator.
type Operator interface {
	Size() int
	OwnedRange() (lo, hi int)
	Mult(x, y []float64)
}

// Preconditioner applies z = M^-1 r. Collective: every rank must call
// Apply with the same shared vectors.
type Preconditioner interface {
	Apply(myRank int, r, z []float64)
}

// CG is a preconditioned conjugate gradient solver over row-distributed
// operators. The scratch vectors are shared by all ranks; each rank
// writes only its owned range, with barriers separating write and read
// phases. Construct once per rank set, Solve per stage.
type CG struct {
	Comm       *utils.Comm
	RelTol     float64
	MaxIter    int
	PrintLevel int

	r, z, p, ap []float64
}

func NewCG(comm *utils.Comm, n int) (cg *CG) {
	cg = &CG{
		Comm:    comm,
		RelTol:  1.e-12,
		MaxIter: 100,
		r:       make([]float64, n),
		z:       make([]float64, n),
		p:       make([]float64, n),
		ap:      make([]float64, n),
	}
	return
}

func (cg *CG) dot(myRank, lo, hi int, a, b []float64) float64 {
	var sum float64
	for i := lo; i < hi; i++ {
		sum += a[i] * b[i]
	}
	return cg.Comm.AllreduceSum(myRank, sum)
}

// Solve runs PCG on A X = B, X holding the initial iterate on entry and
// the best iterate on exit. B need only be valid on the owned range. A
// nil preconditioner gives plain CG. Returns convergence status with the
// iteration count and final relative residual. Collective.
func (cg *CG) Solve(myRank int, A Operator, M Preconditioner, B, X []float64) (converged bool, iters int, relRes float64) {
	var (
		lo, hi = A.OwnedRange()
	)
	A.Mult(X, cg.ap)
	for i := lo; i < hi; i++ {
		cg.r[i] = B[i] - cg.ap[i]
	}
	cg.Comm.Barrier()
	cg.precond(myRank, M, lo, hi)
	for i := lo; i < hi; i++ {
		cg.p[i] = cg.z[i]
	}
	rz := cg.dot(myRank, lo, hi, cg.r, cg.z)
	r0 := math.Sqrt(cg.dot(myRank, lo, hi, cg.r, cg.r))
	if r0 == 0 {
		return true, 0, 0
	}
	if cg.PrintLevel > 0 && myRank == 0 {
		fmt.Printf("   Iteration : %3d  ||r|| = %e\n", 0, r0)
	}
	for it := 1; it <= cg.MaxIter; it++ {
		A.Mult(cg.p, cg.ap)
		pAp := cg.dot(myRank, lo, hi, cg.p, cg.ap)
		if pAp <= 0 {
			// Non SPD or breakdown, return the current iterate
			return false, it - 1, relRes
		}
		alpha := rz / pAp
		for i := lo; i < hi; i++ {
			X[i] += alpha * cg.p[i]
			cg.r[i] -= alpha * cg.ap[i]
		}
		cg.Comm.Barrier()
		rr := math.Sqrt(cg.dot(myRank, lo, hi, cg.r, cg.r))
		relRes, iters = rr/r0, it
		if cg.PrintLevel > 1 && myRank == 0 {
			fmt.Printf("   Iteration : %3d  ||r|| = %e\n", it, rr)
		}
		if relRes < cg.RelTol {
			converged = true
			break
		}
		cg.precond(myRank, M, lo, hi)
		rzNew := cg.dot(myRank, lo, hi, cg.r, cg.z)
		beta := rzNew / rz
		rz = rzNew
		for i := lo; i < hi; i++ {
			cg.p[i] = cg.z[i] + beta*cg.p[i]
		}
		cg.Comm.Barrier()
	}
	cg.Comm.Barrier() // X writes land before callers read neighbors
	if cg.PrintLevel > 0 && myRank == 0 {
		if converged {
			fmt.Printf("   Converged in %d iterations, relative residual %e\n", iters, relRes)
		} else {
			fmt.Printf("   No convergence in %d iterations, relative residual %e\n", iters, relRes)
		}
	}
	return
}

// precond fills the owned range of z, through M when present.
func (cg *CG) precond(myRank int, M Preconditioner, lo, hi int) {
	if M == nil {
		for i := lo; i < hi; i++ {
			cg.z[i] = cg.r[i]
		}
		cg.Comm.Barrier()
		return
	}
	M.Apply(myRank, cg.r, cg.z)
}
