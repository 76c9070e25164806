package solver

import (
	"math"

	"github.com/james-bowman/sparse"
	"github.com/notargets/heatdist/utils"
	"gonum.org/v1/gonum/mat"
)

// AMG is an aggregation based algebraic multigrid preconditioner.
// Setup gathers the row-distributed operator onto rank 0, which builds
// the hierarchy: strength-filtered greedy aggregation, piecewise constant
// prolongation, Galerkin coarse operators. Smoothing is damped Jacobi.
// The coarsest level solves with a dense pseudo-inverse, which also
// covers the singular pure-Neumann operators of the Poisson stage.
// Rank 0 applies the V-cycle while the other ranks wait at a barrier.
type AMG struct {
	Comm       *utils.Comm
	Theta      float64 // strength threshold
	Omega      float64 // Jacobi damping
	MaxLevels  int
	CoarseSize int

	slots  []*utils.RowMatrix
	levels []*amgLevel
}

type amgLevel struct {
	a      *sparse.CSR
	diag   []float64
	p, pt  *sparse.CSR // nil at the coarsest level
	nf, nc int

	x, r, rc, xc []float64 // cycle scratch
	coarseInv    *mat.Dense
}

func NewAMG(comm *utils.Comm) (amg *AMG) {
	amg = &AMG{
		Comm:       comm,
		Theta:      0.25,
		Omega:      2. / 3.,
		MaxLevels:  10,
		CoarseSize: 20,
		slots:      make([]*utils.RowMatrix, comm.NP),
	}
	return
}

// Setup rebuilds the hierarchy from the current operator. Called fresh
// before every solve, never reused across stages. Collective.
func (amg *AMG) Setup(myRank int, A *utils.RowMatrix) {
	amg.slots[myRank] = A
	amg.Comm.Barrier()
	if myRank == 0 {
		amg.build()
	}
	amg.Comm.Barrier()
}

// build merges the per-rank owned rows into one global operator and
// coarsens until the level is small or the level cap is reached.
func (amg *AMG) build() {
	var (
		n = amg.slots[0].Size()
		d = utils.NewDOK(n, n)
	)
	for _, rm := range amg.slots {
		lo, hi := rm.OwnedRange()
		raw := rm.M.RawMatrix()
		for i := lo; i < hi; i++ {
			for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
				d.Set(i, raw.Ind[jj], raw.Data[jj])
			}
		}
	}
	amg.levels = amg.levels[:0]
	a := d.ToCSR()
	for {
		lvl := newLevel(a)
		amg.levels = append(amg.levels, lvl)
		if lvl.nf <= amg.CoarseSize || len(amg.levels) == amg.MaxLevels {
			lvl.factorCoarse()
			return
		}
		agg, nc := amg.aggregate(a)
		if nc == lvl.nf { // no coarsening progress
			lvl.factorCoarse()
			return
		}
		lvl.setProlongation(agg, nc)
		a = galerkin(lvl.pt, a, lvl.p)
	}
}

func newLevel(a *sparse.CSR) (lvl *amgLevel) {
	n, _ := a.Dims()
	lvl = &amgLevel{
		a:    a,
		nf:   n,
		diag: make([]float64, n),
		x:    make([]float64, n),
		r:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		lvl.diag[i] = a.At(i, i)
		if lvl.diag[i] == 0 {
			lvl.diag[i] = 1
		}
	}
	return
}

// aggregate greedily groups each node with its strong neighbors, then
// attaches the leftovers to an adjacent aggregate.
func (amg *AMG) aggregate(a *sparse.CSR) (agg []int, nc int) {
	var (
		n, _ = a.Dims()
		raw  = a.RawMatrix()
	)
	agg = make([]int, n)
	for i := range agg {
		agg[i] = -1
	}
	strong := func(i, jj int) bool {
		j := raw.Ind[jj]
		if j == i {
			return false
		}
		v := raw.Data[jj]
		return v*v > amg.Theta*amg.Theta*math.Abs(a.At(i, i)*a.At(j, j))
	}
	for i := 0; i < n; i++ {
		if agg[i] >= 0 {
			continue
		}
		free := true
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			if strong(i, jj) && agg[raw.Ind[jj]] >= 0 {
				free = false
				break
			}
		}
		if !free {
			continue
		}
		agg[i] = nc
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			if strong(i, jj) {
				agg[raw.Ind[jj]] = nc
			}
		}
		nc++
	}
	for i := 0; i < n; i++ {
		if agg[i] >= 0 {
			continue
		}
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			if strong(i, jj) && agg[raw.Ind[jj]] >= 0 {
				agg[i] = agg[raw.Ind[jj]]
				break
			}
		}
		if agg[i] < 0 { // isolated node becomes its own aggregate
			agg[i] = nc
			nc++
		}
	}
	return
}

func (lvl *amgLevel) setProlongation(agg []int, nc int) {
	var (
		dp  = utils.NewDOK(lvl.nf, nc)
		dpt = utils.NewDOK(nc, lvl.nf)
	)
	for i, c := range agg {
		dp.Set(i, c, 1)
		dpt.Set(c, i, 1)
	}
	lvl.p, lvl.pt = dp.ToCSR(), dpt.ToCSR()
	lvl.nc = nc
	lvl.rc = make([]float64, nc)
	lvl.xc = make([]float64, nc)
}

// galerkin forms the coarse operator Pt A P with sparse products.
func galerkin(pt, a, p *sparse.CSR) (ac *sparse.CSR) {
	var ap, res sparse.CSR
	ap.Mul(a, p)
	res.Mul(pt, &ap)
	return &res
}

// factorCoarse builds the dense pseudo-inverse of the coarsest operator.
func (lvl *amgLevel) factorCoarse() {
	var (
		n  = lvl.nf
		ad = mat.NewDense(n, n, nil)
	)
	raw := lvl.a.RawMatrix()
	for i := 0; i < n; i++ {
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			ad.Set(i, raw.Ind[jj], raw.Data[jj])
		}
	}
	var svd mat.SVD
	if ok := svd.Factorize(ad, mat.SVDFull); !ok {
		panic("SVD of coarse AMG operator failed")
	}
	var (
		u, v mat.Dense
		s    = svd.Values(nil)
	)
	svd.UTo(&u)
	svd.VTo(&v)
	tol := float64(n) * s[0] * 1.e-14
	sinv := mat.NewDense(n, n, nil)
	for i, sv := range s {
		if sv > tol {
			sinv.Set(i, i, 1./sv)
		}
	}
	lvl.coarseInv = mat.NewDense(n, n, nil)
	var t mat.Dense
	t.Mul(sinv, u.T())
	lvl.coarseInv.Mul(&v, &t)
}

func csrMult(a *sparse.CSR, x, y []float64) {
	raw := a.RawMatrix()
	n, _ := a.Dims()
	for i := 0; i < n; i++ {
		var sum float64
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			sum += raw.Data[jj] * x[raw.Ind[jj]]
		}
		y[i] = sum
	}
}

// Apply runs one V-cycle, z = M^-1 r. Collective.
func (amg *AMG) Apply(myRank int, r, z []float64) {
	if myRank == 0 {
		amg.vcycle(0, r, z)
	}
	amg.Comm.Barrier()
}

func (amg *AMG) vcycle(l int, r, x []float64) {
	lvl := amg.levels[l]
	if lvl.p == nil {
		// Coarsest: x = pinv(A) r
		for i := 0; i < lvl.nf; i++ {
			var sum float64
			for j := 0; j < lvl.nf; j++ {
				sum += lvl.coarseInv.At(i, j) * r[j]
			}
			x[i] = sum
		}
		return
	}
	// Pre-smooth from zero: x = omega D^-1 r
	for i := 0; i < lvl.nf; i++ {
		x[i] = amg.Omega * r[i] / lvl.diag[i]
	}
	csrMult(lvl.a, x, lvl.r)
	for i := 0; i < lvl.nf; i++ {
		lvl.r[i] = r[i] - lvl.r[i]
	}
	csrMult(lvl.pt, lvl.r, lvl.rc)
	for i := range lvl.xc {
		lvl.xc[i] = 0
	}
	amg.vcycle(l+1, lvl.rc, lvl.xc)
	csrMult(lvl.p, lvl.xc, lvl.x)
	for i := 0; i < lvl.nf; i++ {
		x[i] += lvl.x[i]
	}
	// Post-smooth
	csrMult(lvl.a, x, lvl.r)
	for i := 0; i < lvl.nf; i++ {
		x[i] += amg.Omega * (r[i] - lvl.r[i]) / lvl.diag[i]
	}
}
