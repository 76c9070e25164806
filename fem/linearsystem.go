package fem

import (
	"github.com/notargets/heatdist/utils"
)

// FormLinearSystem eliminates the essential dofs from the assembled
// operator and right hand side. Essential rows and columns are dropped, a
// unit diagonal is placed on essential rows, and the right hand side is
// corrected by the prescribed values held in x. X is the shared iterate
// vector; its owned range is seeded from x. Collective.
func (bf *BilinearForm) FormLinearSystem(ess utils.Index, x *GridFunction,
	b *LinearForm, X []float64) (A *utils.RowMatrix, B []float64) {
	var (
		sp     = bf.Space
		n      = sp.NDofs
		lo, hi = sp.OwnedRange(bf.MyRank)
		essMap = ess.ToMap()
		d      = utils.NewDOK(n, n)
	)
	bf.ess = essMap
	B = make([]float64, n)
	for i := lo; i < hi; i++ {
		B[i] = b.Vec[i]
	}
	bf.Rows.DoNonZero(func(i, j int, v float64) {
		var (
			_, iEss = essMap[i]
			_, jEss = essMap[j]
		)
		switch {
		case !iEss && !jEss:
			d.Set(i, j, v)
		case !iEss && jEss:
			B[i] -= v * x.Vec[j]
		}
	})
	for i := lo; i < hi; i++ {
		if _, isEss := essMap[i]; isEss {
			d.Set(i, i, 1)
			B[i] = x.Vec[i]
		}
		X[i] = x.Vec[i]
	}
	A = utils.NewRowMatrix(d, lo, hi)
	bf.Comm.Barrier()
	return
}

// RecoverFEMSolution scatters the solved iterate back into the grid
// function. Eliminated dofs keep the prescribed values already held in x,
// so boundary conditions hold exactly no matter what the preconditioned
// iteration did to those decoupled rows. The barrier guarantees that
// every rank observes consistent shared dof values afterward. Collective.
func (bf *BilinearForm) RecoverFEMSolution(X []float64, x *GridFunction) {
	var (
		lo, hi = bf.Space.OwnedRange(bf.MyRank)
	)
	for i := lo; i < hi; i++ {
		if _, isEss := bf.ess[i]; isEss {
			continue
		}
		x.Vec[i] = X[i]
	}
	bf.Comm.Barrier()
}
