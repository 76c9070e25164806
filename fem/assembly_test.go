package fem

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

// refBilinearAssembly is the reference strategy: a plain serial sweep
// over every element with direct accumulation. Single rank only.
type refBilinearAssembly struct {
	a *BilinearForm
}

func (ext *refBilinearAssembly) Assemble() (err error) {
	var (
		a  = ext.a
		sp = a.Space
	)
	q, err := DefaultRule(sp.Mesh.Geom, sp.Order)
	if err != nil {
		return
	}
	a.Rows = utils.NewDOK(sp.NDofs, sp.NDofs)
	for k := range sp.Mesh.Elements {
		trans := NewElemTransform(sp.Mesh, k)
		dofs := sp.ElemDofs[k]
		for _, bi := range a.Integrators {
			em := bi.ElementMatrix(sp, trans, q)
			for i, gi := range dofs {
				for j, gj := range dofs {
					a.Rows.Accumulate(gi, gj, em.At(i, j))
				}
			}
		}
	}
	return
}

func matrixSum(d utils.DOK) (sum float64) {
	d.DoNonZero(func(i, j int, v float64) { sum += v })
	return
}

func TestMassMatrixTotal(t *testing.T) {
	// Sum of all mass matrix entries is the domain volume, since the
	// basis sums to one
	for _, name := range []string{"inline-segment", "inline-quad", "inline-tri"} {
		sp := buildSpace(t, name, 0, 2, 1)
		var (
			comm = utils.NewComm(1)
			mail = utils.NewMailBox[Contribution](1)
			a    = NewBilinearForm(sp, 0, comm, mail)
		)
		a.AddDomainIntegrator(MassIntegrator{Coeff: ConstantCoefficient{C: 1}})
		runRanks(1, func(myRank int) {
			assert.NoError(t, a.Assemble())
		})
		assert.InDelta(t, 1.0, matrixSum(a.Rows), 1.e-10, name)
	}
}

func TestDiffusionRowSums(t *testing.T) {
	// Constants are in the kernel of the diffusion operator
	sp := buildSpace(t, "inline-quad", 0, 2, 1)
	var (
		comm = utils.NewComm(1)
		mail = utils.NewMailBox[Contribution](1)
		a    = NewBilinearForm(sp, 0, comm, mail)
	)
	a.AddDomainIntegrator(DiffusionIntegrator{Coeff: ConstantCoefficient{C: 1}})
	runRanks(1, func(myRank int) {
		assert.NoError(t, a.Assemble())
	})
	rowSums := make([]float64, sp.NDofs)
	a.Rows.DoNonZero(func(i, j int, v float64) { rowSums[i] += v })
	for i, s := range rowSums {
		assert.InDelta(t, 0.0, s, 1.e-10, "row %d", i)
	}
}

func TestAssemblyStrategyEquivalence(t *testing.T) {
	// The full strategy and the reference serial sweep agree to
	// floating point reordering
	sp := buildSpace(t, "inline-tri", 1, 2, 1)
	var (
		comm = utils.NewComm(1)
		mail = utils.NewMailBox[Contribution](1)
		a    = NewBilinearForm(sp, 0, comm, mail)
		ref  = NewBilinearForm(sp, 0, comm, mail)
	)
	for _, f := range []*BilinearForm{a, ref} {
		f.AddDomainIntegrator(MassIntegrator{Coeff: ConstantCoefficient{C: 1}})
		f.AddDomainIntegrator(DiffusionIntegrator{Coeff: ConstantCoefficient{C: 0.01}})
	}
	ref.SetAssemblyExtension(&refBilinearAssembly{a: ref})
	runRanks(1, func(myRank int) {
		assert.NoError(t, a.Assemble())
	})
	assert.NoError(t, ref.Assemble())
	var (
		lo, hi = sp.OwnedRange(0)
		am     = utils.NewRowMatrix(a.Rows, lo, hi)
		rm     = utils.NewRowMatrix(ref.Rows, lo, hi)
		norm   = am.FrobeniusDiff(&utils.RowMatrix{M: utils.NewDOK(sp.NDofs, sp.NDofs).ToCSR(), Lo: lo, Hi: hi})
	)
	diff := am.FrobeniusDiff(rm)
	assert.True(t, diff <= 1.e-10*norm, "diff %e vs norm %e", diff, norm)
}

func TestParallelAssemblyConsistency(t *testing.T) {
	// Merging the owned rows of three ranks reproduces the serial result
	var (
		np     = 3
		spPar  = buildSpace(t, "inline-segment", 2, 2, np)
		spSer  = buildSpace(t, "inline-segment", 2, 2, 1)
		comm   = utils.NewComm(np)
		mail   = utils.NewMailBox[Contribution](np)
		forms  = make([]*BilinearForm, np)
		merged = utils.NewDOK(spPar.NDofs, spPar.NDofs)
	)
	runRanks(np, func(myRank int) {
		a := NewBilinearForm(spPar, myRank, comm, mail)
		a.AddDomainIntegrator(MassIntegrator{Coeff: ConstantCoefficient{C: 1}})
		a.AddDomainIntegrator(DiffusionIntegrator{Coeff: ConstantCoefficient{C: 0.5}})
		forms[myRank] = a
		assert.NoError(t, a.Assemble())
	})
	for _, a := range forms {
		a.Rows.DoNonZero(func(i, j int, v float64) { merged.Accumulate(i, j, v) })
	}
	var (
		scomm = utils.NewComm(1)
		smail = utils.NewMailBox[Contribution](1)
		ser   = NewBilinearForm(spSer, 0, scomm, smail)
	)
	ser.AddDomainIntegrator(MassIntegrator{Coeff: ConstantCoefficient{C: 1}})
	ser.AddDomainIntegrator(DiffusionIntegrator{Coeff: ConstantCoefficient{C: 0.5}})
	runRanks(1, func(myRank int) {
		assert.NoError(t, ser.Assemble())
	})
	var maxDiff float64
	merged.DoNonZero(func(i, j int, v float64) {
		if d := math.Abs(v - ser.Rows.At(i, j)); d > maxDiff {
			maxDiff = d
		}
	})
	assert.True(t, maxDiff < 1.e-10, "max entry difference %e", maxDiff)
}

func TestAssemblyIdempotent(t *testing.T) {
	// A second Assemble overwrites, it does not double
	sp := buildSpace(t, "inline-segment", 0, 1, 1)
	var (
		comm = utils.NewComm(1)
		mail = utils.NewMailBox[Contribution](1)
		a    = NewBilinearForm(sp, 0, comm, mail)
	)
	a.AddDomainIntegrator(MassIntegrator{Coeff: ConstantCoefficient{C: 1}})
	runRanks(1, func(myRank int) {
		assert.NoError(t, a.Assemble())
	})
	first := matrixSum(a.Rows)
	runRanks(1, func(myRank int) {
		assert.NoError(t, a.Assemble())
	})
	assert.InDelta(t, first, matrixSum(a.Rows), 1.e-14)
}

func TestUnsupportedIntegratorFailsFast(t *testing.T) {
	sp := buildSpace(t, "inline-segment", 0, 1, 1)
	var (
		comm = utils.NewComm(1)
		mail = utils.NewMailBox[Contribution](1)
		lf   = NewLinearForm(sp, 0, comm, mail)
	)
	lf.AddDomainIntegrator(DomainLFIntegrator{Coeff: ConstantCoefficient{C: 1}})
	lf.AddBoundaryIntegrator(BoundaryLFIntegrator{Coeff: ConstantCoefficient{C: 1}})
	err := lf.Assemble()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "domain integrators only")
}

func TestLinearFormTotal(t *testing.T) {
	// The unit load integrates to the domain volume
	sp := buildSpace(t, "inline-quad", 0, 2, 1)
	var (
		comm = utils.NewComm(1)
		mail = utils.NewMailBox[Contribution](1)
		lf   = NewLinearForm(sp, 0, comm, mail)
	)
	lf.AddDomainIntegrator(DomainLFIntegrator{Coeff: ConstantCoefficient{C: 1}})
	runRanks(1, func(myRank int) {
		assert.NoError(t, lf.Assemble())
	})
	var sum float64
	for _, v := range lf.Vec {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1.e-10)
}

func TestFormLinearSystem(t *testing.T) {
	// DIAG_ONE elimination: unit diagonal on essential rows, prescribed
	// values in the reduced right hand side
	sp := buildSpace(t, "inline-segment", 0, 1, 1)
	var (
		comm = utils.NewComm(1)
		mail = utils.NewMailBox[Contribution](1)
		a    = NewBilinearForm(sp, 0, comm, mail)
		b    = NewLinearForm(sp, 0, comm, mail)
		x    = NewGridFunction(sp)
		X    = make([]float64, sp.NDofs)
	)
	a.AddDomainIntegrator(DiffusionIntegrator{Coeff: ConstantCoefficient{C: 1}})
	b.AddDomainIntegrator(DomainLFIntegrator{Coeff: ConstantCoefficient{C: 1}})
	ess := sp.EssentialTrueDofs([]int{1, 1})
	x.SetSubVector(ess, 0.25)
	var (
		A *utils.RowMatrix
		B []float64
	)
	runRanks(1, func(myRank int) {
		assert.NoError(t, a.Assemble())
		assert.NoError(t, b.Assemble())
		A, B = a.FormLinearSystem(ess, x, b, X)
	})
	for _, d := range ess {
		assert.InDelta(t, 1.0, A.M.At(d, d), 1.e-14)
		assert.InDelta(t, 0.25, B[d], 1.e-14)
		assert.InDelta(t, 0.25, X[d], 1.e-14)
	}
	// Essential rows and columns carry no off diagonal entries
	essSet := ess.ToMap()
	raw := A.M.RawMatrix()
	for i := 0; i < sp.NDofs; i++ {
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			j := raw.Ind[jj]
			if i == j {
				continue
			}
			_, iEss := essSet[i]
			_, jEss := essSet[j]
			assert.False(t, iEss || jEss, "entry (%d,%d) should be eliminated", i, j)
		}
	}
	// Recovery keeps the prescribed essential values even if the iterate
	// drifted on those decoupled rows
	X[ess[0]] = 0.3
	runRanks(1, func(myRank int) {
		a.RecoverFEMSolution(X, x)
	})
	for _, d := range ess {
		assert.Equal(t, 0.25, x.Vec[d])
	}
}

func TestGradientCoefficient(t *testing.T) {
	// For u = x the unit direction field is -1 along x
	sp := buildSpace(t, "inline-segment", 1, 2, 1)
	u := NewGridFunction(sp)
	for d := 0; d < sp.NDofs; d++ {
		u.Vec[d] = sp.DofCoords[d][0]
	}
	var (
		g     = NewGradientCoefficient(u)
		trans = NewElemTransform(sp.Mesh, 0)
		v     = make([]float64, 1)
	)
	g.EvalVector(&EvalContext{Trans: trans, RefPt: []float64{0.3}}, v)
	assert.InDelta(t, -1.0, v[0], 1.e-9)
}

// planeField is an affine test coefficient, reproduced exactly by any
// order of Lagrange interpolation.
type planeField struct{}

func (planeField) Eval(ctx *EvalContext) float64 {
	return ctx.PhysPt[0] + 2*ctx.PhysPt[1]
}

func TestGridFunctionCoefficient(t *testing.T) {
	// Sampling a projected field through the coefficient wrapper
	// reproduces the field at every node
	sp := buildSpace(t, "inline-quad", 1, 2, 1)
	u := NewGridFunction(sp)
	u.ProjectCoefficient(planeField{}, 0)
	v := NewGridFunction(sp)
	v.ProjectCoefficient(GridFunctionCoefficient{U: u}, 0)
	for d := 0; d < sp.NDofs; d++ {
		assert.InDelta(t, u.Vec[d], v.Vec[d], 1.e-12)
	}
}
