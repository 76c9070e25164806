package HeatDistance

import (
	"fmt"
	"sync"

	"github.com/notargets/heatdist/InputParameters"
	"github.com/notargets/heatdist/fem"
	"github.com/notargets/heatdist/mesh"
	"github.com/notargets/heatdist/solver"
	"github.com/notargets/heatdist/utils"
)

// HeatDistance runs the heat method over a decomposed mesh: diffuse a
// point source under Dirichlet and under Neumann boundary conditions,
// blend the two fields, normalize the blended gradient, then solve a
// Poisson problem against that direction field and shift the result so
// its minimum is zero. Each rank is a goroutine; the stage sequence is
// strictly collective.
type HeatDistance struct {
	// Input parameters
	MeshName    string
	Refinements int
	Order       int
	TParam      float64
	Problem     int // 0: Dirichlet walls in the first stage, 1: free space
	NP          int
	Source      []float64

	Mesh   *mesh.Mesh
	Decomp *mesh.Decomposition
	Space  *fem.Space
	VSpace *fem.Space // mesh.Dim components, for the direction field
	Comm   *utils.Comm
	Mail   *utils.MailBox[fem.Contribution]
	H      float64

	// Terminal state fields
	U0, UDirichlet, UNeumann *fem.GridFunction
	U, Distance              *fem.GridFunction
	GradField                *fem.GridFunction

	x, b []float64 // shared iterate and rhs scratch
	cg   *solver.CG
	amg  *solver.AMG
}

func NewHeatDistance(ip *InputParameters.DistanceParameters) (hd *HeatDistance, err error) {
	m, err := mesh.Generate(ip.Mesh, ip.Refinements)
	if err != nil {
		return
	}
	np := ip.NProc
	if np < 1 {
		np = 1
	}
	dec, err := mesh.Decompose(m, np)
	if err != nil {
		return
	}
	sp, err := fem.NewSpace(m, ip.Order, dec)
	if err != nil {
		return
	}
	vsp, err := fem.NewVectorSpace(m, sp.Order, dec, m.Dim)
	if err != nil {
		return
	}
	hd = &HeatDistance{
		MeshName:    ip.Mesh,
		Refinements: ip.Refinements,
		Order:       sp.Order,
		TParam:      ip.TParam,
		Problem:     ip.Problem,
		NP:          np,
		Source:      sourcePoint(m, ip.SourceX),
		Mesh:        m,
		Decomp:      dec,
		Space:       sp,
		VSpace:      vsp,
		Comm:        utils.NewComm(np),
		Mail:        utils.NewMailBox[fem.Contribution](np),
	}
	hd.U0 = fem.NewGridFunction(sp)
	hd.UDirichlet = fem.NewGridFunction(sp)
	hd.UNeumann = fem.NewGridFunction(sp)
	hd.U = fem.NewGridFunction(sp)
	hd.Distance = fem.NewGridFunction(sp)
	hd.GradField = fem.NewGridFunction(vsp)
	hd.x = make([]float64, sp.NDofs)
	hd.b = make([]float64, sp.NDofs)
	hd.cg = solver.NewCG(hd.Comm, sp.NDofs)
	hd.amg = solver.NewAMG(hd.Comm)
	fmt.Printf("%s\n", sp.String())
	return
}

// sourcePoint places the source at x0 along the first axis and centers
// the remaining coordinates.
func sourcePoint(m *mesh.Mesh, x0 float64) (pt []float64) {
	pt = make([]float64, m.Dim)
	pt[0] = x0
	for d := 1; d < m.Dim; d++ {
		pt[d] = 0.5
	}
	return
}

// Run executes the full stage sequence on NP cooperating goroutines and
// blocks until the distance field is calibrated.
func (hd *HeatDistance) Run() (err error) {
	var (
		wg   sync.WaitGroup
		errs = make([]error, hd.NP)
	)
	for n := 0; n < hd.NP; n++ {
		wg.Add(1)
		go func(myRank int) {
			defer wg.Done()
			errs[myRank] = hd.runRank(myRank)
		}(n)
	}
	wg.Wait()
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return
}

func (hd *HeatDistance) runRank(myRank int) (err error) {
	var (
		sp    = hd.Space
		h, dt = hd.diffusionStep(myRank)
	)
	if myRank == 0 {
		hd.H = h
		fmt.Printf("h = %8.6f, dt = %8.6f, t_param = %8.4f\n", h, dt, hd.TParam)
	}

	// Stage 1: seed the point source
	hd.U0.ProjectDelta(&fem.DeltaCoefficient{Center: hd.Source, Scale: 1}, myRank, hd.Comm)
	hd.Comm.Barrier()

	// Stage 2: diffusion with essential boundary values
	allBdr := make([]int, hd.Mesh.BdrAttributeMax())
	if hd.Problem == 0 {
		for i := range allBdr {
			allBdr[i] = 1
		}
	}
	ess := sp.EssentialTrueDofs(allBdr)
	if err = hd.diffuse(myRank, dt, ess, hd.UDirichlet); err != nil {
		return
	}

	// Stage 3: same operator, natural boundary everywhere
	if err = hd.diffuse(myRank, dt, nil, hd.UNeumann); err != nil {
		return
	}

	// Stage 4: blend
	lo, hi := sp.OwnedRange(myRank)
	for i := lo; i < hi; i++ {
		hd.U.Vec[i] = 0.5 * (hd.UDirichlet.Vec[i] + hd.UNeumann.Vec[i])
	}
	hd.Comm.Barrier()

	// Stage 5: normalized gradient direction field, for diagnostics
	grad := fem.NewGradientCoefficient(hd.U)
	hd.GradField.ProjectVectorCoefficient(grad, myRank)
	hd.Comm.Barrier()

	// Stage 6: Poisson solve against the direction field
	if err = hd.poisson(myRank, grad); err != nil {
		return
	}

	// Stage 7: calibrate to min zero
	dmin := hd.Distance.Vec[lo]
	for i := lo + 1; i < hi; i++ {
		if hd.Distance.Vec[i] < dmin {
			dmin = hd.Distance.Vec[i]
		}
	}
	dmin = hd.Comm.AllreduceMin(myRank, dmin)
	for i := lo; i < hi; i++ {
		hd.Distance.Vec[i] -= dmin
	}
	hd.Comm.Barrier()
	if myRank == 0 {
		fmt.Printf("distance field calibrated, max = %8.6f\n", maxOf(hd.Distance.Vec))
	}
	return
}

// diffusionStep reduces the element volumes across ranks and applies the
// geometry specific size formula, dt = t_param * h^2. Every rank gets the
// same h from the reduction; only rank 0 records it on the driver.
func (hd *HeatDistance) diffusionStep(myRank int) (h, dt float64) {
	var (
		vol  float64
		elms = hd.Space.RankElements(myRank)
	)
	for _, k := range elms {
		vol += hd.Mesh.ElementVolume(k)
	}
	vol = hd.Comm.AllreduceSum(myRank, vol)
	h = hd.Mesh.SizeMetricFromVolume(vol, hd.Order)
	dt = hd.TParam * h * h
	return
}

// diffuse solves (M + dt K) u = u0 with the given essential dofs. The
// right hand side is the raw source coefficient vector, not a
// mass-weighted load.
func (hd *HeatDistance) diffuse(myRank int, dt float64, ess utils.Index, u *fem.GridFunction) (err error) {
	var (
		sp = hd.Space
	)
	a := fem.NewBilinearForm(sp, myRank, hd.Comm, hd.Mail)
	a.AddDomainIntegrator(fem.MassIntegrator{Coeff: fem.ConstantCoefficient{C: 1}})
	a.AddDomainIntegrator(fem.DiffusionIntegrator{Coeff: fem.ConstantCoefficient{C: dt}})
	if err = a.Assemble(); err != nil {
		return
	}
	b := fem.NewLinearForm(sp, myRank, hd.Comm, hd.Mail)
	lo, hi := sp.OwnedRange(myRank)
	for i := lo; i < hi; i++ {
		b.Vec[i] = hd.U0.Vec[i]
		u.Vec[i] = 0 // zero prescribed boundary values
	}
	hd.Comm.Barrier()
	A, B := a.FormLinearSystem(ess, u, b, hd.x)
	hd.amg.Setup(myRank, A)
	converged, iters, res := hd.cg.Solve(myRank, A, hd.amg, B, hd.x)
	if !converged && myRank == 0 {
		fmt.Printf("diffusion stage: no convergence after %d iterations, residual %e\n", iters, res)
	}
	a.RecoverFEMSolution(hd.x, u)
	return
}

// poisson solves -div(grad d) = -div(g) weakly, with the direction field
// g entering through the gradient load. No essential dofs in this stage.
func (hd *HeatDistance) poisson(myRank int, g *fem.GradientCoefficient) (err error) {
	var (
		sp = hd.Space
	)
	a := fem.NewBilinearForm(sp, myRank, hd.Comm, hd.Mail)
	a.AddDomainIntegrator(fem.DiffusionIntegrator{Coeff: fem.ConstantCoefficient{C: 1}})
	if err = a.Assemble(); err != nil {
		return
	}
	b := fem.NewLinearForm(sp, myRank, hd.Comm, hd.Mail)
	b.AddDomainIntegrator(fem.DomainLFGradIntegrator{Vec: g})
	if err = b.Assemble(); err != nil {
		return
	}
	lo, hi := sp.OwnedRange(myRank)
	for i := lo; i < hi; i++ {
		hd.Distance.Vec[i] = 0
	}
	hd.Comm.Barrier()
	A, B := a.FormLinearSystem(nil, hd.Distance, b, hd.x)
	hd.amg.Setup(myRank, A)
	converged, iters, res := hd.cg.Solve(myRank, A, hd.amg, B, hd.x)
	if !converged && myRank == 0 {
		fmt.Printf("poisson stage: no convergence after %d iterations, residual %e\n", iters, res)
	}
	a.RecoverFEMSolution(hd.x, hd.Distance)
	return
}

func maxOf(v []float64) (max float64) {
	max = v[0]
	for _, val := range v {
		if val > max {
			max = val
		}
	}
	return
}
