package fem

import "github.com/notargets/heatdist/utils"

// BilinearIntegrator produces the Np x Np contribution of one element to
// a bilinear form. Integrators are stateless; problem data enters only
// through the coefficient they carry.
type BilinearIntegrator interface {
	ElementMatrix(sp *Space, trans *ElemTransform, q *QuadRule) utils.Matrix
	Domain() bool
}

// LinearIntegrator produces the Np contribution of one element to a
// linear form.
type LinearIntegrator interface {
	ElementVector(sp *Space, trans *ElemTransform, q *QuadRule) []float64
	Domain() bool
}

// MassIntegrator contributes the scaled L2 inner product c phi_i phi_j.
type MassIntegrator struct {
	Coeff Coefficient
}

func (mi MassIntegrator) Domain() bool { return true }

func (mi MassIntegrator) ElementMatrix(sp *Space, trans *ElemTransform, q *QuadRule) (em utils.Matrix) {
	var (
		b  = sp.Basis
		np = b.Np
	)
	em = utils.NewMatrix(np, np)
	for ip := 0; ip < q.Len(); ip++ {
		var (
			ref           = q.Points[ip]
			phi           = b.Eval(ref)
			_, detJ, _    = trans.Jacobian(ref)
			c             = mi.Coeff.Eval(&EvalContext{trans, ref, trans.Eval(ref)})
			w             = c * q.Weights[ip] * detJ
		)
		for i := 0; i < np; i++ {
			for j := 0; j < np; j++ {
				em.Add(i, j, w*phi[i]*phi[j])
			}
		}
	}
	return
}

// DiffusionIntegrator contributes c grad(phi_i) . grad(phi_j).
type DiffusionIntegrator struct {
	Coeff Coefficient
}

func (di DiffusionIntegrator) Domain() bool { return true }

func (di DiffusionIntegrator) ElementMatrix(sp *Space, trans *ElemTransform, q *QuadRule) (em utils.Matrix) {
	var (
		b   = sp.Basis
		np  = b.Np
		dim = b.Geom.Dim()
	)
	em = utils.NewMatrix(np, np)
	for ip := 0; ip < q.Len(); ip++ {
		var (
			ref              = q.Points[ip]
			_, detJ, jInv    = trans.Jacobian(ref)
			dphi             = PhysGrad(b.Grad(ref), jInv)
			c                = di.Coeff.Eval(&EvalContext{trans, ref, trans.Eval(ref)})
			w                = c * q.Weights[ip] * detJ
		)
		for i := 0; i < np; i++ {
			for j := 0; j < np; j++ {
				var dot float64
				for d := 0; d < dim; d++ {
					dot += dphi[i][d] * dphi[j][d]
				}
				em.Add(i, j, w*dot)
			}
		}
	}
	return
}

// DomainLFIntegrator contributes the load f phi_i.
type DomainLFIntegrator struct {
	Coeff Coefficient
}

func (li DomainLFIntegrator) Domain() bool { return true }

func (li DomainLFIntegrator) ElementVector(sp *Space, trans *ElemTransform, q *QuadRule) (ev []float64) {
	var (
		b  = sp.Basis
		np = b.Np
	)
	ev = make([]float64, np)
	for ip := 0; ip < q.Len(); ip++ {
		var (
			ref        = q.Points[ip]
			phi        = b.Eval(ref)
			_, detJ, _ = trans.Jacobian(ref)
			f          = li.Coeff.Eval(&EvalContext{trans, ref, trans.Eval(ref)})
			w          = f * q.Weights[ip] * detJ
		)
		for i := 0; i < np; i++ {
			ev[i] += w * phi[i]
		}
	}
	return
}

// DomainLFGradIntegrator contributes the vector load g . grad(phi_i),
// used to inject the normalized gradient field into the Poisson stage.
type DomainLFGradIntegrator struct {
	Vec VectorCoefficient
}

func (li DomainLFGradIntegrator) Domain() bool { return true }

func (li DomainLFGradIntegrator) ElementVector(sp *Space, trans *ElemTransform, q *QuadRule) (ev []float64) {
	var (
		b   = sp.Basis
		np  = b.Np
		dim = b.Geom.Dim()
		g   = make([]float64, dim)
	)
	ev = make([]float64, np)
	for ip := 0; ip < q.Len(); ip++ {
		var (
			ref           = q.Points[ip]
			_, detJ, jInv = trans.Jacobian(ref)
			dphi          = PhysGrad(b.Grad(ref), jInv)
			w             = q.Weights[ip] * detJ
		)
		li.Vec.EvalVector(&EvalContext{trans, ref, trans.Eval(ref)}, g)
		for i := 0; i < np; i++ {
			var dot float64
			for d := 0; d < dim; d++ {
				dot += g[d] * dphi[i][d]
			}
			ev[i] += w * dot
		}
	}
	return
}

// BoundaryLFIntegrator is the surface load f phi_i ds. Full assembly
// handles domain integrators only, so attaching this one makes Assemble
// return an unsupported-integrator error.
type BoundaryLFIntegrator struct {
	Coeff Coefficient
}

func (li BoundaryLFIntegrator) Domain() bool { return false }

func (li BoundaryLFIntegrator) ElementVector(sp *Space, trans *ElemTransform, q *QuadRule) []float64 {
	panic("boundary integrators are not evaluated by domain assembly")
}
