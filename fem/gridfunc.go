package fem

import (
	"github.com/notargets/heatdist/utils"
)

// GridFunction holds the coefficient vector of a finite element function.
// The vector spans the full space, component-major for vector spaces;
// each rank writes only its owned range and reads the rest after a
// barrier.
type GridFunction struct {
	Space *Space
	Vec   []float64
}

func NewGridFunction(sp *Space) *GridFunction {
	return &GridFunction{
		Space: sp,
		Vec:   make([]float64, sp.VDim*sp.NDofs),
	}
}

// Component returns the coefficient block of one field component.
func (g *GridFunction) Component(d int) []float64 {
	n := g.Space.NDofs
	return g.Vec[d*n : (d+1)*n]
}

func (g *GridFunction) Copy() (h *GridFunction) {
	h = NewGridFunction(g.Space)
	copy(h.Vec, g.Vec)
	return
}

// ProjectCoefficient interpolates the coefficient at the nodes of the
// owned dof range.
func (g *GridFunction) ProjectCoefficient(c Coefficient, myRank int) {
	var (
		sp     = g.Space
		lo, hi = sp.OwnedRange(myRank)
		trans  *ElemTransform
		lastK  = -1
	)
	for d := lo; d < hi; d++ {
		k := sp.DofElem[d]
		if k != lastK {
			trans = NewElemTransform(sp.Mesh, k)
			lastK = k
		}
		ref := sp.Basis.Nodes[sp.DofNode[d]]
		g.Vec[d] = c.Eval(&EvalContext{
			Trans:  trans,
			RefPt:  ref,
			PhysPt: sp.DofCoords[d],
		})
	}
}

// ProjectVectorCoefficient interpolates a vector coefficient over the
// owned dof range, all components at once.
func (g *GridFunction) ProjectVectorCoefficient(vc VectorCoefficient, myRank int) {
	var (
		sp     = g.Space
		lo, hi = sp.OwnedRange(myRank)
		val    = make([]float64, vc.Dim())
		trans  *ElemTransform
		lastK  = -1
	)
	for d := lo; d < hi; d++ {
		k := sp.DofElem[d]
		if k != lastK {
			trans = NewElemTransform(sp.Mesh, k)
			lastK = k
		}
		vc.EvalVector(&EvalContext{
			Trans:  trans,
			RefPt:  sp.Basis.Nodes[sp.DofNode[d]],
			PhysPt: sp.DofCoords[d],
		}, val)
		for c := 0; c < sp.VDim && c < len(val); c++ {
			g.Vec[c*sp.NDofs+d] = val[c]
		}
	}
}

// ProjectDelta places the source strength on the single dof nearest the
// source center. All ranks agree on the winner through a min-location
// reduction, ties resolving to the lowest dof id.
func (g *GridFunction) ProjectDelta(dc *DeltaCoefficient, myRank int, comm *utils.Comm) {
	var (
		sp      = g.Space
		lo, hi  = sp.OwnedRange(myRank)
		minDist = -1.
		minDof  = sp.NDofs
	)
	for d := lo; d < hi; d++ {
		var dist float64
		for i, x := range sp.DofCoords[d] {
			dx := x - dc.Center[i]
			dist += dx * dx
		}
		if minDist < 0 || dist < minDist {
			minDist, minDof = dist, d
		}
	}
	if minDist < 0 {
		minDist = 1.e300 // rank owns no dofs
	}
	_, winner := comm.AllreduceMinLoc(myRank, minDist, minDof)
	for d := lo; d < hi; d++ {
		g.Vec[d] = 0
	}
	if winner >= lo && winner < hi {
		g.Vec[winner] = dc.Scale
	}
}

// GetGradient evaluates the gradient of the function at the context
// point, using the dofs of the context element.
func (g *GridFunction) GetGradient(ctx *EvalContext, grad []float64) {
	var (
		sp          = g.Space
		dphiRef     = sp.Basis.Grad(ctx.RefPt)
		_, _, jInv  = ctx.Trans.Jacobian(ctx.RefPt)
		dphi        = PhysGrad(dphiRef, jInv)
	)
	for d := range grad {
		grad[d] = 0
	}
	for n, gd := range sp.ElemDofs[ctx.Trans.K] {
		for d := range grad {
			grad[d] += g.Vec[gd] * dphi[n][d]
		}
	}
}

// SetSubVector assigns the value at the listed dofs.
func (g *GridFunction) SetSubVector(dofs utils.Index, val float64) {
	for _, d := range dofs {
		g.Vec[d] = val
	}
}
