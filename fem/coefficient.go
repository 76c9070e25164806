package fem

import "math"

// EvalContext locates a quadrature or node point for coefficient
// evaluation, in both reference and physical coordinates.
type EvalContext struct {
	Trans  *ElemTransform
	RefPt  []float64
	PhysPt []float64
}

// Coefficient is a scalar field evaluated pointwise during assembly and
// projection.
type Coefficient interface {
	Eval(ctx *EvalContext) float64
}

// VectorCoefficient is the vector-valued analogue.
type VectorCoefficient interface {
	EvalVector(ctx *EvalContext, v []float64)
	Dim() int
}

type ConstantCoefficient struct {
	C float64
}

func (c ConstantCoefficient) Eval(ctx *EvalContext) float64 { return c.C }

// GridFunctionCoefficient samples an existing grid function at the
// context point.
type GridFunctionCoefficient struct {
	U *GridFunction
}

func (g GridFunctionCoefficient) Eval(ctx *EvalContext) (val float64) {
	var (
		sp  = g.U.Space
		phi = sp.Basis.Eval(ctx.RefPt)
	)
	for n, gd := range sp.ElemDofs[ctx.Trans.K] {
		val += g.U.Vec[gd] * phi[n]
	}
	return
}

// DeltaCoefficient is a point source of the given strength. It is not
// evaluated pointwise; projection lands the full strength on the dof
// nearest to Center, see GridFunction.ProjectDelta.
type DeltaCoefficient struct {
	Center []float64
	Scale  float64
}

// GradientCoefficient evaluates the negated, normalized gradient of a
// grid function, -grad(u)/(|grad(u)| + eps). The epsilon guards the
// division where the gradient vanishes.
type GradientCoefficient struct {
	U   *GridFunction
	Eps float64
}

func NewGradientCoefficient(u *GridFunction) *GradientCoefficient {
	return &GradientCoefficient{U: u, Eps: 1.e-12}
}

func (g *GradientCoefficient) Dim() int { return g.U.Space.Mesh.Dim }

func (g *GradientCoefficient) EvalVector(ctx *EvalContext, v []float64) {
	g.U.GetGradient(ctx, v)
	var norm float64
	for _, c := range v {
		norm += c * c
	}
	norm = math.Sqrt(norm) + g.Eps
	for d := range v {
		v[d] = -v[d] / norm
	}
}
