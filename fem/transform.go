package fem

import (
	"math"

	"github.com/notargets/heatdist/mesh"
	"github.com/notargets/heatdist/utils"
)

// ElemTransform maps reference coordinates of element K to physical space
// using the linear (or multi-linear) geometry basis of the element type.
type ElemTransform struct {
	K     int
	geomB *Basis
	verts utils.Matrix // NumVerts x dim, physical vertex coordinates
}

func NewElemTransform(m *mesh.Mesh, k int) (t *ElemTransform) {
	var (
		nv  = m.Geom.NumVerts()
		dim = m.Dim
	)
	gb, err := NewBasis(m.Geom, 1)
	if err != nil {
		panic(err)
	}
	t = &ElemTransform{
		K:     k,
		geomB: gb,
		verts: utils.NewMatrix(nv, dim),
	}
	for i, v := range m.Elements[k] {
		for d := 0; d < dim; d++ {
			t.verts.Set(i, d, m.Vertices[v][d])
		}
	}
	return
}

// Eval maps the reference point to physical coordinates.
func (t *ElemTransform) Eval(ref []float64) (x []float64) {
	var (
		phi    = t.geomB.Eval(ref)
		_, dim = t.verts.Dims()
	)
	x = make([]float64, dim)
	for i, p := range phi {
		for d := 0; d < dim; d++ {
			x[d] += p * t.verts.At(i, d)
		}
	}
	return
}

// Jacobian returns dX/dR, its determinant magnitude, and its inverse at
// the reference point.
func (t *ElemTransform) Jacobian(ref []float64) (jac utils.Matrix, detJ float64, jInv utils.Matrix) {
	var (
		dphi    = t.geomB.Grad(ref)
		nv, dim = t.verts.Dims()
	)
	jac = utils.NewMatrix(dim, dim)
	for i := 0; i < nv; i++ {
		for d := 0; d < dim; d++ {
			for r := 0; r < dim; r++ {
				jac.Add(d, r, t.verts.At(i, d)*dphi[i][r])
			}
		}
	}
	switch dim {
	case 1:
		detJ = jac.At(0, 0)
		jInv = utils.NewMatrix(1, 1, []float64{1. / detJ})
	case 2:
		detJ = jac.At(0, 0)*jac.At(1, 1) - jac.At(0, 1)*jac.At(1, 0)
		oo := 1. / detJ
		jInv = utils.NewMatrix(2, 2, []float64{
			oo * jac.At(1, 1), -oo * jac.At(0, 1),
			-oo * jac.At(1, 0), oo * jac.At(0, 0),
		})
	case 3:
		var err error
		detJ = det3(jac)
		jInv, err = jac.Inverse()
		if err != nil {
			panic("singular element Jacobian")
		}
	}
	detJ = math.Abs(detJ)
	return
}

func det3(m utils.Matrix) float64 {
	return m.At(0, 0)*(m.At(1, 1)*m.At(2, 2)-m.At(1, 2)*m.At(2, 1)) -
		m.At(0, 1)*(m.At(1, 0)*m.At(2, 2)-m.At(1, 2)*m.At(2, 0)) +
		m.At(0, 2)*(m.At(1, 0)*m.At(2, 1)-m.At(1, 1)*m.At(2, 0))
}

// PhysGrad converts reference-space basis gradients to physical space,
// dphiPhys = dphiRef * Jinv, row per basis function.
func PhysGrad(dphiRef [][]float64, jInv utils.Matrix) (dphi [][]float64) {
	var (
		dim, _ = jInv.Dims()
	)
	dphi = make([][]float64, len(dphiRef))
	for i, dr := range dphiRef {
		dphi[i] = make([]float64, dim)
		for d := 0; d < dim; d++ {
			for r := 0; r < dim; r++ {
				dphi[i][d] += dr[r] * jInv.At(r, d)
			}
		}
	}
	return
}
