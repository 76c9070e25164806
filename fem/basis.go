package fem

import (
	"fmt"

	"github.com/notargets/heatdist/mesh"
	"github.com/notargets/heatdist/utils"
)

// Basis is an H1 Lagrange nodal basis on a single reference element.
// Tensor geometries (segment, quad) use Gauss-Lobatto node lines and
// support arbitrary order; the triangle supports P1/P2; cube and tet are
// linear only. Local dof ordering is vertices, then edge interiors (in
// mesh.ElementEdges order, directed first->second endpoint), then the
// element interior.
type Basis struct {
	Geom  mesh.GeometryType
	Order int
	Np    int
	Nodes [][]float64 // reference coordinates per local dof

	// 1D machinery for the tensor-product geometries
	r    utils.Vector // Gauss-Lobatto line nodes
	vInv utils.Matrix

	nodeOf []int // local dof -> tensor node index (tensor geometries)
}

func NewBasis(geom mesh.GeometryType, order int) (b *Basis, err error) {
	if order < 1 {
		err = fmt.Errorf("basis order must be at least 1, have %d", order)
		return
	}
	switch geom {
	case mesh.Segment:
		b = newSegmentBasis(order)
	case mesh.Quad:
		b = newQuadBasis(order)
	case mesh.Triangle:
		if order > 2 {
			err = fmt.Errorf("order %d not supported on triangles (max 2)", order)
			return
		}
		b = newTriBasis(order)
	case mesh.Tetrahedron, mesh.Cube:
		if order > 1 {
			err = fmt.Errorf("order %d not supported on %v elements (max 1)", order, geom)
			return
		}
		if geom == mesh.Cube {
			b = newHexBasis()
		} else {
			b = newTetBasis()
		}
	default:
		err = fmt.Errorf("unknown geometry type %v", geom)
	}
	return
}

func (b *Basis) NumVertexDofs() int { return b.Geom.NumVerts() }

func (b *Basis) NumEdgeDofs() int {
	if b.Order < 2 {
		return 0
	}
	switch b.Geom {
	case mesh.Triangle, mesh.Quad:
		return b.Order - 1
	}
	return 0
}

func (b *Basis) NumInteriorDofs() int {
	nv := b.NumVertexDofs()
	ne := b.NumEdgeDofs() * len(mesh.ElementEdges(b.Geom))
	return b.Np - nv - ne
}

func lineLagrange(vInv utils.Matrix, order int, r float64) (l, dl []float64) {
	var (
		rv = utils.NewVector(1, []float64{r})
	)
	l = Vandermonde1D(order, rv).Mul(vInv).DataP
	dl = GradVandermonde1D(order, rv).Mul(vInv).DataP
	return
}

func newSegmentBasis(order int) (b *Basis) {
	var (
		np = order + 1
		r  = JacobiGL(0, 0, order)
	)
	v := Vandermonde1D(order, r)
	vInv, err := v.Inverse()
	if err != nil {
		panic("error inverting Vandermonde matrix")
	}
	b = &Basis{
		Geom:  mesh.Segment,
		Order: order,
		Np:    np,
		r:     r,
		vInv:  vInv,
	}
	// Dof order: both endpoints, then interior nodes left to right
	b.nodeOf = append(b.nodeOf, 0, order)
	for i := 1; i < order; i++ {
		b.nodeOf = append(b.nodeOf, i)
	}
	for _, n := range b.nodeOf {
		b.Nodes = append(b.Nodes, []float64{r.AtVec(n)})
	}
	return
}

func newQuadBasis(order int) (b *Basis) {
	var (
		np1 = order + 1
		r   = JacobiGL(0, 0, order)
	)
	v := Vandermonde1D(order, r)
	vInv, err := v.Inverse()
	if err != nil {
		panic("error inverting Vandermonde matrix")
	}
	b = &Basis{
		Geom:  mesh.Quad,
		Order: order,
		Np:    np1 * np1,
		r:     r,
		vInv:  vInv,
	}
	tn := func(i, j int) int { return j*np1 + i }
	// Vertices in quad order, matching mesh vertex numbering
	b.nodeOf = append(b.nodeOf, tn(0, 0), tn(order, 0), tn(order, order), tn(0, order))
	// Edge interiors directed along each edge's first->second endpoint
	for i := 1; i < order; i++ {
		b.nodeOf = append(b.nodeOf, tn(i, 0)) // edge (0,1)
	}
	for j := 1; j < order; j++ {
		b.nodeOf = append(b.nodeOf, tn(order, j)) // edge (1,2)
	}
	for i := order - 1; i > 0; i-- {
		b.nodeOf = append(b.nodeOf, tn(i, order)) // edge (2,3)
	}
	for j := order - 1; j > 0; j-- {
		b.nodeOf = append(b.nodeOf, tn(0, j)) // edge (3,0)
	}
	for j := 1; j < order; j++ {
		for i := 1; i < order; i++ {
			b.nodeOf = append(b.nodeOf, tn(i, j))
		}
	}
	for _, n := range b.nodeOf {
		i, j := n%np1, n/np1
		b.Nodes = append(b.Nodes, []float64{r.AtVec(i), r.AtVec(j)})
	}
	return
}

func newTriBasis(order int) (b *Basis) {
	b = &Basis{
		Geom:  mesh.Triangle,
		Order: order,
	}
	switch order {
	case 1:
		b.Np = 3
		b.Nodes = [][]float64{{0, 0}, {1, 0}, {0, 1}}
	case 2:
		b.Np = 6
		b.Nodes = [][]float64{
			{0, 0}, {1, 0}, {0, 1},
			{0.5, 0}, {0.5, 0.5}, {0, 0.5},
		}
	}
	return
}

func newTetBasis() (b *Basis) {
	return &Basis{
		Geom:  mesh.Tetrahedron,
		Order: 1,
		Np:    4,
		Nodes: [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	}
}

func newHexBasis() (b *Basis) {
	return &Basis{
		Geom:  mesh.Cube,
		Order: 1,
		Np:    8,
		Nodes: [][]float64{
			{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
			{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
		},
	}
}

// Eval returns the basis function values at reference point r.
func (b *Basis) Eval(r []float64) (phi []float64) {
	phi = make([]float64, b.Np)
	switch b.Geom {
	case mesh.Segment:
		l, _ := lineLagrange(b.vInv, b.Order, r[0])
		for d, n := range b.nodeOf {
			phi[d] = l[n]
		}
	case mesh.Quad:
		np1 := b.Order + 1
		lx, _ := lineLagrange(b.vInv, b.Order, r[0])
		ly, _ := lineLagrange(b.vInv, b.Order, r[1])
		for d, n := range b.nodeOf {
			i, j := n%np1, n/np1
			phi[d] = lx[i] * ly[j]
		}
	case mesh.Triangle:
		l0, l1, l2 := 1.-r[0]-r[1], r[0], r[1]
		if b.Order == 1 {
			phi[0], phi[1], phi[2] = l0, l1, l2
		} else {
			phi[0] = l0 * (2*l0 - 1)
			phi[1] = l1 * (2*l1 - 1)
			phi[2] = l2 * (2*l2 - 1)
			phi[3] = 4 * l0 * l1
			phi[4] = 4 * l1 * l2
			phi[5] = 4 * l2 * l0
		}
	case mesh.Tetrahedron:
		phi[0] = 1. - r[0] - r[1] - r[2]
		phi[1], phi[2], phi[3] = r[0], r[1], r[2]
	case mesh.Cube:
		for d, n := range b.Nodes {
			phi[d] = 0.125 * (1 + n[0]*r[0]) * (1 + n[1]*r[1]) * (1 + n[2]*r[2])
		}
	}
	return
}

// Grad returns the reference-space gradients of the basis functions at r,
// dimension Np x dim.
func (b *Basis) Grad(r []float64) (dphi [][]float64) {
	var (
		dim = b.Geom.Dim()
	)
	dphi = make([][]float64, b.Np)
	for i := range dphi {
		dphi[i] = make([]float64, dim)
	}
	switch b.Geom {
	case mesh.Segment:
		_, dl := lineLagrange(b.vInv, b.Order, r[0])
		for d, n := range b.nodeOf {
			dphi[d][0] = dl[n]
		}
	case mesh.Quad:
		np1 := b.Order + 1
		lx, dlx := lineLagrange(b.vInv, b.Order, r[0])
		ly, dly := lineLagrange(b.vInv, b.Order, r[1])
		for d, n := range b.nodeOf {
			i, j := n%np1, n/np1
			dphi[d][0] = dlx[i] * ly[j]
			dphi[d][1] = lx[i] * dly[j]
		}
	case mesh.Triangle:
		if b.Order == 1 {
			dphi[0][0], dphi[0][1] = -1, -1
			dphi[1][0], dphi[2][1] = 1, 1
		} else {
			l0, l1, l2 := 1.-r[0]-r[1], r[0], r[1]
			// dl0 = (-1,-1), dl1 = (1,0), dl2 = (0,1)
			dphi[0][0], dphi[0][1] = -(4*l0 - 1), -(4*l0 - 1)
			dphi[1][0] = 4*l1 - 1
			dphi[2][1] = 4*l2 - 1
			dphi[3][0] = 4 * (l0 - l1)
			dphi[3][1] = -4 * l1
			dphi[4][0] = 4 * l2
			dphi[4][1] = 4 * l1
			dphi[5][0] = -4 * l2
			dphi[5][1] = 4 * (l0 - l2)
		}
	case mesh.Tetrahedron:
		dphi[0][0], dphi[0][1], dphi[0][2] = -1, -1, -1
		dphi[1][0], dphi[2][1], dphi[3][2] = 1, 1, 1
	case mesh.Cube:
		for d, n := range b.Nodes {
			dphi[d][0] = 0.125 * n[0] * (1 + n[1]*r[1]) * (1 + n[2]*r[2])
			dphi[d][1] = 0.125 * n[1] * (1 + n[0]*r[0]) * (1 + n[2]*r[2])
			dphi[d][2] = 0.125 * n[2] * (1 + n[0]*r[0]) * (1 + n[1]*r[1])
		}
	}
	return
}
