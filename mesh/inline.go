package mesh

import (
	"fmt"

	"github.com/pradeep-pyro/triangle"
)

// Generate builds one of the inline meshes by name and applies the given
// number of uniform refinements. Unknown names are a configuration error.
func Generate(name string, refinements int) (m *Mesh, err error) {
	switch name {
	case "inline-segment":
		m = NewSegmentMesh(10)
	case "inline-quad":
		m = NewQuadMesh(4, 4)
	case "inline-tri":
		m = NewTriangleMesh(8)
	case "inline-hex":
		m = NewHexMesh(3, 3, 3)
	case "inline-tet":
		m = NewTetMesh(2, 2, 2)
	default:
		err = fmt.Errorf("unknown mesh %q: want one of inline-segment, inline-quad, inline-tri, inline-hex, inline-tet", name)
		return
	}
	for lev := 0; lev < refinements; lev++ {
		m.UniformRefinement()
	}
	return
}

// NewSegmentMesh meshes [0,1] with n equal segments. Boundary attributes:
// 1 at x=0, 2 at x=1.
func NewSegmentMesh(n int) (m *Mesh) {
	m = &Mesh{
		Dim:  1,
		Geom: Segment,
	}
	for i := 0; i <= n; i++ {
		m.Vertices = append(m.Vertices, []float64{float64(i) / float64(n)})
	}
	for k := 0; k < n; k++ {
		m.Elements = append(m.Elements, []int{k, k + 1})
	}
	m.BdrElements = [][]int{{0}, {n}}
	m.BdrAttrs = []int{1, 2}
	return
}

// NewQuadMesh meshes the unit square with nx x ny quads. Boundary
// attributes: 1 bottom, 2 right, 3 top, 4 left.
func NewQuadMesh(nx, ny int) (m *Mesh) {
	m = &Mesh{
		Dim:  2,
		Geom: Quad,
	}
	vid := func(i, j int) int { return j*(nx+1) + i }
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			m.Vertices = append(m.Vertices,
				[]float64{float64(i) / float64(nx), float64(j) / float64(ny)})
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			m.Elements = append(m.Elements,
				[]int{vid(i, j), vid(i+1, j), vid(i+1, j+1), vid(i, j+1)})
		}
	}
	for i := 0; i < nx; i++ {
		m.BdrElements = append(m.BdrElements, []int{vid(i, 0), vid(i+1, 0)})
		m.BdrAttrs = append(m.BdrAttrs, 1)
		m.BdrElements = append(m.BdrElements, []int{vid(i, ny), vid(i+1, ny)})
		m.BdrAttrs = append(m.BdrAttrs, 3)
	}
	for j := 0; j < ny; j++ {
		m.BdrElements = append(m.BdrElements, []int{vid(nx, j), vid(nx, j+1)})
		m.BdrAttrs = append(m.BdrAttrs, 2)
		m.BdrElements = append(m.BdrElements, []int{vid(0, j), vid(0, j+1)})
		m.BdrAttrs = append(m.BdrAttrs, 4)
	}
	return
}

// NewTriangleMesh meshes the unit square with an unstructured triangulation:
// a uniform (n+1)^2 point cloud run through Delaunay. Boundary attributes
// follow the quad convention by side.
func NewTriangleMesh(n int) (m *Mesh) {
	var (
		pts [][2]float64
	)
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			pts = append(pts, [2]float64{float64(i) / float64(n), float64(j) / float64(n)})
		}
	}
	verts, faces := triangle.Delaunay(pts)
	m = &Mesh{
		Dim:  2,
		Geom: Triangle,
	}
	for _, v := range verts {
		m.Vertices = append(m.Vertices, []float64{v[0], v[1]})
	}
	for _, f := range faces {
		m.Elements = append(m.Elements, []int{int(f[0]), int(f[1]), int(f[2])})
	}
	m.findBoundary2D()
	return
}

// findBoundary2D marks edges referenced by exactly one triangle as boundary
// edges, tagged by which side of the unit square they lie on.
func (m *Mesh) findBoundary2D() {
	var (
		edgeUse = make(map[[2]int]int)
	)
	for _, ev := range m.Elements {
		for _, e := range ElementEdges(m.Geom) {
			edgeUse[sortedPair(ev[e[0]], ev[e[1]])]++
		}
	}
	for e, uses := range edgeUse {
		if uses != 1 {
			continue
		}
		m.BdrElements = append(m.BdrElements, []int{e[0], e[1]})
		m.BdrAttrs = append(m.BdrAttrs, m.sideAttr(e[0], e[1]))
	}
}

func (m *Mesh) sideAttr(a, b int) int {
	var (
		mx = 0.5 * (m.Vertices[a][0] + m.Vertices[b][0])
		my = 0.5 * (m.Vertices[a][1] + m.Vertices[b][1])
	)
	const tol = 1.e-10
	switch {
	case my < tol:
		return 1
	case mx > 1.-tol:
		return 2
	case my > 1.-tol:
		return 3
	case mx < tol:
		return 4
	}
	return 1
}

// NewHexMesh meshes the unit cube with nx x ny x nz hexes. Boundary
// attributes: 1 bottom, 2 front, 3 right, 4 back, 5 left, 6 top.
func NewHexMesh(nx, ny, nz int) (m *Mesh) {
	m = &Mesh{
		Dim:  3,
		Geom: Cube,
	}
	vid := func(i, j, k int) int { return (k*(ny+1)+j)*(nx+1) + i }
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				m.Vertices = append(m.Vertices, []float64{
					float64(i) / float64(nx),
					float64(j) / float64(ny),
					float64(k) / float64(nz),
				})
			}
		}
	}
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				m.Elements = append(m.Elements, []int{
					vid(i, j, k), vid(i+1, j, k), vid(i+1, j+1, k), vid(i, j+1, k),
					vid(i, j, k+1), vid(i+1, j, k+1), vid(i+1, j+1, k+1), vid(i, j+1, k+1),
				})
			}
		}
	}
	m.findBoundary3D()
	return
}

// findBoundary3D marks faces referenced by exactly one element, tagged by
// which side of the unit cube they lie on.
func (m *Mesh) findBoundary3D() {
	type faceRec struct {
		verts []int
		uses  int
	}
	var (
		faceUse = make(map[string]*faceRec)
	)
	for _, ev := range m.Elements {
		for _, f := range elementFaces(m.Geom) {
			fv := make([]int, len(f))
			for i, lv := range f {
				fv[i] = ev[lv]
			}
			key := faceKey(fv)
			if r, ok := faceUse[key]; ok {
				r.uses++
			} else {
				faceUse[key] = &faceRec{verts: fv, uses: 1}
			}
		}
	}
	for _, r := range faceUse {
		if r.uses != 1 {
			continue
		}
		m.BdrElements = append(m.BdrElements, r.verts)
		m.BdrAttrs = append(m.BdrAttrs, m.sideAttr3D(r.verts))
	}
}

func (m *Mesh) sideAttr3D(fv []int) int {
	var c [3]float64
	for _, v := range fv {
		for d := 0; d < 3; d++ {
			c[d] += m.Vertices[v][d]
		}
	}
	for d := 0; d < 3; d++ {
		c[d] /= float64(len(fv))
	}
	const tol = 1.e-10
	switch {
	case c[2] < tol:
		return 1
	case c[1] < tol:
		return 2
	case c[0] > 1.-tol:
		return 3
	case c[1] > 1.-tol:
		return 4
	case c[0] < tol:
		return 5
	case c[2] > 1.-tol:
		return 6
	}
	return 1
}

// NewTetMesh meshes the unit cube with hexes, each split into six tets
// around the 0-6 diagonal.
func NewTetMesh(nx, ny, nz int) (m *Mesh) {
	hex := NewHexMesh(nx, ny, nz)
	m = &Mesh{
		Dim:      3,
		Geom:     Tetrahedron,
		Vertices: hex.Vertices,
	}
	for _, ev := range hex.Elements {
		for _, t := range hexToTets {
			m.Elements = append(m.Elements,
				[]int{ev[t[0]], ev[t[1]], ev[t[2]], ev[t[3]]})
		}
	}
	m.findBoundary3D()
	return
}

func sortedPair(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func faceKey(fv []int) string {
	s := append([]int(nil), fv...)
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
	return fmt.Sprint(s)
}
