package mesh

// refiner dedupes the vertices created during refinement. A new vertex is
// identified by the set of parent vertices it is the midpoint of, so
// neighboring elements agree on shared edge/face points.
type refiner struct {
	m     *Mesh
	nodes map[string]int
}

func (r *refiner) node(vs ...int) (id int) {
	if len(vs) == 1 {
		return vs[0]
	}
	key := faceKey(vs)
	if id, ok := r.nodes[key]; ok {
		return id
	}
	pt := make([]float64, r.m.Dim)
	for _, v := range vs {
		for d := 0; d < r.m.Dim; d++ {
			pt[d] += r.m.Vertices[v][d]
		}
	}
	for d := 0; d < r.m.Dim; d++ {
		pt[d] /= float64(len(vs))
	}
	id = len(r.m.Vertices)
	r.m.Vertices = append(r.m.Vertices, pt)
	r.nodes[key] = id
	return
}

// UniformRefinement splits every element: segments in 2, quads and
// triangles in 4, hexes and tets in 8. Boundary elements are split with
// their parent faces and keep their attribute.
func (m *Mesh) UniformRefinement() {
	var (
		r        = &refiner{m: m, nodes: make(map[string]int)}
		elems    [][]int
		bdrElems [][]int
		bdrAttrs []int
	)
	for _, ev := range m.Elements {
		elems = append(elems, refineElement(r, m.Geom, ev)...)
	}
	for i, fv := range m.BdrElements {
		children := refineBdrElement(r, fv)
		bdrElems = append(bdrElems, children...)
		for range children {
			bdrAttrs = append(bdrAttrs, m.BdrAttrs[i])
		}
	}
	m.Elements = elems
	m.BdrElements = bdrElems
	m.BdrAttrs = bdrAttrs
}

func refineElement(r *refiner, g GeometryType, v []int) (children [][]int) {
	switch g {
	case Segment:
		mid := r.node(v[0], v[1])
		children = [][]int{{v[0], mid}, {mid, v[1]}}
	case Triangle:
		m01, m12, m02 := r.node(v[0], v[1]), r.node(v[1], v[2]), r.node(v[0], v[2])
		children = [][]int{
			{v[0], m01, m02},
			{m01, v[1], m12},
			{m02, m12, v[2]},
			{m01, m12, m02},
		}
	case Quad:
		m01, m12 := r.node(v[0], v[1]), r.node(v[1], v[2])
		m23, m30 := r.node(v[2], v[3]), r.node(v[3], v[0])
		cc := r.node(v[0], v[1], v[2], v[3])
		children = [][]int{
			{v[0], m01, cc, m30},
			{m01, v[1], m12, cc},
			{cc, m12, v[2], m23},
			{m30, cc, m23, v[3]},
		}
	case Tetrahedron:
		m01, m02, m03 := r.node(v[0], v[1]), r.node(v[0], v[2]), r.node(v[0], v[3])
		m12, m13, m23 := r.node(v[1], v[2]), r.node(v[1], v[3]), r.node(v[2], v[3])
		// Four corner tets plus the inner octahedron cut around the
		// m01-m23 diagonal
		children = [][]int{
			{v[0], m01, m02, m03},
			{m01, v[1], m12, m13},
			{m02, m12, v[2], m23},
			{m03, m13, m23, v[3]},
			{m01, m23, m02, m12},
			{m01, m23, m12, m13},
			{m01, m23, m13, m03},
			{m01, m23, m03, m02},
		}
	case Cube:
		children = refineHex(r, v)
	default:
		panic("unknown geometry type in refinement")
	}
	return
}

// hexCorner maps (x,y,z) in {0,1}^3 to the standard hex vertex ordering.
var hexCorner = map[[3]int]int{
	{0, 0, 0}: 0, {1, 0, 0}: 1, {1, 1, 0}: 2, {0, 1, 0}: 3,
	{0, 0, 1}: 4, {1, 0, 1}: 5, {1, 1, 1}: 6, {0, 1, 1}: 7,
}

func refineHex(r *refiner, v []int) (children [][]int) {
	// Lattice point (a,b,c) in {0,1,2}^3: corners where all are even,
	// otherwise the midpoint of the spanned corner set.
	lattice := func(a, b, c int) int {
		span := func(x int) []int {
			switch x {
			case 0:
				return []int{0}
			case 2:
				return []int{1}
			}
			return []int{0, 1}
		}
		var vs []int
		for _, z := range span(c) {
			for _, y := range span(b) {
				for _, x := range span(a) {
					vs = append(vs, v[hexCorner[[3]int{x, y, z}]])
				}
			}
		}
		return r.node(vs...)
	}
	for k := 0; k < 2; k++ {
		for j := 0; j < 2; j++ {
			for i := 0; i < 2; i++ {
				children = append(children, []int{
					lattice(i, j, k), lattice(i+1, j, k), lattice(i+1, j+1, k), lattice(i, j+1, k),
					lattice(i, j, k+1), lattice(i+1, j, k+1), lattice(i+1, j+1, k+1), lattice(i, j+1, k+1),
				})
			}
		}
	}
	return
}

func refineBdrElement(r *refiner, v []int) (children [][]int) {
	switch len(v) {
	case 1: // 1D boundary points are unchanged
		children = [][]int{v}
	case 2:
		mid := r.node(v[0], v[1])
		children = [][]int{{v[0], mid}, {mid, v[1]}}
	case 3:
		m01, m12, m02 := r.node(v[0], v[1]), r.node(v[1], v[2]), r.node(v[0], v[2])
		children = [][]int{
			{v[0], m01, m02},
			{m01, v[1], m12},
			{m02, m12, v[2]},
			{m01, m12, m02},
		}
	case 4:
		m01, m12 := r.node(v[0], v[1]), r.node(v[1], v[2])
		m23, m30 := r.node(v[2], v[3]), r.node(v[3], v[0])
		cc := r.node(v[0], v[1], v[2], v[3])
		children = [][]int{
			{v[0], m01, cc, m30},
			{m01, v[1], m12, cc},
			{cc, m12, v[2], m23},
			{m30, cc, m23, v[3]},
		}
	default:
		panic("unsupported boundary element")
	}
	return
}
