package mesh

import (
	"fmt"
	"math"
)

type GeometryType uint8

const (
	Segment GeometryType = iota
	Triangle
	Quad
	Tetrahedron
	Cube
)

func (g GeometryType) String() string {
	switch g {
	case Segment:
		return "segment"
	case Triangle:
		return "triangle"
	case Quad:
		return "quad"
	case Tetrahedron:
		return "tetrahedron"
	case Cube:
		return "cube"
	}
	return "unknown"
}

func (g GeometryType) Dim() int {
	switch g {
	case Segment:
		return 1
	case Triangle, Quad:
		return 2
	case Tetrahedron, Cube:
		return 3
	}
	panic(fmt.Errorf("unknown geometry type %d", g))
}

func (g GeometryType) NumVerts() int {
	switch g {
	case Segment:
		return 2
	case Triangle:
		return 3
	case Quad:
		return 4
	case Tetrahedron:
		return 4
	case Cube:
		return 8
	}
	panic(fmt.Errorf("unknown geometry type %d", g))
}

// Mesh is a static, single-geometry unstructured mesh. Boundary entities
// (points in 1D, edges in 2D, faces in 3D) carry attribute tags used to
// mark essential boundary regions. Immutable once handed to a Space.
type Mesh struct {
	Dim         int
	Geom        GeometryType
	Vertices    [][]float64
	Elements    [][]int
	BdrElements [][]int
	BdrAttrs    []int
}

func (m *Mesh) NumElements() int { return len(m.Elements) }
func (m *Mesh) NumVertices() int { return len(m.Vertices) }

func (m *Mesh) BdrAttributeMax() (max int) {
	for _, a := range m.BdrAttrs {
		if a > max {
			max = a
		}
	}
	return
}

func (m *Mesh) ElementVolume(k int) (vol float64) {
	var (
		ev = m.Elements[k]
	)
	switch m.Geom {
	case Segment:
		vol = math.Abs(m.Vertices[ev[1]][0] - m.Vertices[ev[0]][0])
	case Triangle:
		vol = triArea(m.Vertices[ev[0]], m.Vertices[ev[1]], m.Vertices[ev[2]])
	case Quad:
		// Split along the 0-2 diagonal
		vol = triArea(m.Vertices[ev[0]], m.Vertices[ev[1]], m.Vertices[ev[2]]) +
			triArea(m.Vertices[ev[0]], m.Vertices[ev[2]], m.Vertices[ev[3]])
	case Tetrahedron:
		vol = tetVolume(m.Vertices[ev[0]], m.Vertices[ev[1]], m.Vertices[ev[2]], m.Vertices[ev[3]])
	case Cube:
		// Standard hex ordering: bottom 0-1-2-3, top 4-5-6-7
		for _, t := range hexToTets {
			vol += tetVolume(m.Vertices[ev[t[0]]], m.Vertices[ev[t[1]]],
				m.Vertices[ev[t[2]]], m.Vertices[ev[t[3]]])
		}
	default:
		panic(fmt.Errorf("no volume formula for geometry type %v", m.Geom))
	}
	return
}

func (m *Mesh) TotalVolume() (vol float64) {
	for k := 0; k < m.NumElements(); k++ {
		vol += m.ElementVolume(k)
	}
	return
}

// hexToTets decomposes a hex into six tets sharing the 0-6 diagonal.
var hexToTets = [6][4]int{
	{0, 1, 2, 6}, {0, 2, 3, 6}, {0, 3, 7, 6},
	{0, 7, 4, 6}, {0, 4, 5, 6}, {0, 5, 1, 6},
}

func triArea(a, b, c []float64) float64 {
	return 0.5 * math.Abs((b[0]-a[0])*(c[1]-a[1])-(c[0]-a[0])*(b[1]-a[1]))
}

func tetVolume(a, b, c, d []float64) float64 {
	var (
		u = [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
		v = [3]float64{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
		w = [3]float64{d[0] - a[0], d[1] - a[1], d[2] - a[2]}
	)
	det := u[0]*(v[1]*w[2]-v[2]*w[1]) - u[1]*(v[0]*w[2]-v[2]*w[0]) + u[2]*(v[0]*w[1]-v[1]*w[0])
	return math.Abs(det) / 6.
}

// SizeMetric derives the mesh length scale h from the average element
// volume. The formula is geometry specific and sets the diffusion time
// step; changing it changes convergence behavior.
func (m *Mesh) SizeMetric(order int) (h float64) {
	return m.SizeMetricFromVolume(m.TotalVolume(), order)
}

// SizeMetricFromVolume is the same law with the total volume supplied by
// the caller, for when it comes out of a cross-rank reduction.
func (m *Mesh) SizeMetricFromVolume(area float64, order int) (h float64) {
	var (
		zones = float64(m.NumElements())
	)
	switch m.Geom {
	case Segment:
		h = area / zones
	case Quad:
		h = math.Sqrt(area / zones)
	case Triangle:
		h = math.Sqrt(2. * area / zones)
	case Cube:
		h = math.Pow(area/zones, 1./3.)
	case Tetrahedron:
		h = math.Pow(6.*area/zones, 1./3.)
	default:
		panic(fmt.Errorf("unknown zone type %v", m.Geom))
	}
	h /= float64(order)
	return
}

// elementFaces lists the boundary sub-entities of an element as local
// vertex index tuples: endpoints in 1D, edges in 2D, faces in 3D.
func elementFaces(g GeometryType) [][]int {
	switch g {
	case Segment:
		return [][]int{{0}, {1}}
	case Triangle:
		return [][]int{{0, 1}, {1, 2}, {2, 0}}
	case Quad:
		return [][]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}
	case Tetrahedron:
		return [][]int{{1, 2, 3}, {0, 3, 2}, {0, 1, 3}, {0, 2, 1}}
	case Cube:
		return [][]int{
			{3, 2, 1, 0}, {0, 1, 5, 4}, {1, 2, 6, 5},
			{2, 3, 7, 6}, {3, 0, 4, 7}, {4, 5, 6, 7},
		}
	}
	panic(fmt.Errorf("unknown geometry type %v", g))
}

// ElementEdges lists the local vertex pairs of an element's edges, used
// for shared edge dof numbering in higher order spaces.
func ElementEdges(g GeometryType) [][2]int {
	switch g {
	case Segment:
		return nil
	case Triangle:
		return [][2]int{{0, 1}, {1, 2}, {2, 0}}
	case Quad:
		return [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}
	case Tetrahedron, Cube:
		// Higher order 3D spaces are not supported, no edge dofs needed
		return nil
	}
	panic(fmt.Errorf("unknown geometry type %v", g))
}
