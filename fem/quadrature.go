package fem

import (
	"fmt"

	"github.com/notargets/heatdist/mesh"
)

// QuadRule carries integration points on the reference element and their
// weights. Weights sum to the reference measure: 2 on the segment, 4 on
// the quad, 8 on the cube, 1/2 on the triangle, 1/6 on the tet.
type QuadRule struct {
	Points  [][]float64
	Weights []float64
}

func (q *QuadRule) Len() int { return len(q.Points) }

// NewQuadRule builds a rule exact for polynomials of at least the given
// degree on the reference element of the geometry.
func NewQuadRule(geom mesh.GeometryType, degree int) (q *QuadRule, err error) {
	switch geom {
	case mesh.Segment:
		q = gaussLine(degree)
	case mesh.Quad:
		q = tensorRule(gaussLine(degree), 2)
	case mesh.Cube:
		q = tensorRule(gaussLine(degree), 3)
	case mesh.Triangle:
		q, err = triRule(degree)
	case mesh.Tetrahedron:
		q, err = tetRule(degree)
	default:
		err = fmt.Errorf("unknown geometry type %v", geom)
	}
	return
}

func gaussLine(degree int) (q *QuadRule) {
	// n-point Gauss is exact to degree 2n-1
	n := degree/2 + 1
	x, w := JacobiGQ(0, 0, n-1)
	q = &QuadRule{}
	for i := 0; i < n; i++ {
		q.Points = append(q.Points, []float64{x.AtVec(i)})
		q.Weights = append(q.Weights, w.AtVec(i))
	}
	return
}

func tensorRule(line *QuadRule, dim int) (q *QuadRule) {
	q = line
	for d := 1; d < dim; d++ {
		next := &QuadRule{}
		for i, p := range q.Points {
			for j, x := range line.Points {
				pt := append(append([]float64{}, p...), x[0])
				next.Points = append(next.Points, pt)
				next.Weights = append(next.Weights, q.Weights[i]*line.Weights[j])
			}
		}
		q = next
	}
	return
}

func triRule(degree int) (q *QuadRule, err error) {
	switch {
	case degree <= 1:
		q = &QuadRule{
			Points:  [][]float64{{1. / 3., 1. / 3.}},
			Weights: []float64{0.5},
		}
	case degree <= 2:
		q = &QuadRule{
			Points: [][]float64{
				{1. / 6., 1. / 6.}, {2. / 3., 1. / 6.}, {1. / 6., 2. / 3.},
			},
			Weights: []float64{1. / 6., 1. / 6., 1. / 6.},
		}
	case degree <= 4:
		// Dunavant degree 4, six points
		var (
			a1, a2 = 0.445948490915965, 0.091576213509771
			w1, w2 = 0.223381589678011 / 2, 0.109951743655322 / 2
		)
		q = &QuadRule{
			Points: [][]float64{
				{a1, a1}, {1 - 2*a1, a1}, {a1, 1 - 2*a1},
				{a2, a2}, {1 - 2*a2, a2}, {a2, 1 - 2*a2},
			},
			Weights: []float64{w1, w1, w1, w2, w2, w2},
		}
	default:
		err = fmt.Errorf("no triangle quadrature rule for degree %d", degree)
	}
	return
}

func tetRule(degree int) (q *QuadRule, err error) {
	switch {
	case degree <= 1:
		q = &QuadRule{
			Points:  [][]float64{{0.25, 0.25, 0.25}},
			Weights: []float64{1. / 6.},
		}
	case degree <= 2:
		var (
			a = 0.5854101966249685
			b = 0.1381966011250105
			w = 1. / 24.
		)
		q = &QuadRule{
			Points: [][]float64{
				{a, b, b}, {b, a, b}, {b, b, a}, {b, b, b},
			},
			Weights: []float64{w, w, w, w},
		}
	default:
		err = fmt.Errorf("no tetrahedron quadrature rule for degree %d", degree)
	}
	return
}

// DefaultRule picks the integration degree used for mass, diffusion and
// load assembly at the given basis order.
func DefaultRule(geom mesh.GeometryType, order int) (q *QuadRule, err error) {
	return NewQuadRule(geom, 2*order)
}
