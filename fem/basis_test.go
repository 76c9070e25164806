package fem

import (
	"testing"

	"github.com/notargets/heatdist/mesh"
	"github.com/stretchr/testify/assert"
)

func TestBasisPartitionOfUnity(t *testing.T) {
	var cases = []struct {
		geom  mesh.GeometryType
		order int
		pt    []float64
	}{
		{mesh.Segment, 1, []float64{0.3}},
		{mesh.Segment, 4, []float64{-0.7}},
		{mesh.Quad, 1, []float64{0.2, -0.4}},
		{mesh.Quad, 3, []float64{-0.1, 0.9}},
		{mesh.Triangle, 1, []float64{0.2, 0.3}},
		{mesh.Triangle, 2, []float64{0.1, 0.6}},
		{mesh.Tetrahedron, 1, []float64{0.2, 0.2, 0.3}},
		{mesh.Cube, 1, []float64{0.5, -0.5, 0.1}},
	}
	for _, tc := range cases {
		b, err := NewBasis(tc.geom, tc.order)
		assert.NoError(t, err)
		var (
			phi  = b.Eval(tc.pt)
			dphi = b.Grad(tc.pt)
			sum  float64
			dsum = make([]float64, tc.geom.Dim())
		)
		assert.Equal(t, b.Np, len(phi))
		for i, p := range phi {
			sum += p
			for d := range dsum {
				dsum[d] += dphi[i][d]
			}
		}
		assert.InDelta(t, 1.0, sum, 1.e-12, "%v order %d", tc.geom, tc.order)
		for d := range dsum {
			assert.InDelta(t, 0.0, dsum[d], 1.e-11, "%v order %d", tc.geom, tc.order)
		}
	}
}

func TestBasisNodalProperty(t *testing.T) {
	// phi_i(node_j) = delta_ij
	for _, tc := range []struct {
		geom  mesh.GeometryType
		order int
	}{
		{mesh.Segment, 3}, {mesh.Quad, 2}, {mesh.Triangle, 2}, {mesh.Cube, 1},
	} {
		b, err := NewBasis(tc.geom, tc.order)
		assert.NoError(t, err)
		for j, node := range b.Nodes {
			phi := b.Eval(node)
			for i := range phi {
				want := 0.0
				if i == j {
					want = 1.0
				}
				assert.InDelta(t, want, phi[i], 1.e-11)
			}
		}
	}
}

func TestBasisSupportMatrix(t *testing.T) {
	// Unsupported geometry and order pairs are configuration errors
	{
		_, err := NewBasis(mesh.Triangle, 3)
		assert.Error(t, err)
	}
	{
		_, err := NewBasis(mesh.Cube, 2)
		assert.Error(t, err)
	}
	{
		_, err := NewBasis(mesh.Tetrahedron, 2)
		assert.Error(t, err)
	}
	{
		_, err := NewBasis(mesh.Segment, 0)
		assert.Error(t, err)
	}
	// High order tensor geometries are fine
	{
		b, err := NewBasis(mesh.Quad, 5)
		assert.NoError(t, err)
		assert.Equal(t, 36, b.Np)
		assert.Equal(t, 4, b.NumVertexDofs())
		assert.Equal(t, 4, b.NumEdgeDofs())
		assert.Equal(t, 16, b.NumInteriorDofs())
	}
}

func TestQuadRuleExactness(t *testing.T) {
	// Segment: integral of r^2 over [-1,1] is 2/3
	{
		q, err := NewQuadRule(mesh.Segment, 2)
		assert.NoError(t, err)
		var sum float64
		for i, p := range q.Points {
			sum += q.Weights[i] * p[0] * p[0]
		}
		assert.InDelta(t, 2./3., sum, 1.e-12)
	}
	// Quad: integral of r^2 s^2 over [-1,1]^2 is 4/9
	{
		q, err := NewQuadRule(mesh.Quad, 4)
		assert.NoError(t, err)
		var sum float64
		for i, p := range q.Points {
			sum += q.Weights[i] * p[0] * p[0] * p[1] * p[1]
		}
		assert.InDelta(t, 4./9., sum, 1.e-12)
	}
	// Triangle: integral of r*s over the unit simplex is 1/24
	{
		q, err := NewQuadRule(mesh.Triangle, 2)
		assert.NoError(t, err)
		var sum float64
		for i, p := range q.Points {
			sum += q.Weights[i] * p[0] * p[1]
		}
		assert.InDelta(t, 1./24., sum, 1.e-12)
	}
	// Degree 4 triangle rule integrates quartics
	{
		q, err := NewQuadRule(mesh.Triangle, 4)
		assert.NoError(t, err)
		var sum float64
		for i, p := range q.Points {
			sum += q.Weights[i] * p[0] * p[0] * p[1] * p[1]
		}
		assert.InDelta(t, 1./180., sum, 1.e-12)
	}
	// Tet: integral of r over the unit tet is 1/24
	{
		q, err := NewQuadRule(mesh.Tetrahedron, 2)
		assert.NoError(t, err)
		var sum float64
		for i, p := range q.Points {
			sum += q.Weights[i] * p[0]
		}
		assert.InDelta(t, 1./24., sum, 1.e-12)
	}
	// Cube: weights sum to the reference volume 8
	{
		q, err := NewQuadRule(mesh.Cube, 2)
		assert.NoError(t, err)
		var sum float64
		for _, w := range q.Weights {
			sum += w
		}
		assert.InDelta(t, 8., sum, 1.e-12)
	}
}
