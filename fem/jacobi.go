package fem

import (
	"math"

	"github.com/notargets/heatdist/utils"
	"gonum.org/v1/gonum/mat"
)

// Orthonormal Jacobi polynomial machinery underpinning the 1D Lagrange
// basis: Gauss and Gauss-Lobatto point sets and the (gradient)
// Vandermonde matrices used to evaluate nodal bases anywhere.

func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	a1 := alpha + 1.
	b1 := beta + 1.
	return math.Gamma(a1) * math.Gamma(b1) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}

func gamma1(alpha, beta float64) float64 {
	ab := alpha + beta
	a1 := alpha + 1.
	b1 := beta + 1.
	return a1 * b1 * gamma0(alpha, beta) / (ab + 3.0)
}

// JacobiP evaluates the orthonormal Jacobi polynomial of order N at the
// points r.
func JacobiP(r utils.Vector, alpha, beta float64, N int) (p []float64) {
	var (
		Nc = r.Len()
	)
	rg := 1. / math.Sqrt(gamma0(alpha, beta))
	if N == 0 {
		p = make([]float64, Nc)
		for i := range p {
			p[i] = rg
		}
		return
	}
	pl := utils.NewMatrix(N+1, Nc)
	for i := 0; i < Nc; i++ {
		pl.Set(0, i, rg)
	}
	ab := alpha + beta
	rg1 := 1. / math.Sqrt(gamma1(alpha, beta))
	for i := 0; i < Nc; i++ {
		pl.Set(1, i, rg1*((ab+2.0)*r.AtVec(i)/2.0+(alpha-beta)/2.0))
	}
	if N == 1 {
		p = pl.DataP[Nc : 2*Nc]
		return
	}
	a1 := alpha + 1.
	b1 := beta + 1.
	ab1 := ab + 1.
	aold := 2.0 * math.Sqrt(a1*b1/(ab+3.0)) / (ab + 2.0)
	for i := 0; i < N-1; i++ {
		ip1 := float64(i + 1)
		ip2 := ip1 + 1
		h1 := 2.0*ip1 + ab
		anew := 2.0 / (h1 + 2.0) * math.Sqrt(ip2*(ip1+ab1)*(ip1+a1)*(ip1+b1)/(h1+1.0)/(h1+3.0))
		bnew := -(alpha*alpha - beta*beta) / h1 / (h1 + 2.0)
		for j := 0; j < Nc; j++ {
			pl.Set(i+2, j, ((r.AtVec(j)-bnew)*pl.At(i+1, j)-aold*pl.At(i, j))/anew)
		}
		aold = anew
	}
	p = pl.DataP[N*Nc : (N+1)*Nc]
	return
}

// GradJacobiP evaluates the derivative of the orthonormal Jacobi
// polynomial of order N at the points r.
func GradJacobiP(r utils.Vector, alpha, beta float64, N int) (p []float64) {
	if N == 0 {
		p = make([]float64, r.Len())
		return
	}
	p = JacobiP(r, alpha+1, beta+1, N-1)
	fN := float64(N)
	fac := math.Sqrt(fN * (fN + alpha + beta + 1))
	for i, val := range p {
		p[i] = val * fac
	}
	return
}

// JacobiGQ returns the order-N Gauss quadrature points and weights for the
// Jacobi weight (alpha,beta).
func JacobiGQ(alpha, beta float64, N int) (X, W utils.Vector) {
	var (
		x, w []float64
		fac  float64
	)
	if N == 0 {
		x = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		w = []float64{2.}
		return utils.NewVector(len(x), x), utils.NewVector(len(w), w)
	}

	h1 := make([]float64, N+1)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// Symmetric tridiagonal recurrence matrix
	d0 := make([]float64, N+1)
	fac = -.5 * (alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		d0[i] = fac / (val * (val + 2.))
	}
	eps := 1.e-16
	if alpha+beta < 10*eps {
		d0[0] = 0.
	}
	d1 := make([]float64, N)
	for i := 0; i < N; i++ {
		ip1 := float64(i + 1)
		val := h1[i]
		d1[i] = 2. / (val + 2.)
		d1[i] *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
	}

	JJ := mat.NewSymDense(N+1, nil)
	for i := 0; i < N+1; i++ {
		JJ.SetSym(i, i, d0[i])
		if i < N {
			JJ.SetSym(i, i+1, d1[i])
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(JJ, true); !ok {
		panic("eigenvalue decomposition failed")
	}
	x = eig.Values(nil)
	X = utils.NewVector(N+1, x)

	VVr := mat.NewDense(len(x), len(x), nil)
	eig.VectorsTo(VVr)
	w = make([]float64, N+1)
	g0 := gamma0(alpha, beta)
	for i := 0; i < N+1; i++ {
		v := VVr.At(0, i)
		w[i] = v * v * g0
	}
	W = utils.NewVector(N+1, w)
	return
}

// JacobiGL returns the order-N Gauss-Lobatto points on [-1,1].
func JacobiGL(alpha, beta float64, N int) (X utils.Vector) {
	x := make([]float64, N+1)
	if N == 1 {
		x[0], x[1] = -1, 1
		return utils.NewVector(N+1, x)
	}
	xint, _ := JacobiGQ(alpha+1, beta+1, N-2)
	x[0] = -1
	x[N] = 1
	for i := 1; i < N; i++ {
		x[i] = xint.AtVec(i - 1)
	}
	X = utils.NewVector(N+1, x)
	return
}

// Vandermonde1D builds the generalized Vandermonde matrix V_ij = P_j(r_i).
func Vandermonde1D(N int, R utils.Vector) (V utils.Matrix) {
	V = utils.NewMatrix(R.Len(), N+1)
	for j := 0; j < N+1; j++ {
		V.SetCol(j, JacobiP(R, 0, 0, j))
	}
	return
}

// GradVandermonde1D builds Vr_ij = P'_j(r_i).
func GradVandermonde1D(N int, R utils.Vector) (Vr utils.Matrix) {
	Vr = utils.NewMatrix(R.Len(), N+1)
	for j := 0; j < N+1; j++ {
		Vr.SetCol(j, GradJacobiP(R, 0, 0, j))
	}
	return
}
