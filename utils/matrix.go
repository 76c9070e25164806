package utils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

type Matrix struct {
	M     *mat.Dense
	DataP []float64
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var data []float64
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v",
				nr, nc, len(dataO[0]))
			panic(err)
		}
		data = dataO[0]
	} else {
		data = make([]float64, nr*nc)
	}
	R = Matrix{
		M:     mat.NewDense(nr, nc, data),
		DataP: data,
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)    { return m.M.Dims() }
func (m Matrix) At(i, j int) float64 { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix       { return m.M.T() }

func (m Matrix) Set(i, j int, val float64) { m.M.Set(i, j, val) }

func (m Matrix) Add(i, j int, val float64) {
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m Matrix) SetCol(j int, data []float64) Matrix {
	m.M.SetCol(j, data)
	return m
}

func (m Matrix) Copy() (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nr, nc)
	copy(R.DataP, m.DataP)
	return
}

func (m Matrix) Scale(a float64) Matrix {
	for i, val := range m.DataP {
		m.DataP[i] = val * a
	}
	return m
}

func (m Matrix) Mul(A Matrix) (R Matrix) {
	var (
		nrM, _ = m.M.Dims()
		_, ncA = A.M.Dims()
	)
	R = NewMatrix(nrM, ncA)
	R.M.Mul(m.M, A.M)
	return
}

func (m Matrix) Transpose() (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nc, nr)
	for j := 0; j < nc; j++ {
		for i := 0; i < nr; i++ {
			R.M.Set(j, i, m.M.At(i, j))
		}
	}
	return
}

func (m Matrix) Inverse() (R Matrix, err error) {
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nr, nc)
	err = R.M.Inverse(m.M)
	return
}

// MulVec computes m*x for a plain coefficient slice, used in element-local
// operations where the matrix is small and dense.
func (m Matrix) MulVec(x []float64) (y []float64) {
	var (
		nr, nc = m.Dims()
	)
	if len(x) != nc {
		panic(fmt.Errorf("MulVec dimension mismatch: nc = %d, len(x) = %d", nc, len(x)))
	}
	y = make([]float64, nr)
	for i := 0; i < nr; i++ {
		var sum float64
		row := m.DataP[i*nc : (i+1)*nc]
		for j, val := range row {
			sum += val * x[j]
		}
		y[i] = sum
	}
	return
}
