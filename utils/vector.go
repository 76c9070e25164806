package utils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

type Vector struct {
	V     *mat.VecDense
	DataP []float64
}

func NewVector(n int, dataO ...[]float64) (R Vector) {
	var data []float64
	if len(dataO) != 0 {
		if len(dataO[0]) != n {
			err := fmt.Errorf("mismatch in allocation: NewVector n = %v, len(data[0]) = %v",
				n, len(dataO[0]))
			panic(err)
		}
		data = dataO[0]
	} else {
		data = make([]float64, n)
	}
	R = Vector{
		V:     mat.NewVecDense(n, data),
		DataP: data,
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (v Vector) Dims() (r, c int)    { return v.V.Dims() }
func (v Vector) At(i, j int) float64 { return v.V.At(i, j) }
func (v Vector) T() mat.Matrix       { return v.V.T() }

func (v Vector) AtVec(i int) float64 { return v.V.AtVec(i) }
func (v Vector) Len() int            { return v.V.Len() }

func (v Vector) Copy() (R Vector) {
	R = NewVector(v.Len())
	copy(R.DataP, v.DataP)
	return
}

func (v Vector) Set(val float64) Vector {
	for i := range v.DataP {
		v.DataP[i] = val
	}
	return v
}

func (v Vector) AddScalar(a float64) Vector {
	for i := range v.DataP {
		v.DataP[i] += a
	}
	return v
}

func (v Vector) Scale(a float64) Vector {
	for i := range v.DataP {
		v.DataP[i] *= a
	}
	return v
}

func (v Vector) Min() (min float64) {
	min = v.DataP[0]
	for _, val := range v.DataP {
		if val < min {
			min = val
		}
	}
	return
}

func (v Vector) Max() (max float64) {
	max = v.DataP[0]
	for _, val := range v.DataP {
		if val > max {
			max = val
		}
	}
	return
}
