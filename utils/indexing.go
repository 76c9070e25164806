package utils

import "sort"

type Index []int

func (I Index) Sort() { sort.Ints(I) }

func NewIndex(N int) (I Index) {
	return make(Index, N)
}

func NewRange(rmin, rmax int) (r Index) {
	var (
		size = rmax - rmin + 1 // INCLUSIVE RANGE
	)
	r = make(Index, size)
	for i := range r {
		r[i] = i + rmin
	}
	return
}

func (I Index) Contains(i int) bool {
	for _, val := range I {
		if val == i {
			return true
		}
	}
	return false
}

// ToMap converts the index to a set, for when membership checks dominate,
// eg. essential dof lookup during elimination.
func (I Index) ToMap() (m map[int]struct{}) {
	m = make(map[int]struct{}, len(I))
	for _, val := range I {
		m[val] = struct{}{}
	}
	return
}
