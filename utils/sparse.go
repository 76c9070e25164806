package utils

import (
	"fmt"
	"math"
	"sort"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// DOK wraps the james-bowman dictionary-of-keys matrix with accumulating
// writes, the natural target for element-by-element scatter-add assembly.
type DOK struct {
	M *sparse.DOK
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		M: sparse.NewDOK(nr, nc),
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix      { return m.M.T() }

func (m DOK) Set(i, j int, val float64) { m.M.Set(i, j, val) }

// Accumulate adds val into entry (i,j).
func (m DOK) Accumulate(i, j int, val float64) {
	m.M.Set(i, j, m.M.At(i, j)+val)
}

type dokEntry struct {
	i, j int
	v    float64
}

func (m DOK) sortedEntries() (entries []dokEntry) {
	m.M.DoNonZero(func(i, j int, v float64) {
		entries = append(entries, dokEntry{i, j, v})
	})
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].i != entries[b].i {
			return entries[a].i < entries[b].i
		}
		return entries[a].j < entries[b].j
	})
	return
}

// ToCSR converts to CSR with rows and columns ascending. The underlying
// DOK map iterates in random order, so the entries are sorted first to
// keep downstream summation order identical run to run.
func (m DOK) ToCSR() *sparse.CSR {
	var (
		nr, nc  = m.Dims()
		entries = m.sortedEntries()
		ia      = make([]int, nr+1)
		ja      = make([]int, len(entries))
		data    = make([]float64, len(entries))
	)
	for n, e := range entries {
		ia[e.i+1]++
		ja[n], data[n] = e.j, e.v
	}
	for i := 0; i < nr; i++ {
		ia[i+1] += ia[i]
	}
	return sparse.NewCSR(nr, nc, ia, ja, data)
}

// DoNonZero calls fn for every stored entry in row-then-column order.
func (m DOK) DoNonZero(fn func(i, j int, v float64)) {
	for _, e := range m.sortedEntries() {
		fn(e.i, e.j, e.v)
	}
}

// RowMatrix is a sparse operator distributed by row ownership: the stored
// CSR spans the full global index space but only rows [Lo,Hi) carry this
// rank's data. Mult writes only the owned slice of the output.
type RowMatrix struct {
	M      *sparse.CSR
	Lo, Hi int
}

func NewRowMatrix(d DOK, lo, hi int) (R *RowMatrix) {
	var (
		nr, nc = d.Dims()
	)
	if nr != nc {
		panic(fmt.Errorf("RowMatrix requires a square global operator, have %d x %d", nr, nc))
	}
	R = &RowMatrix{
		M:  d.ToCSR(),
		Lo: lo,
		Hi: hi,
	}
	return
}

func (rm *RowMatrix) Size() (n int) {
	n, _ = rm.M.Dims()
	return
}

func (rm *RowMatrix) OwnedRange() (lo, hi int) {
	return rm.Lo, rm.Hi
}

// Mult computes y[Lo:Hi) = A[Lo:Hi,:] * x. Entries outside the owned range
// are left untouched; they belong to other ranks.
func (rm *RowMatrix) Mult(x, y []float64) {
	var (
		n = rm.Size()
	)
	if len(x) != n || len(y) != n {
		panic(fmt.Errorf("Mult dimension mismatch: n = %d, len(x) = %d, len(y) = %d", n, len(x), len(y)))
	}
	raw := rm.M.RawMatrix()
	for i := rm.Lo; i < rm.Hi; i++ {
		var sum float64
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			sum += raw.Data[jj] * x[raw.Ind[jj]]
		}
		y[i] = sum
	}
}

// FrobeniusDiff returns ||A-B||_F over the owned rows, used by tests
// comparing assembly strategies.
func (rm *RowMatrix) FrobeniusDiff(other *RowMatrix) (norm float64) {
	var (
		n = rm.Size()
	)
	for i := rm.Lo; i < rm.Hi; i++ {
		for j := 0; j < n; j++ {
			d := rm.M.At(i, j) - other.M.At(i, j)
			norm += d * d
		}
	}
	norm = math.Sqrt(norm)
	return
}
