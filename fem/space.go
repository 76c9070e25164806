package fem

import (
	"fmt"
	"log"

	"github.com/notargets/heatdist/mesh"
	"github.com/notargets/heatdist/utils"
)

// Space is an H1 finite element space over a decomposed mesh. The global
// dof numbering is vertices first, then edge interiors, then element
// interiors. Edge interior dofs run from the lower to the higher global
// vertex id, so neighboring elements agree on shared dofs. The structure
// is built once and read concurrently by all ranks.
type Space struct {
	Mesh   *mesh.Mesh
	Order  int
	VDim   int // components per node, 1 for scalar fields
	Basis  *Basis
	NDofs  int // scalar dofs; vector fields hold VDim*NDofs coefficients
	Decomp *mesh.Decomposition

	ElemDofs  [][]int             // element -> global dofs, local basis ordering
	DofCoords [][]float64         // global dof -> physical location
	DofElem   []int               // a representative element containing the dof
	DofNode   []int               // local dof index within that element
	DofPart   *utils.PartitionMap // row ownership by rank

	edgeDofStart map[[2]int]int
}

func NewSpace(m *mesh.Mesh, order int, dec *mesh.Decomposition) (sp *Space, err error) {
	return NewVectorSpace(m, order, dec, 1)
}

// NewVectorSpace builds a space for vdim-component fields. Components
// share the scalar dof numbering and are stored in component-major
// blocks of length NDofs.
func NewVectorSpace(m *mesh.Mesh, order int, dec *mesh.Decomposition, vdim int) (sp *Space, err error) {
	if vdim < 1 {
		err = fmt.Errorf("invalid field dimension %d", vdim)
		return
	}
	if order <= 0 {
		log.Printf("mesh-order space requested, falling back to linear elements\n")
		order = 1
	}
	b, err := NewBasis(m.Geom, order)
	if err != nil {
		return
	}
	sp = &Space{
		Mesh:         m,
		Order:        order,
		VDim:         vdim,
		Basis:        b,
		Decomp:       dec,
		edgeDofStart: make(map[[2]int]int),
	}
	sp.number()
	sp.locate()
	sp.DofPart = utils.NewPartitionMap(dec.NP, sp.NDofs)
	return
}

// number assigns global dof ids and fills ElemDofs.
func (sp *Space) number() {
	var (
		m     = sp.Mesh
		b     = sp.Basis
		edges = mesh.ElementEdges(m.Geom)
		nEdge = b.NumEdgeDofs()
		nInt  = b.NumInteriorDofs()
		next  = m.NumVertices()
	)
	// Edge dofs are shared, allocated on first encounter
	if nEdge > 0 {
		for _, elem := range m.Elements {
			for _, e := range edges {
				key := sortedPair(elem[e[0]], elem[e[1]])
				if _, have := sp.edgeDofStart[key]; !have {
					sp.edgeDofStart[key] = next
					next += nEdge
				}
			}
		}
	}
	sp.ElemDofs = make([][]int, m.NumElements())
	for k, elem := range m.Elements {
		dofs := make([]int, 0, b.Np)
		dofs = append(dofs, elem...)
		for _, e := range edges {
			var (
				a, c  = elem[e[0]], elem[e[1]]
				start = sp.edgeDofStart[sortedPair(a, c)]
			)
			if a < c {
				for i := 0; i < nEdge; i++ {
					dofs = append(dofs, start+i)
				}
			} else {
				for i := nEdge - 1; i >= 0; i-- {
					dofs = append(dofs, start+i)
				}
			}
		}
		for i := 0; i < nInt; i++ {
			dofs = append(dofs, next)
			next++
		}
		sp.ElemDofs[k] = dofs
	}
	sp.NDofs = next
}

// locate computes physical coordinates and a representative element for
// every dof.
func (sp *Space) locate() {
	sp.DofCoords = make([][]float64, sp.NDofs)
	sp.DofElem = make([]int, sp.NDofs)
	sp.DofNode = make([]int, sp.NDofs)
	for k := range sp.Mesh.Elements {
		trans := NewElemTransform(sp.Mesh, k)
		for n, gd := range sp.ElemDofs[k] {
			if sp.DofCoords[gd] == nil {
				sp.DofCoords[gd] = trans.Eval(sp.Basis.Nodes[n])
				sp.DofElem[gd] = k
				sp.DofNode[gd] = n
			}
		}
	}
}

// EssentialTrueDofs gathers the dofs lying on boundary elements whose
// attribute is marked. The marker slice is indexed by attribute minus one.
func (sp *Space) EssentialTrueDofs(marker []int) (ess utils.Index) {
	var (
		m     = sp.Mesh
		nEdge = sp.Basis.NumEdgeDofs()
		seen  = make(map[int]bool)
	)
	for i, bdr := range m.BdrElements {
		attr := m.BdrAttrs[i]
		if attr < 1 || attr > len(marker) || marker[attr-1] == 0 {
			continue
		}
		for _, v := range bdr {
			seen[v] = true
		}
		if nEdge > 0 && len(bdr) == 2 {
			start := sp.edgeDofStart[sortedPair(bdr[0], bdr[1])]
			for j := 0; j < nEdge; j++ {
				seen[start+j] = true
			}
		}
	}
	for d := range seen {
		ess = append(ess, d)
	}
	ess.Sort()
	return
}

// RankElements returns the element ids assigned to a rank.
func (sp *Space) RankElements(myRank int) []int {
	return sp.Decomp.RankElems[myRank]
}

// OwnedRange returns the contiguous dof range [lo,hi) owned by a rank.
func (sp *Space) OwnedRange(myRank int) (lo, hi int) {
	return sp.DofPart.GetBucketRange(myRank)
}

func (sp *Space) String() string {
	return fmt.Sprintf("H1 space: %d elements, %d dofs, order %d, %d ranks",
		sp.Mesh.NumElements(), sp.NDofs, sp.Order, sp.Decomp.NP)
}

func sortedPair(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
