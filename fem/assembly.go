package fem

import (
	"fmt"
	"sort"

	"github.com/notargets/heatdist/utils"
)

// FullBilinearAssembly is the concrete assembly strategy that fully
// materializes the sparse operator. It holds a non-owning back reference
// to the form it serves plus the element attribute and marker arrays
// selecting which elements participate. It supports domain integrators
// only and rejects anything else before touching a collective.
type FullBilinearAssembly struct {
	a          *BilinearForm
	attributes []int // attribute per mesh element
	markers    []int // marked attributes, indexed by attribute minus one
}

func NewFullBilinearAssembly(a *BilinearForm) (ext *FullBilinearAssembly) {
	ext = &FullBilinearAssembly{
		a:          a,
		attributes: make([]int, a.Space.Mesh.NumElements()),
		markers:    []int{1},
	}
	// Inline meshes carry a single element attribute
	for k := range ext.attributes {
		ext.attributes[k] = 1
	}
	return
}

func (ext *FullBilinearAssembly) selected(k int) bool {
	attr := ext.attributes[k]
	return attr >= 1 && attr <= len(ext.markers) && ext.markers[attr-1] != 0
}

// Assemble overwrites the owned rows of the operator; calling it again
// rebuilds the same result rather than doubling it. Collective.
func (ext *FullBilinearAssembly) Assemble() (err error) {
	var (
		a  = ext.a
		sp = a.Space
	)
	for _, bi := range a.Integrators {
		if !bi.Domain() {
			return fmt.Errorf("full assembly supports domain integrators only, have %T", bi)
		}
	}
	q, err := DefaultRule(sp.Mesh.Geom, sp.Order)
	if err != nil {
		return
	}
	a.Rows = utils.NewDOK(sp.NDofs, sp.NDofs)
	for _, k := range sp.RankElements(a.MyRank) {
		if !ext.selected(k) {
			continue
		}
		var (
			trans = NewElemTransform(sp.Mesh, k)
			em    = utils.NewMatrix(sp.Basis.Np, sp.Basis.Np)
			dofs  = sp.ElemDofs[k]
		)
		for _, bi := range a.Integrators {
			ei := bi.ElementMatrix(sp, trans, q)
			for i := 0; i < sp.Basis.Np; i++ {
				for j := 0; j < sp.Basis.Np; j++ {
					em.Add(i, j, ei.At(i, j))
				}
			}
		}
		for i, gi := range dofs {
			owner := sp.DofPart.GetBucket(gi)
			for j, gj := range dofs {
				v := em.At(i, j)
				if v == 0 {
					continue
				}
				if owner == a.MyRank {
					a.Rows.Accumulate(gi, gj, v)
				} else {
					a.Mail.PostMessage(a.MyRank, owner, Contribution{gi, gj, v})
				}
			}
		}
	}
	a.Mail.DeliverMyMessages(a.MyRank)
	a.Comm.Barrier()
	for _, c := range sortContributions(a.Mail.ReceiveMyMessages(a.MyRank)) {
		a.Rows.Accumulate(c.Row, c.Col, c.Val)
	}
	a.Comm.Barrier()
	return
}

// sortContributions fixes the accumulation order: messages arrive in
// channel order, which varies with scheduling, and floating point sums
// must not.
func sortContributions(cs []Contribution) []Contribution {
	sort.Slice(cs, func(a, b int) bool {
		if cs[a].Row != cs[b].Row {
			return cs[a].Row < cs[b].Row
		}
		if cs[a].Col != cs[b].Col {
			return cs[a].Col < cs[b].Col
		}
		return cs[a].Val < cs[b].Val
	})
	return cs
}

// FullLinearAssembly is the right hand side counterpart, same contract.
type FullLinearAssembly struct {
	lf         *LinearForm
	attributes []int
	markers    []int
}

func NewFullLinearAssembly(lf *LinearForm) (ext *FullLinearAssembly) {
	ext = &FullLinearAssembly{
		lf:         lf,
		attributes: make([]int, lf.Space.Mesh.NumElements()),
		markers:    []int{1},
	}
	for k := range ext.attributes {
		ext.attributes[k] = 1
	}
	return
}

func (ext *FullLinearAssembly) selected(k int) bool {
	attr := ext.attributes[k]
	return attr >= 1 && attr <= len(ext.markers) && ext.markers[attr-1] != 0
}

func (ext *FullLinearAssembly) Assemble() (err error) {
	var (
		lf = ext.lf
		sp = lf.Space
	)
	for _, li := range lf.Integrators {
		if !li.Domain() {
			return fmt.Errorf("full assembly supports domain integrators only, have %T", li)
		}
	}
	q, err := DefaultRule(sp.Mesh.Geom, sp.Order)
	if err != nil {
		return
	}
	var (
		lo, hi = sp.OwnedRange(lf.MyRank)
	)
	for i := lo; i < hi; i++ {
		lf.Vec[i] = 0
	}
	for _, k := range sp.RankElements(lf.MyRank) {
		if !ext.selected(k) {
			continue
		}
		var (
			trans = NewElemTransform(sp.Mesh, k)
			ev    = make([]float64, sp.Basis.Np)
			dofs  = sp.ElemDofs[k]
		)
		for _, li := range lf.Integrators {
			ei := li.ElementVector(sp, trans, q)
			for i := range ev {
				ev[i] += ei[i]
			}
		}
		for i, gi := range dofs {
			if ev[i] == 0 {
				continue
			}
			owner := sp.DofPart.GetBucket(gi)
			if owner == lf.MyRank {
				lf.Vec[gi] += ev[i]
			} else {
				lf.Mail.PostMessage(lf.MyRank, owner, Contribution{gi, -1, ev[i]})
			}
		}
	}
	lf.Mail.DeliverMyMessages(lf.MyRank)
	lf.Comm.Barrier()
	for _, c := range sortContributions(lf.Mail.ReceiveMyMessages(lf.MyRank)) {
		lf.Vec[c.Row] += c.Val
	}
	lf.Comm.Barrier()
	return
}
