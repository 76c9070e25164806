package fem

import (
	"github.com/notargets/heatdist/utils"
)

// Contribution is one scatter-add routed to the rank owning its row.
// Linear form contributions leave Col at -1.
type Contribution struct {
	Row, Col int
	Val      float64
}

// AssemblyExtension realizes a form as concrete global structures. A form
// delegates Assemble to its extension; swapping the extension changes the
// cost profile, never the mathematical result.
type AssemblyExtension interface {
	Assemble() error
}

// BilinearForm accumulates bilinear integrator contributions into the
// owned rows of a global sparse operator. One instance per rank; the
// instances cooperate through the shared mailbox and communicator.
type BilinearForm struct {
	Space       *Space
	MyRank      int
	Comm        *utils.Comm
	Mail        *utils.MailBox[Contribution]
	Integrators []BilinearIntegrator

	Rows utils.DOK // owned rows, valid after Assemble
	ext  AssemblyExtension
	ess  map[int]struct{} // eliminated dofs, set by FormLinearSystem
}

func NewBilinearForm(sp *Space, myRank int, comm *utils.Comm,
	mail *utils.MailBox[Contribution]) (bf *BilinearForm) {
	bf = &BilinearForm{
		Space:  sp,
		MyRank: myRank,
		Comm:   comm,
		Mail:   mail,
	}
	bf.ext = NewFullBilinearAssembly(bf)
	return
}

func (bf *BilinearForm) AddDomainIntegrator(bi BilinearIntegrator) {
	bf.Integrators = append(bf.Integrators, bi)
}

// SetAssemblyExtension installs an alternative assembly strategy.
func (bf *BilinearForm) SetAssemblyExtension(ext AssemblyExtension) {
	bf.ext = ext
}

// Assemble is collective over all ranks.
func (bf *BilinearForm) Assemble() error {
	return bf.ext.Assemble()
}

// LinearForm accumulates linear integrator contributions into the owned
// range of a global right hand side vector.
type LinearForm struct {
	Space       *Space
	MyRank      int
	Comm        *utils.Comm
	Mail        *utils.MailBox[Contribution]
	Integrators []LinearIntegrator

	Vec []float64 // full length, owned range valid after Assemble
	ext AssemblyExtension
}

func NewLinearForm(sp *Space, myRank int, comm *utils.Comm,
	mail *utils.MailBox[Contribution]) (lf *LinearForm) {
	lf = &LinearForm{
		Space:  sp,
		MyRank: myRank,
		Comm:   comm,
		Mail:   mail,
		Vec:    make([]float64, sp.NDofs),
	}
	lf.ext = NewFullLinearAssembly(lf)
	return
}

func (lf *LinearForm) AddDomainIntegrator(li LinearIntegrator) {
	lf.Integrators = append(lf.Integrators, li)
}

// AddBoundaryIntegrator attaches a surface integrator. The full assembly
// strategy rejects these at Assemble time.
func (lf *LinearForm) AddBoundaryIntegrator(li LinearIntegrator) {
	lf.Integrators = append(lf.Integrators, li)
}

func (lf *LinearForm) SetAssemblyExtension(ext AssemblyExtension) {
	lf.ext = ext
}

func (lf *LinearForm) Assemble() error {
	return lf.ext.Assemble()
}
