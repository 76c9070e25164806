package mesh

import (
	"fmt"
	"log"
	"sort"

	metis "github.com/notargets/go-metis"
	"github.com/notargets/heatdist/utils"
)

// Decomposition assigns every element to exactly one rank.
type Decomposition struct {
	NP        int
	EToP      []int   // element -> owning rank
	RankElems [][]int // rank -> its element indices, ascending
}

// Decompose splits the mesh across np ranks. With more than one rank the
// element adjacency graph (elements sharing a face) is handed to METIS;
// a single rank owns everything.
func Decompose(m *Mesh, np int) (d *Decomposition, err error) {
	if np < 1 {
		err = fmt.Errorf("rank count must be positive, have %d", np)
		return
	}
	if np > m.NumElements() {
		err = fmt.Errorf("more ranks (%d) than elements (%d)", np, m.NumElements())
		return
	}
	d = &Decomposition{
		NP:   np,
		EToP: make([]int, m.NumElements()),
	}
	if np > 1 {
		if err = d.partGraph(m); err != nil {
			return
		}
	}
	d.RankElems = make([][]int, np)
	for k, p := range d.EToP {
		d.RankElems[p] = append(d.RankElems[p], k)
	}
	for p := 0; p < np; p++ {
		if len(d.RankElems[p]) == 0 {
			// METIS can leave a part empty on tiny meshes; fall back to
			// the contiguous split so every rank has work
			d.contiguous(m)
			break
		}
	}
	return
}

func (d *Decomposition) contiguous(m *Mesh) {
	pm := utils.NewPartitionMap(d.NP, m.NumElements())
	d.RankElems = make([][]int, d.NP)
	for p := 0; p < d.NP; p++ {
		lo, hi := pm.GetBucketRange(p)
		for k := lo; k < hi; k++ {
			d.EToP[k] = p
			d.RankElems[p] = append(d.RankElems[p], k)
		}
	}
}

func (d *Decomposition) partGraph(m *Mesh) (err error) {
	xadj, adjncy := buildAdjacency(m)

	opts := make([]int32, metis.NoOptions)
	if err = metis.SetDefaultOptions(opts); err != nil {
		return fmt.Errorf("failed to set METIS options: %w", err)
	}
	opts[metis.OptionObjType] = metis.ObjTypeCut

	ubvec := []float32{1.05}
	part, objval, err := metis.PartGraphKwayWeighted(
		xadj, adjncy, nil, nil,
		int32(d.NP), nil, ubvec, opts,
	)
	if err != nil {
		return fmt.Errorf("METIS partitioning failed: %w", err)
	}
	log.Printf("METIS decomposition: %d elements, %d parts, edge cut %d",
		m.NumElements(), d.NP, objval)
	for k := range d.EToP {
		d.EToP[k] = int(part[k])
	}
	return
}

// buildAdjacency converts face connectivity to the METIS CSR graph format.
func buildAdjacency(m *Mesh) (xadj, adjncy []int32) {
	var (
		faceElems = make(map[string][]int)
	)
	for k, ev := range m.Elements {
		for _, f := range elementFaces(m.Geom) {
			fv := make([]int, len(f))
			for i, lv := range f {
				fv[i] = ev[lv]
			}
			key := faceKey(fv)
			faceElems[key] = append(faceElems[key], k)
		}
	}
	neighbors := make([][]int32, m.NumElements())
	for _, elems := range faceElems {
		if len(elems) == 2 {
			neighbors[elems[0]] = append(neighbors[elems[0]], int32(elems[1]))
			neighbors[elems[1]] = append(neighbors[elems[1]], int32(elems[0]))
		}
	}
	xadj = make([]int32, m.NumElements()+1)
	for k, nbrs := range neighbors {
		// map iteration scrambles the append order; METIS input must not
		// vary between runs over the same mesh
		sort.Slice(nbrs, func(a, b int) bool { return nbrs[a] < nbrs[b] })
		adjncy = append(adjncy, nbrs...)
		xadj[k+1] = int32(len(adjncy))
	}
	return
}
