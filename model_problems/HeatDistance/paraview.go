package HeatDistance

import (
	"bufio"
	"fmt"
	"os"

	"github.com/notargets/heatdist/mesh"
)

var vtkCellTypes = map[mesh.GeometryType]int{
	mesh.Segment:     3,
	mesh.Triangle:    5,
	mesh.Quad:        9,
	mesh.Tetrahedron: 10,
	mesh.Cube:        12,
}

// WriteVTK exports the mesh and the four solution fields as a legacy
// ASCII VTK file readable by ParaView. Fields are written as vertex
// point data; vertex dofs coincide with vertex ids in the global
// numbering, so higher order interior dofs are simply not exported.
func (hd *HeatDistance) WriteVTK(fileName string) (err error) {
	var (
		m  = hd.Mesh
		nv = m.NumVertices()
		ne = m.NumElements()
	)
	fh, err := os.Create(fileName)
	if err != nil {
		return
	}
	defer fh.Close()
	w := bufio.NewWriter(fh)

	fmt.Fprintf(w, "# vtk DataFile Version 3.0\n")
	fmt.Fprintf(w, "heatdist distance fields\n")
	fmt.Fprintf(w, "ASCII\nDATASET UNSTRUCTURED_GRID\n")
	fmt.Fprintf(w, "POINTS %d double\n", nv)
	for _, v := range m.Vertices {
		var xyz [3]float64
		copy(xyz[:], v)
		fmt.Fprintf(w, "%g %g %g\n", xyz[0], xyz[1], xyz[2])
	}
	size := 0
	for _, e := range m.Elements {
		size += 1 + len(e)
	}
	fmt.Fprintf(w, "CELLS %d %d\n", ne, size)
	for _, e := range m.Elements {
		fmt.Fprintf(w, "%d", len(e))
		for _, v := range e {
			fmt.Fprintf(w, " %d", v)
		}
		fmt.Fprintf(w, "\n")
	}
	fmt.Fprintf(w, "CELL_TYPES %d\n", ne)
	for range m.Elements {
		fmt.Fprintf(w, "%d\n", vtkCellTypes[m.Geom])
	}

	fmt.Fprintf(w, "POINT_DATA %d\n", nv)
	writeScalar := func(name string, vec []float64) {
		fmt.Fprintf(w, "SCALARS %s double 1\nLOOKUP_TABLE default\n", name)
		for i := 0; i < nv; i++ {
			fmt.Fprintf(w, "%g\n", vec[i])
		}
	}
	writeScalar("w", hd.U0.Vec)
	writeScalar("u", hd.U.Vec)
	writeScalar("distance", hd.Distance.Vec)
	fmt.Fprintf(w, "VECTORS grad double\n")
	for i := 0; i < nv; i++ {
		var g [3]float64
		for d := 0; d < hd.VSpace.VDim; d++ {
			g[d] = hd.GradField.Component(d)[i]
		}
		fmt.Fprintf(w, "%g %g %g\n", g[0], g[1], g[2])
	}
	return w.Flush()
}
