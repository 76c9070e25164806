package HeatDistance

import (
	"image/color"
	"sort"
	"time"

	"github.com/notargets/avs/chart2d"
	"github.com/notargets/heatdist/utils"
)

// PlotFields shows the 1D solution fields in a live chart window. Only
// meaningful on segment meshes; higher dimensions use the ParaView
// export instead.
func (hd *HeatDistance) PlotFields(graphDelay time.Duration) {
	if hd.Mesh.Dim != 1 {
		return
	}
	var (
		sp  = hd.Space
		n   = sp.NDofs
		ord = utils.NewRange(0, n-1)
	)
	sort.Slice(ord, func(a, b int) bool {
		return sp.DofCoords[ord[a]][0] < sp.DofCoords[ord[b]][0]
	})
	var (
		x     = make([]float64, n)
		ymin  float64
		ymax  float64
		field = func(g []float64) (y []float64) {
			y = make([]float64, n)
			for i, d := range ord {
				y[i] = g[d]
				if y[i] < ymin {
					ymin = y[i]
				}
				if y[i] > ymax {
					ymax = y[i]
				}
			}
			return
		}
	)
	for i, d := range ord {
		x[i] = sp.DofCoords[d][0]
	}
	var (
		u    = field(hd.U.Vec)
		dist = field(hd.Distance.Vec)
	)
	chart := chart2d.NewChart2D(1920, 1280, float32(x[0]), float32(x[n-1]),
		float32(ymin), float32(ymax*1.1))
	go chart.Plot()
	white := color.RGBA{R: 255, G: 255, B: 255, A: 0}
	green := color.RGBA{G: 255, A: 0}
	if err := chart.AddSeries("diffused", x, u,
		chart2d.CrossGlyph, chart2d.Dashed, white); err != nil {
		panic("unable to add graph series")
	}
	if err := chart.AddSeries("distance", x, dist,
		chart2d.NoGlyph, chart2d.Solid, green); err != nil {
		panic("unable to add graph series")
	}
	time.Sleep(graphDelay)
}
