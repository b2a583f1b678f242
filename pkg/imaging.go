package advlab

import (
	"math"

	"go-hep.org/x/hep/hbook"
)

// Box is the scanned area, centred on the origin.
type Box struct {
	XSide float64
	YSide float64
}

func (g Geometry) Box() Box {
	return Box{XSide: g.XSide, YSide: g.YSide}
}

func (b Box) Contains(x, y float64) bool {
	return math.Abs(x) <= b.XSide/2 && math.Abs(y) <= b.YSide/2
}

// Backproject adds the weight of every line to the bins it crosses inside
// the box. The grid has 2*granularity bins every 5 mm.
func Backproject(states []LineState, weights []float64, geometry Geometry, settings EstimatorSettings, granularity int) *hbook.H2D {
	if granularity < 1 {
		granularity = 1
	}
	nx := max(int(geometry.XSide/5)*2*granularity, 1)
	ny := max(int(geometry.YSide/5)*2*granularity, 1)
	xlo, xhi := -geometry.XSide/2, geometry.XSide/2
	ylo, yhi := -geometry.YSide/2, geometry.YSide/2
	hh := hbook.NewH2D(nx, xlo, xhi, ny, ylo, yhi)
	hh.Annotation()["name"] = "pet"

	box := geometry.Box()
	dx := (xhi - xlo) / float64(nx)
	dy := (yhi - ylo) / float64(ny)
	for i, s := range states {
		w := 1.
		if i < len(weights) {
			w = weights[i]
		}
		if s.Degenerate || math.Abs(s.UK) > 1 {
			// shallow line: walk along x
			for ix := 0; ix < nx; ix++ {
				x := xlo + (float64(ix)+0.5)*dx
				y := settings.YRef + (x-s.XK)/s.UK
				if box.Contains(x, y) {
					hh.Fill(x, y, w)
				}
			}
			continue
		}
		for iy := 0; iy < ny; iy++ {
			y := ylo + (float64(iy)+0.5)*dy
			x := s.XK + s.UK*(y-settings.YRef)
			if box.Contains(x, y) {
				hh.Fill(x, y, w)
			}
		}
	}
	return hh
}
