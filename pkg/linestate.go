package advlab

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type Point struct {
	X, Y float64
}

// LineState is a line of sight in estimator coordinates: XK is the abscissa
// where the line crosses y = YRef and UK = dx/dy is its inverse slope.
type LineState struct {
	Angle      float64
	Offset     float64
	X0, Y0     float64 // segment centre after rotation
	Slope      float64
	XK         float64
	UK         float64
	Degenerate bool
	Cov        *mat.SymDense
	Segment    [2]Point
}

// rotate turns p around the origin by -angle degrees.
func rotate(p Point, angle float64) Point {
	s, c := math.Sincos(-angle * math.Pi / 180)
	return Point{
		X: c*p.X - s*p.Y,
		Y: s*p.X + c*p.Y,
	}
}

// BuildLineState rotates the horizontal segment at the measured offset by the
// scan angle and expresses it as (x_k, u_k) with a diagonal covariance.
// Lines closer to horizontal than 1/MaxInverseSlope get u_k clamped to
// +-MaxInverseSlope.
func BuildLineState(m LineMeasurement, geometry Geometry, settings EstimatorSettings) LineState {
	half := geometry.LineHalfLength
	p1 := rotate(Point{X: -half, Y: m.Offset}, m.Angle)
	p2 := rotate(Point{X: half, Y: m.Offset}, m.Angle)

	state := LineState{
		Angle:   m.Angle,
		Offset:  m.Offset,
		X0:      (p1.X + p2.X) / 2,
		Y0:      (p1.Y + p2.Y) / 2,
		Segment: [2]Point{p1, p2},
	}

	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	if dx == 0 {
		state.Slope = math.Inf(1)
	} else {
		state.Slope = dy / dx
	}

	if math.Abs(state.Slope) < 1/settings.MaxInverseSlope {
		state.Degenerate = true
		state.UK = settings.MaxInverseSlope
		if state.Slope < 0 {
			state.UK = -settings.MaxInverseSlope
		}
	} else {
		state.UK = dx / dy
	}
	state.XK = state.X0 + state.UK*(settings.YRef-state.Y0)

	sigma := m.Sigma
	if sigma <= 0 {
		sigma = 1
	}
	scale := 1 + state.UK*state.UK
	angular := math.Atan(settings.AspectRatio) * scale
	state.Cov = mat.NewSymDense(2, []float64{
		sigma * sigma * scale, 0,
		0, angular * angular,
	})
	return state
}

// BuildStates converts every line of a combination.
func BuildStates(c Combination, geometry Geometry, settings EstimatorSettings) []LineState {
	states := make([]LineState, len(c.Lines))
	for i, m := range c.Lines {
		states[i] = BuildLineState(m, geometry, settings)
	}
	return states
}
