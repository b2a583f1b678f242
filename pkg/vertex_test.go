package advlab

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func manualState(xk, uk, sigXX, sigUU float64) LineState {
	return LineState{XK: xk, UK: uk, Cov: mat.NewSymDense(2, []float64{sigXX, 0, 0, sigUU})}
}

func defaultEstimator() (EstimatorSettings, ExpansionPoint) {
	settings := DefaultConfiguration().Estimator
	return settings, settings.Expansion()
}

func TestComputeVertexIntersection(t *testing.T) {
	config := DefaultConfiguration()
	settings, exp := defaultEstimator()
	states := []LineState{
		BuildLineState(LineMeasurement{Angle: 0, Offset: 10, Sigma: 2.5}, config.Geometry, settings),
		BuildLineState(LineMeasurement{Angle: 90, Offset: 5, Sigma: 2.5}, config.Geometry, settings),
	}

	v, err := ComputeVertex(states, exp, settings)
	require.NoError(t, err)
	assert.False(t, v.Rejected)
	assert.InDelta(t, 5, v.X, 0.01)
	assert.InDelta(t, 10, v.Y, 0.01)
	assert.Less(t, v.Chi2, 1e-3)
	assert.Greater(t, v.CovXX, 0.0)
	assert.Greater(t, v.CovYY, 0.0)
}

func TestComputeVertexIsIdempotent(t *testing.T) {
	config := DefaultConfiguration()
	settings, exp := defaultEstimator()
	states := []LineState{
		BuildLineState(LineMeasurement{Angle: 0, Offset: -10, Sigma: 2.5}, config.Geometry, settings),
		BuildLineState(LineMeasurement{Angle: 40, Offset: 5, Sigma: 2.5}, config.Geometry, settings),
	}

	first, err := ComputeVertex(states, exp, settings)
	require.NoError(t, err)
	second, err := ComputeVertex(states, exp, settings)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.InDelta(t, 19.67, first.X, 0.01)
	assert.InDelta(t, -9.97, first.Y, 0.01)
}

func TestComputeVertexMirrorSymmetry(t *testing.T) {
	settings, exp := defaultEstimator()
	// lines through (5, 0) with inverse slopes +1 and -1
	states := []LineState{
		manualState(5+26.5, 1, 1, 0.01),
		manualState(5-26.5, -1, 1, 0.01),
	}

	v, err := ComputeVertex(states, exp, settings)
	require.NoError(t, err)
	assert.False(t, v.Rejected)
	assert.InDelta(t, 0, v.Y, 1e-6)
	assert.InDelta(t, 5, v.X, 1e-6)
	assert.False(t, math.IsNaN(v.Chi2))
	assert.Less(t, v.Chi2, settings.Chi2Threshold)

	config := DefaultConfiguration()
	states = []LineState{
		BuildLineState(LineMeasurement{Angle: -30, Offset: 0, Sigma: 2.5}, config.Geometry, settings),
		BuildLineState(LineMeasurement{Angle: 30, Offset: 0, Sigma: 2.5}, config.Geometry, settings),
	}
	v, err = ComputeVertex(states, exp, settings)
	require.NoError(t, err)
	assert.InDelta(t, 0, v.Y, 1e-6)
	assert.InDelta(t, 0, v.X, 1e-6)
}

func TestComputeVertexRejection(t *testing.T) {
	settings, exp := defaultEstimator()
	// two parallel vertical lines 20 mm apart cannot meet
	states := []LineState{
		manualState(0, 0, 0.01, 1e-4),
		manualState(20, 0, 0.01, 1e-4),
	}

	v, err := ComputeVertex(states, exp, settings)
	require.NoError(t, err)
	assert.True(t, v.Rejected)
	assert.Greater(t, v.Chi2, settings.Chi2Threshold)
	assert.Zero(t, v.X)
	assert.Zero(t, v.Y)

	// a loose threshold keeps the estimate half way
	settings.Chi2Threshold = 1e6
	v, err = ComputeVertex(states, exp, settings)
	require.NoError(t, err)
	assert.False(t, v.Rejected)
	assert.InDelta(t, 10, v.X, 1e-6)
}

func TestComputeVertexErrors(t *testing.T) {
	settings, exp := defaultEstimator()

	_, err := ComputeVertex(nil, exp, settings)
	assert.True(t, errors.Is(err, ErrNoMeasurements))

	_, err = ComputeVertex([]LineState{manualState(0, 0, 0, 0)}, exp, settings)
	var singular *ErrSingularMatrix
	assert.True(t, errors.As(err, &singular))

	_, err = ComputeVertex([]LineState{{XK: 1}}, exp, settings)
	assert.Error(t, err)

	settings.PriorVariance = 0
	_, err = ComputeVertex([]LineState{manualState(0, 0, 1, 1)}, exp, settings)
	assert.Error(t, err)
}

func TestComputeVertexExpansionSlope(t *testing.T) {
	// with the expansion point on the origin its inverse slope cancels out
	settings, _ := defaultEstimator()
	states := []LineState{
		manualState(5+26.5, 1, 1, 0.01),
		manualState(5-26.5, -1, 1, 0.01),
	}
	a, err := ComputeVertex(states, ExpansionPoint{U: 1}, settings)
	require.NoError(t, err)
	b, err := ComputeVertex(states, ExpansionPoint{U: 0.5}, settings)
	require.NoError(t, err)
	assert.InDelta(t, a.X, b.X, 1e-6)
	assert.InDelta(t, a.Y, b.Y, 1e-6)
}
