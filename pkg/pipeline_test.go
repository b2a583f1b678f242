package advlab

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticProfiles() []RateProfile {
	offsets := []float64{-20, -15, -10, -5, 0, 5, 10, 15, 20}
	return []RateProfile{
		// peaks at -5 and 5
		profileFromCounts(40, offsets, []float64{0, 50, 100, 900, 100, 600, 100, 50, 0}),
		// peaks at -10 and 10
		profileFromCounts(0, offsets, []float64{0, 100, 800, 100, 50, 100, 700, 100, 0}),
	}
}

func TestReconstructVertices(t *testing.T) {
	config := DefaultConfiguration()
	config.Peaks.Algorithm = LocalMaximum

	rec, err := ReconstructVertices(syntheticProfiles(), config)
	require.NoError(t, err)

	require.Len(t, rec.Peaks, 2)
	assert.Equal(t, 0.0, rec.Peaks[0].Angle)
	assert.Equal(t, 40.0, rec.Peaks[1].Angle)
	require.Len(t, rec.Combinations, 4)
	require.Len(t, rec.Estimates, 4)
	assert.Zero(t, rec.Failed)

	sel := rec.Selection
	require.NotNil(t, sel.Primary)
	require.NotNil(t, sel.Secondary)
	assert.True(t, config.Geometry.Box().Contains(sel.Primary.X, sel.Primary.Y))
	assert.True(t, config.Geometry.Box().Contains(sel.Secondary.X, sel.Secondary.Y))
	assert.ElementsMatch(t, []int{0, 3}, []int{sel.Primary.Combination, sel.Secondary.Combination})

	// the two best candidates mirror each other through the origin
	assert.InDelta(t, -sel.Primary.X, sel.Secondary.X, 0.05)
	assert.InDelta(t, -sel.Primary.Y, sel.Secondary.Y, 0.05)
	assert.InDelta(t, 10, abs(sel.Primary.Y), 0.05)
}

func TestReconstructVerticesWorkers(t *testing.T) {
	config := DefaultConfiguration()
	config.Peaks.Algorithm = LocalMaximum

	config.NumWorkers = 1
	serial, err := ReconstructVertices(syntheticProfiles(), config)
	require.NoError(t, err)

	config.NumWorkers = 4
	parallel, err := ReconstructVertices(syntheticProfiles(), config)
	require.NoError(t, err)

	assert.Equal(t, serial.Estimates, parallel.Estimates)
	assert.Equal(t, serial.Selection, parallel.Selection)
}

func TestReconstructVerticesErrors(t *testing.T) {
	config := DefaultConfiguration()

	_, err := ReconstructVertices(nil, config)
	assert.True(t, errors.Is(err, ErrNoMeasurements))

	profiles := append(syntheticProfiles(), RateProfile{Angle: 80})
	_, err = ReconstructVertices(profiles, config)
	assert.True(t, errors.Is(err, ErrEmptyProfile))
}

func TestEvaluateCombinations(t *testing.T) {
	config := DefaultConfiguration()
	task := vertexTask{
		Geometry:       config.Geometry,
		Settings:       config.Estimator,
		ExpansionPoint: config.Estimator.Expansion(),
	}
	combinations := []Combination{
		{Index: 7, Lines: []LineMeasurement{{Angle: 0, Offset: 10, Sigma: 2.5}, {Angle: 90, Offset: 5, Sigma: 2.5}}},
		{Index: 8},
	}

	results := evaluateCombinations(combinations, task, 0)
	require.Len(t, results, 2)

	assert.Equal(t, 7, results[0].Index)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 7, results[0].Estimate.Combination)
	assert.InDelta(t, 5, results[0].Estimate.X, 0.01)

	assert.Equal(t, 8, results[1].Index)
	assert.True(t, errors.Is(results[1].Err, ErrNoMeasurements))
}
