package advlab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrationExactLine(t *testing.T) {
	points := []CalibrationPoint{
		{Channel: 1, AdcChannel: 1000, Energy: 0.21},
		{Channel: 1, AdcChannel: 2000, Energy: 0.41},
		{Channel: 1, AdcChannel: 5000, Energy: 1.01},
	}
	calib, err := NewCalibration(points)
	require.NoError(t, err)

	line, ok := calib.Line(1)
	require.True(t, ok)
	assert.InDelta(t, 0.01, line.Intercept, 1e-9)
	assert.InDelta(t, 0.0002, line.Slope, 1e-12)

	energy, err := calib.Energy(1, 3000)
	require.NoError(t, err)
	assert.InDelta(t, 0.61, energy, 1e-9)
}

func TestCalibrationDefaultAnchors(t *testing.T) {
	calib, err := NewCalibration(DefaultConfiguration().Calibration)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, calib.Channels())

	// the 511 keV line of channel 0 sits at ADC 2721
	energy, err := calib.Energy(0, 2721)
	require.NoError(t, err)
	assert.InDelta(t, 0.515, energy, 0.001)

	energies, err := calib.Energies(2, []int32{496, 7214})
	require.NoError(t, err)
	assert.InDelta(t, 0.08, energies[0], 0.05)
	assert.InDelta(t, 1.33, energies[1], 0.05)
}

func TestCalibrationErrors(t *testing.T) {
	_, err := NewCalibration([]CalibrationPoint{{Channel: 0, AdcChannel: 100, Energy: 0.1}})
	assert.Error(t, err)

	_, err = NewCalibration([]CalibrationPoint{
		{Channel: 0, AdcChannel: 100, Energy: 0.1},
		{Channel: 0, AdcChannel: 100, Energy: 0.2},
	})
	assert.Error(t, err)

	calib, err := NewCalibration(DefaultConfiguration().Calibration)
	require.NoError(t, err)
	_, err = calib.Energy(3, 100)
	assert.Error(t, err)
	_, err = calib.Energies(3, []int32{100})
	assert.Error(t, err)
}
