package advlab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSpectrum(t *testing.T) {
	h := BuildSpectrum("ch0", []int32{10, 11, 5999}, 6000)
	require.Len(t, h.Binning.Bins, 3000)
	assert.Equal(t, 3.0, h.SumW())
	assert.Equal(t, 2.0, h.Binning.Bins[5].SumW())
	assert.Equal(t, 1.0, h.Binning.Bins[2999].SumW())
	assert.Equal(t, "ch0", h.Annotation()["name"])
}

func TestBuildCalibratedSpectrum(t *testing.T) {
	h, err := BuildCalibratedSpectrum("ch0_MeV", 0, []int32{511, 512, 1250}, keVCalibrator{}, 20, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, h.SumW())
	// 0.1 MeV bins
	assert.Equal(t, 2.0, h.Binning.Bins[5].SumW())
	assert.Equal(t, 1.0, h.Binning.Bins[12].SumW())

	_, err = BuildCalibratedSpectrum("bad", -1, []int32{1}, keVCalibrator{}, 20, 2)
	assert.Error(t, err)
}

func TestBuildDelayCurve(t *testing.T) {
	settings := DefaultConfiguration().Delay
	t1 := []int64{0, 100, 200, 300, 400}
	t2 := []int64{3, 103, 203, 303, 405}

	h := BuildDelayCurve(t1, t2, settings)
	// the first three events have no look-back window
	assert.Equal(t, 2.0, h.SumW())
	assert.Equal(t, 1.0, h.Binning.Bins[97].SumW()) // -3
	assert.Equal(t, 1.0, h.Binning.Bins[95].SumW()) // -5

	settings.MaxDelay = 4
	h = BuildDelayCurve(t1, t2, settings)
	assert.Equal(t, 1.0, h.SumW())

	// channels are swapped so the shorter one drives
	h = BuildDelayCurve(append(t2, 500, 600), t1, DefaultConfiguration().Delay)
	assert.Equal(t, 2.0, h.SumW())
	assert.Equal(t, 1.0, h.Binning.Bins[97].SumW())
}
