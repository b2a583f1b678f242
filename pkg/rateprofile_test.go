package advlab

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keV calibration: one ADC channel is one keV on every channel.
type keVCalibrator struct{}

func (keVCalibrator) Energy(channel int, adc int32) (float64, error) {
	if channel < 0 {
		return 0, fmt.Errorf("bad channel %d", channel)
	}
	return float64(adc) / 1000, nil
}

func TestLiveTime(t *testing.T) {
	assert.Equal(t, 2.5, LiveTime([]int64{1_000_000_000, 2_000_000_000, 3_500_000_000}))
	assert.Zero(t, LiveTime([]int64{42}))
	assert.Zero(t, LiveTime(nil))
}

func TestBuildRateProfile(t *testing.T) {
	geometry := DefaultConfiguration().Geometry
	band := EnergyBand{Min: 0.1, Max: 1.0}
	scans := []ScanData{
		{
			Offset:   57.5,
			LiveTime: 2,
			ChannelA: 0,
			ChannelB: 2,
			Pairs: []CoincidencePair{
				{E1: 511, E2: 511},
				{E1: 511, E2: 1200}, // second outside
				{E1: 100, E2: 511},  // edge excluded
				{E1: 999, E2: 101},
			},
		},
		{Offset: 77.5, LiveTime: 4, ChannelA: 0, ChannelB: 2},
		{Offset: 57.5, LiveTime: 1, ChannelA: 0, ChannelB: 2, Pairs: []CoincidencePair{{E1: 300, E2: 300}}},
	}

	profile, err := BuildRateProfile(40, scans, geometry, keVCalibrator{}, band)
	require.NoError(t, err)
	assert.Equal(t, 40.0, profile.Angle)
	assert.Equal(t, []float64{10, -10, 10}, profile.Offsets())
	assert.Equal(t, []float64{2, 0, 1}, profile.Counts())
	assert.Equal(t, []float64{1, 0, 1}, profile.Rates())
}

func TestBuildRateProfileErrors(t *testing.T) {
	geometry := DefaultConfiguration().Geometry
	band := EnergyBand{Min: 0.1, Max: 1.0}

	_, err := BuildRateProfile(0, []ScanData{{Offset: 1, LiveTime: 0}}, geometry, keVCalibrator{}, band)
	assert.Error(t, err)

	_, err = BuildRateProfile(0, []ScanData{{Offset: 1, LiveTime: 1, ChannelA: -1, Pairs: []CoincidencePair{{}}}},
		geometry, keVCalibrator{}, band)
	assert.Error(t, err)

	profile, err := BuildRateProfile(0, nil, geometry, keVCalibrator{}, band)
	require.NoError(t, err)
	assert.Empty(t, profile.Entries)
}

func TestRateProfileHistogram(t *testing.T) {
	profile := RateProfile{Angle: 0, Entries: []RateEntry{
		{Offset: 5, Count: 7},
		{Offset: -5, Count: 3},
		{Offset: 0, Count: 10},
		{Offset: 5, Count: 99},
	}}
	h := profile.Histogram()
	require.Len(t, h.Binning.Bins, 3)
	assert.Equal(t, 20.0, h.SumW())
	assert.InDelta(t, -5, h.Binning.Bins[0].XMid(), 1e-9)
	assert.Equal(t, 3.0, h.Binning.Bins[0].SumW())
	assert.Equal(t, 7.0, h.Binning.Bins[2].SumW())
}
