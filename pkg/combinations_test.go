package advlab

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anglePeaks(angle float64, offsets ...float64) AnglePeaks {
	ap := AnglePeaks{Angle: angle}
	for _, o := range offsets {
		ap.Peaks = append(ap.Peaks, Peak{Offset: o})
		ap.Sigmas = append(ap.Sigmas, 2.5)
	}
	return ap
}

func TestCombinationDigits(t *testing.T) {
	assert.Equal(t, []int{0, 0, 0}, CombinationDigits(0, 2, 3))
	assert.Equal(t, []int{1, 0, 1}, CombinationDigits(5, 2, 3))
	assert.Equal(t, []int{1, 1, 1}, CombinationDigits(7, 2, 3))
	assert.Equal(t, []int{0, 2, 1}, CombinationDigits(7, 3, 3))
}

func TestGenerateCombinationsBinary(t *testing.T) {
	for nAngles := 1; nAngles <= 5; nAngles++ {
		peaks := make([]AnglePeaks, nAngles)
		for i := range peaks {
			peaks[i] = anglePeaks(float64(20*i), -10, 10)
		}
		combinations, err := GenerateCombinations(peaks)
		require.NoError(t, err)
		require.Len(t, combinations, 1<<nAngles)

		for i, line := range combinations[0].Lines {
			assert.Equal(t, -10.0, line.Offset)
			assert.Equal(t, float64(20*i), line.Angle)
		}
		for _, line := range combinations[len(combinations)-1].Lines {
			assert.Equal(t, 10.0, line.Offset)
		}
		for i, c := range combinations {
			assert.Equal(t, i, c.Index)
		}
	}
}

func TestGenerateCombinationsMostSignificantFirst(t *testing.T) {
	peaks := []AnglePeaks{anglePeaks(0, 1, 2), anglePeaks(40, 3, 4)}
	combinations, err := GenerateCombinations(peaks)
	require.NoError(t, err)

	expected := [][]float64{{1, 3}, {1, 4}, {2, 3}, {2, 4}}
	for i, c := range combinations {
		assert.Equal(t, expected[i], []float64{c.Lines[0].Offset, c.Lines[1].Offset})
		assert.Equal(t, 2.5, c.Lines[0].Sigma)
	}
}

func TestGenerateCombinationsDuplicatedPeak(t *testing.T) {
	peaks := []AnglePeaks{anglePeaks(0, 5, 5), anglePeaks(40, -3, 8)}
	combinations, err := GenerateCombinations(peaks)
	require.NoError(t, err)
	require.Len(t, combinations, 4)
	assert.Equal(t, combinations[0].Lines, combinations[2].Lines[:2])
}

func TestGenerateCombinationsErrors(t *testing.T) {
	_, err := GenerateCombinations(nil)
	assert.True(t, errors.Is(err, ErrNoMeasurements))

	_, err = GenerateCombinations([]AnglePeaks{anglePeaks(0, 1, 2), anglePeaks(40, 3)})
	assert.True(t, errors.Is(err, ErrPeakCountMismatch))

	_, err = GenerateCombinations([]AnglePeaks{{Angle: 0}})
	assert.True(t, errors.Is(err, ErrNoMeasurements))
}
