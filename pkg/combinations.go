package advlab

import (
	"fmt"
	"math"
)

type LineMeasurement struct {
	Angle  float64
	Offset float64
	Sigma  float64
}

// Combination picks one peak per angle. Lines follow the angle order.
type Combination struct {
	Index int
	Lines []LineMeasurement
}

// CombinationDigits writes n in the given base, most significant digit
// first, zero padded to length.
func CombinationDigits(n, base, length int) []int {
	digits := make([]int, length)
	for i := length - 1; i >= 0; i-- {
		digits[i] = n % base
		n /= base
	}
	return digits
}

// GenerateCombinations enumerates the P^A ways of picking one of the P peaks
// of each of the A angles. Digit i of the combination index selects the peak
// of angle i.
func GenerateCombinations(peaks []AnglePeaks) ([]Combination, error) {
	if len(peaks) == 0 {
		return nil, ErrNoMeasurements
	}
	base := len(peaks[0].Peaks)
	if base < 1 {
		return nil, fmt.Errorf("angle %g: %w", peaks[0].Angle, ErrNoMeasurements)
	}
	for _, p := range peaks {
		if len(p.Peaks) != base {
			return nil, fmt.Errorf("angle %g has %d peaks, expected %d: %w",
				p.Angle, len(p.Peaks), base, ErrPeakCountMismatch)
		}
	}

	total := math.Pow(float64(base), float64(len(peaks)))
	if total > math.MaxInt32 {
		return nil, fmt.Errorf("too many combinations: %d^%d", base, len(peaks))
	}

	combinations := make([]Combination, int(total))
	for n := range combinations {
		digits := CombinationDigits(n, base, len(peaks))
		lines := make([]LineMeasurement, len(peaks))
		for i, d := range digits {
			sigma := 0.
			if d < len(peaks[i].Sigmas) {
				sigma = peaks[i].Sigmas[d]
			}
			lines[i] = LineMeasurement{
				Angle:  peaks[i].Angle,
				Offset: peaks[i].Peaks[d].Offset,
				Sigma:  sigma,
			}
		}
		combinations[n] = Combination{Index: n, Lines: lines}
	}
	return combinations, nil
}
