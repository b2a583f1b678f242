package advlab

import (
	"fmt"
	"math"
	"sort"

	"go-hep.org/x/hep/fit"
	"gonum.org/v1/gonum/optimize"
)

type Peak struct {
	Offset    float64
	Amplitude float64
	Width     float64 // fitted sigma, 0 for local maxima
}

// AnglePeaks holds exactly NumPeaks peaks of one angle, ascending in offset.
type AnglePeaks struct {
	Angle  float64
	Peaks  []Peak
	Sigmas []float64
}

// DedupeSamples sorts the samples by offset and keeps the first occurrence of
// repeated offsets.
func DedupeSamples(offsets, counts []float64) ([]float64, []float64) {
	n := min(len(offsets), len(counts))
	index := argsort(offsets[:n])
	x := make([]float64, 0, n)
	y := make([]float64, 0, n)
	for _, i := range index {
		if len(x) > 0 && x[len(x)-1] == offsets[i] {
			continue
		}
		x = append(x, offsets[i])
		y = append(y, counts[i])
	}
	return x, y
}

// localMaxima returns the indices where the sign of the first difference
// decreases.
func localMaxima(y []float64) []int {
	maxima := make([]int, 0)
	for i := 1; i+1 < len(y); i++ {
		if sign(y[i+1]-y[i])-sign(y[i]-y[i-1]) < 0 {
			maxima = append(maxima, i)
		}
	}
	return maxima
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func ExtractPeaks(profile RateProfile, settings PeakSettings) (AnglePeaks, error) {
	result := AnglePeaks{Angle: profile.Angle}
	if settings.NumPeaks < 1 {
		return result, fmt.Errorf("angle %g: num_peaks must be positive", profile.Angle)
	}
	x, y := DedupeSamples(profile.Offsets(), profile.Counts())
	if len(x) == 0 {
		return result, fmt.Errorf("angle %g: %w", profile.Angle, ErrEmptyProfile)
	}

	peaks := make([]Peak, 0)
	for _, i := range localMaxima(y) {
		if y[i] < settings.Threshold {
			continue
		}
		peaks = append(peaks, Peak{Offset: x[i], Amplitude: y[i]})
	}

	if len(peaks) == 0 {
		imax := 0
		for i := range y {
			if y[i] > y[imax] {
				imax = i
			}
		}
		peaks = append(peaks, Peak{Offset: x[imax], Amplitude: y[imax]})
		message := fmt.Sprintf("angle %g: no local maximum above %g, using the global maximum at %g",
			profile.Angle, settings.Threshold, x[imax])
		logger.Warn(message, "peaks")
	}

	if len(peaks) > settings.NumPeaks {
		sort.SliceStable(peaks, func(i, j int) bool {
			return peaks[i].Amplitude > peaks[j].Amplitude
		})
		peaks = peaks[:settings.NumPeaks]
	}
	sortPeaks(peaks)

	if settings.Algorithm == DoubleGaussian && len(peaks) == 2 {
		fitted, err := fitDoubleGaussian(x, y, peaks, settings.FitSigma)
		if err != nil {
			return result, fmt.Errorf("angle %g: %w", profile.Angle, err)
		}
		peaks = fitted
		sortPeaks(peaks)
	}

	if len(peaks) < settings.NumPeaks {
		message := fmt.Sprintf("angle %g: %d peak(s) found, duplicating to %d",
			profile.Angle, len(peaks), settings.NumPeaks)
		logger.Warn(message, "peaks")
		for len(peaks) < settings.NumPeaks {
			peaks = append(peaks, peaks[len(peaks)-1])
		}
	}

	result.Peaks = peaks
	result.Sigmas = make([]float64, len(peaks))
	for i := range result.Sigmas {
		result.Sigmas[i] = settings.PositionSigma
	}

	if configuration.Verbosity > 0 {
		for _, p := range peaks {
			message := fmt.Sprintf("angle %g: peak at %.3f mm, amplitude %.1f", profile.Angle, p.Offset, p.Amplitude)
			logger.Info(message, "peaks")
		}
	}
	return result, nil
}

func sortPeaks(peaks []Peak) {
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Offset < peaks[j].Offset
	})
}

func gaussian(x, amplitude, mean, sigma float64) float64 {
	v := (x - mean) / sigma
	return amplitude * math.Exp(-0.5*v*v)
}

func doubleGaussian(x float64, ps []float64) float64 {
	return gaussian(x, ps[0], ps[1], ps[2]) + gaussian(x, ps[3], ps[4], ps[5])
}

// fitDoubleGaussian fits the sum of two gaussians seeded with the local maxima.
func fitDoubleGaussian(x, y []float64, seeds []Peak, sigma float64) ([]Peak, error) {
	if len(x) < 6 {
		return nil, fmt.Errorf("double gaussian fit needs at least 6 samples, got %d", len(x))
	}
	res, err := fit.Curve1D(
		fit.Func1D{
			F:  doubleGaussian,
			X:  x,
			Y:  y,
			Ps: []float64{seeds[0].Amplitude, seeds[0].Offset, sigma, seeds[1].Amplitude, seeds[1].Offset, sigma},
		},
		nil, &optimize.NelderMead{},
	)
	if err != nil {
		return nil, fmt.Errorf("double gaussian fit failed: %w", err)
	}
	ps := res.X
	for _, p := range ps {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("double gaussian fit diverged: %v", ps)
		}
	}
	return []Peak{
		{Offset: ps[1], Amplitude: ps[0], Width: math.Abs(ps[2])},
		{Offset: ps[4], Amplitude: ps[3], Width: math.Abs(ps[5])},
	}, nil
}
