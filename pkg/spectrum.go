package advlab

import (
	"fmt"
	"math"

	"go-hep.org/x/hep/hbook"
)

// BuildSpectrum histograms the energy channels with two channels per bin.
func BuildSpectrum(name string, energies []int32, nChannels int) *hbook.H1D {
	nbins := max(nChannels/2, 1)
	h := hbook.NewH1D(nbins, 0, float64(nChannels))
	for _, e := range energies {
		h.Fill(float64(e), 1)
	}
	h.Annotation()["name"] = name
	return h
}

// BuildCalibratedSpectrum histograms energies in MeV.
func BuildCalibratedSpectrum(name string, channel int, energies []int32, calibrator Calibrator, nbins int, maxEnergy float64) (*hbook.H1D, error) {
	h := hbook.NewH1D(nbins, 0, maxEnergy)
	for _, e := range energies {
		en, err := calibrator.Energy(channel, e)
		if err != nil {
			return nil, err
		}
		h.Fill(en, 1)
	}
	h.Annotation()["name"] = name
	return h, nil
}

// BuildDelayCurve histograms, for every event of the shorter channel, the
// signed time difference to the nearest event of the other channel. The
// search starts three events back in the other channel and stops as soon as
// the distance grows.
func BuildDelayCurve(t1, t2 []int64, settings DelaySettings) *hbook.H1D {
	if len(t1) > len(t2) {
		t1, t2 = t2, t1
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Difference of number of events: %d/%d", len(t2)-len(t1), len(t2))
		logger.Info(message, "delay")
	}

	h := hbook.NewH1D(settings.NBins, settings.Low, settings.High)
	h.Annotation()["name"] = "delay"
	for i, t := range t1 {
		if i < 3 {
			continue
		}
		best := int64(0)
		bestAbs := int64(math.MaxInt64)
		for _, other := range t2[min(i-3, len(t2)):] {
			diff := t - other
			if abs(diff) > bestAbs {
				break
			}
			best, bestAbs = diff, abs(diff)
		}
		if bestAbs != math.MaxInt64 && float64(bestAbs) < settings.MaxDelay {
			h.Fill(float64(best), 1)
		}
	}
	return h
}
