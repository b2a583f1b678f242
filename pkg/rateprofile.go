package advlab

import (
	"fmt"

	"go-hep.org/x/hep/hbook"
)

type ScanData struct {
	Offset   float64 // raw scan offset, before the box reference transform
	Pairs    []CoincidencePair
	LiveTime float64 // s
	ChannelA int
	ChannelB int
}

type RateEntry struct {
	Offset float64
	Count  int
	Rate   float64
}

// RateProfile is the coincidence rate versus offset for one scan angle.
// Entries follow the order of the scan files.
type RateProfile struct {
	Angle   float64
	Entries []RateEntry
}

// LiveTime is the acquisition length in seconds from ns timestamps.
func LiveTime(times []int64) float64 {
	if len(times) < 2 {
		return 0
	}
	lo, hi := minMax(times)
	return float64(hi-lo) / 1e9
}

// BuildRateProfile counts, for every scan, the coincidences with both
// calibrated energies inside band and divides by the live time.
func BuildRateProfile(angle float64, scans []ScanData, geometry Geometry, calibrator Calibrator, band EnergyBand) (RateProfile, error) {
	profile := RateProfile{Angle: angle, Entries: make([]RateEntry, 0, len(scans))}
	for i, scan := range scans {
		if scan.LiveTime <= 0 {
			return profile, fmt.Errorf("angle %g, scan %d (offset %g): non positive live time %g",
				angle, i, scan.Offset, scan.LiveTime)
		}
		count := 0
		for _, pair := range scan.Pairs {
			en1, err := calibrator.Energy(scan.ChannelA, pair.E1)
			if err != nil {
				return profile, err
			}
			en2, err := calibrator.Energy(scan.ChannelB, pair.E2)
			if err != nil {
				return profile, err
			}
			if band.Contains(en1) && band.Contains(en2) {
				count++
			}
		}
		entry := RateEntry{
			Offset: geometry.BoxReference - scan.Offset,
			Count:  count,
			Rate:   float64(count) / scan.LiveTime,
		}
		profile.Entries = append(profile.Entries, entry)

		if configuration.Verbosity > 1 {
			message := fmt.Sprintf("angle %g, y %g: %d/%d coincidences in the energy window, rate %.5f 1/s",
				angle, entry.Offset, count, len(scan.Pairs), entry.Rate)
			logger.Info(message, "rates")
		}
	}
	return profile, nil
}

func (p RateProfile) Offsets() []float64 {
	offsets := make([]float64, len(p.Entries))
	for i, e := range p.Entries {
		offsets[i] = e.Offset
	}
	return offsets
}

func (p RateProfile) Counts() []float64 {
	counts := make([]float64, len(p.Entries))
	for i, e := range p.Entries {
		counts[i] = float64(e.Count)
	}
	return counts
}

func (p RateProfile) Rates() []float64 {
	rates := make([]float64, len(p.Entries))
	for i, e := range p.Entries {
		rates[i] = e.Rate
	}
	return rates
}

// Histogram fills the coincidence counts in a histogram with one bin per
// distinct offset, assuming evenly spaced scan positions.
func (p RateProfile) Histogram() *hbook.H1D {
	offsets, counts := DedupeSamples(p.Offsets(), p.Counts())
	var h *hbook.H1D
	switch len(offsets) {
	case 0:
		h = hbook.NewH1D(1, 0, 1)
	case 1:
		h = hbook.NewH1D(1, offsets[0]-0.5, offsets[0]+0.5)
	default:
		step := (offsets[len(offsets)-1] - offsets[0]) / float64(len(offsets)-1)
		h = hbook.NewH1D(len(offsets), offsets[0]-step/2, offsets[len(offsets)-1]+step/2)
	}
	for i, x := range offsets {
		h.Fill(x, counts[i])
	}
	h.Annotation()["name"] = fmt.Sprintf("th%g", p.Angle)
	return h
}
