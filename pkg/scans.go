package advlab

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CoincidenceFileName is the cache file used for the coincidences of an
// acquisition file.
func CoincidenceFileName(dataDir, eventFile string) string {
	base := filepath.Base(eventFile)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + "_COINC.dat"
	return filepath.Join(dataDir, base)
}

// LoadScan reads one acquisition and finds (or reloads) its coincidences.
func LoadScan(spec ScanSpec, config Configuration) (ScanData, error) {
	path := spec.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(config.DataDir, path)
	}
	evtLog, err := ReadEventLog(path, config.TimestampScale)
	if err != nil {
		return ScanData{}, err
	}
	t1, e1 := evtLog.Channel(config.ChannelA)
	t2, e2 := evtLog.Channel(config.ChannelB)

	pairs, err := FindOrLoadCoincidences(CoincidenceFileName(config.DataDir, path), t1, e1, t2, e2, config.CoincWindow)
	if err != nil {
		return ScanData{}, err
	}
	return ScanData{
		Offset:   spec.Offset,
		Pairs:    pairs,
		LiveTime: LiveTime(t1),
		ChannelA: config.ChannelA,
		ChannelB: config.ChannelB,
	}, nil
}

// ResolveScans fills angle and offset from the file name when the
// configuration leaves both at zero.
func ResolveScans(specs []ScanSpec) []ScanSpec {
	resolved := make([]ScanSpec, len(specs))
	for i, spec := range specs {
		if spec.Angle == 0 && spec.Offset == 0 {
			angle, offset, err := ParseScanName(spec.File)
			if err == nil {
				spec.Angle, spec.Offset = angle, offset
			} else if configuration.Verbosity > 0 {
				logger.Warn(fmt.Sprintf("using angle 0 and offset 0: %v", err), "scans")
			}
		}
		resolved[i] = spec
	}
	return resolved
}

// LoadRateProfiles builds one rate profile per distinct angle, keeping the
// file order of the configuration inside each angle.
func LoadRateProfiles(config Configuration, calibrator Calibrator) ([]RateProfile, error) {
	specs := ResolveScans(config.Scans)

	angles := make([]float64, 0)
	byAngle := make(map[float64][]ScanData)
	for _, spec := range specs {
		scan, err := LoadScan(spec, config)
		if err != nil {
			return nil, err
		}
		if _, ok := byAngle[spec.Angle]; !ok {
			angles = append(angles, spec.Angle)
		}
		byAngle[spec.Angle] = append(byAngle[spec.Angle], scan)
	}

	profiles := make([]RateProfile, 0, len(angles))
	for _, angle := range angles {
		profile, err := BuildRateProfile(angle, byAngle[angle], config.Geometry, calibrator, config.EnergyBand)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}
