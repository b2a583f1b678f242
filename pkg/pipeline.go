package advlab

import (
	"fmt"
	"sort"
)

type Reconstruction struct {
	Peaks        []AnglePeaks
	Combinations []Combination
	Estimates    []VertexEstimate
	Failed       int
	Selection    Selection
}

// ReconstructVertices turns the rate profiles of all scan angles into ranked
// vertex candidates. Combinations whose fit fails are logged and dropped.
func ReconstructVertices(profiles []RateProfile, config Configuration) (*Reconstruction, error) {
	if len(profiles) == 0 {
		return nil, ErrNoMeasurements
	}
	sorted := make([]RateProfile, len(profiles))
	copy(sorted, profiles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Angle < sorted[j].Angle
	})

	rec := &Reconstruction{Peaks: make([]AnglePeaks, 0, len(sorted))}
	for _, profile := range sorted {
		peaks, err := ExtractPeaks(profile, config.Peaks)
		if err != nil {
			return nil, err
		}
		rec.Peaks = append(rec.Peaks, peaks)
	}

	combinations, err := GenerateCombinations(rec.Peaks)
	if err != nil {
		return nil, err
	}
	rec.Combinations = combinations
	if config.Verbosity > 0 {
		logger.Info(fmt.Sprintf("%d combinations of %d angles", len(combinations), len(rec.Peaks)), "vertexing")
	}

	task := vertexTask{
		Geometry:       config.Geometry,
		Settings:       config.Estimator,
		ExpansionPoint: config.Estimator.Expansion(),
	}
	results := evaluateCombinations(combinations, task, config.NumWorkers)

	rec.Estimates = make([]VertexEstimate, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			rec.Failed++
			logger.Error(r.Err.Error())
			continue
		}
		rec.Estimates = append(rec.Estimates, r.Estimate)
		if config.Verbosity > 1 {
			message := fmt.Sprintf("combination %d: (%.2f, %.2f) chi2 %.3g rejected %t",
				r.Index, r.Estimate.X, r.Estimate.Y, r.Estimate.Chi2, r.Estimate.Rejected)
			logger.Info(message, "vertexing")
		}
	}

	rec.Selection = SelectVertices(rec.Estimates)
	return rec, nil
}
