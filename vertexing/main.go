package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	advlab "github.com/advlab/vertexing_go/pkg"
	"github.com/advlab/vertexing_go/pkg/h5writer"
	_ "github.com/ianlancetaylor/cgosymbolizer"
	"github.com/spf13/cobra"
)

var configuration advlab.Configuration

var (
	logger         advlab.Logger
	configFilename string
	verbosity      int
	numWorkers     int
)

func init() {
	logger = advlab.NewLogger(os.Stdout, os.Stderr, slog.LevelDebug)

	rootCmd.Flags().StringVar(&configFilename, "config", "", "Configuration file path")
	rootCmd.Flags().IntVar(&verbosity, "verbosity", -1, "Override the configuration verbosity")
	rootCmd.Flags().IntVar(&numWorkers, "workers", 0, "Override the number of workers")
	rootCmd.MarkFlagRequired("config")
}

var rootCmd = &cobra.Command{
	Use:   "vertexing",
	Short: "Reconstruct source vertices from angular scans",
	Long: `vertexing reads the acquisition files of every scan position, counts the
coincidences inside the energy window, extracts the rate peaks of each angle
and fits a vertex for every combination of lines. The two lowest chi-square
vertices are reported.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var err error
	configuration, err = advlab.LoadConfiguration(configFilename)
	if err != nil {
		return fmt.Errorf("error reading configuration file: %w", err)
	}
	if verbosity >= 0 {
		configuration.Verbosity = verbosity
	}
	if numWorkers > 0 {
		configuration.NumWorkers = numWorkers
	}
	advlab.SetConfiguration(configuration)
	advlab.SetLogger(logger)

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", configFilename)
		logger.Info(message, "main")
		advlab.PrintConfiguration(configuration, logger)
	}

	start := time.Now()
	calibration, err := loadCalibration()
	if err != nil {
		return err
	}

	profiles, err := advlab.LoadRateProfiles(configuration, calibration)
	if err != nil {
		return fmt.Errorf("error building rate profiles: %w", err)
	}

	rec, err := advlab.ReconstructVertices(profiles, configuration)
	if err != nil {
		return fmt.Errorf("error reconstructing vertices: %w", err)
	}
	report(rec)

	if configuration.WriteData {
		if err := writeOutput(profiles, rec); err != nil {
			return err
		}
	}

	if !configuration.NoDB {
		if err := storeResults(rec); err != nil {
			return err
		}
	}

	duration := time.Since(start)
	logger.Info(fmt.Sprintf("Total time: %d ms", duration.Milliseconds()), "main")
	return nil
}

func loadCalibration() (*advlab.Calibration, error) {
	points := configuration.Calibration
	if !configuration.NoDB {
		dbConn, err := advlab.OpenDatabase(configuration)
		if err != nil {
			return nil, fmt.Errorf("error connection to database: %w", err)
		}
		defer dbConn.Close()
		points, err = advlab.LoadCalibrationFromDB(dbConn)
		if err != nil {
			return nil, err
		}
	}
	return advlab.NewCalibration(points)
}

func report(rec *advlab.Reconstruction) {
	box := configuration.Geometry.Box()
	message := fmt.Sprintf("%d/%d combinations accepted, %d failed",
		len(rec.Selection.Ranked), len(rec.Combinations), rec.Failed)
	logger.Info(message, "main")

	for i, v := range []*advlab.VertexEstimate{rec.Selection.Primary, rec.Selection.Secondary} {
		if v == nil {
			logger.Warn(fmt.Sprintf("no vertex %d", i+1), "main")
			continue
		}
		message := fmt.Sprintf("vertex %d: (xv, yv) = (%.2f, %.2f) chi2 = %.3e, combination %d",
			i+1, v.X, v.Y, v.Chi2, v.Combination)
		logger.Info(message, "main")
		if !box.Contains(v.X, v.Y) {
			logger.Warn(fmt.Sprintf("vertex %d lies outside the box", i+1), "main")
		}
	}
}

func writeOutput(profiles []advlab.RateProfile, rec *advlab.Reconstruction) error {
	writer, err := h5writer.NewWriter(configuration.FileOut, 4)
	if err != nil {
		return err
	}

	for _, p := range profiles {
		if err := writer.WriteProfile(p); err != nil {
			return closeWithError(writer, err)
		}
		if err := writer.WriteHistogram(fmt.Sprintf("th%g", p.Angle), p.Histogram()); err != nil {
			return closeWithError(writer, err)
		}
	}
	for _, c := range rec.Combinations {
		states := advlab.BuildStates(c, configuration.Geometry, configuration.Estimator)
		if err := writer.WriteLines(c.Index, states); err != nil {
			return closeWithError(writer, err)
		}
	}
	if err := writer.WriteReconstruction(rec); err != nil {
		return closeWithError(writer, err)
	}

	// back projection of the peak lines, weighted with the peak amplitudes
	states := make([]advlab.LineState, 0)
	weights := make([]float64, 0)
	for _, ap := range rec.Peaks {
		for i, p := range ap.Peaks {
			m := advlab.LineMeasurement{Angle: ap.Angle, Offset: p.Offset, Sigma: ap.Sigmas[i]}
			states = append(states, advlab.BuildLineState(m, configuration.Geometry, configuration.Estimator))
			weights = append(weights, p.Amplitude)
		}
	}
	image := advlab.Backproject(states, weights, configuration.Geometry, configuration.Estimator, 1)
	if err := writer.WriteHistogram2D("imaging", image); err != nil {
		return closeWithError(writer, err)
	}

	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Created %s", configuration.FileOut), "main")
	}
	return writer.Close()
}

func closeWithError(writer *h5writer.Writer, err error) error {
	if cerr := writer.Close(); cerr != nil {
		logger.Error(cerr.Error())
	}
	return err
}

func storeResults(rec *advlab.Reconstruction) error {
	dbConn, err := advlab.OpenDatabase(configuration)
	if err != nil {
		return fmt.Errorf("error connection to database: %w", err)
	}
	defer dbConn.Close()

	if err := advlab.CreateTables(dbConn); err != nil {
		return err
	}
	runID, err := advlab.StoreVertices(dbConn, configuration.Label, rec.Selection)
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Results stored with run id %s", runID), "main")
	return nil
}
