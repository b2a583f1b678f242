package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

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
)

func init() {
	logger = advlab.NewLogger(os.Stdout, os.Stderr, slog.LevelDebug)

	rootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().IntVar(&verbosity, "verbosity", -1, "Override the configuration verbosity")
	rootCmd.MarkPersistentFlagRequired("config")
	rootCmd.AddCommand(calibrationCmd)
}

var rootCmd = &cobra.Command{
	Use:   "coincidences",
	Short: "Coincidences, spectra and delay curve of one acquisition",
	Long: `coincidences parses one acquisition file (file_in), finds the coincidences
between the two configured channels and caches them next to the data. With
write_data the energy spectra, the delay curve and the coincidences are
written to file_out.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configuration, err = advlab.LoadConfiguration(configFilename)
		if err != nil {
			return fmt.Errorf("error reading configuration file: %w", err)
		}
		if verbosity >= 0 {
			configuration.Verbosity = verbosity
		}
		advlab.SetConfiguration(configuration)
		advlab.SetLogger(logger)
		if configuration.Verbosity > 0 {
			advlab.PrintConfiguration(configuration, logger)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

var calibrationCmd = &cobra.Command{
	Use:   "store-calibration",
	Short: "Store the configured calibration points in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := advlab.NewCalibration(configuration.Calibration); err != nil {
			return err
		}
		dbConn, err := advlab.OpenDatabase(configuration)
		if err != nil {
			return fmt.Errorf("error connection to database: %w", err)
		}
		defer dbConn.Close()
		if err := advlab.CreateTables(dbConn); err != nil {
			return err
		}
		if err := advlab.StoreCalibration(dbConn, configuration.Calibration); err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("Stored %d calibration points", len(configuration.Calibration)), "main")
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	if configuration.FileIn == "" {
		return fmt.Errorf("file_in is not set")
	}
	evtLog, err := advlab.ReadEventLog(configuration.FileIn, configuration.TimestampScale)
	if err != nil {
		return err
	}
	if evtLog.Skipped > 0 {
		logger.Warn(fmt.Sprintf("%d malformed lines skipped", evtLog.Skipped), "main")
	}

	t1, e1 := evtLog.Channel(configuration.ChannelA)
	t2, e2 := evtLog.Channel(configuration.ChannelB)
	message := fmt.Sprintf("%d events on channel %d, %d events on channel %d, live time %.1f s",
		len(t1), configuration.ChannelA, len(t2), configuration.ChannelB, advlab.LiveTime(t1))
	logger.Info(message, "main")

	coincFile := advlab.CoincidenceFileName(configuration.DataDir, configuration.FileIn)
	pairs, err := advlab.FindOrLoadCoincidences(coincFile, t1, e1, t2, e2, configuration.CoincWindow)
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("%d pairs of coincident events", len(pairs)), "main")

	calibration, err := advlab.NewCalibration(configuration.Calibration)
	if err != nil {
		return err
	}
	inBand := 0
	for _, p := range pairs {
		en1, err := calibration.Energy(configuration.ChannelA, p.E1)
		if err != nil {
			return err
		}
		en2, err := calibration.Energy(configuration.ChannelB, p.E2)
		if err != nil {
			return err
		}
		if configuration.EnergyBand.Contains(en1) && configuration.EnergyBand.Contains(en2) {
			inBand++
		}
	}
	logger.Info(fmt.Sprintf("%d/%d coincidences in the selected energy window", inBand, len(pairs)), "main")

	if !configuration.WriteData {
		return nil
	}
	return writeOutput(calibration, pairs, t1, e1, t2, e2)
}

func writeOutput(calibration *advlab.Calibration, pairs []advlab.CoincidencePair,
	t1 []int64, e1 []int32, t2 []int64, e2 []int32) error {
	writer, err := h5writer.NewWriter(configuration.FileOut, 4)
	if err != nil {
		return err
	}

	label := strings.TrimSuffix(filepath.Base(configuration.FileIn), filepath.Ext(configuration.FileIn))
	nch := configuration.NumEnergyChannels
	errs := make([]error, 0)

	errs = append(errs, writer.WriteCoincidences("coincidences", pairs))
	for _, spec := range []struct {
		channel  int
		energies []int32
	}{
		{configuration.ChannelA, e1},
		{configuration.ChannelB, e2},
	} {
		name := fmt.Sprintf("%s_ch%d", label, spec.channel)
		errs = append(errs, writer.WriteHistogram(name, advlab.BuildSpectrum(name, spec.energies, nch)))

		calibrated, err := advlab.BuildCalibratedSpectrum(name+"_mev", spec.channel, spec.energies, calibration, nch/20, 2)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		errs = append(errs, writer.WriteHistogram(name+"_mev", calibrated))
	}

	coincE1 := make([]int32, len(pairs))
	coincE2 := make([]int32, len(pairs))
	for i, p := range pairs {
		coincE1[i], coincE2[i] = p.E1, p.E2
	}
	errs = append(errs, writer.WriteHistogram(label+"_coinc_ch_a", advlab.BuildSpectrum("coinc_a", coincE1, nch)))
	errs = append(errs, writer.WriteHistogram(label+"_coinc_ch_b", advlab.BuildSpectrum("coinc_b", coincE2, nch)))
	errs = append(errs, writer.WriteHistogram("delay", advlab.BuildDelayCurve(t1, t2, configuration.Delay)))

	for _, err := range errs {
		if err != nil {
			if cerr := writer.Close(); cerr != nil {
				logger.Error(cerr.Error())
			}
			return err
		}
	}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Created %s", configuration.FileOut), "main")
	}
	return writer.Close()
}
