package advlab

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

type PeakAlgorithm string

const (
	LocalMaximum   PeakAlgorithm = "local-max"
	DoubleGaussian PeakAlgorithm = "double-gauss"
)

// Geometry of the scanned box, in mm.
type Geometry struct {
	XSide          float64 `json:"x_side" mapstructure:"x_side"`
	YSide          float64 `json:"y_side" mapstructure:"y_side"`
	BoxReference   float64 `json:"box_reference" mapstructure:"box_reference"`
	LineHalfLength float64 `json:"line_half_length" mapstructure:"line_half_length"`
}

// EnergyBand is an open interval of calibrated energies in MeV.
type EnergyBand struct {
	Min float64 `json:"min" mapstructure:"min"`
	Max float64 `json:"max" mapstructure:"max"`
}

func (b EnergyBand) Contains(energy float64) bool {
	return energy > b.Min && energy < b.Max
}

type PeakSettings struct {
	Algorithm     PeakAlgorithm `json:"algorithm" mapstructure:"algorithm"`
	Threshold     float64       `json:"threshold" mapstructure:"threshold"`
	NumPeaks      int           `json:"num_peaks" mapstructure:"num_peaks"`
	FitSigma      float64       `json:"fit_sigma" mapstructure:"fit_sigma"`
	PositionSigma float64       `json:"position_sigma" mapstructure:"position_sigma"`
}

type EstimatorSettings struct {
	// YRef is the ordinate where the line abscissa x_k is measured.
	YRef            float64   `json:"y_ref" mapstructure:"y_ref"`
	ExpansionPoint  []float64 `json:"expansion_point" mapstructure:"expansion_point"`
	PriorVertex     []float64 `json:"prior_vertex" mapstructure:"prior_vertex"`
	PriorVariance   float64   `json:"prior_variance" mapstructure:"prior_variance"`
	Chi2Threshold   float64   `json:"chi2_threshold" mapstructure:"chi2_threshold"`
	AspectRatio     float64   `json:"aspect_ratio" mapstructure:"aspect_ratio"`
	MaxInverseSlope float64   `json:"max_inverse_slope" mapstructure:"max_inverse_slope"`
}

// Expansion returns the linearization point stored in the settings.
func (s EstimatorSettings) Expansion() ExpansionPoint {
	e := ExpansionPoint{}
	if len(s.ExpansionPoint) > 0 {
		e.X = s.ExpansionPoint[0]
	}
	if len(s.ExpansionPoint) > 1 {
		e.Y = s.ExpansionPoint[1]
	}
	if len(s.ExpansionPoint) > 2 {
		e.U = s.ExpansionPoint[2]
	}
	return e
}

func (s EstimatorSettings) prior() (float64, float64) {
	var x, y float64
	if len(s.PriorVertex) > 0 {
		x = s.PriorVertex[0]
	}
	if len(s.PriorVertex) > 1 {
		y = s.PriorVertex[1]
	}
	return x, y
}

type DelaySettings struct {
	MaxDelay float64 `json:"max_delay" mapstructure:"max_delay"`
	NBins    int     `json:"nbins" mapstructure:"nbins"`
	Low      float64 `json:"low" mapstructure:"low"`
	High     float64 `json:"high" mapstructure:"high"`
}

type ScanSpec struct {
	File   string  `json:"file" mapstructure:"file"`
	Angle  float64 `json:"angle" mapstructure:"angle"`
	Offset float64 `json:"offset" mapstructure:"offset"`
}

type CalibrationPoint struct {
	Channel    int     `json:"channel" mapstructure:"channel" db:"Channel"`
	AdcChannel float64 `json:"adc" mapstructure:"adc" db:"AdcChannel"`
	Energy     float64 `json:"energy" mapstructure:"energy" db:"EnergyMeV"`
}

type Configuration struct {
	Verbosity  int    `json:"verbosity" mapstructure:"verbosity"`
	NumWorkers int    `json:"num_workers" mapstructure:"num_workers"`
	DataDir    string `json:"data_dir" mapstructure:"data_dir"`
	FileIn     string `json:"file_in" mapstructure:"file_in"`
	FileOut    string `json:"file_out" mapstructure:"file_out"`
	WriteData  bool   `json:"write_data" mapstructure:"write_data"`
	Label      string `json:"label" mapstructure:"label"`

	NoDB     bool   `json:"no_db" mapstructure:"no_db"`
	DBDriver string `json:"db_driver" mapstructure:"db_driver"`
	Host     string `json:"host" mapstructure:"host"`
	User     string `json:"user" mapstructure:"user"`
	Passwd   string `json:"pass" mapstructure:"pass"`
	DBName   string `json:"dbname" mapstructure:"dbname"`

	ChannelA       int   `json:"channel_a" mapstructure:"channel_a"`
	ChannelB       int   `json:"channel_b" mapstructure:"channel_b"`
	TimestampScale int64 `json:"timestamp_scale" mapstructure:"timestamp_scale"`
	CoincWindow    int64 `json:"coinc_window" mapstructure:"coinc_window"`

	NumEnergyChannels int `json:"num_energy_channels" mapstructure:"num_energy_channels"`

	Scans       []ScanSpec         `json:"scans" mapstructure:"scans"`
	Calibration []CalibrationPoint `json:"calibration" mapstructure:"calibration"`

	Geometry   Geometry          `json:"geometry" mapstructure:"geometry"`
	EnergyBand EnergyBand        `json:"energy_band" mapstructure:"energy_band"`
	Peaks      PeakSettings      `json:"peaks" mapstructure:"peaks"`
	Estimator  EstimatorSettings `json:"estimator" mapstructure:"estimator"`
	Delay      DelaySettings     `json:"delay" mapstructure:"delay"`
}

var configuration = DefaultConfiguration()

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}

// Anchor points (ADC channel, MeV) measured with Na, Co and Cs sources.
var defaultCalibration = []CalibrationPoint{
	{0, 1917, 0.356}, {0, 466, 0.08}, {0, 2721, 0.511}, {0, 6594, 1.27},
	{0, 3504, 0.662}, {0, 6044, 1.17}, {0, 6843, 1.33},
	{2, 2022, 0.356}, {2, 496, 0.08}, {2, 2846, 0.511}, {2, 6906, 1.27},
	{2, 3674, 0.662}, {2, 6362, 1.17}, {2, 7214, 1.33},
}

func DefaultConfiguration() Configuration {
	var config Configuration

	config.Verbosity = 0
	config.NumWorkers = 1
	config.DataDir = "."
	config.FileOut = "vertexing.h5"
	config.WriteData = false
	config.Label = "scan"

	config.NoDB = true
	config.DBDriver = "mysql"
	config.DBName = "advlab"

	config.ChannelA = 0
	config.ChannelB = 2
	// CAEN digitizer ticks are 10 ns
	config.TimestampScale = 10
	config.CoincWindow = 10
	config.NumEnergyChannels = 6000

	config.Calibration = append([]CalibrationPoint(nil), defaultCalibration...)

	config.Geometry = Geometry{
		XSide:          80,
		YSide:          55,
		BoxReference:   67.5,
		LineHalfLength: 39.5,
	}
	config.EnergyBand = EnergyBand{Min: 0.1, Max: 1.0}
	config.Peaks = PeakSettings{
		Algorithm:     LocalMaximum,
		Threshold:     250,
		NumPeaks:      2,
		FitSigma:      6,
		PositionSigma: 2.5,
	}
	config.Estimator = EstimatorSettings{
		YRef:            26.5,
		ExpansionPoint:  []float64{0, 0, 1},
		PriorVertex:     []float64{0, 0},
		PriorVariance:   1e8,
		Chi2Threshold:   30,
		AspectRatio:     0.005,
		MaxInverseSlope: 1e3,
	}
	config.Delay = DelaySettings{
		MaxDelay: 1000,
		NBins:    200,
		Low:      -100.5,
		High:     99.5,
	}
	return config
}

// LoadConfiguration reads a JSON (or any viper supported format) file on
// top of DefaultConfiguration. Every key can be overridden with an ADVLAB_*
// env var, e.g. ADVLAB_ESTIMATOR_CHI2_THRESHOLD; list values are comma
// separated.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()

	v := viper.New()
	v.SetConfigFile(filename)
	if filepath.Ext(filename) == "" {
		v.SetConfigType("json")
	}
	v.SetEnvPrefix("ADVLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// env vars only reach keys viper knows about
	registerDefaults(v, "", reflect.ValueOf(config))

	if err := v.ReadInConfig(); err != nil {
		return config, err
	}
	if err := v.Unmarshal(&config); err != nil {
		return config, err
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// registerDefaults declares every scalar and scalar list field under its
// mapstructure key. Lists of structs (scans, calibration) are left to the
// file.
func registerDefaults(v *viper.Viper, prefix string, value reflect.Value) {
	t := value.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		field := value.Field(i)
		switch {
		case field.Kind() == reflect.Struct:
			registerDefaults(v, key, field)
		case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.Struct:
		default:
			v.SetDefault(key, field.Interface())
		}
	}
}

func (c Configuration) Validate() error {
	if c.NumWorkers < 1 {
		return fmt.Errorf("num_workers must be positive, got %d", c.NumWorkers)
	}
	if c.CoincWindow < 0 {
		return fmt.Errorf("coinc_window must not be negative, got %d", c.CoincWindow)
	}
	if c.TimestampScale <= 0 {
		return fmt.Errorf("timestamp_scale must be positive, got %d", c.TimestampScale)
	}
	if c.EnergyBand.Max <= c.EnergyBand.Min {
		return fmt.Errorf("empty energy band (%g, %g)", c.EnergyBand.Min, c.EnergyBand.Max)
	}
	if c.Peaks.NumPeaks < 1 {
		return fmt.Errorf("num_peaks must be positive, got %d", c.Peaks.NumPeaks)
	}
	switch c.Peaks.Algorithm {
	case LocalMaximum, DoubleGaussian:
	default:
		return fmt.Errorf("unknown peak algorithm %q", c.Peaks.Algorithm)
	}
	if c.Peaks.Algorithm == DoubleGaussian && c.Peaks.NumPeaks != 2 {
		return fmt.Errorf("double gaussian fit needs num_peaks = 2, got %d", c.Peaks.NumPeaks)
	}
	if c.Peaks.PositionSigma <= 0 {
		return fmt.Errorf("position_sigma must be positive, got %g", c.Peaks.PositionSigma)
	}
	if c.Estimator.PriorVariance <= 0 || c.Estimator.AspectRatio <= 0 || c.Estimator.MaxInverseSlope <= 0 {
		return fmt.Errorf("prior_variance, aspect_ratio and max_inverse_slope must be positive")
	}
	return nil
}

func PrintConfiguration(config Configuration, logger LoggerInterface) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Data dir: %s", config.DataDir), "config")
	logger.Info(fmt.Sprintf("Write data: %t", config.WriteData), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Channels: %d, %d", config.ChannelA, config.ChannelB), "config")
	logger.Info(fmt.Sprintf("Coincidence window: %d ns", config.CoincWindow), "config")
	logger.Info(fmt.Sprintf("Energy band: (%.3f, %.3f) MeV", config.EnergyBand.Min, config.EnergyBand.Max), "config")
	logger.Info(fmt.Sprintf("Box reference: %.2f mm", config.Geometry.BoxReference), "config")
	logger.Info(fmt.Sprintf("Box sides: %.1f x %.1f mm", config.Geometry.XSide, config.Geometry.YSide), "config")
	logger.Info(fmt.Sprintf("Peak algorithm: %s", config.Peaks.Algorithm), "config")
	logger.Info(fmt.Sprintf("Peak threshold: %.1f", config.Peaks.Threshold), "config")
	logger.Info(fmt.Sprintf("y_ref: %.2f mm", config.Estimator.YRef), "config")
	logger.Info(fmt.Sprintf("Chi2 threshold: %.1f", config.Estimator.Chi2Threshold), "config")
	logger.Info(fmt.Sprintf("Number of scans: %d", len(config.Scans)), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
}
