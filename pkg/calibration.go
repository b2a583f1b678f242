package advlab

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Calibrator converts digitizer energy channels to MeV.
type Calibrator interface {
	Energy(channel int, adc int32) (float64, error)
}

// LinearCalibration is E = Intercept + Slope * ADC.
type LinearCalibration struct {
	Intercept float64
	Slope     float64
}

type Calibration struct {
	lines map[int]LinearCalibration
}

// NewCalibration fits one straight line per channel over its anchor points.
func NewCalibration(points []CalibrationPoint) (*Calibration, error) {
	byChannel := make(map[int][]CalibrationPoint)
	for _, p := range points {
		byChannel[p.Channel] = append(byChannel[p.Channel], p)
	}

	calib := &Calibration{lines: make(map[int]LinearCalibration, len(byChannel))}
	for channel, anchors := range byChannel {
		adc := make([]float64, len(anchors))
		energy := make([]float64, len(anchors))
		for i, p := range anchors {
			adc[i] = p.AdcChannel
			energy[i] = p.Energy
		}
		if lo, hi := minMax(adc); len(anchors) < 2 || lo == hi {
			return nil, fmt.Errorf("channel %d needs at least two distinct calibration points", channel)
		}
		alpha, beta := stat.LinearRegression(adc, energy, nil, false)
		calib.lines[channel] = LinearCalibration{Intercept: alpha, Slope: beta}

		if configuration.Verbosity > 1 {
			message := fmt.Sprintf("Channel %d: E = %.4g + %.4g * ADC", channel, alpha, beta)
			logger.Info(message, "calibration")
		}
	}
	return calib, nil
}

func (c *Calibration) Line(channel int) (LinearCalibration, bool) {
	line, ok := c.lines[channel]
	return line, ok
}

func (c *Calibration) Channels() []int {
	channels := make([]int, 0, len(c.lines))
	for ch := range c.lines {
		channels = append(channels, ch)
	}
	sort.Ints(channels)
	return channels
}

func (c *Calibration) Energy(channel int, adc int32) (float64, error) {
	line, ok := c.lines[channel]
	if !ok {
		return 0, fmt.Errorf("no calibration for channel %d", channel)
	}
	return line.Intercept + line.Slope*float64(adc), nil
}

func (c *Calibration) Energies(channel int, adc []int32) ([]float64, error) {
	energies := make([]float64, len(adc))
	for i, a := range adc {
		e, err := c.Energy(channel, a)
		if err != nil {
			return nil, err
		}
		energies[i] = e
	}
	return energies, nil
}
