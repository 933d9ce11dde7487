package decoder

import (
	"fmt"
	"math/rand/v2"
)

// Calibration converts an ADC value into energy with a polynomial whose
// coefficients are ordered from the constant term up.
type Calibration struct {
	Coefficients []float64
}

func (c Calibration) Apply(x float64) float64 {
	result := 0.0
	for i := len(c.Coefficients) - 1; i >= 0; i-- {
		result = result*x + c.Coefficients[i]
	}
	return result
}

// Calibrator holds the energy calibration and the time offset of every
// channel. It is not safe for concurrent use because of the dither source.
type Calibrator struct {
	Calibrations map[uint16]Calibration
	TimeOffsets  map[uint16]uint64
	rng          *rand.Rand
}

func NewCalibrator(calibrations map[uint16]Calibration, offsets map[uint16]uint64, seed uint64) *Calibrator {
	if calibrations == nil {
		calibrations = make(map[uint16]Calibration)
	}
	if offsets == nil {
		offsets = make(map[uint16]uint64)
	}
	return &Calibrator{
		Calibrations: calibrations,
		TimeOffsets:  offsets,
		rng:          rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
	}
}

// Energy returns the calibrated energy of the hit, or -1 if its channel has
// no calibration. The ADC value is dithered uniformly within its bin.
func (c *Calibrator) Energy(hit Hit) float64 {
	calibration, ok := c.Calibrations[hit.ID]
	if !ok {
		return -1
	}
	x := float64(hit.ADC) + c.rng.Float64() - 0.5
	return calibration.Apply(x)
}

// Energies calibrates every hit of the event into dst, reusing its storage.
func (c *Calibrator) Energies(event *Event, dst []float64) []float64 {
	dst = dst[:0]
	for _, hit := range event.Hits {
		dst = append(dst, c.Energy(hit))
	}
	return dst
}

// Align subtracts the channel time offsets from the hits and recomputes the
// event timestamp. The event is not modified if any shift would underflow.
func (c *Calibrator) Align(event *Event) error {
	if len(c.TimeOffsets) == 0 {
		return nil
	}
	for _, hit := range event.Hits {
		if shift, ok := c.TimeOffsets[hit.ID]; ok && shift != 0 && shift >= hit.Timestamp {
			return fmt.Errorf("cannot align channel %d: offset %d not below timestamp %d",
				hit.ID, shift, hit.Timestamp)
		}
	}
	for i := range event.Hits {
		hit := &event.Hits[i]
		if shift, ok := c.TimeOffsets[hit.ID]; ok && shift != 0 {
			if err := hit.ShiftTimestamp(shift); err != nil {
				return err
			}
		}
	}
	event.UpdateTimestamp()
	return nil
}
