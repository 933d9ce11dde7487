package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrationApply(t *testing.T) {
	tests := []struct {
		name         string
		coefficients []float64
		x            float64
		want         float64
	}{
		{"empty", nil, 10, 0},
		{"constant", []float64{3}, 10, 3},
		{"linear", []float64{1, 2}, 10, 21},
		{"quadratic", []float64{1, 0, 0.5}, 4, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Calibration{Coefficients: tt.coefficients}
			assert.InDelta(t, tt.want, c.Apply(tt.x), 1e-9)
		})
	}
}

func TestCalibratorEnergy(t *testing.T) {
	calibrator := NewCalibrator(map[uint16]Calibration{
		1: {Coefficients: []float64{0, 2}},
	}, nil, 42)

	for i := 0; i < 100; i++ {
		energy := calibrator.Energy(Hit{ID: 1, ADC: 100})
		assert.GreaterOrEqual(t, energy, 199.0)
		assert.Less(t, energy, 201.0)
	}
	assert.Equal(t, -1.0, calibrator.Energy(Hit{ID: 2, ADC: 100}))
}

func TestCalibratorDitherIsReproducible(t *testing.T) {
	calibrations := map[uint16]Calibration{1: {Coefficients: []float64{0, 1}}}
	event := &Event{Hits: []Hit{{ID: 1, ADC: 10}, {ID: 2, ADC: 20}, {ID: 1, ADC: 30}}}

	first := NewCalibrator(calibrations, nil, 7).Energies(event, nil)
	second := NewCalibrator(calibrations, nil, 7).Energies(event, nil)
	other := NewCalibrator(calibrations, nil, 8).Energies(event, nil)

	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Equal(t, -1.0, first[1])
}

func TestCalibratorEnergiesReusesBuffer(t *testing.T) {
	calibrator := NewCalibrator(nil, nil, 0)
	buffer := make([]float64, 0, 8)
	energies := calibrator.Energies(&Event{Hits: []Hit{{ID: 1}, {ID: 2}}}, buffer)
	assert.Len(t, energies, 2)
	assert.Equal(t, 8, cap(energies))
}

func TestCalibratorAlign(t *testing.T) {
	offsets := map[uint16]uint64{1: 10, 2: 0, 3: 50}

	t.Run("shifts hits and recomputes timestamp", func(t *testing.T) {
		calibrator := NewCalibrator(nil, offsets, 0)
		event := &Event{TriggerID: 1, Timestamp: 100, Hits: []Hit{
			{ID: 1, Timestamp: 100},
			{ID: 2, Timestamp: 0},
			{ID: 4, Timestamp: 7},
		}}
		require.NoError(t, calibrator.Align(event))
		assert.Equal(t, uint64(90), event.Hits[0].Timestamp)
		assert.Equal(t, uint64(0), event.Hits[1].Timestamp)
		assert.Equal(t, uint64(7), event.Hits[2].Timestamp)
		assert.Equal(t, uint64(90), event.Timestamp)
	})

	t.Run("underflow leaves event untouched", func(t *testing.T) {
		calibrator := NewCalibrator(nil, offsets, 0)
		event := &Event{TriggerID: 1, Timestamp: 100, Hits: []Hit{
			{ID: 1, Timestamp: 100},
			{ID: 3, Timestamp: 50},
		}}
		before := event.Clone()
		assert.Error(t, calibrator.Align(event))
		assert.True(t, before.Equal(event))
	})

	t.Run("no offsets", func(t *testing.T) {
		calibrator := NewCalibrator(nil, nil, 0)
		event := &Event{TriggerID: 1, Timestamp: 3, Hits: []Hit{{ID: 1, Timestamp: 3}}}
		require.NoError(t, calibrator.Align(event))
		assert.Equal(t, uint64(3), event.Timestamp)
	})
}
