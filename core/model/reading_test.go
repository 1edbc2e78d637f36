package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validReading() SensorReading {
	return SensorReading{
		Voltage:            350,
		Current:            20,
		BatteryTemperature: 35,
		Speed:              60,
		RoadRoughness:      RoadSmooth,
		LoadWeight:         500,
		ChargeCycles:       100,
		TargetDistance:     100,
	}
}

func TestSensorReading_Clamp(t *testing.T) {
	r := SensorReading{
		Voltage:            900,
		Current:            -500,
		BatteryTemperature: 0,
		Speed:              300,
		RoadRoughness:      0.7,
		LoadWeight:         -4,
		ChargeCycles:       2500.4,
		TargetDistance:     0,
	}
	c := r.Clamp()
	assert.Equal(t, 400.0, c.Voltage)
	assert.Equal(t, -200.0, c.Current)
	assert.Equal(t, 10.0, c.BatteryTemperature)
	assert.Equal(t, 120.0, c.Speed)
	assert.Equal(t, RoadModerate, c.RoadRoughness)
	assert.Equal(t, 0.0, c.LoadWeight)
	assert.Equal(t, 2000.0, c.ChargeCycles)
	assert.Equal(t, 1.0, c.TargetDistance)
	assert.NoError(t, c.Validate())
	// original untouched
	assert.Equal(t, 900.0, r.Voltage)
}

func TestSensorReading_ClampNaN(t *testing.T) {
	r := validReading()
	r.Voltage = math.NaN()
	r.Speed = math.NaN()
	c := r.Clamp()
	assert.Equal(t, 200.0, c.Voltage)
	assert.Equal(t, 0.0, c.Speed)
	assert.NoError(t, c.Validate())
}

func TestSensorReading_Validate(t *testing.T) {
	require.NoError(t, validReading().Validate())

	r := validReading()
	r.BatteryTemperature = 80
	err := r.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "battery_temperature", ve.Field)

	r = validReading()
	r.RoadRoughness = 0.3
	assert.ErrorIs(t, r.Validate(), ErrValidation)
}

func TestSnapRoughness(t *testing.T) {
	cases := map[float64]float64{0: 0.1, 0.29: 0.1, 0.31: 0.5, 0.74: 0.5, 0.76: 1.0, 3: 1.0}
	for in, want := range cases {
		if got := SnapRoughness(in); got != want {
			t.Errorf("SnapRoughness(%v)=%v want %v", in, got, want)
		}
	}
}
