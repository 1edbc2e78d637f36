package model

import (
	"math"
	"time"
)

// Road roughness levels reported by the suspension sensor.
const (
	RoadSmooth   = 0.1
	RoadModerate = 0.5
	RoadRough    = 1.0
)

// RoadLevels lists the allowed roughness values in ascending order.
var RoadLevels = [...]float64{RoadSmooth, RoadModerate, RoadRough}

// Bounds is an inclusive value range.
type Bounds struct {
	Min float64
	Max float64
}

// Clamp forces v into the range. NaN maps to Min.
func (b Bounds) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return b.Min
	}
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Contains reports whether v lies in the range.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Declared sensor ranges.
var (
	VoltageRange        = Bounds{200, 400}
	CurrentRange        = Bounds{-200, 200}
	TemperatureRange    = Bounds{10, 75}
	SpeedRange          = Bounds{0, 120}
	LoadWeightRange     = Bounds{0, 1000}
	ChargeCyclesRange   = Bounds{0, 2000}
	TargetDistanceRange = Bounds{1, 500}
)

// SensorReading is one normalized telemetry sample together with the trip
// target. It is passed by value and never mutated after construction.
type SensorReading struct {
	Voltage            float64   `json:"voltage"`             // V
	Current            float64   `json:"current"`             // A, negative while regenerating
	BatteryTemperature float64   `json:"battery_temperature"` // °C
	Speed              float64   `json:"speed"`               // km/h
	RoadRoughness      float64   `json:"road_roughness"`
	LoadWeight         float64   `json:"load_weight"`     // kg
	ChargeCycles       float64   `json:"charge_cycles"`   // count
	TargetDistance     float64   `json:"target_distance"` // km
	CapturedAt         time.Time `json:"captured_at"`
}

// Clamp returns a copy with every field forced into its declared range.
// Roughness snaps to the nearest allowed level.
func (r SensorReading) Clamp() SensorReading {
	r.Voltage = VoltageRange.Clamp(r.Voltage)
	r.Current = CurrentRange.Clamp(r.Current)
	r.BatteryTemperature = TemperatureRange.Clamp(r.BatteryTemperature)
	r.Speed = SpeedRange.Clamp(r.Speed)
	r.RoadRoughness = SnapRoughness(r.RoadRoughness)
	r.LoadWeight = LoadWeightRange.Clamp(r.LoadWeight)
	r.ChargeCycles = math.Round(ChargeCyclesRange.Clamp(r.ChargeCycles))
	r.TargetDistance = TargetDistanceRange.Clamp(r.TargetDistance)
	return r
}

// Validate returns a *ValidationError for the first field outside its range.
func (r SensorReading) Validate() error {
	checks := []struct {
		field string
		v     float64
		b     Bounds
	}{
		{"voltage", r.Voltage, VoltageRange},
		{"current", r.Current, CurrentRange},
		{"battery_temperature", r.BatteryTemperature, TemperatureRange},
		{"speed", r.Speed, SpeedRange},
		{"load_weight", r.LoadWeight, LoadWeightRange},
		{"charge_cycles", r.ChargeCycles, ChargeCyclesRange},
		{"target_distance", r.TargetDistance, TargetDistanceRange},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || !c.b.Contains(c.v) {
			return &ValidationError{Field: c.field, Value: c.v, Min: c.b.Min, Max: c.b.Max}
		}
	}
	if !IsRoadLevel(r.RoadRoughness) {
		return &ValidationError{Field: "road_roughness", Value: r.RoadRoughness, Min: RoadSmooth, Max: RoadRough}
	}
	return nil
}

// SnapRoughness maps v to the closest allowed roughness level.
func SnapRoughness(v float64) float64 {
	best := RoadLevels[0]
	for _, l := range RoadLevels[1:] {
		if math.Abs(v-l) < math.Abs(v-best) {
			best = l
		}
	}
	return best
}

// IsRoadLevel reports whether v is one of the allowed roughness levels.
func IsRoadLevel(v float64) bool {
	for _, l := range RoadLevels {
		if math.Abs(v-l) < 1e-9 {
			return true
		}
	}
	return false
}
