// Package telemetry provides the sensor reading for one analysis run, either
// from caller-supplied values or from a live feed.
package telemetry

import (
	"context"
	"time"

	"github.com/kilianp07/evsense/core/factory"
	"github.com/kilianp07/evsense/core/model"
)

// Source produces exactly one reading per call.
type Source interface {
	Reading(ctx context.Context) (model.SensorReading, error)
}

// Source names.
const (
	ModeSimulated = "simulated"
	ModeLive      = "live"
)

var sources = factory.NewRegistry[Source]()

// RegisterSource adds a source factory identified by name.
func RegisterSource(name string, f factory.Factory[Source]) error {
	return sources.Register(name, f)
}

// NewSource builds the source described by cfg.
func NewSource(cfg factory.ModuleConfig) (Source, error) {
	return sources.Create(cfg)
}

func init() {
	sources.MustRegister(ModeSimulated, func(conf map[string]any) (Source, error) {
		r := DefaultReading()
		if err := factory.DecodeStrict(conf, &r); err != nil {
			return nil, err
		}
		return NewSimulated(r), nil
	})
}

// DefaultReading is the dashboard's initial input set.
func DefaultReading() model.SensorReading {
	return model.SensorReading{
		Voltage:            350,
		Current:            20,
		BatteryTemperature: 35,
		Speed:              60,
		RoadRoughness:      model.RoadSmooth,
		LoadWeight:         500,
		ChargeCycles:       100,
		TargetDistance:     100,
	}
}

// Simulated serves a fixed, clamped reading built from user input.
type Simulated struct {
	reading model.SensorReading
	now     func() time.Time
}

// NewSimulated clamps r into the declared ranges.
func NewSimulated(r model.SensorReading) *Simulated {
	return &Simulated{reading: r.Clamp(), now: time.Now}
}

// Reading returns the clamped reading stamped with the current time. It never
// fails.
func (s *Simulated) Reading(context.Context) (model.SensorReading, error) {
	r := s.reading
	r.CapturedAt = s.now().UTC()
	return r, nil
}
