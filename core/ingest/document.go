// Package ingest holds the ingestion service's state: the wire document the
// vehicle gateway uploads and the single slot that keeps the latest one.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/evsense/core/model"
)

// Wire field names that may carry the load weight.
const (
	FieldLoadWeight = "load_weight"
	FieldLoadCycles = "load_cycles"
)

// DefaultBatteryTemp is used when the temperature sensor is not wired up.
const DefaultBatteryTemp = 35.0

// Number is a JSON value that may arrive as a number, a numeric string or null.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a valid Number.
func Num(v float64) Number { return Number{Value: v, Valid: true} }

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = Number{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = Number{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		*n = Num(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Num(v)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Road is the roughness field. Besides numbers it accepts the level names
// smooth, moderate and rough.
type Road struct {
	Number
}

func (r *Road) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "smooth":
			r.Number = Num(model.RoadSmooth)
			return nil
		case "moderate":
			r.Number = Num(model.RoadModerate)
			return nil
		case "rough":
			r.Number = Num(model.RoadRough)
			return nil
		}
	}
	return r.Number.UnmarshalJSON(b)
}

// Document is the reading exchanged over POST /upload and GET /latest.
type Document struct {
	Voltage        Number `json:"voltage"`
	Current        Number `json:"current"`
	BatteryTemp    Number `json:"battery_temp"`
	Speed          Number `json:"speed"`
	Road           Road   `json:"road"`
	TargetDistance Number `json:"target_distance"`
	ChargeCycles   Number `json:"charge_cycles"`
	LoadCycles     Number `json:"load_cycles"`
	LoadWeight     Number `json:"load_weight"`
	Timestamp      string `json:"timestamp,omitempty"`
}

// HasData reports whether the document carries a usable reading. A voltage
// is the minimum.
func (d Document) HasData() bool { return d.Voltage.Valid }

// ReadingOptions controls how a document maps onto a SensorReading.
type ReadingOptions struct {
	// WeightField names the wire field carrying the load weight.
	WeightField string
	// DefaultBatteryTemp replaces a missing battery_temp.
	DefaultBatteryTemp float64
	// Now stamps readings without a timestamp.
	Now func() time.Time
}

// Reading converts d into a validated SensorReading. Missing required fields
// and out-of-range values are *model.ValidationError.
func (d Document) Reading(opts ReadingOptions) (model.SensorReading, error) {
	if opts.DefaultBatteryTemp == 0 {
		opts.DefaultBatteryTemp = DefaultBatteryTemp
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	weight := d.LoadWeight
	field := FieldLoadWeight
	switch opts.WeightField {
	case "", FieldLoadWeight:
	case FieldLoadCycles:
		weight = d.LoadCycles
		field = FieldLoadCycles
	default:
		return model.SensorReading{}, fmt.Errorf("unknown weight field %q", opts.WeightField)
	}

	required := []struct {
		name string
		n    Number
	}{
		{"voltage", d.Voltage},
		{"current", d.Current},
		{"speed", d.Speed},
		{"road", d.Road.Number},
		{"target_distance", d.TargetDistance},
		{"charge_cycles", d.ChargeCycles},
		{field, weight},
	}
	for _, f := range required {
		if !f.n.Valid {
			return model.SensorReading{}, &model.ValidationError{Field: f.name, Missing: true}
		}
	}
	temp := opts.DefaultBatteryTemp
	if d.BatteryTemp.Valid {
		temp = d.BatteryTemp.Value
	}
	captured, err := parseTimestamp(d.Timestamp, opts.Now)
	if err != nil {
		return model.SensorReading{}, err
	}
	r := model.SensorReading{
		Voltage:            d.Voltage.Value,
		Current:            d.Current.Value,
		BatteryTemperature: temp,
		Speed:              d.Speed.Value,
		RoadRoughness:      d.Road.Value,
		LoadWeight:         weight.Value,
		ChargeCycles:       d.ChargeCycles.Value,
		TargetDistance:     d.TargetDistance.Value,
		CapturedAt:         captured,
	}
	if err := r.Validate(); err != nil {
		return model.SensorReading{}, err
	}
	return r, nil
}

// timestamp layouts accepted on the wire; zoneless values are UTC.
var layouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"}

func parseTimestamp(s string, now func() time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now().UTC(), nil
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
