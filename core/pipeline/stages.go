package pipeline

import (
	"fmt"
	"math"

	"github.com/kilianp07/evsense/core/model"
)

// Fixed model inputs that are not measured on the vehicle.
const (
	AmbientTemperatureC     = 25.0
	MotorTorqueNm           = 100.0
	ComponentHealthBaseline = 0.8
)

func socInputs(r model.SensorReading) []float64 {
	return []float64{r.Voltage, r.Current, r.BatteryTemperature}
}

func lowBatteryInputs(r model.SensorReading) []float64 {
	return []float64{r.Voltage, r.Current, r.BatteryTemperature}
}

func rangeInputs(soc float64, r model.SensorReading) []float64 {
	return []float64{soc, r.LoadWeight, AmbientTemperatureC}
}

func dischargeInputs(r model.SensorReading) []float64 {
	return []float64{math.Abs(r.Current), r.Speed, MotorTorqueNm, r.BatteryTemperature}
}

func healthInputs(r model.SensorReading) []float64 {
	return []float64{r.ChargeCycles, r.BatteryTemperature, ComponentHealthBaseline}
}

// normalize maps a raw model output onto the stage's result domain.
func normalize(stage model.StageName, y float64) (float64, error) {
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, &model.ModelError{Stage: stage, Err: fmt.Errorf("non-finite output %v", y)}
	}
	switch stage {
	case model.StageSoC, model.StageHealth:
		return math.Max(0, math.Min(1, y)), nil
	case model.StageRange:
		return math.Max(0, y), nil
	case model.StageLowBattery, model.StageDischarge:
		if y >= 0.5 {
			return 1, nil
		}
		return 0, nil
	default:
		return y, nil
	}
}
