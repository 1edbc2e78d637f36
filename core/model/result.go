package model

// StageName identifies one predictive step of the pipeline.
type StageName string

const (
	StageSoC        StageName = "soc"
	StageLowBattery StageName = "low_battery"
	StageRange      StageName = "range"
	StageDischarge  StageName = "discharge"
	StageHealth     StageName = "health"
)

// Stages lists every stage in sequential execution order.
var Stages = []StageName{StageSoC, StageLowBattery, StageRange, StageDischarge, StageHealth}

func (s StageName) String() string { return string(s) }

// Valid reports whether s names a known stage.
func (s StageName) Valid() bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

// PipelineResult aggregates the outputs of all five stages for one reading.
// It only exists when every stage succeeded and carries nothing but the
// input and the stage outputs, so equal inputs give equal results.
type PipelineResult struct {
	Reading        SensorReading `json:"reading"`
	StateOfCharge  float64       `json:"state_of_charge"`
	LowBattery     bool          `json:"low_battery"`
	RangeKm        float64       `json:"range_km"`
	DischargeFault bool          `json:"discharge_fault"`
	HealthScore    float64       `json:"health_score"`
}
