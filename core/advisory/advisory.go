// Package advisory turns a pipeline result into trip, discharge and
// maintenance advice. Every rule compares with a strict inequality, so a
// value sitting exactly on a threshold falls into the less severe tier.
package advisory

import (
	"fmt"

	"github.com/kilianp07/evsense/core/model"
)

// Category identifies one advisory.
type Category string

const (
	CategoryTrip        Category = "trip_feasibility"
	CategoryDischarge   Category = "discharge_status"
	CategoryMaintenance Category = "maintenance_status"
)

// Severity ranks how urgently an advisory needs attention.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Status values per category.
const (
	TripFeasible   = "feasible"
	TripInfeasible = "infeasible"

	DischargeNormal   = "normal"
	DischargeAbnormal = "abnormal"

	MaintenanceHealthy  = "healthy"
	MaintenanceWarning  = "warning"
	MaintenanceCritical = "critical"
)

// Thresholds.
const (
	FastBuffer     = 1.5
	ModerateBuffer = 1.1

	FastSpeedKmh     = 80
	ModerateSpeedKmh = 60
	SlowSpeedKmh     = 40

	HealthCritical = 0.75
	HealthWarning  = 0.88
)

// Advisory is one rendered piece of advice.
type Advisory struct {
	Category Category `json:"category"`
	Status   string   `json:"status"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	// RecommendedSpeed is set for feasible trips only.
	RecommendedSpeed int `json:"recommended_speed_kmh,omitempty"`
}

// Set holds the three advisories derived from one result.
type Set struct {
	Trip        Advisory `json:"trip"`
	Discharge   Advisory `json:"discharge"`
	Maintenance Advisory `json:"maintenance"`
}

// Advise derives the advisory set for res and the requested trip distance.
// A non-positive distance is treated as the 1 km minimum.
func Advise(res model.PipelineResult, targetDistance float64) Set {
	if targetDistance <= 0 {
		targetDistance = model.TargetDistanceRange.Min
	}
	return Set{
		Trip:        Trip(res.RangeKm, targetDistance),
		Discharge:   Discharge(res.DischargeFault),
		Maintenance: Maintenance(res.HealthScore),
	}
}

// Trip decides whether targetDistance is reachable with rangeKm and at which
// speed.
func Trip(rangeKm, targetDistance float64) Advisory {
	if targetDistance > rangeKm {
		return Advisory{
			Category: CategoryTrip,
			Status:   TripInfeasible,
			Severity: SeverityCritical,
			Message: fmt.Sprintf("Mission impossible: destination is %gkm away, but your max range is %dkm.",
				targetDistance, int(rangeKm)),
		}
	}
	buffer := rangeKm / targetDistance
	speed := SlowSpeedKmh
	switch {
	case buffer > FastBuffer:
		speed = FastSpeedKmh
	case buffer > ModerateBuffer:
		speed = ModerateSpeedKmh
	}
	return Advisory{
		Category:         CategoryTrip,
		Status:           TripFeasible,
		Severity:         SeverityOK,
		Message:          fmt.Sprintf("Mission possible: maintain a speed of %d km/h.", speed),
		RecommendedSpeed: speed,
	}
}

// Discharge reports the discharge fault flag.
func Discharge(fault bool) Advisory {
	if fault {
		return Advisory{
			Category: CategoryDischarge,
			Status:   DischargeAbnormal,
			Severity: SeverityWarning,
			Message:  "Abnormal discharge: system detects excessive drain. Check for motor leaks!",
		}
	}
	return Advisory{
		Category: CategoryDischarge,
		Status:   DischargeNormal,
		Severity: SeverityInfo,
		Message:  "Normal discharge: power consumption is stable.",
	}
}

// Maintenance grades the long-term health score.
func Maintenance(health float64) Advisory {
	switch {
	case health < HealthCritical:
		return Advisory{
			Category: CategoryMaintenance,
			Status:   MaintenanceCritical,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("Urgent: health critical (%.1f%%). Service mandatory.", health*100),
		}
	case health < HealthWarning:
		return Advisory{
			Category: CategoryMaintenance,
			Status:   MaintenanceWarning,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Maintenance: aging detected (%.1f%%). Schedule check-up.", health*100),
		}
	default:
		return Advisory{
			Category: CategoryMaintenance,
			Status:   MaintenanceHealthy,
			Severity: SeverityOK,
			Message:  "System healthy: components in excellent condition.",
		}
	}
}
