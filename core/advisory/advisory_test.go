package advisory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/evsense/core/model"
)

func TestTrip(t *testing.T) {
	cases := []struct {
		name     string
		rangeKm  float64
		distance float64
		status   string
		speed    int
	}{
		{"infeasible", 90, 100, TripInfeasible, 0},
		{"equal distance is feasible", 100, 100, TripFeasible, SlowSpeedKmh},
		{"buffer 1.1 exactly", 110, 100, TripFeasible, SlowSpeedKmh},
		{"buffer just above 1.1", 111, 100, TripFeasible, ModerateSpeedKmh},
		{"buffer 1.2", 120, 100, TripFeasible, ModerateSpeedKmh},
		{"buffer 1.5 exactly", 150, 100, TripFeasible, ModerateSpeedKmh},
		{"buffer above 1.5", 151, 100, TripFeasible, FastSpeedKmh},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := Trip(c.rangeKm, c.distance)
			assert.Equal(t, CategoryTrip, a.Category)
			assert.Equal(t, c.status, a.Status)
			assert.Equal(t, c.speed, a.RecommendedSpeed)
		})
	}
}

func TestTrip_InfeasibleMessageCarriesValues(t *testing.T) {
	a := Trip(87.9, 250)
	assert.Equal(t, SeverityCritical, a.Severity)
	assert.Contains(t, a.Message, "250km")
	assert.Contains(t, a.Message, "87km")
}

func TestDischarge(t *testing.T) {
	assert.Equal(t, DischargeAbnormal, Discharge(true).Status)
	assert.Equal(t, SeverityWarning, Discharge(true).Severity)
	assert.Equal(t, DischargeNormal, Discharge(false).Status)
}

func TestMaintenance(t *testing.T) {
	cases := map[float64]string{
		0.5:    MaintenanceCritical,
		0.7499: MaintenanceCritical,
		0.75:   MaintenanceWarning,
		0.8:    MaintenanceWarning,
		0.88:   MaintenanceHealthy,
		0.99:   MaintenanceHealthy,
	}
	for h, want := range cases {
		assert.Equal(t, want, Maintenance(h).Status, "health %v", h)
	}
	assert.Contains(t, Maintenance(0.8).Message, "80.0%")
}

func TestAdvise(t *testing.T) {
	res := model.PipelineResult{RangeKm: 120, DischargeFault: false, HealthScore: 0.9}
	set := Advise(res, 100)
	assert.Equal(t, TripFeasible, set.Trip.Status)
	assert.Equal(t, ModerateSpeedKmh, set.Trip.RecommendedSpeed)
	assert.Equal(t, DischargeNormal, set.Discharge.Status)
	assert.Equal(t, MaintenanceHealthy, set.Maintenance.Status)

	// deterministic
	assert.Equal(t, set, Advise(res, 100))

	// total over non-positive distances
	assert.Equal(t, FastSpeedKmh, Advise(res, 0).Trip.RecommendedSpeed)
}
