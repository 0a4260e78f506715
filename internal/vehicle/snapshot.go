package vehicle

import (
	"time"

	"vehicle-control-service/internal/action"
)

// Origin identifies which source of truth produced a snapshot.
type Origin string

const (
	OriginRemote    Origin = "remote"
	OriginSimulated Origin = "simulated"
)

// Snapshot is the single canonical record of one vehicle's state at a point
// in time. It is always replaced wholesale, never patched field by field.
type Snapshot struct {
	DoorLocked     bool       `json:"door_locked"`
	EngineOn       bool       `json:"engine_on"`
	AcOn           bool       `json:"ac_on"`
	TargetTempC    int        `json:"target_temp_c"`
	CabinTempC     *float64   `json:"cabin_temp_c,omitempty"`
	FuelPct        *float64   `json:"fuel_pct,omitempty"`
	BatteryVoltage *float64   `json:"battery_voltage,omitempty"`
	RangeKm        *int       `json:"range_km,omitempty"`
	LastUpdated    time.Time  `json:"last_updated"`
	Origin         Origin     `json:"origin"`
}

// Info describes an owned vehicle as returned by the remote vehicle list.
type Info struct {
	ID    string `json:"id"`
	Model string `json:"model,omitempty"`
	Plate string `json:"plate,omitempty"`
}

// Telemetry is the wire shape the remote gateway reports for one vehicle.
type Telemetry struct {
	Locked     bool       `json:"locked"`
	EngineOn   bool       `json:"engineOn"`
	AcOn       bool       `json:"acOn"`
	TargetTemp int        `json:"targetTemp"`
	CabinTemp  *float64   `json:"cabinTemp,omitempty"`
	Fuel       *float64   `json:"fuel,omitempty"`
	Battery    *float64   `json:"battery,omitempty"`
	RangeKm    *int       `json:"rangeKm,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// FromTelemetry converts a remote telemetry report into a canonical snapshot.
// A missing timestamp is left zero; the orchestrator stamps it with "now".
func FromTelemetry(t Telemetry) *Snapshot {
	snap := &Snapshot{
		DoorLocked:     t.Locked,
		EngineOn:       t.EngineOn,
		AcOn:           t.AcOn,
		TargetTempC:    action.ClampTemp(t.TargetTemp),
		CabinTempC:     t.CabinTemp,
		FuelPct:        t.Fuel,
		BatteryVoltage: t.Battery,
		RangeKm:        t.RangeKm,
		Origin:         OriginRemote,
	}
	if t.UpdatedAt != nil {
		snap.LastUpdated = *t.UpdatedAt
	}
	return snap
}
