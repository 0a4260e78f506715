package simulator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"vehicle-control-service/internal/action"
	"vehicle-control-service/internal/storage"
	"vehicle-control-service/internal/vehicle"
)

// Simulator is the offline stand-in for the remote vehicle. It answers
// status reads and control commands from a durable per-user control state,
// synthesizing the rest of the telemetry on every read.
type Simulator struct {
	store storage.ControlStateStore
}

// New creates a simulator backed by the given state store.
func New(store storage.ControlStateStore) *Simulator {
	return &Simulator{
		store: store,
	}
}

// GetStatus returns the simulated snapshot for the user. A user with no
// stored state gets the default (doors locked, engine off, AC off, 22°C).
func (s *Simulator) GetStatus(ctx context.Context, userID string) (*vehicle.Snapshot, error) {
	state, err := s.loadState(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.snapshot(state), nil
}

// ApplyAction applies one legacy-named action to the user's control state
// and returns the resulting snapshot plus a display message. Unknown actions
// fail without mutating state. The state write is atomic at the granularity
// of one call.
func (s *Simulator) ApplyAction(ctx context.Context, userID, name string, params map[string]any) (*vehicle.Snapshot, string, error) {
	state, err := s.loadState(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	mutated := true
	switch name {
	case "lock":
		state.DoorLocked = true
	case "unlock":
		state.DoorLocked = false
	case "engineOn":
		state.EngineOn = true
	case "engineOff":
		state.EngineOn = false
	case "acOn":
		state.AcOn = true
	case "acOff":
		state.AcOn = false
	case "acLow":
		state.AcOn = true
		state.TargetTempC = 18
	case "setTemp":
		if target, ok := numberParam(params, "target"); ok {
			state.TargetTempC = action.ClampTemp(int(math.Round(target)))
		}
	case "horn", "flash":
		mutated = false
	default:
		return nil, "", fmt.Errorf("%w: %s", action.ErrUnsupportedAction, name)
	}

	if mutated {
		if err := s.store.PutControlState(ctx, userID, state); err != nil {
			return nil, "", fmt.Errorf("failed to persist control state: %w", err)
		}
	}

	return s.snapshot(state), actionMessage(name, state), nil
}

func (s *Simulator) loadState(ctx context.Context, userID string) (*storage.ControlState, error) {
	state, err := s.store.GetControlState(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load control state: %w", err)
	}
	if state == nil {
		state = storage.DefaultControlState()
	}
	return state, nil
}

// snapshot derives a full snapshot from the control state. Telemetry fields
// carry bounded pseudo-random jitter to model a live vehicle; only the
// control fields are deterministic across calls.
func (s *Simulator) snapshot(state *storage.ControlState) *vehicle.Snapshot {
	rangeKm := 312 + rand.Intn(7) - 3
	if rangeKm < 0 {
		rangeKm = 0
	}
	fuelPct := 75.0
	batteryPct := float64(78 + rand.Intn(5) - 2)
	batteryVoltage := batteryPct / 100 * 12.6

	var cabinTemp float64
	if state.AcOn {
		cabinTemp = float64(state.TargetTempC) + rand.Float64()*2 - 1
	} else {
		cabinTemp = 28 + rand.Float64()*4 - 2
	}

	return &vehicle.Snapshot{
		DoorLocked:     state.DoorLocked,
		EngineOn:       state.EngineOn,
		AcOn:           state.AcOn,
		TargetTempC:    state.TargetTempC,
		CabinTempC:     &cabinTemp,
		FuelPct:        &fuelPct,
		BatteryVoltage: &batteryVoltage,
		RangeKm:        &rangeKm,
		LastUpdated:    time.Now().UTC(),
		Origin:         vehicle.OriginSimulated,
	}
}

// actionMessage selects the display notice for an applied action. The text
// is presentational only, not part of the data contract.
func actionMessage(name string, state *storage.ControlState) string {
	switch name {
	case "lock":
		return "doors locked"
	case "unlock":
		return "doors unlocked"
	case "engineOn":
		return "engine started"
	case "engineOff":
		return "engine stopped"
	case "acOn":
		return "climate control on"
	case "acOff":
		return "climate control off"
	case "acLow":
		return fmt.Sprintf("climate control on at %d°C", state.TargetTempC)
	case "setTemp":
		return fmt.Sprintf("target temperature set to %d°C", state.TargetTempC)
	case "horn":
		return "horn sounded"
	case "flash":
		return "hazard lights flashed"
	}
	return "command applied"
}

func numberParam(params map[string]any, key string) (float64, bool) {
	if params == nil {
		return 0, false
	}
	switch v := params[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
