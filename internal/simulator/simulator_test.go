package simulator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"vehicle-control-service/internal/action"
	"vehicle-control-service/internal/storage"
	"vehicle-control-service/internal/vehicle"
)

func setupSimulator() (*Simulator, *storage.MemoryControlStateStore) {
	store := storage.NewMemoryControlStateStore()
	return New(store), store
}

func TestSimulatorDefaultStatus(t *testing.T) {
	sim, _ := setupSimulator()
	ctx := context.Background()

	snap, err := sim.GetStatus(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetStatus returned error: %v", err)
	}

	if !snap.DoorLocked {
		t.Error("expected doors locked by default")
	}
	if snap.EngineOn {
		t.Error("expected engine off by default")
	}
	if snap.AcOn {
		t.Error("expected AC off by default")
	}
	if snap.TargetTempC != 22 {
		t.Errorf("target temp = %d, want 22", snap.TargetTempC)
	}
	if snap.Origin != vehicle.OriginSimulated {
		t.Errorf("origin = %s, want simulated", snap.Origin)
	}
	if snap.LastUpdated.IsZero() {
		t.Error("expected LastUpdated to be stamped")
	}
}

func TestSimulatorTelemetryBounds(t *testing.T) {
	sim, _ := setupSimulator()
	ctx := context.Background()

	// Jitter is bounded; run a few reads to cover the range.
	for i := 0; i < 50; i++ {
		snap, err := sim.GetStatus(ctx, "user-1")
		if err != nil {
			t.Fatalf("GetStatus returned error: %v", err)
		}

		if *snap.RangeKm < 309 || *snap.RangeKm > 315 {
			t.Errorf("range = %d, want within [309, 315]", *snap.RangeKm)
		}
		if *snap.FuelPct != 75 {
			t.Errorf("fuel = %f, want 75", *snap.FuelPct)
		}
		if *snap.BatteryVoltage < 76.0/100*12.6 || *snap.BatteryVoltage > 80.0/100*12.6 {
			t.Errorf("battery voltage = %f, outside jitter bounds", *snap.BatteryVoltage)
		}
		// AC off: cabin models an unconditioned interior around 28.
		if *snap.CabinTempC < 26 || *snap.CabinTempC > 30 {
			t.Errorf("cabin temp = %f, want within [26, 30]", *snap.CabinTempC)
		}
	}
}

func TestSimulatorCabinTracksTargetWithAcOn(t *testing.T) {
	sim, _ := setupSimulator()
	ctx := context.Background()

	if _, _, err := sim.ApplyAction(ctx, "user-1", "acOn", nil); err != nil {
		t.Fatalf("acOn returned error: %v", err)
	}

	for i := 0; i < 20; i++ {
		snap, err := sim.GetStatus(ctx, "user-1")
		if err != nil {
			t.Fatalf("GetStatus returned error: %v", err)
		}
		if *snap.CabinTempC < 21 || *snap.CabinTempC > 23 {
			t.Errorf("cabin temp = %f, want within 1 of target 22", *snap.CabinTempC)
		}
	}
}

func TestSimulatorTransitions(t *testing.T) {
	cases := []struct {
		action string
		check  func(*vehicle.Snapshot) bool
	}{
		{"unlock", func(s *vehicle.Snapshot) bool { return !s.DoorLocked }},
		{"lock", func(s *vehicle.Snapshot) bool { return s.DoorLocked }},
		{"engineOn", func(s *vehicle.Snapshot) bool { return s.EngineOn }},
		{"engineOff", func(s *vehicle.Snapshot) bool { return !s.EngineOn }},
		{"acOn", func(s *vehicle.Snapshot) bool { return s.AcOn }},
		{"acOff", func(s *vehicle.Snapshot) bool { return !s.AcOn }},
	}

	sim, _ := setupSimulator()
	ctx := context.Background()

	for _, tc := range cases {
		snap, message, err := sim.ApplyAction(ctx, "user-1", tc.action, nil)
		if err != nil {
			t.Fatalf("ApplyAction(%s) returned error: %v", tc.action, err)
		}
		if !tc.check(snap) {
			t.Errorf("ApplyAction(%s) did not produce expected state", tc.action)
		}
		if message == "" {
			t.Errorf("ApplyAction(%s) returned empty message", tc.action)
		}
	}
}

func TestSimulatorStatePersistsAcrossCalls(t *testing.T) {
	sim, _ := setupSimulator()
	ctx := context.Background()

	if _, _, err := sim.ApplyAction(ctx, "user-1", "unlock", nil); err != nil {
		t.Fatalf("unlock returned error: %v", err)
	}

	snap, err := sim.GetStatus(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetStatus returned error: %v", err)
	}
	if snap.DoorLocked {
		t.Error("expected unlock to persist")
	}
}

func TestSimulatorSetTempClamped(t *testing.T) {
	sim, store := setupSimulator()
	ctx := context.Background()

	snap, _, err := sim.ApplyAction(ctx, "user-1", "setTemp", map[string]any{"target": 40.0})
	if err != nil {
		t.Fatalf("setTemp returned error: %v", err)
	}
	if snap.TargetTempC != 30 {
		t.Errorf("target temp = %d, want 30", snap.TargetTempC)
	}

	state, err := store.GetControlState(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetControlState returned error: %v", err)
	}
	if state.TargetTempC != 30 {
		t.Errorf("stored target temp = %d, want 30", state.TargetTempC)
	}
}

func TestSimulatorAcLowQuickAction(t *testing.T) {
	sim, _ := setupSimulator()
	ctx := context.Background()

	snap, _, err := sim.ApplyAction(ctx, "user-1", "acLow", nil)
	if err != nil {
		t.Fatalf("acLow returned error: %v", err)
	}
	if !snap.AcOn || snap.TargetTempC != 18 {
		t.Errorf("acLow produced acOn=%v target=%d, want acOn=true target=18", snap.AcOn, snap.TargetTempC)
	}
}

func TestSimulatorHornDoesNotMutateState(t *testing.T) {
	sim, store := setupSimulator()
	ctx := context.Background()

	snap, message, err := sim.ApplyAction(ctx, "user-1", "horn", nil)
	if err != nil {
		t.Fatalf("horn returned error: %v", err)
	}
	if !strings.Contains(message, "horn") {
		t.Errorf("message = %q, want horn acknowledgment", message)
	}
	if !snap.DoorLocked || snap.EngineOn {
		t.Error("horn changed control state")
	}

	// Message-only actions never write the durable record.
	state, err := store.GetControlState(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetControlState returned error: %v", err)
	}
	if state != nil {
		t.Error("horn persisted control state")
	}
}

func TestSimulatorUnknownActionNoMutation(t *testing.T) {
	sim, store := setupSimulator()
	ctx := context.Background()

	_, _, err := sim.ApplyAction(ctx, "user-1", "teleport", nil)
	if !errors.Is(err, action.ErrUnsupportedAction) {
		t.Fatalf("expected ErrUnsupportedAction, got %v", err)
	}

	state, err := store.GetControlState(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetControlState returned error: %v", err)
	}
	if state != nil {
		t.Error("unsupported action persisted control state")
	}
}

func TestSimulatorIsolatesUsers(t *testing.T) {
	sim, _ := setupSimulator()
	ctx := context.Background()

	if _, _, err := sim.ApplyAction(ctx, "user-1", "unlock", nil); err != nil {
		t.Fatalf("unlock returned error: %v", err)
	}

	snap, err := sim.GetStatus(ctx, "user-2")
	if err != nil {
		t.Fatalf("GetStatus returned error: %v", err)
	}
	if !snap.DoorLocked {
		t.Error("user-2 saw user-1's unlock")
	}
}
