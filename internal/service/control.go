package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vehicle-control-service/internal/action"
	"vehicle-control-service/internal/gateway"
	"vehicle-control-service/internal/kinesis"
	"vehicle-control-service/internal/simulator"
	"vehicle-control-service/internal/storage"
	"vehicle-control-service/internal/vehicle"

	"github.com/google/uuid"
)

// Degradation notices shown when a gateway failure is recovered locally.
// Every simulator-sourced result carries one so the user is never misled
// into thinking a command reached the real vehicle.
const (
	noticeUnavailable    = "server unreachable, running in simulation mode"
	noticeInvalidRequest = "request rejected, running in simulation mode"
	noticeGeneric        = "remote control failed, running in simulation mode"
)

// ControlService reconciles the remote gateway and the fallback simulator
// into one canonical vehicle state: gateway first, simulator on degradable
// failures, every attempted action appended to the bounded local log.
type ControlService struct {
	gateway  gateway.VehicleGateway
	sim      *simulator.Simulator
	logs     storage.ControlLogStore
	streamer *kinesis.Streamer

	// One in-flight Perform per vehicle; overlapping calls serialize.
	mu       sync.Mutex
	inFlight map[string]*sync.Mutex
}

// NewControlService creates the orchestrator. streamer may be nil when
// Kinesis is not enabled.
func NewControlService(gw gateway.VehicleGateway, sim *simulator.Simulator, logs storage.ControlLogStore, streamer *kinesis.Streamer) *ControlService {
	return &ControlService{
		gateway:  gw,
		sim:      sim,
		logs:     logs,
		streamer: streamer,
		inFlight: make(map[string]*sync.Mutex),
	}
}

// GetStatus returns the freshest snapshot available: the gateway's if it
// answers, the simulator's otherwise. Status reads are not user actions and
// never write a log entry. Unauthorized and no-vehicle conditions propagate;
// simulating past them would be misleading.
func (c *ControlService) GetStatus(ctx context.Context, userID, vehicleID string) (*vehicle.Snapshot, error) {
	snap, err := c.gateway.FetchStatus(ctx, vehicleID)
	if err == nil {
		return stamped(snap), nil
	}

	if errors.Is(err, gateway.ErrUnauthorized) || errors.Is(err, gateway.ErrNoVehicle) {
		return nil, err
	}

	slog.Warn("Gateway status fetch failed, falling back to simulator",
		"user_id", userID,
		"vehicle_id", vehicleID,
		"error", err)
	statusFallback.Inc()

	snap, err = c.sim.GetStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("simulator status failed: %w", err)
	}

	return stamped(snap), nil
}

// Perform normalizes one action, dispatches it to the gateway, and degrades
// to the simulator when the gateway is unavailable or rejects the request.
// Gateway failures are never fatal to the caller; the only propagated
// failures are an unsupported action and a rejected credential.
func (c *ControlService) Perform(ctx context.Context, userID, vehicleID, name string, params map[string]any) (*vehicle.Snapshot, string, error) {
	property, value, err := action.Normalize(name, params)
	if err != nil {
		dispatchFailure.Inc()
		c.appendLog(ctx, userID, vehicleID, &storage.LogEntry{
			Action:     name,
			Outcome:    "failure",
			Message:    err.Error(),
			Parameters: params,
		})
		return nil, "", err
	}

	unlock := c.lockVehicle(vehicleID)
	defer unlock()

	snap, message, dispatchErr := c.gateway.Dispatch(ctx, vehicleID, property, value)
	if dispatchErr == nil {
		dispatchSuccess.Inc()
		c.appendLog(ctx, userID, vehicleID, &storage.LogEntry{
			Action:     name,
			Property:   property,
			Value:      value,
			Outcome:    "success",
			Message:    message,
			Parameters: params,
		})
		return stamped(snap), message, nil
	}

	if errors.Is(dispatchErr, gateway.ErrUnauthorized) {
		dispatchFailure.Inc()
		c.appendLog(ctx, userID, vehicleID, &storage.LogEntry{
			Action:     name,
			Property:   property,
			Value:      value,
			Outcome:    "failure",
			Message:    dispatchErr.Error(),
			Parameters: params,
		})
		return nil, "", dispatchErr
	}

	notice := classifyNotice(dispatchErr)
	slog.Warn("Gateway dispatch failed, falling back to simulator",
		"user_id", userID,
		"vehicle_id", vehicleID,
		"action", name,
		"property", property,
		"error", dispatchErr)

	legacyName, simParams := action.Denormalize(property, value, name)
	if simParams == nil {
		simParams = params
	}

	snap, message, err = c.sim.ApplyAction(ctx, userID, legacyName, simParams)
	if err != nil {
		dispatchFailure.Inc()
		c.appendLog(ctx, userID, vehicleID, &storage.LogEntry{
			Action:     name,
			Property:   property,
			Value:      value,
			Outcome:    "failure",
			Message:    err.Error(),
			Simulated:  true,
			Parameters: params,
		})
		return nil, "", err
	}

	dispatchFallback.Inc()
	message = notice + "; " + message
	c.appendLog(ctx, userID, vehicleID, &storage.LogEntry{
		Action:     name,
		Property:   property,
		Value:      value,
		Outcome:    "success",
		Message:    message,
		Simulated:  true,
		Parameters: params,
	})

	return stamped(snap), message, nil
}

// ListLog returns the user's local control log, most recent first.
func (c *ControlService) ListLog(ctx context.Context, userID string, limit int) ([]*storage.LogEntry, error) {
	return c.logs.ListLogEntries(ctx, userID, limit)
}

// ClearLog drops the user's local control log.
func (c *ControlService) ClearLog(ctx context.Context, userID string) error {
	return c.logs.ClearLogEntries(ctx, userID)
}

// History reads the remotely persisted control history. It is a
// read-through; the local log and the remote history are complementary
// views, never merged.
func (c *ControlService) History(ctx context.Context, vehicleID string, limit, page int) (*gateway.HistoryPage, error) {
	return c.gateway.FetchHistory(ctx, vehicleID, limit, page)
}

// ListVehicles returns the vehicles owned by the ambient credential.
func (c *ControlService) ListVehicles(ctx context.Context) ([]vehicle.Info, error) {
	return c.gateway.ListVehicles(ctx)
}

// VerifyOwnership reports whether the vehicle belongs to the user's owned
// vehicle list. When the list cannot be fetched the check fails open with
// the error so the caller decides.
func (c *ControlService) VerifyOwnership(ctx context.Context, vehicleID string) (bool, error) {
	vehicles, err := c.gateway.ListVehicles(ctx)
	if err != nil {
		return false, err
	}

	for _, v := range vehicles {
		if v.ID == vehicleID {
			return true, nil
		}
	}

	return false, nil
}

// GatewayHealth probes the remote control service.
func (c *ControlService) GatewayHealth(ctx context.Context) error {
	return c.gateway.Health(ctx)
}

func (c *ControlService) lockVehicle(vehicleID string) func() {
	c.mu.Lock()
	mu, ok := c.inFlight[vehicleID]
	if !ok {
		mu = &sync.Mutex{}
		c.inFlight[vehicleID] = mu
	}
	c.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// appendLog records one attempt. Log failures must not change the control
// outcome, so they are logged and swallowed.
func (c *ControlService) appendLog(ctx context.Context, userID, vehicleID string, entry *storage.LogEntry) {
	entry.ID = uuid.NewString()
	entry.Timestamp = time.Now().UTC()

	if err := c.logs.AppendLogEntry(ctx, userID, entry); err != nil {
		slog.Error("Failed to append control log entry",
			"user_id", userID,
			"action", entry.Action,
			"error", err)
		return
	}

	c.streamer.StreamControlEvent(userID, vehicleID, entry)
}

func classifyNotice(err error) string {
	switch {
	case errors.Is(err, gateway.ErrUnavailable):
		return noticeUnavailable
	case errors.Is(err, gateway.ErrInvalidRequest):
		return noticeInvalidRequest
	default:
		return noticeGeneric
	}
}

// stamped fills in LastUpdated when the producing source did not.
func stamped(snap *vehicle.Snapshot) *vehicle.Snapshot {
	if snap.LastUpdated.IsZero() {
		snap.LastUpdated = time.Now().UTC()
	}
	return snap
}
