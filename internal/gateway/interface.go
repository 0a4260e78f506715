package gateway

import (
	"context"
	"errors"
	"time"

	"vehicle-control-service/internal/vehicle"
)

// Failure classes for remote gateway calls. The orchestrator uses these to
// decide between propagating and degrading to the simulator.
var (
	// ErrUnavailable covers transport failures and 5xx responses.
	ErrUnavailable = errors.New("vehicle gateway unavailable")
	// ErrInvalidRequest covers 4xx rejections other than authorization.
	ErrInvalidRequest = errors.New("vehicle gateway rejected request")
	// ErrUnauthorized means the ambient credential was rejected.
	ErrUnauthorized = errors.New("vehicle gateway rejected credentials")
	// ErrNoVehicle means no vehicle is registered for the user. This is a
	// business condition surfaced as an empty state, not an infrastructure
	// error.
	ErrNoVehicle = errors.New("no vehicle registered")
)

// HistoryRecord is one remote control-history row.
type HistoryRecord struct {
	ID         any            `json:"id"`
	Action     string         `json:"action"`
	Timestamp  time.Time      `json:"timestamp"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Result     string         `json:"result"`
	UserID     any            `json:"user_id,omitempty"`
}

// Pagination describes the remote history paging state.
type Pagination struct {
	TotalRecords int  `json:"total_records"`
	Page         int  `json:"page"`
	Limit        int  `json:"limit"`
	TotalPages   int  `json:"total_pages"`
	HasNext      bool `json:"has_next"`
	HasPrev      bool `json:"has_prev"`
}

// HistoryPage is one page of remote control history. It is a read-through
// view, complementary to the local bounded log and never reconciled with it.
type HistoryPage struct {
	VehicleID  string          `json:"vehicle_id"`
	Records    []HistoryRecord `json:"records"`
	Pagination Pagination      `json:"pagination"`
}

// VehicleGateway defines the remote control operations the orchestrator
// depends on. The gateway performs no retries; retry policy belongs to the
// caller.
type VehicleGateway interface {
	// FetchStatus retrieves live telemetry for one vehicle.
	FetchStatus(ctx context.Context, vehicleID string) (*vehicle.Snapshot, error)

	// Dispatch sends one control command and returns the resulting
	// snapshot plus the gateway's display message.
	Dispatch(ctx context.Context, vehicleID, property string, value any) (*vehicle.Snapshot, string, error)

	// ListVehicles returns the vehicles owned by the ambient credential.
	ListVehicles(ctx context.Context) ([]vehicle.Info, error)

	// FetchHistory reads the remotely persisted control history.
	FetchHistory(ctx context.Context, vehicleID string, limit, page int) (*HistoryPage, error)

	// Health probes the remote service.
	Health(ctx context.Context) error
}
