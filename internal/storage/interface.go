package storage

import (
	"context"
	"time"
)

// MaxLogEntries bounds the per-user control log. Oldest entries are evicted
// first once the cap is exceeded.
const MaxLogEntries = 500

// ControlState is the simulator's durable per-user record. Derived telemetry
// (fuel, range, battery, cabin temperature) is synthesized at read time and
// never stored.
type ControlState struct {
	DoorLocked  bool `json:"door_locked" dynamodbav:"door_locked"`
	EngineOn    bool `json:"engine_on" dynamodbav:"engine_on"`
	AcOn        bool `json:"ac_on" dynamodbav:"ac_on"`
	TargetTempC int  `json:"target_temp_c" dynamodbav:"target_temp_c"`
}

// DefaultControlState is the state a user starts from before any action has
// been applied.
func DefaultControlState() *ControlState {
	return &ControlState{
		DoorLocked:  true,
		EngineOn:    false,
		AcOn:        false,
		TargetTempC: 22,
	}
}

// LogEntry is one recorded control attempt. Entries are immutable once
// written.
type LogEntry struct {
	ID         string         `json:"id" dynamodbav:"id"`
	UserID     string         `json:"-" dynamodbav:"user_id"`
	Timestamp  time.Time      `json:"timestamp" dynamodbav:"timestamp"`
	Action     string         `json:"action" dynamodbav:"action"`
	Property   string         `json:"property,omitempty" dynamodbav:"property,omitempty"`
	Value      any            `json:"value,omitempty" dynamodbav:"value,omitempty"`
	Outcome    string         `json:"outcome" dynamodbav:"outcome"` // success, failure
	Message    string         `json:"message,omitempty" dynamodbav:"message,omitempty"`
	Simulated  bool           `json:"simulated" dynamodbav:"simulated"`
	Parameters map[string]any `json:"parameters,omitempty" dynamodbav:"parameters,omitempty"`
}

// ControlStateStore persists the simulator's per-user control state.
type ControlStateStore interface {
	// GetControlState returns the stored state, or nil when the user has
	// no record yet.
	GetControlState(ctx context.Context, userID string) (*ControlState, error)

	// PutControlState replaces the user's state in one atomic write.
	PutControlState(ctx context.Context, userID string, state *ControlState) error
}

// ControlLogStore is the append-only, bounded, user-scoped action log.
type ControlLogStore interface {
	// AppendLogEntry records one attempt and evicts the oldest entries
	// beyond MaxLogEntries.
	AppendLogEntry(ctx context.Context, userID string, entry *LogEntry) error

	// ListLogEntries returns up to limit entries, most recent first. It is
	// a read-only view and safe to call concurrently with appends.
	ListLogEntries(ctx context.Context, userID string, limit int) ([]*LogEntry, error)

	// ClearLogEntries removes all of the user's entries.
	ClearLogEntries(ctx context.Context, userID string) error
}
