package kinesis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"vehicle-control-service/internal/storage"

	"github.com/aws/aws-sdk-go-v2/service/kinesis"
)

type Streamer struct {
	client     *kinesis.Client
	streamName string
}

type ControlEvent struct {
	UserID    string    `json:"user_id"`
	VehicleID string    `json:"vehicle_id"`
	Action    string    `json:"action"`
	Property  string    `json:"property,omitempty"`
	Outcome   string    `json:"outcome"`
	Simulated bool      `json:"simulated"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewStreamer(client *kinesis.Client, streamName string) *Streamer {
	return &Streamer{
		client:     client,
		streamName: streamName,
	}
}

// StreamControlEvent publishes one performed action for downstream
// analytics. Failures are logged and swallowed; streaming never blocks the
// control path outcome.
func (s *Streamer) StreamControlEvent(userID, vehicleID string, entry *storage.LogEntry) {
	if s == nil || s.client == nil {
		return // Kinesis not enabled
	}

	event := ControlEvent{
		UserID:    userID,
		VehicleID: vehicleID,
		Action:    entry.Action,
		Property:  entry.Property,
		Outcome:   entry.Outcome,
		Simulated: entry.Simulated,
		Message:   entry.Message,
		Timestamp: entry.Timestamp,
	}

	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal control event", "user_id", userID, "error", err)
		return
	}

	_, err = s.client.PutRecord(context.TODO(), &kinesis.PutRecordInput{
		StreamName:   &s.streamName,
		Data:         data,
		PartitionKey: &userID,
	})

	if err != nil {
		slog.Error("Failed to stream control event", "user_id", userID, "action", entry.Action, "error", err)
	} else {
		slog.Debug("Streamed control event", "user_id", userID, "action", entry.Action)
	}
}
