package storage

import (
	"context"
	"sync"
)

// MemoryControlStateStore implements ControlStateStore using in-memory maps.
type MemoryControlStateStore struct {
	states map[string]ControlState
	mu     sync.RWMutex
}

// NewMemoryControlStateStore creates a new in-memory state store.
func NewMemoryControlStateStore() *MemoryControlStateStore {
	return &MemoryControlStateStore{
		states: make(map[string]ControlState),
	}
}

func (m *MemoryControlStateStore) GetControlState(ctx context.Context, userID string) (*ControlState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.states[userID]
	if !exists {
		return nil, nil
	}

	copied := state
	return &copied, nil
}

func (m *MemoryControlStateStore) PutControlState(ctx context.Context, userID string, state *ControlState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[userID] = *state
	return nil
}

// MemoryControlLogStore implements ControlLogStore using in-memory slices.
// Entries are kept in insertion order; ListLogEntries reverses on read.
type MemoryControlLogStore struct {
	entries map[string][]*LogEntry
	mu      sync.RWMutex
}

// NewMemoryControlLogStore creates a new in-memory log store.
func NewMemoryControlLogStore() *MemoryControlLogStore {
	return &MemoryControlLogStore{
		entries: make(map[string][]*LogEntry),
	}
}

func (m *MemoryControlLogStore) AppendLogEntry(ctx context.Context, userID string, entry *LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *entry
	copied.UserID = userID

	list := append(m.entries[userID], &copied)
	if len(list) > MaxLogEntries {
		list = list[len(list)-MaxLogEntries:]
	}
	m.entries[userID] = list
	return nil
}

func (m *MemoryControlLogStore) ListLogEntries(ctx context.Context, userID string, limit int) ([]*LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.entries[userID]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}

	// Most recent first.
	result := make([]*LogEntry, 0, limit)
	for i := len(list) - 1; i >= 0 && len(result) < limit; i-- {
		copied := *list[i]
		result = append(result, &copied)
	}

	return result, nil
}

func (m *MemoryControlLogStore) ClearLogEntries(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, userID)
	return nil
}
