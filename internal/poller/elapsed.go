package poller

import (
	"sync"
	"time"

	"vehicle-control-service/internal/vehicle"
)

// Elapsed is the presentational "seconds since last update" ticker. It runs
// at 1 Hz independently of the network-bound poll, reads LastUpdated from
// the most recently observed snapshot, and never triggers a network call.
type Elapsed struct {
	mu          sync.Mutex
	lastUpdated time.Time
	cancel      chan struct{}
	done        chan struct{}
}

// NewElapsed creates a stopped ticker.
func NewElapsed() *Elapsed {
	return &Elapsed{}
}

// Observe records the snapshot the display is currently showing.
func (e *Elapsed) Observe(snap *vehicle.Snapshot) {
	e.mu.Lock()
	e.lastUpdated = snap.LastUpdated
	e.mu.Unlock()
}

// Start invokes onTick once per second with the whole seconds elapsed since
// the observed snapshot's LastUpdated. Before any snapshot is observed,
// onTick receives -1.
func (e *Elapsed) Start(onTick func(seconds int)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		return
	}

	cancel := make(chan struct{})
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	go func() {
		defer close(done)

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-cancel:
				return
			case <-ticker.C:
				onTick(e.secondsSince())
			}
		}
	}()
}

// Stop halts the ticker; idempotent.
func (e *Elapsed) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	done := e.done
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}

	close(cancel)
	<-done
}

func (e *Elapsed) secondsSince() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastUpdated.IsZero() {
		return -1
	}
	return int(time.Since(e.lastUpdated).Seconds())
}
