package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"vehicle-control-service/internal/vehicle"
)

// DefaultInterval is the refresh period used when none is given.
const DefaultInterval = 15 * time.Second

// StatusFunc fetches the current snapshot for the polled vehicle.
type StatusFunc func(ctx context.Context) (*vehicle.Snapshot, error)

// UpdateFunc receives each fresh snapshot.
type UpdateFunc func(*vehicle.Snapshot)

// Poller drives periodic status refreshes for one displayed vehicle view.
// Lifecycle: Stopped -> Running -> Stopped. The owner of the view must call
// Stop before tearing it down or switching vehicles.
type Poller struct {
	fetch    StatusFunc
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped poller. A non-positive interval falls back to
// DefaultInterval.
func New(fetch StatusFunc, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetch:    fetch,
		interval: interval,
	}
}

// Start performs one immediate refresh and then refreshes every interval
// until Stop is called. Starting a running poller is a no-op.
func (p *Poller) Start(onUpdate UpdateFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go p.run(ctx, onUpdate, done)
}

// Stop cancels the refresh loop and waits for it to exit, so no onUpdate
// call is delivered after Stop returns. Stopping a stopped poller is a
// no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

func (p *Poller) run(ctx context.Context, onUpdate UpdateFunc, done chan struct{}) {
	defer close(done)

	p.refresh(ctx, onUpdate)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx, onUpdate)
		}
	}
}

// refresh fetches one snapshot. Fetch failures are skipped, not fatal; the
// next tick tries again.
func (p *Poller) refresh(ctx context.Context, onUpdate UpdateFunc) {
	snap, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Status refresh failed", "error", err)
		}
		return
	}

	select {
	case <-ctx.Done():
	default:
		onUpdate(snap)
	}
}
