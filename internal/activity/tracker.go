package activity

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrTrackerRunning is returned by Start when the tracker is already live.
var ErrTrackerRunning = errors.New("activity tracker already running")

// DefaultTouchInterval spaces out last-active writes per user.
const DefaultTouchInterval = 10 * time.Minute

// LastActiveToucher is the slice of the profile service the tracker needs.
type LastActiveToucher interface {
	TouchLastActive(ctx context.Context, id uuid.UUID)
}

// Tracker is the process-wide last-active updater. One instance runs per
// process with an explicit Start/Stop pair; a second Start is an error
// rather than a silent second worker.
//
// Observations are fire-and-forget: they are dropped when the inbox is full
// or the tracker is stopped, and each user is touched at most once per
// interval. Losing updates is acceptable; last-active is advisory telemetry.
type Tracker struct {
	profiles LastActiveToucher
	interval time.Duration
	logger   *slog.Logger

	running atomic.Bool
	inbox   chan uuid.UUID
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewTracker(profiles LastActiveToucher, interval time.Duration, logger *slog.Logger) *Tracker {
	if interval <= 0 {
		interval = DefaultTouchInterval
	}
	return &Tracker{
		profiles: profiles,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the background worker.
func (t *Tracker) Start(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return ErrTrackerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.inbox = make(chan uuid.UUID, 128)
	t.done = make(chan struct{})

	go t.run(ctx)
	t.logger.Info("activity tracker started", "interval", t.interval.String())
	return nil
}

// Stop tears the worker down and waits for it to exit. Safe to call when the
// tracker never started.
func (t *Tracker) Stop() {
	if !t.running.CompareAndSwap(true, false) {
		return
	}
	t.cancel()
	<-t.done
	t.logger.Info("activity tracker stopped")
}

// Observe notes that a user was just active. Never blocks.
func (t *Tracker) Observe(userID uuid.UUID) {
	if !t.running.Load() || userID == (uuid.UUID{}) {
		return
	}
	select {
	case t.inbox <- userID:
	default:
		// Inbox full; this observation is lost, the next one will land.
	}
}

func (t *Tracker) run(ctx context.Context) {
	defer close(t.done)

	lastTouched := make(map[uuid.UUID]time.Time)
	for {
		select {
		case <-ctx.Done():
			return
		case userID := <-t.inbox:
			now := time.Now()
			if at, ok := lastTouched[userID]; ok && now.Sub(at) < t.interval {
				continue
			}
			lastTouched[userID] = now
			t.profiles.TouchLastActive(ctx, userID)
		}
	}
}
