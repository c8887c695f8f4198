// Package guard holds the fine-grained access check around protected
// surfaces: a long-lived watcher that follows auth-state events, and a
// per-request middleware for the HTTP routes.
package guard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"opsdesk/internal/access"
	"opsdesk/internal/identity"
	"opsdesk/internal/platform/config"
	"opsdesk/internal/profile"
)

// State is the watcher's lifecycle position.
type State string

const (
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateDenied        State = "denied"
	StateRedirecting   State = "redirecting"
)

// Checker is the port into the access service.
type Checker interface {
	Check(ctx context.Context, accessToken string, requiredRole profile.Role) (access.Verdict, error)
}

// Subscriber is the slice of the auth provider the watcher needs.
type Subscriber interface {
	Subscribe() (<-chan identity.Event, func())
}

// Watcher follows the provider's auth-state events and keeps a current
// verdict for one protected surface.
//
// Transitions: loading moves to authenticated or denied after the first
// check; authenticated falls back to denied on sign-out; denied moves to
// redirecting after a grace delay unless a later check allows first. The
// grace delay absorbs the flicker window while a fresh session is still
// propagating.
type Watcher struct {
	checker      Checker
	provider     Subscriber
	requiredRole profile.Role
	settle       time.Duration
	grace        time.Duration
	redirect     func(route string)
	logger       *slog.Logger

	mu         sync.Mutex
	state      State
	verdict    access.Verdict
	token      string
	graceTimer *time.Timer

	cancel context.CancelFunc
	done   chan struct{}
}

// Config carries the watcher's tuning knobs.
type Config struct {
	RequiredRole profile.Role
	SettleDelay  time.Duration
	GraceDelay   time.Duration
	// Redirect is invoked once when the grace delay elapses while denied.
	// The target never varies by deny reason.
	Redirect func(route string)
}

func NewWatcher(checker Checker, provider Subscriber, cfg Config, logger *slog.Logger) *Watcher {
	redirect := cfg.Redirect
	if redirect == nil {
		redirect = func(string) {}
	}
	return &Watcher{
		checker:      checker,
		provider:     provider,
		requiredRole: cfg.RequiredRole,
		settle:       cfg.SettleDelay,
		grace:        cfg.GraceDelay,
		redirect:     redirect,
		logger:       logger,
		state:        StateLoading,
	}
}

// Start runs the initial check and begins consuming auth events. It returns
// immediately; Stop tears the watcher down.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	events, unsubscribe := w.provider.Subscribe()

	go func() {
		defer close(w.done)
		defer unsubscribe()

		w.runCheck(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				w.handleEvent(ctx, ev)
			}
		}
	}()
}

// Stop cancels the event loop and waits for it to drain.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done

	w.mu.Lock()
	if w.graceTimer != nil {
		w.graceTimer.Stop()
		w.graceTimer = nil
	}
	w.mu.Unlock()
}

// State returns the current lifecycle position.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Verdict returns the most recent check outcome. Zero while loading.
func (w *Watcher) Verdict() access.Verdict {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.verdict
}

func (w *Watcher) handleEvent(ctx context.Context, ev identity.Event) {
	switch ev.Type {
	case identity.EventSignedIn, identity.EventInitialSession:
		w.mu.Lock()
		if ev.Session != nil {
			w.token = ev.Session.AccessToken
		}
		w.mu.Unlock()
		// A fresh session may not have propagated yet; let it settle.
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.settle):
		}
		w.runCheck(ctx)
	case identity.EventSignedOut:
		w.mu.Lock()
		w.token = ""
		w.mu.Unlock()
		w.applyVerdict(access.Deny(access.ReasonNoSession))
	case identity.EventTokenRefreshed:
		w.mu.Lock()
		if ev.Session != nil {
			w.token = ev.Session.AccessToken
		}
		w.mu.Unlock()
	}
}

func (w *Watcher) runCheck(ctx context.Context) {
	w.mu.Lock()
	token := w.token
	w.mu.Unlock()

	v, err := w.checker.Check(ctx, token, w.requiredRole)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		v = access.Deny(access.ReasonSessionError)
	}
	w.applyVerdict(v)
}

func (w *Watcher) applyVerdict(v access.Verdict) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.verdict = v
	if v.Allowed {
		w.state = StateAuthenticated
		if w.graceTimer != nil {
			w.graceTimer.Stop()
			w.graceTimer = nil
		}
		return
	}

	if w.state == StateRedirecting {
		return
	}
	w.state = StateDenied
	w.logger.Info("access denied", "reason", string(v.Reason), "message", v.Message)

	if w.graceTimer == nil {
		w.graceTimer = time.AfterFunc(w.grace, w.redirectNow)
	}
}

func (w *Watcher) redirectNow() {
	w.mu.Lock()
	if w.state != StateDenied {
		w.mu.Unlock()
		return
	}
	w.state = StateRedirecting
	w.graceTimer = nil
	w.mu.Unlock()

	w.redirect(config.LandingRoute)
}
