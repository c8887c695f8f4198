package identity

import (
	"context"
	"errors"
	"time"

	"opsdesk/pkg/platform/sentinel"
)

// Resolver obtains the current authenticated identity from the provider,
// tolerating the propagation delay after redirect-based sign-in: when no
// session is found it waits one settle interval and requeries exactly once.
type Resolver struct {
	provider Provider
	settle   time.Duration
	onRetry  func()
}

// NewResolver builds a Resolver. settle is the fixed wait before the single
// retry; pass a short value in tests.
func NewResolver(provider Provider, settle time.Duration) *Resolver {
	return &Resolver{provider: provider, settle: settle}
}

// OnRetry registers a hook invoked whenever the settle-and-retry path is
// taken, for retry counters. Returns the resolver for chaining.
func (r *Resolver) OnRetry(fn func()) *Resolver {
	r.onRetry = fn
	return r
}

// Resolve returns the session and identity for the given access token.
//
// Errors: sentinel.ErrNoSession after the single retry still finds nothing;
// *SessionError for provider faults. If the session carries no embedded
// identity, the identity is fetched from the provider directly.
func (r *Resolver) Resolve(ctx context.Context, accessToken string) (*Session, *Identity, error) {
	session, err := r.provider.Session(ctx, accessToken)
	if err != nil && !errors.Is(err, sentinel.ErrNoSession) {
		return nil, nil, &SessionError{Err: err}
	}

	if session == nil || errors.Is(err, sentinel.ErrNoSession) {
		// Post-redirect session propagation is asynchronous; wait once.
		if r.onRetry != nil {
			r.onRetry()
		}
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(r.settle):
		}

		session, err = r.provider.Session(ctx, accessToken)
		if err != nil && !errors.Is(err, sentinel.ErrNoSession) {
			return nil, nil, &SessionError{Err: err}
		}
		if session == nil || errors.Is(err, sentinel.ErrNoSession) {
			return nil, nil, sentinel.ErrNoSession
		}
	}

	ident := session.Identity
	if ident == nil {
		ident, err = r.provider.Identity(ctx, accessToken)
		if err != nil {
			if errors.Is(err, sentinel.ErrNoSession) {
				return nil, nil, sentinel.ErrNoSession
			}
			return nil, nil, &SessionError{Err: err}
		}
	}

	return session, ident, nil
}
