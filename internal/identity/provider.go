package identity

import (
	"context"
	"fmt"
)

// EventType mirrors the auth provider's state-change notifications.
type EventType string

const (
	EventInitialSession EventType = "INITIAL_SESSION"
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// Event is an auth-state-change notification. Session is nil for sign-out.
type Event struct {
	Type    EventType
	Session *Session
}

// Provider is the external auth service: session issuance, OAuth redirect
// flow, refresh, sign-out, and the auth-state-change event stream.
//
// Session and Identity return sentinel.ErrNoSession (possibly wrapped) when
// the token maps to no live session; any other error is a provider fault.
type Provider interface {
	SignUp(ctx context.Context, creds Credentials) (*Session, error)
	SignIn(ctx context.Context, creds Credentials) (*Session, error)
	ExchangeCode(ctx context.Context, code string) (*Session, error)
	Session(ctx context.Context, accessToken string) (*Session, error)
	Identity(ctx context.Context, accessToken string) (*Identity, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	// Subscribe returns an auth event stream and an unsubscribe func. Events
	// are dropped rather than blocking the provider if the consumer lags.
	Subscribe() (<-chan Event, func())
}

// SessionError surfaces a provider fault distinct from a plain missing
// session. The message is what the access verdict shows.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session error: %v", e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }
