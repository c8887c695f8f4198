package access

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"opsdesk/internal/identity"
	"opsdesk/internal/profile"
	profilesvc "opsdesk/internal/profile/service"
	"opsdesk/internal/profile/store"
	"opsdesk/pkg/platform/sentinel"
)

// stubProvider serves a fixed session lookup result. Only the methods the
// resolver touches do anything.
type stubProvider struct {
	sessions     []sessionResult // consumed in order; last repeats
	sessionCalls int
}

type sessionResult struct {
	session *identity.Session
	err     error
}

func (p *stubProvider) Session(_ context.Context, _ string) (*identity.Session, error) {
	i := p.sessionCalls
	if i >= len(p.sessions) {
		i = len(p.sessions) - 1
	}
	p.sessionCalls++
	r := p.sessions[i]
	return r.session, r.err
}

func (p *stubProvider) Identity(_ context.Context, _ string) (*identity.Identity, error) {
	return nil, sentinel.ErrNoSession
}

func (p *stubProvider) SignUp(context.Context, identity.Credentials) (*identity.Session, error) {
	return nil, errors.New("not implemented")
}
func (p *stubProvider) SignIn(context.Context, identity.Credentials) (*identity.Session, error) {
	return nil, errors.New("not implemented")
}
func (p *stubProvider) ExchangeCode(context.Context, string) (*identity.Session, error) {
	return nil, errors.New("not implemented")
}
func (p *stubProvider) Refresh(context.Context, string) (*identity.Session, error) {
	return nil, errors.New("not implemented")
}
func (p *stubProvider) SignOut(context.Context, string) error { return nil }
func (p *stubProvider) Subscribe() (<-chan identity.Event, func()) {
	ch := make(chan identity.Event)
	return ch, func() {}
}

func confirmedSession(provider string) *identity.Session {
	at := time.Now()
	return &identity.Session{
		AccessToken: "tok",
		ExpiresAt:   at.Add(time.Hour),
		Identity: &identity.Identity{
			ID:               uuid.New(),
			Email:            "jane.doe@example.com",
			EmailConfirmedAt: &at,
			Provider:         provider,
		},
	}
}

func newCheckService(provider *stubProvider) *Service {
	logger := slog.New(slog.DiscardHandler)
	resolver := identity.NewResolver(provider, time.Millisecond)
	gate := profilesvc.New(store.NewMemory(), logger, nil)
	return NewService(resolver, gate, logger, nil)
}

func TestCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("password sign-in lands pending and is denied", func(t *testing.T) {
		provider := &stubProvider{sessions: []sessionResult{{session: confirmedSession(identity.ProviderPassword)}}}
		svc := newCheckService(provider)

		v, err := svc.Check(ctx, "tok", "")
		require.NoError(t, err)
		require.False(t, v.Allowed)
		require.Equal(t, ReasonPending, v.Reason)
	})

	t.Run("google sign-in with no prior profile is allowed", func(t *testing.T) {
		provider := &stubProvider{sessions: []sessionResult{{session: confirmedSession(identity.ProviderGoogle)}}}
		svc := newCheckService(provider)

		v, err := svc.Check(ctx, "tok", "")
		require.NoError(t, err)
		require.True(t, v.Allowed)
		require.Equal(t, profile.StatusApproved, v.Profile.Status)
		require.Equal(t, profile.RoleStaff, v.Profile.Role)
	})

	t.Run("no session retries exactly once then denies", func(t *testing.T) {
		provider := &stubProvider{sessions: []sessionResult{{err: sentinel.ErrNoSession}}}
		svc := newCheckService(provider)

		v, err := svc.Check(ctx, "tok", "")
		require.NoError(t, err)
		require.False(t, v.Allowed)
		require.Equal(t, ReasonNoSession, v.Reason)
		require.Equal(t, 2, provider.sessionCalls)
	})

	t.Run("session appearing on the retry is honored", func(t *testing.T) {
		provider := &stubProvider{sessions: []sessionResult{
			{err: sentinel.ErrNoSession},
			{session: confirmedSession(identity.ProviderGoogle)},
		}}
		svc := newCheckService(provider)

		v, err := svc.Check(ctx, "tok", "")
		require.NoError(t, err)
		require.True(t, v.Allowed)
	})

	t.Run("provider fault denies with session_error", func(t *testing.T) {
		provider := &stubProvider{sessions: []sessionResult{{err: errors.New("upstream down")}}}
		svc := newCheckService(provider)

		v, err := svc.Check(ctx, "tok", "")
		require.NoError(t, err)
		require.False(t, v.Allowed)
		require.Equal(t, ReasonSessionError, v.Reason)
	})

	t.Run("unconfirmed email denies before the profile gate", func(t *testing.T) {
		sess := confirmedSession(identity.ProviderPassword)
		sess.Identity.EmailConfirmedAt = nil
		provider := &stubProvider{sessions: []sessionResult{{session: sess}}}
		svc := newCheckService(provider)

		v, err := svc.Check(ctx, "tok", "")
		require.NoError(t, err)
		require.Equal(t, ReasonEmailNotConfirmed, v.Reason)
	})

	t.Run("role requirement is enforced after approval", func(t *testing.T) {
		provider := &stubProvider{sessions: []sessionResult{{session: confirmedSession(identity.ProviderGoogle)}}}
		svc := newCheckService(provider)

		v, err := svc.Check(ctx, "tok", profile.RoleAdmin)
		require.NoError(t, err)
		require.False(t, v.Allowed)
		require.Equal(t, ReasonRoleMismatch, v.Reason)
	})

	t.Run("gate fault denies with profile_error", func(t *testing.T) {
		provider := &stubProvider{sessions: []sessionResult{{session: confirmedSession(identity.ProviderPassword)}}}
		logger := slog.New(slog.DiscardHandler)
		resolver := identity.NewResolver(provider, time.Millisecond)
		svc := NewService(resolver, faultGate{}, logger, nil)

		v, err := svc.Check(ctx, "tok", "")
		require.NoError(t, err)
		require.Equal(t, ReasonProfileError, v.Reason)
	})

	t.Run("cancelled context surfaces as an error", func(t *testing.T) {
		provider := &stubProvider{sessions: []sessionResult{{err: sentinel.ErrNoSession}}}
		resolver := identity.NewResolver(provider, time.Minute)
		svc := NewService(resolver, faultGate{}, slog.New(slog.DiscardHandler), nil)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := svc.Check(cctx, "tok", "")
		require.ErrorIs(t, err, context.Canceled)
	})
}

type faultGate struct{}

func (faultGate) Ensure(context.Context, *identity.Identity) (*profile.Profile, error) {
	return nil, errors.New("boom")
}
