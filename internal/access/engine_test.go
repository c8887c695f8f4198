package access

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"opsdesk/internal/identity"
	"opsdesk/internal/profile"
)

func ident(provider string, confirmed bool) *identity.Identity {
	i := &identity.Identity{
		ID:       uuid.New(),
		Email:    "jane.doe@example.com",
		Provider: provider,
	}
	if confirmed {
		at := time.Now()
		i.EmailConfirmedAt = &at
	}
	return i
}

func prof(status profile.Status, role profile.Role) *profile.Profile {
	return &profile.Profile{
		ID:     uuid.New(),
		Email:  "jane.doe@example.com",
		Role:   role,
		Status: status,
	}
}

func TestDecide(t *testing.T) {
	e := NewEngine()

	t.Run("no identity denies with no_session", func(t *testing.T) {
		v := e.Decide(nil, nil, "")
		require.False(t, v.Allowed)
		require.Equal(t, ReasonNoSession, v.Reason)
	})

	t.Run("unconfirmed email denies regardless of profile state", func(t *testing.T) {
		for _, status := range []profile.Status{profile.StatusPending, profile.StatusApproved, profile.StatusRejected} {
			v := e.Decide(ident(identity.ProviderPassword, false), prof(status, profile.RoleAdmin), "")
			require.False(t, v.Allowed, "status %s", status)
			require.Equal(t, ReasonEmailNotConfirmed, v.Reason, "status %s", status)
		}
	})

	t.Run("missing profile denies", func(t *testing.T) {
		v := e.Decide(ident(identity.ProviderPassword, true), nil, "")
		require.False(t, v.Allowed)
		require.Equal(t, ReasonProfileNotFound, v.Reason)
	})

	t.Run("approved allows with absent or matching role requirement", func(t *testing.T) {
		v := e.Decide(ident(identity.ProviderPassword, true), prof(profile.StatusApproved, profile.RoleStaff), "")
		require.True(t, v.Allowed)
		require.Equal(t, ReasonNone, v.Reason)

		v = e.Decide(ident(identity.ProviderPassword, true), prof(profile.StatusApproved, profile.RoleAdmin), profile.RoleAdmin)
		require.True(t, v.Allowed)
	})

	t.Run("pending password account denies with pending approval message", func(t *testing.T) {
		v := e.Decide(ident(identity.ProviderPassword, true), prof(profile.StatusPending, profile.RoleStaff), "")
		require.False(t, v.Allowed)
		require.Equal(t, ReasonPending, v.Reason)
		require.Contains(t, strings.ToLower(v.Message), "pending approval")
	})

	t.Run("rejected password account denies", func(t *testing.T) {
		v := e.Decide(ident(identity.ProviderPassword, true), prof(profile.StatusRejected, profile.RoleStaff), "")
		require.False(t, v.Allowed)
		require.Equal(t, ReasonRejected, v.Reason)
	})

	t.Run("unrecognized status denies as unknown", func(t *testing.T) {
		v := e.Decide(ident(identity.ProviderPassword, true), prof(profile.Status("true"), profile.RoleStaff), "")
		require.False(t, v.Allowed)
		require.Equal(t, ReasonUnknown, v.Reason)
	})

	// Documents the status bypass for OAuth sign-ins as it stands today. The
	// policy is deliberately asymmetric with the password path.
	t.Run("oauth identity bypasses the approval check", func(t *testing.T) {
		for _, provider := range []string{identity.ProviderGoogle, identity.ProviderOAuth} {
			for _, status := range []profile.Status{profile.StatusPending, profile.StatusRejected, profile.Status("true")} {
				v := e.Decide(ident(provider, true), prof(status, profile.RoleStaff), "")
				require.True(t, v.Allowed, "provider %s status %s", provider, status)
			}
		}
	})

	t.Run("oauth bypass does not extend to role requirements", func(t *testing.T) {
		v := e.Decide(ident(identity.ProviderGoogle, true), prof(profile.StatusPending, profile.RoleStaff), profile.RoleAdmin)
		require.False(t, v.Allowed)
		require.Equal(t, ReasonRoleMismatch, v.Reason)
	})

	t.Run("staff denied on admin requirement with role_mismatch", func(t *testing.T) {
		v := e.Decide(ident(identity.ProviderPassword, true), prof(profile.StatusApproved, profile.RoleStaff), profile.RoleAdmin)
		require.False(t, v.Allowed)
		require.Equal(t, ReasonRoleMismatch, v.Reason)
	})

	t.Run("every deny carries a message", func(t *testing.T) {
		reasons := []Reason{
			ReasonNoSession, ReasonSessionError, ReasonEmailNotConfirmed,
			ReasonProfileNotFound, ReasonProfileError, ReasonPending,
			ReasonRejected, ReasonRoleMismatch, ReasonUnknown,
		}
		for _, r := range reasons {
			require.NotEmpty(t, Deny(r).Message, "reason %s", r)
		}
	})
}
