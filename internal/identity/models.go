package identity

import (
	"time"

	"github.com/google/uuid"
)

// Provider names as reported by the auth service. OAuth sign-ins are treated
// as pre-verified in the access rules; see access.Engine.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
	ProviderOAuth    = "oauth"
)

// Identity is the authenticated principal as known to the external auth
// provider. Immutable except via the provider itself.
type Identity struct {
	ID               uuid.UUID
	Email            string
	EmailConfirmedAt *time.Time
	Provider         string
	// Metadata carries provider-supplied signup data (full_name, first_name,
	// last_name, avatar_url) used when a profile is first created.
	Metadata map[string]string
}

// EmailConfirmed reports whether the provider has verified the email address.
func (i *Identity) EmailConfirmed() bool {
	return i.EmailConfirmedAt != nil && !i.EmailConfirmedAt.IsZero()
}

// IsOAuth reports whether the identity was issued through a recognized OAuth
// provider rather than a password signup.
func (i *Identity) IsOAuth() bool {
	return i.Provider == ProviderGoogle || i.Provider == ProviderOAuth
}

// Session is an issued auth session. Identity may be nil when the provider
// has not yet propagated the principal data after a redirect-based sign-in;
// the resolver then fetches it directly.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Identity     *Identity
}

// Credentials is a password signup or sign-in request.
type Credentials struct {
	Email    string
	Password string
	FullName string
}
