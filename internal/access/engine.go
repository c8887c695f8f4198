package access

import (
	"opsdesk/internal/identity"
	"opsdesk/internal/profile"
)

// Engine applies the access rules. It is pure: no I/O, no retries. Retrying
// belongs to the caller.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Decide evaluates the rules in order, short-circuiting on the first failure:
//
//  1. no identity denies with no_session
//  2. unconfirmed email denies
//  3. missing profile denies
//  4. status other than approved denies with pending, rejected or unknown,
//     unless the identity arrived via a recognized OAuth provider: OAuth
//     sign-ins skip the approval check entirely, even when an admin later
//     moved the profile to pending or rejected
//  5. a required role that the profile lacks denies with role_mismatch
//  6. otherwise allow
//
// requiredRole is the zero value when the route has no role requirement.
func (e *Engine) Decide(ident *identity.Identity, p *profile.Profile, requiredRole profile.Role) Verdict {
	if ident == nil {
		return Deny(ReasonNoSession)
	}
	if !ident.EmailConfirmed() {
		return Deny(ReasonEmailNotConfirmed)
	}
	if p == nil {
		return Deny(ReasonProfileNotFound)
	}
	if !p.IsApproved() && !ident.IsOAuth() {
		switch profile.ParseStatus(string(p.Status)) {
		case profile.StatusPending:
			return Deny(ReasonPending)
		case profile.StatusRejected:
			return Deny(ReasonRejected)
		default:
			return Deny(ReasonUnknown)
		}
	}
	if requiredRole != "" && p.Role != requiredRole {
		return Deny(ReasonRoleMismatch)
	}
	return Allow(ident, p)
}
