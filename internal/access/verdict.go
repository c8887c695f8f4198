// Package access evaluates whether an identity may use the application,
// combining session state, profile approval and an optional role requirement
// into a single verdict.
package access

import (
	"opsdesk/internal/identity"
	"opsdesk/internal/profile"
)

// Reason classifies why a check denied. Empty on allow.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNoSession         Reason = "no_session"
	ReasonSessionError      Reason = "session_error"
	ReasonEmailNotConfirmed Reason = "email_not_confirmed"
	ReasonProfileNotFound   Reason = "profile_not_found"
	ReasonProfileError      Reason = "profile_error"
	ReasonPending           Reason = "pending"
	ReasonRejected          Reason = "rejected"
	ReasonRoleMismatch      Reason = "role_mismatch"
	ReasonUnknown           Reason = "unknown"
)

// reasonMessages are the human-readable messages rendered before a redirect.
// Every reason maps to a message; the redirect target never varies by reason.
var reasonMessages = map[Reason]string{
	ReasonNoSession:         "No active session. Please sign in.",
	ReasonSessionError:      "Could not verify your session. Please try again.",
	ReasonEmailNotConfirmed: "Please confirm your email address before signing in.",
	ReasonProfileNotFound:   "No account profile was found for this user.",
	ReasonProfileError:      "Could not load your account profile. Please try again.",
	ReasonPending:           "Your account is pending approval by an administrator.",
	ReasonRejected:          "Your account registration was rejected.",
	ReasonRoleMismatch:      "You do not have permission to access this area.",
	ReasonUnknown:           "Your account is in an unexpected state. Please contact an administrator.",
}

// Message returns the display message for a reason.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return reasonMessages[ReasonUnknown]
}

// Verdict is the transient outcome of one access check. It is derived on every
// check and never persisted.
type Verdict struct {
	Allowed  bool               `json:"allowed"`
	Reason   Reason             `json:"reason,omitempty"`
	Message  string             `json:"message,omitempty"`
	Identity *identity.Identity `json:"-"`
	Profile  *profile.Profile   `json:"profile,omitempty"`
}

// Allow builds an allowing verdict carrying the resolved principal.
func Allow(ident *identity.Identity, p *profile.Profile) Verdict {
	return Verdict{Allowed: true, Identity: ident, Profile: p}
}

// Deny builds a denying verdict for a reason.
func Deny(reason Reason) Verdict {
	return Verdict{Allowed: false, Reason: reason, Message: reason.Message()}
}
