package profile

import (
	"time"

	"github.com/google/uuid"
)

// Role gates admin-only surfaces. Staff is the least-privileged value and the
// default whenever a role is absent or unrecognized.
type Role string

const (
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes a stored role, defaulting to staff.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleStaff
}

// Status is the account approval state. Anything outside the three enumerated
// values is StatusUnknown and denied by the access rules.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusUnknown  Status = "unknown"
)

// ParseStatus maps a stored status onto the enum, collapsing anything
// unrecognized to StatusUnknown.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(s)
	default:
		return StatusUnknown
	}
}

// Profile is the application-owned record describing role and approval for an
// identity. One row per identity ID, created lazily on first successful
// sign-in.
//
// Mutation rules:
//   - the owning user edits names and avatar
//   - an admin edits role and status
//   - activity tracking touches last_active (advisory, last-write-wins)
type Profile struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	AvatarURL    string     `json:"avatar_url"`
	Role         Role       `json:"role"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastActiveAt *time.Time `json:"last_active,omitempty"`
}

// FullName joins the name fields for display and denormalized activity rows.
func (p *Profile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// IsApproved reports whether an admin has approved the account.
func (p *Profile) IsApproved() bool {
	return p.Status == StatusApproved
}

// Filter narrows admin account listings.
type Filter struct {
	Role   Role   // zero value: all roles
	Status Status // zero value: all statuses
	Search string // matches email, first or last name
	Limit  int
	Offset int
}

// Page is one page of an admin account listing with the total match count for
// pagination.
type Page struct {
	Profiles []*Profile `json:"profiles"`
	Total    int        `json:"total"`
}
