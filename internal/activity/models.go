// Package activity is the append-only action trail: who did what, when, with
// enough denormalized display data that reading a log never joins back to
// profiles.
package activity

import (
	"time"

	"github.com/google/uuid"
)

// Action labels for the entries feature code emits.
const (
	ActionLogin           = "login"
	ActionLogout          = "logout"
	ActionProfileUpdated  = "profile_updated"
	ActionAccountApproved = "account_approved"
	ActionAccountRejected = "account_rejected"
	ActionRoleChanged     = "role_changed"
	ActionDocumentCreated = "document_created"
	ActionDocumentUpdated = "document_updated"
	ActionDocumentDeleted = "document_deleted"
)

// Entry is one appended record. Entries are never updated or deleted.
//
// The user display fields are denormalized at write time so the log remains
// readable after a profile changes or disappears.
type Entry struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Action    string         `json:"action"`
	Details   string         `json:"details"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`

	UserEmail     string `json:"user_email"`
	UserFullName  string `json:"user_full_name"`
	UserAvatarURL string `json:"user_avatar_url,omitempty"`
}

// Filter narrows a log listing.
type Filter struct {
	UserID uuid.UUID // zero value: all users
	Action string    // empty: all actions
	Limit  int
	Offset int
}
