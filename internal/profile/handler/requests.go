package handler

import (
	"errors"
	"net/http"
	"strconv"

	"opsdesk/internal/profile"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// UpdateMeRequest carries the owner-editable profile fields. Absent fields are
// left untouched.
type UpdateMeRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	AvatarURL *string `json:"avatar_url"`
}

// SetRoleRequest is the admin role assignment payload.
type SetRoleRequest struct {
	Role string `json:"role"`
}

func (r SetRoleRequest) Validate() error {
	if r.Role == "" {
		return errors.New("role is required")
	}
	return nil
}

func filterFromQuery(r *http.Request) profile.Filter {
	q := r.URL.Query()
	f := profile.Filter{
		Search: q.Get("search"),
		Limit:  defaultListLimit,
	}
	if v := q.Get("role"); v != "" {
		f.Role = profile.ParseRole(v)
	}
	if v := q.Get("status"); v != "" {
		f.Status = profile.ParseStatus(v)
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		f.Limit = min(v, maxListLimit)
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		f.Offset = v
	}
	return f
}
