package handler

import (
	"time"

	"opsdesk/internal/profile"
)

// ProfileResponse is the wire shape of a profile.
type ProfileResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	FullName     string     `json:"full_name"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastActiveAt *time.Time `json:"last_active,omitempty"`
}

// FromProfile converts a domain profile to its wire shape.
func FromProfile(p *profile.Profile) ProfileResponse {
	return ProfileResponse{
		ID:           p.ID.String(),
		Email:        p.Email,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		FullName:     p.FullName(),
		AvatarURL:    p.AvatarURL,
		Role:         string(p.Role),
		Status:       string(p.Status),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		LastActiveAt: p.LastActiveAt,
	}
}

// PageResponse is one page of the admin account listing.
type PageResponse struct {
	Accounts []ProfileResponse `json:"accounts"`
	Total    int               `json:"total"`
}

// FromPage converts a listing page to its wire shape.
func FromPage(page *profile.Page) PageResponse {
	out := PageResponse{
		Accounts: make([]ProfileResponse, 0, len(page.Profiles)),
		Total:    page.Total,
	}
	for _, p := range page.Profiles {
		out.Accounts = append(out.Accounts, FromProfile(p))
	}
	return out
}
