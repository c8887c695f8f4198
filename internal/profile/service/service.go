// Package service implements the profile gate: profiles are created lazily on
// first successful sign-in and only ever backfilled, never overwritten.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"opsdesk/internal/identity"
	"opsdesk/internal/platform/metrics"
	"opsdesk/internal/profile"
	derrors "opsdesk/pkg/domain-errors"
	"opsdesk/pkg/email"
	"opsdesk/pkg/platform/sentinel"
	"opsdesk/pkg/requestcontext"
)

// ErrEmailNotConfirmed gates every profile lookup: unverified identities never
// reach the store.
var ErrEmailNotConfirmed = errors.New("email not confirmed")

// Store is the persistence port for profiles.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error)
	Create(ctx context.Context, p *profile.Profile) error
	Update(ctx context.Context, p *profile.Profile) error
	UpdateLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, filter profile.Filter) (*profile.Page, error)
}

// Service orchestrates profile lifecycle around the store.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(store Store, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, logger: logger, metrics: m}
}

// Ensure returns the profile for an identity, creating one with default role
// and status if none exists.
//
// Policy:
//   - the email must be confirmed before any lookup proceeds
//   - on create, display names come from provider metadata, falling back to
//     splitting a combined full name, then to the email local part
//   - on update, only empty fields are backfilled; user edits are never
//     overwritten
//   - an insert conflict means another request won the race; the existing row
//     is re-fetched
func (s *Service) Ensure(ctx context.Context, ident *identity.Identity) (*profile.Profile, error) {
	if ident == nil {
		return nil, derrors.New(derrors.CodeUnauthorized, "no identity")
	}
	if !ident.EmailConfirmed() {
		return nil, ErrEmailNotConfirmed
	}

	existing, err := s.store.FindByID(ctx, ident.ID)
	switch {
	case err == nil:
		return s.backfill(ctx, existing, ident)
	case errors.Is(err, sentinel.ErrNotFound):
		return s.create(ctx, ident)
	default:
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to load profile")
	}
}

func (s *Service) create(ctx context.Context, ident *identity.Identity) (*profile.Profile, error) {
	first, last := displayName(ident)
	now := requestcontext.Now(ctx)

	status := profile.StatusPending
	if ident.IsOAuth() {
		// OAuth emails arrive verified by the provider; those accounts start
		// approved while password signups wait for an admin.
		status = profile.StatusApproved
	}

	p := &profile.Profile{
		ID:        ident.ID,
		Email:     ident.Email,
		FirstName: first,
		LastName:  last,
		AvatarURL: ident.Metadata["avatar_url"],
		Role:      profile.RoleStaff,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Concurrent first sign-in; the other insert wins.
			existing, ferr := s.store.FindByID(ctx, ident.ID)
			if ferr != nil {
				return nil, derrors.Wrap(ferr, derrors.CodeInternal, "failed to load profile after conflict")
			}
			return existing, nil
		}
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to create profile")
	}

	if s.metrics != nil {
		s.metrics.ProfilesCreated.Inc()
	}
	s.logger.InfoContext(ctx, "profile created",
		"user_id", p.ID.String(),
		"status", string(p.Status),
		"provider", ident.Provider,
	)
	return p, nil
}

// backfill fills fields the user has not set yet from provider metadata and
// leaves everything else untouched.
func (s *Service) backfill(ctx context.Context, p *profile.Profile, ident *identity.Identity) (*profile.Profile, error) {
	changed := false
	if p.Email == "" && ident.Email != "" {
		p.Email = ident.Email
		changed = true
	}
	if p.FirstName == "" && p.LastName == "" {
		first, last := displayName(ident)
		if first != "" || last != "" {
			p.FirstName, p.LastName = first, last
			changed = true
		}
	}
	if p.AvatarURL == "" {
		if avatar := ident.Metadata["avatar_url"]; avatar != "" {
			p.AvatarURL = avatar
			changed = true
		}
	}
	if !changed {
		return p, nil
	}

	p.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, p); err != nil {
		// The stale copy is still usable; the backfill retries next sign-in.
		s.logger.WarnContext(ctx, "profile backfill failed",
			"user_id", p.ID.String(),
			"error", err.Error(),
		)
	}
	return p, nil
}

func displayName(ident *identity.Identity) (string, string) {
	first := ident.Metadata["first_name"]
	last := ident.Metadata["last_name"]
	if first != "" || last != "" {
		return first, last
	}
	full := ident.Metadata["full_name"]
	if full == "" {
		full = ident.Metadata["name"]
	}
	if full != "" {
		return email.SplitFullName(full)
	}
	return email.DeriveNameFromEmail(ident.Email)
}

// Get returns a profile by identity ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, derrors.New(derrors.CodeNotFound, "profile not found")
		}
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to load profile")
	}
	return p, nil
}

// List powers the admin account-approval screen.
func (s *Service) List(ctx context.Context, filter profile.Filter) (*profile.Page, error) {
	page, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to list profiles")
	}
	return page, nil
}

// OwnerUpdate holds the fields the owning user may edit.
type OwnerUpdate struct {
	FirstName *string
	LastName  *string
	AvatarURL *string
}

// UpdateOwn applies the owner's edits to names and avatar.
func (s *Service) UpdateOwn(ctx context.Context, id uuid.UUID, upd OwnerUpdate) (*profile.Profile, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.FirstName != nil {
		p.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		p.LastName = *upd.LastName
	}
	if upd.AvatarURL != nil {
		p.AvatarURL = *upd.AvatarURL
	}
	p.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, p); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to update profile")
	}
	return p, nil
}

// SetStatus is the admin approval action.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status profile.Status) (*profile.Profile, error) {
	if profile.ParseStatus(string(status)) == profile.StatusUnknown {
		return nil, derrors.New(derrors.CodeBadRequest, "invalid status")
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Status = status
	p.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, p); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to update status")
	}
	return p, nil
}

// SetRole is the admin role assignment action.
func (s *Service) SetRole(ctx context.Context, id uuid.UUID, role profile.Role) (*profile.Profile, error) {
	if role != profile.RoleStaff && role != profile.RoleAdmin {
		return nil, derrors.New(derrors.CodeBadRequest, "invalid role")
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Role = role
	p.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, p); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to update role")
	}
	return p, nil
}

// TouchLastActive records activity. Best-effort advisory telemetry: failures
// are logged and swallowed, ordering does not matter.
func (s *Service) TouchLastActive(ctx context.Context, id uuid.UUID) {
	if err := s.store.UpdateLastActive(ctx, id, requestcontext.Now(ctx)); err != nil {
		s.logger.DebugContext(ctx, "last_active touch failed",
			"user_id", id.String(),
			"error", err.Error(),
		)
	}
}
