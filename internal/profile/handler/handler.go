package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"opsdesk/internal/profile"
	"opsdesk/internal/profile/service"
	derrors "opsdesk/pkg/domain-errors"
	"opsdesk/pkg/platform/httputil"
	"opsdesk/pkg/requestcontext"
)

// Service defines the profile operations the handler needs.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*profile.Profile, error)
	UpdateOwn(ctx context.Context, id uuid.UUID, upd service.OwnerUpdate) (*profile.Profile, error)
	List(ctx context.Context, filter profile.Filter) (*profile.Page, error)
	SetStatus(ctx context.Context, id uuid.UUID, status profile.Status) (*profile.Profile, error)
	SetRole(ctx context.Context, id uuid.UUID, role profile.Role) (*profile.Profile, error)
}

// Handler wires profile endpoints to the profile service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a profile handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the owner-facing endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/profile/me", h.HandleMe)
	r.Patch("/profile/me", h.HandleUpdateMe)
}

// RegisterAdmin mounts the account administration endpoints. The router guards
// them with the admin role requirement.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/accounts", h.HandleListAccounts)
	r.Post("/admin/accounts/{id}/approve", h.HandleApprove)
	r.Post("/admin/accounts/{id}/reject", h.HandleReject)
	r.Post("/admin/accounts/{id}/role", h.HandleSetRole)
}

// HandleMe handles GET /profile/me requests.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID == (uuid.UUID{}) {
		httputil.WriteError(w, derrors.New(derrors.CodeUnauthorized, "authentication required"))
		return
	}

	p, err := h.service.Get(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProfile(p))
}

// HandleUpdateMe handles PATCH /profile/me requests.
func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID == (uuid.UUID{}) {
		httputil.WriteError(w, derrors.New(derrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.Decode[UpdateMeRequest](w, r)
	if !ok {
		return
	}

	p, err := h.service.UpdateOwn(ctx, userID, service.OwnerUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "profile update failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProfile(p))
}

// HandleListAccounts handles GET /admin/accounts requests.
func (h *Handler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := h.service.List(ctx, filterFromQuery(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPage(page))
}

// HandleApprove handles POST /admin/accounts/{id}/approve requests.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, profile.StatusApproved)
}

// HandleReject handles POST /admin/accounts/{id}/reject requests.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, profile.StatusRejected)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status profile.Status) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid account id"))
		return
	}

	p, err := h.service.SetStatus(ctx, id, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "account status changed",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", requestcontext.UserID(ctx).String(),
		"user_id", id.String(),
		"status", string(status),
	)
	httputil.WriteJSON(w, http.StatusOK, FromProfile(p))
}

// HandleSetRole handles POST /admin/accounts/{id}/role requests.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid account id"))
		return
	}

	req, ok := httputil.Decode[SetRoleRequest](w, r)
	if !ok {
		return
	}

	p, err := h.service.SetRole(ctx, id, profile.Role(req.Role))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "account role changed",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", requestcontext.UserID(ctx).String(),
		"user_id", id.String(),
		"role", req.Role,
	)
	httputil.WriteJSON(w, http.StatusOK, FromProfile(p))
}
