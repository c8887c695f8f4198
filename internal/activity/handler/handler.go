package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"opsdesk/internal/activity"
	derrors "opsdesk/pkg/domain-errors"
	"opsdesk/pkg/platform/httputil"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Lister reads back the action trail.
type Lister interface {
	List(ctx context.Context, filter activity.Filter) ([]activity.Entry, error)
}

// Handler serves the activity log read surface.
type Handler struct {
	recorder Lister
	logger   *slog.Logger
}

func New(recorder Lister, logger *slog.Logger) *Handler {
	return &Handler{recorder: recorder, logger: logger}
}

// Register mounts the activity endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/activity", h.HandleList)
}

// HandleList handles GET /activity requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := activity.Filter{
		Action: q.Get("action"),
		Limit:  defaultListLimit,
	}
	if v := q.Get("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid user_id"))
			return
		}
		filter.UserID = id
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		filter.Limit = min(v, maxListLimit)
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		filter.Offset = v
	}

	entries, err := h.recorder.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "activity list failed", "error", err)
		httputil.WriteError(w, derrors.Wrap(err, derrors.CodeInternal, "failed to list activity"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
