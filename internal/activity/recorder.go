package activity

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"opsdesk/internal/profile"
	"opsdesk/pkg/requestcontext"
)

// ProfileReader supplies the display fields denormalized onto each entry.
type ProfileReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error)
}

// Sink receives every recorded entry after it is persisted, for streaming
// consumers. Publish must not block the caller.
type Sink interface {
	Publish(ctx context.Context, entry Entry)
}

// Recorder snapshots user display data and client metadata onto entries and
// appends them. Recording never fails the feature action that triggered it:
// errors are logged and swallowed.
type Recorder struct {
	store    Store
	profiles ProfileReader
	sinks    []Sink
	logger   *slog.Logger
}

func NewRecorder(store Store, profiles ProfileReader, logger *slog.Logger, sinks ...Sink) *Recorder {
	return &Recorder{store: store, profiles: profiles, sinks: sinks, logger: logger}
}

// Record appends one entry for a user action. Client IP, device and request
// ID are picked up from the request context when present.
func (r *Recorder) Record(ctx context.Context, userID uuid.UUID, action, details string, metadata map[string]any) {
	entry := Entry{
		ID:        uuid.New(),
		UserID:    userID,
		Action:    action,
		Details:   details,
		Metadata:  enrich(ctx, metadata),
		CreatedAt: requestcontext.Now(ctx),
	}

	if p, err := r.profiles.FindByID(ctx, userID); err == nil {
		entry.UserEmail = p.Email
		entry.UserFullName = p.FullName()
		entry.UserAvatarURL = p.AvatarURL
	}

	if err := r.store.Append(ctx, entry); err != nil {
		r.logger.WarnContext(ctx, "activity append failed",
			"user_id", userID.String(),
			"action", action,
			"error", err.Error(),
		)
		return
	}

	for _, sink := range r.sinks {
		sink.Publish(ctx, entry)
	}
}

// List reads back the trail for the admin activity screen.
func (r *Recorder) List(ctx context.Context, filter Filter) ([]Entry, error) {
	return r.store.List(ctx, filter)
}

func enrich(ctx context.Context, metadata map[string]any) map[string]any {
	ip := requestcontext.ClientIP(ctx)
	ua := requestcontext.UserAgent(ctx)
	reqID := requestcontext.RequestID(ctx)
	if ip == "" && ua == "" && reqID == "" {
		return metadata
	}

	out := make(map[string]any, len(metadata)+3)
	for k, v := range metadata {
		out[k] = v
	}
	if ip != "" {
		out["client_ip"] = ip
	}
	if ua != "" {
		out["device"] = DescribeDevice(ua)
	}
	if reqID != "" {
		out["request_id"] = reqID
	}
	return out
}
