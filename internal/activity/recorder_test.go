package activity_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"opsdesk/internal/activity"
	"opsdesk/internal/activity/store"
	"opsdesk/internal/profile"
	profilestore "opsdesk/internal/profile/store"
	"opsdesk/pkg/requestcontext"
)

const chromeUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func seedProfile(t *testing.T, profiles *profilestore.Memory) *profile.Profile {
	t.Helper()
	now := time.Now()
	p := &profile.Profile{
		ID:        uuid.New(),
		Email:     "jane.doe@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		AvatarURL: "https://cdn.example.com/a.png",
		Role:      profile.RoleStaff,
		Status:    profile.StatusApproved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, profiles.Create(context.Background(), p))
	return p
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	t.Run("denormalizes user display fields", func(t *testing.T) {
		entries := store.NewMemory()
		profiles := profilestore.NewMemory()
		p := seedProfile(t, profiles)
		rec := activity.NewRecorder(entries, profiles, logger)

		rec.Record(ctx, p.ID, activity.ActionLogin, "signed in", nil)

		got, err := rec.List(ctx, activity.Filter{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "jane.doe@example.com", got[0].UserEmail)
		require.Equal(t, "Jane Doe", got[0].UserFullName)
		require.Equal(t, "https://cdn.example.com/a.png", got[0].UserAvatarURL)
	})

	t.Run("records even when the profile is missing", func(t *testing.T) {
		entries := store.NewMemory()
		rec := activity.NewRecorder(entries, profilestore.NewMemory(), logger)

		rec.Record(ctx, uuid.New(), activity.ActionLogout, "signed out", nil)

		got, err := rec.List(ctx, activity.Filter{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Empty(t, got[0].UserEmail)
	})

	t.Run("enriches metadata with client context", func(t *testing.T) {
		entries := store.NewMemory()
		profiles := profilestore.NewMemory()
		p := seedProfile(t, profiles)
		rec := activity.NewRecorder(entries, profiles, logger)

		rctx := requestcontext.WithClientMetadata(ctx, "203.0.113.9", chromeUA)
		rctx = requestcontext.WithRequestID(rctx, "req-1")
		rec.Record(rctx, p.ID, activity.ActionDocumentCreated, "created PRJ-001", map[string]any{"ref_no": "PRJ-001"})

		got, err := rec.List(ctx, activity.Filter{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "PRJ-001", got[0].Metadata["ref_no"])
		require.Equal(t, "203.0.113.9", got[0].Metadata["client_ip"])
		require.Equal(t, "req-1", got[0].Metadata["request_id"])
		require.Contains(t, got[0].Metadata["device"], "Chrome")
	})

	t.Run("fans entries out to sinks after persisting", func(t *testing.T) {
		entries := store.NewMemory()
		profiles := profilestore.NewMemory()
		p := seedProfile(t, profiles)
		sink := &captureSink{}
		rec := activity.NewRecorder(entries, profiles, logger, sink)

		rec.Record(ctx, p.ID, activity.ActionLogin, "signed in", nil)
		require.Len(t, sink.entries(), 1)
	})

	t.Run("append failure is swallowed and skips sinks", func(t *testing.T) {
		sink := &captureSink{}
		rec := activity.NewRecorder(faultStore{}, profilestore.NewMemory(), logger, sink)

		rec.Record(ctx, uuid.New(), activity.ActionLogin, "signed in", nil)
		require.Empty(t, sink.entries())
	})
}

type captureSink struct {
	mu   sync.Mutex
	seen []activity.Entry
}

func (s *captureSink) Publish(_ context.Context, e activity.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, e)
}

func (s *captureSink) entries() []activity.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]activity.Entry{}, s.seen...)
}

type faultStore struct{}

func (faultStore) Append(context.Context, activity.Entry) error {
	return context.DeadlineExceeded
}
func (faultStore) List(context.Context, activity.Filter) ([]activity.Entry, error) {
	return nil, context.DeadlineExceeded
}
