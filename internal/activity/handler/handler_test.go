package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"opsdesk/internal/activity"
	"opsdesk/internal/activity/store"
	"opsdesk/pkg/testutil"
)

type listResponse struct {
	Entries []activity.Entry `json:"entries"`
}

func newRouter(t *testing.T) (chi.Router, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	h := New(mem, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	h.Register(r)
	return r, mem
}

func appendEntry(t *testing.T, mem *store.Memory, userID uuid.UUID, action string) {
	t.Helper()
	require.NoError(t, mem.Append(context.Background(), activity.Entry{
		ID:        uuid.New(),
		UserID:    userID,
		Action:    action,
		CreatedAt: time.Now(),
	}))
}

func TestHandleList(t *testing.T) {
	r, mem := newRouter(t)
	alice := uuid.New()
	appendEntry(t, mem, alice, activity.ActionLogin)
	appendEntry(t, mem, alice, activity.ActionDocumentCreated)
	appendEntry(t, mem, uuid.New(), activity.ActionLogin)

	t.Run("lists everything by default", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, testutil.NewRequest(t, http.MethodGet, "/activity"))

		require.Equal(t, http.StatusOK, w.Code)
		got := testutil.UnmarshalResponse[listResponse](t, w)
		require.Len(t, got.Entries, 3)
	})

	t.Run("filters by user and action", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, testutil.NewRequest(t, http.MethodGet,
			"/activity?user_id="+alice.String()+"&action="+activity.ActionLogin))

		require.Equal(t, http.StatusOK, w.Code)
		got := testutil.UnmarshalResponse[listResponse](t, w)
		require.Len(t, got.Entries, 1)
		require.Equal(t, alice, got.Entries[0].UserID)
	})

	t.Run("caps the limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, testutil.NewRequest(t, http.MethodGet, "/activity?limit=2"))

		require.Equal(t, http.StatusOK, w.Code)
		got := testutil.UnmarshalResponse[listResponse](t, w)
		require.Len(t, got.Entries, 2)
	})

	t.Run("rejects a malformed user_id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, testutil.NewRequest(t, http.MethodGet, "/activity?user_id=nope"))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
