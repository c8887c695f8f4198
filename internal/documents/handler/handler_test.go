package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"opsdesk/internal/documents"
	"opsdesk/internal/documents/store"
	"opsdesk/pkg/testutil"
)

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, uuid.UUID, string, string, map[string]any) {}

func newRouter(t *testing.T) chi.Router {
	t.Helper()
	svc := documents.NewService(
		store.NewMemoryCollection[documents.Project](),
		store.NewMemoryCollection[documents.Quotation](),
		store.NewMemoryCollection[documents.PurchaseOrder](),
		store.NewMemoryCollection[documents.Party](),
		noopRecorder{},
		slog.New(slog.DiscardHandler),
	)
	h := New(svc, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func do(t *testing.T, r chi.Router, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProjectRoutes(t *testing.T) {
	r := newRouter(t)

	t.Run("create", func(t *testing.T) {
		w := do(t, r, testutil.NewJSONRequest(t, http.MethodPost, "/projects/",
			documents.Project{RefNo: "PRJ-001", Name: "Warehouse fit-out"}))
		require.Equal(t, http.StatusCreated, w.Code)

		got := testutil.UnmarshalResponse[documents.Project](t, w)
		require.Equal(t, documents.StatusDraft, got.Status)
	})

	t.Run("duplicate conflicts", func(t *testing.T) {
		w := do(t, r, testutil.NewJSONRequest(t, http.MethodPost, "/projects/",
			documents.Project{RefNo: "PRJ-001"}))
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		w := do(t, r, testutil.NewRequest(t, http.MethodGet, "/projects/PRJ-001"))
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("update", func(t *testing.T) {
		w := do(t, r, testutil.NewJSONRequest(t, http.MethodPut, "/projects/PRJ-001",
			documents.Project{Name: "Renamed", Status: documents.StatusActive}))
		require.Equal(t, http.StatusOK, w.Code)

		got := testutil.UnmarshalResponse[documents.Project](t, w)
		require.Equal(t, "PRJ-001", got.RefNo)
		require.Equal(t, "Renamed", got.Name)
	})

	t.Run("linked data", func(t *testing.T) {
		w := do(t, r, testutil.NewJSONRequest(t, http.MethodPost, "/quotations/",
			documents.Quotation{RefNo: "QT-001", ProjectRefNo: "PRJ-001", Amount: 500}))
		require.Equal(t, http.StatusCreated, w.Code)

		w = do(t, r, testutil.NewRequest(t, http.MethodGet, "/projects/PRJ-001/linked"))
		require.Equal(t, http.StatusOK, w.Code)

		got := testutil.UnmarshalResponse[documents.LinkedData](t, w)
		require.Len(t, got.Quotations, 1)
		require.Empty(t, got.PurchaseOrders)
	})

	t.Run("delete then 404", func(t *testing.T) {
		w := do(t, r, testutil.NewRequest(t, http.MethodDelete, "/projects/PRJ-001"))
		require.Equal(t, http.StatusNoContent, w.Code)

		w = do(t, r, testutil.NewRequest(t, http.MethodGet, "/projects/PRJ-001"))
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestQuotationValidation(t *testing.T) {
	r := newRouter(t)

	w := do(t, r, testutil.NewJSONRequest(t, http.MethodPost, "/quotations/",
		documents.Quotation{RefNo: "QT-001", ProjectRefNo: "PRJ-404"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPartyRoutes(t *testing.T) {
	r := newRouter(t)

	w := do(t, r, testutil.NewJSONRequest(t, http.MethodPost, "/parties/",
		documents.Party{Name: "Acme", Kind: documents.PartySupplier}))
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, testutil.NewRequest(t, http.MethodGet, "/parties/"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Acme")
}
