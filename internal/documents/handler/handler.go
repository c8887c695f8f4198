package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"opsdesk/internal/documents"
	"opsdesk/pkg/platform/httputil"
)

// Handler wires the document collections to the HTTP surface.
type Handler struct {
	service *documents.Service
	logger  *slog.Logger
}

func New(service *documents.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the document endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.HandleListProjects)
		r.Post("/", h.HandleCreateProject)
		r.Get("/{refNo}", h.HandleGetProject)
		r.Put("/{refNo}", h.HandleUpdateProject)
		r.Delete("/{refNo}", h.HandleDeleteProject)
		r.Get("/{refNo}/linked", h.HandleLinkedData)
	})
	r.Route("/quotations", func(r chi.Router) {
		r.Get("/", h.HandleListQuotations)
		r.Post("/", h.HandleCreateQuotation)
		r.Get("/{refNo}", h.HandleGetQuotation)
		r.Delete("/{refNo}", h.HandleDeleteQuotation)
	})
	r.Route("/purchase-orders", func(r chi.Router) {
		r.Get("/", h.HandleListPurchaseOrders)
		r.Post("/", h.HandleCreatePurchaseOrder)
		r.Get("/{refNo}", h.HandleGetPurchaseOrder)
		r.Delete("/{refNo}", h.HandleDeletePurchaseOrder)
	})
	r.Route("/parties", func(r chi.Router) {
		r.Get("/", h.HandleListParties)
		r.Post("/", h.HandleCreateParty)
	})
}

func (h *Handler) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListProjects(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"projects": out})
}

func (h *Handler) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[documents.Project](w, r)
	if !ok {
		return
	}
	created, err := h.service.CreateProject(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	got, err := h.service.GetProject(r.Context(), chi.URLParam(r, "refNo"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, got)
}

func (h *Handler) HandleUpdateProject(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[documents.Project](w, r)
	if !ok {
		return
	}
	req.RefNo = chi.URLParam(r, "refNo")
	updated, err := h.service.UpdateProject(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProject(r.Context(), chi.URLParam(r, "refNo")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleLinkedData(w http.ResponseWriter, r *http.Request) {
	linked, err := h.service.LinkedData(r.Context(), chi.URLParam(r, "refNo"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, linked)
}

func (h *Handler) HandleListQuotations(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListQuotations(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"quotations": out})
}

func (h *Handler) HandleCreateQuotation(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[documents.Quotation](w, r)
	if !ok {
		return
	}
	created, err := h.service.CreateQuotation(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) HandleGetQuotation(w http.ResponseWriter, r *http.Request) {
	got, err := h.service.GetQuotation(r.Context(), chi.URLParam(r, "refNo"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, got)
}

func (h *Handler) HandleDeleteQuotation(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuotation(r.Context(), chi.URLParam(r, "refNo")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListPurchaseOrders(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"purchase_orders": out})
}

func (h *Handler) HandleCreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[documents.PurchaseOrder](w, r)
	if !ok {
		return
	}
	created, err := h.service.CreatePurchaseOrder(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) HandleGetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	got, err := h.service.GetPurchaseOrder(r.Context(), chi.URLParam(r, "refNo"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, got)
}

func (h *Handler) HandleDeletePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePurchaseOrder(r.Context(), chi.URLParam(r, "refNo")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListParties(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListParties(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"parties": out})
}

func (h *Handler) HandleCreateParty(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[documents.Party](w, r)
	if !ok {
		return
	}
	created, err := h.service.CreateParty(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}
