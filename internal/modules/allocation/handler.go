package allocation

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
	"github.com/inkwell/inkwell-backend/internal/platform/httpx"
)

// Handler exposes allocation HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/allocations", func(r chi.Router) {
		r.Get("/{job_number}", h.getAllocation)             // GET   /api/v1/allocations/{job_number}
		r.Patch("/{job_number}/status", h.updateStatus)     // PATCH /api/v1/allocations/{job_number}/status
		r.Patch("/{job_number}/collected", h.markCollected) // PATCH /api/v1/allocations/{job_number}/collected
	})
	r.Get("/api/v1/shops/{shop_id}/allocations", h.listShopAllocations)
}

func (h *Handler) getAllocation(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.GetAllocation(r.Context(), chi.URLParam(r, "job_number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusOK, a)
}

func (h *Handler) listShopAllocations(w http.ResponseWriter, r *http.Request) {
	allocations, err := h.service.ListShopAllocations(r.Context(),
		chi.URLParam(r, "shop_id"), r.URL.Query().Get("status"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusOK, allocations)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, apperr.Validation("invalid body: %v", err))
		return
	}
	a, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "job_number"), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusOK, a)
}

func (h *Handler) markCollected(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.MarkCollected(r.Context(), chi.URLParam(r, "job_number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusOK, a)
}
