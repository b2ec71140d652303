package stats

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell/inkwell-backend/internal/platform/httpx"
)

// Handler exposes the shop counters endpoint.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Get("/api/v1/shops/{shop_id}/stats", h.getShopStats)
}

func (h *Handler) getShopStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetShopStats(r.Context(), chi.URLParam(r, "shop_id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusOK, stats)
}
