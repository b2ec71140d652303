package shop

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
	"github.com/inkwell/inkwell-backend/internal/platform/httpx"
)

// Handler exposes shop HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/shops", func(r chi.Router) {
		r.Post("/", h.createShop) // POST /api/v1/shops
		r.Get("/{id}", h.getShop) // GET  /api/v1/shops/{id}
	})
}

func (h *Handler) createShop(w http.ResponseWriter, r *http.Request) {
	var req CreateShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, apperr.Validation("invalid body: %v", err))
		return
	}
	shop, err := h.service.CreateShop(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, shop)
}

func (h *Handler) getShop(w http.ResponseWriter, r *http.Request) {
	shop, err := h.service.GetShop(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusOK, shop)
}
