package printer

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
	"github.com/inkwell/inkwell-backend/internal/platform/httpx"
)

// Handler exposes printer HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/printers", func(r chi.Router) {
		r.Post("/", h.registerPrinter)                    // POST  /api/v1/printers
		r.Get("/{id}", h.getPrinter)                      // GET   /api/v1/printers/{id}
		r.Patch("/{id}/manual-status", h.setManualStatus) // PATCH /api/v1/printers/{id}/manual-status
		r.Patch("/{id}/capabilities", h.ingestAgentState) // PATCH /api/v1/printers/{id}/capabilities
	})
	r.Get("/api/v1/shops/{shop_id}/printers", h.listShopPrinters)
}

func (h *Handler) registerPrinter(w http.ResponseWriter, r *http.Request) {
	var req RegisterPrinterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, apperr.Validation("invalid body: %v", err))
		return
	}
	p, err := h.service.RegisterPrinter(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, p)
}

func (h *Handler) getPrinter(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetPrinter(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) listShopPrinters(w http.ResponseWriter, r *http.Request) {
	printers, err := h.service.ListShopPrinters(r.Context(), chi.URLParam(r, "shop_id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusOK, printers)
}

func (h *Handler) setManualStatus(w http.ResponseWriter, r *http.Request) {
	var req SetManualStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, apperr.Validation("invalid body: %v", err))
		return
	}
	p, err := h.service.SetManualStatus(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) ingestAgentState(w http.ResponseWriter, r *http.Request) {
	var req UpdateCapabilitiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, apperr.Validation("invalid body: %v", err))
		return
	}
	p, err := h.service.IngestAgentState(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}
