package job

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
	"github.com/inkwell/inkwell-backend/internal/platform/httpx"
)

// Handler exposes job intake HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Post("/api/v1/jobs", h.submitJob)                   // POST /api/v1/jobs
	r.Get("/api/v1/jobs/{job_number}", h.getJob)          // GET  /api/v1/jobs/{job_number}
	r.Get("/api/v1/shops/{shop_id}/jobs", h.listShopJobs) // GET  /api/v1/shops/{id}/jobs?state=
}

func (h *Handler) submitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, apperr.Validation("invalid body: %v", err))
		return
	}
	j, err := h.service.SubmitJob(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, j)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.service.GetJob(r.Context(), chi.URLParam(r, "job_number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusOK, j)
}

func (h *Handler) listShopJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListShopJobs(r.Context(),
		chi.URLParam(r, "shop_id"), r.URL.Query().Get("state"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Respond(w, http.StatusOK, jobs)
}
