package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/remiblancher/provider-conformance/internal/api/dto"
	apierrors "github.com/remiblancher/provider-conformance/internal/api/errors"
	"github.com/remiblancher/provider-conformance/internal/api/service"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// ConformanceHandler handles provider, resolution and run requests.
type ConformanceHandler struct {
	service *service.ConformanceService
}

// NewConformanceHandler creates a new ConformanceHandler.
func NewConformanceHandler(svc *service.ConformanceService) *ConformanceHandler {
	return &ConformanceHandler{service: svc}
}

// Providers handles GET /api/v1/providers[?order=Lite,Std]
func (h *ConformanceHandler) Providers(w http.ResponseWriter, r *http.Request) {
	var order []string
	if v := r.URL.Query().Get("order"); v != "" {
		order = strings.Split(v, ",")
	}

	resp, err := h.service.Providers(r.Context(), order)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Resolve handles POST /api/v1/resolve
func (h *ConformanceHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req dto.ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Resolve(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Run handles POST /api/v1/runs
func (h *ConformanceHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req dto.RunRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Run(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Cases handles GET /api/v1/cases
func (h *ConformanceHandler) Cases(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.Cases(r.Context()))
}

// decodeJSON reads a JSON body into v. An empty body leaves v zero.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body"))
		return false
	}
	return true
}
