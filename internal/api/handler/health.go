// Package handler provides HTTP handlers for the REST API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/remiblancher/provider-conformance/internal/api/dto"
	apierrors "github.com/remiblancher/provider-conformance/internal/api/errors"
)

// HealthHandler handles health and readiness endpoints.
type HealthHandler struct {
	version   string
	providers []string
	ready     func() bool
}

// NewHealthHandler creates a new HealthHandler. ready may be nil.
func NewHealthHandler(version string, providers []string, ready func() bool) *HealthHandler {
	return &HealthHandler{
		version:   version,
		providers: providers,
		ready:     ready,
	}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := dto.HealthResponse{
		Status:    "ok",
		Version:   h.version,
		Providers: h.providers,
	}

	respondJSON(w, http.StatusOK, resp)
}

// Ready handles GET /ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]bool{
		"server": true,
	}
	if h.ready != nil {
		checks["providers"] = h.ready()
	}

	allReady := true
	for _, ready := range checks {
		if !ready {
			allReady = false
			break
		}
	}

	resp := dto.ReadyResponse{
		Ready:  allReady,
		Checks: checks,
	}

	status := http.StatusOK
	if !allReady {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, resp)
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, apiErr *dto.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiErr)
}

// handleServiceError maps a service error onto the response.
func handleServiceError(w http.ResponseWriter, err error) {
	status, apiErr := apierrors.MapError(err)
	respondError(w, status, apiErr)
}
