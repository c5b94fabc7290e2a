// Package router provides HTTP routing configuration using Chi.
package router

import (
	_ "embed"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remiblancher/provider-conformance/internal/api/handler"
	"github.com/remiblancher/provider-conformance/internal/api/middleware"
	"github.com/remiblancher/provider-conformance/internal/api/service"
	"github.com/remiblancher/provider-conformance/internal/crypto"
	"github.com/remiblancher/provider-conformance/internal/providers"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Config holds router configuration.
type Config struct {
	Version string
	Logger  *slog.Logger

	// HSM enables the PKCS11 provider; nil leaves it unavailable.
	HSM *crypto.HSMConfig
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	available := []string{providers.StdName, providers.LiteName}
	if cfg.HSM != nil {
		available = append(available, providers.PKCS11Name)
	}
	healthHandler := handler.NewHealthHandler(cfg.Version, available, nil)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// OpenAPI spec
	r.Get("/api/openapi.yaml", serveOpenAPISpec)

	svc := service.NewConformanceService(cfg.Version,
		service.WithLogger(logger),
		service.WithHSM(cfg.HSM))
	h := handler.NewConformanceHandler(svc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/providers", h.Providers)
		r.Post("/resolve", h.Resolve)
		r.Post("/runs", h.Run)
		r.Get("/cases", h.Cases)
	})

	return r
}

// serveOpenAPISpec serves the OpenAPI specification file.
func serveOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapiSpec)
}
