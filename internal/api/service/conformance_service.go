// Package service provides business logic for the REST API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/remiblancher/provider-conformance/internal/api/dto"
	"github.com/remiblancher/provider-conformance/internal/audit"
	"github.com/remiblancher/provider-conformance/internal/crypto"
	"github.com/remiblancher/provider-conformance/internal/provider"
	"github.com/remiblancher/provider-conformance/internal/providers"
	"github.com/remiblancher/provider-conformance/internal/suite"
)

// ErrInvalidRequest marks requests rejected before any work is done.
var ErrInvalidRequest = errors.New("invalid request")

// ConformanceService builds registries and runs cases for the REST API.
// Every request gets its own registry, so concurrent requests never see
// each other's provider order.
type ConformanceService struct {
	version string
	logger  *slog.Logger
	hsm     *crypto.HSMConfig
}

// Option configures a ConformanceService.
type Option func(s *ConformanceService)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *ConformanceService) {
		s.logger = logger
	}
}

// WithHSM makes the PKCS11 provider available to requests.
func WithHSM(cfg *crypto.HSMConfig) Option {
	return func(s *ConformanceService) {
		s.hsm = cfg
	}
}

// NewConformanceService creates a new ConformanceService.
func NewConformanceService(version string, opts ...Option) *ConformanceService {
	s := &ConformanceService{version: version}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// registry installs order into a new registry. The caller must call the
// returned close function.
func (s *ConformanceService) registry(order []string, w audit.Writer) (*provider.Registry, func() error, error) {
	if w == nil {
		w = audit.NopWriter{}
	}
	reg := provider.NewRegistry(provider.WithLogger(s.logger), provider.WithAudit(w))
	closeFn, err := providers.Install(reg, order, s.hsm)
	if err != nil {
		return nil, nil, err
	}
	return reg, closeFn, nil
}

func (s *ConformanceService) release(closeFn func() error) {
	if err := closeFn(); err != nil {
		s.logger.Warn("failed to close provider tokens", "error", err)
	}
}

// Providers describes the providers of a registry built in order.
func (s *ConformanceService) Providers(ctx context.Context, order []string) (*dto.ProviderListResponse, error) {
	reg, closeFn, err := s.registry(order, nil)
	if err != nil {
		return nil, err
	}
	defer s.release(closeFn)

	resp := &dto.ProviderListResponse{Providers: []dto.ProviderInfo{}}
	for i, p := range reg.Providers() {
		info := dto.ProviderInfo{
			Name:     p.Name(),
			Version:  p.Version(),
			Info:     p.Info(),
			Position: i,
		}
		for _, svc := range p.Services() {
			si := dto.ServiceInfo{
				Type:      string(svc.Type),
				Algorithm: string(svc.Algorithm),
				Aliases:   svc.Aliases,
			}
			for _, c := range svc.Combos {
				si.Combos = append(si.Combos, c.String())
			}
			info.Services = append(info.Services, si)
		}
		resp.Providers = append(resp.Providers, info)
	}
	return resp, nil
}

// Resolve reports which provider serves a transformation.
func (s *ConformanceService) Resolve(ctx context.Context, req *dto.ResolveRequest) (*dto.ResolveResponse, error) {
	if strings.TrimSpace(req.Transformation) == "" {
		return nil, fmt.Errorf("%w: transformation is required", ErrInvalidRequest)
	}
	parsed, err := provider.ParseTransformation(req.Transformation)
	if err != nil {
		return nil, err
	}

	reg, closeFn, err := s.registry(req.Order, nil)
	if err != nil {
		return nil, err
	}
	defer s.release(closeFn)

	res, err := reg.Resolve(parsed.WithProvider(req.Provider))
	if err != nil {
		return nil, err
	}
	return &dto.ResolveResponse{
		Provider:       res.Provider.Name(),
		Position:       reg.Position(res.Provider.Name()),
		Algorithm:      string(res.Service.Algorithm),
		Mode:           string(res.Mode),
		Padding:        string(res.Padding),
		Transformation: res.Transformation(),
	}, nil
}

// Run executes the requested cases against a fresh registry and returns
// the report with the size and head of its audit chain.
func (s *ConformanceService) Run(ctx context.Context, req *dto.RunRequest) (*dto.RunResponse, error) {
	cases, err := suite.Select(req.Cases)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	trail := audit.NewMemoryWriter()
	reg, closeFn, err := s.registry(req.Providers, trail)
	if err != nil {
		return nil, err
	}
	defer s.release(closeFn)

	runner := suite.NewRunner(
		suite.WithLogger(s.logger),
		suite.WithAudit(trail),
		suite.WithVersion(s.version))
	rep, err := runner.Run(ctx, &suite.Env{Registry: reg}, cases)
	if err != nil {
		return nil, err
	}

	return &dto.RunResponse{
		Report:      rep,
		AuditEvents: len(trail.Events()),
		AuditHead:   trail.LastHash(),
	}, nil
}

// Cases returns the case catalog.
func (s *ConformanceService) Cases(ctx context.Context) *dto.CaseListResponse {
	resp := &dto.CaseListResponse{}
	for _, c := range suite.Catalog() {
		resp.Cases = append(resp.Cases, dto.CaseInfo{Name: c.Name, Description: c.Description})
	}
	return resp
}
