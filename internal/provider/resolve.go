package provider

import (
	"fmt"

	"github.com/remiblancher/provider-conformance/internal/crypto"
)

// Resolution is the outcome of resolving a request: the chosen provider and
// service with the effective mode and padding.
type Resolution struct {
	Provider *Provider
	Service  *Service
	Mode     crypto.Mode
	Padding  crypto.Padding
}

// Transformation returns the canonical transformation string the
// resolution stands for.
func (res *Resolution) Transformation() string {
	if res.Service.Type != Cipher {
		return string(res.Service.Algorithm)
	}
	return string(res.Service.Algorithm) + "/" + string(res.Mode) + "/" + string(res.Padding)
}

// Resolve picks the implementation for req. A request naming a provider is
// served by that provider alone; otherwise the first provider in order whose
// bindings match wins. Providers that know the algorithm but not the
// requested mode or padding are skipped.
func (r *Registry) Resolve(req Request) (*Resolution, error) {
	if req.Type == "" {
		req.Type = Cipher
	}
	if req.Algorithm == "" {
		return nil, &Error{Op: "resolve", Provider: req.Provider,
			Err: fmt.Errorf("%w: empty algorithm", ErrNoSuchAlgorithm)}
	}

	var candidates []*Provider
	if req.Provider != "" {
		p, err := r.Get(req.Provider)
		if err != nil {
			return nil, &Error{Op: "resolve", Provider: req.Provider, Algorithm: req.String(), Err: ErrNoSuchProvider}
		}
		candidates = []*Provider{p}
	} else {
		candidates = r.Providers()
	}

	for _, p := range candidates {
		s, combo, ok := p.Lookup(req.Type, req.Algorithm, req.Mode, req.Padding)
		if !ok {
			continue
		}
		res := &Resolution{Provider: p, Service: s, Mode: combo.Mode, Padding: combo.Padding}
		r.logger.Debug("resolved",
			"type", req.Type,
			"request", req.String(),
			"provider", p.name,
			"transformation", res.Transformation())
		return res, nil
	}

	r.logger.Debug("no provider for request", "type", req.Type, "request", req.String(), "pinned", req.Provider)
	return nil, &Error{Op: "resolve", Provider: req.Provider, Algorithm: req.String(),
		Err: fmt.Errorf("%w: %s %s", ErrNoSuchAlgorithm, req.Type, req.String())}
}
