package provider

import (
	"log/slog"
	"sync"

	"github.com/remiblancher/provider-conformance/internal/audit"
)

// Registry is an ordered list of providers with unique names. Earlier
// positions take precedence during resolution.
type Registry struct {
	mu        sync.RWMutex
	providers []*Provider
	logger    *slog.Logger
	audit     audit.Writer
}

// RegistryOption configures a Registry.
type RegistryOption func(r *Registry)

// WithLogger sets the logger used for mutation and resolution traces.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithAudit sets the audit writer for registry mutations. Without it the
// process-wide audit writer is used.
func WithAudit(w audit.Writer) RegistryOption {
	return func(r *Registry) {
		r.audit = w
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Add appends p and returns its position. A provider with the same name is
// replaced.
func (r *Registry) Add(p *Provider) int {
	return r.Insert(p, -1)
}

// Insert places p at the 0-based index, shifting later providers down, and
// returns the position it landed at. An index below 0 or past the end
// appends. A provider with the same name is removed first.
func (r *Registry) Insert(p *Provider, index int) int {
	if p == nil {
		return -1
	}

	r.mu.Lock()
	replaced := r.removeLocked(p.name)
	if index < 0 || index > len(r.providers) {
		index = len(r.providers)
	}
	r.providers = append(r.providers, nil)
	copy(r.providers[index+1:], r.providers[index:])
	r.providers[index] = p
	r.mu.Unlock()

	if replaced {
		r.logger.Debug("provider replaced", "provider", p.name)
		r.record(audit.LogProviderRemoved(r.audit, p.name))
	}
	r.logger.Debug("provider added", "provider", p.name, "version", p.version, "position", index)
	r.record(audit.LogProviderAdded(r.audit, p.name, p.version, index))
	return index
}

// Remove deletes the named provider. Removing an absent name is a no-op.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	removed := r.removeLocked(name)
	r.mu.Unlock()

	if !removed {
		r.logger.Debug("provider not registered, nothing removed", "provider", name)
		return
	}
	r.logger.Debug("provider removed", "provider", name)
	r.record(audit.LogProviderRemoved(r.audit, name))
}

func (r *Registry) removeLocked(name string) bool {
	for i, p := range r.providers {
		if p.name == name {
			r.providers = append(r.providers[:i], r.providers[i+1:]...)
			return true
		}
	}
	return false
}

// record logs audit failures. Registry mutations cannot be rolled back, so
// a failed audit write is reported rather than returned.
func (r *Registry) record(err error) {
	if err != nil {
		r.logger.Error("audit write failed", "error", err)
	}
}

// Get returns the named provider or ErrNoSuchProvider.
func (r *Registry) Get(name string) (*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.providers {
		if p.name == name {
			return p, nil
		}
	}
	return nil, &Error{Op: "get", Provider: name, Err: ErrNoSuchProvider}
}

// Position returns the index of the named provider, or -1.
func (r *Registry) Position(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i, p := range r.providers {
		if p.name == name {
			return i
		}
	}
	return -1
}

// Providers returns the providers in precedence order.
func (r *Registry) Providers() []*Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Provider(nil), r.providers...)
}

// Names returns the provider names in precedence order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.name
	}
	return names
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// Snapshot is a saved provider order.
type Snapshot []*Provider

// Snapshot captures the current provider order.
func (r *Registry) Snapshot() Snapshot {
	return Snapshot(r.Providers())
}

// Restore reinstates a saved provider order. Providers dropped or moved by
// the restore are audited like individual mutations.
func (r *Registry) Restore(s Snapshot) {
	r.mu.Lock()
	before := r.providers
	r.providers = append([]*Provider(nil), s...)
	r.mu.Unlock()

	wasAt := make(map[string]int, len(before))
	for i, p := range before {
		wasAt[p.name] = i
	}
	keep := make(map[string]bool, len(s))
	for i, p := range s {
		keep[p.name] = true
		if pos, ok := wasAt[p.name]; ok && pos == i && before[pos] == p {
			continue
		}
		r.record(audit.LogProviderAdded(r.audit, p.name, p.version, i))
	}
	for _, p := range before {
		if !keep[p.name] {
			r.record(audit.LogProviderRemoved(r.audit, p.name))
		}
	}
	r.logger.Debug("registry restored", "providers", len(s))
}
