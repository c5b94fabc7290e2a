// Package provider models pluggable cryptographic service providers, the
// ordered registry they are installed into and the resolver that picks an
// implementation for a transformation request.
package provider

import (
	"fmt"
	"io"
	"strings"

	"github.com/remiblancher/provider-conformance/internal/crypto"
)

// ServiceType is the kind of engine a service produces.
type ServiceType string

const (
	Cipher           ServiceType = "Cipher"
	KeyGenerator     ServiceType = "KeyGenerator"
	KeyPairGenerator ServiceType = "KeyPairGenerator"
	SecureRandom     ServiceType = "SecureRandom"
)

// Valid reports whether t is a known service type.
func (t ServiceType) Valid() bool {
	switch t {
	case Cipher, KeyGenerator, KeyPairGenerator, SecureRandom:
		return true
	}
	return false
}

// Combo is a (mode, padding) pair a cipher service supports.
type Combo struct {
	Mode    crypto.Mode
	Padding crypto.Padding
}

// String returns "MODE/PADDING".
func (c Combo) String() string {
	return string(c.Mode) + "/" + string(c.Padding)
}

// Combos returns the cross product of modes and paddings, modes outermost.
func Combos(modes []crypto.Mode, paddings ...crypto.Padding) []Combo {
	out := make([]Combo, 0, len(modes)*len(paddings))
	for _, m := range modes {
		for _, p := range paddings {
			out = append(out, Combo{Mode: m, Padding: p})
		}
	}
	return out
}

// Service is one binding of a provider: a service type and algorithm name,
// its aliases and, for ciphers, the supported combos. The first combo is
// the default used by unqualified requests.
type Service struct {
	Type      ServiceType
	Algorithm crypto.AlgorithmID
	Aliases   []string
	Combos    []Combo

	NewCipher       func(mode crypto.Mode, padding crypto.Padding) (crypto.CipherEngine, error)
	GenerateKey     func(random io.Reader, bits int) (*crypto.SecretKey, error)
	GenerateKeyPair func(random io.Reader, bits int) (*crypto.KeyPair, error)
	NewRandom       func(seed []byte) (io.Reader, error)
}

// CipherService declares a cipher binding.
func CipherService(alg crypto.AlgorithmID, combos []Combo,
	factory func(mode crypto.Mode, padding crypto.Padding) (crypto.CipherEngine, error)) *Service {
	return &Service{Type: Cipher, Algorithm: alg, Combos: combos, NewCipher: factory}
}

// KeyGeneratorService declares a secret key generator binding.
func KeyGeneratorService(alg crypto.AlgorithmID, fn func(random io.Reader, bits int) (*crypto.SecretKey, error)) *Service {
	return &Service{Type: KeyGenerator, Algorithm: alg, GenerateKey: fn}
}

// KeyPairGeneratorService declares a key pair generator binding.
func KeyPairGeneratorService(alg crypto.AlgorithmID, fn func(random io.Reader, bits int) (*crypto.KeyPair, error)) *Service {
	return &Service{Type: KeyPairGenerator, Algorithm: alg, GenerateKeyPair: fn}
}

// SecureRandomService declares a random source binding.
func SecureRandomService(alg crypto.AlgorithmID, fn func(seed []byte) (io.Reader, error)) *Service {
	return &Service{Type: SecureRandom, Algorithm: alg, NewRandom: fn}
}

// Alias adds alternative names the service answers to.
func (s *Service) Alias(names ...string) *Service {
	s.Aliases = append(s.Aliases, names...)
	return s
}

// Names returns the algorithm name followed by its aliases.
func (s *Service) Names() []string {
	return append([]string{string(s.Algorithm)}, s.Aliases...)
}

// Answers reports whether name is the service's algorithm or an alias,
// ignoring case.
func (s *Service) Answers(name string) bool {
	for _, n := range s.Names() {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// Match returns the canonical combo for mode and padding. An empty mode or
// padding matches any value; both empty selects the default combo.
func (s *Service) Match(mode crypto.Mode, padding crypto.Padding) (Combo, bool) {
	if s.Type != Cipher {
		return Combo{}, mode == "" && padding == ""
	}
	for _, c := range s.Combos {
		if mode != "" && !strings.EqualFold(string(c.Mode), string(mode)) {
			continue
		}
		if padding != "" && !strings.EqualFold(string(c.Padding), string(padding)) {
			continue
		}
		return c, true
	}
	return Combo{}, false
}

func (s *Service) validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("unknown service type %q", s.Type)
	}
	if s.Algorithm == "" {
		return fmt.Errorf("%s service has no algorithm name", s.Type)
	}
	for _, a := range s.Aliases {
		if strings.TrimSpace(a) == "" || strings.Contains(a, "/") {
			return fmt.Errorf("%s %s: invalid alias %q", s.Type, s.Algorithm, a)
		}
	}

	var missing bool
	switch s.Type {
	case Cipher:
		missing = s.NewCipher == nil
		if len(s.Combos) == 0 {
			return fmt.Errorf("%s %s declares no mode/padding combos", s.Type, s.Algorithm)
		}
		for _, c := range s.Combos {
			if c.Mode == "" || c.Padding == "" {
				return fmt.Errorf("%s %s: incomplete combo %q", s.Type, s.Algorithm, c)
			}
		}
	case KeyGenerator:
		missing = s.GenerateKey == nil
	case KeyPairGenerator:
		missing = s.GenerateKeyPair == nil
	case SecureRandom:
		missing = s.NewRandom == nil
	}
	if missing {
		return fmt.Errorf("%s %s has no factory", s.Type, s.Algorithm)
	}
	return nil
}

// bindingKeys returns the lookup keys the service occupies.
func (s *Service) bindingKeys() []string {
	var keys []string
	for _, n := range s.Names() {
		base := string(s.Type) + ":" + strings.ToUpper(n)
		if s.Type != Cipher {
			keys = append(keys, base)
			continue
		}
		for _, c := range s.Combos {
			keys = append(keys, base+"/"+strings.ToUpper(c.String()))
		}
	}
	return keys
}

// Provider is a named, versioned set of service bindings. Providers are
// immutable once built.
type Provider struct {
	name     string
	version  string
	info     string
	services []*Service
}

// Option configures a Provider.
type Option func(*Provider)

// WithVersion sets the provider version string.
func WithVersion(v string) Option {
	return func(p *Provider) { p.version = v }
}

// WithInfo sets the provider description.
func WithInfo(info string) Option {
	return func(p *Provider) { p.info = info }
}

// New builds a provider and validates its bindings: every service needs a
// factory for its type, and no two bindings (including aliases) may share a
// (type, algorithm, mode, padding) key.
func New(name string, services []*Service, opts ...Option) (*Provider, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &Error{Op: "new", Err: fmt.Errorf("%w: empty name", ErrInvalidProvider)}
	}

	p := &Provider{name: name, version: "1.0"}
	for _, opt := range opts {
		opt(p)
	}

	seen := make(map[string]crypto.AlgorithmID)
	for i, s := range services {
		if s == nil {
			return nil, &Error{Op: "new", Provider: name, Err: fmt.Errorf("%w: service %d is nil", ErrInvalidProvider, i)}
		}
		if err := s.validate(); err != nil {
			return nil, &Error{Op: "new", Provider: name, Err: fmt.Errorf("%w: %v", ErrInvalidProvider, err)}
		}
		for _, k := range s.bindingKeys() {
			if owner, dup := seen[k]; dup {
				return nil, &Error{Op: "new", Provider: name, Algorithm: string(s.Algorithm),
					Err: fmt.Errorf("%w: binding %s already declared by %s", ErrInvalidProvider, k, owner)}
			}
			seen[k] = s.Algorithm
		}
		p.services = append(p.services, s)
	}

	return p, nil
}

// Name returns the provider's unique name.
func (p *Provider) Name() string { return p.name }

// Version returns the provider version.
func (p *Provider) Version() string { return p.version }

// Info returns the provider description.
func (p *Provider) Info() string { return p.info }

// Services returns the bindings in declaration order.
func (p *Provider) Services() []*Service {
	return append([]*Service(nil), p.services...)
}

// Lookup finds the first service of typ answering to algorithm whose
// combos match mode and padding, returning it with the canonical combo.
func (p *Provider) Lookup(typ ServiceType, algorithm string, mode crypto.Mode, padding crypto.Padding) (*Service, Combo, bool) {
	for _, s := range p.services {
		if s.Type != typ || !s.Answers(algorithm) {
			continue
		}
		if c, ok := s.Match(mode, padding); ok {
			return s, c, true
		}
	}
	return nil, Combo{}, false
}

func (p *Provider) String() string {
	return p.name + " " + p.version
}
