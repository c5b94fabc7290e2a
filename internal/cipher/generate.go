package cipher

import (
	"fmt"
	"io"

	"github.com/remiblancher/provider-conformance/internal/crypto"
	"github.com/remiblancher/provider-conformance/internal/provider"
)

// GenerateKey generates a secret key with the first provider offering a
// KeyGenerator for alg. bits 0 selects the algorithm default.
func GenerateKey(reg *provider.Registry, alg string, bits int, random io.Reader) (*crypto.SecretKey, error) {
	return GenerateKeyFrom(reg, alg, "", bits, random)
}

// GenerateKeyFrom is GenerateKey pinned to a provider. An empty name
// searches the whole registry.
func GenerateKeyFrom(reg *provider.Registry, alg, providerName string, bits int, random io.Reader) (*crypto.SecretKey, error) {
	res, err := reg.Resolve(provider.Request{Type: provider.KeyGenerator, Algorithm: alg, Provider: providerName})
	if err != nil {
		return nil, err
	}
	key, err := res.Service.GenerateKey(random, bits)
	if err != nil {
		return nil, fmt.Errorf("%s key generation in %s failed: %w", alg, res.Provider.Name(), err)
	}
	return key, nil
}

// GenerateKeyPair generates a key pair with the first provider offering a
// KeyPairGenerator for alg.
func GenerateKeyPair(reg *provider.Registry, alg string, bits int, random io.Reader) (*crypto.KeyPair, error) {
	return GenerateKeyPairFrom(reg, alg, "", bits, random)
}

// GenerateKeyPairFrom is GenerateKeyPair pinned to a provider.
func GenerateKeyPairFrom(reg *provider.Registry, alg, providerName string, bits int, random io.Reader) (*crypto.KeyPair, error) {
	res, err := reg.Resolve(provider.Request{Type: provider.KeyPairGenerator, Algorithm: alg, Provider: providerName})
	if err != nil {
		return nil, err
	}
	kp, err := res.Service.GenerateKeyPair(random, bits)
	if err != nil {
		return nil, fmt.Errorf("%s key pair generation in %s failed: %w", alg, res.Provider.Name(), err)
	}
	return kp, nil
}

// NewRandom returns a random source from the first provider offering a
// SecureRandom for alg, such as "DRBG".
func NewRandom(reg *provider.Registry, alg string) (io.Reader, error) {
	return NewRandomFrom(reg, alg, "")
}

// NewRandomFrom is NewRandom pinned to a provider.
func NewRandomFrom(reg *provider.Registry, alg, providerName string) (io.Reader, error) {
	res, err := reg.Resolve(provider.Request{Type: provider.SecureRandom, Algorithm: alg, Provider: providerName})
	if err != nil {
		return nil, err
	}
	r, err := res.Service.NewRandom(nil)
	if err != nil {
		return nil, fmt.Errorf("%s in %s failed: %w", alg, res.Provider.Name(), err)
	}
	return r, nil
}
