// Package providers defines the built-in provider set: Std (standard
// library, x/crypto and circl), Lite (a narrower overlapping provider) and
// PKCS11 (token-backed, built from HSM configuration).
package providers

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/remiblancher/provider-conformance/internal/crypto"
	"github.com/remiblancher/provider-conformance/internal/provider"
)

// Provider names.
const (
	StdName    = "Std"
	LiteName   = "Lite"
	PKCS11Name = "PKCS11"
)

// Version is reported by every built-in provider.
const Version = "1.0"

var (
	blockModes  = []crypto.Mode{crypto.ModeECB, crypto.ModeCBC}
	streamModes = []crypto.Mode{crypto.ModeCTR, crypto.ModeOFB, crypto.ModeCFB}
)

// blockCipher declares alg with the given block-mode paddings plus the
// listed stream modes. The first combo, ECB with the first padding, is the
// default.
func blockCipher(alg crypto.AlgorithmID, paddings []crypto.Padding, stream []crypto.Mode) *provider.Service {
	combos := provider.Combos(blockModes, paddings...)
	combos = append(combos, provider.Combos(stream, crypto.NoPadding)...)
	return provider.CipherService(alg, combos, func(mode crypto.Mode, padding crypto.Padding) (crypto.CipherEngine, error) {
		return crypto.NewBlockCipherEngine(alg, mode, padding)
	})
}

// wrapCipher declares a wrap-only engine under ECB/NoPadding.
func wrapCipher(alg crypto.AlgorithmID, newEngine func() (crypto.CipherEngine, error)) *provider.Service {
	combos := []provider.Combo{{Mode: crypto.ModeECB, Padding: crypto.NoPadding}}
	return provider.CipherService(alg, combos, func(crypto.Mode, crypto.Padding) (crypto.CipherEngine, error) {
		return newEngine()
	})
}

func secretKeys(alg crypto.AlgorithmID) *provider.Service {
	return provider.KeyGeneratorService(alg, func(random io.Reader, bits int) (*crypto.SecretKey, error) {
		return crypto.GenerateSecretKeyWithRand(random, alg, bits)
	})
}

func keyPairs(alg crypto.AlgorithmID) *provider.Service {
	return provider.KeyPairGeneratorService(alg, func(random io.Reader, bits int) (*crypto.KeyPair, error) {
		return crypto.GenerateKeyPairWithRand(random, alg, bits)
	})
}

func randomSource(alg crypto.AlgorithmID, personalization string) *provider.Service {
	return provider.SecureRandomService(alg, func(seed []byte) (io.Reader, error) {
		return crypto.NewRandom(alg, append([]byte(personalization), seed...))
	})
}

// Std returns the default provider. It panics if the built-in bindings are
// invalid.
func Std() *provider.Provider {
	full := []crypto.Padding{crypto.PKCS5Padding, crypto.NoPadding, crypto.ISO10126Padding}

	services := []*provider.Service{
		blockCipher(crypto.AlgDES, full, streamModes),
		blockCipher(crypto.AlgDESede, full, streamModes).Alias("TripleDES"),
		blockCipher(crypto.AlgAES, full, streamModes),
		provider.CipherService(crypto.AlgRSA,
			provider.Combos([]crypto.Mode{crypto.ModeECB}, crypto.PKCS1Padding, crypto.OAEPPadding),
			func(mode crypto.Mode, padding crypto.Padding) (crypto.CipherEngine, error) {
				return crypto.NewRSACipherEngine(mode, padding)
			}),
		wrapCipher(crypto.AlgAESWrap, func() (crypto.CipherEngine, error) {
			return crypto.NewKeyWrapEngine(crypto.AlgAESWrap)
		}),
		wrapCipher(crypto.AlgAESWrapPad, func() (crypto.CipherEngine, error) {
			return crypto.NewKeyWrapEngine(crypto.AlgAESWrapPad)
		}),
		wrapCipher(crypto.AlgMLKEM768, func() (crypto.CipherEngine, error) {
			return crypto.NewKEMWrapEngine(), nil
		}),

		secretKeys(crypto.AlgDES),
		secretKeys(crypto.AlgDESede).Alias("TripleDES"),
		secretKeys(crypto.AlgAES),

		keyPairs(crypto.AlgRSA),
		keyPairs(crypto.AlgMLKEM768),

		randomSource(crypto.AlgDRBG, StdName),
		randomSource(crypto.AlgNativePRNG, ""),
	}

	return mustBuild(StdName, services, "Go standard library, x/crypto and circl")
}

// Lite returns a narrower provider that overlaps Std on DES, without the
// stream modes, and adds Blowfish.
func Lite() *provider.Provider {
	pkcs5 := []crypto.Padding{crypto.PKCS5Padding}

	services := []*provider.Service{
		blockCipher(crypto.AlgDES, pkcs5, nil),
		blockCipher(crypto.AlgBlowfish, pkcs5, []crypto.Mode{crypto.ModeCTR}),

		secretKeys(crypto.AlgDES),
		secretKeys(crypto.AlgBlowfish),

		randomSource(crypto.AlgDRBG, LiteName),
	}

	return mustBuild(LiteName, services, "DES and Blowfish, PKCS5Padding only")
}

func mustBuild(name string, services []*provider.Service, info string) *provider.Provider {
	p, err := provider.New(name, services, provider.WithVersion(Version), provider.WithInfo(info))
	if err != nil {
		panic(fmt.Sprintf("built-in provider %s: %v", name, err))
	}
	return p
}

// PKCS11 returns a provider whose DESede and AES ciphers run on token.
func PKCS11(token *crypto.PKCS11Token) (*provider.Provider, error) {
	if token == nil {
		return nil, fmt.Errorf("%w: nil PKCS#11 token", provider.ErrInvalidProvider)
	}
	paddings := []crypto.Padding{crypto.PKCS5Padding, crypto.NoPadding}

	var services []*provider.Service
	for _, alg := range []crypto.AlgorithmID{crypto.AlgDESede, crypto.AlgAES} {
		services = append(services, provider.CipherService(alg, provider.Combos(blockModes, paddings...),
			func(mode crypto.Mode, padding crypto.Padding) (crypto.CipherEngine, error) {
				return token.NewCipherEngine(alg, mode, padding)
			}))
	}

	return provider.New(PKCS11Name, services,
		provider.WithVersion(Version),
		provider.WithInfo(fmt.Sprintf("PKCS#11 token in slot %d", token.Slot())))
}

// OpenPKCS11 opens the token described by cfg and builds its provider.
// The caller closes the token when done.
func OpenPKCS11(cfg *crypto.HSMConfig) (*provider.Provider, *crypto.PKCS11Token, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid HSM config: %w", err)
	}
	pcfg, err := cfg.ToPKCS11Config()
	if err != nil {
		return nil, nil, err
	}
	token, err := crypto.OpenPKCS11Token(*pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open PKCS#11 token: %w", err)
	}
	p, err := PKCS11(token)
	if err != nil {
		_ = token.Close()
		return nil, nil, err
	}
	return p, token, nil
}

// Catalog returns the software providers in default precedence order.
func Catalog() []*provider.Provider {
	return []*provider.Provider{Std(), Lite()}
}

// Names returns the names of the built-in providers.
func Names() []string {
	return []string{StdName, LiteName, PKCS11Name}
}

// ByName returns a software provider by name, ignoring case.
func ByName(name string) (*provider.Provider, error) {
	for _, p := range Catalog() {
		if strings.EqualFold(p.Name(), name) {
			return p, nil
		}
	}
	if strings.EqualFold(name, PKCS11Name) {
		return nil, fmt.Errorf("%w: %s requires an HSM configuration", provider.ErrNoSuchProvider, PKCS11Name)
	}
	known := Names()
	sort.Strings(known)
	return nil, fmt.Errorf("%w: %q (known: %s)", provider.ErrNoSuchProvider, name, strings.Join(known, ", "))
}

// Canonical returns the built-in spelling of name, or "" when no built-in
// provider goes by it.
func Canonical(name string) string {
	for _, n := range Names() {
		if strings.EqualFold(n, name) {
			return n
		}
	}
	return ""
}
