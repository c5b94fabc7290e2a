package provider

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/remiblancher/provider-conformance/internal/crypto"
)

func blockFactory(alg crypto.AlgorithmID) func(crypto.Mode, crypto.Padding) (crypto.CipherEngine, error) {
	return func(mode crypto.Mode, padding crypto.Padding) (crypto.CipherEngine, error) {
		return crypto.NewBlockCipherEngine(alg, mode, padding)
	}
}

func keyGen(alg crypto.AlgorithmID) func(io.Reader, int) (*crypto.SecretKey, error) {
	return func(random io.Reader, bits int) (*crypto.SecretKey, error) {
		return crypto.GenerateSecretKeyWithRand(random, alg, bits)
	}
}

var allModes = []crypto.Mode{crypto.ModeECB, crypto.ModeCBC}

// mustProvider builds a provider or fails the test.
func mustProvider(t *testing.T, name string, services ...*Service) *Provider {
	t.Helper()
	p, err := New(name, services, WithVersion("1.0"), WithInfo(name+" test provider"))
	if err != nil {
		t.Fatalf("New(%s) failed: %v", name, err)
	}
	return p
}

// =============================================================================
// Provider Construction Tests
// =============================================================================

func TestU_New_Validation(t *testing.T) {
	desCipher := func() *Service {
		return CipherService(crypto.AlgDES, Combos(allModes, crypto.PKCS5Padding), blockFactory(crypto.AlgDES))
	}

	tests := []struct {
		name     string
		provName string
		services []*Service
		wantErr  bool
	}{
		{"[Unit] New: valid provider", "P", []*Service{desCipher(), KeyGeneratorService(crypto.AlgDES, keyGen(crypto.AlgDES))}, false},
		{"[Unit] New: no services", "Empty", nil, false},
		{"[Unit] New: empty name", " ", []*Service{desCipher()}, true},
		{"[Unit] New: nil service", "P", []*Service{nil}, true},
		{"[Unit] New: cipher without factory", "P", []*Service{CipherService(crypto.AlgDES, Combos(allModes, crypto.NoPadding), nil)}, true},
		{"[Unit] New: cipher without combos", "P", []*Service{CipherService(crypto.AlgDES, nil, blockFactory(crypto.AlgDES))}, true},
		{"[Unit] New: incomplete combo", "P", []*Service{CipherService(crypto.AlgDES, []Combo{{Mode: crypto.ModeECB}}, blockFactory(crypto.AlgDES))}, true},
		{"[Unit] New: key generator without factory", "P", []*Service{KeyGeneratorService(crypto.AlgDES, nil)}, true},
		{"[Unit] New: unknown service type", "P", []*Service{{Type: "Signature", Algorithm: crypto.AlgRSA}}, true},
		{"[Unit] New: duplicate binding", "P", []*Service{desCipher(), desCipher()}, true},
		{"[Unit] New: alias collides with algorithm", "P", []*Service{
			desCipher(),
			CipherService(crypto.AlgDESede, Combos(allModes, crypto.PKCS5Padding), blockFactory(crypto.AlgDESede)).Alias("des"),
		}, true},
		{"[Unit] New: same name different type", "P", []*Service{desCipher(), KeyGeneratorService(crypto.AlgDES, keyGen(crypto.AlgDES))}, false},
		{"[Unit] New: alias with slash", "P", []*Service{desCipher().Alias("DES/X")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.provName, tt.services)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidProvider) {
				t.Errorf("New() error should wrap ErrInvalidProvider, got %v", err)
			}
		})
	}
}

func TestU_Provider_Accessors(t *testing.T) {
	s := CipherService(crypto.AlgDESede, Combos(allModes, crypto.PKCS5Padding), blockFactory(crypto.AlgDESede)).Alias("TripleDES")
	p := mustProvider(t, "Std", s)

	if p.Name() != "Std" || p.Version() != "1.0" || p.Info() != "Std test provider" {
		t.Errorf("unexpected accessors: %s %s %s", p.Name(), p.Version(), p.Info())
	}
	services := p.Services()
	if len(services) != 1 {
		t.Fatalf("Services() = %d, want 1", len(services))
	}
	services[0] = nil
	if p.Services()[0] == nil {
		t.Error("Services() should return a copy")
	}
	if got := s.Names(); len(got) != 2 || got[1] != "TripleDES" {
		t.Errorf("Names() = %v", got)
	}
	if p.String() != "Std 1.0" {
		t.Errorf("String() = %q", p.String())
	}
}

// =============================================================================
// Lookup Tests
// =============================================================================

func TestU_Provider_Lookup(t *testing.T) {
	p := mustProvider(t, "Std",
		CipherService(crypto.AlgAES,
			append(Combos(allModes, crypto.PKCS5Padding, crypto.NoPadding), Combo{crypto.ModeCTR, crypto.NoPadding}),
			blockFactory(crypto.AlgAES)),
		CipherService(crypto.AlgDESede, Combos(allModes, crypto.PKCS5Padding), blockFactory(crypto.AlgDESede)).Alias("TripleDES"),
		KeyGeneratorService(crypto.AlgAES, keyGen(crypto.AlgAES)),
	)

	tests := []struct {
		name      string
		typ       ServiceType
		alg       string
		mode      crypto.Mode
		padding   crypto.Padding
		wantOK    bool
		wantCombo Combo
	}{
		{"[Unit] Lookup: exact triple", Cipher, "AES", crypto.ModeCBC, crypto.NoPadding, true, Combo{crypto.ModeCBC, crypto.NoPadding}},
		{"[Unit] Lookup: case-insensitive", Cipher, "aes", "ctr", "nopadding", true, Combo{crypto.ModeCTR, crypto.NoPadding}},
		{"[Unit] Lookup: default combo", Cipher, "AES", "", "", true, Combo{crypto.ModeECB, crypto.PKCS5Padding}},
		{"[Unit] Lookup: mode wildcard padding", Cipher, "AES", crypto.ModeCBC, "", true, Combo{crypto.ModeCBC, crypto.PKCS5Padding}},
		{"[Unit] Lookup: alias", Cipher, "tripledes", crypto.ModeCBC, crypto.PKCS5Padding, true, Combo{crypto.ModeCBC, crypto.PKCS5Padding}},
		{"[Unit] Lookup: unsupported mode", Cipher, "DESede", crypto.ModeCTR, crypto.NoPadding, false, Combo{}},
		{"[Unit] Lookup: unknown algorithm", Cipher, "Blowfish", "", "", false, Combo{}},
		{"[Unit] Lookup: key generator", KeyGenerator, "aes", "", "", true, Combo{}},
		{"[Unit] Lookup: key generator with mode", KeyGenerator, "AES", crypto.ModeECB, "", false, Combo{}},
		{"[Unit] Lookup: wrong type", SecureRandom, "AES", "", "", false, Combo{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, combo, ok := p.Lookup(tt.typ, tt.alg, tt.mode, tt.padding)
			if ok != tt.wantOK {
				t.Fatalf("Lookup() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if s.Type != tt.typ {
				t.Errorf("Lookup() service type = %s, want %s", s.Type, tt.typ)
			}
			if combo != tt.wantCombo {
				t.Errorf("Lookup() combo = %v, want %v", combo, tt.wantCombo)
			}
		})
	}
}

// =============================================================================
// Transformation Tests
// =============================================================================

func TestU_ParseTransformation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Request
		wantErr bool
	}{
		{"[Unit] Parse: bare algorithm", "DES", Request{Type: Cipher, Algorithm: "DES"}, false},
		{"[Unit] Parse: full triple", "DESede/CBC/PKCS5Padding", Request{Type: Cipher, Algorithm: "DESede", Mode: "CBC", Padding: "PKCS5Padding"}, false},
		{"[Unit] Parse: surrounding spaces", " AES / CTR / NoPadding ", Request{Type: Cipher, Algorithm: "AES", Mode: "CTR", Padding: "NoPadding"}, false},
		{"[Unit] Parse: two parts", "AES/CBC", Request{}, true},
		{"[Unit] Parse: four parts", "AES/CBC/NoPadding/X", Request{}, true},
		{"[Unit] Parse: empty", "", Request{}, true},
		{"[Unit] Parse: empty mode", "AES//NoPadding", Request{}, true},
		{"[Unit] Parse: trailing slash", "AES/", Request{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTransformation(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTransformation(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrNoSuchAlgorithm) {
					t.Errorf("error should wrap ErrNoSuchAlgorithm, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseTransformation(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestU_Request_String(t *testing.T) {
	req, _ := ParseTransformation("AES/CBC/NoPadding")
	if req.String() != "AES/CBC/NoPadding" {
		t.Errorf("String() = %q", req.String())
	}
	if pinned := req.WithProvider("Lite"); pinned.Provider != "Lite" || req.Provider != "" {
		t.Error("WithProvider() should copy the request")
	}
	if (Request{Algorithm: "DES"}).String() != "DES" {
		t.Error("unqualified request should print the algorithm alone")
	}
}

func TestU_Error_Format(t *testing.T) {
	err := &Error{Op: "resolve", Provider: "Lite", Algorithm: "AES", Err: ErrNoSuchAlgorithm}
	if !strings.Contains(err.Error(), "provider resolve [Lite AES]") {
		t.Errorf("Error() = %q", err.Error())
	}
	var pe *Error
	if !errors.As(error(err), &pe) || pe.Provider != "Lite" {
		t.Error("errors.As should find *Error")
	}
	if (&Error{Op: "get", Err: ErrNoSuchProvider}).Error() != "provider get: no such provider" {
		t.Error("unexpected bare error format")
	}
}
