package providers

import (
	"errors"
	"reflect"
	"testing"

	"github.com/remiblancher/provider-conformance/internal/crypto"
	"github.com/remiblancher/provider-conformance/internal/provider"
)

// =============================================================================
// Built-in Provider Tests
// =============================================================================

func TestU_Std_Bindings(t *testing.T) {
	p := Std()

	tests := []struct {
		name    string
		typ     provider.ServiceType
		alg     string
		mode    crypto.Mode
		padding crypto.Padding
		want    bool
	}{
		{"[Unit] Std: DES default", provider.Cipher, "DES", "", "", true},
		{"[Unit] Std: DES CTR", provider.Cipher, "DES", crypto.ModeCTR, crypto.NoPadding, true},
		{"[Unit] Std: TripleDES alias", provider.Cipher, "TripleDES", crypto.ModeCBC, crypto.ISO10126Padding, true},
		{"[Unit] Std: AES CFB", provider.Cipher, "AES", crypto.ModeCFB, crypto.NoPadding, true},
		{"[Unit] Std: AES CTR padded", provider.Cipher, "AES", crypto.ModeCTR, crypto.PKCS5Padding, false},
		{"[Unit] Std: RSA OAEP", provider.Cipher, "RSA", crypto.ModeECB, crypto.OAEPPadding, true},
		{"[Unit] Std: AESWrapPad", provider.Cipher, "AESWrapPad", "", "", true},
		{"[Unit] Std: MLKEM768 wrap", provider.Cipher, "MLKEM768", "", "", true},
		{"[Unit] Std: Blowfish absent", provider.Cipher, "Blowfish", "", "", false},
		{"[Unit] Std: DESede key generator", provider.KeyGenerator, "DESede", "", "", true},
		{"[Unit] Std: RSA key pairs", provider.KeyPairGenerator, "RSA", "", "", true},
		{"[Unit] Std: DRBG", provider.SecureRandom, "DRBG", "", "", true},
		{"[Unit] Std: NativePRNG", provider.SecureRandom, "NativePRNG", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ok := p.Lookup(tt.typ, tt.alg, tt.mode, tt.padding)
			if ok != tt.want {
				t.Errorf("Lookup(%s %s/%s/%s) = %v, want %v", tt.typ, tt.alg, tt.mode, tt.padding, ok, tt.want)
			}
		})
	}
}

func TestU_Std_DefaultCombo(t *testing.T) {
	_, combo, ok := Std().Lookup(provider.Cipher, "DES", "", "")
	if !ok {
		t.Fatal("DES not found")
	}
	if combo.Mode != crypto.ModeECB || combo.Padding != crypto.PKCS5Padding {
		t.Errorf("default combo = %s, want ECB/PKCS5Padding", combo)
	}
}

func TestU_Lite_Bindings(t *testing.T) {
	p := Lite()
	if p.Name() != LiteName || p.Version() != Version {
		t.Errorf("unexpected identity %s", p)
	}
	if _, _, ok := p.Lookup(provider.Cipher, "DES", crypto.ModeCTR, crypto.NoPadding); ok {
		t.Error("Lite must not offer DES/CTR")
	}
	if _, _, ok := p.Lookup(provider.Cipher, "DES", crypto.ModeCBC, crypto.NoPadding); ok {
		t.Error("Lite must not offer DES/CBC/NoPadding")
	}
	if _, _, ok := p.Lookup(provider.Cipher, "Blowfish", crypto.ModeCTR, crypto.NoPadding); !ok {
		t.Error("Lite should offer Blowfish/CTR/NoPadding")
	}
	if _, _, ok := p.Lookup(provider.Cipher, "AES", "", ""); ok {
		t.Error("Lite must not offer AES")
	}
}

func TestU_BuiltIn_EnginesBuild(t *testing.T) {
	for _, p := range Catalog() {
		for _, s := range p.Services() {
			if s.Type != provider.Cipher {
				continue
			}
			for _, c := range s.Combos {
				if _, err := s.NewCipher(c.Mode, c.Padding); err != nil {
					t.Errorf("%s %s/%s: %v", p.Name(), s.Algorithm, c, err)
				}
			}
		}
	}
}

func TestU_BuiltIn_Generators(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Add(Std())
	reg.Add(Lite())

	res, err := reg.Resolve(provider.Request{Type: provider.KeyGenerator, Algorithm: "Blowfish"})
	if err != nil {
		t.Fatalf("Resolve(Blowfish KeyGenerator) error = %v", err)
	}
	key, err := res.Service.GenerateKey(nil, 128)
	if err != nil || key.Bits() != 128 {
		t.Fatalf("GenerateKey() = %v, %v", key, err)
	}

	res, err = reg.Resolve(provider.Request{Type: provider.SecureRandom, Algorithm: "DRBG", Provider: LiteName})
	if err != nil {
		t.Fatalf("Resolve(DRBG) error = %v", err)
	}
	r, err := res.Service.NewRandom([]byte("seed"))
	if err != nil {
		t.Fatalf("NewRandom() error = %v", err)
	}
	buf := make([]byte, 32)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
}

// =============================================================================
// Lookup and Install Tests
// =============================================================================

func TestU_ByName(t *testing.T) {
	if p, err := ByName("lite"); err != nil || p.Name() != LiteName {
		t.Errorf("ByName(lite) = %v, %v", p, err)
	}
	if _, err := ByName("PKCS11"); !errors.Is(err, provider.ErrNoSuchProvider) {
		t.Errorf("ByName(PKCS11) error = %v", err)
	}
	if _, err := ByName("Nope"); !errors.Is(err, provider.ErrNoSuchProvider) {
		t.Errorf("ByName(Nope) error = %v", err)
	}
}

func TestU_Install(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		want    []string
		wantErr bool
	}{
		{"[Unit] Install: default order", nil, []string{StdName, LiteName}, false},
		{"[Unit] Install: custom order", []string{"Lite", "Std"}, []string{LiteName, StdName}, false},
		{"[Unit] Install: PKCS11 without config", []string{"Std", "PKCS11"}, nil, true},
		{"[Unit] Install: unknown", []string{"Bogus"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := provider.NewRegistry()
			closeFn, err := Install(reg, tt.names, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Install() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer func() { _ = closeFn() }()
			if got := reg.Names(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Names() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestU_PKCS11_NilToken(t *testing.T) {
	if _, err := PKCS11(nil); !errors.Is(err, provider.ErrInvalidProvider) {
		t.Errorf("PKCS11(nil) error = %v", err)
	}
}
