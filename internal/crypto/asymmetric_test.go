//go:debug rsa1024min=0

package crypto

import (
	"bytes"
	"errors"
	"testing"
)

// =============================================================================
// [Unit] RSA Cipher Engine
// =============================================================================

func mustKeyPair(t *testing.T, alg AlgorithmID, bits int) *KeyPair {
	t.Helper()
	kp, err := GenerateKeyPair(alg, bits)
	if err != nil {
		t.Fatalf("GenerateKeyPair(%s, %d) failed: %v", alg, bits, err)
	}
	return kp
}

func TestU_RSA_RoundTrip(t *testing.T) {
	kp := mustKeyPair(t, AlgRSA, 1024)

	for _, padding := range []Padding{PKCS1Padding, OAEPPadding} {
		t.Run(string(padding), func(t *testing.T) {
			enc, err := NewRSACipherEngine(ModeECB, padding)
			if err != nil {
				t.Fatalf("NewRSACipherEngine failed: %v", err)
			}
			if err := enc.Init(EncryptMode, kp.Public, Params{}, nil); err != nil {
				t.Fatalf("Init(encrypt) failed: %v", err)
			}
			if _, err := enc.Update([]byte(alphabet[:10])); err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			ct, err := enc.Final([]byte(alphabet[10:]))
			if err != nil {
				t.Fatalf("Final(encrypt) failed: %v", err)
			}
			if len(ct) != 128 {
				t.Errorf("ciphertext length = %d, want 128", len(ct))
			}

			dec, _ := NewRSACipherEngine(ModeECB, padding)
			if err := dec.Init(DecryptMode, kp.Private, Params{}, nil); err != nil {
				t.Fatalf("Init(decrypt) failed: %v", err)
			}
			pt, err := dec.Final(ct)
			if err != nil {
				t.Fatalf("Final(decrypt) failed: %v", err)
			}
			if string(pt) != alphabet {
				t.Errorf("decrypted = %q, want %q", pt, alphabet)
			}
		})
	}
}

func TestU_RSA_512BitKey(t *testing.T) {
	kp := mustKeyPair(t, AlgRSA, 512)
	enc, _ := NewRSACipherEngine(ModeECB, PKCS1Padding)
	if err := enc.Init(WrapMode, kp.Public, Params{}, nil); err != nil {
		t.Fatalf("Init(wrap) failed: %v", err)
	}
	secret := mustSecretKey(t, AlgDES, 56)
	wrapped, err := enc.Final(secret.Encoded())
	if err != nil {
		t.Fatalf("Final(wrap) failed: %v", err)
	}

	dec, _ := NewRSACipherEngine(ModeECB, PKCS1Padding)
	if err := dec.Init(UnwrapMode, kp.Private, Params{}, nil); err != nil {
		t.Fatalf("Init(unwrap) failed: %v", err)
	}
	raw, err := dec.Final(wrapped)
	if err != nil {
		t.Fatalf("Final(unwrap) failed: %v", err)
	}
	if !bytes.Equal(raw, secret.Encoded()) {
		t.Error("unwrapped key differs from original")
	}
}

func TestU_RSA_Errors(t *testing.T) {
	kp := mustKeyPair(t, AlgRSA, 512)

	if _, err := NewRSACipherEngine(ModeCBC, PKCS1Padding); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("CBC mode error = %v, want ErrInvalidParameter", err)
	}
	if _, err := NewRSACipherEngine(ModeECB, PKCS5Padding); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("PKCS5 padding error = %v, want ErrInvalidParameter", err)
	}

	e, _ := NewRSACipherEngine(ModeECB, PKCS1Padding)
	if err := e.Init(EncryptMode, kp.Private, Params{}, nil); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("encrypt with private key error = %v, want ErrInvalidKey", err)
	}
	if err := e.Init(DecryptMode, kp.Public, Params{}, nil); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("decrypt with public key error = %v, want ErrInvalidKey", err)
	}
	if err := e.Init(EncryptMode, mustSecretKey(t, AlgAES, 128), Params{}, nil); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("encrypt with secret key error = %v, want ErrInvalidKey", err)
	}

	if err := e.Init(EncryptMode, kp.Public, Params{}, nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := e.Final(make([]byte, 100)); !errors.Is(err, ErrIllegalBlockSize) {
		t.Errorf("oversized message error = %v, want ErrIllegalBlockSize", err)
	}

	d, _ := NewRSACipherEngine(ModeECB, PKCS1Padding)
	_ = d.Init(DecryptMode, kp.Private, Params{}, nil)
	if _, err := d.Final(make([]byte, 64)); !errors.Is(err, ErrPadding) {
		t.Errorf("garbage ciphertext error = %v, want ErrPadding", err)
	}
}

// =============================================================================
// [Unit] ML-KEM-768 Key Wrap
// =============================================================================

func TestU_KEMWrap_RoundTrip(t *testing.T) {
	kp := mustKeyPair(t, AlgMLKEM768, 0)
	secret := mustSecretKey(t, AlgAES, 256)

	w := NewKEMWrapEngine()
	if err := w.Init(WrapMode, kp.Public, Params{}, nil); err != nil {
		t.Fatalf("Init(wrap) failed: %v", err)
	}
	wrapped, err := w.Final(secret.Encoded())
	if err != nil {
		t.Fatalf("Final(wrap) failed: %v", err)
	}
	if got, want := len(wrapped), w.OutputSize(32); got != want {
		t.Errorf("wrapped length = %d, OutputSize = %d", got, want)
	}

	u := NewKEMWrapEngine()
	if err := u.Init(UnwrapMode, kp.Private, Params{}, nil); err != nil {
		t.Fatalf("Init(unwrap) failed: %v", err)
	}
	raw, err := u.Final(wrapped)
	if err != nil {
		t.Fatalf("Final(unwrap) failed: %v", err)
	}
	if !bytes.Equal(raw, secret.Encoded()) {
		t.Error("unwrapped key differs from original")
	}
}

func TestU_KEMWrap_WrongKey(t *testing.T) {
	kp := mustKeyPair(t, AlgMLKEM768, 0)
	other := mustKeyPair(t, AlgMLKEM768, 0)

	w := NewKEMWrapEngine()
	_ = w.Init(WrapMode, kp.Public, Params{}, nil)
	wrapped, err := w.Final(bytes.Repeat([]byte{7}, 24))
	if err != nil {
		t.Fatalf("Final(wrap) failed: %v", err)
	}

	u := NewKEMWrapEngine()
	_ = u.Init(UnwrapMode, other.Private, Params{}, nil)
	if _, err := u.Final(wrapped); !errors.Is(err, ErrPadding) {
		t.Errorf("unwrap with wrong key error = %v, want ErrPadding", err)
	}
}

func TestU_KEMWrap_InitErrors(t *testing.T) {
	kp := mustKeyPair(t, AlgMLKEM768, 0)
	e := NewKEMWrapEngine()

	if err := e.Init(EncryptMode, kp.Public, Params{}, nil); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("Init(encrypt) error = %v, want ErrUnsupportedOperation", err)
	}
	if err := e.Init(WrapMode, kp.Private, Params{}, nil); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("wrap with private key error = %v, want ErrInvalidKey", err)
	}
	if err := e.Init(UnwrapMode, kp.Public, Params{}, nil); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("unwrap with public key error = %v, want ErrInvalidKey", err)
	}
}

// =============================================================================
// [Unit] Key Encoding
// =============================================================================

func TestU_ParseKey_RoundTrip(t *testing.T) {
	rsaKP := mustKeyPair(t, AlgRSA, 512)
	kemKP := mustKeyPair(t, AlgMLKEM768, 0)
	secret := mustSecretKey(t, AlgBlowfish, 128)

	tests := []struct {
		name    string
		key     Key
		keyType KeyType
		format  string
	}{
		{"[Unit] ParseKey: secret", secret, SecretKeyType, FormatRaw},
		{"[Unit] ParseKey: RSA private", rsaKP.Private, PrivateKeyType, FormatPKCS8},
		{"[Unit] ParseKey: RSA public", rsaKP.Public, PublicKeyType, FormatPKIX},
		{"[Unit] ParseKey: ML-KEM private", kemKP.Private, PrivateKeyType, FormatRaw},
		{"[Unit] ParseKey: ML-KEM public", kemKP.Public, PublicKeyType, FormatRaw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.key.Format() != tt.format {
				t.Errorf("Format() = %s, want %s", tt.key.Format(), tt.format)
			}
			parsed, err := ParseKey(tt.key.Algorithm(), tt.keyType, tt.key.Encoded())
			if err != nil {
				t.Fatalf("ParseKey failed: %v", err)
			}
			if parsed.Algorithm() != tt.key.Algorithm() {
				t.Errorf("Algorithm() = %s, want %s", parsed.Algorithm(), tt.key.Algorithm())
			}
			if !bytes.Equal(parsed.Encoded(), tt.key.Encoded()) {
				t.Error("re-encoded key differs from original")
			}
		})
	}
}

func TestU_ParseKey_Errors(t *testing.T) {
	if _, err := ParseKey(AlgRSA, PrivateKeyType, []byte("garbage")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("garbage RSA key error = %v, want ErrInvalidKey", err)
	}
	if _, err := ParseKey(AlgAES, PrivateKeyType, []byte("x")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("AES private key error = %v, want ErrInvalidKey", err)
	}
	if _, err := ParseKey(AlgAES, KeyType(42), []byte("x")); err == nil {
		t.Error("unknown key type should fail")
	}
	if _, err := ParseKey(AlgAES, SecretKeyType, nil); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("empty secret error = %v, want ErrInvalidKey", err)
	}
}
