package crypto

import (
	"bytes"
	"errors"
	"math/bits"
	"testing"
)

// =============================================================================
// [Unit] Key Generation
// =============================================================================

func TestU_GenerateSecretKey_Sizes(t *testing.T) {
	tests := []struct {
		name      string
		alg       AlgorithmID
		bits      int
		wantBytes int
	}{
		{"[Unit] KeyGen: DES", AlgDES, 56, 8},
		{"[Unit] KeyGen: DESede two-key", AlgDESede, 112, 16},
		{"[Unit] KeyGen: DESede three-key", AlgDESede, 168, 24},
		{"[Unit] KeyGen: DESede default", AlgDESede, 0, 24},
		{"[Unit] KeyGen: AES-128", AlgAES, 128, 16},
		{"[Unit] KeyGen: AES-256", AlgAES, 256, 32},
		{"[Unit] KeyGen: Blowfish-32", AlgBlowfish, 32, 4},
		{"[Unit] KeyGen: AESWrap", AlgAESWrap, 192, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := GenerateSecretKey(tt.alg, tt.bits)
			if err != nil {
				t.Fatalf("GenerateSecretKey failed: %v", err)
			}
			if got := len(key.Encoded()); got != tt.wantBytes {
				t.Errorf("key length = %d bytes, want %d", got, tt.wantBytes)
			}
			if key.Algorithm() != tt.alg {
				t.Errorf("Algorithm() = %s, want %s", key.Algorithm(), tt.alg)
			}
		})
	}
}

func TestU_GenerateSecretKey_DESParity(t *testing.T) {
	key, err := GenerateSecretKey(AlgDESede, 168)
	if err != nil {
		t.Fatalf("GenerateSecretKey failed: %v", err)
	}
	for i, b := range key.Encoded() {
		if bits.OnesCount8(b)%2 != 1 {
			t.Errorf("byte %d (%08b) does not have odd parity", i, b)
		}
	}
}

func TestU_GenerateSecretKey_Deterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x5A}, 64)
	a, err := GenerateSecretKeyWithRand(bytes.NewReader(seed), AlgAES, 128)
	if err != nil {
		t.Fatalf("GenerateSecretKeyWithRand failed: %v", err)
	}
	b, _ := GenerateSecretKeyWithRand(bytes.NewReader(seed), AlgAES, 128)
	if !a.Equal(b) {
		t.Error("same randomness should give the same key")
	}

	c, _ := GenerateSecretKey(AlgAES, 128)
	if a.Equal(c) {
		t.Error("different randomness gave the same key")
	}
}

func TestU_GenerateSecretKey_Errors(t *testing.T) {
	if _, err := GenerateSecretKey(AlgAES, 100); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("AES-100 error = %v, want ErrInvalidParameter", err)
	}
	if _, err := GenerateSecretKey(AlgRSA, 2048); err == nil {
		t.Error("RSA secret key should fail")
	}
	if _, err := GenerateSecretKeyWithRand(bytes.NewReader(nil), AlgAES, 128); err == nil {
		t.Error("exhausted randomness should fail")
	}
}

func TestU_GenerateKeyPair_Errors(t *testing.T) {
	if _, err := GenerateKeyPair(AlgRSA, 1000); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("RSA-1000 error = %v, want ErrInvalidParameter", err)
	}
	if _, err := GenerateKeyPair(AlgAES, 128); err == nil {
		t.Error("AES key pair should fail")
	}
}

func TestU_SecretKey_CopiesBytes(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	key, err := NewSecretKey(AlgDES, raw)
	if err != nil {
		t.Fatalf("NewSecretKey failed: %v", err)
	}
	raw[0] = 99
	if key.Encoded()[0] != 1 {
		t.Error("NewSecretKey did not copy its input")
	}
	enc := key.Encoded()
	enc[1] = 99
	if key.Encoded()[1] != 2 {
		t.Error("Encoded() exposed internal state")
	}
	if key.Bits() != 64 {
		t.Errorf("Bits() = %d, want 64", key.Bits())
	}
}

// =============================================================================
// [Unit] DRBG
// =============================================================================

func TestU_DRBG_Read(t *testing.T) {
	d, err := NewDRBG(nil, []byte("test"))
	if err != nil {
		t.Fatalf("NewDRBG failed: %v", err)
	}
	a := make([]byte, 64)
	b := make([]byte, 64)
	if n, err := d.Read(a); err != nil || n != 64 {
		t.Fatalf("Read() = %d, %v", n, err)
	}
	if _, err := d.Read(b); err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("consecutive reads returned identical output")
	}
	if bytes.Equal(a, make([]byte, 64)) {
		t.Error("DRBG returned all zeros")
	}
}

func TestU_DRBG_DeterministicSeed(t *testing.T) {
	entropy := bytes.Repeat([]byte{0x11}, 48)
	d1, err := NewDRBG(bytes.NewReader(entropy), nil)
	if err != nil {
		t.Fatalf("NewDRBG failed: %v", err)
	}
	d2, _ := NewDRBG(bytes.NewReader(entropy), nil)

	a := make([]byte, 32)
	b := make([]byte, 32)
	_, _ = d1.Read(a)
	_, _ = d2.Read(b)
	if !bytes.Equal(a, b) {
		t.Error("same entropy should give the same stream")
	}

	d3, _ := NewDRBG(bytes.NewReader(entropy), []byte("personalized"))
	c := make([]byte, 32)
	_, _ = d3.Read(c)
	if bytes.Equal(a, c) {
		t.Error("personalization did not change the stream")
	}
}

func TestU_DRBG_Reseed(t *testing.T) {
	d, _ := NewDRBG(nil, nil)
	big := make([]byte, drbgReseedInterval/2+1)
	if _, err := d.Read(big); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	// Crosses the reseed interval.
	if _, err := d.Read(big); err != nil {
		t.Fatalf("Read across reseed failed: %v", err)
	}
	if d.generated != len(big) {
		t.Errorf("generated = %d after reseed, want %d", d.generated, len(big))
	}
}

func TestU_DRBG_EntropyFailure(t *testing.T) {
	if _, err := NewDRBG(bytes.NewReader(make([]byte, 10)), nil); err == nil {
		t.Error("short entropy should fail")
	}
}

func TestU_NewRandom(t *testing.T) {
	for _, alg := range []AlgorithmID{AlgDRBG, AlgNativePRNG} {
		r, err := NewRandom(alg, nil)
		if err != nil {
			t.Fatalf("NewRandom(%s) failed: %v", alg, err)
		}
		buf := make([]byte, 16)
		if _, err := r.Read(buf); err != nil {
			t.Errorf("%s Read failed: %v", alg, err)
		}
	}
	if _, err := NewRandom(AlgAES, nil); err == nil {
		t.Error("NewRandom(AES) should fail")
	}
}
