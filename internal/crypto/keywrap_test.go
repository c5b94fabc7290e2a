package crypto

import (
	"bytes"
	"errors"
	"testing"
)

// =============================================================================
// [Unit] AES Key Wrap (RFC 3394 / RFC 5649)
// =============================================================================

func TestU_AESKeyWrap_RFC3394Vector(t *testing.T) {
	// RFC 3394 section 4.1: 128-bit key data with a 128-bit KEK.
	kek := mustHex(t, "000102030405060708090A0B0C0D0E0F")
	key := mustHex(t, "00112233445566778899AABBCCDDEEFF")
	want := mustHex(t, "1FA68B0A8112B447AEF34BD8FB5A7B829D3E862371D2CFE5")

	got, err := AESKeyWrap(kek, key)
	if err != nil {
		t.Fatalf("AESKeyWrap failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("AESKeyWrap = %X, want %X", got, want)
	}

	unwrapped, err := AESKeyUnwrap(kek, got)
	if err != nil {
		t.Fatalf("AESKeyUnwrap failed: %v", err)
	}
	if !bytes.Equal(unwrapped, key) {
		t.Errorf("AESKeyUnwrap = %X, want %X", unwrapped, key)
	}
}

func TestU_AESKeyWrapPad_RFC5649Vectors(t *testing.T) {
	kek := mustHex(t, "5840df6e29b02af1ab493b705bf16ea1ae8338f4dcc176a8")

	tests := []struct {
		name string
		key  string
		want string
	}{
		{"[Unit] WrapPad: 20 octets", "c37b7e6492584340bed12207808941155068f738", "138bdeaa9b8fa7fc61f97742e72248ee5ae6ae5360d1ae6a5f54f373fa543b6a"},
		{"[Unit] WrapPad: 7 octets", "466f7250617369", "afbeb0f07dfbf5419200f2ccb50bb24f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := mustHex(t, tt.key)
			got, err := AESKeyWrapPad(kek, key)
			if err != nil {
				t.Fatalf("AESKeyWrapPad failed: %v", err)
			}
			if want := mustHex(t, tt.want); !bytes.Equal(got, want) {
				t.Errorf("AESKeyWrapPad = %x, want %x", got, want)
			}
			unwrapped, err := AESKeyUnwrapPad(kek, got)
			if err != nil {
				t.Fatalf("AESKeyUnwrapPad failed: %v", err)
			}
			if !bytes.Equal(unwrapped, key) {
				t.Errorf("AESKeyUnwrapPad = %x, want %x", unwrapped, key)
			}
		})
	}
}

func TestU_AESKeyWrap_Errors(t *testing.T) {
	kek := make([]byte, 16)

	if _, err := AESKeyWrap(kek, make([]byte, 8)); !errors.Is(err, ErrIllegalBlockSize) {
		t.Errorf("wrap 8 bytes error = %v, want ErrIllegalBlockSize", err)
	}
	if _, err := AESKeyWrap(kek, make([]byte, 20)); !errors.Is(err, ErrIllegalBlockSize) {
		t.Errorf("wrap 20 bytes error = %v, want ErrIllegalBlockSize", err)
	}
	if _, err := AESKeyWrap(make([]byte, 5), make([]byte, 16)); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("wrap with bad KEK error = %v, want ErrInvalidKey", err)
	}
	if _, err := AESKeyWrapPad(kek, nil); !errors.Is(err, ErrIllegalBlockSize) {
		t.Errorf("wrap-pad empty error = %v, want ErrIllegalBlockSize", err)
	}

	wrapped, _ := AESKeyWrap(kek, make([]byte, 16))
	other := bytes.Repeat([]byte{1}, 16)
	if _, err := AESKeyUnwrap(other, wrapped); !errors.Is(err, ErrPadding) {
		t.Errorf("unwrap with wrong KEK error = %v, want ErrPadding", err)
	}
	if _, err := AESKeyUnwrap(kek, wrapped[:20]); !errors.Is(err, ErrPadding) {
		t.Errorf("unwrap truncated error = %v, want ErrPadding", err)
	}

	padded, _ := AESKeyWrapPad(kek, []byte("twelve bytes"))
	if _, err := AESKeyUnwrapPad(other, padded); !errors.Is(err, ErrPadding) {
		t.Errorf("unwrap-pad with wrong KEK error = %v, want ErrPadding", err)
	}
}

func TestU_KeyWrapEngine_RoundTrip(t *testing.T) {
	kek := mustSecretKey(t, AlgAES, 256)
	target := mustSecretKey(t, AlgDESede, 168)

	for _, alg := range []AlgorithmID{AlgAESWrap, AlgAESWrapPad} {
		t.Run(string(alg), func(t *testing.T) {
			w, err := NewKeyWrapEngine(alg)
			if err != nil {
				t.Fatalf("NewKeyWrapEngine failed: %v", err)
			}
			if err := w.Init(WrapMode, kek, Params{}, nil); err != nil {
				t.Fatalf("Init(wrap) failed: %v", err)
			}
			wrapped, err := w.Final(target.Encoded())
			if err != nil {
				t.Fatalf("Final(wrap) failed: %v", err)
			}

			u, _ := NewKeyWrapEngine(alg)
			if err := u.Init(UnwrapMode, kek, Params{}, nil); err != nil {
				t.Fatalf("Init(unwrap) failed: %v", err)
			}
			raw, err := u.Final(wrapped)
			if err != nil {
				t.Fatalf("Final(unwrap) failed: %v", err)
			}
			if !bytes.Equal(raw, target.Encoded()) {
				t.Error("unwrapped key differs from original")
			}
		})
	}
}

func TestU_KeyWrapEngine_RejectsEncrypt(t *testing.T) {
	kek := mustSecretKey(t, AlgAES, 128)
	w, _ := NewKeyWrapEngine(AlgAESWrap)
	if err := w.Init(EncryptMode, kek, Params{}, nil); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("Init(encrypt) error = %v, want ErrUnsupportedOperation", err)
	}
	if _, err := NewKeyWrapEngine(AlgAES); err == nil {
		t.Error("NewKeyWrapEngine(AES) should fail")
	}
}
