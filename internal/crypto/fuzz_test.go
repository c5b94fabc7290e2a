package crypto

import (
	"bytes"
	"testing"
)

// =============================================================================
// Parsing Fuzz Tests
// =============================================================================

// FuzzParseAlgorithm tests parsing of arbitrary algorithm strings.
func FuzzParseAlgorithm(f *testing.F) {
	f.Add("DES")
	f.Add("desede")
	f.Add("AESWrapPad")
	f.Add("")
	f.Add("DES\x00")
	f.Add(string(make([]byte, 1000)))

	f.Fuzz(func(t *testing.T, s string) {
		alg, err := ParseAlgorithm(s)
		if err == nil && !alg.IsValid() {
			t.Errorf("ParseAlgorithm(%q) returned invalid %s", s, alg)
		}
	})
}

// FuzzUnpad tests padding removal on arbitrary plaintext.
func FuzzUnpad(f *testing.F) {
	f.Add([]byte{1, 2, 3, 4, 5, 6, 7, 1})
	f.Add(bytes.Repeat([]byte{8}, 8))
	f.Add([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		for _, p := range []Padding{PKCS5Padding, ISO10126Padding} {
			out, err := unpad(p, data, 8)
			if err == nil && len(out) >= len(data) {
				t.Errorf("unpad(%s) did not strip anything from %x", p, data)
			}
		}
	})
}

// FuzzAESKeyUnwrapPad tests unwrapping of arbitrary blobs.
func FuzzAESKeyUnwrapPad(f *testing.F) {
	kek := make([]byte, 16)
	wrapped, _ := AESKeyWrapPad(kek, []byte("seed key"))
	f.Add(wrapped)
	f.Add(make([]byte, 16))
	f.Add(make([]byte, 24))
	f.Add([]byte{0xA6})

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic
		_, _ = AESKeyUnwrapPad(kek, data)
		_, _ = AESKeyUnwrap(kek, data)
	})
}
