package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"
)

// drbgReseedInterval is the number of output bytes after which the DRBG
// pulls fresh entropy.
const drbgReseedInterval = 1 << 20

// DRBG is a ChaCha20 random bit generator with fast key erasure: every
// request draws output plus a replacement key from the keystream, so
// earlier output cannot be recovered from the current state.
type DRBG struct {
	mu        sync.Mutex
	entropy   io.Reader
	key       []byte
	generated int
}

// NewDRBG seeds a DRBG from entropy (crypto/rand when nil), mixing in an
// optional personalization string.
func NewDRBG(entropy io.Reader, personalization []byte) (*DRBG, error) {
	if entropy == nil {
		entropy = rand.Reader
	}
	d := &DRBG{entropy: entropy}
	if err := d.Reseed(personalization); err != nil {
		return nil, err
	}
	return d, nil
}

// Reseed mixes fresh entropy and the additional input into the key.
func (d *DRBG) Reseed(additional []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reseedLocked(additional)
}

func (d *DRBG) reseedLocked(additional []byte) error {
	seed := make([]byte, 48)
	if _, err := io.ReadFull(d.entropy, seed); err != nil {
		return fmt.Errorf("DRBG entropy read failed: %w", err)
	}
	kdf := hkdf.New(sha256.New, seed, d.key, additional)
	key := make([]byte, chacha20.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return fmt.Errorf("DRBG seed derivation failed: %w", err)
	}
	d.key = key
	d.generated = 0
	return nil
}

// Read fills p with random bytes. It never returns a short read.
func (d *DRBG) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.generated+len(p) > drbgReseedInterval {
		if err := d.reseedLocked(nil); err != nil {
			return 0, err
		}
	}

	nonce := make([]byte, chacha20.NonceSize)
	c, err := chacha20.NewUnauthenticatedCipher(d.key, nonce)
	if err != nil {
		return 0, fmt.Errorf("DRBG keystream setup failed: %w", err)
	}

	buf := make([]byte, chacha20.KeySize+len(p))
	c.XORKeyStream(buf, buf)
	d.key = buf[:chacha20.KeySize]
	copy(p, buf[chacha20.KeySize:])
	d.generated += len(p)
	return len(p), nil
}

// NewRandom returns the random source registered under alg.
func NewRandom(alg AlgorithmID, seed []byte) (io.Reader, error) {
	switch alg {
	case AlgDRBG:
		return NewDRBG(nil, seed)
	case AlgNativePRNG:
		return rand.Reader, nil
	default:
		return nil, fmt.Errorf("not a random generator: %s", alg)
	}
}
