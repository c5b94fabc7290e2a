package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"golang.org/x/crypto/hkdf"
)

// kemWrapInfo binds derived KEKs to this construction.
var kemWrapInfo = []byte("provider-conformance MLKEM768 key wrap")

// KEMWrapEngine wraps keys to an ML-KEM-768 public key.
//
// Wrapped form: KEM ciphertext || AESWrapPad(HKDF-SHA256(shared secret), key).
type KEMWrapEngine struct {
	scheme kem.Scheme

	op   OpMode
	pub  kem.PublicKey
	priv kem.PrivateKey
	buf  []byte
}

// Ensure KEMWrapEngine implements CipherEngine.
var _ CipherEngine = (*KEMWrapEngine)(nil)

// NewKEMWrapEngine creates an ML-KEM-768 wrap engine.
func NewKEMWrapEngine() *KEMWrapEngine {
	return &KEMWrapEngine{scheme: mlkem768.Scheme()}
}

// Init implements CipherEngine.
func (e *KEMWrapEngine) Init(op OpMode, key Key, params Params, _ io.Reader) error {
	if op != WrapMode && op != UnwrapMode {
		return fmt.Errorf("%w: %s only supports wrap and unwrap, not %s", ErrUnsupportedOperation, AlgMLKEM768, op)
	}
	if params.IV != nil {
		return fmt.Errorf("%w: %s does not take an IV", ErrInvalidParameter, AlgMLKEM768)
	}
	if key == nil || key.Algorithm() != AlgMLKEM768 {
		return fmt.Errorf("%w: %s requires an ML-KEM-768 key", ErrInvalidKey, AlgMLKEM768)
	}

	e.pub, e.priv = nil, nil
	var ok bool
	if op == WrapMode {
		pk, isPub := key.(*PublicKey)
		if !isPub {
			return fmt.Errorf("%w: wrapping requires the public key", ErrInvalidKey)
		}
		if e.pub, ok = pk.Raw().(kem.PublicKey); !ok {
			return fmt.Errorf("%w: public key does not implement kem.PublicKey: %T", ErrInvalidKey, pk.Raw())
		}
	} else {
		sk, isPriv := key.(*PrivateKey)
		if !isPriv {
			return fmt.Errorf("%w: unwrapping requires the private key", ErrInvalidKey)
		}
		if e.priv, ok = sk.Raw().(kem.PrivateKey); !ok {
			return fmt.Errorf("%w: private key does not implement kem.PrivateKey: %T", ErrInvalidKey, sk.Raw())
		}
	}

	e.op = op
	e.buf = nil
	return nil
}

// Update implements CipherEngine.
func (e *KEMWrapEngine) Update(in []byte) ([]byte, error) {
	if e.op == 0 {
		return nil, fmt.Errorf("engine not initialized")
	}
	e.buf = append(e.buf, in...)
	return []byte{}, nil
}

// Final implements CipherEngine.
func (e *KEMWrapEngine) Final(in []byte) ([]byte, error) {
	if e.op == 0 {
		return nil, fmt.Errorf("engine not initialized")
	}
	data := append(e.buf, in...)
	e.buf = nil

	if e.op == WrapMode {
		ct, ss, err := e.scheme.Encapsulate(e.pub)
		if err != nil {
			return nil, fmt.Errorf("%s encapsulation failed: %w", AlgMLKEM768, err)
		}
		kek, err := deriveKEK(ss)
		if err != nil {
			return nil, err
		}
		wrapped, err := AESKeyWrapPad(kek, data)
		if err != nil {
			return nil, err
		}
		return append(ct, wrapped...), nil
	}

	ctSize := e.scheme.CiphertextSize()
	if len(data) <= ctSize {
		return nil, fmt.Errorf("%w: wrapped key too short", ErrPadding)
	}
	ss, err := e.scheme.Decapsulate(e.priv, data[:ctSize])
	if err != nil {
		return nil, fmt.Errorf("%s decapsulation failed: %w", AlgMLKEM768, err)
	}
	kek, err := deriveKEK(ss)
	if err != nil {
		return nil, err
	}
	return AESKeyUnwrapPad(kek, data[ctSize:])
}

// deriveKEK derives a 256-bit AES key-encryption key from a KEM shared secret.
func deriveKEK(sharedSecret []byte) ([]byte, error) {
	kdf := hkdf.New(sha256.New, sharedSecret, nil, kemWrapInfo)
	kek := make([]byte, 32)
	if _, err := io.ReadFull(kdf, kek); err != nil {
		return nil, fmt.Errorf("HKDF failed: %w", err)
	}
	return kek, nil
}

// IV implements CipherEngine.
func (e *KEMWrapEngine) IV() []byte { return nil }

// BlockSize implements CipherEngine.
func (e *KEMWrapEngine) BlockSize() int { return 0 }

// OutputSize implements CipherEngine.
func (e *KEMWrapEngine) OutputSize(inputLen int) int {
	total := len(e.buf) + inputLen
	if e.op == WrapMode {
		return e.scheme.CiphertextSize() + (total+7)/8*8 + 8
	}
	return total
}
