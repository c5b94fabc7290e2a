package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"
)

var (
	// defaultWrapIV is the RFC 3394 initial value.
	defaultWrapIV = []byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

	// padWrapMagic is the RFC 5649 alternative initial value prefix.
	padWrapMagic = []byte{0xA6, 0x59, 0x59, 0xA6}
)

// AESKeyWrap wraps key under kek using AES Key Wrap (RFC 3394).
// The key must be at least 16 bytes and a multiple of 8.
func AESKeyWrap(kek, key []byte) ([]byte, error) {
	if len(key)%8 != 0 || len(key) < 16 {
		return nil, fmt.Errorf("%w: RFC 3394 input must be a multiple of 8 and at least 16 bytes, got %d",
			ErrIllegalBlockSize, len(key))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return wrapBlocks(block, defaultWrapIV, key), nil
}

// AESKeyUnwrap reverses AESKeyWrap and checks the integrity value.
func AESKeyUnwrap(kek, wrapped []byte) ([]byte, error) {
	if len(wrapped) < 24 || len(wrapped)%8 != 0 {
		return nil, fmt.Errorf("%w: invalid wrapped key length %d", ErrPadding, len(wrapped))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	a, out := unwrapBlocks(block, wrapped)
	if subtle.ConstantTimeCompare(a, defaultWrapIV) != 1 {
		return nil, fmt.Errorf("%w: key unwrap integrity check failed", ErrPadding)
	}
	return out, nil
}

// AESKeyWrapPad wraps key of any non-zero length (RFC 5649).
func AESKeyWrapPad(kek, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: nothing to wrap", ErrIllegalBlockSize)
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	aiv := make([]byte, 8)
	copy(aiv, padWrapMagic)
	binary.BigEndian.PutUint32(aiv[4:], uint32(len(key)))

	padded := make([]byte, (len(key)+7)/8*8)
	copy(padded, key)

	if len(padded) == 8 {
		out := make([]byte, 16)
		copy(out, aiv)
		copy(out[8:], padded)
		block.Encrypt(out, out)
		return out, nil
	}
	return wrapBlocks(block, aiv, padded), nil
}

// AESKeyUnwrapPad reverses AESKeyWrapPad.
func AESKeyUnwrapPad(kek, wrapped []byte) ([]byte, error) {
	if len(wrapped) < 16 || len(wrapped)%8 != 0 {
		return nil, fmt.Errorf("%w: invalid wrapped key length %d", ErrPadding, len(wrapped))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	var a, padded []byte
	if len(wrapped) == 16 {
		buf := make([]byte, 16)
		block.Decrypt(buf, wrapped)
		a, padded = buf[:8], buf[8:]
	} else {
		a, padded = unwrapBlocks(block, wrapped)
	}

	if subtle.ConstantTimeCompare(a[:4], padWrapMagic) != 1 {
		return nil, fmt.Errorf("%w: key unwrap integrity check failed", ErrPadding)
	}
	mli := int(binary.BigEndian.Uint32(a[4:]))
	if mli > len(padded) || mli <= len(padded)-8 {
		return nil, fmt.Errorf("%w: invalid message length indicator", ErrPadding)
	}
	for _, b := range padded[mli:] {
		if b != 0 {
			return nil, fmt.Errorf("%w: non-zero wrap padding", ErrPadding)
		}
	}
	return padded[:mli], nil
}

// wrapBlocks runs the RFC 3394 wrapping process W with initial value iv.
func wrapBlocks(block cipher.Block, iv, plain []byte) []byte {
	n := len(plain) / 8
	a := append([]byte(nil), iv...)
	r := append([]byte(nil), plain...)
	buf := make([]byte, 16)

	for j := 0; j < 6; j++ {
		for i := 1; i <= n; i++ {
			copy(buf[:8], a)
			copy(buf[8:], r[(i-1)*8:i*8])
			block.Encrypt(buf, buf)

			t := uint64(n*j + i)
			for k := 0; k < 8; k++ {
				buf[k] ^= byte(t >> (56 - 8*k))
			}
			copy(a, buf[:8])
			copy(r[(i-1)*8:i*8], buf[8:])
		}
	}

	return append(a, r...)
}

// unwrapBlocks runs the RFC 3394 unwrapping process W-1 and returns the
// recovered initial value and plaintext blocks.
func unwrapBlocks(block cipher.Block, wrapped []byte) ([]byte, []byte) {
	n := len(wrapped)/8 - 1
	a := append([]byte(nil), wrapped[:8]...)
	r := append([]byte(nil), wrapped[8:]...)
	buf := make([]byte, 16)

	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i)
			for k := 0; k < 8; k++ {
				a[k] ^= byte(t >> (56 - 8*k))
			}
			copy(buf[:8], a)
			copy(buf[8:], r[(i-1)*8:i*8])
			block.Decrypt(buf, buf)
			copy(a, buf[:8])
			copy(r[(i-1)*8:i*8], buf[8:])
		}
	}

	return a, r
}

// KeyWrapEngine exposes RFC 3394 or RFC 5649 wrapping as a cipher engine.
// It only runs in wrap and unwrap modes.
type KeyWrapEngine struct {
	alg AlgorithmID

	op  OpMode
	kek []byte
	buf []byte
}

// Ensure KeyWrapEngine implements CipherEngine.
var _ CipherEngine = (*KeyWrapEngine)(nil)

// NewKeyWrapEngine creates an engine for AESWrap or AESWrapPad.
func NewKeyWrapEngine(alg AlgorithmID) (*KeyWrapEngine, error) {
	if alg != AlgAESWrap && alg != AlgAESWrapPad {
		return nil, fmt.Errorf("not a key wrap algorithm: %s", alg)
	}
	return &KeyWrapEngine{alg: alg}, nil
}

// Init implements CipherEngine.
func (e *KeyWrapEngine) Init(op OpMode, key Key, params Params, _ io.Reader) error {
	if op != WrapMode && op != UnwrapMode {
		return fmt.Errorf("%w: %s only supports wrap and unwrap, not %s", ErrUnsupportedOperation, e.alg, op)
	}
	if params.IV != nil {
		return fmt.Errorf("%w: %s uses a fixed initial value", ErrInvalidParameter, e.alg)
	}
	kek, err := secretKeyBytes(e.alg, key)
	if err != nil {
		return err
	}
	if _, err := aes.NewCipher(kek); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	e.op = op
	e.kek = kek
	e.buf = nil
	return nil
}

// Update implements CipherEngine. Wrapping is all-or-nothing.
func (e *KeyWrapEngine) Update(in []byte) ([]byte, error) {
	if e.op == 0 {
		return nil, fmt.Errorf("engine not initialized")
	}
	e.buf = append(e.buf, in...)
	return []byte{}, nil
}

// Final implements CipherEngine.
func (e *KeyWrapEngine) Final(in []byte) ([]byte, error) {
	if e.op == 0 {
		return nil, fmt.Errorf("engine not initialized")
	}
	data := append(e.buf, in...)
	e.buf = nil

	switch {
	case e.alg == AlgAESWrap && e.op == WrapMode:
		return AESKeyWrap(e.kek, data)
	case e.alg == AlgAESWrap:
		return AESKeyUnwrap(e.kek, data)
	case e.op == WrapMode:
		return AESKeyWrapPad(e.kek, data)
	default:
		return AESKeyUnwrapPad(e.kek, data)
	}
}

// IV implements CipherEngine.
func (e *KeyWrapEngine) IV() []byte { return nil }

// BlockSize implements CipherEngine.
func (e *KeyWrapEngine) BlockSize() int { return 8 }

// OutputSize implements CipherEngine.
func (e *KeyWrapEngine) OutputSize(inputLen int) int {
	total := len(e.buf) + inputLen
	if e.op == WrapMode {
		return (total+7)/8*8 + 8
	}
	return total
}
