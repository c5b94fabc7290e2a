package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

// RSACipherEngine encrypts with an RSA public key and decrypts with the
// private key, using PKCS#1 v1.5 or OAEP (SHA-256) padding.
// Input is buffered; the RSA operation runs in Final.
type RSACipherEngine struct {
	padding Padding

	op     OpMode
	pub    *rsa.PublicKey
	priv   *rsa.PrivateKey
	random io.Reader
	buf    []byte
}

// Ensure RSACipherEngine implements CipherEngine.
var _ CipherEngine = (*RSACipherEngine)(nil)

// NewRSACipherEngine creates an RSA engine. Only ECB mode is meaningful.
func NewRSACipherEngine(mode Mode, padding Padding) (*RSACipherEngine, error) {
	if mode != ModeECB {
		return nil, fmt.Errorf("%w: RSA supports only ECB mode", ErrInvalidParameter)
	}
	if padding != PKCS1Padding && padding != OAEPPadding {
		return nil, fmt.Errorf("%w: RSA padding %s not supported", ErrInvalidParameter, padding)
	}
	return &RSACipherEngine{padding: padding}, nil
}

// Init implements CipherEngine.
func (e *RSACipherEngine) Init(op OpMode, key Key, params Params, random io.Reader) error {
	if params.IV != nil {
		return fmt.Errorf("%w: RSA does not take an IV", ErrInvalidParameter)
	}
	if key == nil || key.Algorithm() != AlgRSA {
		return fmt.Errorf("%w: RSA cipher requires an RSA key", ErrInvalidKey)
	}

	e.pub, e.priv = nil, nil
	if op.Encrypting() {
		pk, ok := key.(*PublicKey)
		if !ok {
			return fmt.Errorf("%w: RSA %s requires a public key", ErrInvalidKey, op)
		}
		if e.pub, ok = pk.Raw().(*rsa.PublicKey); !ok {
			return fmt.Errorf("%w: not an RSA public key: %T", ErrInvalidKey, pk.Raw())
		}
	} else {
		sk, ok := key.(*PrivateKey)
		if !ok {
			return fmt.Errorf("%w: RSA %s requires a private key", ErrInvalidKey, op)
		}
		if e.priv, ok = sk.Raw().(*rsa.PrivateKey); !ok {
			return fmt.Errorf("%w: not an RSA private key: %T", ErrInvalidKey, sk.Raw())
		}
	}

	if random == nil {
		random = rand.Reader
	}
	e.op = op
	e.random = random
	e.buf = nil
	return nil
}

// Update implements CipherEngine. RSA produces no output until Final.
func (e *RSACipherEngine) Update(in []byte) ([]byte, error) {
	if e.op == 0 {
		return nil, fmt.Errorf("engine not initialized")
	}
	e.buf = append(e.buf, in...)
	return []byte{}, nil
}

// Final implements CipherEngine.
func (e *RSACipherEngine) Final(in []byte) ([]byte, error) {
	if e.op == 0 {
		return nil, fmt.Errorf("engine not initialized")
	}
	data := append(e.buf, in...)
	e.buf = nil

	if e.op.Encrypting() {
		var out []byte
		var err error
		if e.padding == OAEPPadding {
			out, err = rsa.EncryptOAEP(sha256.New(), e.random, e.pub, data, nil)
		} else {
			out, err = rsa.EncryptPKCS1v15(e.random, e.pub, data)
		}
		if errors.Is(err, rsa.ErrMessageTooLong) {
			return nil, fmt.Errorf("%w: %v", ErrIllegalBlockSize, err)
		}
		return out, err
	}

	var out []byte
	var err error
	if e.padding == OAEPPadding {
		out, err = rsa.DecryptOAEP(sha256.New(), e.random, e.priv, data, nil)
	} else {
		out, err = rsa.DecryptPKCS1v15(e.random, e.priv, data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPadding, err)
	}
	return out, nil
}

// IV implements CipherEngine.
func (e *RSACipherEngine) IV() []byte { return nil }

// BlockSize implements CipherEngine.
func (e *RSACipherEngine) BlockSize() int { return 0 }

// OutputSize implements CipherEngine.
func (e *RSACipherEngine) OutputSize(inputLen int) int {
	switch {
	case e.pub != nil:
		return e.pub.Size()
	case e.priv != nil:
		return e.priv.Size()
	}
	return len(e.buf) + inputLen
}
