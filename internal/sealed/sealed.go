// Package sealed provides an encrypted envelope around a serializable value.
//
// The payload is CBOR-encoded, followed by its SHA-256 digest, and the
// result is encrypted with a caller-initialized cipher. The envelope records
// the transformation, provider and IV needed to open it again.
package sealed

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/remiblancher/provider-conformance/internal/cipher"
	"github.com/remiblancher/provider-conformance/internal/crypto"
	"github.com/remiblancher/provider-conformance/internal/provider"
)

// ErrIntegrity indicates the envelope could not be opened to the value it
// was sealed with: bad padding, a digest mismatch or an undecodable payload,
// typically caused by a wrong key.
var ErrIntegrity = errors.New("sealed object integrity check failed")

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("sealed: CBOR encoder: %v", err))
	}
}

// Object is a sealed value. It is immutable: accessors return copies and
// opening never modifies it.
type Object struct {
	ciphertext     []byte
	transformation string
	provider       string
	iv             []byte
}

// Seal encrypts payload with c, which must be initialized for encryption.
// c is finalized by the call.
func Seal(payload any, c *cipher.Cipher) (*Object, error) {
	if c == nil || c.OpMode() != crypto.EncryptMode {
		return nil, fmt.Errorf("%w: sealing requires a cipher initialized for encryption", cipher.ErrIllegalState)
	}

	data, err := encMode.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	digest := sha256.Sum256(data)

	ct, err := c.DoFinal(append(data, digest[:]...))
	if err != nil {
		return nil, fmt.Errorf("failed to seal payload: %w", err)
	}

	return &Object{
		ciphertext:     ct,
		transformation: c.Transformation(),
		provider:       c.Provider(),
		iv:             c.IV(),
	}, nil
}

// Open decrypts with c, which must be initialized for decryption with the
// envelope's IV, and decodes the payload into out.
func (o *Object) Open(c *cipher.Cipher, out any) error {
	if c == nil || c.OpMode() != crypto.DecryptMode {
		return fmt.Errorf("%w: opening requires a cipher initialized for decryption", cipher.ErrIllegalState)
	}
	return o.open(c, out)
}

// OpenWithKey rebuilds the cipher from the recorded transformation using
// registry precedence, then opens the envelope.
func (o *Object) OpenWithKey(reg *provider.Registry, key crypto.Key, out any) error {
	return o.OpenWithProvider(reg, key, "", out)
}

// OpenWithProvider is OpenWithKey pinned to the named provider. An empty
// name uses registry precedence.
func (o *Object) OpenWithProvider(reg *provider.Registry, key crypto.Key, providerName string, out any) error {
	req, err := provider.ParseTransformation(o.transformation)
	if err != nil {
		return err
	}
	c, err := cipher.NewOperation(reg, req.WithProvider(providerName), crypto.DecryptMode, key, cipher.WithIV(o.IV()))
	if err != nil {
		return err
	}
	return o.open(c, out)
}

func (o *Object) open(c *cipher.Cipher, out any) error {
	plain, err := c.DoFinal(o.Ciphertext())
	if err != nil {
		if errors.Is(err, crypto.ErrPadding) || errors.Is(err, crypto.ErrIllegalBlockSize) {
			return fmt.Errorf("%w: %v", ErrIntegrity, err)
		}
		return fmt.Errorf("failed to decrypt sealed object: %w", err)
	}

	if len(plain) < sha256.Size {
		return fmt.Errorf("%w: plaintext shorter than digest", ErrIntegrity)
	}
	data, digest := plain[:len(plain)-sha256.Size], plain[len(plain)-sha256.Size:]
	sum := sha256.Sum256(data)
	if subtle.ConstantTimeCompare(sum[:], digest) != 1 {
		return fmt.Errorf("%w: digest mismatch", ErrIntegrity)
	}

	if err := cbor.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return nil
}

// Ciphertext returns a copy of the encrypted payload.
func (o *Object) Ciphertext() []byte { return append([]byte(nil), o.ciphertext...) }

// Transformation returns the transformation the object was sealed with.
func (o *Object) Transformation() string { return o.transformation }

// Provider returns the name of the sealing provider.
func (o *Object) Provider() string { return o.provider }

// IV returns a copy of the IV, or nil.
func (o *Object) IV() []byte {
	if o.iv == nil {
		return nil
	}
	return append([]byte(nil), o.iv...)
}
