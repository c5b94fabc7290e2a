// Package cipher is the operation façade over the provider registry: it
// resolves a transformation to a provider engine and drives that engine
// through init, update and finalization.
package cipher

import (
	"errors"
	"fmt"
	"io"

	"github.com/remiblancher/provider-conformance/internal/crypto"
	"github.com/remiblancher/provider-conformance/internal/provider"
)

// ErrIllegalState indicates a handle was used before Init, after
// finalization without a new Init, or in the wrong operation mode.
var ErrIllegalState = errors.New("cipher in illegal state")

type state int

const (
	stateNew state = iota
	stateReady
	stateDone
)

// Cipher is a handle bound to one provider and one engine. It is not safe
// for concurrent use.
type Cipher struct {
	res    *provider.Resolution
	engine crypto.CipherEngine
	op     crypto.OpMode
	state  state
}

// GetInstance resolves transformation against the registry in precedence
// order and returns an uninitialized handle.
func GetInstance(reg *provider.Registry, transformation string) (*Cipher, error) {
	req, err := provider.ParseTransformation(transformation)
	if err != nil {
		return nil, err
	}
	return New(reg, req)
}

// GetInstanceFrom is GetInstance pinned to the named provider.
func GetInstanceFrom(reg *provider.Registry, transformation, providerName string) (*Cipher, error) {
	req, err := provider.ParseTransformation(transformation)
	if err != nil {
		return nil, err
	}
	return New(reg, req.WithProvider(providerName))
}

// New resolves req and builds the provider's engine.
func New(reg *provider.Registry, req provider.Request) (*Cipher, error) {
	req.Type = provider.Cipher
	res, err := reg.Resolve(req)
	if err != nil {
		return nil, err
	}
	engine, err := res.Service.NewCipher(res.Mode, res.Padding)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s engine in %s: %w", res.Transformation(), res.Provider.Name(), err)
	}
	return &Cipher{res: res, engine: engine}, nil
}

// NewOperation resolves req and initializes the handle in one step.
func NewOperation(reg *provider.Registry, req provider.Request, op crypto.OpMode, key crypto.Key, opts ...InitOption) (*Cipher, error) {
	c, err := New(reg, req)
	if err != nil {
		return nil, err
	}
	if err := c.Init(op, key, opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// InitOption configures Init.
type InitOption func(*initOptions)

type initOptions struct {
	iv     []byte
	random io.Reader
}

// WithIV supplies the IV. Required to decrypt in IV modes.
func WithIV(iv []byte) InitOption {
	return func(o *initOptions) { o.iv = iv }
}

// WithRandom sets the source for generated IVs and padding bytes.
func WithRandom(r io.Reader) InitOption {
	return func(o *initOptions) { o.random = r }
}

// Init prepares the handle for op. It may be called again at any time to
// reset the handle.
func (c *Cipher) Init(op crypto.OpMode, key crypto.Key, opts ...InitOption) error {
	switch op {
	case crypto.EncryptMode, crypto.DecryptMode, crypto.WrapMode, crypto.UnwrapMode:
	default:
		return fmt.Errorf("%w: unknown operation mode %d", crypto.ErrInvalidParameter, int(op))
	}

	var o initOptions
	for _, opt := range opts {
		opt(&o)
	}

	c.state = stateNew
	if err := c.engine.Init(op, key, crypto.Params{IV: o.iv}, o.random); err != nil {
		return fmt.Errorf("failed to init %s for %s: %w", c.res.Transformation(), op, err)
	}
	c.op = op
	c.state = stateReady
	return nil
}

func (c *Cipher) ready(ops ...crypto.OpMode) error {
	switch c.state {
	case stateNew:
		return fmt.Errorf("%w: not initialized", ErrIllegalState)
	case stateDone:
		return fmt.Errorf("%w: already finalized, Init required", ErrIllegalState)
	}
	for _, op := range ops {
		if c.op == op {
			return nil
		}
	}
	return fmt.Errorf("%w: initialized for %s", ErrIllegalState, c.op)
}

// Update continues a multi-part encryption or decryption.
func (c *Cipher) Update(in []byte) ([]byte, error) {
	if err := c.ready(crypto.EncryptMode, crypto.DecryptMode); err != nil {
		return nil, err
	}
	return c.engine.Update(in)
}

// DoFinal processes in together with any buffered input, applies or strips
// padding and finalizes the handle.
func (c *Cipher) DoFinal(in []byte) ([]byte, error) {
	if err := c.ready(crypto.EncryptMode, crypto.DecryptMode); err != nil {
		return nil, err
	}
	c.state = stateDone
	return c.engine.Final(in)
}

// Process finalizes over in[offset:offset+length].
func (c *Cipher) Process(in []byte, offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > len(in) {
		return nil, fmt.Errorf("%w: range [%d:%d] out of bounds for %d bytes",
			crypto.ErrInvalidParameter, offset, offset+length, len(in))
	}
	return c.DoFinal(in[offset : offset+length])
}

// Wrap encrypts key's encoded form. The handle must be in wrap mode.
func (c *Cipher) Wrap(key crypto.Key) ([]byte, error) {
	if err := c.ready(crypto.WrapMode); err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("%w: nothing to wrap", crypto.ErrInvalidKey)
	}
	c.state = stateDone
	return c.engine.Final(key.Encoded())
}

// Unwrap decrypts wrapped and rebuilds a key of keyType for alg whose
// Encoded() equals the original's.
func (c *Cipher) Unwrap(wrapped []byte, alg crypto.AlgorithmID, keyType crypto.KeyType) (crypto.Key, error) {
	if err := c.ready(crypto.UnwrapMode); err != nil {
		return nil, err
	}
	c.state = stateDone
	encoded, err := c.engine.Final(wrapped)
	if err != nil {
		return nil, err
	}
	return crypto.ParseKey(alg, keyType, encoded)
}

// IV returns the IV in use, or nil for modes without one.
func (c *Cipher) IV() []byte {
	if c.state == stateNew {
		return nil
	}
	return c.engine.IV()
}

// Provider returns the name of the provider serving the handle.
func (c *Cipher) Provider() string { return c.res.Provider.Name() }

// Transformation returns the canonical "ALG/MODE/PADDING" of the handle.
func (c *Cipher) Transformation() string { return c.res.Transformation() }

// Algorithm returns the resolved algorithm.
func (c *Cipher) Algorithm() crypto.AlgorithmID { return c.res.Service.Algorithm }

// Mode returns the resolved mode.
func (c *Cipher) Mode() crypto.Mode { return c.res.Mode }

// Padding returns the resolved padding.
func (c *Cipher) Padding() crypto.Padding { return c.res.Padding }

// OpMode returns the mode of the last successful Init, or 0.
func (c *Cipher) OpMode() crypto.OpMode { return c.op }

// BlockSize returns the engine block size in bytes, or 0.
func (c *Cipher) BlockSize() int { return c.engine.BlockSize() }

// OutputSize returns an upper bound for DoFinal output given inputLen more
// bytes of input.
func (c *Cipher) OutputSize(inputLen int) int { return c.engine.OutputSize(inputLen) }
