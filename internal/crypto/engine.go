package crypto

import (
	"fmt"
	"io"
)

// Params carries algorithm parameters for engine initialization.
type Params struct {
	// IV is the initialization vector. Encrypting engines generate one
	// when it is nil and the mode needs it.
	IV []byte
}

// CipherEngine is the provider-side implementation of a cipher
// transformation. A provider service constructs one engine per handle.
//
// Engines are stateful and not safe for concurrent use. Init resets all
// state, including anything buffered by Update.
type CipherEngine interface {
	// Init prepares the engine for op with the given key and parameters.
	// random supplies IVs and padding bytes; nil means crypto/rand.
	Init(op OpMode, key Key, params Params, random io.Reader) error

	// Update processes input and returns whatever output is available.
	// Block modes may buffer a partial block.
	Update(in []byte) ([]byte, error)

	// Final processes the remaining input, applies or strips padding,
	// and returns the rest of the output.
	Final(in []byte) ([]byte, error)

	// IV returns the IV in use, or nil for modes without one.
	IV() []byte

	// BlockSize returns the block size in bytes, or 0 for non-block engines.
	BlockSize() int

	// OutputSize returns an upper bound for the output of Final(in)
	// where len(in) == inputLen.
	OutputSize(inputLen int) int
}

// keyCompatible reports whether a key generated for keyAlg may drive an
// engine for engineAlg.
func keyCompatible(engineAlg, keyAlg AlgorithmID) bool {
	if engineAlg == keyAlg {
		return true
	}
	isAES := func(a AlgorithmID) bool {
		return a == AlgAES || a == AlgAESWrap || a == AlgAESWrapPad
	}
	return isAES(engineAlg) && isAES(keyAlg)
}

// secretKeyBytes extracts raw bytes from a symmetric key usable by alg.
func secretKeyBytes(alg AlgorithmID, key Key) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: key is nil", ErrInvalidKey)
	}
	if key.Format() != FormatRaw {
		return nil, fmt.Errorf("%w: %s requires a secret key, got %s encoding", ErrInvalidKey, alg, key.Format())
	}
	if !keyCompatible(alg, key.Algorithm()) {
		return nil, fmt.Errorf("%w: %s key cannot be used with %s", ErrInvalidKey, key.Algorithm(), alg)
	}
	return key.Encoded(), nil
}
