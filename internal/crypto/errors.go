package crypto

import "errors"

// Sentinel errors raised by cipher engines and key handling.
// Use errors.Is() to check for these errors through the error chain.
var (
	// ErrInvalidKey indicates the key type or size does not fit the algorithm.
	ErrInvalidKey = errors.New("invalid key")

	// ErrPadding indicates malformed padding or ciphertext that is not
	// block-aligned under a padding scheme.
	ErrPadding = errors.New("bad padding")

	// ErrIllegalBlockSize indicates unaligned input for an unpadded block mode.
	ErrIllegalBlockSize = errors.New("input length not a multiple of block size")

	// ErrInvalidParameter indicates a missing or malformed algorithm parameter
	// such as an IV of the wrong length.
	ErrInvalidParameter = errors.New("invalid algorithm parameter")

	// ErrUnsupportedOperation indicates the engine cannot run in the requested
	// operation mode (e.g. a wrap-only engine asked to encrypt).
	ErrUnsupportedOperation = errors.New("unsupported operation")
)
