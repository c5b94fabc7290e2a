package crypto

import (
	"fmt"
	"io"
)

// pad appends padding to data so its length is a multiple of blockSize.
// NoPadding is rejected with ErrIllegalBlockSize when data is unaligned.
func pad(padding Padding, data []byte, blockSize int, random io.Reader) ([]byte, error) {
	switch padding {
	case NoPadding:
		if len(data)%blockSize != 0 {
			return nil, fmt.Errorf("%w: %d bytes with block size %d", ErrIllegalBlockSize, len(data), blockSize)
		}
		return data, nil

	case PKCS5Padding:
		n := blockSize - len(data)%blockSize
		out := make([]byte, len(data)+n)
		copy(out, data)
		for i := len(data); i < len(out); i++ {
			out[i] = byte(n)
		}
		return out, nil

	case ISO10126Padding:
		n := blockSize - len(data)%blockSize
		out := make([]byte, len(data)+n)
		copy(out, data)
		if n > 1 {
			if _, err := io.ReadFull(random, out[len(data):len(out)-1]); err != nil {
				return nil, fmt.Errorf("failed to read padding bytes: %w", err)
			}
		}
		out[len(out)-1] = byte(n)
		return out, nil

	default:
		return nil, fmt.Errorf("%w: unsupported padding %s", ErrInvalidParameter, padding)
	}
}

// unpad strips padding from a block-aligned plaintext.
func unpad(padding Padding, data []byte, blockSize int) ([]byte, error) {
	if padding == NoPadding {
		return data, nil
	}
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: padded input length %d", ErrPadding, len(data))
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("%w: invalid pad length %d", ErrPadding, n)
	}

	switch padding {
	case PKCS5Padding:
		for _, b := range data[len(data)-n:] {
			if int(b) != n {
				return nil, fmt.Errorf("%w: inconsistent PKCS#5 pad bytes", ErrPadding)
			}
		}
	case ISO10126Padding:
		// Only the final length byte is defined.
	default:
		return nil, fmt.Errorf("%w: unsupported padding %s", ErrInvalidParameter, padding)
	}

	return data[:len(data)-n], nil
}
