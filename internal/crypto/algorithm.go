// Package crypto provides the cipher engines, key types and key generation
// used by the built-in providers.
// It covers classical block ciphers (DES, DESede, AES, Blowfish), RSA,
// RFC 3394/5649 key wrap, ML-KEM-768 key wrap via the cloudflare/circl
// library, and a ChaCha20-based DRBG.
package crypto

import (
	"fmt"
	"strings"
)

// AlgorithmID identifies a cryptographic algorithm by its standard name.
type AlgorithmID string

// Symmetric block ciphers.
const (
	AlgDES      AlgorithmID = "DES"
	AlgDESede   AlgorithmID = "DESede"
	AlgAES      AlgorithmID = "AES"
	AlgBlowfish AlgorithmID = "Blowfish"
)

// Asymmetric ciphers and key encapsulation.
const (
	AlgRSA      AlgorithmID = "RSA"
	AlgMLKEM768 AlgorithmID = "MLKEM768"
)

// Key wrap algorithms.
const (
	AlgAESWrap    AlgorithmID = "AESWrap"    // RFC 3394
	AlgAESWrapPad AlgorithmID = "AESWrapPad" // RFC 5649
)

// Random generators.
const (
	AlgDRBG       AlgorithmID = "DRBG"
	AlgNativePRNG AlgorithmID = "NativePRNG"
)

// AlgorithmType categorizes algorithms.
type AlgorithmType int

const (
	TypeUnknown AlgorithmType = iota
	TypeBlockCipher
	TypeAsymmetricCipher
	TypeKeyWrap
	TypeKEM
	TypeRandom
)

// algorithmInfo holds metadata about an algorithm.
type algorithmInfo struct {
	Type           AlgorithmType
	BlockSize      int   // bytes, 0 for non-block algorithms
	KeySizes       []int // accepted key sizes in bits
	DefaultKeySize int
	Description    string
}

// algorithms maps AlgorithmID to its metadata.
var algorithms = map[AlgorithmID]algorithmInfo{
	AlgDES: {
		Type:           TypeBlockCipher,
		BlockSize:      8,
		KeySizes:       []int{56},
		DefaultKeySize: 56,
		Description:    "DES (FIPS 46-3, legacy)",
	},
	AlgDESede: {
		Type:           TypeBlockCipher,
		BlockSize:      8,
		KeySizes:       []int{112, 168},
		DefaultKeySize: 168,
		Description:    "Triple DES, two-key or three-key",
	},
	AlgAES: {
		Type:           TypeBlockCipher,
		BlockSize:      16,
		KeySizes:       []int{128, 192, 256},
		DefaultKeySize: 128,
		Description:    "AES (FIPS 197)",
	},
	AlgBlowfish: {
		Type:           TypeBlockCipher,
		BlockSize:      8,
		KeySizes:       []int{32, 64, 128, 256, 448},
		DefaultKeySize: 128,
		Description:    "Blowfish",
	},

	AlgRSA: {
		Type:           TypeAsymmetricCipher,
		KeySizes:       []int{512, 1024, 2048, 3072, 4096},
		DefaultKeySize: 2048,
		Description:    "RSA (PKCS#1)",
	},
	AlgMLKEM768: {
		Type:        TypeKEM,
		Description: "ML-KEM-768 (FIPS 203, NIST Level 3)",
	},

	AlgAESWrap: {
		Type:           TypeKeyWrap,
		BlockSize:      8,
		KeySizes:       []int{128, 192, 256},
		DefaultKeySize: 128,
		Description:    "AES Key Wrap (RFC 3394)",
	},
	AlgAESWrapPad: {
		Type:           TypeKeyWrap,
		BlockSize:      8,
		KeySizes:       []int{128, 192, 256},
		DefaultKeySize: 128,
		Description:    "AES Key Wrap with Padding (RFC 5649)",
	},

	AlgDRBG: {
		Type:        TypeRandom,
		Description: "ChaCha20 deterministic random bit generator",
	},
	AlgNativePRNG: {
		Type:        TypeRandom,
		Description: "Operating system CSPRNG",
	},
}

// ParseAlgorithm looks up an algorithm by name, ignoring case.
func ParseAlgorithm(name string) (AlgorithmID, error) {
	for alg := range algorithms {
		if strings.EqualFold(string(alg), name) {
			return alg, nil
		}
	}
	return "", fmt.Errorf("unknown algorithm: %s", name)
}

// IsValid returns true if the algorithm is recognized.
func (a AlgorithmID) IsValid() bool {
	_, ok := algorithms[a]
	return ok
}

// Type returns the algorithm type.
func (a AlgorithmID) Type() AlgorithmType {
	if info, ok := algorithms[a]; ok {
		return info.Type
	}
	return TypeUnknown
}

// BlockSize returns the cipher block size in bytes, or 0.
func (a AlgorithmID) BlockSize() int {
	return algorithms[a].BlockSize
}

// KeySizes returns the accepted key sizes in bits.
func (a AlgorithmID) KeySizes() []int {
	return algorithms[a].KeySizes
}

// DefaultKeySize returns the key size used when none is requested.
func (a AlgorithmID) DefaultKeySize() int {
	return algorithms[a].DefaultKeySize
}

// ValidKeySize reports whether bits is an accepted key size.
func (a AlgorithmID) ValidKeySize(bits int) bool {
	for _, s := range algorithms[a].KeySizes {
		if s == bits {
			return true
		}
	}
	return false
}

// Description returns a human-readable description of the algorithm.
func (a AlgorithmID) Description() string {
	if info, ok := algorithms[a]; ok {
		return info.Description
	}
	return "Unknown algorithm"
}

// String returns the algorithm name.
func (a AlgorithmID) String() string {
	return string(a)
}

// AllAlgorithms returns every known algorithm.
func AllAlgorithms() []AlgorithmID {
	result := make([]AlgorithmID, 0, len(algorithms))
	for alg := range algorithms {
		result = append(result, alg)
	}
	return result
}

// Mode is a block cipher mode of operation.
type Mode string

const (
	ModeECB Mode = "ECB"
	ModeCBC Mode = "CBC"
	ModeCTR Mode = "CTR"
	ModeOFB Mode = "OFB"
	ModeCFB Mode = "CFB"
)

// NeedsIV reports whether the mode is parameterized by an IV.
func (m Mode) NeedsIV() bool {
	switch m {
	case ModeCBC, ModeCTR, ModeOFB, ModeCFB:
		return true
	}
	return false
}

// IsStream reports whether the mode turns the block cipher into a stream
// cipher, so output length always equals input length.
func (m Mode) IsStream() bool {
	switch m {
	case ModeCTR, ModeOFB, ModeCFB:
		return true
	}
	return false
}

// Padding is a padding scheme name.
type Padding string

const (
	NoPadding       Padding = "NoPadding"
	PKCS5Padding    Padding = "PKCS5Padding"
	ISO10126Padding Padding = "ISO10126Padding"
	PKCS1Padding    Padding = "PKCS1Padding"
	OAEPPadding     Padding = "OAEPPadding"
)

// OpMode is the operation a cipher engine is initialized for.
type OpMode int

const (
	EncryptMode OpMode = iota + 1
	DecryptMode
	WrapMode
	UnwrapMode
)

// String returns the operation name.
func (o OpMode) String() string {
	switch o {
	case EncryptMode:
		return "encrypt"
	case DecryptMode:
		return "decrypt"
	case WrapMode:
		return "wrap"
	case UnwrapMode:
		return "unwrap"
	default:
		return fmt.Sprintf("opmode(%d)", int(o))
	}
}

// Encrypting reports whether the operation produces ciphertext.
func (o OpMode) Encrypting() bool {
	return o == EncryptMode || o == WrapMode
}
