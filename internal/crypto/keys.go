package crypto

import (
	"crypto"
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"fmt"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

// Key encoding formats.
const (
	FormatRaw   = "RAW"
	FormatPKCS8 = "PKCS#8"
	FormatPKIX  = "X.509"
)

// KeyType distinguishes the three key kinds a wrapped blob can hold.
type KeyType int

const (
	SecretKeyType KeyType = iota + 1
	PrivateKeyType
	PublicKeyType
)

// String returns the key type name.
func (t KeyType) String() string {
	switch t {
	case SecretKeyType:
		return "secret"
	case PrivateKeyType:
		return "private"
	case PublicKeyType:
		return "public"
	default:
		return fmt.Sprintf("keytype(%d)", int(t))
	}
}

// Key is key material bound to an algorithm, with a stable encoded form.
// Two keys are the same key when their Encoded() bytes are equal.
type Key interface {
	Algorithm() AlgorithmID
	Format() string
	Encoded() []byte
}

// SecretKey is raw symmetric key material.
type SecretKey struct {
	alg AlgorithmID
	raw []byte
}

var _ Key = (*SecretKey)(nil)

// NewSecretKey creates a secret key. The bytes are copied.
func NewSecretKey(alg AlgorithmID, raw []byte) (*SecretKey, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty secret key", ErrInvalidKey)
	}
	return &SecretKey{alg: alg, raw: append([]byte(nil), raw...)}, nil
}

func (k *SecretKey) Algorithm() AlgorithmID { return k.alg }
func (k *SecretKey) Format() string         { return FormatRaw }

// Encoded returns a copy of the raw key bytes.
func (k *SecretKey) Encoded() []byte { return append([]byte(nil), k.raw...) }

// Bits returns the key length in bits.
func (k *SecretKey) Bits() int { return len(k.raw) * 8 }

// Equal reports whether two secret keys hold the same algorithm and bytes.
func (k *SecretKey) Equal(other *SecretKey) bool {
	if other == nil {
		return false
	}
	return k.alg == other.alg && subtle.ConstantTimeCompare(k.raw, other.raw) == 1
}

// PrivateKey wraps an asymmetric private key with its encoding.
type PrivateKey struct {
	alg     AlgorithmID
	key     crypto.PrivateKey
	encoded []byte
	format  string
}

var _ Key = (*PrivateKey)(nil)

// NewPrivateKey wraps a private key. RSA keys encode as PKCS#8,
// ML-KEM keys as their raw FIPS 203 encoding.
func NewPrivateKey(alg AlgorithmID, key crypto.PrivateKey) (*PrivateKey, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		der, err := x509.MarshalPKCS8PrivateKey(k)
		if err != nil {
			return nil, fmt.Errorf("failed to encode private key: %w", err)
		}
		return &PrivateKey{alg: alg, key: k, encoded: der, format: FormatPKCS8}, nil
	case kem.PrivateKey:
		raw, err := k.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to encode private key: %w", err)
		}
		return &PrivateKey{alg: alg, key: k, encoded: raw, format: FormatRaw}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported private key type: %T", ErrInvalidKey, key)
	}
}

func (k *PrivateKey) Algorithm() AlgorithmID { return k.alg }
func (k *PrivateKey) Format() string         { return k.format }
func (k *PrivateKey) Encoded() []byte        { return append([]byte(nil), k.encoded...) }

// Raw returns the underlying private key.
func (k *PrivateKey) Raw() crypto.PrivateKey { return k.key }

// PublicKey wraps an asymmetric public key with its encoding.
type PublicKey struct {
	alg     AlgorithmID
	key     crypto.PublicKey
	encoded []byte
	format  string
}

var _ Key = (*PublicKey)(nil)

// NewPublicKey wraps a public key. RSA keys encode as SubjectPublicKeyInfo,
// ML-KEM keys as their raw encoding.
func NewPublicKey(alg AlgorithmID, key crypto.PublicKey) (*PublicKey, error) {
	switch k := key.(type) {
	case *rsa.PublicKey:
		der, err := x509.MarshalPKIXPublicKey(k)
		if err != nil {
			return nil, fmt.Errorf("failed to encode public key: %w", err)
		}
		return &PublicKey{alg: alg, key: k, encoded: der, format: FormatPKIX}, nil
	case kem.PublicKey:
		raw, err := k.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to encode public key: %w", err)
		}
		return &PublicKey{alg: alg, key: k, encoded: raw, format: FormatRaw}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported public key type: %T", ErrInvalidKey, key)
	}
}

func (k *PublicKey) Algorithm() AlgorithmID { return k.alg }
func (k *PublicKey) Format() string         { return k.format }
func (k *PublicKey) Encoded() []byte        { return append([]byte(nil), k.encoded...) }

// Raw returns the underlying public key.
func (k *PublicKey) Raw() crypto.PublicKey { return k.key }

// KeyPair holds a public/private key pair.
type KeyPair struct {
	Public  *PublicKey
	Private *PrivateKey
}

// ParseKey rebuilds a key of the given type from its encoded form.
// It is the inverse of Key.Encoded and is used when unwrapping.
func ParseKey(alg AlgorithmID, keyType KeyType, encoded []byte) (Key, error) {
	switch keyType {
	case SecretKeyType:
		return NewSecretKey(alg, encoded)

	case PrivateKeyType:
		switch alg {
		case AlgRSA:
			priv, err := x509.ParsePKCS8PrivateKey(encoded)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			return NewPrivateKey(alg, priv)
		case AlgMLKEM768:
			priv, err := mlkem768.Scheme().UnmarshalBinaryPrivateKey(encoded)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			return NewPrivateKey(alg, priv)
		}

	case PublicKeyType:
		switch alg {
		case AlgRSA:
			pub, err := x509.ParsePKIXPublicKey(encoded)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			return NewPublicKey(alg, pub)
		case AlgMLKEM768:
			pub, err := mlkem768.Scheme().UnmarshalBinaryPublicKey(encoded)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			return NewPublicKey(alg, pub)
		}

	default:
		return nil, fmt.Errorf("unknown key type: %s", keyType)
	}

	return nil, fmt.Errorf("%w: cannot parse %s %s key", ErrInvalidKey, alg, keyType)
}
