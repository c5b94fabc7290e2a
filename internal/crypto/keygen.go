package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

// GenerateSecretKey generates a symmetric key using crypto/rand.
// If bits is 0 the algorithm's default key size is used.
//
// Example:
//
//	key, err := crypto.GenerateSecretKey(crypto.AlgDESede, 168)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Generated %d-bit %s key\n", key.Bits(), key.Algorithm())
func GenerateSecretKey(alg AlgorithmID, bits int) (*SecretKey, error) {
	return GenerateSecretKeyWithRand(rand.Reader, alg, bits)
}

// GenerateSecretKeyWithRand generates a symmetric key using the provided random source.
// This is useful for testing with deterministic randomness.
func GenerateSecretKeyWithRand(random io.Reader, alg AlgorithmID, bits int) (*SecretKey, error) {
	switch alg.Type() {
	case TypeBlockCipher, TypeKeyWrap:
	default:
		return nil, fmt.Errorf("not a symmetric algorithm: %s", alg)
	}
	if random == nil {
		random = rand.Reader
	}
	if bits == 0 {
		bits = alg.DefaultKeySize()
	}
	if !alg.ValidKeySize(bits) {
		return nil, fmt.Errorf("%w: %s does not support %d-bit keys", ErrInvalidParameter, alg, bits)
	}

	n := bits / 8
	switch alg {
	case AlgDES:
		n = 8 // 56 effective bits plus parity
	case AlgDESede:
		n = bits / 7 // 112 -> 16 bytes, 168 -> 24 bytes
	}

	raw := make([]byte, n)
	if _, err := io.ReadFull(random, raw); err != nil {
		return nil, fmt.Errorf("failed to generate %s key: %w", alg, err)
	}
	if alg == AlgDES || alg == AlgDESede {
		setOddParity(raw)
	}

	return NewSecretKey(alg, raw)
}

// setOddParity adjusts the low bit of every byte so each has odd parity,
// as DES key schedules expect.
func setOddParity(key []byte) {
	for i, b := range key {
		b &^= 1
		ones := 0
		for v := b; v != 0; v >>= 1 {
			ones += int(v & 1)
		}
		if ones%2 == 0 {
			b |= 1
		}
		key[i] = b
	}
}

// GenerateKeyPair generates an asymmetric key pair using crypto/rand.
func GenerateKeyPair(alg AlgorithmID, bits int) (*KeyPair, error) {
	return GenerateKeyPairWithRand(rand.Reader, alg, bits)
}

// GenerateKeyPairWithRand generates a key pair using the provided random source.
//
// Supported algorithms:
//   - RSA: 512 to 4096 bits (sizes below 1024 require GODEBUG=rsa1024min=0)
//   - MLKEM768: bits is ignored
func GenerateKeyPairWithRand(random io.Reader, alg AlgorithmID, bits int) (*KeyPair, error) {
	if random == nil {
		random = rand.Reader
	}

	switch alg {
	case AlgRSA:
		if bits == 0 {
			bits = alg.DefaultKeySize()
		}
		if !alg.ValidKeySize(bits) {
			return nil, fmt.Errorf("%w: RSA does not support %d-bit keys", ErrInvalidParameter, bits)
		}
		priv, err := rsa.GenerateKey(random, bits)
		if err != nil {
			return nil, fmt.Errorf("failed to generate RSA key: %w", err)
		}
		return newKeyPair(alg, priv, &priv.PublicKey)

	case AlgMLKEM768:
		pub, priv, err := mlkem768.GenerateKeyPair(random)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ML-KEM-768 key: %w", err)
		}
		return newKeyPair(alg, priv, pub)

	default:
		return nil, fmt.Errorf("key pair generation not implemented for: %s", alg)
	}
}

func newKeyPair(alg AlgorithmID, priv, pub any) (*KeyPair, error) {
	privKey, err := NewPrivateKey(alg, priv)
	if err != nil {
		return nil, err
	}
	pubKey, err := NewPublicKey(alg, pub)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Public: pubKey, Private: privKey}, nil
}
