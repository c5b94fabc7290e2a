package report

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	gocose "github.com/veraison/go-cose"
)

// ContentType labels the signed payload.
const ContentType = "application/vnd.provcheck.report+cbor"

// KeyID returns the COSE key identifier for pub: the SHA-256 of its
// SubjectPublicKeyInfo.
func KeyID(pub *ecdsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to encode public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return sum[:], nil
}

// Sign wraps a CBOR-encoded report in a COSE_Sign1 message signed with
// ES256. The key must be on P-256.
func Sign(cborReport []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	if key == nil || key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("report signing requires a P-256 key")
	}

	signer, err := gocose.NewSigner(gocose.AlgorithmES256, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create COSE signer: %w", err)
	}
	kid, err := KeyID(&key.PublicKey)
	if err != nil {
		return nil, err
	}

	msg := gocose.NewSign1Message()
	msg.Headers = gocose.Headers{
		Protected: gocose.ProtectedHeader{
			gocose.HeaderLabelAlgorithm:   gocose.AlgorithmES256,
			gocose.HeaderLabelContentType: ContentType,
			gocose.HeaderLabelKeyID:       kid,
		},
	}
	msg.Payload = cborReport

	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("failed to sign report: %w", err)
	}
	return msg.MarshalCBOR()
}

// Verify checks a COSE_Sign1 report signature against pub and returns the
// embedded report.
func Verify(signed []byte, pub *ecdsa.PublicKey) (*Report, error) {
	var msg gocose.Sign1Message
	if err := msg.UnmarshalCBOR(signed); err != nil {
		return nil, fmt.Errorf("failed to parse COSE_Sign1: %w", err)
	}

	alg, err := msg.Headers.Protected.Algorithm()
	if err != nil {
		return nil, fmt.Errorf("missing signature algorithm: %w", err)
	}
	if alg != gocose.AlgorithmES256 {
		return nil, fmt.Errorf("unsupported report signature algorithm %s", alg)
	}

	verifier, err := gocose.NewVerifier(gocose.AlgorithmES256, pub)
	if err != nil {
		return nil, fmt.Errorf("failed to create COSE verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return nil, fmt.Errorf("report signature invalid: %w", err)
	}

	return Decode(msg.Payload, FormatCBOR)
}

// GenerateSigningKey creates a P-256 report signing key.
func GenerateSigningKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// LoadSigningKey reads a PEM-encoded EC or PKCS#8 P-256 private key.
func LoadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		ec, ok := k.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("signing key is %T, want ECDSA", k)
		}
		return ec, nil
	default:
		return nil, fmt.Errorf("unexpected PEM block %q in %s", block.Type, path)
	}
}

// LoadVerifyingKey reads a PEM-encoded P-256 public key.
func LoadVerifyingKey(path string) (*ecdsa.PublicKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}
	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("unexpected PEM block %q in %s", block.Type, path)
	}
	k, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	ec, ok := k.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("verifying key is %T, want ECDSA", k)
	}
	return ec, nil
}

// EncodePublicKeyPEM returns pub as a PEM "PUBLIC KEY" block.
func EncodePublicKeyPEM(pub *ecdsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// EncodePrivateKeyPEM returns key as a PEM "PRIVATE KEY" block.
func EncodePrivateKeyPEM(key *ecdsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

func readPEM(path string) (*pem.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM data in %s", path)
	}
	return block, nil
}
