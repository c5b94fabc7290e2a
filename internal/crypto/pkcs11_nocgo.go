//go:build !cgo

package crypto

import "fmt"

// errNoCGO is returned when PKCS#11 operations are attempted without CGO.
var errNoCGO = fmt.Errorf("HSM support requires CGO (build with CGO_ENABLED=1)")

// PKCS11Token is unavailable without CGO.
type PKCS11Token struct{}

// OpenPKCS11Token returns an error when CGO is not available.
func OpenPKCS11Token(_ PKCS11Config) (*PKCS11Token, error) {
	return nil, errNoCGO
}

// Slot returns 0.
func (t *PKCS11Token) Slot() uint { return 0 }

// Close is a no-op.
func (t *PKCS11Token) Close() error { return nil }

// NewCipherEngine returns an error when CGO is not available.
func (t *PKCS11Token) NewCipherEngine(_ AlgorithmID, _ Mode, _ Padding) (CipherEngine, error) {
	return nil, errNoCGO
}

// ListPKCS11Slots returns an error when CGO is not available.
func ListPKCS11Slots(_ string) ([]SlotInfo, error) {
	return nil, errNoCGO
}

// CloseAllPools is a no-op when CGO is not available.
func CloseAllPools() {}
