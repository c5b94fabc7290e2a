//go:build cgo

package crypto

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// =============================================================================
// PKCS#11 Test Helpers
// =============================================================================

const (
	testTokenLabel = "conformance-test-token"
	testTokenPIN   = "1234"
	testSOPIN      = "12345678"
)

// setupSoftHSM creates a temporary SoftHSM token and returns its
// configuration. It skips the test if SoftHSM is not installed.
func setupSoftHSM(t *testing.T) PKCS11Config {
	t.Helper()

	if _, err := exec.LookPath("softhsm2-util"); err != nil {
		t.Skip("softhsm2-util not found, skipping PKCS#11 tests")
	}
	modulePath := FindSoftHSMLib()
	if modulePath == "" {
		t.Skip("SoftHSM library not found, skipping PKCS#11 tests")
	}

	tokenDir := t.TempDir()
	tokensDir := filepath.Join(tokenDir, "tokens")
	if err := os.MkdirAll(tokensDir, 0700); err != nil {
		t.Fatalf("Failed to create token directory: %v", err)
	}

	configFile := filepath.Join(tokenDir, "softhsm2.conf")
	configContent := "directories.tokendir = " + tokensDir + "\nobjectstore.backend = file\nlog.level = ERROR\n"
	if err := os.WriteFile(configFile, []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to write SoftHSM config: %v", err)
	}
	t.Setenv("SOFTHSM2_CONF", configFile)

	cmd := exec.Command("softhsm2-util", "--init-token", "--free",
		"--label", testTokenLabel,
		"--pin", testTokenPIN,
		"--so-pin", testSOPIN)
	cmd.Env = append(os.Environ(), "SOFTHSM2_CONF="+configFile)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to initialize SoftHSM token: %v\nOutput: %s", err, output)
	}

	t.Cleanup(CloseAllPools)

	return PKCS11Config{
		ModulePath: modulePath,
		TokenLabel: testTokenLabel,
		PIN:        testTokenPIN,
	}
}

// =============================================================================
// [Unit] PKCS#11 Slots and Tokens
// =============================================================================

func TestU_ListPKCS11Slots_Valid(t *testing.T) {
	cfg := setupSoftHSM(t)

	slots, err := ListPKCS11Slots(cfg.ModulePath)
	if err != nil {
		t.Fatalf("ListPKCS11Slots failed: %v", err)
	}
	found := false
	for _, s := range slots {
		if s.HasToken && s.TokenLabel == testTokenLabel {
			found = true
		}
	}
	if !found {
		t.Errorf("token %q not listed in %+v", testTokenLabel, slots)
	}
}

func TestU_ListPKCS11Slots_InvalidModule(t *testing.T) {
	if _, err := ListPKCS11Slots("/nonexistent/libpkcs11.so"); err == nil {
		t.Error("ListPKCS11Slots should fail for a missing module")
	}
}

func TestU_OpenPKCS11Token_UnknownLabel(t *testing.T) {
	cfg := setupSoftHSM(t)
	cfg.TokenLabel = "no-such-token"
	if _, err := OpenPKCS11Token(cfg); err == nil {
		t.Error("OpenPKCS11Token should fail for an unknown label")
	}
}

// =============================================================================
// [Unit] PKCS#11 Cipher Engine
// =============================================================================

func TestU_PKCS11Cipher_RoundTrip(t *testing.T) {
	cfg := setupSoftHSM(t)
	token, err := OpenPKCS11Token(cfg)
	if err != nil {
		t.Fatalf("OpenPKCS11Token failed: %v", err)
	}

	tests := []struct {
		alg     AlgorithmID
		bits    int
		mode    Mode
		padding Padding
	}{
		{AlgDESede, 168, ModeECB, PKCS5Padding},
		{AlgDESede, 112, ModeCBC, PKCS5Padding},
		{AlgAES, 128, ModeECB, PKCS5Padding},
		{AlgAES, 256, ModeCBC, PKCS5Padding},
	}

	for _, tt := range tests {
		name := "[Unit] PKCS11: " + string(tt.alg) + "/" + string(tt.mode) + "/" + string(tt.padding)
		t.Run(name, func(t *testing.T) {
			key := mustSecretKey(t, tt.alg, tt.bits)

			enc, err := token.NewCipherEngine(tt.alg, tt.mode, tt.padding)
			if err != nil {
				t.Fatalf("NewCipherEngine failed: %v", err)
			}
			if err := enc.Init(EncryptMode, key, Params{}, nil); err != nil {
				t.Fatalf("Init(encrypt) failed: %v", err)
			}
			ct, err := enc.Final([]byte(alphabet))
			if err != nil {
				t.Fatalf("Final(encrypt) failed: %v", err)
			}

			// The token and the software engine must agree.
			sw, _ := NewBlockCipherEngine(tt.alg, tt.mode, tt.padding)
			if err := sw.Init(DecryptMode, key, Params{IV: enc.IV()}, nil); err != nil {
				t.Fatalf("software Init failed: %v", err)
			}
			pt, err := sw.Final(ct)
			if err != nil {
				t.Fatalf("software Final failed: %v", err)
			}
			if string(pt) != alphabet {
				t.Errorf("software decrypt = %q, want %q", pt, alphabet)
			}

			dec, _ := token.NewCipherEngine(tt.alg, tt.mode, tt.padding)
			if err := dec.Init(DecryptMode, key, Params{IV: enc.IV()}, nil); err != nil {
				t.Fatalf("Init(decrypt) failed: %v", err)
			}
			pt, err = dec.Final(ct)
			if err != nil {
				t.Fatalf("Final(decrypt) failed: %v", err)
			}
			if string(pt) != alphabet {
				t.Errorf("token decrypt = %q, want %q", pt, alphabet)
			}
		})
	}
}

func TestU_PKCS11Cipher_NoPaddingUnaligned(t *testing.T) {
	cfg := setupSoftHSM(t)
	token, err := OpenPKCS11Token(cfg)
	if err != nil {
		t.Fatalf("OpenPKCS11Token failed: %v", err)
	}

	enc, _ := token.NewCipherEngine(AlgAES, ModeCBC, NoPadding)
	if err := enc.Init(EncryptMode, mustSecretKey(t, AlgAES, 128), Params{}, nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := enc.Final([]byte(alphabet)); !errors.Is(err, ErrIllegalBlockSize) {
		t.Errorf("Final() error = %v, want ErrIllegalBlockSize", err)
	}
}

func TestU_PKCS11Cipher_UnsupportedMode(t *testing.T) {
	var token PKCS11Token
	if _, err := token.NewCipherEngine(AlgAES, ModeCTR, NoPadding); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("CTR error = %v, want ErrInvalidParameter", err)
	}
	if _, err := token.NewCipherEngine(AlgDES, ModeECB, PKCS5Padding); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("DES error = %v, want ErrInvalidParameter", err)
	}
	if _, err := token.NewCipherEngine(AlgAES, ModeECB, ISO10126Padding); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("ISO10126 error = %v, want ErrInvalidParameter", err)
	}
}
