package crypto

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// HSMConfig is the YAML configuration for a PKCS#11 token backing the
// hardware provider.
type HSMConfig struct {
	Type   string         `yaml:"type"`
	PKCS11 PKCS11Settings `yaml:"pkcs11"`
}

// PKCS11Settings holds PKCS#11 specific configuration.
type PKCS11Settings struct {
	// Lib is the path to the PKCS#11 library (.so/.dylib/.dll)
	Lib string `yaml:"lib"`

	// Token identifies the token by label (recommended)
	Token string `yaml:"token"`

	// TokenSerial identifies the token by serial number
	TokenSerial string `yaml:"token_serial"`

	// Slot identifies the token by slot ID (less portable)
	Slot *uint `yaml:"slot"`

	// PinEnv names the environment variable holding the user PIN
	PinEnv string `yaml:"pin_env"`
}

// PKCS11Config is the resolved connection configuration for a token.
type PKCS11Config struct {
	ModulePath  string
	TokenLabel  string
	TokenSerial string
	PIN         string
	SlotID      *uint
}

// SlotInfo describes a PKCS#11 slot.
type SlotInfo struct {
	ID          uint
	Description string
	TokenLabel  string
	HasToken    bool
}

// LoadHSMConfig loads HSM configuration from a YAML file.
func LoadHSMConfig(path string) (*HSMConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read HSM config file: %w", err)
	}

	var cfg HSMConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse HSM config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid HSM config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the HSM configuration is usable.
func (c *HSMConfig) Validate() error {
	if c.Type != "pkcs11" {
		return fmt.Errorf("unsupported HSM type: %s (only 'pkcs11' is supported)", c.Type)
	}
	if c.PKCS11.Lib == "" {
		return fmt.Errorf("pkcs11.lib is required")
	}
	if c.PKCS11.Token == "" && c.PKCS11.TokenSerial == "" && c.PKCS11.Slot == nil {
		return fmt.Errorf("at least one of pkcs11.token, pkcs11.token_serial, or pkcs11.slot is required")
	}
	if c.PKCS11.PinEnv == "" {
		return fmt.Errorf("pkcs11.pin_env is required (PIN must be provided via environment variable)")
	}
	return nil
}

// GetPIN reads the PIN from the configured environment variable.
func (c *HSMConfig) GetPIN() (string, error) {
	pin := os.Getenv(c.PKCS11.PinEnv)
	if pin == "" {
		return "", fmt.Errorf("environment variable %s is not set or empty", c.PKCS11.PinEnv)
	}
	return pin, nil
}

// ToPKCS11Config resolves the PIN and returns the connection configuration.
func (c *HSMConfig) ToPKCS11Config() (*PKCS11Config, error) {
	pin, err := c.GetPIN()
	if err != nil {
		return nil, err
	}
	return &PKCS11Config{
		ModulePath:  c.PKCS11.Lib,
		TokenLabel:  c.PKCS11.Token,
		TokenSerial: c.PKCS11.TokenSerial,
		PIN:         pin,
		SlotID:      c.PKCS11.Slot,
	}, nil
}

// softHSMPaths lists common install locations of the SoftHSM v2 module.
var softHSMPaths = []string{
	"/usr/local/lib/softhsm/libsofthsm2.so",
	"/usr/lib/softhsm/libsofthsm2.so",
	"/usr/lib64/softhsm/libsofthsm2.so",
	"/usr/lib/x86_64-linux-gnu/softhsm/libsofthsm2.so", // Debian/Ubuntu
	"/opt/homebrew/lib/softhsm/libsofthsm2.so",         // macOS ARM Homebrew
}

// FindSoftHSMLib returns the path of an installed SoftHSM module, or "".
func FindSoftHSMLib() string {
	for _, p := range softHSMPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
