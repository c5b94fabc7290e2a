// Package config loads the provcheck run configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/remiblancher/provider-conformance/internal/crypto"
	"github.com/remiblancher/provider-conformance/internal/providers"
	"github.com/remiblancher/provider-conformance/internal/report"
	"github.com/remiblancher/provider-conformance/internal/suite"
)

// Environment variables that override the file.
const (
	EnvConfig   = "PROVCHECK_CONFIG"
	EnvAuditLog = "PROVCHECK_AUDIT_LOG"
	EnvPort     = "PROVCHECK_PORT"
)

// Config is the YAML run configuration.
//
// Example:
//
//	providers: [Lite, Std]
//	cases: [mode-padding-roundtrip, sealed-object]
//	report:
//	  format: cbor
//	  out: report.cbor
//	  sign_key: sign.key
//	audit_log: audit.jsonl
//	hsm_config: hsm.yaml
//	server:
//	  port: 8080
type Config struct {
	// Providers is the registry order. Empty means the default order.
	Providers []string `yaml:"providers"`

	// Cases selects catalog cases. Empty runs them all.
	Cases []string `yaml:"cases"`

	Report ReportSettings `yaml:"report"`

	// AuditLog is the hash-chained audit file. Empty disables auditing.
	AuditLog string `yaml:"audit_log"`

	// HSMConfig points at an HSM YAML file; required when PKCS11 is listed.
	HSMConfig string `yaml:"hsm_config"`

	Server ServerSettings `yaml:"server"`
}

// ReportSettings controls report output.
type ReportSettings struct {
	Format  string `yaml:"format"`
	Out     string `yaml:"out"`
	SignKey string `yaml:"sign_key"`
}

// ServerSettings holds the serve listener configuration.
type ServerSettings struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Report: ReportSettings{Format: string(report.FormatText)},
		Server: ServerSettings{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path falls back to $PROVCHECK_CONFIG, and
// to the defaults alone when that is unset too.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAuditLog); v != "" {
		c.AuditLog = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks provider and case names, the report format and the port.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for _, name := range c.Providers {
		canonical := providers.Canonical(name)
		if canonical == "" {
			return fmt.Errorf("unknown provider %q (known: %v)", name, providers.Names())
		}
		if seen[canonical] {
			return fmt.Errorf("provider %q listed twice", name)
		}
		seen[canonical] = true
	}
	if seen[providers.PKCS11Name] && c.HSMConfig == "" {
		return fmt.Errorf("hsm_config is required when %s is listed", providers.PKCS11Name)
	}

	if _, err := suite.Select(c.Cases); err != nil {
		return err
	}

	if c.Report.Format != "" {
		if _, err := report.ParseFormat(c.Report.Format); err != nil {
			return err
		}
	}
	if c.Report.SignKey != "" && c.Report.Out == "" {
		return fmt.Errorf("report.sign_key requires report.out")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// ProviderOrder returns the configured order, or the default one.
func (c *Config) ProviderOrder() []string {
	if len(c.Providers) == 0 {
		return append([]string(nil), providers.DefaultOrder...)
	}
	return append([]string(nil), c.Providers...)
}

// Format returns the parsed report format.
func (c *Config) Format() report.Format {
	f, err := report.ParseFormat(c.Report.Format)
	if err != nil {
		return report.FormatText
	}
	return f
}

// Address returns the listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LoadHSM loads the referenced HSM configuration, or returns nil when none
// is set.
func (c *Config) LoadHSM() (*crypto.HSMConfig, error) {
	if c.HSMConfig == "" {
		return nil, nil
	}
	return crypto.LoadHSMConfig(c.HSMConfig)
}
