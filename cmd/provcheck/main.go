//go:debug rsa1024min=0

// Command provcheck runs conformance cases against crypto service providers.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/remiblancher/provider-conformance/internal/audit"
	"github.com/remiblancher/provider-conformance/internal/config"
	"github.com/remiblancher/provider-conformance/internal/crypto"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	configPath    string
	auditLogPath  string
	hsmConfigPath string
	verbose       bool
)

// Set up by the root command before any verb runs.
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	// Setup signal handler for clean PKCS#11 shutdown
	setupSignalHandler()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		crypto.CloseAllPools() // Cleanup PKCS#11 before exit
		os.Exit(1)
	}

	// Cleanup PKCS#11 session pools on normal exit
	crypto.CloseAllPools()
}

// setupSignalHandler releases PKCS#11 sessions on SIGINT/SIGTERM.
func setupSignalHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		crypto.CloseAllPools()
		os.Exit(130)
	}()
}

var rootCmd = &cobra.Command{
	Use:   "provcheck",
	Short: "Conformance harness for crypto service providers",
	Long: `provcheck registers crypto service providers in a precedence order and
runs round-trip conformance cases against them: every mode/padding
combination, key wrapping, sealed envelopes and resolver precedence.

Built-in providers:
  Std     DES, DESede, AES, RSA, AESWrap, AESWrapPad, ML-KEM-768
  Lite    DES and Blowfish, PKCS5Padding only
  PKCS11  DESede and AES computed in a PKCS#11 token (needs --hsm-config)

Examples:
  # Run every case against the default order (Std, Lite)
  provcheck run

  # Put Lite first and emit a signed CBOR report
  provcheck run --provider Lite --provider Std --out report.cose --sign-key sign.key

  # Ask which provider serves a transformation
  provcheck resolve DES/CBC/PKCS5Padding --order Lite,Std`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if hsmConfigPath != "" {
			cfg.HSMConfig = hsmConfigPath
		}

		// Flag beats PROVCHECK_AUDIT_LOG beats the config file
		if auditLogPath == "" {
			auditLogPath = cfg.AuditLog
		}
		if auditLogPath != "" {
			if err := audit.InitFile(auditLogPath); err != nil {
				return fmt.Errorf("failed to initialize audit log: %w", err)
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return audit.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to YAML config (or set PROVCHECK_CONFIG env var)")
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "",
		"Path to audit log file (or set PROVCHECK_AUDIT_LOG env var)")
	rootCmd.PersistentFlags().StringVar(&hsmConfigPath, "hsm-config", "",
		"HSM YAML config enabling the PKCS11 provider")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging to stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(casesCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hsmCmd)
}
