package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/remiblancher/provider-conformance/internal/api/server"
)

// Serve command flags
var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the conformance REST API",
	Long: `Start an HTTP server exposing provider listing, resolution and
conformance runs. Every run request gets a fresh registry.

Environment variables:
  PROVCHECK_PORT    Listen port (overridden by --port)

Examples:
  provcheck serve --port 8080
  provcheck serve --host 127.0.0.1 --hsm-config hsm.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: 8080)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: all interfaces)")
}

func runServe(cmd *cobra.Command, args []string) error {
	settings := cfg.Server
	if servePort != 0 {
		settings.Port = servePort
	}
	if serveHost != "" {
		settings.Host = serveHost
	}

	hsm, err := cfg.LoadHSM()
	if err != nil {
		return err
	}

	s := server.New(settings, version, server.WithLogger(logger), server.WithHSM(hsm))
	s.PrintStartupInfo(cmd.OutOrStdout())
	return s.Start(context.Background())
}
