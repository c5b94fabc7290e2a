package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/remiblancher/provider-conformance/internal/audit"
	"github.com/remiblancher/provider-conformance/internal/report"
	"github.com/remiblancher/provider-conformance/internal/suite"
)

// Run command flags
var (
	runProviderOrder []string
	runCases     []string
	runFormat    string
	runOut       string
	runSignKey   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run conformance cases",
	Long: `Register providers in order and run the conformance cases against them.

Cases never stop the run; each records PASS or FAIL with the error kind,
message and source location. The exit status is non-zero when any case
fails.

With --sign-key the report is encoded as CBOR and wrapped in a COSE_Sign1
message signed with ES256; --out is then required.

Examples:
  # Every case, default order, text report on stdout
  provcheck run

  # Two cases with Lite ahead of Std, JSON to a file
  provcheck run --provider Lite,Std --case provider-precedence --case sealed-object \
    --format json --out report.json

  # Signed report
  provcheck run --out report.cose --sign-key sign.key`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runProviderOrder, "provider", "p", nil, "Provider order (repeatable or comma-separated)")
	runCmd.Flags().StringSliceVarP(&runCases, "case", "c", nil, "Case to run (repeatable; default: all)")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "", "Report format: text, json, yaml, cbor")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "Report output file (default: stdout)")
	runCmd.Flags().StringVar(&runSignKey, "sign-key", "", "P-256 PEM key to sign the CBOR report with")
}

func runRun(cmd *cobra.Command, args []string) error {
	names := runCases
	if len(names) == 0 {
		names = cfg.Cases
	}
	cases, err := suite.Select(names)
	if err != nil {
		return err
	}

	format := cfg.Format()
	if runFormat != "" {
		if format, err = report.ParseFormat(runFormat); err != nil {
			return err
		}
	}
	out := firstNonEmpty(runOut, cfg.Report.Out)
	signKey := firstNonEmpty(runSignKey, cfg.Report.SignKey)
	if signKey != "" {
		if out == "" {
			return fmt.Errorf("--sign-key requires --out")
		}
		format = report.FormatCBOR
	}

	reg, closeFn, err := buildRegistry(providerOrder(runProviderOrder))
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := suite.NewRunner(suite.WithLogger(logger), suite.WithVersion(version))
	rep, runErr := runner.Run(ctx, &suite.Env{Registry: reg}, cases)
	if rep == nil {
		return runErr
	}

	data, err := report.Encode(rep, format)
	if err != nil {
		return err
	}
	if signKey != "" {
		key, err := report.LoadSigningKey(signKey)
		if err != nil {
			return err
		}
		if data, err = report.Sign(data, key); err != nil {
			return err
		}
	}

	if out == "" {
		_, _ = cmd.OutOrStdout().Write(data)
	} else {
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%d passed, %d failed)\n",
			out, rep.Summary.Passed, rep.Summary.Failed)
		if signKey != "" {
			if err := audit.LogReportSigned(nil, out, "ES256"); err != nil {
				return err
			}
		}
	}

	if runErr != nil {
		return runErr
	}
	if !rep.OK() {
		return fmt.Errorf("%d of %d cases failed", rep.Summary.Failed, rep.Summary.Total)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
