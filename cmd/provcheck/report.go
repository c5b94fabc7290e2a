package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remiblancher/provider-conformance/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Signed report utilities",
	Long: `Commands for report signing keys and signed report verification.

A signed report is a COSE_Sign1 message (ES256) whose payload is the
CBOR-encoded run report.

Examples:
  # Create a signing key pair
  provcheck report keygen --key sign.key --pub sign.pub

  # Verify a signed report
  provcheck report verify report.cose --pub sign.pub`,
}

var reportVerifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Verify a signed report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportVerify,
}

var reportKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a P-256 report signing key",
	Args:  cobra.NoArgs,
	RunE:  runReportKeygen,
}

var (
	reportPubPath    string
	reportKeyPath    string
	reportShowFormat string
)

func init() {
	reportVerifyCmd.Flags().StringVar(&reportPubPath, "pub", "", "PEM public key (required)")
	_ = reportVerifyCmd.MarkFlagRequired("pub")
	reportVerifyCmd.Flags().StringVar(&reportShowFormat, "format", "text", "Format to print the verified report in")

	reportKeygenCmd.Flags().StringVar(&reportKeyPath, "key", "", "Private key output (required)")
	reportKeygenCmd.Flags().StringVar(&reportPubPath, "pub", "", "Public key output (required)")
	_ = reportKeygenCmd.MarkFlagRequired("key")
	_ = reportKeygenCmd.MarkFlagRequired("pub")

	reportCmd.AddCommand(reportVerifyCmd)
	reportCmd.AddCommand(reportKeygenCmd)
}

func runReportVerify(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(reportShowFormat)
	if err != nil {
		return err
	}
	pub, err := report.LoadVerifyingKey(reportPubPath)
	if err != nil {
		return err
	}
	signed, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	out := cmd.OutOrStdout()
	rep, err := report.Verify(signed, pub)
	if err != nil {
		fmt.Fprintln(out, "VERIFICATION FAILED")
		return err
	}

	fmt.Fprintln(out, "VERIFICATION PASSED")
	data, err := report.Encode(rep, format)
	if err != nil {
		return err
	}
	_, _ = out.Write(data)
	return nil
}

func runReportKeygen(cmd *cobra.Command, args []string) error {
	key, err := report.GenerateSigningKey()
	if err != nil {
		return err
	}
	privPEM, err := report.EncodePrivateKeyPEM(key)
	if err != nil {
		return err
	}
	pubPEM, err := report.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return err
	}
	if err := os.WriteFile(reportKeyPath, privPEM, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(reportPubPath, pubPEM, 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	kid, err := report.KeyID(&key.PublicKey)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signing key written to %s\nPublic key written to %s\nKey ID: %x\n",
		reportKeyPath, reportPubPath, kid)
	return nil
}
