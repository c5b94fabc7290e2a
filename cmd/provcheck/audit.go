package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remiblancher/provider-conformance/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log management",
	Long: `Commands for verifying and reading audit logs.

The audit log is a tamper-evident record of provider registrations,
conformance runs, per-case results and signed reports. Each event is
chained to the previous one with a SHA-256 hash.

Examples:
  # Verify audit log integrity
  provcheck audit verify audit.jsonl

  # Show the last 10 events
  provcheck audit tail audit.jsonl -n 10`,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <log>",
	Short: "Verify audit log integrity",
	Long: `Verify the hash chain of an audit log file.

Each event carries hash_prev, the hash of the previous event, and hash,
its own. The chain starts with hash_prev="sha256:genesis". A modified,
deleted or inserted event breaks the chain at that line.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail <log>",
	Short: "Show recent audit events",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditTail,
}

var (
	auditTailNum  int
	auditShowJSON bool
)

func init() {
	auditTailCmd.Flags().IntVarP(&auditTailNum, "num", "n", 10, "Number of events to show")
	auditTailCmd.Flags().BoolVar(&auditShowJSON, "json", false, "Output raw JSON lines")

	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Verifying audit log: %s\n\n", args[0])

	count, err := audit.VerifyChain(args[0])
	if err != nil {
		fmt.Fprintf(out, "VERIFICATION FAILED\n")
		fmt.Fprintf(out, "  Valid events: %d\n", count)
		fmt.Fprintf(out, "  Error: %s\n", err)
		return fmt.Errorf("audit log verification failed: %w", err)
	}

	fmt.Fprintf(out, "VERIFICATION PASSED\n")
	fmt.Fprintf(out, "  Total events: %d\n", count)
	fmt.Fprintf(out, "  Hash chain: VALID\n")
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	out := cmd.OutOrStdout()
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		fmt.Fprintln(out, "Audit log is empty")
		return nil
	}
	if len(lines) > auditTailNum {
		lines = lines[len(lines)-auditTailNum:]
	}

	for _, line := range lines {
		if auditShowJSON {
			fmt.Fprintln(out, line)
			continue
		}
		var event audit.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			fmt.Fprintf(out, "  [ERROR] %s\n", err)
			continue
		}
		printEvent(out, &event)
	}
	return nil
}

func printEvent(w io.Writer, e *audit.Event) {
	resultIcon := "✓"
	if e.Result == audit.ResultFailure {
		resultIcon = "✗"
	}

	fmt.Fprintf(w, "[%s] %s %s\n", e.Timestamp, resultIcon, e.EventType)
	if e.Object.Type != "" {
		fmt.Fprintf(w, "    Object: %s", e.Object.Type)
		if e.Object.Name != "" {
			fmt.Fprintf(w, " name=%s", e.Object.Name)
		}
		if e.Object.Path != "" {
			fmt.Fprintf(w, " path=%s", e.Object.Path)
		}
		fmt.Fprintln(w)
	}

	c := e.Context
	var parts []string
	if c.Provider != "" {
		parts = append(parts, "provider="+c.Provider)
	}
	if c.Position != nil {
		parts = append(parts, fmt.Sprintf("position=%d", *c.Position))
	}
	if c.Kind != "" {
		parts = append(parts, "kind="+c.Kind)
	}
	if c.Reason != "" {
		parts = append(parts, fmt.Sprintf("reason=%q", c.Reason))
	}
	if c.Duration != "" {
		parts = append(parts, "duration="+c.Duration)
	}
	if len(parts) > 0 {
		fmt.Fprintf(w, "    Context: %s\n", strings.Join(parts, " "))
	}
	fmt.Fprintln(w)
}
