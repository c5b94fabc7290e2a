package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remiblancher/provider-conformance/internal/crypto"
)

var hsmCmd = &cobra.Command{
	Use:   "hsm",
	Short: "PKCS#11 diagnostic commands",
	Long: `Diagnostic commands for the PKCS#11 module behind the PKCS11 provider.

Examples:
  # List slots and tokens of a module
  provcheck hsm list --lib /usr/lib/softhsm/libsofthsm2.so

  # List slots of the module named in an HSM config
  provcheck hsm list --hsm-config hsm.yaml`,
}

var hsmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List PKCS#11 slots and tokens",
	Long: `List the slots of a PKCS#11 module. No login is needed.

The module is taken from --lib, then from the HSM config's pkcs11.lib,
then from a SoftHSM install found on the system.`,
	Args: cobra.NoArgs,
	RunE: runHSMList,
}

var hsmLib string

func init() {
	hsmListCmd.Flags().StringVar(&hsmLib, "lib", "", "Path to PKCS#11 library")
	hsmCmd.AddCommand(hsmListCmd)
}

// hsmModulePath picks the module to inspect.
func hsmModulePath() (string, error) {
	if hsmLib != "" {
		return hsmLib, nil
	}
	hsm, err := cfg.LoadHSM()
	if err != nil {
		return "", err
	}
	if hsm != nil {
		return hsm.PKCS11.Lib, nil
	}
	if lib := crypto.FindSoftHSMLib(); lib != "" {
		return lib, nil
	}
	return "", fmt.Errorf("no PKCS#11 module: pass --lib or --hsm-config")
}

func runHSMList(cmd *cobra.Command, args []string) error {
	modulePath, err := hsmModulePath()
	if err != nil {
		return err
	}
	slots, err := crypto.ListPKCS11Slots(modulePath)
	if err != nil {
		return fmt.Errorf("failed to list slots of %s: %w", modulePath, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "PKCS#11 Module: %s\n\n", modulePath)
	if len(slots) == 0 {
		fmt.Fprintln(out, "No slots found.")
		return nil
	}

	for _, slot := range slots {
		fmt.Fprintf(out, "Slot %d:\n", slot.ID)
		fmt.Fprintf(out, "  Description:  %s\n", strings.TrimSpace(slot.Description))
		if slot.HasToken {
			fmt.Fprintf(out, "  Token Label:  %s\n", strings.TrimSpace(slot.TokenLabel))
		} else {
			fmt.Fprintf(out, "  Token:        (not present)\n")
		}
		fmt.Fprintln(out)
	}
	return nil
}
