package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var providersOrder []string

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers and their services in registry order",
	Long: `List the registered providers in precedence order with every service
they offer. For ciphers the mode/padding combinations are shown; the
first one is the default for unqualified requests.

Examples:
  provcheck providers
  provcheck providers --provider Lite,Std`,
	Args: cobra.NoArgs,
	RunE: runProviders,
}

func init() {
	providersCmd.Flags().StringSliceVarP(&providersOrder, "provider", "p", nil, "Provider order (repeatable or comma-separated)")
}

func runProviders(cmd *cobra.Command, args []string) error {
	reg, closeFn, err := buildRegistry(providerOrder(providersOrder))
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	out := cmd.OutOrStdout()
	for i, p := range reg.Providers() {
		fmt.Fprintf(out, "%d. %s %s", i, p.Name(), p.Version())
		if p.Info() != "" {
			fmt.Fprintf(out, " - %s", p.Info())
		}
		fmt.Fprintln(out)

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, s := range p.Services() {
			names := s.Names()
			var combos []string
			for _, c := range s.Combos {
				combos = append(combos, c.String())
			}
			fmt.Fprintf(tw, "   %s\t%s\t%s\n", s.Type, strings.Join(names, ", "), strings.Join(combos, " "))
		}
		_ = tw.Flush()
		fmt.Fprintln(out)
	}
	return nil
}
