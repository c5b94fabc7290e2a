package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remiblancher/provider-conformance/internal/provider"
)

var (
	resolveProvider string
	resolveOrder    []string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <transformation>",
	Short: "Show which provider serves a transformation",
	Long: `Resolve "ALG" or "ALG/MODE/PADDING" against the registry. Without
--provider the first capable provider in order wins; providers that know
the algorithm but not the mode or padding are skipped.

Examples:
  provcheck resolve DES
  provcheck resolve DES/CTR/NoPadding --order Lite,Std
  provcheck resolve Blowfish --provider Lite`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveProvider, "provider", "", "Pin resolution to one provider")
	resolveCmd.Flags().StringSliceVar(&resolveOrder, "order", nil, "Provider order (comma-separated)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	req, err := provider.ParseTransformation(args[0])
	if err != nil {
		return err
	}

	reg, closeFn, err := buildRegistry(providerOrder(resolveOrder))
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	res, err := reg.Resolve(req.WithProvider(resolveProvider))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Provider:       %s (position %d)\n", res.Provider.Name(), reg.Position(res.Provider.Name()))
	fmt.Fprintf(out, "Transformation: %s\n", res.Transformation())
	return nil
}
