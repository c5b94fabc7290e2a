package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/remiblancher/provider-conformance/internal/suite"
)

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "List the conformance cases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, c := range suite.Catalog() {
			fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Description)
		}
		return tw.Flush()
	},
}
