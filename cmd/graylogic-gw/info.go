package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-gateway/internal/resource"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "descriptors",
		Short: "Print the attribute descriptor table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printDescriptors(cmd.OutOrStdout())
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "graylogic-gw %s (commit %s, built %s)\n", version, commit, date)
		},
	})
}

// printDescriptors writes one row per descriptor: suffix, type and the
// valid range when one is enforced.
func printDescriptors(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SUFFIX\tTYPE\tRANGE")
	for _, d := range resource.Descriptors() {
		rng := "-"
		if lo, hi, ok := d.Range(); ok {
			rng = fmt.Sprintf("%d..%d", lo, hi)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Suffix, d.Type, rng)
	}
	return w.Flush()
}
