package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Print source files in load order",
	Long: `Scans the configured directories, orders the matching files so every class
is declared before the files that use it, and prints one path per line.`,
	Args: cobra.NoArgs,
	RunE: runSort,
}

func init() {
	rootCmd.AddCommand(sortCmd)
}

func runSort(cmd *cobra.Command, _ []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.close()

	res, err := p.order(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, u := range res.ordered {
		fmt.Fprintln(out, u.Label())
	}
	return nil
}
