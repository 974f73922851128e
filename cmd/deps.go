package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/extorder/internal/report"
)

var depsCmd = &cobra.Command{
	Use:   "deps [file...]",
	Short: "Show declared classes and dependencies per file",
	Long: `Prints, for every scanned file (or only the files given), the classes it
declares, the names it requires, the files it depends on and any names no file
declares. Duplicate class declarations and cycles are listed at the end.`,
	RunE: runDeps,
}

func init() {
	depsCmd.Flags().StringP("format", "f", report.FormatText, "output format: text, json or toml")
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.close()

	res, err := p.run(cmd.Context())
	if err != nil {
		return err
	}
	r := report.Build(p.ex.Name(), res.graph, res.ordered, res.orderErr).Only(args...)
	return report.Write(cmd.OutOrStdout(), r, format)
}
