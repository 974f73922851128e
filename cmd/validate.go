package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check sources for parse failures, duplicate classes, unresolved names and cycles",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

// errValidationFailed is returned by validate when any check fails.
var errValidationFailed = errors.New("validation failed")

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.close()
	// Unresolved names only count as problems when they would fail a build.
	strictUnresolved := p.resolveOptions().FailOnUnresolved
	// Every problem is reported as a check, so nothing aborts the run.
	p.cfg.Strict, p.cfg.FailOnUnresolved = false, false

	res, err := p.run(cmd.Context())
	if err != nil {
		return err
	}
	problems := 0

	var parseDetails []string
	for _, u := range res.units {
		if perr := u.ParseErr(); perr != nil {
			parseDetails = append(parseDetails, fmt.Sprintf("%s: %v", u.Label(), perr))
		}
	}
	p.printer.Check("parse", len(parseDetails) == 0,
		fmt.Sprintf("%d of %d unit(s) parsed", len(res.units)-len(parseDetails), len(res.units)),
		parseDetails...)
	problems += len(parseDetails)

	var dupDetails []string
	for _, d := range res.graph.Duplicates() {
		dupDetails = append(dupDetails, fmt.Sprintf("%s: kept %s, ignored %s", d.ClassName, d.Kept.Label(), d.Ignored.Label()))
	}
	p.printer.Check("duplicates", len(dupDetails) == 0, fmt.Sprintf("%d duplicate class(es)", len(dupDetails)), dupDetails...)
	problems += len(dupDetails)

	var unresolvedDetails []string
	for _, un := range res.graph.Unresolved() {
		unresolvedDetails = append(unresolvedDetails, fmt.Sprintf("%s: %s", un.Unit.Label(), strings.Join(un.Names, ", ")))
	}
	unresolvedOK := len(unresolvedDetails) == 0 || !strictUnresolved
	p.printer.Check("unresolved", unresolvedOK, fmt.Sprintf("%d unit(s) with unresolved names", len(unresolvedDetails)), unresolvedDetails...)
	if !unresolvedOK {
		problems += len(unresolvedDetails)
	}

	if res.orderErr != nil {
		p.printer.Check("cycle", false, res.orderErr.Error())
		problems++
	} else {
		p.printer.Check("cycle", true, "load order found")
	}

	p.printer.ValidateResult(len(res.units), problems)
	if problems > 0 {
		return fmt.Errorf("%w: %d problem(s)", errValidationFailed, problems)
	}
	return nil
}
