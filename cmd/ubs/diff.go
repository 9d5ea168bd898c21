package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/report"
)

var diffCmd = &cobra.Command{
	Use:   "diff <baseline.json> <current.json>",
	Short: "Compare two JSON reports",
	Long: `Diff matches findings of two reports produced by scan --format json and
prints those that were added or removed along with the per-severity deltas.
With --fail-on-new the exit status is 1 when a finding was added.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		failOnNew, err := cmd.Flags().GetBool("fail-on-new")
		if err != nil {
			return fmt.Errorf("failed to get fail-on-new flag: %w", err)
		}
		baseline, err := report.LoadJSON(args[0])
		if err != nil {
			return err
		}
		current, err := report.LoadJSON(args[1])
		if err != nil {
			return err
		}
		cmp := report.Diff(baseline, current)
		cmp.Baseline = args[0]
		colored, err := useColor(cmd, os.Stdout)
		if err != nil {
			return err
		}
		if err := report.WriteComparison(cmd.OutOrStdout(), cmp, report.TextOpts{Color: colored}); err != nil {
			return err
		}
		if failOnNew && cmp.Regressed() {
			return &exitError{code: 1}
		}
		return nil
	},
}

func init() {
	diffCmd.Flags().Bool("fail-on-new", false, "exit non-zero when the current report adds findings")
}
