package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/conformance"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
)

var conformCmd = &cobra.Command{
	Use:   "conform [flags] <dir>",
	Short: "Check the rules against a buggy/clean fixture corpus",
	Long: `Conform runs every {category}/buggy fixture expecting at least one finding
from the category's rule and every {category}/clean fixture expecting none,
then evaluates the cases of an optional corpus.yaml.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, err := cmd.Flags().GetInt("jobs")
		if err != nil {
			return fmt.Errorf("failed to get jobs flag: %w", err)
		}
		category, err := cmd.Flags().GetString("category")
		if err != nil {
			return fmt.Errorf("failed to get category flag: %w", err)
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := setupLogger(cmd, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		// the corpus is judged against the full catalog, whatever ubs.toml disables
		set, err := rules.Default()
		if err != nil {
			return err
		}
		eng := engine.New(set, engine.Options{Settings: cfg.Settings(), Logger: log})

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		res, err := conformance.Run(ctx, eng, args[0], conformance.Options{Jobs: jobs, Logger: log, Category: category})
		if err != nil {
			return err
		}
		colored, err := useColor(cmd, os.Stdout)
		if err != nil {
			return err
		}
		if err := conformance.Write(cmd.OutOrStdout(), res, colored); err != nil {
			return err
		}
		if !res.OK() {
			return &exitError{code: 1}
		}
		return nil
	},
}

func init() {
	conformCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	conformCmd.Flags().String("category", "", "only run fixtures of this category")
}
