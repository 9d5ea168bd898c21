package main

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scan runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return fmt.Errorf("failed to get limit flag: %w", err)
		}
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		runs, err := store.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		return writeRuns(cmd.OutOrStdout(), runs)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the findings of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		run, err := store.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		findings, err := store.Findings(cmd.Context(), id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := writeRuns(out, []*history.Run{run}); err != nil {
			return err
		}
		for _, f := range findings {
			if _, err := fmt.Fprintf(out, "%s:%d:%d: %s[%s] %s\n", f.File, f.Line, f.Col, f.Severity, f.Rule, f.Message); err != nil {
				return err
			}
		}
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, err := cmd.Flags().GetInt("keep")
		if err != nil {
			return fmt.Errorf("failed to get keep flag: %w", err)
		}
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		n, err := store.Prune(cmd.Context(), keep)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d runs\n", n)
		return err
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of runs to list (0=all)")
	historyPruneCmd.Flags().Int("keep", 50, "number of newest runs to keep")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cmd.Context(), cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return store, nil
}

func writeRuns(w io.Writer, runs []*history.Run) error {
	for _, r := range runs {
		if _, err := fmt.Fprintf(w, "%s  %s  %d units  critical %d  warning %d  info %d  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Units,
			r.Totals.Critical, r.Totals.Warning, r.Totals.Info, r.Root); err != nil {
			return err
		}
	}
	return nil
}
