package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/report"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rules enabled by ubs.toml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to get format flag: %w", err)
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		set, err := cfg.RuleSet()
		if err != nil {
			return err
		}
		infos := report.RulesOf(set)
		switch strings.ToLower(format) {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		case "text", "":
			return writeRules(cmd.OutOrStdout(), infos)
		default:
			return fmt.Errorf("unsupported format %q (must be text or json)", format)
		}
	},
}

func init() {
	rulesCmd.Flags().String("format", "text", "output format (text|json)")
}

func writeRules(w io.Writer, infos []report.RuleInfo) error {
	width := 0
	for _, r := range infos {
		width = max(width, runewidth.StringWidth(r.ID))
	}
	for _, r := range infos {
		if _, err := fmt.Fprintf(w, "%s  %-8s  %s\n", runewidth.FillRight(r.ID, width), r.Severity, r.Description); err != nil {
			return err
		}
	}
	return nil
}
