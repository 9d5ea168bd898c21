package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/config"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/logger"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/prof"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/version"
)

var rootCmd = &cobra.Command{
	Use:               "ubs",
	Short:             "Static defect scanner for Rust concurrency and error handling",
	Long:              `ubs flags unwraps, poisoned locks, unsafe reinterpretation, detached tasks and blocking waits in Rust sources`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: startProfiling,
}

// profiling is stopped by main so that profiles are written even when a
// command fails.
var profiling *prof.Session

// exitError carries a process status out of RunE without printing anything.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func init() {
	rootCmd.Version = version.Short()

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(conformCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("config", "", "path to ubs.toml (default: searched upward from the working directory)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error|off)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (console|json)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a runtime trace to this file")
}

// main exits 1 for findings that fail the policy and 2 for usage or
// runtime errors.
func main() {
	err := rootCmd.Execute()
	if stopErr := profiling.Stop(); stopErr != nil {
		fmt.Fprintf(os.Stderr, "ubs: %v\n", stopErr)
	}
	var exit *exitError
	switch {
	case errors.As(err, &exit):
		os.Exit(exit.code)
	case err != nil:
		fmt.Fprintf(os.Stderr, "ubs: %v\n", err)
		os.Exit(2)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves the --color flag for stream f.
func useColor(cmd *cobra.Command, f *os.File) (bool, error) {
	value, err := cmd.Flags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	mode, err := parseToggle("color", value)
	if err != nil {
		return false, err
	}
	return mode.enabled(f), nil
}

// loadConfig reads --config or the nearest ubs.toml.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return config.Load(path)
	}
	return config.Discover(".")
}

// setupLogger builds the stderr logger from the config and the log flags.
func setupLogger(cmd *cobra.Command, cfg config.Config) (*zap.Logger, error) {
	level, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	formatFlag, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-format flag: %w", err)
	}
	if level == "" {
		level = cfg.Log.Level
	}
	if !logger.ValidLevel(level) {
		return nil, fmt.Errorf("invalid --log-level value %q", level)
	}
	if formatFlag == "" {
		formatFlag = cfg.Log.Format
	}
	format, ok := logger.ParseFormat(formatFlag)
	if !ok {
		return nil, fmt.Errorf("invalid --log-format value %q (expected console|json)", formatFlag)
	}
	return logger.Default(level, format).Named(logger.ComponentCLI), nil
}

func startProfiling(cmd *cobra.Command, args []string) error {
	var opts prof.Options
	var err error
	if opts.CPU, err = cmd.Flags().GetString("cpu-profile"); err != nil {
		return fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if opts.Mem, err = cmd.Flags().GetString("mem-profile"); err != nil {
		return fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if opts.Trace, err = cmd.Flags().GetString("runtime-trace"); err != nil {
		return fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if !opts.Enabled() {
		return nil
	}
	profiling, err = prof.Start(opts)
	return err
}
