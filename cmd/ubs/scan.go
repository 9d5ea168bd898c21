package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/config"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/driver"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/history"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/logger"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/report"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/version"
)

const (
	formatText    = "text"
	formatJSON    = "json"
	formatSarif   = "sarif"
	formatSummary = "summary"
)

const informationURI = "https://github.com/shaneholloman/ultimate-bug-scanner"

var scanCmd = &cobra.Command{
	Use:   "scan [flags] <path>...",
	Short: "Scan Rust sources for defects",
	Long: `Scan analyzes every .rs file under the given paths and reports findings.
The exit status is 1 when a unit is defective, or when --fail-on-warning or
--fail-on-parse-error applies, and 0 otherwise.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringSlice("rules", nil, "only run these rule ids (comma-separated)")
	scanCmd.Flags().String("format", formatText, "output format (text|json|sarif|summary)")
	scanCmd.Flags().Bool("fail-on-parse-error", false, "exit non-zero when a unit cannot be parsed")
	scanCmd.Flags().Bool("fail-on-warning", false, "exit non-zero when any warning is reported")
	scanCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	scanCmd.Flags().StringSlice("include", nil, "only scan paths matching these globs")
	scanCmd.Flags().StringSlice("exclude", nil, "skip paths matching these globs")
	scanCmd.Flags().Int("max-visits", 0, "node visit budget per unit (0=default)")
	scanCmd.Flags().Bool("no-ignores", false, "disable ubs:ignore directives")
	scanCmd.Flags().Bool("report-unused-ignores", false, "report directives that suppressed nothing")
	scanCmd.Flags().Bool("snippets", true, "show the source line under each text finding")
	scanCmd.Flags().Bool("diagnostics", false, "include engine diagnostics in text output")
	scanCmd.Flags().Bool("no-cache", false, "do not read or write the result cache")
	scanCmd.Flags().Bool("timings", false, "print phase timings to stderr")
	scanCmd.Flags().Bool("record", false, "save the run to the history database")
	scanCmd.Flags().String("baseline", "", "compare against a previous JSON report")
	scanCmd.Flags().String("html-report", "", "also write a shareable HTML report to this path")
	scanCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

// scanFlags is the decoded flag set merged over ubs.toml.
type scanFlags struct {
	rules               []string
	format              string
	policy              report.Policy
	jobs                int
	filter              driver.Filter
	maxVisits           int
	noIgnores           bool
	reportUnusedIgnores bool
	snippets            bool
	diagnostics         bool
	noCache             bool
	timings             bool
	record              bool
	baseline            string
	htmlReport          string
	ui                  toggle
}

func readScanFlags(cmd *cobra.Command, cfg config.Config) (scanFlags, error) {
	var (
		sf  scanFlags
		err error
	)
	flags := cmd.Flags()
	if sf.rules, err = flags.GetStringSlice("rules"); err != nil {
		return sf, fmt.Errorf("failed to get rules flag: %w", err)
	}
	if sf.format, err = flags.GetString("format"); err != nil {
		return sf, fmt.Errorf("failed to get format flag: %w", err)
	}
	sf.format = strings.ToLower(strings.TrimSpace(sf.format))
	switch sf.format {
	case formatText, formatJSON, formatSarif, formatSummary:
	default:
		return sf, fmt.Errorf("unsupported format %q (must be text, json, sarif or summary)", sf.format)
	}
	if sf.policy.FailOnParseError, err = flags.GetBool("fail-on-parse-error"); err != nil {
		return sf, fmt.Errorf("failed to get fail-on-parse-error flag: %w", err)
	}
	if sf.policy.FailOnWarning, err = flags.GetBool("fail-on-warning"); err != nil {
		return sf, fmt.Errorf("failed to get fail-on-warning flag: %w", err)
	}
	sf.policy.FailOnParseError = sf.policy.FailOnParseError || cfg.Scan.FailOnParseError
	sf.policy.FailOnWarning = sf.policy.FailOnWarning || cfg.Scan.FailOnWarning

	if sf.jobs, err = flags.GetInt("jobs"); err != nil {
		return sf, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if sf.jobs == 0 {
		sf.jobs = cfg.Scan.Jobs
	}
	if sf.filter.Include, err = flags.GetStringSlice("include"); err != nil {
		return sf, fmt.Errorf("failed to get include flag: %w", err)
	}
	if sf.filter.Exclude, err = flags.GetStringSlice("exclude"); err != nil {
		return sf, fmt.Errorf("failed to get exclude flag: %w", err)
	}
	sf.filter.Include = append(sf.filter.Include, cfg.Scan.Include...)
	sf.filter.Exclude = append(sf.filter.Exclude, cfg.Scan.Exclude...)
	if err = sf.filter.Validate(); err != nil {
		return sf, err
	}
	if sf.maxVisits, err = flags.GetInt("max-visits"); err != nil {
		return sf, fmt.Errorf("failed to get max-visits flag: %w", err)
	}
	if sf.maxVisits == 0 {
		sf.maxVisits = cfg.Scan.MaxVisits
	}
	if sf.noIgnores, err = flags.GetBool("no-ignores"); err != nil {
		return sf, fmt.Errorf("failed to get no-ignores flag: %w", err)
	}
	if sf.reportUnusedIgnores, err = flags.GetBool("report-unused-ignores"); err != nil {
		return sf, fmt.Errorf("failed to get report-unused-ignores flag: %w", err)
	}
	sf.reportUnusedIgnores = sf.reportUnusedIgnores || cfg.Scan.ReportUnusedIgnores
	if sf.snippets, err = flags.GetBool("snippets"); err != nil {
		return sf, fmt.Errorf("failed to get snippets flag: %w", err)
	}
	if sf.diagnostics, err = flags.GetBool("diagnostics"); err != nil {
		return sf, fmt.Errorf("failed to get diagnostics flag: %w", err)
	}
	if sf.noCache, err = flags.GetBool("no-cache"); err != nil {
		return sf, fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	if sf.timings, err = flags.GetBool("timings"); err != nil {
		return sf, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if sf.record, err = flags.GetBool("record"); err != nil {
		return sf, fmt.Errorf("failed to get record flag: %w", err)
	}
	if sf.baseline, err = flags.GetString("baseline"); err != nil {
		return sf, fmt.Errorf("failed to get baseline flag: %w", err)
	}
	if sf.htmlReport, err = flags.GetString("html-report"); err != nil {
		return sf, fmt.Errorf("failed to get html-report flag: %w", err)
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return sf, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if sf.ui, err = parseToggle("ui", uiValue); err != nil {
		return sf, err
	}
	return sf, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	started := time.Now()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	sf, err := readScanFlags(cmd, cfg)
	if err != nil {
		return err
	}
	set, err := cfg.RuleSet()
	if err != nil {
		return err
	}
	if len(sf.rules) > 0 {
		if set, err = set.Select(sf.rules...); err != nil {
			return err
		}
	}
	eng := engine.New(set, engine.Options{
		MaxVisits:           sf.maxVisits,
		Settings:            cfg.Settings(),
		NoIgnores:           sf.noIgnores,
		ReportUnusedIgnores: sf.reportUnusedIgnores,
		Logger:              log,
	})

	opts := driver.Options{
		Jobs:    sf.jobs,
		Filter:  sf.filter,
		BaseDir: cfg.Root(),
		Logger:  log,
	}
	if cfg.Scan.Cache && !sf.noCache {
		cache, cacheErr := driver.OpenCache(cacheDir(cfg))
		if cacheErr != nil {
			log.Warn("result cache disabled", zap.Error(cacheErr))
		} else {
			opts.Cache = cache
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var scan *driver.Report
	// auto needs both streams on a terminal
	if sf.format == formatText && sf.ui.enabled(os.Stdout, os.Stderr) {
		scan, err = runScanWithUI(ctx, "scanning "+strings.Join(args, " "), eng, args, opts)
	} else {
		scan, err = driver.Scan(ctx, eng, args, opts)
	}
	if err != nil {
		return err
	}

	doc := report.Build(scan.FileSet, scan.Units, report.Meta{
		Tool:    "ubs",
		Version: version.Short(),
		Project: cfg.Root(),
		Rules:   report.RulesOf(set),
	})
	for _, le := range scan.LoadErrors {
		doc.LoadErrors = append(doc.LoadErrors, le.Error())
	}
	if sf.baseline != "" {
		base, loadErr := report.LoadJSON(sf.baseline)
		if loadErr != nil {
			return fmt.Errorf("baseline: %w", loadErr)
		}
		doc.Comparison = report.Diff(base, doc)
		doc.Comparison.Baseline = sf.baseline
	}
	if doc.Internal() {
		log.Warn("engine reported internal errors; results may be incomplete")
	}

	out := cmd.OutOrStdout()
	colored, err := useColor(cmd, os.Stdout)
	if err != nil {
		return err
	}
	if err := render(out, doc, sf, colored, args); err != nil {
		return err
	}

	if sf.htmlReport != "" {
		if err := report.WriteHTML(sf.htmlReport, doc); err != nil {
			return err
		}
	}
	if sf.timings {
		fmt.Fprint(cmd.ErrOrStderr(), scan.Timings.Summary())
	}
	if sf.record {
		if err := recordRun(ctx, cfg, doc, set.Fingerprint(), started); err != nil {
			return err
		}
	}
	if code := doc.ExitCode(sf.policy); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func render(out io.Writer, doc *report.Document, sf scanFlags, colored bool, args []string) error {
	switch sf.format {
	case formatJSON:
		return report.JSON(out, doc)
	case formatSarif:
		return report.Sarif(out, doc, report.SarifRunMeta{
			ToolName:       "ubs",
			ToolVersion:    version.Short(),
			InformationURI: informationURI,
			InvocationArgs: append([]string{"ubs", "scan"}, args...),
		})
	case formatSummary:
		return report.Summary(out, doc, report.SummaryOpts{Color: colored})
	}
	opts := report.TextOpts{Color: colored, Snippets: sf.snippets, Diagnostics: sf.diagnostics}
	if err := report.Text(out, doc, opts); err != nil {
		return err
	}
	if doc.Comparison != nil {
		return report.WriteComparison(out, doc.Comparison, opts)
	}
	return nil
}

func cacheDir(cfg config.Config) string {
	dir := cfg.Scan.CacheDir
	if dir == "" {
		dir = filepath.Join(".ubs", "cache")
	}
	if filepath.IsAbs(dir) || cfg.Root() == "" {
		return dir
	}
	return filepath.Join(cfg.Root(), dir)
}

func recordRun(ctx context.Context, cfg config.Config, doc *report.Document, fingerprint string, started time.Time) error {
	store, err := history.Open(ctx, cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	defer store.Close()
	root := cfg.Root()
	if root == "" {
		if wd, wdErr := os.Getwd(); wdErr == nil {
			root = wd
		}
	}
	run, err := store.Record(ctx, doc, root, fingerprint, started)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	logger.For(logger.ComponentHistory).Infow("run recorded", "id", run.ID.String(), "database", cfg.HistoryPath())
	return nil
}
