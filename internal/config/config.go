// Package config loads ubs.toml. The file is searched upward from the
// working directory; CLI flags override what it sets.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/logger"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
)

// FileName is the manifest name searched for.
const FileName = "ubs.toml"

// Config is the decoded ubs.toml.
type Config struct {
	Scan    ScanConfig    `toml:"scan"`
	Rules   RulesConfig   `toml:"rules"`
	History HistoryConfig `toml:"history"`
	Log     LogConfig     `toml:"log"`

	// Path is where the file was found; empty for defaults.
	Path string `toml:"-"`
}

type ScanConfig struct {
	Jobs                int      `toml:"jobs"`
	MaxVisits           int      `toml:"max-visits"`
	Include             []string `toml:"include"`
	Exclude             []string `toml:"exclude"`
	FailOnParseError    bool     `toml:"fail-on-parse-error"`
	FailOnWarning       bool     `toml:"fail-on-warning"`
	Cache               bool     `toml:"cache"`
	CacheDir            string   `toml:"cache-dir"`
	ReportUnusedIgnores bool     `toml:"report-unused-ignores"`
}

type RulesConfig struct {
	Enable  []string `toml:"enable"`
	Disable []string `toml:"disable"`

	BlockingWait BlockingWaitConfig `toml:"unbounded-blocking-wait"`
}

type BlockingWaitConfig struct {
	Threshold Duration `toml:"threshold"`
}

type HistoryConfig struct {
	Database string `toml:"database"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration decodes TOML strings like "1s" or "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used without a ubs.toml.
func Default() Config {
	return Config{
		Rules: RulesConfig{
			BlockingWait: BlockingWaitConfig{Threshold: Duration{Duration: rules.DefaultSettings().BlockingThreshold}},
		},
		Log: LogConfig{Level: string(logger.WarnLevel), Format: strings.ToLower(string(logger.FormatConsole))},
	}
}

// Find searches startDir and its parents for ubs.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest ubs.toml above startDir, or the defaults.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return Default(), err
	}
	return Load(path)
}

// Load decodes path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Default(), fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Default(), fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges. Rule ids are checked against the catalog
// when the rule set is built.
func (c Config) Validate() error {
	switch {
	case c.Scan.Jobs < 0:
		return fmt.Errorf("[scan].jobs must not be negative")
	case c.Scan.MaxVisits < 0:
		return fmt.Errorf("[scan].max-visits must not be negative")
	case c.Rules.BlockingWait.Threshold.Duration < 0:
		return fmt.Errorf("[rules.unbounded-blocking-wait].threshold must not be negative")
	case len(c.Rules.Enable) > 0 && len(c.Rules.Disable) > 0:
		return fmt.Errorf("[rules] enable and disable are mutually exclusive")
	}
	if !logger.ValidLevel(c.Log.Level) {
		return fmt.Errorf("[log].level %q is not one of debug, info, warn, error, off", c.Log.Level)
	}
	if _, ok := logger.ParseFormat(c.Log.Format); !ok {
		return fmt.Errorf("[log].format %q is not console or json", c.Log.Format)
	}
	return nil
}

// Settings returns the rule heuristics configured in the file.
func (c Config) Settings() rules.Settings {
	s := rules.DefaultSettings()
	if c.Rules.BlockingWait.Threshold.Duration > 0 {
		s.BlockingThreshold = c.Rules.BlockingWait.Threshold.Duration
	}
	return s
}

// RuleSet narrows the full catalog per [rules].
func (c Config) RuleSet() (*rules.RuleSet, error) {
	set, err := rules.Default()
	if err != nil {
		return nil, err
	}
	switch {
	case len(c.Rules.Enable) > 0:
		return set.Select(c.Rules.Enable...)
	case len(c.Rules.Disable) > 0:
		return set.Without(c.Rules.Disable...)
	}
	return set, nil
}

// Root returns the directory holding the file, or "" for defaults.
func (c Config) Root() string {
	if c.Path == "" {
		return ""
	}
	return filepath.Dir(c.Path)
}

// HistoryPath resolves the history database relative to the config root.
func (c Config) HistoryPath() string {
	p := c.History.Database
	if p == "" {
		p = filepath.Join(".ubs", "history.db")
	}
	if filepath.IsAbs(p) || c.Root() == "" {
		return p
	}
	return filepath.Join(c.Root(), p)
}
