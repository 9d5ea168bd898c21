package config_test

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/config"
)

func write(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDiscoverSearchesUpward(t *testing.T) {
	root := t.TempDir()
	write(t, root, `
[scan]
jobs = 4
exclude = ["target/**", "*_gen.rs"]
fail-on-warning = true

[rules]
disable = ["unwrap-panic"]

[rules.unbounded-blocking-wait]
threshold = "250ms"

[history]
database = "runs.db"

[log]
level = "debug"
format = "json"
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Discover(nested)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scan.Jobs != 4 || !cfg.Scan.FailOnWarning || !slices.Equal(cfg.Scan.Exclude, []string{"target/**", "*_gen.rs"}) {
		t.Fatalf("unexpected scan config %+v", cfg.Scan)
	}
	if got := cfg.Settings().BlockingThreshold; got != 250*time.Millisecond {
		t.Fatalf("want 250ms threshold, got %v", got)
	}
	set, err := cfg.RuleSet()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := set.Lookup("unwrap-panic"); ok || set.Len() != 5 {
		t.Fatalf("want 5 rules without unwrap-panic, got %v", set.IDs())
	}
	if want := filepath.Join(root, "runs.db"); cfg.HistoryPath() != want {
		t.Fatalf("want history %s, got %s", want, cfg.HistoryPath())
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := config.Discover(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != "" {
		t.Skipf("a %s above the temp dir is in the way: %s", config.FileName, cfg.Path)
	}
	if cfg.Settings().BlockingThreshold != time.Second {
		t.Fatalf("want default 1s threshold, got %v", cfg.Settings().BlockingThreshold)
	}
	set, err := cfg.RuleSet()
	if err != nil || set.Len() != 6 {
		t.Fatalf("want full catalog, got %v %v", set, err)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[scan\n", "failed to parse TOML"},
		{"unknown key", "[scan]\nthreads = 2\n", "unknown keys: scan.threads"},
		{"negative jobs", "[scan]\njobs = -1\n", "jobs must not be negative"},
		{"bad duration", "[rules.unbounded-blocking-wait]\nthreshold = \"soon\"\n", "failed to parse TOML"},
		{"both lists", "[rules]\nenable = [\"a\"]\ndisable = [\"b\"]\n", "mutually exclusive"},
		{"log level", "[log]\nlevel = \"loud\"\n", "[log].level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := write(t, t.TempDir(), tt.body)
			_, err := config.Load(p)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("want error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestUnknownRuleInConfig(t *testing.T) {
	p := write(t, t.TempDir(), "[rules]\nenable = [\"no-such-rule\"]\n")
	cfg, err := config.Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.RuleSet(); err == nil {
		t.Fatal("want configuration error for unknown rule")
	}
}
