package conformance_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/conformance"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
)

const corpus = "testdata/corpus"

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	set, err := rules.Default()
	if err != nil {
		t.Fatal(err)
	}
	return engine.New(set, engine.Options{})
}

func TestCorpus(t *testing.T) {
	res, err := conformance.Run(context.Background(), newEngine(t), corpus, conformance.Options{Jobs: 4})
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range res.Failures() {
		t.Errorf("%s", o)
	}
	for _, c := range res.Cases {
		for _, e := range c.Errors {
			t.Errorf("case %s: %s", c.ID, e)
		}
	}
	if want := 16; len(res.Fixtures) != want {
		t.Fatalf("want %d fixtures, got %d", want, len(res.Fixtures))
	}
	if want := 4; len(res.Cases) != want {
		t.Fatalf("want %d cases, got %d", want, len(res.Cases))
	}
	if !res.OK() {
		t.Fatal("corpus does not conform")
	}
}

func TestManifestMapsCategory(t *testing.T) {
	res, err := conformance.Run(context.Background(), newEngine(t), corpus, conformance.Options{Category: "async_errors"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Fixtures) != 4 || len(res.Cases) != 0 {
		t.Fatalf("want 4 fixtures and no cases, got %d and %d", len(res.Fixtures), len(res.Cases))
	}
	for _, o := range res.Fixtures {
		if o.Rule != "silent-background-error" || o.MinSeverity != rules.SeverityWarning {
			t.Fatalf("%s mapped to %s/%s", o.Fixture.Path, o.Rule, o.MinSeverity)
		}
	}
}

func TestMinSeverityDefaultsToRule(t *testing.T) {
	res, err := conformance.Run(context.Background(), newEngine(t), corpus, conformance.Options{Category: "unsafe-reinterpret"})
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range res.Fixtures {
		if o.MinSeverity != rules.SeverityCritical {
			t.Fatalf("want critical, got %s", o.MinSeverity)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMismatchesAreReported(t *testing.T) {
	root := t.TempDir()
	// the clean fixture unwraps and the buggy one does not
	writeFile(t, filepath.Join(root, "unwrap-panic", "clean", "a.rs"), "fn f(v: Option<i32>) -> i32 {\n    v.unwrap()\n}\n")
	writeFile(t, filepath.Join(root, "unwrap-panic", "buggy", "b.rs"), "fn f(v: Option<i32>) -> i32 {\n    v.unwrap_or(0)\n}\n")
	writeFile(t, filepath.Join(root, "unwrap-panic", "buggy", "broken.rs"), "fn f( {\n")

	res, err := conformance.Run(context.Background(), newEngine(t), root, conformance.Options{})
	if err != nil {
		t.Fatal(err)
	}
	failures := res.Failures()
	if len(failures) != 3 || res.OK() {
		t.Fatalf("want 3 failures, got %d", len(failures))
	}
	byPath := map[string]conformance.Outcome{}
	for _, o := range failures {
		byPath[o.Fixture.Path] = o
	}
	if o := byPath["unwrap-panic/clean/a.rs"]; o.Count != 1 || !strings.Contains(o.String(), "want 0 findings, got 1") {
		t.Fatalf("clean failure: %s", o)
	}
	if o := byPath["unwrap-panic/buggy/b.rs"]; o.Count != 0 || !strings.Contains(o.String(), ">=1 finding at or above warning") {
		t.Fatalf("buggy failure: %s", o)
	}
	if o := byPath["unwrap-panic/buggy/broken.rs"]; !strings.Contains(o.Detail, "unparseable") {
		t.Fatalf("broken failure: %s", o)
	}

	var buf bytes.Buffer
	if err := conformance.Write(&buf, res, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "[FAIL] unwrap-panic/clean/a.rs") || !strings.Contains(buf.String(), "0/3 passed") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestUnknownCategoryRule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "no-such-rule", "buggy", "a.rs"), "fn main() {}\n")
	if _, err := conformance.Run(context.Background(), newEngine(t), root, conformance.Options{}); err == nil || !strings.Contains(err.Error(), `unknown rule "no-such-rule"`) {
		t.Fatalf("want unknown rule error, got %v", err)
	}
}

func TestCaseExpectationFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "unwrap-panic", "buggy", "a.rs"), "fn f(v: Option<i32>) -> i32 {\n    v.unwrap()\n}\n")
	writeFile(t, filepath.Join(root, "corpus.yaml"), `
cases:
  - id: expects-clean
    path: unwrap-panic
    fail_on_warning: true
    expect:
      exit_code: zero
`)
	res, err := conformance.Run(context.Background(), newEngine(t), root, conformance.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Cases) != 1 || res.Cases[0].Passed() {
		t.Fatalf("want one failing case, got %+v", res.Cases)
	}
	if got := res.Cases[0].Errors[0]; got != "expected exit 0 but derived 1" {
		t.Fatalf("unexpected error %q", got)
	}
}

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		ok   bool
	}{
		{"empty", "", true},
		{"category", "categories:\n  x:\n    rule: unwrap-panic\n    min_severity: info\n", true},
		{"bad severity", "categories:\n  x:\n    min_severity: fatal\n", false},
		{"unknown field", "categoriez: {}\n", false},
		{"case without path", "cases:\n  - id: a\n", false},
		{"duplicate case", "cases:\n  - {id: a, path: x}\n  - {id: a, path: y}\n", false},
		{"bad expectation", "cases:\n  - id: a\n    path: x\n    expect: {exit_code: maybe}\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := conformance.ParseManifest([]byte(tt.yaml), "corpus.yaml")
			if (err == nil) != tt.ok {
				t.Fatalf("ok=%v, err=%v", tt.ok, err)
			}
		})
	}
}
