// Package conformance replays the buggy/clean fixture corpus against the
// engine. A corpus root holds {category}/{buggy|clean}/*.rs; every buggy
// fixture must raise the category's rule and every clean fixture must not.
package conformance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/driver"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/logger"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/report"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

// Kind is the side of a fixture pair.
type Kind string

const (
	Buggy Kind = "buggy"
	Clean Kind = "clean"
)

// Fixture is one source file of the corpus.
type Fixture struct {
	Category string
	Kind     Kind
	// Path is relative to the corpus root, with forward slashes.
	Path string
}

// Outcome is the verdict for one fixture.
type Outcome struct {
	Fixture     Fixture
	Rule        string
	MinSeverity rules.Severity
	// Count is the number of findings from Rule at or above MinSeverity
	// for buggy fixtures, and from Rule at any severity for clean ones.
	Count  int
	Passed bool
	Detail string
}

func (o Outcome) String() string {
	if o.Passed {
		return fmt.Sprintf("%s: %s ok (%d)", o.Fixture.Path, o.Rule, o.Count)
	}
	want := "0 findings"
	if o.Fixture.Kind == Buggy {
		want = fmt.Sprintf(">=1 finding at or above %s", o.MinSeverity)
	}
	msg := fmt.Sprintf("%s: rule %s: want %s, got %d", o.Fixture.Path, o.Rule, want, o.Count)
	if o.Detail != "" {
		msg += " (" + o.Detail + ")"
	}
	return msg
}

// CaseOutcome is the verdict for one manifest case.
type CaseOutcome struct {
	ID       string
	Duration time.Duration
	Errors   []string
}

func (c CaseOutcome) Passed() bool { return len(c.Errors) == 0 }

// Result is the whole harness run.
type Result struct {
	Fixtures []Outcome
	Cases    []CaseOutcome
}

// Failures lists failing fixture outcomes.
func (r *Result) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Fixtures {
		if !o.Passed {
			out = append(out, o)
		}
	}
	return out
}

// OK reports whether every fixture and case passed.
func (r *Result) OK() bool {
	if len(r.Failures()) > 0 {
		return false
	}
	for _, c := range r.Cases {
		if !c.Passed() {
			return false
		}
	}
	return true
}

// Options configure a harness run.
type Options struct {
	Jobs   int
	Logger *zap.Logger
	// Category restricts the run to one category when set.
	Category string
}

// Discover lists fixtures under root in path order.
func Discover(root string) ([]Fixture, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []Fixture
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		for _, kind := range []Kind{Buggy, Clean} {
			matches, err := filepath.Glob(filepath.Join(root, e.Name(), string(kind), "*.rs"))
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				rel, err := filepath.Rel(root, m)
				if err != nil {
					return nil, err
				}
				out = append(out, Fixture{Category: e.Name(), Kind: kind, Path: filepath.ToSlash(rel)})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Run replays the corpus at root through eng and then evaluates the
// manifest cases. Only configuration problems (unknown rule, bad
// manifest, unreadable root) are returned as errors; fixture mismatches
// are reported in the Result.
func Run(ctx context.Context, eng *engine.Engine, root string, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named(logger.ComponentConformance)

	manifest, err := LoadManifest(root)
	if err != nil {
		return nil, err
	}
	fixtures, err := Discover(root)
	if err != nil {
		return nil, err
	}
	if opts.Category != "" {
		kept := fixtures[:0]
		for _, f := range fixtures {
			if f.Category == opts.Category {
				kept = append(kept, f)
			}
		}
		fixtures = kept
		if len(fixtures) == 0 {
			return nil, fmt.Errorf("no fixtures for category %q under %s", opts.Category, root)
		}
	}

	fs := source.NewFileSetWithBase(root)
	ids := make([]source.FileID, 0, len(fixtures))
	byPath := make(map[string]Fixture, len(fixtures))
	for _, f := range fixtures {
		id, err := fs.Load(filepath.Join(root, filepath.FromSlash(f.Path)))
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", f.Path, err)
		}
		ids = append(ids, id)
		byPath[f.Path] = f
	}
	units, _, err := driver.Analyze(ctx, eng, fs, ids, driver.Options{Jobs: opts.Jobs, Logger: log})
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, unit := range units {
		f, ok := byPath[filepath.ToSlash(unit.Path)]
		if !ok {
			return nil, fmt.Errorf("unit %s does not match a fixture", unit.Path)
		}
		ruleID, minSev, err := manifest.Resolve(f.Category, eng.RuleSet())
		if err != nil {
			return nil, err
		}
		out := Check(f, unit, ruleID, minSev)
		if !out.Passed {
			log.Debug("fixture failed", zap.String("fixture", f.Path), zap.String("rule", ruleID), zap.Int("count", out.Count))
		}
		res.Fixtures = append(res.Fixtures, out)
	}

	if opts.Category == "" {
		for _, c := range manifest.Cases {
			res.Cases = append(res.Cases, runCase(ctx, eng, root, c, opts, log))
		}
	}
	return res, nil
}

// Check judges one analysed fixture against its rule.
func Check(f Fixture, unit *engine.Result, ruleID string, minSev rules.Severity) Outcome {
	out := Outcome{Fixture: f, Rule: ruleID, MinSeverity: minSev}
	if unit.Unparseable {
		out.Detail = "unparseable"
		if unit.ParseError != nil {
			out.Detail += ": " + unit.ParseError.Error()
		}
		return out
	}
	for _, finding := range unit.ByRule(ruleID) {
		if f.Kind == Clean || finding.Severity >= minSev {
			out.Count++
		}
	}
	if len(unit.Faults) > 0 {
		out.Detail = fmt.Sprintf("%d rule faults", len(unit.Faults))
	}
	if unit.Truncated {
		out.Detail = "truncated"
	}
	switch f.Kind {
	case Buggy:
		out.Passed = out.Count >= 1
	case Clean:
		out.Passed = out.Count == 0
	}
	return out
}

func runCase(ctx context.Context, eng *engine.Engine, root string, c Case, opts Options, log *zap.Logger) CaseOutcome {
	started := time.Now()
	out := CaseOutcome{ID: c.ID}
	scan, err := driver.Scan(ctx, eng, []string{filepath.Join(root, filepath.FromSlash(c.Path))}, driver.Options{
		Jobs:    opts.Jobs,
		BaseDir: root,
		Logger:  log,
	})
	if err != nil {
		out.Errors = []string{err.Error()}
		out.Duration = time.Since(started)
		return out
	}
	doc := report.Build(scan.FileSet, scan.Units, report.Meta{})
	for _, le := range scan.LoadErrors {
		doc.LoadErrors = append(doc.LoadErrors, le.Error())
	}
	var text strings.Builder
	if err := report.Text(&text, doc, report.TextOpts{}); err != nil {
		out.Errors = []string{err.Error()}
	} else {
		out.Errors = c.Expect.Check(doc, report.Policy{FailOnWarning: c.FailOnWarning}, text.String())
	}
	out.Duration = time.Since(started)
	return out
}
