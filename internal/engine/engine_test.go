package engine_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/parser"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

const buggyUnwrap = `use std::mem;
use std::sync::{Arc, Mutex};

fn compute(value: Option<i32>) -> i32 {
    // WARNING: unwrap without guard
    value.unwrap()
}

fn leak_memory() {
    let data = vec![1, 2, 3];
    unsafe {
        // CRITICAL: transmute arbitrary pointer
        let _: usize = mem::transmute(data);
    }
}

fn main() {
    let shared = Arc::new(Mutex::new(0));
    let clone = shared.clone();
    std::thread::spawn(move || {
        // WARNING: lock().unwrap() panic on poison
        let mut guard = clone.lock().unwrap();
        *guard += 1;
        panic!("boom");
    });

    println!("{}", compute(Some(1)));
    leak_memory();
}
`

func file(name, src string) *source.File {
	fs := source.NewFileSet()
	return fs.Get(fs.AddVirtual(name, []byte(src)))
}

func catalog(t *testing.T) *rules.RuleSet {
	t.Helper()
	set, err := rules.Default()
	if err != nil {
		t.Fatal(err)
	}
	return set
}

func TestAnalyzeBuggyUnwrap(t *testing.T) {
	res := engine.New(catalog(t), engine.Options{}).AnalyzeFile(file("buggy_unwrap.rs", buggyUnwrap))
	want := map[string]int{
		"unwrap-panic":          2,
		"lock-poison-on-panic":  1,
		"unsafe-reinterpret":    1,
		"fire-and-forget-spawn": 1,
	}
	got := engine.ByRule(res.Findings)
	for id, n := range want {
		if len(got[id]) != n {
			t.Fatalf("%s: want %d findings, got %d (%v)", id, n, len(got[id]), res.Findings)
		}
	}
	if len(res.Findings) != 5 {
		t.Fatalf("want 5 findings, got %d: %v", len(res.Findings), res.Findings)
	}
	if v := res.Verdict(); v != engine.VerdictDefective {
		t.Fatalf("want defective, got %s", v)
	}
	if tot := res.Totals(); tot != (engine.Totals{Critical: 2, Warning: 3}) {
		t.Fatalf("want 2 critical 3 warning, got %+v", tot)
	}
	for i := 1; i < len(res.Findings); i++ {
		if res.Findings[i].Span.Start < res.Findings[i-1].Span.Start {
			t.Fatalf("findings not ordered by span: %v", res.Findings)
		}
	}
}

func TestClassify(t *testing.T) {
	f := func(sevs ...rules.Severity) []rules.Finding {
		var out []rules.Finding
		for _, s := range sevs {
			out = append(out, rules.Finding{RuleID: "r", Severity: s})
		}
		return out
	}
	tests := []struct {
		name string
		in   []rules.Finding
		want engine.Verdict
	}{
		{"none", nil, engine.VerdictClean},
		{"info only", f(rules.SeverityInfo, rules.SeverityInfo), engine.VerdictClean},
		{"warning", f(rules.SeverityInfo, rules.SeverityWarning), engine.VerdictFlagged},
		{"critical", f(rules.SeverityWarning, rules.SeverityCritical, rules.SeverityInfo), engine.VerdictDefective},
	}
	for _, tt := range tests {
		if got := engine.Classify(tt.in); got != tt.want {
			t.Fatalf("%s: want %s, got %s", tt.name, tt.want, got)
		}
		if again := engine.Classify(tt.in); again != engine.Classify(tt.in) {
			t.Fatalf("%s: classification not stable", tt.name)
		}
	}
}

func TestRuleFaultIsIsolated(t *testing.T) {
	calls := 0
	boom := rules.Rule{
		ID:       "boom",
		Severity: rules.SeverityCritical,
		Kinds:    []ast.Kind{ast.KindMethodCall},
		Match: func(ctx *rules.Context, id ast.NodeID) {
			calls++
			ctx.ReportNode(id, "partial")
			panic("matcher bug")
		},
	}
	set, err := rules.NewRuleSet(append(rules.Catalog(), boom)...)
	if err != nil {
		t.Fatal(err)
	}
	res := engine.New(set, engine.Options{}).AnalyzeFile(file("buggy_unwrap.rs", buggyUnwrap))
	if calls != 1 {
		t.Fatalf("faulted rule must be disabled for the unit: want 1 call, got %d", calls)
	}
	if len(res.Faults) != 1 || res.Faults[0].RuleID != "boom" || res.Faults[0].Value != "matcher bug" {
		t.Fatalf("want one fault from boom, got %+v", res.Faults)
	}
	if n := len(res.ByRule("boom")); n != 0 {
		t.Fatalf("partial findings of a faulted invocation must be dropped, got %d", n)
	}
	if n := len(res.Findings); n != 5 {
		t.Fatalf("other rules must keep running: want 5 findings, got %d", n)
	}
	if !hasCode(res.Diagnostics, diag.EngRuleFault) {
		t.Fatalf("want %s diagnostic, got %v", diag.EngRuleFault.ID(), res.Diagnostics)
	}
}

func TestVisitBudgetTruncates(t *testing.T) {
	set := catalog(t)
	full := engine.New(set, engine.Options{}).AnalyzeFile(file("a.rs", buggyUnwrap))
	if full.Truncated {
		t.Fatal("default budget truncated a small file")
	}
	res := engine.New(set, engine.Options{MaxVisits: 10}).AnalyzeFile(file("a.rs", buggyUnwrap))
	if !res.Truncated || res.Visited != 10 {
		t.Fatalf("want truncation after 10 visits, got truncated=%v visited=%d", res.Truncated, res.Visited)
	}
	if !hasCode(res.Diagnostics, diag.EngTruncated) {
		t.Fatalf("want %s diagnostic", diag.EngTruncated.ID())
	}
	if len(res.Findings) >= len(full.Findings) {
		t.Fatalf("want partial findings, got %d of %d", len(res.Findings), len(full.Findings))
	}
}

func TestUnparseableUnit(t *testing.T) {
	res := engine.New(catalog(t), engine.Options{}).AnalyzeFile(file("bad.rs", "fn main() {\n    let x = ;\n}\n"))
	if !res.Unparseable || res.ParseError == nil {
		t.Fatalf("want unparseable with a parse error, got %+v", res)
	}
	var perr *parser.ParseError
	if !errors.As(error(res.ParseError), &perr) || perr.Pos.Line != 2 {
		t.Fatalf("want parse error on line 2, got %v", res.ParseError)
	}
	if len(res.Findings) != 0 || res.Visited != 0 {
		t.Fatalf("no rule may run on an unparseable unit")
	}
	if !hasCode(res.Diagnostics, diag.EngUnparseable) {
		t.Fatalf("want %s diagnostic", diag.EngUnparseable.ID())
	}
	if v := res.Verdict(); v != engine.VerdictClean {
		t.Fatalf("want clean verdict for a skipped unit, got %s", v)
	}
}

func TestNormalize(t *testing.T) {
	a := rules.Finding{RuleID: "b-rule", Severity: rules.SeverityInfo, Span: source.Span{Start: 5, End: 8}, Message: "m"}
	b := rules.Finding{RuleID: "a-rule", Severity: rules.SeverityInfo, Span: source.Span{Start: 5, End: 8}, Message: "m"}
	c := rules.Finding{RuleID: "a-rule", Severity: rules.SeverityInfo, Span: source.Span{Start: 1, End: 2}, Message: "m"}
	got := engine.Normalize([]rules.Finding{a, b, a, c, b})
	want := []rules.Finding{c, b, a}
	if len(got) != len(want) {
		t.Fatalf("want %d findings, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("finding %d: want %v, got %v", i, want[i], got[i])
		}
	}
}

func TestIgnoreDirectives(t *testing.T) {
	src := `fn compute(value: Option<i32>) -> i32 {
    // ubs:ignore unwrap-panic - checked by the caller
    value.unwrap()
}

fn other(value: Option<i32>) -> i32 {
    value.unwrap() // ubs:ignore lock-poison-on-panic
}

fn unused() {
    // ubs:ignore unsafe-reinterpret, not-a-rule
    let x = 1;
}
`
	set := catalog(t)
	res := engine.New(set, engine.Options{ReportUnusedIgnores: true}).AnalyzeFile(file("ignore.rs", src))
	if len(res.Findings) != 1 || res.Suppressed != 1 {
		t.Fatalf("want 1 finding and 1 suppressed, got %d and %d", len(res.Findings), res.Suppressed)
	}
	if !hasCode(res.Diagnostics, diag.EngUnknownIgnore) || !hasCode(res.Diagnostics, diag.EngUnusedIgnore) {
		t.Fatalf("want unknown and unused ignore diagnostics, got %v", res.Diagnostics)
	}

	raw := engine.New(set, engine.Options{NoIgnores: true}).AnalyzeFile(file("ignore.rs", src))
	if len(raw.Findings) != 2 {
		t.Fatalf("NoIgnores: want 2 findings, got %d", len(raw.Findings))
	}
}

func TestDeterministic(t *testing.T) {
	eng := engine.New(catalog(t), engine.Options{})
	f := file("buggy_unwrap.rs", buggyUnwrap)
	first := eng.AnalyzeFile(f)
	for i := 0; i < 3; i++ {
		again := eng.AnalyzeFile(f)
		if len(again.Findings) != len(first.Findings) {
			t.Fatalf("run %d: finding count changed", i)
		}
		for j := range first.Findings {
			if again.Findings[j] != first.Findings[j] {
				t.Fatalf("run %d: finding %d changed", i, j)
			}
		}
	}
}

func TestVerdictText(t *testing.T) {
	for _, v := range []engine.Verdict{engine.VerdictClean, engine.VerdictFlagged, engine.VerdictDefective} {
		text, err := v.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back engine.Verdict
		if err := back.UnmarshalText(text); err != nil || back != v {
			t.Fatalf("%s: round trip gave %s, %v", v, back, err)
		}
	}
	var v engine.Verdict
	if err := v.UnmarshalText([]byte("broken")); err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("want unknown verdict error, got %v", err)
	}
}

func hasCode(ds []diag.Diagnostic, code diag.Code) bool {
	for _, d := range ds {
		if d.Code == code {
			return true
		}
	}
	return false
}
