package rules_test

import (
	"bufio"
	"bytes"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/tools/txtar"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/parser"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

func parse(t *testing.T, name, src string) *ast.Tree {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual(name, []byte(src))
	tree, err := parser.Parse(fs.Get(id), parser.Options{})
	if err != nil {
		t.Fatalf("%s: parse: %v", name, err)
	}
	return tree
}

// run evaluates set over tree in pre-order, the same dispatch the engine
// performs, without fault isolation.
func run(tree *ast.Tree, set *rules.RuleSet, settings rules.Settings) []rules.Finding {
	ctx := rules.NewContext(tree, settings)
	tree.Inspect(tree.Root, func(id ast.NodeID, n *ast.Node) bool {
		for _, r := range set.ForKind(n.Kind) {
			ctx.Evaluate(r, id)
		}
		return true
	})
	return ctx.Findings()
}

func defaultSet(t *testing.T) *rules.RuleSet {
	t.Helper()
	set, err := rules.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	return set
}

func count(findings []rules.Finding, rule string) int {
	n := 0
	for _, f := range findings {
		if f.RuleID == rule {
			n++
		}
	}
	return n
}

func spanText(tree *ast.Tree, sp source.Span) string {
	return string(tree.File.Content[sp.Start:sp.End])
}

type expectation struct {
	file  string
	rule  string
	count int
}

// expectations reads `<file> <rule> <count>` lines from an archive comment.
func expectations(t *testing.T, ar *txtar.Archive) []expectation {
	t.Helper()
	var out []expectation
	sc := bufio.NewScanner(bytes.NewReader(ar.Comment))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 3 || !strings.HasSuffix(fields[0], ".rs") {
			continue
		}
		n, err := strconv.Atoi(fields[2])
		if err != nil {
			t.Fatalf("bad count in %q: %v", sc.Text(), err)
		}
		out = append(out, expectation{file: fields[0], rule: fields[1], count: n})
	}
	return out
}

func TestRuleFixtures(t *testing.T) {
	archives, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) == 0 {
		t.Fatal("no fixture archives")
	}
	set := defaultSet(t)
	for _, path := range archives {
		ar, err := txtar.ParseFile(path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		files := make(map[string]string, len(ar.Files))
		for _, f := range ar.Files {
			files[f.Name] = string(f.Data)
		}
		wants := expectations(t, ar)
		covered := make(map[string]bool)
		for _, w := range wants {
			covered[w.file] = true
			t.Run(filepath.Base(path)+"/"+w.file, func(t *testing.T) {
				src, ok := files[w.file]
				if !ok {
					t.Fatalf("archive has no file %s", w.file)
				}
				tree := parse(t, w.file, src)
				got := run(tree, set, rules.DefaultSettings())
				if n := count(got, w.rule); n != w.count {
					t.Fatalf("%s findings: want %d, got %d (%v)", w.rule, w.count, n, got)
				}
			})
		}
		for name := range files {
			if !covered[name] {
				t.Fatalf("%s: file %s has no expectation", path, name)
			}
		}
	}
}

const scenarioUnwrap = `fn compute(value: Option<i32>) -> i32 {
    value.unwrap()
}
`

func TestScenarioUnguardedUnwrap(t *testing.T) {
	tree := parse(t, "unwrap.rs", scenarioUnwrap)
	got := run(tree, defaultSet(t), rules.DefaultSettings())
	if len(got) != 1 {
		t.Fatalf("want 1 finding, got %d: %v", len(got), got)
	}
	f := got[0]
	if f.RuleID != "unwrap-panic" || f.Severity != rules.SeverityWarning {
		t.Fatalf("want unwrap-panic warning, got %s %s", f.RuleID, f.Severity)
	}
	if text := spanText(tree, f.Span); text != "unwrap()" {
		t.Fatalf("want anchor %q, got %q", "unwrap()", text)
	}
}

const scenarioTransmute = `use std::mem;

fn leak_memory() {
    let data = vec![1, 2, 3];
    unsafe {
        let _: usize = mem::transmute(data);
    }
}
`

func TestScenarioTransmuteOwnedVec(t *testing.T) {
	tree := parse(t, "transmute.rs", scenarioTransmute)
	got := run(tree, defaultSet(t), rules.DefaultSettings())
	if len(got) != 1 {
		t.Fatalf("want 1 finding, got %d: %v", len(got), got)
	}
	if got[0].RuleID != "unsafe-reinterpret" || got[0].Severity != rules.SeverityCritical {
		t.Fatalf("want unsafe-reinterpret critical, got %s %s", got[0].RuleID, got[0].Severity)
	}
	if text := spanText(tree, got[0].Span); text != "mem::transmute(data)" {
		t.Fatalf("want anchor at the call, got %q", text)
	}
}

const scenarioLock = `use std::sync::{Arc, Mutex};

fn main() {
    let shared = Arc::new(Mutex::new(0));
    let clone = shared.clone();
    let handle = std::thread::spawn(move || {
        let mut guard = clone.lock().unwrap();
        *guard += 1;
        panic!("boom");
    });
    handle.join().ok();
}
`

func TestScenarioLockHeldAcrossPanic(t *testing.T) {
	tree := parse(t, "lock.rs", scenarioLock)
	got := run(tree, defaultSet(t), rules.DefaultSettings())
	var lock []rules.Finding
	for _, f := range got {
		if f.RuleID == "lock-poison-on-panic" {
			lock = append(lock, f)
		}
	}
	if len(lock) != 1 {
		t.Fatalf("want 1 lock-poison-on-panic finding, got %d: %v", len(lock), got)
	}
	if lock[0].Severity != rules.SeverityCritical {
		t.Fatalf("want critical, got %s", lock[0].Severity)
	}
	if text := spanText(tree, lock[0].Span); text != `panic!("boom")` {
		t.Fatalf("want anchor at the panic, got %q", text)
	}
}

const scenarioAbort = `async fn run() {
    let handle = tokio::spawn(async move {
        work().await;
    });
    println!("spawned: {:?}", handle.abort());
}
`

func TestScenarioAbortedHandle(t *testing.T) {
	tree := parse(t, "abort.rs", scenarioAbort)
	got := run(tree, defaultSet(t), rules.DefaultSettings())
	if len(got) != 1 || got[0].RuleID != "fire-and-forget-spawn" {
		t.Fatalf("want one fire-and-forget-spawn finding, got %v", got)
	}
	if text := spanText(tree, got[0].Span); text != "tokio::spawn" {
		t.Fatalf("want anchor at the spawn callee, got %q", text)
	}
}

const scenarioClean = `use std::sync::{Arc, Mutex};

fn compute(value: Option<i32>) -> Result<i32, &'static str> {
    value.ok_or("missing value")
}

fn main() -> Result<(), Box<dyn std::error::Error>> {
    let shared = Arc::new(Mutex::new(0));
    let clone = Arc::clone(&shared);
    let handle = std::thread::spawn(move || {
        let mut guard = clone.lock().expect("lock poisoned");
        *guard += 1;
    });

    handle.join().expect("thread failed");
    let guard = shared.lock()?;
    println!("value: {}", *guard);
    println!("compute: {}", compute(Some(5))?);
    Ok(())
}
`

func TestScenarioCleanResults(t *testing.T) {
	tree := parse(t, "clean_results.rs", scenarioClean)
	if got := run(tree, defaultSet(t), rules.DefaultSettings()); len(got) != 0 {
		t.Fatalf("want no findings, got %v", got)
	}
}

func TestBlockingThresholdSetting(t *testing.T) {
	src := `use std::time::Duration;

async fn slow() -> Result<(), ()> {
    tokio::time::sleep(Duration::from_secs(5)).await;
    Ok(())
}

fn start() {
    let h = tokio::spawn(async {
        slow().await.unwrap();
    });
    drop(h);
}
`
	set, err := defaultSet(t).Select("unbounded-blocking-wait")
	if err != nil {
		t.Fatal(err)
	}
	tree := parse(t, "slow.rs", src)
	if got := run(tree, set, rules.DefaultSettings()); len(got) != 1 || got[0].Severity != rules.SeverityInfo {
		t.Fatalf("default threshold: want one info finding, got %v", got)
	}
	long := rules.Settings{BlockingThreshold: 10 * time.Second}
	if got := run(tree, set, long); len(got) != 0 {
		t.Fatalf("10s threshold: want no findings, got %v", got)
	}
}

func TestDeterministicFindings(t *testing.T) {
	tree := parse(t, "lock.rs", scenarioLock)
	set := defaultSet(t)
	first := run(tree, set, rules.DefaultSettings())
	for i := 0; i < 5; i++ {
		again := run(tree, set, rules.DefaultSettings())
		if len(again) != len(first) {
			t.Fatalf("run %d: want %d findings, got %d", i, len(first), len(again))
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d finding %d: want %v, got %v", i, j, first[j], again[j])
			}
		}
	}
}

func TestRemovingRuleKeepsOthers(t *testing.T) {
	tree := parse(t, "lock.rs", scenarioLock)
	full := defaultSet(t)
	without, err := full.Without("unwrap-panic")
	if err != nil {
		t.Fatal(err)
	}
	all := run(tree, full, rules.DefaultSettings())
	rest := run(tree, without, rules.DefaultSettings())
	var kept []rules.Finding
	for _, f := range all {
		if f.RuleID != "unwrap-panic" {
			kept = append(kept, f)
		}
	}
	if len(kept) != len(rest) {
		t.Fatalf("want %d findings, got %d", len(kept), len(rest))
	}
	for i := range kept {
		if kept[i] != rest[i] {
			t.Fatalf("finding %d: want %v, got %v", i, kept[i], rest[i])
		}
	}
}

func TestReportOutsideEvaluatePanics(t *testing.T) {
	tree := parse(t, "unwrap.rs", scenarioUnwrap)
	ctx := rules.NewContext(tree, rules.DefaultSettings())
	defer func() {
		if recover() == nil {
			t.Fatal("want panic")
		}
	}()
	ctx.Report(source.Span{}, "stray")
}

func TestTruncateDropsLaterFindings(t *testing.T) {
	tree := parse(t, "unwrap.rs", scenarioUnwrap)
	ctx := rules.NewContext(tree, rules.DefaultSettings())
	r := rules.Rule{ID: "noisy", Severity: rules.SeverityInfo, Kinds: []ast.Kind{ast.KindFn}, Match: func(ctx *rules.Context, id ast.NodeID) {
		ctx.ReportNode(id, "one")
		ctx.ReportNode(id, "two")
	}}
	ctx.Evaluate(&r, tree.FunctionsNamed("compute")[0])
	mark := ctx.Mark()
	ctx.Evaluate(&r, tree.FunctionsNamed("compute")[0])
	ctx.Truncate(mark)
	if got := len(ctx.Findings()); got != 2 {
		t.Fatalf("want 2 findings, got %d", got)
	}
}

func TestMemoIsScopedByRule(t *testing.T) {
	tree := parse(t, "unwrap.rs", scenarioUnwrap)
	ctx := rules.NewContext(tree, rules.DefaultSettings())
	var seen []any
	mk := func(id string, v int) rules.Rule {
		return rules.Rule{ID: id, Severity: rules.SeverityInfo, Kinds: []ast.Kind{ast.KindFn}, Match: func(ctx *rules.Context, _ ast.NodeID) {
			seen = append(seen, ctx.Memo("k", func() any { return v }))
		}}
	}
	a, b := mk("a", 1), mk("b", 2)
	fn := tree.FunctionsNamed("compute")[0]
	ctx.Evaluate(&a, fn)
	ctx.Evaluate(&b, fn)
	ctx.Evaluate(&a, fn)
	if len(seen) != 3 || seen[0] != 1 || seen[1] != 2 || seen[2] != 1 {
		t.Fatalf("want [1 2 1], got %v", seen)
	}
}

func TestConfigurationErrorWrapsSentinel(t *testing.T) {
	err := error(&rules.ConfigurationError{RuleID: "x", Reason: "r", Err: rules.ErrInvalidRule})
	if !errors.Is(err, rules.ErrInvalidRule) {
		t.Fatalf("want errors.Is ErrInvalidRule for %v", err)
	}
}
