package fuzztests

import (
	"errors"
	"testing"
	"time"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/parser"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/testkit"
)

// parseTimeout is the maximum time allowed for one input. Longer runs
// point at a loop in error handling or traversal.
const parseTimeout = 5 * time.Second

func FuzzParserBuildsTree(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)

		fs := source.NewFileSet()
		file := fs.Get(fs.AddVirtual("fuzz.rs", input))

		tree, err := parser.Parse(file, parser.Options{Reporter: diag.BagReporter{Bag: diag.NewBag(128)}})
		if err != nil {
			var perr *parser.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("parse failed with %T, want *parser.ParseError: %v", err, err)
			}
			return
		}
		if err := testkit.CheckSpanInvariants(tree); err != nil {
			t.Fatal(err)
		}
	})
}

// FuzzEngineNoHang runs the full rule catalog under a timeout and checks
// the findings it produces.
func FuzzEngineNoHang(f *testing.F) {
	addCorpusSeeds(f)

	f.Add([]byte("fn f() { { { { } } } }"))
	f.Add([]byte("fn f() { let x = ((((((((1)))))))); }"))
	f.Add([]byte("fn f() { a.b().c().d().e().unwrap().unwrap(); }"))
	f.Add([]byte("fn f() { tokio::spawn(async { tokio::spawn(async { x.await.unwrap() }) }); }"))
	f.Add([]byte("fn a() { b() } fn b() { a() }"))
	f.Add([]byte("// ubs:ignore\n// ubs:ignore unwrap-panic -\nfn f() {}"))

	set, err := rules.Default()
	if err != nil {
		f.Fatal(err)
	}
	eng := engine.New(set, engine.Options{})

	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)

		fs := source.NewFileSet()
		file := fs.Get(fs.AddVirtual("fuzz.rs", input))

		done := make(chan *engine.Result, 1)
		go func() { done <- eng.AnalyzeFile(file) }()

		select {
		case res := <-done:
			if len(res.Faults) > 0 {
				t.Fatalf("rule %s panicked: %s\ninput: %q", res.Faults[0].RuleID, res.Faults[0].Value, truncateForLog(input, 200))
			}
			if err := testkit.CheckFindings(file, res.Findings); err != nil {
				t.Fatal(err)
			}
		case <-time.After(parseTimeout):
			t.Fatalf("analysis hang detected: took longer than %v\ninput (%d bytes): %q",
				parseTimeout, len(input), truncateForLog(input, 200))
		}
	})
}

// truncateForLog truncates input for logging purposes
func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(input[:maxLen:maxLen], []byte("...")...)
}
