package parser_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/parser"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/testkit"
)

func parse(t *testing.T, src string) *ast.Tree {
	t.Helper()
	tree, err := tryParse(src, parser.Options{})
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	checkSpans(t, tree)
	return tree
}

func tryParse(src string, opts parser.Options) (*ast.Tree, error) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.rs", []byte(src))
	return parser.Parse(fs.Get(id), opts)
}

func find(tree *ast.Tree, kind ast.Kind) []ast.NodeID {
	var out []ast.NodeID
	tree.Inspect(tree.Root, func(id ast.NodeID, n *ast.Node) bool {
		if n.Kind == kind {
			out = append(out, id)
		}
		return true
	})
	return out
}

func checkSpans(t *testing.T, tree *ast.Tree) {
	t.Helper()
	if err := testkit.CheckSpanInvariants(tree); err != nil {
		t.Fatal(err)
	}
}

const buggyUnwrap = `use std::mem;
use std::sync::{Arc, Mutex};

fn compute(value: Option<i32>) -> i32 {
    value.unwrap()
}

fn leak_memory() {
    let data = vec![1, 2, 3];
    unsafe {
        let _: usize = mem::transmute(data);
    }
}

fn main() {
    let shared = Arc::new(Mutex::new(0));
    let clone = shared.clone();
    std::thread::spawn(move || {
        let mut guard = clone.lock().unwrap();
        *guard += 1;
        panic!("boom");
    });
    println!("{}", compute(Some(1)));
}
`

func TestParseFixtureShape(t *testing.T) {
	tree := parse(t, buggyUnwrap)

	if got := len(find(tree, ast.KindFn)); got != 3 {
		t.Fatalf("fn items: want 3, got %d", got)
	}
	if got := len(find(tree, ast.KindSpawnCall)); got != 1 {
		t.Fatalf("spawn calls: want 1, got %d", got)
	}
	if got := len(find(tree, ast.KindUnsafeBlock)); got != 1 {
		t.Fatalf("unsafe blocks: want 1, got %d", got)
	}

	var unwraps, panics int
	tree.Inspect(tree.Root, func(_ ast.NodeID, n *ast.Node) bool {
		if n.Flags.Has(ast.FlagPanicCapable) {
			switch n.Kind {
			case ast.KindMethodCall:
				unwraps++
			case ast.KindMacroCall:
				panics++
			}
		}
		return true
	})
	if unwraps != 2 || panics != 1 {
		t.Fatalf("panic-capable: want 2 unwraps and 1 panic!, got %d and %d", unwraps, panics)
	}

	lets := find(tree, ast.KindLet)
	var sawUsize, sawMut bool
	for _, l := range lets {
		_, typ, _, _ := tree.LetParts(l)
		if typ.IsValid() && tree.Node(typ).Text == "usize" {
			sawUsize = true
		}
		if tree.Node(l).Flags.Has(ast.FlagMut) {
			sawMut = true
		}
	}
	if !sawUsize || !sawMut {
		t.Fatalf("let annotations: usize=%v mut=%v", sawUsize, sawMut)
	}
	if fns := tree.FunctionsNamed("compute"); len(fns) != 1 {
		t.Fatalf("fn index: want compute once, got %v", fns)
	}
}

func TestParseNestedGenericsSplitShr(t *testing.T) {
	tree := parse(t, `fn main() -> Result<(), Box<dyn std::error::Error>> {
    let v: Vec<Vec<u8>> = Vec::new();
    let ok = a >> 2;
    Ok(())
}`)
	var texts []string
	for _, id := range find(tree, ast.KindType) {
		texts = append(texts, tree.Node(id).Text)
	}
	want := "Result<(), Box<dyn std::error::Error>>|Vec<Vec<u8>>"
	if got := strings.Join(texts, "|"); got != want {
		t.Fatalf("types: want %q, got %q", want, got)
	}
	bins := find(tree, ast.KindBinary)
	if len(bins) != 1 || tree.Node(bins[0]).Text != ">>" {
		t.Fatalf("shift expression should survive generic splitting")
	}
}

func TestParseTurbofishArguments(t *testing.T) {
	tree := parse(t, `fn f(v: Vec<u8>) { let n = std::mem::transmute::<Vec<u8>, usize>(v); }`)
	calls := find(tree, ast.KindCall)
	if len(calls) != 1 {
		t.Fatalf("want one call, got %d", len(calls))
	}
	callee := tree.Callee(calls[0])
	if got := tree.Node(callee).Text; got != "std::mem::transmute" {
		t.Fatalf("callee path: got %q", got)
	}
	var args []string
	for _, c := range tree.Children(callee) {
		args = append(args, tree.Node(c).Text)
	}
	if got := strings.Join(args, ","); got != "Vec<u8>,usize" {
		t.Fatalf("turbofish: got %q", got)
	}
}

func TestParseStructLiteralRestrictions(t *testing.T) {
	tree := parse(t, `fn f() {
    if x == y { a } else { b }
    let p = Point { x: 1, y };
    match p { Point { x, .. } => x, }
    for i in items { use_it(i); }
}`)
	lits := find(tree, ast.KindStructLit)
	if len(lits) != 1 {
		t.Fatalf("struct literals: want 1, got %d", len(lits))
	}
	if got := len(tree.Children(lits[0])); got != 2 {
		t.Fatalf("field inits: want 2, got %d", got)
	}
	if got := len(find(tree, ast.KindIf)); got != 1 {
		t.Fatalf("if: want 1, got %d", got)
	}
}

func TestParseBlockLikeStatements(t *testing.T) {
	tree := parse(t, `fn f() {
    match x { _ => {} }
    *guard += 1;
    unsafe { g() }.len();
    loop { break; }
}`)
	body := tree.Body(tree.FunctionsNamed("f")[0])
	stmts := tree.Children(body)
	if len(stmts) != 4 {
		t.Fatalf("statements: want 4, got %d", len(stmts))
	}
	if k := tree.Kind(tree.Child(stmts[1], 0)); k != ast.KindAssign {
		t.Fatalf("second statement: want Assign, got %v", k)
	}
	if k := tree.Kind(tree.Child(stmts[2], 0)); k != ast.KindMethodCall {
		t.Fatalf("postfix after unsafe block: want MethodCall, got %v", k)
	}
}

func TestParseLetElseAndLetChains(t *testing.T) {
	tree := parse(t, `fn f(a: Option<u8>) -> u8 {
    let Some(x) = a else { return 0; };
    if let Some(y) = a && y > 1 { return y; }
    while let Some(z) = next() { z.unwrap(); }
    x
}`)
	lets := find(tree, ast.KindLet)
	_, _, init, els := tree.LetParts(lets[0])
	if !init.IsValid() || !els.IsValid() || !tree.Node(els).Flags.Has(ast.FlagLetElse) {
		t.Fatalf("let-else parts: init=%d else=%d", init, els)
	}
	if got := len(find(tree, ast.KindLetCond)); got != 2 {
		t.Fatalf("let conditions: want 2, got %d", got)
	}
	ifs := find(tree, ast.KindIf)
	cond := tree.Child(ifs[0], 0)
	if tree.Kind(cond) != ast.KindBinary || tree.Kind(tree.Child(cond, 0)) != ast.KindLetCond {
		t.Fatalf("let chain: want Binary(LetCond, ...), got %v", tree.Kind(cond))
	}
}

func TestParseMacros(t *testing.T) {
	tree := parse(t, `fn f() {
    println!("{:?}", x.unwrap());
    let v = vec![0; n];
    tokio::select! { a = rx.recv() => {} }
    macro_rules! m { () => {} }
}`)
	macros := find(tree, ast.KindMacroCall)
	if len(macros) != 4 {
		t.Fatalf("macro calls: want 4, got %d", len(macros))
	}
	byName := map[string]*ast.Node{}
	for _, id := range macros {
		n := tree.Node(id)
		byName[n.Text] = n
	}
	if n := byName["println"]; n == nil || n.Flags.Has(ast.FlagOpaque) || len(n.Children) != 2 {
		t.Fatalf("println should have two parsed args")
	}
	if n := byName["vec"]; n == nil || len(n.Children) != 2 {
		t.Fatalf("vec![v; n] should have two args")
	}
	if n := byName["tokio::select"]; n == nil || !n.Flags.Has(ast.FlagOpaque) {
		t.Fatalf("select! should be opaque")
	}
	if got := len(find(tree, ast.KindMethodCall)); got != 1 {
		t.Fatalf("method calls inside macro args: want 1, got %d", got)
	}
}

func TestParseTestAttributes(t *testing.T) {
	tree := parse(t, `#[cfg(test)]
mod tests {
    #[test]
    fn works() { x.unwrap(); }
}
#[tokio::test]
async fn also() {}
fn plain() {}
`)
	for name, want := range map[string]bool{"works": true, "also": true, "plain": false} {
		fn := tree.FunctionsNamed(name)[0]
		if got := tree.Node(fn).Flags.Has(ast.FlagTest); got != want {
			t.Fatalf("%s: FlagTest want %v, got %v", name, want, got)
		}
	}
	mods := find(tree, ast.KindMod)
	if !tree.Node(mods[0]).Flags.Has(ast.FlagTest) {
		t.Fatalf("cfg(test) module should carry FlagTest")
	}
	if !tree.Node(tree.FunctionsNamed("also")[0]).Flags.Has(ast.FlagAsync) {
		t.Fatalf("async fn should carry FlagAsync")
	}
}

func TestParseItemsFromStubModule(t *testing.T) {
	tree := parse(t, `mod tokio {
    use super::*;
    pub struct JoinHandle;
    impl Future for JoinHandle {
        type Output = Result<(), ()>;
        fn poll(self: Pin<&mut Self>, _cx: &mut Context<'_>) -> Poll<Self::Output> {
            Poll::Ready(Ok(()))
        }
    }
    pub fn spawn<F>(_f: F) -> JoinHandle
    where
        F: Future<Output = ()> + Send + 'static,
    {
        JoinHandle
    }
}`)
	if got := len(find(tree, ast.KindImpl)); got != 1 {
		t.Fatalf("impl blocks: want 1, got %d", got)
	}
	if got := tree.Node(find(tree, ast.KindImpl)[0]).Text; got != "impl Future for JoinHandle" {
		t.Fatalf("impl header: got %q", got)
	}
	if len(tree.FunctionsNamed("spawn")) != 1 || len(tree.FunctionsNamed("poll")) != 1 {
		t.Fatalf("fn index misses stub functions")
	}
}

func TestParseClosuresAndAsync(t *testing.T) {
	tree := parse(t, `fn f() {
    let h = tokio::spawn(async move { work().await });
    let c = |a: u8, b| a + b;
    let d = async move |x| x;
    let e = move || -> u8 { 1 };
}`)
	blocks := find(tree, ast.KindAsyncBlock)
	if len(blocks) != 1 || !tree.Node(blocks[0]).Flags.Has(ast.FlagMove) {
		t.Fatalf("async move block not recognised")
	}
	closures := find(tree, ast.KindClosure)
	if len(closures) != 3 {
		t.Fatalf("closures: want 3, got %d", len(closures))
	}
	if !tree.Node(closures[1]).Flags.Has(ast.FlagAsync) {
		t.Fatalf("async closure should carry FlagAsync")
	}
	if got := len(find(tree, ast.KindAwait)); got != 1 {
		t.Fatalf("await: want 1, got %d", got)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		code diag.Code
		line uint32
	}{
		{"missing pattern", "fn main() {\n    let = 1;\n}", diag.PrsUnexpectedToken, 2},
		{"unclosed block", "fn main() {\n    foo();\n", diag.PrsUnclosedDelim, 3},
		{"bad item", "42", diag.PrsBadItem, 1},
		{"unterminated string", "fn main() { let s = \"abc; }", diag.LexUnterminatedString, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bag := diag.NewBag(0)
			tree, err := tryParse(tc.src, parser.Options{Reporter: diag.BagReporter{Bag: bag}})
			if tree != nil {
				t.Fatalf("want nil tree on error")
			}
			var perr *parser.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("want *ParseError, got %T %v", err, err)
			}
			if perr.Code != tc.code || perr.Pos.Line != tc.line {
				t.Fatalf("want %v at line %d, got %v at line %d (%s)", tc.code, tc.line, perr.Code, perr.Pos.Line, perr.Message)
			}
			if !bag.HasErrors() {
				t.Fatalf("error should also be reported")
			}
		})
	}
}

func TestParseNestingLimit(t *testing.T) {
	src := "fn f() { let x = " + strings.Repeat("(", 64) + "1" + strings.Repeat(")", 64) + "; }"
	_, err := tryParse(src, parser.Options{MaxDepth: 32})
	var perr *parser.ParseError
	if !errors.As(err, &perr) || perr.Code != diag.PrsNestingTooDeep {
		t.Fatalf("want nesting error, got %v", err)
	}
	if _, err := tryParse(src, parser.Options{}); err != nil {
		t.Fatalf("default depth should accept 64 parens: %v", err)
	}
}
