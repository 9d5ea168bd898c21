package rules

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
)

var spawnMethods = map[string]bool{
	"spawn":          true,
	"spawn_blocking": true,
	"spawn_local":    true,
}

// isSpawn reports a call that starts a task or thread: a spawn path call,
// or a spawn method whose first argument is a closure or async block.
func isSpawn(t *ast.Tree, id ast.NodeID) bool {
	switch t.Kind(id) {
	case ast.KindSpawnCall:
		return true
	case ast.KindMethodCall:
		if !spawnMethods[t.Node(id).Text] {
			return false
		}
		args := t.Args(id)
		if len(args) == 0 {
			return false
		}
		k := t.Kind(t.StripParens(args[len(args)-1]))
		return k == ast.KindClosure || k == ast.KindAsyncBlock
	}
	return false
}

// spawnedWork returns the closure or async block a spawn call runs.
func spawnedWork(t *ast.Tree, spawn ast.NodeID) ast.NodeID {
	args := t.Args(spawn)
	for i := len(args) - 1; i >= 0; i-- {
		a := t.StripParens(args[i])
		switch t.Kind(a) {
		case ast.KindClosure, ast.KindAsyncBlock:
			return a
		}
	}
	return ast.NoNodeID
}

// spawnedBody returns the statements block of the work a spawn runs.
// `move || async move { .. }` closures resolve to the inner block.
func spawnedBody(t *ast.Tree, spawn ast.NodeID) ast.NodeID {
	work := spawnedWork(t, spawn)
	for work.IsValid() {
		switch t.Kind(work) {
		case ast.KindAsyncBlock, ast.KindBlock:
			return work
		case ast.KindClosure:
			work = t.StripParens(t.Body(work))
		default:
			return work
		}
	}
	return ast.NoNodeID
}

// enclosingSpawn returns the nearest spawn call whose work contains id.
// Crossing a fn item stops the search.
func enclosingSpawn(t *ast.Tree, id ast.NodeID) ast.NodeID {
	child := id
	for p := range t.Ancestors(id) {
		switch t.Kind(p) {
		case ast.KindFn:
			return ast.NoNodeID
		case ast.KindSpawnCall, ast.KindMethodCall:
			if isSpawn(t, p) && spawnedWork(t, p) == t.StripParens(child) {
				return p
			}
		}
		child = p
	}
	return ast.NoNodeID
}

// inSpawnedWork reports whether id runs inside a spawned task or thread.
func inSpawnedWork(t *ast.Tree, id ast.NodeID) bool {
	return enclosingSpawn(t, id).IsValid()
}

// acquisition climbs from a call through conversions that keep its value:
// parentheses, `?`, `.await`, unwrap and expect.
func acquisition(t *ast.Tree, id ast.NodeID) ast.NodeID {
	cur := id
	for {
		p := t.Parent(cur)
		switch t.Kind(p) {
		case ast.KindParen, ast.KindTry, ast.KindAwait:
			cur = p
		case ast.KindMethodCall:
			if t.Receiver(p) != cur || !t.IsMethod(p, "unwrap", "expect", "unwrap_or_else", "unwrap_or_default") {
				return cur
			}
			cur = p
		default:
			return cur
		}
	}
}

// bindingOf returns the let statement and name that bind expr directly,
// or NoNodeID when expr is not a simple let initializer.
func bindingOf(t *ast.Tree, expr ast.NodeID) (ast.NodeID, string) {
	let := t.Parent(expr)
	if t.Kind(let) != ast.KindLet {
		return ast.NoNodeID, ""
	}
	pat, _, init, _ := t.LetParts(let)
	if init != expr {
		return ast.NoNodeID, ""
	}
	return let, t.BindingName(pat)
}

// usesAfter collects path expressions naming ident in the statements that
// follow stmt in its block, in source order.
func usesAfter(t *ast.Tree, stmt ast.NodeID, ident string) []ast.NodeID {
	_, after := t.Siblings(stmt)
	var uses []ast.NodeID
	for _, s := range after {
		t.Inspect(s, func(id ast.NodeID, n *ast.Node) bool {
			if n.Kind == ast.KindPath && n.Text == ident {
				uses = append(uses, id)
			}
			return true
		})
	}
	return uses
}

// skipsNested reports nodes whose bodies do not run where they appear.
func skipsNested(k ast.Kind) bool {
	return k == ast.KindClosure || k == ast.KindFn || k == ast.KindAsyncBlock ||
		k == ast.KindImpl || k == ast.KindTrait || k == ast.KindMod
}

// diverges reports whether a block unconditionally leaves the enclosing
// flow: its last statement returns, breaks, continues or panics.
func diverges(t *ast.Tree, block ast.NodeID) bool {
	stmts := t.Children(block)
	if len(stmts) == 0 {
		return false
	}
	last := stmts[len(stmts)-1]
	e := last
	if t.Kind(last) == ast.KindExprStmt {
		e = t.Child(last, 0)
	}
	switch t.Kind(e) {
	case ast.KindReturn, ast.KindBreak, ast.KindContinue:
		return true
	case ast.KindMacroCall:
		return t.Node(e).Flags.Has(ast.FlagPanicCapable)
	case ast.KindCall:
		switch ast.LastSegment(t.CalleePath(e)) {
		case "exit", "abort":
			return true
		}
	}
	return false
}

// formatMacros only read their arguments for display.
var formatMacros = map[string]bool{
	"println": true, "print": true, "eprintln": true, "eprint": true,
	"format": true, "format_args": true, "write": true, "writeln": true,
	"dbg": true, "trace": true, "debug": true, "info": true, "warn": true, "error": true,
}
