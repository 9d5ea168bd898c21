package rules

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

// FireAndForgetSpawn flags spawned tasks and threads whose handle is
// dropped or only inspected, so failures and panics go unobserved.
func FireAndForgetSpawn() Rule {
	return Rule{
		ID:          "fire-and-forget-spawn",
		Description: "spawned task or thread handle is never awaited or joined",
		Severity:    SeverityWarning,
		Kinds:       []ast.Kind{ast.KindSpawnCall, ast.KindMethodCall},
		Match:       matchFireAndForget,
	}
}

// inspectOnly methods read a handle without observing the task outcome.
var inspectOnly = map[string]bool{
	"abort":        true,
	"is_finished":  true,
	"id":           true,
	"thread":       true,
	"abort_handle": true,
}

func matchFireAndForget(ctx *Context, id ast.NodeID) {
	t := ctx.Tree
	if !isSpawn(t, id) || ownerJoins(t, id) {
		return
	}
	expr, awaited := handleExpr(t, id)
	if awaited {
		return
	}
	parent := t.Parent(expr)
	switch t.Kind(parent) {
	case ast.KindExprStmt:
		if t.Node(parent).Flags.Has(ast.FlagSemi) {
			ctx.Report(spawnSpan(ctx, id), "spawned work is detached: its handle is dropped, so panics and errors are never observed")
		}
	case ast.KindLet:
		pat, _, _, _ := t.LetParts(parent)
		if ctx.Text(pat) == "_" {
			ctx.Report(spawnSpan(ctx, id), "spawned work is detached: `let _ =` drops its handle immediately")
			return
		}
		name := t.BindingName(pat)
		if name == "" {
			return
		}
		if handleObserved(t, usesAfter(t, parent, name)) {
			return
		}
		ctx.Reportf(spawnSpan(ctx, id), "handle `%s` of spawned work is never awaited or joined", name)
	case ast.KindMethodCall:
		if t.Receiver(parent) == expr && inspectOnly[t.Node(parent).Text] {
			ctx.Reportf(spawnSpan(ctx, id), "handle of spawned work is only used for `.%s()` and never awaited or joined", t.Node(parent).Text)
		}
	}
}

// joinMethods wait for every task spawned on a JoinSet-like owner.
var joinMethods = map[string]bool{
	"join_next":         true,
	"join_next_with_id": true,
	"join_all":          true,
	"shutdown":          true,
	"wait":              true,
}

// ownerJoins reports a spawn method called on an owner that joins its
// work: the handle of a `thread::scope` closure, or a binding that later
// receives one of joinMethods in the same fn.
func ownerJoins(t *ast.Tree, id ast.NodeID) bool {
	if t.Kind(id) != ast.KindMethodCall {
		return false
	}
	owner := t.Ident(t.Receiver(id))
	if owner == "" {
		return false
	}
	fn := ast.NoNodeID
	for p := range t.Ancestors(id) {
		if t.Kind(p) == ast.KindFn {
			fn = p
			break
		}
		if t.Kind(p) == ast.KindClosure && scopeParam(t, p) == owner {
			return true
		}
	}
	if !fn.IsValid() {
		return false
	}
	joined := false
	t.Inspect(fn, func(nid ast.NodeID, n *ast.Node) bool {
		if joined {
			return false
		}
		if n.Kind == ast.KindMethodCall && joinMethods[n.Text] && t.Ident(t.Receiver(nid)) == owner {
			joined = true
		}
		return true
	})
	return joined
}

// scopeParam returns the parameter of a closure passed to a `scope` call,
// as in `thread::scope(|s| ..)`.
func scopeParam(t *ast.Tree, closure ast.NodeID) string {
	call := t.Parent(closure)
	if t.Kind(call) != ast.KindCall || ast.LastSegment(t.CalleePath(call)) != "scope" {
		return ""
	}
	for _, c := range t.Children(closure) {
		if t.Kind(c) == ast.KindParam {
			return t.BindingName(t.Child(c, 0))
		}
	}
	return ""
}

// handleExpr climbs from a spawn call through parentheses, `?`, unwrap
// and expect (thread builders return a Result). Reaching `.await` or
// `.join()` means the handle is consumed on the spot.
func handleExpr(t *ast.Tree, id ast.NodeID) (ast.NodeID, bool) {
	cur := id
	for {
		p := t.Parent(cur)
		switch t.Kind(p) {
		case ast.KindParen, ast.KindTry:
			cur = p
		case ast.KindAwait:
			return p, true
		case ast.KindMethodCall:
			if t.Receiver(p) != cur {
				return cur, false
			}
			switch t.Node(p).Text {
			case "join":
				return p, true
			case "unwrap", "expect":
				cur = p
			default:
				return cur, false
			}
		default:
			return cur, false
		}
	}
}

// handleObserved reports whether any use hands the handle on or waits for
// it. Display and inspect-only uses do not count.
func handleObserved(t *ast.Tree, uses []ast.NodeID) bool {
	for _, u := range uses {
		if handleUseObserves(t, u) {
			return true
		}
	}
	return false
}

func handleUseObserves(t *ast.Tree, use ast.NodeID) bool {
	cur := use
	parent := t.Parent(cur)
	for t.Kind(parent) == ast.KindParen || (t.Kind(parent) == ast.KindUnary && t.Node(parent).Text == "&") {
		cur, parent = parent, t.Parent(parent)
	}
	switch t.Kind(parent) {
	case ast.KindMethodCall:
		if t.Receiver(parent) == cur {
			return !inspectOnly[t.Node(parent).Text]
		}
		return true
	case ast.KindMacroCall:
		return !formatMacros[ast.LastSegment(t.Node(parent).Text)]
	case ast.KindCall:
		if ast.LastSegment(t.CalleePath(parent)) == "drop" {
			return false
		}
		return true
	case ast.KindExprStmt:
		// a bare `handle;` statement only moves it into a temporary
		return !t.Node(parent).Flags.Has(ast.FlagSemi)
	}
	return true
}

// spawnSpan anchors findings at the spawn callee.
func spawnSpan(ctx *Context, id ast.NodeID) source.Span {
	t := ctx.Tree
	if t.Kind(id) == ast.KindMethodCall {
		return ctx.MethodSpan(id)
	}
	return t.Node(t.Callee(id)).Span
}
