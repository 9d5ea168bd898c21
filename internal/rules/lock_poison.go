package rules

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

// LockPoisonOnPanic flags panic-capable operations that run while a lock
// guard is alive. A panic there poisons the lock for every other holder.
func LockPoisonOnPanic() Rule {
	return Rule{
		ID:          "lock-poison-on-panic",
		Description: "a panic while a lock guard is held poisons the lock",
		Severity:    SeverityCritical,
		Kinds:       []ast.Kind{ast.KindMethodCall},
		Match:       matchLockPoison,
	}
}

func matchLockPoison(ctx *Context, id ast.NodeID) {
	t := ctx.Tree
	if !t.IsMethod(id, "lock", "write", "read") || len(t.Args(id)) != 0 {
		return
	}
	acq := acquisition(t, id)
	if awaitedBetween(t, id, acq) {
		// async mutexes do not poison
		return
	}
	for _, p := range guardScope(t, acq) {
		ctx.Reportf(panicSpan(ctx, p), "%s can panic while the lock from `%s` is held, poisoning it", panicLabel(t, p), shorten(t.Text(t.Receiver(id))))
	}
}

// awaitedBetween reports whether the climb from call to acq passed through
// `.await`.
func awaitedBetween(t *ast.Tree, call, acq ast.NodeID) bool {
	for cur := call; cur != acq && cur.IsValid(); {
		cur = t.Parent(cur)
		if t.Kind(cur) == ast.KindAwait {
			return true
		}
	}
	return false
}

// guardScope returns panic-capable nodes evaluated while the guard from
// acq is alive, in source order. A guard bound by `let` lives until the
// end of its block or an explicit drop; a temporary guard lives until the
// end of its statement.
func guardScope(t *ast.Tree, acq ast.NodeID) []ast.NodeID {
	var region []ast.NodeID
	if let, name := bindingOf(t, acq); let.IsValid() {
		if name == "" {
			return nil
		}
		_, after := t.Siblings(let)
		for _, s := range after {
			if dropsBinding(t, s, name) {
				break
			}
			region = append(region, s)
		}
	} else if stmt := t.Statement(acq); stmt.IsValid() {
		region = append(region, stmt)
	}

	var out []ast.NodeID
	for _, r := range region {
		t.Inspect(r, func(nid ast.NodeID, n *ast.Node) bool {
			if nid == acq || skipsNested(n.Kind) {
				return false
			}
			if n.Flags.Has(ast.FlagPanicCapable) {
				out = append(out, nid)
			}
			return true
		})
	}
	return out
}

// dropsBinding matches `drop(name);`.
func dropsBinding(t *ast.Tree, stmt ast.NodeID, name string) bool {
	if t.Kind(stmt) != ast.KindExprStmt {
		return false
	}
	call := t.Child(stmt, 0)
	if t.Kind(call) != ast.KindCall || ast.LastSegment(t.CalleePath(call)) != "drop" {
		return false
	}
	args := t.Args(call)
	return len(args) == 1 && t.Ident(args[0]) == name
}

func panicLabel(t *ast.Tree, id ast.NodeID) string {
	n := t.Node(id)
	if n.Kind == ast.KindMacroCall {
		return "`" + ast.LastSegment(n.Text) + "!`"
	}
	return "`." + n.Text + "()`"
}

func panicSpan(ctx *Context, id ast.NodeID) source.Span {
	if ctx.Tree.Kind(id) == ast.KindMethodCall {
		return ctx.MethodSpan(id)
	}
	return ctx.Tree.Node(id).Span
}
