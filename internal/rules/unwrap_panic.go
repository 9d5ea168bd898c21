package rules

import (
	"strings"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
)

// UnwrapPanic flags `.unwrap()` on a value nothing has checked.
func UnwrapPanic() Rule {
	return Rule{
		ID:          "unwrap-panic",
		Description: "unwrap() on an Option or Result without a preceding check panics on None/Err",
		Severity:    SeverityWarning,
		Kinds:       []ast.Kind{ast.KindMethodCall},
		Match:       matchUnwrapPanic,
	}
}

func matchUnwrapPanic(ctx *Context, id ast.NodeID) {
	t := ctx.Tree
	if !t.IsMethod(id, "unwrap") || len(t.Args(id)) != 0 {
		return
	}
	if t.InTestCode(id) {
		return
	}
	recv := t.StripParens(t.Receiver(id))
	if isWrappedLiteral(t, recv) {
		return
	}
	key := ctx.Text(recv)
	if isGuarded(ctx, id, key) {
		return
	}
	ctx.Reportf(ctx.MethodSpan(id), "unwrap() on `%s` panics on None/Err; propagate with `?` or handle the failure", shorten(t.Text(recv)))
}

// isWrappedLiteral matches `Some(..)` and `Ok(..)` receivers.
func isWrappedLiteral(t *ast.Tree, id ast.NodeID) bool {
	if t.Kind(id) != ast.KindCall {
		return false
	}
	switch t.CalleePath(id) {
	case "Some", "Ok":
		return true
	}
	return false
}

// isGuarded looks for a check of the same receiver that dominates id:
// an enclosing if/match on it, the left side of a short-circuit operator,
// an earlier early-exit test, a let-else or an assertion.
func isGuarded(ctx *Context, id ast.NodeID, key string) bool {
	t := ctx.Tree
	child := id
	for p := range t.Ancestors(id) {
		switch t.Kind(p) {
		case ast.KindFn:
			return false
		case ast.KindIf, ast.KindWhile:
			cond := t.Child(p, 0)
			body := t.Child(p, 1)
			if child == body && condChecks(ctx, cond, key, "is_some", "is_ok") {
				return true
			}
			if t.Kind(p) == ast.KindIf && child == t.Child(p, 2) && condChecks(ctx, cond, key, "is_none", "is_err") {
				return true
			}
		case ast.KindBinary:
			if child != t.Child(p, 1) {
				break
			}
			left := t.Child(p, 0)
			switch t.Node(p).Text {
			case "&&":
				if condChecks(ctx, left, key, "is_some", "is_ok") {
					return true
				}
			case "||":
				if condChecks(ctx, left, key, "is_none", "is_err") {
					return true
				}
			}
		case ast.KindMatch:
			if child != t.Child(p, 0) && ctx.Text(t.StripParens(t.Child(p, 0))) == key {
				return true
			}
		case ast.KindBlock, ast.KindUnsafeBlock, ast.KindAsyncBlock:
			before, _ := t.Siblings(child)
			for _, s := range before {
				if guardsByEarlyExit(ctx, s, key) {
					return true
				}
			}
		}
		child = p
	}
	return false
}

// condChecks reports whether cond tests key with one of methods, or binds
// key through `if let`. Conditions joined with && are searched.
func condChecks(ctx *Context, cond ast.NodeID, key string, methods ...string) bool {
	t := ctx.Tree
	cond = t.StripParens(cond)
	switch t.Kind(cond) {
	case ast.KindBinary:
		if t.Node(cond).Text != "&&" {
			return false
		}
		return condChecks(ctx, t.Child(cond, 0), key, methods...) || condChecks(ctx, t.Child(cond, 1), key, methods...)
	case ast.KindLetCond:
		return methods[0] == "is_some" && ctx.Text(t.StripParens(t.Child(cond, 1))) == key
	case ast.KindMethodCall:
		return t.IsMethod(cond, methods...) && ctx.Text(t.StripParens(t.Receiver(cond))) == key
	case ast.KindUnary:
		if t.Node(cond).Text == "!" && methods[0] == "is_some" {
			return condChecks(ctx, t.Child(cond, 0), key, "is_none", "is_err")
		}
		if t.Node(cond).Text == "!" && methods[0] == "is_none" {
			return condChecks(ctx, t.Child(cond, 0), key, "is_some", "is_ok")
		}
	}
	return false
}

// guardsByEarlyExit matches statements after which key is known to hold a
// value: `if key.is_none() { return }`, `let Some(_) = key else { .. }`
// and `assert!(key.is_some())`.
func guardsByEarlyExit(ctx *Context, stmt ast.NodeID, key string) bool {
	t := ctx.Tree
	switch t.Kind(stmt) {
	case ast.KindLet:
		_, _, init, els := t.LetParts(stmt)
		return els.IsValid() && ctx.Text(t.StripParens(init)) == key
	case ast.KindExprStmt:
		e := t.Child(stmt, 0)
		switch t.Kind(e) {
		case ast.KindIf:
			then := t.Child(e, 1)
			return condChecks(ctx, t.Child(e, 0), key, "is_none", "is_err") && diverges(t, then)
		case ast.KindMacroCall:
			if !t.IsMacro(e, "assert", "debug_assert") {
				return false
			}
			args := t.Args(e)
			return len(args) > 0 && condChecks(ctx, args[0], key, "is_some", "is_ok")
		}
	}
	return false
}

// shorten collapses whitespace and caps an expression for messages.
func shorten(s string) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) > 40 {
		return string(r[:37]) + "..."
	}
	return string(r)
}
