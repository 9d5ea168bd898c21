package rules

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
)

// SilentBackgroundError flags fallible results inside spawned work that
// are unwrapped or thrown away instead of being handled.
func SilentBackgroundError() Rule {
	return Rule{
		ID:          "silent-background-error",
		Description: "errors inside spawned work are unwrapped or discarded and never reported",
		Severity:    SeverityWarning,
		Kinds:       []ast.Kind{ast.KindMethodCall, ast.KindLet},
		Match:       matchSilentBackground,
	}
}

func matchSilentBackground(ctx *Context, id ast.NodeID) {
	t := ctx.Tree
	switch t.Kind(id) {
	case ast.KindMethodCall:
		recv := t.StripParens(t.Receiver(id))
		if t.Kind(recv) != ast.KindAwait || len(t.Args(id)) != 0 {
			return
		}
		switch t.Node(id).Text {
		case "unwrap":
			if inSpawnedWork(t, id) {
				ctx.Reportf(ctx.MethodSpan(id), "awaited result `%s` is unwrapped inside spawned work; the error becomes a silent task panic", shorten(t.Text(recv)))
			}
		case "ok":
			stmt := t.Parent(id)
			if t.Kind(stmt) == ast.KindExprStmt && t.Node(stmt).Flags.Has(ast.FlagSemi) && inSpawnedWork(t, id) {
				ctx.Reportf(ctx.MethodSpan(id), "`.ok()` discards the error of `%s` inside spawned work", shorten(t.Text(recv)))
			}
		}
	case ast.KindLet:
		pat, _, init, els := t.LetParts(id)
		if els.IsValid() || !init.IsValid() || ctx.Text(pat) != "_" {
			return
		}
		switch t.Kind(t.StripParens(init)) {
		case ast.KindAwait, ast.KindCall, ast.KindMethodCall:
		default:
			return
		}
		if inSpawnedWork(t, id) {
			ctx.Reportf(t.Node(id).Span, "`let _ =` discards the result of `%s` inside spawned work", shorten(t.Text(init)))
		}
	}
}
