package rules

import (
	"strings"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
)

// UnsafeReinterpret flags transmute calls that reinterpret owned heap
// values or produce address-sized integers.
func UnsafeReinterpret() Rule {
	return Rule{
		ID:          "unsafe-reinterpret",
		Description: "transmute of an owned heap value or into usize/isize reinterprets memory unsoundly",
		Severity:    SeverityCritical,
		Kinds:       []ast.Kind{ast.KindCall},
		Match:       matchUnsafeReinterpret,
	}
}

var ownedConstructors = map[string]bool{
	"Vec::new": true, "Vec::with_capacity": true, "Vec::from": true,
	"String::new": true, "String::from": true, "String::with_capacity": true,
	"Box::new": true, "Box::from": true,
}

func matchUnsafeReinterpret(ctx *Context, id ast.NodeID) {
	t := ctx.Tree
	switch ast.LastSegment(t.CalleePath(id)) {
	case "transmute", "transmute_copy":
	default:
		return
	}
	args := t.Args(id)
	if len(args) != 1 {
		return
	}
	srcType, dstType := transmuteTypes(t, id)
	target := addressSized(dstType)
	owned := ownedTypeName(srcType)
	if owned == "" {
		owned = ownedValue(t, t.StripParens(args[0]), 0)
	}
	switch {
	case owned != "" && target != "":
		ctx.Reportf(t.Node(id).Span, "transmute of owned `%s` into `%s` reinterprets a heap handle as an integer", owned, target)
	case owned != "":
		ctx.Reportf(t.Node(id).Span, "transmute of owned `%s` reinterprets its heap layout; use a safe conversion", owned)
	case target != "":
		ctx.Reportf(t.Node(id).Span, "transmute into `%s` turns a value into a raw address", target)
	}
}

// transmuteTypes returns the source and target type texts from a
// turbofish or from the type annotation of the let it initializes.
func transmuteTypes(t *ast.Tree, call ast.NodeID) (src, dst string) {
	if gens := t.Children(t.Callee(call)); len(gens) == 2 {
		src, dst = t.Node(gens[0]).Text, t.Node(gens[1]).Text
	}
	if dst == "" || dst == "_" {
		if let, _ := bindingOf(t, call); let.IsValid() {
			if _, typ, _, _ := t.LetParts(let); typ.IsValid() {
				dst = t.Node(typ).Text
			}
		}
	}
	return src, dst
}

func addressSized(typ string) string {
	switch strings.TrimSpace(typ) {
	case "usize", "isize":
		return strings.TrimSpace(typ)
	}
	return ""
}

func ownedTypeName(typ string) string {
	typ = strings.TrimSpace(typ)
	for _, name := range []string{"Vec", "String", "Box"} {
		if typ == name || strings.HasPrefix(typ, name+"<") {
			return name
		}
	}
	return ""
}

// ownedValue classifies expr as an owned heap value. Identifiers are
// resolved through earlier let bindings and fn parameters.
func ownedValue(t *ast.Tree, expr ast.NodeID, depth int) string {
	if depth > 4 {
		return ""
	}
	switch t.Kind(expr) {
	case ast.KindMacroCall:
		if t.IsMacro(expr, "vec") {
			return "Vec"
		}
		if t.IsMacro(expr, "format") {
			return "String"
		}
	case ast.KindCall:
		if two := lastTwo(t.CalleePath(expr)); ownedConstructors[two] {
			return two[:strings.Index(two, "::")]
		}
	case ast.KindMethodCall:
		switch m := t.Node(expr).Text; m {
		case "to_vec", "collect", "into_bytes":
			return "Vec"
		case "into_boxed_slice":
			return "Box"
		case "to_string", "to_owned":
			return "String"
		}
	case ast.KindPath:
		name := t.Ident(expr)
		if name == "" {
			return ""
		}
		return ownedBinding(t, expr, name, depth)
	}
	return ""
}

// ownedBinding resolves name to the nearest earlier let or parameter.
func ownedBinding(t *ast.Tree, use ast.NodeID, name string, depth int) string {
	child := use
	for p := range t.Ancestors(use) {
		switch t.Kind(p) {
		case ast.KindBlock, ast.KindUnsafeBlock, ast.KindAsyncBlock:
			before, _ := t.Siblings(child)
			for i := len(before) - 1; i >= 0; i-- {
				s := before[i]
				if t.Kind(s) != ast.KindLet {
					continue
				}
				pat, typ, init, _ := t.LetParts(s)
				if t.BindingName(pat) != name {
					continue
				}
				if typ.IsValid() {
					if owned := ownedTypeName(t.Node(typ).Text); owned != "" {
						return owned
					}
				}
				if init.IsValid() {
					return ownedValue(t, t.StripParens(init), depth+1)
				}
				return ""
			}
		case ast.KindFn, ast.KindClosure:
			for _, c := range t.Children(p) {
				if t.Kind(c) != ast.KindParam || t.BindingName(t.Child(c, 0)) != name {
					continue
				}
				if typ := t.Child(c, 1); typ.IsValid() {
					return ownedTypeName(t.Node(typ).Text)
				}
				return ""
			}
			if t.Kind(p) == ast.KindFn {
				return ""
			}
		}
		child = p
	}
	return ""
}

// lastTwo returns the final two path segments, `a::b::Vec::new` -> `Vec::new`.
func lastTwo(path string) string {
	i := strings.LastIndex(path, "::")
	if i < 0 {
		return path
	}
	j := strings.LastIndex(path[:i], "::")
	if j < 0 {
		return path
	}
	return path[j+2:]
}
