package ast

import "strings"

// LastSegment returns the final `::` segment of a path.
func LastSegment(path string) string {
	if i := strings.LastIndex(path, "::"); i >= 0 {
		return path[i+2:]
	}
	return path
}

// StripParens returns the innermost expression under nested parentheses.
func (t *Tree) StripParens(id NodeID) NodeID {
	for t.Kind(id) == KindParen {
		id = t.Child(id, 0)
	}
	return id
}

// Callee returns the callee expression of a Call or SpawnCall.
func (t *Tree) Callee(id NodeID) NodeID {
	switch t.Kind(id) {
	case KindCall, KindSpawnCall:
		return t.Child(id, 0)
	}
	return NoNodeID
}

// CalleePath returns the path text of a call's callee, or "" when the
// callee is not a plain path.
func (t *Tree) CalleePath(id NodeID) string {
	c := t.Callee(id)
	if t.Kind(c) != KindPath {
		return ""
	}
	return t.Node(c).Text
}

// Args returns argument expressions of any call-like node.
func (t *Tree) Args(id NodeID) []NodeID {
	switch t.Kind(id) {
	case KindCall, KindSpawnCall, KindMethodCall:
		ch := t.Children(id)
		if len(ch) == 0 {
			return nil
		}
		return ch[1:]
	case KindMacroCall:
		return t.Children(id)
	}
	return nil
}

// Receiver returns the operand of postfix nodes: method calls, field
// access, await and `?`.
func (t *Tree) Receiver(id NodeID) NodeID {
	switch t.Kind(id) {
	case KindMethodCall, KindField, KindAwait, KindTry:
		return t.Child(id, 0)
	}
	return NoNodeID
}

// IsMethod reports a method call to one of names.
func (t *Tree) IsMethod(id NodeID, names ...string) bool {
	n := t.Node(id)
	if n == nil || n.Kind != KindMethodCall {
		return false
	}
	for _, name := range names {
		if n.Text == name {
			return true
		}
	}
	return false
}

// IsMacro reports a macro call whose last path segment is one of names.
func (t *Tree) IsMacro(id NodeID, names ...string) bool {
	n := t.Node(id)
	if n == nil || n.Kind != KindMacroCall {
		return false
	}
	last := LastSegment(n.Text)
	for _, name := range names {
		if last == name {
			return true
		}
	}
	return false
}

// Ident returns the name of a single-segment path expression.
func (t *Tree) Ident(id NodeID) string {
	n := t.Node(t.StripParens(id))
	if n == nil || n.Kind != KindPath || strings.Contains(n.Text, "::") {
		return ""
	}
	return n.Text
}

// LetParts splits a let statement into its pattern, optional type,
// optional initializer and optional else block.
func (t *Tree) LetParts(id NodeID) (pat, typ, init, els NodeID) {
	if t.Kind(id) != KindLet {
		return
	}
	for i, c := range t.Children(id) {
		n := t.Node(c)
		switch {
		case i == 0:
			pat = c
		case n.Kind == KindType && !init.IsValid():
			typ = c
		case n.Flags.Has(FlagLetElse):
			els = c
		default:
			init = c
		}
	}
	return
}

// BindingName returns the identifier bound by a simple pattern such as
// `x`, `mut x` or `ref x`; other patterns yield "".
func (t *Tree) BindingName(pat NodeID) string {
	n := t.Node(pat)
	if n == nil || n.Kind != KindPattern {
		return ""
	}
	fields := strings.Fields(n.Text)
	for len(fields) > 1 && (fields[0] == "mut" || fields[0] == "ref") {
		fields = fields[1:]
	}
	if len(fields) != 1 || !isPlainIdent(fields[0]) || fields[0] == "_" {
		return ""
	}
	return fields[0]
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		case r > 0x7f:
		default:
			return false
		}
	}
	return true
}

// Body returns the body of fn items, closures, loops, match arms and
// async blocks. For blocks it returns the node itself.
func (t *Tree) Body(id NodeID) NodeID {
	n := t.Node(id)
	if n == nil {
		return NoNodeID
	}
	switch n.Kind {
	case KindFn:
		if last := t.lastChild(id); t.Kind(last) == KindBlock {
			return last
		}
		return NoNodeID
	case KindClosure, KindMatchArm, KindWhile, KindLoop, KindFor:
		return t.lastChild(id)
	case KindBlock, KindUnsafeBlock, KindAsyncBlock:
		return id
	}
	return NoNodeID
}

func (t *Tree) lastChild(id NodeID) NodeID {
	ch := t.Children(id)
	if len(ch) == 0 {
		return NoNodeID
	}
	return ch[len(ch)-1]
}

// Attrs returns attribute texts attached to an item.
func (t *Tree) Attrs(id NodeID) []string {
	var out []string
	for _, c := range t.Children(id) {
		if n := t.Node(c); n.Kind == KindAttr {
			out = append(out, n.Text)
		}
	}
	return out
}

// InTestCode reports whether id is inside a #[test] fn or a #[cfg(test)]
// module, including id itself.
func (t *Tree) InTestCode(id NodeID) bool {
	if n := t.Node(id); n != nil && n.Flags.Has(FlagTest) {
		return true
	}
	for p := range t.Ancestors(id) {
		if t.Node(p).Flags.Has(FlagTest) {
			return true
		}
	}
	return false
}

// Statement returns the statement (direct child of a block-like node)
// that contains id, or NoNodeID when id is not inside a block.
func (t *Tree) Statement(id NodeID) NodeID {
	cur := id
	for cur.IsValid() {
		p := t.Parent(cur)
		if t.Kind(p).IsBlockLike() {
			return cur
		}
		cur = p
	}
	return NoNodeID
}

// Siblings returns the statements before and after stmt in its block.
func (t *Tree) Siblings(stmt NodeID) (before, after []NodeID) {
	ch := t.Children(t.Parent(stmt))
	for i, c := range ch {
		if c == stmt {
			return ch[:i], ch[i+1:]
		}
	}
	return nil, nil
}
