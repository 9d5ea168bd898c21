package ast

import (
	"iter"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

// Tree is the parsed form of one unit. It is immutable once the builder
// finishes; rules only read it.
type Tree struct {
	File     *source.File
	Root     NodeID
	Comments []token.Trivia

	nodes *Arena[Node]
	fns   map[string][]NodeID
}

// Node returns the node for id, or nil for NoNodeID.
func (t *Tree) Node(id NodeID) *Node {
	if t == nil {
		return nil
	}
	return t.nodes.Get(uint32(id))
}

// Len is the number of nodes in the tree.
func (t *Tree) Len() int {
	if t == nil || t.nodes == nil {
		return 0
	}
	return int(t.nodes.Len())
}

func (t *Tree) Kind(id NodeID) Kind {
	if n := t.Node(id); n != nil {
		return n.Kind
	}
	return KindInvalid
}

func (t *Tree) Parent(id NodeID) NodeID {
	if n := t.Node(id); n != nil {
		return n.Parent
	}
	return NoNodeID
}

func (t *Tree) Children(id NodeID) []NodeID {
	if n := t.Node(id); n != nil {
		return n.Children
	}
	return nil
}

// Child returns the i-th child or NoNodeID when out of range.
func (t *Tree) Child(id NodeID, i int) NodeID {
	ch := t.Children(id)
	if i < 0 || i >= len(ch) {
		return NoNodeID
	}
	return ch[i]
}

// Text returns the source bytes covered by the node.
func (t *Tree) Text(id NodeID) string {
	n := t.Node(id)
	if n == nil || t.File == nil {
		return ""
	}
	if int(n.Span.End) > len(t.File.Content) || n.Span.Start > n.Span.End {
		return ""
	}
	return string(t.File.Content[n.Span.Start:n.Span.End])
}

// Ancestors yields the parent chain of id, nearest first, excluding id.
func (t *Tree) Ancestors(id NodeID) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		for p := t.Parent(id); p.IsValid(); p = t.Parent(p) {
			if !yield(p) {
				return
			}
		}
	}
}

// Enclosing returns the nearest ancestor of one of kinds.
func (t *Tree) Enclosing(id NodeID, kinds ...Kind) NodeID {
	for p := range t.Ancestors(id) {
		k := t.Kind(p)
		for _, want := range kinds {
			if k == want {
				return p
			}
		}
	}
	return NoNodeID
}

// IsAncestor reports whether anc lies on the parent chain of id.
func (t *Tree) IsAncestor(anc, id NodeID) bool {
	for p := range t.Ancestors(id) {
		if p == anc {
			return true
		}
	}
	return false
}

// Inspect walks the subtree rooted at id in pre-order using an explicit
// stack. Returning false from fn skips the node's children.
func (t *Tree) Inspect(id NodeID, fn func(NodeID, *Node) bool) {
	if !id.IsValid() {
		return
	}
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.Node(cur)
		if n == nil {
			continue
		}
		if !fn(cur, n) {
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// FunctionsNamed returns fn items declared anywhere in the tree with the
// given name, in source order.
func (t *Tree) FunctionsNamed(name string) []NodeID {
	if t == nil {
		return nil
	}
	return t.fns[name]
}

// FunctionNames returns the indexed fn names in no particular order.
func (t *Tree) FunctionNames() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.fns))
	for name := range t.fns {
		out = append(out, name)
	}
	return out
}
