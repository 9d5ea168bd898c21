package ast

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

// Builder allocates nodes bottom-up. Children are created before their
// parent; Finish links parents and builds the fn index.
type Builder struct {
	tree *Tree
}

func NewBuilder(file *source.File, capHint uint) *Builder {
	if capHint == 0 {
		capHint = 1 << 8
	}
	return &Builder{
		tree: &Tree{
			File:  file,
			nodes: NewArena[Node](capHint),
			fns:   make(map[string][]NodeID),
		},
	}
}

// New allocates a node. NoNodeID entries in children are dropped.
func (b *Builder) New(kind Kind, span source.Span, text string, children ...NodeID) NodeID {
	var kept []NodeID
	if len(children) > 0 {
		kept = make([]NodeID, 0, len(children))
		for _, c := range children {
			if c.IsValid() {
				kept = append(kept, c)
			}
		}
	}
	return NodeID(b.tree.nodes.Allocate(Node{
		Kind:     kind,
		Span:     span,
		Children: kept,
		Text:     text,
	}))
}

// Node gives the parser mutable access while building.
func (b *Builder) Node(id NodeID) *Node {
	return b.tree.Node(id)
}

// SetFlags ors mask into the node flags.
func (b *Builder) SetFlags(id NodeID, mask Flags) {
	if n := b.tree.Node(id); n != nil {
		n.Flags |= mask
	}
}

// SetKind rewrites the kind of an already allocated node.
func (b *Builder) SetKind(id NodeID, kind Kind) {
	if n := b.tree.Node(id); n != nil {
		n.Kind = kind
	}
}

func (b *Builder) AddComments(tr []token.Trivia) {
	for _, t := range tr {
		if t.IsComment() {
			b.tree.Comments = append(b.tree.Comments, t)
		}
	}
}

// Finish sets the root, links every reachable child to its parent and
// returns the immutable tree. Nodes not reachable from root (abandoned
// speculative parses) keep NoNodeID as parent and are never visited.
// The builder must not be used afterwards.
func (b *Builder) Finish(root NodeID) *Tree {
	t := b.tree
	t.Root = root
	t.Inspect(root, func(id NodeID, n *Node) bool {
		for _, c := range n.Children {
			if child := t.Node(c); child != nil {
				child.Parent = id
			}
		}
		if n.Kind == KindFn && n.Text != "" {
			t.fns[n.Text] = append(t.fns[n.Text], id)
		}
		return true
	})
	b.tree = nil
	return t
}
