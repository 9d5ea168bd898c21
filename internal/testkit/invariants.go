package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

// CheckSpanInvariants runs the structural invariants on a parsed tree:
// 1) every span points at the tree's file and lies within its content
// 2) every child span lies inside its parent span
// 3) parent indices agree with child lists, so the tree is acyclic
// 4) no node is reached twice from the root
func CheckSpanInvariants(t *ast.Tree) error {
	if t == nil || t.File == nil {
		return fmt.Errorf("nil tree or file")
	}
	lenContent, err := safecast.Conv[uint32](len(t.File.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	root := t.Node(t.Root)
	if root == nil {
		return fmt.Errorf("root node not found")
	}
	if root.Parent.IsValid() {
		return fmt.Errorf("root has parent %d", root.Parent)
	}

	seen := make(map[ast.NodeID]bool, t.Len())
	var walkErr error
	t.Inspect(t.Root, func(id ast.NodeID, n *ast.Node) bool {
		if walkErr != nil {
			return false
		}
		if seen[id] {
			walkErr = fmt.Errorf("node %d reached twice", id)
			return false
		}
		seen[id] = true
		sp := n.Span
		if sp.File != t.File.ID {
			walkErr = fmt.Errorf("node %d (%s) span file mismatch: got=%d want=%d", id, n.Kind, sp.File, t.File.ID)
			return false
		}
		if sp.Start > sp.End || sp.End > lenContent {
			walkErr = fmt.Errorf("node %d (%s) span %v outside content of %d bytes", id, n.Kind, sp, lenContent)
			return false
		}
		for _, c := range n.Children {
			child := t.Node(c)
			if child == nil {
				walkErr = fmt.Errorf("node %d has missing child %d", id, c)
				return false
			}
			if child.Parent != id {
				walkErr = fmt.Errorf("child %d of %d records parent %d", c, id, child.Parent)
				return false
			}
			if !sp.Contains(child.Span) {
				walkErr = fmt.Errorf("child %d (%s) span %v is outside parent %d (%s) span %v", c, child.Kind, child.Span, id, n.Kind, sp)
				return false
			}
		}
		return true
	})
	return walkErr
}

// CheckFindings verifies that every finding carries a known severity and a
// non-inverted span inside file.
func CheckFindings(file *source.File, findings []rules.Finding) error {
	lenContent, err := safecast.Conv[uint32](len(file.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	for i, f := range findings {
		if !f.Severity.Valid() {
			return fmt.Errorf("finding %d (%s) has severity %d", i, f.RuleID, f.Severity)
		}
		if f.Span.File != file.ID || f.Span.Start > f.Span.End || f.Span.End > lenContent {
			return fmt.Errorf("finding %d (%s) span %v is outside %s", i, f.RuleID, f.Span, file.Path)
		}
	}
	return nil
}
