package rules

import (
	"bytes"
	"fmt"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

// Context is the per-unit view a rule receives. It is owned by a single
// goroutine for the duration of one unit.
type Context struct {
	Tree     *ast.Tree
	Settings Settings

	rule     *Rule
	findings []Finding
	memo     map[memoKey]any
}

type memoKey struct {
	rule string
	key  string
}

func NewContext(tree *ast.Tree, settings Settings) *Context {
	return &Context{Tree: tree, Settings: settings}
}

// Evaluate runs r against node. Panics propagate to the caller.
func (c *Context) Evaluate(r *Rule, node ast.NodeID) {
	c.rule = r
	defer func() { c.rule = nil }()
	r.Match(c, node)
}

// Report records a finding for the running rule anchored at sp.
func (c *Context) Report(sp source.Span, msg string) {
	if c.rule == nil {
		panic("rules: Report called outside Evaluate")
	}
	c.findings = append(c.findings, Finding{
		RuleID:   c.rule.ID,
		Severity: c.rule.Severity,
		Span:     sp,
		Message:  msg,
	})
}

func (c *Context) Reportf(sp source.Span, format string, args ...any) {
	c.Report(sp, fmt.Sprintf(format, args...))
}

// ReportNode anchors a finding at a node's span.
func (c *Context) ReportNode(id ast.NodeID, msg string) {
	c.Report(c.Tree.Node(id).Span, msg)
}

// Mark returns a checkpoint for Truncate.
func (c *Context) Mark() int { return len(c.findings) }

// Truncate drops findings reported after mark.
func (c *Context) Truncate(mark int) {
	if mark >= 0 && mark < len(c.findings) {
		c.findings = c.findings[:mark]
	}
}

// Findings returns everything reported so far, in report order.
func (c *Context) Findings() []Finding { return c.findings }

// Memo caches a per-unit value for the running rule. Keys are scoped by
// rule id so rules cannot observe each other.
func (c *Context) Memo(key string, compute func() any) any {
	k := memoKey{key: key}
	if c.rule != nil {
		k.rule = c.rule.ID
	}
	if v, ok := c.memo[k]; ok {
		return v
	}
	if c.memo == nil {
		c.memo = make(map[memoKey]any)
	}
	v := compute()
	c.memo[k] = v
	return v
}

// Text returns the node's source with all whitespace removed, the form
// used to compare receivers.
func (c *Context) Text(id ast.NodeID) string {
	return compact(c.Tree.Text(id))
}

// MethodSpan narrows a method call to `name(...)`, excluding the receiver.
func (c *Context) MethodSpan(id ast.NodeID) source.Span {
	n := c.Tree.Node(id)
	if n == nil {
		return source.Span{}
	}
	recv := c.Tree.Node(c.Tree.Receiver(id))
	if recv == nil || c.Tree.File == nil {
		return n.Span
	}
	content := c.Tree.File.Content
	from, to := recv.Span.End, n.Span.End
	if int(to) > len(content) || from > to {
		return n.Span
	}
	if i := bytes.Index(content[from:to], []byte(n.Text)); i >= 0 {
		sp := n.Span
		sp.Start = from + uint32(i) // #nosec G115 -- i < to-from
		return sp
	}
	return n.Span
}

func compact(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			b = append(b, s[i])
		}
	}
	return string(b)
}
