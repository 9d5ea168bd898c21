// Package directive reads `ubs:ignore` comments that suppress findings.
//
// A directive has the form
//
//	// ubs:ignore
//	// ubs:ignore rule-a,rule-b - reason
//
// A trailing directive covers its own line. A directive alone on its line
// covers the line below it. Without rule ids it covers every rule.
package directive

import (
	"slices"
	"strings"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

const marker = "ubs:ignore"

// Directive is one parsed ignore comment.
type Directive struct {
	Span   source.Span
	Line   uint32 // line of the comment, 1-based
	Target uint32 // line whose findings it covers
	Rules  []string
	Reason string

	hits int
}

// Covers reports whether the directive applies to rule.
func (d *Directive) Covers(rule string) bool {
	return len(d.Rules) == 0 || slices.Contains(d.Rules, rule)
}

// Hits is the number of findings the directive suppressed.
func (d *Directive) Hits() int { return d.hits }

// Set holds the directives of one unit. It is not safe for concurrent use.
type Set struct {
	file   *source.File
	items  []*Directive
	byLine map[uint32][]*Directive
}

// Collect scans the comments of tree for directives.
func Collect(tree *ast.Tree) *Set {
	s := &Set{file: tree.File, byLine: make(map[uint32][]*Directive)}
	if tree.File == nil {
		return s
	}
	for _, c := range tree.Comments {
		if !c.IsComment() {
			continue
		}
		d, ok := Parse(c.Text)
		if !ok {
			continue
		}
		d.Span = c.Span
		d.Line = tree.File.Position(c.Span.Start).Line
		d.Target = d.Line
		if ownLine(tree.File.Content, c.Span.Start) {
			d.Target++
		}
		s.items = append(s.items, d)
		s.byLine[d.Target] = append(s.byLine[d.Target], d)
	}
	return s
}

// Parse reads a single comment. It accepts line and block comments.
func Parse(comment string) (*Directive, bool) {
	text := strings.TrimSpace(comment)
	switch {
	case strings.HasPrefix(text, "//"):
		text = strings.TrimLeft(text, "/!")
	case strings.HasPrefix(text, "/*"):
		text = strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
	default:
		return nil, false
	}
	text = strings.TrimSpace(text)
	rest, ok := strings.CutPrefix(text, marker)
	if !ok {
		return nil, false
	}
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest[0] != ':' {
		// ubs:ignored, ubs:ignore-next and friends are not directives
		return nil, false
	}
	rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))

	d := &Directive{}
	fields := strings.Fields(rest)
	for i, f := range fields {
		if f == "-" || f == "--" {
			d.Reason = strings.Join(fields[i+1:], " ")
			break
		}
		for _, id := range strings.Split(f, ",") {
			if id != "" && !slices.Contains(d.Rules, id) {
				d.Rules = append(d.Rules, id)
			}
		}
	}
	return d, true
}

func ownLine(content []byte, off uint32) bool {
	for i := int(off) - 1; i >= 0; i-- {
		switch content[i] {
		case '\n':
			return true
		case ' ', '\t', '\r':
		default:
			return false
		}
	}
	return true
}

// Suppresses reports whether a finding of rule at sp is ignored and
// records the hit on every matching directive.
func (s *Set) Suppresses(rule string, sp source.Span) bool {
	if s == nil || len(s.items) == 0 || s.file == nil {
		return false
	}
	line := s.file.Position(sp.Start).Line
	hit := false
	for _, d := range s.byLine[line] {
		if d.Covers(rule) {
			d.hits++
			hit = true
		}
	}
	return hit
}

// All returns the directives in source order.
func (s *Set) All() []*Directive {
	if s == nil {
		return nil
	}
	return s.items
}

// Unused returns directives that suppressed nothing.
func (s *Set) Unused() []*Directive {
	var out []*Directive
	for _, d := range s.All() {
		if d.hits == 0 {
			out = append(out, d)
		}
	}
	return out
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}
