package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
)

// TextOpts configures the human-readable writer.
type TextOpts struct {
	Color bool
	// Snippets prints the offending source line with a caret underneath.
	Snippets bool
	// Diagnostics includes internal diagnostics after the findings.
	Diagnostics bool
}

type palette struct {
	critical *color.Color
	warning  *color.Color
	info     *color.Color
	path     *color.Color
	gutter   *color.Color
	caret    *color.Color
	dim      *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		critical: color.New(color.FgRed, color.Bold),
		warning:  color.New(color.FgYellow, color.Bold),
		info:     color.New(color.FgCyan),
		path:     color.New(color.Bold),
		gutter:   color.New(color.FgBlue),
		caret:    color.New(color.FgGreen, color.Bold),
		dim:      color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.critical, p.warning, p.info, p.path, p.gutter, p.caret, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s rules.Severity) *color.Color {
	switch s {
	case rules.SeverityCritical:
		return p.critical
	case rules.SeverityWarning:
		return p.warning
	}
	return p.info
}

// Text writes findings as
//
//	path:line:col: severity[rule] message
//
// optionally followed by the source line and a caret under the span.
func Text(w io.Writer, doc *Document, opts TextOpts) error {
	p := newPalette(opts.Color)
	var b strings.Builder
	for _, rec := range doc.Sorted() {
		fmt.Fprintf(&b, "%s: %s %s\n",
			p.path.Sprint(rec.Location.String()),
			p.severity(rec.Severity).Sprintf("%s[%s]", rec.Severity, rec.Rule),
			rec.Message)
		if opts.Snippets && rec.Snippet != "" {
			writeSnippet(&b, p, rec)
		}
	}
	for _, u := range doc.Units {
		switch {
		case u.Unparseable:
			fmt.Fprintf(&b, "%s: %s %s\n", p.path.Sprint(u.Path), p.warning.Sprint("unparseable"), u.ParseError)
		case u.Truncated:
			fmt.Fprintf(&b, "%s: %s analysis stopped at the node budget\n", p.path.Sprint(u.Path), p.warning.Sprint("truncated"))
		}
		if !opts.Diagnostics {
			continue
		}
		for _, d := range u.Diagnostics {
			fmt.Fprintf(&b, "%s: %s %s %s\n", p.path.Sprint(d.Location.String()), p.dim.Sprint(d.Severity), d.Code, d.Message)
		}
	}
	for _, le := range doc.LoadErrors {
		fmt.Fprintf(&b, "%s %s\n", p.critical.Sprint("error:"), le)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeSnippet(b *strings.Builder, p palette, rec Record) {
	line := expandTabs(rec.Snippet)
	gutter := fmt.Sprintf("%d", rec.Location.Line)
	pad := strings.Repeat(" ", len(gutter))
	fmt.Fprintf(b, "%s %s %s\n", p.gutter.Sprint(gutter), p.gutter.Sprint("|"), line)

	raw := rec.Snippet
	startCol := clampCol(rec.Location.Col, raw)
	endCol := len(raw) + 1
	if rec.Location.EndLine == rec.Location.Line {
		endCol = clampCol(rec.Location.EndCol, raw)
	}
	lead := runewidth.StringWidth(expandTabs(raw[:startCol-1]))
	width := 1
	if endCol > startCol {
		width = max(1, runewidth.StringWidth(expandTabs(raw[startCol-1:endCol-1])))
	}
	fmt.Fprintf(b, "%s %s %s%s\n", pad, p.gutter.Sprint("|"), strings.Repeat(" ", lead), p.caret.Sprint(strings.Repeat("^", width)))
}

// clampCol maps a 1-based byte column into [1, len(line)+1].
func clampCol(col uint32, line string) int {
	c := int(col)
	if c < 1 {
		return 1
	}
	if c > len(line)+1 {
		return len(line) + 1
	}
	return c
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
