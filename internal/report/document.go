package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

// SchemaVersion is bumped whenever the JSON document shape changes.
const SchemaVersion = 1

// Location is a resolved span.
type Location struct {
	File      string `json:"file" yaml:"file"`
	StartByte uint32 `json:"start_byte" yaml:"start_byte"`
	EndByte   uint32 `json:"end_byte" yaml:"end_byte"`
	Line      uint32 `json:"line" yaml:"line"`
	Col       uint32 `json:"col" yaml:"col"`
	EndLine   uint32 `json:"end_line" yaml:"end_line"`
	EndCol    uint32 `json:"end_col" yaml:"end_col"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Record is one finding in report form.
type Record struct {
	// Key identifies the finding across runs; it ignores line numbers so
	// edits above the finding do not change it.
	Key      string         `json:"key"`
	Rule     string         `json:"rule"`
	Severity rules.Severity `json:"severity"`
	Location Location       `json:"location"`
	Message  string         `json:"message"`
	Snippet  string         `json:"snippet,omitempty"`
}

// DiagnosticRecord is an internal diagnostic (parse failure, rule fault,
// truncation, ignore directive problems).
type DiagnosticRecord struct {
	Severity string   `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Location Location `json:"location"`
}

// Unit summarises one analysed file.
type Unit struct {
	Path        string             `json:"path"`
	Verdict     engine.Verdict     `json:"verdict"`
	Totals      engine.Totals      `json:"totals"`
	Truncated   bool               `json:"truncated,omitempty"`
	Unparseable bool               `json:"unparseable,omitempty"`
	ParseError  string             `json:"parse_error,omitempty"`
	Suppressed  int                `json:"suppressed,omitempty"`
	Faults      []engine.Fault     `json:"faults,omitempty"`
	Diagnostics []DiagnosticRecord `json:"diagnostics,omitempty"`
}

// RuleInfo describes a rule that took part in the run.
type RuleInfo struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Severity    rules.Severity `json:"severity"`
}

// Meta carries run-level fields that do not come from the results.
type Meta struct {
	Tool    string
	Version string
	Project string
	Rules   []RuleInfo
}

// Document is the shareable report. It is what `scan --format json`
// writes and what `diff` reads back.
type Document struct {
	Schema     int            `json:"schema"`
	Tool       string         `json:"tool"`
	Version    string         `json:"version,omitempty"`
	Project    string         `json:"project,omitempty"`
	Totals     engine.Totals  `json:"totals"`
	Verdicts   map[string]int `json:"verdicts"`
	Rules      []RuleInfo     `json:"rules,omitempty"`
	Units      []Unit         `json:"units"`
	Findings   []Record       `json:"findings"`
	LoadErrors []string       `json:"load_errors,omitempty"`
	Comparison *Comparison    `json:"comparison,omitempty"`
}

// RulesOf lists the rules of a set for Meta.
func RulesOf(set *rules.RuleSet) []RuleInfo {
	if set == nil {
		return nil
	}
	rs := set.Rules()
	out := make([]RuleInfo, 0, len(rs))
	for _, r := range rs {
		out = append(out, RuleInfo{ID: r.ID, Description: r.Description, Severity: r.Severity})
	}
	return out
}

// Build turns analysis results into a Document. Units are reported in the
// order given; findings follow unit order and then span order.
func Build(fs *source.FileSet, units []*engine.Result, meta Meta) *Document {
	doc := &Document{
		Schema:   SchemaVersion,
		Tool:     meta.Tool,
		Version:  meta.Version,
		Project:  meta.Project,
		Verdicts: map[string]int{},
		Rules:    meta.Rules,
		Units:    make([]Unit, 0, len(units)),
		Findings: []Record{},
	}
	if doc.Tool == "" {
		doc.Tool = "ubs"
	}
	for _, v := range []engine.Verdict{engine.VerdictClean, engine.VerdictFlagged, engine.VerdictDefective} {
		doc.Verdicts[v.String()] = 0
	}
	for _, res := range units {
		if res == nil {
			continue
		}
		u := Unit{
			Path:        res.Path,
			Verdict:     res.Verdict(),
			Totals:      res.Totals(),
			Truncated:   res.Truncated,
			Unparseable: res.Unparseable,
			Suppressed:  res.Suppressed,
			Faults:      res.Faults,
		}
		if res.ParseError != nil {
			u.ParseError = res.ParseError.Error()
		}
		for _, d := range res.Diagnostics {
			u.Diagnostics = append(u.Diagnostics, DiagnosticRecord{
				Severity: d.Severity.String(),
				Code:     d.Code.ID(),
				Message:  d.Message,
				Location: locate(fs, d.Primary, res.Path),
			})
		}
		doc.Units = append(doc.Units, u)
		doc.Totals = doc.Totals.Add(u.Totals)
		doc.Verdicts[u.Verdict.String()]++
		for _, f := range res.Findings {
			doc.Findings = append(doc.Findings, newRecord(fs, f, res.Path))
		}
	}
	return doc
}

func newRecord(fs *source.FileSet, f rules.Finding, path string) Record {
	loc := locate(fs, f.Span, path)
	rec := Record{
		Rule:     f.RuleID,
		Severity: f.Severity,
		Location: loc,
		Message:  f.Message,
	}
	if file := lookup(fs, f.Span.File); file != nil && loc.Line > 0 {
		rec.Snippet = strings.TrimRight(file.GetLine(loc.Line), "\r")
	}
	rec.Key = FindingKey(rec)
	return rec
}

// FindingKey hashes the rule, file, message and trimmed source line.
func FindingKey(r Record) string {
	h := xxhash.New()
	_, _ = h.WriteString(r.Rule)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(r.Location.File)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(r.Message)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(strings.TrimSpace(r.Snippet))
	return fmt.Sprintf("%016x", h.Sum64())
}

func lookup(fs *source.FileSet, id source.FileID) *source.File {
	if fs == nil || int(id) >= fs.Len() {
		return nil
	}
	return fs.Get(id)
}

func locate(fs *source.FileSet, span source.Span, path string) Location {
	loc := Location{File: path, StartByte: span.Start, EndByte: span.End}
	file := lookup(fs, span.File)
	if file == nil {
		return loc
	}
	if loc.File == "" {
		loc.File = fs.DisplayPath(file)
	}
	start, end := fs.Resolve(span)
	loc.Line, loc.Col = start.Line, start.Col
	loc.EndLine, loc.EndCol = end.Line, end.Col
	return loc
}

// Policy decides which outcomes fail a run.
type Policy struct {
	FailOnWarning    bool
	FailOnParseError bool
}

// ExitCode is 1 when any unit is defective, or when the policy makes a
// warning or an unparseable unit fatal. Load errors always fail.
func (d *Document) ExitCode(p Policy) int {
	if d.Totals.Critical > 0 || len(d.LoadErrors) > 0 {
		return 1
	}
	if p.FailOnWarning && d.Totals.Warning > 0 {
		return 1
	}
	if p.FailOnParseError {
		for _, u := range d.Units {
			if u.Unparseable {
				return 1
			}
		}
	}
	return 0
}

// Internal reports whether any unit carries an error-level diagnostic.
func (d *Document) Internal() bool {
	for _, u := range d.Units {
		for _, dr := range u.Diagnostics {
			if dr.Severity == diag.SevError.String() {
				return true
			}
		}
	}
	return false
}

// Sorted returns the findings ordered by file, position and rule.
func (d *Document) Sorted() []Record {
	out := append([]Record(nil), d.Findings...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Location.File != b.Location.File {
			return a.Location.File < b.Location.File
		}
		if a.Location.StartByte != b.Location.StartByte {
			return a.Location.StartByte < b.Location.StartByte
		}
		return a.Rule < b.Rule
	})
	return out
}
