package engine

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/parser"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

// Fault records a rule that panicked. It is an internal diagnostic, never
// a finding.
type Fault struct {
	RuleID string      `json:"rule" msgpack:"rule"`
	Span   source.Span `json:"-" msgpack:"span"`
	Value  string      `json:"value" msgpack:"value"`
}

// Result is everything one analysis unit produced.
type Result struct {
	Path        string             `msgpack:"path"`
	Findings    []rules.Finding    `msgpack:"findings"`
	Faults      []Fault            `msgpack:"faults"`
	Diagnostics []diag.Diagnostic  `msgpack:"diagnostics"`
	Truncated   bool               `msgpack:"truncated"`
	Unparseable bool               `msgpack:"unparseable"`
	ParseError  *parser.ParseError `msgpack:"parse_error"`
	Visited     int                `msgpack:"visited"`
	Suppressed  int                `msgpack:"suppressed"`
}

// Verdict is recomputed from the findings on every call.
func (r *Result) Verdict() Verdict {
	return Classify(r.Findings)
}

func (r *Result) Totals() Totals {
	return Count(r.Findings)
}

// ByRule returns the findings of one rule.
func (r *Result) ByRule(id string) []rules.Finding {
	var out []rules.Finding
	for _, f := range r.Findings {
		if f.RuleID == id {
			out = append(out, f)
		}
	}
	return out
}
