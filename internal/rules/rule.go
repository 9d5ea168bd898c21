package rules

import (
	"time"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

// MatchFunc inspects one node of a declared kind and reports findings
// through ctx.
type MatchFunc func(ctx *Context, node ast.NodeID)

// Rule is a single defect detector.
type Rule struct {
	ID          string
	Description string
	Severity    Severity
	Kinds       []ast.Kind
	Match       MatchFunc
}

// Finding is one reported defect.
type Finding struct {
	RuleID   string      `json:"rule" msgpack:"rule"`
	Severity Severity    `json:"severity" msgpack:"severity"`
	Span     source.Span `json:"-" msgpack:"span"`
	Message  string      `json:"message" msgpack:"message"`
}

// Settings tune rule heuristics. They are read-only during analysis.
type Settings struct {
	// BlockingThreshold is the shortest fixed sleep treated as a blocking
	// wait by unbounded-blocking-wait.
	BlockingThreshold time.Duration
}

func DefaultSettings() Settings {
	return Settings{BlockingThreshold: time.Second}
}
