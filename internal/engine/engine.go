package engine

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/directive"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/logger"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/parser"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

// DefaultMaxVisits bounds the nodes visited per unit.
const DefaultMaxVisits = 1 << 20

// Options configure an Engine. The zero value is usable.
type Options struct {
	// MaxVisits caps the traversal; zero means DefaultMaxVisits.
	MaxVisits int
	// MaxDepth is passed to the parser; zero means its default.
	MaxDepth int
	Settings rules.Settings
	// NoIgnores disables `ubs:ignore` directives.
	NoIgnores bool
	// ReportUnusedIgnores adds an info diagnostic per directive that
	// suppressed nothing.
	ReportUnusedIgnores bool
	Logger              *zap.Logger
}

// Engine analyzes units against a RuleSet. It holds no per-unit state and
// is safe for concurrent use.
type Engine struct {
	set  *rules.RuleSet
	opts Options
	log  *zap.Logger
}

func New(set *rules.RuleSet, opts Options) *Engine {
	if opts.MaxVisits <= 0 {
		opts.MaxVisits = DefaultMaxVisits
	}
	if opts.Settings == (rules.Settings{}) {
		opts.Settings = rules.DefaultSettings()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{set: set, opts: opts, log: log.Named(logger.ComponentEngine)}
}

func (e *Engine) RuleSet() *rules.RuleSet { return e.set }

func (e *Engine) Options() Options { return e.opts }

// AnalyzeFile parses file and analyzes the tree. A syntax error marks the
// unit unparseable; no rule runs on it.
func (e *Engine) AnalyzeFile(file *source.File) *Result {
	bag := diag.NewBag(0)
	tree, err := parser.Parse(file, parser.Options{Reporter: diag.BagReporter{Bag: bag}, MaxDepth: e.opts.MaxDepth})
	if err != nil {
		res := &Result{Path: file.Path, Unparseable: true}
		var perr *parser.ParseError
		if errors.As(err, &perr) {
			res.ParseError = perr
		}
		d := diag.New(diag.SevWarning, diag.EngUnparseable, spanOf(perr, file), fmt.Sprintf("unit skipped: %v", err))
		res.Diagnostics = append(bag.Items(), d)
		e.log.Debug("unparseable unit", zap.String("path", file.Path), zap.Error(err))
		return res
	}
	res := e.Analyze(tree)
	res.Diagnostics = append(bag.Items(), res.Diagnostics...)
	return res
}

func spanOf(perr *parser.ParseError, file *source.File) source.Span {
	if perr != nil {
		return perr.Span
	}
	return source.Span{File: file.ID}
}

// Analyze runs every applicable rule over tree in one pre-order pass.
func (e *Engine) Analyze(tree *ast.Tree) *Result {
	res := &Result{}
	if tree.File != nil {
		res.Path = tree.File.Path
	}
	ctx := rules.NewContext(tree, e.opts.Settings)
	disabled := make(map[string]bool)

	stack := make([]ast.NodeID, 0, 64)
	if tree.Root.IsValid() {
		stack = append(stack, tree.Root)
	}
	for len(stack) > 0 {
		if res.Visited >= e.opts.MaxVisits {
			res.Truncated = true
			break
		}
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		res.Visited++

		n := tree.Node(id)
		for _, r := range e.set.ForKind(n.Kind) {
			if disabled[r.ID] {
				continue
			}
			if f := evaluate(ctx, r, id, n.Span); f != nil {
				disabled[r.ID] = true
				res.Faults = append(res.Faults, *f)
				res.Diagnostics = append(res.Diagnostics, diag.New(diag.SevError, diag.EngRuleFault, f.Span,
					fmt.Sprintf("rule %s panicked and was disabled for this unit: %s", f.RuleID, f.Value)))
				e.log.Warn("rule fault", zap.String("rule", f.RuleID), zap.String("path", res.Path), zap.String("panic", f.Value))
			}
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			if c := n.Children[i]; c.IsValid() {
				stack = append(stack, c)
			}
		}
	}
	if res.Truncated {
		res.Diagnostics = append(res.Diagnostics, diag.New(diag.SevWarning, diag.EngTruncated, tree.Node(tree.Root).Span,
			fmt.Sprintf("analysis truncated after %d nodes; findings are partial", res.Visited)))
		e.log.Warn("analysis truncated", zap.String("path", res.Path), zap.Int("visited", res.Visited))
	}

	findings := ctx.Findings()
	if !e.opts.NoIgnores {
		findings = e.applyIgnores(tree, findings, res)
	}
	res.Findings = Normalize(findings)
	return res
}

// evaluate runs one rule on one node and converts a panic into a Fault.
func evaluate(ctx *rules.Context, r *rules.Rule, id ast.NodeID, sp source.Span) (fault *Fault) {
	mark := ctx.Mark()
	defer func() {
		if v := recover(); v != nil {
			ctx.Truncate(mark)
			fault = &Fault{RuleID: r.ID, Span: sp, Value: fmt.Sprint(v)}
		}
	}()
	ctx.Evaluate(r, id)
	return nil
}

func (e *Engine) applyIgnores(tree *ast.Tree, findings []rules.Finding, res *Result) []rules.Finding {
	set := directive.Collect(tree)
	if set.Len() == 0 {
		return findings
	}
	for _, d := range set.All() {
		for _, id := range d.Rules {
			if _, ok := e.set.Lookup(id); !ok {
				res.Diagnostics = append(res.Diagnostics, diag.New(diag.SevWarning, diag.EngUnknownIgnore, d.Span,
					fmt.Sprintf("ignore directive names unknown rule %q", id)))
			}
		}
	}
	kept := findings[:0:0]
	for _, f := range findings {
		if set.Suppresses(f.RuleID, f.Span) {
			res.Suppressed++
			continue
		}
		kept = append(kept, f)
	}
	if e.opts.ReportUnusedIgnores {
		for _, d := range set.Unused() {
			res.Diagnostics = append(res.Diagnostics, diag.New(diag.SevInfo, diag.EngUnusedIgnore, d.Span, "ignore directive suppresses nothing"))
		}
	}
	return kept
}

// Normalize drops exact duplicates and orders findings by span, then rule
// id, then message. It returns a new slice.
func Normalize(findings []rules.Finding) []rules.Finding {
	type key struct {
		rule string
		span source.Span
		msg  string
	}
	seen := make(map[key]struct{}, len(findings))
	out := make([]rules.Finding, 0, len(findings))
	for _, f := range findings {
		k := key{f.RuleID, f.Span, f.Message}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b rules.Finding) int {
		if c := cmp.Compare(a.Span.File, b.Span.File); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Span.Start, b.Span.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Span.End, b.Span.End); c != 0 {
			return c
		}
		if c := cmp.Compare(a.RuleID, b.RuleID); c != 0 {
			return c
		}
		return cmp.Compare(a.Message, b.Message)
	})
	return out
}
