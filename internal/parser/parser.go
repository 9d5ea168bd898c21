package parser

import (
	"fmt"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/lexer"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

// DefaultMaxDepth bounds expression and block nesting.
const DefaultMaxDepth = 256

type Options struct {
	// Reporter receives lexer diagnostics and the parse error, if any.
	Reporter diag.Reporter
	// MaxDepth caps nesting; zero means DefaultMaxDepth.
	MaxDepth int
}

// ParseError reports the first syntax error in a unit. Parsing stops
// there; no partial tree is returned.
type ParseError struct {
	Path    string
	Span    source.Span
	Pos     source.LineCol
	Code    diag.Code
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Pos.Line, e.Pos.Col, e.Message)
}

// bailout carries a ParseError up the stack to Parse.
type bailout struct{ err *ParseError }

// restrictions are expression-context flags saved and restored around
// nested delimiters.
type restrictions struct {
	noStruct bool // `Path {` is not a struct literal (if/while/match heads)
	allowLet bool // `let` may appear as a condition operand
}

// Parser holds the state for one file.
type Parser struct {
	file     *source.File
	toks     []token.Token
	pos      int
	b        *ast.Builder
	opts     Options
	depth    int
	res      restrictions
	lastSpan source.Span
	splits   []splitRec // tokens rewritten by splitFirst, undone by try
}

// Parse builds the syntax tree for file. On malformed input it returns a
// *ParseError and a nil tree.
func Parse(file *source.File, opts Options) (tree *ast.Tree, err error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	lexErrs := &firstError{next: opts.Reporter}
	toks := lexer.Tokenize(file, lexer.Options{Reporter: lexErrs})

	p := &Parser{
		file:     file,
		toks:     toks,
		b:        ast.NewBuilder(file, uint(len(toks)/2+1)), // #nosec G115
		opts:     opts,
		lastSpan: source.Span{File: file.ID},
	}
	for i := range toks {
		p.b.AddComments(toks[i].Leading)
	}
	if lexErrs.first != nil {
		return nil, p.newError(lexErrs.first.Code, lexErrs.first.Primary, lexErrs.first.Message)
	}

	defer func() {
		if r := recover(); r != nil {
			bo, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			tree, err = nil, bo.err
			if opts.Reporter != nil {
				opts.Reporter.Report(bo.err.Code, diag.SevError, bo.err.Span, bo.err.Message, nil)
			}
		}
	}()
	root := p.parseFile()
	return p.b.Finish(root), nil
}

// firstError remembers the first lexer error and forwards everything.
type firstError struct {
	next  diag.Reporter
	first *diag.Diagnostic
}

func (f *firstError) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	if sev == diag.SevError && f.first == nil {
		d := diag.New(sev, code, primary, msg)
		f.first = &d
	}
	if f.next != nil {
		f.next.Report(code, sev, primary, msg, notes)
	}
}

func (p *Parser) newError(code diag.Code, sp source.Span, msg string) *ParseError {
	return &ParseError{
		Path:    p.file.Path,
		Span:    sp,
		Pos:     p.file.Position(sp.Start),
		Code:    code,
		Message: msg,
	}
}

// fail aborts the parse at the current token.
func (p *Parser) fail(code diag.Code, msg string) {
	panic(bailout{err: p.newError(code, p.peek().Span, msg)})
}

func (p *Parser) failf(code diag.Code, format string, args ...any) {
	p.fail(code, fmt.Sprintf(format, args...))
}

// enter guards recursion; every call pairs with a deferred leave.
func (p *Parser) enter() {
	p.depth++
	if p.depth > p.opts.MaxDepth {
		p.failf(diag.PrsNestingTooDeep, "nesting deeper than %d levels", p.opts.MaxDepth)
	}
}

func (p *Parser) leave() { p.depth-- }

// try runs fn speculatively. On bailout it rewinds and reports false; the
// nodes fn allocated stay unreachable.
func (p *Parser) try(fn func()) (ok bool) {
	pos, depth, res, last := p.pos, p.depth, p.res, p.lastSpan
	saved := p.snapshotSplit()
	defer func() {
		if r := recover(); r != nil {
			if _, isBailout := r.(bailout); !isBailout {
				panic(r)
			}
			p.pos, p.depth, p.res, p.lastSpan = pos, depth, res, last
			p.restoreSplit(saved)
			ok = false
		}
	}()
	fn()
	return true
}
