package parser

import (
	"strings"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

// parseBlock parses `{ stmts }` starting at the cursor.
func (p *Parser) parseBlock(kind ast.Kind) ast.NodeID {
	return p.parseBlockFrom(kind, p.peek().Span)
}

func (p *Parser) parseBlockFrom(kind ast.Kind, start source.Span) ast.NodeID {
	p.enter()
	defer p.leave()

	p.expect(token.LBrace, "`{`")
	var stmts []ast.NodeID
	p.withRestrictions(restrictions{}, func() {
		p.parseInnerAttrs()
		for !p.at(token.RBrace) {
			if p.at(token.EOF) {
				p.fail(diag.PrsUnclosedDelim, "unclosed `{`")
			}
			if s := p.parseStmt(); s.IsValid() {
				stmts = append(stmts, s)
			}
		}
	})
	p.advance()
	return p.b.New(kind, p.spanFrom(start), "", stmts...)
}

func (p *Parser) parseStmt() ast.NodeID {
	if p.eat(token.Semicolon) {
		return ast.NoNodeID
	}
	start := p.peek().Span
	attrs := p.parseOuterAttrs()
	switch {
	case p.at(token.KwLet):
		return p.parseLet(start)
	case p.isItemStart():
		return p.parseItemAfterAttrs(start, attrs)
	}

	expr, blockLike := p.parseStmtExpr()
	var flags ast.Flags
	switch {
	case p.eat(token.Semicolon):
		flags = ast.FlagSemi
	case p.at(token.RBrace), blockLike:
	default:
		p.unexpected("`;` or `}`")
	}
	stmt := p.b.New(ast.KindExprStmt, p.spanFrom(start), "", expr)
	p.b.SetFlags(stmt, flags)
	return stmt
}

// parseStmtExpr parses an expression in statement position. Block-like
// expressions (if, match, loops, blocks, brace macros) end the statement
// without a `;` unless a postfix operator continues them.
func (p *Parser) parseStmtExpr() (ast.NodeID, bool) {
	if !p.atBlockLike() {
		e := p.parseExpr()
		n := p.b.Node(e)
		if n.Kind == ast.KindMacroCall && p.toks[p.pos-1].Kind == token.RBrace && n.Span.End == p.lastSpan.End {
			return e, true
		}
		return e, false
	}
	start := p.peek().Span
	e := p.parseBlockLike()
	if !p.atAny(token.Dot, token.Question) {
		return e, true
	}
	e = p.parsePostfix(e, start)
	e = p.binaryLoop(e, start, precLowest)
	if p.peek().Kind.IsAssignOp() {
		e = p.finishAssign(e, start)
	}
	return e, false
}

func (p *Parser) atBlockLike() bool {
	switch p.peek().Kind {
	case token.LBrace, token.KwIf, token.KwMatch, token.KwLoop, token.KwWhile, token.KwFor:
		return true
	case token.KwUnsafe:
		return p.peekAt(1).Kind == token.LBrace
	case token.Lifetime:
		return p.peekAt(1).Kind == token.Colon
	}
	return false
}

func (p *Parser) parseLet(start source.Span) ast.NodeID {
	p.advance()
	pat := p.parsePattern(true)
	var typ, init, els ast.NodeID
	if p.eat(token.Colon) {
		typ = p.parseType(true)
	}
	if p.eat(token.Assign) {
		init = p.parseExpr()
		if p.at(token.KwElse) {
			p.advance()
			els = p.parseBlock(ast.KindBlock)
			p.b.SetFlags(els, ast.FlagLetElse)
		}
	}
	p.expect(token.Semicolon, "`;` after let statement")
	id := p.b.New(ast.KindLet, p.spanFrom(start), "", pat, typ, init, els)
	if strings.HasPrefix(p.b.Node(pat).Text, "mut ") {
		p.b.SetFlags(id, ast.FlagMut)
	}
	return id
}
