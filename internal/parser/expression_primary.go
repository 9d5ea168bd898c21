package parser

import (
	"strings"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

func (p *Parser) parsePrimary() ast.NodeID {
	tok := p.peek()
	start := tok.Span
	switch tok.Kind {
	case token.IntLit, token.FloatLit, token.StringLit, token.CharLit, token.KwTrue, token.KwFalse:
		p.advance()
		return p.b.New(ast.KindLiteral, tok.Span, tok.Text)
	case token.Underscore:
		p.advance()
		return p.b.New(ast.KindPath, tok.Span, "_")
	case token.Ident, token.KwSelf, token.KwSelfType, token.KwSuper, token.KwCrate, token.ColonColon, token.Lt, token.Shl:
		return p.parsePathExpr()
	case token.LParen:
		return p.parseParenOrTuple()
	case token.LBracket:
		return p.parseArray()
	case token.LBrace, token.KwIf, token.KwMatch, token.KwLoop, token.KwWhile, token.KwFor:
		return p.parseBlockLike()
	case token.Lifetime:
		if p.peekAt(1).Kind == token.Colon {
			return p.parseBlockLike()
		}
	case token.KwUnsafe:
		if p.peekAt(1).Kind == token.LBrace {
			return p.parseBlockLike()
		}
	case token.KwConst:
		if p.peekAt(1).Kind == token.LBrace {
			p.advance()
			return p.parseBlockFrom(ast.KindBlock, start)
		}
	case token.KwAsync:
		return p.parseAsync()
	case token.KwMove, token.Pipe, token.OrOr:
		return p.parseClosure(start, 0)
	case token.KwStatic:
		if next := p.peekAt(1).Kind; next == token.KwMove || next == token.Pipe || next == token.OrOr {
			p.advance()
			return p.parseClosure(start, 0)
		}
	case token.KwReturn:
		p.advance()
		var value ast.NodeID
		if p.canStartExpr() {
			value = p.parseExpr()
		}
		return p.b.New(ast.KindReturn, p.spanFrom(start), "", value)
	case token.KwBreak:
		p.advance()
		label := ""
		if p.at(token.Lifetime) {
			label = p.advance().Text
		}
		var value ast.NodeID
		if p.canStartExpr() {
			value = p.parseExpr()
		}
		return p.b.New(ast.KindBreak, p.spanFrom(start), label, value)
	case token.KwContinue:
		p.advance()
		label := ""
		if p.at(token.Lifetime) {
			label = p.advance().Text
		}
		return p.b.New(ast.KindContinue, p.spanFrom(start), label)
	case token.KwLet:
		if p.res.allowLet {
			return p.parseLetCond()
		}
	}
	p.unexpected("expression")
	return ast.NoNodeID
}

// parseBlockLike parses expressions that end with a block.
func (p *Parser) parseBlockLike() ast.NodeID {
	start := p.peek().Span
	label := ""
	if p.at(token.Lifetime) {
		label = p.advance().Text
		p.expect(token.Colon, "`:` after label")
	}
	var id ast.NodeID
	switch p.peek().Kind {
	case token.LBrace:
		id = p.parseBlockFrom(ast.KindBlock, start)
	case token.KwUnsafe:
		p.advance()
		id = p.parseBlockFrom(ast.KindUnsafeBlock, start)
	case token.KwIf:
		id = p.parseIf()
	case token.KwMatch:
		id = p.parseMatch()
	case token.KwLoop:
		p.advance()
		body := p.parseBlock(ast.KindBlock)
		id = p.b.New(ast.KindLoop, p.spanFrom(start), label, body)
	case token.KwWhile:
		p.advance()
		cond := p.parseCond()
		body := p.parseBlock(ast.KindBlock)
		id = p.b.New(ast.KindWhile, p.spanFrom(start), label, cond, body)
	case token.KwFor:
		p.advance()
		pat := p.parsePattern(true)
		p.expect(token.KwIn, "`in` in for loop")
		var iter ast.NodeID
		p.withRestrictions(restrictions{noStruct: true}, func() { iter = p.parseExpr() })
		body := p.parseBlock(ast.KindBlock)
		id = p.b.New(ast.KindFor, p.spanFrom(start), label, pat, iter, body)
	default:
		p.unexpected("loop or block after label")
	}
	return id
}

// parseCond parses an if/while head where `let` chains are allowed and
// struct literals are not.
func (p *Parser) parseCond() ast.NodeID {
	var cond ast.NodeID
	p.withRestrictions(restrictions{noStruct: true, allowLet: true}, func() { cond = p.parseExpr() })
	return cond
}

func (p *Parser) parseLetCond() ast.NodeID {
	start := p.advance().Span
	pat := p.parsePattern(true)
	p.expect(token.Assign, "`=` in let condition")
	scrutinee := p.parseBinary(precLogicalAnd + 1)
	return p.b.New(ast.KindLetCond, p.spanFrom(start), "", pat, scrutinee)
}

func (p *Parser) parseIf() ast.NodeID {
	start := p.advance().Span
	cond := p.parseCond()
	then := p.parseBlock(ast.KindBlock)
	var els ast.NodeID
	if p.eat(token.KwElse) {
		if p.at(token.KwIf) {
			els = p.parseIf()
		} else {
			els = p.parseBlock(ast.KindBlock)
		}
	}
	return p.b.New(ast.KindIf, p.spanFrom(start), "", cond, then, els)
}

func (p *Parser) parseMatch() ast.NodeID {
	start := p.advance().Span
	var scrutinee ast.NodeID
	p.withRestrictions(restrictions{noStruct: true}, func() { scrutinee = p.parseExpr() })
	p.expect(token.LBrace, "`{` to open match body")
	children := []ast.NodeID{scrutinee}
	p.withRestrictions(restrictions{}, func() {
		p.parseInnerAttrs()
		for !p.at(token.RBrace) {
			children = append(children, p.parseArm())
		}
	})
	p.advance()
	return p.b.New(ast.KindMatch, p.spanFrom(start), "", children...)
}

func (p *Parser) parseArm() ast.NodeID {
	p.enter()
	defer p.leave()

	p.parseOuterAttrs()
	start := p.peek().Span
	pat := p.parsePattern(true)
	var guard ast.NodeID
	if p.eat(token.KwIf) {
		guard = p.parseExpr()
		p.b.SetFlags(guard, ast.FlagGuard)
	}
	p.expect(token.FatArrow, "`=>` in match arm")
	body, blockLike := p.parseStmtExpr()
	if !p.eat(token.Comma) && !blockLike && !p.at(token.RBrace) {
		p.unexpected("`,` or `}` after match arm")
	}
	return p.b.New(ast.KindMatchArm, p.spanFrom(start), "", pat, guard, body)
}

func (p *Parser) parseAsync() ast.NodeID {
	start := p.advance().Span
	switch {
	case p.at(token.KwMove) && p.peekAt(1).Kind == token.LBrace:
		p.advance()
		id := p.parseBlockFrom(ast.KindAsyncBlock, start)
		p.b.SetFlags(id, ast.FlagMove)
		return id
	case p.at(token.LBrace):
		return p.parseBlockFrom(ast.KindAsyncBlock, start)
	}
	return p.parseClosure(start, ast.FlagAsync)
}

func (p *Parser) parseClosure(start source.Span, flags ast.Flags) ast.NodeID {
	if p.eat(token.KwMove) {
		flags |= ast.FlagMove
	}
	var children []ast.NodeID
	if !p.eat(token.OrOr) {
		p.expect(token.Pipe, "`|` to open closure parameters")
		for !p.at(token.Pipe) {
			p.parseOuterAttrs()
			pstart := p.peek().Span
			pat := p.parsePattern(false)
			var typ ast.NodeID
			if p.eat(token.Colon) {
				typ = p.parseType(false)
			}
			children = append(children, p.b.New(ast.KindParam, p.spanFrom(pstart), "", pat, typ))
			if !p.eat(token.Comma) {
				break
			}
		}
		p.expect(token.Pipe, "`|` to close closure parameters")
	}
	var body ast.NodeID
	if p.eat(token.Arrow) {
		children = append(children, p.parseType(false))
		body = p.parseBlock(ast.KindBlock)
	} else {
		body = p.parseExpr()
	}
	children = append(children, body)
	id := p.b.New(ast.KindClosure, p.spanFrom(start), "", children...)
	p.b.SetFlags(id, flags)
	return id
}

func (p *Parser) parseParenOrTuple() ast.NodeID {
	start := p.advance().Span
	var elems []ast.NodeID
	trailingComma := false
	p.withRestrictions(restrictions{}, func() {
		for !p.at(token.RParen) {
			elems = append(elems, p.parseExpr())
			trailingComma = p.eat(token.Comma)
			if !trailingComma {
				break
			}
		}
	})
	p.expect(token.RParen, "`)`")
	if len(elems) == 1 && !trailingComma {
		return p.b.New(ast.KindParen, p.spanFrom(start), "", elems[0])
	}
	return p.b.New(ast.KindTuple, p.spanFrom(start), "", elems...)
}

func (p *Parser) parseArray() ast.NodeID {
	start := p.advance().Span
	var elems []ast.NodeID
	text := ""
	p.withRestrictions(restrictions{}, func() {
		for !p.at(token.RBracket) {
			elems = append(elems, p.parseExpr())
			if len(elems) == 1 && p.eat(token.Semicolon) {
				elems = append(elems, p.parseExpr())
				text = ";"
				break
			}
			if !p.eat(token.Comma) {
				break
			}
		}
	})
	p.expect(token.RBracket, "`]`")
	return p.b.New(ast.KindArray, p.spanFrom(start), text, elems...)
}

// parsePathExpr parses a path and what it introduces: a macro call, a
// struct literal or a plain path expression.
func (p *Parser) parsePathExpr() ast.NodeID {
	start := p.peek().Span
	var text strings.Builder
	var generics []ast.NodeID
	if p.at(token.Lt) || p.at(token.Shl) {
		p.skipQualifiedSelf()
		text.WriteString(p.source(p.spanFrom(start)))
	} else {
		if p.eat(token.ColonColon) {
			text.WriteString("::")
		}
		text.WriteString(p.expectSegment().Text)
	}
	for p.at(token.ColonColon) {
		next := p.peekAt(1)
		switch {
		case next.Kind == token.Lt || next.Kind == token.Shl:
			p.advance()
			generics = append(generics, p.parseGenericArgs(true)...)
		case next.IsPathSegment():
			p.advance()
			text.WriteString("::")
			text.WriteString(p.advance().Text)
		default:
			p.unexpected("path segment after `::`")
		}
	}
	path := text.String()

	if p.at(token.Bang) {
		return p.parseMacroCall(start, path)
	}
	if p.at(token.LBrace) && !p.res.noStruct && p.looksLikeStructLit() {
		return p.parseStructLit(start, path)
	}
	return p.b.New(ast.KindPath, p.spanFrom(start), path, generics...)
}

func (p *Parser) looksLikeStructLit() bool {
	switch p.peekAt(1).Kind {
	case token.RBrace, token.DotDot, token.Pound:
		return true
	case token.Ident, token.IntLit:
		switch p.peekAt(2).Kind {
		case token.Colon, token.Comma, token.RBrace:
			return true
		}
	}
	return false
}

func (p *Parser) parseStructLit(start source.Span, path string) ast.NodeID {
	p.advance()
	var fields []ast.NodeID
	p.withRestrictions(restrictions{}, func() {
		for !p.at(token.RBrace) {
			p.parseOuterAttrs()
			if p.eat(token.DotDot) {
				if !p.at(token.RBrace) {
					fields = append(fields, p.parseExpr())
				}
				break
			}
			fstart := p.peek().Span
			var name token.Token
			if p.at(token.IntLit) {
				name = p.advance()
			} else {
				name = p.expectIdent("field name")
			}
			var value ast.NodeID
			if p.eat(token.Colon) {
				value = p.parseExpr()
			} else {
				value = p.b.New(ast.KindPath, name.Span, name.Text)
			}
			fields = append(fields, p.b.New(ast.KindFieldInit, p.spanFrom(fstart), name.Text, value))
			if !p.eat(token.Comma) {
				break
			}
		}
	})
	p.expect(token.RBrace, "`}` to close struct literal")
	return p.b.New(ast.KindStructLit, p.spanFrom(start), path, fields...)
}
