package parser

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

// parseType consumes one type and returns a Type node carrying its
// source text. Types are not modelled structurally.
func (p *Parser) parseType(allowPlus bool) ast.NodeID {
	start := p.peek().Span
	p.skipType(allowPlus)
	sp := p.spanFrom(start)
	return p.b.New(ast.KindType, sp, p.source(sp))
}

func (p *Parser) skipType(allowPlus bool) {
	p.enter()
	defer p.leave()

	switch tok := p.peek(); tok.Kind {
	case token.Amp, token.AndAnd:
		p.eatAmp()
		p.eat(token.Lifetime)
		p.eat(token.KwMut)
		p.skipType(false)
		return
	case token.Star:
		p.advance()
		if !p.eat(token.KwMut) && !p.eat(token.KwConst) {
			p.unexpected("`const` or `mut` after `*`")
		}
		p.skipType(false)
		return
	case token.LParen:
		p.advance()
		for !p.at(token.RParen) {
			p.skipType(true)
			if !p.eat(token.Comma) {
				break
			}
		}
		p.expect(token.RParen, "`)` to close tuple type")
	case token.LBracket:
		p.advance()
		p.skipType(true)
		if p.eat(token.Semicolon) {
			p.withRestrictions(restrictions{}, func() { p.parseExpr() })
		}
		p.expect(token.RBracket, "`]` to close array type")
	case token.Bang, token.Underscore:
		p.advance()
	case token.KwDyn, token.KwImpl:
		p.advance()
		p.skipBounds(allowPlus)
		return
	case token.KwFor:
		p.advance()
		p.skipGenerics()
		p.skipType(allowPlus)
		return
	case token.KwUnsafe, token.KwExtern, token.KwFn:
		p.skipFnPointer()
		return
	case token.Lifetime:
		p.advance()
	case token.Question:
		p.advance()
		p.skipTypePath()
	case token.Lt, token.ColonColon, token.Ident, token.KwSelf, token.KwSelfType, token.KwSuper, token.KwCrate:
		p.skipTypePath()
	default:
		p.unexpected("type")
	}
	if allowPlus {
		for p.at(token.Plus) {
			p.advance()
			p.skipBound()
		}
	}
}

func (p *Parser) skipBounds(allowPlus bool) {
	p.skipBound()
	for allowPlus && p.at(token.Plus) {
		p.advance()
		p.skipBound()
	}
}

func (p *Parser) skipBound() {
	switch {
	case p.at(token.Lifetime):
		p.advance()
	case p.at(token.LParen):
		p.advance()
		p.skipBounds(true)
		p.expect(token.RParen, "`)` to close bound")
	case p.at(token.KwFor):
		p.advance()
		p.skipGenerics()
		p.skipBound()
	default:
		p.eat(token.Question)
		p.eat(token.Tilde)
		p.eat(token.KwConst)
		p.skipTypePath()
	}
}

func (p *Parser) skipFnPointer() {
	p.eat(token.KwUnsafe)
	if p.eat(token.KwExtern) {
		p.eat(token.StringLit)
	}
	p.expect(token.KwFn, "`fn`")
	p.skipDelimited()
	if p.eat(token.Arrow) {
		p.skipType(false)
	}
}

// skipTypePath consumes `a::b<T>::C`, `Fn(A) -> B` sugar and qualified
// `<T as Trait>::X` forms.
func (p *Parser) skipTypePath() {
	if p.at(token.Lt) || p.at(token.Shl) {
		p.skipQualifiedSelf()
	} else {
		p.eat(token.ColonColon)
		p.expectSegment()
	}
	for {
		switch {
		case p.at(token.Lt) || p.at(token.Shl):
			p.skipGenerics()
		case p.at(token.ColonColon) && (p.peekAt(1).Kind == token.Lt || p.peekAt(1).Kind == token.Shl):
			p.advance()
			p.skipGenerics()
		case p.at(token.LParen):
			p.skipDelimited()
			if p.eat(token.Arrow) {
				p.skipType(false)
			}
		case p.at(token.ColonColon):
			p.advance()
			p.expectSegment()
		default:
			return
		}
	}
}

// skipQualifiedSelf consumes `<T as Trait>`.
func (p *Parser) skipQualifiedSelf() {
	p.eatLt()
	p.skipType(true)
	if p.eat(token.KwAs) {
		p.skipTypePath()
	}
	if !p.eatGt() {
		p.unexpected("`>` to close qualified path")
	}
}

func (p *Parser) expectSegment() token.Token {
	if !p.peek().IsPathSegment() {
		p.fail(diag.PrsExpectIdentifier, "expected path segment, found "+describe(p.peek()))
	}
	return p.advance()
}

// skipGenerics consumes a `<...>` list of parameters or arguments.
func (p *Parser) skipGenerics() {
	p.parseGenericArgs(false)
}

// parseGenericArgs consumes `<...>`. With collect it returns Type nodes for
// the type arguments; lifetimes, consts and bindings are skipped.
func (p *Parser) parseGenericArgs(collect bool) []ast.NodeID {
	if !p.eatLt() {
		p.unexpected("`<`")
	}
	p.enter()
	defer p.leave()

	var out []ast.NodeID
	for !p.eatGt() {
		switch {
		case p.at(token.EOF):
			p.fail(diag.PrsUnclosedDelim, "unclosed generic argument list")
		case p.at(token.Lifetime):
			p.advance()
			if p.eat(token.Colon) {
				p.skipBounds(true)
			}
		case p.at(token.KwConst):
			p.advance()
			p.expectIdent("const parameter name")
			p.expect(token.Colon, "`:`")
			p.skipType(false)
			if p.eat(token.Assign) {
				p.skipConstArg()
			}
		case p.peek().IsLiteral() || p.at(token.LBrace) || p.at(token.Minus):
			p.skipConstArg()
		case p.at(token.Ident) && (p.peekAt(1).Kind == token.Assign || p.peekAt(1).Kind == token.Colon):
			// `Item = T` binding or `T: Bound` parameter
			p.advance()
			if p.eat(token.Assign) {
				p.skipType(true)
			} else {
				p.advance()
				p.skipBounds(true)
			}
			if p.eat(token.Assign) {
				p.skipType(true)
			}
		default:
			if collect {
				out = append(out, p.parseType(true))
			} else {
				p.skipType(true)
			}
		}
		if !p.eat(token.Comma) {
			if !p.eatGt() {
				p.unexpected("`,` or `>` in generic arguments")
			}
			break
		}
	}
	return out
}

func (p *Parser) skipConstArg() {
	switch {
	case p.at(token.LBrace):
		p.skipDelimited()
	case p.at(token.Minus):
		p.advance()
		p.advance()
	default:
		p.advance()
	}
}

// skipWhere consumes a where clause up to the item body.
func (p *Parser) skipWhere() {
	if !p.eat(token.KwWhere) {
		return
	}
	for !p.atAny(token.LBrace, token.Semicolon, token.EOF) {
		if p.at(token.Lifetime) {
			p.advance()
			p.expect(token.Colon, "`:`")
			p.skipBounds(true)
		} else {
			if p.at(token.KwFor) {
				p.advance()
				p.skipGenerics()
			}
			p.skipType(false)
			p.expect(token.Colon, "`:` in where clause")
			if !p.atAny(token.Comma, token.LBrace, token.Semicolon) {
				p.skipBounds(true)
			}
		}
		if !p.eat(token.Comma) {
			break
		}
	}
}
