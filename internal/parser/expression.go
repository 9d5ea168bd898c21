package parser

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

// Binary operator precedence; larger binds tighter.
const (
	precLowest         = 1
	precLogicalOr      = 2  // ||
	precLogicalAnd     = 3  // &&
	precComparison     = 4  // == != < <= > >=
	precBitwiseOr      = 5  // |
	precBitwiseXor     = 6  // ^
	precBitwiseAnd     = 7  // &
	precShift          = 8  // << >>
	precAdditive       = 9  // + -
	precMultiplicative = 10 // * / %
	precCast           = 11 // as
)

func binaryPrec(kind token.Kind) int {
	switch kind {
	case token.OrOr:
		return precLogicalOr
	case token.AndAnd:
		return precLogicalAnd
	case token.EqEq, token.BangEq, token.Lt, token.LtEq, token.Gt, token.GtEq:
		return precComparison
	case token.Pipe:
		return precBitwiseOr
	case token.Caret:
		return precBitwiseXor
	case token.Amp:
		return precBitwiseAnd
	case token.Shl, token.Shr:
		return precShift
	case token.Plus, token.Minus:
		return precAdditive
	case token.Star, token.Slash, token.Percent:
		return precMultiplicative
	}
	return -1
}

// parseExpr parses a full expression including assignment.
func (p *Parser) parseExpr() ast.NodeID {
	p.enter()
	defer p.leave()

	start := p.peek().Span
	lhs := p.parseRange()
	if p.peek().Kind.IsAssignOp() {
		return p.finishAssign(lhs, start)
	}
	return lhs
}

func (p *Parser) finishAssign(lhs ast.NodeID, start source.Span) ast.NodeID {
	op := p.advance()
	rhs := p.parseExpr()
	return p.b.New(ast.KindAssign, p.spanFrom(start), op.Kind.String(), lhs, rhs)
}

func (p *Parser) parseRange() ast.NodeID {
	start := p.peek().Span
	if p.atAny(token.DotDot, token.DotDotEq) {
		op := p.advance()
		var end ast.NodeID
		if p.canStartExpr() {
			end = p.parseBinary(precLogicalOr)
		}
		return p.b.New(ast.KindRange, p.spanFrom(start), op.Kind.String(), end)
	}
	lhs := p.parseBinary(precLowest)
	if p.atAny(token.DotDot, token.DotDotEq) {
		op := p.advance()
		var end ast.NodeID
		if p.canStartExpr() {
			end = p.parseBinary(precLogicalOr)
		}
		return p.b.New(ast.KindRange, p.spanFrom(start), op.Kind.String(), lhs, end)
	}
	return lhs
}

// canStartExpr reports whether an optional operand follows.
func (p *Parser) canStartExpr() bool {
	switch p.peek().Kind {
	case token.RParen, token.RBracket, token.RBrace, token.Comma, token.Semicolon,
		token.FatArrow, token.EOF, token.Assign:
		return false
	case token.LBrace:
		return !p.res.noStruct
	}
	return true
}

func (p *Parser) parseBinary(minPrec int) ast.NodeID {
	start := p.peek().Span
	lhs := p.parseUnary()
	return p.binaryLoop(lhs, start, minPrec)
}

func (p *Parser) binaryLoop(lhs ast.NodeID, start source.Span, minPrec int) ast.NodeID {
	for {
		tok := p.peek()
		if tok.Kind == token.KwAs {
			if precCast < minPrec {
				return lhs
			}
			p.advance()
			typ := p.parseType(false)
			lhs = p.b.New(ast.KindCast, p.spanFrom(start), "as", lhs, typ)
			continue
		}
		prec := binaryPrec(tok.Kind)
		if prec < 0 || prec < minPrec {
			return lhs
		}
		p.advance()
		rhs := p.parseBinary(prec + 1)
		lhs = p.b.New(ast.KindBinary, p.spanFrom(start), tok.Kind.String(), lhs, rhs)
	}
}

func (p *Parser) parseUnary() ast.NodeID {
	p.enter()
	defer p.leave()

	start := p.peek().Span
	switch tok := p.peek(); tok.Kind {
	case token.Bang, token.Minus, token.Star:
		p.advance()
		operand := p.parseUnary()
		return p.b.New(ast.KindUnary, p.spanFrom(start), tok.Kind.String(), operand)
	case token.Amp, token.AndAnd:
		p.eatAmp()
		op := "&"
		var flags ast.Flags
		if p.eat(token.KwMut) {
			op, flags = "&mut", ast.FlagMut
		}
		operand := p.parseUnary()
		id := p.b.New(ast.KindUnary, p.spanFrom(start), op, operand)
		p.b.SetFlags(id, flags)
		return id
	}
	primary := p.parsePrimary()
	return p.parsePostfix(primary, start)
}
