package parser

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

func (p *Parser) peek() token.Token {
	return p.toks[p.pos]
}

// peekAt looks n tokens ahead; past the end it yields EOF.
func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) at(k token.Kind) bool {
	return p.toks[p.pos].Kind == k
}

func (p *Parser) atAny(kinds ...token.Kind) bool {
	cur := p.toks[p.pos].Kind
	for _, k := range kinds {
		if cur == k {
			return true
		}
	}
	return false
}

// advance consumes one token and records its span.
func (p *Parser) advance() token.Token {
	tok := p.toks[p.pos]
	if tok.Kind != token.EOF {
		p.pos++
		p.lastSpan = tok.Span
	}
	return tok
}

func (p *Parser) eat(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(k token.Kind, what string) token.Token {
	if !p.at(k) {
		p.unexpected(what)
	}
	return p.advance()
}

func (p *Parser) expectIdent(what string) token.Token {
	if !p.at(token.Ident) {
		p.fail(diag.PrsExpectIdentifier, "expected "+what+", found "+describe(p.peek()))
	}
	return p.advance()
}

func (p *Parser) unexpected(want string) {
	tok := p.peek()
	code := diag.PrsUnexpectedToken
	if tok.Kind == token.EOF {
		code = diag.PrsUnclosedDelim
	}
	p.fail(code, "expected "+want+", found "+describe(tok))
}

func describe(tok token.Token) string {
	switch tok.Kind {
	case token.EOF:
		return "end of file"
	case token.Ident:
		return "identifier `" + tok.Text + "`"
	case token.Invalid:
		return "invalid token"
	}
	return "`" + tok.Kind.String() + "`"
}

// spanFrom covers start through the last consumed token.
func (p *Parser) spanFrom(start source.Span) source.Span {
	if p.lastSpan.End < start.Start {
		return source.Span{File: start.File, Start: start.Start, End: start.Start}
	}
	return source.Span{File: start.File, Start: start.Start, End: p.lastSpan.End}
}

func (p *Parser) source(sp source.Span) string {
	if int(sp.End) > len(p.file.Content) || sp.Start > sp.End {
		return ""
	}
	return string(p.file.Content[sp.Start:sp.End])
}

// withRestrictions runs fn under res and restores the previous set.
func (p *Parser) withRestrictions(res restrictions, fn func()) {
	saved := p.res
	p.res = res
	defer func() { p.res = saved }()
	fn()
}

// skipDelimited consumes a balanced (), [] or {} group including the
// opening token at the cursor.
func (p *Parser) skipDelimited() {
	open := p.peek()
	var stack []token.Kind
	for {
		tok := p.peek()
		switch tok.Kind {
		case token.LParen:
			stack = append(stack, token.RParen)
		case token.LBracket:
			stack = append(stack, token.RBracket)
		case token.LBrace:
			stack = append(stack, token.RBrace)
		case token.RParen, token.RBracket, token.RBrace:
			if len(stack) == 0 || stack[len(stack)-1] != tok.Kind {
				p.fail(diag.PrsUnexpectedToken, "mismatched `"+tok.Kind.String()+"` for `"+open.Kind.String()+"`")
			}
			stack = stack[:len(stack)-1]
		case token.EOF:
			p.fail(diag.PrsUnclosedDelim, "unclosed `"+open.Kind.String()+"`")
		}
		p.advance()
		if len(stack) == 0 {
			return
		}
	}
}

type splitRec struct {
	pos int
	tok token.Token
}

func (p *Parser) snapshotSplit() int { return len(p.splits) }

func (p *Parser) restoreSplit(n int) {
	for i := len(p.splits) - 1; i >= n; i-- {
		p.toks[p.splits[i].pos] = p.splits[i].tok
	}
	p.splits = p.splits[:n]
}

// splitFirst consumes the first byte of a compound token such as `>>`
// or `>=`, leaving the remainder at the cursor.
func (p *Parser) splitFirst(rest token.Kind) {
	tok := p.toks[p.pos]
	p.splits = append(p.splits, splitRec{pos: p.pos, tok: tok})
	first := tok.Span
	first.End = first.Start + 1
	p.lastSpan = first
	remainder := tok.Span
	remainder.Start++
	p.toks[p.pos] = token.Token{Kind: rest, Span: remainder, Text: tok.Text[1:]}
}

// eatGt closes a generic argument list, splitting `>>`, `>=` and `>>=`.
func (p *Parser) eatGt() bool {
	switch p.peek().Kind {
	case token.Gt:
		p.advance()
	case token.Shr:
		p.splitFirst(token.Gt)
	case token.GtEq:
		p.splitFirst(token.Assign)
	case token.ShrEq:
		p.splitFirst(token.GtEq)
	default:
		return false
	}
	return true
}

// eatAmp consumes one `&`, splitting `&&`.
func (p *Parser) eatAmp() bool {
	switch p.peek().Kind {
	case token.Amp:
		p.advance()
	case token.AndAnd:
		p.splitFirst(token.Amp)
	default:
		return false
	}
	return true
}

// eatLt opens a generic list, splitting `<<`.
func (p *Parser) eatLt() bool {
	switch p.peek().Kind {
	case token.Lt:
		p.advance()
	case token.Shl:
		p.splitFirst(token.Lt)
	default:
		return false
	}
	return true
}
