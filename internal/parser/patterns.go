package parser

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

// parsePattern consumes a pattern and keeps it as source text. With
// allowAlt, top-level `|` alternatives belong to the pattern.
func (p *Parser) parsePattern(allowAlt bool) ast.NodeID {
	start := p.peek().Span
	if allowAlt {
		p.eat(token.Pipe)
	}
	consumed := 0
	var stack []token.Kind
loop:
	for {
		tok := p.peek()
		if len(stack) == 0 {
			switch tok.Kind {
			case token.Assign, token.Colon, token.FatArrow, token.KwIf, token.KwIn, token.KwElse,
				token.Comma, token.Semicolon, token.RParen, token.RBracket, token.RBrace,
				token.OrOr, token.EOF:
				break loop
			case token.Pipe:
				if !allowAlt {
					break loop
				}
			}
		}
		switch tok.Kind {
		case token.LParen:
			stack = append(stack, token.RParen)
		case token.LBracket:
			stack = append(stack, token.RBracket)
		case token.LBrace:
			stack = append(stack, token.RBrace)
		case token.RParen, token.RBracket, token.RBrace:
			if stack[len(stack)-1] != tok.Kind {
				p.fail(diag.PrsUnexpectedToken, "mismatched `"+tok.Kind.String()+"` in pattern")
			}
			stack = stack[:len(stack)-1]
		case token.EOF:
			p.fail(diag.PrsUnclosedDelim, "unclosed delimiter in pattern")
		}
		p.advance()
		consumed++
	}
	if consumed == 0 {
		p.unexpected("pattern")
	}
	sp := p.spanFrom(start)
	return p.b.New(ast.KindPattern, sp, p.source(sp))
}
