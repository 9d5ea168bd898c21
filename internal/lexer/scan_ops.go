package lexer

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

// scanOperatorOrPunct is greedy: three-byte forms, then two, then one.
func (lx *Lexer) scanOperatorOrPunct() token.Token {
	start := lx.cursor.Mark()

	switch {
	case lx.try3('<', '<', '='):
		return lx.emit(token.ShlEq, start)
	case lx.try3('>', '>', '='):
		return lx.emit(token.ShrEq, start)
	case lx.try3('.', '.', '.'):
		return lx.emit(token.DotDotDot, start)
	case lx.try3('.', '.', '='):
		return lx.emit(token.DotDotEq, start)
	case lx.try2('.', '.'):
		return lx.emit(token.DotDot, start)
	case lx.try2(':', ':'):
		return lx.emit(token.ColonColon, start)
	case lx.try2('-', '>'):
		return lx.emit(token.Arrow, start)
	case lx.try2('=', '>'):
		return lx.emit(token.FatArrow, start)
	case lx.try2('=', '='):
		return lx.emit(token.EqEq, start)
	case lx.try2('!', '='):
		return lx.emit(token.BangEq, start)
	case lx.try2('<', '='):
		return lx.emit(token.LtEq, start)
	case lx.try2('>', '='):
		return lx.emit(token.GtEq, start)
	case lx.try2('&', '&'):
		return lx.emit(token.AndAnd, start)
	case lx.try2('|', '|'):
		return lx.emit(token.OrOr, start)
	case lx.try2('<', '<'):
		return lx.emit(token.Shl, start)
	case lx.try2('>', '>'):
		return lx.emit(token.Shr, start)
	case lx.try2('+', '='):
		return lx.emit(token.PlusEq, start)
	case lx.try2('-', '='):
		return lx.emit(token.MinusEq, start)
	case lx.try2('*', '='):
		return lx.emit(token.StarEq, start)
	case lx.try2('/', '='):
		return lx.emit(token.SlashEq, start)
	case lx.try2('%', '='):
		return lx.emit(token.PercentEq, start)
	case lx.try2('^', '='):
		return lx.emit(token.CaretEq, start)
	case lx.try2('&', '='):
		return lx.emit(token.AmpEq, start)
	case lx.try2('|', '='):
		return lx.emit(token.PipeEq, start)
	}

	var k token.Kind
	switch lx.cursor.Bump() {
	case '+':
		k = token.Plus
	case '-':
		k = token.Minus
	case '*':
		k = token.Star
	case '/':
		k = token.Slash
	case '%':
		k = token.Percent
	case '^':
		k = token.Caret
	case '!':
		k = token.Bang
	case '&':
		k = token.Amp
	case '|':
		k = token.Pipe
	case '=':
		k = token.Assign
	case '<':
		k = token.Lt
	case '>':
		k = token.Gt
	case '@':
		k = token.At
	case '.':
		k = token.Dot
	case ',':
		k = token.Comma
	case ';':
		k = token.Semicolon
	case ':':
		k = token.Colon
	case '#':
		k = token.Pound
	case '$':
		k = token.Dollar
	case '?':
		k = token.Question
	case '~':
		k = token.Tilde
	case '(':
		k = token.LParen
	case ')':
		k = token.RParen
	case '[':
		k = token.LBracket
	case ']':
		k = token.RBracket
	case '{':
		k = token.LBrace
	case '}':
		k = token.RBrace
	default:
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnknownChar, sp, "unknown character")
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}
	return lx.emit(k, start)
}
