package lexer

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

// atPrefixedLiteral matches b"..", b'..', r"..", r#".."#, br"..", c"..".
func (lx *Lexer) atPrefixedLiteral() bool {
	b0, b1, b2 := lx.cursor.Peek(), lx.cursor.PeekAt(1), lx.cursor.PeekAt(2)
	switch b0 {
	case 'b':
		return b1 == '"' || b1 == '\'' || (b1 == 'r' && (b2 == '"' || b2 == '#'))
	case 'r':
		return b1 == '"' || (b1 == '#' && (b2 == '"' || b2 == '#'))
	case 'c':
		return b1 == '"'
	}
	return false
}

func (lx *Lexer) scanPrefixedLiteral() token.Token {
	start := lx.cursor.Mark()
	if lx.cursor.Eat('b') && lx.cursor.Peek() == '\'' {
		return lx.scanChar(start)
	}
	lx.cursor.Reset(start)
	for lx.cursor.Peek() == 'b' || lx.cursor.Peek() == 'c' {
		lx.cursor.Bump()
	}
	if lx.cursor.Peek() == 'r' {
		lx.cursor.Bump()
		return lx.scanRawString(start)
	}
	return lx.scanString(start)
}

// scanString scans a "..." literal; the cursor sits on the opening quote.
// Strings may span lines.
func (lx *Lexer) scanString(start Mark) token.Token {
	lx.cursor.Bump()
	for !lx.cursor.EOF() {
		switch lx.cursor.Bump() {
		case '"':
			return lx.emit(token.StringLit, start)
		case '\\':
			lx.cursor.Bump()
		}
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnterminatedString, sp, "unterminated string literal")
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}

// scanRawString scans #*"..."#*; the cursor sits after the 'r'.
func (lx *Lexer) scanRawString(start Mark) token.Token {
	hashes := 0
	for lx.cursor.Eat('#') {
		hashes++
	}
	if !lx.cursor.Eat('"') {
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnterminatedString, sp, "expected '\"' in raw string literal")
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}
	for !lx.cursor.EOF() {
		if lx.cursor.Bump() != '"' {
			continue
		}
		closing := 0
		for closing < hashes && lx.cursor.Peek() == '#' {
			lx.cursor.Bump()
			closing++
		}
		if closing == hashes {
			return lx.emit(token.StringLit, start)
		}
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnterminatedString, sp, "unterminated raw string literal")
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}

// scanQuote decides between a lifetime ('a, 'static) and a char literal ('a', '\n').
// An identifier after the quote is a lifetime unless a closing quote follows
// a single character.
func (lx *Lexer) scanQuote() token.Token {
	start := lx.cursor.Mark()
	next := lx.cursor.PeekAt(1)
	if next == '\\' {
		return lx.scanChar(start)
	}
	if isIdentStartByte(next) || next >= utf8RuneSelf {
		lx.cursor.Bump()
		identStart := lx.cursor.Off
		lx.scanIdentBody()
		if lx.cursor.Off > identStart {
			_, sz := decodeAt(lx, identStart)
			if lx.cursor.Peek() == '\'' && lx.cursor.Off-identStart == sz {
				lx.cursor.Bump()
				return lx.emit(token.CharLit, start)
			}
			return lx.emit(token.Lifetime, start)
		}
		lx.cursor.Reset(start)
	}
	return lx.scanChar(start)
}

// scanChar scans '...'; the cursor sits on the opening quote.
func (lx *Lexer) scanChar(start Mark) token.Token {
	lx.cursor.Bump()
scan:
	for n := 0; !lx.cursor.EOF() && n < 12; n++ {
		switch lx.cursor.Peek() {
		case '\'':
			lx.cursor.Bump()
			return lx.emit(token.CharLit, start)
		case '\\':
			lx.cursor.Bump()
			lx.bumpRune()
		case '\n':
			break scan
		default:
			lx.bumpRune()
		}
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnterminatedChar, sp, "unterminated character literal")
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}

func decodeAt(lx *Lexer, off uint32) (rune, uint32) {
	save := lx.cursor.Off
	lx.cursor.Off = off
	r, sz := lx.peekRune()
	lx.cursor.Off = save
	return r, uint32(sz) // #nosec G115 -- rune size is at most 4
}
