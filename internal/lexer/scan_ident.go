package lexer

import (
	"golang.org/x/text/unicode/norm"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

// scanIdentOrKeyword scans an identifier and classifies keywords.
// Non-ASCII identifiers are NFC-normalised so equal names compare equal.
func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Mark()
	ascii := lx.scanIdentBody()
	if lx.cursor.Off == uint32(start) {
		// not an identifier start after all
		lx.bumpRune()
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnknownChar, sp, "unknown character")
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}

	sp := lx.cursor.SpanFrom(start)
	text := lx.text(sp)
	if text == "_" {
		return token.Token{Kind: token.Underscore, Span: sp, Text: text}
	}
	if k, ok := token.LookupKeyword(text); ok {
		return token.Token{Kind: k, Span: sp, Text: text}
	}
	if !ascii {
		text = norm.NFC.String(text)
	}
	return token.Token{Kind: token.Ident, Span: sp, Text: text}
}

// scanIdentBody consumes identifier characters and reports whether they were all ASCII.
func (lx *Lexer) scanIdentBody() bool {
	ascii := true
	first := true
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if b < utf8RuneSelf {
			if (first && !isIdentStartByte(b)) || (!first && !isIdentContinueByte(b)) {
				break
			}
			lx.cursor.Bump()
		} else {
			r, _ := lx.peekRune()
			if (first && !isIdentStartRune(r)) || (!first && !isIdentContinueRune(r)) {
				break
			}
			ascii = false
			lx.bumpRune()
		}
		first = false
	}
	return ascii
}

func (lx *Lexer) atRawIdent() bool {
	return lx.cursor.Peek() == 'r' && lx.cursor.PeekAt(1) == '#' && isIdentStartByte(lx.cursor.PeekAt(2))
}

// scanRawIdent scans r#name; Text keeps the name without the prefix.
func (lx *Lexer) scanRawIdent() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Off += 2
	nameStart := lx.cursor.Mark()
	lx.scanIdentBody()
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: token.Ident, Span: sp, Text: lx.text(lx.cursor.SpanFrom(nameStart))}
}
