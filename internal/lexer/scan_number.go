package lexer

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

// scanNumber handles 123, 1_000, 0x.., 0o.., 0b.., 1.5, 1e-3 and type
// suffixes (5u32, 2.0f64). A '.' is only a decimal point when a digit
// follows and the number is not a tuple index (t.0.1).
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	kind := token.IntLit

	if lx.cursor.Peek() == '0' {
		switch lx.cursor.PeekAt(1) {
		case 'x', 'X':
			lx.cursor.Off += 2
			for isHex(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
				lx.cursor.Bump()
			}
			return lx.finishNumber(kind, start)
		case 'o', 'O', 'b', 'B':
			lx.cursor.Off += 2
			for isDec(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
				lx.cursor.Bump()
			}
			return lx.finishNumber(kind, start)
		}
	}

	lx.digits()
	if lx.prev != token.Dot && lx.cursor.Peek() == '.' && isDec(lx.cursor.PeekAt(1)) {
		kind = token.FloatLit
		lx.cursor.Bump()
		lx.digits()
	}
	if b := lx.cursor.Peek(); b == 'e' || b == 'E' {
		save := lx.cursor.Mark()
		lx.cursor.Bump()
		if b := lx.cursor.Peek(); b == '+' || b == '-' {
			lx.cursor.Bump()
		}
		if isDec(lx.cursor.Peek()) {
			kind = token.FloatLit
			lx.digits()
		} else {
			// not an exponent: the 'e' starts a suffix we do not know
			lx.cursor.Reset(save)
		}
	}
	return lx.finishNumber(kind, start)
}

func (lx *Lexer) digits() {
	for isDec(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
		lx.cursor.Bump()
	}
}

// finishNumber consumes an optional type suffix.
func (lx *Lexer) finishNumber(kind token.Kind, start Mark) token.Token {
	if isIdentStartByte(lx.cursor.Peek()) {
		suffixStart := lx.cursor.Off
		for isIdentContinueByte(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
		suffix := string(lx.file.Content[suffixStart:lx.cursor.Off])
		switch suffix {
		case "f32", "f64":
			kind = token.FloatLit
		case "u8", "u16", "u32", "u64", "u128", "usize", "i8", "i16", "i32", "i64", "i128", "isize":
		default:
			sp := lx.cursor.SpanFrom(start)
			lx.errLex(diag.LexBadNumber, sp, "invalid suffix "+suffix+" on numeric literal")
		}
	}
	return lx.emit(kind, start)
}
