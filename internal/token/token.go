package token

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

// Token represents a single source token with its location and trivia.
type Token struct {
	Kind    Kind
	Span    source.Span
	Text    string
	Leading []Trivia
}

// IsLiteral reports whether the token is a numeric, char, string or boolean literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case IntLit, FloatLit, StringLit, CharLit, KwTrue, KwFalse:
		return true
	default:
		return false
	}
}

// IsIdent reports whether the token is an identifier.
func (t Token) IsIdent() bool { return t.Kind == Ident }

// IsPathSegment reports whether the token may start or continue a path.
func (t Token) IsPathSegment() bool {
	switch t.Kind {
	case Ident, KwSelf, KwSelfType, KwSuper, KwCrate:
		return true
	default:
		return false
	}
}
