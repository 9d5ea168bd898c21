package token_test

import (
	"testing"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

func tok(k token.Kind) token.Token {
	return token.Token{Kind: k, Span: source.Span{}}
}

func TestKindStringCoversEveryKind(t *testing.T) {
	for k := token.Invalid; k <= token.RBrace; k++ {
		if k.String() == "" {
			t.Fatalf("kind %d has no name", k)
		}
	}
}

func TestKeywordRoundTrip(t *testing.T) {
	for _, word := range []string{"fn", "unsafe", "match", "move", "Self", "self", "await"} {
		k, ok := token.LookupKeyword(word)
		if !ok {
			t.Fatalf("%q is not a keyword", word)
		}
		if !k.IsKeyword() {
			t.Fatalf("%q maps to %v which is not in the keyword range", word, k)
		}
		if k.String() != word {
			t.Fatalf("String() = %q, want %q", k.String(), word)
		}
	}
	for _, word := range []string{"Fn", "spawn", "unwrap", "String"} {
		if _, ok := token.LookupKeyword(word); ok {
			t.Fatalf("%q must not be a keyword", word)
		}
	}
}

func TestIsLiteral(t *testing.T) {
	for _, k := range []token.Kind{token.IntLit, token.FloatLit, token.StringLit, token.CharLit, token.KwTrue} {
		if !tok(k).IsLiteral() {
			t.Fatalf("%v should be literal", k)
		}
	}
	for _, k := range []token.Kind{token.Ident, token.Lifetime, token.KwLet, token.Plus} {
		if tok(k).IsLiteral() {
			t.Fatalf("%v must NOT be literal", k)
		}
	}
}

func TestIsAssignOp(t *testing.T) {
	for _, k := range []token.Kind{token.Assign, token.PlusEq, token.ShrEq} {
		if !k.IsAssignOp() {
			t.Fatalf("%v should be an assignment", k)
		}
	}
	if token.EqEq.IsAssignOp() || token.FatArrow.IsAssignOp() {
		t.Fatalf("comparison treated as assignment")
	}
}
