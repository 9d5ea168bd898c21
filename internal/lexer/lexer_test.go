package lexer_test

import (
	"testing"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/lexer"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

func lex(t *testing.T, input string) ([]token.Token, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.rs", []byte(input))
	bag := diag.NewBag(0)
	toks := lexer.Tokenize(fs.Get(id), lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
	return toks, bag
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, 0, len(toks))
	for _, tk := range toks {
		out = append(out, tk.Kind)
	}
	return out
}

func expectKinds(t *testing.T, input string, want ...token.Kind) []token.Token {
	t.Helper()
	toks, bag := lex(t, input)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics for %q: %s", input, diag.FormatShort(bag.Items(), nil))
	}
	want = append(want, token.EOF)
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("%q: got %v, want %v", input, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%q: token %d = %v (%q), want %v", input, i, got[i], toks[i].Text, want[i])
		}
	}
	return toks
}

func TestMethodChainAndMacro(t *testing.T) {
	expectKinds(t, `clone.lock().unwrap(); panic!("boom");`,
		token.Ident, token.Dot, token.Ident, token.LParen, token.RParen,
		token.Dot, token.Ident, token.LParen, token.RParen, token.Semicolon,
		token.Ident, token.Bang, token.LParen, token.StringLit, token.RParen, token.Semicolon)
}

func TestLifetimeVersusChar(t *testing.T) {
	toks := expectKinds(t, `fn f<'a>(x: &'static str, c: char) { let _ = 'x'; let _ = '\n'; 'outer: loop {} }`,
		token.KwFn, token.Ident, token.Lt, token.Lifetime, token.Gt, token.LParen,
		token.Ident, token.Colon, token.Amp, token.Lifetime, token.Ident, token.Comma,
		token.Ident, token.Colon, token.Ident, token.RParen, token.LBrace,
		token.KwLet, token.Underscore, token.Assign, token.CharLit, token.Semicolon,
		token.KwLet, token.Underscore, token.Assign, token.CharLit, token.Semicolon,
		token.Lifetime, token.Colon, token.KwLoop, token.LBrace, token.RBrace, token.RBrace)
	if toks[9].Text != "'static" {
		t.Fatalf("lifetime text = %q", toks[9].Text)
	}
}

func TestStringsAndPrefixes(t *testing.T) {
	toks := expectKinds(t, `b"bytes" r#"raw "quoted""# br"x" b'a' "multi
line" r#type`,
		token.StringLit, token.StringLit, token.StringLit, token.CharLit, token.StringLit, token.Ident)
	if toks[5].Text != "type" {
		t.Fatalf("raw identifier text = %q, want type", toks[5].Text)
	}
}

func TestNumbers(t *testing.T) {
	toks := expectKinds(t, `5 1_000u32 0xFF 2.5f64 1e-3 t.0.1 0..10 7.min(3)`,
		token.IntLit, token.IntLit, token.IntLit, token.FloatLit, token.FloatLit,
		token.Ident, token.Dot, token.IntLit, token.Dot, token.IntLit,
		token.IntLit, token.DotDot, token.IntLit,
		token.IntLit, token.Dot, token.Ident, token.LParen, token.IntLit, token.RParen)
	if toks[1].Text != "1_000u32" {
		t.Fatalf("suffix not kept: %q", toks[1].Text)
	}
}

func TestOperatorsGreedy(t *testing.T) {
	expectKinds(t, `a <<= b >>= c ..= d :: -> => && || != == ? #`,
		token.Ident, token.ShlEq, token.Ident, token.ShrEq, token.Ident, token.DotDotEq,
		token.Ident, token.ColonColon, token.Arrow, token.FatArrow, token.AndAnd, token.OrOr,
		token.BangEq, token.EqEq, token.Question, token.Pound)
}

func TestTriviaAttachedToNextToken(t *testing.T) {
	toks := expectKinds(t, "// ubs:ignore\n/* outer /* nested */ */ x /// doc\ny",
		token.Ident, token.Ident)
	var comments int
	for _, tr := range toks[0].Leading {
		if tr.IsComment() {
			comments++
		}
	}
	if comments != 2 {
		t.Fatalf("x carries %d comments, want 2", comments)
	}
	if got := toks[1].Leading; len(got) < 2 || got[1].Kind != token.TriviaDocLine {
		t.Fatalf("doc comment not attached to y: %+v", got)
	}
}

func TestUnicodeIdentifierIsNormalised(t *testing.T) {
	toks := expectKinds(t, "cafe\u0301", token.Ident)
	if toks[0].Text != "caf\u00e9" {
		t.Fatalf("identifier not NFC: %q", toks[0].Text)
	}
}

func TestErrorsAreReported(t *testing.T) {
	tests := []struct {
		input string
		code  diag.Code
	}{
		{`"never closed`, diag.LexUnterminatedString},
		{`/* open`, diag.LexUnterminatedBlockComment},
		{"let x = §;", diag.LexUnknownChar},
		{`1_000q8`, diag.LexBadNumber},
	}
	for _, tt := range tests {
		_, bag := lex(t, tt.input)
		if bag.Len() == 0 || bag.Items()[0].Code != tt.code {
			t.Fatalf("%q: diagnostics %v, want code %v", tt.input, bag.Items(), tt.code)
		}
	}
}

func TestSpansMatchText(t *testing.T) {
	input := "fn main() { let v = vec![1, 2]; }"
	toks, _ := lex(t, input)
	for _, tk := range toks {
		if got := input[tk.Span.Start:tk.Span.End]; got != tk.Text {
			t.Fatalf("span %v covers %q, token text %q", tk.Span, got, tk.Text)
		}
	}
}
