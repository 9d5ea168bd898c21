package parser

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

// exprMacros take comma-separated expression arguments. Their arguments
// are parsed; every other macro body stays opaque.
var exprMacros = map[string]bool{
	"println": true, "print": true, "eprintln": true, "eprint": true,
	"format": true, "format_args": true, "write": true, "writeln": true,
	"panic": true, "unreachable": true, "todo": true, "unimplemented": true,
	"assert": true, "assert_eq": true, "assert_ne": true,
	"debug_assert": true, "debug_assert_eq": true, "debug_assert_ne": true,
	"vec": true, "dbg": true, "join": true, "try_join": true,
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// panicMacros always panic when reached.
var panicMacros = map[string]bool{
	"panic":         true,
	"unreachable":   true,
	"todo":          true,
	"unimplemented": true,
}

func (p *Parser) parseMacroCall(start source.Span, path string) ast.NodeID {
	p.expect(token.Bang, "`!`")
	if !p.atAny(token.LParen, token.LBracket, token.LBrace) {
		p.unexpected("macro delimiter")
	}
	name := ast.LastSegment(path)

	var args []ast.NodeID
	parsed := false
	if exprMacros[name] {
		parsed = p.try(func() { args = p.parseMacroArgs(name == "vec") })
	}
	if !parsed {
		args = nil
		p.skipDelimited()
	}
	id := p.b.New(ast.KindMacroCall, p.spanFrom(start), path, args...)
	if !parsed {
		p.b.SetFlags(id, ast.FlagOpaque)
	}
	if panicMacros[name] {
		p.b.SetFlags(id, ast.FlagPanicCapable)
	}
	return id
}

// parseMacroArgs parses `(a, b, name = c)`; with repeat it also accepts
// the `[value; count]` form.
func (p *Parser) parseMacroArgs(repeat bool) []ast.NodeID {
	open := p.advance()
	closer := map[token.Kind]token.Kind{
		token.LParen:   token.RParen,
		token.LBracket: token.RBracket,
		token.LBrace:   token.RBrace,
	}[open.Kind]

	var args []ast.NodeID
	p.withRestrictions(restrictions{}, func() {
		for !p.at(closer) {
			args = append(args, p.parseExpr())
			if repeat && len(args) == 1 && p.eat(token.Semicolon) {
				args = append(args, p.parseExpr())
				break
			}
			if !p.eat(token.Comma) {
				break
			}
		}
	})
	p.expect(closer, "`"+closer.String()+"` to close macro arguments")
	return args
}
