package parser

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

// panicMethods may panic on the error or None variant.
var panicMethods = map[string]bool{
	"unwrap":     true,
	"expect":     true,
	"unwrap_err": true,
	"expect_err": true,
}

// spawnNames are the final path segments that start a task or thread.
var spawnNames = map[string]bool{
	"spawn":          true,
	"spawn_blocking": true,
	"spawn_local":    true,
}

func (p *Parser) parsePostfix(expr ast.NodeID, start source.Span) ast.NodeID {
	for {
		switch p.peek().Kind {
		case token.Question:
			p.advance()
			expr = p.b.New(ast.KindTry, p.spanFrom(start), "?", expr)
		case token.Dot:
			expr = p.parseDotSuffix(expr, start)
		case token.LParen:
			args := p.parseCallArgs()
			kind := ast.KindCall
			if n := p.b.Node(expr); n.Kind == ast.KindPath && spawnNames[ast.LastSegment(n.Text)] {
				kind = ast.KindSpawnCall
			}
			expr = p.b.New(kind, p.spanFrom(start), "", append([]ast.NodeID{expr}, args...)...)
		case token.LBracket:
			p.advance()
			var index ast.NodeID
			p.withRestrictions(restrictions{}, func() { index = p.parseExpr() })
			p.expect(token.RBracket, "`]` to close index")
			expr = p.b.New(ast.KindIndex, p.spanFrom(start), "", expr, index)
		default:
			return expr
		}
	}
}

func (p *Parser) parseDotSuffix(recv ast.NodeID, start source.Span) ast.NodeID {
	p.advance()
	switch tok := p.peek(); tok.Kind {
	case token.KwAwait:
		p.advance()
		return p.b.New(ast.KindAwait, p.spanFrom(start), "await", recv)
	case token.IntLit:
		p.advance()
		return p.b.New(ast.KindField, p.spanFrom(start), tok.Text, recv)
	case token.Ident:
		p.advance()
		if p.at(token.ColonColon) && (p.peekAt(1).Kind == token.Lt || p.peekAt(1).Kind == token.Shl) {
			p.advance()
			p.skipGenerics()
		}
		if !p.at(token.LParen) {
			return p.b.New(ast.KindField, p.spanFrom(start), tok.Text, recv)
		}
		args := p.parseCallArgs()
		id := p.b.New(ast.KindMethodCall, p.spanFrom(start), tok.Text, append([]ast.NodeID{recv}, args...)...)
		if panicMethods[tok.Text] {
			p.b.SetFlags(id, ast.FlagPanicCapable)
		}
		return id
	}
	p.unexpected("field, method or `await` after `.`")
	return ast.NoNodeID
}

func (p *Parser) parseCallArgs() []ast.NodeID {
	p.expect(token.LParen, "`(`")
	var args []ast.NodeID
	p.withRestrictions(restrictions{}, func() {
		for !p.at(token.RParen) {
			args = append(args, p.parseExpr())
			if !p.eat(token.Comma) {
				break
			}
		}
	})
	p.expect(token.RParen, "`)` to close argument list")
	return args
}
