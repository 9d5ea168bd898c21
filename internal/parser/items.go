package parser

import (
	"strings"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/token"
)

func (p *Parser) parseFile() ast.NodeID {
	start := p.peek().Span
	start.Start = 0
	items := p.parseInnerAttrs()
	for !p.at(token.EOF) {
		if p.eat(token.Semicolon) {
			continue
		}
		items = append(items, p.parseItem())
	}
	sp := start
	sp.End = uint32(len(p.file.Content)) // #nosec G115
	return p.b.New(ast.KindFile, sp, p.file.Path, items...)
}

// parseItem parses one item including its outer attributes.
func (p *Parser) parseItem() ast.NodeID {
	start := p.peek().Span
	attrs := p.parseOuterAttrs()
	return p.parseItemAfterAttrs(start, attrs)
}

func (p *Parser) parseItemAfterAttrs(start source.Span, attrs []ast.NodeID) ast.NodeID {
	p.skipVisibility()
	tok := p.peek()
	next := p.peekAt(1).Kind
	switch tok.Kind {
	case token.KwUse:
		return p.parseUse(start)
	case token.KwFn:
		return p.parseFn(start, attrs)
	case token.KwConst:
		if next == token.KwFn || next == token.KwAsync || next == token.KwUnsafe || next == token.KwExtern {
			return p.parseFn(start, attrs)
		}
		return p.parseStatic(start, attrs)
	case token.KwStatic:
		return p.parseStatic(start, attrs)
	case token.KwAsync:
		return p.parseFn(start, attrs)
	case token.KwUnsafe:
		switch next {
		case token.KwImpl:
			p.advance()
			return p.parseImpl(start, attrs)
		case token.KwTrait:
			p.advance()
			return p.parseTrait(start, attrs)
		case token.KwExtern:
			if p.peekAt(2).Kind == token.LBrace || (p.peekAt(2).Kind == token.StringLit && p.peekAt(3).Kind == token.LBrace) {
				p.advance()
				return p.parseExternBlock(start, attrs)
			}
		}
		return p.parseFn(start, attrs)
	case token.KwExtern:
		switch {
		case next == token.KwCrate:
			return p.parseUse(start)
		case next == token.LBrace || (next == token.StringLit && p.peekAt(2).Kind == token.LBrace):
			return p.parseExternBlock(start, attrs)
		}
		return p.parseFn(start, attrs)
	case token.KwMod:
		return p.parseMod(start, attrs)
	case token.KwStruct, token.KwEnum:
		return p.parseAdt(start, attrs)
	case token.KwTrait:
		return p.parseTrait(start, attrs)
	case token.KwImpl:
		return p.parseImpl(start, attrs)
	case token.KwType:
		return p.parseTypeAlias(start, attrs)
	case token.Ident:
		switch {
		case tok.Text == "union" && next == token.Ident:
			return p.parseAdt(start, attrs)
		case tok.Text == "auto" && next == token.KwTrait:
			p.advance()
			return p.parseTrait(start, attrs)
		case next == token.Bang || next == token.ColonColon:
			return p.parseItemMacro(start)
		}
	}
	p.fail(diag.PrsBadItem, "expected item, found "+describe(tok))
	return ast.NoNodeID
}

// isItemStart reports whether the cursor begins an item inside a block.
func (p *Parser) isItemStart() bool {
	next := p.peekAt(1).Kind
	switch p.peek().Kind {
	case token.KwFn, token.KwStruct, token.KwEnum, token.KwUse, token.KwMod,
		token.KwImpl, token.KwTrait, token.KwType, token.KwPub, token.KwExtern:
		return true
	case token.KwStatic:
		return next == token.Ident || next == token.KwMut
	case token.KwConst:
		switch next {
		case token.KwFn, token.KwUnsafe, token.KwAsync, token.KwExtern:
			return true
		case token.Ident, token.Underscore:
			return p.peekAt(2).Kind == token.Colon
		}
	case token.KwUnsafe:
		return next == token.KwFn || next == token.KwImpl || next == token.KwTrait || next == token.KwExtern
	case token.KwAsync:
		return next == token.KwFn || (next == token.KwUnsafe && p.peekAt(2).Kind == token.KwFn)
	case token.Ident:
		tok := p.peek()
		return (tok.Text == "macro_rules" && next == token.Bang) || (tok.Text == "union" && next == token.Ident)
	}
	return false
}

func (p *Parser) skipVisibility() {
	if p.at(token.KwCrate) && p.peekAt(1).Kind != token.ColonColon {
		p.advance()
		return
	}
	if !p.eat(token.KwPub) {
		return
	}
	if !p.at(token.LParen) {
		return
	}
	switch p.peekAt(1).Kind {
	case token.KwCrate, token.KwSuper, token.KwSelf, token.KwIn:
		p.skipDelimited()
	}
}

// parseOuterAttrs parses `#[...]` attributes.
func (p *Parser) parseOuterAttrs() []ast.NodeID {
	var out []ast.NodeID
	for p.at(token.Pound) && p.peekAt(1).Kind == token.LBracket {
		out = append(out, p.parseAttr())
	}
	return out
}

// parseInnerAttrs parses `#![...]` attributes at the top of a file, module
// or block.
func (p *Parser) parseInnerAttrs() []ast.NodeID {
	var out []ast.NodeID
	for p.at(token.Pound) && p.peekAt(1).Kind == token.Bang && p.peekAt(2).Kind == token.LBracket {
		out = append(out, p.parseAttr())
	}
	return out
}

func (p *Parser) parseAttr() ast.NodeID {
	start := p.advance().Span
	p.eat(token.Bang)
	open := p.peek().Span
	p.skipDelimited()
	inner := source.Span{File: open.File, Start: open.End, End: p.lastSpan.Start}
	return p.b.New(ast.KindAttr, p.spanFrom(start), strings.TrimSpace(p.source(inner)))
}

// isTestAttr recognises #[test], #[tokio::test], #[cfg(test)] and friends.
func isTestAttr(text string) bool {
	compact := strings.Join(strings.Fields(text), "")
	switch {
	case compact == "test", compact == "cfg(test)":
		return true
	case strings.HasSuffix(compact, "::test"), strings.Contains(compact, "::test("):
		return true
	}
	return false
}

func (p *Parser) markTest(id ast.NodeID, attrs []ast.NodeID) {
	for _, a := range attrs {
		if isTestAttr(p.b.Node(a).Text) {
			p.b.SetFlags(id, ast.FlagTest)
			return
		}
	}
}

func (p *Parser) parseUse(start source.Span) ast.NodeID {
	p.advance() // use or extern
	textStart := p.peek().Span
	for !p.at(token.Semicolon) {
		switch {
		case p.at(token.LBrace):
			p.skipDelimited()
		case p.at(token.EOF):
			p.unexpected("`;` after use declaration")
		default:
			p.advance()
		}
	}
	text := p.source(p.spanFrom(textStart))
	p.advance()
	return p.b.New(ast.KindUse, p.spanFrom(start), strings.TrimSpace(text))
}

func (p *Parser) parseFn(start source.Span, attrs []ast.NodeID) ast.NodeID {
	var flags ast.Flags
quals:
	for {
		switch {
		case p.eat(token.KwConst):
		case p.eat(token.KwAsync):
			flags |= ast.FlagAsync
		case p.eat(token.KwUnsafe):
			flags |= ast.FlagUnsafe
		case p.eat(token.KwExtern):
			p.eat(token.StringLit)
		default:
			break quals
		}
	}
	p.expect(token.KwFn, "`fn`")
	name := p.expectIdent("function name")
	if p.at(token.Lt) {
		p.skipGenerics()
	}
	children := append([]ast.NodeID(nil), attrs...)
	children = append(children, p.parseParams()...)
	if p.eat(token.Arrow) {
		children = append(children, p.parseType(true))
	}
	p.skipWhere()
	if !p.eat(token.Semicolon) {
		children = append(children, p.parseBlock(ast.KindBlock))
	}
	id := p.b.New(ast.KindFn, p.spanFrom(start), name.Text, children...)
	p.b.SetFlags(id, flags)
	p.markTest(id, attrs)
	return id
}

func (p *Parser) parseParams() []ast.NodeID {
	p.expect(token.LParen, "`(` to open parameter list")
	var params []ast.NodeID
	for !p.at(token.RParen) {
		p.parseOuterAttrs()
		start := p.peek().Span
		var pat ast.NodeID
		switch {
		case p.at(token.DotDotDot):
			p.advance()
			params = append(params, p.b.New(ast.KindParam, p.spanFrom(start), "..."))
			p.eat(token.Comma)
			continue
		case p.atSelfParam():
			p.eatAmp()
			p.eat(token.Lifetime)
			p.eat(token.KwMut)
			p.expect(token.KwSelf, "`self`")
			sp := p.spanFrom(start)
			pat = p.b.New(ast.KindPattern, sp, p.source(sp))
		default:
			pat = p.parsePattern(false)
		}
		var typ ast.NodeID
		if p.eat(token.Colon) {
			typ = p.parseType(true)
		}
		params = append(params, p.b.New(ast.KindParam, p.spanFrom(start), "", pat, typ))
		if !p.eat(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "`)` to close parameter list")
	return params
}

func (p *Parser) atSelfParam() bool {
	i := 0
	if k := p.peekAt(i).Kind; k == token.Amp {
		i++
		if p.peekAt(i).Kind == token.Lifetime {
			i++
		}
	}
	if p.peekAt(i).Kind == token.KwMut {
		i++
	}
	return p.peekAt(i).Kind == token.KwSelf && p.peekAt(i+1).Kind != token.ColonColon
}

func (p *Parser) parseMod(start source.Span, attrs []ast.NodeID) ast.NodeID {
	p.advance()
	name := p.expectIdent("module name")
	children := append([]ast.NodeID(nil), attrs...)
	if !p.eat(token.Semicolon) {
		p.expect(token.LBrace, "`{` or `;` after module name")
		inner := p.parseInnerAttrs()
		children = append(children, inner...)
		attrs = append(attrs, inner...)
		children = append(children, p.parseItemsUntilBrace()...)
	}
	id := p.b.New(ast.KindMod, p.spanFrom(start), name.Text, children...)
	p.markTest(id, attrs)
	return id
}

// parseItemsUntilBrace parses items up to and including the closing `}`.
func (p *Parser) parseItemsUntilBrace() []ast.NodeID {
	p.enter()
	defer p.leave()
	var items []ast.NodeID
	for !p.eat(token.RBrace) {
		if p.at(token.EOF) {
			p.fail(diag.PrsUnclosedDelim, "unclosed `{`")
		}
		if p.eat(token.Semicolon) {
			continue
		}
		items = append(items, p.parseItem())
	}
	return items
}

func (p *Parser) parseExternBlock(start source.Span, attrs []ast.NodeID) ast.NodeID {
	p.advance()
	p.eat(token.StringLit)
	p.expect(token.LBrace, "`{`")
	children := append([]ast.NodeID(nil), attrs...)
	children = append(children, p.parseInnerAttrs()...)
	children = append(children, p.parseItemsUntilBrace()...)
	return p.b.New(ast.KindMod, p.spanFrom(start), "extern", children...)
}

// parseAdt handles struct, enum and union declarations; their bodies are
// skipped.
func (p *Parser) parseAdt(start source.Span, attrs []ast.NodeID) ast.NodeID {
	kind := ast.KindStruct
	if p.at(token.KwEnum) {
		kind = ast.KindEnum
	}
	p.advance()
	name := p.expectIdent("type name")
	if p.at(token.Lt) {
		p.skipGenerics()
	}
	p.skipWhere()
	switch {
	case p.at(token.LBrace):
		p.skipDelimited()
	case p.at(token.LParen):
		p.skipDelimited()
		p.skipWhere()
		p.expect(token.Semicolon, "`;` after tuple struct")
	default:
		p.expect(token.Semicolon, "`;`, `{` or `(` after type name")
	}
	id := p.b.New(kind, p.spanFrom(start), name.Text, attrs...)
	p.markTest(id, attrs)
	return id
}

func (p *Parser) parseTrait(start source.Span, attrs []ast.NodeID) ast.NodeID {
	p.advance()
	name := p.expectIdent("trait name")
	if p.at(token.Lt) {
		p.skipGenerics()
	}
	if p.eat(token.Colon) && !p.atAny(token.KwWhere, token.LBrace) {
		p.skipBounds(true)
	}
	if p.eat(token.Assign) {
		p.skipBounds(true)
		p.skipWhere()
		p.expect(token.Semicolon, "`;` after trait alias")
		return p.b.New(ast.KindTrait, p.spanFrom(start), name.Text, attrs...)
	}
	p.skipWhere()
	p.expect(token.LBrace, "`{` to open trait body")
	children := append([]ast.NodeID(nil), attrs...)
	children = append(children, p.parseInnerAttrs()...)
	children = append(children, p.parseItemsUntilBrace()...)
	return p.b.New(ast.KindTrait, p.spanFrom(start), name.Text, children...)
}

func (p *Parser) parseImpl(start source.Span, attrs []ast.NodeID) ast.NodeID {
	header := p.advance().Span
	if p.at(token.Lt) {
		p.skipGenerics()
	}
	p.eat(token.KwConst)
	p.eat(token.Bang)
	p.skipType(false)
	if p.eat(token.KwFor) {
		p.skipType(false)
	}
	p.skipWhere()
	text := p.source(p.spanFrom(header))
	p.expect(token.LBrace, "`{` to open impl body")
	children := append([]ast.NodeID(nil), attrs...)
	children = append(children, p.parseInnerAttrs()...)
	children = append(children, p.parseItemsUntilBrace()...)
	return p.b.New(ast.KindImpl, p.spanFrom(start), strings.Join(strings.Fields(text), " "), children...)
}

func (p *Parser) parseTypeAlias(start source.Span, attrs []ast.NodeID) ast.NodeID {
	p.advance()
	name := p.expectIdent("type alias name")
	if p.at(token.Lt) {
		p.skipGenerics()
	}
	if p.eat(token.Colon) {
		p.skipBounds(true)
	}
	p.skipWhere()
	children := append([]ast.NodeID(nil), attrs...)
	if p.eat(token.Assign) {
		children = append(children, p.parseType(true))
	}
	p.skipWhere()
	p.expect(token.Semicolon, "`;` after type alias")
	return p.b.New(ast.KindTypeAlias, p.spanFrom(start), name.Text, children...)
}

// parseStatic handles const and static items.
func (p *Parser) parseStatic(start source.Span, attrs []ast.NodeID) ast.NodeID {
	p.advance()
	p.eat(token.KwMut)
	var name string
	if p.eat(token.Underscore) {
		name = "_"
	} else {
		name = p.expectIdent("item name").Text
	}
	children := append([]ast.NodeID(nil), attrs...)
	if p.eat(token.Colon) {
		children = append(children, p.parseType(true))
	}
	if p.eat(token.Assign) {
		p.withRestrictions(restrictions{}, func() {
			children = append(children, p.parseExpr())
		})
	}
	p.expect(token.Semicolon, "`;` after item")
	return p.b.New(ast.KindStatic, p.spanFrom(start), name, children...)
}

// parseItemMacro handles `macro_rules! name { ... }` and item-position
// invocations like `thread_local! { ... }`. Their bodies stay opaque.
func (p *Parser) parseItemMacro(start source.Span) ast.NodeID {
	path := p.parsePathText()
	p.expect(token.Bang, "`!` after macro path")
	p.eat(token.Ident)
	if !p.atAny(token.LParen, token.LBracket, token.LBrace) {
		p.unexpected("macro delimiter")
	}
	brace := p.at(token.LBrace)
	p.skipDelimited()
	if !brace {
		p.expect(token.Semicolon, "`;` after macro invocation")
	}
	id := p.b.New(ast.KindMacroCall, p.spanFrom(start), path)
	p.b.SetFlags(id, ast.FlagOpaque)
	return id
}

// parsePathText consumes a plain `a::b::c` path and returns its text.
func (p *Parser) parsePathText() string {
	var sb strings.Builder
	if p.eat(token.ColonColon) {
		sb.WriteString("::")
	}
	sb.WriteString(p.expectSegment().Text)
	for p.at(token.ColonColon) && p.peekAt(1).IsPathSegment() {
		p.advance()
		sb.WriteString("::")
		sb.WriteString(p.advance().Text)
	}
	return sb.String()
}
