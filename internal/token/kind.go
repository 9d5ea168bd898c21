package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	// Ident represents an identifier token, including raw identifiers (r#type).
	Ident
	// Lifetime represents a lifetime or loop label ('a, 'static).
	Lifetime

	// IntLit represents an integer literal, suffix included (5u32).
	IntLit
	// FloatLit represents a floating point literal.
	FloatLit
	// StringLit represents a string, byte string or raw string literal.
	StringLit
	// CharLit represents a char or byte literal.
	CharLit

	// keywords
	KwAs       // as
	KwAsync    // async
	KwAwait    // await
	KwBreak    // break
	KwConst    // const
	KwContinue // continue
	KwCrate    // crate
	KwDyn      // dyn
	KwElse     // else
	KwEnum     // enum
	KwExtern   // extern
	KwFalse    // false
	KwFn       // fn
	KwFor      // for
	KwIf       // if
	KwImpl     // impl
	KwIn       // in
	KwLet      // let
	KwLoop     // loop
	KwMatch    // match
	KwMod      // mod
	KwMove     // move
	KwMut      // mut
	KwPub      // pub
	KwRef      // ref
	KwReturn   // return
	KwSelfType // Self
	KwSelf     // self
	KwStatic   // static
	KwStruct   // struct
	KwSuper    // super
	KwTrait    // trait
	KwTrue     // true
	KwType     // type
	KwUnsafe   // unsafe
	KwUse      // use
	KwWhere    // where
	KwWhile    // while

	// operators and punctuation
	Plus         // +
	Minus        // -
	Star         // *
	Slash        // /
	Percent      // %
	Caret        // ^
	Bang         // !
	Amp          // &
	Pipe         // |
	AndAnd       // &&
	OrOr         // ||
	Shl          // <<
	Shr          // >>
	PlusEq       // +=
	MinusEq      // -=
	StarEq       // *=
	SlashEq      // /=
	PercentEq    // %=
	CaretEq      // ^=
	AmpEq        // &=
	PipeEq       // |=
	ShlEq        // <<=
	ShrEq        // >>=
	Assign       // =
	EqEq         // ==
	BangEq       // !=
	Lt           // <
	Gt           // >
	LtEq         // <=
	GtEq         // >=
	At           // @
	Underscore   // _
	Dot          // .
	DotDot       // ..
	DotDotDot    // ...
	DotDotEq     // ..=
	Comma        // ,
	Semicolon    // ;
	Colon        // :
	ColonColon   // ::
	Arrow        // ->
	FatArrow     // =>
	Pound        // #
	Dollar       // $
	Question     // ?
	Tilde        // ~
	LParen       // (
	RParen       // )
	LBracket     // [
	RBracket     // ]
	LBrace       // {
	RBrace       // }
	kindSentinel // keep last
)

var kindNames = [...]string{
	Invalid: "Invalid", EOF: "EOF", Ident: "Ident", Lifetime: "Lifetime",
	IntLit: "IntLit", FloatLit: "FloatLit", StringLit: "StringLit", CharLit: "CharLit",
	KwAs: "as", KwAsync: "async", KwAwait: "await", KwBreak: "break", KwConst: "const",
	KwContinue: "continue", KwCrate: "crate", KwDyn: "dyn", KwElse: "else", KwEnum: "enum",
	KwExtern: "extern", KwFalse: "false", KwFn: "fn", KwFor: "for", KwIf: "if", KwImpl: "impl",
	KwIn: "in", KwLet: "let", KwLoop: "loop", KwMatch: "match", KwMod: "mod", KwMove: "move",
	KwMut: "mut", KwPub: "pub", KwRef: "ref", KwReturn: "return", KwSelfType: "Self",
	KwSelf: "self", KwStatic: "static", KwStruct: "struct", KwSuper: "super", KwTrait: "trait",
	KwTrue: "true", KwType: "type", KwUnsafe: "unsafe", KwUse: "use", KwWhere: "where",
	KwWhile: "while",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%", Caret: "^", Bang: "!",
	Amp: "&", Pipe: "|", AndAnd: "&&", OrOr: "||", Shl: "<<", Shr: ">>",
	PlusEq: "+=", MinusEq: "-=", StarEq: "*=", SlashEq: "/=", PercentEq: "%=", CaretEq: "^=",
	AmpEq: "&=", PipeEq: "|=", ShlEq: "<<=", ShrEq: ">>=", Assign: "=", EqEq: "==",
	BangEq: "!=", Lt: "<", Gt: ">", LtEq: "<=", GtEq: ">=", At: "@", Underscore: "_",
	Dot: ".", DotDot: "..", DotDotDot: "...", DotDotEq: "..=", Comma: ",", Semicolon: ";",
	Colon: ":", ColonColon: "::", Arrow: "->", FatArrow: "=>", Pound: "#", Dollar: "$",
	Question: "?", Tilde: "~", LParen: "(", RParen: ")", LBracket: "[", RBracket: "]",
	LBrace: "{", RBrace: "}",
}

func (k Kind) String() string {
	if k < kindSentinel {
		return kindNames[k]
	}
	return "Kind(?)"
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool {
	return k >= KwAs && k <= KwWhile
}

// IsAssignOp reports whether k is `=` or a compound assignment.
func (k Kind) IsAssignOp() bool {
	return k == Assign || (k >= PlusEq && k <= ShrEq)
}
