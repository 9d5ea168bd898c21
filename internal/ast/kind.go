package ast

// Kind is the closed set of node variants. Rules declare the kinds they
// inspect; the engine routes by this value only.
type Kind uint8

const (
	KindInvalid Kind = iota

	// items
	KindFile      // children: items
	KindFn        // Text: name; children: Attr*, Param*, Type (return)?, Block?
	KindMod       // Text: name; children: Attr*, items
	KindImpl      // Text: header source; children: Attr*, items
	KindTrait     // Text: name; children: Attr*, items
	KindStruct    // Text: name
	KindEnum      // Text: name
	KindUse       // Text: use tree source
	KindStatic    // const or static; Text: name; children: Type?, init?
	KindTypeAlias // Text: name
	KindAttr      // Text: attribute source without #[ ]
	KindParam     // children: Pattern, Type?
	KindType      // Text: type source

	// statements
	KindLet      // children: Pattern, Type?, init?, Block (else, FlagLetElse)?
	KindExprStmt // children: expr; FlagSemi when terminated by ';'

	// block-like expressions
	KindBlock       // children: statements and items
	KindUnsafeBlock // children: statements
	KindAsyncBlock  // children: statements; FlagMove
	KindClosure     // children: Param*, body; FlagMove, FlagAsync

	// calls
	KindCall       // children: callee, args...
	KindSpawnCall  // call whose callee path ends in spawn/spawn_blocking/spawn_local
	KindMethodCall // Text: method; children: receiver, args...
	KindMacroCall  // Text: macro path; children: parsed args unless FlagOpaque

	// expressions
	KindPath      // Text: path without generic arguments (std::mem::transmute)
	KindLiteral   // Text: literal source
	KindField     // Text: field name or tuple index; children: receiver
	KindIndex     // children: base, index
	KindAwait     // children: operand
	KindTry       // children: operand (the `?` operator)
	KindUnary     // Text: operator (! - * & &mut); children: operand
	KindBinary    // Text: operator; children: lhs, rhs
	KindAssign    // Text: operator (= += ...); children: lhs, rhs
	KindCast      // children: expr, Type
	KindRange     // children: start?, end?
	KindParen     // children: inner
	KindTuple     // children: elements
	KindArray     // children: elements (or value, count)
	KindStructLit // Text: path; children: FieldInit*, base?
	KindFieldInit // Text: field name; children: value
	KindIf        // children: cond (expr or LetCond), then Block, else (Block or If)?
	KindLetCond   // if let / while let; children: Pattern, scrutinee
	KindMatch     // children: scrutinee, MatchArm*
	KindMatchArm  // children: Pattern, guard (FlagGuard)?, body
	KindWhile     // children: cond, Block
	KindLoop      // children: Block
	KindFor       // children: Pattern, iter, Block
	KindReturn    // children: value?
	KindBreak     // children: value?
	KindContinue
	KindPattern // Text: pattern source

	kindSentinel
)

var kindNames = [...]string{
	KindInvalid: "Invalid", KindFile: "File", KindFn: "Fn", KindMod: "Mod", KindImpl: "Impl",
	KindTrait: "Trait", KindStruct: "Struct", KindEnum: "Enum", KindUse: "Use", KindStatic: "Static",
	KindTypeAlias: "TypeAlias", KindAttr: "Attr", KindParam: "Param", KindType: "Type",
	KindLet: "Let", KindExprStmt: "ExprStmt", KindBlock: "Block", KindUnsafeBlock: "UnsafeBlock",
	KindAsyncBlock: "AsyncBlock", KindClosure: "Closure", KindCall: "Call", KindSpawnCall: "SpawnCall",
	KindMethodCall: "MethodCall", KindMacroCall: "MacroCall", KindPath: "Path", KindLiteral: "Literal",
	KindField: "Field", KindIndex: "Index", KindAwait: "Await", KindTry: "Try", KindUnary: "Unary",
	KindBinary: "Binary", KindAssign: "Assign", KindCast: "Cast", KindRange: "Range", KindParen: "Paren",
	KindTuple: "Tuple", KindArray: "Array", KindStructLit: "StructLit", KindFieldInit: "FieldInit",
	KindIf: "If", KindLetCond: "LetCond", KindMatch: "Match", KindMatchArm: "MatchArm",
	KindWhile: "While", KindLoop: "Loop", KindFor: "For", KindReturn: "Return", KindBreak: "Break",
	KindContinue: "Continue", KindPattern: "Pattern",
}

func (k Kind) String() string {
	if k < kindSentinel {
		return kindNames[k]
	}
	return "Kind(?)"
}

// NumKinds is the size of the kind space; valid kinds are below it.
const NumKinds = int(kindSentinel)

// Valid reports whether k names a real node variant.
func (k Kind) Valid() bool {
	return k > KindInvalid && k < kindSentinel
}

// IsCallLike reports calls of every flavour.
func (k Kind) IsCallLike() bool {
	return k == KindCall || k == KindSpawnCall || k == KindMethodCall || k == KindMacroCall
}

// IsBlockLike reports nodes whose children are statements.
func (k Kind) IsBlockLike() bool {
	return k == KindBlock || k == KindUnsafeBlock || k == KindAsyncBlock
}

// IsItem reports top-level declaration kinds.
func (k Kind) IsItem() bool {
	return k >= KindFn && k <= KindTypeAlias
}
