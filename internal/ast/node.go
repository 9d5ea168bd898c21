package ast

import "github.com/shaneholloman/ultimate-bug-scanner/internal/source"

// Flags carries per-node facts the parser already knows.
type Flags uint16

const (
	FlagSemi         Flags = 1 << iota // expression statement ends with ';'
	FlagMove                           // move closure / async move block
	FlagAsync                          // async fn / async closure
	FlagUnsafe                         // unsafe fn
	FlagPanicCapable                   // may panic when evaluated (panic!, unwrap, expect, ...)
	FlagOpaque                         // macro arguments were not parsed
	FlagLetElse                        // else block of let-else
	FlagGuard                          // match arm guard expression
	FlagTest                           // fn or mod marked #[test] / #[cfg(test)]
	FlagMut                            // let mut, &mut
)

func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// Node is one element of the arena. Children are ordered and owned by the
// tree; Parent is an index, never a pointer.
type Node struct {
	Kind     Kind
	Flags    Flags
	Span     source.Span
	Parent   NodeID
	Children []NodeID
	Text     string
}
