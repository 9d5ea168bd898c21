// Package token defines lexical token kinds and trivia for the Rust subset
// the scanner understands.
// Invariants:
//   - Token.Text is the exact source text covered by Token.Span.
//   - Comments and whitespace never appear in the token stream; they ride
//     along as Leading trivia of the next significant token.
//   - Lifetimes ('a, 'static) are a single Lifetime token; char literals
//     ('x', '\n') are CharLit.
//   - `>>` is one Shr token; the parser splits it where generics close.
package token
