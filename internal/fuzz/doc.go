// Package fuzztests houses Go fuzz harnesses for the analysis pipeline
// (source -> lexer -> parser -> engine). They guard against panics and hangs
// on arbitrary input; correctness is covered by the package tests.
package fuzztests
