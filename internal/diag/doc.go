// Package diag defines the internal diagnostic model shared by the lexer,
// parser, engine and driver.
//
// # Purpose
//
// Diagnostics describe what happened to the *tool* while it looked at a unit:
// a file that failed to parse, a rule whose matcher faulted, a traversal that
// ran out of budget, a suppression comment that never matched. They are kept
// strictly apart from findings (package rules), which describe defects in the
// analysed code. A unit can be Clean and still carry diagnostics.
//
// # Data model
//
//   - Severity – tri-level enum (Info, Warning, Error).
//   - Code – numeric identifier grouped by producer (LEX, PRS, ENG, IO, CFG)
//     with a stable string form used in reports and golden files.
//   - Message – short human text.
//   - Primary – the source.Span the diagnostic points at; may be empty when
//     the whole unit is concerned.
//   - Notes – optional secondary spans.
//
// # Emitting diagnostics
//
// Producers talk to a Reporter. BagReporter collects into a Bag, which
// supports deterministic sorting, deduplication and merging. Package diag does
// no formatting beyond the single-line short form; rendering lives in
// internal/report.
package diag
