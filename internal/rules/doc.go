// Package rules defines defect detectors over the syntax tree and the
// immutable RuleSet that indexes them by node kind.
//
// A Rule is a value: an identifier, a default severity, the node kinds it
// inspects and a Match function. Match reads the tree through a Context and
// reports findings; it never mutates the tree and keeps no state outside the
// Context, so one RuleSet can be shared by any number of concurrent units.
package rules
