// Package engine walks a syntax tree once, dispatches each node to the
// rules that declared its kind and classifies the unit from the findings.
//
// Rules run in isolation: a panicking matcher is recovered, its partial
// findings from that invocation are dropped and the rule is disabled for
// the rest of the unit. A node-visit budget bounds the traversal; a unit
// that exhausts it is reported as truncated with the findings gathered so
// far.
package engine
