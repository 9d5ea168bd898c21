package rules

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
)

// UnboundedBlockingWait flags spawned work that waits on a long fixed
// sleep and then unconditionally extracts the awaited result.
func UnboundedBlockingWait() Rule {
	return Rule{
		ID:          "unbounded-blocking-wait",
		Description: "spawned work unwraps the result of a long fixed sleep without a timeout",
		Severity:    SeverityInfo,
		Kinds:       []ast.Kind{ast.KindMethodCall},
		Match:       matchBlockingWait,
	}
}

var durationUnits = map[string]time.Duration{
	"from_secs":     time.Second,
	"from_millis":   time.Millisecond,
	"from_micros":   time.Microsecond,
	"from_nanos":    time.Nanosecond,
	"from_secs_f64": time.Second,
	"from_secs_f32": time.Second,
}

func matchBlockingWait(ctx *Context, id ast.NodeID) {
	t := ctx.Tree
	if !t.IsMethod(id, "unwrap", "expect") {
		return
	}
	recv := t.StripParens(t.Receiver(id))
	if t.Kind(recv) != ast.KindAwait || !inSpawnedWork(t, id) {
		return
	}
	threshold := ctx.Settings.BlockingThreshold
	if threshold <= 0 {
		threshold = DefaultSettings().BlockingThreshold
	}
	sleepers := ctx.Memo("sleepers", func() any { return sleepingFns(t, threshold) }).(map[string]time.Duration)

	awaited := t.StripParens(t.Child(recv, 0))
	if t.Kind(awaited) == ast.KindCall {
		name := ast.LastSegment(t.CalleePath(awaited))
		if d, ok := sleepers[name]; ok {
			ctx.Reportf(ctx.MethodSpan(id), "`%s()` sleeps for %s and its result is unwrapped inside spawned work without a timeout", name, d)
			return
		}
	}
	if d, ok := sleptBefore(t, id, threshold); ok {
		ctx.Reportf(ctx.MethodSpan(id), "spawned work sleeps for %s and then unwraps `%s` without a timeout", d, shorten(t.Text(recv)))
	}
}

// sleepingFns maps fn names to the longest fixed sleep they reach,
// directly or through same-file calls. Sleeps under threshold and sleeps
// inside timeout(...) do not count.
func sleepingFns(t *ast.Tree, threshold time.Duration) map[string]time.Duration {
	direct := make(map[string]time.Duration)
	calls := make(map[string][]string)
	for _, name := range t.FunctionNames() {
		for _, fn := range t.FunctionsNamed(name) {
			body := t.Body(fn)
			t.Inspect(body, func(nid ast.NodeID, n *ast.Node) bool {
				if n.Kind == ast.KindFn || n.Kind == ast.KindClosure {
					return false
				}
				if n.Kind != ast.KindCall {
					return true
				}
				callee := ast.LastSegment(t.CalleePath(nid))
				if callee == "timeout" {
					return false
				}
				if d, ok := sleepDuration(t, nid); ok && d >= threshold && d > direct[name] {
					direct[name] = d
				}
				if callee != "" {
					calls[name] = append(calls[name], callee)
				}
				return true
			})
		}
	}
	// close over callers until nothing changes
	for changed := true; changed; {
		changed = false
		for caller, callees := range calls {
			for _, callee := range callees {
				if d, ok := direct[callee]; ok && d > direct[caller] {
					direct[caller] = d
					changed = true
				}
			}
		}
	}
	return direct
}

// sleepDuration recognises `sleep(Duration::from_xxx(N))`.
func sleepDuration(t *ast.Tree, call ast.NodeID) (time.Duration, bool) {
	if ast.LastSegment(t.CalleePath(call)) != "sleep" {
		return 0, false
	}
	args := t.Args(call)
	if len(args) != 1 {
		return 0, false
	}
	return durationLiteral(t, t.StripParens(args[0]))
}

func durationLiteral(t *ast.Tree, expr ast.NodeID) (time.Duration, bool) {
	if t.Kind(expr) != ast.KindCall {
		return 0, false
	}
	unit, ok := durationUnits[ast.LastSegment(t.CalleePath(expr))]
	if !ok {
		return 0, false
	}
	args := t.Args(expr)
	if len(args) != 1 || t.Kind(args[0]) != ast.KindLiteral {
		return 0, false
	}
	v, ok := numericLiteral(t.Node(args[0]).Text)
	if !ok || v < 0 || v*float64(unit) > math.MaxInt64 {
		return 0, false
	}
	return time.Duration(v * float64(unit)), true
}

// numericLiteral parses Rust integer and float literals with separators
// and type suffixes.
func numericLiteral(text string) (float64, bool) {
	text = strings.ReplaceAll(text, "_", "")
	end := len(text)
	for i, r := range text {
		if (r < '0' || r > '9') && r != '.' && r != 'e' && r != 'E' {
			end = i
			break
		}
	}
	v, err := strconv.ParseFloat(text[:end], 64)
	return v, err == nil
}

// sleptBefore finds a long direct sleep in statements that precede id
// within the spawned work.
func sleptBefore(t *ast.Tree, id ast.NodeID, threshold time.Duration) (time.Duration, bool) {
	spawn := enclosingSpawn(t, id)
	child := id
	for p := range t.Ancestors(id) {
		if p == spawn {
			break
		}
		if t.Kind(p).IsBlockLike() {
			before, _ := t.Siblings(child)
			for _, s := range before {
				var found time.Duration
				t.Inspect(s, func(nid ast.NodeID, n *ast.Node) bool {
					if skipsNested(n.Kind) || (n.Kind == ast.KindCall && ast.LastSegment(t.CalleePath(nid)) == "timeout") {
						return false
					}
					if d, ok := sleepDuration(t, nid); ok && d >= threshold && d > found {
						found = d
					}
					return true
				})
				if found > 0 {
					return found, true
				}
			}
		}
		child = p
	}
	return 0, false
}
