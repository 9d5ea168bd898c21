package rules_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
)

func noop(*rules.Context, ast.NodeID) {}

func stub(id string, kinds ...ast.Kind) rules.Rule {
	return rules.Rule{ID: id, Severity: rules.SeverityWarning, Kinds: kinds, Match: noop}
}

func TestNewRuleSetRejectsDuplicates(t *testing.T) {
	set, err := rules.NewRuleSet(stub("a", ast.KindCall), stub("b", ast.KindCall), stub("a", ast.KindLet))
	if set != nil {
		t.Fatalf("want nil set, got %d rules", set.Len())
	}
	var cfg *rules.ConfigurationError
	if !errors.As(err, &cfg) {
		t.Fatalf("want ConfigurationError, got %T %v", err, err)
	}
	if !errors.Is(err, rules.ErrDuplicateRule) || cfg.RuleID != "a" {
		t.Fatalf("want duplicate of %q, got %v", "a", err)
	}
}

func TestNewRuleSetValidates(t *testing.T) {
	tests := []struct {
		name string
		rule rules.Rule
	}{
		{"empty id", stub("", ast.KindCall)},
		{"upper case id", stub("Unwrap", ast.KindCall)},
		{"trailing dash", stub("unwrap-", ast.KindCall)},
		{"no kinds", stub("x")},
		{"invalid kind", stub("x", ast.KindInvalid)},
		{"nil match", rules.Rule{ID: "x", Severity: rules.SeverityInfo, Kinds: []ast.Kind{ast.KindCall}}},
		{"zero severity", rules.Rule{ID: "x", Kinds: []ast.Kind{ast.KindCall}, Match: noop}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := rules.NewRuleSet(tt.rule)
			if set != nil || !errors.Is(err, rules.ErrInvalidRule) {
				t.Fatalf("want ErrInvalidRule, got set=%v err=%v", set, err)
			}
		})
	}
}

func TestRuleSetIndexesByKind(t *testing.T) {
	set, err := rules.NewRuleSet(
		stub("zeta", ast.KindCall, ast.KindMethodCall, ast.KindCall),
		stub("alpha", ast.KindMethodCall),
	)
	if err != nil {
		t.Fatal(err)
	}
	ids := func(rs []*rules.Rule) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}
	if got := ids(set.ForKind(ast.KindMethodCall)); !slices.Equal(got, []string{"alpha", "zeta"}) {
		t.Fatalf("MethodCall: want [alpha zeta], got %v", got)
	}
	if got := ids(set.ForKind(ast.KindCall)); !slices.Equal(got, []string{"zeta"}) {
		t.Fatalf("Call: want [zeta], got %v", got)
	}
	if got := set.ForKind(ast.KindLet); len(got) != 0 {
		t.Fatalf("Let: want none, got %v", ids(got))
	}
	if got := set.ForKind(ast.KindInvalid); got != nil {
		t.Fatalf("invalid kind: want nil, got %v", ids(got))
	}
}

func TestRuleSetIsIsolatedFromCaller(t *testing.T) {
	in := []rules.Rule{stub("a", ast.KindCall)}
	set, err := rules.NewRuleSet(in...)
	if err != nil {
		t.Fatal(err)
	}
	in[0].Kinds[0] = ast.KindLet
	if len(set.ForKind(ast.KindCall)) != 1 {
		t.Fatal("mutating the input changed the set")
	}
	out := set.Rules()
	out[0].Kinds[0] = ast.KindLet
	if r, _ := set.Lookup("a"); r.Kinds[0] != ast.KindCall {
		t.Fatal("mutating Rules() changed the set")
	}
}

func TestCatalog(t *testing.T) {
	set := defaultSet(t)
	want := []string{
		"fire-and-forget-spawn",
		"lock-poison-on-panic",
		"silent-background-error",
		"unbounded-blocking-wait",
		"unsafe-reinterpret",
		"unwrap-panic",
	}
	if got := set.IDs(); !slices.Equal(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	severities := map[string]rules.Severity{
		"unwrap-panic":            rules.SeverityWarning,
		"lock-poison-on-panic":    rules.SeverityCritical,
		"unsafe-reinterpret":      rules.SeverityCritical,
		"fire-and-forget-spawn":   rules.SeverityWarning,
		"silent-background-error": rules.SeverityWarning,
		"unbounded-blocking-wait": rules.SeverityInfo,
	}
	for id, sev := range severities {
		r, ok := set.Lookup(id)
		if !ok || r.Severity != sev {
			t.Fatalf("%s: want %s, got %s (found=%v)", id, sev, r.Severity, ok)
		}
		if r.Description == "" {
			t.Fatalf("%s: empty description", id)
		}
	}
	a, b := rules.Catalog(), rules.Catalog()
	a[0].Kinds[0] = ast.KindLet
	if b[0].Kinds[0] == ast.KindLet {
		t.Fatal("Catalog shares rule values between calls")
	}
}

func TestSelectAndWithout(t *testing.T) {
	set := defaultSet(t)
	sub, err := set.Select("unwrap-panic", "unsafe-reinterpret")
	if err != nil {
		t.Fatal(err)
	}
	if got := sub.IDs(); !slices.Equal(got, []string{"unsafe-reinterpret", "unwrap-panic"}) {
		t.Fatalf("Select: got %v", got)
	}
	rest, err := set.Without("unwrap-panic")
	if err != nil {
		t.Fatal(err)
	}
	if rest.Len() != set.Len()-1 {
		t.Fatalf("Without: want %d rules, got %d", set.Len()-1, rest.Len())
	}
	if _, ok := rest.Lookup("unwrap-panic"); ok {
		t.Fatal("Without kept unwrap-panic")
	}
	if _, err := set.Select("no-such-rule"); !errors.Is(err, rules.ErrUnknownRule) {
		t.Fatalf("Select unknown: want ErrUnknownRule, got %v", err)
	}
	if _, err := set.Without("no-such-rule"); !errors.Is(err, rules.ErrUnknownRule) {
		t.Fatalf("Without unknown: want ErrUnknownRule, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	a := defaultSet(t)
	b := defaultSet(t)
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("equal sets: %s != %s", a.Fingerprint(), b.Fingerprint())
	}
	sub, err := a.Without("unwrap-panic")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Fingerprint() == a.Fingerprint() {
		t.Fatal("different sets share a fingerprint")
	}
	rs := rules.Catalog()
	slices.Reverse(rs)
	rev, err := rules.NewRuleSet(rs...)
	if err != nil {
		t.Fatal(err)
	}
	if rev.Fingerprint() != a.Fingerprint() {
		t.Fatal("fingerprint depends on registration order")
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want rules.Severity
		ok   bool
	}{
		{"info", rules.SeverityInfo, true},
		{"WARNING", rules.SeverityWarning, true},
		{"warn", rules.SeverityWarning, true},
		{"critical", rules.SeverityCritical, true},
		{"fatal", 0, false},
	}
	for _, tt := range tests {
		got, err := rules.ParseSeverity(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Fatalf("ParseSeverity(%q): want %v ok=%v, got %v err=%v", tt.in, tt.want, tt.ok, got, err)
		}
	}
	if !(rules.SeverityCritical > rules.SeverityWarning && rules.SeverityWarning > rules.SeverityInfo) {
		t.Fatal("severity order")
	}
}
