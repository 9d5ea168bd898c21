package rules

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/ast"
)

var ruleIDPattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// RuleSet is an immutable, validated collection of rules. It is safe for
// concurrent use without synchronisation.
type RuleSet struct {
	rules  []*Rule
	byID   map[string]*Rule
	byKind [ast.NumKinds][]*Rule
	digest uint64
}

// NewRuleSet validates rules and builds the per-kind index. Any invalid or
// duplicate rule rejects the whole set.
func NewRuleSet(rules ...Rule) (*RuleSet, error) {
	set := &RuleSet{
		rules: make([]*Rule, 0, len(rules)),
		byID:  make(map[string]*Rule, len(rules)),
	}
	for i := range rules {
		r := rules[i]
		if err := validate(&r); err != nil {
			return nil, err
		}
		if _, dup := set.byID[r.ID]; dup {
			return nil, &ConfigurationError{RuleID: r.ID, Reason: "registered more than once", Err: ErrDuplicateRule}
		}
		r.Kinds = slices.Clone(r.Kinds)
		set.rules = append(set.rules, &r)
		set.byID[r.ID] = &r
	}
	slices.SortFunc(set.rules, func(a, b *Rule) int { return strings.Compare(a.ID, b.ID) })

	h := xxhash.New()
	for _, r := range set.rules {
		for _, k := range dedupKinds(r.Kinds) {
			set.byKind[k] = append(set.byKind[k], r)
		}
		_, _ = h.WriteString(r.ID)
		_, _ = h.WriteString(":" + r.Severity.String() + ";")
	}
	set.digest = h.Sum64()
	return set, nil
}

func validate(r *Rule) error {
	invalid := func(reason string) error {
		return &ConfigurationError{RuleID: r.ID, Reason: reason, Err: ErrInvalidRule}
	}
	switch {
	case r.ID == "":
		return invalid("empty id")
	case !ruleIDPattern.MatchString(r.ID):
		return invalid("id must be lower-case kebab-case")
	case !r.Severity.Valid():
		return invalid("severity must be info, warning or critical")
	case len(r.Kinds) == 0:
		return invalid("no node kinds declared")
	case r.Match == nil:
		return invalid("nil match function")
	}
	for _, k := range r.Kinds {
		if !k.Valid() {
			return invalid(fmt.Sprintf("invalid node kind %d", k))
		}
	}
	return nil
}

func dedupKinds(kinds []ast.Kind) []ast.Kind {
	out := slices.Clone(kinds)
	slices.Sort(out)
	return slices.Compact(out)
}

// ForKind returns the rules that inspect kind, ordered by id. The slice
// must not be modified.
func (s *RuleSet) ForKind(kind ast.Kind) []*Rule {
	if !kind.Valid() {
		return nil
	}
	return s.byKind[kind]
}

// Rules returns copies of the rules ordered by id.
func (s *RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	for i, r := range s.rules {
		out[i] = *r
		out[i].Kinds = slices.Clone(r.Kinds)
	}
	return out
}

func (s *RuleSet) IDs() []string {
	out := make([]string, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.ID
	}
	return out
}

func (s *RuleSet) Len() int { return len(s.rules) }

func (s *RuleSet) Lookup(id string) (Rule, bool) {
	r, ok := s.byID[id]
	if !ok {
		return Rule{}, false
	}
	return *r, true
}

// Select returns a new set restricted to ids. Unknown ids are a
// configuration error.
func (s *RuleSet) Select(ids ...string) (*RuleSet, error) {
	picked := make([]Rule, 0, len(ids))
	for _, id := range ids {
		r, ok := s.byID[id]
		if !ok {
			return nil, &ConfigurationError{RuleID: id, Reason: "not in catalog", Err: ErrUnknownRule}
		}
		picked = append(picked, *r)
	}
	return NewRuleSet(picked...)
}

// Without returns a new set minus ids. Unknown ids are a configuration
// error.
func (s *RuleSet) Without(ids ...string) (*RuleSet, error) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.byID[id]; !ok {
			return nil, &ConfigurationError{RuleID: id, Reason: "not in catalog", Err: ErrUnknownRule}
		}
		drop[id] = true
	}
	kept := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if !drop[r.ID] {
			kept = append(kept, *r)
		}
	}
	return NewRuleSet(kept...)
}

// Fingerprint identifies the rule ids and severities in the set. Cached
// results are only valid for an equal fingerprint.
func (s *RuleSet) Fingerprint() string {
	return strconv.FormatUint(s.digest, 16)
}
