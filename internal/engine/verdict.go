package engine

import (
	"fmt"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
)

// Verdict is the per-unit aggregate derived from finding severities.
type Verdict uint8

const (
	// VerdictClean means no findings or informational findings only.
	VerdictClean Verdict = iota
	// VerdictFlagged means at least one warning and no critical finding.
	VerdictFlagged
	// VerdictDefective means at least one critical finding.
	VerdictDefective
)

func (v Verdict) String() string {
	switch v {
	case VerdictClean:
		return "clean"
	case VerdictFlagged:
		return "flagged"
	case VerdictDefective:
		return "defective"
	}
	return fmt.Sprintf("verdict(%d)", uint8(v))
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	switch string(text) {
	case "clean":
		*v = VerdictClean
	case "flagged":
		*v = VerdictFlagged
	case "defective":
		*v = VerdictDefective
	default:
		return fmt.Errorf("unknown verdict %q", text)
	}
	return nil
}

// Classify maps the highest severity present to a verdict.
func Classify(findings []rules.Finding) Verdict {
	var top rules.Severity
	for _, f := range findings {
		top = max(top, f.Severity)
	}
	switch top {
	case rules.SeverityCritical:
		return VerdictDefective
	case rules.SeverityWarning:
		return VerdictFlagged
	}
	return VerdictClean
}

// Totals counts findings per severity.
type Totals struct {
	Critical int `json:"critical" yaml:"critical" msgpack:"critical"`
	Warning  int `json:"warning" yaml:"warning" msgpack:"warning"`
	Info     int `json:"info" yaml:"info" msgpack:"info"`
}

// Count tallies findings by severity.
func Count(findings []rules.Finding) Totals {
	var t Totals
	for _, f := range findings {
		t.add(f.Severity, 1)
	}
	return t
}

func (t *Totals) add(sev rules.Severity, n int) {
	switch sev {
	case rules.SeverityCritical:
		t.Critical += n
	case rules.SeverityWarning:
		t.Warning += n
	case rules.SeverityInfo:
		t.Info += n
	}
}

// Add returns the element-wise sum.
func (t Totals) Add(o Totals) Totals {
	return Totals{Critical: t.Critical + o.Critical, Warning: t.Warning + o.Warning, Info: t.Info + o.Info}
}

// Sub returns the element-wise difference t - o.
func (t Totals) Sub(o Totals) Totals {
	return Totals{Critical: t.Critical - o.Critical, Warning: t.Warning - o.Warning, Info: t.Info - o.Info}
}

func (t Totals) Total() int { return t.Critical + t.Warning + t.Info }

// ByRule groups findings by rule id, keeping their order.
func ByRule(findings []rules.Finding) map[string][]rules.Finding {
	out := make(map[string][]rules.Finding)
	for _, f := range findings {
		out[f.RuleID] = append(out[f.RuleID], f)
	}
	return out
}
