package report

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExitExpectation is "zero" or "nonzero".
type ExitExpectation string

const (
	ExitAny     ExitExpectation = ""
	ExitZero    ExitExpectation = "zero"
	ExitNonZero ExitExpectation = "nonzero"
)

// Bounds limits one severity total. Nil bounds are unchecked.
type Bounds struct {
	Min *int `yaml:"min,omitempty"`
	Max *int `yaml:"max,omitempty"`
}

// Expectation describes what a run over a case must produce.
type Expectation struct {
	ExitCode         ExitExpectation   `yaml:"exit_code,omitempty"`
	Totals           map[string]Bounds `yaml:"totals,omitempty"`
	RequireSubstring []string          `yaml:"require_substrings,omitempty"`
	ForbidSubstring  []string          `yaml:"forbid_substrings,omitempty"`
}

// ParseExpectation decodes a YAML expectation and rejects unknown fields.
func ParseExpectation(r io.Reader) (*Expectation, error) {
	var exp Expectation
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&exp); err != nil {
		return nil, fmt.Errorf("decode expectation: %w", err)
	}
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return &exp, nil
}

// Validate checks field values.
func (e *Expectation) Validate() error {
	switch e.ExitCode {
	case ExitAny, ExitZero, ExitNonZero:
	default:
		return fmt.Errorf("exit_code: want %q or %q, got %q", ExitZero, ExitNonZero, e.ExitCode)
	}
	for sev, b := range e.Totals {
		switch sev {
		case "critical", "warning", "info":
		default:
			return fmt.Errorf("totals: unknown severity %q", sev)
		}
		if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
			return fmt.Errorf("totals.%s: min %d above max %d", sev, *b.Min, *b.Max)
		}
	}
	return nil
}

// Check returns one message per unmet expectation. The exit code is
// derived from the document under policy; output is the rendered text
// report the substring checks run against.
func (e *Expectation) Check(doc *Document, policy Policy, output string) []string {
	var errs []string
	exit := doc.ExitCode(policy)
	switch e.ExitCode {
	case ExitZero:
		if exit != 0 {
			errs = append(errs, fmt.Sprintf("expected exit 0 but derived %d", exit))
		}
	case ExitNonZero:
		if exit == 0 {
			errs = append(errs, "expected non-zero exit but derived 0")
		}
	}
	observed := map[string]int{
		"critical": doc.Totals.Critical,
		"warning":  doc.Totals.Warning,
		"info":     doc.Totals.Info,
	}
	for _, sev := range []string{"critical", "warning", "info"} {
		b, ok := e.Totals[sev]
		if !ok {
			continue
		}
		n := observed[sev]
		if b.Min != nil && n < *b.Min {
			errs = append(errs, fmt.Sprintf("%s total %d below min %d", sev, n, *b.Min))
		}
		if b.Max != nil && n > *b.Max {
			errs = append(errs, fmt.Sprintf("%s total %d above max %d", sev, n, *b.Max))
		}
	}
	for _, s := range e.RequireSubstring {
		if !strings.Contains(output, s) {
			errs = append(errs, fmt.Sprintf("missing substring %q in output", s))
		}
	}
	for _, s := range e.ForbidSubstring {
		if strings.Contains(output, s) {
			errs = append(errs, fmt.Sprintf("forbidden substring %q present in output", s))
		}
	}
	return errs
}
