package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateRule is wrapped by a ConfigurationError for a repeated id.
	ErrDuplicateRule = errors.New("duplicate rule id")
	// ErrInvalidRule is wrapped by a ConfigurationError for a malformed rule.
	ErrInvalidRule = errors.New("invalid rule")
	// ErrUnknownRule is returned when a filter names a rule that does not exist.
	ErrUnknownRule = errors.New("unknown rule id")
)

// ConfigurationError rejects a rule set before any analysis runs.
type ConfigurationError struct {
	RuleID string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("rule configuration: %s: %s", e.Err, e.Reason)
	}
	return fmt.Sprintf("rule configuration: %s %q: %s", e.Err, e.RuleID, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
