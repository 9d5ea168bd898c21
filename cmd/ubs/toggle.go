package main

import (
	"fmt"
	"os"
	"strings"
)

// toggle is an auto|on|off flag value. Auto follows whether the output
// streams are terminals.
type toggle uint8

const (
	toggleAuto toggle = iota
	toggleOn
	toggleOff
)

func parseToggle(flag, value string) (toggle, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return toggleAuto, nil
	case "on":
		return toggleOn, nil
	case "off":
		return toggleOff, nil
	}
	return toggleAuto, fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
}

// enabled resolves auto to true only when every stream is a terminal.
func (t toggle) enabled(streams ...*os.File) bool {
	switch t {
	case toggleOn:
		return true
	case toggleOff:
		return false
	}
	for _, f := range streams {
		if !isTerminal(f) {
			return false
		}
	}
	return true
}
