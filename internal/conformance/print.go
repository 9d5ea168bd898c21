package conformance

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Write prints one line per fixture and case, failures with their
// details, and a closing tally.
func Write(w io.Writer, res *Result, useColor bool) error {
	pass := color.New(color.FgGreen, color.Bold)
	fail := color.New(color.FgRed, color.Bold)
	for _, c := range []*color.Color{pass, fail} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	failed := 0
	for _, o := range res.Fixtures {
		label := pass.Sprint("[PASS]")
		if !o.Passed {
			label = fail.Sprint("[FAIL]")
			failed++
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", label, o); err != nil {
			return err
		}
	}
	for _, c := range res.Cases {
		label := pass.Sprint("[PASS]")
		if !c.Passed() {
			label = fail.Sprint("[FAIL]")
			failed++
		}
		if _, err := fmt.Fprintf(w, "%s case %s (%.2fs)\n", label, c.ID, c.Duration.Seconds()); err != nil {
			return err
		}
		for _, e := range c.Errors {
			if _, err := fmt.Fprintf(w, "    - %s\n", e); err != nil {
				return err
			}
		}
	}
	total := len(res.Fixtures) + len(res.Cases)
	_, err := fmt.Fprintf(w, "%d/%d passed\n", total-failed, total)
	return err
}
