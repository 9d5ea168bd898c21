package report

import (
	"fmt"
	"io"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
)

// Comparison is the difference between a baseline and a current report.
type Comparison struct {
	Baseline string        `json:"baseline,omitempty"`
	Delta    engine.Totals `json:"delta"`
	Added    []Record      `json:"added"`
	Removed  []Record      `json:"removed"`
}

// Regressed reports whether the current run has findings the baseline
// does not.
func (c *Comparison) Regressed() bool {
	return len(c.Added) > 0
}

// Diff matches findings by key. Keys that occur several times are matched
// by multiplicity, so a duplicated defect still shows up as added.
func Diff(baseline, current *Document) *Comparison {
	cmp := &Comparison{
		Delta:   current.Totals.Sub(baseline.Totals),
		Added:   []Record{},
		Removed: []Record{},
	}
	remaining := make(map[string]int, len(baseline.Findings))
	for _, rec := range baseline.Findings {
		remaining[rec.Key]++
	}
	for _, rec := range current.Sorted() {
		if remaining[rec.Key] > 0 {
			remaining[rec.Key]--
			continue
		}
		cmp.Added = append(cmp.Added, rec)
	}
	for _, rec := range baseline.Sorted() {
		if remaining[rec.Key] > 0 {
			remaining[rec.Key]--
			cmp.Removed = append(cmp.Removed, rec)
		}
	}
	return cmp
}

// WriteComparison prints the comparison in the text report style.
func WriteComparison(w io.Writer, cmp *Comparison, opts TextOpts) error {
	p := newPalette(opts.Color)
	if _, err := fmt.Fprintf(w, "delta: critical %+d, warning %+d, info %+d\n",
		cmp.Delta.Critical, cmp.Delta.Warning, cmp.Delta.Info); err != nil {
		return err
	}
	for _, rec := range cmp.Added {
		if _, err := fmt.Fprintf(w, "%s %s: %s %s\n", p.critical.Sprint("+"), rec.Location,
			p.severity(rec.Severity).Sprintf("%s[%s]", rec.Severity, rec.Rule), rec.Message); err != nil {
			return err
		}
	}
	for _, rec := range cmp.Removed {
		if _, err := fmt.Fprintf(w, "%s %s: %s %s\n", p.caret.Sprint("-"), rec.Location,
			p.dim.Sprintf("%s[%s]", rec.Severity, rec.Rule), rec.Message); err != nil {
			return err
		}
	}
	return nil
}
