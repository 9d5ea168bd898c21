package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
)

// SummaryOpts configures the summary table.
type SummaryOpts struct {
	Color bool
	// Width truncates unit paths; zero keeps them whole.
	Width int
}

// Summary writes one row per unit with findings or problems, followed by
// a totals line.
func Summary(w io.Writer, doc *Document, opts SummaryOpts) error {
	perRule := map[string]int{}
	for _, rec := range doc.Findings {
		perRule[rec.Rule]++
	}

	header := lipgloss.NewStyle().Bold(true)
	cell := lipgloss.NewStyle().Padding(0, 1)
	if !opts.Color {
		header = lipgloss.NewStyle()
	}
	verdictStyle := func(v string) lipgloss.Style {
		style := lipgloss.NewStyle()
		if !opts.Color {
			return style
		}
		switch v {
		case engine.VerdictDefective.String():
			return style.Foreground(lipgloss.Color("1"))
		case engine.VerdictFlagged.String():
			return style.Foreground(lipgloss.Color("3"))
		}
		return style.Foreground(lipgloss.Color("2"))
	}

	nameWidth := opts.Width - 40
	if nameWidth < 20 {
		nameWidth = 20
	}

	var rows [][]string
	for _, u := range doc.Units {
		if u.Totals.Total() == 0 && !u.Unparseable && !u.Truncated && len(u.Faults) == 0 {
			continue
		}
		verdict := u.Verdict.String()
		switch {
		case u.Unparseable:
			verdict = "unparseable"
		case u.Truncated:
			verdict += "*"
		}
		path := u.Path
		if opts.Width > 0 {
			path = truncate(path, nameWidth)
		}
		rows = append(rows, []string{
			path,
			verdictStyle(verdictKey(verdict)).Render(verdict),
			strconv.Itoa(u.Totals.Critical),
			strconv.Itoa(u.Totals.Warning),
			strconv.Itoa(u.Totals.Info),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("unit", "verdict", "critical", "warning", "info").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return header.Padding(0, 1)
			}
			if col >= 2 {
				return cell.Align(lipgloss.Right)
			}
			return cell
		})

	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return err
	}

	ids := make([]string, 0, len(perRule))
	for id := range perRule {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := fmt.Fprintf(w, "  %-26s %d\n", id, perRule[id]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d units: %d clean, %d flagged, %d defective | critical %d, warning %d, info %d\n",
		len(doc.Units),
		doc.Verdicts[engine.VerdictClean.String()],
		doc.Verdicts[engine.VerdictFlagged.String()],
		doc.Verdicts[engine.VerdictDefective.String()],
		doc.Totals.Critical, doc.Totals.Warning, doc.Totals.Info)
	return err
}

func verdictKey(label string) string {
	if n := len(label); n > 0 && label[n-1] == '*' {
		return label[:n-1]
	}
	return label
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return "..." + truncateLeft(value, width-3)
}

// truncateLeft keeps the rightmost cells of value, since the file name is
// the informative end of a path.
func truncateLeft(value string, width int) string {
	runes := []rune(value)
	w := 0
	i := len(runes)
	for i > 0 {
		rw := runewidth.RuneWidth(runes[i-1])
		if w+rw > width {
			break
		}
		w += rw
		i--
	}
	return string(runes[i:])
}
