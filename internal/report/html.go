package report

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"sort"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
)

// ruleTotal is one row of the per-rule table.
type ruleTotal struct {
	Rule   string
	Totals engine.Totals
}

type htmlView struct {
	*Document
	Findings []Record
	PerRule  []ruleTotal
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>UBS Report{{with .Project}} - {{.}}{{end}}</title>
<style>
body{font-family:system-ui,sans-serif;margin:2rem;color:#222}
table{border-collapse:collapse;margin-bottom:1.5rem}
th,td{border:1px solid #ccc;padding:.3rem .6rem;text-align:left;vertical-align:top}
th{background:#f3f3f3}
.critical{color:#b00020;font-weight:bold}
.warning{color:#a15c00}
.info{color:#2857a4}
pre{margin:0;white-space:pre-wrap}
</style>
</head>
<body>
<h1>UBS Report</h1>
<p>{{.Tool}} {{.Version}}{{with .Project}} &middot; {{.}}{{end}}</p>
<h2>Totals</h2>
<table>
<tr><th>Critical</th><th>Warning</th><th>Info</th><th>Units</th></tr>
<tr><td class="critical">{{.Totals.Critical}}</td><td class="warning">{{.Totals.Warning}}</td><td class="info">{{.Totals.Info}}</td><td>{{len .Units}}</td></tr>
</table>
{{- with .Comparison}}
<h2>Comparison{{with .Baseline}} with {{.}}{{end}}</h2>
<table>
<tr><th>Critical</th><th>Warning</th><th>Info</th><th>Added</th><th>Removed</th></tr>
<tr><td>{{printf "%+d" .Delta.Critical}}</td><td>{{printf "%+d" .Delta.Warning}}</td><td>{{printf "%+d" .Delta.Info}}</td><td>{{len .Added}}</td><td>{{len .Removed}}</td></tr>
</table>
{{- end}}
{{- if .PerRule}}
<h2>Per-rule totals</h2>
<table>
<tr><th>Rule</th><th>Critical</th><th>Warning</th><th>Info</th></tr>
{{- range .PerRule}}
<tr><td>{{.Rule}}</td><td>{{.Totals.Critical}}</td><td>{{.Totals.Warning}}</td><td>{{.Totals.Info}}</td></tr>
{{- end}}
</table>
{{- end}}
<h2>Findings</h2>
{{- if .Findings}}
<table>
<tr><th>Severity</th><th>Location</th><th>Rule</th><th>Message</th></tr>
{{- range .Findings}}
<tr><td class="{{.Severity}}">{{.Severity}}</td><td>{{.Location}}</td><td>{{.Rule}}</td><td>{{.Message}}{{with .Snippet}}<pre>{{.}}</pre>{{end}}</td></tr>
{{- end}}
</table>
{{- else}}
<p>No findings.</p>
{{- end}}
{{- with .LoadErrors}}
<h2>Load errors</h2>
<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>
{{- end}}
</body>
</html>
`))

// HTML writes a self-contained page meant to be shared outside the terminal.
// All document text is escaped.
func HTML(w io.Writer, doc *Document) error {
	view := htmlView{Document: doc, Findings: doc.Sorted()}
	byRule := map[string]engine.Totals{}
	for _, rec := range doc.Findings {
		var one engine.Totals
		switch rec.Severity {
		case rules.SeverityCritical:
			one.Critical = 1
		case rules.SeverityWarning:
			one.Warning = 1
		case rules.SeverityInfo:
			one.Info = 1
		}
		byRule[rec.Rule] = byRule[rec.Rule].Add(one)
	}
	for id, t := range byRule {
		view.PerRule = append(view.PerRule, ruleTotal{Rule: id, Totals: t})
	}
	sort.Slice(view.PerRule, func(i, j int) bool { return view.PerRule[i].Rule < view.PerRule[j].Rule })
	if err := htmlTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

// WriteHTML renders the document into path.
func WriteHTML(path string, doc *Document) error {
	f, err := os.Create(path) // #nosec G304 -- path comes from the command line
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	if err := HTML(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
