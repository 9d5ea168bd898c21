package report

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
)

const (
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	sarifVersion = "2.1.0"
	// fingerprintKey names the partial fingerprint carrying Record.Key.
	fingerprintKey = "ubsFindingKey/v1"
)

// SarifRunMeta provides metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InformationURI string
	InvocationArgs []string
}

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID                   string             `json:"id"`
	ShortDescription     sarifMessage       `json:"shortDescription"`
	DefaultConfiguration sarifConfiguration `json:"defaultConfiguration"`
}

type sarifConfiguration struct {
	Level string `json:"level"`
}

type sarifInvocation struct {
	Arguments           []string `json:"arguments,omitempty"`
	ExecutionSuccessful bool     `json:"executionSuccessful"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine"`
	StartColumn uint32 `json:"startColumn"`
	EndLine     uint32 `json:"endLine,omitempty"`
	EndColumn   uint32 `json:"endColumn,omitempty"`
	Snippet     *struct {
		Text string `json:"text"`
	} `json:"snippet,omitempty"`
}

// SarifLevel maps a finding severity onto the SARIF result level.
func SarifLevel(s rules.Severity) string {
	switch s {
	case rules.SeverityCritical:
		return "error"
	case rules.SeverityWarning:
		return "warning"
	}
	return "note"
}

// Sarif writes the document as a single-run SARIF 2.1.0 log.
func Sarif(w io.Writer, doc *Document, meta SarifRunMeta) error {
	name := meta.ToolName
	if name == "" {
		name = doc.Tool
	}
	version := meta.ToolVersion
	if version == "" {
		version = doc.Version
	}
	driver := sarifDriver{
		Name:           name,
		Version:        version,
		InformationURI: meta.InformationURI,
		Rules:          []sarifRule{},
	}
	index := make(map[string]int, len(doc.Rules))
	addRule := func(id, description string, sev rules.Severity) int {
		if i, ok := index[id]; ok {
			return i
		}
		index[id] = len(driver.Rules)
		driver.Rules = append(driver.Rules, sarifRule{
			ID:                   id,
			ShortDescription:     sarifMessage{Text: description},
			DefaultConfiguration: sarifConfiguration{Level: SarifLevel(sev)},
		})
		return index[id]
	}
	for _, r := range doc.Rules {
		addRule(r.ID, r.Description, r.Severity)
	}

	results := make([]sarifResult, 0, len(doc.Findings))
	for _, rec := range doc.Sorted() {
		region := sarifRegion{
			StartLine:   max(rec.Location.Line, 1),
			StartColumn: max(rec.Location.Col, 1),
			EndLine:     rec.Location.EndLine,
			EndColumn:   rec.Location.EndCol,
		}
		if rec.Snippet != "" {
			region.Snippet = &struct {
				Text string `json:"text"`
			}{Text: rec.Snippet}
		}
		results = append(results, sarifResult{
			RuleID:    rec.Rule,
			RuleIndex: addRule(rec.Rule, rec.Rule, rec.Severity),
			Level:     SarifLevel(rec.Severity),
			Message:   sarifMessage{Text: rec.Message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: rec.Location.File},
					Region:           region,
				},
			}},
			PartialFingerprints: map[string]string{fingerprintKey: rec.Key},
		})
	}

	run := sarifRun{Tool: sarifTool{Driver: driver}, Results: results}
	if len(meta.InvocationArgs) > 0 {
		run.Invocations = []sarifInvocation{{
			Arguments:           meta.InvocationArgs,
			ExecutionSuccessful: len(doc.LoadErrors) == 0,
		}}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(sarifLog{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs:    []sarifRun{run},
	})
}
