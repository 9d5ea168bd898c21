package conformance

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/report"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
)

// ManifestName is the optional manifest at the corpus root.
const ManifestName = "corpus.yaml"

// CategorySpec maps a fixture directory onto a rule.
type CategorySpec struct {
	// Rule defaults to the category name.
	Rule string `yaml:"rule,omitempty"`
	// MinSeverity defaults to the rule's own severity.
	MinSeverity rules.Severity `yaml:"min_severity,omitempty"`
}

// Case is a whole-run expectation over a file or directory of the corpus.
type Case struct {
	ID            string             `yaml:"id"`
	Path          string             `yaml:"path"`
	FailOnWarning bool               `yaml:"fail_on_warning,omitempty"`
	Expect        report.Expectation `yaml:"expect"`
}

// Manifest is the decoded corpus.yaml.
type Manifest struct {
	Categories map[string]CategorySpec `yaml:"categories,omitempty"`
	Cases      []Case                  `yaml:"cases,omitempty"`
}

// LoadManifest reads root/corpus.yaml. A missing file yields an empty
// manifest.
func LoadManifest(root string) (*Manifest, error) {
	path := filepath.Join(root, ManifestName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseManifest(data, path)
}

// ParseManifest decodes and validates manifest bytes; name is used in
// error messages.
func ParseManifest(data []byte, name string) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	seen := make(map[string]bool, len(m.Cases))
	for i, c := range m.Cases {
		switch {
		case c.ID == "":
			return nil, fmt.Errorf("%s: case %d has no id", name, i)
		case seen[c.ID]:
			return nil, fmt.Errorf("%s: duplicate case id %q", name, c.ID)
		case c.Path == "":
			return nil, fmt.Errorf("%s: case %q has no path", name, c.ID)
		}
		seen[c.ID] = true
		if err := c.Expect.Validate(); err != nil {
			return nil, fmt.Errorf("%s: case %q: %w", name, c.ID, err)
		}
	}
	return &m, nil
}

// Resolve returns the rule id and minimum severity for a category.
func (m *Manifest) Resolve(category string, set *rules.RuleSet) (string, rules.Severity, error) {
	spec := m.Categories[category]
	id := spec.Rule
	if id == "" {
		id = category
	}
	r, ok := set.Lookup(id)
	if !ok {
		return "", 0, fmt.Errorf("category %q: unknown rule %q", category, id)
	}
	sev := spec.MinSeverity
	if sev == 0 {
		sev = r.Severity
	}
	return id, sev, nil
}
