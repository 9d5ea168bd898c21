package report

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// JSON writes the document indented.
func JSON(w io.Writer, doc *Document) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// ReadJSON decodes a document written by JSON.
func ReadJSON(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if doc.Schema != SchemaVersion {
		return nil, fmt.Errorf("report schema %d, want %d", doc.Schema, SchemaVersion)
	}
	return &doc, nil
}

// LoadJSON reads a report file.
func LoadJSON(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
