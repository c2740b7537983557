// Package ocr turns a source file into a NormalizedDocument: reading-order
// lines with table rows already flattened into single strings.
package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnsupported is returned for file types an analyzer cannot read.
var ErrUnsupported = errors.New("unsupported file type")

// Analyzer is the layout-analysis collaborator.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (NormalizedDocument, error)
}

// Table is one table's rows, each row's non-empty cells joined by a space.
type Table []string

// NormalizedDocument is the layout-flattened text of one source file.
type NormalizedDocument struct {
	Lines  []string
	Tables []Table
}

// IsEmpty reports whether the document has no usable text.
func (d NormalizedDocument) IsEmpty() bool {
	for _, l := range d.Lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}

// MarshalJSON renders {"tables": [...], "lines": [...]} with empty lists
// instead of null.
func (d NormalizedDocument) MarshalJSON() ([]byte, error) {
	tables := d.Tables
	if tables == nil {
		tables = []Table{}
	}
	lines := d.Lines
	if lines == nil {
		lines = []string{}
	}
	return json.Marshal(struct {
		Tables []Table  `json:"tables"`
		Lines  []string `json:"lines"`
	}{tables, lines})
}

// ForPrompt is the document as sent to the generator. Table rows already
// appear in Lines, so the payload carries an empty tables list.
func (d NormalizedDocument) ForPrompt() NormalizedDocument {
	return NormalizedDocument{Lines: d.Lines}
}

func (d *NormalizedDocument) UnmarshalJSON(b []byte) error {
	var aux struct {
		Tables []Table  `json:"tables"`
		Lines  []string `json:"lines"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d.Tables, d.Lines = aux.Tables, aux.Lines
	return nil
}

// LinesFromText splits normalized text into trimmed, non-empty lines.
// Form feeds (page breaks) are treated as line breaks.
func LinesFromText(text string) []string {
	raw := strings.Split(Normalize(text), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
