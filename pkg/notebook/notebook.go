// Package notebook projects finalized SQL artifacts into executable
// notebook documents (Jupyter nbformat v4).
//
// Each document gets one leading markdown cell summarizing the model and
// its source lineage, followed by one code cell per top-level statement.
// Projection is deterministic: the same artifact always yields a
// structurally identical document.
package notebook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmangroup/snowball/pkg/platform"
)

// Cell types.
const (
	CellMarkdown = "markdown"
	CellCode     = "code"
)

// sparkMagic prefixes code cells on Spark-based platforms so the cell
// executes as Spark SQL.
const sparkMagic = "%%sql\n"

// Cell is one notebook cell.
type Cell struct {
	Type   string
	Source string
}

// Kernelspec identifies the notebook kernel.
type Kernelspec struct {
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
	Name        string `json:"name"`
}

// LanguageInfo describes the document language.
type LanguageInfo struct {
	Name string `json:"name"`
}

// Metadata is the document-level notebook metadata.
type Metadata struct {
	Kernelspec   Kernelspec   `json:"kernelspec"`
	LanguageInfo LanguageInfo `json:"language_info"`
}

// Document is an ordered notebook document.
type Document struct {
	Cells         []Cell
	Metadata      Metadata
	NBFormat      int
	NBFormatMinor int
}

// Project converts an artifact into a notebook document. Cell granularity
// is one code cell per top-level statement (see SplitStatements); the
// leading cell is always a markdown summary.
func Project(a *platform.Artifact) *Document {
	doc := &Document{
		Metadata:      metadataFor(a.Platform),
		NBFormat:      4,
		NBFormatMinor: 5,
	}

	var lead strings.Builder
	fmt.Fprintf(&lead, "## %s\n", a.Model)
	fmt.Fprintf(&lead, "#### **Stored procedure `%s` for %s**\n", a.Procedure, a.Platform)
	if a.Source != "" {
		fmt.Fprintf(&lead, "Generated from compiled model `%s`.\n", filepath.Base(a.Source))
	}
	doc.Cells = append(doc.Cells, Cell{Type: CellMarkdown, Source: lead.String()})

	magic := ""
	if a.Platform.SparkBased() {
		magic = sparkMagic
	}
	for _, stmt := range SplitStatements(a.SQL) {
		doc.Cells = append(doc.Cells, Cell{Type: CellCode, Source: magic + stmt + ";"})
	}

	return doc
}

func metadataFor(p platform.Platform) Metadata {
	if p.SparkBased() {
		return Metadata{
			Kernelspec:   Kernelspec{DisplayName: "Spark SQL", Language: "sql", Name: "sparksql"},
			LanguageInfo: LanguageInfo{Name: "sql"},
		}
	}
	return Metadata{
		Kernelspec:   Kernelspec{DisplayName: "SQL", Language: "sql", Name: "sql"},
		LanguageInfo: LanguageInfo{Name: "sql"},
	}
}

// nbCell is the nbformat v4 wire shape. Code cells carry execution_count
// and outputs; markdown cells must not.
type nbCell struct {
	CellType       string           `json:"cell_type"`
	Metadata       struct{}         `json:"metadata"`
	Source         []string         `json:"source"`
	ExecutionCount *int             `json:"execution_count,omitempty"`
	Outputs        []map[string]any `json:"outputs,omitempty"`
}

type nbDocument struct {
	Cells         []json.RawMessage `json:"cells"`
	Metadata      Metadata          `json:"metadata"`
	NBFormat      int               `json:"nbformat"`
	NBFormatMinor int               `json:"nbformat_minor"`
}

// sourceLines splits cell text into the nbformat line-list form, keeping
// the trailing newline on every line but the last.
func sourceLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// MarshalJSON encodes the document as nbformat v4 JSON. Key order is fixed
// by the struct layout, so identical documents serialize byte-identically.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := nbDocument{
		Cells:         make([]json.RawMessage, 0, len(d.Cells)),
		Metadata:      d.Metadata,
		NBFormat:      d.NBFormat,
		NBFormatMinor: d.NBFormatMinor,
	}

	for _, c := range d.Cells {
		var (
			raw []byte
			err error
		)
		if c.Type == CellCode {
			// Code cells require an explicit null execution_count, which
			// omitempty would drop, so they marshal through their own shape.
			raw, err = json.Marshal(struct {
				CellType       string           `json:"cell_type"`
				Metadata       struct{}         `json:"metadata"`
				Source         []string         `json:"source"`
				ExecutionCount *int             `json:"execution_count"`
				Outputs        []map[string]any `json:"outputs"`
			}{c.Type, struct{}{}, sourceLines(c.Source), nil, []map[string]any{}})
		} else {
			raw, err = json.Marshal(nbCell{CellType: c.Type, Source: sourceLines(c.Source)})
		}
		if err != nil {
			return nil, err
		}
		out.Cells = append(out.Cells, raw)
	}

	return json.Marshal(out)
}

// Write serializes the document to path with a trailing newline, via a
// temp file and rename so partial writes are never visible.
func (d *Document) Write(path string) error {
	data, err := json.MarshalIndent(d, "", " ")
	if err != nil {
		return fmt.Errorf("marshal notebook: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write notebook: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize notebook: %w", err)
	}
	return nil
}
