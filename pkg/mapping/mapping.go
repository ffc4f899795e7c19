// Package mapping loads the column-mapping table used to rewrite source
// column references into target semantic dimensions during templating.
//
// The table is a CSV file with a fixed header contract:
//
//	source_column, target_dimension, dimension_type, data_type
//
// A mapping is loaded once per run and shared read-only across all model
// transformations.
package mapping

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Required header columns, in no particular order.
var requiredColumns = []string{"source_column", "target_dimension", "dimension_type", "data_type"}

// Binding is one column-mapping record. DimensionType is empty when the
// source table has no dimension classification for the column.
type Binding struct {
	SourceColumn    string
	TargetDimension string
	DimensionType   string
	DataType        string
}

// DiagKind classifies a mapping diagnostic.
type DiagKind string

// Diagnostic kinds.
const (
	DiagDuplicate   DiagKind = "duplicate"
	DiagPassthrough DiagKind = "passthrough"
)

// Diagnostic records a non-fatal observation made while loading or
// resolving mappings. Diagnostics never fail a run.
type Diagnostic struct {
	Kind    DiagKind
	Column  string
	Message string
}

// LoadError indicates the mapping file is missing, empty, or malformed.
// It is fatal to the whole run: no model can be correctly rewritten
// without a valid mapping.
type LoadError struct {
	Path   string
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("mapping file %s: %s", e.Path, e.Reason)
}

// Mapping is an ordered, read-only collection of column bindings.
// Lookup is case-insensitive on the source column. When multiple records
// share a source_column, the first-listed record wins; later duplicates
// are recorded as diagnostics.
type Mapping struct {
	bindings []Binding
	bySource map[string]int
	diags    []Diagnostic
}

// Load reads a column-mapping CSV from path.
func Load(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	m, err := Read(f)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.Path = path
			return nil, le
		}
		return nil, &LoadError{Path: path, Reason: err.Error()}
	}
	return m, nil
}

// Read parses a column-mapping table from r. Exposed separately from Load
// so callers can parse in-memory tables in tests.
func Read(r io.Reader) (*Mapping, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &LoadError{Reason: "file is empty"}
	}
	if err != nil {
		return nil, &LoadError{Reason: fmt.Sprintf("invalid header: %v", err)}
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range requiredColumns {
		if _, ok := cols[req]; !ok {
			return nil, &LoadError{Reason: fmt.Sprintf("missing required column %q", req)}
		}
	}

	m := &Mapping{bySource: make(map[string]int)}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Reason: fmt.Sprintf("invalid record: %v", err)}
		}

		b := Binding{
			SourceColumn:    strings.TrimSpace(rec[cols["source_column"]]),
			TargetDimension: strings.TrimSpace(rec[cols["target_dimension"]]),
			DimensionType:   strings.TrimSpace(rec[cols["dimension_type"]]),
			DataType:        strings.TrimSpace(rec[cols["data_type"]]),
		}
		if b.SourceColumn == "" {
			continue
		}

		key := strings.ToLower(b.SourceColumn)
		if idx, dup := m.bySource[key]; dup {
			m.diags = append(m.diags, Diagnostic{
				Kind:   DiagDuplicate,
				Column: b.SourceColumn,
				Message: fmt.Sprintf("duplicate mapping for %q ignored; first-listed record (%s) wins",
					b.SourceColumn, m.bindings[idx].TargetDimension),
			})
			continue
		}

		m.bySource[key] = len(m.bindings)
		m.bindings = append(m.bindings, b)
	}

	if len(m.bindings) == 0 {
		return nil, &LoadError{Reason: "no mapping records found"}
	}
	return m, nil
}

// Resolve looks up the binding for a source column. The second return is
// false when the column is unmapped; callers apply the passthrough policy
// (keep the original name and type) and record a diagnostic.
func (m *Mapping) Resolve(column string) (Binding, bool) {
	idx, ok := m.bySource[strings.ToLower(column)]
	if !ok {
		return Binding{}, false
	}
	return m.bindings[idx], true
}

// Bindings returns all bindings in file order. The returned slice is
// shared; callers must not mutate it.
func (m *Mapping) Bindings() []Binding {
	return m.bindings
}

// Diagnostics returns the warnings recorded while loading the table.
func (m *Mapping) Diagnostics() []Diagnostic {
	return m.diags
}

// Len returns the number of distinct source columns in the mapping.
func (m *Mapping) Len() int {
	return len(m.bindings)
}
