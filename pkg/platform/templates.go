package platform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jmangroup/snowball/pkg/mapping"
)

// procPrefix is the fixed naming convention for generated procedures.
const procPrefix = "sp_"

// RenderInput carries everything the template engine needs for one model.
type RenderInput struct {
	// Model is the compiled model name (the .sql file stem).
	Model string
	// Schema is the target schema/catalog for the procedure and its table.
	Schema string
	// Source is the compiled file path, kept for lineage annotations.
	Source string
	// SQL is the formatted model body.
	SQL string
	// Bindings rewrite source column tokens into target dimensions.
	Bindings []mapping.Binding
}

// Artifact is the finalized stored-procedure SQL for one model. It is
// created once per model per run and never mutated afterwards.
type Artifact struct {
	Platform  Platform
	Model     string
	Procedure string
	Source    string
	SQL       string
}

// Render produces the stored-procedure artifact for the given platform.
// The platform switch is exhaustive over the supported variants; anything
// else is an unsupported-platform *TemplateError.
func Render(p Platform, in RenderInput) (*Artifact, error) {
	if in.Model == "" {
		return nil, &TemplateError{Platform: p.String(), Reason: "model name is required"}
	}
	if strings.TrimSpace(in.SQL) == "" {
		return nil, &TemplateError{Platform: p.String(), Reason: fmt.Sprintf("model %s has an empty SQL body", in.Model)}
	}

	schema := in.Schema
	if schema == "" {
		schema = "dbo"
	}
	body := RewriteColumns(in.SQL, in.Bindings)

	var sql string
	switch p {
	case SQLServer, Fabric:
		sql = renderTSQL(schema, in.Model, body)
	case Snowflake:
		sql = renderSnowflake(schema, in.Model, body)
	case Databricks:
		sql = renderDatabricks(schema, in.Model, body)
	case Redshift:
		sql = renderRedshift(schema, in.Model, body)
	default:
		return nil, &TemplateError{Platform: p.String(), Reason: "unsupported platform"}
	}

	return &Artifact{
		Platform:  p,
		Model:     in.Model,
		Procedure: schema + "." + procPrefix + in.Model,
		Source:    in.Source,
		SQL:       sql,
	}, nil
}

var lastFrom = regexp.MustCompile(`(?i)\bFROM\b`)

// insertInto places an INTO clause before the last top-level FROM so the
// select materializes into the target table (T-SQL SELECT ... INTO form).
func insertInto(sql, table string) string {
	locs := lastFrom.FindAllStringIndex(sql, -1)
	if len(locs) == 0 {
		return sql
	}
	at := locs[len(locs)-1][0]
	return sql[:at] + "INTO " + table + "\n" + sql[at:]
}

// trimStatement strips surrounding whitespace and a trailing semicolon so
// the body can be re-terminated inside a procedure block.
func trimStatement(sql string) string {
	return strings.TrimRight(strings.TrimSpace(sql), "; \n\t")
}

func renderTSQL(schema, model, body string) string {
	table := schema + "." + model
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR ALTER PROCEDURE %s.%s%s\n", schema, procPrefix, model)
	b.WriteString("AS\nBEGIN\n    SET NOCOUNT ON;\n\n")
	fmt.Fprintf(&b, "    BEGIN\n        DROP TABLE IF EXISTS %s;\n    END;\n\n", table)
	b.WriteString(trimStatement(insertInto(body, table)))
	b.WriteString("\nEND;\n")
	return b.String()
}

func renderSnowflake(schema, model, body string) string {
	table := schema + "." + model
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR REPLACE PROCEDURE %s.%s%s()\n", schema, procPrefix, model)
	b.WriteString("RETURNS VARCHAR\nLANGUAGE SQL\nAS\n$$\nBEGIN\n")
	fmt.Fprintf(&b, "    CREATE OR REPLACE TABLE %s AS\n", table)
	b.WriteString(trimStatement(body))
	b.WriteString(";\n    RETURN 'ok';\nEND;\n$$;\n")
	return b.String()
}

func renderDatabricks(schema, model, body string) string {
	table := schema + "." + model
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR REPLACE PROCEDURE %s.%s%s()\n", schema, procPrefix, model)
	b.WriteString("LANGUAGE SQL\nSQL SECURITY INVOKER\nAS\nBEGIN\n")
	fmt.Fprintf(&b, "    CREATE OR REPLACE TABLE %s AS\n", table)
	b.WriteString(trimStatement(body))
	b.WriteString(";\nEND;\n")
	return b.String()
}

func renderRedshift(schema, model, body string) string {
	table := schema + "." + model
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR REPLACE PROCEDURE %s.%s%s()\n", schema, procPrefix, model)
	b.WriteString("AS $$\nBEGIN\n")
	fmt.Fprintf(&b, "    DROP TABLE IF EXISTS %s;\n", table)
	fmt.Fprintf(&b, "    CREATE TABLE %s AS\n", table)
	b.WriteString(trimStatement(body))
	b.WriteString(";\nEND;\n$$ LANGUAGE plpgsql;\n")
	return b.String()
}
