package notebook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmangroup/snowball/pkg/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "single statement",
			sql:  "SELECT 1",
			want: []string{"SELECT 1"},
		},
		{
			name: "three statements",
			sql:  "DROP TABLE t;\nCREATE TABLE t (x INT);\nSELECT * FROM t;",
			want: []string{"DROP TABLE t", "CREATE TABLE t (x INT)", "SELECT * FROM t"},
		},
		{
			name: "semicolon in string literal",
			sql:  "SELECT 'a;b' AS v;\nSELECT 2",
			want: []string{"SELECT 'a;b' AS v", "SELECT 2"},
		},
		{
			name: "escaped quote in string",
			sql:  "SELECT 'it''s;fine';SELECT 2",
			want: []string{"SELECT 'it''s;fine'", "SELECT 2"},
		},
		{
			name: "semicolon in quoted identifier",
			sql:  `SELECT "a;b" FROM t;SELECT 2`,
			want: []string{`SELECT "a;b" FROM t`, "SELECT 2"},
		},
		{
			name: "line comment",
			sql:  "SELECT 1 -- trailing; note\n;SELECT 2",
			want: []string{"SELECT 1 -- trailing; note", "SELECT 2"},
		},
		{
			name: "block comment",
			sql:  "SELECT 1 /* a;b */;SELECT 2",
			want: []string{"SELECT 1 /* a;b */", "SELECT 2"},
		},
		{
			name: "dollar-quoted block stays atomic",
			sql:  "CREATE PROCEDURE p() AS $$ BEGIN DROP TABLE t; SELECT 1; END; $$ LANGUAGE plpgsql;",
			want: []string{"CREATE PROCEDURE p() AS $$ BEGIN DROP TABLE t; SELECT 1; END; $$ LANGUAGE plpgsql"},
		},
		{
			name: "empty fragments dropped",
			sql:  ";;SELECT 1;;",
			want: []string{"SELECT 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitStatements(tt.sql))
		})
	}
}

func TestProject_StructuralContract(t *testing.T) {
	// A fixed artifact with 3 top-level statements must project as exactly
	// 1 leading markdown cell + 3 code cells, in source order.
	a := &platform.Artifact{
		Platform:  platform.Databricks,
		Model:     "monthly_arr",
		Procedure: "mart.sp_monthly_arr",
		Source:    "compiled/monthly_arr.sql",
		SQL:       "DROP TABLE IF EXISTS mart.monthly_arr;\nCREATE TABLE mart.monthly_arr AS SELECT 1;\nSELECT COUNT(*) FROM mart.monthly_arr;",
	}

	doc := Project(a)
	require.Len(t, doc.Cells, 4)

	assert.Equal(t, CellMarkdown, doc.Cells[0].Type)
	assert.Contains(t, doc.Cells[0].Source, "monthly_arr")
	assert.Contains(t, doc.Cells[0].Source, "mart.sp_monthly_arr")

	for i, want := range []string{"DROP TABLE", "CREATE TABLE", "SELECT COUNT"} {
		cell := doc.Cells[i+1]
		assert.Equal(t, CellCode, cell.Type)
		assert.Contains(t, cell.Source, want)
	}
}

func TestProject_SparkMagicOnDatabricks(t *testing.T) {
	a := &platform.Artifact{Platform: platform.Databricks, Model: "m", Procedure: "s.sp_m", SQL: "SELECT 1;"}
	doc := Project(a)

	require.Len(t, doc.Cells, 2)
	assert.Equal(t, "%%sql\nSELECT 1;", doc.Cells[1].Source)
	assert.Equal(t, "sparksql", doc.Metadata.Kernelspec.Name)
}

func TestProject_NoMagicOnSnowflake(t *testing.T) {
	a := &platform.Artifact{Platform: platform.Snowflake, Model: "m", Procedure: "s.sp_m", SQL: "SELECT 1;"}
	doc := Project(a)

	require.Len(t, doc.Cells, 2)
	assert.Equal(t, "SELECT 1;", doc.Cells[1].Source)
	assert.Equal(t, "sql", doc.Metadata.Kernelspec.Name)
}

func TestProject_DollarQuotedProcedureIsOneCell(t *testing.T) {
	// Snowflake/Redshift artifacts wrap the body in a $$ block; the whole
	// procedure projects as a single code cell.
	a := &platform.Artifact{
		Platform:  platform.Snowflake,
		Model:     "m",
		Procedure: "s.sp_m",
		SQL:       "CREATE OR REPLACE PROCEDURE s.sp_m()\nAS\n$$\nBEGIN\n SELECT 1;\n SELECT 2;\nEND;\n$$;",
	}

	doc := Project(a)
	assert.Len(t, doc.Cells, 2)
}

func TestProject_Deterministic(t *testing.T) {
	a := &platform.Artifact{Platform: platform.Databricks, Model: "m", Procedure: "s.sp_m", SQL: "SELECT 1;\nSELECT 2;"}

	first, err := json.Marshal(Project(a))
	require.NoError(t, err)
	second, err := json.Marshal(Project(a))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMarshalJSON_NBFormatShape(t *testing.T) {
	a := &platform.Artifact{Platform: platform.Databricks, Model: "m", Procedure: "s.sp_m", SQL: "SELECT 1;"}
	data, err := json.Marshal(Project(a))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.EqualValues(t, 4, raw["nbformat"])
	assert.EqualValues(t, 5, raw["nbformat_minor"])

	cells, ok := raw["cells"].([]any)
	require.True(t, ok)
	require.Len(t, cells, 2)

	md := cells[0].(map[string]any)
	assert.Equal(t, "markdown", md["cell_type"])
	_, hasExec := md["execution_count"]
	assert.False(t, hasExec, "markdown cells must not carry execution_count")

	code := cells[1].(map[string]any)
	assert.Equal(t, "code", code["cell_type"])
	exec, hasExec := code["execution_count"]
	assert.True(t, hasExec, "code cells carry an execution metadata placeholder")
	assert.Nil(t, exec)
	assert.Equal(t, []any{}, code["outputs"])
}

func TestWrite_AtomicAndParseable(t *testing.T) {
	a := &platform.Artifact{Platform: platform.Snowflake, Model: "m", Procedure: "s.sp_m", SQL: "SELECT 1;"}
	doc := Project(a)

	path := filepath.Join(t.TempDir(), "m_nb.ipynb")
	require.NoError(t, doc.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}
