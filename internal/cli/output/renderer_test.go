package output

import (
	"bytes"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer_AutoResolvesToMarkdownForBuffers(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeAuto)
	assert.Equal(t, ModeMarkdown, r.Mode())
}

func TestNewRenderer_ExplicitModeWins(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeJSON)
	assert.Equal(t, ModeJSON, r.Mode())
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"models": 3}))
	assert.JSONEq(t, `{"models": 3}`, buf.String())
}

func TestTable_Markdown(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeMarkdown)
	r.Table(table.Row{"Model", "Status"}, []table.Row{{"orders", "success"}})

	out := buf.String()
	assert.Contains(t, out, "| Model | Status |")
	assert.Contains(t, out, "| orders | success |")
}

func TestWarning_WritesToErrorStream(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeMarkdown)
	r.Warning("no bindings loaded")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "no bindings loaded")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Runs", FormatHeader(2, "Runs"))
	assert.Equal(t, "**Platform:** snowflake", FormatKeyValue("Platform", "snowflake"))
}
