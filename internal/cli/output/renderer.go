// Package output renders command results as styled text, markdown, or JSON.
// The mode resolves automatically: terminals get styled text, pipes get
// markdown, and --output json forces machine-readable output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// Mode selects the output format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Renderer writes command output in the resolved mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
}

// NewRenderer creates a renderer. ModeAuto resolves to text when out is a
// terminal and markdown otherwise.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	switch mode {
	case ModeText, ModeMarkdown, ModeJSON:
	default:
		mode = ModeText
		if !isTerminal(out) {
			mode = ModeMarkdown
		}
	}
	return &Renderer{out: out, errOut: errOut, mode: mode}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Mode returns the resolved output mode.
func (r *Renderer) Mode() Mode {
	return r.mode
}

// Out returns the underlying output writer.
func (r *Renderer) Out() io.Writer {
	return r.out
}

// Println writes a line to output.
func (r *Renderer) Println(a ...any) {
	fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to output.
func (r *Renderer) Printf(format string, a ...any) {
	fmt.Fprintf(r.out, format, a...)
}

// Success writes a success line, styled when in text mode.
func (r *Renderer) Success(msg string) {
	if r.mode == ModeText {
		fmt.Fprintln(r.out, StyleSuccess.Render("✓ "+msg))
		return
	}
	fmt.Fprintln(r.out, "✓ "+msg)
}

// Warning writes a warning line to the error stream.
func (r *Renderer) Warning(msg string) {
	if r.mode == ModeText {
		fmt.Fprintln(r.errOut, StyleWarning.Render("! "+msg))
		return
	}
	fmt.Fprintln(r.errOut, "! "+msg)
}

// Error writes an error line to the error stream.
func (r *Renderer) Error(msg string) {
	if r.mode == ModeText {
		fmt.Fprintln(r.errOut, StyleError.Render("✗ "+msg))
		return
	}
	fmt.Fprintln(r.errOut, "✗ "+msg)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table writes a table. Text mode gets light box-drawing borders,
// markdown mode gets a pipe table.
func (r *Renderer) Table(header table.Row, rows []table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.AppendHeader(header)
	t.AppendRows(rows)
	if r.mode == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

// FormatHeader formats a markdown-style header at the given level.
func FormatHeader(level int, text string) string {
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue formats a bolded key/value pair.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("**%s:** %s", key, value)
}
