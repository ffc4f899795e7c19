// Package formatter normalizes compiled SQL text before templating.
//
// The default implementation shells out to an external formatting engine
// (SQLFluff) over a transient temp file, so the original compiled file is
// never handed to the subprocess. Formatting is style-only: keyword case,
// indentation, and line wrapping. A formatter that rejects its input as
// unparsable fails that model without aborting the rest of the run.
package formatter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single formatter invocation.
const DefaultTimeout = 30 * time.Second

// Formatter normalizes a single SQL text.
type Formatter interface {
	// Format returns the normalized text, or a *FormatError when the input
	// is rejected. The context bounds the invocation; a deadline hit is
	// converted into a *FormatError rather than surfaced raw.
	Format(ctx context.Context, sql string) (string, error)
}

// FormatError indicates the formatter rejected the input as unparsable or
// invalid, or the invocation timed out. Line and Rule are populated when
// the underlying engine reports them.
type FormatError struct {
	Line   int
	Rule   string
	Detail string
}

func (e *FormatError) Error() string {
	msg := "format failed"
	if e.Rule != "" {
		msg += " [" + e.Rule + "]"
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Exec invokes an external formatter command as a subprocess.
type Exec struct {
	// Command is the formatter invocation, e.g. ["sqlfluff", "fix", "--force"].
	// The temp file path is appended as the final argument.
	Command []string
	// Dialect is passed as --dialect when non-empty.
	Dialect string
	// Timeout bounds each invocation. Zero means DefaultTimeout.
	Timeout time.Duration
}

// NewExec builds an Exec formatter from a space-separated command string.
func NewExec(command string, dialect string, timeout time.Duration) *Exec {
	return &Exec{
		Command: strings.Fields(command),
		Dialect: dialect,
		Timeout: timeout,
	}
}

// Available reports whether the formatter binary can be found on PATH.
func (f *Exec) Available() bool {
	if len(f.Command) == 0 {
		return false
	}
	_, err := exec.LookPath(f.Command[0])
	return err == nil
}

// SQLFluff reports violations as "L:  12 | P:   5 | LT01 | message".
var sqlfluffViolation = regexp.MustCompile(`L:\s*(\d+)\s*\|\s*P:\s*\d+\s*\|\s*(\S+)\s*\|\s*(.*)`)

// Format writes sql to a temp file, runs the formatter over it in place,
// and reads the result back.
func (f *Exec) Format(ctx context.Context, sql string) (string, error) {
	if strings.TrimSpace(sql) == "" {
		return "", &FormatError{Detail: "empty SQL input"}
	}
	if len(f.Command) == 0 {
		return "", &FormatError{Detail: "no formatter command configured"}
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "snowball-fmt-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "model.sql")
	if err := os.WriteFile(path, []byte(sql), 0o600); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}

	args := append([]string{}, f.Command[1:]...)
	if f.Dialect != "" {
		args = append(args, "--dialect", f.Dialect)
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, f.Command[0], args...)
	out, runErr := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return "", &FormatError{Detail: fmt.Sprintf("formatter timed out after %s", timeout)}
	}
	if runErr != nil {
		return "", violationError(string(out), runErr)
	}

	formatted, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read formatted output: %w", err)
	}
	return string(formatted), nil
}

// violationError extracts line/rule diagnostics from formatter output.
func violationError(output string, runErr error) *FormatError {
	if m := sqlfluffViolation.FindStringSubmatch(output); m != nil {
		line, _ := strconv.Atoi(m[1])
		return &FormatError{Line: line, Rule: m[2], Detail: strings.TrimSpace(m[3])}
	}

	detail := strings.TrimSpace(output)
	if detail == "" {
		detail = runErr.Error()
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		detail = fmt.Sprintf("formatter exited with code %d: %s", exitErr.ExitCode(), detail)
	}
	return &FormatError{Detail: detail}
}

// Noop is a fallback formatter used when no external engine is available.
// It applies only whitespace normalization (trailing-space removal and a
// single trailing newline), which keeps artifacts deterministic without
// touching SQL semantics.
type Noop struct{}

// Format validates the input and normalizes trailing whitespace.
func (Noop) Format(_ context.Context, sql string) (string, error) {
	if strings.TrimSpace(sql) == "" {
		return "", &FormatError{Detail: "empty SQL input"}
	}

	lines := strings.Split(sql, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	out := strings.Join(lines, "\n")
	out = strings.TrimRight(out, "\n") + "\n"
	return out, nil
}
