package notebook

import "strings"

// SplitStatements splits SQL text into top-level statements at semicolons.
// Semicolons inside single-quoted strings, double-quoted identifiers,
// line/block comments, and dollar-quoted blocks do not split. Empty
// fragments are dropped.
//
// This is the documented cell-granularity rule: platforms whose procedure
// body is a single dollar-quoted block therefore project as one cell.
func SplitStatements(sql string) []string {
	var (
		stmts    []string
		start    int
		inStr    bool
		inIdent  bool
		inLine   bool
		inBlock  bool
		inDollar bool
	)

	runes := []rune(sql)
	flush := func(end int) {
		stmt := strings.TrimSpace(string(runes[start:end]))
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case inLine:
			if c == '\n' {
				inLine = false
			}
		case inBlock:
			if c == '*' && next == '/' {
				inBlock = false
				i++
			}
		case inStr:
			if c == '\'' {
				if next == '\'' {
					i++ // escaped quote
				} else {
					inStr = false
				}
			}
		case inIdent:
			if c == '"' {
				inIdent = false
			}
		case inDollar:
			if c == '$' && next == '$' {
				inDollar = false
				i++
			}
		default:
			switch {
			case c == '-' && next == '-':
				inLine = true
				i++
			case c == '/' && next == '*':
				inBlock = true
				i++
			case c == '\'':
				inStr = true
			case c == '"':
				inIdent = true
			case c == '$' && next == '$':
				inDollar = true
				i++
			case c == ';':
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(runes))

	return stmts
}
