package platform

import (
	"regexp"
	"strings"

	"github.com/jmangroup/snowball/pkg/mapping"
)

// RewriteColumns replaces source column tokens in sql with their target
// dimensions. Substitution is exact-match on word boundaries and
// case-insensitive, applied in mapping order; because the mapping loader
// keeps only the first record per source column, the first-listed mapping
// always wins. Columns absent from the mapping pass through unchanged.
func RewriteColumns(sql string, bindings []mapping.Binding) string {
	for _, b := range bindings {
		if b.TargetDimension == "" || strings.EqualFold(b.SourceColumn, b.TargetDimension) {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(b.SourceColumn) + `\b`)
		sql = re.ReplaceAllLiteralString(sql, b.TargetDimension)
	}
	return sql
}
