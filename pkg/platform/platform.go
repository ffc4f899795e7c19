// Package platform renders formatted model SQL into the stored-procedure
// form of a target execution platform.
//
// Each supported platform is a distinct enum variant with its own
// procedure template; selection is by exact tag match and unknown tags
// are rejected up front rather than silently defaulted.
package platform

import (
	"fmt"
	"strings"
)

// Platform identifies a supported target execution platform.
type Platform int

// Supported platforms.
const (
	Unknown Platform = iota
	SQLServer
	Snowflake
	Databricks
	Fabric
	Redshift
)

var names = map[Platform]string{
	SQLServer:  "sqlserver",
	Snowflake:  "snowflake",
	Databricks: "databricks",
	Fabric:     "fabric",
	Redshift:   "redshift",
}

// String returns the canonical platform tag.
func (p Platform) String() string {
	if n, ok := names[p]; ok {
		return n
	}
	return "unknown"
}

// SparkBased reports whether the platform executes on a Spark runtime,
// which affects notebook kernel selection.
func (p Platform) SparkBased() bool {
	return p == Databricks || p == Fabric
}

// FormatterDialect returns the SQL dialect tag handed to the external
// formatter for this platform.
func (p Platform) FormatterDialect() string {
	switch p {
	case SQLServer, Fabric:
		return "tsql"
	case Snowflake:
		return "snowflake"
	case Databricks:
		return "databricks"
	case Redshift:
		return "redshift"
	default:
		return "ansi"
	}
}

// All returns every supported platform in a stable order.
func All() []Platform {
	return []Platform{SQLServer, Snowflake, Databricks, Fabric, Redshift}
}

// TemplateError indicates an unsupported platform tag or a rendering
// failure. It is fatal for the affected model.
type TemplateError struct {
	Platform string
	Reason   string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("platform %q: %s", e.Platform, e.Reason)
}

// Parse resolves a platform tag. Matching is case-insensitive and accepts
// the common aliases used by profile files. Unknown tags return a
// *TemplateError so they can be rejected before any model is processed.
func Parse(tag string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "sqlserver", "sql server", "mssql":
		return SQLServer, nil
	case "snowflake":
		return Snowflake, nil
	case "databricks":
		return Databricks, nil
	case "fabric":
		return Fabric, nil
	case "redshift":
		return Redshift, nil
	default:
		supported := make([]string, 0, len(names))
		for _, p := range All() {
			supported = append(supported, p.String())
		}
		return Unknown, &TemplateError{
			Platform: tag,
			Reason:   fmt.Sprintf("unsupported platform (supported: %s)", strings.Join(supported, ", ")),
		}
	}
}
