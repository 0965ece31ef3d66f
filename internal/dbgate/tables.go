package dbgate

import (
	"regexp"
	"strings"
)

// Table-name extraction is a fixed set of patterns, not a SQL parser. It is
// a defense-in-depth layer behind the assumption that hosted extension code
// is buggy rather than adversarial; statements it cannot parse still fail
// later at the driver.
var tableExprs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bCREATE\s+(?:TEMP(?:ORARY)?\s+)?TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?["']?([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`(?i)\bDROP\s+TABLE\s+(?:IF\s+EXISTS\s+)?["']?([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`(?i)\bALTER\s+TABLE\s+["']?([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`(?i)\bINSERT\s+(?:OR\s+[A-Za-z]+\s+)?INTO\s+["']?([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`(?i)\bUPDATE\s+(?:OR\s+[A-Za-z]+\s+)?["']?([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`(?i)\bDELETE\s+FROM\s+["']?([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`(?i)\bFROM\s+["']?([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`(?i)\bJOIN\s+["']?([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`(?i)\bCREATE\s+(?:UNIQUE\s+)?INDEX\s+(?:IF\s+NOT\s+EXISTS\s+)?["']?[A-Za-z_][A-Za-z0-9_]*["']?\s+ON\s+["']?([A-Za-z_][A-Za-z0-9_]*)`),
}

// sqlKeywords are identifiers the FROM/JOIN patterns can capture that are
// not table names (subselects, pragmas-as-functions).
var sqlKeywords = map[string]bool{
	"select": true,
	"pragma": true,
}

// extractTables collects every candidate table identifier referenced by the
// statement, lowercased and deduplicated.
func extractTables(sql string) []string {
	seen := make(map[string]bool)
	var tables []string
	for _, re := range tableExprs {
		for _, m := range re.FindAllStringSubmatch(sql, -1) {
			name := strings.ToLower(m[1])
			if name == "" || sqlKeywords[name] || seen[name] {
				continue
			}
			seen[name] = true
			tables = append(tables, name)
		}
	}
	return tables
}

// isPragma reports whether the statement is a PRAGMA, which is allowed
// unconditionally.
func isPragma(sql string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "PRAGMA")
}

// isSystemTable reports whether the identifier belongs to the database
// engine itself.
func isSystemTable(table string) bool {
	return strings.HasPrefix(table, "sqlite_")
}
