package db

import "strings"

// quoteANSI quotes an identifier with double quotes (SQLite, PostgreSQL)
func quoteANSI(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteMySQL quotes an identifier with backticks
func quoteMySQL(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// quoteSQLServer quotes an identifier with brackets
func quoteSQLServer(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
