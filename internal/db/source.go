// Package db connects to the source databases: it extracts their technical
// schema and runs the row-count and sample-row queries the annotation
// session delegates to it.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tordrt/schemadoc/internal/schema"
)

// DefaultSampleLimit is used when a non-positive limit is requested
const DefaultSampleLimit = 10

// Source is a connected database
type Source interface {
	// Extract reads the named objects, or every table and view when objects is empty
	Extract(ctx context.Context, objects []string) ([]schema.Object, error)
	CountRows(ctx context.Context, object string) (int64, error)
	SampleRows(ctx context.Context, object string, limit int) (*Sample, error)
	Close() error
}

// Sample is a display-only page of rows, values rendered as text
type Sample struct {
	Columns []string
	Rows    [][]string
}

// Open connects to the database behind a URL. schemaName selects the
// PostgreSQL or SQL Server schema (public / dbo by default) and the MySQL
// database (taken from the URL by default); SQLite ignores it.
func Open(ctx context.Context, databaseURL, schemaName string) (Source, error) {
	dbType, connStr, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	var src Source
	switch dbType {
	case "postgres":
		if schemaName == "" {
			schemaName = "public"
		}
		src, err = NewPostgresClient(ctx, connStr, schemaName)
	case "mysql":
		if schemaName == "" {
			schemaName, err = ParseDatabaseName(connStr)
			if err != nil {
				return nil, fmt.Errorf("failed to determine database name: %w (please specify the schema)", err)
			}
		}
		src, err = NewMySQLClient(ctx, connStr, schemaName)
	case "sqlite":
		src, err = NewSQLiteClient(ctx, connStr)
	case "sqlserver":
		if schemaName == "" {
			schemaName = "dbo"
		}
		src, err = NewSQLServerClient(ctx, connStr, schemaName)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// ParseDatabaseURL detects the database type and returns the driver connection string
func ParseDatabaseURL(url string) (dbType, connectionStr string, err error) {
	if url == "" {
		return "", "", fmt.Errorf("database URL is required")
	}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return "postgres", url, nil
	}

	if strings.HasPrefix(url, "mysql://") {
		// The MySQL driver takes a DSN without scheme
		return "mysql", strings.TrimPrefix(url, "mysql://"), nil
	}

	if strings.HasPrefix(url, "sqlite://") {
		return "sqlite", strings.TrimPrefix(url, "sqlite://"), nil
	}

	if strings.HasPrefix(url, "sqlserver://") {
		return "sqlserver", url, nil
	}

	return "", "", fmt.Errorf("invalid database URL scheme (must start with postgres://, mysql://, sqlite:// or sqlserver://)")
}

// selectObjects keeps the requested names from all (name -> kind), in request
// order, or returns every object sorted by name when none are requested.
func selectObjects(all map[string]schema.ObjectKind, order []string, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return order, nil
	}
	for _, name := range requested {
		if _, ok := all[name]; !ok {
			return nil, fmt.Errorf("object %q not found", name)
		}
	}
	return requested, nil
}

func kindFromTableType(tableType string) schema.ObjectKind {
	switch strings.ToUpper(tableType) {
	case "BASE TABLE", "TABLE":
		return schema.KindTable
	case "VIEW":
		return schema.KindView
	}
	return schema.KindUnknown
}

func countRows(ctx context.Context, db *sql.DB, query string) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func sampleRows(ctx context.Context, db *sql.DB, query string) (*Sample, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	sample := &Sample{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		sample.Rows = append(sample.Rows, formatRow(values))
	}
	return sample, rows.Err()
}

func formatRow(values []any) []string {
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = formatValue(v)
	}
	return row
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func sampleLimit(limit int) int {
	if limit <= 0 {
		return DefaultSampleLimit
	}
	return limit
}
