package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/tordrt/schemadoc/internal/schema"
)

// SQLServerClient manages the connection to Microsoft SQL Server
type SQLServerClient struct {
	db         *sql.DB
	schemaName string
}

// NewSQLServerClient creates a new SQL Server client from a sqlserver:// URL
func NewSQLServerClient(ctx context.Context, connString, schemaName string) (*SQLServerClient, error) {
	db, err := sql.Open("sqlserver", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLServerClient{db: db, schemaName: schemaName}, nil
}

// Close closes the database connection
func (c *SQLServerClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database connection
func (c *SQLServerClient) GetDB() *sql.DB {
	return c.db
}

// Extract implements Source
func (c *SQLServerClient) Extract(ctx context.Context, objects []string) ([]schema.Object, error) {
	return NewSQLServerExtractor(c, c.schemaName).ExtractSchema(ctx, objects)
}

func (c *SQLServerClient) qualified(object string) string {
	return quoteSQLServer(c.schemaName) + "." + quoteSQLServer(object)
}

// CountRows implements Source
func (c *SQLServerClient) CountRows(ctx context.Context, object string) (int64, error) {
	return countRows(ctx, c.db, "SELECT COUNT_BIG(*) FROM "+c.qualified(object))
}

// SampleRows implements Source
func (c *SQLServerClient) SampleRows(ctx context.Context, object string, limit int) (*Sample, error) {
	return sampleRows(ctx, c.db, fmt.Sprintf("SELECT TOP (%d) * FROM %s", sampleLimit(limit), c.qualified(object)))
}
