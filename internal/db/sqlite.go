package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tordrt/schemadoc/internal/schema"
)

// SQLiteClient manages the connection to SQLite
type SQLiteClient struct {
	db *sql.DB
}

// NewSQLiteClient creates a new SQLite client
func NewSQLiteClient(ctx context.Context, path string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteClient{db: db}, nil
}

// Close closes the database connection
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database connection
func (c *SQLiteClient) GetDB() *sql.DB {
	return c.db
}

// Extract implements Source
func (c *SQLiteClient) Extract(ctx context.Context, objects []string) ([]schema.Object, error) {
	return NewSQLiteExtractor(c).ExtractSchema(ctx, objects)
}

// CountRows implements Source
func (c *SQLiteClient) CountRows(ctx context.Context, object string) (int64, error) {
	return countRows(ctx, c.db, "SELECT COUNT(*) FROM "+quoteANSI(object))
}

// SampleRows implements Source
func (c *SQLiteClient) SampleRows(ctx context.Context, object string, limit int) (*Sample, error) {
	return sampleRows(ctx, c.db, fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteANSI(object), sampleLimit(limit)))
}
