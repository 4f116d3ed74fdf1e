package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/tordrt/schemadoc/internal/schema"
)

// MySQLClient manages the connection to MySQL
type MySQLClient struct {
	db         *sql.DB
	schemaName string
}

// NewMySQLClient creates a new MySQL client
func NewMySQLClient(ctx context.Context, connString, schemaName string) (*MySQLClient, error) {
	db, err := sql.Open("mysql", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLClient{db: db, schemaName: schemaName}, nil
}

// ParseDatabaseName returns the database named in a MySQL DSN
func ParseDatabaseName(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("no database in connection string")
	}
	return cfg.DBName, nil
}

// Close closes the database connection
func (c *MySQLClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database connection
func (c *MySQLClient) GetDB() *sql.DB {
	return c.db
}

// Extract implements Source
func (c *MySQLClient) Extract(ctx context.Context, objects []string) ([]schema.Object, error) {
	return NewMySQLExtractor(c, c.schemaName).ExtractSchema(ctx, objects)
}

func (c *MySQLClient) qualified(object string) string {
	return quoteMySQL(c.schemaName) + "." + quoteMySQL(object)
}

// CountRows implements Source
func (c *MySQLClient) CountRows(ctx context.Context, object string) (int64, error) {
	return countRows(ctx, c.db, "SELECT COUNT(*) FROM "+c.qualified(object))
}

// SampleRows implements Source
func (c *MySQLClient) SampleRows(ctx context.Context, object string, limit int) (*Sample, error) {
	return sampleRows(ctx, c.db, fmt.Sprintf("SELECT * FROM %s LIMIT %d", c.qualified(object), sampleLimit(limit)))
}
