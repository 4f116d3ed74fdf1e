package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/schemadoc/internal/schema"
)

// PostgresClient manages the connection to PostgreSQL
type PostgresClient struct {
	conn       *pgx.Conn
	schemaName string
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(ctx context.Context, connString, schemaName string) (*PostgresClient, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{conn: conn, schemaName: schemaName}, nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	return c.conn.Close(context.Background())
}

// GetConnection returns the underlying connection
func (c *PostgresClient) GetConnection() *pgx.Conn {
	return c.conn
}

// Extract implements Source
func (c *PostgresClient) Extract(ctx context.Context, objects []string) ([]schema.Object, error) {
	return NewPostgresExtractor(c, c.schemaName).ExtractSchema(ctx, objects)
}

func (c *PostgresClient) qualified(object string) string {
	return pgx.Identifier{c.schemaName, object}.Sanitize()
}

// CountRows implements Source
func (c *PostgresClient) CountRows(ctx context.Context, object string) (int64, error) {
	var n int64
	if err := c.conn.QueryRow(ctx, "SELECT COUNT(*) FROM "+c.qualified(object)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SampleRows implements Source
func (c *PostgresClient) SampleRows(ctx context.Context, object string, limit int) (*Sample, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", c.qualified(object), sampleLimit(limit))
	rows, err := c.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sample := &Sample{}
	for _, fd := range rows.FieldDescriptions() {
		sample.Columns = append(sample.Columns, fd.Name)
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		sample.Rows = append(sample.Rows, formatRow(values))
	}
	return sample, rows.Err()
}
