package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tordrt/schemadoc/internal/schema"
)

// MySQLExtractor handles schema extraction from MySQL
type MySQLExtractor struct {
	client     *MySQLClient
	schemaName string
}

// NewMySQLExtractor creates a new MySQL schema extractor
func NewMySQLExtractor(client *MySQLClient, schemaName string) *MySQLExtractor {
	return &MySQLExtractor{
		client:     client,
		schemaName: schemaName,
	}
}

// ExtractSchema extracts the specified tables and views.
// If objects is empty, extracts every table and view in the database.
func (e *MySQLExtractor) ExtractSchema(ctx context.Context, objects []string) ([]schema.Object, error) {
	kinds, order, err := e.getObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	names, err := selectObjects(kinds, order, objects)
	if err != nil {
		return nil, err
	}

	extracted := make([]schema.Object, 0, len(names))
	for _, name := range names {
		obj, err := e.extractObject(ctx, name, kinds[name])
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", name, err)
		}
		extracted = append(extracted, *obj)
	}
	return extracted, nil
}

func (e *MySQLExtractor) getObjects(ctx context.Context) (map[string]schema.ObjectKind, []string, error) {
	query := `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	kinds := make(map[string]schema.ObjectKind)
	var order []string
	for rows.Next() {
		var name, tableType string
		if err := rows.Scan(&name, &tableType); err != nil {
			return nil, nil, err
		}
		kinds[name] = kindFromTableType(tableType)
		order = append(order, name)
	}
	return kinds, order, rows.Err()
}

func (e *MySQLExtractor) extractObject(ctx context.Context, name string, kind schema.ObjectKind) (*schema.Object, error) {
	obj := &schema.Object{Name: name, Kind: kind}

	columns, err := e.extractColumns(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	obj.Columns = columns

	if kind != schema.KindTable {
		return obj, nil
	}

	pk, err := e.extractPrimaryKey(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	obj.PrimaryKey = pk

	relations, err := e.extractRelations(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	obj.Relations = relations

	return obj, nil
}

func (e *MySQLExtractor) extractColumns(ctx context.Context, name string) ([]schema.Column, error) {
	query := `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable,
			c.column_default,
			CASE WHEN EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
					AND tc.table_name = kcu.table_name
				WHERE tc.table_schema = ?
					AND tc.table_name = ?
					AND tc.constraint_type = 'UNIQUE'
					AND kcu.column_name = c.column_name
			) THEN true ELSE false END as is_unique,
			c.ordinal_position
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, name, e.schemaName, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable string
		var defaultVal sql.NullString

		if err := rows.Scan(&col.Name, &col.Type, &nullable, &defaultVal, &col.IsUnique, &col.Position); err != nil {
			return nil, err
		}

		col.Nullable = nullable == "YES"
		if defaultVal.Valid {
			col.DefaultValue = &defaultVal.String
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (e *MySQLExtractor) extractPrimaryKey(ctx context.Context, name string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var colName string
		if err := rows.Scan(&colName); err != nil {
			return nil, err
		}
		pk = append(pk, colName)
	}
	return pk, rows.Err()
}

func (e *MySQLExtractor) extractRelations(ctx context.Context, name string) ([]schema.Relation, error) {
	query := `
		SELECT
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		var rel schema.Relation
		if err := rows.Scan(&rel.SourceColumn, &rel.TargetTable, &rel.TargetColumn); err != nil {
			return nil, err
		}
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}
