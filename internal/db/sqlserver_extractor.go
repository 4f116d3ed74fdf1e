package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/schemadoc/internal/schema"
)

// SQLServerExtractor handles schema extraction from SQL Server
type SQLServerExtractor struct {
	client     *SQLServerClient
	schemaName string
}

// NewSQLServerExtractor creates a new SQL Server schema extractor
func NewSQLServerExtractor(client *SQLServerClient, schemaName string) *SQLServerExtractor {
	return &SQLServerExtractor{
		client:     client,
		schemaName: schemaName,
	}
}

// ExtractSchema extracts the specified tables and views.
// If objects is empty, extracts every table and view in the schema.
func (e *SQLServerExtractor) ExtractSchema(ctx context.Context, objects []string) ([]schema.Object, error) {
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

func (e *SQLServerExtractor) getObjects(ctx context.Context) (map[string]schema.ObjectKind, []string, error) {
	query := `
		SELECT TABLE_NAME, TABLE_TYPE
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE IN ('BASE TABLE', 'VIEW')
		ORDER BY TABLE_NAME
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

func (e *SQLServerExtractor) extractObject(ctx context.Context, name string, kind schema.ObjectKind) (*schema.Object, error) {
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

// sqlServerType renders a column type with its length or precision
func sqlServerType(dataType string, charMaxLength, precision, scale sql.NullInt64) string {
	switch strings.ToLower(dataType) {
	case "varchar", "nvarchar", "char", "nchar", "varbinary", "binary":
		if !charMaxLength.Valid {
			return dataType
		}
		if charMaxLength.Int64 == -1 {
			return dataType + "(max)"
		}
		return fmt.Sprintf("%s(%d)", dataType, charMaxLength.Int64)
	case "decimal", "numeric":
		if precision.Valid && scale.Valid {
			return fmt.Sprintf("%s(%d,%d)", dataType, precision.Int64, scale.Int64)
		}
	}
	return dataType
}

func (e *SQLServerExtractor) extractColumns(ctx context.Context, name string) ([]schema.Column, error) {
	query := `
		SELECT
			c.COLUMN_NAME,
			c.DATA_TYPE,
			c.IS_NULLABLE,
			c.COLUMN_DEFAULT,
			c.CHARACTER_MAXIMUM_LENGTH,
			CAST(c.NUMERIC_PRECISION AS BIGINT),
			CAST(c.NUMERIC_SCALE AS BIGINT),
			c.ORDINAL_POSITION,
			CASE WHEN EXISTS (
				SELECT 1 FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
				JOIN INFORMATION_SCHEMA.CONSTRAINT_COLUMN_USAGE ccu
					ON tc.CONSTRAINT_NAME = ccu.CONSTRAINT_NAME
					AND tc.TABLE_SCHEMA = ccu.TABLE_SCHEMA
				WHERE tc.TABLE_SCHEMA = @p1
					AND tc.TABLE_NAME = @p2
					AND tc.CONSTRAINT_TYPE = 'UNIQUE'
					AND ccu.COLUMN_NAME = c.COLUMN_NAME
			) THEN CAST(1 AS BIT) ELSE CAST(0 AS BIT) END
		FROM INFORMATION_SCHEMA.COLUMNS c
		WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
		ORDER BY c.ORDINAL_POSITION
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var dataType, nullable string
		var defaultVal sql.NullString
		var charMaxLength, precision, scale sql.NullInt64

		if err := rows.Scan(&col.Name, &dataType, &nullable, &defaultVal, &charMaxLength, &precision, &scale, &col.Position, &col.IsUnique); err != nil {
			return nil, err
		}

		col.Type = sqlServerType(dataType, charMaxLength, precision, scale)
		col.Nullable = nullable == "YES"
		if defaultVal.Valid {
			col.DefaultValue = &defaultVal.String
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (e *SQLServerExtractor) extractPrimaryKey(ctx context.Context, name string) ([]string, error) {
	query := `
		SELECT kcu.COLUMN_NAME
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
			ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
			AND tc.TABLE_NAME = kcu.TABLE_NAME
		WHERE tc.TABLE_SCHEMA = @p1
			AND tc.TABLE_NAME = @p2
			AND tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		ORDER BY kcu.ORDINAL_POSITION
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

func (e *SQLServerExtractor) extractRelations(ctx context.Context, name string) ([]schema.Relation, error) {
	query := `
		SELECT pc.name, rt.name, rc.name
		FROM sys.foreign_key_columns fkc
		JOIN sys.tables t ON t.object_id = fkc.parent_object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
		JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		WHERE s.name = @p1 AND t.name = @p2
		ORDER BY fkc.constraint_object_id, fkc.constraint_column_id
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
