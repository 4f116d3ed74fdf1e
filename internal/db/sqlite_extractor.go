package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tordrt/schemadoc/internal/schema"
)

// untypedColumn is reported for view columns computed from expressions,
// which SQLite leaves without a declared type
const untypedColumn = "ANY"

// SQLiteExtractor handles schema extraction from SQLite
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{
		client: client,
	}
}

// ExtractSchema extracts the specified tables and views.
// If objects is empty, extracts every table and view in the database.
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, objects []string) ([]schema.Object, error) {
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

func (e *SQLiteExtractor) getObjects(ctx context.Context) (map[string]schema.ObjectKind, []string, error) {
	query := `
		SELECT name, type
		FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	kinds := make(map[string]schema.ObjectKind)
	var order []string
	for rows.Next() {
		var name, objType string
		if err := rows.Scan(&name, &objType); err != nil {
			return nil, nil, err
		}
		kinds[name] = kindFromTableType(objType)
		order = append(order, name)
	}
	return kinds, order, rows.Err()
}

func (e *SQLiteExtractor) extractObject(ctx context.Context, name string, kind schema.ObjectKind) (*schema.Object, error) {
	obj := &schema.Object{Name: name, Kind: kind}

	columns, pk, err := e.extractColumns(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	obj.Columns = columns
	obj.PrimaryKey = pk

	if kind != schema.KindTable {
		return obj, nil
	}

	relations, err := e.extractRelations(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	obj.Relations = relations

	unique, err := e.uniqueColumns(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract unique constraints: %w", err)
	}
	for i := range obj.Columns {
		obj.Columns[i].IsUnique = unique[obj.Columns[i].Name] && !obj.IsPrimaryKey(obj.Columns[i].Name)
	}

	return obj, nil
}

// extractColumns returns the columns and the primary key in key order
func (e *SQLiteExtractor) extractColumns(ctx context.Context, name string) ([]schema.Column, []string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, "SELECT cid, name, type, \"notnull\", dflt_value, pk FROM pragma_table_info(?)", name)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	pkOrder := make(map[int]string)

	for rows.Next() {
		var cid, notNull, pk int
		var colName, colType string
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &colName, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, err
		}

		if colType == "" {
			colType = untypedColumn
		}
		col := schema.Column{
			Name:     colName,
			Type:     colType,
			Nullable: notNull == 0,
			Position: cid + 1,
		}
		if defaultValue.Valid {
			col.DefaultValue = &defaultValue.String
		}
		if pk > 0 {
			pkOrder[pk] = colName
		}

		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var pkColumns []string
	for i := 1; i <= len(pkOrder); i++ {
		pkColumns = append(pkColumns, pkOrder[i])
	}
	return columns, pkColumns, nil
}

// uniqueColumns finds columns covered by a single-column unique index
func (e *SQLiteExtractor) uniqueColumns(ctx context.Context, name string) (map[string]bool, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, "SELECT name FROM pragma_index_list(?) WHERE \"unique\" = 1", name)
	if err != nil {
		return nil, err
	}

	var indexes []string
	for rows.Next() {
		var idx string
		if err := rows.Scan(&idx); err != nil {
			_ = rows.Close()
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	unique := make(map[string]bool)
	for _, idx := range indexes {
		var columns []string
		indexRows, err := e.client.GetDB().QueryContext(ctx, "SELECT name FROM pragma_index_info(?)", idx)
		if err != nil {
			return nil, err
		}
		for indexRows.Next() {
			var colName sql.NullString
			if err := indexRows.Scan(&colName); err != nil {
				_ = indexRows.Close()
				return nil, err
			}
			if colName.Valid {
				columns = append(columns, colName.String)
			}
		}
		_ = indexRows.Close()

		if len(columns) == 1 {
			unique[columns[0]] = true
		}
	}
	return unique, nil
}

func (e *SQLiteExtractor) extractRelations(ctx context.Context, name string) ([]schema.Relation, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, "SELECT \"table\", \"from\", \"to\" FROM pragma_foreign_key_list(?) ORDER BY id, seq", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		var targetTable, fromCol string
		var toCol sql.NullString

		if err := rows.Scan(&targetTable, &fromCol, &toCol); err != nil {
			return nil, err
		}

		relations = append(relations, schema.Relation{
			SourceColumn: fromCol,
			TargetTable:  targetTable,
			TargetColumn: toCol.String,
		})
	}
	return relations, rows.Err()
}
