//go:build integration
// +build integration

package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemadoc/internal/schema"
)

var expectedTables = []string{"order_items", "orders", "products", "users"}

// verifyTablesExist checks that the schema holds exactly the expected tables
func verifyTablesExist(t *testing.T, s *schema.Schema, expected []string) {
	t.Helper()

	var tables []string
	for _, obj := range s.ByKind(schema.KindTable) {
		tables = append(tables, obj.Name)
	}
	assert.ElementsMatch(t, expected, tables)
}

// findObject fails the test when name is missing
func findObject(t *testing.T, s *schema.Schema, name string) schema.Object {
	t.Helper()

	obj, ok := s.Lookup(name)
	require.True(t, ok, "object %s not found in schema", name)
	return obj
}

// verifyColumns checks that expected columns exist in order
func verifyColumns(t *testing.T, obj schema.Object, expected []string) {
	t.Helper()

	assert.Equal(t, expected, obj.ColumnNames())
	for i, col := range obj.Columns {
		assert.Equal(t, i+1, col.Position, "position of %s.%s", obj.Name, col.Name)
	}
}

// verifyUniqueConstraint checks that a column has a unique constraint
func verifyUniqueConstraint(t *testing.T, s *schema.Schema, objectName, columnName string) {
	t.Helper()

	col, ok := findObject(t, s, objectName).Column(columnName)
	require.True(t, ok, "column %s.%s not found", objectName, columnName)
	assert.True(t, col.IsUnique, "expected %s.%s to be unique", objectName, columnName)
}

// verifyForeignKey checks that a foreign key relationship exists
func verifyForeignKey(t *testing.T, s *schema.Schema, objectName, sourceColumn, targetTable string) {
	t.Helper()

	for _, rel := range findObject(t, s, objectName).Relations {
		if rel.TargetTable == targetTable && rel.SourceColumn == sourceColumn {
			return
		}
	}
	t.Errorf("expected foreign key %s.%s → %s not found", objectName, sourceColumn, targetTable)
}

// verifyView checks that a view was classified as such and has no keys
func verifyView(t *testing.T, s *schema.Schema, name string) {
	t.Helper()

	view := findObject(t, s, name)
	assert.Equal(t, schema.KindView, view.Kind)
	assert.Empty(t, view.PrimaryKey)
	assert.Empty(t, view.Relations)
}
