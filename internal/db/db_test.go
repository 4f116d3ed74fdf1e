package db

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemadoc/internal/schema"
)

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantType string
		wantConn string
		wantErr  bool
	}{
		{name: "postgres", url: "postgres://u:p@localhost/db", wantType: "postgres", wantConn: "postgres://u:p@localhost/db"},
		{name: "postgresql", url: "postgresql://localhost/db", wantType: "postgres", wantConn: "postgresql://localhost/db"},
		{name: "mysql", url: "mysql://u:p@tcp(localhost:3306)/erp", wantType: "mysql", wantConn: "u:p@tcp(localhost:3306)/erp"},
		{name: "sqlite", url: "sqlite://data/erp.db", wantType: "sqlite", wantConn: "data/erp.db"},
		{name: "sqlserver", url: "sqlserver://sa:pw@localhost:1433?database=erp", wantType: "sqlserver", wantConn: "sqlserver://sa:pw@localhost:1433?database=erp"},
		{name: "empty", url: "", wantErr: true},
		{name: "unknown scheme", url: "firebird://localhost/erp.fdb", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbType, conn, err := ParseDatabaseURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, dbType)
			assert.Equal(t, tt.wantConn, conn)
		})
	}
}

func TestParseDatabaseName(t *testing.T) {
	name, err := ParseDatabaseName("u:p@tcp(localhost:3306)/erp?parseTime=true")
	require.NoError(t, err)
	assert.Equal(t, "erp", name)

	_, err = ParseDatabaseName("u:p@tcp(localhost:3306)/")
	assert.Error(t, err)
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, `"CLIENTES"`, quoteANSI("CLIENTES"))
	assert.Equal(t, `"a""b"`, quoteANSI(`a"b`))
	assert.Equal(t, "`a``b`", quoteMySQL("a`b"))
	assert.Equal(t, "[a]]b]", quoteSQLServer("a]b"))
}

func TestSelectObjects(t *testing.T) {
	kinds := map[string]schema.ObjectKind{"A": schema.KindTable, "B": schema.KindView}
	order := []string{"A", "B"}

	names, err := selectObjects(kinds, order, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)

	names, err = selectObjects(kinds, order, []string{"B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, names)

	_, err = selectObjects(kinds, order, []string{"C"})
	assert.Error(t, err)
}

func TestKindFromTableType(t *testing.T) {
	assert.Equal(t, schema.KindTable, kindFromTableType("BASE TABLE"))
	assert.Equal(t, schema.KindTable, kindFromTableType("table"))
	assert.Equal(t, schema.KindView, kindFromTableType("view"))
	assert.Equal(t, schema.KindUnknown, kindFromTableType("SYSTEM VIEW"))
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "NULL", formatValue(nil))
	assert.Equal(t, "abc", formatValue([]byte("abc")))
	assert.Equal(t, "2024-03-01T10:00:00Z", formatValue(ts))
	assert.Equal(t, "42", formatValue(int64(42)))
	assert.Equal(t, DefaultSampleLimit, sampleLimit(0))
	assert.Equal(t, 3, sampleLimit(3))
}

func TestSQLServerType(t *testing.T) {
	valid := func(n int64) sql.NullInt64 { return sql.NullInt64{Int64: n, Valid: true} }
	none := sql.NullInt64{}

	assert.Equal(t, "nvarchar(100)", sqlServerType("nvarchar", valid(100), none, none))
	assert.Equal(t, "varchar(max)", sqlServerType("varchar", valid(-1), none, none))
	assert.Equal(t, "decimal(15,2)", sqlServerType("decimal", none, valid(15), valid(2)))
	assert.Equal(t, "int", sqlServerType("int", none, valid(10), valid(0)))
}

func TestPostgresTypeNormalization(t *testing.T) {
	n := 100
	assert.Equal(t, "varchar(100)", normalizePostgresType("character varying", "varchar", &n))
	assert.Equal(t, "timestamptz", normalizePostgresType("timestamp with time zone", "timestamptz", nil))
	assert.Equal(t, "integer[]", normalizePostgresType("ARRAY", "_int4", nil))
	assert.Equal(t, "status_enum", normalizePostgresType("USER-DEFINED", "status_enum", nil))
}
