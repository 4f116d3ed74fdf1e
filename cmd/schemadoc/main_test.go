package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tordrt/schemadoc/internal/config"
	"github.com/tordrt/schemadoc/internal/db"
	"github.com/tordrt/schemadoc/internal/overview"
	"github.com/tordrt/schemadoc/internal/schema"
)

func TestParseTableList(t *testing.T) {
	tests := []struct {
		name       string
		tablesStr  string
		wantTables []string
	}{
		{
			name:       "single table",
			tablesStr:  "users",
			wantTables: []string{"users"},
		},
		{
			name:       "multiple tables",
			tablesStr:  "users,posts,comments",
			wantTables: []string{"users", "posts", "comments"},
		},
		{
			name:       "tables with spaces",
			tablesStr:  "users, posts, comments",
			wantTables: []string{"users", "posts", "comments"},
		},
		{
			name:       "trailing comma",
			tablesStr:  "users,",
			wantTables: []string{"users"},
		},
		{
			name:       "empty string",
			tablesStr:  "",
			wantTables: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTables, parseTableList(tt.tablesStr))
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	t.Cleanup(func() {
		schemaPath, dbURL, logLevel = "", "", ""
	})

	cfg := &config.Config{}
	cfg.Files.Schema = "schema.json"
	cfg.Files.Metadata = "schema_metadata.json"
	cfg.Log.Level = "info"

	schemaPath = "other.json"
	dbURL = "sqlite://erp.db"
	logLevel = "debug"
	applyOverrides(cfg)

	assert.Equal(t, "other.json", cfg.Files.Schema)
	assert.Equal(t, "schema_metadata.json", cfg.Files.Metadata, "unset flags keep configured values")
	assert.Equal(t, "sqlite://erp.db", cfg.Database.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func testSummary() overview.Summary {
	n := int64(500)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return overview.Summary{
		Objects: []overview.ObjectSummary{
			{Name: "CLIENTES", Kind: schema.KindTable, HasDescription: true, TotalColumns: 2, DescribedColumns: 1, DescribedPercent: 50, RowCount: &n, RowCountAt: &at},
			{Name: "DROPPED", Stale: true, HasDescription: true},
		},
		TotalObjects:     2,
		DescribedObjects: 2,
		StaleObjects:     1,
		TotalColumns:     2,
		DescribedColumns: 1,
		DescribedPercent: 50,
	}
}

func TestWriteOverviewFormats(t *testing.T) {
	sum := testSummary()

	var text bytes.Buffer
	require.NoError(t, writeOverview(&text, sum, "text"))
	assert.Contains(t, text.String(), "Columns described: 1/2 (50%)")

	var md bytes.Buffer
	require.NoError(t, writeOverview(&md, sum, "markdown"))
	assert.Contains(t, md.String(), "| CLIENTES | TABLE |")

	var js bytes.Buffer
	require.NoError(t, writeOverview(&js, sum, "json"))
	var decoded overview.Summary
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.TotalObjects)
	require.NotNil(t, decoded.Objects[0].RowCount)
	assert.Equal(t, int64(500), *decoded.Objects[0].RowCount)

	var ym bytes.Buffer
	require.NoError(t, writeOverview(&ym, sum, "yaml"))
	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &generic))
	assert.Equal(t, 1, generic["stale_objects"])

	assert.Error(t, writeOverview(&text, sum, "html"))
}

func TestFilterStale(t *testing.T) {
	sum := filterStale(testSummary())
	require.Len(t, sum.Objects, 1)
	assert.Equal(t, "DROPPED", sum.Objects[0].Name)
	assert.Equal(t, 2, sum.TotalObjects, "totals still describe every object")
}

func TestWriteSample(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSample(&buf, &db.Sample{
		Columns: []string{"ID", "NOME"},
		Rows:    [][]string{{"1", "Maria"}, {"2", "NULL"}},
	}))
	assert.Contains(t, buf.String(), "ID  NOME")
	assert.Contains(t, buf.String(), "2   NULL")
	assert.Contains(t, buf.String(), "(2 rows)")
}

func TestLabelled(t *testing.T) {
	assert.Equal(t, "Clientes [ai]", labelled("Clientes", "ai"))
	assert.Equal(t, "Clientes", labelled("Clientes", ""))
	assert.Equal(t, "", labelled("", "human"))
}
