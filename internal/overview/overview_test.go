package overview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemadoc/internal/metadata"
	"github.com/tordrt/schemadoc/internal/rowcount"
	"github.com/tordrt/schemadoc/internal/schema"
)

type fakeCounts struct {
	records map[string]rowcount.Record
	lastRun *time.Time
}

func (f fakeCounts) Get(object string) (rowcount.Record, bool) {
	rec, ok := f.records[object]
	return rec, ok
}

func (f fakeCounts) LastRun(string) (time.Time, bool) {
	if f.lastRun == nil {
		return time.Time{}, false
	}
	return *f.lastRun, true
}

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Object{
		{Name: "CLIENTES", Kind: schema.KindTable, Columns: []schema.Column{
			{Name: "ID", Type: "INTEGER"},
			{Name: "NOME", Type: "VARCHAR(100)"},
			{Name: "EMAIL", Type: "VARCHAR(200)"},
		}},
		{Name: "VAZIA", Kind: schema.KindTable},
		{Name: "TMP_IMPORT", Kind: schema.KindUnknown, Columns: []schema.Column{{Name: "X", Type: "INTEGER"}}},
	})
	require.NoError(t, err)
	return s
}

func find(t *testing.T, sum Summary, name string) ObjectSummary {
	t.Helper()
	for _, o := range sum.Objects {
		if o.Name == name {
			return o
		}
	}
	t.Fatalf("object %s not in summary", name)
	return ObjectSummary{}
}

func TestSummarize(t *testing.T) {
	store := metadata.New()
	store.SetObjectDescription("CLIENTES", "Cadastro de clientes", metadata.ProvenanceHuman)
	store.SetColumnDescription("CLIENTES", "NOME", "Nome completo", metadata.ProvenanceHuman)
	store.SetColumnDescription("CLIENTES", "EMAIL", "Endereço de contato", metadata.ProvenanceHeuristic)
	store.SetColumnNotes("CLIENTES", "EMAIL", "sempre minúsculas")
	store.SetColumnDescription("CLIENTES", "FAX", "Removida do schema", metadata.ProvenanceHuman)
	store.SetObjectDescription("ANTIGA", "Tabela removida", metadata.ProvenanceHuman)
	require.NoError(t, store.Reclassify("TMP_IMPORT", schema.KindView))

	run := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	counts := fakeCounts{
		records: map[string]rowcount.Record{"CLIENTES": {Count: 42, MeasuredAt: run}},
		lastRun: &run,
	}

	sum := Summarize(testSchema(t), store, counts)

	names := make([]string, len(sum.Objects))
	for i, o := range sum.Objects {
		names[i] = o.Name
	}
	assert.Equal(t, []string{"ANTIGA", "CLIENTES", "TMP_IMPORT", "VAZIA"}, names)

	clientes := find(t, sum, "CLIENTES")
	assert.Equal(t, 3, clientes.TotalColumns)
	assert.Equal(t, 2, clientes.DescribedColumns)
	assert.Equal(t, 1, clientes.NotedColumns)
	assert.Equal(t, 67, clientes.DescribedPercent)
	assert.Equal(t, 33, clientes.NotedPercent)
	assert.Equal(t, []string{"FAX"}, clientes.OrphanColumns)
	require.NotNil(t, clientes.RowCount)
	assert.Equal(t, int64(42), *clientes.RowCount)
	assert.True(t, clientes.RowCountAt.Equal(run))

	antiga := find(t, sum, "ANTIGA")
	assert.True(t, antiga.Stale)
	assert.Equal(t, 0, antiga.TotalColumns)
	assert.Equal(t, 0, antiga.DescribedPercent)
	assert.Nil(t, antiga.RowCount)

	assert.Equal(t, schema.KindView, find(t, sum, "TMP_IMPORT").Kind)
	assert.Equal(t, 0, find(t, sum, "VAZIA").DescribedPercent)

	assert.Equal(t, 4, sum.TotalObjects)
	assert.Equal(t, 2, sum.DescribedObjects)
	assert.Equal(t, 1, sum.StaleObjects)
	assert.Equal(t, 4, sum.TotalColumns)
	assert.Equal(t, 50, sum.DescribedPercent)
	require.NotNil(t, sum.LastFullRecompute)
	assert.True(t, sum.LastFullRecompute.Equal(run))
}

func TestSummarizeBounds(t *testing.T) {
	store := metadata.New()
	for _, col := range []string{"ID", "NOME", "EMAIL", "EXTRA1", "EXTRA2"} {
		store.SetColumnDescription("CLIENTES", col, "texto", metadata.ProvenanceHuman)
	}

	sum := Summarize(testSchema(t), store, nil)
	for _, o := range sum.Objects {
		assert.LessOrEqual(t, o.DescribedColumns, o.TotalColumns, o.Name)
		assert.GreaterOrEqual(t, o.DescribedPercent, 0)
		assert.LessOrEqual(t, o.DescribedPercent, 100)
		if o.TotalColumns == 0 {
			assert.Equal(t, 0, o.DescribedPercent)
		}
	}
	assert.Equal(t, 100, find(t, sum, "CLIENTES").DescribedPercent)
	assert.Nil(t, sum.LastFullRecompute)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		part, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{5, 5, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.part, tt.total), "%d/%d", tt.part, tt.total)
	}
}
