package suggest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemadoc/internal/metadata"
)

func TestSuggestFromOtherObject(t *testing.T) {
	store := metadata.New()
	store.SetColumnDescription("FORNECEDORES", "EMAIL", "Endereço de contato", metadata.ProvenanceHuman)

	e := NewEngine(store)

	s, ok := e.Suggest("CLIENTES", "EMAIL")
	require.True(t, ok)
	assert.Equal(t, "Endereço de contato", s.Text)
	assert.Equal(t, "FORNECEDORES", s.SourceObject)

	_, ok = e.Suggest("CLIENTES", "NOME")
	assert.False(t, ok)
}

func TestSuggestIsDeterministic(t *testing.T) {
	store := metadata.New()
	store.SetColumnDescription("ZONAS", "CODIGO", "Código da zona", metadata.ProvenanceHuman)
	store.SetColumnDescription("BANCOS", "CODIGO", "Código do banco", metadata.ProvenanceAI)
	store.SetColumnDescription("MARCAS", "CODIGO", "Código da marca", metadata.ProvenanceHuman)

	for i := 0; i < 20; i++ {
		s, ok := NewEngine(store).Suggest("PRODUTOS", "CODIGO")
		require.True(t, ok)
		assert.Equal(t, "BANCOS", s.SourceObject)
		assert.Equal(t, "Código do banco", s.Text)
	}
}

func TestSuggestNeverOverwrites(t *testing.T) {
	store := metadata.New()
	store.SetColumnDescription("FORNECEDORES", "EMAIL", "Endereço de contato", metadata.ProvenanceHuman)
	store.SetColumnDescription("CLIENTES", "EMAIL", "E-mail para notas fiscais", metadata.ProvenanceHuman)

	e := NewEngine(store)
	_, ok := e.Suggest("CLIENTES", "EMAIL")
	assert.False(t, ok)
}

func TestHeuristicTextDoesNotPropagate(t *testing.T) {
	store := metadata.New()
	store.SetColumnDescription("CLIENTES", "EMAIL", "Endereço de contato", metadata.ProvenanceHeuristic)

	e := NewEngine(store)
	_, ok := e.Suggest("FORNECEDORES", "EMAIL")
	assert.False(t, ok)
}

func TestSuggestIgnoresSameObject(t *testing.T) {
	store := metadata.New()
	store.SetColumnDescription("CLIENTES", "EMAIL", "", metadata.ProvenanceHuman)

	e := NewEngine(store)
	_, ok := e.Suggest("CLIENTES", "EMAIL")
	assert.False(t, ok)
}

func TestObserveKeepsIndexCurrent(t *testing.T) {
	store := metadata.New()
	e := NewEngine(store)

	store.SetColumnDescription("FORNECEDORES", "EMAIL", "Endereço de contato", metadata.ProvenanceHuman)
	_, ok := e.Suggest("CLIENTES", "EMAIL")
	assert.False(t, ok, "index is only refreshed through Observe")

	e.Observe("FORNECEDORES", "EMAIL")
	s, ok := e.Suggest("CLIENTES", "EMAIL")
	require.True(t, ok)
	assert.Equal(t, "Endereço de contato", s.Text)

	store.SetColumnDescription("FORNECEDORES", "EMAIL", "", metadata.ProvenanceHuman)
	e.Observe("FORNECEDORES", "EMAIL")
	_, ok = e.Suggest("CLIENTES", "EMAIL")
	assert.False(t, ok)
}

func TestForget(t *testing.T) {
	store := metadata.New()
	store.SetColumnDescription("ANTIGA", "EMAIL", "Endereço de contato", metadata.ProvenanceHuman)
	e := NewEngine(store)

	e.Forget("ANTIGA")
	_, ok := e.Suggest("CLIENTES", "EMAIL")
	assert.False(t, ok)
}

func TestSuggestSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	store := metadata.New()
	store.SetColumnDescription("FORNECEDORES", "EMAIL", "Endereço de contato", metadata.ProvenanceHuman)
	store.SetColumnDescription("FORNECEDORES", "NOME", "Razão social", metadata.ProvenanceAI)
	require.NoError(t, store.Save(path))

	first := NewEngine(store).SuggestAll("CLIENTES", []string{"ID", "NOME", "EMAIL"})

	reloaded, err := metadata.Load(path)
	require.NoError(t, err)
	second := NewEngine(reloaded).SuggestAll("CLIENTES", []string{"ID", "NOME", "EMAIL"})

	assert.Equal(t, first, second)
	assert.Len(t, second, 2)
}
