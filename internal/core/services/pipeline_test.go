package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psimdev/atlas-assistant/internal/adapters/driven/embedding/local"
	"github.com/psimdev/atlas-assistant/internal/adapters/driven/knowledge/filesystem"
	"github.com/psimdev/atlas-assistant/internal/adapters/driven/storage/sqlite"
	"github.com/psimdev/atlas-assistant/internal/postprocessors/chunker"
)

// Round trip through the real adapters: documents on disk, split, embedded,
// persisted in a sqlite snapshot, then retrieved by a natural question.
func TestIndexAndRetrieve_RoundTrip(t *testing.T) {
	knowledgeDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(knowledgeDir, "foo.md"),
		[]byte("# Producto\n\nProject Foo is the flagship product of the company."),
		0o600,
	))
	require.NoError(t, os.WriteFile(
		filepath.Join(knowledgeDir, "vacaciones.md"),
		[]byte("# Vacaciones\n\nLas solicitudes de vacaciones se aprueban en el portal interno."),
		0o600,
	))

	source := filesystem.NewSource(knowledgeDir)
	defer source.Close()

	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	embedder := local.NewEmbeddingService(0)
	indexer := NewIndexerService(source, store, embedder, chunker.New(), 0)

	ctx := context.Background()
	require.NoError(t, indexer.BuildIfStale(ctx, false))
	assert.True(t, store.Exists())

	retriever := NewRetrieverService(store, embedder)
	results, err := retriever.Retrieve(ctx, "What is Foo?", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Contains(t, results[0].Content, "flagship",
		"the Foo document must rank above the unrelated one")
	assert.Equal(t, "foo.md", results[0].DocumentID)
}
