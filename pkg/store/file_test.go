package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/internal/types"
	"github.com/docsage/docsage/pkg/store"
)

func newTestIndex(t *testing.T) *store.FileIndex {
	t.Helper()
	idx, err := store.NewFileIndexWithConfig(store.FileIndexConfig{
		PersistDir: t.TempDir(),
	})
	require.NoError(t, err)
	return idx
}

func entry(source string, chunkIndex int, content string, embedding []float32) models.IndexEntry {
	return models.IndexEntry{
		ID:            models.EntryID(source, chunkIndex),
		Source:        source,
		ChunkIndex:    chunkIndex,
		Content:       content,
		SourceModTime: time.Now().UnixNano(),
		Embedding:     embedding,
	}
}

func TestInsertAndSearch(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Insert([]models.IndexEntry{
		entry("a.txt", 0, "north", []float32{0, 1}),
		entry("a.txt", 1, "east", []float32{1, 0}),
		entry("b.txt", 0, "northeast", []float32{1, 1}),
	}))

	results, err := idx.Search([]float32{0, 1}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "north", results[0].Entry.Content)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
	assert.Equal(t, "northeast", results[1].Entry.Content)

	// Descending scores, all within the cosine range.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	for _, r := range results {
		assert.GreaterOrEqual(t, float64(r.Score), -1.0-1e-6)
		assert.LessOrEqual(t, float64(r.Score), 1.0+1e-6)
	}
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Insert([]models.IndexEntry{
		entry("a.txt", 0, "first", []float32{1, 0}),
		entry("a.txt", 1, "second", []float32{2, 0}), // same direction, same cosine
		entry("a.txt", 2, "third", []float32{0, 1}),
	}))

	results, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Entry.Content)
	assert.Equal(t, "second", results[1].Entry.Content)
	assert.Equal(t, "third", results[2].Entry.Content)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInsertDimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Insert([]models.IndexEntry{
		entry("a.txt", 0, "ok", []float32{1, 0, 0}),
	}))

	err := idx.Insert([]models.IndexEntry{
		entry("b.txt", 0, "ok", []float32{1, 0, 0}),
		entry("b.txt", 1, "bad", []float32{1, 0}),
	})
	require.ErrorIs(t, err, types.ErrDimensionMismatch)

	// The failed batch must not be partially applied.
	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Insert([]models.IndexEntry{
		entry("a.txt", 0, "ok", []float32{1, 0, 0}),
	}))

	_, err := idx.Search([]float32{1, 0}, 1)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestDeleteBySource(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Insert([]models.IndexEntry{
		entry("a.txt", 0, "a0", []float32{1, 0}),
		entry("a.txt", 1, "a1", []float32{0, 1}),
		entry("b.txt", 0, "b0", []float32{1, 1}),
	}))

	removed, err := idx.DeleteBySource("a.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	removed, err = idx.DeleteBySource("missing.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestSources(t *testing.T) {
	idx := newTestIndex(t)

	mod := time.Now()
	a0 := entry("a.txt", 0, "a0", []float32{1, 0})
	a0.SourceModTime = mod.UnixNano()
	a1 := entry("a.txt", 1, "a1", []float32{0, 1})
	a1.SourceModTime = mod.UnixNano()
	b0 := entry("b.txt", 0, "b0", []float32{1, 1})

	require.NoError(t, idx.Insert([]models.IndexEntry{a0, a1, b0}))

	stats, err := idx.Sources()
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 2, stats["a.txt"].Entries)
	assert.Equal(t, mod.UnixNano(), stats["a.txt"].ModTime.UnixNano())
	assert.Equal(t, 1, stats["b.txt"].Entries)
}

func TestPersistAndLoad(t *testing.T) {
	dir := t.TempDir()

	idx, err := store.NewFileIndexWithConfig(store.FileIndexConfig{PersistDir: dir})
	require.NoError(t, err)

	entries := []models.IndexEntry{
		entry("a.txt", 0, "alpha", []float32{1, 0, 0}),
		entry("a.txt", 1, "beta", []float32{0, 1, 0}),
	}
	require.NoError(t, idx.Insert(entries))
	require.NoError(t, idx.Persist())

	// A fresh index restores dimensionality and entries from the snapshot
	// alone.
	restored, err := store.NewFileIndexWithConfig(store.FileIndexConfig{PersistDir: dir})
	require.NoError(t, err)
	require.NoError(t, restored.Load())

	assert.Equal(t, 3, restored.Dimension())
	count, err := restored.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := restored.Search([]float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha", results[0].Entry.Content)
}

func TestLoadMissingSnapshot(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Load())

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestPersistAfterReingestion(t *testing.T) {
	dir := t.TempDir()

	idx, err := store.NewFileIndexWithConfig(store.FileIndexConfig{PersistDir: dir})
	require.NoError(t, err)

	require.NoError(t, idx.Insert([]models.IndexEntry{
		entry("a.txt", 0, "old", []float32{1, 0}),
	}))
	require.NoError(t, idx.Persist())

	// Replace the source's entries and persist again over the same file.
	_, err = idx.DeleteBySource("a.txt")
	require.NoError(t, err)
	require.NoError(t, idx.Insert([]models.IndexEntry{
		entry("a.txt", 0, "new", []float32{0, 1}),
		entry("a.txt", 1, "newer", []float32{1, 1}),
	}))
	require.NoError(t, idx.Persist())

	restored, err := store.NewFileIndexWithConfig(store.FileIndexConfig{PersistDir: dir})
	require.NoError(t, err)
	require.NoError(t, restored.Load())

	count, err := restored.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stats, err := restored.Sources()
	require.NoError(t, err)
	assert.Equal(t, 2, stats["a.txt"].Entries)
}
