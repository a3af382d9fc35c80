package ingest_test

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/internal/types"
	"github.com/docsage/docsage/pkg/extractor"
	"github.com/docsage/docsage/pkg/ingest"
	"github.com/docsage/docsage/pkg/store"
)

// fakeEmbedder hashes words into a fixed-size bag-of-words vector, so equal
// texts embed identically and similar texts score high, with no model.
type fakeEmbedder struct{}

const fakeDim = 32

func hashVector(text string) []float32 {
	v := make([]float32, fakeDim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%fakeDim]++
	}
	return v
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return hashVector(text), nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newPipeline(t *testing.T, sourceDir string, index types.VectorIndex) *ingest.Pipeline {
	t.Helper()
	p, err := ingest.NewWithConfig(ingest.Config{
		SourceDir:    sourceDir,
		ChunkSize:    80,
		ChunkOverlap: 10,
		Workers:      2,
	}, extractor.NewRegistry(), &fakeEmbedder{}, index)
	require.NoError(t, err)
	return p
}

func newIndex(t *testing.T) types.VectorIndex {
	t.Helper()
	idx, err := store.NewFileIndexWithConfig(store.FileIndexConfig{PersistDir: t.TempDir()})
	require.NoError(t, err)
	return idx
}

func TestPipelineIngestsDirectory(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "notes.txt", strings.Repeat("The quick brown fox jumps over the lazy dog. ", 10))
	writeFile(t, src, "guide.md", "# Guide\n\nSome *useful* guidance about the system goes here.")
	writeFile(t, src, "nested/data.csv", "name,role\nalice,admin\nbob,viewer\n")
	writeFile(t, src, "ignored.xyz", "not a supported format")

	idx := newIndex(t)
	summary, err := newPipeline(t, src, idx).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Indexed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Greater(t, count, 0)

	stats, err := idx.Sources()
	require.NoError(t, err)
	assert.Len(t, stats, 3)
}

func TestPipelineIsIdempotent(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "a.txt", strings.Repeat("alpha beta gamma delta. ", 20))
	writeFile(t, src, "b.txt", strings.Repeat("epsilon zeta eta theta. ", 20))

	idx := newIndex(t)
	p := newPipeline(t, src, idx)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	countBefore, err := idx.Count()
	require.NoError(t, err)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Indexed)
	assert.Equal(t, 2, summary.Skipped)

	countAfter, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, countBefore, countAfter)
}

func TestPipelineReplacesChangedDocument(t *testing.T) {
	src := t.TempDir()
	changed := writeFile(t, src, "a.txt", strings.Repeat("original content about sailing ships. ", 20))
	writeFile(t, src, "b.txt", strings.Repeat("unrelated content about gardening. ", 20))

	idx := newIndex(t)
	p := newPipeline(t, src, idx)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	statsBefore, err := idx.Sources()
	require.NoError(t, err)
	bEntries := statsBefore[filepath.Join(src, "b.txt")].Entries

	// Rewrite one document with different content and a newer timestamp.
	require.NoError(t, os.WriteFile(changed, []byte(strings.Repeat("rewritten content about locomotives. ", 25)), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(changed, future, future))

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Indexed)
	assert.Equal(t, 1, summary.Replaced)
	assert.Equal(t, 1, summary.Skipped)

	stats, err := idx.Sources()
	require.NoError(t, err)

	// No stale entries for the changed source, untouched source unchanged.
	var replaced ingest.Result
	for _, res := range summary.Results {
		if res.Source == changed {
			replaced = res
		}
	}
	assert.Equal(t, ingest.StatusIndexed, replaced.Status)
	assert.Equal(t, replaced.Chunks, stats[changed].Entries)
	assert.Equal(t, bEntries, stats[filepath.Join(src, "b.txt")].Entries)
}

func TestPipelineIsolatesFailures(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "good.txt", strings.Repeat("perfectly fine text. ", 20))
	writeFile(t, src, "broken.pdf", "this is not a pdf at all")

	idx := newIndex(t)
	summary, err := newPipeline(t, src, idx).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Indexed)
	assert.Equal(t, 1, summary.Failed)

	var failed ingest.Result
	for _, res := range summary.Results {
		if res.Status == ingest.StatusFailed {
			failed = res
		}
	}
	assert.Contains(t, failed.Source, "broken.pdf")

	var extractionErr *types.ExtractionError
	assert.ErrorAs(t, failed.Err, &extractionErr)
}

func TestPipelineDimensionMismatchAbortsRun(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "a.txt", strings.Repeat("some text to index. ", 20))

	idx := newIndex(t)
	// Seed the index with a different dimensionality than the embedder's.
	require.NoError(t, idx.Insert([]models.IndexEntry{{
		ID:        "seed_0",
		Source:    "seed",
		Content:   "seed",
		Embedding: []float32{1, 2, 3},
	}}))

	_, err := newPipeline(t, src, idx).Run(context.Background())
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestPipelinePersistsOnce(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "a.txt", strings.Repeat("persisted text about rivers and bridges. ", 15))

	persistDir := t.TempDir()
	idx, err := store.NewFileIndexWithConfig(store.FileIndexConfig{PersistDir: persistDir})
	require.NoError(t, err)

	_, err = newPipeline(t, src, idx).Run(context.Background())
	require.NoError(t, err)

	// A fresh index loads what the run persisted.
	restored, err := store.NewFileIndexWithConfig(store.FileIndexConfig{PersistDir: persistDir})
	require.NoError(t, err)
	require.NoError(t, restored.Load())

	count, err := restored.Count()
	require.NoError(t, err)
	assert.Greater(t, count, 0)
}
