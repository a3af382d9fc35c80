package types

import (
	"context"

	"github.com/docsage/docsage/internal/models"
)

// Core interfaces

// TextExtractor turns one source file into raw text. Implementations are
// registered per file extension.
type TextExtractor interface {
	Extract(path string) (string, error)
}

// Embedder maps texts to fixed-dimensionality vectors. Embed preserves input
// order and length; EmbedQuery may use a different prefix than bulk document
// embedding.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the persistent store of embedded chunks. Insert and
// DeleteBySource are mutually exclusive with each other and with Search;
// a Search never observes a partially applied batch.
type VectorIndex interface {
	Insert(entries []models.IndexEntry) error
	DeleteBySource(source string) (int, error)
	Search(query []float32, topN int) ([]models.SearchResult, error)
	Sources() (map[string]models.SourceStat, error)
	Count() (int, error)
	Dimension() int
	Persist() error
	Load() error
	Close()
}

// Generator produces an answer from a query and its retrieved context. When
// stream is non-nil it receives answer fragments as they arrive; the full
// answer is returned either way.
type Generator interface {
	Generate(ctx context.Context, query string, contexts []models.SearchResult, stream func(string)) (string, error)
}
