package retrieval

import (
	"context"
	"fmt"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/internal/types"
)

// Engine answers "which chunks are most relevant to this query". It embeds
// the query and returns the index's ranking unmodified.
type Engine struct {
	embedder types.Embedder
	index    types.VectorIndex
	topN     int
}

func New(embedder types.Embedder, index types.VectorIndex, topN int) (*Engine, error) {
	if topN < 1 {
		return nil, fmt.Errorf("topN must be positive, got %d", topN)
	}
	return &Engine{embedder: embedder, index: index, topN: topN}, nil
}

// Retrieve returns the top-N entries ranked by similarity to the query.
// Querying an unpopulated index fails with ErrEmptyIndex so callers can
// tell the user to run ingestion, rather than answering from nothing.
func (e *Engine) Retrieve(ctx context.Context, query string) ([]models.SearchResult, error) {
	count, err := e.index.Count()
	if err != nil {
		return nil, fmt.Errorf("read index size: %w", err)
	}
	if count == 0 {
		return nil, types.ErrEmptyIndex
	}

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	return e.index.Search(vector, e.topN)
}
