package llm

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/time/rate"

	"github.com/docsage/docsage/internal/types"
)

// EmbedderConfig represents the configuration for an embedding provider.
type EmbedderConfig struct {
	Model          string
	BaseURL        string // Ollama server URL
	DocPrefix      string // prepended to document chunks
	QueryPrefix    string // prepended to queries
	MaxInputChars  int
	RequestsPerSec float64
	BatchSize      int
}

// Embedder maps chunk texts and queries to fixed-dimensionality vectors via
// a local Ollama embedding model. Oversized inputs are rejected, never
// silently truncated.
type Embedder struct {
	config  EmbedderConfig
	llm     *ollama.LLM
	limiter *rate.Limiter
}

var _ types.Embedder = (*Embedder)(nil)

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.MaxInputChars == 0 {
		config.MaxInputChars = 8000
	}
	if config.RequestsPerSec == 0 {
		config.RequestsPerSec = 10
	}
	if config.BatchSize == 0 {
		config.BatchSize = 8
	}

	emb, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	return &Embedder{
		config:  config,
		llm:     emb,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSec), 1),
	}, nil
}

// Embed returns one vector per input text, preserving order and length.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	for i, text := range texts {
		if n := utf8.RuneCountInString(text); n > e.config.MaxInputChars {
			return nil, &types.EmbeddingError{
				Err: fmt.Errorf("text %d is %d chars, exceeds the %d char limit", i, n, e.config.MaxInputChars),
			}
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := make([]string, 0, end-start)
		for _, text := range texts[start:end] {
			batch = append(batch, e.config.DocPrefix+text)
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, &types.EmbeddingError{Err: err}
		}

		vectors, err := e.llm.CreateEmbedding(ctx, batch)
		if err != nil {
			return nil, &types.EmbeddingError{Err: err}
		}
		if len(vectors) != len(batch) {
			return nil, &types.EmbeddingError{
				Err: fmt.Errorf("model returned %d vectors for %d texts", len(vectors), len(batch)),
			}
		}
		out = append(out, vectors...)
	}

	return out, nil
}

// EmbedQuery embeds a single query string with the query prefix. Some models
// (nomic-embed-text among them) embed queries and documents differently.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if n := utf8.RuneCountInString(text); n > e.config.MaxInputChars {
		return nil, &types.EmbeddingError{
			Err: fmt.Errorf("query is %d chars, exceeds the %d char limit", n, e.config.MaxInputChars),
		}
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, &types.EmbeddingError{Err: err}
	}

	vectors, err := e.llm.CreateEmbedding(ctx, []string{e.config.QueryPrefix + text})
	if err != nil {
		return nil, &types.EmbeddingError{Err: err}
	}
	if len(vectors) != 1 {
		return nil, &types.EmbeddingError{
			Err: fmt.Errorf("model returned %d vectors for one query", len(vectors)),
		}
	}

	return vectors[0], nil
}
