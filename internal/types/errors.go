package types

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch means an embedding disagrees with the index's
	// established dimensionality. This is unrecoverable for the whole run:
	// it indicates index corruption or a model swap mid-index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyIndex is returned when querying an index with zero entries.
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrUnsupportedFormat is returned for file extensions with no
	// registered extractor.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// ExtractionError wraps a failure to read or parse one source document.
// It is isolated per document; ingestion of other documents continues.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError wraps an embedding model failure: the model is unreachable
// or an input exceeds the size limit. Aborts the affected document only.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embedding: %v", e.Err) }

func (e *EmbeddingError) Unwrap() error { return e.Err }

// GenerationError wraps a generation model failure. Surfaced per query; the
// interactive loop continues.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generation: %v", e.Err) }

func (e *GenerationError) Unwrap() error { return e.Err }
