package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/internal/types"
	"github.com/docsage/docsage/pkg/extractor"
	"github.com/docsage/docsage/pkg/splitter"
)

// Status is the terminal state of one document after a batch run.
type Status string

const (
	StatusIndexed Status = "indexed"
	StatusSkipped Status = "skipped" // already indexed, unchanged
	StatusFailed  Status = "failed"
)

// Result records what happened to one discovered document.
type Result struct {
	Source   string
	Status   Status
	Chunks   int
	Replaced bool // stale entries were deleted before indexing
	Err      error
}

// Summary aggregates a whole batch run.
type Summary struct {
	Indexed  int
	Skipped  int
	Replaced int
	Failed   int
	Results  []Result
}

// Config configures an ingestion run.
type Config struct {
	SourceDir    string
	ChunkSize    int
	ChunkOverlap int
	Workers      int
	OnProgress   func(source string) // called as each document finishes
}

// Pipeline drives documents from discovery through extraction, chunking,
// embedding and indexing. Documents are processed in parallel; index
// mutation is serialized, and one document's failure never aborts the rest.
// The lone fatal error is a dimension mismatch, which means the index and
// the embedding model disagree and nothing more can be safely written.
type Pipeline struct {
	config   Config
	registry *extractor.Registry
	splitter *splitter.Splitter
	embedder types.Embedder
	index    types.VectorIndex

	writeMu sync.Mutex
}

func NewWithConfig(config Config, registry *extractor.Registry, embedder types.Embedder, index types.VectorIndex) (*Pipeline, error) {
	if config.SourceDir == "" {
		return nil, fmt.Errorf("source directory is required")
	}
	if config.Workers < 1 {
		config.Workers = 4
	}

	split, err := splitter.New(config.ChunkSize, config.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		config:   config,
		registry: registry,
		splitter: split,
		embedder: embedder,
		index:    index,
	}, nil
}

// Run processes every supported document under the source directory and
// persists the index exactly once at the end of the batch.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	paths, err := p.discover()
	if err != nil {
		return nil, err
	}

	prior, err := p.index.Sources()
	if err != nil {
		return nil, fmt.Errorf("read indexed sources: %w", err)
	}

	results := make([]Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res := p.process(ctx, path, prior[path])
			results[i] = res
			if p.config.OnProgress != nil {
				p.config.OnProgress(path)
			}
			if errors.Is(res.Err, types.ErrDimensionMismatch) {
				return res.Err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := p.index.Persist(); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}

	summary := &Summary{Results: results}
	for _, res := range results {
		switch res.Status {
		case StatusIndexed:
			summary.Indexed++
			if res.Replaced {
				summary.Replaced++
			}
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		}
	}
	return summary, nil
}

// discover walks the source directory collecting files whose extension has
// a registered extractor. Paths come back sorted for deterministic runs.
func (p *Pipeline) discover() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(p.config.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if p.registry.Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan source directory %s: %w", p.config.SourceDir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// process takes one document through the state machine:
// Discovered -> Extracted -> Chunked -> Embedded -> Indexed, or Failed.
func (p *Pipeline) process(ctx context.Context, path string, prior models.SourceStat) Result {
	res := Result{Source: path}

	info, err := os.Stat(path)
	if err != nil {
		return fail(res, &types.ExtractionError{Path: path, Err: err})
	}

	// Unchanged since last ingestion: nothing to do.
	if prior.Entries > 0 && prior.ModTime.UnixNano() == info.ModTime().UnixNano() {
		res.Status = StatusSkipped
		res.Chunks = prior.Entries
		return res
	}

	ext, err := p.registry.Lookup(path)
	if err != nil {
		return fail(res, &types.ExtractionError{Path: path, Err: err})
	}

	text, err := ext.Extract(path)
	if err != nil {
		return fail(res, &types.ExtractionError{Path: path, Err: err})
	}

	chunks := p.splitter.Split(text, path)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fail(res, err)
	}
	if len(vectors) != len(chunks) {
		return fail(res, &types.EmbeddingError{
			Err: fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)),
		})
	}

	entries := make([]models.IndexEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = models.IndexEntry{
			ID:            models.EntryID(path, c.Index),
			Source:        path,
			ChunkIndex:    c.Index,
			Content:       c.Text,
			Start:         c.Start,
			End:           c.End,
			SourceModTime: info.ModTime().UnixNano(),
			Embedding:     vectors[i],
		}
	}

	// Single-writer discipline across backends: delete-then-insert for one
	// document is one critical section, so replace-on-change is atomic with
	// respect to other writers.
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if prior.Entries > 0 {
		if _, err := p.index.DeleteBySource(path); err != nil {
			return fail(res, fmt.Errorf("delete stale entries: %w", err))
		}
		res.Replaced = true
	}
	if err := p.index.Insert(entries); err != nil {
		return fail(res, err)
	}

	res.Status = StatusIndexed
	res.Chunks = len(entries)
	return res
}

func fail(res Result, err error) Result {
	res.Status = StatusFailed
	res.Err = err
	return res
}
