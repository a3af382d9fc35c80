package store

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/internal/types"
)

const snapshotVersion = 1

// FileIndexConfig configures the file-backed vector index.
type FileIndexConfig struct {
	PersistDir string
	FileName   string
}

// FileIndex is an exact-scan cosine-similarity index held in memory and
// persisted as a self-describing snapshot on disk. Reads run concurrently;
// Insert and DeleteBySource are exclusive, and each Insert batch is applied
// atomically so a Search never sees a partial document.
type FileIndex struct {
	config FileIndexConfig

	mu        sync.RWMutex
	dimension int
	entries   []models.IndexEntry
	norms     []float64
}

var _ types.VectorIndex = (*FileIndex)(nil)

// snapshot is the on-disk layout. Dimension and the entry slice make the
// file self-describing: Load needs no external metadata.
type snapshot struct {
	Version   int
	Dimension int
	Entries   []models.IndexEntry
}

func NewFileIndexWithConfig(config FileIndexConfig) (*FileIndex, error) {
	if config.PersistDir == "" {
		return nil, fmt.Errorf("persist directory is required")
	}
	if config.FileName == "" {
		config.FileName = "index.gob"
	}

	if err := os.MkdirAll(config.PersistDir, 0o755); err != nil {
		return nil, fmt.Errorf("create persist directory: %w", err)
	}

	return &FileIndex{config: config}, nil
}

func (fi *FileIndex) path() string {
	return filepath.Join(fi.config.PersistDir, fi.config.FileName)
}

// Insert appends a batch of entries. The index's dimensionality is
// established by the first entry ever inserted; any later disagreement
// fails the whole batch with ErrDimensionMismatch and changes nothing.
func (fi *FileIndex) Insert(entries []models.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	fi.mu.Lock()
	defer fi.mu.Unlock()

	dim := fi.dimension
	if dim == 0 {
		dim = len(entries[0].Embedding)
	}
	if dim == 0 {
		return fmt.Errorf("%w: entry %q has an empty embedding", types.ErrDimensionMismatch, entries[0].ID)
	}
	for _, e := range entries {
		if len(e.Embedding) != dim {
			return fmt.Errorf("%w: entry %q has %d dimensions, index has %d",
				types.ErrDimensionMismatch, e.ID, len(e.Embedding), dim)
		}
	}

	fi.dimension = dim
	for _, e := range entries {
		fi.entries = append(fi.entries, e)
		fi.norms = append(fi.norms, norm(e.Embedding))
	}
	return nil
}

// DeleteBySource removes every entry for one source document and returns
// how many were removed. Survivors keep their insertion order.
func (fi *FileIndex) DeleteBySource(source string) (int, error) {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	kept := fi.entries[:0]
	keptNorms := fi.norms[:0]
	removed := 0
	for i, e := range fi.entries {
		if e.Source == source {
			removed++
			continue
		}
		kept = append(kept, e)
		keptNorms = append(keptNorms, fi.norms[i])
	}
	fi.entries = kept
	fi.norms = keptNorms
	return removed, nil
}

// Search returns up to topN entries ranked by descending cosine similarity.
// Ties keep insertion order. Scores lie in [-1, 1].
func (fi *FileIndex) Search(query []float32, topN int) ([]models.SearchResult, error) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	if len(fi.entries) == 0 {
		return nil, nil
	}
	if len(query) != fi.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			types.ErrDimensionMismatch, len(query), fi.dimension)
	}
	if topN < 1 {
		return nil, fmt.Errorf("topN must be positive, got %d", topN)
	}

	queryNorm := norm(query)
	scores := make([]float32, len(fi.entries))
	order := make([]int, len(fi.entries))
	for i := range fi.entries {
		scores[i] = cosine(query, queryNorm, fi.entries[i].Embedding, fi.norms[i])
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topN > len(order) {
		topN = len(order)
	}
	results := make([]models.SearchResult, 0, topN)
	for _, i := range order[:topN] {
		results = append(results, models.SearchResult{Entry: fi.entries[i], Score: scores[i]})
	}
	return results, nil
}

func (fi *FileIndex) Sources() (map[string]models.SourceStat, error) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	stats := make(map[string]models.SourceStat)
	for _, e := range fi.entries {
		s := stats[e.Source]
		s.Entries++
		s.ModTime = time.Unix(0, e.SourceModTime)
		stats[e.Source] = s
	}
	return stats, nil
}

func (fi *FileIndex) Count() (int, error) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return len(fi.entries), nil
}

func (fi *FileIndex) Dimension() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return fi.dimension
}

// Persist writes the snapshot to a temporary file in the persist directory
// and atomically renames it over the target, so a crash mid-write leaves
// the previous snapshot intact.
func (fi *FileIndex) Persist() error {
	fi.mu.RLock()
	snap := snapshot{
		Version:   snapshotVersion,
		Dimension: fi.dimension,
		Entries:   fi.entries,
	}
	fi.mu.RUnlock()

	tmp, err := os.CreateTemp(fi.config.PersistDir, fi.config.FileName+".tmp*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), fi.path()); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load restores the snapshot from disk. A missing snapshot file leaves the
// index empty rather than failing, so first runs need no setup.
func (fi *FileIndex) Load() error {
	f, err := os.Open(fi.path())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	for _, e := range snap.Entries {
		if len(e.Embedding) != snap.Dimension {
			return fmt.Errorf("%w: snapshot entry %q has %d dimensions, header says %d",
				types.ErrDimensionMismatch, e.ID, len(e.Embedding), snap.Dimension)
		}
	}

	norms := make([]float64, len(snap.Entries))
	for i, e := range snap.Entries {
		norms[i] = norm(e.Embedding)
	}

	fi.mu.Lock()
	fi.dimension = snap.Dimension
	fi.entries = snap.Entries
	fi.norms = norms
	fi.mu.Unlock()
	return nil
}

func (fi *FileIndex) Close() {}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, normA float64, b []float32, normB float64) float32 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (normA * normB))
}
