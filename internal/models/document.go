package models

import (
	"strconv"
	"time"
)

// Document is a unit of ingested content. It lives only for the duration of
// ingestion; what survives are the IndexEntries cut from it.
type Document struct {
	Source  string // path of the source file, unique per index
	Format  string // lowercase extension, e.g. ".pdf"
	Content string
	ModTime time.Time
}

// Chunk is a contiguous slice of a document's text.
type Chunk struct {
	Text   string
	Index  int // position within the source document, 0-based
	Start  int // rune offset of the first character in the document
	End    int // rune offset one past the last character
	Source string
}

// IndexEntry is the persisted unit: one chunk plus its embedding.
type IndexEntry struct {
	ID            string
	Source        string
	ChunkIndex    int
	Content       string
	Start         int
	End           int
	SourceModTime int64 // unix nanos of the source file at ingestion time
	Embedding     []float32
}

// SearchResult pairs an entry with its similarity score.
type SearchResult struct {
	Entry IndexEntry
	Score float32
}

// SourceStat summarises what the index holds for one source document.
type SourceStat struct {
	Entries int
	ModTime time.Time
}

// EntryID builds the deterministic entry identifier. Stable IDs are what let
// re-ingestion replace entries instead of duplicating them.
func EntryID(source string, chunkIndex int) string {
	return source + "_" + strconv.Itoa(chunkIndex)
}
