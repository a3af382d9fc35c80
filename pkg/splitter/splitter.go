package splitter

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/docsage/docsage/internal/models"
)

// Splitter cuts document text into overlapping chunks of at most ChunkSize
// runes. Cut points prefer a paragraph break, then a sentence end, then a
// word boundary inside the chunk window, and fall back to a hard cut when
// the window contains none.
type Splitter struct {
	chunkSize int
	overlap   int
}

func New(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must satisfy 0 <= overlap < chunk size, got overlap=%d chunk size=%d", overlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split produces the ordered chunks of text for one source document.
// Empty or whitespace-only text yields no chunks. Consecutive chunks share
// exactly s.overlap runes across the cut.
func (s *Splitter) Split(text, source string) []models.Chunk {
	runes := []rune(text)
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}

	var chunks []models.Chunk
	pos := 0
	for pos < len(runes) {
		end := pos + s.chunkSize
		cut := len(runes)
		if end < len(runes) {
			cut = s.findCut(runes, pos, end)
		}

		piece := string(runes[pos:cut])
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, models.Chunk{
				Text:   piece,
				Index:  len(chunks),
				Start:  pos,
				End:    cut,
				Source: source,
			})
		}

		if cut >= len(runes) {
			break
		}
		pos = cut - s.overlap
	}

	return chunks
}

// findCut picks the cut position in (pos, end]. Any accepted boundary must
// lie beyond pos+overlap so the next chunk start always advances.
func (s *Splitter) findCut(runes []rune, pos, end int) int {
	min := pos + s.overlap + 1

	if cut := lastParagraphBreak(runes, min, end); cut > 0 {
		return cut
	}
	if cut := lastSentenceEnd(runes, min, end); cut > 0 {
		return cut
	}
	if cut := lastWordBoundary(runes, min, end); cut > 0 {
		return cut
	}
	return end
}

// lastParagraphBreak returns the position just after the last blank line in
// [min, end), or 0 when there is none.
func lastParagraphBreak(runes []rune, min, end int) int {
	for i := end - 1; i >= min; i-- {
		if runes[i-1] == '\n' && runes[i] == '\n' {
			return i + 1
		}
	}
	return 0
}

// lastSentenceEnd returns the position just after the last sentence-ending
// punctuation that is followed by whitespace, or 0.
func lastSentenceEnd(runes []rune, min, end int) int {
	for i := end - 1; i >= min; i-- {
		if isSentenceEnd(runes[i-1]) && unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return 0
}

// lastWordBoundary returns the position just after the last whitespace rune
// in [min, end), or 0.
func lastWordBoundary(runes []rune, min, end int) int {
	for i := end - 1; i >= min; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return 0
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
