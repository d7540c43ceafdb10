// Package chunker splits cleaned page text into overlapping bounded-size
// segments for embedding and retrieval.
package chunker

import (
	"strings"
	"unicode"

	"documind/internal/model"
)

const (
	DefaultChunkSize = 200
	DefaultOverlap   = 50
)

// Chunker is a windowed boundary-preference splitter: it targets size runes
// per chunk and prefers to cut at a paragraph break, then a line break, then
// sentence-ending punctuation, falling back to a hard cut only when no
// boundary exists in the back half of the window.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 4
	}
	return &Chunker{size: size, overlap: overlap}
}

// ChunkPages produces the document's chunks in page order. Blank pages emit
// nothing; sequence numbers run 1-based across the whole document; chunk
// text is trimmed. Identical input always yields identical chunks.
func (c *Chunker) ChunkPages(filename string, docType model.DocType, pages []model.Page) []model.Chunk {
	var chunks []model.Chunk
	seq := 0
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		for _, piece := range c.Split(page.Text) {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			seq++
			chunks = append(chunks, model.Chunk{
				Filename: filename,
				DocType:  docType,
				Page:     page.Number,
				Sequence: seq,
				Text:     piece,
			})
		}
	}
	return chunks
}

// Split cuts text into overlapping segments of at most c.size runes.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}
		cut := boundary(runes, start, end)
		out = append(out, string(runes[start:cut]))
		next := cut - c.overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return out
}

// boundary returns the cut index for the window (start, end]. Boundaries in
// the front half of the window are rejected so chunks stay near the target
// size.
func boundary(runes []rune, start, end int) int {
	min := start + (end-start)/2

	for i := end - 1; i > min; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i > min; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i > min; i-- {
		if isSentenceEnd(runes[i]) && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
