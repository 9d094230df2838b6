// Package chunker splits normalized book text into fixed-size windows.
package chunker

import "fmt"

// Default window geometry. A 1000-rune window with 100 runes of overlap
// keeps sentences from being orphaned at window boundaries.
const (
	DefaultSize    = 1000
	DefaultOverlap = 100
)

// Chunk is one window of book text. Index is dense and zero-based in
// text order; it is the only ordering signal the index carries.
type Chunk struct {
	Index int
	Text  string
}

// Chunker slides a fixed-size window across text with a fixed stride.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker with window size and overlap in runes.
// Requires size > 0 and 0 <= overlap < size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must satisfy 0 <= overlap < size, got %d with size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split windows the text into chunks with stride size-overlap.
// The final chunk may be shorter than the window. Empty text yields an
// empty slice. Slicing is rune-based so multi-byte characters are never
// cut mid-sequence.
func (c *Chunker) Split(text string) []Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	stride := c.size - c.overlap

	var chunks []Chunk
	for start := 0; start < len(runes); start += stride {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}

	return chunks
}
