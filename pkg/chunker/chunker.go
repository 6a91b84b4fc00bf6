// Package chunker splits document text into overlapping fixed-size windows
// with stable identifiers. Chunking is a pure function of the input text and
// policy: identical inputs always produce identical chunks.
package chunker

import (
	"errors"
	"fmt"

	"github.com/foliohq/shelf/pkg/store"
)

// ErrInvalidPolicy is returned when chunking parameters cannot produce
// forward progress (non-positive chunk size, negative overlap, or overlap
// that is not strictly smaller than the chunk size).
var ErrInvalidPolicy = errors.New("invalid chunking policy")

const (
	// DefaultChunkSize is the default maximum characters per chunk.
	DefaultChunkSize = 800

	// DefaultOverlap is the default number of characters shared between
	// consecutive chunks.
	DefaultOverlap = 100
)

// Policy holds the chunking configuration.
type Policy struct {
	// ChunkSize is the maximum number of characters per chunk. Must be > 0.
	ChunkSize int

	// Overlap is the number of characters shared between consecutive
	// chunks. Must satisfy 0 <= Overlap < ChunkSize.
	Overlap int
}

// DefaultPolicy returns the default chunking policy.
func DefaultPolicy() Policy {
	return Policy{ChunkSize: DefaultChunkSize, Overlap: DefaultOverlap}
}

// Validate checks the policy invariants. A policy where the overlap is not
// strictly smaller than the chunk size would never advance and is rejected
// eagerly.
func (p Policy) Validate() error {
	if p.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidPolicy, p.ChunkSize)
	}
	if p.Overlap < 0 {
		return fmt.Errorf("%w: overlap must be non-negative, got %d", ErrInvalidPolicy, p.Overlap)
	}
	if p.Overlap >= p.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidPolicy, p.Overlap, p.ChunkSize)
	}
	return nil
}

// Piece is one window of chunked text with its zero-based sequence index.
type Piece struct {
	Content string
	Index   int
}

// Chunk walks the text producing windows of at most p.ChunkSize characters.
// Each subsequent window starts ChunkSize-Overlap characters after the
// previous window's start, so consecutive windows share exactly Overlap
// trailing/leading characters. The final window may be shorter and is still
// emitted. Empty text yields no pieces.
//
// Windows are measured in runes so multi-byte text never splits a character.
func Chunk(text string, p Policy) ([]Piece, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	stride := p.ChunkSize - p.Overlap

	var pieces []Piece
	for start := 0; start < len(runes); start += stride {
		end := start + p.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		pieces = append(pieces, Piece{
			Content: string(runes[start:end]),
			Index:   len(pieces),
		})

		// The walk terminates once the remaining text is fully covered;
		// without this a trailing window of pure overlap would be emitted.
		if end == len(runes) {
			break
		}
	}

	return pieces, nil
}

// ChunkDocument chunks text and lifts the pieces into store.DocumentChunk
// records with stable IDs derived from the document ID and sequence index.
// Embeddings are left unset; the ingestion pipeline populates them.
func ChunkDocument(documentID, fileName, text string, p Policy) ([]store.DocumentChunk, error) {
	pieces, err := Chunk(text, p)
	if err != nil {
		return nil, err
	}

	chunks := make([]store.DocumentChunk, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, store.DocumentChunk{
			ID:         store.ChunkID(documentID, piece.Index),
			DocumentID: documentID,
			FileName:   fileName,
			Content:    piece.Content,
			Index:      piece.Index,
		})
	}

	return chunks, nil
}
