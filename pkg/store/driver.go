// Package store defines the document store boundary: chunk persistence plus
// the two query modes (vector similarity and keyword match) that hybrid
// retrieval is built on.
package store

import (
	"context"
	"fmt"
)

// DocumentChunk is a bounded slice of a source document's text, with its
// position among siblings and (once ingestion has embedded it) a
// fixed-dimension vector representation.
type DocumentChunk struct {
	// ID uniquely identifies the chunk. It is derived from the source
	// document ID and the chunk's sequence index, so re-chunking the same
	// document produces the same IDs.
	ID string

	// DocumentID identifies the source document this chunk was cut from.
	DocumentID string

	// FileName is the human-readable source reference (file name or title).
	FileName string

	// Content is the chunk text. Never empty for a stored chunk.
	Content string

	// Index is the zero-based position of this chunk among its siblings.
	// Consecutive indices share the chunking policy's overlap window.
	Index int

	// Embedding is the vector representation of Content. Nil until the
	// embedding client has processed the chunk; replaced in place on
	// re-embedding.
	Embedding []float32
}

// HasEmbedding reports whether the chunk carries a populated embedding and is
// therefore eligible as a vector search candidate.
func (c DocumentChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// MatchSource identifies which retrieval path produced a search result.
type MatchSource string

const (
	// MatchVector marks a result found only by vector similarity.
	MatchVector MatchSource = "vector"

	// MatchKeyword marks a result found only by keyword match.
	MatchKeyword MatchSource = "keyword"

	// MatchMerged marks a result found by both paths. Its score is the
	// higher of the two path scores.
	MatchMerged MatchSource = "merged"
)

// SearchResult is a DocumentChunk scored against a query. Constructed per
// query, never persisted. The score scale depends on Source: similarity-like
// for vector results, normalized text-match for keyword results.
type SearchResult struct {
	DocumentChunk

	// Score is the relevance score (higher = more relevant).
	Score float32

	// Source is the retrieval path that produced this result.
	Source MatchSource
}

// IndexInfo describes one index maintained by a store implementation.
type IndexInfo struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Metric     string `json:"metric"`
	Dimensions uint   `json:"dimensions"`
}

// ChunkID derives the stable chunk identifier from a document ID and the
// chunk's sequence index.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s-%d", documentID, index)
}

// Driver handles persistence and querying of document chunks.
type Driver interface {
	// UpsertChunks stores chunks with their embeddings. Chunks with an ID
	// that already exists are replaced, which is how re-embedding swaps an
	// embedding in place.
	UpsertChunks(ctx context.Context, chunks []DocumentChunk) error

	// VectorSearch finds the k chunks most similar to the given embedding.
	// Only chunks with a populated embedding are candidates. Each result's
	// score is a normalized similarity (higher = more similar) with
	// Source set to MatchVector.
	VectorSearch(ctx context.Context, embedding []float32, k int) ([]SearchResult, error)

	// KeywordSearch finds up to k chunks matching the query text against
	// the store's keyword index. Each result's score is a normalized
	// text-match score with Source set to MatchKeyword.
	KeywordSearch(ctx context.Context, query string, k int) ([]SearchResult, error)

	// ListChunks returns all stored chunks. Used by the re-embedding
	// utility to iterate the full corpus.
	ListChunks(ctx context.Context) ([]DocumentChunk, error)

	// CountChunks returns the number of stored chunks. A non-empty
	// documentID restricts the count to that document.
	CountChunks(ctx context.Context, documentID string) (int, error)

	// DeleteDocument removes all chunks belonging to a source document.
	DeleteDocument(ctx context.Context, documentID string) error

	// ListIndexes returns metadata for the indexes this store maintains.
	ListIndexes(ctx context.Context) ([]IndexInfo, error)

	// Close releases any resources held by the driver.
	Close() error
}
