// Package inmemory provides an in-memory document store driver. It is the
// zero-setup provider used in tests and small corpora: vector search is an
// exact cosine scan and keyword search is a normalized term-overlap match.
package inmemory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/foliohq/shelf/pkg/store"
)

// Driver implements store.Driver backed by process memory.
type Driver struct {
	mu     sync.RWMutex
	chunks map[string]store.DocumentChunk
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		chunks: make(map[string]store.DocumentChunk),
	}
}

// UpsertChunks stores chunks, replacing any existing chunk with the same ID.
func (d *Driver) UpsertChunks(_ context.Context, chunks []store.DocumentChunk) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range chunks {
		d.chunks[c.ID] = c
	}
	return nil
}

// VectorSearch scans all embedded chunks and returns the k most similar by
// cosine similarity.
func (d *Driver) VectorSearch(_ context.Context, embedding []float32, k int) ([]store.SearchResult, error) {
	if k <= 0 {
		k = 10
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var results []store.SearchResult
	for _, c := range d.chunks {
		if !c.HasEmbedding() {
			continue
		}
		results = append(results, store.SearchResult{
			DocumentChunk: c,
			Score:         cosine(embedding, c.Embedding),
			Source:        store.MatchVector,
		})
	}

	sortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// KeywordSearch scores chunks by the fraction of query terms they contain.
func (d *Driver) KeywordSearch(_ context.Context, query string, k int) ([]store.SearchResult, error) {
	if k <= 0 {
		k = 10
	}

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var results []store.SearchResult
	for _, c := range d.chunks {
		content := strings.ToLower(c.Content)
		matched := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		results = append(results, store.SearchResult{
			DocumentChunk: c,
			Score:         float32(matched) / float32(len(terms)),
			Source:        store.MatchKeyword,
		})
	}

	sortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// ListChunks returns all stored chunks ordered by document then index.
func (d *Driver) ListChunks(_ context.Context) ([]store.DocumentChunk, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	chunks := make([]store.DocumentChunk, 0, len(d.chunks))
	for _, c := range d.chunks {
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		return chunks[i].Index < chunks[j].Index
	})
	return chunks, nil
}

// CountChunks returns the number of stored chunks, optionally restricted to
// one source document.
func (d *Driver) CountChunks(_ context.Context, documentID string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if documentID == "" {
		return len(d.chunks), nil
	}

	count := 0
	for _, c := range d.chunks {
		if c.DocumentID == documentID {
			count++
		}
	}
	return count, nil
}

// DeleteDocument removes all chunks belonging to a source document.
func (d *Driver) DeleteDocument(_ context.Context, documentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	found := false
	for id, c := range d.chunks {
		if c.DocumentID == documentID {
			delete(d.chunks, id)
			found = true
		}
	}
	if !found {
		return store.ErrNotFound
	}
	return nil
}

// ListIndexes reports the two logical scan "indexes" of this driver.
func (d *Driver) ListIndexes(_ context.Context) ([]store.IndexInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var dims uint
	for _, c := range d.chunks {
		if c.HasEmbedding() {
			dims = uint(len(c.Embedding))
			break
		}
	}

	return []store.IndexInfo{
		{Name: "memory_vectors", Path: ":memory:", Metric: "cosine", Dimensions: dims},
		{Name: "memory_keywords", Path: ":memory:", Metric: "term-overlap"},
	}, nil
}

// Close releases driver resources.
func (d *Driver) Close() error {
	return nil
}

// sortResults orders results by score descending, ties broken by document ID
// then sequence index for deterministic output.
func sortResults(results []store.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].DocumentID != results[j].DocumentID {
			return results[i].DocumentID < results[j].DocumentID
		}
		return results[i].Index < results[j].Index
	})
}

// cosine computes cosine similarity between two vectors. Mismatched or
// zero-magnitude vectors score zero.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Ensure Driver implements store.Driver
var _ store.Driver = (*Driver)(nil)
