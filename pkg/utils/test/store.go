package testutils

import (
	"context"
	"fmt"

	"github.com/foliohq/shelf/pkg/store"
)

// MockStore is a test document store with scriptable results and failures
type MockStore struct {
	Chunks []store.DocumentChunk

	// VectorResults are returned by VectorSearch (truncated to k)
	VectorResults []store.SearchResult

	// KeywordResults are returned by KeywordSearch (truncated to k)
	KeywordResults []store.SearchResult

	// FailVector / FailKeyword force the respective search path to error
	FailVector  bool
	FailKeyword bool

	// VectorK / KeywordK record the last requested candidate counts
	VectorK  int
	KeywordK int
}

func NewMockStore() *MockStore {
	return &MockStore{}
}

func (m *MockStore) UpsertChunks(_ context.Context, chunks []store.DocumentChunk) error {
	for _, c := range chunks {
		replaced := false
		for i := range m.Chunks {
			if m.Chunks[i].ID == c.ID {
				m.Chunks[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			m.Chunks = append(m.Chunks, c)
		}
	}
	return nil
}

func (m *MockStore) VectorSearch(_ context.Context, _ []float32, k int) ([]store.SearchResult, error) {
	m.VectorK = k
	if m.FailVector {
		return nil, fmt.Errorf("%w: mock vector failure", store.ErrStore)
	}
	if len(m.VectorResults) > k {
		return m.VectorResults[:k], nil
	}
	return m.VectorResults, nil
}

func (m *MockStore) KeywordSearch(_ context.Context, _ string, k int) ([]store.SearchResult, error) {
	m.KeywordK = k
	if m.FailKeyword {
		return nil, fmt.Errorf("%w: mock keyword failure", store.ErrStore)
	}
	if len(m.KeywordResults) > k {
		return m.KeywordResults[:k], nil
	}
	return m.KeywordResults, nil
}

func (m *MockStore) ListChunks(_ context.Context) ([]store.DocumentChunk, error) {
	return m.Chunks, nil
}

func (m *MockStore) CountChunks(_ context.Context, documentID string) (int, error) {
	if documentID == "" {
		return len(m.Chunks), nil
	}
	count := 0
	for _, c := range m.Chunks {
		if c.DocumentID == documentID {
			count++
		}
	}
	return count, nil
}

func (m *MockStore) DeleteDocument(_ context.Context, documentID string) error {
	kept := m.Chunks[:0]
	found := false
	for _, c := range m.Chunks {
		if c.DocumentID == documentID {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	m.Chunks = kept
	if !found {
		return store.ErrNotFound
	}
	return nil
}

func (m *MockStore) ListIndexes(_ context.Context) ([]store.IndexInfo, error) {
	return []store.IndexInfo{
		{Name: "mock_vectors", Path: ":memory:", Metric: "cosine", Dimensions: 3},
		{Name: "mock_keywords", Path: ":memory:", Metric: "term-overlap"},
	}, nil
}

func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements store.Driver
var _ store.Driver = (*MockStore)(nil)
