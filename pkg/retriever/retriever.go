// Package retriever implements hybrid search over the document store: the
// query is run through the vector and keyword paths concurrently, candidates
// are merged by chunk ID keeping the higher score, and the merged set is
// filtered by a relevance floor, deterministically ordered, and capped.
package retriever

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/foliohq/shelf/pkg/embeddings"
	"github.com/foliohq/shelf/pkg/store"
)

// ErrUnavailable is returned when both search paths failed and no results
// can be produced.
var ErrUnavailable = errors.New("retrieval unavailable")

const (
	// DefaultLimit is the default maximum number of results.
	DefaultLimit = 5

	// DefaultOverfetch is the default candidate over-fetch factor. Each
	// path requests Overfetch*Limit candidates so the relevance floor and
	// merge still leave enough survivors.
	DefaultOverfetch = 4
)

// Options controls a single search call.
type Options struct {
	// Limit is the maximum number of results to return.
	// Defaults to DefaultLimit when non-positive.
	Limit int

	// MinScore is the relevance floor: results scoring below it are
	// dropped after the merge.
	MinScore float32

	// Overfetch is the per-path candidate multiplier.
	// Defaults to DefaultOverfetch when non-positive.
	Overfetch int
}

// Retriever issues hybrid queries against a document store.
type Retriever struct {
	store    store.Driver
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// NewRetriever creates a Retriever with explicitly injected collaborators.
func NewRetriever(storer store.Driver, embedder embeddings.Embedder, logger *zap.Logger) *Retriever {
	return &Retriever{
		store:    storer,
		embedder: embedder,
		logger:   logger,
	}
}

// pathResult carries one sub-query's outcome through the settle channel.
type pathResult struct {
	results []store.SearchResult
	err     error
}

// Search runs the vector and keyword paths for the query, merges their
// candidates, and returns at most opts.Limit results, each scoring at least
// opts.MinScore, ordered by score descending with ties broken by document ID
// then sequence index.
//
// A failure on one path degrades to the other path's results. Only when both
// paths fail does Search return ErrUnavailable.
func (r *Retriever) Search(ctx context.Context, query string, opts Options) ([]store.SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	overfetch := opts.Overfetch
	if overfetch <= 0 {
		overfetch = DefaultOverfetch
	}
	fetchK := limit * overfetch

	r.logger.Debug("hybrid search",
		zap.String("query", query),
		zap.Int("limit", limit),
		zap.Float32("min_score", opts.MinScore),
		zap.Int("fetch_k", fetchK),
	)

	// The two sub-queries are independent; issue them concurrently and
	// merge only after both have settled. The merge is order-independent,
	// so concurrency never changes the outcome.
	vectorCh := make(chan pathResult, 1)
	keywordCh := make(chan pathResult, 1)

	go func() {
		results, err := r.vectorPath(ctx, query, fetchK)
		vectorCh <- pathResult{results: results, err: err}
	}()

	go func() {
		results, err := r.store.KeywordSearch(ctx, query, fetchK)
		keywordCh <- pathResult{results: results, err: err}
	}()

	vector := <-vectorCh
	keyword := <-keywordCh

	if vector.err != nil {
		r.logger.Warn("vector path failed, falling back to keyword results",
			zap.Error(vector.err),
		)
	}
	if keyword.err != nil {
		r.logger.Warn("keyword path failed, proceeding with vector results",
			zap.Error(keyword.err),
		)
	}
	if vector.err != nil && keyword.err != nil {
		return nil, errors.Join(ErrUnavailable, vector.err, keyword.err)
	}

	merged := merge(vector.results, keyword.results)
	ranked := rank(merged, opts.MinScore, limit)

	r.logger.Debug("hybrid search complete",
		zap.Int("vector_candidates", len(vector.results)),
		zap.Int("keyword_candidates", len(keyword.results)),
		zap.Int("results", len(ranked)),
	)

	return ranked, nil
}

// vectorPath embeds the query and runs the ANN search. An embedding failure
// fails the whole path.
func (r *Retriever) vectorPath(ctx context.Context, query string, k int) ([]store.SearchResult, error) {
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.store.VectorSearch(ctx, embedding, k)
}

// merge unions the two candidate sets by chunk ID. A chunk present in both
// keeps the higher of its two scores and is marked merged; the scores are on
// different scales, so max-of is the defined tie-break rather than averaging.
func merge(vector, keyword []store.SearchResult) []store.SearchResult {
	byID := make(map[string]store.SearchResult, len(vector)+len(keyword))

	for _, r := range vector {
		byID[r.ID] = r
	}
	for _, kr := range keyword {
		existing, ok := byID[kr.ID]
		if !ok {
			byID[kr.ID] = kr
			continue
		}
		if kr.Score > existing.Score {
			existing.Score = kr.Score
		}
		existing.Source = store.MatchMerged
		byID[kr.ID] = existing
	}

	merged := make([]store.SearchResult, 0, len(byID))
	for _, r := range byID {
		merged = append(merged, r)
	}
	return merged
}

// rank drops candidates below the relevance floor, sorts the remainder by
// score descending (ties by document ID then sequence index for reproducible
// ordering), and truncates to the limit.
func rank(candidates []store.SearchResult, minScore float32, limit int) []store.SearchResult {
	filtered := candidates[:0]
	for _, c := range candidates {
		if c.Score >= minScore {
			filtered = append(filtered, c)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Score != filtered[j].Score {
			return filtered[i].Score > filtered[j].Score
		}
		if filtered[i].DocumentID != filtered[j].DocumentID {
			return filtered[i].DocumentID < filtered[j].DocumentID
		}
		return filtered[i].Index < filtered[j].Index
	})

	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered
}
