// Package reembed recomputes embeddings for the full stored corpus, replacing
// each chunk's vector in place. Chunks are processed in small fixed-size
// batches with a short pause between batches; a failure embedding one chunk
// is recorded and processing continues with the next.
package reembed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/foliohq/shelf/pkg/embeddings"
	"github.com/foliohq/shelf/pkg/store"
)

const (
	// DefaultBatchSize is the default number of chunks per batch.
	DefaultBatchSize = 16

	// DefaultBatchPause is the default pause between batches.
	DefaultBatchPause = 250 * time.Millisecond
)

// Options configures a re-embedding run.
type Options struct {
	// BatchSize is the number of chunks per batch.
	// Defaults to DefaultBatchSize when non-positive.
	BatchSize int

	// BatchPause is the pause between batches.
	// Defaults to DefaultBatchPause when zero.
	BatchPause time.Duration

	// DryRun counts what would change without writing to the store.
	DryRun bool
}

// Reembedder re-embeds all stored chunks.
type Reembedder struct {
	store    store.Driver
	embedder embeddings.Embedder
	options  Options
	logger   *zap.Logger
}

// NewReembedder creates a Reembedder with the given collaborators.
func NewReembedder(storer store.Driver, embedder embeddings.Embedder, opts Options, logger *zap.Logger) *Reembedder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchPause == 0 {
		opts.BatchPause = DefaultBatchPause
	}

	return &Reembedder{
		store:    storer,
		embedder: embedder,
		options:  opts,
		logger:   logger,
	}
}

// Run iterates all stored chunks, recomputes each embedding, and replaces it
// in place via upsert. Per-item failures are logged and counted without
// aborting the run.
func (r *Reembedder) Run(ctx context.Context) (*Result, error) {
	chunks, err := r.store.ListChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}

	result := &Result{Total: len(chunks)}

	r.logger.Info("re-embedding corpus",
		zap.Int("chunks", len(chunks)),
		zap.Int("batch_size", r.options.BatchSize),
		zap.Bool("dry_run", r.options.DryRun),
	)

	for start := 0; start < len(chunks); start += r.options.BatchSize {
		end := start + r.options.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		updated := make([]store.DocumentChunk, 0, end-start)
		for _, chunk := range chunks[start:end] {
			embedding, err := r.embedder.Embed(ctx, chunk.Content)
			if err != nil {
				result.Errored++
				r.logger.Warn("failed to re-embed chunk",
					zap.String("chunk_id", chunk.ID),
					zap.Error(err),
				)
				continue
			}
			chunk.Embedding = embedding
			updated = append(updated, chunk)
		}

		if !r.options.DryRun && len(updated) > 0 {
			if err := r.store.UpsertChunks(ctx, updated); err != nil {
				return nil, fmt.Errorf("storing re-embedded chunks: %w", err)
			}
		}
		result.Updated += len(updated)

		if end < len(chunks) {
			select {
			case <-time.After(r.options.BatchPause):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return result, nil
}
