// Package ingest turns source documents into stored, embedded chunks. Text
// is chunked per the configured policy, chunks are embedded in small batches
// with a pause between batches to bound load on the embedding client, and the
// results are upserted into the document store. A failed embedding is counted
// and the chunk is stored without a vector; it remains reachable through the
// keyword index and can be repaired by a re-embedding run.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foliohq/shelf/pkg/chunker"
	"github.com/foliohq/shelf/pkg/embeddings"
	"github.com/foliohq/shelf/pkg/store"
)

const (
	// DefaultBatchSize is the default number of chunks embedded per batch.
	DefaultBatchSize = 8

	// DefaultBatchPause is the default pause between embedding batches.
	DefaultBatchPause = 200 * time.Millisecond
)

// Config holds construction options for an Ingestor.
type Config struct {
	// Store is the document store chunks are upserted into.
	Store store.Driver

	// Embedder generates chunk embeddings.
	Embedder embeddings.Embedder

	// Policy is the chunking policy. Zero value falls back to
	// chunker.DefaultPolicy.
	Policy chunker.Policy

	// BatchSize is the number of chunks embedded per batch.
	// Defaults to DefaultBatchSize when non-positive.
	BatchSize int

	// BatchPause is the pause between embedding batches.
	// Defaults to DefaultBatchPause when zero.
	BatchPause time.Duration

	// Logger is the configured zap logger.
	Logger *zap.Logger
}

// Ingestor chunks, embeds, and stores source documents.
type Ingestor struct {
	store      store.Driver
	embedder   embeddings.Embedder
	policy     chunker.Policy
	batchSize  int
	batchPause time.Duration
	logger     *zap.Logger
}

// NewIngestor creates an Ingestor. The chunking policy is validated eagerly
// so a bad configuration fails at construction rather than mid-ingestion.
func NewIngestor(c Config) (*Ingestor, error) {
	policy := c.Policy
	if policy == (chunker.Policy{}) {
		policy = chunker.DefaultPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	batchSize := c.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batchPause := c.BatchPause
	if batchPause == 0 {
		batchPause = DefaultBatchPause
	}

	return &Ingestor{
		store:      c.Store,
		embedder:   c.Embedder,
		policy:     policy,
		batchSize:  batchSize,
		batchPause: batchPause,
		logger:     c.Logger,
	}, nil
}

// IngestText chunks and embeds text from a named source and stores the
// resulting chunks. The document ID is freshly generated; re-ingesting the
// same file produces a new document.
func (i *Ingestor) IngestText(ctx context.Context, fileName, text string) (*Result, error) {
	documentID := uuid.NewString()

	chunks, err := chunker.ChunkDocument(documentID, fileName, text, i.policy)
	if err != nil {
		return nil, err
	}

	result := &Result{DocumentID: documentID, FileName: fileName, Chunks: len(chunks)}
	if len(chunks) == 0 {
		return result, nil
	}

	i.logger.Info("ingesting document",
		zap.String("document_id", documentID),
		zap.String("file_name", fileName),
		zap.Int("chunks", len(chunks)),
	)

	for start := 0; start < len(chunks); start += i.batchSize {
		end := start + i.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		for idx := start; idx < end; idx++ {
			embedding, err := i.embedder.Embed(ctx, chunks[idx].Content)
			if err != nil {
				result.Errored++
				i.logger.Warn("failed to embed chunk, storing without vector",
					zap.String("chunk_id", chunks[idx].ID),
					zap.Error(err),
				)
				continue
			}
			chunks[idx].Embedding = embedding
			result.Embedded++
		}

		if err := i.store.UpsertChunks(ctx, chunks[start:end]); err != nil {
			return nil, fmt.Errorf("storing chunks %d-%d: %w", start, end-1, err)
		}

		// Pause between batches to bound load on the embedding client
		// and the store.
		if end < len(chunks) {
			select {
			case <-time.After(i.batchPause):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return result, nil
}
