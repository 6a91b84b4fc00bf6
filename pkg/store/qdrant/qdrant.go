// Package qdrant provides a Qdrant-backed document store driver. Vector
// search uses Qdrant's ANN query API; keyword search uses a full-text payload
// match with client-side term-overlap scoring, since Qdrant's text match
// filters do not return a relevance score.
package qdrant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/foliohq/shelf/pkg/store"
)

const (
	// DefaultCollectionName is the default collection for storing shelf chunks.
	DefaultCollectionName = "shelf"

	// scrollPageSize bounds each scroll page when iterating the corpus.
	scrollPageSize = 256
)

// Driver implements store.Driver using a Qdrant collection.
type Driver struct {
	client         *qdrant.Client
	collectionName string
	dimensions     uint
	logger         *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant gRPC host. Defaults to "localhost".
	Host string

	// Port is the Qdrant gRPC port. Defaults to 6334.
	Port int

	// CollectionName is the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the embedding vector dimension. Required; the
	// collection is created with a fixed vector size.
	Dimensions uint
}

// NewDriver creates a new Qdrant document store driver, creating the
// collection and its full-text payload index when missing.
func NewDriver(ctx context.Context, c Config, logger *zap.Logger) (*Driver, error) {
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 6334
	}
	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", store.ErrConnection, err)
	}

	d := &Driver{
		client:         client,
		collectionName: collectionName,
		dimensions:     c.Dimensions,
		logger:         logger,
	}

	if err := d.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("connected to Qdrant",
		zap.String("host", host),
		zap.Int("port", port),
		zap.String("collection", collectionName),
		zap.Uint("dimensions", c.Dimensions),
	)

	return d, nil
}

// ensureCollection creates the collection and the content text index if they
// do not exist yet.
func (d *Driver) ensureCollection(ctx context.Context) error {
	exists, err := d.client.CollectionExists(ctx, d.collectionName)
	if err != nil {
		return fmt.Errorf("%w: checking collection %q: %v", store.ErrConnection, d.collectionName, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(d.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %q: %v", store.ErrStore, d.collectionName, err)
	}

	// Text index on content enables the keyword match filter.
	_, err = d.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: d.collectionName,
		FieldName:      "content",
		FieldType:      qdrant.FieldType_FieldTypeText.Enum(),
	})
	if err != nil {
		return fmt.Errorf("%w: creating content index: %v", store.ErrStore, err)
	}

	return nil
}

// pointID derives a deterministic Qdrant point UUID from a chunk ID, so
// upserting the same chunk updates the same point.
func pointID(chunkID string) *qdrant.PointId {
	return qdrant.NewID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String())
}

// UpsertChunks stores chunks with their embeddings. Chunks without an
// embedding are skipped: Qdrant points require a vector.
func (d *Driver) UpsertChunks(ctx context.Context, chunks []store.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, chunk := range chunks {
		if !chunk.HasEmbedding() {
			continue
		}
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(chunk.ID),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":    chunk.ID,
				"document_id": chunk.DocumentID,
				"file_name":   chunk.FileName,
				"content":     chunk.Content,
				"seq":         int64(chunk.Index),
			}),
		})
	}
	if len(points) == 0 {
		return nil
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collectionName,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("%w: upserting points: %v", store.ErrStore, err)
	}

	d.logger.Debug("upserted chunks into qdrant",
		zap.Int("count", len(points)),
	)

	return nil
}

// chunkFromPayload rebuilds a DocumentChunk from a point payload.
func chunkFromPayload(payload map[string]*qdrant.Value) store.DocumentChunk {
	return store.DocumentChunk{
		ID:         payload["chunk_id"].GetStringValue(),
		DocumentID: payload["document_id"].GetStringValue(),
		FileName:   payload["file_name"].GetStringValue(),
		Content:    payload["content"].GetStringValue(),
		Index:      int(payload["seq"].GetIntegerValue()),
	}
}

// VectorSearch finds the k most similar chunks via Qdrant's query API.
// Cosine scores from Qdrant are already similarities (higher = closer).
func (d *Driver) VectorSearch(ctx context.Context, embedding []float32, k int) ([]store.SearchResult, error) {
	if k <= 0 {
		k = 10
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %v", store.ErrStore, err)
	}

	results := make([]store.SearchResult, 0, len(points))
	for _, p := range points {
		results = append(results, store.SearchResult{
			DocumentChunk: chunkFromPayload(p.GetPayload()),
			Score:         p.GetScore(),
			Source:        store.MatchVector,
		})
	}

	d.logger.Debug("queried qdrant vectors",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// KeywordSearch matches chunks whose content contains the query text via the
// full-text payload index, scoring by the fraction of query terms present.
func (d *Driver) KeywordSearch(ctx context.Context, query string, k int) ([]store.SearchResult, error) {
	if k <= 0 {
		k = 10
	}

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	points, err := d.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: d.collectionName,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatchText("content", query),
			},
		},
		Limit:       qdrant.PtrOf(uint32(k)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying keywords: %v", store.ErrStore, err)
	}

	results := make([]store.SearchResult, 0, len(points))
	for _, p := range points {
		chunk := chunkFromPayload(p.GetPayload())
		content := strings.ToLower(chunk.Content)
		matched := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				matched++
			}
		}
		results = append(results, store.SearchResult{
			DocumentChunk: chunk,
			Score:         float32(matched) / float32(len(terms)),
			Source:        store.MatchKeyword,
		})
	}

	d.logger.Debug("queried qdrant keywords",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// ListChunks scrolls the full collection, following page offsets until
// exhausted.
func (d *Driver) ListChunks(ctx context.Context) ([]store.DocumentChunk, error) {
	var chunks []store.DocumentChunk
	var offset *qdrant.PointId

	for {
		resp, err := d.client.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: d.collectionName,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: scrolling collection: %v", store.ErrStore, err)
		}

		for _, p := range resp.GetResult() {
			chunk := chunkFromPayload(p.GetPayload())
			if v := p.GetVectors().GetVector(); v != nil {
				chunk.Embedding = v.GetData()
			}
			chunks = append(chunks, chunk)
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}

	return chunks, nil
}

// documentFilter matches all points of one source document.
func documentFilter(documentID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("document_id", documentID),
		},
	}
}

// CountChunks returns the number of stored chunks, optionally restricted to
// one source document.
func (d *Driver) CountChunks(ctx context.Context, documentID string) (int, error) {
	req := &qdrant.CountPoints{
		CollectionName: d.collectionName,
		Exact:          qdrant.PtrOf(true),
	}
	if documentID != "" {
		req.Filter = documentFilter(documentID)
	}

	count, err := d.client.Count(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("%w: counting points: %v", store.ErrStore, err)
	}
	return int(count), nil
}

// DeleteDocument removes all points belonging to a source document.
func (d *Driver) DeleteDocument(ctx context.Context, documentID string) error {
	count, err := d.CountChunks(ctx, documentID)
	if err != nil {
		return err
	}
	if count == 0 {
		return store.ErrNotFound
	}

	_, err = d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collectionName,
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(documentID)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("%w: deleting points: %v", store.ErrStore, err)
	}

	d.logger.Debug("deleted document from qdrant",
		zap.String("document_id", documentID),
		zap.Int("chunks", count),
	)

	return nil
}

// ListIndexes reports the collection's vector index and the content text index.
func (d *Driver) ListIndexes(_ context.Context) ([]store.IndexInfo, error) {
	return []store.IndexInfo{
		{Name: d.collectionName, Path: d.collectionName, Metric: "cosine", Dimensions: d.dimensions},
		{Name: d.collectionName + "/content", Path: d.collectionName, Metric: "text-match"},
	}, nil
}

// Close releases the client connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

// Ensure Driver implements store.Driver
var _ store.Driver = (*Driver)(nil)
