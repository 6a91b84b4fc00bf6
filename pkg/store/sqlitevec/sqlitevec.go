// Package sqlitevec provides a SQLite-backed document store driver using
// sqlite-vec for approximate vector search and FTS5 for keyword search.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/foliohq/shelf/pkg/store"
)

// Driver implements store.Driver using SQLite with sqlite-vec and FTS5.
type Driver struct {
	db         *sql.DB
	dbPath     string
	dimensions uint
	logger     *zap.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	// Required; the vec0 table is declared with a fixed dimension.
	Dimensions uint
}

// NewDriver creates a new SQLite document store driver backed by sqlite-vec
// and FTS5.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dimensions := c.Dimensions
	if dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", store.ErrConnection, err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", store.ErrConnection, err)
	}

	// Chunk metadata table. vec0 virtual tables use integer rowids, so this
	// table also provides the mapping from string chunk IDs to rowids shared
	// by the vector and keyword indexes.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id TEXT NOT NULL UNIQUE,
			document_id TEXT NOT NULL,
			file_name TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			seq INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating chunks table: %v", store.ErrStore, err)
	}

	// vec0 virtual table for vector storage and KNN queries.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunk_vectors USING vec0(embedding float[%d])`,
		dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating vec0 table: %v", store.ErrStore, err)
	}

	// FTS5 virtual table for keyword queries. Kept in sync manually during
	// upsert/delete; rowids match the chunks table.
	if _, err := db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS chunk_fts USING fts5(content)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating fts5 table: %v", store.ErrStore, err)
	}

	logger.Info("sqlite-vec document store initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Driver{
		db:         db,
		dbPath:     c.DBPath,
		dimensions: dimensions,
		logger:     logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// UpsertChunks stores chunks with their embeddings.
// A chunk with an existing ID is replaced, including its index entries.
func (d *Driver) UpsertChunks(ctx context.Context, chunks []store.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", store.ErrStore, err)
	}
	defer tx.Rollback()

	for _, chunk := range chunks {
		var rowID int64
		err := tx.QueryRowContext(ctx,
			`SELECT rowid FROM chunks WHERE chunk_id = ?`, chunk.ID,
		).Scan(&rowID)

		switch err {
		case nil:
			// Chunk exists — update metadata and rebuild index rows.
			if _, err := tx.ExecContext(ctx,
				`UPDATE chunks SET document_id = ?, file_name = ?, content = ?, seq = ? WHERE rowid = ?`,
				chunk.DocumentID, chunk.FileName, chunk.Content, chunk.Index, rowID,
			); err != nil {
				return fmt.Errorf("%w: updating chunk %s: %v", store.ErrStore, chunk.ID, err)
			}

			// vec0 does not support UPDATE; replace via DELETE + INSERT.
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM chunk_vectors WHERE rowid = ?`, rowID,
			); err != nil {
				return fmt.Errorf("%w: deleting old embedding for chunk %s: %v", store.ErrStore, chunk.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`DELETE FROM chunk_fts WHERE rowid = ?`, rowID,
			); err != nil {
				return fmt.Errorf("%w: deleting old fts row for chunk %s: %v", store.ErrStore, chunk.ID, err)
			}
		case sql.ErrNoRows:
			// New chunk — insert metadata first to get the rowid.
			result, err := tx.ExecContext(ctx,
				`INSERT INTO chunks(chunk_id, document_id, file_name, content, seq) VALUES (?, ?, ?, ?, ?)`,
				chunk.ID, chunk.DocumentID, chunk.FileName, chunk.Content, chunk.Index,
			)
			if err != nil {
				return fmt.Errorf("%w: inserting chunk %s: %v", store.ErrStore, chunk.ID, err)
			}

			rowID, err = result.LastInsertId()
			if err != nil {
				return fmt.Errorf("%w: getting rowid for chunk %s: %v", store.ErrStore, chunk.ID, err)
			}
		default:
			return fmt.Errorf("%w: checking for existing chunk %s: %v", store.ErrStore, chunk.ID, err)
		}

		// Only embedded chunks enter the vector index.
		if chunk.HasEmbedding() {
			if uint(len(chunk.Embedding)) != d.dimensions {
				return fmt.Errorf("%w: chunk %s embedding has %d dimensions, store expects %d",
					store.ErrStore, chunk.ID, len(chunk.Embedding), d.dimensions)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chunk_vectors(rowid, embedding) VALUES (?, ?)`,
				rowID, serializeFloat32(chunk.Embedding),
			); err != nil {
				return fmt.Errorf("%w: inserting embedding for chunk %s: %v", store.ErrStore, chunk.ID, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunk_fts(rowid, content) VALUES (?, ?)`,
			rowID, chunk.Content,
		); err != nil {
			return fmt.Errorf("%w: inserting fts row for chunk %s: %v", store.ErrStore, chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", store.ErrStore, err)
	}

	d.logger.Debug("upserted chunks into sqlite-vec",
		zap.Int("count", len(chunks)),
	)

	return nil
}

// VectorSearch finds the k most similar chunks to the given embedding via a
// vec0 KNN query.
func (d *Driver) VectorSearch(ctx context.Context, embedding []float32, k int) ([]store.SearchResult, error) {
	if k <= 0 {
		k = 10
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			c.chunk_id,
			c.document_id,
			c.file_name,
			c.content,
			c.seq,
			cv.distance
		FROM chunk_vectors cv
		INNER JOIN chunks c ON c.rowid = cv.rowid
		WHERE cv.embedding MATCH ?
			AND cv.k = ?
		ORDER BY cv.distance
	`, serializeFloat32(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %v", store.ErrStore, err)
	}
	defer rows.Close()

	var results []store.SearchResult
	for rows.Next() {
		var r store.SearchResult
		var distance float64
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.FileName, &r.Content, &r.Index, &distance); err != nil {
			return nil, fmt.Errorf("%w: scanning vector result: %v", store.ErrStore, err)
		}

		// Convert distance to similarity score: lower distance = higher similarity
		r.Score = float32(1.0 / (1.0 + distance))
		r.Source = store.MatchVector
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating vector results: %v", store.ErrStore, err)
	}

	d.logger.Debug("queried sqlite-vec vectors",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// KeywordSearch finds up to k chunks matching the query text against the
// FTS5 index, with bm25 rank normalized into (0, 1).
func (d *Driver) KeywordSearch(ctx context.Context, query string, k int) ([]store.SearchResult, error) {
	if k <= 0 {
		k = 10
	}

	match := ftsMatchExpr(query)
	if match == "" {
		return nil, nil
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			c.chunk_id,
			c.document_id,
			c.file_name,
			c.content,
			c.seq,
			bm25(chunk_fts) AS rank
		FROM chunk_fts
		INNER JOIN chunks c ON c.rowid = chunk_fts.rowid
		WHERE chunk_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, match, k)
	if err != nil {
		return nil, fmt.Errorf("%w: querying keywords: %v", store.ErrStore, err)
	}
	defer rows.Close()

	var results []store.SearchResult
	for rows.Next() {
		var r store.SearchResult
		var rank float64
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.FileName, &r.Content, &r.Index, &rank); err != nil {
			return nil, fmt.Errorf("%w: scanning keyword result: %v", store.ErrStore, err)
		}

		// bm25 ranks are negative for good matches (lower is better).
		// Map to (0, 1): stronger matches approach 1.
		goodness := -rank
		if goodness < 0 {
			goodness = 0
		}
		r.Score = float32(goodness / (1.0 + goodness))
		r.Source = store.MatchKeyword
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating keyword results: %v", store.ErrStore, err)
	}

	d.logger.Debug("queried sqlite-vec keywords",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// ftsMatchExpr builds an FTS5 MATCH expression from raw query text. Terms are
// quoted so user input cannot inject FTS5 syntax, and joined with OR so any
// matching term qualifies a chunk.
func ftsMatchExpr(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, `"`, "")
		if t == "" {
			continue
		}
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// ListChunks returns all stored chunks, including embeddings, ordered by
// document then sequence index.
func (d *Driver) ListChunks(ctx context.Context) ([]store.DocumentChunk, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			c.chunk_id,
			c.document_id,
			c.file_name,
			c.content,
			c.seq,
			cv.embedding
		FROM chunks c
		LEFT JOIN chunk_vectors cv ON cv.rowid = c.rowid
		ORDER BY c.document_id, c.seq
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %v", store.ErrStore, err)
	}
	defer rows.Close()

	var chunks []store.DocumentChunk
	for rows.Next() {
		var c store.DocumentChunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.FileName, &c.Content, &c.Index, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk: %v", store.ErrStore, err)
		}
		if len(blob) > 0 {
			embedding, err := deserializeFloat32(blob)
			if err != nil {
				return nil, fmt.Errorf("%w: decoding embedding for chunk %s: %v", store.ErrStore, c.ID, err)
			}
			c.Embedding = embedding
		}
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %v", store.ErrStore, err)
	}

	return chunks, nil
}

// CountChunks returns the number of stored chunks, optionally restricted to
// one source document.
func (d *Driver) CountChunks(ctx context.Context, documentID string) (int, error) {
	var count int
	var err error
	if documentID == "" {
		err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	} else {
		err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE document_id = ?`, documentID).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %v", store.ErrStore, err)
	}
	return count, nil
}

// DeleteDocument removes all chunks belonging to a source document, including
// their index rows.
func (d *Driver) DeleteDocument(ctx context.Context, documentID string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", store.ErrStore, err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT rowid FROM chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return fmt.Errorf("%w: querying document chunks: %v", store.ErrStore, err)
	}

	var rowIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("%w: scanning rowid: %v", store.ErrStore, err)
		}
		rowIDs = append(rowIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("%w: iterating rowids: %v", store.ErrStore, err)
	}
	rows.Close()

	if len(rowIDs) == 0 {
		return store.ErrNotFound
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_vectors WHERE rowid = ?`, rowID); err != nil {
			return fmt.Errorf("%w: deleting embedding: %v", store.ErrStore, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_fts WHERE rowid = ?`, rowID); err != nil {
			return fmt.Errorf("%w: deleting fts row: %v", store.ErrStore, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE rowid = ?`, rowID); err != nil {
			return fmt.Errorf("%w: deleting chunk: %v", store.ErrStore, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", store.ErrStore, err)
	}

	d.logger.Debug("deleted document from sqlite-vec",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(rowIDs)),
	)

	return nil
}

// ListIndexes reports the vector and keyword indexes backing this store.
func (d *Driver) ListIndexes(_ context.Context) ([]store.IndexInfo, error) {
	return []store.IndexInfo{
		{Name: "chunk_vectors", Path: d.dbPath, Metric: "l2", Dimensions: d.dimensions},
		{Name: "chunk_fts", Path: d.dbPath, Metric: "bm25"},
	}, nil
}

// Close releases the database handle.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Ensure Driver implements store.Driver
var _ store.Driver = (*Driver)(nil)
