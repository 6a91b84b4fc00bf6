package store

import "errors"

var (
	// ErrNotFound is returned when a chunk or document is not found in the store.
	ErrNotFound = errors.New("chunk not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the document store connection fails.
	ErrConnection = errors.New("document store connection failed")

	// ErrStore is returned when an index or query operation fails.
	ErrStore = errors.New("document store operation failed")
)
