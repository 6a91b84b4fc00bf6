// Package api provides an HTTP API server for ingesting, searching, and
// chatting over the shelf corpus.
package api

import (
	"github.com/foliohq/shelf/pkg/chat"
	"github.com/foliohq/shelf/pkg/ingest"
	"github.com/foliohq/shelf/pkg/retriever"
	"github.com/foliohq/shelf/pkg/store"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8082")
	ListenAddr string

	// Storer is the document store backing delete and index endpoints.
	Storer store.Driver

	// Retriever answers hybrid search requests.
	Retriever *retriever.Retriever

	// Ingestor handles document ingestion requests.
	Ingestor *ingest.Ingestor

	// Chatter answers chat requests. Optional; the chat endpoint returns
	// 503 when no chatter is configured.
	Chatter *chat.Chatter

	// Retrieval defaults applied when a search request omits tuning.
	Retrieval retriever.Options
}
