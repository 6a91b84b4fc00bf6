package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foliohq/shelf/pkg/llm"
	"github.com/foliohq/shelf/pkg/retriever"
	"github.com/foliohq/shelf/pkg/store"
)

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	// Query is the search query text.
	Query string `json:"query"`

	// Limit is the maximum number of results (default from server config).
	Limit int `json:"limit,omitempty"`

	// MinScore overrides the server's relevance floor when present. An
	// explicit zero disables the floor even if the server default is
	// higher.
	MinScore *float32 `json:"min_score,omitempty"`
}

// SearchResultResponse is one scored chunk in a search response.
type SearchResultResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	FileName   string  `json:"file_name,omitempty"`
	Index      int     `json:"index"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
	Source     string  `json:"source"`
}

// SearchResponse is the body returned by POST /search.
type SearchResponse struct {
	Query   string                 `json:"query"`
	Results []SearchResultResponse `json:"results"`
	Count   int                    `json:"count"`
}

// handleSearch runs a hybrid search over the corpus.
func (s *Server) handleSearch(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "query is required"})
	}
	if req.Limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "limit must be a positive integer"})
	}

	opts := s.config.Retrieval
	if req.Limit > 0 {
		opts.Limit = req.Limit
	}
	if req.MinScore != nil {
		opts.MinScore = *req.MinScore
	}

	results, err := s.config.Retriever.Search(c.Context(), req.Query, opts)
	if err != nil {
		s.logger.Error("search failed", zap.String("query", req.Query), zap.Error(err))
		if errors.Is(err, retriever.ErrUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: "retrieval unavailable"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(buildSearchResponse(req.Query, results))
}

// buildSearchResponse converts ranked store results into the wire shape.
func buildSearchResponse(query string, results []store.SearchResult) SearchResponse {
	out := make([]SearchResultResponse, len(results))
	for i, res := range results {
		out[i] = SearchResultResponse{
			ChunkID:    res.ID,
			DocumentID: res.DocumentID,
			FileName:   res.FileName,
			Index:      res.Index,
			Content:    res.Content,
			Score:      res.Score,
			Source:     string(res.Source),
		}
	}

	return SearchResponse{
		Query:   query,
		Results: out,
		Count:   len(out),
	}
}
