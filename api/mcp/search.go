package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/foliohq/shelf/pkg/store"
)

var (
	searchToolName    = "search"
	searchDescription = "Search over ingested documents using hybrid semantic and keyword retrieval. Returns the most relevant document chunks for the query text."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query    string  `json:"query" jsonschema:"the search query text to find relevant document chunks"`
	TopK     int     `json:"top_k,omitempty" jsonschema:"number of results to return (default: 5)"`
	MinScore float64 `json:"min_score,omitempty" jsonschema:"relevance floor; chunks scoring below it are dropped"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	FileName   string  `json:"file_name,omitempty"`
	Index      int     `json:"index"`
	Score      float32 `json:"score"`
	Source     string  `json:"source"`
	Content    string  `json:"content"`
}

// SearchOutput represents the output of the search tool.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	opts := s.config.Retrieval
	if input.TopK > 0 {
		opts.Limit = input.TopK
	}
	if input.MinScore > 0 {
		opts.MinScore = float32(input.MinScore)
	}

	logger.Debug("MCP search request",
		zap.String("query", input.Query),
		zap.Int("limit", opts.Limit),
	)

	results, err := s.config.Retriever.Search(ctx, input.Query, opts)
	if err != nil {
		logger.Error("failed to search corpus", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to search: %v", err)},
			},
		}, SearchOutput{}, nil
	}

	output := buildSearchOutput(input.Query, results)

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

// buildSearchOutput converts ranked store results into the tool output shape.
func buildSearchOutput(query string, results []store.SearchResult) SearchOutput {
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult{
			ChunkID:    res.ID,
			DocumentID: res.DocumentID,
			FileName:   res.FileName,
			Index:      res.Index,
			Score:      res.Score,
			Source:     string(res.Source),
			Content:    res.Content,
		}
	}

	return SearchOutput{
		Query:   query,
		Results: out,
		Count:   len(out),
	}
}
