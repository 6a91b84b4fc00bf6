package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foliohq/shelf/pkg/llm"
	"github.com/foliohq/shelf/pkg/store"
)

// IngestRequest is the body of POST /documents.
type IngestRequest struct {
	// FileName is the human-readable source reference for the document.
	FileName string `json:"file_name"`

	// Content is the raw document text to chunk and embed.
	Content string `json:"content"`
}

// IngestResponse reports the outcome of an ingestion.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	FileName   string `json:"file_name"`
	Chunks     int    `json:"chunks"`
	Embedded   int    `json:"embedded"`
	Errored    int    `json:"errored"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleIngest chunks, embeds, and stores a document posted as JSON.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "content is required"})
	}
	if req.FileName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "file_name is required"})
	}

	result, err := s.config.Ingestor.IngestText(c.Context(), req.FileName, req.Content)
	if err != nil {
		s.logger.Error("ingestion failed",
			zap.String("file_name", req.FileName),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(IngestResponse{
		DocumentID: result.DocumentID,
		FileName:   result.FileName,
		Chunks:     result.Chunks,
		Embedded:   result.Embedded,
		Errored:    result.Errored,
	})
}

// handleDeleteDocument removes all chunks belonging to a document.
func (s *Server) handleDeleteDocument(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "id parameter required"})
	}

	if err := s.config.Storer.DeleteDocument(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "document not found"})
		}
		s.logger.Error("delete failed", zap.String("document_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(map[string]any{"deleted": id})
}

// handleListIndexes returns metadata for the store's indexes.
func (s *Server) handleListIndexes(c *fiber.Ctx) error {
	indexes, err := s.config.Storer.ListIndexes(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list indexes"})
	}

	return c.JSON(map[string]any{
		"count":   len(indexes),
		"indexes": indexes,
	})
}
