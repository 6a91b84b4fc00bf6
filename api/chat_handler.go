package api

import (
	"context"
	"encoding/json"
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foliohq/shelf/pkg/chat"
	"github.com/foliohq/shelf/pkg/llm"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	// Message is the user's question.
	Message string `json:"message"`

	// History is the prior conversation, oldest first.
	History []llm.Message `json:"history,omitempty"`
}

// ChatContextRecord is the first NDJSON record of a chat response. It carries
// the retrieval results grounding the answer; the answer chunks follow.
type ChatContextRecord struct {
	Type       string                 `json:"type"` // always "context"
	HasContext bool                   `json:"has_context"`
	Results    []SearchResultResponse `json:"results"`
}

// handleChat answers a question as an NDJSON stream: one context record with
// the grounding chunks, then one record per generated answer fragment.
func (s *Server) handleChat(c *fiber.Ctx) error {
	if s.config.Chatter == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{
			Error: "chat is not configured: a generator is required",
		})
	}

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "message is required"})
	}

	// Detach from the request context: fasthttp recycles it once the
	// handler returns, while generation keeps streaming into the pipe.
	// The cancel is owned by writeChatStream so the generator goroutine
	// is released when the client goes away mid-stream.
	ctx, cancel := context.WithCancel(context.Background())

	answer, err := s.config.Chatter.Ask(ctx, req.Message, req.History)
	if err != nil {
		cancel()
		s.logger.Error("chat generation failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	c.Set(fiber.HeaderContentType, "application/x-ndjson")

	// io.Pipe + SetBodyStream gives per-chunk flushing with backpressure;
	// SetBodyStreamWriter would buffer chunks in its internal pipe.
	pr, pw := io.Pipe()
	go s.writeChatStream(pw, answer, cancel)

	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// writeChatStream serializes the context record and answer fragments to the
// pipe as NDJSON. Returning for any reason cancels the generation context,
// which unblocks the generator goroutine if the stream was abandoned
// mid-answer.
func (s *Server) writeChatStream(pw *io.PipeWriter, answer *chat.Answer, cancel context.CancelFunc) {
	defer cancel()
	defer pw.Close()

	enc := json.NewEncoder(pw)

	ctxRecord := ChatContextRecord{
		Type:       "context",
		HasContext: answer.HasContext,
		Results:    buildSearchResponse("", answer.Results).Results,
	}
	if err := enc.Encode(ctxRecord); err != nil {
		s.logger.Warn("chat stream write failed", zap.Error(err))
		return
	}

	for chunk := range answer.Stream {
		if err := enc.Encode(chunk); err != nil {
			s.logger.Warn("chat stream write failed", zap.Error(err))
			return
		}
	}
}
