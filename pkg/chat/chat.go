// Package chat runs the end-to-end answer flow: hybrid retrieval, context
// assembly, and streamed generation. A failed retrieval degrades to an
// empty-context answer instead of surfacing an error to the user.
package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/foliohq/shelf/pkg/assembler"
	"github.com/foliohq/shelf/pkg/llm"
	"github.com/foliohq/shelf/pkg/retriever"
	"github.com/foliohq/shelf/pkg/store"
)

// Chatter answers questions over the ingested corpus.
type Chatter struct {
	retriever *retriever.Retriever
	assembler *assembler.Assembler
	generator llm.Generator
	options   retriever.Options
	logger    *zap.Logger
}

// NewChatter creates a Chatter with explicitly injected collaborators.
func NewChatter(
	r *retriever.Retriever,
	a *assembler.Assembler,
	g llm.Generator,
	opts retriever.Options,
	logger *zap.Logger,
) *Chatter {
	return &Chatter{
		retriever: r,
		assembler: a,
		generator: g,
		options:   opts,
		logger:    logger,
	}
}

// Answer is the outcome of one question: the retrieval results that grounded
// it, the assembled prompt, and the live answer stream.
type Answer struct {
	// Results are the ranked chunks the answer is grounded on.
	Results []store.SearchResult

	// HasContext reports whether any chunk made it into the prompt.
	HasContext bool

	// Stream delivers the generated answer fragments.
	Stream <-chan llm.StreamChunk
}

// Ask retrieves context for the query, assembles the prompt, and starts a
// streamed generation. Retrieval being unavailable is not fatal: the answer
// proceeds without context.
func (c *Chatter) Ask(ctx context.Context, query string, history []llm.Message) (*Answer, error) {
	results, err := c.retriever.Search(ctx, query, c.options)
	if err != nil {
		// Both retrieval paths failed. Degrade to an empty-context
		// answer rather than failing the question.
		c.logger.Warn("retrieval unavailable, answering without context",
			zap.Error(err),
		)
		results = nil
	}

	prompt := c.assembler.Assemble(results, query, history)

	stream, err := c.generator.Stream(ctx, prompt.System, prompt.User, history)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Results:    results,
		HasContext: prompt.HasContext,
		Stream:     stream,
	}, nil
}
