// Package llm defines the generation boundary consumed by the chat flow.
// A generated answer is modeled as a lazy, finite, non-restartable sequence
// of text fragments delivered over a channel.
package llm

import "context"

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// StreamChunk is one fragment of a streamed answer. Done marks the final
// fragment; no further chunks follow it.
type StreamChunk struct {
	// Content is the text fragment of this chunk.
	Content string `json:"content"`

	// Done reports whether this is the final chunk.
	Done bool `json:"done"`

	// Model that generated the chunk (typically set on the final chunk).
	Model string `json:"model,omitempty"`
}

// ErrorResponse is the JSON error body returned by API handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Generator produces streamed answers from an assembled prompt.
type Generator interface {
	// Stream starts a generation and returns a channel of answer
	// fragments. The channel is closed after the Done chunk. The stream
	// cannot be restarted; callers consume it exactly once.
	Stream(ctx context.Context, system, user string, history []Message) (<-chan StreamChunk, error)

	// Close releases any resources held by the generator.
	Close() error
}
