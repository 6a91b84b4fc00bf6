// Package ollama implements pkg/llm's Generator against Ollama's chat API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/foliohq/shelf/pkg/llm"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "llama3.2"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Generator wraps Ollama's streaming chat API.
type Generator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// GeneratorConfig holds configuration for the Ollama generator.
type GeneratorConfig struct {
	// BaseURL is the Ollama API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the chat model to use. Defaults to DefaultModel if empty.
	Model string
}

// chatRequest is the request body for Ollama's chat API.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is one NDJSON line of Ollama's streaming chat response.
type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// NewGenerator creates a generator using Ollama's chat API.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			// Streaming responses stay open for the full generation.
			Timeout: 10 * time.Minute,
		},
	}, nil
}

// Stream starts a chat generation and returns a channel of answer fragments.
func (g *Generator) Stream(ctx context.Context, system, user string, history []llm.Message) (<-chan llm.StreamChunk, error) {
	messages := make([]chatMessage, 0, len(history)+2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	for _, m := range history {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	jsonBody, err := json.Marshal(chatRequest{
		Model:    g.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	chunks := make(chan llm.StreamChunk)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var cr chatResponse
			if err := json.Unmarshal(line, &cr); err != nil {
				continue
			}

			chunk := llm.StreamChunk{
				Content: cr.Message.Content,
				Done:    cr.Done,
				Model:   cr.Model,
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}

			if cr.Done {
				return
			}
		}
	}()

	return chunks, nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	return nil
}

// Ensure Generator implements llm.Generator
var _ llm.Generator = (*Generator)(nil)
