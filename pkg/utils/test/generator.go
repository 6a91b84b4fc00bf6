package testutils

import (
	"context"
	"fmt"

	"github.com/foliohq/shelf/pkg/llm"
)

// MockGenerator is a test generator that streams a fixed reply
type MockGenerator struct {
	// Reply is split into per-rune chunks followed by a Done chunk
	Reply string

	// Fail causes Stream to return an error
	Fail bool

	// LastSystem and LastUser record the most recent prompt
	LastSystem string
	LastUser   string
}

func NewMockGenerator(reply string) *MockGenerator {
	return &MockGenerator{Reply: reply}
}

func (m *MockGenerator) Stream(ctx context.Context, system, user string, _ []llm.Message) (<-chan llm.StreamChunk, error) {
	if m.Fail {
		return nil, fmt.Errorf("mock generation failure")
	}

	m.LastSystem = system
	m.LastUser = user

	chunks := make(chan llm.StreamChunk)
	go func() {
		defer close(chunks)
		for _, r := range m.Reply {
			select {
			case chunks <- llm.StreamChunk{Content: string(r)}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case chunks <- llm.StreamChunk{Done: true}:
		case <-ctx.Done():
		}
	}()
	return chunks, nil
}

func (m *MockGenerator) Close() error {
	return nil
}

// Ensure MockGenerator implements llm.Generator
var _ llm.Generator = (*MockGenerator)(nil)
