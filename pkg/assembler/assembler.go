// Package assembler selects retrieved chunks into a context-budgeted prompt
// for downstream generation. Chunk ordering from the retriever is preserved;
// no re-sorting happens at this stage.
package assembler

import (
	"fmt"
	"strings"

	"github.com/foliohq/shelf/pkg/llm"
	"github.com/foliohq/shelf/pkg/store"
)

// DefaultBudget is the default context budget in characters.
const DefaultBudget = 8000

// Prompt is the assembled input for the generation boundary.
type Prompt struct {
	// HasContext is true iff at least one retrieved chunk made it into
	// the context.
	HasContext bool

	// System is the system prompt, including the selected context.
	System string

	// User is the user-facing prompt (the query).
	User string
}

// Assembler builds prompts from ranked retrieval results.
type Assembler struct {
	budget int
}

// NewAssembler creates an Assembler with the given context budget in
// characters. Non-positive budgets fall back to DefaultBudget.
func NewAssembler(budget int) *Assembler {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Assembler{budget: budget}
}

// Assemble selects ranked chunks into the context until the budget is
// exhausted and builds the prompt pair. The first chunk is always admitted
// so a single oversized chunk cannot produce an empty context from non-empty
// results. History is accepted for interface symmetry with the generator;
// the assembler itself does not rewrite it.
func (a *Assembler) Assemble(results []store.SearchResult, query string, history []llm.Message) Prompt {
	_ = history

	var selected []store.SearchResult
	used := 0
	for i, r := range results {
		cost := len(r.Content)
		if i > 0 && used+cost > a.budget {
			break
		}
		selected = append(selected, r)
		used += cost
	}

	if len(selected) == 0 {
		return Prompt{
			HasContext: false,
			System:     "You are a helpful assistant. No reference material matched the question; say so when you cannot answer from general knowledge.",
			User:       query,
		}
	}

	var b strings.Builder
	b.WriteString("You are a helpful assistant. Answer using the reference excerpts below. ")
	b.WriteString("If the excerpts do not contain the answer, say so.\n\n")
	for i, r := range selected {
		fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, r.FileName, r.Content)
	}

	return Prompt{
		HasContext: true,
		System:     b.String(),
		User:       query,
	}
}
