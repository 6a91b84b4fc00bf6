// Package cliui provides reusable terminal UI helpers (spinners, step indicators,
// markdown rendering, search result formatting) for shelf CLI commands.
package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/foliohq/shelf/pkg/store"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	snippetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	var mu sync.Mutex

	// Run spinner animation in background
	go func() {
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)

	// Clear the spinner line and print final result
	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	mu.Unlock()

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}

// RenderResult formats a single search result for terminal display:
// a numbered header with the file name, score, and match source, then
// a truncated content snippet.
func RenderResult(n int, res store.SearchResult) string {
	header := fmt.Sprintf("%s %s %s",
		TitleStyle.Render(fmt.Sprintf("%d. %s", n, displayName(res))),
		scoreStyle.Render(fmt.Sprintf("score=%.3f", res.Score)),
		sourceStyle.Render(fmt.Sprintf("[%s]", res.Source)),
	)

	return header + "\n" + snippetStyle.Render("   "+Snippet(res.Content, 200))
}

func displayName(res store.SearchResult) string {
	if res.FileName != "" {
		return fmt.Sprintf("%s #%d", res.FileName, res.Index)
	}
	return fmt.Sprintf("%s #%d", res.DocumentID, res.Index)
}

// Snippet truncates content to at most max runes on a single line.
func Snippet(content string, max int) string {
	out := make([]rune, 0, max)
	for _, r := range content {
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		}
		out = append(out, r)
		if len(out) >= max {
			return string(out) + "…"
		}
	}
	return string(out)
}
