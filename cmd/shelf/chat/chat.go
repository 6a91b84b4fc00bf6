// Package chatcmder provides the chat command for asking questions grounded
// in the shelf corpus.
package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliohq/shelf/api"
	searchcmder "github.com/foliohq/shelf/cmd/shelf/search"
	"github.com/foliohq/shelf/pkg/cliui"
	"github.com/foliohq/shelf/pkg/config"
	"github.com/foliohq/shelf/pkg/llm"
	"github.com/foliohq/shelf/pkg/logger"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("shelf> ")
)

type chatCommander struct {
	apiTarget   string
	showSources bool
	debug       bool

	logger *zap.Logger
}

const chatLongDesc string = `Start an interactive chat session grounded in the shelf corpus.

Each question is answered by the configured chat model, grounded in the most
relevant document chunks retrieved from the corpus. When no relevant chunks
are found, the model answers from general knowledge.

Requires a running shelf server with a chat provider configured.

Examples:
  shelf chat
  shelf chat --sources
  shelf chat --api-target http://localhost:8082`

const chatShortDesc string = "Chat with your documents"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = searchcmder.TargetFromListen(cfg.API.Listen)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.apiTarget, "api-target", "a", searchcmder.TargetFromListen(defaults.API.Listen), "Shelf API server URL")
	cmd.Flags().BoolVar(&cmder.showSources, "sources", false, "Show the chunks each answer was grounded on")

	return cmd
}

func (c *chatCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	fmt.Println()
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /exit or Ctrl+D to quit."))

	var history []llm.Message
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		answer, err := c.sendAndStream(input, history)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		history = append(history,
			llm.Message{Role: "user", Content: input},
			llm.Message{Role: "assistant", Content: answer},
		)

		fmt.Println()
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// sendAndStream sends one question to the chat endpoint and streams the
// NDJSON response to stdout. Returns the full answer text.
func (c *chatCommander) sendAndStream(message string, history []llm.Message) (string, error) {
	payload, err := json.Marshal(api.ChatRequest{
		Message: message,
		History: history,
	})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, c.apiTarget+"/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to connect to shelf API at %s: %w", c.apiTarget, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	lines := bufio.NewScanner(resp.Body)
	lines.Buffer(make([]byte, 64*1024), 1024*1024)

	// First record carries the grounding context.
	if lines.Scan() {
		var ctxRecord api.ChatContextRecord
		if err := json.Unmarshal(lines.Bytes(), &ctxRecord); err != nil {
			return "", fmt.Errorf("parsing chat response: %w", err)
		}
		c.printSources(ctxRecord)
	}

	fmt.Print(assistantPrompt)

	var answer strings.Builder
	for lines.Scan() {
		var chunk llm.StreamChunk
		if err := json.Unmarshal(lines.Bytes(), &chunk); err != nil {
			return "", fmt.Errorf("parsing answer chunk: %w", err)
		}

		fmt.Print(chunk.Content)
		answer.WriteString(chunk.Content)

		if chunk.Done {
			break
		}
	}
	if err := lines.Err(); err != nil {
		return "", fmt.Errorf("reading answer stream: %w", err)
	}

	return answer.String(), nil
}

func (c *chatCommander) printSources(ctxRecord api.ChatContextRecord) {
	if !ctxRecord.HasContext {
		fmt.Printf("  %s\n", cliui.DimStyle.Render("(no relevant context found, answering from general knowledge)"))
		return
	}

	if !c.showSources {
		return
	}

	for _, res := range ctxRecord.Results {
		name := res.FileName
		if name == "" {
			name = res.DocumentID
		}
		fmt.Printf("  %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("[%.3f]", res.Score)),
			cliui.KeyStyle.Render(fmt.Sprintf("%s #%d", name, res.Index)),
		)
	}
	fmt.Println()
}
