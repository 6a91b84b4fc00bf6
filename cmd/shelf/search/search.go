// Package searchcmder provides the search command for hybrid search over the corpus.
package searchcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foliohq/shelf/api"
	"github.com/foliohq/shelf/pkg/cliui"
	"github.com/foliohq/shelf/pkg/config"
	"github.com/foliohq/shelf/pkg/logger"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	fileStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	contentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
)

type searchCommander struct {
	query    string
	topK     int
	minScore float64
	quiet    bool

	apiTarget string

	debug  bool
	logger *zap.Logger
}

const searchLongDesc string = `Search the corpus via the shelf API.

Runs a hybrid search: the query is matched both semantically (vector
similarity) and lexically (keyword index), and the merged results are ranked
by relevance. Requires a running shelf server.

Use --quiet to output only chunk IDs, one per line, for piping into other
commands.

Example:
  shelf search "how is retrieval configured"
  shelf search "chunk overlap" --top 10
  shelf search "relevance floor" --min-score 0.2
  shelf search "error handling" --api-target http://localhost:8082`

const searchShortDesc string = "Search the corpus"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
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
				cmder.apiTarget = TargetFromListen(cfg.API.Listen)
			}
			if !cmd.Flags().Changed("top") {
				cmder.topK = cfg.Retrieval.Limit
			}
			if !cmd.Flags().Changed("min-score") {
				cmder.minScore = cfg.Retrieval.MinScore
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", defaults.Retrieval.Limit, "Number of results to return")
	cmd.Flags().Float64Var(&cmder.minScore, "min-score", defaults.Retrieval.MinScore, "Relevance floor; results scoring below it are dropped")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only chunk IDs, one per line (for piping)")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", TargetFromListen(defaults.API.Listen), "Shelf API server URL")

	return cmd
}

func (c *searchCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	output, err := SearchAPI(c.apiTarget, c.query, c.topK, c.minScore)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Println("No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range output.Results {
			fmt.Println(result.ChunkID)
		}
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Search Results for:"),
		fileStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, result := range output.Results {
		printResult(i+1, result)
	}

	return nil
}

func printResult(rank int, result api.SearchResultResponse) {
	name := result.FileName
	if name == "" {
		name = result.DocumentID
	}

	fmt.Printf("  %s  %s  %s %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		fileStyle.Render(fmt.Sprintf("%s #%d", name, result.Index)),
		sourceStyle.Render("["+result.Source+"]"),
	)

	fmt.Printf("  %s\n\n", contentStyle.Render(cliui.Snippet(result.Content, 160)))
}

// TargetFromListen converts a listen address (e.g. ":8082") to a client URL.
func TargetFromListen(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "http://localhost" + listen
	}
	if strings.HasPrefix(listen, "http://") || strings.HasPrefix(listen, "https://") {
		return listen
	}
	return "http://" + listen
}

// SearchAPI calls the shelf search API and returns the parsed output.
// Exported so other commands can reuse it.
func SearchAPI(apiTarget, query string, topK int, minScore float64) (*api.SearchResponse, error) {
	searchURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	searchURL.Path = "/search"

	floor := float32(minScore)
	payload, err := json.Marshal(api.SearchRequest{
		Query:    query,
		Limit:    topK,
		MinScore: &floor,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, searchURL.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to shelf API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output api.SearchResponse
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return &output, nil
}
