// Package websearchtool provides the search_web builtin tool, LOW risk
// since it is a read-only, side-effect-free lookup. Same Fetcher-injection
// shape as internal/toolkit/weathertool; live network access is an
// external collaborator, so [Tools] with a nil searcher uses a
// deterministic stand-in.
package websearchtool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Harsha2sai/Maya-One/internal/mcp/tools"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// Result is a single search result.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher runs a web search for query and returns the top results.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// stubSearcher returns a single deterministic placeholder result derived
// from the query, so repeated calls with the same query are stable
// without needing a real search backend.
type stubSearcher struct{}

func (stubSearcher) Search(_ context.Context, query string) ([]Result, error) {
	if query == "" {
		return nil, fmt.Errorf("websearchtool: query must not be empty")
	}
	return []Result{{
		Title:   fmt.Sprintf("Search results for %q", query),
		URL:     "https://example.com/search?q=" + query,
		Snippet: "No live web search backend is configured; this is a placeholder result.",
	}}, nil
}

type searchArgs struct {
	Query string `json:"query"`
}

// Tools returns the search_web tool backed by searcher. Pass nil to use
// the built-in deterministic stand-in.
func Tools(searcher Searcher) []tools.Tool {
	if searcher == nil {
		searcher = stubSearcher{}
	}
	return []tools.Tool{
		{
			Definition: types.ToolDefinition{
				Name:        "search_web",
				Description: "Search the web for up-to-date information.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{"type": "string", "description": "Search query text."},
					},
					"required": []string{"query"},
				},
			},
			Handler: func(ctx context.Context, args string) (string, error) {
				var a searchArgs
				if err := json.Unmarshal([]byte(args), &a); err != nil {
					return "", fmt.Errorf("websearchtool: failed to parse arguments: %w", err)
				}
				results, err := searcher.Search(ctx, a.Query)
				if err != nil {
					return "", err
				}
				res, _ := json.Marshal(results)
				return string(res), nil
			},
			DeclaredP50: 400,
			DeclaredMax: 4000,
		},
	}
}
