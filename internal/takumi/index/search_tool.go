package index

import (
	"context"
	"fmt"

	"github.com/bdobrica/Takumi/internal/takumi/llm"
)

// Searcher is the query side of the index, extracted so the tool can be
// tested without a real embedder or database.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]Match, error)
}

// SearchTool exposes semantic code search to the model. It satisfies the
// local tool interface and is registered alongside the built-in tools when an
// index is configured.
type SearchTool struct {
	Searcher Searcher
}

func (t *SearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "codebase_search",
			Description: "Semantic search over the indexed workspace. Finds code by meaning rather than exact text; use grep for exact matches.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Natural-language description of the code to find.",
					},
					"top_k": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results. Defaults to 5.",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("codebase_search: query is required")
	}
	topK := 5
	if v, ok := args["top_k"].(float64); ok && int(v) > 0 {
		topK = int(v)
	}
	matches, err := t.Searcher.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("codebase_search: %w", err)
	}
	if matches == nil {
		matches = []Match{}
	}
	return map[string]any{
		"query":   query,
		"results": matches,
	}, nil
}
