package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bdobrica/Takumi/common/retry"
	"github.com/bdobrica/Takumi/internal/takumi/llm"
)

const defaultSearchEndpoint = "https://api.tavily.com/search"

// WebSearchTool queries a web search API. When no API key is configured the
// tool stays registered but reports that searching is unavailable, so the
// model learns the limitation instead of the call failing hard.
type WebSearchTool struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

// NewWebSearchTool returns a WebSearchTool with sane defaults applied.
func NewWebSearchTool(apiKey, endpoint string) *WebSearchTool {
	if endpoint == "" {
		endpoint = defaultSearchEndpoint
	}
	return &WebSearchTool{
		APIKey:   apiKey,
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *WebSearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "web_search",
			Description: "Search the web and return the top results with titles, URLs, and content snippets.",
			Parameters: objectSchema(map[string]any{
				"search_term": map[string]any{
					"type":        "string",
					"description": "Query to search for.",
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results to return. Defaults to 5.",
				},
			}, []string{"search_term"}),
		},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	query, ok := stringArg(args, "search_term")
	if !ok || query == "" {
		return nil, fmt.Errorf("web_search: search_term is required")
	}
	if t.APIKey == "" {
		return map[string]any{
			"query":   query,
			"results": []any{},
			"error":   "web search is not configured: no API key is set",
		}, nil
	}
	maxResults := intArgOr(args, "max_results", 5)
	if maxResults <= 0 || maxResults > 20 {
		maxResults = 5
	}

	payload, err := json.Marshal(map[string]any{
		"api_key":     t.APIKey,
		"query":       query,
		"max_results": maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("web_search: encode request: %w", err)
	}

	var parsed struct {
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}

	cfg := retry.DefaultConfig
	cfg.MaxAttempts = 2
	err = retry.Do(ctx, cfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("search API returned %d: %s", resp.StatusCode, body)
		}
		return json.Unmarshal(body, &parsed)
	})
	if err != nil {
		return nil, fmt.Errorf("web_search: %w", err)
	}

	results := make([]map[string]any, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, map[string]any{
			"title":   r.Title,
			"url":     r.URL,
			"content": r.Content,
		})
	}
	return map[string]any{
		"query":   query,
		"results": results,
	}, nil
}
