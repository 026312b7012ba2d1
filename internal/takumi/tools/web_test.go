package tools_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bdobrica/Takumi/internal/takumi/tools"
)

func TestWebSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotQuery, _ = body["query"].(string)
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Go docs", "url": "https://go.dev", "content": "The Go programming language."},
			},
		})
	}))
	defer srv.Close()

	ws := tools.NewWebSearchTool("test-key", srv.URL)
	result, err := ws.Execute(context.Background(), map[string]any{"search_term": "golang"})
	if err != nil {
		t.Fatalf("web_search: %v", err)
	}
	if gotQuery != "golang" {
		t.Errorf("server saw query %q, want %q", gotQuery, "golang")
	}
	results := result.(map[string]any)["results"].([]map[string]any)
	if len(results) != 1 || results[0]["url"] != "https://go.dev" {
		t.Errorf("results = %v", results)
	}
}

func TestWebSearchUnconfigured(t *testing.T) {
	ws := tools.NewWebSearchTool("", "")
	result, err := ws.Execute(context.Background(), map[string]any{"search_term": "anything"})
	if err != nil {
		t.Fatalf("web_search: %v", err)
	}
	out := result.(map[string]any)
	if out["error"] == nil {
		t.Error("unconfigured search should report an error in the result")
	}
}

func TestWebSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ws := tools.NewWebSearchTool("test-key", srv.URL)
	if _, err := ws.Execute(context.Background(), map[string]any{"search_term": "golang"}); err == nil {
		t.Fatal("expected error from failing search API")
	}
}
