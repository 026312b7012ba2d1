package index_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bdobrica/Takumi/internal/takumi/index"
	"github.com/bdobrica/Takumi/internal/takumi/store"
)

// keywordEmbedder maps texts onto a two-dimensional space: axis 0 for texts
// mentioning "database", axis 1 for everything else. Deterministic ranking
// without a real embeddings API.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.Contains(strings.ToLower(text), "database") {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("embeddings API unreachable")
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		abs := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestIndexAndSearch(t *testing.T) {
	root := seedWorkspace(t, map[string]string{
		"db.go":          "package db\n// opens the database connection",
		"ui.go":          "package ui\n// renders the terminal interface",
		"notes.bin":      "binary blob, wrong extension",
		"vendor/dep.go":  "package dep\n// vendored, must be skipped",
		".git/config.md": "git internals, must be skipped",
	})
	st := newTestStore(t)
	ix := index.New(st, keywordEmbedder{}, root)

	files, err := ix.IndexProject(context.Background())
	if err != nil {
		t.Fatalf("IndexProject: %v", err)
	}
	if files != 2 {
		t.Fatalf("indexed %d files, want 2", files)
	}

	matches, err := ix.Search(context.Background(), "where is the database opened", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].Path != "db.go" {
		t.Errorf("top match = %q, want db.go", matches[0].Path)
	}
	if matches[0].Score <= 0 {
		t.Errorf("top match score = %f, want > 0", matches[0].Score)
	}
}

func TestReindexReplacesChunks(t *testing.T) {
	root := seedWorkspace(t, map[string]string{"f.go": "package f\n// database helper"})
	st := newTestStore(t)
	ix := index.New(st, keywordEmbedder{}, root)

	if _, err := ix.IndexProject(context.Background()); err != nil {
		t.Fatalf("first IndexProject: %v", err)
	}
	if _, err := ix.IndexProject(context.Background()); err != nil {
		t.Fatalf("second IndexProject: %v", err)
	}
	n, err := st.CountChunks()
	if err != nil {
		t.Fatalf("CountChunks: %v", err)
	}
	if n != 1 {
		t.Errorf("chunk count after reindex = %d, want 1", n)
	}
}

func TestSearchEmbedderFailure(t *testing.T) {
	st := newTestStore(t)
	ix := index.New(st, failingEmbedder{}, t.TempDir())

	if _, err := ix.Search(context.Background(), "anything", 5); err == nil {
		t.Fatal("expected error when the embedder fails")
	}
}

func TestSearchTool(t *testing.T) {
	tool := &index.SearchTool{Searcher: searcherFunc(func(_ context.Context, query string, topK int) ([]index.Match, error) {
		return []index.Match{{Path: "db.go", StartLine: 1, EndLine: 2, Content: "x", Score: 0.9}}, nil
	})}

	result, err := tool.Execute(context.Background(), map[string]any{"query": "open db"})
	if err != nil {
		t.Fatalf("codebase_search: %v", err)
	}
	out := result.(map[string]any)
	if out["query"] != "open db" {
		t.Errorf("query = %v", out["query"])
	}
	if len(out["results"].([]index.Match)) != 1 {
		t.Errorf("results = %v", out["results"])
	}

	if _, err := tool.Execute(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for missing query")
	}
}

type searcherFunc func(ctx context.Context, query string, topK int) ([]index.Match, error)

func (f searcherFunc) Search(ctx context.Context, query string, topK int) ([]index.Match, error) {
	return f(ctx, query, topK)
}
