package store_test

import (
	"path/filepath"
	"testing"

	"github.com/bdobrica/Takumi/internal/takumi/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "takumi.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTurnLogRoundTrip(t *testing.T) {
	s := newStore(t)

	id, err := s.LogTurn("r_abc", "fix the bug in main.go")
	if err != nil {
		t.Fatalf("LogTurn: %v", err)
	}
	if err := s.FinishTurn(id, 3, 5, "fixed it", ""); err != nil {
		t.Fatalf("FinishTurn: %v", err)
	}

	turns, err := s.RecentTurns(10)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	got := turns[0]
	if got.RequestID != "r_abc" || got.Answer != "fixed it" {
		t.Errorf("turn = %+v", got)
	}
	if got.Iterations != 3 || got.ToolCalls != 5 {
		t.Errorf("iterations/tool_calls = %d/%d, want 3/5", got.Iterations, got.ToolCalls)
	}
}

func TestRecentTurnsNewestFirst(t *testing.T) {
	s := newStore(t)
	for _, req := range []string{"first", "second", "third"} {
		if _, err := s.LogTurn("r_x", req); err != nil {
			t.Fatalf("LogTurn: %v", err)
		}
	}
	turns, err := s.RecentTurns(2)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 2 || turns[0].Request != "third" || turns[1].Request != "second" {
		t.Errorf("turns = %+v", turns)
	}
}

func TestChunkStorage(t *testing.T) {
	s := newStore(t)

	chunks := []store.Chunk{
		{ID: "c1", Path: "a.go", StartLine: 1, EndLine: 10, Content: "package a", Embedding: []float32{0.1, 0.2}},
		{ID: "c2", Path: "a.go", StartLine: 8, EndLine: 20, Content: "func A() {}", Embedding: []float32{0.3, 0.4}},
	}
	if err := s.ReplaceFileChunks("a.go", chunks); err != nil {
		t.Fatalf("ReplaceFileChunks: %v", err)
	}

	// Replacing again must not duplicate.
	if err := s.ReplaceFileChunks("a.go", chunks[:1]); err != nil {
		t.Fatalf("second ReplaceFileChunks: %v", err)
	}
	n, err := s.CountChunks()
	if err != nil {
		t.Fatalf("CountChunks: %v", err)
	}
	if n != 1 {
		t.Errorf("chunk count = %d, want 1", n)
	}

	all, err := s.AllChunks()
	if err != nil {
		t.Fatalf("AllChunks: %v", err)
	}
	if len(all) != 1 || all[0].ID != "c1" {
		t.Fatalf("chunks = %+v", all)
	}
	if len(all[0].Embedding) != 2 || all[0].Embedding[0] != float32(0.1) {
		t.Errorf("embedding round-trip = %v", all[0].Embedding)
	}
}
