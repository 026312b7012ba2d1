// Package index builds and queries a semantic index over the workspace
// source tree.
//
// Files are split into overlapping line-based chunks, each chunk is embedded
// through the configured embeddings API, and vectors are persisted alongside
// the chunk text. Queries embed the search string and rank chunks by cosine
// similarity in Go; at workspace scale a linear scan over the stored vectors
// is fast enough that no vector database is needed.
package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/bdobrica/Takumi/internal/takumi/store"
)

const (
	chunkLines   = 60
	overlapLines = 10
	maxFileSize  = 512 * 1024
)

// indexableExtensions limits the index to source and documentation files.
var indexableExtensions = map[string]struct{}{
	".go": {}, ".py": {}, ".js": {}, ".ts": {}, ".tsx": {}, ".jsx": {},
	".rs": {}, ".java": {}, ".c": {}, ".h": {}, ".cpp": {}, ".hpp": {},
	".rb": {}, ".sh": {}, ".sql": {}, ".yaml": {}, ".yml": {}, ".toml": {},
	".json": {}, ".md": {}, ".txt": {},
}

var skipDirs = map[string]struct{}{
	".git": {}, "node_modules": {}, "vendor": {}, "dist": {}, "build": {},
	".venv": {}, "venv": {}, "__pycache__": {},
}

// Embedder turns texts into embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Match is one search hit, ordered by descending similarity.
type Match struct {
	Path      string  `json:"path"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
}

// Indexer owns the chunk store and the embedder.
type Indexer struct {
	store    *store.Store
	embedder Embedder
	root     string
}

// New returns an Indexer over the workspace rooted at root.
func New(st *store.Store, embedder Embedder, root string) *Indexer {
	return &Indexer{store: st, embedder: embedder, root: root}
}

// IndexProject walks the workspace, chunks every indexable file, embeds the
// chunks, and replaces the stored index. Returns the number of files indexed.
func (ix *Indexer) IndexProject(ctx context.Context) (int, error) {
	files := 0
	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip && path != ix.root {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := indexableExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxFileSize {
			return nil
		}
		if err := ix.indexFile(ctx, path); err != nil {
			slog.Warn("index: skipping file", "path", path, "err", err)
			return nil
		}
		files++
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("index workspace: %w", err)
	}
	return files, nil
}

// indexFile chunks and embeds one file, replacing its stored chunks.
func (ix *Indexer) indexFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(ix.root, path)
	if err != nil {
		rel = path
	}

	chunks := splitChunks(rel, string(data))
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %s: %w", rel, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed %s: got %d vectors for %d chunks", rel, len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return ix.store.ReplaceFileChunks(rel, chunks)
}

// Search embeds the query and returns the topK most similar chunks.
func (ix *Indexer) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}
	vectors, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors, want 1", len(vectors))
	}
	queryVec := vectors[0]

	chunks, err := ix.store.AllChunks()
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}

	matches := make([]Match, 0, len(chunks))
	for _, c := range chunks {
		matches = append(matches, Match{
			Path:      c.Path,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Content:   c.Content,
			Score:     cosineSimilarity(queryVec, c.Embedding),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// splitChunks cuts content into overlapping line windows.
func splitChunks(path, content string) []store.Chunk {
	lines := strings.Split(content, "\n")
	if strings.TrimSpace(content) == "" {
		return nil
	}

	var chunks []store.Chunk
	step := chunkLines - overlapLines
	for start := 0; start < len(lines); start += step {
		end := start + chunkLines
		if end > len(lines) {
			end = len(lines)
		}
		text := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, store.Chunk{
				ID:        uuid.NewString(),
				Path:      path,
				StartLine: start + 1,
				EndLine:   end,
				Content:   text,
			})
		}
		if end == len(lines) {
			break
		}
	}
	return chunks
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0 for
// mismatched or zero-length vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
