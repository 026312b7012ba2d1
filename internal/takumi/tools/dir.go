package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bdobrica/Takumi/internal/takumi/llm"
)

// ListDirTool lists the direct children of a workspace directory.
type ListDirTool struct {
	Root string
}

func (t *ListDirTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "list_dir",
			Description: "List the files and directories directly inside a workspace directory. Common build and dependency directories are skipped.",
			Parameters: objectSchema(map[string]any{
				"target_directory": map[string]any{
					"type":        "string",
					"description": "Directory to list, relative to the workspace root. Defaults to the workspace root.",
				},
				"ignore_globs": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Glob patterns for entries to skip, replacing the default ignore list.",
				},
			}, nil),
		},
	}
}

func (t *ListDirTool) Execute(_ context.Context, args map[string]any) (any, error) {
	target := stringArgOr(args, "target_directory", ".")
	abs, err := resolveInWorkspace(t.Root, target)
	if err != nil {
		return nil, fmt.Errorf("list_dir: %w", err)
	}
	globs := stringSliceArg(args, "ignore_globs")
	if globs == nil {
		globs = defaultIgnoreGlobs
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("list_dir: %w", err)
	}

	var files []map[string]any
	var dirs []string
	for _, entry := range entries {
		if shouldIgnore(entry.Name(), globs) {
			continue
		}
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
			continue
		}
		size := int64(0)
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		files = append(files, map[string]any{
			"name": entry.Name(),
			"size": size,
		})
	}
	sort.Strings(dirs)
	sort.Slice(files, func(i, j int) bool {
		return files[i]["name"].(string) < files[j]["name"].(string)
	})

	return map[string]any{
		"directory":   workspaceRel(t.Root, abs),
		"directories": dirs,
		"files":       files,
	}, nil
}

// GlobFileSearchTool finds files whose name or workspace-relative path
// matches a glob pattern.
type GlobFileSearchTool struct {
	Root string
}

func (t *GlobFileSearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "glob_file_search",
			Description: "Find files in the workspace whose name matches a glob pattern, e.g. '*.go' or 'config.*'.",
			Parameters: objectSchema(map[string]any{
				"glob_pattern": map[string]any{
					"type":        "string",
					"description": "Glob pattern matched against file names and relative paths.",
				},
				"target_directory": map[string]any{
					"type":        "string",
					"description": "Directory to search under, relative to the workspace root. Defaults to the workspace root.",
				},
			}, []string{"glob_pattern"}),
		},
	}
}

func (t *GlobFileSearchTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	pattern, ok := stringArg(args, "glob_pattern")
	if !ok || pattern == "" {
		return nil, fmt.Errorf("glob_file_search: glob_pattern is required")
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("glob_file_search: invalid pattern %q: %w", pattern, err)
	}
	target := stringArgOr(args, "target_directory", ".")
	base, err := resolveInWorkspace(t.Root, target)
	if err != nil {
		return nil, fmt.Errorf("glob_file_search: %w", err)
	}

	var matches []string
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel := workspaceRel(t.Root, path)
		if d.IsDir() {
			if path != base && shouldIgnore(d.Name(), defaultIgnoreGlobs) {
				return filepath.SkipDir
			}
			return nil
		}
		if nameMatch, _ := filepath.Match(pattern, d.Name()); nameMatch {
			matches = append(matches, rel)
			return nil
		}
		if pathMatch, _ := filepath.Match(pattern, filepath.ToSlash(rel)); pathMatch {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("glob_file_search: %w", err)
	}
	sort.Strings(matches)

	return map[string]any{
		"pattern": pattern,
		"matches": matches,
		"total":   len(matches),
	}, nil
}

// looksBinary reports whether data appears to be binary content. Used by the
// content search tools to skip non-text files.
func looksBinary(data []byte) bool {
	n := len(data)
	if n > 1024 {
		n = 1024
	}
	for _, b := range data[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}

// isTextFile reads the head of a file and reports whether it looks like text.
func isTextFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, 1024)
	n, _ := f.Read(buf)
	return !looksBinary(buf[:n]) && !strings.HasSuffix(path, ".min.js")
}
