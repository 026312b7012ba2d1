package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bdobrica/Takumi/internal/takumi/llm"
)

// criticalFiles are never deleted by the delete_file tool, regardless of the
// arguments the model supplies.
var criticalFiles = map[string]struct{}{
	".git":         {},
	".env":         {},
	"go.mod":       {},
	"go.sum":       {},
	"package.json": {},
	"Cargo.toml":   {},
}

// ReadFileTool reads a file inside the workspace, optionally windowed to a
// line range.
type ReadFileTool struct {
	Root string
}

func (t *ReadFileTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "read_file",
			Description: "Read the contents of a file in the workspace. Supports reading a line range via offset (1-based) and limit.",
			Parameters: objectSchema(map[string]any{
				"target_file": map[string]any{
					"type":        "string",
					"description": "Path of the file to read, relative to the workspace root.",
				},
				"offset": map[string]any{
					"type":        "integer",
					"description": "1-based line number to start reading from.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of lines to return.",
				},
			}, []string{"target_file"}),
		},
	}
}

func (t *ReadFileTool) Execute(_ context.Context, args map[string]any) (any, error) {
	target, ok := stringArg(args, "target_file")
	if !ok || target == "" {
		return nil, fmt.Errorf("read_file: target_file is required")
	}
	abs, err := resolveInWorkspace(t.Root, target)
	if err != nil {
		return nil, fmt.Errorf("read_file: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read_file: %w", err)
	}

	content := string(data)
	offset := intArgOr(args, "offset", 0)
	limit := intArgOr(args, "limit", 0)
	total := strings.Count(content, "\n") + 1
	if offset > 0 || limit > 0 {
		lines := strings.Split(content, "\n")
		start := 0
		if offset > 0 {
			start = offset - 1
		}
		if start > len(lines) {
			start = len(lines)
		}
		end := len(lines)
		if limit > 0 && start+limit < end {
			end = start + limit
		}
		content = strings.Join(lines[start:end], "\n")
	}

	return map[string]any{
		"file":        workspaceRel(t.Root, abs),
		"content":     content,
		"total_lines": total,
	}, nil
}

// WriteFileTool creates or overwrites a file inside the workspace, creating
// parent directories as needed.
type WriteFileTool struct {
	Root string
}

func (t *WriteFileTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "write",
			Description: "Create or overwrite a file in the workspace with the given contents. Parent directories are created automatically.",
			Parameters: objectSchema(map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Path of the file to write, relative to the workspace root.",
				},
				"contents": map[string]any{
					"type":        "string",
					"description": "Full contents to write to the file.",
				},
			}, []string{"file_path", "contents"}),
		},
	}
}

func (t *WriteFileTool) Execute(_ context.Context, args map[string]any) (any, error) {
	target, ok := stringArg(args, "file_path")
	if !ok || target == "" {
		return nil, fmt.Errorf("write: file_path is required")
	}
	contents, ok := stringArg(args, "contents")
	if !ok {
		return nil, fmt.Errorf("write: contents is required")
	}
	abs, err := resolveInWorkspace(t.Root, target)
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("write: create parent directory: %w", err)
	}
	if err := os.WriteFile(abs, []byte(contents), 0o644); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	return map[string]any{
		"status":        "written",
		"file":          workspaceRel(t.Root, abs),
		"bytes_written": len(contents),
	}, nil
}

// SearchReplaceTool performs an exact-string replacement in a file. The old
// string must be present; by default only the first occurrence is replaced.
type SearchReplaceTool struct {
	Root string
}

func (t *SearchReplaceTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "search_replace",
			Description: "Replace an exact string in a file. Fails if the string is not found. Set replace_all to replace every occurrence instead of only the first.",
			Parameters: objectSchema(map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Path of the file to edit, relative to the workspace root.",
				},
				"old_string": map[string]any{
					"type":        "string",
					"description": "Exact text to find.",
				},
				"new_string": map[string]any{
					"type":        "string",
					"description": "Replacement text.",
				},
				"replace_all": map[string]any{
					"type":        "boolean",
					"description": "Replace every occurrence instead of only the first.",
				},
			}, []string{"file_path", "old_string", "new_string"}),
		},
	}
}

func (t *SearchReplaceTool) Execute(_ context.Context, args map[string]any) (any, error) {
	target, ok := stringArg(args, "file_path")
	if !ok || target == "" {
		return nil, fmt.Errorf("search_replace: file_path is required")
	}
	oldStr, ok := stringArg(args, "old_string")
	if !ok || oldStr == "" {
		return nil, fmt.Errorf("search_replace: old_string is required")
	}
	newStr, _ := stringArg(args, "new_string")

	abs, err := resolveInWorkspace(t.Root, target)
	if err != nil {
		return nil, fmt.Errorf("search_replace: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("search_replace: %w", err)
	}
	content := string(data)
	occurrences := strings.Count(content, oldStr)
	if occurrences == 0 {
		return nil, fmt.Errorf("search_replace: old_string not found in %s", workspaceRel(t.Root, abs))
	}

	replaced := 1
	if boolArgOr(args, "replace_all", false) {
		content = strings.ReplaceAll(content, oldStr, newStr)
		replaced = occurrences
	} else {
		content = strings.Replace(content, oldStr, newStr, 1)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("search_replace: %w", err)
	}
	return map[string]any{
		"status":       "replaced",
		"file":         workspaceRel(t.Root, abs),
		"replacements": replaced,
	}, nil
}

// DeleteFileTool removes a file inside the workspace. Critical project files
// are refused; a missing file is reported rather than treated as an error.
type DeleteFileTool struct {
	Root string
}

func (t *DeleteFileTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "delete_file",
			Description: "Delete a file in the workspace. Critical project files such as go.mod or .env cannot be deleted.",
			Parameters: objectSchema(map[string]any{
				"target_file": map[string]any{
					"type":        "string",
					"description": "Path of the file to delete, relative to the workspace root.",
				},
			}, []string{"target_file"}),
		},
	}
}

func (t *DeleteFileTool) Execute(_ context.Context, args map[string]any) (any, error) {
	target, ok := stringArg(args, "target_file")
	if !ok || target == "" {
		return nil, fmt.Errorf("delete_file: target_file is required")
	}
	abs, err := resolveInWorkspace(t.Root, target)
	if err != nil {
		return nil, fmt.Errorf("delete_file: %w", err)
	}
	rel := workspaceRel(t.Root, abs)
	if _, critical := criticalFiles[filepath.Base(abs)]; critical {
		return nil, fmt.Errorf("delete_file: refusing to delete critical file %s", rel)
	}
	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return map[string]any{"status": "not_found", "file": rel}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete_file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("delete_file: %s is a directory", rel)
	}
	if err := os.Remove(abs); err != nil {
		return nil, fmt.Errorf("delete_file: %w", err)
	}
	return map[string]any{"status": "deleted", "file": rel}, nil
}
