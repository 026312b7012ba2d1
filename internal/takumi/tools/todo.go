package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bdobrica/Takumi/internal/takumi/llm"
)

const todoFileName = ".takumi-todos.json"

type todoItem struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

// TodoWriteTool maintains a task list for the current session, persisted as a
// JSON file in the workspace root.
type TodoWriteTool struct {
	Root string
}

func (t *TodoWriteTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "todo_write",
			Description: "Create or update items on the session task list. With merge=true (the default) items are merged by id; with merge=false the list is replaced.",
			Parameters: objectSchema(map[string]any{
				"todos": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":      map[string]any{"type": "string", "description": "Stable item id. Generated when omitted."},
							"content": map[string]any{"type": "string", "description": "What needs to be done."},
							"status": map[string]any{
								"type": "string",
								"enum": []string{"pending", "in_progress", "completed", "cancelled"},
							},
						},
						"required": []string{"content", "status"},
					},
					"description": "Task items to write.",
				},
				"merge": map[string]any{
					"type":        "boolean",
					"description": "Merge with the existing list by id instead of replacing it.",
				},
			}, []string{"todos"}),
		},
	}
}

func (t *TodoWriteTool) Execute(_ context.Context, args map[string]any) (any, error) {
	raw, ok := args["todos"].([]any)
	if !ok {
		return nil, fmt.Errorf("todo_write: todos is required")
	}
	now := time.Now().UTC().Format(time.RFC3339)

	incoming := make([]todoItem, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("todo_write: each todo must be an object")
		}
		content, _ := stringArg(m, "content")
		if content == "" {
			return nil, fmt.Errorf("todo_write: todo content is required")
		}
		incoming = append(incoming, todoItem{
			ID:        stringArgOr(m, "id", uuid.NewString()),
			Content:   content,
			Status:    stringArgOr(m, "status", "pending"),
			UpdatedAt: now,
		})
	}

	path := filepath.Join(t.Root, todoFileName)
	var current []todoItem
	if boolArgOr(args, "merge", true) {
		if data, err := os.ReadFile(path); err == nil {
			if err := json.Unmarshal(data, &current); err != nil {
				current = nil
			}
		}
	}

	for _, item := range incoming {
		replaced := false
		for i := range current {
			if current[i].ID == item.ID {
				current[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			current = append(current, item)
		}
	}

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("todo_write: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("todo_write: %w", err)
	}

	pending := 0
	for _, item := range current {
		if item.Status == "pending" || item.Status == "in_progress" {
			pending++
		}
	}
	return map[string]any{
		"status":      "updated",
		"total_todos": len(current),
		"open_todos":  pending,
	}, nil
}
