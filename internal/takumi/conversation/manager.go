// Package conversation owns the ordered message history for one agent
// instance.
//
// The manager is append-only from the orchestrator's perspective: messages
// are added in the order they occur and replayed to the model in exactly
// that order. No operation fails; all are plain appends and reads.
package conversation

import (
	"encoding/json"
	"fmt"

	"github.com/bdobrica/Takumi/internal/takumi/llm"
)

// Manager holds the ordered message sequence for one conversation.
//
// MaxHistoryTokens is a declared budget only: no truncation or summarisation
// is applied when the history grows past it.
type Manager struct {
	messages         []llm.Message
	MaxHistoryTokens int
}

// NewManager returns an empty conversation. maxHistoryTokens may be zero for
// "no declared budget".
func NewManager(maxHistoryTokens int) *Manager {
	return &Manager{MaxHistoryTokens: maxHistoryTokens}
}

// AddSystem appends a system message.
func (m *Manager) AddSystem(text string) {
	m.messages = append(m.messages, llm.Message{Role: llm.RoleSystem, Content: text})
}

// AddUser appends a user message.
func (m *Manager) AddUser(text string) {
	m.messages = append(m.messages, llm.Message{Role: llm.RoleUser, Content: text})
}

// AddAssistant appends an assistant message, optionally carrying the tool
// calls the model requested.
func (m *Manager) AddAssistant(content string, toolCalls []llm.ToolCall) {
	m.messages = append(m.messages, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
	})
}

// AddToolResult appends the result of one tool call. A tool message always
// carries both the originating call ID and the tool name. Non-string results
// are canonically serialised to indented JSON before storage.
func (m *Manager) AddToolResult(toolCallID, name string, result any) {
	m.messages = append(m.messages, llm.Message{
		Role:       llm.RoleTool,
		Content:    renderResult(result),
		ToolCallID: toolCallID,
		Name:       name,
	})
}

// Projection returns the wire-ready message sequence in insertion order. The
// returned slice is a copy; mutating it does not affect the history.
func (m *Manager) Projection() []llm.Message {
	out := make([]llm.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Clear drops all messages.
func (m *Manager) Clear() {
	m.messages = nil
}

// Count returns the number of stored messages.
func (m *Manager) Count() int {
	return len(m.messages)
}

// renderResult converts a tool result to the string stored in the history.
func renderResult(result any) string {
	switch v := result.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
