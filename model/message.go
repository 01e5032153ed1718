package model

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a chat message in the conversation
type Message struct {
	Role      string
	Content   string
	ToolCalls []ToolCall // Tools the model used while producing this message
	Timestamp time.Time
}

// ToolCall is a tool invocation requested by the model mid-stream. CallID is
// opaque and must be echoed back unchanged in the matching ToolResult.
type ToolCall struct {
	CallID    string
	Name      string
	Arguments map[string]any
}

// ToolResult carries the textual output of one ToolCall back to the model.
type ToolResult struct {
	CallID string
	Output string
}
