package testutil

import (
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"memex/model"
)

// TestMessages returns a sample conversation for testing
func TestMessages() []model.Message {
	return []model.Message{
		{
			Role:      model.RoleUser,
			Content:   "Who did I meet at the conference?",
			Timestamp: time.Now(),
		},
		{
			Role:      model.RoleAssistant,
			Content:   "You met Ada (person:ada). She works on compilers.",
			Timestamp: time.Now(),
		},
		{
			Role:      model.RoleUser,
			Content:   "Link her to the compilers concept.",
			Timestamp: time.Now(),
		},
	}
}

// SingleUserMessage returns a single user message for simple tests
func SingleUserMessage(content string) []model.Message {
	return []model.Message{
		{
			Role:      model.RoleUser,
			Content:   content,
			Timestamp: time.Now(),
		},
	}
}

// TestTools returns a small tool catalog in canonical form.
func TestTools() []mcptypes.Tool {
	return []mcptypes.Tool{
		mcptypes.NewTool("memex_search",
			mcptypes.WithDescription("Full-text search across all nodes in the knowledge graph"),
			mcptypes.WithString("query", mcptypes.Required(), mcptypes.Description("Search terms")),
			mcptypes.WithNumber("limit", mcptypes.Description("Max results (default 10)")),
		),
		mcptypes.NewTool("memex_create_node",
			mcptypes.WithDescription("Create a new node in the knowledge graph"),
			mcptypes.WithString("type", mcptypes.Required(), mcptypes.Description("Node type")),
			mcptypes.WithString("content", mcptypes.Required(), mcptypes.Description("Main content")),
			mcptypes.WithString("title", mcptypes.Description("Title for the node")),
		),
	}
}

// ToolCallExchange is one exchange that only requests a tool.
func ToolCallExchange(callID, name string, args map[string]any, token string) []model.StreamEvent {
	return []model.StreamEvent{
		model.ToolCallEvent(model.ToolCall{CallID: callID, Name: name, Arguments: args}),
		model.CompletedEvent(token),
	}
}

// TextExchange streams deltas and completes with token.
func TextExchange(token string, deltas ...string) []model.StreamEvent {
	events := make([]model.StreamEvent, 0, len(deltas)+1)
	for _, d := range deltas {
		events = append(events, model.TextEvent(d))
	}
	return append(events, model.CompletedEvent(token))
}
