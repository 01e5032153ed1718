package model

import (
	"context"
	"iter"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Provider abstracts one streaming LLM backend (OpenAI, Anthropic, Ollama)
// using provider-agnostic types from the model layer.
//
// This interface is defined in the model package (not provider package) to avoid
// import cycles: provider implementations import model, and the conversation
// logic here uses Provider without importing the provider package.
type Provider interface {
	// Stream runs one request/response exchange. The returned sequence is
	// single-pass and always ends with exactly one Completed or Failed event;
	// backend errors are reported as Failed, never returned or panicked.
	// Callers may stop ranging early to abandon the stream.
	Stream(ctx context.Context, req StreamRequest) iter.Seq[StreamEvent]

	// LastResponseID returns the continuation token of the most recent
	// completed exchange, or "" before the first one.
	LastResponseID() string

	// ListModels returns available models for this provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// GetModel returns the currently selected model name.
	GetModel() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// StreamRequest is the input of one provider round trip.
//
// A fresh exchange sends Messages with an empty PreviousResponseID. A chained
// exchange sends only ToolResults and references the prior response through
// PreviousResponseID, so the backend (or the provider on its behalf) supplies
// the earlier context.
type StreamRequest struct {
	Instructions       string
	Messages           []Message
	ToolResults        []ToolResult
	Tools              []mcptypes.Tool
	PreviousResponseID string
}

type ModelInfo struct {
	Name     string
	Provider string // Provider ID: "openai", "anthropic", "ollama"
	Size     int64
}
