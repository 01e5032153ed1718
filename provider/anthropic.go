package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"memex/config"
	"memex/model"
)

// anthropicMaxTokens is required by the Messages API.
const anthropicMaxTokens = 4096

// AnthropicProvider streams from the Anthropic Messages API. The API has no
// server-side chaining, so each completed exchange is kept in a local chain
// store and continued from there.
type AnthropicProvider struct {
	client  *anthropic.Client
	chains  *chainStore[anthropic.MessageParam]
	baseURL string

	mu             sync.RWMutex
	model          anthropic.Model
	lastResponseID string
}

// NewAnthropicProvider creates a new Anthropic provider instance.
//
// Parameters:
//   - baseURL: Anthropic API base URL (default: "https://api.anthropic.com")
//   - apiKey: Anthropic API key (required)
//   - model: Initial model to use (default: Claude Sonnet 4.5)
func NewAnthropicProvider(baseURL, apiKey, modelName string, opts ...option.RequestOption) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY)")
	}

	m := anthropic.ModelClaudeSonnet4_5_20250929
	if modelName != "" {
		m = anthropic.Model(modelName)
	}

	opts = append([]option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	}, opts...)
	client := anthropic.NewClient(opts...)

	return &AnthropicProvider{
		client:  &client,
		chains:  newChainStore[anthropic.MessageParam](),
		model:   m,
		baseURL: baseURL,
	}, nil
}

// Stream implements model.Provider. Tool calls are reported once the message
// is complete, followed by the Completed event.
func (p *AnthropicProvider) Stream(ctx context.Context, req model.StreamRequest) iter.Seq[model.StreamEvent] {
	return func(yield func(model.StreamEvent) bool) {
		var msgs []anthropic.MessageParam
		if req.PreviousResponseID != "" {
			prior, ok := p.chains.load(req.PreviousResponseID)
			if !ok {
				yield(model.FailedEvent("unknown continuation token " + req.PreviousResponseID))
				return
			}
			msgs = prior
		} else {
			msgs = ConvertToAnthropicMessages(req.Messages)
		}
		if len(req.ToolResults) > 0 {
			msgs = append(msgs, ConvertToolResultsToAnthropic(req.ToolResults))
		}

		params := anthropic.MessageNewParams{
			Model:     p.currentModel(),
			Messages:  msgs,
			MaxTokens: anthropicMaxTokens,
			Tools:     ConvertMCPToolsToAnthropicFormat(req.Tools),
		}
		if req.Instructions != "" {
			params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
		}

		if config.DebugLog != nil {
			config.DebugLog.Debugf("[anthropic] request model=%s messages=%d tools=%d", params.Model, len(msgs), len(params.Tools))
		}

		stream := p.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		msg := anthropic.Message{}
		stopped := false
		for stream.Next() {
			event := stream.Current()
			if err := msg.Accumulate(event); err != nil {
				yield(model.FailedEvent(fmt.Sprintf("error accumulating message: %v", err)))
				return
			}

			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					if !yield(model.TextEvent(delta.Text)) {
						return
					}
				}
			case anthropic.MessageStopEvent:
				stopped = true
			}
		}

		if err := stream.Err(); err != nil {
			yield(model.FailedEvent(streamFailure("Anthropic", err)))
			return
		}
		if !stopped {
			yield(model.FailedEvent("stream ended without completion"))
			return
		}

		for _, call := range extractToolCalls(msg.Content) {
			if !yield(model.ToolCallEvent(call)) {
				return
			}
		}

		token := p.chains.save(append(msgs, msg.ToParam()))
		p.mu.Lock()
		p.lastResponseID = token
		p.mu.Unlock()
		yield(model.CompletedEvent(token))
	}
}

// extractToolCalls returns the tool_use blocks of a finished message.
// Blocks with unparseable input are called with no arguments.
func extractToolCalls(content []anthropic.ContentBlockUnion) []model.ToolCall {
	var calls []model.ToolCall
	for _, block := range content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}
		args := map[string]any{}
		if len(toolUse.Input) > 0 {
			if err := json.Unmarshal(toolUse.Input, &args); err != nil || args == nil {
				args = map[string]any{}
			}
		}
		calls = append(calls, model.ToolCall{
			CallID:    toolUse.ID,
			Name:      toolUse.Name,
			Arguments: args,
		})
	}
	return calls
}

func (p *AnthropicProvider) LastResponseID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastResponseID
}

// ListModels returns a curated list; the SDK version in use predates a
// stable models endpoint.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	models := []anthropic.Model{
		anthropic.ModelClaudeSonnet4_5_20250929,
		anthropic.ModelClaude3_5Haiku20241022,
		anthropic.ModelClaude_3_Opus_20240229,
		anthropic.ModelClaude_3_Haiku_20240307,
	}

	result := make([]model.ModelInfo, 0, len(models))
	for _, m := range models {
		result = append(result, model.ModelInfo{Name: string(m), Provider: string(ProviderTypeAnthropic)})
	}
	return result, nil
}

func (p *AnthropicProvider) currentModel() anthropic.Model {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

func (p *AnthropicProvider) GetModel() string {
	return string(p.currentModel())
}

func (p *AnthropicProvider) SetModel(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = anthropic.Model(name)
}

// Ping makes a minimal one-token request; there is no health endpoint.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.currentModel(),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("Anthropic ping failed: %w", err)
	}
	return nil
}
