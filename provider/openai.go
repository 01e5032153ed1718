package provider

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"

	"memex/config"
	"memex/model"
)

// OpenAIProvider streams from the OpenAI Responses API. Continuation is
// server-side: the response id of a completed exchange is the token a
// chained request passes as previous_response_id.
type OpenAIProvider struct {
	client  openai.Client
	baseURL string

	mu             sync.RWMutex
	model          string
	lastResponseID string
}

// NewOpenAIProvider creates a new OpenAI provider instance.
//
// Parameters:
//   - baseURL: OpenAI API base URL (default: "https://api.openai.com/v1")
//   - apiKey: OpenAI API key (required)
//   - model: Initial model to use (default: config.DefaultOpenAIModel)
//
// Returns an error if the API key is missing.
func NewOpenAIProvider(baseURL, apiKey, modelName string, opts ...option.RequestOption) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY)")
	}
	if modelName == "" {
		modelName = config.DefaultOpenAIModel
	}

	opts = append([]option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	}, opts...)

	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		model:   modelName,
		baseURL: baseURL,
	}, nil
}

// Stream implements model.Provider.
func (p *OpenAIProvider) Stream(ctx context.Context, req model.StreamRequest) iter.Seq[model.StreamEvent] {
	return func(yield func(model.StreamEvent) bool) {
		params := p.newParams(req)

		if config.DebugLog != nil {
			config.DebugLog.Debugf("[openai] request model=%s items=%d tools=%d previous=%q",
				params.Model, len(params.Input.OfInputItemList), len(params.Tools), req.PreviousResponseID)
		}

		stream := p.client.Responses.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			switch ev := stream.Current().AsAny().(type) {
			case responses.ResponseTextDeltaEvent:
				if ev.Delta == "" {
					continue
				}
				if !yield(model.TextEvent(ev.Delta)) {
					return
				}

			case responses.ResponseOutputItemDoneEvent:
				if ev.Item.Type != "function_call" {
					continue
				}
				fc := ev.Item.AsFunctionCall()
				call := model.ToolCall{
					CallID:    fc.CallID,
					Name:      fc.Name,
					Arguments: ParseToolArguments(fc.Arguments),
				}
				if !yield(model.ToolCallEvent(call)) {
					return
				}

			case responses.ResponseCompletedEvent:
				p.mu.Lock()
				p.lastResponseID = ev.Response.ID
				p.mu.Unlock()
				yield(model.CompletedEvent(ev.Response.ID))
				return

			case responses.ResponseIncompleteEvent:
				reason := ev.Response.IncompleteDetails.Reason
				if reason == "" {
					reason = "unknown"
				}
				yield(model.FailedEvent("response incomplete: " + reason))
				return

			case responses.ResponseFailedEvent:
				msg := ev.Response.Error.Message
				if msg == "" {
					msg = "response failed"
				}
				yield(model.FailedEvent(msg))
				return

			case responses.ResponseErrorEvent:
				yield(model.FailedEvent(ev.Message))
				return
			}
		}

		if err := stream.Err(); err != nil {
			yield(model.FailedEvent(streamFailure("OpenAI", err)))
			return
		}
		yield(model.FailedEvent("stream ended without completion"))
	}
}

func (p *OpenAIProvider) newParams(req model.StreamRequest) responses.ResponseNewParams {
	var items responses.ResponseInputParam
	if req.PreviousResponseID == "" {
		items = ConvertToResponsesInput(req.Messages)
	}
	items = append(items, ConvertToolResultsToResponsesInput(req.ToolResults)...)

	params := responses.ResponseNewParams{
		Model: p.GetModel(),
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: items},
		Tools: ConvertMCPToolsToResponses(req.Tools),
	}
	if req.Instructions != "" {
		params.Instructions = openai.String(req.Instructions)
	}
	if req.PreviousResponseID != "" {
		params.PreviousResponseID = openai.String(req.PreviousResponseID)
	}
	return params
}

// LastResponseID implements model.Provider.
func (p *OpenAIProvider) LastResponseID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastResponseID
}

// ListModels implements model.Provider.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenAI models: %w", err)
	}

	result := make([]model.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		result = append(result, model.ModelInfo{Name: m.ID, Provider: string(ProviderTypeOpenAI)})
	}
	return result, nil
}

func (p *OpenAIProvider) GetModel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

func (p *OpenAIProvider) SetModel(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = name
}

// Ping implements model.Provider by listing models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("OpenAI ping failed: %w", err)
	}
	return nil
}

// streamFailure renders a transport error as a Failed reason.
func streamFailure(backend string, err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	default:
		return fmt.Sprintf("%s streaming error: %v", backend, err)
	}
}
