package provider

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"

	"memex/config"
	"memex/model"
)

// DefaultOllamaModel is used when no model is configured for Ollama.
const DefaultOllamaModel = "llama3.1:latest"

var errStopStream = errors.New("stream abandoned")

// OllamaProvider streams from a local Ollama server. Ollama has neither
// call ids nor server-side chaining: call ids are minted locally and each
// completed exchange is kept in a local chain store.
type OllamaProvider struct {
	client  *api.Client
	chains  *chainStore[api.Message]
	baseURL string

	mu             sync.RWMutex
	model          string
	lastResponseID string
}

// NewOllamaProvider creates a new Ollama provider instance. An empty baseURL
// defaults to config.DefaultOllamaHost.
func NewOllamaProvider(baseURL, modelName string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = config.DefaultOllamaHost
	}
	if modelName == "" {
		modelName = DefaultOllamaModel
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	if !ModelSupportsToolCalling(modelName) && config.DebugLog != nil {
		config.DebugLog.Warnf("[ollama] model %s is not known to support tool calling", modelName)
	}

	return &OllamaProvider{
		client:  api.NewClient(parsed, http.DefaultClient),
		chains:  newChainStore[api.Message](),
		model:   modelName,
		baseURL: baseURL,
	}, nil
}

// Stream implements model.Provider.
func (p *OllamaProvider) Stream(ctx context.Context, req model.StreamRequest) iter.Seq[model.StreamEvent] {
	return func(yield func(model.StreamEvent) bool) {
		var msgs []api.Message
		if req.PreviousResponseID != "" {
			prior, ok := p.chains.load(req.PreviousResponseID)
			if !ok {
				yield(model.FailedEvent("unknown continuation token " + req.PreviousResponseID))
				return
			}
			msgs = prior
		} else {
			msgs = ConvertToOllamaMessages(req.Instructions, req.Messages)
		}
		msgs = append(msgs, ConvertToolResultsToOllama(req.ToolResults)...)

		stream := true
		chatReq := &api.ChatRequest{
			Model:    p.GetModel(),
			Messages: msgs,
			Tools:    ConvertMCPToolsToOllama(req.Tools),
			Stream:   &stream,
		}

		var (
			content strings.Builder
			calls   []api.ToolCall
			done    bool
		)
		err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			if resp.Message.Content != "" {
				content.WriteString(resp.Message.Content)
				if !yield(model.TextEvent(resp.Message.Content)) {
					return errStopStream
				}
			}
			for _, tc := range resp.Message.ToolCalls {
				calls = append(calls, tc)
				call := model.ToolCall{
					CallID:    uuid.NewString(),
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				}
				if call.Arguments == nil {
					call.Arguments = map[string]any{}
				}
				if !yield(model.ToolCallEvent(call)) {
					return errStopStream
				}
			}
			if resp.Done {
				done = true
			}
			return nil
		})

		switch {
		case errors.Is(err, errStopStream):
			return
		case err != nil:
			yield(model.FailedEvent(streamFailure("Ollama", err)))
			return
		case !done:
			yield(model.FailedEvent("stream ended without completion"))
			return
		}

		msgs = append(msgs, api.Message{
			Role:      model.RoleAssistant,
			Content:   content.String(),
			ToolCalls: calls,
		})
		token := p.chains.save(msgs)
		p.mu.Lock()
		p.lastResponseID = token
		p.mu.Unlock()
		yield(model.CompletedEvent(token))
	}
}

func (p *OllamaProvider) LastResponseID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastResponseID
}

// ListModels returns the models pulled on the Ollama server.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	resp, err := p.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]model.ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = model.ModelInfo{
			Name:     m.Name,
			Size:     m.Size,
			Provider: string(ProviderTypeOllama),
		}
	}
	return models, nil
}

func (p *OllamaProvider) GetModel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

func (p *OllamaProvider) SetModel(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = name
}

// Ping checks the server is reachable with a bounded list call.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.client.List(ctx); err != nil {
		return fmt.Errorf("Ollama ping failed: %w", err)
	}
	return nil
}

// toolCallingModels is a curated list of model families and whether their
// Ollama builds support tool calling.
var toolCallingModels = map[string]bool{
	"qwen":      true,
	"llama3.1":  true,
	"llama3.2":  true,
	"llama3.3":  true,
	"mistral":   true,
	"command-r": true,
	"nemotron":  true,
	"granite3":  true,
	"gpt-oss":   true,

	"llama3-gradient": false,
	"llama3":          false,
	"phi":             false,
	"gemma":           false,
	"codellama":       false,
	"deepseek":        false,
}

// orderedPrefixes lists the most specific prefixes first so "llama3.2" is
// not matched as generic "llama3".
var orderedPrefixes = []string{
	"llama3.3", "llama3.2", "llama3.1",
	"llama3-gradient",
	"command-r", "qwen", "mistral", "nemotron", "granite3", "gpt-oss",
	"codellama",
	"llama3",
	"deepseek", "phi", "gemma",
}

// ModelSupportsToolCalling reports whether a model family is known to
// support Ollama's tool calling API. Unknown models report false.
func ModelSupportsToolCalling(modelName string) bool {
	modelName = strings.ToLower(modelName)
	for _, prefix := range orderedPrefixes {
		if strings.HasPrefix(modelName, prefix) {
			return toolCallingModels[prefix]
		}
	}
	return false
}
