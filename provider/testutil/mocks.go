package testutil

import (
	"context"
	"iter"
	"slices"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"memex/model"
)

// MockProvider implements model.Provider for testing. By default it replays
// Script one exchange per Stream call; set StreamFunc to take full control.
type MockProvider struct {
	// Configurable responses
	StreamFunc     func(ctx context.Context, req model.StreamRequest) iter.Seq[model.StreamEvent]
	ListModelsFunc func(ctx context.Context) ([]model.ModelInfo, error)
	PingFunc       func(ctx context.Context) error

	// Script holds the events of successive exchanges. Calls beyond the end
	// replay the last exchange.
	Script [][]model.StreamEvent

	// State
	mu           sync.Mutex
	currentModel string
	requests     []model.StreamRequest
	lastID       string
}

// NewMockProvider creates a mock provider with default implementations
func NewMockProvider(modelName string, script ...[]model.StreamEvent) *MockProvider {
	mock := &MockProvider{
		currentModel: modelName,
		Script:       script,
	}
	mock.StreamFunc = mock.defaultStream
	mock.ListModelsFunc = mock.defaultListModels
	mock.PingFunc = mock.defaultPing
	return mock
}

func (m *MockProvider) defaultStream(ctx context.Context, req model.StreamRequest) iter.Seq[model.StreamEvent] {
	m.mu.Lock()
	idx := len(m.requests) - 1
	var events []model.StreamEvent
	switch {
	case len(m.Script) == 0:
		events = []model.StreamEvent{model.TextEvent("Mock response"), model.CompletedEvent("resp_mock")}
	case idx < len(m.Script):
		events = m.Script[idx]
	default:
		events = m.Script[len(m.Script)-1]
	}
	m.mu.Unlock()

	return func(yield func(model.StreamEvent) bool) {
		for _, ev := range events {
			if ctx.Err() != nil {
				yield(model.FailedEvent(ctx.Err().Error()))
				return
			}
			if ev.Kind == model.EventCompleted {
				m.mu.Lock()
				m.lastID = ev.ContinuationToken
				m.mu.Unlock()
			}
			if !yield(ev) {
				return
			}
		}
	}
}

func (m *MockProvider) defaultListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return []model.ModelInfo{
		{Name: "mock-model-1", Provider: "mock", Size: 1000},
		{Name: "mock-model-2", Provider: "mock", Size: 2000},
	}, nil
}

func (m *MockProvider) defaultPing(ctx context.Context) error {
	return nil
}

func (m *MockProvider) Stream(ctx context.Context, req model.StreamRequest) iter.Seq[model.StreamEvent] {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.StreamFunc(ctx, req)
}

// Requests returns every StreamRequest received so far.
func (m *MockProvider) Requests() []model.StreamRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests)
}

func (m *MockProvider) LastResponseID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastID
}

func (m *MockProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return m.ListModelsFunc(ctx)
}

func (m *MockProvider) GetModel() string {
	return m.currentModel
}

func (m *MockProvider) SetModel(model string) {
	m.currentModel = model
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}

// MockTools implements model.ToolExecutor, recording every call.
type MockTools struct {
	ExecuteFunc func(ctx context.Context, name string, args map[string]any) string
	Declared    []mcptypes.Tool

	mu    sync.Mutex
	calls []model.ToolCall
}

func NewMockTools() *MockTools {
	return &MockTools{
		Declared: TestTools(),
		ExecuteFunc: func(ctx context.Context, name string, args map[string]any) string {
			return "ok: " + name
		},
	}
}

func (t *MockTools) Tools() []mcptypes.Tool {
	return t.Declared
}

func (t *MockTools) Execute(ctx context.Context, name string, args map[string]any) string {
	t.mu.Lock()
	t.calls = append(t.calls, model.ToolCall{Name: name, Arguments: args})
	t.mu.Unlock()
	return t.ExecuteFunc(ctx, name, args)
}

func (t *MockTools) Calls() []model.ToolCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.calls)
}

// MockIngester implements model.Ingester. When Block is non-nil IngestTurn
// waits on it (or ctx) before returning, simulating a slow memex server.
type MockIngester struct {
	Block chan struct{}
	Err   error

	mu    sync.Mutex
	turns []IngestedTurn
	done  chan struct{}
}

type IngestedTurn struct {
	User      string
	Assistant string
	ToolNames []string
}

func NewMockIngester() *MockIngester {
	return &MockIngester{done: make(chan struct{}, 16)}
}

func (i *MockIngester) IngestTurn(ctx context.Context, userText, assistantText string, toolNames []string) (string, error) {
	if i.Block != nil {
		select {
		case <-i.Block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	i.mu.Lock()
	i.turns = append(i.turns, IngestedTurn{User: userText, Assistant: assistantText, ToolNames: toolNames})
	i.mu.Unlock()
	select {
	case i.done <- struct{}{}:
	default:
	}
	if i.Err != nil {
		return "", i.Err
	}
	return "source:mock", nil
}

// Done signals once per recorded ingestion.
func (i *MockIngester) Done() <-chan struct{} {
	return i.done
}

func (i *MockIngester) Turns() []IngestedTurn {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Clone(i.turns)
}

// MockMemory implements model.MemoryLoader.
type MockMemory struct {
	Messages []model.Message
	Err      error
	Calls    int
}

func (m *MockMemory) LoadRecent(ctx context.Context, limit int) ([]model.Message, error) {
	m.Calls++
	return m.Messages, m.Err
}
