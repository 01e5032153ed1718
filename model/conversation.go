package model

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"memex/config"
)

var (
	// ErrTurnInProgress is returned by Send while another turn is active.
	ErrTurnInProgress = errors.New("a turn is already in progress")
	// ErrConversationBusy is returned by Clear and LoadMemory while a turn
	// or memory load is running.
	ErrConversationBusy = errors.New("conversation is busy")
)

const DefaultIngestTimeout = 5 * time.Second

// ToolExecutor runs named tools and lists the declarations offered to the model.
// Execute never fails: every failure is encoded in the returned text.
type ToolExecutor interface {
	Tools() []mcptypes.Tool
	Execute(ctx context.Context, name string, args map[string]any) string
}

// MemoryLoader rebuilds prior exchanges as alternating user/assistant messages,
// oldest first.
type MemoryLoader interface {
	LoadRecent(ctx context.Context, limit int) ([]Message, error)
}

// Ingester persists a completed turn into the knowledge graph and returns the
// created source id.
type Ingester interface {
	IngestTurn(ctx context.Context, userText, assistantText string, toolNames []string) (string, error)
}

type TurnState int

const (
	StateIdle TurnState = iota
	StateStreaming
	StateExecutingTools
)

func (s TurnState) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateExecutingTools:
		return "executing tools"
	default:
		return "idle"
	}
}

type ConversationConfig struct {
	Provider     Provider
	Tools        ToolExecutor
	Memory       MemoryLoader // nil disables memory reconstruction (first run)
	Ingester     Ingester     // nil disables ingestion
	SystemPrompt string
	MaxTurns     int
	MemoryLimit  int

	IngestTimeout time.Duration
}

// Conversation owns the running message history and drives turns against a
// Provider. All exported methods are safe for concurrent use; at most one turn
// or memory load runs at a time.
type Conversation struct {
	provider      Provider
	tools         ToolExecutor
	memory        MemoryLoader
	ingester      Ingester
	systemPrompt  string
	maxTurns      int
	memoryLimit   int
	ingestTimeout time.Duration

	busy  atomic.Bool
	state atomic.Int32

	mu                sync.Mutex
	history           []Message
	continuationToken string
	turnToolNames     []string
	memoryLoaded      bool
}

func NewConversation(cfg ConversationConfig) *Conversation {
	c := &Conversation{
		provider:      cfg.Provider,
		tools:         cfg.Tools,
		memory:        cfg.Memory,
		ingester:      cfg.Ingester,
		systemPrompt:  cfg.SystemPrompt,
		maxTurns:      cfg.MaxTurns,
		memoryLimit:   cfg.MemoryLimit,
		ingestTimeout: cfg.IngestTimeout,
	}
	if c.maxTurns <= 0 {
		c.maxTurns = config.DefaultMaxTurns
	}
	if c.memoryLimit <= 0 {
		c.memoryLimit = config.DefaultMemoryLimit
	}
	if c.ingestTimeout <= 0 {
		c.ingestTimeout = DefaultIngestTimeout
	}
	return c
}

func (c *Conversation) Provider() Provider {
	return c.provider
}

func (c *Conversation) State() TurnState {
	return TurnState(c.state.Load())
}

func (c *Conversation) setState(s TurnState) {
	c.state.Store(int32(s))
}

// Busy reports whether a turn or memory load is running.
func (c *Conversation) Busy() bool {
	return c.busy.Load()
}

// History returns a copy of the message history.
func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.history)
}

// ContinuationToken returns the token of the last completed exchange.
func (c *Conversation) ContinuationToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.continuationToken
}

// TurnToolNames returns the tools invoked during the current or most recent turn.
func (c *Conversation) TurnToolNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.turnToolNames)
}

func (c *Conversation) MemoryLoaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memoryLoaded
}

// Clear drops the history and continuation token. Memory is not reloaded
// afterwards.
func (c *Conversation) Clear() error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrConversationBusy
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	c.continuationToken = ""
	c.turnToolNames = nil
	return nil
}

// LoadMemory prepends reconstructed prior exchanges to the history. It runs
// at most once per Conversation; later calls and calls without a MemoryLoader
// return 0. A failing loader is logged and treated as empty.
func (c *Conversation) LoadMemory(ctx context.Context) (int, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return 0, ErrConversationBusy
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	if c.memoryLoaded || c.memory == nil {
		c.memoryLoaded = true
		c.mu.Unlock()
		return 0, nil
	}
	c.mu.Unlock()

	prior, err := c.memory.LoadRecent(ctx, c.memoryLimit)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.memoryLoaded = true
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Warnf("[Conversation] memory load failed: %v", err)
		}
		return 0, nil
	}

	c.history = append(slices.Clone(prior), c.history...)
	if config.DebugLog != nil {
		config.DebugLog.Infof("[Conversation] loaded %d memory messages", len(prior))
	}
	return len(prior), nil
}
