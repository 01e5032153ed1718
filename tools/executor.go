package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/sahilm/fuzzy"

	"memex/config"
	"memex/dagit"
	"memex/graph"
	"memex/storage"
)

// Recorder receives one entry per executed tool call.
type Recorder interface {
	Record(ctx context.Context, inv storage.ToolInvocation) error
}

// handler runs one tool. ok is false when the output describes a failure.
type handler func(ctx context.Context, args map[string]any) (out string, ok bool)

// Executor dispatches tool calls by name. Every outcome, including backend
// failures and unknown names, is returned as text for the model.
type Executor struct {
	registry *Registry
	graph    *graph.Client
	dagit    *dagit.Client
	recorder Recorder
	now      func() time.Time

	memex  map[string]handler
	social map[string]handler
}

type Option func(*Executor)

// WithRecorder logs every invocation to r. Recording failures are ignored.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// WithClock overrides the time source used for node ids.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// NewExecutor builds an executor over the memex client. A nil dagit client
// leaves the dagit family undeclared.
func NewExecutor(graphClient *graph.Client, dagitClient *dagit.Client, opts ...Option) *Executor {
	e := &Executor{
		registry: NewRegistry(dagitClient != nil),
		graph:    graphClient,
		dagit:    dagitClient,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.memex = map[string]handler{
		"memex_search":      e.search,
		"memex_get_node":    e.getNode,
		"memex_get_links":   e.getLinks,
		"memex_traverse":    e.traverse,
		"memex_filter":      e.filter,
		"memex_create_node": e.createNode,
		"memex_ingest":      e.ingest,
		"memex_update_node": e.updateNode,
		"memex_create_link": e.createLink,
	}
	e.social = map[string]handler{
		"dagit_whoami": e.whoami,
		"dagit_post":   e.post,
		"dagit_read":   e.read,
	}

	return e
}

func (e *Executor) Registry() *Registry {
	return e.registry
}

func (e *Executor) Tools() []mcptypes.Tool {
	return e.registry.Tools()
}

// Execute runs the named tool. It never returns an error: failures are
// described in the returned text.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) string {
	if args == nil {
		args = map[string]any{}
	}

	start := time.Now()
	out, ok := e.dispatch(ctx, name, args)
	elapsed := time.Since(start)

	if config.DebugLog != nil {
		config.DebugLog.Debugf("[tools] %s ok=%t in %s", name, ok, elapsed)
	}
	e.record(ctx, name, out, ok, elapsed)
	return out
}

func (e *Executor) dispatch(ctx context.Context, name string, args map[string]any) (string, bool) {
	switch {
	case strings.HasPrefix(name, dagitPrefix):
		if e.dagit == nil {
			return "Error: dagit is not configured. Set DAGIT_URL to enable social tools.", false
		}
		if h, ok := e.social[name]; ok {
			return h(ctx, args)
		}
		return e.unknown("Unknown dagit tool: "+name, name), false
	case strings.HasPrefix(name, memexPrefix):
		if h, ok := e.memex[name]; ok {
			return h(ctx, args)
		}
		return e.unknown("Unknown memex tool: "+name, name), false
	default:
		return e.unknown("Unknown tool: "+name, name), false
	}
}

// unknown appends the closest declared name, if any, to msg.
func (e *Executor) unknown(msg, name string) string {
	short := strings.TrimPrefix(strings.TrimPrefix(name, memexPrefix), dagitPrefix)
	if short == "" {
		return msg
	}
	matches := fuzzy.Find(short, e.registry.Names())
	if len(matches) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (did you mean %s?)", msg, matches[0].Str)
}

func (e *Executor) record(ctx context.Context, name, out string, ok bool, elapsed time.Duration) {
	if e.recorder == nil {
		return
	}

	summary, _, _ := strings.Cut(out, "\n")
	inv := storage.ToolInvocation{
		Tool:        name,
		OK:          ok,
		Duration:    elapsed,
		OutputBytes: len(out),
		Summary:     summary,
	}
	// The turn may already be cancelled; the audit row is still wanted.
	if err := e.recorder.Record(context.WithoutCancel(ctx), inv); err != nil && config.DebugLog != nil {
		config.DebugLog.Warnf("[tools] failed to record %s: %v", name, err)
	}
}
