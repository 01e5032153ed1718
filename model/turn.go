package model

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"memex/config"
)

type TurnOutcome int

const (
	TurnCompleted TurnOutcome = iota
	TurnEmpty
	TurnBudgetExhausted
	TurnFailed
	TurnCancelled
)

func (o TurnOutcome) String() string {
	switch o {
	case TurnCompleted:
		return "completed"
	case TurnEmpty:
		return "empty"
	case TurnBudgetExhausted:
		return "budget exhausted"
	case TurnFailed:
		return "failed"
	case TurnCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("TurnOutcome(%d)", int(o))
	}
}

// TurnCallbacks deliver progress to the presentation layer. They are invoked
// on the goroutine running Send, in stream order. Nil callbacks are skipped.
type TurnCallbacks struct {
	OnText  func(delta string)
	OnTool  func(name string)
	OnError func(reason string)
}

func (cb TurnCallbacks) text(delta string) {
	if cb.OnText != nil {
		cb.OnText(delta)
	}
}

func (cb TurnCallbacks) tool(name string) {
	if cb.OnTool != nil {
		cb.OnTool(name)
	}
}

func (cb TurnCallbacks) error(reason string) {
	if cb.OnError != nil {
		cb.OnError(reason)
	}
}

type TurnResult struct {
	Outcome    TurnOutcome
	Text       string   // Final assistant text, or the last partial buffer
	ToolNames  []string // Tools invoked during the turn, in order
	Iterations int
	Reason     string // Failure reason when Outcome is TurnFailed
}

// Send runs one user turn: it streams the model's reply, executes any tool
// calls and feeds their outputs back, until the model answers without tools
// or the iteration budget is spent.
//
// Cancelling ctx abandons the turn and removes the user message from the
// history. Provider failures are reported through OnError and the result;
// the returned error is only non-nil for ErrTurnInProgress and cancellation.
func (c *Conversation) Send(ctx context.Context, userText string, cb TurnCallbacks) (TurnResult, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return TurnResult{}, ErrTurnInProgress
	}
	defer c.busy.Store(false)
	defer c.setState(StateIdle)

	c.mu.Lock()
	checkpoint := len(c.history)
	c.history = append(c.history, Message{
		Role:      RoleUser,
		Content:   userText,
		Timestamp: time.Now(),
	})
	c.turnToolNames = nil
	input := slices.Clone(c.history)
	c.mu.Unlock()

	if config.DebugLog != nil {
		config.DebugLog.Infof("[Turn] start: %d messages, budget %d", len(input), c.maxTurns)
	}

	var (
		result      TurnResult
		previousID  string
		pending     []ToolResult
		calledTools []ToolCall
	)

	tools := c.toolDeclarations()

	for iteration := 1; iteration <= c.maxTurns; iteration++ {
		result.Iterations = iteration

		req := StreamRequest{
			Instructions: c.systemPrompt,
			Tools:        tools,
		}
		if iteration == 1 {
			req.Messages = input
		} else {
			req.ToolResults = pending
			req.PreviousResponseID = previousID
		}

		c.setState(StateStreaming)
		out := c.consumeStream(ctx, req, cb)

		if ctx.Err() != nil {
			return c.cancelTurn(checkpoint, result, ctx.Err())
		}

		if out.failed {
			if config.DebugLog != nil {
				config.DebugLog.Warnf("[Turn] iteration %d failed: %s", iteration, out.reason)
			}
			cb.error(out.reason)
			result.Outcome = TurnFailed
			result.Reason = out.reason
			result.Text = out.text
			result.ToolNames = c.TurnToolNames()
			return result, nil
		}

		previousID = out.token
		c.mu.Lock()
		c.continuationToken = out.token
		c.mu.Unlock()

		if len(out.calls) > 0 {
			c.setState(StateExecutingTools)
			pending = c.executeTools(ctx, out.calls)
			calledTools = append(calledTools, out.calls...)
			if ctx.Err() != nil {
				return c.cancelTurn(checkpoint, result, ctx.Err())
			}
			result.Text = out.text
			continue
		}

		result.Text = out.text
		result.ToolNames = c.TurnToolNames()

		if out.text == "" {
			result.Outcome = TurnEmpty
			return result, nil
		}

		c.mu.Lock()
		c.history = append(c.history, Message{
			Role:      RoleAssistant,
			Content:   out.text,
			ToolCalls: calledTools,
			Timestamp: time.Now(),
		})
		c.mu.Unlock()

		c.ingestAsync(userText, out.text, result.ToolNames)

		result.Outcome = TurnCompleted
		if config.DebugLog != nil {
			config.DebugLog.Infof("[Turn] completed after %d iterations (%d chars, tools %v)",
				iteration, len(out.text), result.ToolNames)
		}
		return result, nil
	}

	if config.DebugLog != nil {
		config.DebugLog.Warnf("[Turn] iteration budget of %d exhausted", c.maxTurns)
	}
	result.Outcome = TurnBudgetExhausted
	result.ToolNames = c.TurnToolNames()
	return result, nil
}

type streamOutcome struct {
	text   string
	calls  []ToolCall
	token  string
	failed bool
	reason string
}

// consumeStream drains one provider exchange. A stream that ends without a
// terminal event is treated as a failure.
func (c *Conversation) consumeStream(ctx context.Context, req StreamRequest, cb TurnCallbacks) streamOutcome {
	var (
		out      streamOutcome
		buf      strings.Builder
		terminal bool
	)

consume:
	for ev := range c.provider.Stream(ctx, req) {
		switch ev.Kind {
		case EventText:
			buf.WriteString(ev.Delta)
			cb.text(ev.Delta)
		case EventToolCall:
			if ev.ToolCall == nil {
				continue
			}
			out.calls = append(out.calls, *ev.ToolCall)
			c.mu.Lock()
			c.turnToolNames = append(c.turnToolNames, ev.ToolCall.Name)
			c.mu.Unlock()
			cb.tool(ev.ToolCall.Name)
		case EventCompleted:
			out.token = ev.ContinuationToken
			terminal = true
			break consume
		case EventFailed:
			out.failed = true
			out.reason = ev.Reason
			terminal = true
			break consume
		}
	}

	out.text = buf.String()
	if !terminal && ctx.Err() == nil {
		out.failed = true
		out.reason = "stream ended without completion"
	}
	return out
}

// executeTools runs calls sequentially in the order they were emitted. Each
// result carries the CallID of the call that produced it.
func (c *Conversation) executeTools(ctx context.Context, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, 0, len(calls))
	for _, call := range calls {
		if ctx.Err() != nil {
			break
		}
		var output string
		if c.tools == nil {
			output = fmt.Sprintf("Unknown tool: %s", call.Name)
		} else {
			output = c.tools.Execute(ctx, call.Name, call.Arguments)
		}
		if config.DebugLog != nil {
			config.DebugLog.Debugf("[Turn] tool %s (%s) -> %d bytes", call.Name, call.CallID, len(output))
		}
		results = append(results, ToolResult{CallID: call.CallID, Output: output})
	}
	return results
}

func (c *Conversation) cancelTurn(checkpoint int, result TurnResult, err error) (TurnResult, error) {
	c.mu.Lock()
	if checkpoint <= len(c.history) {
		c.history = c.history[:checkpoint]
	}
	result.ToolNames = slices.Clone(c.turnToolNames)
	c.mu.Unlock()

	if config.DebugLog != nil {
		config.DebugLog.Infof("[Turn] cancelled: %v", err)
	}
	result.Outcome = TurnCancelled
	return result, err
}

func (c *Conversation) toolDeclarations() []mcptypes.Tool {
	if c.tools == nil {
		return nil
	}
	return c.tools.Tools()
}

// ingestAsync hands the finished turn to the Ingester without waiting. The
// outcome is only logged.
func (c *Conversation) ingestAsync(userText, assistantText string, toolNames []string) {
	if c.ingester == nil {
		return
	}
	toolNames = slices.Clone(toolNames)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.ingestTimeout)
		defer cancel()

		id, err := c.ingester.IngestTurn(ctx, userText, assistantText, toolNames)
		if config.DebugLog == nil {
			return
		}
		if err != nil {
			config.DebugLog.Warnf("[Ingest] turn not saved: %v", err)
			return
		}
		config.DebugLog.Infof("[Ingest] turn saved as %s", id)
	}()
}
