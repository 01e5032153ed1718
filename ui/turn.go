package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"memex/config"
	"memex/model"
)

// turnEventBuffer bounds how far the turn goroutine may run ahead of the UI.
const turnEventBuffer = 64

// submit records the user message and starts a turn on its own goroutine.
// Progress arrives as messages on a channel drained by listenTurn.
func (c *ChatView) submit(text string) tea.Cmd {
	c.addEntry("user", text)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelTurn = cancel
	c.turnActive = true
	c.streaming.Reset()
	c.status = statusThinking

	events := make(chan tea.Msg, turnEventBuffer)
	c.turnEvents = events
	go runTurn(ctx, c.conv, text, events, c.done)

	return listenTurn(events)
}

func runTurn(ctx context.Context, conv *model.Conversation, text string, events chan<- tea.Msg, done <-chan struct{}) {
	defer close(events)

	send := func(msg tea.Msg) {
		select {
		case events <- msg:
		case <-done:
		}
	}

	result, err := conv.Send(ctx, text, model.TurnCallbacks{
		OnText:  func(delta string) { send(textDeltaMsg{Delta: delta}) },
		OnTool:  func(name string) { send(toolStartedMsg{Name: name}) },
		OnError: func(reason string) { send(turnErrorMsg{Reason: reason}) },
	})
	send(turnDoneMsg{Result: result, Err: err})
}

// listenTurn waits for the next message from a running turn.
func listenTurn(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return turnChannelClosedMsg{}
		}
		return msg
	}
}

func (c *ChatView) handleTurnMsg(msg tea.Msg) tea.Cmd {
	next := listenTurn(c.turnEvents)

	switch msg := msg.(type) {
	case textDeltaMsg:
		if c.streaming.Len() == 0 {
			c.status = statusReceiving
		}
		c.streaming.WriteString(msg.Delta)
		c.refresh(true)
		return next

	case toolStartedMsg:
		// Text streamed before a tool call is not part of the final reply.
		c.streaming.Reset()
		c.status = statusForTool(msg.Name)
		c.addEntry(roleTool, msg.Name)
		return next

	case turnErrorMsg:
		c.addEntry(roleError, msg.Reason)
		return next

	case turnDoneMsg:
		return c.finishTurn(msg)

	case turnChannelClosedMsg:
		c.endTurn()
		return nil
	}
	return next
}

func (c *ChatView) finishTurn(msg turnDoneMsg) tea.Cmd {
	c.endTurn()

	if config.DebugLog != nil {
		config.DebugLog.Debugf("[ui] turn finished: %s after %d iterations", msg.Result.Outcome, msg.Result.Iterations)
	}

	switch {
	case errors.Is(msg.Err, context.Canceled):
		c.addEntry(roleInfo, "Turn cancelled.")
		return nil
	case errors.Is(msg.Err, model.ErrTurnInProgress), errors.Is(msg.Err, model.ErrConversationBusy):
		c.addEntry(roleError, "memex is still busy with the previous request")
		return nil
	case msg.Err != nil:
		c.addEntry(roleError, msg.Err.Error())
		return nil
	}

	switch msg.Result.Outcome {
	case model.TurnCompleted:
		idx := c.addEntry("assistant", msg.Result.Text)
		return renderMarkdownAsync(idx, msg.Result.Text, c.width)
	case model.TurnBudgetExhausted:
		text := msg.Result.Text
		if text != "" {
			idx := c.addEntry("assistant", text)
			c.addEntry(roleInfo, fmt.Sprintf("Stopped after %d model calls without a final answer.", msg.Result.Iterations))
			return renderMarkdownAsync(idx, text, c.width)
		}
		c.addEntry(roleInfo, fmt.Sprintf("Stopped after %d model calls without a final answer.", msg.Result.Iterations))
	case model.TurnEmpty:
		c.addEntry(roleInfo, "(no response)")
	}
	return nil
}

func (c *ChatView) endTurn() {
	c.turnActive = false
	c.cancelTurn = nil
	c.streaming.Reset()
	c.status = ""
	c.refresh(true)
}

// statusForTool describes a running tool by its family.
func statusForTool(name string) string {
	switch {
	case strings.HasPrefix(name, "memex_"):
		return fmt.Sprintf("Searching knowledge graph (%s)...", name)
	case strings.HasPrefix(name, "dagit_"):
		return fmt.Sprintf("Querying dagit network (%s)...", name)
	default:
		return fmt.Sprintf("Running %s...", name)
	}
}

func loadMemory(conv *model.Conversation) tea.Cmd {
	return func() tea.Msg {
		n, err := conv.LoadMemory(context.Background())
		return memoryLoadedMsg{Count: n, Err: err}
	}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
