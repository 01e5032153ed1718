// Package ui is the terminal chat front-end: a bubbletea program that relays
// user input to a model.Conversation and renders its progress.
package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"memex/model"
	"memex/storage"
)

const (
	statusLoadingMemory = "Loading memory..."
	statusThinking      = "Thinking..."
	statusReceiving     = "Receiving response..."

	inputHeight = 3
)

// ToolLogReader is the read side of the tool invocation log.
type ToolLogReader interface {
	Recent(ctx context.Context, limit int) ([]storage.ToolInvocation, error)
}

type ChatOptions struct {
	Conversation *model.Conversation
	ToolLog      ToolLogReader // optional
	ProviderName string
	FirstRun     bool // send the onboarding greeting instead of loading memory
}

// ChatView is the root bubbletea model.
type ChatView struct {
	conv         *model.Conversation
	toolLog      ToolLogReader
	providerName string
	firstRun     bool

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	entries   []entry
	streaming *strings.Builder
	status    string
	showHelp  bool

	loadingMemory bool
	turnActive    bool
	cancelTurn    context.CancelFunc
	turnEvents    <-chan tea.Msg

	// closed on quit so the turn goroutine never blocks on a dead UI
	done chan struct{}
}

func NewChatView(opts ChatOptions) *ChatView {
	ta := textarea.New()
	ta.Placeholder = "Ask memex... (Enter to send, type help for commands)"
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = AssistantStyle

	return &ChatView{
		conv:         opts.Conversation,
		toolLog:      opts.ToolLog,
		providerName: opts.ProviderName,
		firstRun:     opts.FirstRun,
		textarea:     ta,
		spinner:      sp,
		streaming:    &strings.Builder{},
		done:         make(chan struct{}),
	}
}

func (c *ChatView) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, c.spinner.Tick}
	if c.firstRun {
		cmds = append(cmds, c.submit(model.OnboardingGreeting))
	} else {
		c.loadingMemory = true
		c.status = statusLoadingMemory
		cmds = append(cmds, loadMemory(c.conv))
	}
	return tea.Batch(cmds...)
}

func (c *ChatView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.resize(msg.Width, msg.Height)
		return c, nil

	case tea.KeyMsg:
		if cmd, handled := c.handleKey(msg); handled {
			return c, cmd
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		c.spinner, cmd = c.spinner.Update(msg)
		if c.turnActive && c.streaming.Len() == 0 {
			c.refresh(true)
		}
		return c, cmd

	case memoryLoadedMsg:
		c.loadingMemory = false
		c.status = ""
		if msg.Err != nil {
			c.addEntry(roleError, "memory: "+msg.Err.Error())
		} else if msg.Count > 0 {
			c.addEntry(roleInfo, pluralize(msg.Count/2, "earlier exchange")+" loaded from memex.")
		}
		return c, nil

	case textDeltaMsg, toolStartedMsg, turnErrorMsg, turnDoneMsg, turnChannelClosedMsg:
		return c, c.handleTurnMsg(msg)

	case markdownRenderedMsg:
		if msg.Index >= 0 && msg.Index < len(c.entries) {
			c.entries[msg.Index].Rendered = msg.Rendered
			c.refresh(c.viewport.AtBottom())
		}
		return c, nil

	case toolLogMsg:
		if msg.Err != nil {
			c.addEntry(roleError, "tool log: "+msg.Err.Error())
		} else {
			c.addEntry(roleInfo, formatToolLog(msg.Entries))
		}
		return c, nil

	case clipboardMsg:
		if msg.Err != nil {
			c.status = "Copy failed: " + msg.Err.Error()
		} else {
			c.status = "Copied last reply to clipboard"
		}
		return c, clearStatusAfter(2 * time.Second)

	case clearStatusMsg:
		if !c.turnActive && !c.loadingMemory {
			c.status = ""
		}
		return c, nil
	}

	var cmd tea.Cmd
	c.textarea, cmd = c.textarea.Update(msg)
	cmds = append(cmds, cmd)
	c.viewport, cmd = c.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return c, tea.Batch(cmds...)
}

func (c *ChatView) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if c.showHelp {
		switch msg.String() {
		case "esc", "q", "?", "enter":
			c.showHelp = false
		case "ctrl+c":
			return c.quit(), true
		}
		return nil, true
	}

	switch msg.String() {
	case "ctrl+c":
		return c.quit(), true
	case "esc":
		if c.turnActive && c.cancelTurn != nil {
			c.cancelTurn()
			c.status = "Cancelling..."
		}
		return nil, true
	case "ctrl+l":
		return c.runCommand("clear"), true
	case "ctrl+y":
		return c.copyLastReply(), true
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		c.viewport, cmd = c.viewport.Update(msg)
		return cmd, true
	case "enter":
		text := strings.TrimSpace(c.textarea.Value())
		if text == "" || c.turnActive || c.loadingMemory {
			return nil, true
		}
		c.textarea.Reset()
		if cmd, ok := c.command(text); ok {
			return cmd, true
		}
		return c.submit(text), true
	}
	return nil, false
}

func (c *ChatView) resize(width, height int) {
	c.width, c.height = width, height
	vpHeight := height - inputHeight - 4
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !c.ready {
		c.viewport = viewport.New(width, vpHeight)
		c.ready = true
	} else {
		c.viewport.Width = width
		c.viewport.Height = vpHeight
	}
	c.textarea.SetWidth(width)
	c.refresh(true)
}

func (c *ChatView) refresh(gotoBottom bool) {
	if !c.ready {
		return
	}
	c.viewport.SetContent(c.renderTranscript())
	if gotoBottom {
		c.viewport.GotoBottom()
	}
}

func (c *ChatView) addEntry(role, content string) int {
	c.entries = append(c.entries, entry{Role: role, Content: content, Timestamp: time.Now()})
	c.refresh(true)
	return len(c.entries) - 1
}

func (c *ChatView) quit() tea.Cmd {
	if c.cancelTurn != nil {
		c.cancelTurn()
	}
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	return tea.Quit
}

func (c *ChatView) View() string {
	if !c.ready {
		return "Initializing..."
	}
	if c.showHelp {
		return renderHelp(c.width, c.height)
	}

	header := TitleStyle.Render("memex") + DimStyle.Render(" · "+c.providerName+" · "+c.conv.Provider().GetModel())

	statusLine := StatusStyle.Render(truncate(c.status, c.width-3))
	if c.status != "" && (c.turnActive || c.loadingMemory) {
		statusLine = c.spinner.View() + " " + statusLine
	}
	footer := HelpStyle.Render(FormatFooter("Enter", "Send", "Esc", "Cancel", "Ctrl+Y", "Copy", "Ctrl+L", "Clear", "Ctrl+C", "Quit"))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		c.viewport.View(),
		statusLine,
		c.textarea.View(),
		footer,
	)
}
