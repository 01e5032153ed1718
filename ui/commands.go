package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"memex/storage"
)

const toolLogLimit = 15

type clearStatusMsg struct{}

// command recognizes the chat commands. A leading slash is optional.
func (c *ChatView) command(text string) (tea.Cmd, bool) {
	name := strings.ToLower(strings.TrimPrefix(text, "/"))
	switch name {
	case "help", "clear", "exit", "quit", "tools", "model":
		return c.runCommand(name), true
	}
	return nil, false
}

func (c *ChatView) runCommand(name string) tea.Cmd {
	switch name {
	case "help":
		c.showHelp = true
		return nil

	case "exit", "quit":
		return c.quit()

	case "clear":
		if c.turnActive || c.loadingMemory {
			return nil
		}
		if err := c.conv.Clear(); err != nil {
			c.addEntry(roleError, err.Error())
			return nil
		}
		c.entries = nil
		c.refresh(true)
		return nil

	case "model":
		p := c.conv.Provider()
		c.addEntry(roleInfo, fmt.Sprintf("Provider: %s\nModel: %s", c.providerName, p.GetModel()))
		return nil

	case "tools":
		if c.toolLog == nil {
			c.addEntry(roleInfo, "Tool log is not available.")
			return nil
		}
		log := c.toolLog
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			entries, err := log.Recent(ctx, toolLogLimit)
			return toolLogMsg{Entries: entries, Err: err}
		}
	}
	return nil
}

func formatToolLog(entries []storage.ToolInvocation) string {
	if len(entries) == 0 {
		return "No tool calls recorded yet."
	}

	var b strings.Builder
	b.WriteString("Recent tool calls:")
	for _, inv := range entries {
		status := "ok"
		if !inv.OK {
			status = "failed"
		}
		fmt.Fprintf(&b, "\n  %s  %-20s %-6s %6dms  %s",
			inv.CreatedAt.Local().Format("15:04:05"),
			inv.Tool,
			status,
			inv.Duration.Milliseconds(),
			truncate(inv.Summary, 60))
	}
	return b.String()
}

func (c *ChatView) copyLastReply() tea.Cmd {
	var last string
	for i := len(c.entries) - 1; i >= 0; i-- {
		if c.entries[i].Role == "assistant" {
			last = c.entries[i].Content
			break
		}
	}
	if last == "" {
		c.status = "Nothing to copy yet"
		return clearStatusAfter(2 * time.Second)
	}
	return func() tea.Msg {
		return clipboardMsg{Err: clipboard.WriteAll(last)}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearStatusMsg{} })
}
