package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	tea "github.com/charmbracelet/bubbletea"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mattn/go-runewidth"

	"memex/config"
)

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
	nodeIDRegex     = regexp.MustCompile(`\b([a-z][a-z0-9_]*:[0-9a-f]{8})\b`)
	ansiRegex       = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

const codeBar = "┃"

// renderTranscript lays out every entry plus the in-flight reply.
func (c *ChatView) renderTranscript() string {
	if len(c.entries) == 0 && c.streaming.Len() == 0 {
		return DimStyle.Render("No messages yet. Ask memex something, or type help.")
	}

	var b strings.Builder
	for _, e := range c.entries {
		b.WriteString(formatEntry(e))
	}
	if c.turnActive {
		timestamp := DimStyle.Render(time.Now().Format("[15:04]"))
		body := c.spinner.View()
		if c.streaming.Len() > 0 {
			body = c.streaming.String() + "▋"
		}
		fmt.Fprintf(&b, "%s %s\n%s\n\n", timestamp, AssistantStyle.Render("Memex"), body)
	}
	return b.String()
}

func formatEntry(e entry) string {
	timestamp := DimStyle.Render(e.Timestamp.Format("[15:04]"))
	content := e.Rendered
	if content == "" {
		content = e.Content
	}

	switch e.Role {
	case "user":
		return formatUserMessage(timestamp, UserStyle.Render("You"), content)
	case "assistant":
		return fmt.Sprintf("%s %s\n%s\n\n", timestamp, AssistantStyle.Render("Memex"), content)
	case roleTool:
		return ToolStyle.Render("  ["+e.Content+"]") + "\n"
	case roleError:
		return fmt.Sprintf("%s %s\n\n", timestamp, ErrorStyle.Render("Error: "+e.Content))
	default:
		return DimStyle.Render(content) + "\n\n"
	}
}

func formatUserMessage(timestamp, role, content string) string {
	bar := UserStyle.Render("┃")

	var result strings.Builder
	fmt.Fprintf(&result, "%s %s %s\n", bar, timestamp, role)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(&result, "%s %s\n", bar, line)
	}
	result.WriteString("\n")
	return result.String()
}

// renderMarkdownAsync renders an assistant reply off the update loop.
func renderMarkdownAsync(index int, content string, width int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		rendered := renderMarkdown(content, width)
		if config.DebugLog != nil {
			config.DebugLog.Debugf("[ui] markdown for entry %d rendered in %v", index, time.Since(start))
		}
		return markdownRenderedMsg{Index: index, Rendered: rendered}
	}
}

// renderMarkdown renders with go-term-markdown. Autolink is disabled so plain
// URLs stay plain and the terminal can detect them.
func renderMarkdown(content string, width int) string {
	if width < 20 {
		width = 20
	}
	content = mdLinkRegex.ReplaceAllString(content, "$2")

	ext := markdown.Extensions() &^ parser.Autolink
	doc := parser.NewWithExtensions(ext).Parse([]byte(content))
	rendered := string(gomarkdown.Render(doc, markdown.NewRenderer(width-4, 0)))

	rendered = strings.TrimRight(rendered, "\n")
	return postProcessMarkdown(rendered, width)
}

func postProcessMarkdown(rendered string, width int) string {
	rendered = inlineCodeRegex.ReplaceAllString(rendered, "\x1b[31m$1\x1b[0m")
	rendered = colorPlainText(rendered)
	return frameCodeBlocks(rendered, width)
}

// colorPlainText colors URLs red and graph node ids magenta outside code
// blocks.
func colorPlainText(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.Contains(line, codeBar) {
			continue
		}
		line = urlRegex.ReplaceAllString(line, "\x1b[31m$1\x1b[0m")
		lines[i] = nodeIDRegex.ReplaceAllString(line, "\x1b[35m$1\x1b[0m")
	}
	return strings.Join(lines, "\n")
}

// frameCodeBlocks replaces the renderer's left bar on code lines with dark
// gray rules above and below the block.
func frameCodeBlocks(s string, width int) string {
	const darkGray, reset = "\x1b[90m", "\x1b[0m"
	rule := func(label string) string {
		n := width - 4 - runewidth.StringWidth(label)
		if n < 2 {
			n = 2
		}
		left := n / 2
		return darkGray + strings.Repeat("━", left) + reset + label + darkGray + strings.Repeat("━", n-left) + reset
	}

	var result []string
	inCode := false
	for _, line := range strings.Split(s, "\n") {
		isCode := strings.Contains(line, codeBar)
		switch {
		case isCode && !inCode:
			result = append(result, "", rule("[code]"), "")
			inCode = true
		case !isCode && inCode:
			result = append(result, "", rule(""), "")
			inCode = false
		}
		if isCode {
			line = stripCodeBlockPrefix(line)
		}
		result = append(result, line)
	}
	if inCode {
		result = append(result, "", rule(""), "")
	}
	return strings.Join(result, "\n")
}

func stripCodeBlockPrefix(line string) string {
	idx := strings.Index(line, codeBar)
	if idx < 0 {
		return line
	}
	return strings.TrimPrefix(line[idx+len(codeBar):], " ")
}

func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// truncate shortens s to width terminal cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}
