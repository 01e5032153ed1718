package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"memex/model"
	"memex/provider/testutil"
	"memex/storage"
)

func newTestChat(t *testing.T, p *testutil.MockProvider, opts ...func(*ChatOptions)) *ChatView {
	t.Helper()
	o := ChatOptions{
		Conversation: model.NewConversation(model.ConversationConfig{
			Provider:     p,
			Tools:        testutil.NewMockTools(),
			SystemPrompt: "test",
		}),
		ProviderName: "mock",
	}
	for _, opt := range opts {
		opt(&o)
	}
	c := NewChatView(o)
	c.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return c
}

// drive feeds command results back into the view until the turn settles.
func drive(t *testing.T, c *ChatView, cmd tea.Cmd) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for cmd != nil {
		msgs := make(chan tea.Msg, 1)
		go func(cmd tea.Cmd) { msgs <- cmd() }(cmd)
		select {
		case msg := <-msgs:
			_, cmd = c.Update(msg)
		case <-deadline:
			t.Fatal("turn did not settle")
		}
	}
}

func (c *ChatView) rolesForTest() []string {
	roles := make([]string, len(c.entries))
	for i, e := range c.entries {
		roles[i] = e.Role
	}
	return roles
}

func TestChatTurnWithTool(t *testing.T) {
	p := testutil.NewMockProvider("mock-model",
		testutil.ToolCallExchange("call_1", "memex_search", map[string]any{"query": "tea"}, "resp_1"),
		testutil.TextExchange("resp_2", "You ", "like **tea**."),
	)
	c := newTestChat(t, p)

	drive(t, c, c.submit("what do I like?"))

	got := strings.Join(c.rolesForTest(), ",")
	if got != "user,tool,assistant" {
		t.Fatalf("entries = %s", got)
	}
	if c.entries[1].Content != "memex_search" {
		t.Errorf("tool entry = %q", c.entries[1].Content)
	}
	if c.entries[2].Content != "You like **tea**." {
		t.Errorf("assistant entry = %q", c.entries[2].Content)
	}
	if c.entries[2].Rendered == "" {
		t.Error("assistant reply was not rendered")
	}
	if c.turnActive || c.status != "" {
		t.Errorf("turnActive = %v, status = %q after turn", c.turnActive, c.status)
	}
}

func TestChatStreamFailureShowsError(t *testing.T) {
	p := testutil.NewMockProvider("mock-model", []model.StreamEvent{model.FailedEvent("rate limited")})
	c := newTestChat(t, p)

	drive(t, c, c.submit("hello"))

	got := strings.Join(c.rolesForTest(), ",")
	if got != "user,error" {
		t.Fatalf("entries = %s", got)
	}
	if c.entries[1].Content != "rate limited" {
		t.Errorf("error entry = %q", c.entries[1].Content)
	}
}

func TestChatStatusTransitions(t *testing.T) {
	c := newTestChat(t, testutil.NewMockProvider("mock-model"))
	events := make(chan tea.Msg, 1)
	c.turnEvents = events
	c.turnActive = true
	c.status = statusThinking

	c.Update(toolStartedMsg{Name: "memex_traverse"})
	if c.status != "Searching knowledge graph (memex_traverse)..." {
		t.Errorf("status = %q", c.status)
	}
	c.Update(toolStartedMsg{Name: "dagit_post"})
	if c.status != "Querying dagit network (dagit_post)..." {
		t.Errorf("status = %q", c.status)
	}
	c.Update(textDeltaMsg{Delta: "Hi"})
	if c.status != statusReceiving {
		t.Errorf("status = %q", c.status)
	}
}

func TestChatIgnoresInputWhileBusy(t *testing.T) {
	c := newTestChat(t, testutil.NewMockProvider("mock-model"))
	c.loadingMemory = true
	c.textarea.SetValue("hello")

	c.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if len(c.entries) != 0 {
		t.Errorf("entries = %v, want none while memory loads", c.rolesForTest())
	}
	if c.textarea.Value() != "hello" {
		t.Errorf("input was consumed: %q", c.textarea.Value())
	}
}

func TestChatInitLoadsMemory(t *testing.T) {
	mem := &testutil.MockMemory{Messages: []model.Message{
		{Role: model.RoleUser, Content: "I like tea"},
		{Role: model.RoleAssistant, Content: "Noted."},
	}}
	c := newTestChat(t, testutil.NewMockProvider("mock-model"), func(o *ChatOptions) {
		o.Conversation = model.NewConversation(model.ConversationConfig{
			Provider: testutil.NewMockProvider("mock-model"),
			Memory:   mem,
		})
	})

	c.Init()
	if !c.loadingMemory || c.status != statusLoadingMemory {
		t.Fatalf("loadingMemory = %v, status = %q", c.loadingMemory, c.status)
	}

	drive(t, c, loadMemory(c.conv))
	if c.loadingMemory {
		t.Error("still loading after memoryLoadedMsg")
	}
	if len(c.entries) != 1 || !strings.Contains(c.entries[0].Content, "1 earlier exchange") {
		t.Errorf("entries = %+v", c.entries)
	}
}

func TestChatFirstRunGreets(t *testing.T) {
	p := testutil.NewMockProvider("mock-model", testutil.TextExchange("resp_1", "Welcome!"))
	c := newTestChat(t, p, func(o *ChatOptions) { o.FirstRun = true })

	c.Init()
	if !c.turnActive {
		t.Fatal("first run did not start a turn")
	}
	drive(t, c, listenTurn(c.turnEvents))

	if c.entries[0].Content != model.OnboardingGreeting {
		t.Errorf("first entry = %q", c.entries[0].Content)
	}
	if reqs := p.Requests(); len(reqs) != 1 {
		t.Errorf("requests = %d", len(reqs))
	}
}

func TestChatCancelledTurn(t *testing.T) {
	p := testutil.NewMockProvider("mock-model")
	c := newTestChat(t, p)
	c.turnEvents = make(chan tea.Msg)
	c.turnActive = true

	c.Update(turnDoneMsg{Err: context.Canceled})

	if c.turnActive {
		t.Error("turn still active")
	}
	if len(c.entries) != 1 || c.entries[0].Content != "Turn cancelled." {
		t.Errorf("entries = %+v", c.entries)
	}
}

func TestChatCommands(t *testing.T) {
	p := testutil.NewMockProvider("mock-model", testutil.TextExchange("resp_1", "hi"))
	c := newTestChat(t, p)
	drive(t, c, c.submit("hello"))

	if _, ok := c.command("/help"); !ok || !c.showHelp {
		t.Error("help command not recognized")
	}
	c.showHelp = false

	c.command("model")
	if last := c.entries[len(c.entries)-1]; !strings.Contains(last.Content, "mock-model") {
		t.Errorf("model output = %q", last.Content)
	}

	c.command("clear")
	if len(c.entries) != 0 || len(c.conv.History()) != 0 {
		t.Errorf("clear left entries=%d history=%d", len(c.entries), len(c.conv.History()))
	}

	if _, ok := c.command("remember that I like tea"); ok {
		t.Error("plain text treated as a command")
	}
}

type fakeToolLog struct {
	entries []storage.ToolInvocation
	err     error
}

func (f fakeToolLog) Recent(ctx context.Context, limit int) ([]storage.ToolInvocation, error) {
	return f.entries, f.err
}

func TestChatToolsCommand(t *testing.T) {
	log := fakeToolLog{entries: []storage.ToolInvocation{
		{Tool: "memex_search", OK: true, Duration: 12 * time.Millisecond, Summary: "Found 2 results:", CreatedAt: time.Now()},
		{Tool: "dagit_post", OK: false, Summary: "Error: dagit is not configured.", CreatedAt: time.Now()},
	}}
	c := newTestChat(t, testutil.NewMockProvider("mock-model"), func(o *ChatOptions) { o.ToolLog = log })

	cmd, _ := c.command("tools")
	drive(t, c, cmd)

	out := c.entries[len(c.entries)-1].Content
	for _, want := range []string{"memex_search", "ok", "dagit_post", "failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("tools output missing %q:\n%s", want, out)
		}
	}

	c = newTestChat(t, testutil.NewMockProvider("mock-model"), func(o *ChatOptions) {
		o.ToolLog = fakeToolLog{err: errors.New("database is locked")}
	})
	cmd, _ = c.command("tools")
	drive(t, c, cmd)
	if last := c.entries[len(c.entries)-1]; last.Role != roleError {
		t.Errorf("tool log failure shown as %s", last.Role)
	}
}

func TestRenderMarkdownKeepsNodeIDs(t *testing.T) {
	out := renderMarkdown("Saved as note:1a2b3c4d.", 60)
	if !strings.Contains(out, "\x1b[35mnote:1a2b3c4d\x1b[0m") {
		t.Errorf("node id not highlighted: %q", out)
	}
}

func TestFrameCodeBlocks(t *testing.T) {
	in := strings.Join([]string{"intro", "  " + codeBar + " fmt.Println(1)", "  " + codeBar + " return", "outro"}, "\n")
	lines := strings.Split(stripANSI(frameCodeBlocks(in, 40)), "\n")

	var code []string
	opened := false
	for _, l := range lines {
		if strings.Contains(l, "[code]") {
			opened = true
		}
		if strings.Contains(l, codeBar) {
			t.Errorf("bar left on line %q", l)
		}
		if l == "fmt.Println(1)" || l == "return" {
			code = append(code, l)
		}
	}
	if !opened || len(code) != 2 {
		t.Errorf("frameCodeBlocks() =\n%s", strings.Join(lines, "\n"))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Searching knowledge graph (memex_search)...", 12); got != "Searching k…" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("short", 20); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
}
