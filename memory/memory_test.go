package memory

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"memex/graph"
	"memex/model"
)

func TestFormatTurn(t *testing.T) {
	tests := []struct {
		name  string
		tools []string
		want  string
	}{
		{"no tools", nil, "User: hi\n\nMemex: hello"},
		{"with tools", []string{"memex_search", "memex_create_node"}, "User: hi\n\n  [memex_search]\n  [memex_create_node]\n\nMemex: hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTurn("hi", "hello", tt.tools); got != tt.want {
				t.Errorf("FormatTurn() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTurn(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantUser      string
		wantAssistant string
		wantOK        bool
	}{
		{
			name:          "simple",
			text:          "User: I like tea\n\nMemex: Noted.",
			wantUser:      "I like tea",
			wantAssistant: "Noted.",
			wantOK:        true,
		},
		{
			name:          "tool annotations skipped",
			text:          "User: save this\n\n  [memex_create_node]\n\nMemex: Saved as note:1.",
			wantUser:      "save this",
			wantAssistant: "Saved as note:1.",
			wantOK:        true,
		},
		{
			name:          "multiline segments",
			text:          "User: line one\nline two\n\nMemex: answer one\n\n- bullet\n  [not a tool annotation]",
			wantUser:      "line one\nline two",
			wantAssistant: "answer one\n\n- bullet\n  [not a tool annotation]",
			wantOK:        true,
		},
		{
			name:   "user only",
			text:   "User: hello?\n\n  [memex_search]",
			wantOK: false,
		},
		{
			name:   "assistant only",
			text:   "Memex: orphan",
			wantOK: false,
		},
		{
			name:   "empty assistant",
			text:   "User: hi\n\nMemex: ",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, assistant, ok := ParseTurn(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if user != tt.wantUser || assistant != tt.wantAssistant {
				t.Errorf("ParseTurn() = %q, %q; want %q, %q", user, assistant, tt.wantUser, tt.wantAssistant)
			}
		})
	}
}

func TestParseTurnRoundTrip(t *testing.T) {
	user, assistant, ok := ParseTurn(FormatTurn("remember that I like tea", "Saved it.\nAnything else?", []string{"memex_create_node"}))
	if !ok || user != "remember that I like tea" || assistant != "Saved it.\nAnything else?" {
		t.Errorf("round trip = %q, %q, %v", user, assistant, ok)
	}
}

func sourceNode(id, text, ingestedAt string) map[string]any {
	return map[string]any{
		"ID":      id,
		"Type":    "Source",
		"Content": base64.StdEncoding.EncodeToString([]byte(text)),
		"Meta":    map[string]any{"format": "conversation", "ingested_at": ingestedAt},
	}
}

func serveNodes(t *testing.T, nodes []map[string]any) *graph.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/query/filter" || r.URL.Query().Get("type") != "Source" {
			t.Errorf("unexpected request %s", r.URL)
		}
		json.NewEncoder(w).Encode(map[string]any{"nodes": nodes})
	}))
	t.Cleanup(srv.Close)
	return graph.NewClient(func() string { return srv.URL })
}

func TestLoadRecentOrdersByIngestion(t *testing.T) {
	client := serveNodes(t, []map[string]any{
		sourceNode("source:later", "User: second question\n\nMemex: second answer", "2026-03-02T10:00:00Z"),
		sourceNode("source:earlier", "User: first question\n\nMemex: first answer", "2026-03-01T10:00:00Z"),
	})

	msgs, err := NewReconstructor(client).LoadRecent(context.Background(), 20)
	if err != nil {
		t.Fatalf("LoadRecent() error = %v", err)
	}

	want := []model.Message{
		{Role: model.RoleUser, Content: "first question"},
		{Role: model.RoleAssistant, Content: "first answer"},
		{Role: model.RoleUser, Content: "second question"},
		{Role: model.RoleAssistant, Content: "second answer"},
	}
	if len(msgs) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(msgs), len(want), msgs)
	}
	for i := range want {
		if msgs[i].Role != want[i].Role || msgs[i].Content != want[i].Content {
			t.Errorf("msgs[%d] = %s %q, want %s %q", i, msgs[i].Role, msgs[i].Content, want[i].Role, want[i].Content)
		}
	}
}

func TestLoadRecentSkipsBadRecords(t *testing.T) {
	notConversation := sourceNode("source:article", "User: looks like a turn\n\nMemex: but is an article", "2026-03-01T09:00:00Z")
	notConversation["Meta"] = map[string]any{"format": "markdown"}

	badBase64 := sourceNode("source:bad", "", "2026-03-01T09:30:00Z")
	badBase64["Content"] = "%%% not base64 %%%"

	notUTF8 := sourceNode("source:binary", "", "2026-03-01T09:45:00Z")
	notUTF8["Content"] = base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0xfd})

	client := serveNodes(t, []map[string]any{
		notConversation,
		badBase64,
		notUTF8,
		sourceNode("source:useronly", "User: are you there?", "2026-03-01T10:00:00Z"),
		sourceNode("source:good", "User: hi\n\n  [memex_search]\n\nMemex: hello", "2026-03-01T11:00:00Z"),
	})

	msgs, err := NewReconstructor(client).LoadRecent(context.Background(), 20)
	if err != nil {
		t.Fatalf("LoadRecent() error = %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "hi" || msgs[1].Content != "hello" {
		t.Errorf("msgs = %+v, want only the well-formed turn", msgs)
	}
}

func TestLoadRecentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewReconstructor(graph.NewClient(func() string { return srv.URL }))
	if _, err := r.LoadRecent(context.Background(), 20); err == nil {
		t.Error("LoadRecent() error = nil, want failure")
	}
}

func TestIngestTurn(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ingest" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"source_id":"source:feed"}`))
	}))
	defer srv.Close()

	ing := NewIngester(graph.NewClient(func() string { return srv.URL }))
	id, err := ing.IngestTurn(context.Background(), "I like tea", "Noted.", []string{"memex_create_node"})
	if err != nil {
		t.Fatalf("IngestTurn() error = %v", err)
	}
	if id != "source:feed" {
		t.Errorf("id = %q", id)
	}
	if got["format"] != "conversation" {
		t.Errorf("format = %q", got["format"])
	}
	if got["content"] != "User: I like tea\n\n  [memex_create_node]\n\nMemex: Noted." {
		t.Errorf("content = %q", got["content"])
	}
}
