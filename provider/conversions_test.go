package provider

import (
	"encoding/json"
	"strings"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"memex/model"
	"memex/provider/testutil"
)

func TestParseToolArguments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"object", `{"query":"tea","limit":5}`, 2},
		{"empty", ``, 0},
		{"malformed", `{"query":`, 0},
		{"null", `null`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseToolArguments(tt.in)
			if got == nil {
				t.Fatal("ParseToolArguments() returned nil map")
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestConvertMCPToolsToOllama(t *testing.T) {
	tools := ConvertMCPToolsToOllama(testutil.TestTools())
	if len(tools) != 2 {
		t.Fatalf("got %d tools, want 2", len(tools))
	}

	search := tools[0]
	if search.Type != "function" || search.Function.Name != "memex_search" {
		t.Errorf("tool = %+v", search)
	}
	if search.Function.Parameters.Type != "object" {
		t.Errorf("parameters type = %q", search.Function.Parameters.Type)
	}
	query, ok := search.Function.Parameters.Properties["query"]
	if !ok {
		t.Fatal("query property missing")
	}
	if len(query.Type) != 1 || query.Type[0] != "string" || query.Description != "Search terms" {
		t.Errorf("query property = %+v", query)
	}
	if len(search.Function.Parameters.Required) != 1 || search.Function.Parameters.Required[0] != "query" {
		t.Errorf("required = %v", search.Function.Parameters.Required)
	}
}

func TestConvertPropertyValueArrayItems(t *testing.T) {
	tool := mcptypes.NewTool("dagit_post",
		mcptypes.WithArray("refs", mcptypes.WithStringItems(), mcptypes.Description("CIDs")),
	)
	prop := ConvertMCPToolsToOllama([]mcptypes.Tool{tool})[0].Function.Parameters.Properties["refs"]
	if len(prop.Type) != 1 || prop.Type[0] != "array" {
		t.Errorf("type = %v", prop.Type)
	}
	if prop.Items == nil {
		t.Error("items dropped")
	}
}

func TestConvertMCPToolsToResponses(t *testing.T) {
	tools := ConvertMCPToolsToResponses(testutil.TestTools())
	if len(tools) != 2 {
		t.Fatalf("got %d tools", len(tools))
	}

	data, err := json.Marshal(tools[0])
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["type"] != "function" || got["name"] != "memex_search" || got["strict"] != false {
		t.Errorf("tool json = %s", data)
	}
	params, _ := got["parameters"].(map[string]any)
	if params["type"] != "object" || params["properties"] == nil {
		t.Errorf("parameters = %v", params)
	}

	if ConvertMCPToolsToResponses(nil) != nil {
		t.Error("nil tools should convert to nil")
	}
}

func TestConvertMCPToolsToAnthropicFormat(t *testing.T) {
	tools := ConvertMCPToolsToAnthropicFormat(testutil.TestTools())
	if len(tools) != 2 {
		t.Fatalf("got %d tools", len(tools))
	}
	if tools[1].OfTool == nil || tools[1].OfTool.Name != "memex_create_node" {
		t.Fatalf("tool = %+v", tools[1])
	}
	if got := tools[1].OfTool.InputSchema.Required; len(got) != 2 {
		t.Errorf("required = %v", got)
	}
}

func TestConvertToResponsesInput(t *testing.T) {
	msgs := append([]model.Message{{Role: model.RoleSystem, Content: "ignored"}}, testutil.TestMessages()...)
	items := ConvertToResponsesInput(msgs)
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3 (system dropped)", len(items))
	}

	data, _ := json.Marshal(items)
	if strings.Contains(string(data), "ignored") {
		t.Errorf("system message leaked into input: %s", data)
	}
}

func TestConvertToolResultsToResponsesInput(t *testing.T) {
	items := ConvertToolResultsToResponsesInput([]model.ToolResult{
		{CallID: "call_a", Output: "first"},
		{CallID: "call_b", Output: "second"},
	})
	data, _ := json.Marshal(items)
	for _, want := range []string{`"call_id":"call_a"`, `"call_id":"call_b"`, `"function_call_output"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("input %s missing %s", data, want)
		}
	}
}

func TestConvertToOllamaMessages(t *testing.T) {
	msgs := ConvertToOllamaMessages("be brief", testutil.TestMessages())
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	if msgs[0].Role != model.RoleSystem || msgs[0].Content != "be brief" {
		t.Errorf("first message = %+v", msgs[0])
	}

	if got := ConvertToOllamaMessages("", testutil.TestMessages()); len(got) != 3 {
		t.Errorf("without instructions got %d messages", len(got))
	}
}

func TestConvertToolResultsToAnthropic(t *testing.T) {
	msg := ConvertToolResultsToAnthropic([]model.ToolResult{{CallID: "toolu_1", Output: "ok"}})
	data, _ := json.Marshal(msg)
	if !strings.Contains(string(data), `"tool_use_id":"toolu_1"`) || !strings.Contains(string(data), `"role":"user"`) {
		t.Errorf("message = %s", data)
	}
}
