package provider

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"

	"memex/model"
)

// ParseToolArguments parses a JSON arguments string into a map.
// Malformed input yields an empty map so the tool reports the missing
// parameters itself.
func ParseToolArguments(argsJSON string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil || args == nil {
		return make(map[string]any)
	}
	return args
}

// schemaParameters flattens an MCP input schema into a plain JSON Schema map.
func schemaParameters(schema mcptypes.ToolInputSchema) map[string]any {
	typ := schema.Type
	if typ == "" {
		typ = "object"
	}
	props := schema.Properties
	if props == nil {
		props = map[string]any{}
	}

	params := map[string]any{
		"type":       typ,
		"properties": props,
	}
	if len(schema.Required) > 0 {
		params["required"] = schema.Required
	}
	if schema.Defs != nil {
		params["$defs"] = schema.Defs
	}
	return params
}

// ConvertMCPToolsToResponses converts MCP tools to OpenAI Responses function
// tools. Strict mode stays off because optional parameters are common.
func ConvertMCPToolsToResponses(mcpTools []mcptypes.Tool) []responses.ToolUnionParam {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]responses.ToolUnionParam, len(mcpTools))
	for i, tool := range mcpTools {
		result[i] = responses.ToolParamOfFunction(tool.Name, schemaParameters(tool.InputSchema), false)
		if tool.Description != "" {
			result[i].OfFunction.Description = openai.String(tool.Description)
		}
	}
	return result
}

// ConvertMCPToolsToAnthropicFormat converts MCP tools to Anthropic tool params.
func ConvertMCPToolsToAnthropicFormat(mcpTools []mcptypes.Tool) []anthropic.ToolUnionParam {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, len(mcpTools))
	for i, tool := range mcpTools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Properties: tool.InputSchema.Properties,
		}
		if len(tool.InputSchema.Required) > 0 {
			inputSchema.Required = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			inputSchema.ExtraFields = map[string]any{
				"$defs": tool.InputSchema.Defs,
			}
		}

		result[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)
		if tool.Description != "" {
			result[i].OfTool.Description = anthropic.String(tool.Description)
		}
	}
	return result
}

// ConvertMCPToolsToOllama converts MCP tools to Ollama API tools.
func ConvertMCPToolsToOllama(mcpTools []mcptypes.Tool) []api.Tool {
	ollamaTools := make([]api.Tool, 0, len(mcpTools))
	for _, tool := range mcpTools {
		ollamaTools = append(ollamaTools, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  convertInputSchemaToParameters(tool.InputSchema),
			},
		})
	}
	return ollamaTools
}

func convertInputSchemaToParameters(inputSchema mcptypes.ToolInputSchema) api.ToolFunctionParameters {
	params := api.ToolFunctionParameters{
		Type:       inputSchema.Type,
		Required:   inputSchema.Required,
		Properties: make(map[string]api.ToolProperty),
	}
	if params.Type == "" {
		params.Type = "object"
	}
	if inputSchema.Defs != nil {
		params.Defs = inputSchema.Defs
	}
	for name, value := range inputSchema.Properties {
		params.Properties[name] = convertPropertyValue(value)
	}
	return params
}

func convertPropertyValue(propValue any) api.ToolProperty {
	toolProp := api.ToolProperty{}

	propMap, ok := propValue.(map[string]any)
	if !ok {
		data, err := json.Marshal(propValue)
		if err != nil {
			return toolProp
		}
		if err := json.Unmarshal(data, &propMap); err != nil {
			return toolProp
		}
	}

	switch t := propMap["type"].(type) {
	case string:
		toolProp.Type = api.PropertyType{t}
	case []string:
		toolProp.Type = api.PropertyType(t)
	case []any:
		types := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				types = append(types, s)
			}
		}
		toolProp.Type = api.PropertyType(types)
	}

	if desc, ok := propMap["description"].(string); ok {
		toolProp.Description = desc
	}
	if enum, ok := propMap["enum"].([]any); ok {
		toolProp.Enum = enum
	}
	if items, ok := propMap["items"]; ok {
		toolProp.Items = items
	}
	if anyOf, ok := propMap["anyOf"].([]any); ok {
		props := make([]api.ToolProperty, 0, len(anyOf))
		for _, item := range anyOf {
			props = append(props, convertPropertyValue(item))
		}
		toolProp.AnyOf = props
	}
	return toolProp
}

// ConvertToResponsesInput converts history messages to Responses input items.
// System messages are skipped; instructions travel separately.
func ConvertToResponsesInput(messages []model.Message) responses.ResponseInputParam {
	items := make(responses.ResponseInputParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleUser:
			items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleUser))
		case model.RoleAssistant:
			items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleAssistant))
		}
	}
	return items
}

// ConvertToolResultsToResponsesInput converts tool results to function call
// output items keyed by call id.
func ConvertToolResultsToResponsesInput(results []model.ToolResult) responses.ResponseInputParam {
	items := make(responses.ResponseInputParam, 0, len(results))
	for _, r := range results {
		items = append(items, responses.ResponseInputItemParamOfFunctionCallOutput(r.CallID, r.Output))
	}
	return items
}

// ConvertToAnthropicMessages converts history messages to Anthropic message
// params. System messages are skipped; instructions travel separately.
func ConvertToAnthropicMessages(messages []model.Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case model.RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return result
}

// ConvertToolResultsToAnthropic packs tool results into one user message of
// tool_result blocks.
func ConvertToolResultsToAnthropic(results []model.ToolResult) anthropic.MessageParam {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, anthropic.NewToolResultBlock(r.CallID, r.Output, false))
	}
	return anthropic.NewUserMessage(blocks...)
}

// ConvertToOllamaMessages converts history messages to Ollama messages,
// prepending instructions as a system message when set.
func ConvertToOllamaMessages(instructions string, messages []model.Message) []api.Message {
	result := make([]api.Message, 0, len(messages)+1)
	if instructions != "" {
		result = append(result, api.Message{Role: model.RoleSystem, Content: instructions})
	}
	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			continue
		}
		result = append(result, api.Message{Role: msg.Role, Content: msg.Content})
	}
	return result
}

// ConvertToolResultsToOllama converts tool results to tool-role messages.
// Ollama matches results to calls by position.
func ConvertToolResultsToOllama(results []model.ToolResult) []api.Message {
	result := make([]api.Message, len(results))
	for i, r := range results {
		result[i] = api.Message{Role: model.RoleTool, Content: r.Output}
	}
	return result
}
