package convert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/digitallysavvy/ollama-gateway/internal/anthropic"
)

func TestBuildOllamaChatRequest_SystemPromptBecomesSystemMessage(t *testing.T) {
	in := RequestInput{
		ResolvedModel: "llama3.1",
		System:        &anthropic.SystemField{Text: "be terse", IsSimpleText: true},
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Text: "hi", IsSimpleText: true},
		},
	}
	out := BuildOllamaChatRequest(in)
	assert.Len(t, out.Messages, 2)
	assert.Equal(t, "system", out.Messages[0].Role)
	assert.Equal(t, "be terse", out.Messages[0].Content)
	assert.Equal(t, "user", out.Messages[1].Role)
}

func TestBuildOllamaChatRequest_EmptySystemOmitted(t *testing.T) {
	in := RequestInput{
		ResolvedModel: "llama3.1",
		System:        &anthropic.SystemField{Text: "", IsSimpleText: true},
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Text: "hi", IsSimpleText: true},
		},
	}
	out := BuildOllamaChatRequest(in)
	assert.Len(t, out.Messages, 1)
}

func TestBuildOllamaChatRequest_OmitsEmptyOptions(t *testing.T) {
	in := RequestInput{ResolvedModel: "llama3.1", Messages: []anthropic.Message{{Role: anthropic.RoleUser, Text: "hi", IsSimpleText: true}}}
	out := BuildOllamaChatRequest(in)
	assert.Nil(t, out.Options)
}

func TestBuildOllamaChatRequest_PopulatesOptionsFromKnobs(t *testing.T) {
	maxTokens := 256
	temp := 0.7
	in := RequestInput{
		ResolvedModel: "llama3.1",
		MaxTokens:     &maxTokens,
		Temperature:   &temp,
		StopSequences: []string{"STOP"},
		Messages:      []anthropic.Message{{Role: anthropic.RoleUser, Text: "hi", IsSimpleText: true}},
	}
	out := BuildOllamaChatRequest(in)
	if assert.NotNil(t, out.Options) {
		assert.Equal(t, &maxTokens, out.Options.NumPredict)
		assert.Equal(t, &temp, out.Options.Temperature)
		assert.Equal(t, []string{"STOP"}, out.Options.Stop)
	}
}

func TestBuildOllamaChatRequest_ToolsTranslateToFunctionWrapper(t *testing.T) {
	in := RequestInput{
		ResolvedModel: "llama3.1",
		Tools: []anthropic.ToolDefinition{
			{Name: "get_weather", Description: "fetch weather", InputSchema: json.RawMessage(`{"properties":{"city":{"type":"string"}}}`)},
		},
		Messages: []anthropic.Message{{Role: anthropic.RoleUser, Text: "hi", IsSimpleText: true}},
	}
	out := BuildOllamaChatRequest(in)
	if assert.Len(t, out.Tools, 1) {
		assert.Equal(t, "function", out.Tools[0].Type)
		assert.Equal(t, "get_weather", out.Tools[0].Function.Name)
	}
}

func TestBuildOllamaChatRequest_ThinkFlagOnlySetWhenRequested(t *testing.T) {
	in := RequestInput{ResolvedModel: "qwen3:14b", Think: true, Messages: []anthropic.Message{{Role: anthropic.RoleUser, Text: "hi", IsSimpleText: true}}}
	out := BuildOllamaChatRequest(in)
	if assert.NotNil(t, out.Think) {
		assert.True(t, *out.Think)
	}

	in2 := RequestInput{ResolvedModel: "llama3.1", Messages: []anthropic.Message{{Role: anthropic.RoleUser, Text: "hi", IsSimpleText: true}}}
	out2 := BuildOllamaChatRequest(in2)
	assert.Nil(t, out2.Think)
}

func TestBuildOllamaChatRequest_AssistantToolUseBecomesToolCalls(t *testing.T) {
	in := RequestInput{
		ResolvedModel: "llama3.1",
		Messages: []anthropic.Message{
			{Role: anthropic.RoleAssistant, Blocks: []anthropic.ContentBlock{
				anthropic.TextBlock("checking..."),
				anthropic.ToolUseBlock("toolu_1", "get_weather", map[string]interface{}{"city": "Austin"}),
			}},
		},
	}
	out := BuildOllamaChatRequest(in)
	if assert.Len(t, out.Messages, 1) {
		msg := out.Messages[0]
		assert.Equal(t, "assistant", msg.Role)
		assert.Equal(t, "checking...", msg.Content)
		if assert.Len(t, msg.ToolCalls, 1) {
			assert.Equal(t, "get_weather", msg.ToolCalls[0].Function.Name)
			assert.JSONEq(t, `{"city":"Austin"}`, string(msg.ToolCalls[0].Function.Arguments))
		}
	}
}

func TestBuildOllamaChatRequest_ToolResultsBecomeToolMessages(t *testing.T) {
	in := RequestInput{
		ResolvedModel: "llama3.1",
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Blocks: []anthropic.ContentBlock{
				{Type: "tool_result", ToolResult: &anthropic.ToolResult{ToolUseID: "toolu_1", Text: "sunny"}},
				{Type: "tool_result", ToolResult: &anthropic.ToolResult{ToolUseID: "toolu_2", Text: "rainy"}},
			}},
		},
	}
	out := BuildOllamaChatRequest(in)
	if assert.Len(t, out.Messages, 2) {
		assert.Equal(t, "tool", out.Messages[0].Role)
		assert.Equal(t, "sunny", out.Messages[0].Content)
		assert.Equal(t, "tool", out.Messages[1].Role)
		assert.Equal(t, "rainy", out.Messages[1].Content)
	}
}
