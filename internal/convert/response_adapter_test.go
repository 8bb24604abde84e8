package convert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/digitallysavvy/ollama-gateway/internal/anthropic"
	"github.com/digitallysavvy/ollama-gateway/internal/ollama"
	"github.com/digitallysavvy/ollama-gateway/internal/toolschema"
)

func TestMapStopReason(t *testing.T) {
	assert.Equal(t, anthropic.StopReasonMaxTokens, MapStopReason("length"))
	assert.Equal(t, anthropic.StopReasonEndTurn, MapStopReason("stop"))
	assert.Equal(t, anthropic.StopReasonEndTurn, MapStopReason(""))
}

func TestBuildAnthropicResponse_TextOnly(t *testing.T) {
	in := ResponseInput{
		ClientModel: "claude-3-haiku",
		Upstream: ollama.ChatResponse{
			Message:         ollama.ChatMessage{Content: "hi there"},
			DoneReason:      "stop",
			EvalCount:       5,
			PromptEvalCount: 10,
		},
	}
	resp, actions := BuildAnthropicResponse(in)
	assert.Empty(t, actions)
	assert.Equal(t, "claude-3-haiku", resp.Model)
	assert.Equal(t, anthropic.RoleAssistant, resp.Role)
	if assert.Len(t, resp.Content, 1) {
		assert.Equal(t, "hi there", resp.Content[0].Text)
	}
	assert.Equal(t, anthropic.StopReasonEndTurn, *resp.StopReason)
	assert.Equal(t, 10, resp.Usage.InputTokens)
	assert.Equal(t, 5, resp.Usage.OutputTokens)
}

func TestBuildAnthropicResponse_ContentOrderingThinkingToolTextBlocks(t *testing.T) {
	in := ResponseInput{
		ClientModel: "claude-3-haiku",
		Upstream: ollama.ChatResponse{
			Message: ollama.ChatMessage{
				Thinking: "let me check",
				Content:  "here is the weather",
				ToolCalls: []ollama.ToolCall{
					{Function: ollama.ToolCallFunction{Name: "get_weather", Arguments: json.RawMessage(`{"city":"Austin"}`)}},
				},
			},
		},
	}
	resp, _ := BuildAnthropicResponse(in)
	if assert.Len(t, resp.Content, 3) {
		assert.Equal(t, "thinking", resp.Content[0].Type)
		assert.Equal(t, "tool_use", resp.Content[1].Type)
		assert.Equal(t, "text", resp.Content[2].Type)
	}
}

func TestBuildAnthropicResponse_ToolUsePresentForcesEndTurn(t *testing.T) {
	in := ResponseInput{
		ClientModel: "claude-3-haiku",
		Upstream: ollama.ChatResponse{
			DoneReason: "length",
			Message: ollama.ChatMessage{
				ToolCalls: []ollama.ToolCall{
					{Function: ollama.ToolCallFunction{Name: "get_weather", Arguments: json.RawMessage(`{"city":"Austin"}`)}},
				},
			},
		},
	}
	resp, _ := BuildAnthropicResponse(in)
	assert.Equal(t, anthropic.StopReasonEndTurn, *resp.StopReason)
}

func TestBuildAnthropicResponse_NoContentYieldsEmptyTextBlock(t *testing.T) {
	resp, _ := BuildAnthropicResponse(ResponseInput{ClientModel: "claude-3-haiku"})
	if assert.Len(t, resp.Content, 1) {
		assert.Equal(t, "text", resp.Content[0].Type)
		assert.Equal(t, "", resp.Content[0].Text)
	}
}

func TestBuildAnthropicResponse_HealsToolCallArguments(t *testing.T) {
	idx := toolschema.Index{
		"get_weather": toolschema.Info{
			Names: map[string]struct{}{"city": {}},
			Types: map[string]string{"city": "string"},
		},
	}
	in := ResponseInput{
		ClientModel: "claude-3-haiku",
		ToolIndex:   idx,
		Upstream: ollama.ChatResponse{
			Message: ollama.ChatMessage{
				ToolCalls: []ollama.ToolCall{
					{Function: ollama.ToolCallFunction{Name: "get_weather", Arguments: json.RawMessage(`{"city_name":"Austin"}`)}},
				},
			},
		},
	}
	resp, actions := BuildAnthropicResponse(in)
	assert.NotEmpty(t, actions)
	if assert.Len(t, resp.Content, 1) {
		assert.Equal(t, "Austin", resp.Content[0].ToolUse.Input["city"])
	}
}
