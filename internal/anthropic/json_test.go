package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentBlock_TextRoundTrip(t *testing.T) {
	b := TextBlock("hello")
	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","text":"hello"}`, string(raw))

	var out ContentBlock
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, b, out)
}

func TestContentBlock_ToolUseRoundTrip(t *testing.T) {
	b := ToolUseBlock("toolu_1", "get_weather", map[string]interface{}{"city": "Austin"})
	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var out ContentBlock
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "tool_use", out.Type)
	assert.Equal(t, "toolu_1", out.ToolUse.ID)
	assert.Equal(t, "get_weather", out.ToolUse.Name)
	assert.Equal(t, "Austin", out.ToolUse.Input["city"])
}

func TestContentBlock_ToolResultWithTextRoundTrip(t *testing.T) {
	b := ContentBlock{Type: "tool_result", ToolResult: &ToolResult{ToolUseID: "toolu_1", Text: "sunny", IsError: false}}
	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var out ContentBlock
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "toolu_1", out.ToolResult.ToolUseID)
	assert.Equal(t, "sunny", out.ToolResult.Text)
}

func TestContentBlock_ToolResultWithBlocksRoundTrip(t *testing.T) {
	b := ContentBlock{Type: "tool_result", ToolResult: &ToolResult{
		ToolUseID: "toolu_1",
		Blocks:    []ContentBlock{TextBlock("sunny")},
		IsError:   true,
	}}
	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var out ContentBlock
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, out.ToolResult.IsError)
	require.Len(t, out.ToolResult.Blocks, 1)
	assert.Equal(t, "sunny", out.ToolResult.Blocks[0].Text)
}

func TestMessage_SimpleTextRoundTrip(t *testing.T) {
	m := Message{Role: RoleUser, Text: "hi", IsSimpleText: true}
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"hi"}`, string(raw))

	var out Message
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, m, out)
}

func TestMessage_BlocksRoundTrip(t *testing.T) {
	m := Message{Role: RoleAssistant, Blocks: []ContentBlock{TextBlock("hi"), ThinkingBlock("pondering")}}
	raw, err := json.Marshal(m)
	require.NoError(t, err)

	var out Message
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.False(t, out.IsSimpleText)
	require.Len(t, out.Blocks, 2)
	assert.Equal(t, "hi", out.Blocks[0].Text)
	assert.Equal(t, "pondering", out.Blocks[1].Thinking)
}

func TestSystemField_SimpleTextRoundTrip(t *testing.T) {
	s := SystemField{Text: "be terse", IsSimpleText: true}
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"be terse"`, string(raw))

	var out SystemField
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, out.IsSimpleText)
	assert.Equal(t, "be terse", out.Text)
}

func TestRequest_RoundTripWithSystemAndTools(t *testing.T) {
	maxTokens := 512
	req := Request{
		Model:     "claude-3-haiku",
		Messages:  []Message{{Role: RoleUser, Text: "hi", IsSimpleText: true}},
		System:    &SystemField{Text: "be terse", IsSimpleText: true},
		MaxTokens: &maxTokens,
		Tools: []ToolDefinition{
			{Name: "get_weather", InputSchema: json.RawMessage(`{"properties":{"city":{"type":"string"}}}`)},
		},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var out Request
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "claude-3-haiku", out.Model)
	require.NotNil(t, out.System)
	assert.Equal(t, "be terse", out.System.Text)
	require.NotNil(t, out.MaxTokens)
	assert.Equal(t, 512, *out.MaxTokens)
	require.Len(t, out.Tools, 1)
	assert.Equal(t, "get_weather", out.Tools[0].Name)
}

func TestRequest_NoSystemLeavesNilAfterRoundTrip(t *testing.T) {
	req := Request{Model: "claude-3-haiku", Messages: []Message{{Role: RoleUser, Text: "hi", IsSimpleText: true}}}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var out Request
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Nil(t, out.System)
}

func TestNewErrorEnvelope(t *testing.T) {
	env := NewErrorEnvelope(ErrorAPIConnection, "upstream unreachable")
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","error":{"type":"api_connection_error","message":"upstream unreachable"}}`, string(raw))
}
