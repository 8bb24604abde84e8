package sse

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitallysavvy/ollama-gateway/internal/ollama"
	"github.com/digitallysavvy/ollama-gateway/internal/toolschema"
	sseio "github.com/digitallysavvy/ollama-gateway/pkg/providerutils/streaming"
)

func feedAll(t *testing.T, tr *Transformer, chunks []ollama.StreamChunk) *bytes.Buffer {
	t.Helper()
	for i := range chunks {
		require.NoError(t, tr.Feed(&chunks[i]))
	}
	return nil
}

func collectEvents(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	parser := sseio.NewSSEParser(buf)
	var types []string
	for {
		ev, err := parser.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		types = append(types, ev.Event)
	}
	return types
}

// collectDeltas returns the "text"/"thinking" field of every content_block_delta
// event, in order, so tests can catch a delta being emitted more than once.
func collectDeltas(t *testing.T, buf *bytes.Buffer, field string) []string {
	t.Helper()
	parser := sseio.NewSSEParser(buf)
	var values []string
	for {
		ev, err := parser.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if ev.Event != "content_block_delta" {
			continue
		}
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(ev.Data), &payload))
		delta, _ := payload["delta"].(map[string]interface{})
		if v, ok := delta[field].(string); ok {
			values = append(values, v)
		}
	}
	return values
}

func TestTransformer_TextOnlyStream(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransformer(&buf, "claude-3-haiku", toolschema.Index{}, 10)

	chunks := []ollama.StreamChunk{
		{Message: ollama.ChatMessage{Content: "Hello"}},
		{Message: ollama.ChatMessage{}, Done: true, DoneReason: "stop", EvalCount: 3},
	}
	feedAll(t, tr, chunks)

	types := collectEvents(t, &buf)
	assert.Equal(t, []string{
		"message_start",
		"content_block_start",
		"ping",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}, types)
}

func TestTransformer_ToolCallsSingleChunkForcesEndTurn(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransformer(&buf, "claude-3-haiku", toolschema.Index{}, 10)

	chunk := ollama.StreamChunk{
		Message: ollama.ChatMessage{
			ToolCalls: []ollama.ToolCall{
				{Function: ollama.ToolCallFunction{Name: "get_weather", Arguments: json.RawMessage(`{"city":"Austin"}`)}},
			},
		},
		Done:       true,
		DoneReason: "length",
	}
	require.NoError(t, tr.Feed(&chunk))

	parser := sseio.NewSSEParser(&buf)
	var lastDelta map[string]interface{}
	var types []string
	for {
		ev, err := parser.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		types = append(types, ev.Event)
		if ev.Event == "message_delta" {
			require.NoError(t, json.Unmarshal([]byte(ev.Data), &lastDelta))
		}
	}
	assert.Equal(t, []string{
		"message_start",
		"content_block_start",
		"content_block_delta",
		"content_block_stop",
		"ping",
		"message_delta",
		"message_stop",
	}, types)
	delta := lastDelta["delta"].(map[string]interface{})
	assert.Equal(t, "end_turn", delta["stop_reason"])
}

func TestTransformer_TextOnlySingleChunkDone(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransformer(&buf, "claude-3-haiku", toolschema.Index{}, 10)

	chunk := ollama.StreamChunk{
		Message:    ollama.ChatMessage{Content: "Hello"},
		Done:       true,
		DoneReason: "stop",
		EvalCount:  3,
	}
	require.NoError(t, tr.Feed(&chunk))
	raw := buf.Bytes()

	types := collectEvents(t, bytes.NewBuffer(raw))
	assert.Equal(t, []string{
		"message_start",
		"content_block_start",
		"ping",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}, types)

	assert.Equal(t, []string{"Hello"}, collectDeltas(t, bytes.NewBuffer(raw), "text"))
}

func TestTransformer_ThinkingOnlySingleChunkDone(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransformer(&buf, "claude-3-haiku", toolschema.Index{}, 10)

	chunk := ollama.StreamChunk{
		Message:    ollama.ChatMessage{Thinking: "pondering"},
		Done:       true,
		DoneReason: "stop",
	}
	require.NoError(t, tr.Feed(&chunk))
	raw := buf.Bytes()

	types := collectEvents(t, bytes.NewBuffer(raw))
	assert.Equal(t, []string{
		"message_start",
		"content_block_start",
		"ping",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}, types)

	assert.Equal(t, []string{"pondering"}, collectDeltas(t, bytes.NewBuffer(raw), "thinking"))
}

func TestTransformer_ThinkingAndToolCallsSingleChunkDone(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransformer(&buf, "claude-3-haiku", toolschema.Index{}, 10)

	chunk := ollama.StreamChunk{
		Message: ollama.ChatMessage{
			Thinking: "pondering",
			ToolCalls: []ollama.ToolCall{
				{Function: ollama.ToolCallFunction{Name: "get_weather", Arguments: json.RawMessage(`{"city":"Austin"}`)}},
			},
		},
		Done:       true,
		DoneReason: "stop",
	}
	require.NoError(t, tr.Feed(&chunk))
	raw := buf.Bytes()

	types := collectEvents(t, bytes.NewBuffer(raw))
	assert.Equal(t, []string{
		"message_start",
		"content_block_start", // thinking
		"ping",
		"content_block_delta", // thinking delta, flushed before the block closes
		"content_block_stop",  // close thinking
		"content_block_start", // tool_use
		"content_block_delta", // tool_use args
		"content_block_stop",
		"message_delta",
		"message_stop",
	}, types)

	assert.Equal(t, []string{"pondering"}, collectDeltas(t, bytes.NewBuffer(raw), "thinking"))

	parser := sseio.NewSSEParser(bytes.NewBuffer(raw))
	var lastDelta map[string]interface{}
	for {
		ev, err := parser.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if ev.Event == "message_delta" {
			require.NoError(t, json.Unmarshal([]byte(ev.Data), &lastDelta))
		}
	}
	delta := lastDelta["delta"].(map[string]interface{})
	assert.Equal(t, "end_turn", delta["stop_reason"])
}

func TestTransformer_ThinkingTransitionsToText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransformer(&buf, "claude-3-haiku", toolschema.Index{}, 5)

	chunks := []ollama.StreamChunk{
		{Message: ollama.ChatMessage{Thinking: "pondering"}},
		{Message: ollama.ChatMessage{Content: "answer"}},
		{Message: ollama.ChatMessage{}, Done: true, DoneReason: "stop"},
	}
	feedAll(t, tr, chunks)

	types := collectEvents(t, &buf)
	assert.Equal(t, []string{
		"message_start",
		"content_block_start", // thinking
		"ping",
		"content_block_delta", // thinking delta
		"content_block_stop",  // close thinking
		"content_block_start", // text
		"content_block_delta", // text delta
		"content_block_stop",
		"message_delta",
		"message_stop",
	}, types)
}
