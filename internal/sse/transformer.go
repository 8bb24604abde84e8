package sse

import (
	"encoding/json"
	"io"

	"github.com/digitallysavvy/ollama-gateway/internal/anthropic"
	"github.com/digitallysavvy/ollama-gateway/internal/convert"
	"github.com/digitallysavvy/ollama-gateway/internal/healer"
	"github.com/digitallysavvy/ollama-gateway/internal/ollama"
	"github.com/digitallysavvy/ollama-gateway/internal/toolschema"
	sseio "github.com/digitallysavvy/ollama-gateway/pkg/providerutils/streaming"
)

type blockState int

const (
	stateNone blockState = iota
	stateThinking
	stateText
)

// Headers are the response headers the HTTP surface must flush before the
// first event so intermediary proxies don't buffer the stream.
var Headers = map[string]string{
	"Content-Type":     "text/event-stream",
	"Cache-Control":    "no-cache",
	"Connection":       "keep-alive",
	"X-Accel-Buffering": "no",
}

// Transformer turns a sequence of Ollama stream chunks into an Anthropic
// SSE transcript. It is stateful: construct one per request and Feed it
// every chunk in order; the terminal events are written when the chunk
// marked done is fed.
type Transformer struct {
	w      *sseio.SSEWriter
	bare   io.Writer
	model  string
	index  toolschemaLookup
	msgID  string
	input  int

	isFirst        bool
	state          blockState
	blockIndex     int
	toolUseEmitted bool
}

type toolschemaLookup = toolschema.Index

// NewTransformer constructs a Transformer writing SSE events to w.
// clientModel is echoed in message_start exactly as the client sent it.
// toolIndex is used to heal tool_call arguments as they stream in.
func NewTransformer(w io.Writer, clientModel string, toolIndex toolschema.Index, inputTokens int) *Transformer {
	return &Transformer{
		w:       sseio.NewSSEWriter(w),
		bare:    w,
		model:   clientModel,
		index:   toolIndex,
		msgID:   healer.NewMessageID(),
		input:   inputTokens,
		isFirst: true,
		state:   stateNone,
	}
}

func (t *Transformer) emit(eventType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return t.w.WriteNamedEvent(eventType, string(raw))
}

// Feed processes one upstream chunk, writing zero or more SSE events. Every
// chunk's content is consumed exactly once: openInitialBlock already calls
// processDelta for the thinking/text cases, and inlines the tool_calls case
// itself, so Feed never re-runs it on the same chunk.
func (t *Transformer) Feed(chunk *ollama.StreamChunk) error {
	if t.isFirst {
		t.isFirst = false
		if err := t.emitMessageStart(); err != nil {
			return err
		}
		if err := t.openInitialBlock(chunk); err != nil {
			return err
		}
	} else if err := t.processDelta(chunk); err != nil {
		return err
	}

	if chunk.Done {
		return t.finish(chunk)
	}
	return nil
}

func (t *Transformer) openInitialBlock(chunk *ollama.StreamChunk) error {
	msg := chunk.Message
	switch {
	case msg.Thinking != "":
		if err := t.openBlock(stateThinking, "thinking"); err != nil {
			return err
		}
		if err := t.emitPing(); err != nil {
			return err
		}
		return t.processDelta(chunk)
	case len(msg.ToolCalls) > 0:
		t.state = stateNone
		for _, tc := range msg.ToolCalls {
			if err := t.emitToolUseLifecycle(tc); err != nil {
				return err
			}
		}
		return t.emitPing()
	default:
		if err := t.openBlock(stateText, "text"); err != nil {
			return err
		}
		if err := t.emitPing(); err != nil {
			return err
		}
		return t.processDelta(chunk)
	}
}

func (t *Transformer) processDelta(chunk *ollama.StreamChunk) error {
	msg := chunk.Message
	hasThinking := msg.Thinking != ""
	hasText := msg.Content != ""
	hasToolCalls := len(msg.ToolCalls) > 0

	if t.state == stateThinking && hasText && !hasThinking {
		if err := t.closeCurrentBlock(); err != nil {
			return err
		}
		if err := t.openBlock(stateText, "text"); err != nil {
			return err
		}
	}

	if hasToolCalls {
		if t.state == stateThinking && hasThinking {
			if err := t.emitDelta("thinking_delta", "thinking", msg.Thinking); err != nil {
				return err
			}
		}
		if t.state == stateText && hasText {
			if err := t.emitDelta("text_delta", "text", msg.Content); err != nil {
				return err
			}
		}
		if t.state != stateNone {
			if err := t.closeCurrentBlock(); err != nil {
				return err
			}
		}
		for _, tc := range msg.ToolCalls {
			if err := t.emitToolUseLifecycle(tc); err != nil {
				return err
			}
		}
		t.state = stateNone
		return nil
	}
	if hasThinking && t.state == stateThinking {
		return t.emitDelta("thinking_delta", "thinking", msg.Thinking)
	}
	if hasText && t.state == stateText {
		return t.emitDelta("text_delta", "text", msg.Content)
	}
	return nil
}

// finish closes any still-open content block and emits the terminal
// message_delta/message_stop pair. The chunk's own content has already been
// delivered by Feed before finish is called; finish never processes deltas.
func (t *Transformer) finish(chunk *ollama.StreamChunk) error {
	if t.state != stateNone {
		if err := t.closeCurrentBlock(); err != nil {
			return err
		}
	}

	stopReason := convert.MapStopReason(chunk.DoneReason)
	if t.toolUseEmitted {
		stopReason = anthropic.StopReasonEndTurn
	}

	if err := t.emit("message_delta", map[string]interface{}{
		"type":  "message_delta",
		"delta": map[string]interface{}{"stop_reason": stopReason, "stop_sequence": nil},
		"usage": map[string]interface{}{"output_tokens": chunk.EvalCount},
	}); err != nil {
		return err
	}
	return t.emit("message_stop", map[string]interface{}{"type": "message_stop"})
}

func (t *Transformer) emitMessageStart() error {
	return t.emit("message_start", map[string]interface{}{
		"type": "message_start",
		"message": map[string]interface{}{
			"id":            t.msgID,
			"type":          "message",
			"role":          "assistant",
			"content":       []interface{}{},
			"model":         t.model,
			"stop_reason":   nil,
			"stop_sequence": nil,
			"usage":         map[string]interface{}{"input_tokens": t.input, "output_tokens": 1},
		},
	})
}

func (t *Transformer) emitPing() error {
	return t.emit("ping", map[string]interface{}{"type": "ping"})
}

func (t *Transformer) openBlock(state blockState, blockType string) error {
	var block map[string]interface{}
	switch blockType {
	case "text":
		block = map[string]interface{}{"type": "text", "text": ""}
	case "thinking":
		block = map[string]interface{}{"type": "thinking", "thinking": ""}
	}
	if err := t.emit("content_block_start", map[string]interface{}{
		"type": "content_block_start", "index": t.blockIndex, "content_block": block,
	}); err != nil {
		return err
	}
	t.state = state
	return nil
}

func (t *Transformer) closeCurrentBlock() error {
	if err := t.emit("content_block_stop", map[string]interface{}{
		"type": "content_block_stop", "index": t.blockIndex,
	}); err != nil {
		return err
	}
	t.blockIndex++
	t.state = stateNone
	return nil
}

func (t *Transformer) emitDelta(deltaType, field, value string) error {
	if value == "" {
		return nil
	}
	return t.emit("content_block_delta", map[string]interface{}{
		"type": "content_block_delta", "index": t.blockIndex,
		"delta": map[string]interface{}{"type": deltaType, field: value},
	})
}

func (t *Transformer) emitToolUseLifecycle(tc ollama.ToolCall) error {
	args, _ := healer.Phase1(tc.Function.Name, tc.Function.Arguments)
	if info, known := t.index.Lookup(tc.Function.Name); known {
		args, _ = healer.Phase2(tc.Function.Name, args, info)
		args, _ = healer.Phase3(tc.Function.Name, args, info)
	}
	id := healer.NewToolUseID()
	if err := t.emit("content_block_start", map[string]interface{}{
		"type": "content_block_start", "index": t.blockIndex,
		"content_block": map[string]interface{}{
			"type": "tool_use", "id": id, "name": tc.Function.Name, "input": map[string]interface{}{},
		},
	}); err != nil {
		return err
	}
	raw, err := json.Marshal(args)
	if err != nil {
		raw = []byte("{}")
	}
	if err := t.emit("content_block_delta", map[string]interface{}{
		"type": "content_block_delta", "index": t.blockIndex,
		"delta": map[string]interface{}{"type": "input_json_delta", "partial_json": string(raw)},
	}); err != nil {
		return err
	}
	if err := t.emit("content_block_stop", map[string]interface{}{
		"type": "content_block_stop", "index": t.blockIndex,
	}); err != nil {
		return err
	}
	t.blockIndex++
	t.toolUseEmitted = true
	return nil
}
