package convert

import (
	"github.com/digitallysavvy/ollama-gateway/internal/anthropic"
	"github.com/digitallysavvy/ollama-gateway/internal/healer"
	"github.com/digitallysavvy/ollama-gateway/internal/ollama"
	"github.com/digitallysavvy/ollama-gateway/internal/toolschema"
)

// MapStopReason applies the shared done_reason → stop_reason mapping used
// by both the non-streaming Response Adapter and the SSE Transformer:
// "length" becomes max_tokens, everything else (including absent) becomes
// end_turn.
func MapStopReason(doneReason string) anthropic.StopReason {
	if doneReason == "length" {
		return anthropic.StopReasonMaxTokens
	}
	return anthropic.StopReasonEndTurn
}

// ResponseInput is everything the Response Adapter needs to build a
// non-streaming Anthropic Response from an Ollama chat response.
type ResponseInput struct {
	ClientModel string
	Upstream    ollama.ChatResponse
	ToolIndex   toolschema.Index
}

// BuildAnthropicResponse is the Response Adapter: it runs the Tool Healer
// over any tool calls, assembles content in [Thinking?, ToolUse*, Text?]
// order, and derives stop_reason and usage.
func BuildAnthropicResponse(in ResponseInput) (anthropic.Response, []healer.Action) {
	msg := in.Upstream.Message
	var blocks []anthropic.ContentBlock
	var actions []healer.Action

	if msg.Thinking != "" {
		blocks = append(blocks, anthropic.ThinkingBlock(msg.Thinking))
	}

	toolUsePresent := len(msg.ToolCalls) > 0
	for _, tc := range msg.ToolCalls {
		args, a1 := healer.Phase1(tc.Function.Name, tc.Function.Arguments)
		actions = append(actions, a1...)
		if info, known := in.ToolIndex.Lookup(tc.Function.Name); known {
			var a2, a3 []healer.Action
			args, a2 = healer.Phase2(tc.Function.Name, args, info)
			args, a3 = healer.Phase3(tc.Function.Name, args, info)
			actions = append(actions, a2...)
			actions = append(actions, a3...)
		}
		blocks = append(blocks, anthropic.ToolUseBlock(healer.NewToolUseID(), tc.Function.Name, args))
	}

	if msg.Content != "" {
		blocks = append(blocks, anthropic.TextBlock(msg.Content))
	}
	if len(blocks) == 0 {
		blocks = append(blocks, anthropic.TextBlock(""))
	}

	stopReason := MapStopReason(in.Upstream.DoneReason)
	if toolUsePresent {
		stopReason = anthropic.StopReasonEndTurn
	}

	resp := anthropic.Response{
		ID:         healer.NewMessageID(),
		Type:       "message",
		Role:       anthropic.RoleAssistant,
		Content:    blocks,
		Model:      in.ClientModel,
		StopReason: &stopReason,
		Usage: anthropic.Usage{
			InputTokens:  in.Upstream.PromptEvalCount,
			OutputTokens: in.Upstream.EvalCount,
		},
	}
	return resp, actions
}
