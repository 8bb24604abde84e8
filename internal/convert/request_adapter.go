// Package convert implements the Request and Response Adapters: the
// bidirectional translation between the Anthropic Messages shape this
// gateway exposes to clients and the Ollama chat shape it speaks upstream.
package convert

import (
	"encoding/json"

	"github.com/digitallysavvy/ollama-gateway/internal/anthropic"
	"github.com/digitallysavvy/ollama-gateway/internal/ollama"
)

// RequestInput is everything the Request Adapter needs, already resolved
// by the caller: the model name Ollama will see, the messages after
// history healing and parallel-to-sequential rewriting, and whether
// thinking survived the Thinking Policy.
type RequestInput struct {
	ResolvedModel string
	Messages      []anthropic.Message
	System        *anthropic.SystemField
	MaxTokens     *int
	Temperature   *float64
	TopP          *float64
	TopK          *int
	StopSequences []string
	Tools         []anthropic.ToolDefinition
	Think         bool
	Stream        bool
}

// BuildOllamaChatRequest is the Request Adapter: it produces the exact
// OllamaChatRequest to POST to /api/chat.
func BuildOllamaChatRequest(in RequestInput) ollama.ChatRequest {
	out := ollama.ChatRequest{
		Model:  in.ResolvedModel,
		Stream: in.Stream,
	}

	var messages []ollama.ChatMessage
	if in.System != nil {
		var systemText string
		if in.System.IsSimpleText {
			systemText = in.System.Text
		} else {
			systemText = ProjectAll(in.System.Blocks)
		}
		if systemText != "" {
			messages = append(messages, ollama.ChatMessage{Role: "system", Content: systemText})
		}
	}

	for _, msg := range in.Messages {
		messages = append(messages, translateMessage(msg)...)
	}
	out.Messages = messages

	opts := &ollama.Options{
		Temperature: in.Temperature,
		TopP:        in.TopP,
		TopK:        in.TopK,
	}
	if in.MaxTokens != nil {
		opts.NumPredict = in.MaxTokens
	}
	if len(in.StopSequences) > 0 {
		opts.Stop = in.StopSequences
	}
	if !opts.IsEmpty() {
		out.Options = opts
	}

	if len(in.Tools) > 0 {
		out.Tools = make([]ollama.ToolFunction, len(in.Tools))
		for i, t := range in.Tools {
			out.Tools[i] = ollama.ToolFunction{
				Type: "function",
				Function: ollama.ToolFunctionDef{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.InputSchema,
				},
			}
		}
	}

	if in.Think {
		think := true
		out.Think = &think
	}

	return out
}

func translateMessage(msg anthropic.Message) []ollama.ChatMessage {
	if msg.IsSimpleText {
		return []ollama.ChatMessage{{Role: string(msg.Role), Content: msg.Text}}
	}

	var toolUses, toolResults, textThinking []anthropic.ContentBlock
	for _, b := range msg.Blocks {
		switch b.Type {
		case "tool_use":
			toolUses = append(toolUses, b)
		case "tool_result":
			toolResults = append(toolResults, b)
		default:
			textThinking = append(textThinking, b)
		}
	}

	if msg.Role == anthropic.RoleAssistant && len(toolUses) > 0 {
		calls := make([]ollama.ToolCall, len(toolUses))
		for i, b := range toolUses {
			input := b.ToolUse.Input
			if input == nil {
				input = map[string]interface{}{}
			}
			args, _ := json.Marshal(input)
			calls[i] = ollama.ToolCall{Function: ollama.ToolCallFunction{Name: b.ToolUse.Name, Arguments: args}}
		}
		return []ollama.ChatMessage{{
			Role:      "assistant",
			Content:   ProjectAll(textThinking),
			ToolCalls: calls,
		}}
	}

	if msg.Role == anthropic.RoleUser && len(toolResults) > 0 {
		out := make([]ollama.ChatMessage, len(toolResults))
		for i, b := range toolResults {
			out[i] = ollama.ChatMessage{Role: "tool", Content: Project(b)}
		}
		return out
	}

	return []ollama.ChatMessage{{Role: string(msg.Role), Content: ProjectAll(msg.Blocks)}}
}
