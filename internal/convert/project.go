package convert

import (
	"encoding/json"
	"strings"

	"github.com/digitallysavvy/ollama-gateway/internal/anthropic"
)

// Project renders a single content block as plain text: text and thinking
// blocks project verbatim, tool_use projects to its JSON-serialized input,
// and tool_result recurses into its own content.
func Project(b anthropic.ContentBlock) string {
	switch b.Type {
	case "text":
		return b.Text
	case "thinking":
		return b.Thinking
	case "tool_use":
		input := b.ToolUse.Input
		if input == nil {
			input = map[string]interface{}{}
		}
		raw, err := json.Marshal(input)
		if err != nil {
			return ""
		}
		return string(raw)
	case "tool_result":
		if len(b.ToolResult.Blocks) > 0 {
			return ProjectAll(b.ToolResult.Blocks)
		}
		return b.ToolResult.Text
	default:
		return ""
	}
}

// ProjectAll concatenates the projection of each block, one per line.
func ProjectAll(blocks []anthropic.ContentBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if p := Project(b); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}
