// Package history implements the pre-forward sweep over conversation
// history: healing tool_use inputs against their declared schema, stripping
// tool-failure rounds that would otherwise poison a local model into
// abandoning tool use, and (optionally) expanding parallel tool-call rounds
// into sequential pairs smaller models handle more reliably.
package history

import (
	"strings"

	"github.com/digitallysavvy/ollama-gateway/internal/anthropic"
	"github.com/digitallysavvy/ollama-gateway/internal/healer"
	"github.com/digitallysavvy/ollama-gateway/internal/toolschema"
)

// HealToolUseInputs runs healer Phases 2 and 3 against every ToolUse block
// in history so later turns see canonical inputs, even for tool calls the
// model produced several turns ago. Phase 1 (format recovery) does not
// apply here — by the time a ToolUse block exists in history its Input is
// already a decoded JSON object.
func HealToolUseInputs(messages []anthropic.Message, idx toolschema.Index) ([]anthropic.Message, []healer.Action) {
	var actions []healer.Action
	out := make([]anthropic.Message, len(messages))
	for i, msg := range messages {
		if msg.IsSimpleText {
			out[i] = msg
			continue
		}
		blocks := make([]anthropic.ContentBlock, len(msg.Blocks))
		for j, b := range msg.Blocks {
			if b.Type != "tool_use" {
				blocks[j] = b
				continue
			}
			info, known := idx.Lookup(b.ToolUse.Name)
			if !known {
				blocks[j] = b
				continue
			}
			args, a2 := healer.Phase2(b.ToolUse.Name, b.ToolUse.Input, info)
			args, a3 := healer.Phase3(b.ToolUse.Name, args, info)
			actions = append(actions, a2...)
			actions = append(actions, a3...)
			healed := *b.ToolUse
			healed.Input = args
			blocks[j] = anthropic.ContentBlock{Type: "tool_use", ToolUse: &healed}
		}
		out[i] = anthropic.Message{Role: msg.Role, Blocks: blocks}
	}
	return out, actions
}

// isValidationFailure reports whether a tool_result's error text carries
// the parameter-validation signature that marks a round as poisoned.
func isValidationFailure(text string) bool {
	return strings.Contains(text, "InputValidationError") &&
		(strings.Contains(text, "required parameter") ||
			strings.Contains(text, "unexpected parameter") ||
			strings.Contains(text, "type is expected as"))
}

func toolResultText(tr *anthropic.ToolResult) string {
	if tr.Text != "" {
		return tr.Text
	}
	var sb strings.Builder
	for _, b := range tr.Blocks {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// StripFailedRounds drops assistant/user round pairs where a tool_result
// carries a parameter-validation failure. Once one tool_result in a round
// matches the validation signature, the whole round is treated as poisoned
// (including sibling tool_results whose own error text is only the
// sibling-propagation marker rather than the validation signature itself)
// since the round was aborted as a unit and none of its tool calls actually
// ran against canonical input. Non-tool blocks in the assistant message
// (text, thinking) and any later plain-text explanation are preserved.
func StripFailedRounds(messages []anthropic.Message) []anthropic.Message {
	out := make([]anthropic.Message, 0, len(messages))
	i := 0
	for i < len(messages) {
		msg := messages[i]
		if msg.Role == anthropic.RoleAssistant && !msg.IsSimpleText && i+1 < len(messages) {
			next := messages[i+1]
			toolUses := filterToolUse(msg.Blocks)
			if len(toolUses) > 0 && next.Role == anthropic.RoleUser && !next.IsSimpleText {
				matched, failed := matchFailedRound(toolUses, next.Blocks)
				if failed {
					assistantBlocks := dropMatchedToolUse(msg.Blocks, matched)
					userBlocks := dropMatchedToolResult(next.Blocks, matched)
					if len(assistantBlocks) > 0 {
						out = append(out, anthropic.Message{Role: msg.Role, Blocks: assistantBlocks})
					}
					if len(userBlocks) > 0 {
						out = append(out, anthropic.Message{Role: next.Role, Blocks: userBlocks})
					}
					i += 2
					continue
				}
			}
		}
		out = append(out, msg)
		i++
	}
	return out
}

func filterToolUse(blocks []anthropic.ContentBlock) []anthropic.ContentBlock {
	var out []anthropic.ContentBlock
	for _, b := range blocks {
		if b.Type == "tool_use" {
			out = append(out, b)
		}
	}
	return out
}

// matchFailedRound returns the tool_use ids matched by a tool_result in
// `resultBlocks`, and whether any of those results carries the validation
// failure signature.
func matchFailedRound(toolUses []anthropic.ContentBlock, resultBlocks []anthropic.ContentBlock) (map[string]bool, bool) {
	ids := map[string]bool{}
	for _, tu := range toolUses {
		ids[tu.ToolUse.ID] = true
	}
	matched := map[string]bool{}
	failed := false
	for _, b := range resultBlocks {
		if b.Type != "tool_result" || !ids[b.ToolResult.ToolUseID] {
			continue
		}
		matched[b.ToolResult.ToolUseID] = true
		if b.ToolResult.IsError && isValidationFailure(toolResultText(b.ToolResult)) {
			failed = true
		}
	}
	return matched, failed
}

func dropMatchedToolUse(blocks []anthropic.ContentBlock, matched map[string]bool) []anthropic.ContentBlock {
	var out []anthropic.ContentBlock
	for _, b := range blocks {
		if b.Type == "tool_use" && matched[b.ToolUse.ID] {
			continue
		}
		out = append(out, b)
	}
	return out
}

func dropMatchedToolResult(blocks []anthropic.ContentBlock, matched map[string]bool) []anthropic.ContentBlock {
	var out []anthropic.ContentBlock
	for _, b := range blocks {
		if b.Type == "tool_result" && matched[b.ToolResult.ToolUseID] {
			continue
		}
		out = append(out, b)
	}
	return out
}

// RewriteParallelToSequential expands an assistant message holding two or
// more tool_use blocks (with a matching tool_result round) into N
// consecutive (assistant, user) pairs, each carrying exactly one tool_use
// and its tool_result. It is idempotent: every expanded assistant message
// carries exactly one tool_use, so a second pass never matches the
// ">=2 tool_use" trigger again.
func RewriteParallelToSequential(messages []anthropic.Message) []anthropic.Message {
	out := make([]anthropic.Message, 0, len(messages))
	i := 0
	for i < len(messages) {
		msg := messages[i]
		if msg.Role == anthropic.RoleAssistant && !msg.IsSimpleText && i+1 < len(messages) {
			toolUses := filterToolUse(msg.Blocks)
			next := messages[i+1]
			if len(toolUses) >= 2 && next.Role == anthropic.RoleUser && !next.IsSimpleText {
				resultsByID := indexToolResults(next.Blocks)
				if anyMatch(toolUses, resultsByID) {
					out = append(out, expandRound(msg, toolUses, resultsByID)...)
					i += 2
					continue
				}
			}
		}
		out = append(out, msg)
		i++
	}
	return out
}

func indexToolResults(blocks []anthropic.ContentBlock) map[string]anthropic.ContentBlock {
	idx := make(map[string]anthropic.ContentBlock)
	for _, b := range blocks {
		if b.Type == "tool_result" {
			idx[b.ToolResult.ToolUseID] = b
		}
	}
	return idx
}

func anyMatch(toolUses []anthropic.ContentBlock, resultsByID map[string]anthropic.ContentBlock) bool {
	for _, tu := range toolUses {
		if _, ok := resultsByID[tu.ToolUse.ID]; ok {
			return true
		}
	}
	return false
}

func nonToolBlocks(blocks []anthropic.ContentBlock) []anthropic.ContentBlock {
	var out []anthropic.ContentBlock
	for _, b := range blocks {
		if b.Type != "tool_use" {
			out = append(out, b)
		}
	}
	return out
}

func expandRound(original anthropic.Message, toolUses []anthropic.ContentBlock, resultsByID map[string]anthropic.ContentBlock) []anthropic.Message {
	leading := nonToolBlocks(original.Blocks)
	var expanded []anthropic.Message
	for i, tu := range toolUses {
		var assistantBlocks []anthropic.ContentBlock
		if i == 0 {
			assistantBlocks = append(append([]anthropic.ContentBlock{}, leading...), tu)
		} else {
			assistantBlocks = []anthropic.ContentBlock{tu}
		}
		expanded = append(expanded, anthropic.Message{Role: anthropic.RoleAssistant, Blocks: assistantBlocks})
		if tr, ok := resultsByID[tu.ToolUse.ID]; ok {
			expanded = append(expanded, anthropic.Message{Role: anthropic.RoleUser, Blocks: []anthropic.ContentBlock{tr}})
		}
	}
	return expanded
}
