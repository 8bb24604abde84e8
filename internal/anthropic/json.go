package anthropic

import (
	"encoding/json"
	"fmt"
)

// wireContentBlock is the flat wire shape content blocks marshal to/from.
type wireContentBlock struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	Thinking   string          `json:"thinking,omitempty"`
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	ToolUseID  string          `json:"tool_use_id,omitempty"`
	Content    json.RawMessage `json:"content,omitempty"`
	IsError    bool            `json:"is_error,omitempty"`
}

func (b ContentBlock) MarshalJSON() ([]byte, error) {
	w := wireContentBlock{Type: b.Type}
	switch b.Type {
	case "text":
		w.Text = b.Text
	case "thinking":
		w.Thinking = b.Thinking
	case "tool_use":
		w.ID = b.ToolUse.ID
		w.Name = b.ToolUse.Name
		input := b.ToolUse.Input
		if input == nil {
			input = map[string]interface{}{}
		}
		raw, err := json.Marshal(input)
		if err != nil {
			return nil, err
		}
		w.Input = raw
	case "tool_result":
		w.ToolUseID = b.ToolResult.ToolUseID
		w.IsError = b.ToolResult.IsError
		var raw []byte
		var err error
		if len(b.ToolResult.Blocks) > 0 {
			raw, err = json.Marshal(b.ToolResult.Blocks)
		} else {
			raw, err = json.Marshal(b.ToolResult.Text)
		}
		if err != nil {
			return nil, err
		}
		w.Content = raw
	default:
		return nil, fmt.Errorf("anthropic: unknown content block type %q", b.Type)
	}
	return json.Marshal(w)
}

func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var w wireContentBlock
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	b.Type = w.Type
	switch w.Type {
	case "text":
		b.Text = w.Text
	case "thinking":
		b.Thinking = w.Thinking
	case "tool_use":
		var input map[string]interface{}
		if len(w.Input) > 0 {
			if err := json.Unmarshal(w.Input, &input); err != nil {
				return fmt.Errorf("anthropic: tool_use input: %w", err)
			}
		}
		b.ToolUse = &ToolUse{ID: w.ID, Name: w.Name, Input: input}
	case "tool_result":
		tr := &ToolResult{ToolUseID: w.ToolUseID, IsError: w.IsError}
		if len(w.Content) > 0 {
			var asString string
			if err := json.Unmarshal(w.Content, &asString); err == nil {
				tr.Text = asString
			} else {
				var blocks []ContentBlock
				if err := json.Unmarshal(w.Content, &blocks); err != nil {
					return fmt.Errorf("anthropic: tool_result content: %w", err)
				}
				tr.Blocks = blocks
			}
		}
		b.ToolResult = tr
	default:
		return fmt.Errorf("anthropic: unknown content block type %q", w.Type)
	}
	return nil
}

type wireMessage struct {
	Role    Role            `json:"role"`
	Content json.RawMessage `json:"content"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{Role: m.Role}
	var raw []byte
	var err error
	if m.IsSimpleText {
		raw, err = json.Marshal(m.Text)
	} else {
		raw, err = json.Marshal(m.Blocks)
	}
	if err != nil {
		return nil, err
	}
	w.Content = raw
	return json.Marshal(w)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Role = w.Role
	var asString string
	if err := json.Unmarshal(w.Content, &asString); err == nil {
		m.Text = asString
		m.IsSimpleText = true
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(w.Content, &blocks); err != nil {
		return fmt.Errorf("anthropic: message content: %w", err)
	}
	m.Blocks = blocks
	m.IsSimpleText = false
	return nil
}

func (s SystemField) MarshalJSON() ([]byte, error) {
	if s.IsSimpleText {
		return json.Marshal(s.Text)
	}
	return json.Marshal(s.Blocks)
}

func (s *SystemField) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		s.Text = asString
		s.IsSimpleText = true
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("anthropic: system field: %w", err)
	}
	s.Blocks = blocks
	return nil
}

// wireRequest mirrors Request but with System as raw JSON so
// Request can own custom marshal/unmarshal without infinite recursion.
type wireRequest struct {
	Model         string           `json:"model"`
	Messages      []Message        `json:"messages"`
	System        json.RawMessage  `json:"system,omitempty"`
	MaxTokens     *int             `json:"max_tokens,omitempty"`
	Temperature   *float64         `json:"temperature,omitempty"`
	TopP          *float64         `json:"top_p,omitempty"`
	TopK          *int             `json:"top_k,omitempty"`
	StopSequences []string         `json:"stop_sequences,omitempty"`
	Stream        bool             `json:"stream,omitempty"`
	Tools         []ToolDefinition `json:"tools,omitempty"`
	ToolChoice    *ToolChoice      `json:"tool_choice,omitempty"`
	Thinking      *Thinking        `json:"thinking,omitempty"`
}

func (r Request) MarshalJSON() ([]byte, error) {
	w := wireRequest{
		Model: r.Model, Messages: r.Messages, MaxTokens: r.MaxTokens,
		Temperature: r.Temperature, TopP: r.TopP, TopK: r.TopK,
		StopSequences: r.StopSequences, Stream: r.Stream, Tools: r.Tools,
		ToolChoice: r.ToolChoice, Thinking: r.Thinking,
	}
	if r.System != nil {
		raw, err := json.Marshal(*r.System)
		if err != nil {
			return nil, err
		}
		w.System = raw
	}
	return json.Marshal(w)
}

func (r *Request) UnmarshalJSON(data []byte) error {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Model = w.Model
	r.Messages = w.Messages
	r.MaxTokens = w.MaxTokens
	r.Temperature = w.Temperature
	r.TopP = w.TopP
	r.TopK = w.TopK
	r.StopSequences = w.StopSequences
	r.Stream = w.Stream
	r.Tools = w.Tools
	r.ToolChoice = w.ToolChoice
	r.Thinking = w.Thinking
	if len(w.System) > 0 {
		var sys SystemField
		if err := json.Unmarshal(w.System, &sys); err != nil {
			return fmt.Errorf("anthropic: request system: %w", err)
		}
		r.System = &sys
	}
	return nil
}
