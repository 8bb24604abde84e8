// Package anthropic defines the Anthropic Messages API shapes this gateway
// speaks to clients: requests, responses, content blocks, and the error
// envelope. Nothing in this package talks to the network; internal/convert
// and internal/sse translate between these types and internal/ollama's.
package anthropic

import "encoding/json"

// Role is a Message's author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentBlock is the tagged union of Text, Thinking, ToolUse, and
// ToolResult. Exactly one of the typed fields is populated, selected by
// Type. Marshal/Unmarshal project to/from Anthropic's wire shape, which
// flattens the tag's fields into the block object rather than nesting them.
type ContentBlock struct {
	Type string

	Text      string
	Thinking  string
	ToolUse   *ToolUse
	ToolResult *ToolResult
}

// ToolUse is a model-issued request to invoke a named tool.
type ToolUse struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// ToolResult carries the client's reply to a prior ToolUse, correlated by
// ToolUseID. Content is either a plain string or a list of content blocks;
// exactly one of Text/Blocks is set, mirroring the wire union.
type ToolResult struct {
	ToolUseID string
	Text      string
	Blocks    []ContentBlock
	IsError   bool
}

func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

func ThinkingBlock(thinking string) ContentBlock {
	return ContentBlock{Type: "thinking", Thinking: thinking}
}

func ToolUseBlock(id, name string, input map[string]interface{}) ContentBlock {
	return ContentBlock{Type: "tool_use", ToolUse: &ToolUse{ID: id, Name: name, Input: input}}
}

// Message is one turn of the conversation. Content holds either simple text
// (wire form: a bare string) or a list of content blocks.
type Message struct {
	Role Role
	Text string
	Blocks []ContentBlock
	// IsSimpleText reports which of Text/Blocks is populated.
	IsSimpleText bool
}

// ToolDefinition describes a tool the model may call.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// ToolChoice steers whether/which tool the model must call. Anthropic's
// wire shape is `{"type": "auto"|"any"|"tool", "name"?: string}`; Ollama has
// no equivalent knob. It is decoded from the request but neither forwarded
// to Ollama nor consulted: declared tools are sent whatever its value.
type ToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Thinking is the client's request for chain-of-thought output.
type Thinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
	Effort       string `json:"effort,omitempty"`
}

// Request is the inbound POST /v1/messages (and count_tokens) body.
type Request struct {
	Model         string           `json:"model"`
	Messages      []Message        `json:"-"`
	System        *SystemField     `json:"-"`
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

// SystemField holds the request's top-level system prompt, which on the
// wire is either a bare string or a list of content blocks.
type SystemField struct {
	Text         string
	Blocks       []ContentBlock
	IsSimpleText bool
}

// StopReason is the Response's termination cause.
type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
)

// Usage reports token counts. Ollama's eval counts are the only source, so
// these are approximations of Anthropic's own accounting, not exact.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the non-streaming POST /v1/messages result.
type Response struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         Role           `json:"role"`
	Content      []ContentBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   *StopReason    `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        Usage          `json:"usage"`
}

// ErrorKind enumerates the error envelope's `error.type` values.
type ErrorKind string

const (
	ErrorThinkingNotSupported ErrorKind = "thinking_not_supported"
	ErrorAPIConnection        ErrorKind = "api_connection_error"
	ErrorAPI                  ErrorKind = "api_error"
	ErrorRateLimit            ErrorKind = "rate_limit_error"
)

// ErrorEnvelope is the body of every 4xx/5xx POST /v1/messages response.
type ErrorEnvelope struct {
	Type  string      `json:"type"`
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Type    ErrorKind `json:"type"`
	Message string    `json:"message"`
}

func NewErrorEnvelope(kind ErrorKind, message string) ErrorEnvelope {
	return ErrorEnvelope{Type: "error", Error: ErrorDetail{Type: kind, Message: message}}
}
