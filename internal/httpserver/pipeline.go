package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/digitallysavvy/ollama-gateway/internal/anthropic"
	"github.com/digitallysavvy/ollama-gateway/internal/config"
	"github.com/digitallysavvy/ollama-gateway/internal/convert"
	"github.com/digitallysavvy/ollama-gateway/internal/healer"
	"github.com/digitallysavvy/ollama-gateway/internal/history"
	"github.com/digitallysavvy/ollama-gateway/internal/modelresolve"
	"github.com/digitallysavvy/ollama-gateway/internal/ollama"
	"github.com/digitallysavvy/ollama-gateway/internal/thinking"
	"github.com/digitallysavvy/ollama-gateway/internal/toolschema"
)

// pipelineError carries enough to write an Anthropic-shaped error envelope.
type pipelineError struct {
	status int
	kind   anthropic.ErrorKind
	msg    string
}

func (e *pipelineError) Error() string { return e.msg }

// pipelineResult is everything the handlers need after running the shared
// translation pipeline: Tool-Schema Index build, History Healer, optional
// Parallel-to-Sequential Rewrite, Thinking Policy, Model Resolution, and the
// Request Adapter.
type pipelineResult struct {
	OllamaRequest    ollama.ChatRequest
	ToolIndex        toolschema.Index
	HealActions      []healer.Action
	ResolvedModel    string
	ThinkingStripped bool
}

// runPipeline builds the index and heals/strips history before rewriting
// parallel tool calls, then resolves thinking and the model, and finally
// builds the outbound Ollama request.
func runPipeline(req anthropic.Request, cfg config.Config) (pipelineResult, *pipelineError) {
	names := make([]string, len(req.Tools))
	schemas := make([]json.RawMessage, len(req.Tools))
	for i, t := range req.Tools {
		names[i] = t.Name
		schemas[i] = t.InputSchema
	}
	idx := toolschema.Build(names, schemas)

	messages, healActions := history.HealToolUseInputs(req.Messages, idx)
	messages = history.StripFailedRounds(messages)
	if cfg.SequentialToolCalls {
		messages = history.RewriteParallelToSequential(messages)
	}

	resolvedModel := modelresolve.Resolve(req.Model, cfg.ModelMap, cfg.DefaultModel)

	requestedThinking := req.Thinking != nil
	think, thinkingStripped, err := thinking.Resolve(requestedThinking, resolvedModel, cfg.StrictThinking)
	if err != nil {
		return pipelineResult{}, &pipelineError{
			status: http.StatusBadRequest,
			kind:   anthropic.ErrorThinkingNotSupported,
			msg:    err.Error(),
		}
	}

	ollamaReq := convert.BuildOllamaChatRequest(convert.RequestInput{
		ResolvedModel: resolvedModel,
		Messages:      messages,
		System:        req.System,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		TopK:          req.TopK,
		StopSequences: req.StopSequences,
		Tools:         req.Tools,
		Think:         think,
		Stream:        req.Stream,
	})

	return pipelineResult{
		OllamaRequest:    ollamaReq,
		ToolIndex:        idx,
		HealActions:      healActions,
		ResolvedModel:    resolvedModel,
		ThinkingStripped: thinkingStripped,
	}, nil
}
