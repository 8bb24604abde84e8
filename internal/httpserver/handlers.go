package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel/trace"

	"github.com/digitallysavvy/ollama-gateway/internal/anthropic"
	"github.com/digitallysavvy/ollama-gateway/internal/config"
	"github.com/digitallysavvy/ollama-gateway/internal/convert"
	"github.com/digitallysavvy/ollama-gateway/internal/gwlog"
	"github.com/digitallysavvy/ollama-gateway/internal/healer"
	"github.com/digitallysavvy/ollama-gateway/internal/ollama"
	"github.com/digitallysavvy/ollama-gateway/internal/sse"
	"github.com/digitallysavvy/ollama-gateway/internal/tokenapprox"
	"github.com/digitallysavvy/ollama-gateway/pkg/telemetry"
)

// Server wires the four HTTP endpoints to the translation pipeline and the
// Ollama dispatcher.
type Server struct {
	cfg        config.Config
	dispatcher *ollama.Dispatcher
	log        hclog.Logger
	tracer     trace.Tracer
}

// NewServer constructs a Server bound to a resolved configuration snapshot.
// telemetrySettings may be nil, which yields a no-op tracer.
func NewServer(cfg config.Config, log hclog.Logger, telemetrySettings *telemetry.Settings) *Server {
	return &Server{
		cfg:        cfg,
		dispatcher: ollama.NewDispatcher(cfg.OllamaBaseURL, cfg.RequestTimeout),
		log:        log,
		tracer:     telemetry.GetTracer(telemetrySettings),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"ollama": s.cfg.OllamaBaseURL,
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	tags, err := telemetry.RecordSpan(r.Context(), s.tracer, telemetry.SpanOptions{Name: "ollama.list_models"},
		func(ctx context.Context, _ trace.Span) (ollama.TagsResponse, error) {
			return s.dispatcher.ListModels(ctx)
		})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	data := make([]map[string]interface{}, len(tags.Models))
	for i, m := range tags.Models {
		data[i] = map[string]interface{}{
			"id":         m.Name,
			"object":     "model",
			"created":    parseModTime(m.ModifiedAt),
			"owned_by":   "ollama",
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"object": "list", "data": data})
}

func (s *Server) handleCountTokens(w http.ResponseWriter, r *http.Request) {
	var req anthropic.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body: "+err.Error())
		return
	}

	var text string
	if req.System != nil {
		if req.System.IsSimpleText {
			text += req.System.Text + "\n"
		} else {
			text += convert.ProjectAll(req.System.Blocks) + "\n"
		}
	}
	for _, msg := range req.Messages {
		if msg.IsSimpleText {
			text += msg.Text + "\n"
		} else {
			text += convert.ProjectAll(msg.Blocks) + "\n"
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"input_tokens": tokenapprox.Count(text)})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	var req anthropic.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body: "+err.Error())
		return
	}

	result, perr := runPipeline(req, s.cfg)
	if perr != nil {
		writeError(w, perr.status, perr.kind, perr.msg)
		return
	}

	requestLog := gwlog.ForRequest(s.log, requestIDFrom(r.Context()))
	if result.ThinkingStripped {
		requestLog.Warn("thinking.stripped", "resolved_model", result.ResolvedModel)
	}
	logHealActions(requestLog, "history.tool_use_healed", result.HealActions)

	if req.Stream {
		s.streamMessage(w, r, req.Model, result)
		return
	}
	s.nonStreamMessage(w, r, req.Model, result)
}

func (s *Server) nonStreamMessage(w http.ResponseWriter, r *http.Request, clientModel string, result pipelineResult) {
	upstream, err := telemetry.RecordSpan(r.Context(), s.tracer, telemetry.SpanOptions{
		Name:       "ollama.chat",
		Attributes: telemetry.DispatchAttributes(result.OllamaRequest.Model, false),
	}, func(ctx context.Context, _ trace.Span) (ollama.ChatResponse, error) {
		return s.dispatcher.Chat(ctx, result.OllamaRequest)
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	resp, actions := convert.BuildAnthropicResponse(convert.ResponseInput{
		ClientModel: clientModel,
		Upstream:    upstream,
		ToolIndex:   result.ToolIndex,
	})
	logHealActions(gwlog.ForRequest(s.log, requestIDFrom(r.Context())), "response.tool_use_healed", actions)
	writeJSON(w, http.StatusOK, resp)
}

// logHealActions emits one warning per repair step the Tool Healer took,
// named by the pipeline stage that triggered it. A nil or empty slice logs
// nothing.
func logHealActions(log hclog.Logger, event string, actions []healer.Action) {
	for _, a := range actions {
		log.Warn(event, "phase", a.Phase, "tool", a.Tool, "detail", a.Detail)
	}
}

func (s *Server) streamMessage(w http.ResponseWriter, r *http.Request, clientModel string, result pipelineResult) {
	body, err := telemetry.RecordSpan(r.Context(), s.tracer, telemetry.SpanOptions{
		Name:       "ollama.chat_stream",
		Attributes: telemetry.DispatchAttributes(result.OllamaRequest.Model, true),
	}, func(ctx context.Context, _ trace.Span) (io.ReadCloser, error) {
		return s.dispatcher.ChatStream(ctx, result.OllamaRequest)
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	defer body.Close()

	for k, v := range sse.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	inputTokens := tokenapprox.Count(outboundText(result))
	transformer := sse.NewTransformer(w, clientModel, result.ToolIndex, inputTokens)
	reader := sse.NewChunkReader(body)

	for {
		chunk, err := reader.Next()
		if err != nil {
			break
		}
		if ferr := transformer.Feed(chunk); ferr != nil {
			// Client disconnected or write failed; stop and release the
			// upstream body so the pooled connection can be reclaimed.
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		if chunk.Done {
			break
		}
	}
}

// outboundText approximates input_tokens from the outbound Ollama messages:
// the streaming path has already discarded the original request in favor of
// the translated one by the time token counting happens here.
func outboundText(result pipelineResult) string {
	var sb strings.Builder
	for _, m := range result.OllamaRequest.Messages {
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeUpstreamError(w http.ResponseWriter, err error) {
	var uerr *ollama.UpstreamError
	if errors.As(err, &uerr) {
		kind := anthropic.ErrorAPI
		if uerr.Kind == "api_connection_error" {
			kind = anthropic.ErrorAPIConnection
		}
		writeError(w, uerr.StatusCode, kind, uerr.Message)
		return
	}
	writeInternalError(w, err.Error())
}

func parseModTime(modifiedAt string) int64 {
	t, err := time.Parse(time.RFC3339, modifiedAt)
	if err != nil {
		return 0
	}
	return t.Unix()
}
