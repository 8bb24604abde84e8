// Package ollama models the Ollama native chat API and dispatches requests
// to a running Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gwhttp "github.com/digitallysavvy/ollama-gateway/pkg/internal/http"
	"github.com/digitallysavvy/ollama-gateway/pkg/internal/retry"
)

// DefaultTimeout is applied to a chat call when the caller sets none.
const DefaultTimeout = 2 * time.Minute

// dialRetryConfig bounds retries to connection failures only — a refused or
// reset connection to a local Ollama server is often transient (the server
// still warming up, a model being pulled), but a 4xx/5xx response is the
// server's considered answer and is never retried.
var dialRetryConfig = retry.Config{
	MaxRetries:   2,
	InitialDelay: 25 * time.Millisecond,
	MaxDelay:     200 * time.Millisecond,
	Multiplier:   2,
	ShouldRetry: func(err error) bool {
		var upErr *UpstreamError
		return errors.As(err, &upErr) && upErr.Kind == "api_connection_error"
	},
}

// unwrapUpstream recovers the *UpstreamError retry.Do's fmt.Errorf wrapping
// hides behind %w, so callers keep getting the concrete classification.
func unwrapUpstream(err error) error {
	if err == nil {
		return nil
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr
	}
	return err
}

// UpstreamError classifies a dispatch failure the way the HTTP surface
// needs to translate it into an Anthropic error envelope: connection
// failures always read as api_connection_error/502; a non-2xx response
// from Ollama passes its status through for 4xx and maps everything else
// to 502.
type UpstreamError struct {
	Kind       string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string { return e.Message }

func connErr(err error) *UpstreamError {
	return &UpstreamError{Kind: "api_connection_error", StatusCode: http.StatusBadGateway, Message: err.Error()}
}

func statusErr(status int, body []byte) *UpstreamError {
	passthrough := status
	if status < 400 || status >= 500 {
		passthrough = http.StatusBadGateway
	}
	return &UpstreamError{Kind: "api_error", StatusCode: passthrough, Message: fmt.Sprintf("ollama returned %d: %s", status, string(body))}
}

// Dispatcher sends chat and model-listing requests to a single Ollama base
// URL.
type Dispatcher struct {
	client  *gwhttp.Client
	timeout time.Duration
}

// NewDispatcher constructs a Dispatcher against baseURL (e.g.
// http://localhost:11434). A zero timeout falls back to DefaultTimeout.
func NewDispatcher(baseURL string, timeout time.Duration) *Dispatcher {
	return NewDispatcherWithClient(baseURL, timeout, nil)
}

// NewDispatcherWithClient constructs a Dispatcher using httpClient as the
// transport, for injecting a mock round tripper in tests. A nil httpClient
// falls back to the package's default transport.
func NewDispatcherWithClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		client: gwhttp.NewClient(gwhttp.Config{
			BaseURL:    baseURL,
			Timeout:    timeout,
			HTTPClient: httpClient,
		}),
		timeout: timeout,
	}
}

// Chat performs a non-streaming chat completion against /api/chat, retrying
// connection failures a bounded number of times before giving up.
func (d *Dispatcher) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	req.Stream = false

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var out ChatResponse
	err := retry.Do(ctx, dialRetryConfig, func(ctx context.Context) error {
		resp, err := d.client.Do(ctx, gwhttp.Request{Method: http.MethodPost, Path: "/api/chat", Body: req})
		if err != nil {
			return classifyDialError(err)
		}
		if resp.StatusCode >= 400 {
			return statusErr(resp.StatusCode, resp.Body)
		}
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			return &UpstreamError{Kind: "api_error", StatusCode: http.StatusBadGateway, Message: "malformed ollama response: " + err.Error()}
		}
		return nil
	})
	if err != nil {
		return ChatResponse{}, unwrapUpstream(err)
	}
	return out, nil
}

// ChatStream performs a streaming chat completion against /api/chat and
// returns the raw NDJSON body for the caller to wrap in a ChunkReader. The
// caller owns the returned ReadCloser and must close it. Once headers
// arrive the per-call timeout no longer bounds the read — the stream runs
// until the caller's context (typically tied to client disconnect) is
// cancelled.
func (d *Dispatcher) ChatStream(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	req.Stream = true

	headerCtx, cancelHeaders := context.WithCancel(ctx)
	headerTimer := time.AfterFunc(d.timeout, cancelHeaders)

	resp, err := d.client.DoStream(headerCtx, gwhttp.Request{Method: http.MethodPost, Path: "/api/chat", Body: req})
	if err != nil {
		headerTimer.Stop()
		cancelHeaders()
		return nil, classifyDialError(err)
	}
	// Headers arrived: stop the header deadline but leave headerCtx live so
	// the body stays readable until ctx itself is cancelled.
	headerTimer.Stop()
	return resp.Body, nil
}

// ListModels fetches the set of models Ollama currently has pulled, via
// /api/tags.
func (d *Dispatcher) ListModels(ctx context.Context) (TagsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var out TagsResponse
	err := retry.Do(ctx, dialRetryConfig, func(ctx context.Context) error {
		resp, err := d.client.Do(ctx, gwhttp.Request{Method: http.MethodGet, Path: "/api/tags"})
		if err != nil {
			return classifyDialError(err)
		}
		if resp.StatusCode >= 400 {
			return statusErr(resp.StatusCode, resp.Body)
		}
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			return &UpstreamError{Kind: "api_error", StatusCode: http.StatusBadGateway, Message: "malformed ollama response: " + err.Error()}
		}
		return nil
	})
	if err != nil {
		return TagsResponse{}, unwrapUpstream(err)
	}
	return out, nil
}

// classifyDialError covers every failure that happens before Ollama ever
// sends a status line: DNS failures, refused connections, and context
// deadlines all read as api_connection_error to the client.
func classifyDialError(err error) *UpstreamError {
	return connErr(err)
}
