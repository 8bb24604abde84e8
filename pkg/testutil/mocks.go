// Package testutil provides mock collaborators for testing the gateway
// without a live Ollama server.
package testutil

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// MockOllamaTransport is an http.RoundTripper stand-in for a real Ollama
// server. Tests install it on the client the dispatcher uses and assert
// against RequestsSeen, or drive behavior with RoundTripFunc.
type MockOllamaTransport struct {
	// RoundTripFunc, if set, handles every request. If nil, Err/Response
	// are used instead.
	RoundTripFunc func(req *http.Request) (*http.Response, error)

	// Response is returned verbatim when RoundTripFunc and Err are nil.
	Response *http.Response

	// Err is returned when RoundTripFunc is nil; it takes precedence over
	// Response.
	Err error

	mu           sync.Mutex
	RequestsSeen []*http.Request
}

// RoundTrip implements http.RoundTripper.
func (m *MockOllamaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.RequestsSeen = append(m.RequestsSeen, req)
	m.mu.Unlock()

	if m.RoundTripFunc != nil {
		return m.RoundTripFunc(req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

// Calls returns the number of requests observed so far.
func (m *MockOllamaTransport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RequestsSeen)
}

// NDJSONResponse builds an *http.Response carrying the given lines as a
// newline-delimited JSON body, matching Ollama's native streaming format.
func NDJSONResponse(status int, lines ...string) *http.Response {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(&buf),
		Header:     make(http.Header),
	}
}

// JSONResponse builds an *http.Response carrying a single JSON body, used
// for non-streaming Ollama responses like /api/tags.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}
