// Package thinking implements the Thinking Policy: detecting which
// resolved models support chain-of-thought output, and deciding whether a
// client's thinking request survives onto the Ollama wire.
package thinking

import (
	"errors"
	"strings"
)

// capablePrefixes are the fixed reasoning-family name prefixes, matched
// case-insensitively against the resolved (post model_map) model name.
var capablePrefixes = []string{"qwen3", "deepseek-r1", "magistral", "nemotron", "glm4", "qwq"}

// IsCapable reports whether the resolved model name begins with one of the
// known thinking-capable prefixes.
func IsCapable(resolvedModel string) bool {
	lower := strings.ToLower(resolvedModel)
	for _, prefix := range capablePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// ErrNotSupported is returned by Resolve when a client requested thinking
// on an incapable model under strict_thinking.
var ErrNotSupported = errors.New("thinking requested but resolved model is not thinking-capable")

// Resolve decides whether `think: true` should be forwarded to Ollama.
// requested is true when the inbound request carried a non-nil `thinking`
// field. stripped reports whether the field was silently dropped (for the
// caller to emit a single thinking.stripped warning log record).
func Resolve(requested bool, resolvedModel string, strict bool) (think bool, stripped bool, err error) {
	if !requested {
		return false, false, nil
	}
	if IsCapable(resolvedModel) {
		return true, false, nil
	}
	if strict {
		return false, false, ErrNotSupported
	}
	return false, true, nil
}
