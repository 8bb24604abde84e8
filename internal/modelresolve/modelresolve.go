// Package modelresolve implements the client-to-upstream model name
// resolution rule: explicit mapping first, then a prefix-gated fallback
// to the configured default, otherwise pass the name through untouched.
package modelresolve

import "strings"

// Resolve returns the model name to send to Ollama for a client-supplied
// model string. The client-facing Response.model always echoes the
// original clientModel — callers must not use the resolved name there.
func Resolve(clientModel string, modelMap map[string]string, defaultModel string) string {
	if mapped, ok := modelMap[clientModel]; ok {
		return mapped
	}
	if !strings.HasPrefix(clientModel, "claude") {
		return clientModel
	}
	return defaultModel
}
