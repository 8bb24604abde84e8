package modelresolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_ExplicitMapWins(t *testing.T) {
	got := Resolve("claude-3-opus", map[string]string{"claude-3-opus": "llama3.1:70b"}, "llama3.1")
	assert.Equal(t, "llama3.1:70b", got)
}

func TestResolve_ClaudePrefixFallsBackToDefault(t *testing.T) {
	got := Resolve("claude-3-haiku", map[string]string{}, "llama3.1")
	assert.Equal(t, "llama3.1", got)
}

func TestResolve_NonClaudePassesThrough(t *testing.T) {
	got := Resolve("qwen3:14b", map[string]string{}, "llama3.1")
	assert.Equal(t, "qwen3:14b", got)
}
