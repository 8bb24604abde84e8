package thinking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCapable_PrefixMatchCaseInsensitive(t *testing.T) {
	assert.True(t, IsCapable("qwen3:14b"))
	assert.True(t, IsCapable("DeepSeek-R1:7b"))
	assert.True(t, IsCapable("QwQ-32b"))
	assert.False(t, IsCapable("llama3.1:70b"))
}

func TestResolve_NotRequested(t *testing.T) {
	think, stripped, err := Resolve(false, "llama3.1", false)
	assert.False(t, think)
	assert.False(t, stripped)
	assert.NoError(t, err)
}

func TestResolve_CapableModelSurvives(t *testing.T) {
	think, stripped, err := Resolve(true, "qwen3:14b", true)
	assert.True(t, think)
	assert.False(t, stripped)
	assert.NoError(t, err)
}

func TestResolve_IncapableSilentStrip(t *testing.T) {
	think, stripped, err := Resolve(true, "llama3.1", false)
	assert.False(t, think)
	assert.True(t, stripped)
	assert.NoError(t, err)
}

func TestResolve_IncapableStrictErrors(t *testing.T) {
	think, stripped, err := Resolve(true, "llama3.1", true)
	assert.False(t, think)
	assert.False(t, stripped)
	assert.ErrorIs(t, err, ErrNotSupported)
}
