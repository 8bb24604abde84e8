package sse

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkReader_ParsesMultipleLines(t *testing.T) {
	r := NewChunkReader(strings.NewReader("{\"model\":\"llama3.1\",\"done\":false}\n{\"model\":\"llama3.1\",\"done\":true}\n"))

	c1, err := r.Next()
	require.NoError(t, err)
	assert.False(t, c1.Done)

	c2, err := r.Next()
	require.NoError(t, err)
	assert.True(t, c2.Done)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestChunkReader_SkipsBlankAndUnparseableLines(t *testing.T) {
	r := NewChunkReader(strings.NewReader("\nnot json\n{\"done\":true}\n"))
	c, err := r.Next()
	require.NoError(t, err)
	assert.True(t, c.Done)
}

func TestChunkReader_UnterminatedFinalLineIsNotParsed(t *testing.T) {
	first := strings.NewReader(`{"done":fal`)
	r := NewChunkReader(first)
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

type multiReader struct {
	chunks [][]byte
	i      int
}

func (m *multiReader) Read(p []byte) (int, error) {
	if m.i >= len(m.chunks) {
		return 0, io.EOF
	}
	n := copy(p, m.chunks[m.i])
	m.i++
	return n, nil
}

func TestChunkReader_AssemblesLineSplitAcrossReads(t *testing.T) {
	src := &multiReader{chunks: [][]byte{[]byte(`{"done":`), []byte("true}\n")}}
	r := NewChunkReader(src)
	c, err := r.Next()
	require.NoError(t, err)
	assert.True(t, c.Done)
}
