// Package sse implements the Streaming Transformer: a chunk reader that
// turns an Ollama NDJSON byte stream into parsed chunks, and a stateful
// transformer that turns those chunks into an Anthropic SSE transcript.
package sse

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/digitallysavvy/ollama-gateway/internal/ollama"
)

// ChunkReader parses Ollama's newline-delimited JSON stream. It keeps an
// accumulator across reads: a partial final line is never parsed and is
// retained verbatim until more bytes complete it.
type ChunkReader struct {
	src io.Reader
	acc []byte
	eof bool
}

// NewChunkReader wraps r as a ChunkReader.
func NewChunkReader(r io.Reader) *ChunkReader {
	return &ChunkReader{src: r}
}

// Next returns the next successfully parsed chunk, skipping blank and
// unparseable lines, and returns io.EOF once the underlying reader is
// exhausted and no complete line remains.
func (c *ChunkReader) Next() (*ollama.StreamChunk, error) {
	for {
		if idx := bytes.IndexByte(c.acc, '\n'); idx >= 0 {
			line := bytes.TrimSpace(c.acc[:idx])
			c.acc = c.acc[idx+1:]
			if len(line) == 0 {
				continue
			}
			var chunk ollama.StreamChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue
			}
			return &chunk, nil
		}
		if c.eof {
			return nil, io.EOF
		}
		buf := make([]byte, 4096)
		n, err := c.src.Read(buf)
		if n > 0 {
			c.acc = append(c.acc, buf[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				c.eof = true
				continue
			}
			return nil, err
		}
	}
}
