package stream

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

// Event is a single parsed SSE payload from the upstream stream. Raw keeps
// the exact bytes for passthrough rewriting.
type Event struct {
	Raw   json.RawMessage
	Chunk types.UpstreamChunk
}

// Reader reads Chat Completions SSE events from an io.Reader. Lines that do
// not start with "data:" are ignored, and data payloads that fail to parse
// as JSON are skipped silently.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a new SSE reader.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next SSE event. Returns nil, io.EOF on [DONE] or when the
// stream ends.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(line[5:])
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return nil, io.EOF
		}
		var chunk types.UpstreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		return &Event{
			Raw:   json.RawMessage(data),
			Chunk: chunk,
		}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
