package llm

import (
	"encoding/json"
	"log"
	"strings"
)

// StreamDecoder incrementally decodes the provider's SSE byte stream. It is
// fed one chunk at a time and keeps any partial trailing line buffered, so
// chunk boundaries may fall anywhere, including mid-line.
type StreamDecoder struct {
	rest string
	done bool
}

// NewStreamDecoder creates a decoder for one upstream stream.
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{}
}

// Done reports whether the [DONE] sentinel has been seen. Feed is a no-op
// afterwards.
func (d *StreamDecoder) Done() bool {
	return d.done
}

// Feed consumes the next chunk and returns the content deltas completed by
// it, in stream order. Malformed data lines are dropped, not fatal.
func (d *StreamDecoder) Feed(chunk []byte) []string {
	if d.done {
		return nil
	}

	data := d.rest + string(chunk)
	var deltas []string

	for {
		i := strings.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(data[:i])
		data = data[i+1:]

		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			d.done = true
			d.rest = ""
			return deltas
		}

		var sc StreamChunk
		if err := json.Unmarshal([]byte(payload), &sc); err != nil {
			log.Printf("WARN: dropping malformed stream line: %v", err)
			continue
		}
		if len(sc.Choices) > 0 && sc.Choices[0].Delta != nil && sc.Choices[0].Delta.Content != "" {
			deltas = append(deltas, sc.Choices[0].Delta.Content)
		}
	}

	d.rest = data
	return deltas
}
