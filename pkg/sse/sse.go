// Package sse decodes Server-Sent-Events frames from a byte stream.
//
// The decoder is a pure function of its input reader: it knows nothing about
// HTTP, retries or the shape of the JSON payloads. Both the upstream provider
// client and the Go API client feed response bodies through it.
package sse

import (
	"bufio"
	"bytes"
	"io"
)

// DoneData is the conventional terminal payload of an OpenAI-style stream.
const DoneData = "[DONE]"

// Event is one decoded SSE frame.
type Event struct {
	Type string
	Data []byte
}

// Done reports whether the event is the [DONE] terminator.
func (e Event) Done() bool {
	return string(e.Data) == DoneData
}

// Reader decodes SSE events from an underlying stream. A Reader is bound to a
// single connection; create a fresh one per response body.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r in an SSE decoder.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next reads the next event. It returns io.EOF once the stream is exhausted.
// Comment lines and unknown fields are skipped per the SSE specification.
func (s *Reader) Next() (Event, error) {
	var ev Event
	var dataLines [][]byte

	for {
		line, err := s.r.ReadBytes('\n')
		line = bytes.TrimRight(line, "\r\n")
		if err != nil {
			// An unterminated final line still counts as part of the event.
			if err == io.EOF && bytes.HasPrefix(line, []byte("data:")) {
				dataLines = append(dataLines, bytes.TrimSpace(line[len("data:"):]))
			}
			if err == io.EOF && len(dataLines) > 0 {
				// Stream ended mid-event; deliver what we have.
				ev.Data = bytes.Join(dataLines, []byte("\n"))
				return ev, nil
			}
			return Event{}, err
		}

		// Blank line terminates the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				ev.Data = bytes.Join(dataLines, []byte("\n"))
				return ev, nil
			}
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte(":")):
			// Comment, ignore.
		case bytes.HasPrefix(line, []byte("event:")):
			ev.Type = string(bytes.TrimSpace(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			dataLines = append(dataLines, bytes.TrimSpace(line[len("data:"):]))
		}
	}
}
