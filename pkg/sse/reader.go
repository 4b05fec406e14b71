package sse

import (
	"io"
)

// TeeReader reads SSE events from a source io.Reader while simultaneously
// writing all raw bytes verbatim to a destination io.Writer.
// This effectively enables "tee" shaped reading where TeeReader.Next
// returns the Event for consumption while writing to a separate destination.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │ TeeReader.Next() │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      Event       │
// └──────────────────┘
//
// The destination receives the exact bytes of the stream, terminators and
// unterminated tails included, while the caller inspects parsed events.
type TeeReader struct {
	stream *Stream
}

// NewTeeReader returns a TeeReader that parses SSE events from the src
// io.Reader and writes all raw bytes through to dest.
// The dest writer typically backs an io.Pipe connected to a downstream HTTP
// response.
func NewTeeReader(src io.Reader, dest io.Writer) *TeeReader {
	return &TeeReader{stream: NewStream(io.TeeReader(src, dest))}
}

// Next returns the next parsed SSE event. It blocks until a complete event
// is available (terminated by a blank line in the stream) and returns
// nil, nil when the source is exhausted. Bytes are teed to the destination
// as they are read, so the destination sees the stream verbatim even while
// an event is still accumulating; a destination write failure surfaces as a
// *TransportError.
func (r *TeeReader) Next() (*Event, error) {
	return r.stream.Next()
}

// LastEventID returns the stream-wide last event ID observed so far.
func (r *TeeReader) LastEventID() string {
	return r.stream.LastEventID()
}
