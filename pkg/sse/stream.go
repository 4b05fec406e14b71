package sse

import (
	"errors"
	"fmt"
	"io"

	"github.com/jpopesculian/eventstream-parser/pkg/utf8stream"
)

// TransportError wraps a failure of the upstream byte source so transport
// faults stay distinguishable from decode errors on the same stream.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("event stream transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// readBufSize is the chunk size RawStream requests from its source per read.
const readBufSize = 64 * 1024

// RawStream pulls grammar-level events out of an io.Reader, decoding UTF-8
// incrementally and re-lexing across chunk boundaries. Each stream owns its
// decoder and residue and must not be shared across goroutines.
type RawStream struct {
	src     io.Reader
	dec     *utf8stream.Decoder
	buf     []byte
	residue string
	queue   []RawEvent
	started bool
	err     error
}

// NewRawStream returns a RawStream reading from src. src is drained in
// chunks; it is never read past what parsing requires.
func NewRawStream(src io.Reader) *RawStream {
	return &RawStream{
		src: src,
		dec: utf8stream.NewDecoder(),
		buf: make([]byte, readBufSize),
	}
}

// Next returns the next raw event. At end of stream it returns (nil, io.EOF);
// lines accumulated without a closing blank line are discarded at that
// point, matching the wait-for-terminator semantics of the grammar. Decode
// failures surface as *utf8stream.InvalidUTF8Error and source failures as
// *TransportError. Whatever terminal condition is reached first is sticky:
// every later call reports it again.
func (s *RawStream) Next() (RawEvent, error) {
	for {
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue = s.queue[1:]
			return ev, nil
		}
		if s.err != nil {
			return nil, s.err
		}

		n, readErr := s.src.Read(s.buf)
		if n > 0 {
			text, err := s.dec.Decode(s.buf[:n])
			if err != nil {
				s.err = err
				return nil, s.err
			}
			s.ingest(text)
		}

		if readErr != nil {
			if readErr != io.EOF {
				s.err = &TransportError{Err: readErr}
				return nil, s.err
			}

			text, err := s.dec.Finish()
			if err != nil {
				s.err = err
				return nil, s.err
			}
			s.ingest(text)

			// The residue is an unterminated partial event, not an event.
			s.residue = ""
			s.err = io.EOF
		}
	}
}

// ingest runs the parser over the residue plus the newly decoded text and
// queues whatever events completed.
func (s *RawStream) ingest(text string) {
	if text == "" {
		return
	}

	input := s.residue + text

	var events []RawEvent
	if s.started {
		events, s.residue = Feed(input)
	} else {
		// First text of the stream: skip an optional leading BOM.
		s.started = true
		events, s.residue = Parse(input)
	}
	s.queue = append(s.queue, events...)
}

// Stream pulls assembled Events out of an io.Reader. It layers the
// processing-model field semantics over RawStream: repeated data fields are
// joined, the last event ID persists across events, and blocks carrying no
// recognized field dispatch nothing.
type Stream struct {
	raw *RawStream
	asm assembler
}

// NewStream returns a Stream reading from src.
func NewStream(src io.Reader) *Stream {
	return &Stream{raw: NewRawStream(src)}
}

// Next returns the next dispatched event. It returns nil, nil once the
// source is exhausted cleanly; otherwise the stream's terminal error.
func (s *Stream) Next() (*Event, error) {
	for {
		raw, err := s.raw.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}

		if ev := s.asm.assemble(raw); ev != nil {
			return ev, nil
		}
	}
}

// LastEventID returns the stream-wide last event ID, empty until an "id:"
// field sets it.
func (s *Stream) LastEventID() string {
	return s.asm.lastEventID
}

// SetLastEventID seeds the last event ID, typically with the value carried
// over from a previous connection when resuming a stream.
func (s *Stream) SetLastEventID(id string) {
	s.asm.lastEventID = id
}
