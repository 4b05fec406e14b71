package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing/iotest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jpopesculian/eventstream-parser/pkg/utf8stream"
)

// collectRaw drains a RawStream until its terminal condition.
func collectRaw(s *RawStream) ([]RawEvent, error) {
	var events []RawEvent
	for {
		ev, err := s.Next()
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

// collect drains a Stream until clean exhaustion or error.
func collect(s *Stream) ([]*Event, error) {
	var events []*Event
	for {
		ev, err := s.Next()
		if err != nil {
			return events, err
		}
		if ev == nil {
			return events, nil
		}
		events = append(events, ev)
	}
}

var _ = Describe("RawStream", func() {
	It("yields raw events and then io.EOF", func() {
		s := NewRawStream(strings.NewReader("data: a\n\n: ping\n\n"))

		ev, err := s.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev).To(Equal(RawEvent{Field{Name: "data", Value: "a", HasValue: true}}))

		ev, err = s.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev).To(Equal(RawEvent{Comment(" ping")}))

		_, err = s.Next()
		Expect(err).To(MatchError(io.EOF))

		// Terminal conditions are sticky.
		_, err = s.Next()
		Expect(err).To(MatchError(io.EOF))
	})

	It("surfaces empty events at the raw layer", func() {
		s := NewRawStream(strings.NewReader("\n\ndata: x\n\n"))

		events, err := collectRaw(s)
		Expect(err).To(MatchError(io.EOF))
		Expect(events).To(HaveLen(3))
		Expect(events[0]).To(BeEmpty())
		Expect(events[1]).To(BeEmpty())
		Expect(events[2]).To(HaveLen(1))
	})

	It("drops lines never terminated by a blank line", func() {
		s := NewRawStream(strings.NewReader("data: done\n\ndata: cut off"))

		events, err := collectRaw(s)
		Expect(err).To(MatchError(io.EOF))
		Expect(events).To(HaveLen(1))
		Expect(events[0]).To(Equal(RawEvent{Field{Name: "data", Value: "done", HasValue: true}}))
	})

	It("skips a byte-order mark only at the start of the stream", func() {
		s := NewRawStream(strings.NewReader("\uFEFFdata: a\n\n\uFEFFdata: b\n\n"))

		events, err := collectRaw(s)
		Expect(err).To(MatchError(io.EOF))
		Expect(events).To(HaveLen(2))
		Expect(events[0]).To(Equal(RawEvent{Field{Name: "data", Value: "a", HasValue: true}}))
		Expect(events[1]).To(Equal(RawEvent{Field{Name: "\uFEFFdata", Value: "b", HasValue: true}}))
	})

	It("wraps source failures in a TransportError", func() {
		boom := errors.New("connection reset")
		src := io.MultiReader(strings.NewReader("data: ok\n\n"), iotest.ErrReader(boom))
		s := NewRawStream(src)

		ev, err := s.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev).To(HaveLen(1))

		_, err = s.Next()
		var terr *TransportError
		Expect(errors.As(err, &terr)).To(BeTrue())
		Expect(errors.Is(err, boom)).To(BeTrue())

		// Sticky after failure.
		_, err = s.Next()
		Expect(errors.As(err, &terr)).To(BeTrue())
	})

	It("fails the stream on invalid UTF-8 with the byte offset", func() {
		src := io.MultiReader(
			strings.NewReader("data: ok\n\n"),
			bytes.NewReader([]byte{'d', 0xFF, 'x'}),
		)
		s := NewRawStream(src)

		ev, err := s.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev).To(HaveLen(1))

		_, err = s.Next()
		var uerr *utf8stream.InvalidUTF8Error
		Expect(errors.As(err, &uerr)).To(BeTrue())
		Expect(uerr.Offset).To(Equal(int64(11)))
	})

	It("fails at end of input when a multi-byte sequence is cut short", func() {
		var src bytes.Buffer
		src.WriteString("data: ok\n\n")
		src.Write([]byte{0xE2, 0x82})
		s := NewRawStream(&src)

		ev, err := s.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev).To(HaveLen(1))

		_, err = s.Next()
		var uerr *utf8stream.InvalidUTF8Error
		Expect(errors.As(err, &uerr)).To(BeTrue())
		Expect(uerr.Offset).To(Equal(int64(10)))
	})
})

var _ = Describe("Stream", func() {
	It("assembles a minimal event with the default type", func() {
		s := NewStream(strings.NewReader("data: hello\n\n"))

		ev, err := s.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Type).To(Equal("message"))
		Expect(ev.Data).To(Equal("hello"))
		Expect(ev.ID).To(BeEmpty())
		Expect(ev.Retry).To(BeNil())

		ev, err = s.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev).To(BeNil())
	})

	It("joins repeated data fields with newlines", func() {
		s := NewStream(strings.NewReader("data: line one\ndata: line two\ndata\n\n"))

		ev, err := s.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Data).To(Equal("line one\nline two\n"))
	})

	It("uses the last event field of a block as the type", func() {
		s := NewStream(strings.NewReader("event: first\nevent: second\ndata: x\n\n"))

		ev, err := s.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Type).To(Equal("second"))
	})

	It("filters blocks with no recognized field", func() {
		s := NewStream(strings.NewReader(": ping\n\n\n\nunknown: x\n\ndata: real\n\n"))

		events, err := collect(s)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("real"))
	})

	It("persists the last event ID across events", func() {
		s := NewStream(strings.NewReader("id: 7\ndata: a\n\ndata: b\n\nid: 8\ndata: c\n\n"))

		events, err := collect(s)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(3))
		Expect(events[0].ID).To(Equal("7"))
		Expect(events[1].ID).To(Equal("7"))
		Expect(events[2].ID).To(Equal("8"))
		Expect(s.LastEventID()).To(Equal("8"))
	})

	It("ignores event IDs containing a NUL character", func() {
		s := NewStream(strings.NewReader("id: ok\ndata: a\n\nid: bad\x00id\ndata: b\n\n"))

		events, err := collect(s)
		Expect(err).NotTo(HaveOccurred())
		Expect(events[0].ID).To(Equal("ok"))
		Expect(events[1].ID).To(Equal("ok"))
	})

	It("resets the last event ID on an empty id field", func() {
		s := NewStream(strings.NewReader("id: 7\ndata: a\n\nid\ndata: b\n\n"))

		events, err := collect(s)
		Expect(err).NotTo(HaveOccurred())
		Expect(events[0].ID).To(Equal("7"))
		Expect(events[1].ID).To(BeEmpty())
	})

	It("seeds the last event ID for resumed streams", func() {
		s := NewStream(strings.NewReader("data: a\n\n"))
		s.SetLastEventID("carried-over")

		ev, err := s.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.ID).To(Equal("carried-over"))
	})

	It("parses a retry field into a duration", func() {
		s := NewStream(strings.NewReader("retry: 1500\ndata: x\n\n"))

		ev, err := s.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Retry).NotTo(BeNil())
		Expect(*ev.Retry).To(Equal(1500 * time.Millisecond))
	})

	It("dispatches a block carrying only a retry field", func() {
		s := NewStream(strings.NewReader("retry: 250\n\n"))

		ev, err := s.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev).NotTo(BeNil())
		Expect(ev.Data).To(BeEmpty())
		Expect(*ev.Retry).To(Equal(250 * time.Millisecond))
	})

	It("ignores retry values that are not pure ASCII digits", func() {
		s := NewStream(strings.NewReader("retry: 3s\ndata: x\n\nretry: -1\ndata: y\n\n"))

		events, err := collect(s)
		Expect(err).NotTo(HaveOccurred())
		Expect(events[0].Retry).To(BeNil())
		Expect(events[1].Retry).To(BeNil())
	})

	It("drops an event left unterminated at end of stream", func() {
		s := NewStream(strings.NewReader("data: complete\n\nevent: partial\ndata: never dispatched"))

		events, err := collect(s)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal("complete"))
	})

	It("produces identical events regardless of read chunking", func() {
		input := "\uFEFF: warm up\r\nevent: greeting\ndata: héllo\ndata: wörld 🌍\r\nid: a1\n\nretry: 1500\ndata: bye\n\n"

		whole, err := collect(NewStream(strings.NewReader(input)))
		Expect(err).NotTo(HaveOccurred())
		Expect(whole).To(HaveLen(2))
		Expect(whole[0].Type).To(Equal("greeting"))
		Expect(whole[0].Data).To(Equal("héllo\nwörld 🌍"))
		Expect(whole[0].ID).To(Equal("a1"))
		Expect(whole[1].Data).To(Equal("bye"))
		Expect(whole[1].ID).To(Equal("a1"))

		// One byte per read splits every multi-byte character and every
		// CRLF pair across chunk boundaries.
		byteAtATime, err := collect(NewStream(iotest.OneByteReader(strings.NewReader(input))))
		Expect(err).NotTo(HaveOccurred())
		Expect(byteAtATime).To(Equal(whole))
	})
})
