// Package utf8stream incrementally decodes a sequence of byte chunks into
// valid UTF-8 text. A multi-byte character split across chunk boundaries is
// buffered until its remaining bytes arrive, so chunking never corrupts,
// drops, or duplicates characters.
package utf8stream

import (
	"fmt"
	"unicode/utf8"
)

// InvalidUTF8Error reports a byte sequence that can never become valid UTF-8
// no matter what bytes follow. Offset is the absolute position of the start
// of the offending sequence, counted from the first byte of the stream.
type InvalidUTF8Error struct {
	Offset int64
}

func (e *InvalidUTF8Error) Error() string {
	return fmt.Sprintf("invalid UTF-8 encoding at byte offset %d", e.Offset)
}

// Decoder turns arbitrary byte chunks into valid UTF-8 strings. Each stream
// gets its own Decoder; it is owned by a single goroutine and carries only
// the trailing incomplete sequence between calls.
type Decoder struct {
	// pending holds the incomplete multi-byte sequence trailing the most
	// recently decoded chunk. Always a completable prefix of some valid
	// sequence, never longer than utf8.UTFMax-1 bytes.
	pending []byte

	// consumed counts every byte accepted so far, pending included, so
	// errors can report absolute stream offsets.
	consumed int64

	terminated bool
}

// NewDecoder returns a Decoder positioned at the start of a stream.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode accepts the next chunk and returns the longest run of complete
// characters now available, which may be empty. A truncated multi-byte
// sequence at the tail is held back for the next call. A byte sequence that
// can never become valid fails with *InvalidUTF8Error and terminates the
// decoder; the error is returned exactly once, after which Decode reports
// end-of-stream.
func (d *Decoder) Decode(chunk []byte) (string, error) {
	if d.terminated || len(chunk) == 0 {
		return "", nil
	}

	base := d.consumed - int64(len(d.pending))
	buf := chunk
	if len(d.pending) > 0 {
		buf = append(d.pending, chunk...)
	}
	d.consumed += int64(len(chunk))

	if utf8.Valid(buf) {
		d.pending = nil
		return string(buf), nil
	}

	valid := 0
	for valid < len(buf) {
		r, size := utf8.DecodeRune(buf[valid:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		valid += size
	}

	suffix := buf[valid:]
	if !incompletePrefix(suffix) {
		d.pending = nil
		d.terminated = true
		return "", &InvalidUTF8Error{Offset: base + int64(valid)}
	}

	d.pending = append([]byte(nil), suffix...)
	return string(buf[:valid]), nil
}

// Finish signals end-of-input. Any bytes still held back are necessarily an
// unfinished sequence, so a non-empty buffer fails with *InvalidUTF8Error.
// Finish is idempotent; once the decoder is terminated all further calls
// report a clean end-of-stream.
func (d *Decoder) Finish() (string, error) {
	if d.terminated {
		return "", nil
	}
	d.terminated = true

	if len(d.pending) == 0 {
		return "", nil
	}
	off := d.consumed - int64(len(d.pending))
	d.pending = nil
	return "", &InvalidUTF8Error{Offset: off}
}

// Terminated reports whether the decoder has seen end-of-input or failed.
func (d *Decoder) Terminated() bool {
	return d.terminated
}

// incompletePrefix reports whether b is a proper prefix of some valid UTF-8
// sequence, meaning bytes yet to arrive could still complete it. Anything
// else, a stray continuation byte, an overlong or surrogate encoding, a
// sequence already carrying all its continuation bytes, is a hard error.
func incompletePrefix(b []byte) bool {
	if len(b) == 0 || len(b) >= utf8.UTFMax {
		return false
	}

	// Continuation count and first-continuation range per lead byte,
	// following the well-formed byte sequences table in Unicode 15 §3.9.
	var need int
	var lo, hi byte
	switch lead := b[0]; {
	case lead >= 0xC2 && lead <= 0xDF:
		need, lo, hi = 1, 0x80, 0xBF
	case lead == 0xE0:
		need, lo, hi = 2, 0xA0, 0xBF
	case lead >= 0xE1 && lead <= 0xEC:
		need, lo, hi = 2, 0x80, 0xBF
	case lead == 0xED:
		need, lo, hi = 2, 0x80, 0x9F
	case lead == 0xEE || lead == 0xEF:
		need, lo, hi = 2, 0x80, 0xBF
	case lead == 0xF0:
		need, lo, hi = 3, 0x90, 0xBF
	case lead >= 0xF1 && lead <= 0xF3:
		need, lo, hi = 3, 0x80, 0xBF
	case lead == 0xF4:
		need, lo, hi = 3, 0x80, 0x8F
	default:
		return false
	}

	if len(b) > need {
		return false
	}
	if len(b) >= 2 && (b[1] < lo || b[1] > hi) {
		return false
	}
	for _, c := range b[2:] {
		if c < 0x80 || c > 0xBF {
			return false
		}
	}
	return true
}
