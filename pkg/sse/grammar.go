package sse

import "strings"

// The line grammar, over Unicode scalar values:
//
//	end-of-line = CRLF / CR / LF
//	comment     = ":" *any-char end-of-line
//	field       = 1*name-char [":" [" "] *any-char] end-of-line
//
// where name-char is any scalar value except CR, LF and ":", and any-char is
// any scalar value except CR and LF. The grammar is total: every line with a
// terminator lexes as a comment, a field, or the blank event terminator.
// Scanning byte-wise is safe because CR and LF never occur inside a UTF-8
// multi-byte sequence.

// findLineEnd locates the first line terminator in text. content is the
// number of bytes before the terminator and next the number through it. A CR
// as the last available byte reports incomplete rather than a lone-CR
// terminator, since the next chunk may still supply the LF of a CRLF pair.
func findLineEnd(text string) (content, next int, ok bool) {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			return i, i + 1, true
		case '\r':
			if i+1 == len(text) {
				return 0, 0, false
			}
			if text[i+1] == '\n' {
				return i, i + 2, true
			}
			return i, i + 1, true
		}
	}
	return 0, 0, false
}

// lexLine classifies one terminator-stripped line. An empty line is the
// event terminator and yields nil; anything else is a Comment or a Field.
func lexLine(line string) RawEventLine {
	if line == "" {
		return nil
	}
	if strings.HasPrefix(line, ":") {
		return Comment(line[1:])
	}

	name, value, hasValue := strings.Cut(line, ":")
	if !hasValue {
		return Field{Name: name}
	}
	// At most one space after the colon belongs to the syntax, not the value.
	return Field{Name: name, Value: strings.TrimPrefix(value, " "), HasValue: true}
}
