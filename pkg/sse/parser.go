package sse

import "strings"

// Feed lexes as many complete events out of text as the input allows. It
// returns the recognized events and the unconsumed residue, which the caller
// must prepend to the next text chunk before feeding again. The residue
// restarts at the beginning of the current unterminated event, so lines
// already lexed but not yet committed by a blank line are simply re-lexed on
// the next call; Feed itself keeps no state between calls.
func Feed(text string) ([]RawEvent, string) {
	var (
		events []RawEvent
		lines  RawEvent
		start  int
		pos    int
	)

	for {
		content, next, ok := findLineEnd(text[pos:])
		if !ok {
			return events, text[start:]
		}

		line := lexLine(text[pos : pos+content])
		pos += next

		if line == nil {
			// Blank line: commit the accumulated event, empty or not.
			events = append(events, lines)
			lines = nil
			start = pos
			continue
		}
		lines = append(lines, line)
	}
}

// Parse behaves like Feed with stream-start handling: one optional leading
// byte-order mark is skipped before the first event. Use Parse for the first
// text of a stream and Feed thereafter; a U+FEFF arriving mid-stream is an
// ordinary name character.
func Parse(text string) ([]RawEvent, string) {
	return Feed(strings.TrimPrefix(text, "\uFEFF"))
}
