package sse

import (
	"strconv"
	"strings"
	"time"
)

// DefaultEventType is dispatched when an event block sets no "event" field.
const DefaultEventType = "message"

// Event represents a single dispatched SSE event, assembled from the field
// lines of one blank-line-delimited block.
type Event struct {
	// Type is the SSE event type from the "event:" field, or "message"
	// when the block sets none.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n" (per the SSE spec, multiple data fields are joined
	// with a single newline).
	Data string

	// ID is the event's last event ID: set by an "id:" field, carried
	// forward from earlier events in the same stream otherwise. Values
	// containing a NUL character are ignored entirely.
	ID string

	// Retry is the reconnection delay from a "retry:" field, nil when the
	// block sets none. It is parsed and surfaced, never enforced.
	Retry *time.Duration
}

// assembler folds raw events into dispatched Events, carrying the
// stream-wide last event ID between blocks.
type assembler struct {
	lastEventID string
}

// assemble applies the processing-model field semantics to one raw event.
// It returns nil when the block dispatches nothing, that is when it carries
// no recognized field: comment-only and empty blocks, and blocks made up
// solely of unknown fields, all assemble to nothing.
func (a *assembler) assemble(raw RawEvent) *Event {
	var (
		eventType string
		data      []string
		retry     *time.Duration
		seen      bool
	)

	for _, line := range raw {
		f, ok := line.(Field)
		if !ok {
			continue
		}

		switch f.Name {
		case "event":
			eventType = f.Value
			seen = true
		case "data":
			data = append(data, f.Value)
			seen = true
		case "id":
			if !strings.ContainsRune(f.Value, '\x00') {
				a.lastEventID = f.Value
			}
			seen = true
		case "retry":
			if d, ok := parseRetry(f.Value); ok {
				retry = &d
			}
			seen = true
		default:
			// Unknown fields are ignored per the SSE spec.
		}
	}

	if !seen {
		return nil
	}
	if eventType == "" {
		eventType = DefaultEventType
	}

	return &Event{
		Type:  eventType,
		Data:  strings.Join(data, "\n"),
		ID:    a.lastEventID,
		Retry: retry,
	}
}

// parseRetry interprets a "retry:" value as a reconnection delay in
// milliseconds. Anything other than a run of ASCII digits is ignored.
func parseRetry(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return 0, false
		}
	}

	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}
