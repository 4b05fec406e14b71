package publish

import (
	"time"

	"github.com/google/uuid"

	"github.com/jpopesculian/eventstream-parser/pkg/sse"
)

const (
	// SchemaVersionV1 is the first version of the envelope payload schema.
	SchemaVersionV1 = 1
)

// Envelope is a transport-neutral wrapper around a parsed stream event,
// carrying relay metadata alongside the event fields.
type Envelope struct {
	SchemaVersion int       `json:"schema_version"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	Source        string    `json:"source,omitempty"`
	Event         EventBody `json:"event"`
}

// EventBody holds the fields of a server-sent event in a form downstream
// consumers can decode without knowing the wire grammar.
type EventBody struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Data    string `json:"data"`
	RetryMs int64  `json:"retry_ms,omitempty"`
}

// NewEnvelope wraps a parsed stream event for publishing. The source tags
// the envelope with its relay origin. Returns nil for a nil event.
func NewEnvelope(source string, ev *sse.Event) *Envelope {
	if ev == nil {
		return nil
	}

	body := EventBody{
		Type: ev.Type,
		ID:   ev.ID,
		Data: ev.Data,
	}
	if ev.Retry != nil {
		body.RetryMs = ev.Retry.Milliseconds()
	}

	return &Envelope{
		SchemaVersion: SchemaVersionV1,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Event:         body,
	}
}
