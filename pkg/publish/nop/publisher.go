package nop

import (
	"context"

	"github.com/jpopesculian/eventstream-parser/pkg/publish"
)

// Publisher is a no-op publisher used for tests and dry-run mode.
type Publisher struct{}

// NewPublisher creates a new no-op publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish validates input and otherwise does nothing.
func (p *Publisher) Publish(_ context.Context, env *publish.Envelope) error {
	if env == nil {
		return publish.ErrNilEnvelope
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
