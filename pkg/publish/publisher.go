package publish

import "context"

// Publisher publishes relayed stream events to a downstream backend.
type Publisher interface {
	Publish(ctx context.Context, env *Envelope) error
	Close() error
}
