// Package async decorates a publisher with a background worker pool so slow
// publishes do not stall the stream read loop. Envelopes are queued on a
// buffered channel and published by a fixed set of workers; when the queue is
// full new envelopes are dropped and counted rather than blocking the
// producer.
package async

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/jpopesculian/eventstream-parser/pkg/logger"
	"github.com/jpopesculian/eventstream-parser/pkg/publish"
)

var (
	defaultNumWorkers uint = 3
	defaultQueueSize  uint = 256
)

// Config is the configuration options for the async publisher.
type Config struct {
	// Next is the publisher that workers deliver envelopes to. Required.
	Next publish.Publisher

	// NumWorkers is the number of background workers (defaults to 3).
	NumWorkers uint

	// QueueSize is the capacity of the buffered envelope queue (defaults
	// to 256).
	QueueSize uint

	// Logger receives per-envelope debug records and drop/failure reports.
	Logger *slog.Logger
}

// Publisher queues envelopes and publishes them from a worker pool. Publish
// never blocks on the downstream backend; ordering across envelopes is not
// preserved once more than one worker runs.
type Publisher struct {
	next  publish.Publisher
	queue chan *publish.Envelope
	wg    sync.WaitGroup
	log   *slog.Logger

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// NewPublisher creates an async publisher and starts its workers.
func NewPublisher(c *Config) (*Publisher, error) {
	if c.Next == nil {
		return nil, fmt.Errorf("async publisher requires a next publisher")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	p := &Publisher{
		next:  c.Next,
		queue: make(chan *publish.Envelope, c.QueueSize),
		log:   log,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := uint(0); i < c.NumWorkers; i++ {
		go p.worker(i)
	}

	return p, nil
}

// Publish enqueues the envelope for a worker to deliver. A full queue drops
// the envelope rather than blocking; drops are counted and logged. Delivery
// failures inside the pool are likewise counted and logged, never returned.
func (p *Publisher) Publish(_ context.Context, env *publish.Envelope) error {
	if env == nil {
		return publish.ErrNilEnvelope
	}

	select {
	case p.queue <- env:
		p.log.Debug("envelope queued", "event_id", env.EventID, "type", env.Event.Type)
		return nil
	default:
		p.dropped.Add(1)
		p.log.Error("envelope dropped, queue full", "event_id", env.EventID, "type", env.Event.Type)
		return nil
	}
}

// Close stops accepting envelopes, waits for in-flight publishes to drain,
// and closes the downstream publisher.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
		p.closeErr = p.next.Close()
	})
	return p.closeErr
}

// Published reports how many envelopes have been delivered downstream.
func (p *Publisher) Published() uint64 {
	return p.published.Load()
}

// Dropped reports how many envelopes were discarded because the queue was
// full.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Failed reports how many envelopes the downstream publisher rejected.
func (p *Publisher) Failed() uint64 {
	return p.failed.Load()
}

// worker is the inner worker goroutine that continuously pulls envelopes off
// the queue until it is closed.
func (p *Publisher) worker(id uint) {
	defer p.wg.Done()
	p.log.Debug("publish worker started", "worker_id", id)

	for env := range p.queue {
		if err := p.next.Publish(context.Background(), env); err != nil {
			p.failed.Add(1)
			p.log.Error("async publish failed", "event_id", env.EventID, "error", err)
			continue
		}
		p.published.Add(1)
	}

	p.log.Debug("publish worker stopped", "worker_id", id)
}
