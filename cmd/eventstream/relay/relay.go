// Package relaycmder provides the relay command for forwarding stream
// events to Kafka.
package relaycmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpopesculian/eventstream-parser/pkg/client"
	"github.com/jpopesculian/eventstream-parser/pkg/config"
	"github.com/jpopesculian/eventstream-parser/pkg/logger"
	"github.com/jpopesculian/eventstream-parser/pkg/publish"
	"github.com/jpopesculian/eventstream-parser/pkg/publish/async"
	"github.com/jpopesculian/eventstream-parser/pkg/publish/kafka"
	"github.com/jpopesculian/eventstream-parser/pkg/publish/nop"
	"github.com/jpopesculian/eventstream-parser/pkg/sse"
)

// relayFlags defines the flags the relay command registers, keyed by the
// shared flag registry constants.
var relayFlags = config.FlagSet{
	config.FlagEndpoint: {
		Name:        "endpoint",
		Shorthand:   "e",
		ViperKey:    "client.endpoint",
		Description: "Stream URL to relay from",
	},
	config.FlagBrokers: {
		Name:        "brokers",
		Shorthand:   "b",
		ViperKey:    "relay.brokers",
		Description: "Comma-separated Kafka broker addresses",
	},
	config.FlagTopic: {
		Name:        "topic",
		Shorthand:   "t",
		ViperKey:    "relay.topic",
		Description: "Kafka topic to publish envelopes to",
	},
	config.FlagSource: {
		Name:        "source",
		ViperKey:    "relay.source",
		Description: "Source label stamped on every envelope (default: hostname)",
	},
}

type relayCommander struct {
	endpoint string
	brokers  string
	topic    string
	source   string

	lastEventID string
	useNop      bool
	workers     uint
	logFile     string
	debug       bool

	logLevel  string
	logFormat string

	log      *slog.Logger
	asyncPub *async.Publisher
}

const relayLongDesc string = `Relay events from a stream to Kafka.

Connects to the configured stream endpoint, parses events as they arrive,
wraps each one in a JSON envelope, and publishes the envelopes to a Kafka
topic. The envelope records the event type, data, ID, and retry hint along
with a relay-assigned UUID, timestamp, and source label.

Connection settings resolve through the standard precedence chain: CLI
flags override EVENTSTREAM_* environment variables, which override
config.toml values, which override built-in defaults.

Examples:
  eventstream relay --endpoint https://api.example.com/stream
  eventstream relay -b broker1:9092,broker2:9092 -t payments
  eventstream relay --workers 4 --endpoint https://api.example.com/stream
  EVENTSTREAM_RELAY_TOPIC=audit eventstream relay
  eventstream relay --nop --debug`

const relayShortDesc string = "Relay stream events to Kafka"

func NewRelayCmd() *cobra.Command {
	cmder := &relayCommander{}

	cmd := &cobra.Command{
		Use:   "relay",
		Short: relayShortDesc,
		Long:  relayLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, relayFlags, []string{
				config.FlagEndpoint,
				config.FlagBrokers,
				config.FlagTopic,
				config.FlagSource,
			})

			cmder.endpoint = v.GetString("client.endpoint")
			cmder.brokers = v.GetString("relay.brokers")
			cmder.topic = v.GetString("relay.topic")
			cmder.source = v.GetString("relay.source")
			cmder.logLevel = v.GetString("log.level")
			cmder.logFormat = v.GetString("log.format")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, relayFlags, config.FlagEndpoint, &cmder.endpoint)
	config.AddStringFlag(cmd, relayFlags, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, relayFlags, config.FlagTopic, &cmder.topic)
	config.AddStringFlag(cmd, relayFlags, config.FlagSource, &cmder.source)
	cmd.Flags().StringVar(&cmder.lastEventID, "last-event-id", "", "Resume from this event ID (sent as Last-Event-ID)")
	cmd.Flags().BoolVar(&cmder.useNop, "nop", false, "Validate and drop envelopes instead of publishing to Kafka")
	cmd.Flags().UintVar(&cmder.workers, "workers", 0, "Publish from this many background workers; 0 publishes inline (ordered)")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *relayCommander) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, closeLog, err := c.newLogger()
	if err != nil {
		return err
	}
	defer closeLog()
	c.log = log

	if c.endpoint == "" {
		return errors.New("no endpoint configured (set one with: eventstream config set client.endpoint <url>)")
	}

	source := c.source
	if source == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		source = hostname
	}

	pub, err := c.newPublisher()
	if err != nil {
		return err
	}

	opts := []client.Option{}
	if c.lastEventID != "" {
		opts = append(opts, client.WithLastEventID(c.lastEventID))
	}

	body, err := client.Connect(ctx, c.endpoint, opts...)
	if err != nil {
		pub.Close()
		return fmt.Errorf("connecting to %s: %w", c.endpoint, err)
	}
	defer body.Close()

	stream := sse.NewStream(body)
	if c.lastEventID != "" {
		stream.SetLastEventID(c.lastEventID)
	}

	c.log.Info("relaying stream",
		"endpoint", c.endpoint,
		"topic", c.topic,
		"source", source,
	)

	relayed, streamErr := c.forward(ctx, stream, pub, source)

	// Close drains queued envelopes, so counters are final afterwards.
	closeErr := pub.Close()
	if streamErr != nil {
		return streamErr
	}

	attrs := []any{"events", relayed, "last_event_id", stream.LastEventID()}
	if c.asyncPub != nil {
		attrs = append(attrs,
			"published", c.asyncPub.Published(),
			"dropped", c.asyncPub.Dropped(),
			"failed", c.asyncPub.Failed(),
		)
	}

	if ctx.Err() != nil {
		c.log.Info("relay stopped", attrs...)
	} else {
		c.log.Info("stream ended", attrs...)
	}

	return closeErr
}

// forward pumps events from the stream into the publisher until the stream
// reaches a terminal condition. Interruption via the context is a clean stop,
// not an error.
func (c *relayCommander) forward(ctx context.Context, stream *sse.Stream, pub publish.Publisher, source string) (int, error) {
	var relayed int
	for {
		event, err := stream.Next()
		if err != nil {
			if ctx.Err() != nil {
				return relayed, nil
			}
			return relayed, fmt.Errorf("reading stream: %w", err)
		}
		if event == nil {
			return relayed, nil
		}

		env := publish.NewEnvelope(source, event)
		if err := pub.Publish(ctx, env); err != nil {
			return relayed, fmt.Errorf("publishing event: %w", err)
		}

		relayed++
		c.log.Debug("relayed event", "type", event.Type, "id", event.ID, "bytes", len(event.Data))
	}
}

func (c *relayCommander) newPublisher() (publish.Publisher, error) {
	var base publish.Publisher
	if c.useNop {
		c.log.Info("using nop publisher; envelopes are validated and dropped")
		base = nop.NewPublisher()
	} else {
		brokers := config.SplitBrokers(c.brokers)
		if len(brokers) == 0 {
			return nil, errors.New("no Kafka brokers configured")
		}
		c.log.Info("using kafka publisher", "brokers", brokers, "topic", c.topic)
		base = kafka.NewPublisher(brokers, c.topic)
	}

	if c.workers == 0 {
		return base, nil
	}

	c.log.Info("publishing asynchronously", "workers", c.workers)
	ap, err := async.NewPublisher(&async.Config{
		Next:       base,
		NumWorkers: c.workers,
		Logger:     c.log,
	})
	if err != nil {
		return nil, err
	}
	c.asyncPub = ap

	return ap, nil
}

// newLogger builds the relay's logger. With --log-file set, log records fan
// out to both the console handler and a JSON handler appending to the file.
func (c *relayCommander) newLogger() (*slog.Logger, func(), error) {
	opts := []logger.Option{
		logger.WithLevel(c.logLevel),
		logger.WithJSON(c.logFormat == "json"),
		logger.WithPretty(c.logFormat == "pretty"),
		logger.WithWriter(os.Stderr),
	}
	if c.debug {
		opts = append(opts, logger.WithDebug(true))
	}
	log := logger.New(opts...)

	if c.logFile == "" {
		return log, func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	fileOpts := []logger.Option{
		logger.WithLevel(c.logLevel),
		logger.WithJSON(true),
		logger.WithWriter(f),
	}
	if c.debug {
		fileOpts = append(fileOpts, logger.WithDebug(true))
	}

	return logger.Multi(log, logger.New(fileOpts...)), func() { _ = f.Close() }, nil
}
