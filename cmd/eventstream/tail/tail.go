// Package tailcmder provides the tail command for printing stream events.
package tailcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jpopesculian/eventstream-parser/pkg/client"
	"github.com/jpopesculian/eventstream-parser/pkg/cliui"
	"github.com/jpopesculian/eventstream-parser/pkg/config"
	"github.com/jpopesculian/eventstream-parser/pkg/follow"
	"github.com/jpopesculian/eventstream-parser/pkg/logger"
	"github.com/jpopesculian/eventstream-parser/pkg/sse"
)

type tailCommander struct {
	source      string
	lastEventID string
	headers     []string
	followFile  bool
	fromEnd     bool
	plain       bool
	debug       bool

	logLevel  string
	logFormat string

	log *slog.Logger
	out io.Writer
}

const tailLongDesc string = `Print events from a server-sent event stream.

The source may be an HTTP(S) URL, a file path, or "-" for stdin. When no
source is given, the configured client.endpoint is used. Events are printed
as they arrive; the stream is decoded incrementally, so it behaves the same
no matter how the transport chunks the bytes.

With --follow the source is treated as a growing file (for example a log
an SSE proxy is appending to) and tail keeps reading as data is written.

Examples:
  eventstream tail https://api.example.com/stream
  eventstream tail --last-event-id 42 https://api.example.com/stream
  eventstream tail --follow --from-end ./captured.stream
  curl -sN https://api.example.com/stream | eventstream tail -
  eventstream tail --plain - < recorded.stream | jq .`

const tailShortDesc string = "Print events from a stream"

func NewTailCmd() *cobra.Command {
	cmder := &tailCommander{}

	cmd := &cobra.Command{
		Use:   "tail [source]",
		Short: tailShortDesc,
		Long:  tailLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if len(args) > 0 {
				cmder.source = args[0]
			} else {
				cmder.source = cfg.Client.Endpoint
			}
			if !cmd.Flags().Changed("log-level") {
				cmder.logLevel = cfg.Log.Level
			}
			if !cmd.Flags().Changed("log-format") {
				cmder.logFormat = cfg.Log.Format
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(&cmder.lastEventID, "last-event-id", "", "Resume from this event ID (sent as Last-Event-ID for HTTP sources)")
	cmd.Flags().StringArrayVarP(&cmder.headers, "header", "H", nil, "Extra request header for HTTP sources (\"Key: Value\", repeatable)")
	cmd.Flags().BoolVarP(&cmder.followFile, "follow", "f", false, "Keep reading the source file as it grows")
	cmd.Flags().BoolVar(&cmder.fromEnd, "from-end", false, "With --follow, start at the end of the file")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print only event data payloads, unstyled")
	cmd.Flags().StringVar(&cmder.logLevel, "log-level", defaults.Log.Level, "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&cmder.logFormat, "log-format", defaults.Log.Format, "Log format (text, pretty, json)")

	return cmd
}

func (c *tailCommander) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.log = c.newLogger()

	if c.source == "" {
		return errors.New("no source given and client.endpoint is not configured (set one with: eventstream config set client.endpoint <url>)")
	}

	src, err := c.openSource(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	stream := sse.NewStream(src)
	if c.lastEventID != "" {
		stream.SetLastEventID(c.lastEventID)
	}

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))

	for {
		event, err := stream.Next()
		if err != nil {
			if ctx.Err() != nil {
				c.log.Debug("stream interrupted", "last_event_id", stream.LastEventID())
				return nil
			}
			return fmt.Errorf("reading stream: %w", err)
		}
		if event == nil {
			c.log.Debug("stream ended", "last_event_id", stream.LastEventID())
			return nil
		}

		c.printEvent(event, isTTY)
	}
}

func (c *tailCommander) openSource(ctx context.Context) (io.ReadCloser, error) {
	switch {
	case c.source == "-":
		c.log.Debug("reading stream from stdin")
		return io.NopCloser(os.Stdin), nil

	case strings.HasPrefix(c.source, "http://"), strings.HasPrefix(c.source, "https://"):
		c.log.Debug("connecting to stream", "endpoint", c.source)
		opts := []client.Option{}
		if c.lastEventID != "" {
			opts = append(opts, client.WithLastEventID(c.lastEventID))
		}
		for _, h := range c.headers {
			key, value, ok := strings.Cut(h, ":")
			if !ok {
				return nil, fmt.Errorf("malformed header %q (expected \"Key: Value\")", h)
			}
			opts = append(opts, client.WithHeader(strings.TrimSpace(key), strings.TrimSpace(value)))
		}
		return client.Connect(ctx, c.source, opts...)

	case c.followFile:
		c.log.Debug("following file", "path", c.source)
		opts := []follow.Option{}
		if c.fromEnd {
			opts = append(opts, follow.FromEnd())
		}
		return follow.Open(ctx, c.source, opts...)

	default:
		c.log.Debug("reading file", "path", c.source)
		return os.Open(c.source)
	}
}

func (c *tailCommander) printEvent(event *sse.Event, isTTY bool) {
	if c.plain {
		fmt.Fprintln(c.out, event.Data)
		return
	}

	rendered := cliui.RenderEvent(time.Now(), event)
	if !isTTY {
		rendered = ansi.Strip(rendered)
	}
	fmt.Fprint(c.out, rendered)
}

func (c *tailCommander) newLogger() *slog.Logger {
	opts := []logger.Option{
		logger.WithLevel(c.logLevel),
		logger.WithJSON(c.logFormat == "json"),
		logger.WithPretty(c.logFormat == "pretty"),
		logger.WithWriter(os.Stderr),
	}
	if c.debug {
		opts = append(opts, logger.WithDebug(true))
	}
	return logger.New(opts...)
}
