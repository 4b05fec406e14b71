// Package watchcmder provides the watch command for following a stream in
// an interactive terminal UI.
package watchcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpopesculian/eventstream-parser/pkg/client"
	"github.com/jpopesculian/eventstream-parser/pkg/config"
	"github.com/jpopesculian/eventstream-parser/pkg/follow"
	"github.com/jpopesculian/eventstream-parser/pkg/sse"
)

const watchLongDesc string = `Follow a stream in an interactive terminal UI.

Shows events as they arrive, with per-type counts and a detail pane for the
selected event. The source may be an HTTP(S) URL or a file path; when no
source is given, the configured client.endpoint is used. Reading from stdin
is not supported because the UI needs the terminal.

Keys:
  j/k    move the cursor         enter  inspect an event
  t      cycle the type filter   f      toggle follow mode
  c      clear captured events   q      quit

Examples:
  eventstream watch
  eventstream watch https://api.example.com/stream
  eventstream watch --follow ./captured.stream
  eventstream watch --last-event-id 42 https://api.example.com/stream`

const watchShortDesc string = "Follow a stream in a terminal UI"

type watchCommander struct {
	source      string
	lastEventID string
	followFile  bool
	fromEnd     bool
}

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch [source]",
		Short: watchShortDesc,
		Long:  watchLongDesc,
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
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.lastEventID, "last-event-id", "", "Resume from this event ID (sent as Last-Event-ID for HTTP sources)")
	cmd.Flags().BoolVarP(&cmder.followFile, "follow", "f", false, "Keep reading the source file as it grows")
	cmd.Flags().BoolVar(&cmder.fromEnd, "from-end", false, "With --follow, start at the end of the file")

	return cmd
}

// streamItem carries one parsed event, or the stream's terminal error, from
// the reader goroutine into the TUI.
type streamItem struct {
	at    time.Time
	event *sse.Event
	err   error
}

func (c *watchCommander) run(ctx context.Context) error {
	if c.source == "" {
		return errors.New("no source given and client.endpoint is not configured (set one with: eventstream config set client.endpoint <url>)")
	}
	if c.source == "-" {
		return errors.New("watch cannot read from stdin; the terminal UI needs it (use \"eventstream tail -\" instead)")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	src, err := c.openSource(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	stream := sse.NewStream(src)
	if c.lastEventID != "" {
		stream.SetLastEventID(c.lastEventID)
	}

	items := make(chan streamItem, 64)
	go func() {
		defer close(items)
		for {
			event, err := stream.Next()
			if err != nil {
				select {
				case items <- streamItem{err: err}:
				case <-ctx.Done():
				}
				return
			}
			if event == nil {
				return
			}

			select {
			case items <- streamItem{at: time.Now(), event: event}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return runWatchTUI(ctx, c.source, items)
}

func (c *watchCommander) openSource(ctx context.Context) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(c.source, "http://"), strings.HasPrefix(c.source, "https://"):
		opts := []client.Option{}
		if c.lastEventID != "" {
			opts = append(opts, client.WithLastEventID(c.lastEventID))
		}
		return client.Connect(ctx, c.source, opts...)

	case c.followFile:
		opts := []follow.Option{}
		if c.fromEnd {
			opts = append(opts, follow.FromEnd())
		}
		return follow.Open(ctx, c.source, opts...)

	default:
		return os.Open(c.source)
	}
}
