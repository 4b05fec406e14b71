// Package eventstreamcmder
package eventstreamcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/jpopesculian/eventstream-parser/cmd/eventstream/config"
	relaycmder "github.com/jpopesculian/eventstream-parser/cmd/eventstream/relay"
	tailcmder "github.com/jpopesculian/eventstream-parser/cmd/eventstream/tail"
	watchcmder "github.com/jpopesculian/eventstream-parser/cmd/eventstream/watch"
	versioncmder "github.com/jpopesculian/eventstream-parser/cmd/version"
)

const eventstreamLongDesc string = `Eventstream parses server-sent event streams from any byte source.

Events are decoded incrementally, so streams split at arbitrary chunk
boundaries (including mid-rune and mid-line) parse identically to streams
delivered in one piece.

Read streams using:
  eventstream tail     Print events from a URL, file, or stdin
  eventstream watch    Follow a stream in an interactive terminal UI
  eventstream relay    Forward events from a stream to Kafka`

const eventstreamShortDesc string = "Eventstream - SSE stream toolkit"

func NewEventstreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventstream",
		Short: eventstreamShortDesc,
		Long:  eventstreamLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory containing the .eventstream config dir (default: auto-discover)")

	// Add subcommands
	cmd.AddCommand(tailcmder.NewTailCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(relaycmder.NewRelayCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
