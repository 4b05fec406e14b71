// Package configcmder provides the config command for managing persistent
// eventstream configuration stored in the .eventstream/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent eventstream configuration.

Configuration is stored as config.toml in the .eventstream/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  client.endpoint,
  relay.brokers, relay.topic, relay.source,
  log.level, log.format

Use subcommands to get, set, or list configuration values:
  eventstream config set <key> <value>    Set a configuration value
  eventstream config get <key>            Get a configuration value
  eventstream config list                 List all configuration values

Examples:
  eventstream config set client.endpoint https://api.example.com/stream
  eventstream config set relay.brokers broker1:9092,broker2:9092
  eventstream config get relay.topic
  eventstream config list`

const configShortDesc string = "Manage persistent eventstream configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
