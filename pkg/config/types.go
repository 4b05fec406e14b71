package config

import (
	"fmt"
	"strings"
)

// Config represents the persistent eventstream configuration stored as
// config.toml in the .eventstream/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Client  ClientConfig `toml:"client"`
	Relay   RelayConfig  `toml:"relay"`
	Log     LogConfig    `toml:"log"`
}

// ClientConfig holds settings for commands that consume a remote stream
// (eventstream tail, eventstream watch, eventstream relay).
type ClientConfig struct {
	// Endpoint is the SSE URL used when a command is not given a source
	// argument explicitly.
	Endpoint string `toml:"endpoint,omitempty"`
}

// RelayConfig holds settings for the relay command's Kafka publisher.
type RelayConfig struct {
	// Brokers is a comma-separated list of Kafka bootstrap addresses.
	Brokers string `toml:"brokers,omitempty"`

	// Topic is the Kafka topic envelopes are published to.
	Topic string `toml:"topic,omitempty"`

	// Source tags published envelopes with their origin; when empty the
	// relay falls back to the hostname at startup.
	Source string `toml:"source,omitempty"`
}

// LogConfig holds logging defaults applied when no flag overrides them.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level,omitempty"`

	// Format is one of text, pretty, json.
	Format string `toml:"format,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.endpoint": {
		get: func(c *Config) string { return c.Client.Endpoint },
		set: func(c *Config, v string) error { c.Client.Endpoint = v; return nil },
	},
	"relay.brokers": {
		get: func(c *Config) string { return c.Relay.Brokers },
		set: func(c *Config, v string) error { c.Relay.Brokers = v; return nil },
	},
	"relay.topic": {
		get: func(c *Config) string { return c.Relay.Topic },
		set: func(c *Config, v string) error { c.Relay.Topic = v; return nil },
	},
	"relay.source": {
		get: func(c *Config) string { return c.Relay.Source },
		set: func(c *Config, v string) error { c.Relay.Source = v; return nil },
	},
	"log.level": {
		get: func(c *Config) string { return c.Log.Level },
		set: func(c *Config, v string) error {
			switch lv := strings.ToLower(v); lv {
			case "debug", "info", "warn", "error":
				c.Log.Level = lv
				return nil
			default:
				return fmt.Errorf("invalid value for log.level: %q (expected debug, info, warn or error)", v)
			}
		},
	},
	"log.format": {
		get: func(c *Config) string { return c.Log.Format },
		set: func(c *Config, v string) error {
			switch lf := strings.ToLower(v); lf {
			case "text", "pretty", "json":
				c.Log.Format = lf
				return nil
			default:
				return fmt.Errorf("invalid value for log.format: %q (expected text, pretty or json)", v)
			}
		},
	},
}

// SplitBrokers turns the comma-separated brokers value into a list of
// addresses, dropping empty entries and surrounding whitespace.
func SplitBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
