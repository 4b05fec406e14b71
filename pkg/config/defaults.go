package config

const (
	defaultBrokers = "localhost:9092"
	defaultTopic   = "events"

	defaultLogLevel  = "info"
	defaultLogFormat = "text"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Relay: RelayConfig{
			Brokers: defaultBrokers,
			Topic:   defaultTopic,
		},
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
