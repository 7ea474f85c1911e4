package app

import "time"

// Config collects runtime settings for the monitor.
type Config struct {
	// SchemaPath is a .dbc or .xlsx schema.
	SchemaPath string

	// EByteAddress is the adapter's host:port. Ignored when ReplayPath is
	// set.
	EByteAddress   string
	ReconnectDelay time.Duration

	// ReplayPath is an SLCAN log replayed instead of a live adapter;
	// ReplayInterval spaces the frames out, zero replays at full speed.
	ReplayPath     string
	ReplayInterval time.Duration

	LogLevel  string
	LogFormat string

	// Output selects how decoded messages are written to stdout: "log"
	// lines or "json" records.
	Output string

	// Filter restricts decoding to these message identifiers. Empty
	// decodes every known message.
	Filter []uint32

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
}

// DefaultConfig returns the settings used when no flags are given.
func DefaultConfig() Config {
	return Config{
		EByteAddress:   "127.0.0.1:4001",
		ReconnectDelay: 2 * time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
		Output:         "log",
		MQTTTopic:      "canview",
		MQTTClientID:   "canview",
	}
}
