package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultCallbackURL       = "https://127.0.0.1:5556"
	DefaultTokenPath         = "schwab_token.json"
	DefaultAPITimeout        = 30 * time.Second
	DefaultServerHost        = "localhost"
	DefaultServerPort        = 8889
	DefaultReconnectInterval = 30 * time.Second
	DefaultHeartbeatInterval = 60 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultEventBuffer       = 1024
)

func (c *RelayConfig) applyDefaults() {
	// Schwab defaults
	if c.Schwab.CallbackURL == "" {
		c.Schwab.CallbackURL = DefaultCallbackURL
	}
	if c.Schwab.TokenPath == "" {
		c.Schwab.TokenPath = DefaultTokenPath
	}
	if c.Schwab.Timeout == 0 {
		c.Schwab.Timeout = DefaultAPITimeout
	}

	// Server defaults
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}

	// Stream defaults
	if c.Stream.ReconnectInterval == 0 {
		c.Stream.ReconnectInterval = DefaultReconnectInterval
	}
	if c.Stream.HeartbeatInterval == 0 {
		c.Stream.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.EventBuffer == 0 {
		c.Stream.EventBuffer = DefaultEventBuffer
	}
}
