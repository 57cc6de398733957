package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *RelayConfig) Validate() error {
	if c.Schwab.AppKey == "" {
		return errors.New("schwab.app_key is required")
	}
	if c.Schwab.AppSecret == "" {
		return errors.New("schwab.app_secret is required")
	}
	if c.Schwab.TokenPath == "" {
		return errors.New("schwab.token_path is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Stream.ReconnectInterval <= 0 {
		return errors.New("stream.reconnect_interval must be positive")
	}
	if c.Stream.HeartbeatInterval <= 0 {
		return errors.New("stream.heartbeat_interval must be positive")
	}
	if c.Stream.EventBuffer < 1 {
		return errors.New("stream.event_buffer must be >= 1")
	}

	return nil
}
