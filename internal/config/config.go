package config

import "time"

// RelayConfig is the root configuration for a relay instance.
type RelayConfig struct {
	Schwab SchwabConfig `yaml:"schwab"`
	Server ServerConfig `yaml:"server"`
	Stream StreamConfig `yaml:"stream"`
}

// SchwabConfig holds upstream API credentials and token storage.
type SchwabConfig struct {
	AppKey      string        `yaml:"app_key"`
	AppSecret   string        `yaml:"app_secret"`
	CallbackURL string        `yaml:"callback_url"`
	TokenPath   string        `yaml:"token_path"` // cached OAuth token file
	Timeout     time.Duration `yaml:"timeout"`
}

// ServerConfig holds the downstream WebSocket server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StreamConfig holds session supervision and broadcast settings.
type StreamConfig struct {
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	EventBuffer       int           `yaml:"event_buffer"`
}
