package hub

import "time"

// Inbound commands.
const (
	CmdSubscribeOptions   = "subscribe_options"
	CmdSubscribeEquities  = "subscribe_equities"
	CmdUnsubscribeOptions = "unsubscribe_options"
	CmdGetStatus          = "get_status"
	CmdPing               = "ping"
)

// command is one inbound consumer message.
type command struct {
	Command string   `json:"command"`
	Symbols []string `json:"symbols,omitempty"`
}

// envelope wraps every broadcast message.
type envelope struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// statusMessage answers get_status, sent only to the requesting consumer.
type statusMessage struct {
	Type      string   `json:"type"` // "status"
	Connected bool     `json:"connected"`
	Options   []string `json:"subscribed_options"`
	Equities  []string `json:"subscribed_equities"`
}

// pongMessage answers ping.
type pongMessage struct {
	Type string `json:"type"` // "pong"
}

// heartbeatData is the periodic heartbeat payload.
type heartbeatData struct {
	SubscribedOptions  int `json:"subscribed_options"`
	SubscribedEquities int `json:"subscribed_equities"`
	Clients            int `json:"clients"`
}

// Config holds hub settings.
type Config struct {
	Host              string        // listen host (default: localhost)
	Port              int           // listen port (default: 8889)
	HeartbeatInterval time.Duration // default: 60s
	WriteTimeout      time.Duration // per-consumer send deadline (default: 5s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:              "localhost",
		Port:              8889,
		HeartbeatInterval: 60 * time.Second,
		WriteTimeout:      5 * time.Second,
	}
}
