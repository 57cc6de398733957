package session

import (
	"context"

	"github.com/wheelhouse/quote-relay/internal/schwab"
)

// State is the supervisor's connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticated
	StateStreaming
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateStreaming:
		return "streaming"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one normalized upstream event bound for the broadcast hub.
type Event struct {
	Type string // "option_quote", "equity_quote", "account_activity"
	Data any
}

// Event types emitted by the supervisor.
const (
	EventOptionQuote     = "option_quote"
	EventEquityQuote     = "equity_quote"
	EventAccountActivity = "account_activity"
)

// Connector produces an authenticated upstream client. Connect is called
// once per reconnect cycle.
type Connector interface {
	Connect(ctx context.Context) (Client, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (Client, error)

func (f ConnectorFunc) Connect(ctx context.Context) (Client, error) {
	return f(ctx)
}

// Client is an authenticated upstream handle.
type Client interface {
	AccountNumbers(ctx context.Context) ([]schwab.Account, error)
	OpenStream(ctx context.Context, accountID string) (Stream, error)
}

// Stream is one live streamer session as the supervisor drives it. It is
// a superset of subscription.Session so the same handle serves both.
type Stream interface {
	Login(ctx context.Context) error
	Bind(service string, h schwab.Handler)
	HandleMessage(ctx context.Context) error
	Subscribe(ctx context.Context, service string, symbols []string, mode schwab.SubscribeMode) error
	Unsubscribe(ctx context.Context, service string, symbols []string) error
	Close() error
}

// NewConnector adapts the concrete REST client: Connect authenticates
// (loading or refreshing the cached token) and wraps the client.
func NewConnector(client *schwab.Client) Connector {
	return ConnectorFunc(func(ctx context.Context) (Client, error) {
		if err := client.Authenticate(ctx); err != nil {
			return nil, err
		}
		return schwabClient{client}, nil
	})
}

// schwabClient narrows *schwab.Client to the Client interface.
type schwabClient struct {
	c *schwab.Client
}

func (a schwabClient) AccountNumbers(ctx context.Context) ([]schwab.Account, error) {
	return a.c.AccountNumbers(ctx)
}

func (a schwabClient) OpenStream(ctx context.Context, accountID string) (Stream, error) {
	return a.c.OpenStream(ctx, accountID)
}
