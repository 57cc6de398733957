package hub

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wheelhouse/quote-relay/internal/schwab"
	"github.com/wheelhouse/quote-relay/internal/subscription"
)

// upstreamStub satisfies subscription.Session without a live connection.
type upstreamStub struct{}

func (upstreamStub) Subscribe(ctx context.Context, service string, symbols []string, mode schwab.SubscribeMode) error {
	return nil
}

func (upstreamStub) Unsubscribe(ctx context.Context, service string, symbols []string) error {
	return nil
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	subs := subscription.NewManager(nil)
	subs.Attach(upstreamStub{})

	cfg := DefaultConfig()
	cfg.HeartbeatInterval = time.Hour // keep heartbeats out of test reads

	h := New(cfg, subs, nil)
	h.ctx, h.cancel = context.WithCancel(context.Background())
	t.Cleanup(h.cancel)

	srv := httptest.NewServer(h.Handler())
	t.Cleanup(srv.Close)

	return h, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return msg
}

func waitForConsumers(t *testing.T, h *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ConsumerCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("consumer count = %d, want %d", h.ConsumerCount(), want)
}

func TestPingPong(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv)

	send(t, conn, command{Command: CmdPing})

	msg := readJSON(t, conn)
	if msg["type"] != "pong" {
		t.Errorf("type = %v, want pong", msg["type"])
	}
}

func TestStatusGoesToRequesterOnly(t *testing.T) {
	h, srv := newTestHub(t)

	asker := dial(t, srv)
	bystander := dial(t, srv)
	waitForConsumers(t, h, 2)

	send(t, asker, command{Command: CmdSubscribeOptions, Symbols: []string{"AAPL  260221C00200000"}})
	send(t, asker, command{Command: CmdGetStatus})

	msg := readJSON(t, asker)
	if msg["type"] != "status" {
		t.Fatalf("type = %v, want status", msg["type"])
	}
	if msg["connected"] != true {
		t.Errorf("connected = %v, want true", msg["connected"])
	}
	opts, ok := msg["subscribed_options"].([]any)
	if !ok || len(opts) != 1 {
		t.Errorf("subscribed_options = %v, want one symbol", msg["subscribed_options"])
	}

	// The bystander must not see the status reply. A ping round-trip
	// proves nothing else arrived first on its ordered connection.
	send(t, bystander, command{Command: CmdPing})
	if got := readJSON(t, bystander); got["type"] != "pong" {
		t.Errorf("bystander received %v before pong", got["type"])
	}
}

func TestBroadcastReachesAllConsumers(t *testing.T) {
	h, srv := newTestHub(t)

	first := dial(t, srv)
	second := dial(t, srv)
	third := dial(t, srv)
	waitForConsumers(t, h, 3)

	h.Broadcast("option_quote", map[string]any{"symbol": "SPY   260320P00590000"})

	for i, conn := range []*websocket.Conn{first, second, third} {
		msg := readJSON(t, conn)
		if msg["type"] != "option_quote" {
			t.Errorf("consumer %d: type = %v, want option_quote", i, msg["type"])
		}
		if _, err := time.Parse(time.RFC3339Nano, msg["timestamp"].(string)); err != nil {
			t.Errorf("consumer %d: bad timestamp %v: %v", i, msg["timestamp"], err)
		}
	}
}

func TestBroadcastSurvivesDeadConsumer(t *testing.T) {
	h, srv := newTestHub(t)

	healthy := dial(t, srv)
	dead := dial(t, srv)
	waitForConsumers(t, h, 2)

	dead.Close()

	// The closed socket may take a write or two to surface the failure.
	deadline := time.Now().Add(2 * time.Second)
	for h.ConsumerCount() == 2 && time.Now().Before(deadline) {
		h.Broadcast("equity_quote", map[string]any{"symbol": "SPY"})
		time.Sleep(20 * time.Millisecond)
	}
	if got := h.ConsumerCount(); got != 1 {
		t.Fatalf("consumer count after dead peer = %d, want 1", got)
	}

	h.Broadcast("equity_quote", map[string]any{"symbol": "QQQ"})

	// The healthy consumer sees every broadcast, ending with the last one.
	var last map[string]any
	for {
		msg := readJSON(t, healthy)
		if msg["type"] != "equity_quote" {
			t.Fatalf("type = %v, want equity_quote", msg["type"])
		}
		data := msg["data"].(map[string]any)
		last = msg
		if data["symbol"] == "QQQ" {
			break
		}
	}
	if last == nil {
		t.Fatal("final broadcast never arrived")
	}
}

func TestUnknownCommandIgnored(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv)

	send(t, conn, command{Command: "rewind_tape"})
	send(t, conn, command{Command: CmdPing})

	// Still connected, still responsive, no error frame for the unknown command.
	if msg := readJSON(t, conn); msg["type"] != "pong" {
		t.Errorf("type = %v, want pong", msg["type"])
	}
}

func TestMalformedJSONIgnored(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	send(t, conn, command{Command: CmdPing})

	if msg := readJSON(t, conn); msg["type"] != "pong" {
		t.Errorf("type = %v, want pong", msg["type"])
	}
}

func TestUnsubscribeRoundTrip(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv)

	symbols := []string{"AAPL  260221C00200000", "AAPL  260221P00195000"}
	send(t, conn, command{Command: CmdSubscribeOptions, Symbols: symbols})
	send(t, conn, command{Command: CmdUnsubscribeOptions, Symbols: symbols[:1]})
	send(t, conn, command{Command: CmdGetStatus})

	msg := readJSON(t, conn)
	opts, _ := msg["subscribed_options"].([]any)
	if len(opts) != 1 || opts[0] != symbols[1] {
		t.Errorf("subscribed_options = %v, want [%s]", opts, symbols[1])
	}
}

func TestHeartbeatPayload(t *testing.T) {
	h, srv := newTestHub(t)

	conn := dial(t, srv)
	waitForConsumers(t, h, 1)

	send(t, conn, command{Command: CmdSubscribeEquities, Symbols: []string{"SPY", "QQQ"}})
	send(t, conn, command{Command: CmdPing})
	if msg := readJSON(t, conn); msg["type"] != "pong" {
		t.Fatalf("type = %v, want pong", msg["type"])
	}

	// Drive one heartbeat by hand rather than waiting on the ticker.
	status := h.subs.Status()
	h.Broadcast("heartbeat", heartbeatData{
		SubscribedOptions:  len(status.Options),
		SubscribedEquities: len(status.Equities),
		Clients:            h.ConsumerCount(),
	})

	msg := readJSON(t, conn)
	if msg["type"] != "heartbeat" {
		t.Fatalf("type = %v, want heartbeat", msg["type"])
	}
	data := msg["data"].(map[string]any)
	if data["subscribed_equities"] != float64(2) {
		t.Errorf("subscribed_equities = %v, want 2", data["subscribed_equities"])
	}
	if data["clients"] != float64(1) {
		t.Errorf("clients = %v, want 1", data["clients"])
	}
}
