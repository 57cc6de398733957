package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wheelhouse/quote-relay/internal/subscription"
)

// Hub owns the set of connected downstream consumers.
type Hub struct {
	cfg    Config
	subs   *subscription.Manager
	logger *slog.Logger

	upgrader websocket.Upgrader
	server   *http.Server

	mu        sync.Mutex
	consumers map[uuid.UUID]*consumer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// consumer is one live downstream connection.
type consumer struct {
	id      uuid.UUID
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// New creates a Hub backed by the given subscription manager.
func New(cfg Config, subs *subscription.Manager, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = DefaultConfig().HeartbeatInterval
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}

	return &Hub{
		cfg:    cfg,
		subs:   subs,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		consumers: make(map[uuid.UUID]*consumer),
	}
}

// Handler returns the WebSocket upgrade handler (exposed for tests).
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(h.handleWS)
}

// Start binds the listener and begins serving consumers and heartbeats.
// A bind failure is the one fatal startup error: the caller aborts.
func (h *Hub) Start(ctx context.Context) error {
	h.ctx, h.cancel = context.WithCancel(ctx)

	addr := fmt.Sprintf("%s:%d", h.cfg.Host, h.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	h.server = &http.Server{Handler: h.Handler()}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.server.Serve(listener); err != http.ErrServerClosed {
			h.logger.Error("hub server error", "error", err)
		}
	}()

	h.wg.Add(1)
	go h.heartbeatLoop()

	h.logger.Info("broadcast hub listening", "addr", addr)
	return nil
}

// Stop closes the listener and every consumer connection.
func (h *Hub) Stop(ctx context.Context) error {
	if h.cancel != nil {
		h.cancel()
	}
	if h.server != nil {
		h.server.Shutdown(ctx)
	}

	h.mu.Lock()
	for id, c := range h.consumers {
		c.conn.Close()
		delete(h.consumers, id)
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("broadcast hub stopped")
		return nil
	case <-ctx.Done():
		h.logger.Warn("broadcast hub stop timed out")
		return ctx.Err()
	}
}

// ConsumerCount returns the number of connected consumers.
func (h *Hub) ConsumerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.consumers)
}

// Broadcast wraps data in the {type, timestamp, data} envelope and sends
// it to every connected consumer. A consumer whose send fails is removed;
// the rest of the fan-out proceeds.
func (h *Hub) Broadcast(eventType string, data any) {
	payload, err := json.Marshal(envelope{
		Type:      eventType,
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Data:      data,
	})
	if err != nil {
		h.logger.Error("marshal broadcast", "type", eventType, "error", err)
		return
	}

	h.mu.Lock()
	targets := make([]*consumer, 0, len(h.consumers))
	for _, c := range h.consumers {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.send(payload, h.cfg.WriteTimeout); err != nil {
			h.logger.Warn("consumer send failed, dropping",
				"consumer", c.id,
				"error", err,
			)
			h.remove(c)
		}
	}
}

// handleWS upgrades one consumer connection and processes its commands
// until it disconnects.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &consumer{id: uuid.New(), conn: conn}

	h.mu.Lock()
	h.consumers[c.id] = c
	total := len(h.consumers)
	h.mu.Unlock()

	h.logger.Info("consumer connected", "consumer", c.id, "total", total)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		h.dispatch(c, data)
	}

	h.remove(c)
	h.logger.Info("consumer disconnected", "consumer", c.id, "remaining", h.ConsumerCount())
}

// dispatch handles one inbound command. Malformed or unknown commands are
// logged and ignored; no response goes back.
func (h *Hub) dispatch(c *consumer, data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		h.logger.Warn("invalid command json", "consumer", c.id, "error", err)
		return
	}

	switch cmd.Command {
	case CmdSubscribeOptions:
		if err := h.subs.RequestOptions(h.ctx, cmd.Symbols); err != nil {
			h.logger.Warn("subscribe options failed", "symbols", cmd.Symbols, "error", err)
		}

	case CmdSubscribeEquities:
		if err := h.subs.RequestEquities(h.ctx, cmd.Symbols); err != nil {
			h.logger.Warn("subscribe equities failed", "symbols", cmd.Symbols, "error", err)
		}

	case CmdUnsubscribeOptions:
		if err := h.subs.ReleaseOptions(h.ctx, cmd.Symbols); err != nil {
			h.logger.Warn("unsubscribe options failed", "symbols", cmd.Symbols, "error", err)
		}

	case CmdGetStatus:
		status := h.subs.Status()
		h.reply(c, statusMessage{
			Type:      "status",
			Connected: status.Connected,
			Options:   status.Options,
			Equities:  status.Equities,
		})

	case CmdPing:
		h.reply(c, pongMessage{Type: "pong"})

	default:
		h.logger.Warn("unknown command", "consumer", c.id, "command", cmd.Command)
	}
}

// reply sends a message to a single consumer.
func (h *Hub) reply(c *consumer, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("marshal reply", "error", err)
		return
	}
	if err := c.send(payload, h.cfg.WriteTimeout); err != nil {
		h.logger.Warn("reply failed", "consumer", c.id, "error", err)
		h.remove(c)
	}
}

// remove drops a consumer from the active set and closes its connection.
func (h *Hub) remove(c *consumer) {
	h.mu.Lock()
	_, present := h.consumers[c.id]
	delete(h.consumers, c.id)
	h.mu.Unlock()

	if present {
		c.conn.Close()
	}
}

// heartbeatLoop broadcasts subscription and consumer counts periodically.
func (h *Hub) heartbeatLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			status := h.subs.Status()
			h.Broadcast("heartbeat", heartbeatData{
				SubscribedOptions:  len(status.Options),
				SubscribedEquities: len(status.Equities),
				Clients:            h.ConsumerCount(),
			})
		}
	}
}

// send writes one frame with the write deadline applied. Writes are
// serialized per consumer: broadcasts, replies, and heartbeats may race.
func (c *consumer) send(payload []byte, timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}
