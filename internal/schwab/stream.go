package schwab

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
	requestTimeout   = 10 * time.Second
	dataBufferSize   = 4096
)

// Stream is one live streamer WebSocket session. An internal read loop
// (started at dial time) routes command responses to their waiting
// requests and queues data frames; the owner drains the queue by calling
// HandleMessage until it errors.
type Stream struct {
	conn      *websocket.Conn
	info      *StreamerInfo
	accountID string
	token     func() string
	logger    *slog.Logger

	requestID int64 // atomic

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[int64]chan response

	handlersMu sync.RWMutex
	handlers   map[string]Handler

	data chan DataMessage

	errMu   sync.Mutex
	readErr error

	closeOnce sync.Once
	done      chan struct{}
}

// OpenStream fetches the streamer connection info and dials the streamer
// socket for the given account. The caller must Login before subscribing.
func (c *Client) OpenStream(ctx context.Context, accountID string) (*Stream, error) {
	info, err := c.userPreference(ctx)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, info.SocketURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial streamer %s: %w", info.SocketURL, err)
	}

	c.logger.Debug("streamer socket connected", "url", info.SocketURL)

	s := &Stream{
		conn:      conn,
		info:      info,
		accountID: accountID,
		token:     c.accessToken,
		logger:    c.logger,
		pending:   make(map[int64]chan response),
		handlers:  make(map[string]Handler),
		data:      make(chan DataMessage, dataBufferSize),
		done:      make(chan struct{}),
	}
	go s.readLoop()

	return s, nil
}

// Login performs the ADMIN LOGIN exchange. A non-zero response code means
// the streamer rejected the session.
func (s *Stream) Login(ctx context.Context) error {
	resp, err := s.request(ctx, "ADMIN", "LOGIN", map[string]string{
		"Authorization":          s.token(),
		"SchwabClientChannel":    s.info.Channel,
		"SchwabClientFunctionId": s.info.FunctionID,
	})
	if err != nil {
		return err
	}
	if resp.Content.Code != 0 {
		return fmt.Errorf("%w: %s (code %d)", ErrLoginFailed, resp.Content.Msg, resp.Content.Code)
	}

	s.logger.Info("streamer login successful")
	return nil
}

// Bind registers the handler for a service, replacing any previous one.
// Handlers run on the goroutine driving HandleMessage, so per-service
// ordering follows receive order.
func (s *Stream) Bind(service string, h Handler) {
	s.handlersMu.Lock()
	s.handlers[service] = h
	s.handlersMu.Unlock()
}

// HandleMessage blocks for the next data message and dispatches it to the
// bound handler. It returns an error once the session is gone; the caller
// then discards the stream.
func (s *Stream) HandleMessage(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case msg, ok := <-s.data:
		if !ok {
			s.errMu.Lock()
			err := s.readErr
			s.errMu.Unlock()
			if err == nil {
				err = ErrNotConnected
			}
			return err
		}

		s.handlersMu.RLock()
		h := s.handlers[msg.Service]
		s.handlersMu.RUnlock()

		if h == nil {
			s.logger.Debug("no handler bound for service", "service", msg.Service)
			return nil
		}
		h(msg)
		return nil
	}
}

// Subscribe issues SUBS (initial) or ADD for the given service and symbols.
func (s *Stream) Subscribe(ctx context.Context, service string, symbols []string, mode SubscribeMode) error {
	params := map[string]string{
		"keys": strings.Join(symbols, ","),
	}
	if fields := FieldsFor(service); fields != "" {
		params["fields"] = fields
	}

	resp, err := s.request(ctx, service, string(mode), params)
	if err != nil {
		return err
	}
	if resp.Content.Code != 0 {
		return fmt.Errorf("%s %s rejected: %s (code %d)", service, mode, resp.Content.Msg, resp.Content.Code)
	}
	return nil
}

// Unsubscribe issues UNSUBS for the given service and symbols.
func (s *Stream) Unsubscribe(ctx context.Context, service string, symbols []string) error {
	resp, err := s.request(ctx, service, "UNSUBS", map[string]string{
		"keys": strings.Join(symbols, ","),
	})
	if err != nil {
		return err
	}
	if resp.Content.Code != 0 {
		return fmt.Errorf("%s UNSUBS rejected: %s (code %d)", service, resp.Content.Msg, resp.Content.Code)
	}
	return nil
}

// Close tears down the socket. Safe to call more than once; unblocks a
// blocked HandleMessage.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

// readLoop reads frames until the socket dies, routing responses and
// queueing data messages. On exit it closes the data channel so the owner's
// receive loop observes the failure.
func (s *Stream) readLoop() {
	defer close(s.data)

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				// Deliberate close; not an error worth recording.
			default:
				s.errMu.Lock()
				s.readErr = fmt.Errorf("read streamer frame: %w", err)
				s.errMu.Unlock()
			}
			return
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			s.logger.Warn("malformed streamer frame", "error", err)
			continue
		}

		for _, resp := range f.Response {
			s.routeResponse(resp)
		}

		for _, msg := range f.Data {
			select {
			case s.data <- msg:
			default:
				s.logger.Warn("data buffer full, dropping message", "service", msg.Service)
			}
		}

		// f.Notify carries streamer heartbeats; nothing to do.
	}
}

// request sends one command and waits for its correlated response.
func (s *Stream) request(ctx context.Context, service, command string, params map[string]string) (response, error) {
	id := atomic.AddInt64(&s.requestID, 1)
	respCh := make(chan response, 1)

	s.pendingMu.Lock()
	s.pending[id] = respCh
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, id)
		s.pendingMu.Unlock()
	}()

	env := requestEnvelope{Requests: []request{{
		Service:    service,
		Command:    command,
		RequestID:  id,
		CustomerID: s.info.CustomerID,
		CorrelID:   s.info.CorrelID,
		Parameters: params,
	}}}

	data, err := json.Marshal(env)
	if err != nil {
		return response{}, fmt.Errorf("marshal request: %w", err)
	}
	if err := s.send(data); err != nil {
		return response{}, err
	}

	select {
	case <-ctx.Done():
		return response{}, ctx.Err()
	case <-time.After(requestTimeout):
		return response{}, fmt.Errorf("%w: %s %s", ErrTimeout, service, command)
	case resp := <-respCh:
		return resp, nil
	}
}

// routeResponse delivers a command response to the waiting request.
func (s *Stream) routeResponse(resp response) {
	s.pendingMu.Lock()
	ch, ok := s.pending[resp.RequestID]
	if ok {
		delete(s.pending, resp.RequestID)
	}
	s.pendingMu.Unlock()

	if ok {
		select {
		case ch <- resp:
		default:
		}
	} else {
		s.logger.Debug("unmatched streamer response",
			"service", resp.Service,
			"command", resp.Command,
			"requestid", resp.RequestID,
		)
	}
}

// send writes one frame with the write deadline applied.
func (s *Stream) send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
