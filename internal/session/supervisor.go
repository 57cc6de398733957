package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wheelhouse/quote-relay/internal/quote"
	"github.com/wheelhouse/quote-relay/internal/schwab"
	"github.com/wheelhouse/quote-relay/internal/subscription"
)

// Config holds supervisor settings.
type Config struct {
	PollInterval time.Duration // reconnect check interval (default: 30s)
	EventBuffer  int           // normalized event channel capacity (default: 1024)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval: 30 * time.Second,
		EventBuffer:  1024,
	}
}

// Supervisor owns the upstream session lifecycle and emits normalized
// events on Events().
type Supervisor struct {
	cfg       Config
	connector Connector
	subs      *subscription.Manager
	logger    *slog.Logger

	state  atomic.Int32
	events chan Event

	streamMu sync.Mutex
	stream   Stream

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSupervisor creates a Supervisor. The subscription manager is attached
// to each new session as it comes up.
func NewSupervisor(cfg Config, connector Connector, subs *subscription.Manager, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.EventBuffer == 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}

	return &Supervisor{
		cfg:       cfg,
		connector: connector,
		subs:      subs,
		logger:    logger,
		events:    make(chan Event, cfg.EventBuffer),
	}
}

// Events returns the normalized event channel. It closes after Stop.
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Start begins the supervision loop, attempting a connect immediately.
func (s *Supervisor) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("session supervisor started", "poll_interval", s.cfg.PollInterval)
	return nil
}

// Stop shuts down the supervisor, closing any live session, and closes the
// event channel once all loops have drained.
func (s *Supervisor) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	// Unblock the receive loop if a session is live.
	s.streamMu.Lock()
	if s.stream != nil {
		s.stream.Close()
	}
	s.streamMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(s.events)
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("session supervisor stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("session supervisor stop timed out")
		return ctx.Err()
	}
}

// run polls on a fixed interval, reconnecting whenever no session exists.
func (s *Supervisor) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	// Connect at startup rather than waiting a full interval.
	s.cycle()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.cycle()
		}
	}
}

// cycle runs one supervision check: if a session is live it does nothing,
// otherwise it attempts the full connect sequence. A failed attempt is
// abandoned until the next cycle; the poll interval is the only throttle.
func (s *Supervisor) cycle() {
	s.streamMu.Lock()
	alive := s.stream != nil
	s.streamMu.Unlock()
	if alive {
		return
	}

	s.setState(StateConnecting)

	st, err := s.connect(s.ctx)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Warn("connect attempt failed", "error", err)
		}
		s.setState(StateFailed)
		// Failed is never held; the next cycle starts from Disconnected.
		s.setState(StateDisconnected)
		return
	}

	s.streamMu.Lock()
	s.stream = st
	s.streamMu.Unlock()

	s.subs.Attach(st)
	s.setState(StateStreaming)

	s.wg.Add(1)
	go s.receiveLoop(st)
}

// connect runs authenticate → account resolution → open stream → login →
// bind handlers. Handlers are bound freshly on every connect.
func (s *Supervisor) connect(ctx context.Context) (Stream, error) {
	client, err := s.connector.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	accounts, err := client.AccountNumbers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, errors.New("no accounts available")
	}

	s.setState(StateAuthenticated)

	accountID := accounts[0].AccountNumber
	s.logger.Info("account resolved", "account", maskAccount(accountID))

	st, err := client.OpenStream(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	if err := st.Login(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("streamer login: %w", err)
	}

	st.Bind(schwab.ServiceOptions, s.handleOptionQuote)
	st.Bind(schwab.ServiceEquities, s.handleEquityQuote)
	st.Bind(schwab.ServiceAccountActivity, s.handleAccountActivity)

	return st, nil
}

// receiveLoop drives the session until it errors or closes, then clears
// the handle so the next poll cycle reconnects.
func (s *Supervisor) receiveLoop(st Stream) {
	defer s.wg.Done()

	s.logger.Info("receive loop started")

	for {
		if err := st.HandleMessage(s.ctx); err != nil {
			if s.ctx.Err() == nil {
				s.logger.Warn("receive loop exited", "error", err)
			}
			break
		}
	}

	st.Close()

	s.streamMu.Lock()
	s.stream = nil
	s.streamMu.Unlock()

	s.subs.Detach()
	s.setState(StateDisconnected)
}

func (s *Supervisor) handleOptionQuote(msg schwab.DataMessage) {
	items, err := schwab.DecodeOptionItems(msg.Content)
	if err != nil {
		s.logger.Warn("malformed option content", "error", err)
		return
	}
	for _, q := range quote.Options(items, s.logger) {
		s.emit(Event{Type: EventOptionQuote, Data: q})
	}
}

func (s *Supervisor) handleEquityQuote(msg schwab.DataMessage) {
	items, err := schwab.DecodeEquityItems(msg.Content)
	if err != nil {
		s.logger.Warn("malformed equity content", "error", err)
		return
	}
	for _, q := range quote.Equities(items, s.logger) {
		s.emit(Event{Type: EventEquityQuote, Data: q})
	}
}

// handleAccountActivity forwards the payload unmodified.
func (s *Supervisor) handleAccountActivity(msg schwab.DataMessage) {
	s.emit(Event{Type: EventAccountActivity, Data: msg})
}

// emit queues an event for the hub without blocking the receive loop.
func (s *Supervisor) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("event buffer full, dropping event", "type", ev.Type)
	}
}

func (s *Supervisor) setState(state State) {
	old := State(s.state.Swap(int32(state)))
	if old != state {
		s.logger.Debug("session state", "from", old, "to", state)
	}
}

// maskAccount keeps only the last 4 characters for logs.
func maskAccount(id string) string {
	if len(id) <= 4 {
		return "..." + id
	}
	return "..." + id[len(id)-4:]
}
