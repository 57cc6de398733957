package subscription

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/wheelhouse/quote-relay/internal/schwab"
)

// ErrNoSession is returned when a request arrives with no live upstream
// session attached. Retry happens implicitly through reconnection: the
// caller reissues the command once status polling shows connected again.
var ErrNoSession = errors.New("no live upstream session")

// Session is the slice of the upstream streamer session the manager drives.
type Session interface {
	Subscribe(ctx context.Context, service string, symbols []string, mode schwab.SubscribeMode) error
	Unsubscribe(ctx context.Context, service string, symbols []string) error
}

// Status is a point-in-time snapshot of subscription state.
type Status struct {
	Connected bool     `json:"connected"`
	Options   []string `json:"subscribed_options"`
	Equities  []string `json:"subscribed_equities"`
}

// Manager tracks subscribed option and equity symbols. The session
// supervisor attaches the live session on connect and detaches it when the
// session drops; the tracked sets survive a detach deliberately, so
// subscriptions from before a disconnect are not silently restored on
// reconnect; callers detect the reconnect via Status and reissue.
type Manager struct {
	logger *slog.Logger

	mu       sync.Mutex
	session  Session
	options  map[string]struct{}
	equities map[string]struct{}
}

// NewManager creates a Manager with no attached session.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:   logger,
		options:  make(map[string]struct{}),
		equities: make(map[string]struct{}),
	}
}

// Attach binds a live upstream session.
func (m *Manager) Attach(s Session) {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
}

// Detach clears the session handle after the receive loop exits.
func (m *Manager) Detach() {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
}

// RequestOptions subscribes to option symbols not already tracked. The
// first subscription for the class uses the initial wire command; later
// ones extend it. Requesting only already-tracked symbols is a no-op.
func (m *Manager) RequestOptions(ctx context.Context, symbols []string) error {
	return m.request(ctx, schwab.ServiceOptions, m.options, symbols)
}

// RequestEquities subscribes to equity symbols not already tracked.
func (m *Manager) RequestEquities(ctx context.Context, symbols []string) error {
	return m.request(ctx, schwab.ServiceEquities, m.equities, symbols)
}

// ReleaseOptions unsubscribes option symbols that are currently tracked.
// Symbols not in the set are ignored; releasing nothing is a no-op.
func (m *Manager) ReleaseOptions(ctx context.Context, symbols []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	toRemove := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if _, ok := m.options[sym]; ok {
			toRemove = append(toRemove, sym)
		}
	}
	if len(toRemove) == 0 {
		return nil
	}

	if m.session == nil {
		return ErrNoSession
	}

	if err := m.session.Unsubscribe(ctx, schwab.ServiceOptions, toRemove); err != nil {
		return err
	}

	for _, sym := range toRemove {
		delete(m.options, sym)
	}

	m.logger.Info("unsubscribed options", "symbols", toRemove, "tracked", len(m.options))
	return nil
}

// Status reports whether a live session exists and the tracked sets,
// sorted. Connected reflects session liveness, not subscription count.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Status{
		Connected: m.session != nil,
		Options:   sortedKeys(m.options),
		Equities:  sortedKeys(m.equities),
	}
}

// request diffs symbols against the tracked set and applies the delta
// upstream before mutating state. The lock is held across the upstream
// call: subscription operations are serialized and the set never reflects
// an unconfirmed subscription.
func (m *Manager) request(ctx context.Context, service string, set map[string]struct{}, symbols []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if _, ok := set[sym]; !ok {
			added = append(added, sym)
		}
	}
	if len(added) == 0 {
		return nil
	}

	if m.session == nil {
		return ErrNoSession
	}

	mode := schwab.ModeInitial
	if len(set) > 0 {
		mode = schwab.ModeAdd
	}

	if err := m.session.Subscribe(ctx, service, added, mode); err != nil {
		return err
	}

	for _, sym := range added {
		set[sym] = struct{}{}
	}

	m.logger.Info("subscribed",
		"service", service,
		"symbols", added,
		"mode", mode,
		"tracked", len(set),
	)
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
