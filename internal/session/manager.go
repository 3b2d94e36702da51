package session

import (
	"context"
	"sync"

	"github.com/edustack/registrar/internal/database"
	"github.com/edustack/registrar/internal/database/mysql"
	"github.com/edustack/registrar/internal/database/postgres"
	"github.com/edustack/registrar/internal/errs"
	"github.com/edustack/registrar/internal/logger"
	"github.com/edustack/registrar/internal/schema"
)

// State is the lifecycle state of the Manager.
type State int

const (
	StateDisconnected State = iota
	StateConnected
)

func (s State) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "disconnected"
}

// Subscriber is notified when the session lifecycle changes. Dependents
// holding projections (table models, pickers) register here so they can be
// told to drop them before the handle goes away.
type Subscriber interface {
	// SessionOpened is called after a connection is established.
	SessionOpened(s *Session)

	// SessionClosing is called before the handle is released, so the
	// subscriber can discard projections while the session is still valid.
	SessionClosing(s *Session)
}

// OpenFunc builds a handle from a config.
type OpenFunc func(ctx context.Context, cfg *database.Config) (database.DB, error)

// Manager is the connection lifecycle controller. It exclusively owns the
// single active handle: no other component may keep a reference to it past
// a disconnect.
type Manager struct {
	mu      sync.Mutex
	log     *logger.Logger
	open    OpenFunc
	session *Session
	subs    []Subscriber
}

// NewManager returns a Manager in the Disconnected state.
// A nil log uses the default logger.
func NewManager(log *logger.Logger) *Manager {
	return NewManagerWithOpener(log, openDriver)
}

// NewManagerWithOpener returns a Manager whose connections come from a
// custom opener instead of the built-in driver dispatch.
func NewManagerWithOpener(log *logger.Logger, open OpenFunc) *Manager {
	if log == nil {
		log = logger.New(nil)
	}
	if open == nil {
		open = openDriver
	}
	return &Manager{log: log, open: open}
}

// openDriver dispatches to the wire client the config selects.
func openDriver(ctx context.Context, cfg *database.Config) (database.DB, error) {
	switch cfg.Driver {
	case database.DriverMySQL:
		return mysql.New(ctx, cfg)
	case database.DriverPostgres:
		return postgres.New(ctx, cfg)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown driver %q", cfg.Driver)
	}
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return StateConnected
	}
	return StateDisconnected
}

// Session returns the active session, or a not-connected error.
func (m *Manager) Session() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, errs.New(errs.ErrKindNotConnected, "no active connection")
	}
	return m.session, nil
}

// Subscribe registers a lifecycle subscriber. If a session is already
// active, SessionOpened fires immediately.
func (m *Manager) Subscribe(sub Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, sub)
	if m.session != nil {
		sub.SessionOpened(m.session)
	}
}

// Connect builds a handle via the selected driver, health-checks it, and
// moves the Manager to Connected. A connect request while already connected
// is rejected: the caller must disconnect first.
func (m *Manager) Connect(ctx context.Context, cfg *database.Config) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.log.Warn("connect rejected: already connected, disconnect first")
		return nil, errs.New(errs.ErrKindInvalidInput, "already connected; disconnect first")
	}

	db, err := m.open(ctx, cfg)
	if err != nil {
		m.log.ErrorErr("connect failed", err)
		return nil, err
	}

	m.session = newSession(db, schema.University(), m.log)

	m.log.With().
		Str("driver", string(cfg.Driver)).
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Logger().Info("connected")

	for _, sub := range m.subs {
		sub.SessionOpened(m.session)
	}
	return m.session, nil
}

// Disconnect notifies all subscribers that the session is closing, while
// the handle is still usable, and only then releases the handle and moves
// the Manager back to Disconnected.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return errs.New(errs.ErrKindNotConnected, "no active connection")
	}

	// Notification must precede the close: releasing first would let a
	// dependent read through a dead handle.
	for _, sub := range m.subs {
		sub.SessionClosing(m.session)
	}

	m.session.close()
	m.session = nil
	m.log.Info("disconnected")
	return nil
}
