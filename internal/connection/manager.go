package connection

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Manager owns the single persistent socket shared by the live feed and
// one-shot fetches. All state transitions are serialized under one lock;
// observers are invoked after the lock is released so they can safely call
// back into the manager.
type Manager struct {
	cfg    Config
	logger *slog.Logger
	dialer Dialer

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)

	// reconnectMu ensures only one reconnect cycle runs at a time.
	reconnectMu sync.Mutex

	// writeMu serializes writes to the socket.
	writeMu sync.Mutex

	mu         sync.Mutex
	state      State
	conn       Conn
	hbStop     chan struct{}
	lastAlive  time.Time
	reconnects int
	observers  []StateObserver
}

// Stats is a point-in-time snapshot of connection health.
type Stats struct {
	State          State
	ReconnectCount int
	LastAliveAgo   time.Duration
}

// NewManager creates a connection manager. A nil dialer selects the
// production WebSocket dialer.
func NewManager(cfg Config, dialer Dialer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if dialer == nil {
		dialer = NewDialer()
	}
	return &Manager{
		cfg:    cfg,
		logger: logger,
		dialer: dialer,
		sleep:  time.Sleep,
		state:  StateDisconnected,
	}
}

// OnStateChange registers an observer for state transitions.
func (m *Manager) OnStateChange(fn StateObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the socket is up.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// Stats returns a snapshot of connection health.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		State:          m.state,
		ReconnectCount: m.reconnects,
		LastAliveAgo:   time.Since(m.lastAlive),
	}
}

// Connect opens the socket. Returns false if the dial fails or the manager
// was closed; the state stays Disconnected on failure.
func (m *Manager) Connect() bool {
	m.mu.Lock()
	switch m.state {
	case StateClosed:
		m.mu.Unlock()
		return false
	case StateConnected:
		m.mu.Unlock()
		return true
	}
	notify := m.setStateLocked(StateConnecting)
	m.mu.Unlock()
	notify()

	if m.dial() {
		return true
	}

	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return false
	}
	notify = m.setStateLocked(StateDisconnected)
	m.mu.Unlock()
	notify()
	return false
}

// Send writes one framed message. If the socket is down it attempts a
// reconnect cycle first. Returns false if the message could not be written.
func (m *Manager) Send(data []byte) bool {
	conn, ok := m.liveConn()
	if !ok {
		return false
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		m.logger.Error("send failed", "error", err)
		go m.Reconnect()
		return false
	}
	return true
}

// Receive blocks for one inbound message, up to timeout (the configured
// default when timeout <= 0). A successful read refreshes the liveness
// timestamp. Returns false on failure; read failures trigger a background
// reconnect cycle.
func (m *Manager) Receive(timeout time.Duration) ([]byte, bool) {
	conn, ok := m.liveConn()
	if !ok {
		return nil, false
	}

	if timeout <= 0 {
		timeout = m.cfg.ReceiveTimeout
	}
	conn.SetReadDeadline(time.Now().Add(timeout))

	_, data, err := conn.ReadMessage()
	if err != nil {
		m.mu.Lock()
		closed := m.state == StateClosed
		m.mu.Unlock()
		if !closed {
			m.logger.Warn("receive failed", "error", err)
			go m.Reconnect()
		}
		return nil, false
	}

	m.touch()
	return data, true
}

// Reconnect runs one bounded reconnect cycle: the first attempt is immediate,
// later attempts back off exponentially from ReconnectDelay up to
// ReconnectDelayMax. Transitions to Disconnected when the cap is exhausted.
// Returns false immediately once the manager is Closed.
func (m *Manager) Reconnect() bool {
	m.reconnectMu.Lock()
	defer m.reconnectMu.Unlock()

	m.mu.Lock()
	switch m.state {
	case StateClosed:
		m.mu.Unlock()
		m.logger.Warn("reconnect refused, connection explicitly closed")
		return false
	case StateConnected:
		// Another caller already brought the link back.
		m.mu.Unlock()
		return true
	}
	m.stopHeartbeatLocked()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	notify := m.setStateLocked(StateReconnecting)
	m.mu.Unlock()
	notify()

	delay := m.cfg.ReconnectDelay
	for attempt := 1; attempt <= m.cfg.ReconnectAttempts; attempt++ {
		if attempt > 1 {
			m.logger.Info("reconnect backoff",
				"attempt", attempt,
				"max", m.cfg.ReconnectAttempts,
				"delay", delay,
			)
			m.sleep(delay)
			delay = min(delay*2, m.cfg.ReconnectDelayMax)
		}

		m.mu.Lock()
		if m.state == StateClosed {
			m.mu.Unlock()
			m.logger.Warn("reconnect abandoned, connection explicitly closed")
			return false
		}
		m.reconnects++
		m.mu.Unlock()

		if m.dial() {
			m.logger.Info("reconnected", "attempt", attempt)
			return true
		}
	}

	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return false
	}
	notify = m.setStateLocked(StateDisconnected)
	m.mu.Unlock()
	notify()
	m.logger.Error("reconnect failed after all attempts", "attempts", m.cfg.ReconnectAttempts)
	return false
}

// Close shuts the connection down for good. No further reconnects are made.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	m.stopHeartbeatLocked()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	notify := m.setStateLocked(StateClosed)
	m.mu.Unlock()
	notify()

	m.logger.Info("connection closed")
}

// liveConn returns a usable Conn, reconnecting first if needed.
func (m *Manager) liveConn() (Conn, bool) {
	m.mu.Lock()
	conn, connected := m.conn, m.state == StateConnected
	m.mu.Unlock()

	if connected && conn != nil {
		return conn, true
	}
	if !m.Reconnect() {
		return nil, false
	}

	m.mu.Lock()
	conn = m.conn
	m.mu.Unlock()
	return conn, conn != nil
}

// dial opens a fresh socket and, on success, installs it and starts the
// heartbeat loop.
func (m *Manager) dial() bool {
	conn, err := m.dialer.Dial(m.cfg.Endpoint, m.cfg.Origin, m.cfg.DialTimeout)
	if err != nil {
		m.logger.Warn("dial failed", "endpoint", m.cfg.Endpoint, "error", err)
		return false
	}

	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		conn.Close()
		return false
	}

	conn.SetPongHandler(func(string) error {
		m.touch()
		return nil
	})

	m.conn = conn
	m.lastAlive = time.Now()
	hbStop := make(chan struct{})
	m.hbStop = hbStop
	notify := m.setStateLocked(StateConnected)
	m.mu.Unlock()
	notify()

	go m.heartbeatLoop(hbStop)
	return true
}

// heartbeatLoop pings while connected and triggers a reconnect once no
// liveness signal has been seen within the ping timeout, then exits.
func (m *Manager) heartbeatLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			if m.state != StateConnected {
				m.mu.Unlock()
				return
			}
			conn := m.conn
			silent := time.Since(m.lastAlive)
			m.mu.Unlock()

			if silent > m.cfg.PingTimeout {
				m.logger.Warn("ping timeout, connection stale",
					"silent", silent,
					"timeout", m.cfg.PingTimeout,
				)
				m.Reconnect()
				return
			}

			if err := conn.Ping(time.Now().Add(m.cfg.WriteTimeout)); err != nil {
				m.logger.Debug("ping failed", "error", err)
			}
		}
	}
}

// touch refreshes the liveness timestamp.
func (m *Manager) touch() {
	m.mu.Lock()
	m.lastAlive = time.Now()
	m.mu.Unlock()
}

// stopHeartbeatLocked stops the current heartbeat loop. Callers hold m.mu.
func (m *Manager) stopHeartbeatLocked() {
	if m.hbStop != nil {
		close(m.hbStop)
		m.hbStop = nil
	}
}

// setStateLocked commits a transition and returns the observer notification
// to run after m.mu is released.
func (m *Manager) setStateLocked(s State) func() {
	old := m.state
	if old == s {
		return func() {}
	}
	m.state = s
	obs := slices.Clone(m.observers)
	m.logger.Info("connection state", "from", old, "to", s)
	return func() {
		for _, fn := range obs {
			fn(s)
		}
	}
}
