package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrClosed       = errors.New("connection closed")
	ErrNotConnected = errors.New("not connected")
)

// State is the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed" // terminal
)

// StateObserver is notified after a state transition commits.
// Observers run outside the manager's lock and may call back into it.
type StateObserver func(State)

// Config configures the connection manager.
type Config struct {
	Endpoint          string        // WebSocket endpoint URL
	Origin            string        // Origin header value
	DialTimeout       time.Duration // Handshake timeout
	WriteTimeout      time.Duration // Write deadline for sends
	ReceiveTimeout    time.Duration // Default read deadline when none given
	HeartbeatInterval time.Duration // Ping cadence while connected
	PingTimeout       time.Duration // Max silence before the link is considered dead
	ReconnectAttempts int           // Attempt cap for one reconnect cycle
	ReconnectDelay    time.Duration // Base backoff delay
	ReconnectDelayMax time.Duration // Backoff cap
}

// DefaultConfig returns production defaults for the TradingView endpoint.
func DefaultConfig() Config {
	return Config{
		Endpoint:          "wss://data.tradingview.com/socket.io/websocket",
		Origin:            "https://data.tradingview.com",
		DialTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		ReceiveTimeout:    5 * time.Second,
		HeartbeatInterval: 10 * time.Second,
		PingTimeout:       30 * time.Second,
		ReconnectAttempts: 5,
		ReconnectDelay:    time.Second,
		ReconnectDelayMax: 30 * time.Second,
	}
}

// Conn is the minimal socket surface the manager drives.
// Satisfied by *websocket.Conn via wsConn; faked in tests.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Ping(deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer opens a Conn to an endpoint.
type Dialer interface {
	Dial(endpoint, origin string, timeout time.Duration) (Conn, error)
}
