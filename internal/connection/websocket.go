package connection

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// wsDialer is the production Dialer backed by gorilla/websocket.
type wsDialer struct{}

// NewDialer returns the production WebSocket dialer.
func NewDialer() Dialer {
	return wsDialer{}
}

func (wsDialer) Dial(endpoint, origin string, timeout time.Duration) (Conn, error) {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}

	conn, _, err := dialer.Dial(endpoint, header)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

// wsConn adapts *websocket.Conn to the Conn interface.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}

func (c *wsConn) WriteMessage(messageType int, data []byte) error {
	return c.conn.WriteMessage(messageType, data)
}

func (c *wsConn) Ping(deadline time.Time) error {
	return c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline)
}

func (c *wsConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *wsConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *wsConn) SetPongHandler(h func(string) error) {
	c.conn.SetPongHandler(h)
}

func (c *wsConn) Close() error {
	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}
