package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds how long a single monitor write may block. A stalled
// monitor must not hold up hub delivery to the remaining subscribers.
const writeWait = 5 * time.Second

// Client adapts a websocket connection to the Subscriber interface. Writes
// are serialized; gorilla/websocket permits at most one concurrent writer.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger

	mu     sync.Mutex
	closed sync.Once
}

// NewClient constructs a client wrapper around an upgraded connection.
func NewClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{conn: conn, log: logger}
}

// Send writes one text frame, dropping the connection on failure so the hub
// unregisters it on the next delivery.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Warn("dropping monitor connection after failed write", "error", err)
		c.closeConn()
		return err
	}
	return nil
}

// Close terminates the connection. Safe to call more than once.
func (c *Client) Close() {
	c.closeConn()
}

func (c *Client) closeConn() {
	c.closed.Do(func() {
		_ = c.conn.Close()
	})
}
