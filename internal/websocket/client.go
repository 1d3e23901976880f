package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one dashboard session. Watch narrows the feed to a single
// user's uploads; empty means the whole queue.
type Client struct {
	ID    string
	Watch string
	Conn  *websocket.Conn
	Send  chan []byte
	mu    sync.Mutex
}

func NewClient(conn *websocket.Conn, watch string) *Client {
	return &Client{
		ID:    uuid.New().String(),
		Watch: watch,
		Conn:  conn,
		Send:  make(chan []byte, 256),
	}
}

// WriteLoop pumps the Send channel onto the wire and keeps the connection
// alive with pings.
func (c *Client) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.close()
			return
		case msg, ok := <-c.Send:
			if !ok {
				c.close()
				return
			}
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.Conn.WriteMessage(websocket.TextMessage, msg)
			c.mu.Unlock()
		case <-ticker.C:
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.Conn.WriteMessage(websocket.PingMessage, []byte("ping"))
			c.mu.Unlock()
		}
	}
}

func (c *Client) close() {
	c.mu.Lock()
	_ = c.Conn.Close()
	c.mu.Unlock()
}

// SendMessage queues msg without blocking; a lagging session loses frames
// rather than stalling the feed.
func (c *Client) SendMessage(msg []byte) {
	select {
	case c.Send <- msg:
	default:
	}
}
