package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 << 10

	// Outbound buffer per connection. When it fills, further events for
	// this connection are dropped (best-effort delivery).
	sendBufferSize = 256
)

// Client is one live websocket connection attributed to a user.
type Client struct {
	ID       string
	UserID   string
	Username string

	conn *websocket.Conn
	send chan []byte

	// rooms this client is joined to; guarded by the hub's mutex.
	rooms map[string]struct{}
}

func NewClient(conn *websocket.Conn, userID, username string) *Client {
	return &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		rooms:    make(map[string]struct{}),
	}
}

// trySend queues a payload without blocking. Fan-out to a room must be
// bounded by the room size, so a full buffer means the event is dropped for
// this connection only.
func (c *Client) trySend(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings. It exits when the hub closes the send
// channel or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
