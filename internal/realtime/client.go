package realtime

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client streams status updates from one subscription to one websocket.
type Client struct {
	conn   *websocket.Conn
	sub    *Subscription
	logger *slog.Logger
}

func NewClient(conn *websocket.Conn, sub *Subscription, logger *slog.Logger) *Client {
	return &Client{conn: conn, sub: sub, logger: logger}
}

// Serve runs both pumps and returns once the connection is gone.
func (c *Client) Serve() {
	go c.readPump()
	c.writePump()
}

// readPump discards client frames; it exists to process control frames and
// notice the peer going away.
func (c *Client) readPump() {
	defer c.sub.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("discord ws read error", "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.sub.Close()
		c.conn.Close()
	}()

	for {
		select {
		case cfg, ok := <-c.sub.Updates():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(cfg); err != nil {
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
