package transport

import (
	"encoding/json"
	"time"

	"pv-analysis-be/internal/message"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 * 1024 // analysis payloads carry 8760-point arrays
)

// Client is a middleman between one module's websocket connection and the
// transport. Module and Origin are fixed at handshake time.
type Client struct {
	Transport *Transport

	Conn *websocket.Conn

	// Module is the configured module name this connection attached as.
	Module string

	// Origin is the handshake Origin header, already validated against the
	// configured origin for Module.
	Origin string

	// Buffered channel of outbound frames.
	Send chan []byte
}

// readPump pumps frames from the websocket connection into the transport.
func (c *Client) readPump() {
	defer func() {
		c.Transport.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Transport.logger.Warn("Transport", "Unexpected close", map[string]interface{}{"module": c.Module, "error": err.Error()})
			}
			break
		}

		var env message.Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
			// Malformed frames are dropped without a reply.
			c.Transport.logger.Debug("Transport", "Dropping malformed frame", map[string]interface{}{"module": c.Module})
			continue
		}
		c.Transport.receive(c, env)
	}
}

// writePump pumps frames from the transport to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The transport closed the channel (detach or replacement).
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
