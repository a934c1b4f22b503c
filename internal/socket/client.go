// internal/socket/client.go
package socket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second

	// A peer that has not answered a ping within pongWait is dropped.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize int64 = 4096
)

// inboundMessage is the only shape clients may send. The socket is a push
// channel; inbound traffic exists just to keep the connection alive.
type inboundMessage struct {
	Action string `json:"action"`
}

// ReadPump drains the connection until it closes and keeps the read
// deadline fresh. Must run in its own goroutine per client.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.lastPing = time.Now()
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Client] WebSocket error for member %s: %v", c.MemberID, err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("[Client] Error parsing message from member %s: %v", c.MemberID, err)
			continue
		}

		switch msg.Action {
		case "ping":
			c.lastPing = time.Now()
			c.enqueue(Message{
				Type:      MessagePong,
				Payload:   map[string]interface{}{"time": time.Now().Unix()},
				Timestamp: time.Now(),
			})
		case "pong":
			c.lastPing = time.Now()
		default:
			log.Printf("[Client] Unknown action %q from member %s", msg.Action, c.MemberID)
		}
	}
}

// WritePump serializes all writes to the connection. Must run in its own
// goroutine per client; gorilla allows only one concurrent writer.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

// enqueue hands a message to the write pump without blocking; a client
// with a full send buffer just misses the message.
func (c *Client) enqueue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Printf("[Client] Send buffer full for member %s, dropping message", c.MemberID)
	}
}
