package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"realtime-chat/internal/models"
	"realtime-chat/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Conn is the subset of *websocket.Conn the client touches. Tests swap in
// an in-memory implementation to drive the hub without a live transport.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Client is one connection's seat in the hub. Its identity is nil until a
// register_identity intent arrives; identity is only written from the
// read-pump goroutine. The done channel gates deliveries so a torn-down
// client can never be written to.
type Client struct {
	hub  *Hub
	conn Conn
	send chan []byte
	done chan struct{}

	identity *models.Identity

	teardown sync.Once
}

func NewClient(hub *Hub, conn Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Identity returns the registered identity, nil while still connecting.
func (c *Client) Identity() *models.Identity {
	return c.identity
}

// deliver queues an event for the write pump, dropping it when the client
// is gone or its buffer is full. Best-effort by design.
func (c *Client) deliver(event *models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Error marshaling %s event: %v", event.Type, err)
		return
	}

	select {
	case <-c.done:
	default:
		select {
		case c.send <- data:
		default:
			logger.Debug("Dropping %s event: send buffer full", event.Type)
		}
	}
}

// ReadPump decodes inbound intents and hands them to the hub. It owns the
// connection's read side; when it returns, the client is torn down.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			return
		}

		var intent Intent
		if err := json.Unmarshal(data, &intent); err != nil {
			c.deliver(&models.Event{Type: models.EventError, Text: "malformed intent", Timestamp: time.Now()})
			continue
		}

		if err := c.hub.Dispatch(c, intent); err != nil {
			// Validation failures go back to the origin only; nothing
			// else sees them and no state was mutated.
			c.deliver(&models.Event{Type: models.EventError, Text: err.Error(), Timestamp: time.Now()})
		}
	}
}

// WritePump drains the send queue to the connection and keeps it alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Error("Write error: %v", err)
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
