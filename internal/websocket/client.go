package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"pdf-qa-be/internal/constant"
	"pdf-qa-be/internal/dto"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Conn is the subset of *websocket.Conn the pumps use.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn Conn

	// ID is the client-chosen session id from the URL.
	ID string

	// Buffered channel of outbound messages.
	send chan []byte

	mu     sync.Mutex
	closed bool
	// count is the number of messages accepted in the current window.
	count int

	// done is closed when writePump exits.
	done chan struct{}
}

func newClient(hub *Hub, conn Conn, id string) *Client {
	return &Client{
		Hub:  hub,
		Conn: conn,
		ID:   id,
		send: make(chan []byte, hub.options.SendBuffer),
		done: make(chan struct{}),
	}
}

// allow counts the message if the window still has room. A rejected message is not counted.
func (c *Client) allow(max int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count >= max {
		return false
	}
	c.count++
	return true
}

func (c *Client) windowCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *Client) addCount(n int) {
	c.mu.Lock()
	c.count += n
	c.mu.Unlock()
}

func (c *Client) resetWindow() {
	c.mu.Lock()
	c.count = 0
	c.mu.Unlock()
}

// enqueue never blocks; it reports false when the client is closed or its buffer is full.
func (c *Client) enqueue(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// closeSend stops writePump after it drains the buffer. Safe to call more than once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.Hub.logger.Error("Client", "Failed to encode frame", map[string]interface{}{"client_id": c.ID, "error": err})
		return
	}
	if !c.enqueue(data) {
		c.Hub.logger.Warn("Client", "Send buffer full or closed, dropping client", map[string]interface{}{"client_id": c.ID})
		c.Hub.drop(c)
	}
}

// readPump handles inbound frames one at a time, so a client's messages are answered in order.
func (c *Client) readPump(ctx context.Context) {
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.logger.Info("Client", "Connection closed unexpectedly", map[string]interface{}{"client_id": c.ID, "error": err.Error()})
			}
			return
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		if !c.allow(c.Hub.options.MaxMessages) {
			c.Hub.logger.Warn("Client", "Rate limit exceeded", map[string]interface{}{"client_id": c.ID})
			c.sendJSON(dto.ErrorMessage{
				Error: constant.MessageRateLimitExceeded,
				Code:  constant.CodeRateLimitExceeded,
			})
			continue
		}

		c.sendJSON(c.dispatch(ctx, data))
		// Pongs are only processed inside ReadMessage, so a slow answer must not eat the window.
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// dispatch runs the message handler, turning a panic into an error frame.
func (c *Client) dispatch(ctx context.Context, data []byte) (reply interface{}) {
	defer func() {
		if r := recover(); r != nil {
			c.Hub.logger.Error("Client", "Panic while handling message", map[string]interface{}{
				"client_id": c.ID,
				"panic":     fmt.Sprint(r),
			})
			reply = dto.ErrorMessage{
				Error:  constant.MessageInternalError,
				Detail: fmt.Sprint(r),
				Code:   constant.CodeInternalServerError,
			}
		}
	}()
	return c.Hub.handler(ctx, c.ID, data)
}

// writePump pumps messages from the hub to the websocket connection, one frame per message.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
		close(c.done)
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.Warn("Client", "Write failed", map[string]interface{}{"client_id": c.ID, "error": err.Error()})
				c.Hub.drop(c)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Hub.drop(c)
				return
			}
		}
	}
}
