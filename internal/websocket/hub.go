package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pdf-qa-be/internal/constant"
	"pdf-qa-be/internal/dto"
	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/pkg/events"
)

// MessageHandler answers one inbound frame. The returned value is sent back as JSON.
type MessageHandler func(ctx context.Context, clientID string, payload []byte) interface{}

type Options struct {
	// MaxMessages is the ceiling per client per window.
	MaxMessages int
	// Window is how often every client's counter is reset.
	Window     time.Duration
	SendBuffer int
}

// Hub is the registry of live realtime sessions, keyed by client id.
type Hub struct {
	// Registered clients: one live connection per client id.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	stopped chan struct{}

	// Lock for safe map access
	mu sync.RWMutex

	handler MessageHandler
	options Options

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(handler MessageHandler, options Options, log logger.ILogger) *Hub {
	if options.MaxMessages <= 0 {
		options.MaxMessages = 30
	}
	if options.Window <= 0 {
		options.Window = 60 * time.Second
	}
	if options.SendBuffer <= 0 {
		options.SendBuffer = 256
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		handler:    handler,
		options:    options,
		logger:     log,
	}
}

// Run owns registration and the shared rate-window sweep until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.options.Window)
	defer func() {
		ticker.Stop()
		h.closeAll()
		close(h.stopped)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			previous := h.clients[client.ID]
			h.clients[client.ID] = client
			h.mu.Unlock()

			if previous != nil {
				// Reconnecting must not reset the rate limit.
				client.addCount(previous.windowCount())
				previous.closeSend()
				h.logger.Info("Hub", "Client replaced by newer connection", map[string]interface{}{"client_id": client.ID})
			}
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"client_id": client.ID})

		case client := <-h.unregister:
			h.drop(client)
			h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"client_id": client.ID})

		case <-ticker.C:
			h.Sweep()
		}
	}
}

// Sweep resets every client's message window.
func (h *Hub) Sweep() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		client.resetWindow()
	}
}

// drop removes the client if it is still the registered one and closes its send channel.
func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	if h.clients[client.ID] == client {
		delete(h.clients, client.ID)
	}
	h.mu.Unlock()
	client.closeSend()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, client := range clients {
		client.closeSend()
	}
}

func (h *Hub) registerClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
		client.closeSend()
	}
}

// Broadcast sends a message to ALL connected clients. A client whose buffer is full
// is dropped without holding up the others.
func (h *Hub) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode broadcast", map[string]interface{}{"error": err})
		return
	}

	var slow []*Client
	h.mu.RLock()
	for _, client := range h.clients {
		if !client.enqueue(data) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Hub", "Client Send buffer full, dropping client", map[string]interface{}{"client_id": client.ID})
		h.drop(client)
	}
}

// BroadcastEvent wraps data in the server event envelope.
func (h *Hub) BroadcastEvent(eventType string, data interface{}) {
	h.Broadcast(dto.EventMessage{Type: eventType, Data: data})
}

// ClientCount reports the number of live sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Options exposes the limits the hub enforces.
func (h *Hub) Options() Options {
	return h.options
}

// Publish pushes document lifecycle events to every client as document_status frames.
func (h *Hub) Publish(_ context.Context, event events.Event) error {
	data := make(map[string]interface{}, len(event.Payload())+2)
	for k, v := range event.Payload() {
		data[k] = v
	}
	data["event"] = event.EventType()
	data["occurred_at"] = event.Timestamp()

	h.BroadcastEvent(constant.EventTypeDocumentStatus, data)
	return nil
}
