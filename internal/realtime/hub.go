package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/waveline-app/waveline/pkg/logger"
	"github.com/waveline-app/waveline/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 16 // 64 KiB

	defaultBufferSize = 64
)

// EventConnected is the acknowledgement emitted to a connection after a
// successful handshake.
const EventConnected = "connected"

// Envelope is the inbound message frame: a named operation plus its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is an outbound frame delivered to connected clients.
type Message struct {
	Event   string `json:"event"`
	Data    any    `json:"data,omitempty"`
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
}

// CommandFunc handles one named operation arriving on a connection. The
// identity is the one resolved from the connection's handshake.
type CommandFunc func(ctx context.Context, userID string, data json.RawMessage) (any, error)

// Hub owns the identity-to-connections registry and fans events out to the
// live connections of a recipient. All registry mutations and lookups are
// serialised behind a single mutex.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[string]*client // identity -> connection id -> client
	byConn  map[string]string             // connection id -> identity

	commands map[string]CommandFunc

	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHub constructs a hub with an empty registry.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]map[string]*client),
		byConn:   make(map[string]string),
		commands: make(map[string]CommandFunc),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: logger.WithModule("realtime"),
	}
}

// HandleFunc registers the handler invoked for the named inbound operation.
// Registration must complete before the hub starts serving connections.
func (h *Hub) HandleFunc(event string, fn CommandFunc) {
	event = strings.TrimSpace(event)
	if event == "" || fn == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands[event] = fn
}

// Serve upgrades the HTTP connection to a WebSocket, registers it under the
// authenticated identity and pumps messages until disconnect. The caller is
// responsible for having validated the identity beforehand.
func (h *Hub) Serve(userID string, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	c := newClient(h, conn, userID)
	h.register(c)

	c.enqueue(Message{
		Event: EventConnected,
		Data:  map[string]string{"message": "Successfully connected to notifications gateway"},
	})

	go c.writeLoop()
	c.readLoop(r.Context())
}

// EmitToUser pushes an event to every live connection of the identity.
// An identity without connections is a silent no-op: offline recipients
// discover notifications on their next pull.
func (h *Hub) EmitToUser(userID, event string, data any) {
	if userID == "" || event == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients[userID] {
		c.enqueue(Message{Event: event, Data: data})
	}
}

// ConnectionsOf returns the connection ids currently registered for the identity.
func (h *Hub) ConnectionsOf(userID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := h.clients[userID]
	if len(conns) == 0 {
		return nil
	}

	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	return ids
}

// ResolveIdentity returns the identity that performed the handshake for the
// supplied connection id. Commands use this instead of re-validating
// credentials on every message.
func (h *Hub) ResolveIdentity(connID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userID, ok := h.byConn[connID]
	return userID, ok
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[string]*client)
	}
	h.clients[c.userID][c.id] = c
	h.byConn[c.id] = c.userID

	metrics.ConnectedClients.Inc()
}

func (h *Hub) unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID, ok := h.byConn[connID]
	if !ok {
		return
	}

	delete(h.byConn, connID)
	if conns := h.clients[userID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.clients, userID)
		}
	}

	metrics.ConnectedClients.Dec()
}

func (h *Hub) command(event string) (CommandFunc, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	fn, ok := h.commands[event]
	return fn, ok
}

type client struct {
	hub    *Hub
	socket *websocket.Conn
	id     string
	userID string
	once   sync.Once

	mu     sync.Mutex // guards send against enqueue-after-close
	closed bool
	send   chan Message
}

func newClient(hub *Hub, conn *websocket.Conn, userID string) *client {
	return &client{
		hub:    hub,
		socket: conn,
		id:     uuid.NewString(),
		userID: userID,
		send:   make(chan Message, defaultBufferSize),
	}
}

// enqueue hands a message to the write pump without blocking. A full buffer
// means the client cannot keep up; the payload is dropped for that connection
// only. Messages arriving after close are discarded: a command that raced
// its own disconnect simply loses its reply.
func (c *client) enqueue(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- msg:
	default:
		metrics.PushesDropped.Inc()
		c.hub.log.Warn("dropping payload for slow client",
			zap.String("user_id", c.userID),
			zap.String("conn_id", c.id),
			zap.String("event", msg.Event),
		)
	}
}

// readLoop processes inbound operations in arrival order for this connection.
func (c *client) readLoop(ctx context.Context) {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("unexpected close", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}

		if len(payload) == 0 {
			continue
		}

		var envelope Envelope
		if err := json.Unmarshal(payload, &envelope); err != nil {
			c.enqueue(failure("error", "invalid message payload"))
			continue
		}

		c.dispatch(ctx, envelope)
	}
}

func (c *client) dispatch(ctx context.Context, envelope Envelope) {
	event := strings.TrimSpace(envelope.Event)
	if event == "" {
		c.enqueue(failure("error", "event name is required"))
		return
	}

	fn, ok := c.hub.command(event)
	if !ok {
		c.enqueue(failure(event, "unsupported event"))
		return
	}

	// Recover the caller identity from the registry rather than trusting the
	// frame; a connection that raced its own unregister is rejected.
	userID, ok := c.hub.ResolveIdentity(c.id)
	if !ok {
		c.enqueue(failure(event, "Unauthorized"))
		return
	}

	data, err := fn(ctx, userID, envelope.Data)
	if err != nil {
		c.enqueue(failure(event, errorMessage(err)))
		return
	}

	c.enqueue(Message{Event: event, Data: data})
}

func (c *client) writeLoop() {
	defer c.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		c.hub.unregister(c.id)

		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()

		if c.socket != nil {
			_ = c.socket.Close()
		}
	})
}

func failure(event, message string) Message {
	success := false
	return Message{Event: event, Success: &success, Message: message}
}

func errorMessage(err error) string {
	if err == nil {
		return "request failed"
	}
	return err.Error()
}
