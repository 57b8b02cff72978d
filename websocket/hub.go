package websocket

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotConnected is returned when the member has no open socket.
var ErrNotConnected = errors.New("member not connected")

// Notification represents a message sent over WebSocket
type Notification struct {
	Type    string      `json:"type"`
	Title   string      `json:"title,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	UserID  string      `json:"userID,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	MemberID primitive.ObjectID
	Conn     *websocket.Conn
	writeMu  sync.Mutex
}

// WriteJSON serializes writes; gorilla connections allow one concurrent writer.
func (c *Client) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

// Hub maintains the set of connected members
type Hub struct {
	clients    map[primitive.ObjectID]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[primitive.ObjectID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.MemberID]; ok && old != client {
				old.Conn.Close()
			}
			h.clients[client.MemberID] = client
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.MemberID]; ok && current == client {
				delete(h.clients, client.MemberID)
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// SendToUser sends a message to a specific member
func (h *Hub) SendToUser(memberID primitive.ObjectID, notification Notification) error {
	h.mu.RLock()
	client, ok := h.clients[memberID]
	h.mu.RUnlock()

	if !ok {
		return ErrNotConnected
	}
	return client.WriteJSON(notification)
}

// Connected reports whether the member has an open socket.
func (h *Hub) Connected(memberID primitive.ObjectID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[memberID]
	return ok
}
