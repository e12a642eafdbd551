package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the write side of one connection. *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents one live WebSocket connection, tied to the owner it
// authenticated as. A client with no owner is never registered.
type Client struct {
	ID      string
	OwnerID string
	Conn    Conn

	writeMu sync.Mutex
}

// Send writes a text frame to the connection. Broadcasts arrive from the
// hub goroutine while command acks come from the read loop, so writes are
// serialized here.
func (c *Client) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// Hub maps each owner to that owner's set of live connections and fans
// change notifications out to exactly that set. It is the only shared
// mutable cross-connection state in the system.
type Hub struct {
	clients    map[*Client]bool
	owners     map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *ownerMessage
	done       chan struct{}
	mu         sync.RWMutex
}

type ownerMessage struct {
	OwnerID string
	Type    string
	Payload any
}

// Frame is the wire shape of a broadcast message.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		owners:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *ownerMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It accepts a context for graceful
// shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Register adds a client to its owner's subscriber set.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client; calling it for an unknown client is a
// no-op.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast delivers a payload to every live connection of one owner.
// Delivery is fire-and-forget: it never blocks the caller and a failed
// write never propagates back to the triggering mutation.
func (h *Hub) Broadcast(ownerID, msgType string, payload any) {
	h.broadcast <- &ownerMessage{
		OwnerID: ownerID,
		Type:    msgType,
		Payload: payload,
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OwnerClientCount returns the number of connections for one owner.
func (h *Hub) OwnerClientCount(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.owners[ownerID])
}

func (h *Hub) handleRegister(client *Client) {
	if client.OwnerID == "" {
		log.Printf("[hub] Refusing to register client %s without owner", client.ID)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if h.owners[client.OwnerID] == nil {
		h.owners[client.OwnerID] = make(map[*Client]bool)
	}
	h.owners[client.OwnerID][client] = true
	log.Printf("[hub] Client %s registered for owner %s", client.ID, client.OwnerID)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if set := h.owners[client.OwnerID]; set != nil {
		delete(set, client)
		if len(set) == 0 {
			delete(h.owners, client.OwnerID)
		}
	}
	log.Printf("[hub] Client %s unregistered", client.ID)
}

func (h *Hub) handleBroadcast(msg *ownerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(Frame{Type: msg.Type, Data: msg.Payload})
	if err != nil {
		log.Printf("[hub] Failed to marshal broadcast message: %v", err)
		return
	}

	for client := range h.owners[msg.OwnerID] {
		if err := client.Send(data); err != nil {
			log.Printf("[hub] Failed to send to client %s: %v", client.ID, err)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[*Client]bool)
	h.owners = make(map[string]map[*Client]bool)
}
