// internal/socket/hub.go
package socket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MessageNotification MessageType = "notification"

	// Lifecycle events pushed to the affected member
	MessageStatusChanged MessageType = "membership_status_changed"
	MessageRoleChanged   MessageType = "role_changed"

	// System messages
	MessagePing MessageType = "ping"
	MessagePong MessageType = "pong"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType            `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID       string
	MemberID string
	Conn     *websocket.Conn
	Hub      *Hub
	Send     chan []byte
	lastPing time.Time
}

// Hub maintains the set of active clients and routes direct messages to a
// member's open connections.
type Hub struct {
	clients map[*Client]bool

	// Clients indexed by member ID for direct messaging
	memberClients map[string]map[*Client]bool

	register      chan *Client
	unregister    chan *Client
	directMessage chan *DirectMessage

	mu sync.RWMutex
}

// DirectMessage represents a message to be sent to a specific member
type DirectMessage struct {
	MemberID string
	Message  []byte
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		memberClients: make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		directMessage: make(chan *DirectMessage, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	log.Println("[Hub] WebSocket hub started")

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case dm := <-h.directMessage:
			h.sendToMember(dm)

		case <-pingTicker.C:
			h.pingClients()
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if h.memberClients[client.MemberID] == nil {
		h.memberClients[client.MemberID] = make(map[*Client]bool)
	}
	h.memberClients[client.MemberID][client] = true

	log.Printf("[Hub] ✅ Client registered: member=%s, id=%s, total_clients=%d",
		client.MemberID, client.ID, len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)

		if clients, ok := h.memberClients[client.MemberID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.memberClients, client.MemberID)
			}
		}

		close(client.Send)
		log.Printf("[Hub] ❌ Client disconnected: member=%s, id=%s, total_clients=%d",
			client.MemberID, client.ID, len(h.clients))
	}
}

func (h *Hub) sendToMember(dm *DirectMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.memberClients[dm.MemberID]
	if !ok {
		return
	}

	for client := range clients {
		select {
		case client.Send <- dm.Message:
		default:
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

func (h *Hub) pingClients() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := Message{
		Type:      MessagePing,
		Timestamp: time.Now(),
	}
	data, _ := json.Marshal(msg)

	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

// SendToMember sends a message to every open connection of one member.
func (h *Hub) SendToMember(memberID string, msgType MessageType, payload map[string]interface{}) {
	msg := Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Hub] Error marshaling message: %v", err)
		return
	}

	h.directMessage <- &DirectMessage{
		MemberID: memberID,
		Message:  data,
	}
}

// GetConnectedClientsCount returns how many clients are connected.
func (h *Hub) GetConnectedClientsCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
