package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"saferoads/metrics"
	"saferoads/models"

	"github.com/apex/log"
)

// Hub fans escalation events out to connected listeners.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for every client
	broadcast chan []byte

	Register   chan *Client
	Unregister chan *Client

	quit     chan struct{}
	stopOnce sync.Once

	mutex sync.RWMutex

	// Statistics
	connectedClients int
	lastBroadcast    time.Time
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// Stop makes Run return and disconnects every listener.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Run is the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.mutex.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.connectedClients = 0
			h.mutex.Unlock()
			metrics.WebsocketClients.Set(0)
			return

		case client := <-h.Register:
			h.mutex.Lock()
			h.clients[client] = true
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
			metrics.WebsocketClients.Set(float64(h.connectedClients))
			log.Infof("Escalation listener connected. Total listeners: %d", h.connectedClients)

		case client := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.connectedClients = len(h.clients)
			}
			h.mutex.Unlock()
			metrics.WebsocketClients.Set(float64(h.connectedClients))
			log.Infof("Escalation listener disconnected. Total listeners: %d", h.connectedClients)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow consumer
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.connectedClients = len(h.clients)
			h.lastBroadcast = time.Now()
			h.mutex.Unlock()
		}
	}
}

// BroadcastEscalation queues an escalation for every listener. It never blocks the caller;
// when the queue is full the event is dropped.
func (h *Hub) BroadcastEscalation(e models.Escalation) {
	message := models.BroadcastMessage{
		Type:      "escalation",
		Data:      e,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Errorf("Failed to marshal broadcast message: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		log.Warn("Broadcast queue full, dropping escalation")
	}
}

// GetStats returns the number of listeners and the time of the last broadcast.
func (h *Hub) GetStats() (int, time.Time) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connectedClients, h.lastBroadcast
}
