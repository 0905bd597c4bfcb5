package websocket

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/taskflow-be/internal/models"
)

type directMessage struct {
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	// Registered clients. Owned by the Run goroutine.
	clients map[*Client]bool

	// Outbound messages for every client.
	broadcast chan []byte

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Messages for a single client.
	direct chan directMessage

	online atomic.Int64
	done   chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan directMessage, 64),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.online.Store(0)
			return
		case client := <-h.register:
			h.clients[client] = true
			log.Info().Int("total_clients", len(h.clients)).Msg("Client connected")
			h.announceCount()
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
				h.announceCount()
			}
		case message := <-h.broadcast:
			h.fanOut(message)
		case d := <-h.direct:
			if _, ok := h.clients[d.client]; ok {
				select {
				case d.client.Send <- d.message:
				default:
				}
			}
		}
	}
}

// Stop ends the Run loop and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// Register adds a client. It is a no-op once the hub has stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish broadcasts an event to every connected client. Delivery is best-effort.
func (h *Hub) Publish(event string, payload interface{}) {
	msg := Encode(event, payload)
	if msg == nil {
		return
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Send queues a message for one client. It is dropped if the client is no
// longer registered or its buffer is full.
func (h *Hub) Send(client *Client, message []byte) {
	select {
	case h.direct <- directMessage{client: client, message: message}:
	case <-h.done:
	}
}

// OnlineCount returns the number of connected clients.
func (h *Hub) OnlineCount() int {
	return int(h.online.Load())
}

func (h *Hub) announceCount() {
	h.online.Store(int64(len(h.clients)))
	h.fanOut(Encode(models.EventUsersOnline, models.OnlineUsersEvent{Count: len(h.clients)}))
}

// fanOut drops clients whose send buffer is full.
func (h *Hub) fanOut(message []byte) {
	for client := range h.clients {
		select {
		case client.Send <- message:
		default:
			close(client.Send)
			delete(h.clients, client)
			log.Warn().Str("client_id", client.ID).Msg("Dropping slow websocket client")
		}
	}
	h.online.Store(int64(len(h.clients)))
}
