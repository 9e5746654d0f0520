package socket

import (
	"context"
	"encoding/json"
	"sync"

	"medirecords/pkg/logger"
	"medirecords/store"
)

const (
	SubscribedType = "SUBSCRIBED" // Sent once after a client joins a collection
	CreatedType    = "CREATED"
	UpdatedType    = "UPDATED"
	DeletedType    = "DELETED"

	broadcastBuffer = 256
	sendBuffer      = 64
)

type WSMessage struct {
	Type       string          `json:"type"`
	Collection string          `json:"collection"`
	ID         string          `json:"id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Hub fans change notifications out to the clients watching each collection.
// Rooms is only touched by the Run goroutine; mu guards reads from elsewhere.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client

	collections map[string]bool
	mu          sync.Mutex
	done        chan struct{}
}

func NewHub(collections ...string) *Hub {
	known := make(map[string]bool, len(collections))
	for _, c := range collections {
		known[c] = true
	}
	return &Hub{
		Rooms:       make(map[string]map[*Client]bool),
		Broadcast:   make(chan WSMessage, broadcastBuffer),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		collections: known,
		done:        make(chan struct{}),
	}
}

// Watches reports whether clients may subscribe to collection.
func (h *Hub) Watches(collection string) bool {
	return h.collections[collection]
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.Collection] == nil {
				h.Rooms[client.Collection] = make(map[*Client]bool)
			}
			h.Rooms[client.Collection][client] = true
			h.mu.Unlock()

			ack, _ := json.Marshal(WSMessage{Type: SubscribedType, Collection: client.Collection})
			client.Send <- ack
			logger.Sugar.Debugf("Client subscribed to %s", client.Collection)

		case client := <-h.Unregister:
			h.remove(client)

		case msg := <-h.Broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling %s message for %s: %v", msg.Type, msg.Collection, err)
				continue
			}

			h.mu.Lock()
			clients := make([]*Client, 0, len(h.Rooms[msg.Collection]))
			for client := range h.Rooms[msg.Collection] {
				clients = append(clients, client)
			}
			h.mu.Unlock()

			for _, client := range clients {
				select {
				case client.Send <- payload:
				default:
					logger.Sugar.Warnf("Client on %s is not keeping up. Disconnecting.", msg.Collection)
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.Rooms[client.Collection]
	if _, ok := room[client]; !ok {
		return
	}
	delete(room, client)
	close(client.Send)
	if len(room) == 0 {
		delete(h.Rooms, client.Collection)
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for collection, room := range h.Rooms {
		for client := range room {
			close(client.Send)
		}
		delete(h.Rooms, collection)
	}
}

// Notify queues a change for broadcast. It never blocks; when the queue is
// full the change is dropped.
func (h *Hub) Notify(collection, event, id string, doc store.Document) {
	var payload json.RawMessage
	if doc != nil {
		data, err := json.Marshal(doc)
		if err != nil {
			logger.Sugar.Errorf("Error marshalling %s %s payload: %v", collection, id, err)
			return
		}
		payload = data
	}

	select {
	case h.Broadcast <- WSMessage{Type: event, Collection: collection, ID: id, Payload: payload}:
	default:
		logger.Sugar.Warnf("Change feed queue full, dropping %s %s %s", event, collection, id)
	}
}

// Subscribers reports how many clients watch collection.
func (h *Hub) Subscribers(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Rooms[collection])
}
