package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/resto-order/api/internal/database"
	"github.com/resto-order/api/internal/service"
)

// AdminRoom receives the events of every branch.
var AdminRoom = uuid.Nil

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// roomEvent routes an event to one room.
type roomEvent struct {
	RoomID uuid.UUID
	Event  Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by room (branch id, or AdminRoom)
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *roomEvent

	// Closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is done, after closing
// every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for room, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.roomID] == nil {
				h.rooms[client.roomID] = make(map[*Client]bool)
			}
			h.rooms[client.roomID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				log.Printf("ERROR: marshal ws event %s: %v", event.Event.Type, err)
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.RoomID] {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, drop it
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove closes and forgets client. Callers hold h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.roomID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.roomID)
	}
}

// Register adds client to its room. It gives up once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client from its room.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToRoom queues event for every client of room. It never blocks:
// when the queue is full the event is dropped.
func (h *Hub) BroadcastToRoom(roomID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &roomEvent{RoomID: roomID, Event: event}:
	default:
		log.Printf("WARN: ws broadcast queue full, dropping %s for room %s", event.Type, roomID)
	}
}

// orderPayload is the order summary sent with every order event.
type orderPayload struct {
	ID           uuid.UUID  `json:"id"`
	Status       string     `json:"status"`
	DeliveryType string     `json:"delivery_type"`
	Source       string     `json:"source"`
	CustomerName string     `json:"customer_name"`
	BranchID     *uuid.UUID `json:"branch_id"`
	RiderID      *uuid.UUID `json:"rider_id"`
	TotalAmount  string     `json:"total_amount"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Notifier publishes order events to the hub.
// It satisfies service.OrderNotifier.
type Notifier struct {
	hub *Hub
}

var _ service.OrderNotifier = (*Notifier)(nil)

// NewNotifier creates a Notifier over hub.
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

// OrderEvent sends the event to the order's branch room and to the admin
// room.
func (n *Notifier) OrderEvent(event string, order database.Order) {
	p := orderPayload{
		ID:           order.ID,
		Status:       string(order.Status),
		DeliveryType: order.DeliveryType,
		Source:       order.Source,
		CustomerName: order.CustomerName,
		TotalAmount:  service.NumericToDecimal(order.TotalAmount).StringFixed(2),
		UpdatedAt:    order.UpdatedAt,
	}
	if order.BranchID.Valid {
		id := uuid.UUID(order.BranchID.Bytes)
		p.BranchID = &id
	}
	if order.RiderID.Valid {
		id := uuid.UUID(order.RiderID.Bytes)
		p.RiderID = &id
	}

	payload, err := json.Marshal(p)
	if err != nil {
		log.Printf("ERROR: marshal order payload %s: %v", order.ID, err)
		return
	}

	ev := Event{Type: event, Payload: payload}
	if p.BranchID != nil {
		n.hub.BroadcastToRoom(*p.BranchID, ev)
	}
	n.hub.BroadcastToRoom(AdminRoom, ev)
}
