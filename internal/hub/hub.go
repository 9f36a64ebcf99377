// Package hub fans rendered payloads out to connected portal clients. Every
// client is registered under the identity that owns its stream, so a message
// for one identity is never delivered to another.
package hub

import "log/slog"

// Subscriber represents a single connected client.
type Subscriber struct {
	// UserID is the identity that owns this stream.
	UserID string

	// Send is a buffered channel of outbound payloads. The hub writes to it;
	// the client drains it.
	Send chan []byte
}

type directMessage struct {
	userID  string
	payload []byte
}

// Hub is a concurrent fan-out bus keyed by identity.
type Hub struct {
	subscribers map[string]map[*Subscriber]bool // userID -> subscribers

	// Register is a channel for new subscribers to register with the hub.
	Register chan *Subscriber

	// Unregister is a channel for subscribers to unregister from the hub.
	Unregister chan *Subscriber

	direct chan directMessage
}

// NewHub creates and returns a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Subscriber]bool),
		Register:    make(chan *Subscriber),
		Unregister:  make(chan *Subscriber),
		direct:      make(chan directMessage),
	}
}

// SendToUser delivers a payload to every stream owned by one identity.
func (h *Hub) SendToUser(userID string, payload []byte) {
	h.direct <- directMessage{userID: userID, payload: payload}
}

// Run starts the hub's processing loop. It must be run in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.Register:
			if h.subscribers[sub.UserID] == nil {
				h.subscribers[sub.UserID] = make(map[*Subscriber]bool)
			}
			h.subscribers[sub.UserID][sub] = true
			slog.Info("Stream subscriber registered", "user", sub.UserID, "streams", len(h.subscribers[sub.UserID]))

		case sub := <-h.Unregister:
			if subs, ok := h.subscribers[sub.UserID]; ok {
				if _, ok := subs[sub]; ok {
					delete(subs, sub)
					close(sub.Send)
					if len(subs) == 0 {
						delete(h.subscribers, sub.UserID)
					}
					slog.Info("Stream subscriber unregistered", "user", sub.UserID)
				}
			}

		case msg := <-h.direct:
			for sub := range h.subscribers[msg.userID] {
				select {
				case sub.Send <- msg.payload:
				default:
					// The client's send buffer is full. We assume it's dead
					// or stuck, so we unregister it and close its channel.
					close(sub.Send)
					delete(h.subscribers[msg.userID], sub)
					slog.Warn("Unregistering slow stream subscriber", "user", msg.userID)
				}
			}
		}
	}
}
