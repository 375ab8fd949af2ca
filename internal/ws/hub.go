package ws

import "sync"

// Subscriber abstracts a streaming monitor client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans ingested-recording events out to monitor subscriptions, keyed by
// participant ID. The reserved key "*" receives every event.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
}

// AllParticipants subscribes a monitor to every participant's events.
const AllParticipants = "*"

type message struct {
	participantID string
	payload       []byte
}

type subscription struct {
	participantID string
	client        Subscriber
}

// NewHub creates an initialized Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.clients[sub.participantID]; !ok {
				h.clients[sub.participantID] = make(map[Subscriber]struct{})
			}
			h.clients[sub.participantID][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.clients[sub.participantID]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.clients, sub.participantID)
				}
			}
		case msg := <-h.broadcast:
			h.deliver(msg.participantID, msg.payload)
			h.deliver(AllParticipants, msg.payload)
		}
	}
}

func (h *Hub) deliver(key string, payload []byte) {
	clients, ok := h.clients[key]
	if !ok {
		return
	}
	for c := range clients {
		if err := c.Send(payload); err != nil {
			c.Close()
			delete(clients, c)
		}
	}
	if len(clients) == 0 {
		delete(h.clients, key)
	}
}

// Register adds a monitor for one participant (or AllParticipants).
func (h *Hub) Register(participantID string, client Subscriber) {
	h.register <- subscription{participantID: participantID, client: client}
}

// Unregister removes a monitor.
func (h *Hub) Unregister(participantID string, client Subscriber) {
	h.unreg <- subscription{participantID: participantID, client: client}
}

// Broadcast sends payload to the participant's monitors and to wildcard
// monitors.
func (h *Hub) Broadcast(participantID string, payload []byte) {
	h.broadcast <- message{participantID: participantID, payload: payload}
}
