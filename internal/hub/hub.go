// Package hub fans events out to connected staff screens.
package hub

import (
	"context"
	"encoding/json"
	"sync"

	"tableside/restaurant-service/internal/events"
	"tableside/restaurant-service/internal/models"

	"github.com/sirupsen/logrus"
)

var visibleTopics = map[models.Role][]string{
	models.RoleKitchen: {events.TopicOrders},
	models.RoleWaiter:  {events.TopicOrders, events.TopicCalls, events.TopicTables},
	models.RoleAdmin:   {events.TopicOrders, events.TopicTables, events.TopicMenu},
}

// Subscription is the set of topics a client wants. An empty set means every
// topic its role may see.
type Subscription map[string]bool

type Client struct {
	ID           string
	Role         models.Role
	Send         chan []byte
	Subscription Subscription
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *logrus.Logger
}

type SubscribeMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

func New(logger *logrus.Logger) *Hub {
	return &Hub{clients: make(map[string]*Client), logger: logger}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

// UpdateSubscription replaces the client's topics, dropping any its role may not see.
func (h *Hub) UpdateSubscription(client *Client, topics []string) {
	sub := Subscription{}
	for _, topic := range topics {
		if CanSee(client.Role, topic) {
			sub[topic] = true
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Subscription = sub
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish encodes the event once and queues it for every matching client.
func (h *Hub) Publish(_ context.Context, event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).WithField("event", event.Type).Error("encode event")
		return
	}
	h.Broadcast(payload, event.Topic)
}

func (h *Hub) Broadcast(payload []byte, topic string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !match(client, topic) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.logger.WithField("client", client.ID).Warn("drop message for slow client")
		}
	}
}

func CanSee(role models.Role, topic string) bool {
	for _, visible := range visibleTopics[role] {
		if visible == topic {
			return true
		}
	}
	return false
}

func match(client *Client, topic string) bool {
	if !CanSee(client.Role, topic) {
		return false
	}
	if len(client.Subscription) == 0 {
		return true
	}
	return client.Subscription[topic]
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}
