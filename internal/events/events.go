// Package events describes the state changes the service announces after a
// successful mutation and the publishers that carry them.
package events

import (
	"context"
	"time"
)

const (
	OrderCreated = "order.created"
	OrderUpdated = "order.updated"
	TableUpdated = "table.updated"
	CallCreated  = "call.created"
	CallClosed   = "call.closed"
	MenuUpdated  = "menu.updated"
)

const (
	TopicOrders = "orders"
	TopicCalls  = "calls"
	TopicTables = "tables"
	TopicMenu   = "menu"
)

var topics = map[string]string{
	OrderCreated: TopicOrders,
	OrderUpdated: TopicOrders,
	TableUpdated: TopicTables,
	CallCreated:  TopicCalls,
	CallClosed:   TopicCalls,
	MenuUpdated:  TopicMenu,
}

type Event struct {
	Type      string    `json:"type"`
	Topic     string    `json:"topic"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// New stamps an event with its topic and creation time.
func New(eventType string, payload any, now time.Time) Event {
	return Event{
		Type:      eventType,
		Topic:     topics[eventType],
		Payload:   payload,
		CreatedAt: now,
	}
}

// Publisher delivers events. Implementations must not block the request path
// for long and report failures only through their own logging.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Multi fans an event out to every publisher in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) {
	for _, publisher := range m {
		if publisher != nil {
			publisher.Publish(ctx, event)
		}
	}
}
