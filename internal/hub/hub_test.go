package hub

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"tableside/restaurant-service/internal/events"
	"tableside/restaurant-service/internal/models"

	"github.com/sirupsen/logrus"
)

func newTestHub() *Hub {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(logger)
}

func TestPublishRespectsRoleVisibility(t *testing.T) {
	h := newTestHub()
	kitchen := &Client{ID: "k", Role: models.RoleKitchen, Send: make(chan []byte, 4)}
	waiter := &Client{ID: "w", Role: models.RoleWaiter, Send: make(chan []byte, 4)}
	admin := &Client{ID: "a", Role: models.RoleAdmin, Send: make(chan []byte, 4)}
	h.Register(kitchen)
	h.Register(waiter)
	h.Register(admin)

	h.Publish(context.Background(), events.New(events.CallCreated, map[string]int{"table_number": 3}, time.Now()))

	if len(waiter.Send) != 1 {
		t.Fatalf("expected waiter to receive call, got %d messages", len(waiter.Send))
	}
	if len(kitchen.Send) != 0 || len(admin.Send) != 0 {
		t.Fatalf("calls must only reach waiters, kitchen=%d admin=%d", len(kitchen.Send), len(admin.Send))
	}

	var decoded events.Event
	if err := json.Unmarshal(<-waiter.Send, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != events.CallCreated || decoded.Topic != events.TopicCalls {
		t.Fatalf("unexpected event %+v", decoded)
	}
}

func TestSubscriptionNarrowsTopics(t *testing.T) {
	h := newTestHub()
	waiter := &Client{ID: "w", Role: models.RoleWaiter, Send: make(chan []byte, 4)}
	h.Register(waiter)
	h.UpdateSubscription(waiter, []string{events.TopicTables, events.TopicMenu})

	if waiter.Subscription[events.TopicMenu] {
		t.Fatalf("waiter must not subscribe to menu")
	}

	h.Publish(context.Background(), events.New(events.OrderCreated, nil, time.Now()))
	h.Publish(context.Background(), events.New(events.TableUpdated, nil, time.Now()))
	if len(waiter.Send) != 1 {
		t.Fatalf("expected only the table event, got %d messages", len(waiter.Send))
	}
}

func TestBroadcastDropsForSlowClient(t *testing.T) {
	h := newTestHub()
	kitchen := &Client{ID: "k", Role: models.RoleKitchen, Send: make(chan []byte, 1)}
	h.Register(kitchen)

	h.Broadcast([]byte("one"), events.TopicOrders)
	h.Broadcast([]byte("two"), events.TopicOrders)
	if len(kitchen.Send) != 1 {
		t.Fatalf("expected buffered message only, got %d", len(kitchen.Send))
	}

	h.Unregister(kitchen)
	h.Unregister(kitchen)
	if h.Clients() != 0 {
		t.Fatalf("expected no clients, got %d", h.Clients())
	}
}

func TestParseSubscribe(t *testing.T) {
	msg, ok := ParseSubscribe([]byte(`{"action":"subscribe","topics":["orders"]}`))
	if !ok || len(msg.Topics) != 1 {
		t.Fatalf("expected subscribe message, got %+v %v", msg, ok)
	}
	if _, ok := ParseSubscribe([]byte(`{"action":"dance"}`)); ok {
		t.Fatalf("expected unknown action to be rejected")
	}
	if _, ok := ParseSubscribe([]byte(`not json`)); ok {
		t.Fatalf("expected invalid json to be rejected")
	}
}
