package events

import (
	"context"
	"testing"
	"time"
)

type recorder struct {
	events []Event
}

func (r *recorder) Publish(_ context.Context, event Event) {
	r.events = append(r.events, event)
}

func TestNewAssignsTopic(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cases := map[string]string{
		OrderCreated: TopicOrders,
		OrderUpdated: TopicOrders,
		TableUpdated: TopicTables,
		CallCreated:  TopicCalls,
		CallClosed:   TopicCalls,
		MenuUpdated:  TopicMenu,
	}
	for eventType, topic := range cases {
		event := New(eventType, nil, now)
		if event.Topic != topic {
			t.Fatalf("%s: expected topic %s, got %s", eventType, topic, event.Topic)
		}
		if !event.CreatedAt.Equal(now) {
			t.Fatalf("%s: expected created_at %v, got %v", eventType, now, event.CreatedAt)
		}
	}
}

func TestMultiPublishesToAll(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	multi := Multi{a, nil, Nop{}, b}
	multi.Publish(context.Background(), New(CallCreated, map[string]int{"table_number": 4}, time.Now()))

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected both publishers to receive the event, got %d and %d", len(a.events), len(b.events))
	}
}
