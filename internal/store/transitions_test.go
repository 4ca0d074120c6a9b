package store

import (
	"errors"
	"testing"

	"tableside/restaurant-service/internal/models"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from      models.OrderStatus
		to        models.OrderStatus
		allowSkip bool
		valid     bool
	}{
		{"pending", "preparing", false, true},
		{"preparing", "ready", false, true},
		{"ready", "delivered", false, true},
		{"pending", "ready", false, false},
		{"pending", "delivered", false, false},
		{"pending", "ready", true, true},
		{"preparing", "delivered", true, true},
		{"ready", "preparing", false, false},
		{"ready", "preparing", true, false},
		{"delivered", "pending", true, false},
		{"pending", "pending", false, false},
		{"pending", "pending", true, false},
		{"pending", "cooking", true, false},
		{"unknown", "ready", true, false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.from, tt.to, tt.allowSkip); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q, %v)=%v, want %v", tt.from, tt.to, tt.allowSkip, got, tt.valid)
		}
	}
}

func TestCheckTransitionErrors(t *testing.T) {
	if err := CheckTransition(models.OrderPending, "cooking", false); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if err := CheckTransition(models.OrderDelivered, models.OrderReady, false); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := CheckTransition(models.OrderPending, models.OrderPreparing, false); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
