package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"tableside/restaurant-service/internal/models"
)

func testMenu() map[string]models.MenuItem {
	return map[string]models.MenuItem{
		"1": {ItemID: "1", Name: "Grilled Meatballs", Price: 120, CategoryID: "1"},
		"4": {ItemID: "4", Name: "Ayran", Price: 15, CategoryID: "2"},
		"9": {ItemID: "9", Name: "Espresso", Price: 2.35, CategoryID: "2"},
	}
}

func TestPriceOrder(t *testing.T) {
	items, total, err := PriceOrder([]OrderLineInput{{ItemID: "1", Quantity: 1}, {ItemID: "4", Quantity: 2}}, testMenu())
	if err != nil {
		t.Fatalf("price order: %v", err)
	}
	if total != 150 {
		t.Fatalf("expected total 150, got %v", total)
	}
	if len(items) != 2 || items[1].Name != "Ayran" || items[1].Price != 15 || items[1].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestPriceOrderRoundsCents(t *testing.T) {
	_, total, err := PriceOrder([]OrderLineInput{{ItemID: "9", Quantity: 3}}, testMenu())
	if err != nil {
		t.Fatalf("price order: %v", err)
	}
	if total != 7.05 {
		t.Fatalf("expected 7.05, got %v", total)
	}
}

func TestPriceOrderErrors(t *testing.T) {
	cases := []struct {
		name  string
		lines []OrderLineInput
		want  error
	}{
		{"empty", nil, ErrEmptyOrder},
		{"unknown item", []OrderLineInput{{ItemID: "99", Quantity: 1}}, ErrUnknownMenuItem},
		{"zero quantity", []OrderLineInput{{ItemID: "1", Quantity: 0}}, ErrInvalidQuantity},
		{"negative quantity", []OrderLineInput{{ItemID: "1", Quantity: -2}}, ErrInvalidQuantity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := PriceOrder(tc.lines, testMenu()); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestReconcileTotal(t *testing.T) {
	claimed := 150.0
	if got, err := ReconcileTotal(150, &claimed); err != nil || got != 150 {
		t.Fatalf("expected 150, got %v (%v)", got, err)
	}
	if got, err := ReconcileTotal(150, nil); err != nil || got != 150 {
		t.Fatalf("expected computed total when omitted, got %v (%v)", got, err)
	}
	wrong := 100.0
	if _, err := ReconcileTotal(150, &wrong); !errors.Is(err, ErrTotalMismatch) {
		t.Fatalf("expected ErrTotalMismatch, got %v", err)
	}
}

func TestValidTableStatus(t *testing.T) {
	valid := []string{"empty", "occupied", "needs_cleaning"}
	invalid := []string{"", "Occupied", "two words", strings.Repeat("a", 33), "dirty!"}
	for _, status := range valid {
		if !ValidTableStatus(status) {
			t.Fatalf("expected %q to be valid", status)
		}
	}
	for _, status := range invalid {
		if ValidTableStatus(status) {
			t.Fatalf("expected %q to be invalid", status)
		}
	}
}

func TestNormalizeCallMessage(t *testing.T) {
	if got := NormalizeCallMessage("   "); got != models.DefaultCallMessage {
		t.Fatalf("expected default message, got %q", got)
	}
	if got := NormalizeCallMessage(" bill please "); got != "bill please" {
		t.Fatalf("expected trimmed message, got %q", got)
	}
	if got := NormalizeCallMessage(strings.Repeat("ş", 400)); len([]rune(got)) != maxCallMessage {
		t.Fatalf("expected %d runes, got %d", maxCallMessage, len([]rune(got)))
	}
}

func TestNextTimestamp(t *testing.T) {
	prev := time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)
	if got := NextTimestamp(prev, prev); !got.After(prev) {
		t.Fatalf("expected timestamp after %v, got %v", prev, got)
	}
	later := prev.Add(time.Second)
	if got := NextTimestamp(prev, later); !got.Equal(later) {
		t.Fatalf("expected %v, got %v", later, got)
	}
}
