package store

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"tableside/restaurant-service/internal/models"
)

const (
	totalTolerance = 0.005
	maxCallMessage = 280
	maxTableStatus = 32
)

var tableStatusPattern = regexp.MustCompile(`^[a-z_]+$`)

// PriceOrder snapshots each line from the menu and returns the computed total.
func PriceOrder(lines []OrderLineInput, menu map[string]models.MenuItem) ([]models.OrderItem, float64, error) {
	if len(lines) == 0 {
		return nil, 0, ErrEmptyOrder
	}
	items := make([]models.OrderItem, 0, len(lines))
	var total float64
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, 0, fmt.Errorf("%w: item %s quantity %d", ErrInvalidQuantity, line.ItemID, line.Quantity)
		}
		menuItem, ok := menu[line.ItemID]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrUnknownMenuItem, line.ItemID)
		}
		items = append(items, models.OrderItem{
			ItemID:   menuItem.ItemID,
			Name:     menuItem.Name,
			Price:    menuItem.Price,
			Quantity: line.Quantity,
		})
		total += menuItem.Price * float64(line.Quantity)
	}
	return items, roundCents(total), nil
}

// ReconcileTotal accepts a client-claimed total only when it matches the computed one.
func ReconcileTotal(computed float64, claimed *float64) (float64, error) {
	if claimed == nil {
		return computed, nil
	}
	if math.Abs(*claimed-computed) > totalTolerance {
		return 0, fmt.Errorf("%w: claimed %.2f, computed %.2f", ErrTotalMismatch, *claimed, computed)
	}
	return computed, nil
}

func ValidTableStatus(status string) bool {
	return len(status) <= maxTableStatus && tableStatusPattern.MatchString(status)
}

func NormalizeCallMessage(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return models.DefaultCallMessage
	}
	if utf8.RuneCountInString(message) > maxCallMessage {
		message = string([]rune(message)[:maxCallMessage])
	}
	return message
}

// NextTimestamp returns now, nudged past prev so that updated_at strictly increases.
func NextTimestamp(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Microsecond)
}

func roundCents(value float64) float64 {
	return math.Round(value*100) / 100
}
