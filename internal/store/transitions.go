package store

import (
	"fmt"

	"tableside/restaurant-service/internal/models"
)

var transitionMap = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:   {models.OrderPreparing},
	models.OrderPreparing: {models.OrderReady},
	models.OrderReady:     {models.OrderDelivered},
}

// ValidTransition reports whether an order may move from one status to another.
// With allowSkip any forward move is legal; otherwise only the next step is.
func ValidTransition(from, to models.OrderStatus, allowSkip bool) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if allowSkip {
		return to.Rank() > from.Rank()
	}
	for _, next := range transitionMap[from] {
		if next == to {
			return true
		}
	}
	return false
}

func CheckTransition(from, to models.OrderStatus, allowSkip bool) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if !ValidTransition(from, to, allowSkip) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
