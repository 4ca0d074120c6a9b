package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
)

// OrderStatuses lists the lifecycle in progression order.
var OrderStatuses = []OrderStatus{OrderPending, OrderPreparing, OrderReady, OrderDelivered}

func (s OrderStatus) Valid() bool {
	return s.Rank() >= 0
}

// Rank is the position of s in the lifecycle, or -1 for unknown values.
func (s OrderStatus) Rank() int {
	for i, status := range OrderStatuses {
		if status == s {
			return i
		}
	}
	return -1
}

type OrderItem struct {
	ItemID   string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type Order struct {
	OrderID     string      `json:"id"`
	TableNumber int         `json:"table_number"`
	Items       []OrderItem `json:"items"`
	Total       float64     `json:"total"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
