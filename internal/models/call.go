package models

import "time"

const (
	CallPending = "pending"
	CallClosed  = "closed"

	DefaultCallMessage = "waiter requested"
)

type Call struct {
	CallID      string    `json:"id"`
	TableNumber int       `json:"table_number"`
	Message     string    `json:"message"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
