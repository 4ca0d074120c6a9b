package models

// TableCount is the size of the dining room. Tables are numbered 1..TableCount.
const TableCount = 30

const (
	TableEmpty    = "empty"
	TableOccupied = "occupied"
)

type Table struct {
	Number int    `json:"number"`
	Status string `json:"status"`
}

func ValidTableNumber(number int) bool {
	return number >= 1 && number <= TableCount
}
