package models

type Category struct {
	CategoryID string `json:"id"`
	Name       string `json:"name"`
}

type MenuItem struct {
	ItemID     string  `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	CategoryID string  `json:"category"`
}
