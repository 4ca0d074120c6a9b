package store

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")

	ErrOrderNotFound      = errors.New("order not found")
	ErrTableNotFound      = errors.New("table not found")
	ErrMenuItemNotFound   = errors.New("menu item not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCategoryInUse      = errors.New("category in use")
	ErrCategoryMissing    = errors.New("menu item references an unknown category")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrInvalidTransition  = errors.New("invalid order transition")
	ErrInvalidTableStatus = errors.New("invalid table status")
	ErrEmptyOrder         = errors.New("order has no items")
	ErrUnknownMenuItem    = errors.New("unknown menu item")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrTotalMismatch      = errors.New("total does not match menu prices")
	ErrInvalidMenuItem    = errors.New("invalid menu item")
)
