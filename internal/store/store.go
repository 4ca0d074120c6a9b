package store

import (
	"context"
	"time"

	"tableside/restaurant-service/internal/models"
)

type LoginInput struct {
	Username string
	Password string
	// ReplaceSessionID is the caller's current token, dropped when the login succeeds.
	ReplaceSessionID string
	IssuedAt         time.Time
	TTL              time.Duration
}

type LoginResult struct {
	User    models.User
	Session models.Session
}

type CategoryInput struct {
	CategoryID string
	Name       string
}

// MenuItemInput carries a partial update when ItemID is set; nil fields keep their value.
type MenuItemInput struct {
	ItemID     string
	Name       *string
	Price      *float64
	CategoryID *string
}

type OrderLineInput struct {
	ItemID   string
	Quantity int
}

type CreateOrderInput struct {
	TableNumber int
	Items       []OrderLineInput
	Total       *float64
	CreatedAt   time.Time
}

type AdvanceOrderInput struct {
	OrderID    string
	Status     models.OrderStatus
	AllowSkip  bool
	OccurredAt time.Time
}

type CreateCallInput struct {
	TableNumber int
	Message     string
	CreatedAt   time.Time
}

type OrderSummary struct {
	TotalOrders   int     `json:"total_orders"`
	TotalRevenue  float64 `json:"total_revenue"`
	PeriodOrders  int     `json:"period_orders"`
	PeriodRevenue float64 `json:"period_revenue"`
}

type Store interface {
	Login(ctx context.Context, input LoginInput) (LoginResult, error)
	GetSession(ctx context.Context, sessionID string) (models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	UpsertCategory(ctx context.Context, input CategoryInput) (models.Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error
	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
	UpsertMenuItem(ctx context.Context, input MenuItemInput) (models.MenuItem, error)
	DeleteMenuItem(ctx context.Context, itemID string) error

	ListTables(ctx context.Context) ([]models.Table, error)
	UpdateTableStatus(ctx context.Context, number int, status string) (models.Table, error)

	CreateOrder(ctx context.Context, input CreateOrderInput) (models.Order, error)
	GetOrder(ctx context.Context, orderID string) (models.Order, error)
	ListOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	AdvanceOrder(ctx context.Context, input AdvanceOrderInput) (models.Order, error)
	SummarizeOrders(ctx context.Context, from time.Time) (OrderSummary, error)

	CreateCall(ctx context.Context, input CreateCallInput) (models.Call, error)
	ListCalls(ctx context.Context, status string) ([]models.Call, error)
	DeleteCall(ctx context.Context, callID string) error
}
