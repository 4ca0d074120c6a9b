// Package filestore keeps each collection in its own JSON file under a data
// directory. It is the default backend when no database is configured.
package filestore

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"tableside/restaurant-service/internal/models"
	"tableside/restaurant-service/internal/store"

	"github.com/google/uuid"
)

const (
	menuItemSequence = "menu_item"
	categorySequence = "category"
)

type Options struct {
	Seed store.Seed
	Now  func() time.Time
}

type Store struct {
	users      *collection[models.User]
	sessions   *collection[models.Session]
	categories *collection[models.Category]
	menu       *collection[models.MenuItem]
	tables     *collection[models.Table]
	orders     *collection[models.Order]
	calls      *collection[models.Call]
	sequences  *collection[sequence]
	now        func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open prepares dir and seeds every collection that has no file yet.
func Open(dir string, options Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	now := options.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	s := &Store{
		users:      newCollection[models.User](dir, "users"),
		sessions:   newCollection[models.Session](dir, "sessions"),
		categories: newCollection[models.Category](dir, "categories"),
		menu:       newCollection[models.MenuItem](dir, "menu"),
		tables:     newCollection[models.Table](dir, "tables"),
		orders:     newCollection[models.Order](dir, "orders"),
		calls:      newCollection[models.Call](dir, "calls"),
		sequences:  newCollection[sequence](dir, "sequences"),
		now:        now,
	}

	tables := options.Seed.Tables
	if len(tables) == 0 {
		tables = store.DefaultTables()
	}
	seeds := []func() error{
		func() error { return s.users.seed(options.Seed.Users) },
		func() error { return s.sessions.seed(nil) },
		func() error { return s.categories.seed(options.Seed.Categories) },
		func() error { return s.menu.seed(options.Seed.MenuItems) },
		func() error { return s.tables.seed(tables) },
		func() error { return s.orders.seed(nil) },
		func() error { return s.calls.seed(nil) },
		func() error { return s.sequences.seed(nil) },
	}
	for _, seed := range seeds {
		if err := seed(); err != nil {
			return nil, fmt.Errorf("seed data: %w", err)
		}
	}
	return s, nil
}

func (s *Store) Login(ctx context.Context, input store.LoginInput) (store.LoginResult, error) {
	users, err := s.users.all()
	if err != nil {
		return store.LoginResult{}, err
	}
	var user models.User
	found := false
	for _, candidate := range users {
		if candidate.Username == input.Username {
			user = candidate
			found = true
			break
		}
	}
	if !found {
		return store.LoginResult{}, store.ErrInvalidCredentials
	}
	if err := store.VerifyPassword(user.PasswordHash, input.Password); err != nil {
		return store.LoginResult{}, err
	}

	issuedAt := input.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = s.now()
	}
	session := store.NewSession(user, issuedAt, input.TTL)
	err = s.sessions.update(func(records []models.Session) ([]models.Session, error) {
		kept := records[:0]
		for _, existing := range records {
			if existing.SessionID == input.ReplaceSessionID || existing.Expired(issuedAt) {
				continue
			}
			kept = append(kept, existing)
		}
		return append(kept, session), nil
	})
	if err != nil {
		return store.LoginResult{}, err
	}
	return store.LoginResult{User: user, Session: session}, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	sessions, err := s.sessions.all()
	if err != nil {
		return models.Session{}, err
	}
	for _, session := range sessions {
		if session.SessionID != sessionID {
			continue
		}
		if session.Expired(s.now()) {
			return models.Session{}, store.ErrSessionNotFound
		}
		return session, nil
	}
	return models.Session{}, store.ErrSessionNotFound
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	return s.sessions.update(func(records []models.Session) ([]models.Session, error) {
		kept := records[:0]
		for _, session := range records {
			if session.SessionID != sessionID {
				kept = append(kept, session)
			}
		}
		return kept, nil
	})
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.all()
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

func (s *Store) UpsertCategory(ctx context.Context, input store.CategoryInput) (models.Category, error) {
	var result models.Category
	err := s.categories.update(func(records []models.Category) ([]models.Category, error) {
		if input.CategoryID != "" {
			for i := range records {
				if records[i].CategoryID == input.CategoryID {
					records[i].Name = input.Name
					result = records[i]
					return records, nil
				}
			}
			return nil, store.ErrCategoryNotFound
		}
		ids := make([]string, 0, len(records))
		for _, category := range records {
			ids = append(ids, category.CategoryID)
		}
		next, err := s.next(categorySequence, maxNumericID(ids))
		if err != nil {
			return nil, err
		}
		result = models.Category{CategoryID: strconv.Itoa(next), Name: input.Name}
		return append(records, result), nil
	})
	if err != nil {
		return models.Category{}, err
	}
	return result, nil
}

func (s *Store) DeleteCategory(ctx context.Context, categoryID string) error {
	return s.categories.update(func(records []models.Category) ([]models.Category, error) {
		items, err := s.menu.all()
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if item.CategoryID == categoryID {
				return nil, store.ErrCategoryInUse
			}
		}
		kept := records[:0]
		for _, category := range records {
			if category.CategoryID != categoryID {
				kept = append(kept, category)
			}
		}
		return kept, nil
	})
}

func (s *Store) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	items, err := s.menu.all()
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.MenuItem{}
	}
	return items, nil
}

// UpsertMenuItem holds the categories lock while writing the menu, the same
// order DeleteCategory takes them, so an item never lands in a category that
// is being deleted.
func (s *Store) UpsertMenuItem(ctx context.Context, input store.MenuItemInput) (models.MenuItem, error) {
	var result models.MenuItem
	err := s.categories.view(func(categories []models.Category) error {
		if input.CategoryID != nil && !hasCategory(categories, *input.CategoryID) {
			return store.ErrCategoryMissing
		}
		var err error
		result, err = s.writeMenuItem(input)
		return err
	})
	if err != nil {
		return models.MenuItem{}, err
	}
	return result, nil
}

func (s *Store) writeMenuItem(input store.MenuItemInput) (models.MenuItem, error) {
	var result models.MenuItem
	err := s.menu.update(func(records []models.MenuItem) ([]models.MenuItem, error) {
		if input.ItemID != "" {
			for i := range records {
				if records[i].ItemID != input.ItemID {
					continue
				}
				applyMenuInput(&records[i], input)
				result = records[i]
				return records, nil
			}
			return nil, store.ErrMenuItemNotFound
		}
		if input.Name == nil || input.Price == nil || input.CategoryID == nil {
			return nil, store.ErrInvalidMenuItem
		}
		ids := make([]string, 0, len(records))
		for _, item := range records {
			ids = append(ids, item.ItemID)
		}
		next, err := s.next(menuItemSequence, maxNumericID(ids))
		if err != nil {
			return nil, err
		}
		result = models.MenuItem{ItemID: strconv.Itoa(next)}
		applyMenuInput(&result, input)
		return append(records, result), nil
	})
	if err != nil {
		return models.MenuItem{}, err
	}
	return result, nil
}

func (s *Store) DeleteMenuItem(ctx context.Context, itemID string) error {
	return s.menu.update(func(records []models.MenuItem) ([]models.MenuItem, error) {
		kept := records[:0]
		for _, item := range records {
			if item.ItemID != itemID {
				kept = append(kept, item)
			}
		}
		return kept, nil
	})
}

func (s *Store) ListTables(ctx context.Context) ([]models.Table, error) {
	tables, err := s.tables.all()
	if err != nil {
		return nil, err
	}
	if tables == nil {
		tables = []models.Table{}
	}
	return tables, nil
}

func (s *Store) UpdateTableStatus(ctx context.Context, number int, status string) (models.Table, error) {
	if !models.ValidTableNumber(number) {
		return models.Table{}, store.ErrTableNotFound
	}
	if !store.ValidTableStatus(status) {
		return models.Table{}, store.ErrInvalidTableStatus
	}
	var result models.Table
	err := s.tables.update(func(records []models.Table) ([]models.Table, error) {
		for i := range records {
			if records[i].Number == number {
				records[i].Status = status
				result = records[i]
				return records, nil
			}
		}
		return nil, store.ErrTableNotFound
	})
	if err != nil {
		return models.Table{}, err
	}
	return result, nil
}

func (s *Store) CreateOrder(ctx context.Context, input store.CreateOrderInput) (models.Order, error) {
	items, err := s.menu.all()
	if err != nil {
		return models.Order{}, err
	}
	menu := make(map[string]models.MenuItem, len(items))
	for _, item := range items {
		menu[item.ItemID] = item
	}
	lines, computed, err := store.PriceOrder(input.Items, menu)
	if err != nil {
		return models.Order{}, err
	}
	total, err := store.ReconcileTotal(computed, input.Total)
	if err != nil {
		return models.Order{}, err
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	order := models.Order{
		OrderID:     uuid.NewString(),
		TableNumber: input.TableNumber,
		Items:       lines,
		Total:       total,
		Status:      models.OrderPending,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	err = s.orders.update(func(records []models.Order) ([]models.Order, error) {
		return append(records, order), nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	orders, err := s.orders.all()
	if err != nil {
		return models.Order{}, err
	}
	for _, order := range orders {
		if order.OrderID == orderID {
			return order, nil
		}
	}
	return models.Order{}, store.ErrOrderNotFound
}

func (s *Store) ListOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	orders, err := s.orders.all()
	if err != nil {
		return nil, err
	}
	return store.FilterOrders(orders, status), nil
}

func (s *Store) AdvanceOrder(ctx context.Context, input store.AdvanceOrderInput) (models.Order, error) {
	var result models.Order
	err := s.orders.update(func(records []models.Order) ([]models.Order, error) {
		for i := range records {
			if records[i].OrderID != input.OrderID {
				continue
			}
			if err := store.CheckTransition(records[i].Status, input.Status, input.AllowSkip); err != nil {
				return nil, err
			}
			occurredAt := input.OccurredAt
			if occurredAt.IsZero() {
				occurredAt = s.now()
			}
			records[i].Status = input.Status
			records[i].UpdatedAt = store.NextTimestamp(records[i].UpdatedAt, occurredAt)
			result = records[i]
			return records, nil
		}
		return nil, store.ErrOrderNotFound
	})
	if err != nil {
		return models.Order{}, err
	}
	return result, nil
}

func (s *Store) SummarizeOrders(ctx context.Context, from time.Time) (store.OrderSummary, error) {
	orders, err := s.orders.all()
	if err != nil {
		return store.OrderSummary{}, err
	}
	return store.Summarize(orders, from), nil
}

func (s *Store) CreateCall(ctx context.Context, input store.CreateCallInput) (models.Call, error) {
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	call := models.Call{
		CallID:      uuid.NewString(),
		TableNumber: input.TableNumber,
		Message:     store.NormalizeCallMessage(input.Message),
		Status:      models.CallPending,
		CreatedAt:   createdAt,
	}
	err := s.calls.update(func(records []models.Call) ([]models.Call, error) {
		return append(records, call), nil
	})
	if err != nil {
		return models.Call{}, err
	}
	return call, nil
}

func (s *Store) ListCalls(ctx context.Context, status string) ([]models.Call, error) {
	calls, err := s.calls.all()
	if err != nil {
		return nil, err
	}
	filtered := make([]models.Call, 0, len(calls))
	for _, call := range calls {
		if status == "" || call.Status == status {
			filtered = append(filtered, call)
		}
	}
	return filtered, nil
}

func (s *Store) DeleteCall(ctx context.Context, callID string) error {
	return s.calls.update(func(records []models.Call) ([]models.Call, error) {
		kept := records[:0]
		for _, call := range records {
			if call.CallID != callID {
				kept = append(kept, call)
			}
		}
		return kept, nil
	})
}

func applyMenuInput(item *models.MenuItem, input store.MenuItemInput) {
	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Price != nil {
		item.Price = *input.Price
	}
	if input.CategoryID != nil {
		item.CategoryID = *input.CategoryID
	}
}

func hasCategory(categories []models.Category, categoryID string) bool {
	for _, category := range categories {
		if category.CategoryID == categoryID {
			return true
		}
	}
	return false
}
