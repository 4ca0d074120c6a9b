package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tableside/restaurant-service/internal/models"
	"tableside/restaurant-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const foreignKeyViolation = "23503"

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

type Options struct {
	Now func() time.Time
}

var _ store.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	now := options.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{pool: pool, now: now}
}

// EnsureSeed fills empty tables with seed data and moves the id sequences past
// any ids already present.
func (s *Store) EnsureSeed(ctx context.Context, seed store.Seed) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	empty, err := tableEmpty(ctx, tx, "users")
	if err != nil {
		return err
	}
	if empty {
		for _, user := range seed.Users {
			if _, err = tx.Exec(ctx, `
				INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3)
			`, user.Username, user.PasswordHash, string(user.Role)); err != nil {
				return fmt.Errorf("seed user %s: %w", user.Username, err)
			}
		}
	}

	if empty, err = tableEmpty(ctx, tx, "categories"); err != nil {
		return err
	}
	if empty {
		for _, category := range seed.Categories {
			if _, err = tx.Exec(ctx, `
				INSERT INTO categories (category_id, name) VALUES ($1, $2)
			`, category.CategoryID, category.Name); err != nil {
				return fmt.Errorf("seed category %s: %w", category.CategoryID, err)
			}
		}
	}

	if empty, err = tableEmpty(ctx, tx, "menu_items"); err != nil {
		return err
	}
	if empty {
		for _, item := range seed.MenuItems {
			if _, err = tx.Exec(ctx, `
				INSERT INTO menu_items (item_id, name, price, category_id) VALUES ($1, $2, $3, $4)
			`, item.ItemID, item.Name, item.Price, item.CategoryID); err != nil {
				return fmt.Errorf("seed menu item %s: %w", item.ItemID, err)
			}
		}
	}

	if empty, err = tableEmpty(ctx, tx, "dining_tables"); err != nil {
		return err
	}
	if empty {
		tables := seed.Tables
		if len(tables) == 0 {
			tables = store.DefaultTables()
		}
		for _, table := range tables {
			if _, err = tx.Exec(ctx, `
				INSERT INTO dining_tables (number, status) VALUES ($1, $2)
			`, table.Number, table.Status); err != nil {
				return fmt.Errorf("seed table %d: %w", table.Number, err)
			}
		}
	}

	if err = alignSequence(ctx, tx, "category_id_seq", "categories", "category_id"); err != nil {
		return err
	}
	if err = alignSequence(ctx, tx, "menu_item_id_seq", "menu_items", "item_id"); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Login(ctx context.Context, input store.LoginInput) (store.LoginResult, error) {
	var user models.User
	var role string
	row := s.pool.QueryRow(ctx, `
		SELECT username, password_hash, role FROM users WHERE username = $1
	`, input.Username)
	if err := row.Scan(&user.Username, &user.PasswordHash, &role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.LoginResult{}, store.ErrInvalidCredentials
		}
		return store.LoginResult{}, err
	}
	user.Role = models.Role(role)
	if err := store.VerifyPassword(user.PasswordHash, input.Password); err != nil {
		return store.LoginResult{}, err
	}

	issuedAt := input.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = s.now()
	}
	session := store.NewSession(user, issuedAt, input.TTL)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.LoginResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if _, err = tx.Exec(ctx, `
		DELETE FROM sessions WHERE session_id = $1 OR expires_at <= $2
	`, input.ReplaceSessionID, issuedAt); err != nil {
		return store.LoginResult{}, err
	}
	if _, err = tx.Exec(ctx, `
		INSERT INTO sessions (session_id, username, role, issued_at, expires_at) VALUES ($1, $2, $3, $4, $5)
	`, session.SessionID, session.Username, string(session.Role), session.IssuedAt, nullTime(session.ExpiresAt)); err != nil {
		return store.LoginResult{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return store.LoginResult{}, err
	}
	return store.LoginResult{User: user, Session: session}, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	var session models.Session
	var role string
	var expiresAt sql.NullTime
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, username, role, issued_at, expires_at
		FROM sessions
		WHERE session_id = $1 AND (expires_at IS NULL OR expires_at > $2)
	`, sessionID, s.now())
	if err := row.Scan(&session.SessionID, &session.Username, &role, &session.IssuedAt, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, store.ErrSessionNotFound
		}
		return models.Session{}, err
	}
	session.Role = models.Role(role)
	if expiresAt.Valid {
		session.ExpiresAt = expiresAt.Time
	}
	return session, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	return err
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category_id, name FROM categories ORDER BY length(category_id), category_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.CategoryID, &category.Name); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (s *Store) UpsertCategory(ctx context.Context, input store.CategoryInput) (models.Category, error) {
	var category models.Category
	if input.CategoryID != "" {
		row := s.pool.QueryRow(ctx, `
			UPDATE categories SET name = $2 WHERE category_id = $1 RETURNING category_id, name
		`, input.CategoryID, input.Name)
		if err := row.Scan(&category.CategoryID, &category.Name); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.Category{}, store.ErrCategoryNotFound
			}
			return models.Category{}, err
		}
		return category, nil
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO categories (category_id, name)
		VALUES (nextval('category_id_seq')::text, $1)
		RETURNING category_id, name
	`, input.Name)
	if err := row.Scan(&category.CategoryID, &category.Name); err != nil {
		return models.Category{}, err
	}
	return category, nil
}

func (s *Store) DeleteCategory(ctx context.Context, categoryID string) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `SELECT 1 FROM categories WHERE category_id = $1 FOR UPDATE`, categoryID); err != nil {
		return err
	}
	var inUse bool
	if err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM menu_items WHERE category_id = $1)
	`, categoryID).Scan(&inUse); err != nil {
		return err
	}
	if inUse {
		err = store.ErrCategoryInUse
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM categories WHERE category_id = $1`, categoryID); err != nil {
		return mapForeignKey(err, store.ErrCategoryInUse)
	}
	return tx.Commit(ctx)
}

func (s *Store) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT item_id, name, price::float8, category_id
		FROM menu_items
		ORDER BY length(item_id), item_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(&item.ItemID, &item.Name, &item.Price, &item.CategoryID); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) UpsertMenuItem(ctx context.Context, input store.MenuItemInput) (item models.MenuItem, err error) {
	if input.ItemID == "" && (input.Name == nil || input.Price == nil || input.CategoryID == nil) {
		return models.MenuItem{}, store.ErrInvalidMenuItem
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.MenuItem{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if input.CategoryID != nil {
		var categoryID string
		if err = tx.QueryRow(ctx, `
			SELECT category_id FROM categories WHERE category_id = $1 FOR SHARE
		`, *input.CategoryID).Scan(&categoryID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = store.ErrCategoryMissing
			}
			return models.MenuItem{}, err
		}
	}

	if input.ItemID != "" {
		row := tx.QueryRow(ctx, `
			UPDATE menu_items SET
				name = COALESCE($2, name),
				price = COALESCE($3, price),
				category_id = COALESCE($4, category_id)
			WHERE item_id = $1
			RETURNING item_id, name, price::float8, category_id
		`, input.ItemID, input.Name, input.Price, input.CategoryID)
		if err = row.Scan(&item.ItemID, &item.Name, &item.Price, &item.CategoryID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = store.ErrMenuItemNotFound
			}
			return models.MenuItem{}, err
		}
	} else {
		row := tx.QueryRow(ctx, `
			INSERT INTO menu_items (item_id, name, price, category_id)
			VALUES (nextval('menu_item_id_seq')::text, $1, $2, $3)
			RETURNING item_id, name, price::float8, category_id
		`, *input.Name, *input.Price, *input.CategoryID)
		if err = row.Scan(&item.ItemID, &item.Name, &item.Price, &item.CategoryID); err != nil {
			return models.MenuItem{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return models.MenuItem{}, err
	}
	return item, nil
}

func (s *Store) DeleteMenuItem(ctx context.Context, itemID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM menu_items WHERE item_id = $1`, itemID)
	return err
}

func (s *Store) ListTables(ctx context.Context) ([]models.Table, error) {
	rows, err := s.pool.Query(ctx, `SELECT number, status FROM dining_tables ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []models.Table{}
	for rows.Next() {
		var table models.Table
		if err := rows.Scan(&table.Number, &table.Status); err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, rows.Err()
}

func (s *Store) UpdateTableStatus(ctx context.Context, number int, status string) (models.Table, error) {
	if !models.ValidTableNumber(number) {
		return models.Table{}, store.ErrTableNotFound
	}
	if !store.ValidTableStatus(status) {
		return models.Table{}, store.ErrInvalidTableStatus
	}
	var table models.Table
	row := s.pool.QueryRow(ctx, `
		UPDATE dining_tables SET status = $2 WHERE number = $1 RETURNING number, status
	`, number, status)
	if err := row.Scan(&table.Number, &table.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Table{}, store.ErrTableNotFound
		}
		return models.Table{}, err
	}
	return table, nil
}

func (s *Store) CreateOrder(ctx context.Context, input store.CreateOrderInput) (order models.Order, err error) {
	if len(input.Items) == 0 {
		return models.Order{}, store.ErrEmptyOrder
	}
	ids := make([]string, 0, len(input.Items))
	for _, line := range input.Items {
		ids = append(ids, line.ItemID)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Order{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	menu, err := lockMenuItems(ctx, tx, ids)
	if err != nil {
		return models.Order{}, err
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
	order = models.Order{
		OrderID:     uuid.NewString(),
		TableNumber: input.TableNumber,
		Items:       lines,
		Total:       total,
		Status:      models.OrderPending,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	payload, err := json.Marshal(order.Items)
	if err != nil {
		return models.Order{}, err
	}
	if _, err = tx.Exec(ctx, `
		INSERT INTO orders (order_id, table_number, items, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, order.OrderID, order.TableNumber, payload, order.Total, string(order.Status), order.CreatedAt, order.UpdatedAt); err != nil {
		return models.Order{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	row := s.pool.QueryRow(ctx, selectOrders+` WHERE order_id = $1`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, store.ErrOrderNotFound
		}
		return models.Order{}, err
	}
	return order, nil
}

func (s *Store) ListOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	rows, err := s.pool.Query(ctx, selectOrders+`
		WHERE $1 = '' OR status = $1
		ORDER BY created_at, order_id
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (s *Store) AdvanceOrder(ctx context.Context, input store.AdvanceOrderInput) (order models.Order, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Order{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, selectOrders+` WHERE order_id = $1 FOR UPDATE`, input.OrderID)
	order, err = scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrOrderNotFound
		}
		return models.Order{}, err
	}
	if err = store.CheckTransition(order.Status, input.Status, input.AllowSkip); err != nil {
		return models.Order{}, err
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}
	order.Status = input.Status
	order.UpdatedAt = store.NextTimestamp(order.UpdatedAt, occurredAt)
	if _, err = tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = $3 WHERE order_id = $1
	`, order.OrderID, string(order.Status), order.UpdatedAt); err != nil {
		return models.Order{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *Store) SummarizeOrders(ctx context.Context, from time.Time) (store.OrderSummary, error) {
	var summary store.OrderSummary
	row := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(total) FILTER (WHERE status = $1), 0)::float8,
			COUNT(*) FILTER (WHERE created_at >= $2),
			COALESCE(SUM(total) FILTER (WHERE status = $1 AND created_at >= $2), 0)::float8
		FROM orders
	`, string(models.OrderDelivered), from)
	if err := row.Scan(&summary.TotalOrders, &summary.TotalRevenue, &summary.PeriodOrders, &summary.PeriodRevenue); err != nil {
		return store.OrderSummary{}, err
	}
	return summary, nil
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
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO calls (call_id, table_number, message, status, created_at) VALUES ($1, $2, $3, $4, $5)
	`, call.CallID, call.TableNumber, call.Message, call.Status, call.CreatedAt); err != nil {
		return models.Call{}, err
	}
	return call, nil
}

func (s *Store) ListCalls(ctx context.Context, status string) ([]models.Call, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT call_id, table_number, message, status, created_at
		FROM calls
		WHERE $1 = '' OR status = $1
		ORDER BY created_at, call_id
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	calls := []models.Call{}
	for rows.Next() {
		var call models.Call
		if err := rows.Scan(&call.CallID, &call.TableNumber, &call.Message, &call.Status, &call.CreatedAt); err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

func (s *Store) DeleteCall(ctx context.Context, callID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM calls WHERE call_id = $1`, callID)
	return err
}

const selectOrders = `
	SELECT order_id, table_number, items, total::float8, status, created_at, updated_at
	FROM orders`

func scanOrder(row pgx.Row) (models.Order, error) {
	var order models.Order
	var items []byte
	var status string
	if err := row.Scan(&order.OrderID, &order.TableNumber, &items, &order.Total, &status, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return models.Order{}, err
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return models.Order{}, fmt.Errorf("decode order %s items: %w", order.OrderID, err)
	}
	order.Status = models.OrderStatus(status)
	return order, nil
}

// lockMenuItems loads the referenced menu items with a share lock so prices
// cannot change while the order is priced.
func lockMenuItems(ctx context.Context, tx pgx.Tx, ids []string) (map[string]models.MenuItem, error) {
	rows, err := tx.Query(ctx, `
		SELECT item_id, name, price::float8, category_id
		FROM menu_items
		WHERE item_id = ANY($1)
		FOR SHARE
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	menu := make(map[string]models.MenuItem, len(ids))
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(&item.ItemID, &item.Name, &item.Price, &item.CategoryID); err != nil {
			return nil, err
		}
		menu[item.ItemID] = item
	}
	return menu, rows.Err()
}

func tableEmpty(ctx context.Context, tx pgx.Tx, table string) (bool, error) {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+pgx.Identifier{table}.Sanitize()+`)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	return !exists, nil
}

func alignSequence(ctx context.Context, tx pgx.Tx, sequence, table, column string) error {
	var highest int64
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(%[1]s::bigint), 0) FROM %[2]s WHERE %[1]s ~ '^[0-9]+$'
	`, pgx.Identifier{column}.Sanitize(), pgx.Identifier{table}.Sanitize())
	if err := tx.QueryRow(ctx, query).Scan(&highest); err != nil {
		return fmt.Errorf("max %s: %w", column, err)
	}
	if highest == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		SELECT setval($1::regclass, GREATEST($2, (SELECT last_value FROM `+pgx.Identifier{sequence}.Sanitize()+`)))
	`, sequence, highest)
	if err != nil {
		return fmt.Errorf("align %s: %w", sequence, err)
	}
	return nil
}

func mapForeignKey(err error, target error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return target
	}
	return err
}

func nullTime(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value, Valid: true}
}
