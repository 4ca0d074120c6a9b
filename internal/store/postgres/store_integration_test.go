package postgres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"tableside/restaurant-service/internal/models"
	"tableside/restaurant-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

func TestAdvanceOrderConcurrency(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	order := createOrder(t, ctx, st, 3, store.OrderLineInput{ItemID: "1", Quantity: 1})

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.AdvanceOrder(ctx, store.AdvanceOrderInput{OrderID: order.OrderID, Status: models.OrderPreparing})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrInvalidTransition):
			rejected++
		default:
			t.Fatalf("advance order: %v", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected one success and one rejection, got %d and %d", succeeded, rejected)
	}
}

func TestCreateOrderAndSummary(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	delivered := createOrder(t, ctx, st, 2, store.OrderLineInput{ItemID: "3", Quantity: 1})
	createOrder(t, ctx, st, 2, store.OrderLineInput{ItemID: "5", Quantity: 2})
	if _, err := st.AdvanceOrder(ctx, store.AdvanceOrderInput{OrderID: delivered.OrderID, Status: models.OrderDelivered, AllowSkip: true}); err != nil {
		t.Fatalf("deliver order: %v", err)
	}

	stored, err := st.GetOrder(ctx, delivered.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if len(stored.Items) != 1 || stored.Items[0].Name != "Mixed Grill" {
		t.Fatalf("expected item snapshot, got %+v", stored.Items)
	}

	summary, err := st.SummarizeOrders(ctx, time.Time{})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.TotalOrders != 2 || summary.TotalRevenue != 180 {
		t.Fatalf("expected 2 orders and 180 revenue, got %+v", summary)
	}

	claimed := 1.0
	if _, err := st.CreateOrder(ctx, store.CreateOrderInput{
		TableNumber: 2,
		Items:       []store.OrderLineInput{{ItemID: "1", Quantity: 1}},
		Total:       &claimed,
	}); !errors.Is(err, store.ErrTotalMismatch) {
		t.Fatalf("expected ErrTotalMismatch, got %v", err)
	}
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 stored orders, got %d", count)
	}
}

func TestMenuSequenceAfterSeed(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	name, price, category := "Tea", 12.5, "2"
	item, err := st.UpsertMenuItem(ctx, store.MenuItemInput{Name: &name, Price: &price, CategoryID: &category})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if item.ItemID != "9" {
		t.Fatalf("expected id 9, got %s", item.ItemID)
	}
	if err := st.DeleteCategory(ctx, category); !errors.Is(err, store.ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}
}

func TestLoginReplacesSession(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	first, err := st.Login(ctx, store.LoginInput{Username: "waiter", Password: "waiter-pw", TTL: time.Hour})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	second, err := st.Login(ctx, store.LoginInput{Username: "waiter", Password: "waiter-pw", TTL: time.Hour, ReplaceSessionID: first.Session.SessionID})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := st.GetSession(ctx, first.Session.SessionID); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected replaced session to be gone, got %v", err)
	}
	if _, err := st.GetSession(ctx, second.Session.SessionID); err != nil {
		t.Fatalf("get session: %v", err)
	}
}

func setupTestStore(t *testing.T, ctx context.Context) (*Store, *pgxpool.Pool, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN or DB_DSN is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := createSchema(ctx, dsn, schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	pool, err := newPoolWithSchema(ctx, dsn, schema)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	seed, err := store.DefaultSeed(store.SeedPasswords{
		Admin:   "admin-pw",
		Kitchen: "kitchen-pw",
		Waiter:  "waiter-pw",
		Cost:    bcrypt.MinCost,
	})
	if err != nil {
		pool.Close()
		t.Fatalf("seed: %v", err)
	}
	st := NewStore(pool, Options{})
	if err := st.EnsureSeed(ctx, seed); err != nil {
		pool.Close()
		t.Fatalf("ensure seed: %v", err)
	}

	cleanup := func() {
		pool.Close()
		_ = dropSchema(context.Background(), dsn, schema)
	}
	return st, pool, cleanup
}

func createSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "CREATE SCHEMA "+schema)
	return err
}

func dropSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
	return err
}

func newPoolWithSchema(ctx context.Context, dsn, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	return pgxpool.NewWithConfig(ctx, cfg)
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	dir := filepath.Join("..", "..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(content)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return err
		}
	}
	return nil
}

func createOrder(t *testing.T, ctx context.Context, st *Store, table int, lines ...store.OrderLineInput) models.Order {
	t.Helper()
	order, err := st.CreateOrder(ctx, store.CreateOrderInput{TableNumber: table, Items: lines})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}
