package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tableside/restaurant-service/internal/config"
	"tableside/restaurant-service/internal/events"
	"tableside/restaurant-service/internal/httpapi"
	"tableside/restaurant-service/internal/hub"
	"tableside/restaurant-service/internal/logging"
	"tableside/restaurant-service/internal/store"
	"tableside/restaurant-service/internal/store/filestore"
	"tableside/restaurant-service/internal/store/postgres"
	"tableside/restaurant-service/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "restaurant-service"

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	shutdownTelemetry := telemetry.Setup(serviceName, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	seed, err := store.DefaultSeed(store.SeedPasswords{
		Admin:   cfg.AdminPassword,
		Kitchen: cfg.KitchenPassword,
		Waiter:  cfg.WaiterPassword,
	})
	if err != nil {
		logger.WithError(err).Fatal("build seed data")
	}

	st, closeStore, err := openStore(context.Background(), cfg, seed)
	if err != nil {
		logger.WithError(err).Fatal("open store")
	}
	defer closeStore()
	logger.WithField("driver", cfg.StoreDriver).Info("store ready")

	h := hub.New(logger)
	publisher, closePublisher := newPublisher(cfg, h, logger)
	defer closePublisher()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(newRouter(cfg, st, h, publisher, logger), serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("restaurant-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("shutdown error")
	}
}

// openStore returns the configured backend, seeded on first start, and a func
// releasing its resources.
func openStore(ctx context.Context, cfg config.Config, seed store.Seed) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverFile:
		st, err := filestore.Open(cfg.DataDir, filestore.Options{Seed: seed})
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		st := postgres.NewStore(pool, postgres.Options{})
		if err := st.EnsureSeed(ctx, seed); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("seed database: %w", err)
		}
		return st, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// newPublisher always feeds the realtime hub and adds the AMQP exchange when
// AMQP_URL is set. A broker that cannot be reached is logged and skipped.
func newPublisher(cfg config.Config, h *hub.Hub, logger *logrus.Logger) (events.Publisher, func()) {
	if cfg.AMQPURL == "" {
		return h, func() {}
	}
	broker, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		logger.WithError(err).Warn("amqp unavailable, events stay local")
		return h, func() {}
	}
	logger.WithField("exchange", cfg.AMQPExchange).Info("publishing events to amqp")
	return events.Multi{h, broker}, broker.Close
}

func newRouter(cfg config.Config, st store.Store, h *hub.Hub, publisher events.Publisher, logger *logrus.Logger) http.Handler {
	handler := httpapi.NewHandler(st, httpapi.Options{
		Publisher:         publisher,
		Logger:            logger,
		SessionTTL:        cfg.SessionTTL,
		PublicBaseURL:     cfg.PublicBaseURL,
		SecureCookie:      cfg.CookieSecure,
		StrictTransitions: cfg.StrictTransitions,
	})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:    cfg.RateLimitPerMinute,
		IPBurst:        cfg.RateLimitBurst,
		TablePerMinute: cfg.TableRateLimitPerMinute,
		TableBurst:     cfg.TableRateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/realtime/", httpapi.NewRealtimeHandler(st, h, logger))
	mux.Handle("/", httpapi.AuthMiddleware(st, handler.Routes()))

	return httpapi.LoggingMiddleware(logger, limiter.Middleware(mux))
}
