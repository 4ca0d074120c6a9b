package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_DRIVER", "DB_DSN", "SESSION_TTL_MINUTES", "ORDER_STRICT_TRANSITIONS", "AMQP_URL", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.StoreDriver != DriverFile {
		t.Fatalf("expected file driver, got %s", cfg.StoreDriver)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("expected 12h session ttl, got %v", cfg.SessionTTL)
	}
	if cfg.StrictTransitions {
		t.Fatalf("expected forward skips to be allowed by default")
	}
	if cfg.AdminPassword != "admin123" || cfg.LogFormat != "text" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("DB_DSN", "postgres://localhost/restaurant")
	t.Setenv("SESSION_TTL_MINUTES", "30")
	t.Setenv("ORDER_STRICT_TRANSITIONS", "true")
	t.Setenv("RATE_LIMIT_PER_MIN", "not-a-number")
	t.Setenv("TABLE_RATE_LIMIT_BURST", "3")

	cfg := Load()
	if cfg.StoreDriver != DriverPostgres {
		t.Fatalf("expected postgres driver when DB_DSN is set, got %s", cfg.StoreDriver)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %v", cfg.SessionTTL)
	}
	if !cfg.StrictTransitions {
		t.Fatalf("expected strict transitions")
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Fatalf("expected fallback for invalid int, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.TableRateLimitBurst != 3 {
		t.Fatalf("expected table burst 3, got %d", cfg.TableRateLimitBurst)
	}
}

func TestExplicitDriverWins(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/restaurant")
	t.Setenv("STORE_DRIVER", "File")

	if cfg := Load(); cfg.StoreDriver != DriverFile {
		t.Fatalf("expected explicit file driver, got %s", cfg.StoreDriver)
	}
}
