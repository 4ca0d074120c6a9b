package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

type Config struct {
	Port          string
	StoreDriver   string
	DatabaseURL   string
	DataDir       string
	SessionTTL    time.Duration
	PublicBaseURL string
	CookieSecure  bool

	// StrictTransitions limits order advances to the next status; otherwise any
	// forward move is accepted.
	StrictTransitions bool

	AMQPURL      string
	AMQPExchange string

	RateLimitPerMinute      int
	RateLimitBurst          int
	TableRateLimitPerMinute int
	TableRateLimitBurst     int

	LogLevel  string
	LogFormat string

	AdminPassword   string
	KitchenPassword string
	WaiterPassword  string
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Variables already set win over the file.
func Load() Config {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DB_DSN")
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	if driver == "" {
		driver = DriverFile
		if databaseURL != "" {
			driver = DriverPostgres
		}
	}

	return Config{
		Port:          readString("PORT", "8080"),
		StoreDriver:   driver,
		DatabaseURL:   databaseURL,
		DataDir:       readString("DATA_DIR", "data"),
		SessionTTL:    time.Duration(readInt("SESSION_TTL_MINUTES", 720)) * time.Minute,
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		CookieSecure:  readBool("COOKIE_SECURE", false),

		StrictTransitions: readBool("ORDER_STRICT_TRANSITIONS", false),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: readString("AMQP_EXCHANGE", "restaurant.events"),

		RateLimitPerMinute:      readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:          readInt("RATE_LIMIT_BURST", 30),
		TableRateLimitPerMinute: readInt("TABLE_RATE_LIMIT_PER_MIN", 30),
		TableRateLimitBurst:     readInt("TABLE_RATE_LIMIT_BURST", 10),

		LogLevel:  readString("LOG_LEVEL", "info"),
		LogFormat: readString("LOG_FORMAT", "text"),

		AdminPassword:   readString("ADMIN_PASSWORD", "admin123"),
		KitchenPassword: readString("KITCHEN_PASSWORD", "kitchen123"),
		WaiterPassword:  readString("WAITER_PASSWORD", "waiter123"),
	}
}

func readString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
