package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	// Storage is "mysql" or "memory".
	Storage   string
	MySQLDSN  string
	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	AuthBase      string
	AuthKey       string
	AuthJWTSecret string
	AuthRPS       int

	HoldDuration    time.Duration
	PaymentLeadDays int
	Capacity        int
	SweepInterval   time.Duration

	AssistantLimit int

	SeedFile    string
	SeedWorkers int
	// SeedDemo also provisions the demo admin and client logins.
	SeedDemo bool
}

// Load reads the environment, after merging a .env file when one exists.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		Storage:   env("STORAGE", "mysql"),
		MySQLDSN:  env("MYSQL_DSN", "root:root@tcp(localhost:3306)/travel?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		AuthBase:      env("AUTH_BASE_URL", "http://localhost:9999"),
		AuthKey:       env("AUTH_API_KEY", ""),
		AuthJWTSecret: env("AUTH_JWT_SECRET", ""),
		AuthRPS:       atoi("AUTH_RPS", 5),

		HoldDuration:    duration("HOLD_DURATION", 2*time.Hour),
		PaymentLeadDays: atoi("PAYMENT_LEAD_DAYS", 30),
		Capacity:        atoi("MAX_GUESTS_PER_DEPARTURE", 0),
		SweepInterval:   duration("SWEEP_INTERVAL", time.Minute),

		AssistantLimit: atoi("ASSISTANT_LIMIT", 3),

		SeedFile:    env("SEED_FILE", "seed/offers.json"),
		SeedWorkers: atoi("SEED_WORKERS", 4),
		SeedDemo:    env("SEED_DEMO_ACCOUNTS", "false") == "true",
	}
	if c.AuthKey == "" {
		log.Warn().Msg("AUTH_API_KEY is empty")
	}
	if c.AuthJWTSecret == "" {
		log.Warn().Msg("AUTH_JWT_SECRET is empty; every bearer token will be rejected")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
	}
	return def
}

func duration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not a duration, using default")
	}
	return def
}
