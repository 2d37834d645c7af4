package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the runtime configuration, read from the environment
type Config struct {
	ListenAddr          string
	DatabaseDriver      string
	DatabaseURL         string
	SafeBrowsingAPIKey  string
	SafeBrowsingRPS     float64
	FeedURL             string
	FeedRefreshInterval time.Duration
	OperationTimeout    time.Duration
	ScanTimeout         time.Duration
	FetchPages          bool
	FetcherBackend      string
	DNSResolver         string
	RulesFile           string
	LogLevel            string
}

// Load reads .env (when present) and the environment
func Load() (Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		DatabaseDriver:     strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseURL:        getEnv("DATABASE_URL", "file:phishscan.db?_pragma=busy_timeout(5000)"),
		SafeBrowsingAPIKey: getEnv("GOOGLE_SAFE_BROWSING_API_KEY", ""),
		FeedURL:            getEnv("OPENPHISH_FEED_URL", "https://openphish.com/feed.txt"),
		FetcherBackend:     getEnv("FETCHER_BACKEND", "nethttp"),
		DNSResolver:        getEnv("DNS_RESOLVER", "1.1.1.1:53"),
		RulesFile:          getEnv("RULES_FILE", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.SafeBrowsingRPS, err = strconv.ParseFloat(getEnv("SAFE_BROWSING_RPS", "5"), 64); err != nil {
		return Config{}, fmt.Errorf("SAFE_BROWSING_RPS: %w", err)
	}
	if cfg.FeedRefreshInterval, err = getDuration("FEED_REFRESH_INTERVAL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.OperationTimeout, err = getDuration("OPERATION_TIMEOUT", 8*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ScanTimeout, err = getDuration("SCAN_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.FetchPages, err = strconv.ParseBool(getEnv("FETCH_PAGES", "true")); err != nil {
		return Config{}, fmt.Errorf("FETCH_PAGES: %w", err)
	}

	if cfg.DatabaseDriver != "sqlite" && cfg.DatabaseDriver != "postgres" {
		return Config{}, fmt.Errorf("DATABASE_DRIVER: unsupported driver %q", cfg.DatabaseDriver)
	}
	if cfg.ScanTimeout < cfg.OperationTimeout {
		return Config{}, fmt.Errorf("SCAN_TIMEOUT (%s) must not be shorter than OPERATION_TIMEOUT (%s)", cfg.ScanTimeout, cfg.OperationTimeout)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, raw)
	}
	return d, nil
}
