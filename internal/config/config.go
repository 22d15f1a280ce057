package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string
	CronSecret       string

	DataDir             string
	CollectIntervalSecs int
	AdapterTimeoutSecs  int
	MarketConcurrency   int
	BackfillWorkers     int
	BackfillTokens      []string
	CacheTTLSecs        int
}

var defaultBackfillTokens = []string{"BTC", "ETH", "SOL", "HYPE", "FARTCOIN"}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		CronSecret:       os.Getenv("CRON_SECRET"),
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.CronSecret == "" {
		log.Println("Warning: CRON_SECRET not set, trigger endpoints are unauthenticated")
	}

	cfg.DataDir = strings.TrimSpace(os.Getenv("DATA_DIR"))
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}

	cfg.CollectIntervalSecs = 3600
	if v := strings.TrimSpace(os.Getenv("COLLECT_INTERVAL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CollectIntervalSecs = n
		}
	}

	cfg.AdapterTimeoutSecs = 10
	if v := strings.TrimSpace(os.Getenv("ADAPTER_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AdapterTimeoutSecs = n
		}
	}

	cfg.MarketConcurrency = 8
	if v := strings.TrimSpace(os.Getenv("MARKET_CONCURRENCY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MarketConcurrency = n
		}
	}

	cfg.BackfillWorkers = 4
	if v := strings.TrimSpace(os.Getenv("BACKFILL_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BackfillWorkers = n
		}
	}

	cfg.BackfillTokens = defaultBackfillTokens
	if v := strings.TrimSpace(os.Getenv("BACKFILL_TOKENS")); v != "" {
		var tokens []string
		for _, part := range strings.Split(v, ",") {
			if token := strings.ToUpper(strings.TrimSpace(part)); token != "" {
				tokens = append(tokens, token)
			}
		}
		if len(tokens) > 0 {
			cfg.BackfillTokens = tokens
		}
	}

	cfg.CacheTTLSecs = 90
	if v := strings.TrimSpace(os.Getenv("CACHE_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheTTLSecs = n
		}
	}

	return cfg
}
