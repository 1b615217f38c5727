package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Cron trigger auth
	CronSecret string

	// Scrape
	ScrapeUserAgent   string
	ScrapeTimeout     time.Duration
	ScrapeMaxRetries  int
	ScrapeRetryDelay  time.Duration
	ScrapeRateLimit   time.Duration // ドメインごとの最小リクエスト間隔
	ScrapeBatchSize   int
	ScrapeMaxBodySize int64

	// Worker
	WorkerScrapeInterval   time.Duration
	WorkerDiscoverInterval time.Duration

	// Server
	ServerPort string

	// Logging
	LogLevel string
}

// DefaultUserAgent はスクレイプ時に送信するUser-Agentのデフォルト値。
// ボットであることと問い合わせ先を明示する。
const DefaultUserAgent = "SimmerBot/1.0 (+https://simmer.example/about; recipe aggregator)"

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.CronSecret = os.Getenv("CRON_SECRET")
	if cfg.CronSecret == "" {
		missing = append(missing, "CRON_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ScrapeUserAgent = getEnvString("SCRAPE_USER_AGENT", DefaultUserAgent)
	cfg.ScrapeTimeout = getEnvDuration("SCRAPE_TIMEOUT", 10*time.Second)
	cfg.ScrapeMaxRetries = getEnvInt("SCRAPE_MAX_RETRIES", 3)
	cfg.ScrapeRetryDelay = getEnvDuration("SCRAPE_RETRY_DELAY", time.Second)
	cfg.ScrapeRateLimit = getEnvDuration("SCRAPE_RATE_LIMIT", 5*time.Second)
	cfg.ScrapeBatchSize = getEnvInt("SCRAPE_BATCH_SIZE", 10)
	cfg.ScrapeMaxBodySize = getEnvInt64("SCRAPE_MAX_BODY_SIZE", 5242880)
	cfg.WorkerScrapeInterval = getEnvDuration("WORKER_SCRAPE_INTERVAL", 5*time.Minute)
	cfg.WorkerDiscoverInterval = getEnvDuration("WORKER_DISCOVER_INTERVAL", 24*time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
