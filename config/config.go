package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"crypto-analyst/internal/feed"
	"crypto-analyst/internal/model"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HTTPAddr string

	// Exchange market data
	ExchangeBaseURL string
	KlineInterval   string
	KlineLimit      int
	UpstreamTimeout time.Duration

	// LLM (OpenRouter-compatible chat completions)
	LLMAPIURL   string
	LLMAPIKey   string
	LLMModel    string
	LLMSiteURL  string
	LLMSiteName string

	// Whale feed. A zero poll interval means whales refresh only with the pair.
	WhaleFeedURL      string
	WhalePollInterval time.Duration

	// Infrastructure. An empty RedisAddr runs without cache and pub/sub.
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	MarketCacheTTL time.Duration

	LogLevel string

	// Comma-separated BASE/QUOTE list, e.g. "BTC/USDT,ETH/USDT"
	DefaultPairs string
}

// Load reads an optional .env file, then configuration from environment
// variables with sensible defaults. Variables already set in the
// environment win over the file.
func Load(envFiles ...string) *Config {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[config] .env not loaded: %v", err)
	}

	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		ExchangeBaseURL: getEnv("EXCHANGE_BASE_URL", "https://api.binance.com/api/v3"),
		KlineInterval:   getEnv("KLINE_INTERVAL", "4h"),
		KlineLimit:      getInt("KLINE_LIMIT", 250),
		UpstreamTimeout: getDuration("UPSTREAM_TIMEOUT", 20*time.Second),

		LLMAPIURL:   getEnv("LLM_API_URL", "https://openrouter.ai/api/v1/chat/completions"),
		LLMAPIKey:   getEnv("LLM_API_KEY", ""),
		LLMModel:    getEnv("LLM_MODEL", "qwen/qwen-2.5-72b-instruct:free"),
		LLMSiteURL:  getEnv("LLM_SITE_URL", "http://localhost:8080"),
		LLMSiteName: getEnv("LLM_SITE_NAME", "Crypto Analyst"),

		WhaleFeedURL:      getEnv("WHALE_FEED_URL", feed.DefaultURL),
		WhalePollInterval: getDuration("WHALE_POLL_INTERVAL", 0),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getInt("REDIS_DB", 0),
		MarketCacheTTL: getDuration("MARKET_CACHE_TTL", 30*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		DefaultPairs: getEnv("DEFAULT_PAIRS", ""),
	}
}

// ParsePairs parses DefaultPairs into validated pairs, skipping bad entries.
// An empty setting yields model.DefaultPairs.
func (c *Config) ParsePairs() []model.Pair {
	if strings.TrimSpace(c.DefaultPairs) == "" {
		return append([]model.Pair(nil), model.DefaultPairs...)
	}
	parts := strings.Split(c.DefaultPairs, ",")
	pairs := make([]model.Pair, 0, len(parts))
	seen := make(map[model.Pair]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		pair, err := model.ParsePair(p)
		if err != nil {
			log.Printf("[config] skipping invalid pair value: %q", p)
			continue
		}
		if seen[pair] {
			continue
		}
		seen[pair] = true
		pairs = append(pairs, pair)
	}
	if len(pairs) == 0 {
		log.Printf("[config] DEFAULT_PAIRS had no valid entries, using built-in list")
		return append([]model.Pair(nil), model.DefaultPairs...)
	}
	return pairs
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
