// Package config loads service configuration from environment variables,
// with an optional .env file and an optional YAML file for strategy tuning.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"signal-enginev1/internal/strategy"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Market data
	Provider        string // "binance", "smartapi" or "synthetic"
	BinanceBaseURL  string
	SmartAPIKey     string
	SmartClientCode string
	SmartPassword   string
	SmartTOTPSecret string

	// Infrastructure
	RedisAddr     string // empty disables the Redis cache/bus
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	APIAddr       string
	WebhookURL    string // empty disables webhook notifications

	// Scanning
	Pairs        string // comma-separated, e.g. "BTCUSDT,ETHUSDT"
	Timeframes   string // comma-separated, e.g. "1h,4h"
	ScanInterval time.Duration
	Lookback     int // bars fetched per pair/timeframe

	// StrategyFile optionally overrides strategy defaults (YAML).
	StrategyFile string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Provider:        getEnv("PROVIDER", "binance"),
		BinanceBaseURL:  getEnv("BINANCE_BASE_URL", "https://api.binance.com"),
		SmartAPIKey:     getEnv("SMART_API_KEY", ""),
		SmartClientCode: getEnv("SMART_CLIENT_CODE", ""),
		SmartPassword:   getEnv("SMART_PASSWORD", ""),
		SmartTOTPSecret: getEnv("SMART_TOTP_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/signals.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		APIAddr:       getEnv("API_ADDR", ":8080"),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),

		Pairs:        getEnv("PAIRS", "BTCUSDT,ETHUSDT"),
		Timeframes:   getEnv("TIMEFRAMES", "1h,4h"),
		ScanInterval: getEnvDuration("SCAN_INTERVAL", 5*time.Minute),
		Lookback:     getEnvInt("LOOKBACK", 250),

		StrategyFile: getEnv("STRATEGY_FILE", ""),
	}
}

// ParsePairs parses the Pairs string into a deduplicated slice.
func (c *Config) ParsePairs() []string {
	return splitList(c.Pairs)
}

// ParseTimeframes parses the Timeframes string into a deduplicated slice.
func (c *Config) ParseTimeframes() []string {
	return splitList(c.Timeframes)
}

// StrategyParams returns the strategy defaults, overlaid with the YAML file
// named by StrategyFile when set. The result is validated.
func (c *Config) StrategyParams() (strategy.Params, error) {
	params := strategy.DefaultParams()
	if c.StrategyFile != "" {
		data, err := os.ReadFile(c.StrategyFile)
		if err != nil {
			return params, fmt.Errorf("config: read strategy file: %w", err)
		}
		if err := yaml.Unmarshal(data, &params); err != nil {
			return params, fmt.Errorf("config: parse strategy file: %w", err)
		}
	}
	if err := params.Validate(); err != nil {
		return params, err
	}
	return params, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
