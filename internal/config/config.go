package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL     string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	AdminToken      string

	// Upstream 311 dataset.
	SocrataBaseURL  string
	SocrataAppToken string
	SocrataTimeout  time.Duration

	FetchLimit      int
	BatchSize       int
	DefaultLookback time.Duration
	Location        *time.Location
	ChaosMaxima     domain.MaximaPolicy

	ResolverCacheSize int

	// Periodic jobs.
	SchedulerEnabled  bool
	IngestSchedule    string
	AggregateSchedule string
	IngestTimeout     time.Duration
	AggregateTimeout  time.Duration

	// Optional publisher of classified complaints. Disabled without brokers.
	KafkaBrokers []string
	KafkaTopic   string

	// Optional query cache. Disabled without an address.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
}

// KafkaEnabled reports whether classified complaints are published.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// CacheEnabled reports whether query responses are cached in Redis.
func (c *Config) CacheEnabled() bool { return c.RedisAddr != "" }

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first if present;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		HTTPAddr:          envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		LogFormat:         envOrDefault("LOG_FORMAT", "json"),
		AdminToken:        os.Getenv("ADMIN_TOKEN"),
		SocrataBaseURL:    envOrDefault("SOCRATA_BASE_URL", "https://data.cityofnewyork.us/resource/erm2-nwe9.json"),
		SocrataAppToken:   os.Getenv("SOCRATA_APP_TOKEN"),
		IngestSchedule:    envOrDefault("INGEST_SCHEDULE", "*/15 * * * *"),
		AggregateSchedule: envOrDefault("AGGREGATE_SCHEDULE", "5 * * * *"),
		SchedulerEnabled:  envOrDefault("SCHEDULER_ENABLED", "true") == "true",
		KafkaBrokers:      parseList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        envOrDefault("KAFKA_TOPIC", "classified-complaints"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	durations := []struct {
		name string
		def  string
		dst  *time.Duration
	}{
		{"SHUTDOWN_TIMEOUT", "10s", &cfg.ShutdownTimeout},
		{"SOCRATA_TIMEOUT", "30s", &cfg.SocrataTimeout},
		{"DEFAULT_LOOKBACK", "168h", &cfg.DefaultLookback},
		{"INGEST_TIMEOUT", "5m", &cfg.IngestTimeout},
		{"AGGREGATE_TIMEOUT", "1m", &cfg.AggregateTimeout},
		{"CACHE_TTL", "60s", &cfg.CacheTTL},
	}
	for _, d := range durations {
		if *d.dst, err = parsePositiveDuration(d.name, d.def); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		name     string
		def      int
		min, max int
		dst      *int
	}{
		{"FETCH_LIMIT", 10000, 1, 50000, &cfg.FetchLimit},
		{"BATCH_SIZE", 500, 1, 5000, &cfg.BatchSize},
		{"RESOLVER_CACHE_SIZE", 5000, 1, 1_000_000, &cfg.ResolverCacheSize},
		{"REDIS_DB", 0, 0, 15, &cfg.RedisDB},
	}
	for _, n := range ints {
		if *n.dst, err = parseIntInRange(n.name, n.def, n.min, n.max); err != nil {
			return nil, err
		}
	}

	cfg.Location, err = time.LoadLocation(envOrDefault("TIMEZONE", "America/New_York"))
	if err != nil {
		return nil, errors.New("invalid TIMEZONE")
	}

	cfg.ChaosMaxima, err = domain.ParseMaximaPolicy(envOrDefault("CHAOS_MAXIMA", string(domain.MaximaRelative)))
	if err != nil {
		return nil, errors.New("invalid CHAOS_MAXIMA: must be relative or fixed")
	}

	schedules := []struct {
		name string
		spec string
	}{
		{"INGEST_SCHEDULE", cfg.IngestSchedule},
		{"AGGREGATE_SCHEDULE", cfg.AggregateSchedule},
	}
	for _, sc := range schedules {
		if _, err := cron.ParseStandard(sc.spec); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", sc.name, err)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.SocrataBaseURL == "" {
		return nil, errors.New("SOCRATA_BASE_URL is required")
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseIntInRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, lo, hi)
	}
	return n, nil
}
