package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Cache backends selectable with CACHE_BACKEND.
const (
	CacheBackendFile   = "file"
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Provider settings.
	EONETBaseURL     string
	EONETLimit       int
	USGSBaseURL      string
	USGSLimit        int
	USGSMinMagnitude float64
	USGSWindowDays   int
	FetchTimeout     time.Duration

	// Cache settings.
	CacheTTL      time.Duration
	CacheBackend  string
	CacheDir      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Optional Kafka publishing of refreshed events.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	PageSize int
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first if present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}

	eonetLimit, err := parsePositiveInt("EONET_LIMIT", 100)
	if err != nil {
		return nil, err
	}
	usgsLimit, err := parsePositiveInt("USGS_LIMIT", 100)
	if err != nil {
		return nil, err
	}
	usgsWindow, err := parsePositiveInt("USGS_WINDOW_DAYS", 30)
	if err != nil {
		return nil, err
	}
	pageSize, err := parsePositiveInt("PAGE_SIZE", 12)
	if err != nil {
		return nil, err
	}
	redisDB, err := parseNonNegativeInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	minMag, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("USGS_MIN_MAGNITUDE", "4.0"), 64)
	if err != nil || minMag < 0 {
		return nil, errors.New("invalid USGS_MIN_MAGNITUDE")
	}

	kafkaBrokers := parseList(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		EONETBaseURL:     sharedcfg.EnvOrDefault("EONET_BASE_URL", "https://eonet.gsfc.nasa.gov/api/v3"),
		EONETLimit:       eonetLimit,
		USGSBaseURL:      sharedcfg.EnvOrDefault("USGS_BASE_URL", "https://earthquake.usgs.gov/fdsnws/event/1"),
		USGSLimit:        usgsLimit,
		USGSMinMagnitude: minMag,
		USGSWindowDays:   usgsWindow,
		FetchTimeout:     fetchTimeout,

		CacheTTL:      cacheTTL,
		CacheBackend:  strings.ToLower(sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheBackendFile)),
		CacheDir:      sharedcfg.EnvOrDefault("CACHE_DIR", "data/cache"),
		RedisAddr:     sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: kafkaBrokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "disaster-events"),

		PageSize: pageSize,
	}

	switch cfg.CacheBackend {
	case CacheBackendFile, CacheBackendRedis, CacheBackendMemory:
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: want file, redis or memory", cfg.CacheBackend)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	n, err := parseInt(key, def)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	n, err := parseInt(key, def)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
