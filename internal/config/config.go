package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Engine   EngineConfig
	Fetch    FetchConfig
	Browser  BrowserConfig
	Cache    CacheConfig
	Patterns PatternsConfig
	Domains  DomainsConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type EngineConfig struct {
	// MinConfidence is the floor below which the orchestrator considers
	// escalating to the rendered strategy.
	MinConfidence float64
	// CacheConfidence is the floor for writing a result to the cache.
	CacheConfidence float64
	// LearnConfidence is the floor for recording selector patterns.
	LearnConfidence float64
	MaxImages       int
}

type FetchConfig struct {
	Timeout   time.Duration
	UserAgent string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	HeadingWait    time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type CacheConfig struct {
	Backend     string // memory or redis
	Capacity    int
	DirectTTL   time.Duration
	RenderedTTL time.Duration
	RedisAddr   string
	RedisDB     int
}

type PatternsConfig struct {
	Backend  string // file or postgres
	FilePath string
	Database DatabaseConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type DomainsConfig struct {
	// RequiresRendering lists domains that never yield usable markup to a
	// plain GET.
	RequiresRendering []string
	// MaybeRendering lists domains where a low-confidence direct result is
	// worth a rendered retry.
	MaybeRendering []string
	// BlocksDirect lists domains known to answer direct fetches with a
	// bot challenge.
	BlocksDirect []string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Engine: EngineConfig{
			MinConfidence:   getFloatOrDefault("ENGINE_MIN_CONFIDENCE", 0.7),
			CacheConfidence: getFloatOrDefault("ENGINE_CACHE_CONFIDENCE", 0.5),
			LearnConfidence: getFloatOrDefault("ENGINE_LEARN_CONFIDENCE", 0.7),
			MaxImages:       getIntOrDefault("ENGINE_MAX_IMAGES", 10),
		},
		Fetch: FetchConfig{
			Timeout:   getDurationOrDefault("FETCH_TIMEOUT", 15*time.Second),
			UserAgent: getEnvOrDefault("FETCH_USER_AGENT", defaultUserAgent),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 45*time.Second),
			HeadingWait:    getDurationOrDefault("BROWSER_HEADING_WAIT", 3*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/Berlin"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
		},
		Cache: CacheConfig{
			Backend:     getEnvOrDefault("CACHE_BACKEND", "memory"),
			Capacity:    getIntOrDefault("CACHE_CAPACITY", 500),
			DirectTTL:   getDurationOrDefault("CACHE_DIRECT_TTL", 15*time.Minute),
			RenderedTTL: getDurationOrDefault("CACHE_RENDERED_TTL", time.Hour),
			RedisAddr:   getEnvOrDefault("CACHE_REDIS_ADDR", "localhost:6379"),
			RedisDB:     getIntOrDefault("CACHE_REDIS_DB", 0),
		},
		Patterns: PatternsConfig{
			Backend:  getEnvOrDefault("PATTERNS_BACKEND", "file"),
			FilePath: getEnvOrDefault("PATTERNS_FILE", "patterns.json"),
			Database: DatabaseConfig{
				Host:     getEnvOrDefault("DB_HOST", "localhost"),
				Port:     getIntOrDefault("DB_PORT", 5432),
				User:     getEnvOrDefault("DB_USER", "postgres"),
				Password: getEnvOrDefault("DB_PASSWORD", ""),
				DBName:   getEnvOrDefault("DB_NAME", "product_parser"),
				SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			},
		},
		Domains: DomainsConfig{
			RequiresRendering: getStringSliceOrDefault("DOMAINS_REQUIRES_RENDERING", defaultRequiresRendering()),
			MaybeRendering:    getStringSliceOrDefault("DOMAINS_MAYBE_RENDERING", defaultMaybeRendering()),
			BlocksDirect:      getStringSliceOrDefault("DOMAINS_BLOCKS_DIRECT", defaultBlocksDirect()),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Engine.MinConfidence < 0 || c.Engine.MinConfidence > 1 {
		return fmt.Errorf("ENGINE_MIN_CONFIDENCE must be in [0,1]")
	}

	if c.Engine.CacheConfidence > c.Engine.MinConfidence {
		return fmt.Errorf("ENGINE_CACHE_CONFIDENCE cannot exceed ENGINE_MIN_CONFIDENCE")
	}

	if c.Cache.Capacity < 1 {
		return fmt.Errorf("CACHE_CAPACITY must be at least 1")
	}

	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("CACHE_BACKEND must be memory or redis")
	}

	if c.Patterns.Backend != "file" && c.Patterns.Backend != "postgres" {
		return fmt.Errorf("PATTERNS_BACKEND must be file or postgres")
	}

	if c.Engine.MaxImages < 1 {
		return fmt.Errorf("ENGINE_MAX_IMAGES must be at least 1")
	}

	return nil
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func defaultRequiresRendering() []string {
	return []string{
		"zalando.de",
		"zalando.com",
		"aboutyou.de",
		"asos.com",
		"nike.com",
	}
}

func defaultMaybeRendering() []string {
	return []string{
		"hm.com",
		"zara.com",
		"uniqlo.com",
		"mango.com",
		"shein.com",
	}
}

func defaultBlocksDirect() []string {
	return []string{
		"amazon.de",
		"amazon.com",
		"cloudflare-protected.example",
	}
}
