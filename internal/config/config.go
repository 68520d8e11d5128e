// Package config loads server configuration from command-line flags,
// environment variables, and a .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Predictor providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Store     StoreConfig
	Catalog   CatalogConfig
	Predictor PredictorConfig
	Scan      ScanConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration // must outlive PREDICTOR_TIMEOUT for ?wait=true
	IdleTimeout    time.Duration
	CORSOrigins    []string
	RateLimitRPS   float64 // per client IP, 0 disables
	RateLimitBurst int
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend         string
	DataPath        string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CatalogCacheTTL time.Duration
}

// CatalogConfig holds Google Books client configuration.
type CatalogConfig struct {
	BaseURL string
	APIKey  string // optional, raises the anonymous quota
	Timeout time.Duration
}

// PredictorConfig holds language model client configuration.
type PredictorConfig struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string // empty means the provider's public endpoint
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
}

// ScanConfig holds scan pipeline configuration.
type ScanConfig struct {
	CandidateTTL time.Duration
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds a Config with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("bookscan", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	port := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 45s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	storeBackend := fs.String("store", "", "Store backend: badger, redis, memory (default: badger)")
	dataPath := fs.String("data-path", "", "Badger data directory (default: ~/BookScan/data)")
	redisAddr := fs.String("redis-addr", "", "Redis address (default: localhost:6379)")

	predictorProvider := fs.String("predictor", "", "Predictor provider: gemini, openai (default: gemini)")
	predictorModel := fs.String("predictor-model", "", "Predictor model name")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// A missing .env file is fine. godotenv never overrides variables that
	// are already set in the environment.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*port, "SERVER_PORT", "8080"),
			CORSOrigins:    splitList(getConfigValue("", "CORS_ALLOWED_ORIGINS", "*")),
			RateLimitRPS:   getFloatConfigValue("", "RATE_LIMIT_RPS", 10),
			RateLimitBurst: getIntConfigValue("", "RATE_LIMIT_BURST", 20),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(getConfigValue(*storeBackend, "STORE_BACKEND", BackendBadger)),
			DataPath:      getConfigValue(*dataPath, "DATA_PATH", ""),
			RedisAddr:     getConfigValue(*redisAddr, "REDIS_ADDR", "localhost:6379"),
			RedisPassword: getConfigValue("", "REDIS_PASSWORD", ""),
			RedisDB:       getIntConfigValue("", "REDIS_DB", 0),
		},
		Catalog: CatalogConfig{
			BaseURL: getConfigValue("", "GOOGLE_BOOKS_URL", "https://www.googleapis.com"),
			APIKey:  getConfigValue("", "GOOGLE_BOOKS_API_KEY", ""),
		},
		Predictor: PredictorConfig{
			Provider:    strings.ToLower(getConfigValue(*predictorProvider, "PREDICTOR_PROVIDER", ProviderGemini)),
			APIKey:      getConfigValue("", "PREDICTOR_API_KEY", ""),
			Model:       getConfigValue(*predictorModel, "PREDICTOR_MODEL", ""),
			BaseURL:     getConfigValue("", "PREDICTOR_BASE_URL", ""),
			MaxRetries:  getIntConfigValue("", "PREDICTOR_MAX_RETRIES", 0),
			Temperature: getFloatConfigValue("", "PREDICTOR_TEMPERATURE", 0.4),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dst       *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "45s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{"", "CATALOG_CACHE_TTL", "168h", &cfg.Store.CatalogCacheTTL},
		{"", "CATALOG_TIMEOUT", "10s", &cfg.Catalog.Timeout},
		{"", "PREDICTOR_TIMEOUT", "20s", &cfg.Predictor.Timeout},
		{"", "SCAN_CANDIDATE_TTL", "30m", &cfg.Scan.CandidateTTL},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if cfg.Predictor.Model == "" {
		cfg.Predictor.Model = defaultModel(cfg.Predictor.Provider)
	}

	if cfg.Store.Backend == BackendBadger {
		if err := cfg.expandDataPath(); err != nil {
			return nil, fmt.Errorf("invalid data path: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Store.Backend {
	case BackendBadger:
		if c.Store.DataPath == "" {
			return errors.New("DATA_PATH cannot be empty for the badger backend")
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid store backend: %s (must be badger, redis, or memory)", c.Store.Backend)
	}

	switch c.Predictor.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("invalid predictor provider: %s (must be gemini or openai)", c.Predictor.Provider)
	}

	if c.App.Environment == "production" && c.Predictor.APIKey == "" {
		return errors.New("PREDICTOR_API_KEY is required in production")
	}
	if c.Predictor.Timeout <= 0 {
		return errors.New("PREDICTOR_TIMEOUT must be positive")
	}
	if c.Predictor.MaxRetries < 0 {
		return errors.New("PREDICTOR_MAX_RETRIES cannot be negative")
	}
	if c.Predictor.Temperature < 0 || c.Predictor.Temperature > 2 {
		return fmt.Errorf("PREDICTOR_TEMPERATURE must be between 0 and 2, got %g", c.Predictor.Temperature)
	}
	if c.Scan.CandidateTTL <= 0 {
		return errors.New("SCAN_CANDIDATE_TTL must be positive")
	}

	return nil
}

func defaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return "gpt-4o-mini"
	}
	return "gemini-2.5-flash"
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned as is.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Store.DataPath, filepath.Join(homeDir, "BookScan", "data"))
	if err != nil {
		return err
	}
	c.Store.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
