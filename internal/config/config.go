package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	CoinGeckoBaseURL          string `yaml:"coingecko_base_url"`
	CoinGeckoAPIKey           string `yaml:"coingecko_api_key"`
	CoinGeckoRequestsPerMin   int    `yaml:"coingecko_requests_per_min"`
	DexScreenerBaseURL        string `yaml:"dexscreener_base_url"`
	DexScreenerRequestsPerMin int    `yaml:"dexscreener_requests_per_min"`
	RequestTimeout            int    `yaml:"request_timeout"`   // seconds
	MaxRetryTimeout           int    `yaml:"max_retry_timeout"` // seconds
	ChartSamples              int    `yaml:"chart_samples"`

	CacheBackend  string `yaml:"cache_backend"`
	CacheTTL      int    `yaml:"cache_ttl"` // seconds
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`

	TelegramBotToken string `yaml:"telegram_bot_token"`
	BroadcastCron    string `yaml:"broadcast_cron"`
	DefaultPersona   string `yaml:"default_persona"`

	DBEnabled  bool   `yaml:"db_enabled"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBSSLMode  string `yaml:"db_sslmode"`

	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
	LogFile    string `yaml:"log_file"`
	LogJSON    bool   `yaml:"log_json"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		CoinGeckoBaseURL:          "https://api.coingecko.com/api/v3",
		CoinGeckoRequestsPerMin:   10,
		DexScreenerBaseURL:        "https://api.dexscreener.com/latest",
		DexScreenerRequestsPerMin: 60,
		RequestTimeout:            30,
		MaxRetryTimeout:           30,
		ChartSamples:              200,
		CacheBackend:              CacheMemory,
		CacheTTL:                  300,
		RedisAddr:                 "localhost:6379",
		OpenAIModel:               "gpt-3.5-turbo",
		BroadcastCron:             "0 0 9 * * *",
		DefaultPersona:            "nova",
		DBHost:                    "localhost",
		DBPort:                    "5432",
		DBUser:                    "postgres",
		DBName:                    "nova",
		DBSSLMode:                 "disable",
		ListenAddr:                ":8080",
		LogLevel:                  "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file at path
// and environment variables, in increasing priority
func Load(path string) (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.CoinGeckoBaseURL = getEnvWithDefault("COINGECKO_BASE_URL", c.CoinGeckoBaseURL)
	c.CoinGeckoAPIKey = getEnvWithDefault("COINGECKO_API_KEY", c.CoinGeckoAPIKey)
	c.CoinGeckoRequestsPerMin = getEnvIntWithDefault("COINGECKO_REQUESTS_PER_MIN", c.CoinGeckoRequestsPerMin)
	c.DexScreenerBaseURL = getEnvWithDefault("DEXSCREENER_BASE_URL", c.DexScreenerBaseURL)
	c.DexScreenerRequestsPerMin = getEnvIntWithDefault("DEXSCREENER_REQUESTS_PER_MIN", c.DexScreenerRequestsPerMin)
	c.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", c.RequestTimeout)
	c.MaxRetryTimeout = getEnvIntWithDefault("MAX_RETRY_TIMEOUT", c.MaxRetryTimeout)
	c.ChartSamples = getEnvIntWithDefault("CHART_SAMPLES", c.ChartSamples)

	c.CacheBackend = getEnvWithDefault("CACHE_BACKEND", c.CacheBackend)
	c.CacheTTL = getEnvIntWithDefault("CACHE_TTL", c.CacheTTL)
	c.RedisAddr = getEnvWithDefault("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnvWithDefault("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvIntWithDefault("REDIS_DB", c.RedisDB)

	c.OpenAIAPIKey = getEnvWithDefault("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = getEnvWithDefault("OPENAI_MODEL", c.OpenAIModel)

	c.TelegramBotToken = getEnvWithDefault("TELEGRAM_BOT_TOKEN", c.TelegramBotToken)
	c.BroadcastCron = getEnvWithDefault("BROADCAST_CRON", c.BroadcastCron)
	c.DefaultPersona = getEnvWithDefault("DEFAULT_PERSONA", c.DefaultPersona)

	c.DBEnabled = getEnvBoolWithDefault("DB_ENABLED", c.DBEnabled || os.Getenv("DB_HOST") != "")
	c.DBHost = getEnvWithDefault("DB_HOST", c.DBHost)
	c.DBPort = getEnvWithDefault("DB_PORT", c.DBPort)
	c.DBUser = getEnvWithDefault("DB_USER", c.DBUser)
	c.DBPassword = getEnvWithDefault("DB_PASSWORD", c.DBPassword)
	c.DBName = getEnvWithDefault("DB_NAME", c.DBName)
	c.DBSSLMode = getEnvWithDefault("DB_SSLMODE", c.DBSSLMode)

	c.ListenAddr = getEnvWithDefault("LISTEN_ADDR", c.ListenAddr)
	c.LogLevel = getEnvWithDefault("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnvWithDefault("LOG_FILE", c.LogFile)
	c.LogJSON = getEnvBoolWithDefault("LOG_JSON", c.LogJSON)
}

// Validate checks settings every command depends on
func (c *Config) Validate() error {
	var errs []error
	if c.CoinGeckoBaseURL == "" {
		errs = append(errs, errors.New("coingecko_base_url is required"))
	}
	if c.DexScreenerBaseURL == "" {
		errs = append(errs, errors.New("dexscreener_base_url is required"))
	}
	if c.CoinGeckoRequestsPerMin <= 0 || c.DexScreenerRequestsPerMin <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	if c.ChartSamples <= 0 {
		errs = append(errs, errors.New("chart_samples must be positive"))
	}
	switch c.CacheBackend {
	case CacheMemory:
	case CacheRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis_addr is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache_backend %q", c.CacheBackend))
	}
	return errors.Join(errs...)
}

// ValidateBot checks the settings needed by the Telegram commands
func (c *Config) ValidateBot() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.TelegramBotToken == "" {
		return errors.New("telegram_bot_token is required")
	}
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(c.BroadcastCron); err != nil {
		return fmt.Errorf("invalid broadcast_cron %q: %w", c.BroadcastCron, err)
	}
	return nil
}

// DatabaseConfigured reports whether watchlists should live in Postgres
func (c *Config) DatabaseConfigured() bool {
	return c.DBEnabled
}

// RequestTimeoutDuration is RequestTimeout as a duration
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// MaxRetryDuration is MaxRetryTimeout as a duration
func (c *Config) MaxRetryDuration() time.Duration {
	return time.Duration(c.MaxRetryTimeout) * time.Second
}

// CacheTTLDuration is CacheTTL as a duration
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
