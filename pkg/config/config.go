// Package config loads the pager server configuration from a YAML file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/itempager/pkg/fetch"
	"github.com/Sternrassler/itempager/pkg/logging"
	"github.com/Sternrassler/itempager/pkg/pager"
	"github.com/Sternrassler/itempager/pkg/store"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Pager   pager.Settings `yaml:"pager"`
	Source  SourceConfig   `yaml:"source"`
	Redis   RedisConfig    `yaml:"redis"`
	Logging LoggingConfig  `yaml:"logging"`
	Server  ServerConfig   `yaml:"server"`
}

// SourceConfig describes the remote item source.
type SourceConfig struct {
	URL               string        `yaml:"url"`
	UserAgent         string        `yaml:"user_agent"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`

	// PageSize is used to build the initial uniform pagination.
	PageSize int `yaml:"page_size"`
}

// RedisConfig configures the optional shared item store.
// An empty URL disables the store.
type RedisConfig struct {
	URL       string        `yaml:"url"`
	DB        int           `yaml:"db"`
	Namespace string        `yaml:"namespace"`
	TTL       time.Duration `yaml:"ttl"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// ServerConfig configures the HTTP front-end.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	httpDefaults := fetch.DefaultHTTPConfig("http://localhost:9000")
	storeDefaults := store.DefaultConfig()
	return Config{
		Pager: pager.DefaultSettings(),
		Source: SourceConfig{
			URL:               httpDefaults.BaseURL,
			UserAgent:         httpDefaults.UserAgent,
			RequestsPerSecond: httpDefaults.RequestsPerSecond,
			Burst:             httpDefaults.Burst,
			Timeout:           httpDefaults.Timeout,
			PageSize:          50,
		},
		Redis: RedisConfig{
			Namespace: storeDefaults.Namespace,
			TTL:       storeDefaults.TTL,
		},
		Logging: LoggingConfig{Level: string(logging.LevelInfo)},
		Server:  ServerConfig{Port: "8080"},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
// The path is expected to come from a trusted source (command-line flag).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 -- path is provided by the operator, not user input
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Pager.MaxItems = getEnvInt("PAGER_MAX_ITEMS", c.Pager.MaxItems)
	c.Pager.NumPrecedingPreloadedPages = getEnvInt("PAGER_PRECEDING_PAGES", c.Pager.NumPrecedingPreloadedPages)
	c.Pager.NumFollowingPreloadedPages = getEnvInt("PAGER_FOLLOWING_PAGES", c.Pager.NumFollowingPreloadedPages)
	c.Pager.MaxBatchSize = getEnvInt("PAGER_MAX_BATCH_SIZE", c.Pager.MaxBatchSize)
	c.Source.URL = getEnv("SOURCE_URL", c.Source.URL)
	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Server.Port = getEnv("PORT", c.Server.Port)
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if err := c.Pager.Validate(); err != nil {
		return fmt.Errorf("pager: %w", err)
	}
	if c.Source.URL == "" {
		return errors.New("source: url is required")
	}
	if c.Source.RequestsPerSecond < 0 {
		return fmt.Errorf("source: requests_per_second must be >= 0 (got %v)", c.Source.RequestsPerSecond)
	}
	if c.Source.PageSize <= 0 {
		return fmt.Errorf("source: page_size must be > 0 (got %d)", c.Source.PageSize)
	}
	if err := logging.ValidateLevel(logging.LogLevel(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis: ttl must be >= 0 (got %v)", c.Redis.TTL)
	}
	if c.Server.Port == "" {
		return errors.New("server: port is required")
	}
	return nil
}

// HTTPConfig returns the fetcher configuration for the source.
func (c *Config) HTTPConfig() fetch.HTTPConfig {
	return fetch.HTTPConfig{
		BaseURL:           c.Source.URL,
		UserAgent:         c.Source.UserAgent,
		RequestsPerSecond: c.Source.RequestsPerSecond,
		Burst:             c.Source.Burst,
		Timeout:           c.Source.Timeout,
	}
}

// StoreConfig returns the Redis store configuration.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Namespace: c.Redis.Namespace,
		TTL:       c.Redis.TTL,
	}
}

// LoggingSetup returns the zerolog setup configuration writing to stderr.
func (c *Config) LoggingSetup() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Logging.Level)
	cfg.Pretty = c.Logging.Pretty
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of key, or defaultValue if the
// variable is unset or malformed.
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().
			Str("key", key).
			Str("value", valueStr).
			Int("default", defaultValue).
			Err(err).
			Msg("Invalid integer value for environment variable, using default")
		return defaultValue
	}
	return value
}
