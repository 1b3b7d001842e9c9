package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Units     UnitsConfig     `mapstructure:"units"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxItems       int      `mapstructure:"max_items"` // Largest receipt accepted by the analyze endpoint
}

// CatalogConfig holds reference catalog configuration
type CatalogConfig struct {
	Path string `mapstructure:"path"` // .json or .csv; empty uses the embedded dataset
}

// MatchingConfig holds matcher and pipeline configuration
type MatchingConfig struct {
	AcceptThreshold     float64 `mapstructure:"accept_threshold"`
	BorderlineThreshold float64 `mapstructure:"borderline_threshold"`
	MinMatchScore       float64 `mapstructure:"min_match_score"` // 0 means borderline_threshold
	Metric              string  `mapstructure:"metric"`
	MaxEditDistance     int     `mapstructure:"max_edit_distance"`
	Workers             int     `mapstructure:"workers"` // 0 means GOMAXPROCS
	EnableDebugLogging  bool    `mapstructure:"enable_debug_logging"`
}

// UnitsConfig holds the quantity conversion table
type UnitsConfig struct {
	Conversions map[string]float64 `mapstructure:"conversions"` // kg per unit; empty uses the built-in table
	Countable   []string           `mapstructure:"countable"`
}

// CacheConfig holds match cache configuration
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"` // 0 means unbounded
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // Requests per minute, 0 disables
	Burst int `mapstructure:"burst"`
}

// ExtractorConfig holds the receipt OCR service configuration
type ExtractorConfig struct {
	BaseURL           string        `mapstructure:"base_url"` // Empty disables the scan endpoint
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// Enabled reports whether a line item extractor is configured
func (c ExtractorConfig) Enabled() bool {
	return c.BaseURL != ""
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from the given file, or searches the default
// locations for config.yaml when path is empty
func LoadFile(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/ecoscore/")
	}

	// ECOSCORE_MATCHING_ACCEPT_THRESHOLD -> matching.accept_threshold
	v.SetEnvPrefix("ECOSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional unless explicitly requested
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_items", 500)

	// Catalog defaults
	v.SetDefault("catalog.path", "")

	// Matching defaults
	v.SetDefault("matching.accept_threshold", 0.80)
	v.SetDefault("matching.borderline_threshold", 0.50)
	v.SetDefault("matching.min_match_score", 0.0)
	v.SetDefault("matching.metric", "token_sort")
	v.SetDefault("matching.max_edit_distance", 3)
	v.SetDefault("matching.workers", 0)
	v.SetDefault("matching.enable_debug_logging", false)

	// Unit defaults; empty tables fall back to the built-in conversions
	v.SetDefault("units.conversions", map[string]float64{})
	v.SetDefault("units.countable", []string{})

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.max_entries", 10000)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.burst", 20)

	// Extractor defaults
	v.SetDefault("extractor.base_url", "")
	v.SetDefault("extractor.api_key", "")
	v.SetDefault("extractor.timeout", "30s")
	v.SetDefault("extractor.requests_per_second", 2.0)
	v.SetDefault("extractor.burst", 5)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server port is required (set ECOSCORE_SERVER_PORT)")
	}
	if config.Server.MaxItems < 0 {
		return fmt.Errorf("server max_items must not be negative, got: %d", config.Server.MaxItems)
	}

	m := config.Matching
	if m.AcceptThreshold <= 0 || m.AcceptThreshold > 1 {
		return fmt.Errorf("matching accept_threshold must be in (0, 1], got: %v", m.AcceptThreshold)
	}
	if m.BorderlineThreshold <= 0 || m.BorderlineThreshold > m.AcceptThreshold {
		return fmt.Errorf("matching borderline_threshold must be in (0, accept_threshold], got: %v", m.BorderlineThreshold)
	}
	if m.MinMatchScore < 0 || m.MinMatchScore > m.AcceptThreshold {
		return fmt.Errorf("matching min_match_score must be in [0, accept_threshold], got: %v", m.MinMatchScore)
	}
	if m.MaxEditDistance < 0 {
		return fmt.Errorf("matching max_edit_distance must not be negative, got: %d", m.MaxEditDistance)
	}
	if m.Workers < 0 {
		return fmt.Errorf("matching workers must not be negative, got: %d", m.Workers)
	}

	for unit, factor := range config.Units.Conversions {
		if factor <= 0 {
			return fmt.Errorf("unit conversion for %q must be positive, got: %v", unit, factor)
		}
	}

	if config.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative, got: %v", config.Cache.TTL)
	}
	if config.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache max_entries must not be negative, got: %d", config.Cache.MaxEntries)
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("ratelimit per_ip must not be negative, got: %d", config.RateLimit.PerIP)
	}

	if config.Extractor.Enabled() && config.Extractor.Timeout <= 0 {
		return fmt.Errorf("extractor timeout must be positive when base_url is set, got: %v", config.Extractor.Timeout)
	}

	return nil
}

// loadEnvFile loads KEY=VALUE pairs from ./.env without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile() error {
	file, err := os.Open(".env")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}

	return scanner.Err()
}
