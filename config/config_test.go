package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", MaxItems: 500},
		Matching: MatchingConfig{
			AcceptThreshold:     0.8,
			BorderlineThreshold: 0.5,
			Metric:              "token_sort",
			MaxEditDistance:     3,
		},
		Cache:     CacheConfig{Enabled: true, TTL: time.Hour},
		RateLimit: RateLimitConfig{PerIP: 100, Burst: 20},
		Extractor: ExtractorConfig{Timeout: 30 * time.Second},
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Server.MaxItems != 500 {
			t.Errorf("Server.MaxItems = %d, want 500", cfg.Server.MaxItems)
		}
		if cfg.Catalog.Path != "" {
			t.Errorf("Catalog.Path = %s, want empty", cfg.Catalog.Path)
		}
		if cfg.Matching.AcceptThreshold != 0.8 {
			t.Errorf("Matching.AcceptThreshold = %v, want 0.8", cfg.Matching.AcceptThreshold)
		}
		if cfg.Matching.BorderlineThreshold != 0.5 {
			t.Errorf("Matching.BorderlineThreshold = %v, want 0.5", cfg.Matching.BorderlineThreshold)
		}
		if cfg.Matching.Metric != "token_sort" {
			t.Errorf("Matching.Metric = %s, want token_sort", cfg.Matching.Metric)
		}
		if cfg.Matching.MaxEditDistance != 3 {
			t.Errorf("Matching.MaxEditDistance = %d, want 3", cfg.Matching.MaxEditDistance)
		}
		if !cfg.Cache.Enabled {
			t.Error("Cache.Enabled = false, want true")
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.Cache.MaxEntries != 10000 {
			t.Errorf("Cache.MaxEntries = %d, want 10000", cfg.Cache.MaxEntries)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
		if cfg.Extractor.Enabled() {
			t.Error("Extractor.Enabled() = true, want false without base URL")
		}
		if cfg.Extractor.Timeout != 30*time.Second {
			t.Errorf("Extractor.Timeout = %v, want 30s", cfg.Extractor.Timeout)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		t.Setenv("ECOSCORE_SERVER_PORT", "9090")
		t.Setenv("ECOSCORE_SERVER_ENVIRONMENT", "production")
		t.Setenv("ECOSCORE_CATALOG_PATH", "/data/catalog.csv")
		t.Setenv("ECOSCORE_MATCHING_ACCEPT_THRESHOLD", "0.9")
		t.Setenv("ECOSCORE_MATCHING_BORDERLINE_THRESHOLD", "0.6")
		t.Setenv("ECOSCORE_MATCHING_METRIC", "jaro_winkler")
		t.Setenv("ECOSCORE_MATCHING_WORKERS", "4")
		t.Setenv("ECOSCORE_CACHE_TTL", "1h")
		t.Setenv("ECOSCORE_RATELIMIT_PER_IP", "200")
		t.Setenv("ECOSCORE_EXTRACTOR_BASE_URL", "https://ocr.example.com")
		t.Setenv("ECOSCORE_EXTRACTOR_API_KEY", "custom-api-key")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Catalog.Path != "/data/catalog.csv" {
			t.Errorf("Catalog.Path = %s, want /data/catalog.csv", cfg.Catalog.Path)
		}
		if cfg.Matching.AcceptThreshold != 0.9 {
			t.Errorf("Matching.AcceptThreshold = %v, want 0.9", cfg.Matching.AcceptThreshold)
		}
		if cfg.Matching.BorderlineThreshold != 0.6 {
			t.Errorf("Matching.BorderlineThreshold = %v, want 0.6", cfg.Matching.BorderlineThreshold)
		}
		if cfg.Matching.Metric != "jaro_winkler" {
			t.Errorf("Matching.Metric = %s, want jaro_winkler", cfg.Matching.Metric)
		}
		if cfg.Matching.Workers != 4 {
			t.Errorf("Matching.Workers = %d, want 4", cfg.Matching.Workers)
		}
		if cfg.Cache.TTL != time.Hour {
			t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
		if !cfg.Extractor.Enabled() {
			t.Error("Extractor.Enabled() = false, want true")
		}
		if cfg.Extractor.APIKey != "custom-api-key" {
			t.Errorf("Extractor.APIKey = %s, want custom-api-key", cfg.Extractor.APIKey)
		}
	})

	t.Run("fails validation when borderline exceeds accept", func(t *testing.T) {
		t.Setenv("ECOSCORE_MATCHING_ACCEPT_THRESHOLD", "0.5")
		t.Setenv("ECOSCORE_MATCHING_BORDERLINE_THRESHOLD", "0.7")

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want validation error")
		}
		if !strings.HasPrefix(err.Error(), "invalid configuration: ") {
			t.Errorf("Load() error = %v, want invalid configuration error", err)
		}
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("reads YAML file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ecoscore.yaml")
		content := `
server:
  port: "7070"
  allowed_origins: ["https://app.example.com"]
catalog:
  path: ./catalog.json
matching:
  accept_threshold: 0.85
  min_match_score: 0.4
units:
  conversions:
    kg: 1
    tonne: 1000
  countable: ["ea", "crate"]
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}

		if cfg.Server.Port != "7070" {
			t.Errorf("Server.Port = %s, want 7070", cfg.Server.Port)
		}
		if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://app.example.com" {
			t.Errorf("Server.AllowedOrigins = %v", cfg.Server.AllowedOrigins)
		}
		if cfg.Catalog.Path != "./catalog.json" {
			t.Errorf("Catalog.Path = %s, want ./catalog.json", cfg.Catalog.Path)
		}
		if cfg.Matching.AcceptThreshold != 0.85 {
			t.Errorf("Matching.AcceptThreshold = %v, want 0.85", cfg.Matching.AcceptThreshold)
		}
		if cfg.Matching.BorderlineThreshold != 0.5 {
			t.Errorf("Matching.BorderlineThreshold = %v, want default 0.5", cfg.Matching.BorderlineThreshold)
		}
		if cfg.Matching.MinMatchScore != 0.4 {
			t.Errorf("Matching.MinMatchScore = %v, want 0.4", cfg.Matching.MinMatchScore)
		}
		if cfg.Units.Conversions["tonne"] != 1000 {
			t.Errorf("Units.Conversions[tonne] = %v, want 1000", cfg.Units.Conversions["tonne"])
		}
		if len(cfg.Units.Countable) != 2 {
			t.Errorf("Units.Countable = %v, want 2 units", cfg.Units.Countable)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ecoscore.yaml")
		if err := os.WriteFile(path, []byte("server:\n  port: \"7070\"\n"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		t.Setenv("ECOSCORE_SERVER_PORT", "6060")

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if cfg.Server.Port != "6060" {
			t.Errorf("Server.Port = %s, want 6060", cfg.Server.Port)
		}
	})

	t.Run("fails when explicit file is missing", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if err == nil {
			t.Error("LoadFile() error = nil, want error for missing file")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		t.Chdir(t.TempDir())

		if err := loadEnvFile(); err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables and skips comments", func(t *testing.T) {
		t.Chdir(t.TempDir())

		envContent := `
# Comment line
ECOSCORE_TEST_VAR_1=value1
   # Indented comment

ECOSCORE_TEST_VAR_2="quoted value"
# ECOSCORE_TEST_COMMENTED=should_not_load
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		for _, key := range []string{"ECOSCORE_TEST_VAR_1", "ECOSCORE_TEST_VAR_2", "ECOSCORE_TEST_COMMENTED"} {
			t.Cleanup(func() { os.Unsetenv(key) })
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if got := os.Getenv("ECOSCORE_TEST_VAR_1"); got != "value1" {
			t.Errorf("ECOSCORE_TEST_VAR_1 = %s, want value1", got)
		}
		if got := os.Getenv("ECOSCORE_TEST_VAR_2"); got != "quoted value" {
			t.Errorf("ECOSCORE_TEST_VAR_2 = %s, want quoted value", got)
		}
		if _, ok := os.LookupEnv("ECOSCORE_TEST_COMMENTED"); ok {
			t.Error("ECOSCORE_TEST_COMMENTED should not be loaded from comment")
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("ECOSCORE_TEST_OVERRIDE", "existing-value")

		if err := os.WriteFile(".env", []byte("ECOSCORE_TEST_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if got := os.Getenv("ECOSCORE_TEST_OVERRIDE"); got != "existing-value" {
			t.Errorf("ECOSCORE_TEST_OVERRIDE = %s, want existing-value (should not override)", got)
		}
	})
}

func TestValidate(t *testing.T) {
	t.Run("validates successfully with defaults", func(t *testing.T) {
		if err := validate(validConfig()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty port", mutate: func(c *Config) { c.Server.Port = "" }},
		{name: "negative max items", mutate: func(c *Config) { c.Server.MaxItems = -1 }},
		{name: "accept threshold above one", mutate: func(c *Config) { c.Matching.AcceptThreshold = 1.5 }},
		{name: "zero accept threshold", mutate: func(c *Config) { c.Matching.AcceptThreshold = 0 }},
		{name: "borderline above accept", mutate: func(c *Config) { c.Matching.BorderlineThreshold = 0.9 }},
		{name: "min match score above accept", mutate: func(c *Config) { c.Matching.MinMatchScore = 0.95 }},
		{name: "negative edit distance", mutate: func(c *Config) { c.Matching.MaxEditDistance = -1 }},
		{name: "negative workers", mutate: func(c *Config) { c.Matching.Workers = -2 }},
		{name: "non-positive conversion", mutate: func(c *Config) { c.Units.Conversions = map[string]float64{"kg": 0} }},
		{name: "negative cache ttl", mutate: func(c *Config) { c.Cache.TTL = -time.Second }},
		{name: "negative cache max entries", mutate: func(c *Config) { c.Cache.MaxEntries = -1 }},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimit.PerIP = -1 }},
		{name: "extractor without timeout", mutate: func(c *Config) {
			c.Extractor.BaseURL = "https://ocr.example.com"
			c.Extractor.Timeout = 0
		}},
	}

	for _, tc := range testCases {
		t.Run("fails for "+tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			if err := validate(cfg); err == nil {
				t.Error("validate() error = nil, want error")
			}
		})
	}
}
