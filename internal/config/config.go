// Package config loads the service configuration from config/<env>.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nightcity/oracle/internal/domain"
)

// Config holds the oracle service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
	Cache     CacheConfig     `yaml:"cache"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Entities  EntitiesConfig  `yaml:"entities"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Corpora   []CorpusConfig  `yaml:"corpora"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds the Redis embedding cache settings. Empty addrs disables the cache.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TLS              bool     `yaml:"tls"`
	ClientSideCache  bool     `yaml:"client_side_cache"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// EmbeddingConfig holds the query embedding provider settings.
type EmbeddingConfig struct {
	Provider         string  `yaml:"provider"` // metrics label, e.g. ollama, openai, nebius
	APIKey           string  `yaml:"api_key"`
	BaseURL          string  `yaml:"base_url"`
	Model            string  `yaml:"model"`
	Dimensions       int     `yaml:"dimensions"`
	SendDimensions   bool    `yaml:"send_dimensions"`
	QueryInstruction string  `yaml:"query_instruction"`
	RateLimit        float64 `yaml:"rate_limit_per_sec"` // 0 = unlimited
	RateBurst        int     `yaml:"rate_burst"`
}

// Entity extractor kinds.
const (
	ExtractorGazetteer = "gazetteer"
	ExtractorLLM       = "llm"
	ExtractorNone      = "none"
)

// EntitiesConfig selects the query entity extractor.
type EntitiesConfig struct {
	Extractor string `yaml:"extractor"` // gazetteer (default), llm, none
	APIKey    string `yaml:"api_key"`   // llm only; defaults to embedding.api_key
	BaseURL   string `yaml:"base_url"`  // llm only; defaults to embedding.base_url
	Model     string `yaml:"model"`     // llm only
}

// RetrievalConfig tunes search and fusion.
type RetrievalConfig struct {
	TopK        int      `yaml:"top_k"`
	MaxResults  int      `yaml:"max_results"`
	TypeBoost   *float64 `yaml:"type_boost"`
	EntityBoost *float64 `yaml:"entity_boost"`
	TimeoutMS   int      `yaml:"timeout_ms"`
}

// Timeout returns the pipeline deadline.
func (r RetrievalConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

// CorpusConfig locates one corpus snapshot.
type CorpusConfig struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // file (default), sqlite
	Records  string `yaml:"records"`
	Vectors  string `yaml:"vectors"`
	TypeMap  string `yaml:"type_map"`
	Entities string `yaml:"entities"`
	Path     string `yaml:"path"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates YAML configuration.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = int((7 * 24 * time.Hour).Seconds())
	}

	vec := domain.DefaultVectorConfig()
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "ollama"
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "http://localhost:11434/v1"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = vec.Model
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = vec.Dimensions
	}

	if c.Entities.Extractor == "" {
		c.Entities.Extractor = ExtractorGazetteer
	}
	if c.Entities.APIKey == "" {
		c.Entities.APIKey = c.Embedding.APIKey
	}
	if c.Entities.BaseURL == "" {
		c.Entities.BaseURL = c.Embedding.BaseURL
	}

	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 7
	}
	if c.Retrieval.MaxResults <= 0 {
		c.Retrieval.MaxResults = 4
	}
	if c.Retrieval.TypeBoost == nil {
		c.Retrieval.TypeBoost = ptr(0.2)
	}
	if c.Retrieval.EntityBoost == nil {
		c.Retrieval.EntityBoost = ptr(0.05)
	}
	if c.Retrieval.TimeoutMS <= 0 {
		c.Retrieval.TimeoutMS = 10000
	}

	for i := range c.Corpora {
		if c.Corpora[i].Kind == "" {
			c.Corpora[i].Kind = "file"
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.RateLimit < 0 {
		return fmt.Errorf("embedding.rate_limit_per_sec must not be negative, got %v", c.Embedding.RateLimit)
	}

	switch c.Entities.Extractor {
	case ExtractorGazetteer, ExtractorNone:
	case ExtractorLLM:
		if c.Entities.Model == "" {
			return fmt.Errorf("entities.model is required for the llm extractor")
		}
	default:
		return fmt.Errorf("entities.extractor must be gazetteer, llm or none, got %q", c.Entities.Extractor)
	}

	if *c.Retrieval.TypeBoost < 0 || *c.Retrieval.EntityBoost < 0 {
		return fmt.Errorf("retrieval boosts must not be negative")
	}
	if c.Retrieval.MaxResults > 20 {
		return fmt.Errorf("retrieval.max_results must be at most 20, got %d", c.Retrieval.MaxResults)
	}

	if len(c.Corpora) == 0 {
		return fmt.Errorf("at least one corpus is required")
	}
	seen := make(map[string]bool, len(c.Corpora))
	for i, cc := range c.Corpora {
		if err := cc.validate(); err != nil {
			return fmt.Errorf("corpora[%d]: %w", i, err)
		}
		if seen[cc.Name] {
			return fmt.Errorf("corpora[%d]: duplicate corpus %q", i, cc.Name)
		}
		seen[cc.Name] = true
	}
	return nil
}

func (cc CorpusConfig) validate() error {
	if !domain.CorpusName(cc.Name).IsValid() {
		return fmt.Errorf("unknown corpus %q", cc.Name)
	}
	switch cc.Kind {
	case "file":
		if cc.Records == "" || cc.Vectors == "" {
			return fmt.Errorf("corpus %s: records and vectors are required", cc.Name)
		}
	case "sqlite":
		if cc.Path == "" {
			return fmt.Errorf("corpus %s: path is required", cc.Name)
		}
	default:
		return fmt.Errorf("corpus %s: kind must be file or sqlite, got %q", cc.Name, cc.Kind)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
