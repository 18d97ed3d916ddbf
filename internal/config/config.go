package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverQdrant = "qdrant"
	DriverMemory = "memory"
)

// Config holds the vecrag API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Upload     UploadConfig     `yaml:"upload"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"` // empty disables auth
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"` // covers a whole chat stream
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector store settings.
type DatabaseConfig struct {
	Driver           string       `yaml:"driver"` // valkey, redis, qdrant, memory (default: valkey)
	Addrs            []string     `yaml:"addrs"`
	Username         string       `yaml:"username"`
	Password         string       `yaml:"password"`
	DB               int          `yaml:"db"`
	KeyPrefix        string       `yaml:"key_prefix"`
	ReadinessTimeout int          `yaml:"readiness_timeout_sec"`
	Index            IndexConfig  `yaml:"index"`
	Qdrant           QdrantConfig `yaml:"qdrant"`
}

// IndexConfig holds vector index settings for redis and valkey.
type IndexConfig struct {
	Algorithm       string `yaml:"algorithm"` // hnsw, flat (default: hnsw)
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Addr   string `yaml:"addr"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`
	Prefix string `yaml:"prefix"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string      `yaml:"provider"` // label for metrics and logs
	BaseURL    string      `yaml:"base_url"`
	APIKey     string      `yaml:"api_key"`
	Model      string      `yaml:"model"`
	Dimensions int         `yaml:"dimensions"` // 0 keeps the model's native size
	TimeoutSec int         `yaml:"timeout_sec"`
	BatchSize  int         `yaml:"batch_size"`
	Cache      CacheConfig `yaml:"cache"`
}

// CacheConfig holds embedding cache settings. Only redis and valkey drivers cache.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	TTLHours int  `yaml:"ttl_hours"` // 0 keeps entries forever
}

// GenerationConfig holds chat completion settings.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"` // 0 = provider default
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// ChunkingConfig holds chunker settings.
type ChunkingConfig struct {
	MaxSize int `yaml:"max_size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig bounds the number of retrieved chunks.
type RetrievalConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
}

// UploadConfig holds ingestion limits.
type UploadConfig struct {
	MaxPDFBytes        int64 `yaml:"max_pdf_bytes"`
	MaxVTTBytes        int64 `yaml:"max_vtt_bytes"`
	MaxVTTFiles        int   `yaml:"max_vtt_files"`
	MaxJSONBytes       int64 `yaml:"max_json_bytes"`
	URLFetchTimeoutSec int   `yaml:"url_fetch_timeout_sec"`
	MaxPageBytes       int64 `yaml:"max_page_bytes"`
	// AllowPrivateURLs lets URL uploads reach loopback and private networks.
	AllowPrivateURLs bool `yaml:"allow_private_urls"`
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

// Parse decodes YAML with ${VAR} substitution, applies defaults and validates.
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
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
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "vecrag:"
	}
	if c.Database.Index.Algorithm == "" {
		c.Database.Index.Algorithm = "hnsw"
	}
	if c.Database.Index.HNSWM <= 0 {
		c.Database.Index.HNSWM = 16
	}
	if c.Database.Index.HNSWEFConstruct <= 0 {
		c.Database.Index.HNSWEFConstruct = 200
	}
	if c.Database.Qdrant.Prefix == "" {
		c.Database.Qdrant.Prefix = "vecrag_"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 256
	}

	if c.Generation.Provider == "" {
		c.Generation.Provider = c.Embedding.Provider
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = c.Embedding.BaseURL
	}
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = c.Embedding.APIKey
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 60
	}

	// overlap 0 is legal, so it only defaults together with max_size
	if c.Chunking.MaxSize <= 0 {
		c.Chunking.MaxSize = 1000
		if c.Chunking.Overlap == 0 {
			c.Chunking.Overlap = 100
		}
	}

	if c.Retrieval.DefaultK <= 0 {
		c.Retrieval.DefaultK = 3
	}
	if c.Retrieval.MaxK <= 0 {
		c.Retrieval.MaxK = 50
	}

	if c.Upload.MaxPDFBytes <= 0 {
		c.Upload.MaxPDFBytes = 5 << 20
	}
	if c.Upload.MaxVTTBytes <= 0 {
		c.Upload.MaxVTTBytes = 10 << 20
	}
	if c.Upload.MaxVTTFiles <= 0 {
		c.Upload.MaxVTTFiles = 20
	}
	if c.Upload.MaxJSONBytes <= 0 {
		c.Upload.MaxJSONBytes = 1 << 20
	}
	if c.Upload.URLFetchTimeoutSec <= 0 {
		c.Upload.URLFetchTimeoutSec = 15
	}
	if c.Upload.MaxPageBytes <= 0 {
		c.Upload.MaxPageBytes = 5 << 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
		switch c.Database.Index.Algorithm {
		case "hnsw", "flat":
		default:
			return fmt.Errorf("database.index.algorithm must be \"hnsw\" or \"flat\", got %q",
				c.Database.Index.Algorithm)
		}
	case DriverQdrant:
		if c.Database.Qdrant.Addr == "" {
			return fmt.Errorf("database.qdrant.addr is required for driver %q", DriverQdrant)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of valkey, redis, qdrant, memory, got %q", c.Database.Driver)
	}

	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.Cache.TTLHours < 0 {
		return fmt.Errorf("embedding.cache.ttl_hours must not be negative, got %d", c.Embedding.Cache.TTLHours)
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be between 0 and 2, got %v", c.Generation.Temperature)
	}

	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxSize {
		return fmt.Errorf("chunking.overlap must be in [0, max_size), got %d with max_size %d",
			c.Chunking.Overlap, c.Chunking.MaxSize)
	}
	if c.Retrieval.DefaultK > c.Retrieval.MaxK {
		return fmt.Errorf("retrieval.default_k (%d) must not exceed retrieval.max_k (%d)",
			c.Retrieval.DefaultK, c.Retrieval.MaxK)
	}
	return nil
}

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
