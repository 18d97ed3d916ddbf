package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:       HTTPConfig{Port: 8080},
		Database:   DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding:  EmbeddingConfig{Model: "text-embedding-3-small"},
		Generation: GenerationConfig{Model: "gpt-4o-mini"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"missing valkey addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }, "database.driver"},
		{"bad algorithm", func(c *Config) { c.Database.Index.Algorithm = "ivf" }, "database.index.algorithm"},
		{"qdrant without addr", func(c *Config) { c.Database.Driver = DriverQdrant }, "database.qdrant.addr"},
		{"no embedding model", func(c *Config) { c.Embedding.Model = "" }, "embedding.model"},
		{"no generation model", func(c *Config) { c.Generation.Model = "" }, "generation.model"},
		{"hot temperature", func(c *Config) { c.Generation.Temperature = 3 }, "generation.temperature"},
		{"overlap >= max_size", func(c *Config) { c.Chunking.MaxSize, c.Chunking.Overlap = 20, 20 }, "chunking.overlap"},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }, "chunking.overlap"},
		{"default_k > max_k", func(c *Config) { c.Retrieval.DefaultK, c.Retrieval.MaxK = 10, 5 }, "retrieval.default_k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_MemoryNeedsNoAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = DriverMemory
	cfg.Database.Addrs = nil
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	checks := []struct {
		name      string
		got, want any
	}{
		{"ReadTimeoutSec", cfg.HTTP.ReadTimeoutSec, 30},
		{"WriteTimeoutSec", cfg.HTTP.WriteTimeoutSec, 120},
		{"ShutdownSec", cfg.HTTP.ShutdownSec, 10},
		{"Driver", cfg.Database.Driver, DriverValkey},
		{"KeyPrefix", cfg.Database.KeyPrefix, "vecrag:"},
		{"Algorithm", cfg.Database.Index.Algorithm, "hnsw"},
		{"HNSWM", cfg.Database.Index.HNSWM, 16},
		{"HNSWEFConstruct", cfg.Database.Index.HNSWEFConstruct, 200},
		{"QdrantPrefix", cfg.Database.Qdrant.Prefix, "vecrag_"},
		{"EmbeddingTimeout", cfg.Embedding.TimeoutSec, 30},
		{"BatchSize", cfg.Embedding.BatchSize, 256},
		{"GenerationTimeout", cfg.Generation.TimeoutSec, 60},
		{"MaxSize", cfg.Chunking.MaxSize, 1000},
		{"Overlap", cfg.Chunking.Overlap, 100},
		{"DefaultK", cfg.Retrieval.DefaultK, 3},
		{"MaxK", cfg.Retrieval.MaxK, 50},
		{"MaxPDFBytes", cfg.Upload.MaxPDFBytes, int64(5 << 20)},
		{"MaxVTTBytes", cfg.Upload.MaxVTTBytes, int64(10 << 20)},
		{"MaxVTTFiles", cfg.Upload.MaxVTTFiles, 20},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 5, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: DriverQdrant, KeyPrefix: "custom:"},
		Chunking: ChunkingConfig{MaxSize: 200, Overlap: 0},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 5 || cfg.HTTP.WriteTimeoutSec != 60 || cfg.HTTP.ShutdownSec != 5 {
		t.Errorf("http overridden: %+v", cfg.HTTP)
	}
	if cfg.Database.Driver != DriverQdrant || cfg.Database.KeyPrefix != "custom:" {
		t.Errorf("database overridden: %+v", cfg.Database)
	}
	if cfg.Chunking.Overlap != 0 {
		t.Errorf("explicit zero overlap overridden: %d", cfg.Chunking.Overlap)
	}
}

func TestApplyDefaults_GenerationInheritsProvider(t *testing.T) {
	cfg := Config{Embedding: EmbeddingConfig{Provider: "nebius", BaseURL: "https://api.example.com/v1/", APIKey: "k"}}
	cfg.ApplyDefaults()
	g := cfg.Generation
	if g.Provider != "nebius" || g.BaseURL != "https://api.example.com/v1/" || g.APIKey != "k" {
		t.Errorf("generation should inherit the embedding provider: %+v", g)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("VECRAG_TEST_KEY", "sk-test")
	t.Setenv("VECRAG_TEST_PORT", "")

	cfg, err := Parse([]byte(`
http:
  port: ${VECRAG_TEST_PORT:-9090}
database:
  driver: memory
embedding:
  api_key: ${VECRAG_TEST_KEY}
  model: text-embedding-3-small
generation:
  model: gpt-4o-mini
  temperature: 0.2
auth:
  api_keys: ["${VECRAG_TEST_KEY}", "${VECRAG_TEST_MISSING}"]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port: got %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Embedding.APIKey != "sk-test" || cfg.Generation.APIKey != "sk-test" {
		t.Errorf("api key not expanded: %q / %q", cfg.Embedding.APIKey, cfg.Generation.APIKey)
	}
	if len(cfg.Auth.APIKeys) != 2 || cfg.Auth.APIKeys[0] != "sk-test" || cfg.Auth.APIKeys[1] != "" {
		t.Errorf("auth keys: %q", cfg.Auth.APIKeys)
	}
	if cfg.Generation.Temperature != 0.2 {
		t.Errorf("temperature: got %v", cfg.Generation.Temperature)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-local")
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.HTTP.Port == 0 || cfg.Embedding.Model == "" {
		t.Errorf("unexpected local config: %+v", cfg)
	}
}
